// internal/handlers/common.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/insurance-backend/internal/i18n"
	"github.com/javajoker/insurance-backend/internal/models"
	"github.com/javajoker/insurance-backend/internal/services"
	"github.com/javajoker/insurance-backend/internal/utils"
)

// respondError maps service error kinds onto HTTP statuses and the response envelope.
func respondError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)

	appErr, ok := services.AsAppError(err)
	if !ok {
		logrus.WithError(err).WithField("path", c.Request.URL.Path).Error("Unhandled error")
		utils.ErrorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", i18n.T(lang, i18n.KeyInternalError), nil)
		return
	}

	code := string(appErr.Kind)
	switch appErr.Kind {
	case services.KindValidation:
		utils.ErrorResponse(c, http.StatusBadRequest, code, appErr.Message, appErr.Details)
	case services.KindNotFound:
		utils.ErrorResponse(c, http.StatusNotFound, code, appErr.Message, nil)
	case services.KindInvalidTransition:
		utils.ErrorResponse(c, http.StatusConflict, code, appErr.Message, nil)
	case services.KindAuthorization:
		utils.ErrorResponse(c, http.StatusForbidden, code, appErr.Message, nil)
	case services.KindUpstream:
		status, key := http.StatusBadGateway, i18n.KeyPaymentUpstream
		if appErr.Ambiguous {
			status, key = http.StatusGatewayTimeout, i18n.KeyPaymentCheckStatus
		}
		logrus.WithError(appErr).WithField("path", c.Request.URL.Path).Warn("Upstream failure")
		utils.ErrorResponse(c, status, code, i18n.T(lang, key), gin.H{
			"retryable": appErr.Retryable,
			"hint":      appErr.Hint(),
		})
	default:
		utils.ErrorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", i18n.T(lang, i18n.KeyInternalError), nil)
	}
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.ValidationErrorResponse(c, []utils.ValidationError{
			{Field: "body", Tag: "json", Message: err.Error()},
		})
		return false
	}
	return true
}

// currentIdentity reads the caller set by middleware.AuthRequired, answering 401 if absent.
func currentIdentity(c *gin.Context) (services.Identity, bool) {
	email, ok := utils.GetEmailFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return services.Identity{}, false
	}

	userID, _ := utils.GetUserIDFromContext(c)
	role, _ := utils.GetRoleFromContext(c)
	return services.Identity{
		UserID: userID,
		Email:  email,
		Role:   models.Role(role),
	}, true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.ValidationErrorResponse(c, []utils.ValidationError{
			{Field: name, Tag: "uuid", Message: "Invalid " + name},
		})
		return uuid.Nil, false
	}
	return id, true
}
