// internal/handlers/application.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/insurance-backend/internal/models"
	"github.com/javajoker/insurance-backend/internal/services"
	"github.com/javajoker/insurance-backend/internal/store"
	"github.com/javajoker/insurance-backend/internal/utils"
)

type ApplicationHandler struct {
	applicationService *services.ApplicationService
}

func NewApplicationHandler(applicationService *services.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{
		applicationService: applicationService,
	}
}

// POST /applications
func (h *ApplicationHandler) SubmitApplication(c *gin.Context) {
	caller, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req services.SubmitApplicationRequest
	if !bindJSON(c, &req) {
		return
	}

	app, err := h.applicationService.SubmitApplication(c.Request.Context(), caller, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"application": app,
	})
}

// GET /applications
func (h *ApplicationHandler) ListApplications(c *gin.Context) {
	caller, ok := currentIdentity(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	filter := store.ApplicationFilter{
		Email:  c.Query("email"),
		Status: models.ApplicationStatus(c.Query("status")),
		Offset: params.Offset(),
		Limit:  params.Limit,
	}

	apps, total, err := h.applicationService.ListApplications(c.Request.Context(), caller, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(apps, total, params))
}

// GET /applications/:id
func (h *ApplicationHandler) GetApplication(c *gin.Context) {
	caller, ok := currentIdentity(c)
	if !ok {
		return
	}

	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	app, err := h.applicationService.GetApplication(c.Request.Context(), caller, id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"application": app,
	})
}

// PUT /applications/:id/review
func (h *ApplicationHandler) ReviewApplication(c *gin.Context) {
	caller, ok := currentIdentity(c)
	if !ok {
		return
	}

	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req services.ReviewApplicationRequest
	if !bindJSON(c, &req) {
		return
	}

	app, err := h.applicationService.ReviewApplication(c.Request.Context(), caller, id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"application": app,
	})
}
