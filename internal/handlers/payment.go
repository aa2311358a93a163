// internal/handlers/payment.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/insurance-backend/internal/models"
	"github.com/javajoker/insurance-backend/internal/services"
	"github.com/javajoker/insurance-backend/internal/store"
	"github.com/javajoker/insurance-backend/internal/utils"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
}

func NewPaymentHandler(paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// POST /payments/intent
func (h *PaymentHandler) CreatePaymentIntent(c *gin.Context) {
	caller, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req services.InitiatePaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	response, err := h.paymentService.InitiatePayment(c.Request.Context(), caller, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, response)
}

// POST /payments/confirm
func (h *PaymentHandler) ConfirmPayment(c *gin.Context) {
	caller, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req services.ConfirmPaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	tx, err := h.paymentService.ReportPaymentOutcome(c.Request.Context(), caller, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"transaction": tx,
	})
}

// POST /payments/:intent_id/confirm-token
func (h *PaymentHandler) ConfirmWithToken(c *gin.Context) {
	caller, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req services.ConfirmWithTokenRequest
	if !bindJSON(c, &req) {
		return
	}

	status, err := h.paymentService.ConfirmWithToken(c.Request.Context(), caller, c.Param("intent_id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, status)
}

// GET /payments/:intent_id/status
func (h *PaymentHandler) GetPaymentStatus(c *gin.Context) {
	caller, ok := currentIdentity(c)
	if !ok {
		return
	}

	status, err := h.paymentService.CheckPaymentStatus(c.Request.Context(), caller, c.Param("intent_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, status)
}

// GET /payments/history
func (h *PaymentHandler) GetPaymentHistory(c *gin.Context) {
	caller, ok := currentIdentity(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	filter := store.TransactionFilter{
		PayerEmail: c.Query("email"),
		Status:     models.TransactionStatus(c.Query("status")),
		Offset:     params.Offset(),
		Limit:      params.Limit,
	}

	if appID := c.Query("application_id"); appID != "" {
		id, err := uuid.Parse(appID)
		if err != nil {
			utils.ValidationErrorResponse(c, []utils.ValidationError{
				{Field: "application_id", Tag: "uuid", Message: "Invalid application_id"},
			})
			return
		}
		filter.ApplicationID = &id
	}

	txs, total, err := h.paymentService.ListTransactions(c.Request.Context(), caller, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(txs, total, params))
}
