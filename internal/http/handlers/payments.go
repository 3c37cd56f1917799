package handlers

import (
	"net/http"
	"strings"
	"time"

	"shiptrack/internal/services"
	"shiptrack/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type addPaymentRequest struct {
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Method          string          `json:"method"`
	PaymentDate     string          `json:"paymentDate"`
	ReferenceNumber string          `json:"referenceNumber"`
	Notes           string          `json:"notes"`
}

// POST /api/shipments/:id/payments
func (h *Handlers) AddPayment(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req addPaymentRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	var paidAt time.Time
	if strings.TrimSpace(req.PaymentDate) != "" {
		t, err := utils.ParseFlexibleTime(req.PaymentDate)
		if err != nil {
			respondError(c, http.StatusBadRequest, "validation_error", "paymentDate: "+err.Error(), gin.H{"field": "paymentDate"})
			return
		}
		paidAt = t
	}

	rec, sh, err := h.paymentSvc(c).AddPayment(c.Request.Context(), id, services.AddPaymentInput{
		Amount:          req.Amount,
		Currency:        req.Currency,
		Method:          req.Method,
		PaymentDate:     paidAt,
		ReferenceNumber: req.ReferenceNumber,
		Notes:           req.Notes,
	}, actor)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	setVersionHeader(c, sh.Version)
	c.JSON(http.StatusCreated, gin.H{"payment": rec, "shipment": sh})
}

// GET /api/shipments/:id/payments
func (h *Handlers) ListPayments(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	list, err := h.paymentSvc(c).ListPayments(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": list})
}

// GET /api/shipments/:id/payment-summary
func (h *Handlers) PaymentSummary(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	sum, err := h.paymentSvc(c).Summary(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}
