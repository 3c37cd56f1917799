package handlers

import (
	"net/http"

	"shiptrack/internal/domain"
	"shiptrack/internal/repositories"

	"github.com/gin-gonic/gin"
)

// portalClient returns the caller's client id; customer tokens without one see nothing.
func portalClient(c *gin.Context) (domain.RequestContext, bool) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return actor, false
	}
	if actor.ClientID <= 0 {
		respondError(c, http.StatusForbidden, "forbidden", "account is not linked to a client", nil)
		return actor, false
	}
	return actor, true
}

// GET /api/portal/shipments
func (h *Handlers) PortalShipments(c *gin.Context) {
	actor, ok := portalClient(c)
	if !ok {
		return
	}
	list, page, err := h.shipmentSvc(c).ListShipments(c.Request.Context(),
		repositories.ShipmentFilter{ClientID: actor.ClientID, Query: c.Query("q")}, pagination(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shipments": list, "pagination": page})
}

// GET /api/portal/shipments/:id
func (h *Handlers) PortalShipment(c *gin.Context) {
	actor, ok := portalClient(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	sh, err := h.shipmentSvc(c).GetClientShipment(c.Request.Context(), actor.ClientID, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	sum, err := h.paymentSvc(c).SummaryFor(c.Request.Context(), sh)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	rec := h.Tracking.Reconcile(c.Request.Context(), sh)
	c.JSON(http.StatusOK, gin.H{"shipment": sh, "summary": sum, "tracking": rec.Tracking})
}

// GET /api/portal/shipments/:id/payments
func (h *Handlers) PortalPayments(c *gin.Context) {
	actor, ok := portalClient(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	sh, err := h.shipmentSvc(c).GetClientShipment(c.Request.Context(), actor.ClientID, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	list, err := h.paymentSvc(c).ListPayments(c.Request.Context(), sh.ID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": list})
}

// GET /api/portal/shipments/:id/statement.pdf
func (h *Handlers) PortalStatementPDF(c *gin.Context) {
	actor, ok := portalClient(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	pdfBytes, filename, err := h.docsSvc(c).GenerateClientStatement(c.Request.Context(), actor.ClientID, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}
