package handlers

import (
	"net/http"

	"shiptrack/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

// GET /api/shipsgo-tracking/track?container=|bl=|booking=
// Provider failures answer 200 with success=false.
func (h *Handlers) Track(c *gin.Context) {
	res, err := h.Tracking.TrackFirst(c.Request.Context(), c.Query("container"), c.Query("bl"), c.Query("booking"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /api/shipsgo-tracking/health
func (h *Handlers) TrackingHealth(c *gin.Context) {
	c.JSON(http.StatusOK, h.Tracking.Health())
}

// GET /api/shipments/:id/tracking
func (h *Handlers) ShipmentTracking(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	sh, err := h.shipmentSvc(c).GetShipment(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Tracking.Reconcile(c.Request.Context(), sh))
}

type applyTrackingRequest struct {
	Version *int64 `json:"version"`
}

// POST /api/shipments/:id/apply-tracking-status
func (h *Handlers) ApplyTrackingStatus(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req applyTrackingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, "invalid payload", err)
			return
		}
	}
	version, ok := expectedVersion(c, req.Version)
	if !ok {
		return
	}
	sh, rec, applied, err := h.shipmentSvc(c).ApplyTrackingStatus(c.Request.Context(), id, version, h.Tracking, actor)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	setVersionHeader(c, sh.Version)
	c.JSON(http.StatusOK, gin.H{
		"shipment":   sh,
		"tracking":   rec.Tracking,
		"applied":    applied,
		"request_id": middleware.GetRequestID(c),
	})
}

// GET /api/shipments/track/:trackingNumber
// Public: only the customer-safe projection of the shipment is returned.
func (h *Handlers) PublicTrack(c *gin.Context) {
	sh, err := h.shipmentSvc(c).GetByTrackingNumber(c.Request.Context(), c.Param("trackingNumber"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	rec := h.Tracking.Reconcile(c.Request.Context(), sh)
	c.JSON(http.StatusOK, gin.H{
		"shipment":      sh.Public(),
		"tracking":      rec.Tracking,
		"statusMatches": rec.StatusMatches,
	})
}
