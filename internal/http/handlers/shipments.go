package handlers

import (
	"net/http"
	"strconv"

	"shiptrack/internal/domain/models"
	"shiptrack/internal/repositories"
	"shiptrack/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type createShipmentRequest struct {
	TrackingNumber    string          `json:"trackingNumber"`
	ClientID          int64           `json:"clientId"`
	OriginPort        string          `json:"originPort"`
	DestinationPort   string          `json:"destinationPort"`
	Weight            float64         `json:"weight"`
	Volume            *float64        `json:"volume"`
	Value             decimal.Decimal `json:"value"`
	Currency          string          `json:"currency"`
	TotalCost         decimal.Decimal `json:"totalCost"`
	AdditionalCharges decimal.Decimal `json:"additionalCharges"`
	AdminAmountPaid   decimal.Decimal `json:"adminAmountPaid"`
	Status            string          `json:"status"`
	ContainerNumber   string          `json:"containerNumber"`
	BLNumber          string          `json:"blNumber"`
	BookingNumber     string          `json:"bookingNumber"`
	EnableTracking    *bool           `json:"enableTracking"`
	VesselName        string          `json:"vesselName"`
	VesselMMSI        string          `json:"vesselMMSI"`
	VesselIMO         string          `json:"vesselIMO"`
	CurrentLocation   string          `json:"currentLocation"`
	Notes             string          `json:"notes"`
}

// POST /api/shipments
func (h *Handlers) CreateShipment(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req createShipmentRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	sh, err := h.shipmentSvc(c).CreateShipment(c.Request.Context(), services.CreateShipmentInput{
		TrackingNumber:    req.TrackingNumber,
		ClientID:          req.ClientID,
		OriginPort:        req.OriginPort,
		DestinationPort:   req.DestinationPort,
		Weight:            req.Weight,
		Volume:            req.Volume,
		Value:             req.Value,
		Currency:          req.Currency,
		TotalCost:         req.TotalCost,
		AdditionalCharges: req.AdditionalCharges,
		AdminAmountPaid:   req.AdminAmountPaid,
		Status:            req.Status,
		ContainerNumber:   req.ContainerNumber,
		BLNumber:          req.BLNumber,
		BookingNumber:     req.BookingNumber,
		EnableTracking:    req.EnableTracking,
		VesselName:        req.VesselName,
		VesselMMSI:        req.VesselMMSI,
		VesselIMO:         req.VesselIMO,
		CurrentLocation:   req.CurrentLocation,
		Notes:             req.Notes,
	}, actor)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	setVersionHeader(c, sh.Version)
	c.JSON(http.StatusCreated, gin.H{"shipment": sh})
}

// GET /api/shipments?clientId=&status=&q=&page=&limit=
func (h *Handlers) ListShipments(c *gin.Context) {
	f := repositories.ShipmentFilter{Query: c.Query("q")}
	if raw := c.Query("clientId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			respondError(c, http.StatusBadRequest, "validation_error", "clientId: invalid id", gin.H{"field": "clientId"})
			return
		}
		f.ClientID = id
	}
	if raw := c.Query("status"); raw != "" {
		st, err := models.ParseShipmentStatus(raw)
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		f.Status = st
	}
	list, page, err := h.shipmentSvc(c).ListShipments(c.Request.Context(), f, pagination(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shipments": list, "pagination": page})
}

// GET /api/shipments/:id
func (h *Handlers) GetShipment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	sh, err := h.shipmentSvc(c).GetShipment(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	setVersionHeader(c, sh.Version)
	c.JSON(http.StatusOK, gin.H{"shipment": sh})
}

// DELETE /api/shipments/:id
func (h *Handlers) DeleteShipment(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.shipmentSvc(c).DeleteShipment(c.Request.Context(), id, actor); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true, "id": id})
}

type statusRequest struct {
	Status  string `json:"status"`
	Notes   string `json:"notes"`
	Version *int64 `json:"version"`
}

// PUT /api/shipments/:id/status
func (h *Handlers) UpdateStatus(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	version, ok := expectedVersion(c, req.Version)
	if !ok {
		return
	}
	sh, err := h.shipmentSvc(c).SetStatus(c.Request.Context(), id, req.Status, req.Notes, version, actor)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	setVersionHeader(c, sh.Version)
	c.JSON(http.StatusOK, gin.H{"shipment": sh})
}

type locationRequest struct {
	Location string `json:"location"`
	Notes    string `json:"notes"`
	Version  *int64 `json:"version"`
}

// PUT /api/shipments/:id/location
func (h *Handlers) UpdateLocation(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req locationRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	version, ok := expectedVersion(c, req.Version)
	if !ok {
		return
	}
	sh, err := h.shipmentSvc(c).SetLocation(c.Request.Context(), id, req.Location, req.Notes, version, actor)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	setVersionHeader(c, sh.Version)
	c.JSON(http.StatusOK, gin.H{"shipment": sh})
}

type paymentStatusRequest struct {
	PaymentStatus string `json:"paymentStatus"`
	Override      bool   `json:"override"`
	Notes         string `json:"notes"`
	Version       *int64 `json:"version"`
}

// PATCH /api/shipments/:id/payment-status
func (h *Handlers) UpdatePaymentStatus(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req paymentStatusRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	version, ok := expectedVersion(c, req.Version)
	if !ok {
		return
	}
	res, err := h.shipmentSvc(c).SetPaymentStatus(c.Request.Context(), id, services.PaymentStatusInput{
		PaymentStatus: req.PaymentStatus,
		Override:      req.Override,
		Notes:         req.Notes,
		Version:       version,
	}, actor)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	setVersionHeader(c, res.Shipment.Version)
	c.JSON(http.StatusOK, res)
}

type warehouseArrivalRequest struct {
	WarehouseLocation string `json:"warehouseLocation"`
	Condition         string `json:"condition"`
	Notes             string `json:"notes"`
	DisableTracking   bool   `json:"disableTracking"`
	Version           *int64 `json:"version"`
}

// POST /api/shipments/:id/warehouse-arrival
func (h *Handlers) WarehouseArrival(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req warehouseArrivalRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	version, ok := expectedVersion(c, req.Version)
	if !ok {
		return
	}
	sh, err := h.shipmentSvc(c).MarkWarehouseArrival(c.Request.Context(), id, services.WarehouseArrivalInput{
		WarehouseLocation: req.WarehouseLocation,
		Condition:         req.Condition,
		Notes:             req.Notes,
		DisableTracking:   req.DisableTracking,
		Version:           version,
	}, actor)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	setVersionHeader(c, sh.Version)
	c.JSON(http.StatusOK, gin.H{"shipment": sh})
}

// GET /api/shipments/:id/update-history?page=&limit=
func (h *Handlers) UpdateHistory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	updates, page, err := h.shipmentSvc(c).ListHistory(c.Request.Context(), id, pagination(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updates": updates, "pagination": page})
}

// GET /api/shipments/:id/statement.pdf
func (h *Handlers) ShipmentStatementPDF(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	pdfBytes, filename, err := h.docsSvc(c).GenerateStatement(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}
