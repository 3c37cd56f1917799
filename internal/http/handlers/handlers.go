package handlers

import (
	"shiptrack/internal/http/middleware"
	"shiptrack/internal/services"

	"github.com/gin-gonic/gin"
)

// Handlers holds service templates; each request works on a copy tagged
// with its request id.
type Handlers struct {
	Shipments services.ShipmentService
	Payments  services.PaymentService
	Tracking  *services.TrackingService
	Auth      services.AuthService
	Clients   services.ClientService
	Docs      services.DocsService
}

func (h *Handlers) shipmentSvc(c *gin.Context) services.ShipmentService {
	s := h.Shipments
	s.RequestID = middleware.GetRequestID(c)
	return s
}

func (h *Handlers) paymentSvc(c *gin.Context) services.PaymentService {
	s := h.Payments
	s.RequestID = middleware.GetRequestID(c)
	return s
}

func (h *Handlers) authSvc(c *gin.Context) services.AuthService {
	s := h.Auth
	s.RequestID = middleware.GetRequestID(c)
	return s
}

func (h *Handlers) clientSvc(c *gin.Context) services.ClientService {
	s := h.Clients
	s.RequestID = middleware.GetRequestID(c)
	return s
}

func (h *Handlers) docsSvc(c *gin.Context) services.DocsService {
	s := h.Docs
	s.RequestID = middleware.GetRequestID(c)
	return s
}
