package api

import (
	"log"
	stdhttp "net/http"

	intconfig "shiptrack/internal/config"
	"shiptrack/internal/domain"
	h "shiptrack/internal/http/handlers"
	"shiptrack/internal/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(env intconfig.Env, hs *h.Handlers) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), middleware.Metrics(), gin.Recovery(), middleware.CORS(env.CORSAllowedOrigins))

	if err := r.SetTrustedProxies(nil); err != nil {
		log.Printf("warning: failed to set trusted proxies: %v", err)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	requireAuth := middleware.RequireAuth(hs.Auth)
	adminOnly := middleware.RequireRoles(domain.RoleAdmin)
	customerOnly := middleware.RequireRoles(domain.RoleCustomer)

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/db-check", h.DBCheck)
		api.GET("/routes", h.Routes)
		api.GET("/statuses", h.Statuses)

		// Auth
		auth := api.Group("/auth")
		auth.POST("/login", hs.Login)
		auth.GET("/me", requireAuth, hs.Me)

		// Public tracking by number
		api.GET("/shipments/track/:trackingNumber", hs.PublicTrack)

		// Provider lookups
		tracking := api.Group("/shipsgo-tracking", requireAuth)
		tracking.GET("/track", hs.Track)
		tracking.GET("/health", hs.TrackingHealth)

		// Users
		users := api.Group("/users", requireAuth, adminOnly)
		users.POST("", hs.CreateUser)

		// Clients
		clients := api.Group("/clients", requireAuth, adminOnly)
		clients.POST("", hs.CreateClient)
		clients.GET("", hs.ListClients)
		clients.GET("/:id", hs.GetClient)

		// Shipments (admin)
		shipments := api.Group("/shipments", requireAuth, adminOnly)
		shipments.POST("", hs.CreateShipment)
		shipments.GET("", hs.ListShipments)
		shipments.GET("/:id", hs.GetShipment)
		shipments.DELETE("/:id", hs.DeleteShipment)
		shipments.PUT("/:id/status", hs.UpdateStatus)
		shipments.PUT("/:id/location", hs.UpdateLocation)
		shipments.PATCH("/:id/payment-status", hs.UpdatePaymentStatus)
		shipments.POST("/:id/warehouse-arrival", hs.WarehouseArrival)
		shipments.GET("/:id/update-history", hs.UpdateHistory)
		shipments.POST("/:id/payments", hs.AddPayment)
		shipments.GET("/:id/payments", hs.ListPayments)
		shipments.GET("/:id/payment-summary", hs.PaymentSummary)
		shipments.GET("/:id/tracking", hs.ShipmentTracking)
		shipments.POST("/:id/apply-tracking-status", hs.ApplyTrackingStatus)
		shipments.GET("/:id/statement.pdf", hs.ShipmentStatementPDF)

		// Customer portal
		portal := api.Group("/portal", requireAuth, customerOnly)
		portal.GET("/shipments", hs.PortalShipments)
		portal.GET("/shipments/:id", hs.PortalShipment)
		portal.GET("/shipments/:id/payments", hs.PortalPayments)
		portal.GET("/shipments/:id/statement.pdf", hs.PortalStatementPDF)
	}

	h.SetRouter(r)
	return r
}
