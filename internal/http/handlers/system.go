package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	intconfig "shiptrack/internal/config"
	"shiptrack/internal/domain/models"

	"github.com/gin-gonic/gin"
)

var (
	routerMu sync.RWMutex
	router   *gin.Engine
)

// SetRouter stores the active gin engine for later inspection (e.g., /api/routes).
func SetRouter(r *gin.Engine) {
	routerMu.Lock()
	defer routerMu.Unlock()
	router = r
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "shiptrack backend running", "time": time.Now().UTC()})
}

func DBCheck(c *gin.Context) {
	if intconfig.DB == nil {
		respondError(c, http.StatusInternalServerError, "db_unavailable", "database not connected", nil)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := intconfig.PingDB(ctx); err != nil {
		respondError(c, http.StatusInternalServerError, "db_unavailable", "database ping failed: "+err.Error(), nil)
		return
	}
	var shipments int
	if err := intconfig.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM shipments").Scan(&shipments); err != nil {
		respondError(c, http.StatusInternalServerError, "db_query_failed", "database query failed: "+err.Error(), nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "database connection OK", "shipments_in_db": shipments})
}

// Statuses lists the shipment and payment enums with their display labels.
func Statuses(c *gin.Context) {
	shipment := make([]gin.H, 0, len(models.ShipmentStatuses()))
	for _, st := range models.ShipmentStatuses() {
		shipment = append(shipment, gin.H{
			"value":       st,
			"label":       st.Label(),
			"order":       st.Order(),
			"terminal":    st.IsTerminal(),
			"exceptional": st.IsExceptional(),
		})
	}
	payment := []gin.H{}
	for _, p := range []models.PaymentStatus{models.PaymentUnpaid, models.PaymentPartial, models.PaymentPaid} {
		payment = append(payment, gin.H{"value": p, "label": p.Label()})
	}
	c.JSON(http.StatusOK, gin.H{"shipmentStatuses": shipment, "paymentStatuses": payment})
}

func Routes(c *gin.Context) {
	routerMu.RLock()
	r := router
	routerMu.RUnlock()
	if r == nil {
		respondError(c, http.StatusServiceUnavailable, "not_ready", "router not ready", nil)
		return
	}

	routes := r.Routes()
	out := make([]gin.H, 0, len(routes))
	for _, rt := range routes {
		out = append(out, gin.H{
			"method":  rt.Method,
			"path":    rt.Path,
			"handler": rt.Handler,
		})
	}
	c.JSON(http.StatusOK, gin.H{"routes": out})
}
