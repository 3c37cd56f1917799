package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"shiptrack/internal/domain"
	"shiptrack/internal/domain/models"
	"shiptrack/internal/http/middleware"
	"shiptrack/internal/repositories"
	"shiptrack/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeShipments struct {
	items   map[int64]models.Shipment
	updates []models.ShipmentUpdate
}

func (f *fakeShipments) Create(_ context.Context, s models.Shipment) (models.Shipment, error) {
	s.ID = int64(len(f.items) + 1)
	s.Version = 1
	f.items[s.ID] = s
	return s, nil
}

func (f *fakeShipments) GetByID(_ context.Context, id int64) (models.Shipment, error) {
	s, ok := f.items[id]
	if !ok {
		return models.Shipment{}, domain.NotFoundError{Resource: "shipment"}
	}
	return s, nil
}

func (f *fakeShipments) GetByTrackingNumber(_ context.Context, tn string) (models.Shipment, error) {
	for _, s := range f.items {
		if s.TrackingNumber == tn {
			return s, nil
		}
	}
	return models.Shipment{}, domain.NotFoundError{Resource: "shipment"}
}

func (f *fakeShipments) List(_ context.Context, flt repositories.ShipmentFilter, _ domain.Pagination) ([]models.Shipment, int, error) {
	out := []models.Shipment{}
	for _, s := range f.items {
		if flt.ClientID == 0 || s.ClientID == flt.ClientID {
			out = append(out, s)
		}
	}
	return out, len(out), nil
}

func (f *fakeShipments) Delete(_ context.Context, id int64) error {
	delete(f.items, id)
	return nil
}

func (f *fakeShipments) Mutate(_ context.Context, id, version int64, fn repositories.MutateFunc) (models.Shipment, models.ShipmentUpdate, error) {
	s, ok := f.items[id]
	if !ok {
		return models.Shipment{}, models.ShipmentUpdate{}, domain.NotFoundError{Resource: "shipment"}
	}
	if version > 0 && version != s.Version {
		return models.Shipment{}, models.ShipmentUpdate{}, domain.ConflictError{Resource: "shipment", Msg: "stale version"}
	}
	upd, err := fn(&s, decimal.Zero)
	if err != nil {
		return models.Shipment{}, models.ShipmentUpdate{}, err
	}
	s.Version++
	f.items[id] = s
	upd.ID = int64(len(f.updates) + 1)
	upd.ShipmentID = id
	f.updates = append(f.updates, upd)
	return s, upd, nil
}

func (f *fakeShipments) ListUpdates(_ context.Context, id int64, _ domain.Pagination) ([]models.ShipmentUpdate, int, error) {
	out := []models.ShipmentUpdate{}
	for _, u := range f.updates {
		if u.ShipmentID == id {
			out = append(out, u)
		}
	}
	return out, len(out), nil
}

type fakeParser map[string]domain.RequestContext

func (f fakeParser) ParseToken(raw string) (domain.RequestContext, error) {
	rc, ok := f[raw]
	if !ok {
		return domain.RequestContext{}, domain.UnauthorizedError{Msg: "invalid token"}
	}
	return rc, nil
}

var testTokens = fakeParser{
	"admin-token":    {UserID: 1, Role: domain.RoleAdmin},
	"customer-token": {UserID: 2, Role: domain.RoleCustomer, ClientID: 7},
}

func newTestEngine(t *testing.T, provider services.TrackingProvider) (*gin.Engine, *fakeShipments) {
	t.Helper()
	store := &fakeShipments{items: map[int64]models.Shipment{
		1: {
			ID: 1, TrackingNumber: "GH00000001", ClientID: 7, Status: models.StatusInTransit,
			PaymentStatus: models.PaymentUnpaid, Currency: models.CurrencyUSD, TotalCost: decimal.NewFromInt(1000),
			ContainerNumber: "MSKU1234567", EnableTracking: true, Version: 3,
		},
		2: {ID: 2, TrackingNumber: "GH00000002", ClientID: 8, Status: models.StatusPending, Version: 1},
	}}
	hs := &Handlers{
		Shipments: services.ShipmentService{Shipments: store},
		Tracking:  services.NewTrackingService(provider, 50*time.Millisecond, false),
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	api := r.Group("/api")
	api.GET("/shipments/track/:trackingNumber", hs.PublicTrack)
	tracking := api.Group("/shipsgo-tracking", middleware.RequireAuth(testTokens))
	tracking.GET("/track", hs.Track)
	tracking.GET("/health", hs.TrackingHealth)
	admin := api.Group("/shipments", middleware.RequireAuth(testTokens), middleware.RequireRoles(domain.RoleAdmin))
	admin.GET("/:id", hs.GetShipment)
	admin.PUT("/:id/status", hs.UpdateStatus)
	admin.POST("/:id/warehouse-arrival", hs.WarehouseArrival)
	admin.GET("/:id/update-history", hs.UpdateHistory)
	admin.GET("/:id/tracking", hs.ShipmentTracking)
	return r, store
}

func doRequest(r http.Handler, method, path, token, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid json %q: %v", w.Body.String(), err)
	}
	return out
}

func TestAuthAndRoles(t *testing.T) {
	r, _ := newTestEngine(t, nil)

	if w := doRequest(r, http.MethodGet, "/api/shipments/1", "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	if w := doRequest(r, http.MethodGet, "/api/shipments/1", "bogus", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", w.Code)
	}
	if w := doRequest(r, http.MethodGet, "/api/shipments/1", "customer-token", ""); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer, got %d", w.Code)
	}
	w := doRequest(r, http.MethodGet, "/api/shipments/1", "admin-token", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d: %s", w.Code, w.Body.String())
	}
	if w.Header().Get("ETag") != `"3"` {
		t.Fatalf("expected version etag, got %q", w.Header().Get("ETag"))
	}
}

func TestUpdateStatusEndpoint(t *testing.T) {
	r, store := newTestEngine(t, nil)

	w := doRequest(r, http.MethodPut, "/api/shipments/1/status", "admin-token", `{"status":"at_port","notes":"berthed"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if store.items[1].Status != models.StatusAtPort || len(store.updates) != 1 {
		t.Fatalf("status not stored with history: %+v", store.items[1])
	}

	w = doRequest(r, http.MethodPut, "/api/shipments/1/status", "admin-token", `{"status":"teleported"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", w.Code)
	}
	if body := decode(t, w); body["code"] != "validation_error" {
		t.Fatalf("unexpected error body: %v", body)
	}

	if w := doRequest(r, http.MethodPut, "/api/shipments/99/status", "admin-token", `{"status":"shipped"}`); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if w := doRequest(r, http.MethodPut, "/api/shipments/abc/status", "admin-token", `{"status":"shipped"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", w.Code)
	}
}

func TestUpdateStatusVersionConflict(t *testing.T) {
	r, _ := newTestEngine(t, nil)

	if w := doRequest(r, http.MethodPut, "/api/shipments/1/status", "admin-token", `{"status":"shipped"}`, "If-Match", `"2"`); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for stale If-Match, got %d", w.Code)
	}
	if w := doRequest(r, http.MethodPut, "/api/shipments/1/status", "admin-token", `{"status":"shipped","version":3}`); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for current version, got %d: %s", w.Code, w.Body.String())
	}
	if w := doRequest(r, http.MethodPut, "/api/shipments/1/status", "admin-token", `{"status":"shipped"}`, "If-Match", "abc"); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed If-Match, got %d", w.Code)
	}
}

type stalledProvider struct{}

func (stalledProvider) Name() string { return "stalled" }

func (stalledProvider) Track(ctx context.Context, _ models.TrackingQuery) (models.TrackingData, models.RateLimit, error) {
	<-ctx.Done()
	return models.TrackingData{}, models.RateLimit{}, ctx.Err()
}

func TestTrackDegradedIsOK(t *testing.T) {
	r, _ := newTestEngine(t, stalledProvider{})

	w := doRequest(r, http.MethodGet, "/api/shipsgo-tracking/track?container=MSKU1234567", "admin-token", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for degraded provider, got %d", w.Code)
	}
	if body := decode(t, w); body["success"] != false || body["message"] == "" {
		t.Fatalf("expected success=false with message, got %v", body)
	}

	w = doRequest(r, http.MethodGet, "/api/shipsgo-tracking/health", "customer-token", "")
	if body := decode(t, w); w.Code != http.StatusOK || body["mockMode"] != true {
		t.Fatalf("expected mockMode=true after failure, got %d %v", w.Code, body)
	}

	if w := doRequest(r, http.MethodGet, "/api/shipsgo-tracking/track?container=AB1234567", "admin-token", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed container, got %d", w.Code)
	}
}

func TestWarehouseArrivalThenTrackingSkipped(t *testing.T) {
	r, store := newTestEngine(t, stalledProvider{})

	w := doRequest(r, http.MethodPost, "/api/shipments/1/warehouse-arrival", "admin-token",
		`{"warehouseLocation":"Misurata B","condition":"good","disableTracking":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if sh := store.items[1]; sh.Status != models.StatusDelivered || sh.EnableTracking {
		t.Fatalf("unexpected shipment after arrival: %+v", sh)
	}

	start := time.Now()
	w = doRequest(r, http.MethodGet, "/api/shipments/1/tracking", "admin-token", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	tracking, _ := decode(t, w)["tracking"].(map[string]any)
	if tracking["skipped"] != true {
		t.Fatalf("expected skipped tracking, got %v", tracking)
	}
	if time.Since(start) > 40*time.Millisecond {
		t.Fatalf("reconciliation waited on the provider")
	}

	w = doRequest(r, http.MethodGet, "/api/shipments/1/update-history", "admin-token", "")
	updates, _ := decode(t, w)["updates"].([]any)
	if len(updates) != 1 {
		t.Fatalf("expected one history entry, got %d", len(updates))
	}
}

func TestPublicTrack(t *testing.T) {
	r, _ := newTestEngine(t, nil)

	w := doRequest(r, http.MethodGet, "/api/shipments/track/gh00000001", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	sh, _ := body["shipment"].(map[string]any)
	if sh["trackingNumber"] != "GH00000001" {
		t.Fatalf("unexpected shipment: %v", sh)
	}
	if _, leaked := sh["totalCost"]; leaked {
		t.Fatalf("public view must not expose costs")
	}
	tracking, _ := body["tracking"].(map[string]any)
	if tracking["mock"] != true {
		t.Fatalf("expected mock tracking without provider, got %v", tracking)
	}

	if w := doRequest(r, http.MethodGet, "/api/shipments/track/GH404", "", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestStatusesCatalogue(t *testing.T) {
	r := gin.New()
	r.GET("/api/statuses", Statuses)

	w := doRequest(r, http.MethodGet, "/api/statuses", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decode(t, w)
	list, _ := body["shipmentStatuses"].([]any)
	if len(list) != len(models.ShipmentStatuses()) {
		t.Fatalf("expected every status, got %d", len(list))
	}
	last, _ := list[len(list)-1].(map[string]any)
	if last["value"] != "cancelled" || last["terminal"] != true || last["exceptional"] != true {
		t.Fatalf("unexpected cancelled entry: %v", last)
	}
}
