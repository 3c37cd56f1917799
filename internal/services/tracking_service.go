package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"shiptrack/internal/domain"
	"shiptrack/internal/domain/models"
	"shiptrack/internal/monitoring"
	"shiptrack/internal/utils"

	"golang.org/x/sync/singleflight"
)

const (
	DefaultTrackingTimeout  = 5 * time.Second
	DefaultTrackingCooldown = 30 * time.Second
)

// TrackingProvider is an external container/vessel tracking API.
type TrackingProvider interface {
	Name() string
	Track(ctx context.Context, q models.TrackingQuery) (models.TrackingData, models.RateLimit, error)
}

// TrackingService wraps the provider with a hard timeout and a degraded
// state. Provider failures never surface as errors: callers get a result
// with Success=false. Only malformed queries return an error.
type TrackingService struct {
	Provider TrackingProvider
	Timeout  time.Duration
	// Cooldown is how long the provider is skipped after a failure.
	Cooldown time.Duration
	MockMode bool

	now func() time.Time

	sf singleflight.Group

	mu          sync.RWMutex
	degraded    bool
	failedAt    time.Time
	lastError   string
	lastChecked time.Time
	rateLimit   models.RateLimit
}

func NewTrackingService(p TrackingProvider, timeout time.Duration, mockMode bool) *TrackingService {
	if timeout <= 0 {
		timeout = DefaultTrackingTimeout
	}
	return &TrackingService{
		Provider: p,
		Timeout:  timeout,
		Cooldown: DefaultTrackingCooldown,
		MockMode: mockMode,
		now:      time.Now,
	}
}

func (s *TrackingService) clock() time.Time {
	if s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}

func (s *TrackingService) providerName() string {
	if s.Provider == nil {
		return "mock"
	}
	return s.Provider.Name()
}

// servesMock is true when no provider is wired or mock mode was requested.
func (s *TrackingService) servesMock() bool {
	return s.MockMode || s.Provider == nil
}

type trackOutcome struct {
	data    models.TrackingData
	err     error
	message string
}

// Track looks one identifier up at the provider. Concurrent lookups of the
// same identifier share one provider call, which runs on its own deadline so
// a caller that goes away neither aborts it nor marks the provider degraded.
func (s *TrackingService) Track(ctx context.Context, q models.TrackingQuery) (models.TrackingResult, error) {
	q, err := q.Validate()
	if err != nil {
		return models.TrackingResult{}, err
	}
	provider := s.providerName()

	if s.servesMock() {
		monitoring.TrackingRequestsTotal.WithLabelValues(provider, "mock").Inc()
		return s.success(q, mockTrackingData(q, s.clock()), true), nil
	}

	if until, cooling := s.coolingDown(); cooling {
		monitoring.TrackingRequestsTotal.WithLabelValues(provider, "skipped").Inc()
		return degradedResult(q, fmt.Sprintf("tracking provider degraded, retry after %s", utils.FormatDateTime(until))), nil
	}

	timeout := s.timeout()
	ch := s.sf.DoChan(string(q.Type)+":"+q.Value, func() (any, error) {
		return s.callProvider(ctx, q, timeout), nil
	})

	// Bounds callers if a provider ignores its context.
	stuck := time.NewTimer(timeout + time.Second)
	defer stuck.Stop()

	select {
	case res := <-ch:
		out, _ := res.Val.(trackOutcome)
		if out.err != nil {
			return degradedResult(q, out.message), nil
		}
		return s.success(q, out.data, false), nil

	case <-ctx.Done():
		monitoring.TrackingRequestsTotal.WithLabelValues(provider, "abandoned").Inc()
		return degradedResult(q, "tracking lookup abandoned: "+ctx.Err().Error()), nil

	case <-stuck.C:
		monitoring.TrackingRequestsTotal.WithLabelValues(provider, "timeout").Inc()
		return degradedResult(q, fmt.Sprintf("tracking provider did not answer within %s", timeout)), nil
	}
}

func (s *TrackingService) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return DefaultTrackingTimeout
}

// callProvider is the shared half of Track. Only the provider's own error or
// its deadline changes the degraded state.
func (s *TrackingService) callProvider(ctx context.Context, q models.TrackingQuery, timeout time.Duration) trackOutcome {
	provider := s.providerName()
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	start := time.Now()
	data, rl, err := s.Provider.Track(pctx, q)
	monitoring.TrackingLatency.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	if err != nil {
		outcome, msg := "error", "tracking provider unavailable: "+err.Error()
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(pctx.Err(), context.DeadlineExceeded) {
			outcome, msg = "timeout", fmt.Sprintf("tracking provider did not answer within %s", timeout)
		}
		monitoring.TrackingRequestsTotal.WithLabelValues(provider, outcome).Inc()
		s.markFailure(ctx, err, rl)
		return trackOutcome{err: err, message: msg}
	}
	monitoring.TrackingRequestsTotal.WithLabelValues(provider, "ok").Inc()
	s.markSuccess(ctx, rl)
	return trackOutcome{data: data}
}

// TrackFirst accepts the three query params and uses the first non-empty
// one in container, bl, booking order.
func (s *TrackingService) TrackFirst(ctx context.Context, container, bl, booking string) (models.TrackingResult, error) {
	q, ok := models.FirstIdentifier(container, bl, booking)
	if !ok {
		return models.TrackingResult{}, domain.ValidationError{Field: "container", Msg: "one of container, bl or booking is required"}
	}
	return s.Track(ctx, q)
}

// Reconcile merges a stored shipment with its live tracking. Shipments with
// tracking disabled or without identifiers never reach the provider.
func (s *TrackingService) Reconcile(ctx context.Context, sh models.Shipment) models.Reconciliation {
	rec := models.Reconciliation{Shipment: sh, StatusMatches: true}
	if !sh.EnableTracking {
		rec.Tracking = models.TrackingResult{Skipped: true, Message: "tracking disabled for this shipment"}
		return rec
	}
	q, ok := models.FirstIdentifier(sh.ContainerNumber, sh.BLNumber, sh.BookingNumber)
	if !ok {
		rec.Tracking = models.TrackingResult{Skipped: true, Message: "shipment has no tracking identifier"}
		return rec
	}

	res, err := s.Track(ctx, q)
	if err != nil {
		rec.Tracking = models.TrackingResult{Message: err.Error(), Query: &q}
		return rec
	}
	rec.Tracking = res
	if res.SuggestedStatus != "" {
		rec.StatusMatches = res.SuggestedStatus == sh.Status
	}
	return rec
}

// Health reports provider availability. MockMode is true whenever callers
// are not getting live data: mock configured, no provider, or degraded.
func (s *TrackingService) Health() models.ProviderHealth {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := models.ProviderHealth{
		Status:     "ok",
		Provider:   s.providerName(),
		Configured: s.Provider != nil,
		RateLimit:  s.rateLimit,
		TimeoutMs:  s.timeout().Milliseconds(),
		LastError:  s.lastError,
	}
	switch {
	case s.servesMock():
		h.Status = "mock"
		h.MockMode = true
	case s.degraded:
		h.Status = "degraded"
		h.MockMode = true
	}
	if !s.lastChecked.IsZero() {
		t := s.lastChecked
		h.LastCheckedAt = &t
	}
	return h
}

func (s *TrackingService) coolingDown() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.degraded || s.Cooldown <= 0 {
		return time.Time{}, false
	}
	until := s.failedAt.Add(s.Cooldown)
	return until, s.clock().Before(until)
}

func (s *TrackingService) markFailure(ctx context.Context, err error, rl models.RateLimit) {
	s.mu.Lock()
	s.degraded = true
	s.failedAt = s.clock()
	s.lastChecked = s.failedAt
	s.lastError = err.Error()
	if rl.Limit > 0 {
		s.rateLimit = rl
	}
	s.mu.Unlock()

	monitoring.TrackingDegraded.Set(1)
	utils.LogEvent(domain.RequestIDFrom(ctx), "tracking", "provider_failure", err.Error())
}

func (s *TrackingService) markSuccess(ctx context.Context, rl models.RateLimit) {
	s.mu.Lock()
	wasDegraded := s.degraded
	s.degraded = false
	s.lastError = ""
	s.lastChecked = s.clock()
	if rl.Limit > 0 {
		s.rateLimit = rl
	}
	s.mu.Unlock()

	monitoring.TrackingDegraded.Set(0)
	if wasDegraded {
		utils.LogEvent(domain.RequestIDFrom(ctx), "tracking", "provider_recovered", s.providerName())
	}
}

func (s *TrackingService) success(q models.TrackingQuery, data models.TrackingData, mock bool) models.TrackingResult {
	data.SortMilestones()
	res := models.TrackingResult{Success: true, Data: &data, Mock: mock, Query: &q}
	if st, ok := models.SuggestStatus(data); ok {
		res.SuggestedStatus = st
	}
	return res
}

func degradedResult(q models.TrackingQuery, msg string) models.TrackingResult {
	return models.TrackingResult{Success: false, Message: msg, Query: &q}
}

// mockTrackingData builds a stable in-transit voyage for the identifier.
func mockTrackingData(q models.TrackingQuery, now time.Time) models.TrackingData {
	day := 24 * time.Hour
	base := now.Truncate(day)
	d := models.TrackingData{
		VesselName:      "MSC AURORA",
		VesselIMO:       "9839131",
		VesselMMSI:      "636019825",
		Status:          "IN_TRANSIT",
		PortOfLoading:   "Shanghai",
		PortOfDischarge: "Misurata",
		Milestones: []models.Milestone{
			{Event: "Gate in at origin terminal", Location: "Shanghai", Date: base.Add(-9 * day), Status: "completed"},
			{Event: "Loaded on vessel", Location: "Shanghai", Date: base.Add(-8 * day), Status: "completed"},
			{Event: "Vessel departed", Location: "Shanghai", Date: base.Add(-7 * day), Status: "completed"},
		},
		Location: &models.GeoPoint{Lat: 12.7855, Lon: 45.0187, Timestamp: base},
	}
	eta := base.Add(12 * day)
	d.ETA = &eta
	switch q.Type {
	case models.IdentifierContainer:
		d.ContainerNumber = q.Value
	case models.IdentifierBL:
		d.BLNumber = q.Value
		d.ContainerNumber = "MSCU" + mockDigits(q.Value)
	case models.IdentifierBooking:
		d.BookingNumber = q.Value
		d.ContainerNumber = "MSCU" + mockDigits(q.Value)
	}
	return d
}

func mockDigits(seed string) string {
	var b strings.Builder
	sum := 0
	for _, r := range seed {
		sum = (sum*31 + int(r)) % 10000019
	}
	for i := 0; i < 7; i++ {
		b.WriteByte(byte('0' + sum%10))
		sum = sum/10 + 7
	}
	return b.String()
}
