package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shiptrack_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ResponseTimeHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shiptrack_http_response_time_seconds",
			Help:    "Histogram of response times",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// TrackingRequestsTotal counts provider lookups by outcome: ok, error, timeout, mock.
	TrackingRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shiptrack_tracking_requests_total",
			Help: "Tracking provider lookups by outcome",
		},
		[]string{"provider", "outcome"},
	)

	TrackingLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shiptrack_tracking_latency_seconds",
			Help:    "Tracking provider call latency",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"provider"},
	)

	TrackingDegraded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shiptrack_tracking_degraded",
			Help: "1 while the tracking provider is considered degraded",
		},
	)

	PaymentsRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shiptrack_payments_recorded_total",
			Help: "Payments appended to shipment ledgers",
		},
		[]string{"currency"},
	)

	ShipmentUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shiptrack_shipment_updates_total",
			Help: "Shipment history entries written, by update type",
		},
		[]string{"type"},
	)
)
