package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RPCCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "booking_gateway",
		Subsystem: "rpc",
		Name:      "calls_total",
		Help:      "Remote calls issued, by model, method and outcome.",
	}, []string{"model", "method", "outcome"})

	RPCDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "booking_gateway",
		Subsystem: "rpc",
		Name:      "call_duration_seconds",
		Help:      "Remote call latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"model", "method"})

	SessionRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "booking_gateway",
		Subsystem: "session",
		Name:      "refreshes_total",
		Help:      "Session refreshes triggered, by privilege level and outcome.",
	}, []string{"level", "outcome"})

	BookingAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "booking_gateway",
		Subsystem: "booking",
		Name:      "attempts_total",
		Help:      "Booking attempts, by result code.",
	}, []string{"result"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "booking_gateway",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Inbound HTTP requests, by route, method and status.",
	}, []string{"route", "method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "booking_gateway",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Inbound HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})
)
