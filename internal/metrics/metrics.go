// Package metrics exposes Prometheus instruments for the capture loop.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GriffinCanCode/minimap-tracker/internal/resilience"
)

var (
	Cycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minimap_cycles_total",
		Help: "Capture cycles by outcome",
	}, []string{"outcome"})
	OCRAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minimap_ocr_attempts_total",
		Help: "OCR calls by preprocessing tier and result",
	}, []string{"tier", "result"})
	CycleLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "minimap_cycle_latency_seconds",
		Help:    "Duration of one capture cycle",
		Buckets: prometheus.DefBuckets,
	})
	OCRLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "minimap_ocr_latency_seconds",
		Help:    "Duration of a single OCR call",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	})
	InvalidStreak = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "minimap_invalid_streak",
		Help: "Consecutive rejected jumps held by the validator",
	})
	BreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "minimap_breaker_state",
		Help: "Circuit breaker state (0 closed, 1 open, 2 half-open)",
	}, []string{"breaker"})
	StoreErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "minimap_store_errors_total",
		Help: "Errors writing fixes to Redis",
	})
	WSClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "minimap_ws_clients",
		Help: "Connected websocket clients",
	})
)

// ObserveCycle records one cycle's outcome and duration.
func ObserveCycle(outcome string, start time.Time) {
	Cycles.WithLabelValues(outcome).Inc()
	CycleLatency.Observe(time.Since(start).Seconds())
}

// ObserveOCR records one OCR attempt.
func ObserveOCR(tier, result string, start time.Time) {
	OCRAttempts.WithLabelValues(tier, result).Inc()
	OCRLatency.Observe(time.Since(start).Seconds())
}

// BreakerHook reports breaker transitions; pass it to Breaker.WithHook.
func BreakerHook(name string, _, to resilience.State) {
	BreakerState.WithLabelValues(name).Set(float64(to))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
