// Package metrics collects Prometheus metrics for the API and exposes them
// over HTTP.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the set of measurements taken by the dispatcher and the
// operation handlers.
type Recorder interface {
	RecordRequest(operation string, status int)
	RecordStoreError(operation string)
	RecordSessionIssued()
}

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	requests       *prometheus.CounterVec
	storeErrors    *prometheus.CounterVec
	sessionsIssued prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "calendar_requests_total",
			Help: "API requests by operation and response status.",
		}, []string{"operation", "status"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "calendar_store_errors_total",
			Help: "Store errors converted into failed outcomes, by operation.",
		}, []string{"operation"}),
		sessionsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "calendar_sessions_issued_total",
			Help: "Session tokens issued by successful logins.",
		}),
	}

	reg.MustRegister(c.requests, c.storeErrors, c.sessionsIssued)
	return c
}

// RecordRequest counts a finished request.
func (c *Collector) RecordRequest(operation string, status int) {
	c.requests.WithLabelValues(operation, strconv.Itoa(status)).Inc()
}

// RecordStoreError counts a store failure inside a handler.
func (c *Collector) RecordStoreError(operation string) {
	c.storeErrors.WithLabelValues(operation).Inc()
}

// RecordSessionIssued counts a new session token.
func (c *Collector) RecordSessionIssued() {
	c.sessionsIssued.Inc()
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Nop discards all measurements.
type Nop struct{}

// RecordRequest implements Recorder.
func (Nop) RecordRequest(string, int) {}

// RecordStoreError implements Recorder.
func (Nop) RecordStoreError(string) {}

// RecordSessionIssued implements Recorder.
func (Nop) RecordSessionIssued() {}
