// Package observability holds the portal's Prometheus collectors and the
// scrape endpoint that serves them.
package observability

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce           sync.Once
	portalRequestsTotal    *prometheus.CounterVec
	portalLatencySeconds   *prometheus.HistogramVec
	portalErrorsTotal      *prometheus.CounterVec
	upstreamRequestsTotal  *prometheus.CounterVec
	upstreamLatencySeconds *prometheus.HistogramVec
	sliceOutcomesTotal     *prometheus.CounterVec
	eventsPublishedTotal   *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the portal.
func RegisterMetrics() {
	registerOnce.Do(func() {
		portalRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_requests_total",
			Help: "Total number of portal requests served.",
		}, []string{"method", "route", "status"})

		portalLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_latency_seconds",
			Help:    "Latency distribution for portal requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		portalErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_errors_total",
			Help: "Total number of error responses returned by the portal.",
		}, []string{"method", "route", "status"})

		upstreamRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_upstream_requests_total",
			Help: "Requests issued to the Student Hub API by route and outcome.",
		}, []string{"route", "outcome"})

		upstreamLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_upstream_latency_seconds",
			Help:    "Latency distribution for Student Hub API calls.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}, []string{"route"})

		sliceOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_dashboard_slices_total",
			Help: "Dashboard slice settlements by slice and outcome.",
		}, []string{"slice", "outcome"})

		eventsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_activity_events_total",
			Help: "Activity events published by transport and outcome.",
		}, []string{"transport", "outcome"})

		prometheus.MustRegister(
			portalRequestsTotal,
			portalLatencySeconds,
			portalErrorsTotal,
			upstreamRequestsTotal,
			upstreamLatencySeconds,
			sliceOutcomesTotal,
			eventsPublishedTotal,
		)
	})
}

// PortalRequests exposes the counter for portal requests.
func PortalRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return portalRequestsTotal
}

// PortalLatency exposes the latency histogram for portal requests.
func PortalLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return portalLatencySeconds
}

// PortalErrors exposes the counter for portal error responses.
func PortalErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return portalErrorsTotal
}

// UpstreamRequests exposes the counter for Student Hub API calls.
func UpstreamRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return upstreamRequestsTotal
}

// UpstreamLatency exposes the latency histogram for Student Hub API calls.
func UpstreamLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return upstreamLatencySeconds
}

// SliceOutcomes exposes the counter for dashboard slice settlements.
func SliceOutcomes() *prometheus.CounterVec {
	RegisterMetrics()
	return sliceOutcomesTotal
}

// EventsPublished exposes the counter for activity event publication.
func EventsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return eventsPublishedTotal
}

// MetricsHandler serves the portal collectors for Prometheus scrapes. A
// collector that fails to gather is left out rather than failing the scrape.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	}))
}
