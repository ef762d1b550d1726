// Package observability holds the Prometheus metrics for the application.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application. Each Collector
// owns a private registry so tests can create instances freely without
// duplicate-registration panics.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Relationship engine metrics
	AnalysesRun          prometheus.Counter
	AnalysisFailures     prometheus.Counter
	RelationshipsCreated prometheus.Counter
	RelationshipsRemoved prometheus.Counter
	ProcessingDuration   prometheus.Histogram
	PendingTriggers      prometheus.Gauge

	// Suggestion pipeline metrics
	SuggestionsRanked    prometheus.Counter
	SuggestionsRejected  *prometheus.CounterVec
	SuggestionsScheduled prometheus.Counter
	Interactions         *prometheus.CounterVec
}

// NewCollector creates a metrics collector with the given namespace.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		AnalysesRun: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Total number of similarity analyses run",
		}),
		AnalysisFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_failures_total",
			Help:      "Total number of failed similarity analyses",
		}),
		RelationshipsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relationships_created_total",
			Help:      "Total number of relationships created",
		}),
		RelationshipsRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relationships_removed_total",
			Help:      "Total number of relationships removed",
		}),
		ProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "relationship_processing_duration_seconds",
			Help:      "Duration of per-content relationship processing",
			Buckets:   prometheus.DefBuckets,
		}),
		PendingTriggers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_triggers",
			Help:      "Content ids currently awaiting relationship processing",
		}),
		SuggestionsRanked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggestions_ranked_total",
			Help:      "Total number of suggestions that passed ranking",
		}),
		SuggestionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggestions_rejected_total",
			Help:      "Suggestions rejected during ranking, by reason",
		}, []string{"reason"}),
		SuggestionsScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggestions_scheduled_total",
			Help:      "Total number of suggestions given a delivery time",
		}),
		Interactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interactions_total",
			Help:      "Recorded interaction outcomes, by action",
		}, []string{"action"}),
	}

	registry.MustRegister(
		c.HTTPRequests, c.HTTPDuration,
		c.AnalysesRun, c.AnalysisFailures,
		c.RelationshipsCreated, c.RelationshipsRemoved,
		c.ProcessingDuration, c.PendingTriggers,
		c.SuggestionsRanked, c.SuggestionsRejected, c.SuggestionsScheduled,
		c.Interactions,
	)
	return c
}

// Handler returns the /metrics HTTP handler for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
