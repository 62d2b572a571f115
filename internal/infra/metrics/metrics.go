// Package metrics provides Prometheus instrumentation for the event
// pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the event pipeline metrics.
type Collector struct {
	eventsAppended       prometheus.Counter
	concurrencyConflicts prometheus.Counter
	eventsPublished      *prometheus.CounterVec
	handlerFailures      *prometheus.CounterVec
}

// NewCollector creates a collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		eventsAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jambox_events_appended_total",
			Help: "Total events appended to the event store",
		}),
		concurrencyConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jambox_concurrency_conflicts_total",
			Help: "Total optimistic concurrency conflicts on save",
		}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jambox_events_published_total",
			Help: "Total events published on the bus, by kind",
		}, []string{"kind"}),
		handlerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jambox_handler_failures_total",
			Help: "Total event handler failures, by kind",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		c.eventsAppended,
		c.concurrencyConflicts,
		c.eventsPublished,
		c.handlerFailures,
	)
	return c
}

// RecordAppended counts n appended events. Nil-safe.
func (c *Collector) RecordAppended(n int) {
	if c == nil {
		return
	}
	c.eventsAppended.Add(float64(n))
}

// RecordConflict counts an optimistic concurrency conflict. Nil-safe.
func (c *Collector) RecordConflict() {
	if c == nil {
		return
	}
	c.concurrencyConflicts.Inc()
}

// RecordPublished counts a published event. Nil-safe.
func (c *Collector) RecordPublished(kind string) {
	if c == nil {
		return
	}
	c.eventsPublished.WithLabelValues(kind).Inc()
}

// RecordHandlerFailure counts a failed handler invocation. Nil-safe.
func (c *Collector) RecordHandlerFailure(kind string) {
	if c == nil {
		return
	}
	c.handlerFailures.WithLabelValues(kind).Inc()
}

// Handler returns the HTTP handler serving the registry's metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
