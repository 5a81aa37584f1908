// Package metrics exposes Prometheus instrumentation for the shelf server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Recorder counts workflow outcomes. A nil *Recorder records nothing.
type Recorder struct {
	registry      *prometheus.Registry
	handler       http.Handler
	reviewSaves   *prometheus.CounterVec
	autosaves     *prometheus.CounterVec
	statusChanges *prometheus.CounterVec
	openSessions  prometheus.Gauge
}

// NewRecorder registers the workflow collectors on a private registry
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()

	reviewSaves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shelf_review_saves_total",
		Help: "Review saves by kind (create, update) and outcome",
	}, []string{"kind", "outcome"})

	autosaves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shelf_autosaves_total",
		Help: "Debounced rating autosaves by outcome",
	}, []string{"outcome"})

	statusChanges := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shelf_status_changes_total",
		Help: "Play status changes by outcome",
	}, []string{"outcome"})

	openSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "shelf_open_sessions",
		Help: "Game detail sessions currently open",
	})

	registry.MustRegister(reviewSaves, autosaves, statusChanges, openSessions)
	registry.MustRegister(collectors.NewGoCollector())

	return &Recorder{
		registry:      registry,
		handler:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		reviewSaves:   reviewSaves,
		autosaves:     autosaves,
		statusChanges: statusChanges,
		openSessions:  openSessions,
	}
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return r.handler
}

// Registry exposes the underlying registry (used by tests)
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

// ReviewSaved records a review create or update
func (r *Recorder) ReviewSaved(creating bool, err error) {
	if r == nil {
		return
	}
	kind := "update"
	if creating {
		kind = "create"
	}
	r.reviewSaves.WithLabelValues(kind, outcome(err)).Inc()
}

// Autosaved records a debounced autosave
func (r *Recorder) Autosaved(err error) {
	if r == nil {
		return
	}
	r.autosaves.WithLabelValues(outcome(err)).Inc()
}

// StatusChanged records a status change
func (r *Recorder) StatusChanged(err error) {
	if r == nil {
		return
	}
	r.statusChanges.WithLabelValues(outcome(err)).Inc()
}

// SessionOpened increments the open sessions gauge
func (r *Recorder) SessionOpened() {
	if r == nil {
		return
	}
	r.openSessions.Inc()
}

// SessionClosed decrements the open sessions gauge
func (r *Recorder) SessionClosed() {
	if r == nil {
		return
	}
	r.openSessions.Dec()
}
