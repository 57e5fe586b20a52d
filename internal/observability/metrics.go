// Package observability holds the Prometheus metrics for prediction sessions
// and the stub prediction service.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "genregenius"

// ─── Client session metrics ─────────────────────────────────────────────────

// Submissions counts accepted and rejected submit calls.
var Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "session",
	Name:      "submissions_total",
	Help:      "Submit calls by result (accepted, empty_input).",
}, []string{"result"})

// Outcomes counts finished predictions by terminal outcome.
var Outcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "session",
	Name:      "outcomes_total",
	Help:      "Finished predictions by outcome (succeeded or error kind).",
}, []string{"outcome"})

// EventsApplied counts stream events that mutated session state.
var EventsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "session",
	Name:      "events_applied_total",
	Help:      "Stream events applied to session state, by event name.",
}, []string{"event"})

// EventsDiscarded counts events dropped because their channel was superseded,
// already terminal, or the event name is unknown.
var EventsDiscarded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "session",
	Name:      "events_discarded_total",
	Help:      "Stream events ignored, by reason (stale, unknown).",
}, []string{"reason"})

// LiveChannels tracks channels currently held open by sessions.
var LiveChannels = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "session",
	Name:      "live_channels",
	Help:      "Prediction channels currently open.",
})

// PredictionDuration observes submit-to-terminal latency.
var PredictionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "session",
	Name:      "prediction_duration_seconds",
	Help:      "Time from submit to terminal event.",
	Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
}, []string{"outcome"})

// ─── Stub service metrics ───────────────────────────────────────────────────

// StubStreams counts prediction streams served by the stub service.
var StubStreams = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "stub",
	Name:      "streams_total",
	Help:      "Prediction streams served, by terminal event (result, error, truncated, aborted, rejected).",
}, []string{"terminal"})
