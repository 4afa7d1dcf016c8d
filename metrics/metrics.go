// Package metrics holds the Prometheus collectors of the import pipeline.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OpenStreetlifting/openstreetlifting-backend/canonical"
)

const namespace = "osl"

// Import outcomes.
const (
	OutcomeSuccess    = "success"
	OutcomeInvalid    = "invalid"
	OutcomeConflict   = "conflict"
	OutcomeResolution = "resolution"
	OutcomeError      = "error"
)

// Metrics groups the collectors registered on one registry.
type Metrics struct {
	imports          *prometheus.CounterVec
	ingestDuration   prometheus.Histogram
	scoresComputed   *prometheus.CounterVec
	scoresSkipped    prometheus.Counter
	validationIssues *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		imports: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "total",
			Help:      "Ingest attempts by outcome",
		}, []string{"outcome"}),
		ingestDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "duration_seconds",
			Help:      "Wall time of one ingest transaction",
			Buckets:   prometheus.DefBuckets,
		}),
		scoresComputed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ris",
			Name:      "scores_computed_total",
			Help:      "Scores written, by trigger",
		}, []string{"trigger"}),
		scoresSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ris",
			Name:      "scores_skipped_total",
			Help:      "Participants left unscored for lack of bodyweight or total",
		}),
		validationIssues: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "issues_total",
			Help:      "Validation findings by severity",
		}, []string{"severity"}),
	}
}

// ImportFinished records one ingest.
func (m *Metrics) ImportFinished(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.imports.WithLabelValues(outcome).Inc()
	m.ingestDuration.Observe(took.Seconds())
}

// ScoresComputed adds n written scores for trigger ("import" or "recompute").
func (m *Metrics) ScoresComputed(trigger string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.scoresComputed.WithLabelValues(trigger).Add(float64(n))
}

// ScoresSkipped adds n participants that could not be scored.
func (m *Metrics) ScoresSkipped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.scoresSkipped.Add(float64(n))
}

// Validation counts the findings of one report.
func (m *Metrics) Validation(r canonical.Report) {
	if m == nil {
		return
	}
	m.validationIssues.WithLabelValues("error").Add(float64(len(r.Errors)))
	m.validationIssues.WithLabelValues("warning").Add(float64(len(r.Warnings)))
}

// Handler exposes the gatherer in the text exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
