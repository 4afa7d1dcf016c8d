package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/OpenStreetlifting/openstreetlifting-backend/canonical"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ImportFinished(OutcomeSuccess, 120*time.Millisecond)
	m.ImportFinished(OutcomeSuccess, 80*time.Millisecond)
	m.ImportFinished(OutcomeInvalid, time.Millisecond)
	m.ScoresComputed("import", 4)
	m.ScoresComputed("import", 0)
	m.ScoresSkipped(2)
	m.Validation(canonical.Report{
		Errors:   []canonical.Issue{{Path: "a", Message: "x"}},
		Warnings: []canonical.Issue{{Path: "b", Message: "y"}, {Path: "c", Message: "z"}},
	})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.imports.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.imports.WithLabelValues(OutcomeInvalid)))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.scoresComputed.WithLabelValues("import")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.scoresSkipped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.validationIssues.WithLabelValues("error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.validationIssues.WithLabelValues("warning")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ingestDuration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ImportFinished(OutcomeError, time.Second)
		m.ScoresComputed("recompute", 3)
		m.ScoresSkipped(1)
		m.Validation(canonical.Report{})
	})
}
