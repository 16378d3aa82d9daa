package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.MatchTransition("approve", nil)
		m.ScheduleOperation("generate", errors.New("boom"))
		m.MatchesGenerated(6)
		m.PlayoffEvent("created")
		m.BulkApproval(2, 1)
		m.NotificationDropped()
	})
}

func TestCounters(t *testing.T) {
	m := New()

	m.MatchTransition("approve", nil)
	m.MatchTransition("approve", nil)
	m.MatchTransition("approve", errors.New("invalid"))
	m.BulkApproval(3, 1)
	m.MatchesGenerated(6)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("approve", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("approve", "error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.bulkApprovals.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.bulkApprovals.WithLabelValues("error")))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.generatedMatches))
}
