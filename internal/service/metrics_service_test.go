package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatheredValue returns the counter, gauge or histogram sample count of the metric
// family name whose first label equals label (or the unlabelled series when
// label is empty).
func gatheredValue(t *testing.T, m *MetricsService, name, label string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if label != "" && (len(metric.GetLabel()) == 0 || metric.GetLabel()[0].GetValue() != label) {
				continue
			}
			if metric.GetCounter() != nil {
				return metric.GetCounter().GetValue()
			}
			if metric.GetGauge() != nil {
				return metric.GetGauge().GetValue()
			}
			if metric.GetHistogram() != nil {
				return float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}
	return 0
}

func TestMetricsServiceRecordsRuns(t *testing.T) {
	m := NewMetricsService()

	m.RecordRun(RunStatusCompleted, 0.8, 0)
	m.RecordRun(RunStatusInfeasible, 0, 3)
	m.RecordRun(RunStatusCompleted, 0.7, 1)
	m.ObservePhase(PhaseGeneration, 20*time.Millisecond)

	assert.Equal(t, 2.0, gatheredValue(t, m, "timetable_runs_total", RunStatusCompleted))
	assert.Equal(t, 1.0, gatheredValue(t, m, "timetable_runs_total", RunStatusInfeasible))
	assert.Equal(t, 4.0, gatheredValue(t, m, "timetable_unplaced_sessions_total", ""))
	assert.Equal(t, 2.0, gatheredValue(t, m, "timetable_fitness_score", ""))
	assert.Equal(t, 1.0, gatheredValue(t, m, "timetable_phase_duration_seconds", PhaseGeneration))
}

func TestMetricsServiceCacheAndHTTP(t *testing.T) {
	m := NewMetricsService()

	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.ObserveHTTPRequest(http.MethodPost, "/api/v1/timetables/solve", http.StatusOK, 30*time.Millisecond)

	assert.Equal(t, 1.0, gatheredValue(t, m, "cache_hits_total", ""))
	assert.Equal(t, 2.0, gatheredValue(t, m, "cache_misses_total", ""))
	assert.Equal(t, 1.0, gatheredValue(t, m, "http_requests_total", http.MethodPost))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "timetable_runs_total") || strings.Contains(rec.Body.String(), "http_requests_total"))
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.RecordRun(RunStatusFailed, 0, 0)
	m.ObservePhase(PhaseOptimization, time.Second)
	m.RecordCacheOperation(true, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsServiceTracksQueueDepth(t *testing.T) {
	m := NewMetricsService()
	depth := 3
	require.NoError(t, m.TrackQueueDepth("timetable", func() int { return depth }))

	assert.Equal(t, 3.0, gatheredValue(t, m, "timetable_queue_pending_jobs", "timetable"))
	depth = 0
	assert.Equal(t, 0.0, gatheredValue(t, m, "timetable_queue_pending_jobs", "timetable"))

	assert.Error(t, m.TrackQueueDepth("timetable", func() int { return 0 }), "duplicate registration")

	var disabled *MetricsService
	assert.NoError(t, disabled.TrackQueueDepth("timetable", func() int { return 1 }))
}
