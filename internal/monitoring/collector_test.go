package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/edinet-screener/internal/model"
)

var collectNow = time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

type mockRuns struct {
	runs  []model.Run
	err   error
	limit int
}

func (m *mockRuns) ListRuns(_ context.Context, limit int) ([]model.Run, error) {
	m.limit = limit
	return m.runs, m.err
}

func newTestCollector(runs RunLister) *Collector {
	c := NewCollector(runs)
	c.now = func() time.Time { return collectNow }
	return c
}

func TestCollector_Collect(t *testing.T) {
	runs := &mockRuns{runs: []model.Run{
		{
			ID: "r3", Status: model.RunStatusRunning, CreatedAt: collectNow.Add(-time.Hour),
		},
		{
			ID: "r2", Status: model.RunStatusFailed, CreatedAt: collectNow.Add(-2 * time.Hour),
			Stats: &model.RunStats{Companies: 4, Error: "edinet: build index: status 500"},
		},
		{
			ID: "r1", Status: model.RunStatusComplete, CreatedAt: collectNow.Add(-3 * time.Hour),
			Stats: &model.RunStats{Companies: 16, Saved: 12, Skipped: 2, Failed: 2},
		},
		{
			ID: "old", Status: model.RunStatusFailed, CreatedAt: collectNow.Add(-48 * time.Hour),
			Stats: &model.RunStats{Companies: 100, Failed: 100, Error: "ignored"},
		},
	}}

	snap, err := newTestCollector(runs).Collect(context.Background(), 24)
	require.NoError(t, err)

	assert.Equal(t, maxRuns, runs.limit)
	assert.Equal(t, 3, snap.RunsTotal)
	assert.Equal(t, 1, snap.RunsComplete)
	assert.Equal(t, 1, snap.RunsFailed)
	assert.Equal(t, 1, snap.RunsRunning)
	assert.Equal(t, "edinet: build index: status 500", snap.LastError)
	assert.Equal(t, 20, snap.Companies)
	assert.Equal(t, 12, snap.CompaniesSaved)
	assert.Equal(t, 2, snap.CompaniesFailed)
	assert.InDelta(t, 0.1, snap.CompanyFailRate, 1e-9)
	assert.Equal(t, 24, snap.LookbackHours)
	assert.Equal(t, collectNow, snap.CollectedAt)
}

func TestCollector_Empty(t *testing.T) {
	snap, err := newTestCollector(&mockRuns{}).Collect(context.Background(), 24)
	require.NoError(t, err)
	assert.Zero(t, snap.RunsTotal)
	assert.Zero(t, snap.CompanyFailRate)
}

func TestCollector_ListError(t *testing.T) {
	_, err := newTestCollector(&mockRuns{err: errors.New("db down")}).Collect(context.Background(), 24)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monitoring: list runs")
}
