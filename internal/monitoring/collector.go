package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/edinet-screener/internal/model"
)

// maxRuns bounds how many recent runs one collection reads.
const maxRuns = 1000

// MetricsSnapshot summarizes the runs started within the lookback window.
type MetricsSnapshot struct {
	RunsTotal    int    `json:"runs_total"`
	RunsComplete int    `json:"runs_complete"`
	RunsFailed   int    `json:"runs_failed"`
	RunsRunning  int    `json:"runs_running"`
	LastError    string `json:"last_error,omitempty"`

	Companies       int     `json:"companies"`
	CompaniesSaved  int     `json:"companies_saved"`
	CompaniesFailed int     `json:"companies_failed"`
	CompanyFailRate float64 `json:"company_fail_rate"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// RunLister is the part of the store the collector reads. Runs are returned
// newest first.
type RunLister interface {
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)
}

// Collector gathers run metrics from the store.
type Collector struct {
	runs RunLister
	now  func() time.Time
}

// NewCollector creates a new metrics collector.
func NewCollector(runs RunLister) *Collector {
	return &Collector{runs: runs, now: time.Now}
}

// Collect gathers a snapshot over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := c.now().UTC()
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}
	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)

	runs, err := c.runs.ListRuns(ctx, maxRuns)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	for _, r := range runs {
		if r.CreatedAt.Before(cutoff) {
			continue
		}
		snap.RunsTotal++
		switch r.Status {
		case model.RunStatusComplete:
			snap.RunsComplete++
		case model.RunStatusFailed:
			snap.RunsFailed++
		case model.RunStatusRunning:
			snap.RunsRunning++
		}
		if r.Stats == nil {
			continue
		}
		if r.Stats.Error != "" && snap.LastError == "" {
			snap.LastError = r.Stats.Error
		}
		snap.Companies += r.Stats.Companies
		snap.CompaniesSaved += r.Stats.Saved
		snap.CompaniesFailed += r.Stats.Failed
	}

	if snap.Companies > 0 {
		snap.CompanyFailRate = float64(snap.CompaniesFailed) / float64(snap.Companies)
	}
	return snap, nil
}
