package screening

import (
	"strings"
	"time"
)

// FlagNCAVFailed marks a screening row whose NCAV could not be computed.
const FlagNCAVFailed = "NCAV_CALC_FAILED"

// GrowthWarningRatio is the year-over-year growth above which inventory or
// receivables are flagged.
const GrowthWarningRatio = 1.2

// Screening is the derived net-net row for one company. Nil signals could not
// be evaluated because a figure was missing.
type Screening struct {
	EDINETCode           string    `json:"edinet_code"`
	LatestDocID          string    `json:"latest_doc_id"`
	LatestSubmitDateTime string    `json:"latest_submit_datetime"`
	LatestPeriodEnd      string    `json:"latest_period_end"`
	NCAV                 *int64    `json:"ncav"`
	NCAVPerShare         *float64  `json:"ncav_per_share"`
	CFIncreasing         *bool     `json:"is_cf_increasing"`
	InventoryWarning     *bool     `json:"is_inventory_warning"`
	ReceivableWarning    *bool     `json:"is_receivable_warning"`
	AlertFlags           []string  `json:"alert_flags,omitempty"`
	CheckedAt            time.Time `json:"checked_at"`
}

// Alerts returns the alert flags comma-joined.
func (s Screening) Alerts() string {
	return strings.Join(s.AlertFlags, ",")
}

// Screen compares the latest snapshot with the one before it. filings and
// snapshots are parallel and newest first; a single filing leaves the
// year-over-year signals nil.
func Screen(edinetCode string, filings []FilingRecord, snapshots []Snapshot, now time.Time) Screening {
	s := Screening{EDINETCode: edinetCode, CheckedAt: now}
	if len(filings) == 0 || len(snapshots) == 0 {
		s.AlertFlags = []string{FlagNCAVFailed}
		return s
	}

	s.LatestDocID = filings[0].DocID
	s.LatestSubmitDateTime = filings[0].SubmitDateTime
	s.LatestPeriodEnd = filings[0].PeriodEnd

	latest := snapshots[0]
	var prior Snapshot
	if len(snapshots) > 1 {
		prior = snapshots[1]
	}

	if latest.CurrentAssets != nil && latest.TotalLiabilities != nil {
		ncav := *latest.CurrentAssets - *latest.TotalLiabilities
		s.NCAV = &ncav
		if latest.TotalShares != nil && *latest.TotalShares > 0 {
			perShare := float64(ncav) / float64(*latest.TotalShares)
			s.NCAVPerShare = &perShare
		}
	} else {
		s.AlertFlags = append(s.AlertFlags, FlagNCAVFailed)
	}

	s.CFIncreasing = compare(latest.OperatingCashFlow, prior.OperatingCashFlow, func(cur, prev int64) bool {
		return cur > prev
	})
	s.InventoryWarning = compare(latest.Inventory, prior.Inventory, grewTooFast)
	s.ReceivableWarning = compare(latest.AccountsReceivable, prior.AccountsReceivable, grewTooFast)
	return s
}

func grewTooFast(cur, prev int64) bool {
	return float64(cur) > float64(prev)*GrowthWarningRatio
}

func compare(cur, prev *int64, fn func(cur, prev int64) bool) *bool {
	if cur == nil || prev == nil {
		return nil
	}
	v := fn(*cur, *prev)
	return &v
}
