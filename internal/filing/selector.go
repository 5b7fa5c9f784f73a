package filing

import (
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Policy is how many annual reports are kept per company.
type Policy int

const (
	// LatestTwo keeps the two most recent reports; the year-over-year
	// comparison is sourced from two separate filings.
	LatestTwo Policy = iota
	// LatestOnly keeps the most recent report.
	LatestOnly
)

func (p Policy) String() string {
	if p == LatestOnly {
		return "latest_only"
	}
	return "latest_two"
}

// Limit returns the number of filings the policy keeps.
func (p Policy) Limit() int {
	if p == LatestOnly {
		return 1
	}
	return 2
}

// ParsePolicy converts a config or flag value into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "latest_two", "two":
		return LatestTwo, nil
	case "latest_only", "latest", "one":
		return LatestOnly, nil
	default:
		return 0, eris.Errorf("filing: unknown policy %q (valid: latest_only, latest_two)", s)
	}
}

// Rules is the eligibility filter applied to index rows.
type Rules struct {
	DocTypeCodes     []string `mapstructure:"doc_type_codes" yaml:"doc_type_codes"`
	CorrectionCodes  []string `mapstructure:"correction_codes" yaml:"correction_codes"`
	XBRLFlag         string   `mapstructure:"xbrl_flag" yaml:"xbrl_flag"`
	WithdrawalStatus string   `mapstructure:"withdrawal_status" yaml:"withdrawal_status"`
	DisclosureStatus string   `mapstructure:"disclosure_status" yaml:"disclosure_status"`
}

// DefaultRules selects original and corrected annual securities reports that
// carry XBRL, are not withdrawn and are normally disclosed.
func DefaultRules() Rules {
	return Rules{
		DocTypeCodes:     []string{DocTypeAnnualReport, DocTypeAnnualCorrected},
		CorrectionCodes:  []string{DocTypeAnnualCorrected},
		XBRLFlag:         "1",
		WithdrawalStatus: "0",
		DisclosureStatus: "0",
	}
}

// Eligible reports whether row passes the filter, ignoring the company.
func (r Rules) Eligible(row IndexRow) bool {
	return slices.Contains(r.DocTypeCodes, strings.TrimSpace(row.DocTypeCode)) &&
		string(row.XBRLFlag) == r.XBRLFlag &&
		string(row.WithdrawalStatus) == r.WithdrawalStatus &&
		string(row.DisclosureStatus) == r.DisclosureStatus
}

func (r Rules) isCorrection(row IndexRow) bool {
	return slices.Contains(r.CorrectionCodes, strings.TrimSpace(row.DocTypeCode))
}

// Selected is a filing chosen for analysis.
type Selected struct {
	IndexRow
	Period    string // normalized YYYY-MM-DD period end
	Submitted time.Time
	hasSubmit bool
}

// Selector picks the reports to analyze for a company.
type Selector struct {
	Rules  Rules
	Policy Policy
}

// NewSelector returns a Selector with the given rules and policy.
func NewSelector(rules Rules, policy Policy) *Selector {
	return &Selector{Rules: rules, Policy: policy}
}

// Select filters rows to the eligible reports of edinetCode, keeps one report
// per period end (corrections first, then the later submission) and returns
// the winners newest first, truncated to the policy limit. Rows without a
// parseable period end are dropped.
func (s *Selector) Select(rows []IndexRow, edinetCode string) []Selected {
	best := make(map[string]Selected)
	for _, row := range rows {
		if row.EDINETCode != edinetCode || !s.Rules.Eligible(row) {
			continue
		}
		end, ok := row.PeriodEndDate()
		if !ok {
			continue
		}
		at, hasSubmit := row.SubmittedAt()
		cand := Selected{IndexRow: row, Period: end, Submitted: at, hasSubmit: hasSubmit}

		cur, seen := best[end]
		if !seen || s.preferred(cand, cur) {
			best[end] = cand
		}
	}

	winners := make([]Selected, 0, len(best))
	for _, w := range best {
		winners = append(winners, w)
	}
	sort.SliceStable(winners, func(i, j int) bool {
		a, b := winners[i], winners[j]
		if a.hasSubmit != b.hasSubmit {
			return a.hasSubmit
		}
		if !a.Submitted.Equal(b.Submitted) {
			return a.Submitted.After(b.Submitted)
		}
		return a.Period > b.Period
	})

	if limit := s.Policy.Limit(); len(winners) > limit {
		winners = winners[:limit]
	}
	return winners
}

// preferred reports whether a should replace b within one period end.
func (s *Selector) preferred(a, b Selected) bool {
	ac, bc := s.Rules.isCorrection(a.IndexRow), s.Rules.isCorrection(b.IndexRow)
	if ac != bc {
		return ac
	}
	if a.hasSubmit != b.hasSubmit {
		return a.hasSubmit
	}
	if !a.Submitted.Equal(b.Submitted) {
		return a.Submitted.After(b.Submitted)
	}
	return a.DocID > b.DocID
}
