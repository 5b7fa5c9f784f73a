package screening

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/edinet-screener/internal/xbrl"
)

// Quality flags recorded on snapshots.
const (
	FlagMissingCurrentAssets    = "MISSING_CA"
	FlagMissingTotalLiabilities = "MISSING_TL"
)

// Provenance records the tag and context a snapshot value came from.
type Provenance struct {
	Tag     string `json:"tag"`
	Context string `json:"context"`
}

// Snapshot holds the figures of one filing in whole yen. Nil fields were not
// found in the instance.
type Snapshot struct {
	DocID              string                `json:"doc_id"`
	CurrentAssets      *int64                `json:"current_assets"`
	TotalLiabilities   *int64                `json:"total_liabilities"`
	OperatingCashFlow  *int64                `json:"operating_cash_flow"`
	Inventory          *int64                `json:"inventory"`
	AccountsReceivable *int64                `json:"accounts_receivable"`
	TotalShares        *int64                `json:"total_shares"`
	NetIncome          *int64                `json:"net_income"`
	Cash               *int64                `json:"cash_and_equivalents"`
	NetSales           *int64                `json:"net_sales"`
	OperatingIncome    *int64                `json:"operating_income"`
	TotalAssets        *int64                `json:"total_assets"`
	NetAssets          *int64                `json:"net_assets"`
	CurrentLiabilities *int64                `json:"current_liabilities"`
	Debt               *int64                `json:"debt"`
	UnitMultiplier     int                   `json:"unit_multiplier"`
	QualityFlags       []string              `json:"source_quality_flags,omitempty"`
	Provenance         map[string]Provenance `json:"provenance,omitempty"`
	ExtractedAt        time.Time             `json:"extracted_at"`
}

func newSnapshot(d details, now time.Time) Snapshot {
	s := Snapshot{
		DocID:          d.sel.DocID,
		UnitMultiplier: 1,
		ExtractedAt:    now,
	}
	if d.record != nil {
		rec := d.record
		for concept, dst := range s.fields() {
			if v, ok := rec.Value(concept); ok {
				*dst = &v
			}
		}
		if len(rec.Facts) > 0 {
			s.Provenance = make(map[string]Provenance, len(rec.Facts))
			for concept, f := range rec.Facts {
				s.Provenance[concept] = Provenance{Tag: f.Tag, Context: f.ContextID}
			}
		}
	}

	if s.CurrentAssets == nil {
		s.QualityFlags = append(s.QualityFlags, FlagMissingCurrentAssets)
	}
	if s.TotalLiabilities == nil {
		s.QualityFlags = append(s.QualityFlags, FlagMissingTotalLiabilities)
	}
	return s
}

// fields maps concept names to the snapshot field they fill.
func (s *Snapshot) fields() map[string]**int64 {
	return map[string]**int64{
		xbrl.ConceptCurrentAssets:      &s.CurrentAssets,
		xbrl.ConceptTotalLiabilities:   &s.TotalLiabilities,
		xbrl.ConceptOperatingCashFlow:  &s.OperatingCashFlow,
		xbrl.ConceptInventories:        &s.Inventory,
		xbrl.ConceptAccountsReceivable: &s.AccountsReceivable,
		xbrl.ConceptTotalShares:        &s.TotalShares,
		xbrl.ConceptNetIncome:          &s.NetIncome,
		xbrl.ConceptCash:               &s.Cash,
		xbrl.ConceptNetSales:           &s.NetSales,
		xbrl.ConceptOperatingIncome:    &s.OperatingIncome,
		xbrl.ConceptTotalAssets:        &s.TotalAssets,
		xbrl.ConceptNetAssets:          &s.NetAssets,
		xbrl.ConceptCurrentLiabilities: &s.CurrentLiabilities,
		xbrl.ConceptDebt:               &s.Debt,
	}
}

// Flags returns the quality flags comma-joined, empty when there are none.
func (s Snapshot) Flags() string {
	return strings.Join(s.QualityFlags, ",")
}

// ProvenanceJSON encodes the provenance map. Keys are sorted by the encoder.
func (s Snapshot) ProvenanceJSON() (string, error) {
	if len(s.Provenance) == 0 {
		return "", nil
	}
	b, err := json.Marshal(s.Provenance)
	if err != nil {
		return "", eris.Wrap(err, "screening: encode provenance")
	}
	return string(b), nil
}
