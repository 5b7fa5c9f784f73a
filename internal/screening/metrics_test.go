package screening

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v int64) *int64 { return &v }

func TestScreen(t *testing.T) {
	filings := []FilingRecord{
		{DocID: "S100BBBB", SubmitDateTime: "2024-06-27T15:00:00", PeriodEnd: "2024-03-31"},
		{DocID: "S100AAAA", SubmitDateTime: "2023-06-28T15:00:00", PeriodEnd: "2023-03-31"},
	}

	tests := []struct {
		name           string
		latest, prior  Snapshot
		wantNCAV       *int64
		wantCF         *bool
		wantInventory  *bool
		wantReceivable *bool
		wantAlerts     []string
	}{
		{
			name:           "growth exactly at threshold is not a warning",
			latest:         Snapshot{CurrentAssets: ptr(100), TotalLiabilities: ptr(150), OperatingCashFlow: ptr(10), Inventory: ptr(120), AccountsReceivable: ptr(121)},
			prior:          Snapshot{OperatingCashFlow: ptr(10), Inventory: ptr(100), AccountsReceivable: ptr(100)},
			wantNCAV:       ptr(-50),
			wantCF:         boolPtr(false),
			wantInventory:  boolPtr(false),
			wantReceivable: boolPtr(true),
		},
		{
			name:       "missing pairs stay unknown",
			latest:     Snapshot{CurrentAssets: ptr(100), OperatingCashFlow: ptr(10)},
			prior:      Snapshot{Inventory: ptr(5)},
			wantAlerts: []string{FlagNCAVFailed},
		},
		{
			name:     "negative cash flow improving",
			latest:   Snapshot{CurrentAssets: ptr(1), TotalLiabilities: ptr(0), OperatingCashFlow: ptr(-5)},
			prior:    Snapshot{OperatingCashFlow: ptr(-20)},
			wantNCAV: ptr(1),
			wantCF:   boolPtr(true),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Screen("E00001", filings, []Snapshot{tt.latest, tt.prior}, fixedNow)
			assert.Equal(t, "S100BBBB", s.LatestDocID)
			assert.Equal(t, "2024-03-31", s.LatestPeriodEnd)
			assert.Equal(t, tt.wantNCAV, s.NCAV)
			assert.Equal(t, tt.wantCF, s.CFIncreasing)
			assert.Equal(t, tt.wantInventory, s.InventoryWarning)
			assert.Equal(t, tt.wantReceivable, s.ReceivableWarning)
			assert.Equal(t, tt.wantAlerts, s.AlertFlags)
		})
	}
}

func TestScreen_NoFilings(t *testing.T) {
	s := Screen("E00001", nil, nil, fixedNow)
	assert.Equal(t, "NCAV_CALC_FAILED", s.Alerts())
	assert.Empty(t, s.LatestDocID)
}

func TestScreen_ZeroSharesHasNoPerShare(t *testing.T) {
	s := Screen("E00001", []FilingRecord{{DocID: "S100BBBB"}},
		[]Snapshot{{CurrentAssets: ptr(10), TotalLiabilities: ptr(5), TotalShares: ptr(0)}}, fixedNow)
	require.NotNil(t, s.NCAV)
	assert.Nil(t, s.NCAVPerShare)
}

func TestSnapshot_Encoding(t *testing.T) {
	s := Snapshot{
		QualityFlags: []string{FlagMissingCurrentAssets, FlagMissingTotalLiabilities},
		Provenance: map[string]Provenance{
			"net_sales":   {Tag: "jppfs_cor:NetSales", Context: "CurrentYearDuration"},
			"inventories": {Tag: "Inventories(Calculated)", Context: "CurrentYearInstant"},
		},
	}
	assert.Equal(t, "MISSING_CA,MISSING_TL", s.Flags())

	js, err := s.ProvenanceJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"inventories":{"tag":"Inventories(Calculated)","context":"CurrentYearInstant"},"net_sales":{"tag":"jppfs_cor:NetSales","context":"CurrentYearDuration"}}`, js)

	empty, err := Snapshot{}.ProvenanceJSON()
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func boolPtr(v bool) *bool { return &v }
