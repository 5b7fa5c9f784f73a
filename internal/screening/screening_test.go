package screening

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/edinet-screener/internal/company"
	"github.com/sells-group/edinet-screener/internal/filing"
	"github.com/sells-group/edinet-screener/internal/xbrl"
)

type mockDocuments struct {
	mock.Mock
}

func (m *mockDocuments) FetchXBRL(ctx context.Context, docID string) ([]byte, error) {
	args := m.Called(ctx, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

var fixedNow = time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)

// figures are the values written into a synthetic instance.
type figures struct {
	currentAssets, liabilities, ocf, inventory, receivables, shares int64
	nonConsolidatedCA                                               int64
	omit                                                            []string
}

// annualInstance renders a minimal EDINET instance for a fiscal year ending
// on periodEnd.
func annualInstance(periodEnd string, f figures) []byte {
	start := fmt.Sprintf("%d%s", mustYear(periodEnd)-1, periodEnd[4:])
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<xbrli:xbrl xmlns:xbrli="http://www.xbrl.org/2003/instance"
  xmlns:xbrldi="http://xbrl.org/2006/xbrldi"
  xmlns:iso4217="http://www.xbrl.org/2003/iso4217"
  xmlns:jppfs_cor="http://disclosure.edinet-fsa.go.jp/taxonomy/jppfs/2023-12-01/jppfs_cor"
  xmlns:jpcrp_cor="http://disclosure.edinet-fsa.go.jp/taxonomy/jpcrp/2023-12-01/jpcrp_cor"
  xmlns:jpdei_cor="http://disclosure.edinet-fsa.go.jp/taxonomy/jpdei/2013-08-31/jpdei_cor">
`)
	fmt.Fprintf(&b, `  <xbrli:context id="FilingDateInstant"><xbrli:period><xbrli:instant>%s</xbrli:instant></xbrli:period></xbrli:context>
  <xbrli:context id="CurrentYearInstant"><xbrli:period><xbrli:instant>%s</xbrli:instant></xbrli:period></xbrli:context>
  <xbrli:context id="CurrentYearInstant_NonConsolidatedMember"><xbrli:period><xbrli:instant>%s</xbrli:instant></xbrli:period>
    <xbrli:scenario><xbrldi:explicitMember dimension="jppfs_cor:ConsolidatedOrNonConsolidatedAxis">jppfs_cor:NonConsolidatedMember</xbrldi:explicitMember></xbrli:scenario></xbrli:context>
  <xbrli:context id="CurrentYearDuration"><xbrli:period><xbrli:startDate>%s</xbrli:startDate><xbrli:endDate>%s</xbrli:endDate></xbrli:period></xbrli:context>
  <xbrli:unit id="JPY"><xbrli:measure>iso4217:JPY</xbrli:measure></xbrli:unit>
  <xbrli:unit id="shares"><xbrli:measure>xbrli:shares</xbrli:measure></xbrli:unit>
  <jpdei_cor:AccountingStandardsDEI contextRef="FilingDateInstant">Japan GAAP</jpdei_cor:AccountingStandardsDEI>
`, periodEnd, periodEnd, periodEnd, start, periodEnd)

	omitted := func(tag string) bool {
		for _, o := range f.omit {
			if o == tag {
				return true
			}
		}
		return false
	}
	write := func(tag, ctx, unit string, v int64) {
		if omitted(tag) {
			return
		}
		fmt.Fprintf(&b, "  <%s contextRef=%q unitRef=%q decimals=\"0\">%d</%s>\n", tag, ctx, unit, v, tag)
	}
	write("jppfs_cor:CurrentAssets", "CurrentYearInstant", "JPY", f.currentAssets)
	write("jppfs_cor:CurrentAssets", "CurrentYearInstant_NonConsolidatedMember", "JPY", f.nonConsolidatedCA)
	write("jppfs_cor:Liabilities", "CurrentYearInstant", "JPY", f.liabilities)
	write("jppfs_cor:NetCashProvidedByUsedInOperatingActivities", "CurrentYearDuration", "JPY", f.ocf)
	write("jppfs_cor:Inventories", "CurrentYearInstant", "JPY", f.inventory)
	write("jppfs_cor:NotesAndAccountsReceivableTrade", "CurrentYearInstant", "JPY", f.receivables)
	write("jpcrp_cor:TotalNumberOfIssuedSharesSummaryOfBusinessResults", "CurrentYearInstant_NonConsolidatedMember", "shares", f.shares)
	b.WriteString("</xbrli:xbrl>\n")
	return []byte(b.String())
}

func mustYear(date string) int {
	var y int
	fmt.Sscanf(date, "%d", &y)
	return y
}

func report(docID, code, periodEnd, submitted string) filing.IndexRow {
	return filing.IndexRow{
		DocID:            docID,
		EDINETCode:       code,
		DocTypeCode:      filing.DocTypeAnnualReport,
		OrdinanceCode:    "010",
		FormCode:         "030000",
		PeriodStart:      fmt.Sprintf("%d%s", mustYear(periodEnd)-1, "-04-01"),
		PeriodEnd:        periodEnd,
		SubmitDateTime:   submitted,
		XBRLFlag:         "1",
		CSVFlag:          "1",
		WithdrawalStatus: "0",
		DisclosureStatus: "0",
	}
}

func newTestAnalyzer(index []filing.IndexRow, docs DocumentSource) *Analyzer {
	a := NewAnalyzer(index,
		filing.NewSelector(filing.DefaultRules(), filing.LatestTwo),
		docs,
		xbrl.NewExtractor(xbrl.Options{}, nil),
	)
	a.Now = func() time.Time { return fixedNow }
	return a
}

var acme = company.Company{
	EDINETCode:    "E00001",
	Ticker:        "1301",
	Name:          "Acme",
	Consolidation: company.Consolidated,
}

func TestAnalyze_TwoYears(t *testing.T) {
	index := []filing.IndexRow{
		report("S100AAAA", "E00001", "2023-03-31", "2023-06-28 15:00"),
		report("S100BBBB", "E00001", "2024-03-31", "2024-06-27 15:00"),
		report("S100CCCC", "E00002", "2024-03-31", "2024-06-27 15:00"),
	}
	docs := new(mockDocuments)
	docs.On("FetchXBRL", mock.Anything, "S100BBBB").Return(annualInstance("2024-03-31", figures{
		currentAssets: 9000, nonConsolidatedCA: 1, liabilities: 4000, ocf: 700, inventory: 1300, receivables: 500, shares: 100,
	}), nil)
	docs.On("FetchXBRL", mock.Anything, "S100AAAA").Return(annualInstance("2023-03-31", figures{
		currentAssets: 8000, liabilities: 4500, ocf: 600, inventory: 1000, receivables: 480, shares: 100,
	}), nil)

	res, err := newTestAnalyzer(index, docs).Analyze(context.Background(), acme)
	require.NoError(t, err)
	require.NotNil(t, res)
	docs.AssertExpectations(t)

	require.Len(t, res.Filings, 2)
	latest := res.Filings[0]
	assert.Equal(t, "S100BBBB", latest.DocID)
	assert.Equal(t, "2024-03-31", latest.PeriodEnd)
	assert.Equal(t, "2023-04-01", latest.PeriodStart)
	assert.Equal(t, "2024-06-27T15:00:00", latest.SubmitDateTime)
	assert.Equal(t, "Japan GAAP", latest.AccountingStandard)
	assert.Equal(t, company.Consolidated, latest.ConsolidatedFlag)
	assert.Equal(t, 1, latest.CSVFlag)
	assert.Equal(t, "https://disclosure2.edinet-fsa.go.jp/WZEK0040.aspx?S100BBBB", latest.EDINETURL)

	require.Len(t, res.Snapshots, 2)
	snap := res.Snapshots[0]
	require.NotNil(t, snap.CurrentAssets)
	assert.Equal(t, int64(9000), *snap.CurrentAssets, "consolidated figure")
	assert.Equal(t, int64(100), *snap.TotalShares, "share count from any scope")
	assert.Equal(t, 1, snap.UnitMultiplier)
	assert.Empty(t, snap.QualityFlags)
	assert.Equal(t, Provenance{Tag: "jppfs_cor:CurrentAssets", Context: "CurrentYearInstant"}, snap.Provenance[xbrl.ConceptCurrentAssets])
	assert.Equal(t, fixedNow, snap.ExtractedAt)

	sc := res.Screening
	assert.Equal(t, "E00001", sc.EDINETCode)
	assert.Equal(t, "S100BBBB", sc.LatestDocID)
	require.NotNil(t, sc.NCAV)
	assert.Equal(t, int64(5000), *sc.NCAV)
	require.NotNil(t, sc.NCAVPerShare)
	assert.InDelta(t, 50.0, *sc.NCAVPerShare, 1e-9)
	assert.True(t, *sc.CFIncreasing)
	assert.True(t, *sc.InventoryWarning, "1300 > 1000 * 1.2")
	assert.False(t, *sc.ReceivableWarning)
	assert.Empty(t, sc.AlertFlags)
}

func TestAnalyze_NonConsolidatedFiler(t *testing.T) {
	index := []filing.IndexRow{report("S100BBBB", "E00001", "2024-03-31", "2024-06-27 15:00")}
	docs := new(mockDocuments)
	docs.On("FetchXBRL", mock.Anything, "S100BBBB").Return(annualInstance("2024-03-31", figures{
		currentAssets: 9000, nonConsolidatedCA: 3000,
	}), nil)

	c := acme
	c.Consolidation = company.NonConsolidated
	res, err := newTestAnalyzer(index, docs).Analyze(context.Background(), c)
	require.NoError(t, err)

	require.NotNil(t, res.Snapshots[0].CurrentAssets)
	assert.Equal(t, int64(3000), *res.Snapshots[0].CurrentAssets)
	assert.Nil(t, res.Snapshots[0].TotalLiabilities)
	assert.Equal(t, []string{FlagMissingTotalLiabilities}, res.Snapshots[0].QualityFlags)
	assert.Equal(t, company.NonConsolidated, res.Filings[0].ConsolidatedFlag)

	sc := res.Screening
	assert.Nil(t, sc.NCAV)
	assert.Nil(t, sc.CFIncreasing, "single filing has no prior year")
	assert.Equal(t, []string{FlagNCAVFailed}, sc.AlertFlags)
}

func TestAnalyze_NoReports(t *testing.T) {
	docs := new(mockDocuments)
	res, err := newTestAnalyzer(nil, docs).Analyze(context.Background(), acme)
	require.NoError(t, err)
	assert.Nil(t, res)
	docs.AssertNotCalled(t, "FetchXBRL", mock.Anything, mock.Anything)
}

func TestAnalyze_MalformedInstanceKeepsFiling(t *testing.T) {
	index := []filing.IndexRow{
		report("S100AAAA", "E00001", "2023-03-31", "2023-06-28 15:00"),
		report("S100BBBB", "E00001", "2024-03-31", "2024-06-27 15:00"),
	}
	docs := new(mockDocuments)
	docs.On("FetchXBRL", mock.Anything, "S100BBBB").Return([]byte("<xbrli:xbrl><unclosed>"), nil)
	docs.On("FetchXBRL", mock.Anything, "S100AAAA").Return(annualInstance("2023-03-31", figures{
		currentAssets: 8000, liabilities: 4500, ocf: 600,
	}), nil)

	res, err := newTestAnalyzer(index, docs).Analyze(context.Background(), acme)
	require.NoError(t, err)
	require.Len(t, res.Filings, 2)

	broken := res.Filings[0]
	assert.Equal(t, "S100BBBB", broken.DocID)
	assert.Equal(t, "2024-03-31", broken.PeriodEnd)
	assert.Empty(t, broken.AccountingStandard)
	assert.Equal(t, []string{FlagMissingCurrentAssets, FlagMissingTotalLiabilities}, res.Snapshots[0].QualityFlags)
	assert.Nil(t, res.Snapshots[0].Provenance)

	assert.Equal(t, int64(8000), *res.Snapshots[1].CurrentAssets, "other filing unaffected")
	assert.Nil(t, res.Screening.NCAV)
	assert.Nil(t, res.Screening.CFIncreasing)
}

func TestAnalyze_FetchFailureKeepsFiling(t *testing.T) {
	index := []filing.IndexRow{report("S100BBBB", "E00001", "2024-03-31", "2024-06-27 15:00")}
	docs := new(mockDocuments)
	docs.On("FetchXBRL", mock.Anything, "S100BBBB").Return(nil, errors.New("edinet: not a zip archive"))

	res, err := newTestAnalyzer(index, docs).Analyze(context.Background(), acme)
	require.NoError(t, err)
	require.Len(t, res.Filings, 1)
	assert.Equal(t, "S100BBBB", res.Screening.LatestDocID)
}

func TestAnalyze_ContextCancelled(t *testing.T) {
	index := []filing.IndexRow{report("S100BBBB", "E00001", "2024-03-31", "2024-06-27 15:00")}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	docs := new(mockDocuments)
	docs.On("FetchXBRL", mock.Anything, "S100BBBB").Return(nil, context.Canceled)

	_, err := newTestAnalyzer(index, docs).Analyze(ctx, acme)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
