package xbrl

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFacts() []string {
	return []string{
		fact("jppfs_cor:NetSales", ctxCurrentDuration, "JPY", "12,000"),
		fact("jppfs_cor:NetSales", ctxPriorDuration, "JPY", "10,000"),
		fact("jppfs_cor:NetSales", ctxCurrentDurationNon, "JPY", "4,000"),
		fact("jppfs_cor:NetCashProvidedByUsedInOperatingActivities", ctxCurrentDuration, "JPY", "(300)"),
		fact("jppfs_cor:CurrentAssets", ctxCurrentInstant, "JPY", "5,000"),
		fact("jppfs_cor:CurrentAssets", ctxPriorInstant, "JPY", "4,500"),
		fact("jppfs_cor:Liabilities", ctxCurrentInstant, "JPY", "2,000"),
		fact("jppfs_cor:Merchandise", ctxCurrentInstant, "JPY", "100"),
		fact("jppfs_cor:FinishedGoods", ctxCurrentInstant, "JPY", "50"),
		fact("jpcrp_cor:TotalNumberOfIssuedSharesSummaryOfBusinessResults", ctxCurrentInstantNon, "shares", "1,000,000"),
		`  <jpdei_cor:AccountingStandardsDEI contextRef="FilingDateInstant">Japan GAAP</jpdei_cor:AccountingStandardsDEI>` + "\n",
	}
}

func TestExtractor_Targeted(t *testing.T) {
	doc := mustParse(t, sampleFacts()...)
	rec := NewExtractor(Options{}, nil).Targeted(doc, "2024-03-31", true)

	assert.Equal(t, "Japan GAAP", rec.AccountingStandard)
	assert.Equal(t, Fact{Value: 12000, Tag: "jppfs_cor:NetSales", ContextID: ctxCurrentDuration}, rec.Facts[ConceptNetSales])
	assert.Equal(t, int64(-300), rec.Facts[ConceptOperatingCashFlow].Value)
	assert.Equal(t, int64(5000), rec.Facts[ConceptCurrentAssets].Value)
	assert.Equal(t, int64(2000), rec.Facts[ConceptTotalLiabilities].Value)
	assert.Equal(t, Fact{Value: 150, Tag: CalculatedInventoryTag, ContextID: ctxCurrentInstant}, rec.Facts[ConceptInventories])

	shares, ok := rec.Value(ConceptTotalShares)
	require.True(t, ok, "share count ignores scope and unit")
	assert.Equal(t, int64(1000000), shares)

	_, ok = rec.Value(ConceptOperatingIncome)
	assert.False(t, ok)
	assert.NotContains(t, rec.Facts, ConceptOperatingIncome)
}

func TestExtractor_TargetedPriorPeriod(t *testing.T) {
	doc := mustParse(t, sampleFacts()...)
	rec := NewExtractor(Options{}, nil).Targeted(doc, "2023-03-31", true)

	assert.Equal(t, int64(10000), rec.Facts[ConceptNetSales].Value)
	assert.Equal(t, int64(4500), rec.Facts[ConceptCurrentAssets].Value)
	assert.NotContains(t, rec.Facts, ConceptInventories)
}

func TestExtractor_TargetedUnknownPeriod(t *testing.T) {
	doc := mustParse(t, sampleFacts()...)
	rec := NewExtractor(Options{}, nil).Targeted(doc, "", true)

	assert.Empty(t, rec.Facts)
	assert.Equal(t, "Japan GAAP", rec.AccountingStandard)
}

func TestExtractor_Comprehensive(t *testing.T) {
	doc := mustParse(t, sampleFacts()...)
	fs := NewExtractor(Options{}, nil).Comprehensive(doc)

	assert.Equal(t, "2024-03-31", fs.LatestDuration)
	assert.Equal(t, "2024-03-31", fs.LatestInstant)

	cons := fs.Scopes[Consolidated]
	require.NotNil(t, cons)
	sales := cons[ConceptNetSales]
	require.NotNil(t, sales.Current)
	require.NotNil(t, sales.Prior)
	assert.Equal(t, int64(12000), sales.Current.Value)
	assert.Equal(t, int64(10000), sales.Prior.Value)

	ca := cons[ConceptCurrentAssets]
	require.NotNil(t, ca.Prior)
	assert.Equal(t, int64(4500), ca.Prior.Value)

	ocf := cons[ConceptOperatingCashFlow]
	require.NotNil(t, ocf.Current)
	assert.Nil(t, ocf.Prior)

	non := fs.Scopes[NonConsolidated]
	require.NotNil(t, non)
	require.NotNil(t, non[ConceptNetSales].Current)
	assert.Equal(t, int64(4000), non[ConceptNetSales].Current.Value)
	assert.Nil(t, non[ConceptNetSales].Prior)
	assert.NotContains(t, non, ConceptCurrentAssets)
}

func TestExtractor_ComprehensiveIdempotent(t *testing.T) {
	body := []byte(instance(sampleFacts()...))
	ex := NewExtractor(Options{}, nil)

	encode := func() []byte {
		doc, err := ParseDocumentBytes(body)
		require.NoError(t, err)
		out, err := json.Marshal(ex.Comprehensive(doc))
		require.NoError(t, err)
		return out
	}

	first := encode()
	for range 5 {
		assert.Equal(t, first, encode())
	}
	assert.Contains(t, string(first), `"consolidated"`)
	assert.Contains(t, string(first), `"non_consolidated"`)
}

func TestExtractor_ComprehensiveEmpty(t *testing.T) {
	fs := NewExtractor(Options{}, nil).Comprehensive(mustParse(t))
	assert.Empty(t, fs.Scopes)
	assert.Equal(t, AccountingStandardNA, fs.AccountingStandard)
}

func TestPriorDates(t *testing.T) {
	assert.Equal(t, "2023-03-31", approxPriorYear("2024-03-31"))
	assert.Equal(t, "", approxPriorYear("24"))
	assert.Equal(t, "", approxPriorYear("abcd-01-01"))

	assert.Equal(t, []string{"2023-03-31", "2023-03-30"}, priorDates("2024-03-31"))
	assert.Equal(t, []string{"2023-03-01", "2023-02-28"}, priorDates("2024-03-01"))
	// Leap day has no prior-year counterpart; only the approximation is kept.
	assert.Equal(t, []string{"2023-02-29"}, priorDates("2024-02-29"))
	assert.Nil(t, priorDates(""))
}

func TestLoadConcepts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "concepts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
concepts:
  - name: net_sales
    period: duration
    tags: [Revenue, jppfs_cor:NetSales]
  - name: inventories
    period: instant
    tags: [Inventories]
    composite:
      groups:
        - combined_tag: MerchandiseAndFinishedGoods
          parts: [Merchandise, FinishedGoods]
  - name: total_shares
    period: instant
    skip_unit_check: true
    any_scope: true
    tags: [TotalNumberOfIssuedSharesSummaryOfBusinessResults]
`), 0o644))

	concepts, err := LoadConcepts(path)
	require.NoError(t, err)
	require.Len(t, concepts, 3)

	assert.Equal(t, Duration, concepts[0].Kind)
	assert.Equal(t, []string{"Revenue", "jppfs_cor:NetSales"}, concepts[0].Tags)
	require.NotNil(t, concepts[1].Composite)
	assert.Equal(t, []string{"Inventories"}, concepts[1].Composite.TotalTags)
	assert.True(t, concepts[2].SkipUnitCheck)
	assert.True(t, concepts[2].AnyScope)

	doc := mustParse(t, fact("jppfs_cor:NetSales", ctxCurrentDuration, "JPY", "12,000"))
	rec := NewExtractor(Options{}, concepts).Targeted(doc, "2024-03-31", true)
	assert.Equal(t, int64(12000), rec.Facts["net_sales"].Value)
}

func TestLoadConcepts_Errors(t *testing.T) {
	_, err := LoadConcepts(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("concepts:\n  - name: x\n    period: sometimes\n"), 0o644))
	_, err = LoadConcepts(path)
	assert.Error(t, err)
}

func TestValidateConcepts(t *testing.T) {
	require.NoError(t, ValidateConcepts(DefaultConcepts()))

	tests := []struct {
		name     string
		concepts []Concept
		contains string
	}{
		{name: "empty", concepts: nil, contains: "empty"},
		{name: "no name", concepts: []Concept{{Kind: Instant, Tags: []string{"A"}}}, contains: "no name"},
		{name: "duplicate", concepts: []Concept{
			{Name: "a", Kind: Instant, Tags: []string{"A"}},
			{Name: "a", Kind: Instant, Tags: []string{"B"}},
		}, contains: "duplicate concept a"},
		{name: "no period", concepts: []Concept{{Name: "a", Tags: []string{"A"}}}, contains: "period"},
		{name: "no tags", concepts: []Concept{{Name: "a", Kind: Instant}}, contains: "no tags"},
		{name: "blank tag", concepts: []Concept{{Name: "a", Kind: Instant, Tags: []string{" "}}}, contains: "empty tag"},
		{name: "empty composite", concepts: []Concept{{Name: "a", Kind: Instant, Composite: &CompositeSpec{}}}, contains: "composite"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConcepts(tt.concepts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}
