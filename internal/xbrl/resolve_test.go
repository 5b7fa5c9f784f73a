package xbrl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func consolidated() *Scope    { return ScopePtr(Consolidated) }
func nonConsolidated() *Scope { return ScopePtr(NonConsolidated) }

func TestResolve_NetSales(t *testing.T) {
	doc := mustParse(t, fact("jppfs_cor:NetSales", ctxCurrentDuration, "JPY", "12,000"))
	r := NewResolver(doc, Options{})

	f, ok := r.Resolve(Query{
		Tags:      []string{"Revenue", "NetSales"},
		Kind:      Duration,
		Scope:     consolidated(),
		CheckUnit: true,
	}, NewContextIDs(ctxCurrentDuration))

	require.True(t, ok)
	assert.Equal(t, Fact{Value: 12000, Tag: "NetSales", ContextID: ctxCurrentDuration}, f)
}

func TestResolve_TagPriority(t *testing.T) {
	doc := mustParse(t,
		fact("jppfs_cor:NetSales", ctxCurrentDuration, "JPY", "12,000"),
		fact("jpigp_cor:Revenue", ctxCurrentDuration, "JPY", "13,000"),
	)
	r := NewResolver(doc, Options{})
	admissible := NewContextIDs(ctxCurrentDuration)

	f, ok := r.Resolve(Query{Tags: []string{"Revenue", "NetSales"}, Kind: Duration, Scope: consolidated(), CheckUnit: true}, admissible)
	require.True(t, ok)
	assert.Equal(t, "Revenue", f.Tag)
	assert.Equal(t, int64(13000), f.Value)

	f, ok = r.Resolve(Query{Tags: []string{"NetSales", "Revenue"}, Kind: Duration, Scope: consolidated(), CheckUnit: true}, admissible)
	require.True(t, ok)
	assert.Equal(t, "NetSales", f.Tag)
	assert.Equal(t, int64(12000), f.Value)
}

func TestResolve_EarlierTagWinsOverBetterContext(t *testing.T) {
	doc := mustParse(t,
		fact("jppfs_cor:NetSales", ctxPriorDuration, "JPY", "9,000"),
		fact("jpigp_cor:Revenue", ctxCurrentDuration, "JPY", "13,000"),
	)
	r := NewResolver(doc, Options{})

	f, ok := r.Resolve(Query{Tags: []string{"NetSales", "Revenue"}, Kind: Duration, Scope: consolidated(), CheckUnit: true},
		NewContextIDs(ctxCurrentDuration, ctxPriorDuration))
	require.True(t, ok)
	assert.Equal(t, "NetSales", f.Tag)
	assert.Equal(t, ctxPriorDuration, f.ContextID)
}

func TestResolve_ConsolidationFilter(t *testing.T) {
	doc := mustParse(t, fact("jppfs_cor:NetSales", ctxCurrentDurationNon, "JPY", "500"))
	r := NewResolver(doc, Options{})
	q := Query{Tags: []string{"NetSales"}, Kind: Duration, Scope: consolidated(), CheckUnit: true}

	_, ok := r.Resolve(q, nil)
	assert.False(t, ok, "non-consolidated fact must not satisfy a consolidated query")

	q.Scope = nonConsolidated()
	f, ok := r.Resolve(q, nil)
	require.True(t, ok)
	assert.Equal(t, int64(500), f.Value)

	q.Scope = nil
	_, ok = r.Resolve(q, nil)
	assert.True(t, ok, "nil scope accepts either")
}

func TestResolve_CurrencyFilter(t *testing.T) {
	doc := mustParse(t, fact("jppfs_cor:NetSales", ctxCurrentDuration, "USD", "700"))
	r := NewResolver(doc, Options{})
	q := Query{Tags: []string{"NetSales"}, Kind: Duration, Scope: consolidated(), CheckUnit: true}

	_, ok := r.Resolve(q, nil)
	assert.False(t, ok)

	q.CheckUnit = false
	f, ok := r.Resolve(q, nil)
	require.True(t, ok)
	assert.Equal(t, int64(700), f.Value)
}

func TestResolve_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		facts      []string
		query      Query
		admissible ContextIDs
	}{
		{
			name:       "context not admissible",
			facts:      []string{fact("jppfs_cor:NetSales", ctxPriorDuration, "JPY", "1")},
			query:      Query{Tags: []string{"NetSales"}, Kind: Duration, CheckUnit: true},
			admissible: NewContextIDs(ctxCurrentDuration),
		},
		{
			name:  "undeclared context",
			facts: []string{fact("jppfs_cor:NetSales", "Missing", "JPY", "1")},
			query: Query{Tags: []string{"NetSales"}, Kind: Duration, CheckUnit: true},
		},
		{
			name:  "context without period",
			facts: []string{fact("jppfs_cor:NetSales", "NoPeriod", "JPY", "1")},
			query: Query{Tags: []string{"NetSales"}, Kind: Duration, CheckUnit: true},
		},
		{
			name:  "period kind",
			facts: []string{fact("jppfs_cor:Assets", ctxCurrentDuration, "JPY", "1")},
			query: Query{Tags: []string{"Assets"}, Kind: Instant, CheckUnit: true},
		},
		{
			name:  "missing unit",
			facts: []string{fact("jppfs_cor:NetSales", ctxCurrentDuration, "", "1")},
			query: Query{Tags: []string{"NetSales"}, Kind: Duration, CheckUnit: true},
		},
		{
			name:  "namespace mismatch",
			facts: []string{fact("jpigp_cor:NetSales", ctxCurrentDuration, "JPY", "1")},
			query: Query{Tags: []string{"jppfs_cor:NetSales"}, Kind: Duration, CheckUnit: true},
		},
		{
			name:  "unparseable text",
			facts: []string{fact("jppfs_cor:NetSales", ctxCurrentDuration, "JPY", "n/a")},
			query: Query{Tags: []string{"NetSales"}, Kind: Duration, CheckUnit: true},
		},
		{
			name:  "empty text",
			facts: []string{fact("jppfs_cor:NetSales", ctxCurrentDuration, "JPY", "")},
			query: Query{Tags: []string{"NetSales"}, Kind: Duration, CheckUnit: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(mustParse(t, tt.facts...), Options{})
			_, ok := r.Resolve(tt.query, tt.admissible)
			assert.False(t, ok)
		})
	}
}

func TestResolve_SkipsBadCandidateWithinTag(t *testing.T) {
	doc := mustParse(t,
		fact("jppfs_cor:NetSales", ctxCurrentDuration, "JPY", "-"),
		fact("jppfs_cor:NetSales", ctxCurrentDuration, "JPY", "8,000"),
	)
	r := NewResolver(doc, Options{})

	f, ok := r.Resolve(Query{Tags: []string{"NetSales"}, Kind: Duration, CheckUnit: true}, nil)
	require.True(t, ok)
	assert.Equal(t, int64(8000), f.Value)
}

func TestResolve_NamespacePrefix(t *testing.T) {
	doc := mustParse(t,
		fact("jpigp_cor:NetSales", ctxCurrentDuration, "JPY", "1"),
		fact("jppfs_cor:NetSales", ctxCurrentDuration, "JPY", "2"),
	)
	r := NewResolver(doc, Options{})

	f, ok := r.Resolve(Query{Tags: []string{"jppfs_cor:NetSales"}, Kind: Duration, CheckUnit: true}, nil)
	require.True(t, ok)
	assert.Equal(t, int64(2), f.Value)
	assert.Equal(t, "jppfs_cor:NetSales", f.Tag)

	// A prefix the document never binds does not filter.
	f, ok = r.Resolve(Query{Tags: []string{"ifrs-full:NetSales"}, Kind: Duration, CheckUnit: true}, nil)
	require.True(t, ok)
	assert.Equal(t, int64(1), f.Value)
}

func TestResolve_DebugTrace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	doc := mustParse(t, fact("jppfs_cor:NetSales", ctxCurrentDuration, "USD", "1"))
	r := NewResolver(doc, Options{Logger: zap.New(core)})

	_, ok := r.Resolve(Query{Tags: []string{"NetSales"}, Kind: Duration, CheckUnit: true}, nil)
	assert.False(t, ok)

	entries := logs.FilterMessage("xbrl: candidate rejected").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "unit is not local currency", entries[0].ContextMap()["reason"])
}

func TestResolve_TargetedRoundTrip(t *testing.T) {
	doc := mustParse(t,
		fact("jppfs_cor:NetSales", ctxCurrentDuration, "JPY", "1000000"),
		fact("jppfs_cor:NetSales", ctxCurrentDurationNon, "JPY", "500000"),
	)
	ex := NewExtractor(Options{}, nil)

	rec := ex.Targeted(doc, "2024-03-31", true)
	v, ok := rec.Value(ConceptNetSales)
	require.True(t, ok)
	assert.Equal(t, int64(1000000), v)

	rec = ex.Targeted(doc, "2024-03-31", false)
	v, ok = rec.Value(ConceptNetSales)
	require.True(t, ok)
	assert.Equal(t, int64(500000), v)
}
