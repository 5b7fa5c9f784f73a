package xbrl

import (
	"strconv"
	"time"
)

// Record is the targeted-mode result: one fact per resolved concept. Absent
// concepts have no key.
type Record struct {
	Facts              map[string]Fact `json:"facts"`
	AccountingStandard string          `json:"accounting_standard"`
}

// Value returns the value of concept and whether it was resolved.
func (r Record) Value(concept string) (int64, bool) {
	f, ok := r.Facts[concept]
	return f.Value, ok
}

// PeriodFacts holds the current and prior-year fact of one concept.
type PeriodFacts struct {
	Current *Fact `json:"current,omitempty"`
	Prior   *Fact `json:"prior,omitempty"`
}

// FactSet is the comprehensive-mode result, keyed by scope then concept name.
type FactSet struct {
	Scopes             map[Scope]map[string]PeriodFacts `json:"scopes"`
	AccountingStandard string                           `json:"accounting_standard"`
	LatestDuration     string                           `json:"latest_duration,omitempty"`
	LatestInstant      string                           `json:"latest_instant,omitempty"`
}

// Extractor applies a concept dictionary to documents. It holds no
// per-document state and is safe for concurrent use.
type Extractor struct {
	opts     Options
	concepts []Concept
}

// NewExtractor returns an Extractor over concepts, or DefaultConcepts when
// concepts is empty.
func NewExtractor(opts Options, concepts []Concept) *Extractor {
	if len(concepts) == 0 {
		concepts = DefaultConcepts()
	}
	return &Extractor{opts: opts, concepts: concepts}
}

// Concepts returns the dictionary in use.
func (e *Extractor) Concepts() []Concept {
	return e.concepts
}

// Targeted resolves every concept against contexts ending on periodEnd, in
// the consolidated or non-consolidated scope.
func (e *Extractor) Targeted(doc *Document, periodEnd string, consolidated bool) Record {
	r := NewResolver(doc, e.opts)
	admissible := r.Contexts().EndingOn(periodEnd)

	scope := ScopePtr(NonConsolidated)
	if consolidated {
		scope = ScopePtr(Consolidated)
	}

	rec := Record{
		Facts:              make(map[string]Fact, len(e.concepts)),
		AccountingStandard: doc.AccountingStandard(),
	}
	for _, c := range e.concepts {
		if f, ok := e.resolve(r, c, scope, admissible); ok {
			rec.Facts[c.Name] = f
		}
	}
	return rec
}

// Comprehensive resolves every concept in both scopes for the latest period
// found in the document and the year before it.
func (e *Extractor) Comprehensive(doc *Document) FactSet {
	r := NewResolver(doc, e.opts)
	contexts := r.Contexts()

	latest := map[PeriodKind]string{
		Duration: contexts.Latest(Duration),
		Instant:  contexts.Latest(Instant),
	}

	fs := FactSet{
		Scopes:             make(map[Scope]map[string]PeriodFacts, 2),
		AccountingStandard: doc.AccountingStandard(),
		LatestDuration:     latest[Duration],
		LatestInstant:      latest[Instant],
	}

	for _, scope := range []Scope{Consolidated, NonConsolidated} {
		facts := make(map[string]PeriodFacts)
		for _, c := range e.concepts {
			current := latest[c.Kind]
			if current == "" {
				continue
			}

			var pf PeriodFacts
			if f, ok := e.resolve(r, c, ScopePtr(scope), contexts.Select(c.Kind, scope, current)); ok {
				pf.Current = &f
			}
			if f, ok := e.resolve(r, c, ScopePtr(scope), contexts.Select(c.Kind, scope, priorDates(current)...)); ok {
				pf.Prior = &f
			}
			if pf.Current != nil || pf.Prior != nil {
				facts[c.Name] = pf
			}
		}
		if len(facts) > 0 {
			fs.Scopes[scope] = facts
		}
	}
	return fs
}

func (e *Extractor) resolve(r *Resolver, c Concept, scope *Scope, admissible ContextIDs) (Fact, bool) {
	if c.Composite != nil {
		if c.AnyScope {
			scope = nil
		}
		return r.Composite(*c.Composite, c.Kind, scope, admissible)
	}
	return r.Resolve(c.query(scope), admissible)
}

// approxPriorYear decrements the year digits of a YYYY-MM-DD string. It is an
// approximation: 2024-02-29 becomes 2023-02-29, which is not a calendar date.
func approxPriorYear(date string) string {
	if len(date) < 4 {
		return ""
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil || year <= 0 {
		return ""
	}
	return strconv.Itoa(year-1) + date[4:]
}

// priorDates returns the approximate prior-year date and, when that is a
// valid calendar date, the day before it. Filers whose fiscal year shifts by
// a day between years report the prior period on either.
func priorDates(current string) []string {
	prior := approxPriorYear(current)
	if prior == "" {
		return nil
	}
	dates := []string{prior}
	if t, err := time.Parse(time.DateOnly, prior); err == nil {
		dates = append(dates, t.AddDate(0, 0, -1).Format(time.DateOnly))
	}
	return dates
}
