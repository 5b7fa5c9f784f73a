package xbrl

import (
	"strings"

	"github.com/rotisserie/eris"
)

// PeriodKind distinguishes balance-sheet (instant) from income and cash-flow
// (duration) contexts.
type PeriodKind int

const (
	Instant PeriodKind = iota + 1
	Duration
)

func (k PeriodKind) String() string {
	switch k {
	case Instant:
		return "instant"
	case Duration:
		return "duration"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k PeriodKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *PeriodKind) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "instant":
		*k = Instant
	case "duration":
		*k = Duration
	default:
		return eris.Errorf("xbrl: unknown period kind %q (valid: instant, duration)", string(text))
	}
	return nil
}

// Scope is the consolidation scope of a context.
type Scope int

const (
	Consolidated Scope = iota
	NonConsolidated
)

func (s Scope) String() string {
	if s == NonConsolidated {
		return "non_consolidated"
	}
	return "consolidated"
}

// MarshalText implements encoding.TextMarshaler.
func (s Scope) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Scope) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "consolidated":
		*s = Consolidated
	case "non_consolidated":
		*s = NonConsolidated
	default:
		return eris.Errorf("xbrl: unknown scope %q (valid: consolidated, non_consolidated)", string(text))
	}
	return nil
}

// ScopePtr returns a pointer to s, for Query.Scope.
func ScopePtr(s Scope) *Scope {
	return &s
}

// ScopeStrategy selects how a document's contexts are assigned a Scope. One
// strategy applies to every context of a document.
type ScopeStrategy int

const (
	// ScopeByDimension reads the ConsolidatedOrNonConsolidatedAxis member.
	ScopeByDimension ScopeStrategy = iota
	// ScopeByContextID looks for "nonconsolidated" in the context id.
	ScopeByContextID
)

// ParseScopeStrategy converts a config value into a ScopeStrategy.
func ParseScopeStrategy(s string) (ScopeStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "dimension":
		return ScopeByDimension, nil
	case "context_id":
		return ScopeByContextID, nil
	default:
		return 0, eris.Errorf("xbrl: unknown scope strategy %q (valid: dimension, context_id)", s)
	}
}

const (
	consolidationAxis     = "ConsolidatedOrNonConsolidatedAxis"
	nonConsolidatedMember = "NonConsolidatedMember"
)

// ReportingContext is a resolved context declaration. Dates are YYYY-MM-DD
// strings as written in the document; an instant context only sets EndDate.
type ReportingContext struct {
	ID        string     `json:"id"`
	Kind      PeriodKind `json:"kind"`
	StartDate string     `json:"start_date,omitempty"`
	EndDate   string     `json:"end_date,omitempty"`
	Scope     Scope      `json:"scope"`
}

// ContextSet maps context ids to their resolved declarations.
type ContextSet map[string]ReportingContext

// ResolveContexts resolves every context of doc that declares a period.
func ResolveContexts(doc *Document, strategy ScopeStrategy) ContextSet {
	set := make(ContextSet, len(doc.contexts))
	for _, raw := range doc.contexts {
		id := strings.TrimSpace(raw.ID)
		if id == "" || raw.Period == nil {
			continue
		}

		rc := ReportingContext{ID: id, Scope: Consolidated}
		if raw.Period.Instant != nil {
			rc.Kind = Instant
			rc.EndDate = strings.TrimSpace(*raw.Period.Instant)
		} else {
			rc.Kind = Duration
			if raw.Period.StartDate != nil {
				rc.StartDate = strings.TrimSpace(*raw.Period.StartDate)
			}
			if raw.Period.EndDate != nil {
				rc.EndDate = strings.TrimSpace(*raw.Period.EndDate)
			}
		}

		switch strategy {
		case ScopeByContextID:
			rc.Scope = scopeFromID(id)
		default:
			rc.Scope = scopeFromDimension(append(raw.Scenario, raw.Segment...))
		}

		set[id] = rc
	}
	return set
}

func scopeFromDimension(members []explicitMember) Scope {
	for _, m := range members {
		if !strings.HasSuffix(strings.TrimSpace(m.Dimension), consolidationAxis) {
			continue
		}
		if strings.HasSuffix(strings.TrimSpace(m.Value), nonConsolidatedMember) {
			return NonConsolidated
		}
		return Consolidated
	}
	return Consolidated
}

func scopeFromID(id string) Scope {
	if strings.Contains(strings.ToLower(id), "nonconsolidated") {
		return NonConsolidated
	}
	return Consolidated
}

// Latest returns the greatest end date among contexts of the given kind, by
// string comparison. It returns "" when none has an end date.
func (s ContextSet) Latest(kind PeriodKind) string {
	latest := ""
	for _, c := range s {
		if c.Kind == kind && c.EndDate > latest {
			latest = c.EndDate
		}
	}
	return latest
}

// Select returns the ids of contexts that match kind and scope and end on one
// of dates.
func (s ContextSet) Select(kind PeriodKind, scope Scope, dates ...string) ContextIDs {
	ids := make(ContextIDs)
	for id, c := range s {
		if c.Kind != kind || c.Scope != scope || c.EndDate == "" {
			continue
		}
		for _, d := range dates {
			if c.EndDate == d {
				ids[id] = true
				break
			}
		}
	}
	return ids
}

// EndingOn returns the ids of all contexts ending on date, regardless of kind
// or scope.
func (s ContextSet) EndingOn(date string) ContextIDs {
	ids := make(ContextIDs)
	if date == "" {
		return ids
	}
	for id, c := range s {
		if c.EndDate == date {
			ids[id] = true
		}
	}
	return ids
}

// ContextIDs is a set of admissible context ids. A nil set admits every
// registered context.
type ContextIDs map[string]bool

// NewContextIDs builds a set from ids.
func NewContextIDs(ids ...string) ContextIDs {
	set := make(ContextIDs, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
