package xbrl

import (
	"strings"

	"go.uber.org/zap"
)

// Options configures how a document is resolved.
type Options struct {
	Currency string
	Strategy ScopeStrategy
	// Logger receives per-candidate rejection reasons at debug level.
	Logger *zap.Logger
}

// Query describes one logical concept lookup. Tags are in priority order and
// may carry a namespace prefix ("jppfs_cor:NetSales").
type Query struct {
	Tags      []string
	Kind      PeriodKind
	Scope     *Scope // nil accepts either scope
	CheckUnit bool
}

// Fact is a resolved value with the tag and context that produced it.
type Fact struct {
	Value     int64  `json:"value"`
	Tag       string `json:"tag"`
	ContextID string `json:"context"`
}

// Resolver looks up concepts in one document. It is built per document and
// holds no state shared with other resolvers.
type Resolver struct {
	doc      *Document
	contexts ContextSet
	units    UnitSet
	log      *zap.Logger
}

// NewResolver resolves the contexts and units of doc.
func NewResolver(doc *Document, opts Options) *Resolver {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{
		doc:      doc,
		contexts: ResolveContexts(doc, opts.Strategy),
		units:    NewUnitSet(doc, opts.Currency),
		log:      log,
	}
}

// Contexts returns the resolved contexts of the document.
func (r *Resolver) Contexts() ContextSet {
	return r.contexts
}

// Resolve returns the first element, scanning tags in priority order, that
// passes every filter and parses as a number. A nil admissible set accepts
// any registered context. Absence is reported with ok == false.
func (r *Resolver) Resolve(q Query, admissible ContextIDs) (Fact, bool) {
	for _, tag := range q.Tags {
		prefix, local := splitTag(tag)
		for _, el := range r.doc.Elements(local) {
			if reason := r.reject(el, q, prefix, admissible); reason != "" {
				r.log.Debug("xbrl: candidate rejected",
					zap.String("tag", tag),
					zap.String("context", el.ContextRef),
					zap.String("reason", reason),
				)
				continue
			}

			v, err := el.Amount()
			if err != nil {
				r.log.Debug("xbrl: candidate rejected",
					zap.String("tag", tag),
					zap.String("context", el.ContextRef),
					zap.Error(err),
				)
				continue
			}
			return Fact{Value: v, Tag: tag, ContextID: el.ContextRef}, true
		}
	}
	return Fact{}, false
}

func (r *Resolver) reject(el Element, q Query, prefix string, admissible ContextIDs) string {
	if el.ContextRef == "" {
		return "no context"
	}
	if admissible != nil && !admissible[el.ContextRef] {
		return "context not admissible"
	}
	ctx, ok := r.contexts[el.ContextRef]
	if !ok {
		return "context not declared"
	}
	if ctx.Kind != q.Kind {
		return "period kind mismatch"
	}
	if q.Scope != nil && ctx.Scope != *q.Scope {
		return "scope mismatch"
	}
	if q.CheckUnit && !r.units.IsCurrency(el.UnitRef) {
		return "unit is not local currency"
	}
	if prefix != "" {
		if uri, bound := r.doc.Namespaces[prefix]; bound && uri != el.Namespace {
			return "namespace mismatch"
		}
	}
	return ""
}

func splitTag(tag string) (prefix, local string) {
	if i := strings.LastIndex(tag, ":"); i >= 0 {
		return tag[:i], tag[i+1:]
	}
	return "", tag
}
