package xbrl

import "strings"

// DefaultCurrency is the reporting currency of EDINET filings.
const DefaultCurrency = "JPY"

// UnitSet answers whether a unitRef denotes the local currency.
type UnitSet struct {
	currency string
	measures map[string][]string
}

// NewUnitSet indexes the unit declarations of doc.
func NewUnitSet(doc *Document, currency string) UnitSet {
	if currency == "" {
		currency = DefaultCurrency
	}
	measures := make(map[string][]string, len(doc.units))
	for _, u := range doc.units {
		id := strings.TrimSpace(u.ID)
		if id == "" {
			continue
		}
		all := make([]string, 0, len(u.Measures)+len(u.Numerators)+len(u.Denominators))
		all = append(all, u.Measures...)
		all = append(all, u.Numerators...)
		all = append(all, u.Denominators...)
		measures[id] = all
	}
	return UnitSet{currency: strings.ToLower(currency), measures: measures}
}

// IsCurrency reports whether unitRef resolves to the local currency. Unknown
// and empty references are not currency.
func (u UnitSet) IsCurrency(unitRef string) bool {
	if unitRef == "" {
		return false
	}
	if strings.ToLower(unitRef) == u.currency {
		return true
	}

	measures, ok := u.measures[unitRef]
	if !ok {
		return false
	}
	for _, m := range measures {
		m = strings.ToLower(strings.TrimSpace(m))
		if m == u.currency || strings.HasSuffix(m, ":"+u.currency) {
			return true
		}
	}
	return false
}
