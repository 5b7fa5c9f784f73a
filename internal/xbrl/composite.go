package xbrl

// CalculatedInventoryTag marks an inventory value summed from components.
const CalculatedInventoryTag = "Inventories(Calculated)"

// ComponentGroup is one block of a composite concept. CombinedTag, when set,
// is preferred over summing Parts.
type ComponentGroup struct {
	CombinedTag string   `yaml:"combined_tag" json:"combined_tag,omitempty"`
	Parts       []string `yaml:"parts" json:"parts"`
}

// CompositeSpec describes a concept without a reliable total tag.
type CompositeSpec struct {
	TotalTags     []string         `yaml:"total_tags" json:"total_tags"`
	Groups        []ComponentGroup `yaml:"groups" json:"groups"`
	CalculatedTag string           `yaml:"calculated_tag" json:"calculated_tag,omitempty"`
}

// DefaultInventorySpec is the inventory breakdown used by EDINET filers
// reporting without a total inventories line.
func DefaultInventorySpec() CompositeSpec {
	return CompositeSpec{
		TotalTags: []string{
			"jpigp_cor:InventoriesCAIFRS",
			"jppfs_cor:Inventories",
			"Inventories",
			"InventoriesNet",
		},
		Groups: []ComponentGroup{
			{CombinedTag: "MerchandiseAndFinishedGoods", Parts: []string{"Merchandise", "FinishedGoods"}},
			{Parts: []string{"WorkInProcess", "SemiFinishedGoods"}},
			{CombinedTag: "RawMaterialsAndSupplies", Parts: []string{"RawMaterials", "Supplies"}},
		},
		CalculatedTag: CalculatedInventoryTag,
	}
}

// Composite resolves a total tag when one exists, otherwise sums the
// component groups. A component that is not reported counts as zero as long
// as at least one other component was found; the sum is then a best-effort
// figure, not an audited total. When nothing is found the result is absent.
func (r *Resolver) Composite(spec CompositeSpec, kind PeriodKind, scope *Scope, admissible ContextIDs) (Fact, bool) {
	q := Query{Tags: spec.TotalTags, Kind: kind, Scope: scope, CheckUnit: true}
	if f, ok := r.Resolve(q, admissible); ok {
		return f, true
	}

	var (
		total   int64
		found   bool
		foundAt string
	)
	take := func(tag string) bool {
		f, ok := r.Resolve(Query{Tags: []string{tag}, Kind: kind, Scope: scope, CheckUnit: true}, admissible)
		if !ok {
			return false
		}
		total += f.Value
		if !found {
			found = true
			foundAt = f.ContextID
		}
		return true
	}

	for _, g := range spec.Groups {
		if g.CombinedTag != "" && take(g.CombinedTag) {
			continue
		}
		for _, part := range g.Parts {
			take(part)
		}
	}

	if !found {
		return Fact{}, false
	}
	tag := spec.CalculatedTag
	if tag == "" {
		tag = CalculatedInventoryTag
	}
	return Fact{Value: total, Tag: tag, ContextID: foundAt}, true
}
