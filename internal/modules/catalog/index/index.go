package index

import (
	"sort"

	"github.com/yungbote/catalog-backend/internal/domain/catalog"
)

// Constraint is the outcome of looking up a dependency row.
type Constraint int

const (
	// ConstraintNone means the pair is not declared; the child is unconstrained.
	ConstraintNone Constraint = iota
	// ConstraintMissingRow means the pair is declared but the parent code has
	// no row. It never means "allow all".
	ConstraintMissingRow
	// ConstraintRow means the returned set is authoritative.
	ConstraintRow
)

func (c Constraint) String() string {
	switch c {
	case ConstraintNone:
		return "none"
	case ConstraintMissingRow:
		return "missing_row"
	case ConstraintRow:
		return "row"
	}
	return "unknown"
}

// Permits reports whether code is acceptable under the constraint.
func (c Constraint) Permits(set CodeSet, code string) bool {
	switch c {
	case ConstraintNone:
		return true
	case ConstraintRow:
		return set.Has(code)
	}
	return false
}

// AllowPolicy decides what an empty lookup allow-list means.
type AllowPolicy int

const (
	AllowAllWhenEmpty AllowPolicy = iota
	AllowNoneWhenEmpty
)

// StaleCode is a snapshot code that no longer resolves in the live schema.
type StaleCode struct {
	Attribute string `json:"attribute"`
	Code      string `json:"code"`
}

// Index is a snapshot bound to a live product type. It is rebuilt per use and
// never persisted.
type Index struct {
	snap *Snapshot
	pt   *catalog.ProductType

	defs          map[string]*catalog.AttributeDefinition
	enumOptions   map[string]map[string]*catalog.EnumAttributeOption
	lookupOptions map[string]map[string]*catalog.LookupOption
	allowed       map[string]CodeSet
	enumDeps      DependencyMap
	lookupDeps    DependencyMap
	parents       map[string][]string
	stale         []StaleCode
}

// Hydrate resolves the snapshot's codes against pt. Codes the live schema no
// longer has are dropped and reported by Stale. Inherited attributes are not
// part of the snapshot; they resolve from the ancestors' live definitions.
// The snapshot is only read.
func Hydrate(snap *Snapshot, pt *catalog.ProductType) (*Index, error) {
	if snap == nil || pt == nil {
		return nil, catalog.NewStateError("Hydrate", "snapshot and product type are required")
	}
	if snap.ProductTypeID != pt.ID {
		return nil, catalog.NewStateError("Hydrate", "snapshot belongs to another product type",
			"product_type", pt.Key, "snapshot_product_type", snap.ProductTypeID.String())
	}
	idx := &Index{
		snap:          snap,
		pt:            pt,
		defs:          map[string]*catalog.AttributeDefinition{},
		enumOptions:   map[string]map[string]*catalog.EnumAttributeOption{},
		lookupOptions: map[string]map[string]*catalog.LookupOption{},
		allowed:       make(map[string]CodeSet, len(snap.LookupAllowed)),
		parents:       map[string][]string{},
	}
	for _, d := range pt.AllAttributes() {
		idx.defs[d.Key] = d
	}

	for _, key := range sortedKeys(snap.EnumOptions) {
		d := idx.defs[key]
		resolved := map[string]*catalog.EnumAttributeOption{}
		for _, code := range snap.EnumOptions[key].Sorted() {
			var o *catalog.EnumAttributeOption
			if d != nil && d.Enum != nil {
				o = d.Enum.OptionByCode(code)
			}
			if o == nil {
				idx.stale = append(idx.stale, StaleCode{Attribute: key, Code: code})
				continue
			}
			resolved[code] = o
		}
		idx.enumOptions[key] = resolved
	}
	for _, key := range sortedKeys(snap.LookupOptions) {
		d := idx.defs[key]
		resolved := map[string]*catalog.LookupOption{}
		for _, code := range snap.LookupOptions[key].Sorted() {
			var o *catalog.LookupOption
			if d != nil && d.Lookup != nil {
				o = pt.LookupOption(d, code)
			}
			if o == nil {
				idx.stale = append(idx.stale, StaleCode{Attribute: key, Code: code})
				continue
			}
			resolved[code] = o
		}
		idx.lookupOptions[key] = resolved
	}
	for key, codes := range snap.LookupAllowed {
		idx.allowed[key] = codes
	}

	if err := idx.resolveInherited(); err != nil {
		return nil, err
	}

	seen := map[string]map[string]bool{}
	for _, deps := range []DependencyMap{idx.enumDeps, idx.lookupDeps} {
		for _, pair := range deps.Pairs() {
			if seen[pair[1]] == nil {
				seen[pair[1]] = map[string]bool{}
			}
			if !seen[pair[1]][pair[0]] {
				seen[pair[1]][pair[0]] = true
				idx.parents[pair[1]] = append(idx.parents[pair[1]], pair[0])
			}
		}
	}
	for child := range idx.parents {
		sort.Strings(idx.parents[child])
	}
	return idx, nil
}

// resolveInherited adds the ancestors' option-backed attributes and the
// dependency pairs that involve them. Pairs between two own attributes always
// come from the snapshot.
func (x *Index) resolveInherited() error {
	pt := x.pt
	for _, d := range pt.Inherited {
		switch d.Kind {
		case catalog.KindEnum:
			if d.Enum == nil {
				continue
			}
			if _, ok := x.enumOptions[d.Key]; ok {
				continue
			}
			resolved := map[string]*catalog.EnumAttributeOption{}
			for _, code := range d.Enum.Codes() {
				resolved[code] = d.Enum.OptionByCode(code)
			}
			x.enumOptions[d.Key] = resolved
		case catalog.KindLookup:
			t := pt.LookupType(d)
			if t == nil {
				continue
			}
			if _, ok := x.lookupOptions[d.Key]; ok {
				continue
			}
			resolved := map[string]*catalog.LookupOption{}
			for _, code := range t.Codes() {
				resolved[code] = t.OptionByCode(code)
			}
			x.lookupOptions[d.Key] = resolved
			codes, ok := pt.AllowList(t.ID)
			if !ok && !t.OpenConstraint {
				continue
			}
			allowed := NewCodeSet()
			for _, code := range codes {
				if _, ok := resolved[code]; ok {
					allowed.Add(code)
				}
			}
			x.allowed[d.Key] = allowed
		}
	}

	enumLive := DependencyMap{}
	if err := compileEnumDependencies(pt, pt.Inherited, enumLive); err != nil {
		return err
	}
	x.enumDeps = overlay(x.snap.EnumDependencies, enumLive)

	own := keysOf(pt.Attributes)
	lookupLive := DependencyMap{}
	compileLookupDependencies(pt, pt.AllAttributes(), lookupLive)
	for parentKey, children := range lookupLive {
		for childKey := range children {
			if own[parentKey] && own[childKey] {
				delete(children, childKey)
			}
		}
		if len(children) == 0 {
			delete(lookupLive, parentKey)
		}
	}
	x.lookupDeps = overlay(x.snap.LookupDependencies, lookupLive)
	return nil
}

// overlay returns base with extra's pairs added. base may be shared with a
// cached snapshot and is never written.
func overlay(base, extra DependencyMap) DependencyMap {
	if len(extra) == 0 {
		return base
	}
	out := make(DependencyMap, len(base)+len(extra))
	for parentKey, children := range base {
		out[parentKey] = children
	}
	for parentKey, children := range extra {
		merged := make(map[string]map[string]CodeSet, len(out[parentKey])+len(children))
		for childKey, rows := range out[parentKey] {
			merged[childKey] = rows
		}
		for childKey, rows := range children {
			if _, ok := merged[childKey]; !ok {
				merged[childKey] = rows
			}
		}
		out[parentKey] = merged
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (x *Index) Snapshot() *Snapshot { return x.snap }

func (x *Index) ProductType() *catalog.ProductType { return x.pt }

// Stale lists snapshot codes dropped during hydration.
func (x *Index) Stale() []StaleCode { return append([]StaleCode(nil), x.stale...) }

// Parents returns the keys of attributes gating childKey through any declared pair.
func (x *Index) Parents(childKey string) []string {
	return append([]string(nil), x.parents[childKey]...)
}

func (x *Index) Definition(key string) (*catalog.AttributeDefinition, bool) {
	d, ok := x.defs[key]
	return d, ok
}

func (x *Index) EnumOption(attrKey, code string) (*catalog.EnumAttributeOption, bool) {
	o, ok := x.enumOptions[attrKey][code]
	return o, ok
}

func (x *Index) LookupOption(attrKey, code string) (*catalog.LookupOption, bool) {
	o, ok := x.lookupOptions[attrKey][code]
	return o, ok
}

// HasOption reports whether code resolves for an enum or lookup attribute.
func (x *Index) HasOption(attrKey, code string) bool {
	if _, ok := x.EnumOption(attrKey, code); ok {
		return true
	}
	_, ok := x.LookupOption(attrKey, code)
	return ok
}

// OptionCodes returns the resolvable codes of an enum or lookup attribute.
func (x *Index) OptionCodes(attrKey string) []string {
	if opts, ok := x.enumOptions[attrKey]; ok {
		return sortedKeys(opts)
	}
	return sortedKeys(x.lookupOptions[attrKey])
}

func (x *Index) HasEnumDependency(parentKey, childKey string) bool {
	return x.enumDeps.Has(parentKey, childKey)
}

func (x *Index) HasLookupDependency(parentKey, childKey string) bool {
	return x.lookupDeps.Has(parentKey, childKey)
}

// EnumAllowedChildren returns the dense row for parentCode.
func (x *Index) EnumAllowedChildren(parentKey, childKey, parentCode string) (CodeSet, Constraint) {
	if !x.HasEnumDependency(parentKey, childKey) {
		return nil, ConstraintNone
	}
	row, ok := x.enumDeps.Row(parentKey, childKey, parentCode)
	if !ok {
		return NewCodeSet(), ConstraintMissingRow
	}
	return row, ConstraintRow
}

// IsLookupOptionAllowed checks code against the attribute's allow-list. An
// attribute without an allow-list entry is an invalid state.
func (x *Index) IsLookupOptionAllowed(attrKey, code string, policy AllowPolicy) (bool, error) {
	allowed, ok := x.allowed[attrKey]
	if !ok {
		return false, catalog.NewStateError("Index.IsLookupOptionAllowed", "lookup attribute has no allow-list entry", "attribute", attrKey)
	}
	if len(allowed) == 0 {
		return policy == AllowAllWhenEmpty, nil
	}
	return allowed.Has(code), nil
}

// LookupAllowedChildren returns the dense row for parentCode intersected with
// the child's allow-list.
func (x *Index) LookupAllowedChildren(parentKey, childKey, parentCode string, policy AllowPolicy) (CodeSet, Constraint, error) {
	if !x.HasLookupDependency(parentKey, childKey) {
		return nil, ConstraintNone, nil
	}
	row, ok := x.lookupDeps.Row(parentKey, childKey, parentCode)
	if !ok {
		return NewCodeSet(), ConstraintMissingRow, nil
	}
	out := NewCodeSet()
	for code := range row {
		allowed, err := x.IsLookupOptionAllowed(childKey, code, policy)
		if err != nil {
			return nil, ConstraintRow, err
		}
		if allowed {
			out.Add(code)
		}
	}
	return out, ConstraintRow, nil
}

// childAllows evaluates one declared pair for a parent and child code.
func (x *Index) childAllows(parentKey, childKey, parentCode, childCode string, policy AllowPolicy) (bool, error) {
	if x.HasEnumDependency(parentKey, childKey) {
		row, c := x.EnumAllowedChildren(parentKey, childKey, parentCode)
		if !c.Permits(row, childCode) {
			return false, nil
		}
	}
	if x.HasLookupDependency(parentKey, childKey) {
		row, c, err := x.LookupAllowedChildren(parentKey, childKey, parentCode, policy)
		if err != nil {
			return false, err
		}
		if !c.Permits(row, childCode) {
			return false, nil
		}
	}
	return true, nil
}
