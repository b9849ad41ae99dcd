// Package index compiles a product type's option graph into a serializable
// Snapshot, rehydrates it against a live schema into an Index, and answers
// combination and reachability queries through a validation Session.
package index

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/catalog-backend/internal/domain/catalog"
)

// CodeSet is a set of option codes. It serializes as a sorted JSON array.
type CodeSet map[string]struct{}

func NewCodeSet(codes ...string) CodeSet {
	s := make(CodeSet, len(codes))
	for _, c := range codes {
		s[c] = struct{}{}
	}
	return s
}

func (s CodeSet) Has(code string) bool {
	_, ok := s[code]
	return ok
}

func (s CodeSet) Add(code string) { s[code] = struct{}{} }

// Sorted returns the codes in lexical order.
func (s CodeSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (s CodeSet) clone() CodeSet {
	out := make(CodeSet, len(s))
	for c := range s {
		out[c] = struct{}{}
	}
	return out
}

func (s CodeSet) MarshalJSON() ([]byte, error) { return json.Marshal(s.Sorted()) }

func (s *CodeSet) UnmarshalJSON(data []byte) error {
	var codes []string
	if err := json.Unmarshal(data, &codes); err != nil {
		return err
	}
	*s = NewCodeSet(codes...)
	return nil
}

// DependencyMap is parentKey -> childKey -> parentCode -> allowed child codes.
type DependencyMap map[string]map[string]map[string]CodeSet

func (m DependencyMap) declare(parentKey, childKey string) map[string]CodeSet {
	children, ok := m[parentKey]
	if !ok {
		children = map[string]map[string]CodeSet{}
		m[parentKey] = children
	}
	rows, ok := children[childKey]
	if !ok {
		rows = map[string]CodeSet{}
		children[childKey] = rows
	}
	return rows
}

// Has reports whether the pair is declared, independent of any code.
func (m DependencyMap) Has(parentKey, childKey string) bool {
	_, ok := m[parentKey][childKey]
	return ok
}

// Row returns the dense row for parentCode of a declared pair.
func (m DependencyMap) Row(parentKey, childKey, parentCode string) (CodeSet, bool) {
	row, ok := m[parentKey][childKey][parentCode]
	return row, ok
}

// Pairs lists declared (parent, child) pairs in sorted order.
func (m DependencyMap) Pairs() [][2]string {
	var out [][2]string
	for p, children := range m {
		for c := range children {
			out = append(out, [2]string{p, c})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}

// Snapshot is the immutable, code-only compilation of one product type version.
// It is the durable contract stored alongside the product type and in caches.
type Snapshot struct {
	ProductTypeID      uuid.UUID          `json:"product_type_id"`
	ProductTypeKey     string             `json:"product_type_key"`
	Version            int                `json:"version"`
	BuiltAt            time.Time          `json:"built_at"`
	EnumOptions        map[string]CodeSet `json:"enum_options"`
	LookupOptions      map[string]CodeSet `json:"lookup_options"`
	EnumDependencies   DependencyMap      `json:"enum_dependencies"`
	LookupDependencies DependencyMap      `json:"lookup_dependencies"`
	LookupAllowed      map[string]CodeSet `json:"lookup_allowed"`
}

func newSnapshot(pt *catalog.ProductType, now time.Time) *Snapshot {
	return &Snapshot{
		ProductTypeID:      pt.ID,
		ProductTypeKey:     pt.Key,
		Version:            pt.Version,
		BuiltAt:            now.UTC(),
		EnumOptions:        map[string]CodeSet{},
		LookupOptions:      map[string]CodeSet{},
		EnumDependencies:   DependencyMap{},
		LookupDependencies: DependencyMap{},
		LookupAllowed:      map[string]CodeSet{},
	}
}

func (s *Snapshot) Marshal() ([]byte, error) { return json.Marshal(s) }

// UnmarshalSnapshot decodes and density-checks a persisted snapshot.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, catalog.NewStateError("UnmarshalSnapshot", "snapshot payload is not valid json: "+err.Error())
	}
	s.normalize()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Snapshot) normalize() {
	if s.EnumOptions == nil {
		s.EnumOptions = map[string]CodeSet{}
	}
	if s.LookupOptions == nil {
		s.LookupOptions = map[string]CodeSet{}
	}
	if s.EnumDependencies == nil {
		s.EnumDependencies = DependencyMap{}
	}
	if s.LookupDependencies == nil {
		s.LookupDependencies = DependencyMap{}
	}
	if s.LookupAllowed == nil {
		s.LookupAllowed = map[string]CodeSet{}
	}
}

// Validate checks the dense-row invariant: every declared pair has a row for
// each of the parent's option codes, and rows only name known child codes. It
// also requires every lookup attribute to carry an allow-list entry.
func (s *Snapshot) Validate() error {
	const op = "Snapshot.Validate"
	check := func(deps DependencyMap, options map[string]CodeSet, kind string) error {
		for _, pair := range deps.Pairs() {
			parentCodes, ok := options[pair[0]]
			if !ok {
				return catalog.NewStateError(op, "dependency parent has no option set", "kind", kind, "parent", pair[0], "child", pair[1])
			}
			childCodes, ok := options[pair[1]]
			if !ok {
				return catalog.NewStateError(op, "dependency child has no option set", "kind", kind, "parent", pair[0], "child", pair[1])
			}
			rows := deps[pair[0]][pair[1]]
			for _, code := range parentCodes.Sorted() {
				if _, ok := rows[code]; !ok {
					return catalog.NewStateError(op, "dependency row missing for parent code",
						"kind", kind, "parent", pair[0], "child", pair[1], "code", code)
				}
			}
			for parentCode, row := range rows {
				for childCode := range row {
					if !childCodes.Has(childCode) {
						return catalog.NewStateError(op, "dependency row names an unknown child code",
							"kind", kind, "parent", pair[0], "child", pair[1], "parent_code", parentCode, "code", childCode)
					}
				}
			}
		}
		return nil
	}
	if err := check(s.EnumDependencies, s.EnumOptions, "enum"); err != nil {
		return err
	}
	if err := check(s.LookupDependencies, s.LookupOptions, "lookup"); err != nil {
		return err
	}
	for key := range s.LookupOptions {
		if _, ok := s.LookupAllowed[key]; !ok {
			return catalog.NewStateError(op, "lookup attribute has no allow-list entry", "attribute", key)
		}
	}
	return nil
}
