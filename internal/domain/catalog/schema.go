package catalog

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AttributeDefinition is one typed field of a product type. Exactly one of the
// kind payloads (Numeric, Enum, Lookup, Group) is set for the kinds that carry
// one; String, Bool and Date carry none.
type AttributeDefinition struct {
	ID            uuid.UUID
	ProductTypeID uuid.UUID
	Key           string
	Name          string
	Kind          AttributeKind
	IsRequired    bool
	IsVariant     bool
	Position      int
	DependsOnID   *uuid.UUID

	Numeric *NumericSpec
	Enum    *EnumSpec
	Lookup  *LookupSpec
	Group   *GroupSpec
}

type NumericSpec struct {
	Unit string
	Min  *decimal.Decimal
	Max  *decimal.Decimal
}

// InRange reports whether v lies within the optional [Min, Max] bounds.
func (s *NumericSpec) InRange(v decimal.Decimal) bool {
	if s == nil {
		return true
	}
	if s.Min != nil && v.LessThan(*s.Min) {
		return false
	}
	if s.Max != nil && v.GreaterThan(*s.Max) {
		return false
	}
	return true
}

type EnumSpec struct {
	Options []*EnumAttributeOption
}

func (s *EnumSpec) OptionByCode(code string) *EnumAttributeOption {
	if s == nil {
		return nil
	}
	for _, o := range s.Options {
		if o.Code == code {
			return o
		}
	}
	return nil
}

func (s *EnumSpec) OptionByID(id uuid.UUID) *EnumAttributeOption {
	if s == nil {
		return nil
	}
	for _, o := range s.Options {
		if o.ID == id {
			return o
		}
	}
	return nil
}

// Codes returns option codes in display order.
func (s *EnumSpec) Codes() []string {
	if s == nil {
		return nil
	}
	opts := append([]*EnumAttributeOption(nil), s.Options...)
	sortOptions(opts)
	out := make([]string, 0, len(opts))
	for _, o := range opts {
		out = append(out, o.Code)
	}
	return out
}

type LookupSpec struct {
	LookupTypeID uuid.UUID
}

// GroupSpec lists member attribute IDs; members are numeric attributes of the
// same product type (own or inherited).
type GroupSpec struct {
	MemberIDs []uuid.UUID
}

// EnumAttributeOption belongs to exactly one enum attribute. ParentOptionID
// scopes it to an option of the attribute's DependsOn parent.
type EnumAttributeOption struct {
	ID             uuid.UUID
	AttributeID    uuid.UUID
	Code           string
	Label          string
	Position       int
	ParentOptionID *uuid.UUID
}

func (d *AttributeDefinition) HasDependency() bool { return d != nil && d.DependsOnID != nil }

func sortOptions(opts []*EnumAttributeOption) {
	sort.SliceStable(opts, func(i, j int) bool {
		if opts[i].Position != opts[j].Position {
			return opts[i].Position < opts[j].Position
		}
		return opts[i].Code < opts[j].Code
	})
}

// SortDefinitions orders by position then key, the canonical display and
// group-member order.
func SortDefinitions(defs []*AttributeDefinition) {
	sort.SliceStable(defs, func(i, j int) bool {
		if defs[i].Position != defs[j].Position {
			return defs[i].Position < defs[j].Position
		}
		return defs[i].Key < defs[j].Key
	})
}

func (d *AttributeDefinition) clone(idMap map[uuid.UUID]uuid.UUID, ptID uuid.UUID) *AttributeDefinition {
	out := &AttributeDefinition{
		ID:            remap(idMap, d.ID),
		ProductTypeID: ptID,
		Key:           d.Key,
		Name:          d.Name,
		Kind:          d.Kind,
		IsRequired:    d.IsRequired,
		IsVariant:     d.IsVariant,
		Position:      d.Position,
	}
	if d.DependsOnID != nil {
		id := remap(idMap, *d.DependsOnID)
		out.DependsOnID = &id
	}
	if d.Numeric != nil {
		n := *d.Numeric
		out.Numeric = &n
	}
	if d.Lookup != nil {
		l := *d.Lookup
		out.Lookup = &l
	}
	if d.Group != nil {
		members := make([]uuid.UUID, 0, len(d.Group.MemberIDs))
		for _, m := range d.Group.MemberIDs {
			members = append(members, remap(idMap, m))
		}
		out.Group = &GroupSpec{MemberIDs: members}
	}
	if d.Enum != nil {
		opts := make([]*EnumAttributeOption, 0, len(d.Enum.Options))
		for _, o := range d.Enum.Options {
			c := &EnumAttributeOption{
				ID:          remap(idMap, o.ID),
				AttributeID: out.ID,
				Code:        o.Code,
				Label:       o.Label,
				Position:    o.Position,
			}
			if o.ParentOptionID != nil {
				p := remap(idMap, *o.ParentOptionID)
				c.ParentOptionID = &p
			}
			opts = append(opts, c)
		}
		out.Enum = &EnumSpec{Options: opts}
	}
	return out
}

// remap keeps unknown IDs (e.g. inherited members) unchanged.
func remap(idMap map[uuid.UUID]uuid.UUID, id uuid.UUID) uuid.UUID {
	if n, ok := idMap[id]; ok {
		return n
	}
	return id
}
