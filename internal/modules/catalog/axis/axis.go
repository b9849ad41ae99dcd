// Package axis validates a listing's persisted variant axes against its
// product type schema and checks that each concrete variant matches exactly
// one offered choice per axis.
package axis

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/catalog-backend/internal/domain/catalog"
	"github.com/yungbote/catalog-backend/internal/modules/catalog/index"
)

// Schema is the slice of a product type the validators read.
// *catalog.ProductType satisfies it.
type Schema interface {
	Attribute(key string) *catalog.AttributeDefinition
	GroupMembers(group *catalog.AttributeDefinition) []*catalog.AttributeDefinition
	LookupType(d *catalog.AttributeDefinition) *catalog.LookupType
}

// AxisChoiceSnapshot is one offered value. Exactly one field is set.
type AxisChoiceSnapshot struct {
	EnumCode   string            `json:"enum_code,omitempty"`
	LookupCode string            `json:"lookup_code,omitempty"`
	Number     *decimal.Decimal  `json:"number,omitempty"`
	Group      []decimal.Decimal `json:"group,omitempty"`
}

func (c AxisChoiceSnapshot) set() int {
	n := 0
	if c.EnumCode != "" {
		n++
	}
	if c.LookupCode != "" {
		n++
	}
	if c.Number != nil {
		n++
	}
	if len(c.Group) > 0 {
		n++
	}
	return n
}

func (c AxisChoiceSnapshot) String() string {
	switch {
	case c.EnumCode != "":
		return c.EnumCode
	case c.LookupCode != "":
		return c.LookupCode
	case c.Number != nil:
		return c.Number.String()
	}
	parts := make([]string, len(c.Group))
	for i, v := range c.Group {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, ",") + "]"
}

type AxisSnapshot struct {
	AttributeKey string               `json:"attribute_key"`
	IsGroup      bool                 `json:"is_group"`
	Choices      []AxisChoiceSnapshot `json:"choices"`
}

// VariantAxisSnapshot is the persisted description of a listing's axes.
type VariantAxisSnapshot struct {
	Axes []AxisSnapshot `json:"axes"`
}

// ValidateSchema checks every axis against the schema: the attribute exists
// and is a variant, non-group axes are enum, lookup or numeric and appear
// once, group axes reference a group whose members no other axis covers, and
// every choice carries the payload its attribute's kind requires.
func (s *VariantAxisSnapshot) ValidateSchema(schema Schema) error {
	const op = "VariantAxisSnapshot.ValidateSchema"
	covered := map[uuid.UUID]string{}
	cover := func(d *catalog.AttributeDefinition, axisKey string) error {
		if prev, ok := covered[d.ID]; ok {
			return catalog.NewRuleError(catalog.CodeDuplicateKey, op, "attribute is covered by more than one axis",
				"attribute", d.Key, "axis", axisKey, "previous_axis", prev)
		}
		covered[d.ID] = axisKey
		return nil
	}

	for _, a := range s.Axes {
		d := schema.Attribute(a.AttributeKey)
		if d == nil {
			return catalog.NewRuleError(catalog.CodeAttributeNotFound, op, "axis attribute not found", "attribute", a.AttributeKey)
		}
		if !d.IsVariant {
			return catalog.NewRuleError(catalog.CodeInvalidAxis, op, "axis attribute is not a variant attribute", "attribute", d.Key)
		}
		if len(a.Choices) == 0 {
			return catalog.NewRuleError(catalog.CodeInvalidAxis, op, "axis offers no choices", "attribute", d.Key)
		}

		var members []*catalog.AttributeDefinition
		if a.IsGroup {
			if d.Kind != catalog.KindGroup {
				return catalog.NewRuleError(catalog.CodeInvalidAxis, op, "group axis must reference a group attribute",
					"attribute", d.Key, "kind", string(d.Kind))
			}
			if err := cover(d, d.Key); err != nil {
				return err
			}
			members = schema.GroupMembers(d)
			for _, m := range members {
				if err := cover(m, d.Key); err != nil {
					return err
				}
			}
		} else {
			if !d.Kind.CanBeAxis() {
				return catalog.NewRuleError(catalog.CodeInvalidAxis, op, "attribute kind cannot be an axis",
					"attribute", d.Key, "kind", string(d.Kind))
			}
			if err := cover(d, d.Key); err != nil {
				return err
			}
		}

		seen := map[string]bool{}
		for _, c := range a.Choices {
			if err := checkChoice(op, schema, d, members, c); err != nil {
				return err
			}
			sig := c.String()
			if seen[sig] {
				return catalog.NewRuleError(catalog.CodeInvalidAxis, op, "axis offers a choice twice", "attribute", d.Key, "choice", sig)
			}
			seen[sig] = true
		}
	}
	return nil
}

func checkChoice(op string, schema Schema, d *catalog.AttributeDefinition, members []*catalog.AttributeDefinition, c AxisChoiceSnapshot) error {
	if c.set() != 1 {
		return catalog.NewRuleError(catalog.CodeInvalidAxis, op, "choice must carry exactly one value", "attribute", d.Key)
	}
	switch {
	case d.Kind == catalog.KindEnum:
		if c.EnumCode == "" {
			return catalog.NewRuleError(catalog.CodeInvalidAxis, op, "enum axis choice needs an enum code", "attribute", d.Key)
		}
		if d.Enum.OptionByCode(c.EnumCode) == nil {
			return catalog.NewRuleError(catalog.CodeOptionNotFound, op, "option not found", "attribute", d.Key, "code", c.EnumCode)
		}
	case d.Kind == catalog.KindLookup:
		if c.LookupCode == "" {
			return catalog.NewRuleError(catalog.CodeInvalidAxis, op, "lookup axis choice needs a lookup code", "attribute", d.Key)
		}
		if schema.LookupType(d).OptionByCode(c.LookupCode) == nil {
			return catalog.NewRuleError(catalog.CodeOptionNotFound, op, "option not found", "attribute", d.Key, "code", c.LookupCode)
		}
	case d.Kind.IsNumeric():
		if c.Number == nil {
			return catalog.NewRuleError(catalog.CodeInvalidAxis, op, "numeric axis choice needs a number", "attribute", d.Key)
		}
		return checkNumber(op, d, *c.Number)
	case d.Kind == catalog.KindGroup:
		if len(c.Group) != len(members) {
			return catalog.NewRuleError(catalog.CodeInvalidAxis, op, "group choice does not match member count",
				"attribute", d.Key, "choice", c.String())
		}
		for i, m := range members {
			if err := checkNumber(op, m, c.Group[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkNumber(op string, d *catalog.AttributeDefinition, v decimal.Decimal) error {
	if d.Numeric != nil && !d.Numeric.InRange(v) {
		return catalog.NewRuleError(catalog.CodeOutOfRange, op, "value out of range", "attribute", d.Key, "value", v.String())
	}
	return nil
}

// FromInputs materializes the axis-shaped inputs of a listing into a snapshot,
// ordered by attribute position then key. Numeric ranges are not sellable
// choices and are rejected.
func FromInputs(schema Schema, inputs index.Inputs) (*VariantAxisSnapshot, error) {
	const op = "axis.FromInputs"
	var defs []*catalog.AttributeDefinition
	for key, in := range inputs {
		if !in.Shape.IsAxis() {
			continue
		}
		d := schema.Attribute(key)
		if d == nil {
			return nil, catalog.NewRuleError(catalog.CodeAttributeNotFound, op, "axis attribute not found", "attribute", key)
		}
		defs = append(defs, d)
	}
	catalog.SortDefinitions(defs)

	out := &VariantAxisSnapshot{}
	for _, d := range defs {
		in := inputs[d.Key]
		a := AxisSnapshot{AttributeKey: d.Key, IsGroup: in.Shape == index.ShapeGroupAxis}
		switch in.Shape {
		case index.ShapeCodeAxis:
			for _, code := range in.Codes {
				if d.Kind == catalog.KindLookup {
					a.Choices = append(a.Choices, AxisChoiceSnapshot{LookupCode: code})
				} else {
					a.Choices = append(a.Choices, AxisChoiceSnapshot{EnumCode: code})
				}
			}
		case index.ShapeNumericAxis:
			for _, n := range in.Numbers {
				if n.Value == nil {
					return nil, catalog.NewRuleError(catalog.CodeInvalidAxis, op, "numeric ranges cannot be variant choices", "attribute", d.Key)
				}
				v := *n.Value
				a.Choices = append(a.Choices, AxisChoiceSnapshot{Number: &v})
			}
		case index.ShapeGroupAxis:
			for _, tuple := range in.Tuples {
				a.Choices = append(a.Choices, AxisChoiceSnapshot{Group: append([]decimal.Decimal(nil), tuple...)})
			}
		}
		out.Axes = append(out.Axes, a)
	}
	return out, nil
}

// Keys returns the axis attribute keys in snapshot order.
func (s *VariantAxisSnapshot) Keys() []string {
	out := make([]string, 0, len(s.Axes))
	for _, a := range s.Axes {
		out = append(out, a.AttributeKey)
	}
	return out
}

func sortedIDs(m map[uuid.UUID]VariantValue) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
