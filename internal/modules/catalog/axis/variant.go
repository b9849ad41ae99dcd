package axis

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/catalog-backend/internal/domain/catalog"
)

// VariantValue is one persisted attribute value of a variant.
type VariantValue struct {
	AttributeID uuid.UUID        `json:"attribute_id"`
	EnumCode    string           `json:"enum_code,omitempty"`
	LookupCode  string           `json:"lookup_code,omitempty"`
	Number      *decimal.Decimal `json:"number,omitempty"`
}

func (v VariantValue) matches(c AxisChoiceSnapshot) bool {
	switch {
	case c.EnumCode != "":
		return v.EnumCode == c.EnumCode
	case c.LookupCode != "":
		return v.LookupCode == c.LookupCode
	case c.Number != nil:
		return v.Number != nil && v.Number.Equal(*c.Number)
	}
	return false
}

// Variant is a concrete sellable SKU of a listing.
type Variant struct {
	ID     uuid.UUID      `json:"id"`
	SKU    string         `json:"sku"`
	Values []VariantValue `json:"values"`
}

// ValidateVariantCoverage checks that the variant's value for each axis
// matches exactly one offered choice, with group axes compared as member
// tuples in position-then-key order. A value for an attribute no axis
// declares is an invalid state.
func (s *VariantAxisSnapshot) ValidateVariantCoverage(schema Schema, v Variant) error {
	const op = "VariantAxisSnapshot.ValidateVariantCoverage"
	values := make(map[uuid.UUID]VariantValue, len(v.Values))
	for _, val := range v.Values {
		if _, dup := values[val.AttributeID]; dup {
			return catalog.NewStateError(op, "variant carries an attribute twice", "sku", v.SKU, "attribute_id", val.AttributeID.String())
		}
		values[val.AttributeID] = val
	}

	covered := map[uuid.UUID]bool{}
	for _, a := range s.Axes {
		d := schema.Attribute(a.AttributeKey)
		if d == nil {
			return catalog.NewStateError(op, "axis attribute missing from schema", "attribute", a.AttributeKey)
		}
		covered[d.ID] = true

		matched := 0
		if a.IsGroup {
			members := schema.GroupMembers(d)
			tuple := make([]decimal.Decimal, 0, len(members))
			for _, m := range members {
				covered[m.ID] = true
				val, ok := values[m.ID]
				if !ok || val.Number == nil {
					return catalog.NewRuleError(catalog.CodeVariantMismatch, op, "variant has no value for group member",
						"sku", v.SKU, "attribute", d.Key, "member", m.Key)
				}
				tuple = append(tuple, *val.Number)
			}
			for _, c := range a.Choices {
				if tupleEqual(tuple, c.Group) {
					matched++
				}
			}
			if matched != 1 {
				return catalog.NewRuleError(catalog.CodeVariantMismatch, op, "variant group value matches no single choice",
					"sku", v.SKU, "attribute", d.Key, "value", AxisChoiceSnapshot{Group: tuple}.String())
			}
			continue
		}

		val, ok := values[d.ID]
		if !ok {
			return catalog.NewRuleError(catalog.CodeVariantMismatch, op, "variant has no value for axis", "sku", v.SKU, "attribute", d.Key)
		}
		for _, c := range a.Choices {
			if val.matches(c) {
				matched++
			}
		}
		if matched != 1 {
			return catalog.NewRuleError(catalog.CodeVariantMismatch, op, "variant value matches no single choice",
				"sku", v.SKU, "attribute", d.Key)
		}
	}

	for _, id := range sortedIDs(values) {
		if !covered[id] {
			return catalog.NewStateError(op, "variant carries an attribute outside its axis schema", "sku", v.SKU, "attribute_id", id.String())
		}
	}
	return nil
}

func tupleEqual(a, b []decimal.Decimal) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
