package catalog

import (
	"strconv"

	"github.com/google/uuid"
)

// Check runs the publish-time consistency rules over the own schema and returns
// the first violation found.
func (pt *ProductType) Check() error {
	checks := []func() error{
		pt.checkShape,
		pt.checkLookups,
		pt.checkGroups,
		pt.checkDependencies,
		func() error { return CheckAcyclic(pt) },
		pt.checkScoping,
		pt.checkAllowLists,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (pt *ProductType) checkShape() error {
	const op = "ProductType.Publish"
	if !ValidKey(pt.Key) {
		return NewRuleError(CodeInvalidKey, op, "product type key must be lower_snake", "product_type", pt.Key)
	}
	keys := map[string]bool{}
	for _, d := range pt.Inherited {
		keys[d.Key] = true
	}
	positions := map[int]string{}
	for _, d := range pt.Attributes {
		if !ValidKey(d.Key) {
			return NewRuleError(CodeInvalidKey, op, "attribute key must be lower_snake", "attribute", d.Key)
		}
		if keys[d.Key] {
			return NewRuleError(CodeDuplicateKey, op, "attribute key already used", "attribute", d.Key)
		}
		keys[d.Key] = true
		if other, ok := positions[d.Position]; ok {
			return NewRuleError(CodeDuplicatePosition, op, "attribute position already used",
				"attribute", d.Key, "conflicts_with", other)
		}
		positions[d.Position] = d.Key
		if err := checkPayload(op, d); err != nil {
			return err
		}
		if d.Enum != nil {
			codes := map[string]bool{}
			optPositions := map[int]string{}
			for _, o := range d.Enum.Options {
				if codes[o.Code] {
					return NewRuleError(CodeDuplicateCode, op, "option code already used", "attribute", d.Key, "code", o.Code)
				}
				codes[o.Code] = true
				if other, ok := optPositions[o.Position]; ok {
					return NewRuleError(CodeDuplicatePosition, op, "option position already used",
						"attribute", d.Key, "code", o.Code, "conflicts_with", other)
				}
				optPositions[o.Position] = o.Code
			}
		}
		if d.Numeric != nil && d.Numeric.Min != nil && d.Numeric.Max != nil && d.Numeric.Min.GreaterThan(*d.Numeric.Max) {
			return NewRuleError(CodeOutOfRange, op, "min exceeds max", "attribute", d.Key)
		}
	}
	return nil
}

func checkPayload(op string, d *AttributeDefinition) error {
	set := 0
	for _, present := range []bool{d.Numeric != nil, d.Enum != nil, d.Lookup != nil, d.Group != nil} {
		if present {
			set++
		}
	}
	want := 1
	ok := false
	switch d.Kind {
	case KindInt, KindDecimal:
		ok = d.Numeric != nil
	case KindEnum:
		ok = d.Enum != nil
	case KindLookup:
		ok = d.Lookup != nil
	case KindGroup:
		ok = d.Group != nil
	case KindString, KindBool, KindDate:
		ok, want = true, 0
	default:
		return NewRuleError(CodeInvalidInput, op, "unknown attribute kind", "attribute", d.Key, "kind", string(d.Kind))
	}
	if !ok || set != want {
		return NewRuleError(CodeInvalidInput, op, "attribute payload does not match its kind",
			"attribute", d.Key, "kind", string(d.Kind))
	}
	return nil
}

func (pt *ProductType) checkLookups() error {
	const op = "ProductType.Publish"
	used := map[uuid.UUID]string{}
	for _, d := range pt.AllAttributes() {
		if d.Lookup == nil {
			continue
		}
		lt := pt.Lookups.Type(d.Lookup.LookupTypeID)
		if lt == nil {
			return NewRuleError(CodeLookupTypeNotFound, op, "lookup type not found", "attribute", d.Key)
		}
		if other, ok := used[lt.ID]; ok {
			return NewRuleError(CodeDuplicateLookupType, op, "lookup type referenced by more than one attribute",
				"attribute", d.Key, "lookup_type", lt.Key, "conflicts_with", other)
		}
		used[lt.ID] = d.Key
	}
	return nil
}

func (pt *ProductType) checkGroups() error {
	const op = "ProductType.Publish"
	for _, d := range pt.Attributes {
		if d.Group == nil {
			continue
		}
		if !d.IsVariant {
			return NewRuleError(CodeInvalidGroup, op, "group attributes are variant axes", "attribute", d.Key)
		}
		if len(d.Group.MemberIDs) < 2 {
			return NewRuleError(CodeInvalidGroup, op, "group needs at least two members", "attribute", d.Key)
		}
		seen := map[uuid.UUID]bool{}
		var first *AttributeDefinition
		for _, id := range d.Group.MemberIDs {
			m := pt.AttributeByID(id)
			if m == nil {
				return NewRuleError(CodeAttributeNotFound, op, "group member not found", "attribute", d.Key, "member", id.String())
			}
			if !m.Kind.IsNumeric() {
				return NewRuleError(CodeInvalidGroup, op, "group members must be numeric", "attribute", d.Key, "member", m.Key)
			}
			if seen[id] {
				return NewRuleError(CodeInvalidGroup, op, "group member listed twice", "attribute", d.Key, "member", m.Key)
			}
			seen[id] = true
			if first == nil {
				first = m
			} else if m.Kind != first.Kind || unitOf(m) != unitOf(first) {
				return NewRuleError(CodeInvalidGroup, op, "group members must share numeric kind and unit",
					"attribute", d.Key, "member", m.Key)
			}
		}
	}
	return nil
}

func (pt *ProductType) checkDependencies() error {
	const op = "ProductType.Publish"
	for _, d := range pt.Attributes {
		if d.DependsOnID == nil {
			continue
		}
		parent := pt.ownAttributeByID(*d.DependsOnID)
		if parent == nil {
			ref := d.DependsOnID.String()
			if other := pt.AttributeByID(*d.DependsOnID); other != nil {
				ref = other.Key
			}
			return NewRuleError(CodeInvalidDependency, op, "dependency parent must belong to this product type",
				"attribute", d.Key, "depends_on", ref)
		}
		if err := pt.checkDependencyKinds(op, d, parent); err != nil {
			return err
		}
	}
	return nil
}

func (pt *ProductType) checkScoping() error {
	const op = "ProductType.Publish"
	for _, d := range pt.Attributes {
		if d.Enum == nil {
			continue
		}
		parent := pt.DependsOn(d)
		for _, o := range d.Enum.Options {
			switch {
			case parent == nil && o.ParentOptionID != nil:
				return NewRuleError(CodeScopeMismatch, op, "option is scoped but attribute has no dependency",
					"attribute", d.Key, "code", o.Code)
			case parent != nil && o.ParentOptionID == nil:
				return NewRuleError(CodeScopeMismatch, op, "dependent attribute has an unscoped option",
					"attribute", d.Key, "code", o.Code, "depends_on", parent.Key)
			case parent != nil && parent.Enum.OptionByID(*o.ParentOptionID) == nil:
				return NewRuleError(CodeScopeMismatch, op, "option is scoped to an option of another attribute",
					"attribute", d.Key, "code", o.Code, "depends_on", parent.Key)
			}
		}
	}
	return nil
}

func (pt *ProductType) checkAllowLists() error {
	const op = "ProductType.Publish"
	for _, d := range pt.Attributes {
		if d.Lookup == nil {
			continue
		}
		lt := pt.Lookups.Type(d.Lookup.LookupTypeID)
		codes := pt.LookupAllowed[lt.ID]
		if len(codes) == 0 && !lt.OpenConstraint {
			return NewRuleError(CodeMissingAllowList, op, "lookup attribute needs an allow-list",
				"attribute", d.Key, "lookup_type", lt.Key)
		}
		for i, c := range codes {
			if lt.OptionByCode(c) == nil {
				return NewRuleError(CodeOptionNotFound, op, "allow-list references an unknown option",
					"attribute", d.Key, "lookup_type", lt.Key, "code", c, "index", strconv.Itoa(i))
			}
		}
	}
	return nil
}
