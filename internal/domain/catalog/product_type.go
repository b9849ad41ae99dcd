package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductType is the aggregate root owning a versioned attribute schema.
// Attributes are the type's own definitions; Inherited is the read-only,
// materialized set contributed by ancestor types.
type ProductType struct {
	ID          uuid.UUID
	ParentID    *uuid.UUID
	Key         string
	Name        string
	Status      Status
	Version     int
	LockVersion int
	PublishedAt *time.Time

	Attributes []*AttributeDefinition
	Inherited  []*AttributeDefinition
	// LookupAllowed maps lookup type ID to the permitted option codes.
	LookupAllowed map[uuid.UUID][]string
	// InheritedAllowed holds the ancestors' effective allow-lists. An own
	// entry in LookupAllowed for the same type wins.
	InheritedAllowed map[uuid.UUID][]string
	Lookups          *LookupCatalog
}

// AttributeSpec describes a new attribute definition.
type AttributeSpec struct {
	Key             string
	Name            string
	Kind            AttributeKind
	IsRequired      bool
	IsVariant       bool
	Position        int
	DependsOnKey    string
	Unit            string
	Min             *decimal.Decimal
	Max             *decimal.Decimal
	LookupTypeKey   string
	GroupMemberKeys []string
}

// OptionSpec describes a new enum option. ParentCode is required when the
// attribute depends on another attribute and forbidden otherwise.
type OptionSpec struct {
	Code       string
	Label      string
	Position   int
	ParentCode string
}

func NewProductType(key, name string, parent *ProductType, lookups *LookupCatalog) (*ProductType, error) {
	key = strings.TrimSpace(key)
	if !ValidKey(key) {
		return nil, NewRuleError(CodeInvalidKey, "NewProductType", "product type key must be lower_snake", "product_type", key)
	}
	if lookups == nil {
		lookups = NewLookupCatalog()
	}
	pt := &ProductType{
		ID:            uuid.New(),
		Key:           key,
		Name:          strings.TrimSpace(name),
		Status:        StatusDraft,
		Version:       1,
		LookupAllowed: map[uuid.UUID][]string{},
		Lookups:       lookups,
	}
	if parent != nil {
		pid := parent.ID
		pt.ParentID = &pid
		pt.Inherited = parent.AllAttributes()
		pt.InheritedAllowed = parent.EffectiveAllowLists()
	}
	return pt, nil
}

// AllowList returns the allow-list in force for a lookup type: the own entry,
// else the inherited one.
func (pt *ProductType) AllowList(lookupTypeID uuid.UUID) ([]string, bool) {
	if codes, ok := pt.LookupAllowed[lookupTypeID]; ok {
		return codes, true
	}
	codes, ok := pt.InheritedAllowed[lookupTypeID]
	return codes, ok
}

// EffectiveAllowLists merges inherited and own allow-lists into a fresh map.
func (pt *ProductType) EffectiveAllowLists() map[uuid.UUID][]string {
	out := make(map[uuid.UUID][]string, len(pt.InheritedAllowed)+len(pt.LookupAllowed))
	for id, codes := range pt.InheritedAllowed {
		out[id] = append([]string(nil), codes...)
	}
	for id, codes := range pt.LookupAllowed {
		out[id] = append([]string(nil), codes...)
	}
	return out
}

func (pt *ProductType) IsDraft() bool { return pt.Status == StatusDraft }

// AllAttributes returns inherited then own definitions.
func (pt *ProductType) AllAttributes() []*AttributeDefinition {
	out := make([]*AttributeDefinition, 0, len(pt.Inherited)+len(pt.Attributes))
	out = append(out, pt.Inherited...)
	out = append(out, pt.Attributes...)
	return out
}

// Attribute resolves a key against own then inherited definitions.
func (pt *ProductType) Attribute(key string) *AttributeDefinition {
	if d := pt.OwnAttribute(key); d != nil {
		return d
	}
	for _, d := range pt.Inherited {
		if d.Key == key {
			return d
		}
	}
	return nil
}

func (pt *ProductType) OwnAttribute(key string) *AttributeDefinition {
	for _, d := range pt.Attributes {
		if d.Key == key {
			return d
		}
	}
	return nil
}

func (pt *ProductType) AttributeByID(id uuid.UUID) *AttributeDefinition {
	for _, d := range pt.Attributes {
		if d.ID == id {
			return d
		}
	}
	for _, d := range pt.Inherited {
		if d.ID == id {
			return d
		}
	}
	return nil
}

func (pt *ProductType) ownAttributeByID(id uuid.UUID) *AttributeDefinition {
	for _, d := range pt.Attributes {
		if d.ID == id {
			return d
		}
	}
	return nil
}

// DependsOn returns the parent definition of d, if any and resolvable.
func (pt *ProductType) DependsOn(d *AttributeDefinition) *AttributeDefinition {
	if d == nil || d.DependsOnID == nil {
		return nil
	}
	return pt.AttributeByID(*d.DependsOnID)
}

// GroupMembers returns the member definitions of a group in canonical
// position-then-key order. Unresolvable members are skipped.
func (pt *ProductType) GroupMembers(group *AttributeDefinition) []*AttributeDefinition {
	if group == nil || group.Group == nil {
		return nil
	}
	out := make([]*AttributeDefinition, 0, len(group.Group.MemberIDs))
	for _, id := range group.Group.MemberIDs {
		if m := pt.AttributeByID(id); m != nil {
			out = append(out, m)
		}
	}
	SortDefinitions(out)
	return out
}

// LookupType returns the lookup type backing a lookup attribute.
func (pt *ProductType) LookupType(d *AttributeDefinition) *LookupType {
	if d == nil || d.Lookup == nil {
		return nil
	}
	return pt.Lookups.Type(d.Lookup.LookupTypeID)
}

// LookupOption resolves a lookup option code for a lookup attribute.
func (pt *ProductType) LookupOption(d *AttributeDefinition, code string) *LookupOption {
	return pt.LookupType(d).OptionByCode(code)
}

func (pt *ProductType) requireDraft(op string) error {
	if pt.Status != StatusDraft {
		return NewRuleError(CodeWrongState, op, "product type is not a draft", "product_type", pt.Key, "status", string(pt.Status))
	}
	return nil
}

func (pt *ProductType) AddAttribute(spec AttributeSpec) (*AttributeDefinition, error) {
	const op = "ProductType.AddAttribute"
	if err := pt.requireDraft(op); err != nil {
		return nil, err
	}
	key := strings.TrimSpace(spec.Key)
	if !ValidKey(key) {
		return nil, NewRuleError(CodeInvalidKey, op, "attribute key must be lower_snake", "attribute", key)
	}
	if pt.Attribute(key) != nil {
		return nil, NewRuleError(CodeDuplicateKey, op, "attribute key already used", "attribute", key)
	}
	if !spec.Kind.Valid() {
		return nil, NewRuleError(CodeInvalidInput, op, "unknown attribute kind", "attribute", key, "kind", string(spec.Kind))
	}
	for _, d := range pt.Attributes {
		if d.Position == spec.Position {
			return nil, NewRuleError(CodeDuplicatePosition, op, "attribute position already used", "attribute", key, "conflicts_with", d.Key)
		}
	}

	def := &AttributeDefinition{
		ID:            uuid.New(),
		ProductTypeID: pt.ID,
		Key:           key,
		Name:          strings.TrimSpace(spec.Name),
		Kind:          spec.Kind,
		IsRequired:    spec.IsRequired,
		IsVariant:     spec.IsVariant,
		Position:      spec.Position,
	}
	switch spec.Kind {
	case KindInt, KindDecimal:
		if spec.Min != nil && spec.Max != nil && spec.Min.GreaterThan(*spec.Max) {
			return nil, NewRuleError(CodeOutOfRange, op, "min exceeds max", "attribute", key)
		}
		def.Numeric = &NumericSpec{Unit: strings.TrimSpace(spec.Unit), Min: spec.Min, Max: spec.Max}
	case KindEnum:
		def.Enum = &EnumSpec{}
	case KindLookup:
		lt := pt.Lookups.TypeByKey(spec.LookupTypeKey)
		if lt == nil {
			return nil, NewRuleError(CodeLookupTypeNotFound, op, "lookup type not found", "attribute", key, "lookup_type", spec.LookupTypeKey)
		}
		for _, d := range pt.AllAttributes() {
			if d.Lookup != nil && d.Lookup.LookupTypeID == lt.ID {
				return nil, NewRuleError(CodeDuplicateLookupType, op, "lookup type already referenced",
					"attribute", key, "lookup_type", lt.Key, "conflicts_with", d.Key)
			}
		}
		def.Lookup = &LookupSpec{LookupTypeID: lt.ID}
	case KindGroup:
		group, err := pt.resolveGroup(op, key, spec.GroupMemberKeys)
		if err != nil {
			return nil, err
		}
		def.Group = group
	case KindString, KindBool, KindDate:
	}

	if spec.DependsOnKey != "" {
		parent := pt.OwnAttribute(spec.DependsOnKey)
		if parent == nil {
			return nil, NewRuleError(CodeAttributeNotFound, op, "dependency parent not found", "attribute", key, "depends_on", spec.DependsOnKey)
		}
		if err := pt.checkDependencyKinds(op, def, parent); err != nil {
			return nil, err
		}
		pid := parent.ID
		def.DependsOnID = &pid
	}

	pt.Attributes = append(pt.Attributes, def)
	return def, nil
}

func (pt *ProductType) resolveGroup(op, key string, memberKeys []string) (*GroupSpec, error) {
	if len(memberKeys) < 2 {
		return nil, NewRuleError(CodeInvalidGroup, op, "group needs at least two members", "attribute", key)
	}
	seen := map[uuid.UUID]bool{}
	var first *AttributeDefinition
	group := &GroupSpec{}
	for _, mk := range memberKeys {
		m := pt.Attribute(mk)
		if m == nil {
			return nil, NewRuleError(CodeAttributeNotFound, op, "group member not found", "attribute", key, "member", mk)
		}
		if !m.Kind.IsNumeric() {
			return nil, NewRuleError(CodeInvalidGroup, op, "group members must be numeric", "attribute", key, "member", mk)
		}
		if seen[m.ID] {
			return nil, NewRuleError(CodeInvalidGroup, op, "group member listed twice", "attribute", key, "member", mk)
		}
		if first == nil {
			first = m
		} else if m.Kind != first.Kind || unitOf(m) != unitOf(first) {
			return nil, NewRuleError(CodeInvalidGroup, op, "group members must share numeric kind and unit",
				"attribute", key, "member", mk, "expected_kind", string(first.Kind), "expected_unit", unitOf(first))
		}
		seen[m.ID] = true
		group.MemberIDs = append(group.MemberIDs, m.ID)
	}
	return group, nil
}

func unitOf(d *AttributeDefinition) string {
	if d.Numeric == nil {
		return ""
	}
	return d.Numeric.Unit
}

func (pt *ProductType) checkDependencyKinds(op string, child, parent *AttributeDefinition) error {
	if !child.Kind.IsOptionBacked() || !parent.Kind.IsOptionBacked() {
		return NewRuleError(CodeInvalidDependency, op, "only enum and lookup attributes take part in dependencies",
			"attribute", child.Key, "depends_on", parent.Key)
	}
	if child.Kind != parent.Kind {
		return NewRuleError(CodeInvalidDependency, op, "dependency must join attributes of the same kind",
			"attribute", child.Key, "depends_on", parent.Key)
	}
	if child.ID == parent.ID {
		return NewRuleError(CodeCyclicDependency, op, "attribute cannot depend on itself", "attribute", child.Key)
	}
	if child.Kind == KindLookup {
		if len(pt.Lookups.LinksBetween(parent.Lookup.LookupTypeID, child.Lookup.LookupTypeID)) == 0 {
			return NewRuleError(CodeInvalidDependency, op, "lookup types are not linked",
				"attribute", child.Key, "depends_on", parent.Key)
		}
	}
	return nil
}

func (pt *ProductType) RemoveAttribute(key string) error {
	const op = "ProductType.RemoveAttribute"
	if err := pt.requireDraft(op); err != nil {
		return err
	}
	def := pt.OwnAttribute(key)
	if def == nil {
		return NewRuleError(CodeAttributeNotFound, op, "attribute not found", "attribute", key)
	}
	for _, d := range pt.Attributes {
		if d.DependsOnID != nil && *d.DependsOnID == def.ID {
			return NewRuleError(CodeInvalidDependency, op, "attribute has dependents", "attribute", key, "dependent", d.Key)
		}
		if d.Group != nil {
			for _, m := range d.Group.MemberIDs {
				if m == def.ID {
					return NewRuleError(CodeInvalidGroup, op, "attribute is a group member", "attribute", key, "group", d.Key)
				}
			}
		}
	}
	out := pt.Attributes[:0]
	for _, d := range pt.Attributes {
		if d.ID != def.ID {
			out = append(out, d)
		}
	}
	pt.Attributes = out
	return nil
}

func (pt *ProductType) AddEnumOption(attrKey string, spec OptionSpec) (*EnumAttributeOption, error) {
	const op = "ProductType.AddEnumOption"
	if err := pt.requireDraft(op); err != nil {
		return nil, err
	}
	def := pt.OwnAttribute(attrKey)
	if def == nil {
		return nil, NewRuleError(CodeAttributeNotFound, op, "attribute not found", "attribute", attrKey)
	}
	if def.Kind != KindEnum {
		return nil, NewRuleError(CodeInvalidInput, op, "attribute is not an enum", "attribute", attrKey, "kind", string(def.Kind))
	}
	code := strings.TrimSpace(spec.Code)
	if !ValidCode(code) {
		return nil, NewRuleError(CodeInvalidKey, op, "invalid option code", "attribute", attrKey, "code", code)
	}
	if def.Enum.OptionByCode(code) != nil {
		return nil, NewRuleError(CodeDuplicateCode, op, "option code already used", "attribute", attrKey, "code", code)
	}
	for _, o := range def.Enum.Options {
		if o.Position == spec.Position {
			return nil, NewRuleError(CodeDuplicatePosition, op, "option position already used",
				"attribute", attrKey, "code", code, "conflicts_with", o.Code)
		}
	}
	opt := &EnumAttributeOption{
		ID:          uuid.New(),
		AttributeID: def.ID,
		Code:        code,
		Label:       strings.TrimSpace(spec.Label),
		Position:    spec.Position,
	}
	parent := pt.DependsOn(def)
	switch {
	case parent == nil && spec.ParentCode != "":
		return nil, NewRuleError(CodeScopeMismatch, op, "attribute has no dependency, option cannot be scoped",
			"attribute", attrKey, "code", code)
	case parent != nil && spec.ParentCode == "":
		return nil, NewRuleError(CodeScopeMismatch, op, "dependent attribute requires a parent option",
			"attribute", attrKey, "code", code, "depends_on", parent.Key)
	case parent != nil:
		po := parent.Enum.OptionByCode(spec.ParentCode)
		if po == nil {
			return nil, NewRuleError(CodeOptionNotFound, op, "parent option not found",
				"attribute", parent.Key, "code", spec.ParentCode)
		}
		pid := po.ID
		opt.ParentOptionID = &pid
	}
	def.Enum.Options = append(def.Enum.Options, opt)
	return opt, nil
}

func (pt *ProductType) RemoveEnumOption(attrKey, code string) error {
	const op = "ProductType.RemoveEnumOption"
	if err := pt.requireDraft(op); err != nil {
		return err
	}
	def := pt.OwnAttribute(attrKey)
	if def == nil || def.Enum == nil {
		return NewRuleError(CodeAttributeNotFound, op, "enum attribute not found", "attribute", attrKey)
	}
	opt := def.Enum.OptionByCode(code)
	if opt == nil {
		return NewRuleError(CodeOptionNotFound, op, "option not found", "attribute", attrKey, "code", code)
	}
	for _, d := range pt.Attributes {
		if d.Enum == nil || d.DependsOnID == nil || *d.DependsOnID != def.ID {
			continue
		}
		for _, o := range d.Enum.Options {
			if o.ParentOptionID != nil && *o.ParentOptionID == opt.ID {
				return NewRuleError(CodeInvalidDependency, op, "option scopes dependent options",
					"attribute", attrKey, "code", code, "dependent", d.Key+"."+o.Code)
			}
		}
	}
	out := def.Enum.Options[:0]
	for _, o := range def.Enum.Options {
		if o.ID != opt.ID {
			out = append(out, o)
		}
	}
	def.Enum.Options = out
	return nil
}

// SetDependsOn makes childKey depend on parentKey. For enum attributes, scopes
// maps each child option code to its parent option code; every existing child
// option must be scoped or publishing will fail.
func (pt *ProductType) SetDependsOn(childKey, parentKey string, scopes map[string]string) error {
	const op = "ProductType.SetDependsOn"
	if err := pt.requireDraft(op); err != nil {
		return err
	}
	child := pt.OwnAttribute(childKey)
	if child == nil {
		return NewRuleError(CodeAttributeNotFound, op, "attribute not found", "attribute", childKey)
	}
	parent := pt.OwnAttribute(parentKey)
	if parent == nil {
		if pt.Attribute(parentKey) != nil {
			return NewRuleError(CodeInvalidDependency, op, "dependency parent must belong to this product type",
				"attribute", childKey, "depends_on", parentKey)
		}
		return NewRuleError(CodeAttributeNotFound, op, "dependency parent not found", "attribute", childKey, "depends_on", parentKey)
	}
	if err := pt.checkDependencyKinds(op, child, parent); err != nil {
		return err
	}

	resolved := map[uuid.UUID]uuid.UUID{}
	if child.Enum != nil {
		for childCode, parentCode := range scopes {
			co := child.Enum.OptionByCode(childCode)
			if co == nil {
				return NewRuleError(CodeOptionNotFound, op, "option not found", "attribute", childKey, "code", childCode)
			}
			po := parent.Enum.OptionByCode(parentCode)
			if po == nil {
				return NewRuleError(CodeOptionNotFound, op, "parent option not found", "attribute", parentKey, "code", parentCode)
			}
			resolved[co.ID] = po.ID
		}
	} else if len(scopes) > 0 {
		return NewRuleError(CodeScopeMismatch, op, "lookup dependencies are scoped by lookup links", "attribute", childKey)
	}

	prevDep := child.DependsOnID
	pid := parent.ID
	child.DependsOnID = &pid
	if err := CheckAcyclic(pt); err != nil {
		child.DependsOnID = prevDep
		return err
	}
	if child.Enum != nil {
		for _, o := range child.Enum.Options {
			if p, ok := resolved[o.ID]; ok {
				o.ParentOptionID = &p
			} else {
				o.ParentOptionID = nil
			}
		}
	}
	return nil
}

// ClearDependsOn removes the dependency and every option scope of childKey.
func (pt *ProductType) ClearDependsOn(childKey string) error {
	const op = "ProductType.ClearDependsOn"
	if err := pt.requireDraft(op); err != nil {
		return err
	}
	child := pt.OwnAttribute(childKey)
	if child == nil {
		return NewRuleError(CodeAttributeNotFound, op, "attribute not found", "attribute", childKey)
	}
	child.DependsOnID = nil
	if child.Enum != nil {
		for _, o := range child.Enum.Options {
			o.ParentOptionID = nil
		}
	}
	return nil
}

// SetLookupAllowed replaces the allow-list for a lookup type. An empty list is
// stored as an explicit, empty entry.
func (pt *ProductType) SetLookupAllowed(lookupTypeKey string, codes []string) error {
	const op = "ProductType.SetLookupAllowed"
	if err := pt.requireDraft(op); err != nil {
		return err
	}
	lt := pt.Lookups.TypeByKey(lookupTypeKey)
	if lt == nil {
		return NewRuleError(CodeLookupTypeNotFound, op, "lookup type not found", "lookup_type", lookupTypeKey)
	}
	seen := map[string]bool{}
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.TrimSpace(c)
		if lt.OptionByCode(c) == nil {
			return NewRuleError(CodeOptionNotFound, op, "lookup option not found", "lookup_type", lookupTypeKey, "code", c)
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	if pt.LookupAllowed == nil {
		pt.LookupAllowed = map[uuid.UUID][]string{}
	}
	pt.LookupAllowed[lt.ID] = out
	return nil
}

// Publish runs every consistency check and freezes the schema. On failure the
// product type stays in Draft.
func (pt *ProductType) Publish(now time.Time) error {
	const op = "ProductType.Publish"
	if err := pt.requireDraft(op); err != nil {
		return err
	}
	if err := pt.Check(); err != nil {
		return err
	}
	pt.Status = StatusPublished
	t := now.UTC()
	pt.PublishedAt = &t
	return nil
}

// CloneAsNextVersion copies the own schema into a new Draft with fresh IDs and
// Version+1. Inherited attributes and the lookup catalog are shared.
func (pt *ProductType) CloneAsNextVersion() (*ProductType, error) {
	const op = "ProductType.CloneAsNextVersion"
	if pt.Status != StatusPublished {
		return nil, NewRuleError(CodeWrongState, op, "only published product types can be cloned",
			"product_type", pt.Key, "status", string(pt.Status))
	}
	next := &ProductType{
		ID:            uuid.New(),
		Key:           pt.Key,
		Name:          pt.Name,
		Status:        StatusDraft,
		Version:       pt.Version + 1,
		Inherited:        pt.Inherited,
		LookupAllowed:    make(map[uuid.UUID][]string, len(pt.LookupAllowed)),
		InheritedAllowed: pt.InheritedAllowed,
		Lookups:          pt.Lookups,
	}
	if pt.ParentID != nil {
		pid := *pt.ParentID
		next.ParentID = &pid
	}
	idMap := map[uuid.UUID]uuid.UUID{}
	for _, d := range pt.Attributes {
		idMap[d.ID] = uuid.New()
		if d.Enum != nil {
			for _, o := range d.Enum.Options {
				idMap[o.ID] = uuid.New()
			}
		}
	}
	for _, d := range pt.Attributes {
		next.Attributes = append(next.Attributes, d.clone(idMap, next.ID))
	}
	for id, codes := range pt.LookupAllowed {
		next.LookupAllowed[id] = append([]string(nil), codes...)
	}
	return next, nil
}
