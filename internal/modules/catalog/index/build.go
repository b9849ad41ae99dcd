package index

import (
	"time"

	"github.com/yungbote/catalog-backend/internal/domain/catalog"
)

// Build compiles the product type's own attributes into a snapshot. It reads
// the option graph only; inherited attributes are resolved from the live
// schema at hydration time.
//
// Every declared dependency pair gets a row for every parent option code, so
// an absent row always means the snapshot and schema disagree.
func Build(pt *catalog.ProductType) (*Snapshot, error) {
	var builtAt time.Time
	if pt.PublishedAt != nil {
		builtAt = *pt.PublishedAt
	}
	snap := newSnapshot(pt, builtAt)

	for _, d := range pt.Attributes {
		switch d.Kind {
		case catalog.KindEnum:
			if d.Enum == nil {
				return nil, catalog.NewStateError("Build", "enum attribute has no option payload", "attribute", d.Key)
			}
			snap.EnumOptions[d.Key] = NewCodeSet(d.Enum.Codes()...)
		case catalog.KindLookup:
			t := pt.LookupType(d)
			if t == nil {
				return nil, catalog.NewRuleError(catalog.CodeLookupTypeNotFound, "Build", "lookup type not loaded", "attribute", d.Key)
			}
			snap.LookupOptions[d.Key] = NewCodeSet(t.Codes()...)
			allowed, err := compileAllowList(pt, d, t)
			if err != nil {
				return nil, err
			}
			snap.LookupAllowed[d.Key] = allowed
		}
	}

	if err := compileEnumDependencies(pt, pt.Attributes, snap.EnumDependencies); err != nil {
		return nil, err
	}
	compileLookupDependencies(pt, pt.Attributes, snap.LookupDependencies)
	return snap, nil
}

func compileAllowList(pt *catalog.ProductType, d *catalog.AttributeDefinition, t *catalog.LookupType) (CodeSet, error) {
	codes := pt.LookupAllowed[t.ID]
	if len(codes) == 0 && !t.OpenConstraint {
		return nil, catalog.NewRuleError(catalog.CodeMissingAllowList, "Build",
			"lookup type requires an allow-list", "attribute", d.Key, "lookup_type", t.Key)
	}
	allowed := NewCodeSet()
	for _, code := range codes {
		if t.OptionByCode(code) == nil {
			return nil, catalog.NewRuleError(catalog.CodeOptionNotFound, "Build",
				"allow-list names an unknown option", "attribute", d.Key, "code", code)
		}
		allowed.Add(code)
	}
	return allowed, nil
}

// compileEnumDependencies declares a dense row set for every enum in attrs that
// depends on another enum in attrs.
func compileEnumDependencies(pt *catalog.ProductType, attrs []*catalog.AttributeDefinition, deps DependencyMap) error {
	within := keysOf(attrs)
	for _, child := range attrs {
		if child.Kind != catalog.KindEnum || child.DependsOnID == nil {
			continue
		}
		parent := pt.DependsOn(child)
		if parent == nil || parent.Kind != catalog.KindEnum || !within[parent.Key] {
			continue
		}
		if parent.Enum == nil || child.Enum == nil {
			continue
		}
		rows := deps.declare(parent.Key, child.Key)
		for _, code := range parent.Enum.Codes() {
			rows[code] = NewCodeSet()
		}
		for _, o := range child.Enum.Options {
			if o.ParentOptionID == nil {
				return catalog.NewRuleError(catalog.CodeScopeMismatch, "Build",
					"dependent option is not scoped", "attribute", child.Key, "code", o.Code)
			}
			po := parent.Enum.OptionByID(*o.ParentOptionID)
			if po == nil {
				return catalog.NewRuleError(catalog.CodeScopeMismatch, "Build",
					"option is scoped to an option of another attribute", "attribute", child.Key, "code", o.Code)
			}
			rows[po.Code].Add(o.Code)
		}
	}
	return nil
}

// compileLookupDependencies folds lookup links into rows for every ordered
// pair of lookup attributes in attrs whose types are linked. A type backing
// several attributes fans out to each of them.
func compileLookupDependencies(pt *catalog.ProductType, attrs []*catalog.AttributeDefinition, deps DependencyMap) {
	for _, parent := range attrs {
		if parent.Lookup == nil {
			continue
		}
		pType := pt.LookupType(parent)
		if pType == nil {
			continue
		}
		for _, child := range attrs {
			if child.Lookup == nil || child.ID == parent.ID {
				continue
			}
			cType := pt.LookupType(child)
			if cType == nil {
				continue
			}
			links := pt.Lookups.LinksBetween(pType.ID, cType.ID)
			if len(links) == 0 {
				continue
			}
			rows := deps.declare(parent.Key, child.Key)
			for _, code := range pType.Codes() {
				rows[code] = NewCodeSet()
			}
			for _, l := range links {
				po, _ := pt.Lookups.Option(l.ParentOptionID)
				co, _ := pt.Lookups.Option(l.ChildOptionID)
				rows[po.Code].Add(co.Code)
			}
		}
	}
}

func keysOf(attrs []*catalog.AttributeDefinition) map[string]bool {
	out := make(map[string]bool, len(attrs))
	for _, d := range attrs {
		out[d.Key] = true
	}
	return out
}
