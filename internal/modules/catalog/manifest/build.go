package manifest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yungbote/catalog-backend/internal/domain/catalog"
	"github.com/yungbote/catalog-backend/internal/modules/catalog/axis"
	"github.com/yungbote/catalog-backend/internal/modules/catalog/index"
)

const dateLayout = "2006-01-02"

// Result holds the catalog a manifest describes.
type Result struct {
	Lookups      *catalog.LookupCatalog
	ProductTypes []*catalog.ProductType
}

func (r *Result) ProductType(key string) *catalog.ProductType {
	for _, pt := range r.ProductTypes {
		if pt.Key == key {
			return pt
		}
	}
	return nil
}

// Build replays the manifest through the domain mutators. Product types are
// built in document order, so a parent must precede its children; types
// marked publish are published at now.
func Build(doc *Document, now time.Time) (*Result, error) {
	lookups, err := BuildLookups(doc)
	if err != nil {
		return nil, err
	}
	res := &Result{Lookups: lookups}
	for _, ptDoc := range doc.ProductTypes {
		var parent *catalog.ProductType
		if ptDoc.Parent != "" {
			if parent = res.ProductType(ptDoc.Parent); parent == nil {
				return nil, fmt.Errorf("manifest: product type %s: %w", ptDoc.Key,
					catalog.NewRuleError(catalog.CodeAttributeNotFound, "manifest.Build", "parent product type must appear earlier", "parent", ptDoc.Parent))
			}
		}
		pt, err := BuildProductType(ptDoc, parent, lookups)
		if err != nil {
			return nil, err
		}
		if ptDoc.Publish {
			if err := pt.Publish(now); err != nil {
				return nil, fmt.Errorf("manifest: product type %s: %w", ptDoc.Key, err)
			}
		}
		res.ProductTypes = append(res.ProductTypes, pt)
	}
	return res, nil
}

func BuildLookups(doc *Document) (*catalog.LookupCatalog, error) {
	lookups := catalog.NewLookupCatalog()
	for _, lt := range doc.Lookups {
		if _, err := lookups.AddType(lt.Key, labelOr(lt.Name, lt.Key), lt.Open); err != nil {
			return nil, fmt.Errorf("manifest: lookup %s: %w", lt.Key, err)
		}
		for i, o := range lt.Options {
			if _, err := lookups.AddOption(lt.Key, o.Code, labelOr(o.Label, o.Code), positionOr(o.Position, i)); err != nil {
				return nil, fmt.Errorf("manifest: lookup %s: %w", lt.Key, err)
			}
		}
	}
	for _, l := range doc.Links {
		pType, pCode, err := splitRef(l.Parent)
		if err != nil {
			return nil, err
		}
		cType, cCode, err := splitRef(l.Child)
		if err != nil {
			return nil, err
		}
		if _, err := lookups.AddLink(pType, pCode, cType, cCode); err != nil {
			return nil, fmt.Errorf("manifest: link %s -> %s: %w", l.Parent, l.Child, err)
		}
	}
	return lookups, nil
}

// BuildProductType creates a draft product type from its document. Attributes
// are added once their parent and group members exist, and options follow
// the same order so scoped options find their parent options.
func BuildProductType(doc ProductTypeDoc, parent *catalog.ProductType, lookups *catalog.LookupCatalog) (*catalog.ProductType, error) {
	wrap := func(err error) error { return fmt.Errorf("manifest: product type %s: %w", doc.Key, err) }
	pt, err := catalog.NewProductType(doc.Key, labelOr(doc.Name, doc.Key), parent, lookups)
	if err != nil {
		return nil, wrap(err)
	}

	pending := make([]int, len(doc.Attributes))
	for i := range pending {
		pending[i] = i
	}
	var added []int
	for len(pending) > 0 {
		var next []int
		for _, i := range pending {
			a := doc.Attributes[i]
			if !ready(pt, a) {
				next = append(next, i)
				continue
			}
			if err := addAttribute(pt, a, i); err != nil {
				return nil, wrap(err)
			}
			added = append(added, i)
		}
		if len(next) == len(pending) {
			// Nothing progressed; adding the first one surfaces the real error.
			return nil, wrap(addAttribute(pt, doc.Attributes[next[0]], next[0]))
		}
		pending = next
	}

	for _, i := range added {
		a := doc.Attributes[i]
		for j, o := range a.Options {
			spec := catalog.OptionSpec{Code: o.Code, Label: labelOr(o.Label, o.Code), Position: positionOr(o.Position, j), ParentCode: o.Parent}
			if _, err := pt.AddEnumOption(a.Key, spec); err != nil {
				return nil, wrap(err)
			}
		}
	}
	for _, typeKey := range sortedKeys(doc.LookupAllowed) {
		if err := pt.SetLookupAllowed(typeKey, doc.LookupAllowed[typeKey]); err != nil {
			return nil, wrap(err)
		}
	}
	return pt, nil
}

func ready(pt *catalog.ProductType, a AttributeDoc) bool {
	if a.DependsOn != "" && pt.Attribute(a.DependsOn) == nil {
		return false
	}
	for _, m := range a.Members {
		if pt.Attribute(m) == nil {
			return false
		}
	}
	return true
}

func addAttribute(pt *catalog.ProductType, a AttributeDoc, i int) error {
	kind, err := catalog.ParseKind(a.Kind)
	if err != nil {
		return err
	}
	spec := catalog.AttributeSpec{
		Key:             a.Key,
		Name:            labelOr(a.Name, a.Key),
		Kind:            kind,
		IsRequired:      a.Required,
		IsVariant:       a.Variant,
		Position:        positionOr(a.Position, i+1),
		DependsOnKey:    a.DependsOn,
		Unit:            a.Unit,
		LookupTypeKey:   a.Lookup,
		GroupMemberKeys: a.Members,
	}
	if spec.Min, err = optionalDecimal(a.Key, "min", a.Min); err != nil {
		return err
	}
	if spec.Max, err = optionalDecimal(a.Key, "max", a.Max); err != nil {
		return err
	}
	_, err = pt.AddAttribute(spec)
	return err
}

// Inputs converts textual listing inputs into typed inputs, choosing the
// shape from each attribute's kind and variance.
func Inputs(pt *catalog.ProductType, raw map[string]InputDoc) (index.Inputs, error) {
	const op = "manifest.Inputs"
	out := make(index.Inputs, len(raw))
	for key, in := range raw {
		d := pt.Attribute(key)
		if d == nil {
			return nil, catalog.NewRuleError(catalog.CodeAttributeNotFound, op, "attribute not found", "attribute", key)
		}
		var (
			val index.Input
			err error
		)
		if d.IsVariant {
			val, err = axisInput(d, in)
		} else {
			val, err = scalarInput(d, in)
		}
		if err != nil {
			return nil, err
		}
		out[key] = val
	}
	return out, nil
}

func axisInput(d *catalog.AttributeDefinition, in InputDoc) (index.Input, error) {
	switch {
	case d.Kind == catalog.KindGroup:
		var tuples [][]decimal.Decimal
		for _, raw := range in.Tuples {
			tuple := make([]decimal.Decimal, 0, len(raw))
			for _, s := range raw {
				v, err := parseDecimal(d.Key, s)
				if err != nil {
					return index.Input{}, err
				}
				tuple = append(tuple, v)
			}
			tuples = append(tuples, tuple)
		}
		return index.GroupAxis(tuples...), nil
	case d.Kind.IsNumeric():
		axisIn := index.Input{Shape: index.ShapeNumericAxis}
		for _, s := range in.Axis {
			if lo, hi, ok := strings.Cut(s, ".."); ok {
				l, err := parseDecimal(d.Key, lo)
				if err != nil {
					return index.Input{}, err
				}
				h, err := parseDecimal(d.Key, hi)
				if err != nil {
					return index.Input{}, err
				}
				axisIn.Numbers = append(axisIn.Numbers, index.NumericChoice{Min: &l, Max: &h})
				continue
			}
			v, err := parseDecimal(d.Key, s)
			if err != nil {
				return index.Input{}, err
			}
			axisIn.Numbers = append(axisIn.Numbers, index.NumericChoice{Value: &v})
		}
		return axisIn, nil
	}
	return index.CodeAxis(in.Axis...), nil
}

func scalarInput(d *catalog.AttributeDefinition, in InputDoc) (index.Input, error) {
	switch d.Kind {
	case catalog.KindInt, catalog.KindDecimal:
		v, err := parseDecimal(d.Key, in.Value)
		if err != nil {
			return index.Input{}, err
		}
		return index.NumberInput(v), nil
	case catalog.KindBool:
		b, err := strconv.ParseBool(strings.TrimSpace(in.Value))
		if err != nil {
			return index.Input{}, catalog.NewRuleError(catalog.CodeInvalidInput, "manifest.Inputs", "not a boolean", "attribute", d.Key, "value", in.Value)
		}
		return index.BoolInput(b), nil
	case catalog.KindDate:
		t, err := time.Parse(dateLayout, strings.TrimSpace(in.Value))
		if err != nil {
			return index.Input{}, catalog.NewRuleError(catalog.CodeInvalidInput, "manifest.Inputs", "not a date", "attribute", d.Key, "value", in.Value)
		}
		return index.DateInput(t), nil
	}
	return index.CodeInput(in.Value), nil
}

// Variant converts a textual SKU into variant values keyed by attribute ID.
func Variant(pt *catalog.ProductType, doc VariantDoc) (axis.Variant, error) {
	const op = "manifest.Variant"
	v := axis.Variant{SKU: doc.SKU}
	for _, key := range sortedKeys(doc.Values) {
		raw := doc.Values[key]
		d := pt.Attribute(key)
		if d == nil {
			return axis.Variant{}, catalog.NewRuleError(catalog.CodeAttributeNotFound, op, "attribute not found", "sku", doc.SKU, "attribute", key)
		}
		val := axis.VariantValue{AttributeID: d.ID}
		switch {
		case d.Kind == catalog.KindEnum:
			val.EnumCode = raw
		case d.Kind == catalog.KindLookup:
			val.LookupCode = raw
		case d.Kind.IsNumeric():
			n, err := parseDecimal(key, raw)
			if err != nil {
				return axis.Variant{}, err
			}
			val.Number = &n
		default:
			return axis.Variant{}, catalog.NewRuleError(catalog.CodeInvalidInput, op, "variant values must be codes or numbers",
				"sku", doc.SKU, "attribute", key, "kind", string(d.Kind))
		}
		v.Values = append(v.Values, val)
	}
	return v, nil
}

func parseDecimal(key, s string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, catalog.NewRuleError(catalog.CodeInvalidInput, "manifest", "not a number", "attribute", key, "value", s)
	}
	return v, nil
}

func optionalDecimal(key, field, s string) (*decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	v, err := parseDecimal(key, s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return &v, nil
}

func labelOr(label, fallback string) string {
	if strings.TrimSpace(label) != "" {
		return label
	}
	return fallback
}

func positionOr(p *int, fallback int) int {
	if p != nil {
		return *p
	}
	return fallback
}
