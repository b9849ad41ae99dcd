package listing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/yungbote/catalog-backend/internal/domain/catalog"
	"github.com/yungbote/catalog-backend/internal/modules/catalog/axis"
	"github.com/yungbote/catalog-backend/internal/modules/catalog/index"
	"github.com/yungbote/catalog-backend/internal/modules/catalog/manifest"
)

type fixture struct {
	doc *manifest.Document
	res *manifest.Result
}

func loadSample(t *testing.T) fixture {
	t.Helper()
	doc, err := manifest.Sample()
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	res, err := manifest.Build(doc, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return fixture{doc: doc, res: res}
}

func (f fixture) prepare(t *testing.T, n int) (*index.Index, index.Inputs, []axis.Variant) {
	t.Helper()
	l := f.doc.Listings[n]
	pt := f.res.ProductType(l.ProductType)
	snap, err := index.Build(pt)
	if err != nil {
		t.Fatalf("index.Build: %v", err)
	}
	idx, err := index.Hydrate(snap, pt)
	if err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	inputs, err := manifest.Inputs(pt, l.Inputs)
	if err != nil {
		t.Fatalf("Inputs: %v", err)
	}
	var variants []axis.Variant
	for _, vd := range l.Variants {
		v, err := manifest.Variant(pt, vd)
		if err != nil {
			t.Fatalf("Variant: %v", err)
		}
		variants = append(variants, v)
	}
	return idx, inputs, variants
}

func TestSampleListingsAreValid(t *testing.T) {
	f := loadSample(t)
	for i, l := range f.doc.Listings {
		idx, inputs, variants := f.prepare(t, i)
		report, err := Validate(context.Background(), idx, inputs, variants, Options{Concurrency: 4, RequireAll: true})
		if err != nil {
			t.Fatalf("%s: Validate: %v", l.Name, err)
		}
		if !report.Valid() {
			t.Fatalf("%s: want valid got=%+v", l.Name, report.Variants)
		}
	}
}

func TestPhoneCombinations(t *testing.T) {
	f := loadSample(t)
	idx, inputs, _ := f.prepare(t, 0)
	report, err := Validate(context.Background(), idx, inputs, nil, Options{})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	// brand/model pairs (3) x color (2) x plan under north_tel (2)
	if len(report.Combinations) != 12 {
		t.Fatalf("combinations: want=12 got=%d", len(report.Combinations))
	}
	if report.Unreachable != nil {
		t.Fatalf("unreachable: want none got=%v", report.Unreachable)
	}
}

func TestVariantVerdicts(t *testing.T) {
	f := loadSample(t)
	idx, inputs, variants := f.prepare(t, 0)
	pt := idx.ProductType()

	mismatched := manifest.VariantDoc{SKU: "BAD-PAIR", Values: map[string]string{
		"brand": "acme", "model": "zeta_y", "storage": "128", "color": "black", "plan": "prepaid",
	}}
	v, err := manifest.Variant(pt, mismatched)
	if err != nil {
		t.Fatalf("Variant: %v", err)
	}
	variants = append(variants, v)

	report, err := Validate(context.Background(), idx, inputs, variants, Options{Concurrency: 2})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	last := report.Variants[len(report.Variants)-1]
	if last.Valid || last.Code != catalog.CodeVariantMismatch {
		t.Fatalf("BAD-PAIR: want=variant_mismatch got=%+v", last)
	}
	if !report.Variants[0].Valid {
		t.Fatalf("first variant: want valid got=%+v", report.Variants[0])
	}

	stray := manifest.VariantDoc{SKU: "STRAY", Values: map[string]string{
		"brand": "acme", "model": "acme_x", "storage": "128", "color": "black", "plan": "prepaid", "carrier": "north_tel",
	}}
	v, err = manifest.Variant(pt, stray)
	if err != nil {
		t.Fatalf("Variant: %v", err)
	}
	if _, err := Validate(context.Background(), idx, inputs, []axis.Variant{v}, Options{}); !catalog.IsInvalidState(err) {
		t.Fatalf("STRAY: want=invalid state got=%v", err)
	}
}

func TestRequiredInputs(t *testing.T) {
	f := loadSample(t)
	idx, inputs, _ := f.prepare(t, 0)
	delete(inputs, "model")
	_, err := Validate(context.Background(), idx, inputs, nil, Options{RequireAll: true})
	if !catalog.IsRule(err, catalog.CodeRequiredMissing) {
		t.Fatalf("want=required_missing got=%v", err)
	}
}

func TestWideListingTruncatesCombinations(t *testing.T) {
	pt, err := catalog.NewProductType("poster", "Poster", nil, nil)
	if err != nil {
		t.Fatalf("NewProductType: %v", err)
	}
	inputs := index.Inputs{}
	values := map[string]string{}
	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("axis_%d", i)
		if _, err := pt.AddAttribute(catalog.AttributeSpec{Key: key, Name: key, Kind: catalog.KindEnum, IsVariant: true, Position: i}); err != nil {
			t.Fatalf("AddAttribute(%s): %v", key, err)
		}
		var codes []string
		for j := 0; j < 7; j++ {
			code := fmt.Sprintf("c%d", j)
			if _, err := pt.AddEnumOption(key, catalog.OptionSpec{Code: code, Label: code, Position: j}); err != nil {
				t.Fatalf("AddEnumOption(%s.%s): %v", key, code, err)
			}
			codes = append(codes, code)
		}
		inputs[key] = index.CodeAxis(codes...)
		values[key] = "c6"
	}
	if err := pt.Publish(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	snap, err := index.Build(pt)
	if err != nil {
		t.Fatalf("index.Build: %v", err)
	}
	idx, err := index.Hydrate(snap, pt)
	if err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	v, err := manifest.Variant(pt, manifest.VariantDoc{SKU: "LAST", Values: values})
	if err != nil {
		t.Fatalf("Variant: %v", err)
	}

	report, err := Validate(context.Background(), idx, inputs, []axis.Variant{v}, Options{})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !report.Truncated || len(report.Combinations) != index.MaxCombinations {
		t.Fatalf("combinations: want=%d truncated got=%d truncated=%v", index.MaxCombinations, len(report.Combinations), report.Truncated)
	}
	if !report.Valid() {
		t.Fatalf("LAST: want valid beyond the enumeration limit got=%+v", report.Variants)
	}

	session, err := idx.BeginValidation(inputs)
	if err != nil {
		t.Fatalf("BeginValidation: %v", err)
	}
	if _, err := session.ValidCombinations(index.AllowAllWhenEmpty); !catalog.IsRule(err, catalog.CodeOutOfRange) {
		t.Fatalf("ValidCombinations: want=out_of_range got=%v", err)
	}
}
