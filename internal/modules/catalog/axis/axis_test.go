package axis

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/yungbote/catalog-backend/internal/domain/catalog"
	"github.com/yungbote/catalog-backend/internal/modules/catalog/index"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func num(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// shelfType has a dimensions group (width, length in cm), a color enum axis,
// a weight attribute outside any group, and a non-variant finish enum.
func shelfType(t *testing.T) *catalog.ProductType {
	t.Helper()
	pt, err := catalog.NewProductType("shelf", "Shelf", nil, catalog.NewLookupCatalog())
	if err != nil {
		t.Fatalf("NewProductType: %v", err)
	}
	for _, spec := range []catalog.AttributeSpec{
		{Key: "width", Name: "Width", Kind: catalog.KindDecimal, Unit: "cm", Position: 1},
		{Key: "length", Name: "Length", Kind: catalog.KindDecimal, Unit: "cm", Position: 2},
		{Key: "weight", Name: "Weight", Kind: catalog.KindDecimal, Unit: "kg", IsVariant: true, Position: 3},
		{Key: "dimensions", Name: "Dimensions", Kind: catalog.KindGroup, IsVariant: true, Position: 4, GroupMemberKeys: []string{"width", "length"}},
		{Key: "color", Name: "Color", Kind: catalog.KindEnum, IsVariant: true, Position: 5},
		{Key: "finish", Name: "Finish", Kind: catalog.KindEnum, Position: 6},
		{Key: "note", Name: "Note", Kind: catalog.KindString, IsVariant: true, Position: 7},
	} {
		if _, err := pt.AddAttribute(spec); err != nil {
			t.Fatalf("AddAttribute(%s): %v", spec.Key, err)
		}
	}
	for i, code := range []string{"oak", "white"} {
		if _, err := pt.AddEnumOption("color", catalog.OptionSpec{Code: code, Label: code, Position: i}); err != nil {
			t.Fatalf("AddEnumOption: %v", err)
		}
	}
	if _, err := pt.AddEnumOption("finish", catalog.OptionSpec{Code: "matte", Label: "Matte", Position: 0}); err != nil {
		t.Fatalf("AddEnumOption: %v", err)
	}
	return pt
}

func shelfAxes() *VariantAxisSnapshot {
	return &VariantAxisSnapshot{Axes: []AxisSnapshot{
		{AttributeKey: "dimensions", IsGroup: true, Choices: []AxisChoiceSnapshot{
			{Group: []decimal.Decimal{dec("100"), dec("300")}},
			{Group: []decimal.Decimal{dec("80"), dec("200")}},
		}},
		{AttributeKey: "color", Choices: []AxisChoiceSnapshot{{EnumCode: "oak"}, {EnumCode: "white"}}},
	}}
}

func variant(pt *catalog.ProductType, width, length, color string) Variant {
	return Variant{SKU: "SKU-" + width + "-" + length + "-" + color, Values: []VariantValue{
		{AttributeID: pt.Attribute("width").ID, Number: num(width)},
		{AttributeID: pt.Attribute("length").ID, Number: num(length)},
		{AttributeID: pt.Attribute("color").ID, EnumCode: color},
	}}
}

func TestValidateSchema(t *testing.T) {
	pt := shelfType(t)
	if err := shelfAxes().ValidateSchema(pt); err != nil {
		t.Fatalf("ValidateSchema: %v", err)
	}

	cases := []struct {
		name string
		axes []AxisSnapshot
		code catalog.ErrorCode
	}{
		{"unknown attribute", []AxisSnapshot{{AttributeKey: "depth", Choices: []AxisChoiceSnapshot{{Number: num("1")}}}}, catalog.CodeAttributeNotFound},
		{"not a variant", []AxisSnapshot{{AttributeKey: "finish", Choices: []AxisChoiceSnapshot{{EnumCode: "matte"}}}}, catalog.CodeInvalidAxis},
		{"string axis", []AxisSnapshot{{AttributeKey: "note", Choices: []AxisChoiceSnapshot{{EnumCode: "x"}}}}, catalog.CodeInvalidAxis},
		{"group flag on enum", []AxisSnapshot{{AttributeKey: "color", IsGroup: true, Choices: []AxisChoiceSnapshot{{EnumCode: "oak"}}}}, catalog.CodeInvalidAxis},
		{"repeated axis", []AxisSnapshot{
			{AttributeKey: "color", Choices: []AxisChoiceSnapshot{{EnumCode: "oak"}}},
			{AttributeKey: "color", Choices: []AxisChoiceSnapshot{{EnumCode: "white"}}},
		}, catalog.CodeDuplicateKey},
		{"repeated group", []AxisSnapshot{
			{AttributeKey: "dimensions", IsGroup: true, Choices: []AxisChoiceSnapshot{{Group: []decimal.Decimal{dec("1"), dec("2")}}}},
			{AttributeKey: "dimensions", IsGroup: true, Choices: []AxisChoiceSnapshot{{Group: []decimal.Decimal{dec("3"), dec("4")}}}},
		}, catalog.CodeDuplicateKey},
		{"no choices", []AxisSnapshot{{AttributeKey: "color"}}, catalog.CodeInvalidAxis},
		{"two payloads", []AxisSnapshot{{AttributeKey: "color", Choices: []AxisChoiceSnapshot{{EnumCode: "oak", Number: num("1")}}}}, catalog.CodeInvalidAxis},
		{"wrong payload", []AxisSnapshot{{AttributeKey: "weight", Choices: []AxisChoiceSnapshot{{EnumCode: "oak"}}}}, catalog.CodeInvalidAxis},
		{"unknown option", []AxisSnapshot{{AttributeKey: "color", Choices: []AxisChoiceSnapshot{{EnumCode: "teak"}}}}, catalog.CodeOptionNotFound},
		{"short tuple", []AxisSnapshot{{AttributeKey: "dimensions", IsGroup: true, Choices: []AxisChoiceSnapshot{{Group: []decimal.Decimal{dec("1")}}}}}, catalog.CodeInvalidAxis},
		{"repeated choice", []AxisSnapshot{{AttributeKey: "weight", Choices: []AxisChoiceSnapshot{{Number: num("1.50")}, {Number: num("1.5")}}}}, catalog.CodeInvalidAxis},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := &VariantAxisSnapshot{Axes: tc.axes}
			if got := catalog.RuleCode(s.ValidateSchema(pt)); got != tc.code {
				t.Fatalf("want=%s got=%s", tc.code, got)
			}
		})
	}
}

func TestGroupCoverage(t *testing.T) {
	pt := shelfType(t)
	axes := shelfAxes()

	if err := axes.ValidateVariantCoverage(pt, variant(pt, "100", "300", "oak")); err != nil {
		t.Fatalf("100x300: %v", err)
	}
	if err := axes.ValidateVariantCoverage(pt, variant(pt, "100.0", "300", "white")); err != nil {
		t.Fatalf("numeric equality ignores scale: %v", err)
	}
	err := axes.ValidateVariantCoverage(pt, variant(pt, "100", "301", "oak"))
	if !catalog.IsRule(err, catalog.CodeVariantMismatch) {
		t.Fatalf("100x301: want=variant_mismatch got=%v", err)
	}
	err = axes.ValidateVariantCoverage(pt, variant(pt, "300", "100", "oak"))
	if !catalog.IsRule(err, catalog.CodeVariantMismatch) {
		t.Fatalf("member order: want=variant_mismatch got=%v", err)
	}
	err = axes.ValidateVariantCoverage(pt, variant(pt, "80", "200", "teak"))
	if !catalog.IsRule(err, catalog.CodeVariantMismatch) {
		t.Fatalf("unoffered color: want=variant_mismatch got=%v", err)
	}

	v := variant(pt, "100", "300", "oak")
	v.Values = v.Values[1:]
	if err := axes.ValidateVariantCoverage(pt, v); !catalog.IsRule(err, catalog.CodeVariantMismatch) {
		t.Fatalf("missing member: want=variant_mismatch got=%v", err)
	}
}

func TestStrayAttributeIsInvalidState(t *testing.T) {
	pt := shelfType(t)
	v := variant(pt, "100", "300", "oak")
	v.Values = append(v.Values, VariantValue{AttributeID: pt.Attribute("weight").ID, Number: num("12")})

	err := shelfAxes().ValidateVariantCoverage(pt, v)
	if !catalog.IsInvalidState(err) {
		t.Fatalf("stray weight: want=invalid state got=%v", err)
	}
	if catalog.IsRule(err) {
		t.Fatalf("stray weight reported as a rule violation: %v", err)
	}

	v = variant(pt, "100", "300", "oak")
	v.Values = append(v.Values, v.Values[2])
	if err := shelfAxes().ValidateVariantCoverage(pt, v); !catalog.IsInvalidState(err) {
		t.Fatalf("repeated attribute: want=invalid state got=%v", err)
	}
}

func TestFromInputs(t *testing.T) {
	pt := shelfType(t)
	inputs := index.Inputs{
		"color":      index.CodeAxis("white", "oak"),
		"dimensions": index.GroupAxis([]decimal.Decimal{dec("100"), dec("300")}),
		"weight":     index.NumericAxis(dec("10"), dec("12.5")),
		"finish":     index.CodeInput("matte"),
	}
	s, err := FromInputs(pt, inputs)
	if err != nil {
		t.Fatalf("FromInputs: %v", err)
	}
	if got := s.Keys(); len(got) != 3 || got[0] != "weight" || got[1] != "dimensions" || got[2] != "color" {
		t.Fatalf("axis order: got=%v", got)
	}
	if !s.Axes[1].IsGroup || s.Axes[2].Choices[0].EnumCode != "white" || !s.Axes[0].Choices[1].Number.Equal(dec("12.5")) {
		t.Fatalf("choices not carried: %+v", s.Axes)
	}
	if err := s.ValidateSchema(pt); err != nil {
		t.Fatalf("ValidateSchema: %v", err)
	}

	_, err = FromInputs(pt, index.Inputs{"weight": index.NumericRangeAxis(dec("1"), dec("5"))})
	if !catalog.IsRule(err, catalog.CodeInvalidAxis) {
		t.Fatalf("range axis: want=invalid_axis got=%v", err)
	}
}
