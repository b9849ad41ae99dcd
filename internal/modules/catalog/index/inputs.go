package index

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yungbote/catalog-backend/internal/domain/catalog"
)

// InputShape discriminates the per-attribute listing input.
type InputShape string

const (
	ShapeNumber      InputShape = "number"
	ShapeBool        InputShape = "bool"
	ShapeDate        InputShape = "date"
	ShapeCode        InputShape = "code"
	ShapeNumericAxis InputShape = "numeric_axis"
	ShapeCodeAxis    InputShape = "code_axis"
	ShapeGroupAxis   InputShape = "group_axis"
)

func (s InputShape) IsAxis() bool {
	return s == ShapeNumericAxis || s == ShapeCodeAxis || s == ShapeGroupAxis
}

// NumericChoice is one offered value of a numeric axis: either Value or the
// closed range Min..Max.
type NumericChoice struct {
	Value *decimal.Decimal `json:"value,omitempty" yaml:"value,omitempty"`
	Min   *decimal.Decimal `json:"min,omitempty" yaml:"min,omitempty"`
	Max   *decimal.Decimal `json:"max,omitempty" yaml:"max,omitempty"`
}

// Input is the value supplied for one attribute key. Only the field matching
// Shape may be set.
type Input struct {
	Shape   InputShape          `json:"shape"`
	Number  *decimal.Decimal    `json:"number,omitempty"`
	Bool    *bool               `json:"bool,omitempty"`
	Date    *time.Time          `json:"date,omitempty"`
	Code    string              `json:"code,omitempty"`
	Numbers []NumericChoice     `json:"numbers,omitempty"`
	Codes   []string            `json:"codes,omitempty"`
	Tuples  [][]decimal.Decimal `json:"tuples,omitempty"`
}

// Inputs maps attribute key to its input.
type Inputs map[string]Input

func NumberInput(v decimal.Decimal) Input { return Input{Shape: ShapeNumber, Number: &v} }
func BoolInput(v bool) Input              { return Input{Shape: ShapeBool, Bool: &v} }
func DateInput(v time.Time) Input         { return Input{Shape: ShapeDate, Date: &v} }
func CodeInput(code string) Input         { return Input{Shape: ShapeCode, Code: code} }
func CodeAxis(codes ...string) Input      { return Input{Shape: ShapeCodeAxis, Codes: codes} }

func NumericAxis(values ...decimal.Decimal) Input {
	in := Input{Shape: ShapeNumericAxis}
	for i := range values {
		v := values[i]
		in.Numbers = append(in.Numbers, NumericChoice{Value: &v})
	}
	return in
}

func NumericRangeAxis(lo, hi decimal.Decimal) Input {
	return Input{Shape: ShapeNumericAxis, Numbers: []NumericChoice{{Min: &lo, Max: &hi}}}
}

func GroupAxis(tuples ...[]decimal.Decimal) Input {
	return Input{Shape: ShapeGroupAxis, Tuples: tuples}
}

// expectedShape returns the only shape accepted for d.
func expectedShape(d *catalog.AttributeDefinition) InputShape {
	if d.IsVariant {
		switch {
		case d.Kind == catalog.KindGroup:
			return ShapeGroupAxis
		case d.Kind.IsNumeric():
			return ShapeNumericAxis
		case d.Kind.IsOptionBacked():
			return ShapeCodeAxis
		}
	}
	switch d.Kind {
	case catalog.KindInt, catalog.KindDecimal:
		return ShapeNumber
	case catalog.KindBool:
		return ShapeBool
	case catalog.KindDate:
		return ShapeDate
	case catalog.KindString, catalog.KindEnum, catalog.KindLookup:
		return ShapeCode
	}
	return ""
}

// payloadMatches reports whether the only populated payload is the one Shape names.
func (in Input) payloadMatches() bool {
	set := map[InputShape]bool{
		ShapeNumber:      in.Number != nil,
		ShapeBool:        in.Bool != nil,
		ShapeDate:        in.Date != nil,
		ShapeCode:        in.Code != "",
		ShapeNumericAxis: len(in.Numbers) > 0,
		ShapeCodeAxis:    len(in.Codes) > 0,
		ShapeGroupAxis:   len(in.Tuples) > 0,
	}
	for shape, ok := range set {
		if ok != (shape == in.Shape) {
			return false
		}
	}
	return true
}

// ValidateInputs checks every input against its attribute definition: the
// key exists, exactly one shape matching the kind and variance is supplied,
// codes resolve, and numbers are within range. All violations are returned
// joined, in key order. Lookup allow-lists are left to the session, where the
// caller's policy is known.
func (x *Index) ValidateInputs(inputs Inputs) error {
	var errs []error
	for _, key := range sortedKeys(inputs) {
		if err := x.validateInput(key, inputs[key]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (x *Index) validateInput(key string, in Input) error {
	const op = "Index.ValidateInputs"
	d, ok := x.Definition(key)
	if !ok {
		return catalog.NewRuleError(catalog.CodeAttributeNotFound, op, "attribute not found", "attribute", key)
	}
	want := expectedShape(d)
	if in.Shape != want {
		return catalog.NewRuleError(catalog.CodeInvalidInput, op, "input shape does not match attribute",
			"attribute", key, "shape", string(in.Shape), "expected", string(want))
	}
	if !in.payloadMatches() {
		return catalog.NewRuleError(catalog.CodeInvalidInput, op, "input must carry exactly one value of its shape",
			"attribute", key, "shape", string(in.Shape))
	}

	switch in.Shape {
	case ShapeNumber:
		return x.checkNumber(op, d, *in.Number)
	case ShapeCode:
		if d.Kind == catalog.KindString {
			if strings.TrimSpace(in.Code) == "" {
				return catalog.NewRuleError(catalog.CodeInvalidInput, op, "value is blank", "attribute", key)
			}
			return nil
		}
		if !x.HasOption(key, in.Code) {
			return catalog.NewRuleError(catalog.CodeOptionNotFound, op, "option not found", "attribute", key, "code", in.Code)
		}
	case ShapeCodeAxis:
		seen := map[string]bool{}
		for _, code := range in.Codes {
			if seen[code] {
				return catalog.NewRuleError(catalog.CodeDuplicateCode, op, "axis offers a code twice", "attribute", key, "code", code)
			}
			seen[code] = true
			if !x.HasOption(key, code) {
				return catalog.NewRuleError(catalog.CodeOptionNotFound, op, "option not found", "attribute", key, "code", code)
			}
		}
	case ShapeNumericAxis:
		for _, c := range in.Numbers {
			if err := x.checkNumericChoice(op, d, c); err != nil {
				return err
			}
		}
	case ShapeGroupAxis:
		members := x.pt.GroupMembers(d)
		seen := map[string]bool{}
		for _, tuple := range in.Tuples {
			if len(tuple) != len(members) {
				return catalog.NewRuleError(catalog.CodeInvalidInput, op, "group tuple does not match member count",
					"attribute", key, "members", strconv.Itoa(len(members)), "values", strconv.Itoa(len(tuple)))
			}
			sig := tupleKey(tuple)
			if seen[sig] {
				return catalog.NewRuleError(catalog.CodeInvalidInput, op, "axis offers a tuple twice", "attribute", key, "tuple", sig)
			}
			seen[sig] = true
			for i, m := range members {
				if err := x.checkNumber(op, m, tuple[i]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (x *Index) checkNumericChoice(op string, d *catalog.AttributeDefinition, c NumericChoice) error {
	switch {
	case c.Value != nil && c.Min == nil && c.Max == nil:
		return x.checkNumber(op, d, *c.Value)
	case c.Value == nil && c.Min != nil && c.Max != nil:
		if c.Min.GreaterThan(*c.Max) {
			return catalog.NewRuleError(catalog.CodeOutOfRange, op, "range minimum exceeds maximum",
				"attribute", d.Key, "min", c.Min.String(), "max", c.Max.String())
		}
		if err := x.checkNumber(op, d, *c.Min); err != nil {
			return err
		}
		return x.checkNumber(op, d, *c.Max)
	}
	return catalog.NewRuleError(catalog.CodeInvalidInput, op, "numeric choice needs a value or a closed range", "attribute", d.Key)
}

func (x *Index) checkNumber(op string, d *catalog.AttributeDefinition, v decimal.Decimal) error {
	if d.Kind == catalog.KindInt && !v.IsInteger() {
		return catalog.NewRuleError(catalog.CodeInvalidInput, op, "value must be an integer", "attribute", d.Key, "value", v.String())
	}
	if d.Numeric != nil && !d.Numeric.InRange(v) {
		return catalog.NewRuleError(catalog.CodeOutOfRange, op, "value out of range", "attribute", d.Key, "value", v.String())
	}
	return nil
}

// MissingRequired returns a required_missing error for each required
// attribute without an input. Group members are satisfied by their group.
func (x *Index) MissingRequired(inputs Inputs) error {
	covered := map[string]bool{}
	for key := range inputs {
		covered[key] = true
		if d, ok := x.Definition(key); ok && d.Kind == catalog.KindGroup {
			for _, m := range x.pt.GroupMembers(d) {
				covered[m.Key] = true
			}
		}
	}
	var missing []string
	for key, d := range x.defs {
		if d.IsRequired && !covered[key] {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	var errs []error
	for _, key := range missing {
		errs = append(errs, catalog.NewRuleError(catalog.CodeRequiredMissing, "Index.MissingRequired", "required attribute has no value", "attribute", key))
	}
	return errors.Join(errs...)
}

func tupleKey(tuple []decimal.Decimal) string {
	parts := make([]string, len(tuple))
	for i, v := range tuple {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, ",") + "]"
}
