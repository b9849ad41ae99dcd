// Package listing runs the full validation of a listing's inputs and variants
// over a hydrated index.
package listing

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/catalog-backend/internal/domain/catalog"
	"github.com/yungbote/catalog-backend/internal/modules/catalog/axis"
	"github.com/yungbote/catalog-backend/internal/modules/catalog/index"
)

// VariantResult is the verdict for one SKU. Rule violations land here; invalid
// states abort the whole validation instead.
type VariantResult struct {
	SKU    string            `json:"sku"`
	Valid  bool              `json:"valid"`
	Code   catalog.ErrorCode `json:"code,omitempty"`
	Reason string            `json:"reason,omitempty"`
	Params map[string]string `json:"params,omitempty"`
}

type Report struct {
	ProductType  string                    `json:"product_type"`
	Version      int                       `json:"version"`
	Axes         *axis.VariantAxisSnapshot `json:"axes"`
	Combinations []index.Combination       `json:"combinations"`
	// Truncated is set when more than index.MaxCombinations exist. Variant
	// verdicts never depend on the enumeration.
	Truncated   bool                `json:"combinations_truncated,omitempty"`
	Unreachable map[string][]string `json:"unreachable,omitempty"`
	Variants    []VariantResult     `json:"variants"`
	Stale       []index.StaleCode   `json:"stale,omitempty"`
}

// Valid reports whether every variant passed.
func (r *Report) Valid() bool {
	for _, v := range r.Variants {
		if !v.Valid {
			return false
		}
	}
	return true
}

type Options struct {
	Policy index.AllowPolicy
	// Concurrency bounds parallel variant checks; values below 1 mean 1.
	Concurrency int
	// RequireAll enforces required attributes.
	RequireAll bool
}

// Validate checks the listing's inputs, derives its axis snapshot, enumerates
// up to index.MaxCombinations valid combinations, and checks each variant for
// axis coverage and for a valid combination. Input and axis rule violations
// are returned as errors.
func Validate(ctx context.Context, idx *index.Index, inputs index.Inputs, variants []axis.Variant, opts Options) (*Report, error) {
	session, err := idx.BeginValidation(inputs)
	if err != nil {
		return nil, err
	}
	if opts.RequireAll {
		if err := session.MissingRequired(); err != nil {
			return nil, err
		}
	}
	pt := idx.ProductType()
	axes, err := axis.FromInputs(pt, inputs)
	if err != nil {
		return nil, err
	}
	if err := axes.ValidateSchema(pt); err != nil {
		return nil, err
	}
	combos, truncated, err := session.EnumerateCombinations(opts.Policy, index.MaxCombinations)
	if err != nil {
		return nil, err
	}
	unreachable, err := session.UnreachableChoices(opts.Policy)
	if err != nil {
		return nil, err
	}

	report := &Report{
		ProductType:  pt.Key,
		Version:      idx.Snapshot().Version,
		Axes:         axes,
		Combinations: combos,
		Truncated:    truncated,
		Unreachable:  unreachable,
		Variants:     make([]VariantResult, len(variants)),
		Stale:        idx.Stale(),
	}
	if len(unreachable) == 0 {
		report.Unreachable = nil
	}

	limit := opts.Concurrency
	if limit < 1 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range variants {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := checkVariant(session, axes, variants[i], opts.Policy)
			if err != nil {
				return err
			}
			report.Variants[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return report, nil
}

func checkVariant(session *index.Session, axes *axis.VariantAxisSnapshot, v axis.Variant, policy index.AllowPolicy) (VariantResult, error) {
	res := VariantResult{SKU: v.SKU}
	pt := session.Index().ProductType()
	if err := axes.ValidateVariantCoverage(pt, v); err != nil {
		var rule *catalog.RuleError
		if errors.As(err, &rule) {
			res.Code, res.Reason, res.Params = rule.Code, rule.Message, rule.Params
			return res, nil
		}
		return res, err
	}

	selections := map[string]string{}
	for _, a := range axes.Axes {
		if a.IsGroup {
			continue
		}
		d := pt.Attribute(a.AttributeKey)
		if !d.Kind.IsOptionBacked() {
			continue
		}
		for _, val := range v.Values {
			if val.AttributeID != d.ID {
				continue
			}
			if d.Kind == catalog.KindEnum {
				selections[d.Key] = val.EnumCode
			} else {
				selections[d.Key] = val.LookupCode
			}
		}
	}
	ok, err := session.IsVariantComboValid(selections, policy)
	if err != nil {
		return res, err
	}
	if !ok {
		res.Code = catalog.CodeVariantMismatch
		res.Reason = "combination is not allowed by attribute dependencies"
		return res, nil
	}
	res.Valid = true
	return res, nil
}
