package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/catalog-backend/internal/modules/catalog/axis"
	"github.com/yungbote/catalog-backend/internal/modules/catalog/index"
	"github.com/yungbote/catalog-backend/internal/modules/catalog/listing"
	"github.com/yungbote/catalog-backend/internal/modules/catalog/manifest"
)

type listingVerdict struct {
	Name   string          `json:"name"`
	Report *listing.Report `json:"report,omitempty"`
	Error  string          `json:"error,omitempty"`
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	var (
		only        string
		allowNone   bool
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the listings of a manifest against its product types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, res, err := opts.build()
			if err != nil {
				return err
			}
			policy := index.AllowAllWhenEmpty
			if allowNone {
				policy = index.AllowNoneWhenEmpty
			}
			var (
				verdicts []listingVerdict
				failed   int
			)
			for _, l := range doc.Listings {
				if only != "" && l.Name != only {
					continue
				}
				v := listingVerdict{Name: l.Name}
				report, err := validateListing(cmd.Context(), res, l, listing.Options{
					Policy:      policy,
					Concurrency: concurrency,
					RequireAll:  true,
				})
				switch {
				case err != nil:
					v.Error = err.Error()
					failed++
				case !report.Valid():
					failed++
				}
				v.Report = report
				verdicts = append(verdicts, v)
			}
			if only != "" && len(verdicts) == 0 {
				return fmt.Errorf("no listing named %q in manifest", only)
			}

			w := cmd.OutOrStdout()
			if opts.asJSON {
				if err := writeJSON(w, verdicts); err != nil {
					return err
				}
			} else {
				for _, v := range verdicts {
					if v.Error != "" {
						fmt.Fprintf(w, "%s: ERROR %s\n", v.Name, v.Error)
						continue
					}
					more := ""
					if v.Report.Truncated {
						more = "+"
					}
					fmt.Fprintf(w, "%s: %d%s combinations\n", v.Name, len(v.Report.Combinations), more)
					for _, vr := range v.Report.Variants {
						if vr.Valid {
							fmt.Fprintf(w, "  ok   %s\n", vr.SKU)
						} else {
							fmt.Fprintf(w, "  FAIL %s: %s (%s)\n", vr.SKU, vr.Reason, vr.Code)
						}
					}
					for _, st := range v.Report.Stale {
						fmt.Fprintf(w, "  stale %s.%s\n", st.Attribute, st.Code)
					}
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d listing(s) failed validation", failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&only, "listing", "l", "", "validate only the listing with this name")
	cmd.Flags().BoolVar(&allowNone, "allow-none-when-empty", false, "treat an empty lookup allow-list as allowing nothing")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "parallel variant checks")
	return cmd
}

func validateListing(ctx context.Context, res *manifest.Result, l manifest.ListingDoc, opts listing.Options) (*listing.Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	pt := res.ProductType(l.ProductType)
	if pt == nil {
		return nil, fmt.Errorf("unknown product type %q", l.ProductType)
	}
	snap, err := index.Build(pt)
	if err != nil {
		return nil, err
	}
	idx, err := index.Hydrate(snap, pt)
	if err != nil {
		return nil, err
	}
	inputs, err := manifest.Inputs(pt, l.Inputs)
	if err != nil {
		return nil, err
	}
	variants := make([]axis.Variant, 0, len(l.Variants))
	for _, vd := range l.Variants {
		v, err := manifest.Variant(pt, vd)
		if err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	return listing.Validate(ctx, idx, inputs, variants, opts)
}
