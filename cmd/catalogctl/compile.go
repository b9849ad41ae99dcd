package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/catalog-backend/internal/domain/catalog"
	"github.com/yungbote/catalog-backend/internal/modules/catalog/index"
)

func newCompileCmd(opts *rootOptions) *cobra.Command {
	var only string
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile index snapshots for the published product types of a manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, res, err := opts.build()
			if err != nil {
				return err
			}
			var snaps []*index.Snapshot
			for _, pt := range res.ProductTypes {
				if only != "" && pt.Key != only {
					continue
				}
				if pt.Status != catalog.StatusPublished {
					continue
				}
				snap, err := index.Build(pt)
				if err != nil {
					return fmt.Errorf("%s: %w", pt.Key, err)
				}
				snaps = append(snaps, snap)
			}
			if only != "" && len(snaps) == 0 {
				return fmt.Errorf("no published product type %q in manifest", only)
			}
			w := cmd.OutOrStdout()
			if opts.asJSON {
				return writeJSON(w, snaps)
			}
			for _, s := range snaps {
				fmt.Fprintf(w, "%s v%d: %d enum, %d lookup attributes, %d enum and %d lookup dependencies\n",
					s.ProductTypeKey, s.Version, len(s.EnumOptions), len(s.LookupOptions),
					len(s.EnumDependencies.Pairs()), len(s.LookupDependencies.Pairs()))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&only, "product-type", "p", "", "compile only this product type key")
	return cmd
}
