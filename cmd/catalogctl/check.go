package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/catalog-backend/internal/domain/catalog"
)

type checkResult struct {
	Key        string         `json:"key"`
	Version    int            `json:"version"`
	Status     catalog.Status `json:"status"`
	Attributes int            `json:"attributes"`
	Problem    string         `json:"problem,omitempty"`
}

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Replay a manifest and run the publish checks on every product type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, res, err := opts.build()
			if err != nil {
				return err
			}
			var (
				out    []checkResult
				failed int
			)
			for _, pt := range res.ProductTypes {
				r := checkResult{Key: pt.Key, Version: pt.Version, Status: pt.Status, Attributes: len(pt.AllAttributes())}
				if pt.IsDraft() {
					if err := pt.Check(); err != nil {
						r.Problem = err.Error()
						failed++
					}
				}
				out = append(out, r)
			}
			w := cmd.OutOrStdout()
			if opts.asJSON {
				if err := writeJSON(w, out); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(w, "%d lookup types, %d product types\n", len(res.Lookups.Types), len(res.ProductTypes))
				for _, r := range out {
					line := fmt.Sprintf("  %-20s v%d %-9s %d attributes", r.Key, r.Version, r.Status, r.Attributes)
					if r.Problem != "" {
						line += "  FAIL: " + r.Problem
					}
					fmt.Fprintln(w, line)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d product type(s) fail the publish checks", failed)
			}
			return nil
		},
	}
}
