package main

import (
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/catalog-backend/internal/modules/catalog/manifest"
)

type rootOptions struct {
	file   string
	sample bool
	asJSON bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Compile, check and validate catalog manifests",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.file, "file", "f", "", "manifest YAML file")
	root.PersistentFlags().BoolVar(&opts.sample, "sample", false, "use the bundled sample manifest")
	root.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "print JSON output")

	root.AddCommand(
		newCheckCmd(opts),
		newCompileCmd(opts),
		newValidateCmd(opts),
		newSampleCmd(),
	)
	return root
}

func (o *rootOptions) load() (*manifest.Document, error) {
	switch {
	case o.sample && o.file != "":
		return nil, errors.New("use either --file or --sample")
	case o.sample:
		return manifest.Sample()
	case o.file != "":
		return manifest.LoadFile(o.file)
	default:
		return nil, errors.New("a manifest is required: pass --file or --sample")
	}
}

// build loads the manifest and replays it; publish timestamps are "now".
func (o *rootOptions) build() (*manifest.Document, *manifest.Result, error) {
	doc, err := o.load()
	if err != nil {
		return nil, nil, err
	}
	res, err := manifest.Build(doc, time.Now())
	if err != nil {
		return doc, nil, err
	}
	return doc, res, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newSampleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sample",
		Short: "Print the bundled sample manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write(manifest.SampleYAML())
			return err
		},
	}
}
