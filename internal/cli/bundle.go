package cli

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"xdao.co/dagstore/merkledag"
	"xdao.co/dagstore/multihash"
	"xdao.co/dagstore/storage/bundle"
)

func newExportCommand(e *env) *cobra.Command {
	var (
		output  string
		noIndex bool
	)
	cmd := &cobra.Command{
		Use:   "export <root>...",
		Short: "Write every block reachable from the roots to a tar bundle",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roots := make([]multihash.Multihash, 0, len(args))
			labels := make(map[string]multihash.Multihash, len(args))
			for _, arg := range args {
				h, err := parseKey(arg)
				if err != nil {
					return err
				}
				roots = append(roots, h)
				labels[arg] = h
			}

			ds, err := e.dag()
			if err != nil {
				return err
			}
			defer e.close()

			hashes, err := merkledag.Collect(ds, roots...)
			if err != nil {
				return errors.WithMessage(err, "export")
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return errors.Wrap(err, "export")
				}
				defer f.Close()
				w = f
			}
			err = bundle.Export(w, ds.Blockstore(), hashes, bundle.ExportOptions{
				IncludeIndex: !noIndex,
				Labels:       labels,
			})
			return errors.WithMessage(err, "export")
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Bundle file (default stdout)")
	cmd.Flags().BoolVar(&noIndex, "no-index", false, "Omit index.json")
	return cmd
}

func newImportCommand(e *env) *cobra.Command {
	var ignoreUnknown bool
	cmd := &cobra.Command{
		Use:   "import <bundle>",
		Short: "Store every block of a tar bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bs, err := e.blockstore()
			if err != nil {
				return err
			}
			defer e.close()

			f, err := os.Open(args[0])
			if err != nil {
				return errors.Wrap(err, "import")
			}
			defer f.Close()

			imported, err := bundle.ImportWithOptions(f, bs, bundle.ImportOptions{IgnoreUnknown: ignoreUnknown})
			if err != nil {
				return errors.WithMessagef(err, "import %s", args[0])
			}

			if _, err := f.Seek(0, io.SeekStart); err != nil {
				return errors.Wrap(err, "import")
			}
			labels, err := bundle.ReadIndex(f)
			if err != nil {
				return errors.WithMessagef(err, "import %s", args[0])
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "imported %d blocks\n", len(imported))
			names := make([]string, 0, len(labels))
			for name := range labels {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				key, err := e.format(labels[name])
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "root %s %s\n", key, name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&ignoreUnknown, "ignore-unknown", false, "Skip unrecognised bundle entries")
	return cmd
}
