package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"xdao.co/dagstore/unixfs"
)

func newAddCommand(e *env) *cobra.Command {
	var (
		chunker  string
		maxLinks int
		quiet    bool
	)
	cmd := &cobra.Command{
		Use:   "add <path>...",
		Short: "Add files to the store",
		Long:  "Chunks each file, stores the leaves and their parents, and prints the root CID.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := e.dag()
			if err != nil {
				return err
			}
			defer e.close()

			for _, p := range args {
				f, err := os.Open(p)
				if err != nil {
					return errors.Wrapf(err, "add %s", p)
				}
				root, err := unixfs.ImportReader(ds, f, chunker, unixfs.ImportOptions{MaxLinks: maxLinks})
				_ = f.Close()
				if err != nil {
					return errors.WithMessagef(err, "add %s", p)
				}
				key, err := e.format(root.Multihash())
				if err != nil {
					return err
				}
				if quiet {
					fmt.Fprintln(cmd.OutOrStdout(), key)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "added %s %s\n", key, filepath.Base(p))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&chunker, "chunker", "", "Chunking algorithm: size-<bytes> or rabin[-<min>-<avg>-<max>] (default fixed 256KiB)")
	cmd.Flags().IntVar(&maxLinks, "max-links", unixfs.DefaultMaxLinks, "Maximum links per interior node")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Print only the root CID")
	return cmd
}

func newCatCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "cat <key>",
		Short: "Write the contents of a file DAG to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := parseKey(args[0])
			if err != nil {
				return err
			}
			ds, err := e.dag()
			if err != nil {
				return err
			}
			defer e.close()

			_, err = unixfs.Cat(ds, h, cmd.OutOrStdout())
			return errors.WithMessagef(err, "cat %s", args[0])
		},
	}
}
