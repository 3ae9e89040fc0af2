package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"xdao.co/dagstore/block"
	"xdao.co/dagstore/multihash"
	"xdao.co/dagstore/storage"
)

func newBlockCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "block",
		Short: "Work with raw blocks",
	}
	cmd.AddCommand(
		newBlockPutCommand(e),
		newBlockGetCommand(e),
		newBlockStatCommand(e),
		newBlockRmCommand(e),
		newBlockLsCommand(e),
	)
	return cmd
}

func newBlockPutCommand(e *env) *cobra.Command {
	var mhType string
	cmd := &cobra.Command{
		Use:   "put [file]",
		Short: "Store raw bytes as a block (reads stdin without a file)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := multihash.CodeByName(mhType)
			if err != nil {
				return errors.WithMessage(err, "invalid --mhtype")
			}
			var data []byte
			if len(args) == 1 {
				data, err = os.ReadFile(args[0])
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return errors.Wrap(err, "block put: read input")
			}
			h, err := multihash.Sum(data, code)
			if err != nil {
				return err
			}
			b, err := block.NewVerified(data, h)
			if err != nil {
				return err
			}

			bs, err := e.blockstore()
			if err != nil {
				return err
			}
			defer e.close()
			if err := bs.Put(b); err != nil {
				return errors.WithMessage(err, "block put")
			}
			key, err := e.format(h)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
	cmd.Flags().StringVar(&mhType, "mhtype", multihash.Default.String(), "Multihash function")
	return cmd
}

func newBlockGetCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Write the raw bytes of a block to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := parseKey(args[0])
			if err != nil {
				return err
			}
			bs, err := e.blockstore()
			if err != nil {
				return err
			}
			defer e.close()
			b, err := bs.Get(h)
			if err != nil {
				return errors.WithMessagef(err, "block get %s", args[0])
			}
			_, err = cmd.OutOrStdout().Write(b.Data())
			return err
		},
	}
}

func newBlockStatCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "stat <key>",
		Short: "Print the key and size of a block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := parseKey(args[0])
			if err != nil {
				return err
			}
			bs, err := e.blockstore()
			if err != nil {
				return err
			}
			defer e.close()
			b, err := bs.Get(h)
			if err != nil {
				return errors.WithMessagef(err, "block stat %s", args[0])
			}
			key, err := e.format(h)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Key: %s\n", key)
			fmt.Fprintf(w, "Multihash: %s\n", h.Code())
			fmt.Fprintf(w, "Size: %d\n", b.Size())
			return nil
		},
	}
}

func newBlockRmCommand(e *env) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "rm <key>...",
		Short: "Delete blocks",
		Long:  "Deletes blocks only. Nodes that link to a removed block are left dangling.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bs, err := e.blockstore()
			if err != nil {
				return err
			}
			defer e.close()
			for _, arg := range args {
				h, err := parseKey(arg)
				if err != nil {
					return err
				}
				if err := bs.Delete(h); err != nil {
					if force && storage.IsNotFound(err) {
						continue
					}
					return errors.WithMessagef(err, "block rm %s", arg)
				}
				key, err := e.format(h)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", key)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Ignore blocks that do not exist")
	return cmd
}

func newBlockLsCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List every stored block",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bs, err := e.blockstore()
			if err != nil {
				return err
			}
			defer e.close()
			keys, err := storage.AllKeys(bs)
			if err != nil {
				return errors.WithMessage(err, "block ls")
			}
			for _, h := range keys {
				key, err := e.format(h)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), key)
			}
			return nil
		},
	}
}
