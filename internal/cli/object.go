package cli

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"xdao.co/dagstore/merkledag"
)

// objectJSON is the printed and accepted form of a node.
type objectJSON struct {
	Links []linkJSON `json:"Links"`
	Data  string     `json:"Data"`
}

type linkJSON struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size uint64 `json:"Size"`
}

func newObjectCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "object",
		Short: "Inspect and create DAG nodes",
	}
	cmd.AddCommand(
		newObjectGetCommand(e),
		newObjectPutCommand(e),
		newObjectLinksCommand(e),
		newObjectStatCommand(e),
	)
	return cmd
}

func (e *env) getNode(key string) (*merkledag.Node, error) {
	h, err := parseKey(key)
	if err != nil {
		return nil, err
	}
	ds, err := e.dag()
	if err != nil {
		return nil, err
	}
	n, err := ds.Get(h)
	if err != nil {
		return nil, errors.WithMessagef(err, "get %s", key)
	}
	return n, nil
}

func encodeData(data []byte, encoding string) (string, error) {
	switch encoding {
	case "text":
		return string(data), nil
	case "base64":
		return base64.StdEncoding.EncodeToString(data), nil
	default:
		return "", fmt.Errorf("unknown data encoding %q (want text or base64)", encoding)
	}
}

func decodeData(s, encoding string) ([]byte, error) {
	switch encoding {
	case "text":
		return []byte(s), nil
	case "base64":
		return base64.StdEncoding.DecodeString(s)
	default:
		return nil, fmt.Errorf("unknown data encoding %q (want text or base64)", encoding)
	}
}

func newObjectGetCommand(e *env) *cobra.Command {
	var dataEncoding string
	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print a node as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := e.getNode(args[0])
			defer e.close()
			if err != nil {
				return err
			}

			data, err := encodeData(n.Data(), dataEncoding)
			if err != nil {
				return err
			}
			obj := objectJSON{Links: []linkJSON{}, Data: data}
			for _, l := range n.Links() {
				key, err := e.format(l.Hash)
				if err != nil {
					return err
				}
				obj.Links = append(obj.Links, linkJSON{Name: l.Name, Hash: key, Size: l.Size})
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(obj)
		},
	}
	cmd.Flags().StringVar(&dataEncoding, "data-encoding", "text", "Encoding of the Data field: text or base64")
	return cmd
}

func newObjectPutCommand(e *env) *cobra.Command {
	var dataEncoding string
	cmd := &cobra.Command{
		Use:   "put [file]",
		Short: "Store a node described as JSON (reads stdin without a file)",
		Long:  "Accepts the format printed by 'object get'. Link targets must already be stored.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return errors.Wrap(err, "object put")
				}
				defer f.Close()
				r = f
			}
			var obj objectJSON
			if err := json.NewDecoder(r).Decode(&obj); err != nil {
				return errors.Wrap(err, "object put: decode")
			}
			data, err := decodeData(obj.Data, dataEncoding)
			if err != nil {
				return err
			}

			ds, err := e.dag()
			if err != nil {
				return err
			}
			defer e.close()

			links := make([]*merkledag.Link, 0, len(obj.Links))
			for _, l := range obj.Links {
				h, err := parseKey(l.Hash)
				if err != nil {
					return err
				}
				ok, err := ds.Has(h)
				if err != nil {
					return err
				}
				if !ok {
					return errors.Errorf("object put: link %q target %s is not stored", l.Name, l.Hash)
				}
				links = append(links, merkledag.MakeLink(l.Name, h, l.Size))
			}
			h, err := ds.Add(merkledag.NewNode(data, links...))
			if err != nil {
				return err
			}
			key, err := e.format(h)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", key)
			return nil
		},
	}
	cmd.Flags().StringVar(&dataEncoding, "data-encoding", "text", "Encoding of the Data field: text or base64")
	return cmd
}

func newObjectLinksCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "links <key>",
		Short: "List the links of a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := e.getNode(args[0])
			defer e.close()
			if err != nil {
				return err
			}
			for _, l := range n.Links() {
				key, err := e.format(l.Hash)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %d %s\n", key, l.Size, l.Name)
			}
			return nil
		},
	}
}

func newObjectStatCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "stat <key>",
		Short: "Print size statistics of a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := e.getNode(args[0])
			defer e.close()
			if err != nil {
				return err
			}
			st := n.Stat()
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "NumLinks: %d\n", st.NumLinks)
			fmt.Fprintf(w, "BlockSize: %d\n", st.BlockSize)
			fmt.Fprintf(w, "LinksSize: %d\n", st.LinksSize)
			fmt.Fprintf(w, "DataSize: %d\n", st.DataSize)
			fmt.Fprintf(w, "CumulativeSize: %d\n", st.CumulativeSize)
			return nil
		},
	}
}
