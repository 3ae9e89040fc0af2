// Package bundle moves blocks between blockstores as deterministic TAR
// archives.
//
// A bundle holds one regular file per block at blocks/<cid> and an optional
// index.json. Entry order is lexicographic and headers are normalized, so
// exporting the same set of blocks always yields the same bytes.
package bundle

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"xdao.co/dagstore/block"
	"xdao.co/dagstore/cidutil"
	"xdao.co/dagstore/multihash"
	"xdao.co/dagstore/storage"
)

// FormatVersion is the current bundle index schema version.
const FormatVersion = 1

const blocksDir = "blocks/"

var epoch0 = time.Unix(0, 0).UTC()

// ExportOptions controls bundle export behavior.
type ExportOptions struct {
	// Labels is optional, non-authoritative metadata mapping names to hashes,
	// typically the DAG roots the bundle was built from.
	Labels map[string]multihash.Multihash
	// IncludeIndex controls whether index.json is included.
	IncludeIndex bool
}

// Export writes a deterministic TAR bundle containing the blocks for hashes.
// Every exported block is verified against its hash first.
func Export(w io.Writer, bs storage.Blockstore, hashes []multihash.Multihash, opts ExportOptions) error {
	if bs == nil {
		return errors.New("bundle: nil blockstore")
	}

	uniq := make(map[string]multihash.Multihash, len(hashes))
	for _, h := range hashes {
		id, err := cidutil.FromMultihash(h)
		if err != nil {
			return errors.Wrap(err, "bundle: export")
		}
		uniq[id.String()] = h
	}

	names := make([]string, 0, len(uniq))
	for s := range uniq {
		names = append(names, s)
	}
	sort.Strings(names)

	tw := tar.NewWriter(w)
	fail := func(err error) error {
		_ = tw.Close()
		return err
	}

	blocks := make([]indexBlock, 0, len(names))
	for _, name := range names {
		h := uniq[name]
		b, err := bs.Get(h)
		if err != nil {
			return fail(errors.WithMessagef(err, "bundle: export %s", name))
		}
		if err := block.Verify(b.Data(), h); err != nil {
			return fail(storage.Integrity("export", h, err))
		}
		if err := writeFile(tw, blocksDir+name, b.Data()); err != nil {
			return fail(errors.Wrapf(err, "bundle: write %s", name))
		}
		blocks = append(blocks, indexBlock{CID: name, Size: b.Size()})
	}

	if opts.IncludeIndex {
		idx := indexJSON{Version: FormatVersion, Blocks: blocks}
		if len(opts.Labels) > 0 {
			keys := make([]string, 0, len(opts.Labels))
			for k := range opts.Labels {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			labels := make([]indexLabel, 0, len(keys))
			for _, k := range keys {
				if k == "" {
					return fail(errors.New("bundle: empty label key"))
				}
				id, err := cidutil.FromMultihash(opts.Labels[k])
				if err != nil {
					return fail(errors.Wrapf(err, "bundle: label %q", k))
				}
				labels = append(labels, indexLabel{Name: k, CID: id.String()})
			}
			idx.Labels = labels
		}

		b, err := marshalCanonicalIndexJSON(idx)
		if err != nil {
			return fail(err)
		}
		if err := writeFile(tw, "index.json", b); err != nil {
			return fail(errors.Wrap(err, "bundle: write index"))
		}
	}

	logrus.WithField("blocks", len(blocks)).Debug("Bundle exported")
	return tw.Close()
}

// ImportOptions controls bundle import behavior.
type ImportOptions struct {
	// IgnoreUnknown controls whether unknown TAR entries are ignored.
	//
	// Default (false) is fail-closed: unknown entries cause Import to return an error.
	IgnoreUnknown bool
}

// Import reads a bundle from r and imports all blocks into bs.
//
// Default behavior is fail-closed: unknown entries cause an error.
// Use ImportWithOptions to allow ignoring unknown entries.
func Import(r io.Reader, bs storage.Blockstore) ([]multihash.Multihash, error) {
	return ImportWithOptions(r, bs, ImportOptions{})
}

// ImportWithOptions reads a bundle from r and imports all blocks into bs,
// returning the imported hashes in bundle order.
//
// Each block's bytes must hash to the multihash named by its entry.
func ImportWithOptions(r io.Reader, bs storage.Blockstore, opts ImportOptions) ([]multihash.Multihash, error) {
	if bs == nil {
		return nil, errors.New("bundle: nil blockstore")
	}

	tr := tar.NewReader(r)
	seen := map[string]struct{}{}
	var imported []multihash.Multihash

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			logrus.WithField("blocks", len(imported)).Debug("Bundle imported")
			return imported, nil
		}
		if err != nil {
			return imported, errors.Wrap(err, "bundle: read entry")
		}
		name := cleanTarPath(hdr.Name)
		if name == "" {
			return imported, fmt.Errorf("bundle: invalid entry path: %q", hdr.Name)
		}

		if hdr.Typeflag != tar.TypeReg {
			if opts.IgnoreUnknown {
				continue
			}
			return imported, fmt.Errorf("bundle: unexpected tar entry type: %v (%s)", hdr.Typeflag, name)
		}

		// Non-authoritative metadata.
		if name == "index.json" {
			_, _ = io.Copy(io.Discard, tr)
			continue
		}

		if !strings.HasPrefix(name, blocksDir) {
			if opts.IgnoreUnknown {
				_, _ = io.Copy(io.Discard, tr)
				continue
			}
			return imported, fmt.Errorf("bundle: unknown entry: %s", name)
		}

		key := strings.TrimPrefix(name, blocksDir)
		h, err := cidutil.Parse(key)
		if err != nil {
			return imported, errors.Wrapf(err, "bundle: entry %s", name)
		}
		if _, ok := seen[key]; ok {
			return imported, fmt.Errorf("bundle: duplicate block entry: %s", key)
		}
		seen[key] = struct{}{}

		payload, err := io.ReadAll(tr)
		if err != nil {
			return imported, errors.Wrapf(err, "bundle: read %s", name)
		}
		b, err := block.NewVerified(payload, h)
		if err != nil {
			return imported, storage.Integrity("import", h, err)
		}
		if err := bs.Put(b); err != nil {
			return imported, errors.WithMessagef(err, "bundle: import %s", key)
		}
		imported = append(imported, h)
	}
}

// ReadIndex returns the labels recorded in a bundle's index.json, or an
// empty map if the bundle has none.
func ReadIndex(r io.Reader) (map[string]multihash.Multihash, error) {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return map[string]multihash.Multihash{}, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "bundle: read entry")
		}
		if cleanTarPath(hdr.Name) != "index.json" {
			continue
		}
		var idx indexJSON
		if err := json.NewDecoder(tr).Decode(&idx); err != nil {
			return nil, errors.Wrap(err, "bundle: decode index")
		}
		labels := make(map[string]multihash.Multihash, len(idx.Labels))
		for _, l := range idx.Labels {
			h, err := cidutil.Parse(l.CID)
			if err != nil {
				return nil, errors.Wrapf(err, "bundle: label %q", l.Name)
			}
			labels[l.Name] = h
		}
		return labels, nil
	}
}

type indexJSON struct {
	Version int          `json:"version"`
	Blocks  []indexBlock `json:"blocks"`
	Labels  []indexLabel `json:"labels,omitempty"`
}

type indexBlock struct {
	CID  string `json:"cid"`
	Size int    `json:"size"`
}

type indexLabel struct {
	Name string `json:"name"`
	CID  string `json:"cid"`
}

func marshalCanonicalIndexJSON(idx indexJSON) ([]byte, error) {
	// indexJSON is composed only of structs + slices; encoding/json will be deterministic.
	b, err := json.Marshal(idx)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func writeFile(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  epoch0,
		Typeflag: tar.TypeReg,
		Format:   tar.FormatUSTAR,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := io.Copy(tw, bytes.NewReader(content))
	return err
}

func cleanTarPath(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "./")
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return ""
	}

	parts := strings.Split(name, "/")
	for _, part := range parts {
		if part == "" || part == "." || part == ".." {
			return ""
		}
	}
	return name
}
