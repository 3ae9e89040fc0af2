package unixfs

import (
	"fmt"
	"io"

	chunk "github.com/ipfs/go-ipfs-chunker"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"xdao.co/dagstore/merkledag"
	"xdao.co/dagstore/multihash"
)

// DefaultMaxLinks bounds the fan-out of an interior file node.
const DefaultMaxLinks = 174

// childNameWidth keeps index-named links in byte order under the canonical
// name sort.
const childNameWidth = 8

// ImportOptions controls file import.
type ImportOptions struct {
	// MaxLinks is the fan-out of interior nodes. Zero means DefaultMaxLinks.
	MaxLinks int
}

// importedNode is what a parent needs from a stored child.
type importedNode struct {
	hash     multihash.Multihash
	dagSize  uint64
	fileSize uint64
}

// builder groups stored nodes into parents as they arrive. levels[0] holds
// leaves; a full level is flushed into one parent at the level above, so
// memory is bounded by depth times fan-out.
type builder struct {
	ds       *merkledag.DagService
	maxLinks int
	levels   [][]importedNode
	last     *merkledag.Node
}

func (b *builder) push(level int, n importedNode) error {
	if level == len(b.levels) {
		b.levels = append(b.levels, nil)
	}
	b.levels[level] = append(b.levels[level], n)
	if len(b.levels[level]) < b.maxLinks {
		return nil
	}
	return b.flush(level)
}

func (b *builder) flush(level int) error {
	parent, err := b.addParent(b.levels[level])
	if err != nil {
		return err
	}
	b.levels[level] = b.levels[level][:0]
	return b.push(level+1, parent)
}

// finish flushes partial levels bottom-up until one node remains.
func (b *builder) finish() error {
	for level := 0; level < len(b.levels); level++ {
		pending := len(b.levels[level])
		higher := false
		for _, l := range b.levels[level+1:] {
			if len(l) > 0 {
				higher = true
				break
			}
		}
		if !higher && pending <= 1 {
			return nil
		}
		if pending > 0 {
			if err := b.flush(level); err != nil {
				return err
			}
		}
	}
	return nil
}

// Import reads every chunk from spl and stores the file as a tree of
// nodes, returning the root. Children are always added before their
// parents. Interior links are named by zero-padded child index.
func Import(ds *merkledag.DagService, spl chunk.Splitter, opts ImportOptions) (*merkledag.Node, error) {
	maxLinks := opts.MaxLinks
	if maxLinks == 0 {
		maxLinks = DefaultMaxLinks
	}
	if maxLinks < 2 {
		return nil, fmt.Errorf("unixfs: max links must be at least 2, got %d", maxLinks)
	}
	b := &builder{ds: ds, maxLinks: maxLinks}

	leaves := 0
	for {
		data, err := spl.NextBytes()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "unixfs: read chunk")
		}
		if err := b.addLeaf(data); err != nil {
			return nil, err
		}
		leaves++
	}
	if leaves == 0 {
		if err := b.addLeaf(nil); err != nil {
			return nil, err
		}
	}
	if err := b.finish(); err != nil {
		return nil, err
	}

	root := b.last
	logrus.WithFields(logrus.Fields{
		"hash":   root.Multihash().B58String(),
		"leaves": leaves,
		"depth":  len(b.levels) - 1,
	}).Debug("File imported")
	return root, nil
}

// ImportReader imports r with a splitter described by chunker, for example
// "size-262144" or "rabin". An empty chunker selects fixed-size chunks of
// chunk.DefaultBlockSize.
func ImportReader(ds *merkledag.DagService, r io.Reader, chunker string, opts ImportOptions) (*merkledag.Node, error) {
	var spl chunk.Splitter
	if chunker == "" {
		spl = chunk.NewSizeSplitter(r, chunk.DefaultBlockSize)
	} else {
		var err error
		if spl, err = chunk.FromString(r, chunker); err != nil {
			return nil, errors.Wrapf(err, "unixfs: chunker %q", chunker)
		}
	}
	return Import(ds, spl, opts)
}

func (b *builder) add(n *merkledag.Node, fileSize uint64) (importedNode, error) {
	h, err := b.ds.Add(n)
	if err != nil {
		return importedNode{}, err
	}
	b.last = n
	return importedNode{hash: h, dagSize: n.Size(), fileSize: fileSize}, nil
}

func (b *builder) addLeaf(data []byte) error {
	fs := FSNode{Type: TypeFile, Data: data, FileSize: uint64(len(data))}
	leaf, err := b.add(merkledag.NewNode(fs.Encode()), fs.FileSize)
	if err != nil {
		return errors.WithMessage(err, "unixfs: add leaf")
	}
	return b.push(0, leaf)
}

func (b *builder) addParent(children []importedNode) (importedNode, error) {
	fs := FSNode{Type: TypeFile, BlockSizes: make([]uint64, 0, len(children))}
	links := make([]*merkledag.Link, 0, len(children))
	for i, c := range children {
		fs.FileSize += c.fileSize
		fs.BlockSizes = append(fs.BlockSizes, c.fileSize)
		links = append(links, merkledag.MakeLink(childName(i), c.hash, c.dagSize))
	}
	parent, err := b.add(merkledag.NewNode(fs.Encode(), links...), fs.FileSize)
	if err != nil {
		return importedNode{}, errors.WithMessage(err, "unixfs: add parent")
	}
	return parent, nil
}

func childName(i int) string {
	return fmt.Sprintf("%0*d", childNameWidth, i)
}
