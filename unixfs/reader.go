package unixfs

import (
	"fmt"
	"io"

	"github.com/pkg/errors"

	"xdao.co/dagstore/merkledag"
	"xdao.co/dagstore/multihash"
)

// ErrNotFile is returned when a node is not a unixfs file.
var ErrNotFile = errors.New("unixfs: not a file")

// Reader streams the bytes of a file DAG, fetching nodes on demand.
type Reader struct {
	g    merkledag.NodeGetter
	size uint64

	// stack holds the remaining children of every open interior node.
	stack [][]*merkledag.Link
	buf   []byte
}

// NewReader opens the file rooted at root.
func NewReader(g merkledag.NodeGetter, root *merkledag.Node) (*Reader, error) {
	fs, err := fileNode(root)
	if err != nil {
		return nil, err
	}
	r := &Reader{g: g, size: fs.FileSize}
	r.enter(root, fs)
	return r, nil
}

// Size returns the file length recorded in the root.
func (r *Reader) Size() uint64 { return r.size }

func (r *Reader) enter(n *merkledag.Node, fs *FSNode) {
	r.buf = fs.Data
	if links := n.Links(); len(links) > 0 {
		r.stack = append(r.stack, links)
	}
}

// next loads the data of the next node in file order into buf.
func (r *Reader) next() error {
	for len(r.stack) > 0 {
		top := len(r.stack) - 1
		if len(r.stack[top]) == 0 {
			r.stack = r.stack[:top]
			continue
		}
		l := r.stack[top][0]
		r.stack[top] = r.stack[top][1:]

		n, err := r.g.Get(l.Hash)
		if err != nil {
			return errors.WithMessagef(err, "unixfs: read child %q", l.Name)
		}
		fs, err := fileNode(n)
		if err != nil {
			return err
		}
		r.enter(n, fs)
		return nil
	}
	return io.EOF
}

func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(r.buf) == 0 {
		if err := r.next(); err != nil {
			return 0, err
		}
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

// WriteTo copies the whole file to w.
func (r *Reader) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for {
		if len(r.buf) > 0 {
			n, err := w.Write(r.buf)
			total += int64(n)
			r.buf = r.buf[n:]
			if err != nil {
				return total, err
			}
		}
		if err := r.next(); err != nil {
			if err == io.EOF {
				return total, nil
			}
			return total, err
		}
	}
}

func fileNode(n *merkledag.Node) (*FSNode, error) {
	fs, err := DecodeFSNode(n.Data())
	if err != nil {
		return nil, errors.Wrapf(err, "unixfs: node %s", n.Multihash())
	}
	if fs.Type != TypeFile && fs.Type != TypeRaw {
		return nil, fmt.Errorf("%w: node %s is %s", ErrNotFile, n.Multihash(), fs.Type)
	}
	return fs, nil
}

// Cat writes the file stored under h to w.
func Cat(ds *merkledag.DagService, h multihash.Multihash, w io.Writer) (int64, error) {
	root, err := ds.Get(h)
	if err != nil {
		return 0, err
	}
	r, err := NewReader(ds, root)
	if err != nil {
		return 0, err
	}
	return r.WriteTo(w)
}
