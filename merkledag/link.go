package merkledag

import (
	"bytes"
	"fmt"
	"sync/atomic"

	"xdao.co/dagstore/multihash"
)

// NodeGetter fetches decoded nodes by hash. *DagService implements it.
type NodeGetter interface {
	Get(h multihash.Multihash) (*Node, error)
}

// Link is a named, sized reference from a node to another node.
//
// Size is the cumulative size of the target's subtree. A link may carry the
// resolved target in a cache slot; the slot never owns the node, the
// DagService and its blockstore do.
type Link struct {
	Name string
	Hash multihash.Multihash
	Size uint64

	node atomic.Pointer[Node]
}

// NewLink links to n, taking hash and size from it and caching n.
func NewLink(name string, n *Node) *Link {
	l := &Link{Name: name, Hash: n.Multihash(), Size: n.Size()}
	l.node.Store(n)
	return l
}

// MakeLink builds an unresolved link from its parts.
func MakeLink(name string, h multihash.Multihash, size uint64) *Link {
	return &Link{Name: name, Hash: h, Size: size}
}

// clone copies l, sharing only the borrowed target.
func (l *Link) clone() *Link {
	c := &Link{Name: l.Name, Hash: append(multihash.Multihash(nil), l.Hash...), Size: l.Size}
	c.node.Store(l.node.Load())
	return c
}

// Cached returns the resolved target if the link holds one.
func (l *Link) Cached() (*Node, bool) {
	n := l.node.Load()
	return n, n != nil
}

// Resolve returns the cached target, or fetches it through g and caches it.
func (l *Link) Resolve(g NodeGetter) (*Node, error) {
	if n := l.node.Load(); n != nil {
		return n, nil
	}
	n, err := g.Get(l.Hash)
	if err != nil {
		return nil, err
	}
	l.node.CompareAndSwap(nil, n)
	return n, nil
}

func (l *Link) String() string {
	return fmt.Sprintf("%q -> %s (%d)", l.Name, l.Hash, l.Size)
}

// less is the canonical link order: name, then hash bytes, then size.
func (l *Link) less(o *Link) bool {
	if l.Name != o.Name {
		return l.Name < o.Name
	}
	if c := bytes.Compare(l.Hash, o.Hash); c != 0 {
		return c < 0
	}
	return l.Size < o.Size
}
