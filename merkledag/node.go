// Package merkledag models content-addressed nodes and the service that
// stores them as blocks.
//
// A Node is opaque data plus a set of named links to other nodes. Its
// identity is the multihash of its canonical encoding, so nodes are
// immutable once built. Callers add children before parents; DagService
// never recurses.
package merkledag

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ipfs/go-cid"

	"xdao.co/dagstore/cidutil"
	"xdao.co/dagstore/multihash"
)

// ErrLinkNotFound is returned by Node.Link for an unknown name.
var ErrLinkNotFound = errors.New("merkledag: no link by that name")

// Node is an immutable DAG vertex.
type Node struct {
	data  []byte
	links []*Link

	// mu guards hash, the only mutable state.
	mu   sync.RWMutex
	hash multihash.Multihash
}

// NewNode copies data and links and sorts the links into canonical order.
// Later changes to the caller's links do not affect the node.
func NewNode(data []byte, links ...*Link) *Node {
	n := &Node{
		data:  append([]byte{}, data...),
		links: cloneLinks(links),
	}
	sort.SliceStable(n.links, func(i, j int) bool { return n.links[i].less(n.links[j]) })
	return n
}

// Data returns the node payload. Callers must not modify it.
func (n *Node) Data() []byte { return n.data }

// Links returns copies of the links in canonical order.
func (n *Node) Links() []*Link { return cloneLinks(n.links) }

func cloneLinks(links []*Link) []*Link {
	out := make([]*Link, len(links))
	for i, l := range links {
		out[i] = l.clone()
	}
	return out
}

// Link returns a copy of the first link named name.
func (n *Node) Link(name string) (*Link, error) {
	i := sort.Search(len(n.links), func(i int) bool { return n.links[i].Name >= name })
	if i < len(n.links) && n.links[i].Name == name {
		return n.links[i].clone(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrLinkNotFound, name)
}

// Multihash returns the canonical hash of the node's encoding. It is
// computed once; a caller that loses the race to install it returns its own
// identical result.
func (n *Node) Multihash() multihash.Multihash {
	n.mu.RLock()
	h := n.hash
	n.mu.RUnlock()
	if h != nil {
		return h
	}

	h = multihash.Hash(n.Encode())
	if n.mu.TryLock() {
		if n.hash == nil {
			n.hash = h
		}
		n.mu.Unlock()
	}
	return h
}

// setHash records the key the node was fetched under.
func (n *Node) setHash(h multihash.Multihash) {
	n.mu.Lock()
	n.hash = h
	n.mu.Unlock()
}

// Cid returns the CID form of Multihash.
func (n *Node) Cid() cid.Cid { return cidutil.MustFromMultihash(n.Multihash()) }

// Size is the encoded size of the node plus the cumulative sizes of its
// link targets.
func (n *Node) Size() uint64 {
	s := uint64(len(n.Encode()))
	for _, l := range n.links {
		s += l.Size
	}
	return s
}

// NodeStat summarises a node for inspection.
type NodeStat struct {
	Hash           string
	NumLinks       int
	BlockSize      int
	LinksSize      int
	DataSize       int
	CumulativeSize uint64
}

func (n *Node) Stat() NodeStat {
	enc := n.Encode()
	return NodeStat{
		Hash:           n.Multihash().B58String(),
		NumLinks:       len(n.links),
		BlockSize:      len(enc),
		LinksSize:      len(enc) - len(n.data),
		DataSize:       len(n.data),
		CumulativeSize: n.Size(),
	}
}

func (n *Node) String() string {
	return fmt.Sprintf("[Node %s: %d bytes, %d links]", n.Multihash(), len(n.data), len(n.links))
}
