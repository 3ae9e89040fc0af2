package merkledag

import (
	"errors"

	"xdao.co/dagstore/multihash"
)

// ErrSkip returned from a WalkFunc prunes the node's children.
var ErrSkip = errors.New("merkledag: skip children")

// WalkFunc is called once per distinct node reached.
type WalkFunc func(h multihash.Multihash, n *Node) error

// Walk visits the DAG under root depth-first, parents before children and
// children in link order. Each hash is visited once. Link caches are read
// but not filled.
func Walk(g NodeGetter, root multihash.Multihash, visit WalkFunc) error {
	seen := make(map[string]struct{})
	var walk func(h multihash.Multihash, l *Link) error
	walk = func(h multihash.Multihash, l *Link) error {
		if _, ok := seen[string(h)]; ok {
			return nil
		}
		seen[string(h)] = struct{}{}

		var n *Node
		if l != nil {
			n, _ = l.Cached()
		}
		if n == nil {
			var err error
			if n, err = g.Get(h); err != nil {
				return err
			}
		}

		if err := visit(h, n); err != nil {
			if errors.Is(err, ErrSkip) {
				return nil
			}
			return err
		}
		for _, child := range n.links {
			if err := walk(child.Hash, child); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(root, nil)
}

// Collect returns every hash reachable from roots, roots included, in walk
// order.
func Collect(g NodeGetter, roots ...multihash.Multihash) ([]multihash.Multihash, error) {
	var out []multihash.Multihash
	seen := make(map[string]struct{})
	for _, root := range roots {
		err := Walk(g, root, func(h multihash.Multihash, _ *Node) error {
			if _, ok := seen[string(h)]; ok {
				return ErrSkip
			}
			seen[string(h)] = struct{}{}
			out = append(out, h)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
