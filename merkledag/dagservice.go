package merkledag

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"xdao.co/dagstore/block"
	"xdao.co/dagstore/multihash"
	"xdao.co/dagstore/storage"
)

// DefaultNodeCacheSize bounds the decoded-node cache of a DagService.
const DefaultNodeCacheSize = 1024

// DagService stores nodes as blocks in a shared Blockstore.
type DagService struct {
	blocks storage.Blockstore
	nodes  *lru.Cache[string, *Node]
}

var _ NodeGetter = (*DagService)(nil)

// NewDagService wraps bs. cacheSize bounds the decoded-node cache; zero
// means DefaultNodeCacheSize and a negative value disables caching.
func NewDagService(bs storage.Blockstore, cacheSize int) *DagService {
	ds := &DagService{blocks: bs}
	if cacheSize == 0 {
		cacheSize = DefaultNodeCacheSize
	}
	if cacheSize > 0 {
		c, err := lru.New[string, *Node](cacheSize)
		if err != nil {
			panic(err)
		}
		ds.nodes = c
	}
	return ds
}

// Blockstore returns the underlying store.
func (ds *DagService) Blockstore() storage.Blockstore { return ds.blocks }

// Add stores the encoding of n and returns its hash. Links are not
// followed; their targets must already be stored.
func (ds *DagService) Add(n *Node) (multihash.Multihash, error) {
	h := n.Multihash()
	b := block.NewWithHash(n.Encode(), h)
	if err := ds.blocks.Put(b); err != nil {
		return nil, err
	}
	if ds.nodes != nil {
		ds.nodes.Add(string(h), n)
	}
	logrus.WithFields(logrus.Fields{
		"hash":  h.B58String(),
		"links": len(n.links),
		"size":  b.Size(),
	}).Debug("Node added")
	return h, nil
}

// Get fetches and decodes the node stored under h. It fails with a
// NotFound error if no block exists and Corrupt if the block is not a node.
func (ds *DagService) Get(h multihash.Multihash) (*Node, error) {
	if ds.nodes != nil {
		if n, ok := ds.nodes.Get(string(h)); ok {
			// The blockstore is shared; a delete may have bypassed us.
			present, err := ds.blocks.Has(h)
			if err != nil {
				return nil, err
			}
			if present {
				return n, nil
			}
			ds.nodes.Remove(string(h))
			return nil, storage.NotFound("get", h)
		}
	}
	b, err := ds.blocks.Get(h)
	if err != nil {
		return nil, err
	}
	n, err := Decode(b.Data())
	if err != nil {
		return nil, storage.Corrupt("get", h, err)
	}
	n.setHash(b.Multihash())
	if ds.nodes != nil {
		ds.nodes.Add(string(h), n)
	}
	return n, nil
}

// Has reports whether a block is stored under h.
func (ds *DagService) Has(h multihash.Multihash) (bool, error) {
	return ds.blocks.Has(h)
}

// Remove deletes the block stored under h. Nodes linking to it are left
// dangling.
func (ds *DagService) Remove(h multihash.Multihash) error {
	if ds.nodes != nil {
		ds.nodes.Remove(string(h))
	}
	return ds.blocks.Delete(h)
}
