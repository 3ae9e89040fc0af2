// Package storage defines the blockstore contract shared by every backend.
package storage

import (
	"xdao.co/dagstore/block"
	"xdao.co/dagstore/multihash"
)

// Blockstore is a durable mapping from multihash to raw block bytes.
//
// Contract:
// - Put MUST be idempotent; putting a block whose hash is present is a no-op.
// - Stored blocks MUST be immutable and never visible partially written.
// - Get MUST return an error matching ErrNotFound when the hash is absent.
// - Delete MUST return an error matching ErrNotFound when the hash is absent.
// - Implementations MUST be safe for concurrent use.
//
// All methods perform blocking I/O and are not cancellable.
type Blockstore interface {
	Has(h multihash.Multihash) (bool, error)
	Get(h multihash.Multihash) (*block.Block, error)
	Put(b *block.Block) error
	Delete(h multihash.Multihash) error
}

// KeyLister is implemented by blockstores that can enumerate their keys.
type KeyLister interface {
	AllKeys() ([]multihash.Multihash, error)
}

// AllKeys enumerates bs if it supports listing.
func AllKeys(bs Blockstore) ([]multihash.Multihash, error) {
	kl, ok := bs.(KeyLister)
	if !ok {
		return nil, ErrUnsupported
	}
	return kl.AllKeys()
}
