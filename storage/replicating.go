package storage

import (
	"fmt"

	"xdao.co/dagstore/block"
	"xdao.co/dagstore/multihash"
)

// NamedBlockstore associates a blockstore with a stable backend name.
type NamedBlockstore struct {
	Name  string
	Store Blockstore
}

// ReplicatingBlockstore writes to all configured backends.
//
// Reads fall back in order. A Put succeeds only when every backend accepted
// the block; the first failure is returned with the backend name attached.
type ReplicatingBlockstore struct {
	Backends []NamedBlockstore
}

var (
	_ Blockstore = ReplicatingBlockstore{}
	_ KeyLister  = ReplicatingBlockstore{}
)

// PutAll writes b to every backend and reports which ones already held it.
func (r ReplicatingBlockstore) PutAll(b *block.Block) (map[string]bool, error) {
	if len(r.Backends) == 0 {
		return nil, fmt.Errorf("storage: ReplicatingBlockstore has no backends")
	}
	existed := make(map[string]bool, len(r.Backends))
	for _, nb := range r.Backends {
		if nb.Store == nil {
			return existed, fmt.Errorf("storage: nil blockstore for backend %q", nb.Name)
		}
		had, err := nb.Store.Has(b.Multihash())
		if err != nil {
			return existed, fmt.Errorf("storage: backend %q: %w", nb.Name, err)
		}
		if err := nb.Store.Put(b); err != nil {
			return existed, fmt.Errorf("storage: backend %q: %w", nb.Name, err)
		}
		existed[nb.Name] = had
	}
	return existed, nil
}

func (r ReplicatingBlockstore) Put(b *block.Block) error {
	_, err := r.PutAll(b)
	return err
}

func (r ReplicatingBlockstore) Get(h multihash.Multihash) (*block.Block, error) {
	for _, nb := range r.Backends {
		if nb.Store == nil {
			continue
		}
		b, err := nb.Store.Get(h)
		if err == nil {
			return b, nil
		}
		if IsNotFound(err) {
			continue
		}
		return nil, err
	}
	return nil, NotFound("get", h)
}

func (r ReplicatingBlockstore) Has(h multihash.Multihash) (bool, error) {
	for _, nb := range r.Backends {
		if nb.Store == nil {
			continue
		}
		ok, err := nb.Store.Has(h)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (r ReplicatingBlockstore) Delete(h multihash.Multihash) error {
	return deleteAll(h, r.stores())
}

// AllKeys lists the union of every backend's keys.
func (r ReplicatingBlockstore) AllKeys() ([]multihash.Multihash, error) {
	return unionKeys(r.stores())
}

func (r ReplicatingBlockstore) stores() []Blockstore {
	stores := make([]Blockstore, 0, len(r.Backends))
	for _, nb := range r.Backends {
		if nb.Store != nil {
			stores = append(stores, nb.Store)
		}
	}
	return stores
}
