package storage

import (
	"errors"

	"xdao.co/dagstore/block"
	"xdao.co/dagstore/multihash"
)

// MultiBlockstore provides deterministic, ordered fallback across several
// blockstores.
//
// Reads try Adapters in slice order. Put writes only to the first adapter.
// Delete removes from every adapter holding the block.
type MultiBlockstore struct {
	Adapters []Blockstore
}

var (
	_ Blockstore = MultiBlockstore{}
	_ KeyLister  = MultiBlockstore{}
)

var errNoAdapters = errors.New("storage: MultiBlockstore has no adapters")

func (m MultiBlockstore) Put(b *block.Block) error {
	if len(m.Adapters) == 0 {
		return errNoAdapters
	}
	return m.Adapters[0].Put(b)
}

func (m MultiBlockstore) Get(h multihash.Multihash) (*block.Block, error) {
	for _, bs := range m.Adapters {
		b, err := bs.Get(h)
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

func (m MultiBlockstore) Has(h multihash.Multihash) (bool, error) {
	for _, bs := range m.Adapters {
		ok, err := bs.Has(h)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (m MultiBlockstore) Delete(h multihash.Multihash) error {
	return deleteAll(h, m.Adapters)
}

func deleteAll(h multihash.Multihash, stores []Blockstore) error {
	var deleted bool
	for _, bs := range stores {
		err := bs.Delete(h)
		if err == nil {
			deleted = true
			continue
		}
		if IsNotFound(err) {
			continue
		}
		return err
	}
	if !deleted {
		return NotFound("delete", h)
	}
	return nil
}

// AllKeys lists the union of every adapter's keys. It fails with
// ErrUnsupported unless every adapter can list.
func (m MultiBlockstore) AllKeys() ([]multihash.Multihash, error) {
	return unionKeys(m.Adapters)
}

func unionKeys(stores []Blockstore) ([]multihash.Multihash, error) {
	seen := make(map[string]struct{})
	var out []multihash.Multihash
	for _, bs := range stores {
		keys, err := AllKeys(bs)
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			if _, ok := seen[string(k)]; ok {
				continue
			}
			seen[string(k)] = struct{}{}
			out = append(out, k)
		}
	}
	return out, nil
}
