package storage

import (
	"fmt"

	"github.com/AndreasBriese/bbloom"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"xdao.co/dagstore/block"
	"xdao.co/dagstore/multihash"
)

// CacheOptions sizes the Cached wrapper.
type CacheOptions struct {
	// BloomEntries is the expected number of keys; 0 disables the filter.
	BloomEntries int
	// BloomFalsePositive is the target false-positive rate.
	BloomFalsePositive float64
	// BlockCacheSize is the number of blocks kept in memory; 0 disables it.
	BlockCacheSize int
}

// DefaultCacheOptions suits a single daemon owning one store.
func DefaultCacheOptions() CacheOptions {
	return CacheOptions{
		BloomEntries:       1 << 20,
		BloomFalsePositive: 0.001,
		BlockCacheSize:     1024,
	}
}

// Cached fronts a Blockstore with a bloom filter for negative lookups and an
// LRU of recently used blocks.
//
// The bloom filter is populated from the backing store's keys at
// construction and from every Put through the wrapper. It is only sound
// while this wrapper is the sole writer of the backing store: a block
// written around it reads as absent.
type Cached struct {
	backing Blockstore
	bloom   *bbloom.Bloom
	blocks  *lru.Cache[string, *block.Block]
}

var _ Blockstore = (*Cached)(nil)

// NewCached wraps backing. If the bloom filter is enabled, backing must
// implement KeyLister.
func NewCached(backing Blockstore, opts CacheOptions) (*Cached, error) {
	c := &Cached{backing: backing}
	if opts.BlockCacheSize > 0 {
		cache, err := lru.New[string, *block.Block](opts.BlockCacheSize)
		if err != nil {
			return nil, fmt.Errorf("storage: block cache: %w", err)
		}
		c.blocks = cache
	}
	if opts.BloomEntries > 0 {
		keys, err := AllKeys(backing)
		if err != nil {
			return nil, fmt.Errorf("storage: warm bloom filter: %w", err)
		}
		fp := opts.BloomFalsePositive
		if fp <= 0 || fp >= 1 {
			fp = 0.001
		}
		bl := bbloom.New(float64(opts.BloomEntries), fp)
		for _, k := range keys {
			bl.AddTS(k)
		}
		c.bloom = &bl
		logrus.WithFields(logrus.Fields{
			"keys":    len(keys),
			"entries": opts.BloomEntries,
		}).Debug("Bloom filter warmed")
	}
	return c, nil
}

// mayHave is false only when h is certainly absent.
func (c *Cached) mayHave(h multihash.Multihash) bool {
	return c.bloom == nil || c.bloom.HasTS(h)
}

func (c *Cached) Has(h multihash.Multihash) (bool, error) {
	if c.blocks != nil && c.blocks.Contains(string(h)) {
		return true, nil
	}
	if !c.mayHave(h) {
		return false, nil
	}
	return c.backing.Has(h)
}

func (c *Cached) Get(h multihash.Multihash) (*block.Block, error) {
	if c.blocks != nil {
		if b, ok := c.blocks.Get(string(h)); ok {
			return b, nil
		}
	}
	if !c.mayHave(h) {
		return nil, NotFound("get", h)
	}
	b, err := c.backing.Get(h)
	if err != nil {
		return nil, err
	}
	if c.blocks != nil {
		c.blocks.Add(string(h), b)
	}
	return b, nil
}

func (c *Cached) Put(b *block.Block) error {
	if err := c.backing.Put(b); err != nil {
		return err
	}
	if c.bloom != nil {
		c.bloom.AddTS(b.Multihash())
	}
	return nil
}

func (c *Cached) Delete(h multihash.Multihash) error {
	if c.blocks != nil {
		c.blocks.Remove(string(h))
	}
	return c.backing.Delete(h)
}

func (c *Cached) AllKeys() ([]multihash.Multihash, error) {
	return AllKeys(c.backing)
}
