package bsconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"xdao.co/dagstore/storage"
	"xdao.co/dagstore/storage/bsregistry"
)

// Config describes how to open one or more blockstore backends via bsregistry.
// Callers still need to link desired backends via blank imports.
//
// WritePolicy values:
// - "first" (default): write only to the first backend; reads fall back in order
// - "all": write every block to every backend (storage.ReplicatingBlockstore)
//
// Keys are the multihash of the block bytes, so every backend files a block
// under the same key and "all" has nothing to reconcile after a write. A
// backend that stored different bytes is caught on read by its own
// verification, not here.
//
// Cache, when present, fronts the resulting store with storage.Cached. The
// bloom filter is warmed from every backend's keys, so all backends must list
// keys, and the opening process must be the only writer.
//
// Example:
//
//	{
//	  "write_policy": "all",
//	  "cache": {"blocks": 4096},
//	  "backends": [
//	    {"name":"localfs", "config":{"localfs-dir":"/tmp/blocks"}},
//	    {"name":"leveldb", "id":"index", "config":{"leveldb-dir":"/tmp/ldb"}}
//	  ]
//	}
//
// Config values are backend-specific and mirror the backend's flag names.
type Config struct {
	WritePolicy string          `json:"write_policy,omitempty"`
	Cache       *CacheConfig    `json:"cache,omitempty"`
	Backends    []BackendConfig `json:"backends"`
}

// CacheConfig sizes the storage.Cached front. Zero fields disable the
// matching part.
type CacheConfig struct {
	Blocks             int     `json:"blocks,omitempty"`
	BloomEntries       int     `json:"bloom_entries,omitempty"`
	BloomFalsePositive float64 `json:"bloom_false_positive,omitempty"`
}

func (c CacheConfig) options() storage.CacheOptions {
	return storage.CacheOptions{
		BlockCacheSize:     c.Blocks,
		BloomEntries:       c.BloomEntries,
		BloomFalsePositive: c.BloomFalsePositive,
	}
}

type BackendConfig struct {
	// Name is the bsregistry backend name to open (e.g. "grpc", "localfs", "leveldb").
	Name string `json:"name"`
	// ID is an optional stable alias used in logs and replication results.
	// If empty, Name is used.
	ID     string            `json:"id,omitempty"`
	Config map[string]string `json:"config,omitempty"`
}

func (b BackendConfig) id() string {
	if b.ID != "" {
		return b.ID
	}
	return b.Name
}

func LoadFile(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, errors.New("bsconfig: empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("bsconfig: parse %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if len(c.Backends) == 0 {
		return errors.New("bsconfig: at least one backend is required")
	}
	seen := make(map[string]struct{}, len(c.Backends))
	for _, b := range c.Backends {
		if b.Name == "" {
			return errors.New("bsconfig: backend name is required")
		}
		id := b.id()
		if _, ok := seen[id]; ok {
			return fmt.Errorf("bsconfig: duplicate backend id %q", id)
		}
		seen[id] = struct{}{}
	}
	if c.Cache != nil && (c.Cache.Blocks < 0 || c.Cache.BloomEntries < 0) {
		return errors.New("bsconfig: cache sizes must not be negative")
	}
	switch c.WritePolicy {
	case "", "first", "all":
		return nil
	default:
		return fmt.Errorf("bsconfig: invalid write_policy %q", c.WritePolicy)
	}
}

// Open opens a blockstore per config.
//
// If preferredBackend is non-empty, backends are reordered so preferredBackend
// is first (and thus used for writes when WritePolicy=="first").
func (c Config) Open(usage bsregistry.Usage, preferredBackend string) (storage.Blockstore, func() error, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}

	ordered := append([]BackendConfig(nil), c.Backends...)
	if preferredBackend != "" {
		idx := -1
		for i := range ordered {
			if ordered[i].Name == preferredBackend || ordered[i].ID == preferredBackend {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, nil, fmt.Errorf("bsconfig: preferred backend %q not found in config", preferredBackend)
		}
		if idx != 0 {
			b := ordered[idx]
			copy(ordered[1:idx+1], ordered[0:idx])
			ordered[0] = b
		}
	}

	named := make([]storage.NamedBlockstore, 0, len(ordered))
	closers := make([]func() error, 0, len(ordered))
	closeAll := func() error {
		var firstErr error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}

	for _, b := range ordered {
		bs, closeFn, err := bsregistry.OpenWithConfig(b.Name, usage, b.Config)
		if err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("bsconfig: open %q: %w", b.id(), err)
		}
		named = append(named, storage.NamedBlockstore{Name: b.id(), Store: bs})
		if closeFn != nil {
			closers = append(closers, closeFn)
		}
		logrus.WithFields(logrus.Fields{
			"backend": b.Name,
			"id":      b.id(),
		}).Debug("Opened blockstore backend")
	}

	var bs storage.Blockstore
	switch {
	case len(named) == 1:
		bs = named[0].Store
	case c.WritePolicy == "" || c.WritePolicy == "first":
		adapters := make([]storage.Blockstore, 0, len(named))
		for _, n := range named {
			adapters = append(adapters, n.Store)
		}
		bs = storage.MultiBlockstore{Adapters: adapters}
	default:
		bs = storage.ReplicatingBlockstore{Backends: named}
	}

	if c.Cache != nil {
		cached, err := storage.NewCached(bs, c.Cache.options())
		if err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("bsconfig: cache: %w", err)
		}
		bs = cached
	}
	return bs, closeAll, nil
}
