// Package leveldb is a Blockstore on a goleveldb database, keyed by the raw
// multihash bytes. It suits stores with many small blocks where one file
// per block is wasteful.
package leveldb

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	ldbstorage "github.com/syndtr/goleveldb/leveldb/storage"

	"xdao.co/dagstore/block"
	"xdao.co/dagstore/multihash"
	"xdao.co/dagstore/storage"
)

// Options configures a Store.
type Options struct {
	// Verify recomputes the hash of every block read back.
	Verify bool
	// NoSync skips the synchronous flush on writes.
	NoSync bool
}

// Store is a leveldb-backed blockstore.
type Store struct {
	// mu serialises check-then-write in Put so racing writers of the same
	// key issue a single write.
	mu     sync.Mutex
	db     *leveldb.DB
	verify bool
	wo     *opt.WriteOptions
}

var (
	_ storage.Blockstore = (*Store)(nil)
	_ storage.KeyLister  = (*Store)(nil)
)

// Open opens (or creates) the database directory at path.
func Open(path string, opts Options) (*Store, error) {
	if path == "" {
		return nil, errors.New("leveldb: database path is required")
	}
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("leveldb: open %s: %w", path, err)
	}
	return newStore(db, opts), nil
}

// OpenMemory opens a throwaway in-memory database.
func OpenMemory(opts Options) (*Store, error) {
	db, err := leveldb.Open(ldbstorage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("leveldb: open memory storage: %w", err)
	}
	return newStore(db, opts), nil
}

func newStore(db *leveldb.DB, opts Options) *Store {
	return &Store{
		db:     db,
		verify: opts.Verify,
		wo:     &opt.WriteOptions{Sync: !opts.NoSync},
	}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Has(h multihash.Multihash) (bool, error) {
	if err := h.Validate(); err != nil {
		return false, err
	}
	ok, err := s.db.Has(h, nil)
	if err != nil {
		return false, storage.IOError("has", h, err)
	}
	return ok, nil
}

func (s *Store) Get(h multihash.Multihash) (*block.Block, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	data, err := s.db.Get(h, nil)
	if err == leveldb.ErrNotFound {
		return nil, storage.NotFound("get", h)
	}
	if err != nil {
		return nil, storage.IOError("get", h, err)
	}
	if s.verify {
		b, err := block.NewVerified(data, h)
		if err != nil {
			return nil, storage.Integrity("get", h, err)
		}
		return b, nil
	}
	return block.NewWithHash(data, h), nil
}

func (s *Store) Put(b *block.Block) error {
	h := b.Multihash()
	if err := h.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.db.Has(h, nil)
	if err != nil {
		return storage.IOError("put", h, err)
	}
	if ok {
		return nil
	}
	if err := s.db.Put(h, b.Data(), s.wo); err != nil {
		return storage.IOError("put", h, err)
	}
	logrus.WithFields(logrus.Fields{
		"hash": h.B58String(),
		"size": b.Size(),
	}).Debug("Block written")
	return nil
}

func (s *Store) Delete(h multihash.Multihash) error {
	if err := h.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.db.Has(h, nil)
	if err != nil {
		return storage.IOError("delete", h, err)
	}
	if !ok {
		return storage.NotFound("delete", h)
	}
	if err := s.db.Delete(h, s.wo); err != nil {
		return storage.IOError("delete", h, err)
	}
	logrus.WithField("hash", h.B58String()).Debug("Block deleted")
	return nil
}

func (s *Store) AllKeys() ([]multihash.Multihash, error) {
	iter := s.db.NewIterator(nil, nil)
	defer iter.Release()

	var keys []multihash.Multihash
	for iter.Next() {
		// Iterator keys are only valid until the next call.
		k := append([]byte(nil), iter.Key()...)
		h, err := multihash.Cast(k)
		if err != nil {
			logrus.WithError(err).Debug("Skipping foreign key in blockstore")
			continue
		}
		keys = append(keys, h)
	}
	if err := iter.Error(); err != nil {
		return nil, storage.IOError("list", nil, err)
	}
	return keys, nil
}
