package localfs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"xdao.co/dagstore/block"
	"xdao.co/dagstore/multihash"
	"xdao.co/dagstore/storage"
)

const (
	// DefaultPrefixLen is the number of hex characters naming a shard dir.
	DefaultPrefixLen = 8

	blockExt   = ".data"
	tempPrefix = ".put-"
)

// Options configures a Store.
type Options struct {
	// Fs is the backing filesystem. Nil means the OS filesystem.
	Fs afero.Fs
	// PrefixLen is the shard prefix length in hex characters (even, > 0).
	// Zero means DefaultPrefixLen.
	PrefixLen int
	// Verify recomputes the hash of every block read back.
	Verify bool
	// NoSync skips fsync before rename. Only for throwaway stores.
	NoSync bool
}

// Store is a sharded filesystem blockstore.
//
// A block with multihash h lives at
//
//	<root>/<hex(h)[:PrefixLen]>/<hex(h)>.data
//
// holding the raw block bytes with no header. Writes go to a temporary file
// in the shard directory, are synced, and are renamed into place, so a crash
// never leaves a partial block under its final name.
type Store struct {
	fs        afero.Fs
	root      string
	prefixLen int
	verify    bool
	sync      bool
}

var (
	_ storage.Blockstore = (*Store)(nil)
	_ storage.KeyLister  = (*Store)(nil)
)

// New constructs a Store rooted at root. The directory is created if needed.
func New(root string, opts Options) (*Store, error) {
	if root == "" {
		return nil, errors.New("localfs: root directory is required")
	}
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	prefixLen := opts.PrefixLen
	if prefixLen == 0 {
		prefixLen = DefaultPrefixLen
	}
	if prefixLen < 0 || prefixLen%2 != 0 {
		return nil, fmt.Errorf("localfs: prefix length must be a positive even number, got %d", prefixLen)
	}
	if err := fs.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("localfs: create root: %w", err)
	}
	return &Store{
		fs:        fs,
		root:      root,
		prefixLen: prefixLen,
		verify:    opts.Verify,
		sync:      !opts.NoSync,
	}, nil
}

// Root returns the directory the store is rooted at.
func (s *Store) Root() string { return s.root }

// PathFor returns the file path that holds h.
func (s *Store) PathFor(h multihash.Multihash) string {
	name := h.HexString()
	prefix := name
	if len(prefix) > s.prefixLen {
		prefix = prefix[:s.prefixLen]
	}
	return filepath.Join(s.root, prefix, name+blockExt)
}

func (s *Store) Has(h multihash.Multihash) (bool, error) {
	if err := h.Validate(); err != nil {
		return false, err
	}
	fi, err := s.fs.Stat(s.PathFor(h))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, storage.IOError("has", h, err)
	}
	return !fi.IsDir(), nil
}

func (s *Store) Get(h multihash.Multihash) (*block.Block, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, s.PathFor(h))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.NotFound("get", h)
		}
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
	ok, err := s.Has(h)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	path := s.PathFor(h)
	dir := filepath.Dir(path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return storage.IOError("put", h, fmt.Errorf("create shard dir: %w", err))
	}
	if err := s.writeAtomic(path, b.Data()); err != nil {
		return storage.IOError("put", h, err)
	}
	logrus.WithFields(logrus.Fields{
		"hash": h.B58String(),
		"size": b.Size(),
	}).Debug("Block written")
	return nil
}

// writeAtomic writes data to a temp file next to path, syncs it and renames
// it over path. The temp file is removed on any failure.
func (s *Store) writeAtomic(path string, data []byte) (err error) {
	f, err := afero.TempFile(s.fs, filepath.Dir(path), tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = s.fs.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if s.sync {
		if err = f.Sync(); err != nil {
			_ = f.Close()
			return fmt.Errorf("fsync temp file: %w", err)
		}
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = s.fs.Chmod(tmp, 0o444); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}

	// A concurrent writer may have won while we were writing. Its bytes are
	// identical, so drop ours.
	if _, serr := s.fs.Stat(path); serr == nil {
		_ = s.fs.Remove(tmp)
		return nil
	}
	if err = s.fs.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename temp to target: %w", err)
	}
	return nil
}

func (s *Store) Delete(h multihash.Multihash) error {
	if err := h.Validate(); err != nil {
		return err
	}
	if err := s.fs.Remove(s.PathFor(h)); err != nil {
		if os.IsNotExist(err) {
			return storage.NotFound("delete", h)
		}
		return storage.IOError("delete", h, err)
	}
	logrus.WithField("hash", h.B58String()).Debug("Block deleted")
	return nil
}

// AllKeys walks the shard tree. Temp files and foreign files are skipped.
func (s *Store) AllKeys() ([]multihash.Multihash, error) {
	var keys []multihash.Multihash
	err := afero.Walk(s.fs, s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		name := info.Name()
		if strings.HasPrefix(name, tempPrefix) || !strings.HasSuffix(name, blockExt) {
			return nil
		}
		h, err := multihash.FromHexString(strings.TrimSuffix(name, blockExt))
		if err != nil {
			logrus.WithField("path", path).Debug("Skipping foreign file in blockstore")
			return nil
		}
		keys = append(keys, h)
		return nil
	})
	if err != nil {
		return nil, storage.IOError("list", nil, err)
	}
	return keys, nil
}
