// Package ipfs is a blockstore backed by the local Kubo "ipfs" CLI.
//
// It operates on the local IPFS repo and does not need a running daemon.
// Blocks are stored with the dag-pb codec under the block's own hash
// function, so a key written here is the same key Kubo reports. Every read is
// rehashed: the external repo is not trusted.
package ipfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/sirupsen/logrus"

	"xdao.co/dagstore/block"
	"xdao.co/dagstore/cidutil"
	"xdao.co/dagstore/multihash"
	"xdao.co/dagstore/storage"
)

var errBlockNotFound = errors.New("ipfs: block not found")

// Kubo names some functions by digest size.
var kuboNames = map[multihash.Code]string{
	multihash.SHA1:     "sha1",
	multihash.SHA2_256: "sha2-256",
	multihash.SHA2_512: "sha2-512",
	multihash.SHA3:     "sha3-512",
	multihash.BLAKE2B:  "blake2b-512",
	multihash.BLAKE2S:  "blake2s-256",
}

type Options struct {
	// Bin is the path to the ipfs binary. If empty, "ipfs" is used.
	Bin string
	// Env optionally overrides the command environment (e.g. to set IPFS_PATH).
	// If nil, the process environment is used.
	Env []string
	// Timeout bounds each command. Zero means no limit.
	Timeout time.Duration
}

// Store shells out to Kubo for every operation.
type Store struct {
	bin     string
	env     []string
	timeout time.Duration
}

var (
	_ storage.Blockstore = (*Store)(nil)
	_ storage.KeyLister  = (*Store)(nil)
)

func New(opts Options) *Store {
	bin := opts.Bin
	if bin == "" {
		bin = "ipfs"
	}
	return &Store{bin: bin, env: opts.Env, timeout: opts.Timeout}
}

func (s *Store) Put(b *block.Block) error {
	h := b.Multihash()
	dm, err := multihash.Decode(h)
	if err != nil {
		return err
	}
	name, ok := kuboNames[dm.Code]
	if !ok {
		return fmt.Errorf("%w: %s", multihash.ErrUnsupportedFunction, dm.Code)
	}

	out, err := s.run(b.Data(),
		"block", "put",
		"--quiet",
		"--cid-codec=dag-pb",
		"--mhtype="+name,
		"--mhlen="+strconv.Itoa(dm.Length),
		"/dev/stdin",
	)
	if err != nil {
		return storage.IOError("put", h, err)
	}

	c, err := cid.Decode(strings.TrimSpace(string(out)))
	if err != nil {
		return storage.IOError("put", h, fmt.Errorf("unexpected block put output: %w", err))
	}
	got, err := cidutil.ToMultihash(c)
	if err != nil {
		return storage.IOError("put", h, err)
	}
	if !got.Equal(h) {
		return storage.Integrity("put", h, fmt.Errorf("%w: ipfs stored %s", block.ErrHashMismatch, got))
	}
	logrus.WithFields(logrus.Fields{
		"hash": h.B58String(),
		"size": b.Size(),
	}).Debug("Block written to ipfs repo")
	return nil
}

func (s *Store) Get(h multihash.Multihash) (*block.Block, error) {
	c, err := cidutil.FromMultihash(h)
	if err != nil {
		return nil, err
	}
	out, err := s.run(nil, "block", "get", c.String())
	if err != nil {
		if isLikelyNotFound(err) {
			return nil, storage.NotFound("get", h)
		}
		return nil, storage.IOError("get", h, err)
	}
	b, err := block.NewVerified(out, h)
	if err != nil {
		return nil, storage.Integrity("get", h, err)
	}
	return b, nil
}

func (s *Store) Has(h multihash.Multihash) (bool, error) {
	c, err := cidutil.FromMultihash(h)
	if err != nil {
		return false, err
	}
	if _, err := s.run(nil, "block", "stat", "--offline", c.String()); err != nil {
		if isLikelyNotFound(err) {
			return false, nil
		}
		return false, storage.IOError("has", h, err)
	}
	return true, nil
}

func (s *Store) Delete(h multihash.Multihash) error {
	c, err := cidutil.FromMultihash(h)
	if err != nil {
		return err
	}
	if _, err := s.run(nil, "block", "rm", c.String()); err != nil {
		if isLikelyNotFound(err) {
			return storage.NotFound("delete", h)
		}
		return storage.IOError("delete", h, err)
	}
	return nil
}

// AllKeys lists every block in the local repo. Entries whose hash function
// is not registered here are skipped.
func (s *Store) AllKeys() ([]multihash.Multihash, error) {
	out, err := s.run(nil, "refs", "local")
	if err != nil {
		return nil, storage.IOError("list", nil, err)
	}
	var keys []multihash.Multihash
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		h, err := cidutil.Parse(line)
		if err != nil {
			logrus.WithField("ref", line).Debug("Skipping foreign ipfs ref")
			continue
		}
		keys = append(keys, h)
	}
	return keys, nil
}

func (s *Store) run(stdin []byte, args ...string) ([]byte, error) {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, s.bin, args...)
	if s.env != nil {
		cmd.Env = s.env
	}
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	out, err := cmd.Output()
	if err == nil {
		return out, nil
	}

	var ee *exec.ExitError
	if errors.As(err, &ee) {
		msg := strings.TrimSpace(string(ee.Stderr))
		if msg == "" {
			return nil, fmt.Errorf("ipfs: %v", err)
		}
		if lower := strings.ToLower(msg); strings.Contains(lower, "not found") || strings.Contains(lower, "could not find") {
			return nil, fmt.Errorf("%w: %s", errBlockNotFound, msg)
		}
		return nil, fmt.Errorf("ipfs: %s", msg)
	}
	return nil, err
}

func isLikelyNotFound(err error) bool {
	return errors.Is(err, errBlockNotFound)
}
