// Package block defines the immutable unit of content-addressed storage.
package block

import (
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"

	"xdao.co/dagstore/cidutil"
	"xdao.co/dagstore/multihash"
)

// ErrHashMismatch is returned by NewVerified when data does not hash to the
// supplied multihash.
var ErrHashMismatch = errors.New("block: data does not match multihash")

// Block is an immutable (multihash, data) pair. Callers must not modify the
// slices returned by Data or Multihash.
type Block struct {
	hash multihash.Multihash
	data []byte
}

// New hashes data with the canonical function.
func New(data []byte) *Block {
	return &Block{hash: multihash.Hash(data), data: data}
}

// NewWithHash trusts h without recomputing it. Blockstores use this when
// reading back a key their own write path produced. Builds tagged
// blockverify recompute anyway and panic on mismatch.
func NewWithHash(data []byte, h multihash.Multihash) *Block {
	if verifyTrusted {
		b, err := NewVerified(data, h)
		if err != nil {
			panic(err)
		}
		return b
	}
	return &Block{hash: h, data: data}
}

// NewVerified recomputes the digest of data under h's own function and
// fails with ErrHashMismatch if it differs.
func NewVerified(data []byte, h multihash.Multihash) (*Block, error) {
	if err := Verify(data, h); err != nil {
		return nil, err
	}
	return &Block{hash: h, data: data}, nil
}

// Verify checks that data hashes to h.
func Verify(data []byte, h multihash.Multihash) error {
	dm, err := multihash.Decode(h)
	if err != nil {
		return err
	}
	got, err := multihash.Sum(data, dm.Code)
	if err != nil {
		return err
	}
	if !got.Equal(h) {
		return fmt.Errorf("%w: want %s, got %s", ErrHashMismatch, h, got)
	}
	return nil
}

func (b *Block) Data() []byte { return b.data }

func (b *Block) Multihash() multihash.Multihash { return b.hash }

func (b *Block) Size() int { return len(b.data) }

// Cid returns the CID form of the block's multihash.
func (b *Block) Cid() cid.Cid { return cidutil.MustFromMultihash(b.hash) }

func (b *Block) String() string { return fmt.Sprintf("[Block %s]", b.hash) }
