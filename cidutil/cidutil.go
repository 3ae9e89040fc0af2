// Package cidutil bridges store multihashes and CIDs.
//
// The store addresses everything by multihash. CIDs are only used at the
// edges: the gRPC transport carries CID strings and the CLI prints and
// parses them. Nodes encode as dag-pb, so sha2-256 hashes map to CIDv0
// (whose string form is the base58 multihash) and every other function
// maps to CIDv1 dag-pb.
package cidutil

import (
	"fmt"

	"github.com/ipfs/go-cid"
	gomh "github.com/multiformats/go-multihash"

	"xdao.co/dagstore/multihash"
)

// FromMultihash returns the CID that names a node stored under h.
func FromMultihash(h multihash.Multihash) (cid.Cid, error) {
	dm, err := multihash.Decode(h)
	if err != nil {
		return cid.Undef, err
	}
	if dm.Code == multihash.SHA2_256 && dm.Length == 32 {
		return cid.NewCidV0(gomh.Multihash(h)), nil
	}
	return cid.NewCidV1(cid.DagProtobuf, gomh.Multihash(h)), nil
}

// MustFromMultihash is FromMultihash for hashes already known to be valid.
func MustFromMultihash(h multihash.Multihash) cid.Cid {
	c, err := FromMultihash(h)
	if err != nil {
		panic(err)
	}
	return c
}

// ToMultihash extracts and validates the multihash carried by c.
func ToMultihash(c cid.Cid) (multihash.Multihash, error) {
	if !c.Defined() {
		return nil, fmt.Errorf("%w: undefined cid", multihash.ErrInvalidMultihash)
	}
	return multihash.Cast([]byte(c.Hash()))
}

// Parse accepts either a CID string or a base58 multihash and returns the
// multihash. CIDv0 strings and base58 sha2-256 multihashes are identical.
func Parse(s string) (multihash.Multihash, error) {
	c, err := cid.Decode(s)
	if err == nil {
		return ToMultihash(c)
	}
	h, herr := multihash.FromB58String(s)
	if herr != nil {
		return nil, fmt.Errorf("parse %q: %w", s, herr)
	}
	return h, nil
}
