package merkledag

import (
	"bytes"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"xdao.co/dagstore/multihash"
)

// ErrInvalidEncoding is returned for bytes that are not a canonical node.
var ErrInvalidEncoding = errors.New("merkledag: invalid node encoding")

// Wire layout, protobuf-compatible:
//
//	Node { 1: Data bytes; 2: repeated Link }
//	Link { 1: Hash bytes; 2: Name string; 3: Tsize varint }
//
// Data is always present. Every link field is always present. Links follow
// data in canonical order.
const (
	fieldNodeData  protowire.Number = 1
	fieldNodeLinks protowire.Number = 2

	fieldLinkHash protowire.Number = 1
	fieldLinkName protowire.Number = 2
	fieldLinkSize protowire.Number = 3
)

// Encode returns the canonical encoding of n.
func (n *Node) Encode() []byte {
	size := protowire.SizeTag(fieldNodeData) + protowire.SizeBytes(len(n.data))
	for _, l := range n.links {
		size += protowire.SizeTag(fieldNodeLinks) + protowire.SizeBytes(linkSize(l))
	}

	b := make([]byte, 0, size)
	b = protowire.AppendTag(b, fieldNodeData, protowire.BytesType)
	b = protowire.AppendBytes(b, n.data)
	for _, l := range n.links {
		b = protowire.AppendTag(b, fieldNodeLinks, protowire.BytesType)
		b = protowire.AppendVarint(b, uint64(linkSize(l)))
		b = appendLink(b, l)
	}
	return b
}

func linkSize(l *Link) int {
	return protowire.SizeTag(fieldLinkHash) + protowire.SizeBytes(len(l.Hash)) +
		protowire.SizeTag(fieldLinkName) + protowire.SizeBytes(len(l.Name)) +
		protowire.SizeTag(fieldLinkSize) + protowire.SizeVarint(l.Size)
}

func appendLink(b []byte, l *Link) []byte {
	b = protowire.AppendTag(b, fieldLinkHash, protowire.BytesType)
	b = protowire.AppendBytes(b, l.Hash)
	b = protowire.AppendTag(b, fieldLinkName, protowire.BytesType)
	b = protowire.AppendString(b, l.Name)
	b = protowire.AppendTag(b, fieldLinkSize, protowire.VarintType)
	b = protowire.AppendVarint(b, l.Size)
	return b
}

// Decode parses a canonical node encoding. Input that would not re-encode
// to exactly the same bytes is rejected with ErrInvalidEncoding.
func Decode(b []byte) (*Node, error) {
	data, rest, err := consumeBytesField(b, fieldNodeData)
	if err != nil {
		return nil, fmt.Errorf("%w: data: %v", ErrInvalidEncoding, err)
	}

	var links []*Link
	for len(rest) > 0 {
		var raw []byte
		raw, rest, err = consumeBytesField(rest, fieldNodeLinks)
		if err != nil {
			return nil, fmt.Errorf("%w: link %d: %v", ErrInvalidEncoding, len(links), err)
		}
		l, err := decodeLink(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: link %d: %v", ErrInvalidEncoding, len(links), err)
		}
		links = append(links, l)
	}

	n := NewNode(data, links...)
	if !bytes.Equal(n.Encode(), b) {
		return nil, fmt.Errorf("%w: not in canonical form", ErrInvalidEncoding)
	}
	return n, nil
}

func decodeLink(b []byte) (*Link, error) {
	hash, b, err := consumeBytesField(b, fieldLinkHash)
	if err != nil {
		return nil, fmt.Errorf("hash: %v", err)
	}
	h, err := multihash.Cast(append([]byte{}, hash...))
	if err != nil {
		return nil, err
	}
	name, b, err := consumeBytesField(b, fieldLinkName)
	if err != nil {
		return nil, fmt.Errorf("name: %v", err)
	}

	num, typ, n := protowire.ConsumeTag(b)
	if n < 0 {
		return nil, protowire.ParseError(n)
	}
	if num != fieldLinkSize || typ != protowire.VarintType {
		return nil, fmt.Errorf("unexpected field %d (type %d)", num, typ)
	}
	b = b[n:]
	size, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return nil, protowire.ParseError(n)
	}
	if len(b[n:]) != 0 {
		return nil, errors.New("trailing bytes")
	}
	return MakeLink(string(name), h, size), nil
}

func consumeBytesField(b []byte, want protowire.Number) (val, rest []byte, err error) {
	num, typ, n := protowire.ConsumeTag(b)
	if n < 0 {
		return nil, nil, protowire.ParseError(n)
	}
	if num != want || typ != protowire.BytesType {
		return nil, nil, fmt.Errorf("unexpected field %d (type %d), want %d", num, typ, want)
	}
	b = b[n:]
	val, n = protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, nil, protowire.ParseError(n)
	}
	return val, b[n:], nil
}
