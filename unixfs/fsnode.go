// Package unixfs layers files on top of the Merkle DAG.
//
// A file is a tree of nodes whose data fields hold an FSNode. Leaves carry
// file bytes; parents carry the sizes of their children so readers can seek
// without fetching leaves.
package unixfs

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Type is the FSNode kind.
type Type int32

const (
	TypeRaw       Type = 0
	TypeDirectory Type = 1
	TypeFile      Type = 2
	TypeMetadata  Type = 3
	TypeSymlink   Type = 4
)

func (t Type) String() string {
	switch t {
	case TypeRaw:
		return "raw"
	case TypeDirectory:
		return "directory"
	case TypeFile:
		return "file"
	case TypeMetadata:
		return "metadata"
	case TypeSymlink:
		return "symlink"
	default:
		return fmt.Sprintf("type(%d)", int32(t))
	}
}

// ErrInvalidFSNode is returned when a node's data is not an FSNode.
var ErrInvalidFSNode = errors.New("unixfs: invalid fsnode")

// FSNode is the payload stored in a unixfs node's data field.
//
//	Data { 1: Type enum; 2: Data bytes; 3: filesize uint64; 4: repeated blocksizes uint64 }
type FSNode struct {
	Type       Type
	Data       []byte
	FileSize   uint64
	BlockSizes []uint64
}

const (
	fieldType       protowire.Number = 1
	fieldData       protowire.Number = 2
	fieldFileSize   protowire.Number = 3
	fieldBlockSizes protowire.Number = 4
)

// Encode serialises f. Data is omitted when empty; filesize is written for
// files and raw nodes.
func (f *FSNode) Encode() []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(f.Type))
	if len(f.Data) > 0 {
		b = protowire.AppendTag(b, fieldData, protowire.BytesType)
		b = protowire.AppendBytes(b, f.Data)
	}
	if f.Type == TypeFile || f.Type == TypeRaw {
		b = protowire.AppendTag(b, fieldFileSize, protowire.VarintType)
		b = protowire.AppendVarint(b, f.FileSize)
	}
	for _, s := range f.BlockSizes {
		b = protowire.AppendTag(b, fieldBlockSizes, protowire.VarintType)
		b = protowire.AppendVarint(b, s)
	}
	return b
}

// DecodeFSNode parses an FSNode. Unknown fields are skipped.
func DecodeFSNode(b []byte) (*FSNode, error) {
	f := &FSNode{}
	sawType := false
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFSNode, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldType && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: type: %v", ErrInvalidFSNode, protowire.ParseError(n))
			}
			f.Type, sawType, b = Type(v), true, b[n:]
		case num == fieldData && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: data: %v", ErrInvalidFSNode, protowire.ParseError(n))
			}
			f.Data, b = append([]byte{}, v...), b[n:]
		case num == fieldFileSize && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: filesize: %v", ErrInvalidFSNode, protowire.ParseError(n))
			}
			f.FileSize, b = v, b[n:]
		case num == fieldBlockSizes && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: blocksizes: %v", ErrInvalidFSNode, protowire.ParseError(n))
			}
			f.BlockSizes, b = append(f.BlockSizes, v), b[n:]
		case num == fieldBlockSizes && typ == protowire.BytesType:
			packed, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: blocksizes: %v", ErrInvalidFSNode, protowire.ParseError(n))
			}
			b = b[n:]
			for len(packed) > 0 {
				v, m := protowire.ConsumeVarint(packed)
				if m < 0 {
					return nil, fmt.Errorf("%w: blocksizes: %v", ErrInvalidFSNode, protowire.ParseError(m))
				}
				f.BlockSizes, packed = append(f.BlockSizes, v), packed[m:]
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("%w: field %d: %v", ErrInvalidFSNode, num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	if !sawType {
		return nil, fmt.Errorf("%w: missing type", ErrInvalidFSNode)
	}
	return f, nil
}
