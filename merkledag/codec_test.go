package merkledag

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"xdao.co/dagstore/multihash"
)

func TestEncode_LeafLayout(t *testing.T) {
	n := NewNode([]byte("hello"))
	require.Equal(t, []byte{0x0a, 0x05, 'h', 'e', 'l', 'l', 'o'}, n.Encode())

	empty := NewNode(nil)
	require.Equal(t, []byte{0x0a, 0x00}, empty.Encode(), "data is always emitted")
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	a := NewNode([]byte("a"))
	b := NewNode([]byte("b"))
	n := NewNode([]byte("parent"), NewLink("z", a), NewLink("y", b), MakeLink("", multihash.Hash([]byte("x")), 7))

	got, err := Decode(n.Encode())
	require.NoError(t, err)
	require.Equal(t, n.Data(), got.Data())
	require.Len(t, got.Links(), 3)
	for i, l := range n.Links() {
		gl := got.Links()[i]
		require.Equal(t, l.Name, gl.Name)
		require.True(t, l.Hash.Equal(gl.Hash))
		require.Equal(t, l.Size, gl.Size)
	}
	require.True(t, n.Multihash().Equal(got.Multihash()))
}

func TestNewNode_LinkOrderIndependent(t *testing.T) {
	a := NewNode([]byte("A"))
	b := NewNode([]byte("B"))
	c := NewNode([]byte("C"))

	n1 := NewNode([]byte("p"), NewLink("a", a), NewLink("b", b), NewLink("c", c))
	n2 := NewNode([]byte("p"), NewLink("c", c), NewLink("a", a), NewLink("b", b))
	require.Equal(t, n1.Encode(), n2.Encode())
	require.True(t, n1.Multihash().Equal(n2.Multihash()))

	names := []string{}
	for _, l := range n2.Links() {
		names = append(names, l.Name)
	}
	require.Equal(t, []string{"a", "b", "c"}, names)
}

func TestNewNode_DuplicateNamesOrderByHash(t *testing.T) {
	a := NewNode([]byte("A"))
	b := NewNode([]byte("B"))
	n1 := NewNode(nil, NewLink("same", a), NewLink("same", b))
	n2 := NewNode(nil, NewLink("same", b), NewLink("same", a))
	require.Equal(t, n1.Encode(), n2.Encode())
}

func TestNewNode_CopiesData(t *testing.T) {
	data := []byte("mutable")
	n := NewNode(data)
	h := n.Multihash()
	data[0] = 'X'
	require.Equal(t, []byte("mutable"), n.Data())
	require.True(t, h.Equal(multihash.Hash(n.Encode())))
}

func TestDecode_RejectsNonCanonical(t *testing.T) {
	a := NewNode([]byte("a"))
	b := NewNode([]byte("b"))
	la, lb := NewLink("a", a), NewLink("b", b)

	linkBytes := func(l *Link) []byte { return appendLink(nil, l) }
	withLinks := func(data []byte, links ...[]byte) []byte {
		out := protowire.AppendTag(nil, fieldNodeData, protowire.BytesType)
		out = protowire.AppendBytes(out, data)
		for _, l := range links {
			out = protowire.AppendTag(out, fieldNodeLinks, protowire.BytesType)
			out = protowire.AppendBytes(out, l)
		}
		return out
	}

	linksFirst := protowire.AppendTag(nil, fieldNodeLinks, protowire.BytesType)
	linksFirst = protowire.AppendBytes(linksFirst, linkBytes(la))
	linksFirst = protowire.AppendTag(linksFirst, fieldNodeData, protowire.BytesType)
	linksFirst = protowire.AppendBytes(linksFirst, []byte("x"))

	unknownField := protowire.AppendTag(withLinks([]byte("x")), 9, protowire.VarintType)
	unknownField = protowire.AppendVarint(unknownField, 1)

	badHash := MakeLink("bad", multihash.Multihash{0x12, 0x20, 0x01}, 1)

	nonMinimalSize := protowire.AppendTag(nil, fieldLinkHash, protowire.BytesType)
	nonMinimalSize = protowire.AppendBytes(nonMinimalSize, la.Hash)
	nonMinimalSize = protowire.AppendTag(nonMinimalSize, fieldLinkName, protowire.BytesType)
	nonMinimalSize = protowire.AppendString(nonMinimalSize, "a")
	nonMinimalSize = protowire.AppendTag(nonMinimalSize, fieldLinkSize, protowire.VarintType)
	nonMinimalSize = append(nonMinimalSize, 0x81, 0x00)

	cases := map[string][]byte{
		"empty":             nil,
		"links before data": linksFirst,
		"unsorted links":    withLinks([]byte("x"), linkBytes(lb), linkBytes(la)),
		"unknown field":     unknownField,
		"truncated":         withLinks([]byte("x"), linkBytes(la))[:8],
		"invalid hash":      withLinks([]byte("x"), linkBytes(badHash)),
		"non-minimal size":  withLinks([]byte("x"), nonMinimalSize),
	}
	for name, enc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(enc)
			require.ErrorIs(t, err, ErrInvalidEncoding)
		})
	}

	valid := withLinks([]byte("x"), linkBytes(la), linkBytes(lb))
	_, err := Decode(valid)
	require.NoError(t, err)
}
