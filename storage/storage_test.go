package storage_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"xdao.co/dagstore/block"
	"xdao.co/dagstore/multihash"
	"xdao.co/dagstore/storage"
	"xdao.co/dagstore/storage/testkit"
)

func TestErrorKinds(t *testing.T) {
	h := multihash.Hash([]byte("k"))
	cause := errors.New("disk on fire")

	cases := []struct {
		err      error
		sentinel error
		kind     storage.Kind
	}{
		{storage.NotFound("get", h), storage.ErrNotFound, storage.KindNotFound},
		{storage.Corrupt("dag get", h, cause), storage.ErrCorrupt, storage.KindCorrupt},
		{storage.IOError("put", h, cause), storage.ErrIO, storage.KindIO},
		{storage.Integrity("get", h, cause), storage.ErrIntegrity, storage.KindIntegrity},
	}
	for _, tc := range cases {
		require.ErrorIs(t, tc.err, tc.sentinel)
		require.Equal(t, tc.kind, storage.KindOf(tc.err))
		require.Contains(t, tc.err.Error(), h.B58String())

		wrapped := fmt.Errorf("outer: %w", tc.err)
		require.ErrorIs(t, wrapped, tc.sentinel)
		require.Equal(t, tc.kind, storage.KindOf(wrapped))
	}

	require.ErrorIs(t, storage.IOError("put", h, cause), cause)
	require.False(t, errors.Is(storage.NotFound("get", h), storage.ErrCorrupt))
	require.True(t, storage.IsNotFound(storage.NotFound("get", h)))
	require.Equal(t, storage.Kind(""), storage.KindOf(cause))
}

func TestMultiBlockstore_Conformance(t *testing.T) {
	testkit.RunBlockstoreConformance(t, func(t *testing.T) storage.Blockstore {
		return storage.MultiBlockstore{Adapters: []storage.Blockstore{newLevelDB(t), newLevelDB(t)}}
	})
}

func TestMultiBlockstore_FallsBack(t *testing.T) {
	first, second := newLevelDB(t), newLevelDB(t)
	m := storage.MultiBlockstore{Adapters: []storage.Blockstore{first, second}}

	b := block.New([]byte("only in second"))
	require.NoError(t, second.Put(b))

	got, err := m.Get(b.Multihash())
	require.NoError(t, err)
	require.Equal(t, b.Data(), got.Data())

	nb := block.New([]byte("new"))
	require.NoError(t, m.Put(nb))
	ok, _ := first.Has(nb.Multihash())
	require.True(t, ok)
	ok, _ = second.Has(nb.Multihash())
	require.False(t, ok)
}

func TestReplicatingBlockstore_Conformance(t *testing.T) {
	testkit.RunBlockstoreConformance(t, func(t *testing.T) storage.Blockstore {
		return storage.ReplicatingBlockstore{Backends: []storage.NamedBlockstore{
			{Name: "a", Store: newLevelDB(t)},
			{Name: "b", Store: newLevelDB(t)},
		}}
	})
}

func TestReplicatingBlockstore_PutAll(t *testing.T) {
	a, b := newLevelDB(t), newLevelDB(t)
	r := storage.ReplicatingBlockstore{Backends: []storage.NamedBlockstore{{Name: "a", Store: a}, {Name: "b", Store: b}}}

	blk := block.New([]byte("replicated"))
	require.NoError(t, a.Put(blk))

	existed, err := r.PutAll(blk)
	require.NoError(t, err)
	require.Equal(t, map[string]bool{"a": true, "b": false}, existed)

	ok, _ := b.Has(blk.Multihash())
	require.True(t, ok)

	_, err = storage.ReplicatingBlockstore{}.PutAll(blk)
	require.Error(t, err)
}

func TestMultiBlockstore_AllKeysUnion(t *testing.T) {
	first, second := newLevelDB(t), newLevelDB(t)
	shared := block.New([]byte("shared"))
	onlyFirst := block.New([]byte("first"))
	onlySecond := block.New([]byte("second"))
	require.NoError(t, first.Put(shared))
	require.NoError(t, second.Put(shared))
	require.NoError(t, first.Put(onlyFirst))
	require.NoError(t, second.Put(onlySecond))

	keys, err := storage.AllKeys(storage.MultiBlockstore{Adapters: []storage.Blockstore{first, second}})
	require.NoError(t, err)
	require.Len(t, keys, 3)

	keys, err = storage.AllKeys(storage.ReplicatingBlockstore{Backends: []storage.NamedBlockstore{
		{Name: "a", Store: first}, {Name: "b", Store: second},
	}})
	require.NoError(t, err)
	require.Len(t, keys, 3)
}
