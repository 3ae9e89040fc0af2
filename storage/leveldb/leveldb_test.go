package leveldb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"xdao.co/dagstore/block"
	"xdao.co/dagstore/storage"
	"xdao.co/dagstore/storage/testkit"
)

func TestLevelDB_Conformance(t *testing.T) {
	testkit.RunBlockstoreConformance(t, func(t *testing.T) storage.Blockstore {
		s, err := OpenMemory(Options{NoSync: true})
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestLevelDB_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")
	s, err := Open(path, Options{})
	require.NoError(t, err)
	b := block.New([]byte("durable"))
	require.NoError(t, s.Put(b))
	require.NoError(t, s.Close())

	s, err = Open(path, Options{Verify: true})
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(b.Multihash())
	require.NoError(t, err)
	require.Equal(t, b.Data(), got.Data())

	keys, err := s.AllKeys()
	require.NoError(t, err)
	require.Len(t, keys, 1)
	require.True(t, keys[0].Equal(b.Multihash()))
}

func TestLevelDB_VerifyDetectsCorruption(t *testing.T) {
	s, err := OpenMemory(Options{Verify: true})
	require.NoError(t, err)
	defer s.Close()

	b := block.New([]byte("original"))
	require.NoError(t, s.db.Put(b.Multihash(), []byte("corrupted"), nil))

	_, err = s.Get(b.Multihash())
	require.ErrorIs(t, err, storage.ErrIntegrity)
}
