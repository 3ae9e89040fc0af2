package localfs

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"xdao.co/dagstore/block"
	"xdao.co/dagstore/multihash"
	"xdao.co/dagstore/storage"
	"xdao.co/dagstore/storage/testkit"
)

func newOSStore(t *testing.T, opts Options) *Store {
	t.Helper()
	s, err := New(t.TempDir(), opts)
	require.NoError(t, err)
	return s
}

func TestLocalFS_Conformance(t *testing.T) {
	t.Run("os", func(t *testing.T) {
		testkit.RunBlockstoreConformance(t, func(t *testing.T) storage.Blockstore {
			return newOSStore(t, Options{})
		})
	})
	t.Run("memory", func(t *testing.T) {
		testkit.RunBlockstoreConformance(t, func(t *testing.T) storage.Blockstore {
			s, err := New("/blocks", Options{Fs: afero.NewMemMapFs()})
			require.NoError(t, err)
			return s
		})
	})
}

func TestLocalFS_Layout(t *testing.T) {
	s := newOSStore(t, Options{})
	b := block.New([]byte("layout"))
	require.NoError(t, s.Put(b))

	hexName := b.Multihash().HexString()
	want := filepath.Join(s.Root(), hexName[:8], hexName+".data")
	require.Equal(t, want, s.PathFor(b.Multihash()))

	got, err := os.ReadFile(want)
	require.NoError(t, err)
	require.Equal(t, b.Data(), got)

	entries, err := os.ReadDir(filepath.Dir(want))
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")
}

func TestLocalFS_CustomPrefix(t *testing.T) {
	s := newOSStore(t, Options{PrefixLen: 4})
	h := multihash.Hash([]byte("prefix"))
	require.Equal(t, h.HexString()[:4], filepath.Base(filepath.Dir(s.PathFor(h))))

	_, err := New(t.TempDir(), Options{PrefixLen: 3})
	require.Error(t, err)
}

func TestLocalFS_PutIsNoOpWhenPresent(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := New("/r", Options{Fs: fs})
	require.NoError(t, err)

	b := block.New([]byte("once"))
	require.NoError(t, s.Put(b))
	info1, err := fs.Stat(s.PathFor(b.Multihash()))
	require.NoError(t, err)

	require.NoError(t, s.Put(b))
	info2, err := fs.Stat(s.PathFor(b.Multihash()))
	require.NoError(t, err)
	require.Equal(t, info1.ModTime(), info2.ModTime())
}

func TestLocalFS_VerifyDetectsCorruption(t *testing.T) {
	s := newOSStore(t, Options{Verify: true})
	b := block.New([]byte("original"))
	require.NoError(t, s.Put(b))

	path := s.PathFor(b.Multihash())
	require.NoError(t, os.Chmod(path, 0o644))
	require.NoError(t, os.WriteFile(path, []byte("corrupted"), 0o644))

	_, err := s.Get(b.Multihash())
	require.ErrorIs(t, err, storage.ErrIntegrity)
	require.ErrorIs(t, err, block.ErrHashMismatch)
}

func TestLocalFS_ConcurrentPutSameKey(t *testing.T) {
	s := newOSStore(t, Options{})
	data := bytes.Repeat([]byte("race"), 4096)
	b := block.New(data)

	var wg sync.WaitGroup
	errs := make(chan error, 17)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Put(block.New(data))
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			got, err := s.Get(b.Multihash())
			if err == nil && !bytes.Equal(got.Data(), data) {
				errs <- fmt.Errorf("partial read: %d bytes", len(got.Data()))
				return
			}
			if err != nil && !storage.IsNotFound(err) {
				errs <- err
				return
			}
		}
	}()
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := s.Get(b.Multihash())
	require.NoError(t, err)
	require.Equal(t, data, got.Data())

	entries, err := os.ReadDir(filepath.Dir(s.PathFor(b.Multihash())))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestLocalFS_AllKeysSkipsTempFiles(t *testing.T) {
	s := newOSStore(t, Options{})
	var want []string
	for i := 0; i < 5; i++ {
		b := block.New([]byte(fmt.Sprintf("key-%d", i)))
		require.NoError(t, s.Put(b))
		want = append(want, b.Multihash().HexString())
	}
	shard := filepath.Dir(s.PathFor(multihash.Hash([]byte("key-0"))))
	require.NoError(t, os.WriteFile(filepath.Join(shard, tempPrefix+"123"), []byte("junk"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), "README"), []byte("junk"), 0o644))

	keys, err := s.AllKeys()
	require.NoError(t, err)
	var got []string
	for _, k := range keys {
		got = append(got, k.HexString())
	}
	require.ElementsMatch(t, want, got)
}

func TestLocalFS_DeleteMissing(t *testing.T) {
	s := newOSStore(t, Options{})
	err := s.Delete(multihash.Hash([]byte("missing")))
	require.True(t, storage.IsNotFound(err))
}

func TestLocalFS_RejectsInvalidKey(t *testing.T) {
	s := newOSStore(t, Options{})
	_, err := s.Get(multihash.Multihash{0x12, 0x20})
	require.ErrorIs(t, err, multihash.ErrInvalidMultihash)
	require.False(t, strings.Contains(err.Error(), "not found"))
}

func TestLocalFS_OpenConfigErrorReturnsNilInterface(t *testing.T) {
	bs, closeFn, err := openConfig(map[string]string{
		"localfs-dir":        t.TempDir(),
		"localfs-prefix-len": "3",
	})
	require.Error(t, err)
	require.Nil(t, closeFn)
	require.True(t, bs == nil, "got %T", bs)

	bs, _, err = openConfig(map[string]string{"localfs-dir": t.TempDir()})
	require.NoError(t, err)
	require.IsType(t, &Store{}, bs)
}
