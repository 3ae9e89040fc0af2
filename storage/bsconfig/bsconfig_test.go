package bsconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"xdao.co/dagstore/block"
	"xdao.co/dagstore/storage"
	"xdao.co/dagstore/storage/bsregistry"
	_ "xdao.co/dagstore/storage/leveldb"
	_ "xdao.co/dagstore/storage/localfs"
)

func TestValidate(t *testing.T) {
	require.Error(t, Config{}.Validate())
	require.Error(t, Config{Backends: []BackendConfig{{}}}.Validate())
	require.Error(t, Config{Backends: []BackendConfig{{Name: "localfs"}, {Name: "localfs"}}}.Validate())
	require.NoError(t, Config{Backends: []BackendConfig{{Name: "localfs"}, {Name: "localfs", ID: "second"}}}.Validate())
	require.Error(t, Config{WritePolicy: "some", Backends: []BackendConfig{{Name: "localfs"}}}.Validate())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blockstore.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"write_policy": "all",
		"backends": [{"name": "localfs", "config": {"localfs-dir": "/x"}}]
	}`), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, "all", cfg.WritePolicy)
	require.Equal(t, "/x", cfg.Backends[0].Config["localfs-dir"])

	_, err = LoadFile("")
	require.Error(t, err)
}

func TestOpen_SingleBackend(t *testing.T) {
	cfg := Config{Backends: []BackendConfig{
		{Name: "localfs", Config: map[string]string{"localfs-dir": t.TempDir()}},
	}}
	bs, closeFn, err := cfg.Open(bsregistry.UsageCLI, "")
	require.NoError(t, err)
	defer closeFn()

	b := block.New([]byte("single"))
	require.NoError(t, bs.Put(b))
	ok, err := bs.Has(b.Multihash())
	require.NoError(t, err)
	require.True(t, ok)
}

func TestOpen_WritePolicies(t *testing.T) {
	fsDir, ldbDir := t.TempDir(), t.TempDir()
	backends := []BackendConfig{
		{Name: "localfs", Config: map[string]string{"localfs-dir": fsDir}},
		{Name: "leveldb", ID: "index", Config: map[string]string{"leveldb-dir": ldbDir}},
	}

	bs, closeFn, err := Config{Backends: backends}.Open(bsregistry.UsageDaemon, "index")
	require.NoError(t, err)
	multi, ok := bs.(storage.MultiBlockstore)
	require.True(t, ok)
	require.Len(t, multi.Adapters, 2)
	require.NoError(t, closeFn())

	bs, closeFn, err = Config{WritePolicy: "all", Backends: backends}.Open(bsregistry.UsageDaemon, "")
	require.NoError(t, err)
	defer closeFn()
	rep, ok := bs.(storage.ReplicatingBlockstore)
	require.True(t, ok)
	require.Equal(t, "localfs", rep.Backends[0].Name)
	require.Equal(t, "index", rep.Backends[1].Name)

	b := block.New([]byte("replicated"))
	require.NoError(t, bs.Put(b))
	for _, n := range rep.Backends {
		ok, err := n.Store.Has(b.Multihash())
		require.NoError(t, err)
		require.True(t, ok, n.Name)
	}
}

func TestOpen_Errors(t *testing.T) {
	_, _, err := Config{Backends: []BackendConfig{{Name: "localfs"}}}.Open(bsregistry.UsageCLI, "")
	require.Error(t, err, "missing localfs-dir")

	_, _, err = Config{Backends: []BackendConfig{{Name: "nope"}}}.Open(bsregistry.UsageCLI, "")
	require.Error(t, err)

	cfg := Config{Backends: []BackendConfig{
		{Name: "localfs", Config: map[string]string{"localfs-dir": t.TempDir()}},
	}}
	_, _, err = cfg.Open(bsregistry.UsageCLI, "missing")
	require.Error(t, err)
}

func TestOpen_Cache(t *testing.T) {
	dir := t.TempDir()
	pre := block.New([]byte("written before open"))
	{
		bs, closeFn, err := Config{Backends: []BackendConfig{
			{Name: "localfs", Config: map[string]string{"localfs-dir": dir}},
		}}.Open(bsregistry.UsageCLI, "")
		require.NoError(t, err)
		require.NoError(t, bs.Put(pre))
		require.NoError(t, closeFn())
	}

	path := filepath.Join(t.TempDir(), "blockstore.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"cache": {"blocks": 8, "bloom_entries": 1024},
		"backends": [{"name": "localfs", "config": {"localfs-dir": "`+dir+`"}}]
	}`), 0o644))
	cfg, err := LoadFile(path)
	require.NoError(t, err)

	bs, closeFn, err := cfg.Open(bsregistry.UsageDaemon, "")
	require.NoError(t, err)
	defer closeFn()
	require.IsType(t, &storage.Cached{}, bs)

	ok, err := bs.Has(pre.Multihash())
	require.NoError(t, err)
	require.True(t, ok, "bloom filter warmed from existing keys")

	got, err := bs.Get(pre.Multihash())
	require.NoError(t, err)
	require.Equal(t, pre.Data(), got.Data())

	require.Error(t, Config{
		Cache:    &CacheConfig{Blocks: -1},
		Backends: []BackendConfig{{Name: "localfs"}},
	}.Validate())
}
