package merkledag

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"xdao.co/dagstore/block"
	"xdao.co/dagstore/multihash"
	"xdao.co/dagstore/storage"
	"xdao.co/dagstore/storage/leveldb"
	"xdao.co/dagstore/storage/localfs"
)

func newLocalDag(t *testing.T) (*DagService, *localfs.Store) {
	t.Helper()
	bs, err := localfs.New(t.TempDir(), localfs.Options{NoSync: true})
	require.NoError(t, err)
	return NewDagService(bs, 0), bs
}

func TestDagService_AddLeafScenario(t *testing.T) {
	ds, bs := newLocalDag(t)

	h, err := ds.Add(NewNode([]byte("hello")))
	require.NoError(t, err)

	enc := []byte{0x0a, 0x05, 'h', 'e', 'l', 'l', 'o'}
	require.True(t, multihash.Hash(enc).Equal(h))

	hexName := h.HexString()
	onDisk, err := os.ReadFile(filepath.Join(bs.Root(), hexName[:8], hexName+".data"))
	require.NoError(t, err)
	require.Equal(t, enc, onDisk)

	// Bypass the node cache.
	got, err := NewDagService(bs, -1).Get(h)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got.Data())
	require.Empty(t, got.Links())
}

func TestDagService_ParentScenario(t *testing.T) {
	ds, _ := newLocalDag(t)

	a := NewNode([]byte("A"))
	b := NewNode([]byte("B"))
	ha, err := ds.Add(a)
	require.NoError(t, err)
	hb, err := ds.Add(b)
	require.NoError(t, err)

	parent := NewNode(nil, MakeLink("a", ha, a.Size()), MakeLink("b", hb, b.Size()))
	hp, err := ds.Add(parent)
	require.NoError(t, err)

	require.True(t, hp.Equal(parent.Multihash()))
	require.True(t, parent.Multihash().Equal(parent.Multihash()))

	independent := NewNode(nil, MakeLink("b", hb, b.Size()), MakeLink("a", ha, a.Size()))
	require.True(t, multihash.Hash(independent.Encode()).Equal(parent.Multihash()))

	got, err := NewDagService(ds.Blockstore(), -1).Get(hp)
	require.NoError(t, err)
	la, err := got.Link("a")
	require.NoError(t, err)
	resolved, err := la.Resolve(ds)
	require.NoError(t, err)
	require.Equal(t, []byte("A"), resolved.Data())

	cached, ok := la.Cached()
	require.True(t, ok)
	require.Same(t, resolved, cached)
}

func TestDagService_GetErrors(t *testing.T) {
	bs, err := leveldb.OpenMemory(leveldb.Options{})
	require.NoError(t, err)
	defer bs.Close()
	ds := NewDagService(bs, 0)

	_, err = ds.Get(multihash.Hash([]byte("unknown")))
	require.ErrorIs(t, err, storage.ErrNotFound)

	garbage := block.New([]byte{0xff, 0xff, 0xff})
	require.NoError(t, bs.Put(garbage))
	_, err = ds.Get(garbage.Multihash())
	require.ErrorIs(t, err, storage.ErrCorrupt)
	require.ErrorIs(t, err, ErrInvalidEncoding)
	require.Equal(t, storage.KindCorrupt, storage.KindOf(err))
}

func TestLink_ResolveMissing(t *testing.T) {
	ds, _ := newLocalDag(t)
	l := MakeLink("gone", multihash.Hash([]byte("gone")), 4)
	_, err := l.Resolve(ds)
	require.True(t, storage.IsNotFound(err))
	_, ok := l.Cached()
	require.False(t, ok)
}

func TestDagService_AddIdempotentAndRemove(t *testing.T) {
	ds, _ := newLocalDag(t)
	n := NewNode([]byte("twice"))

	h1, err := ds.Add(n)
	require.NoError(t, err)
	h2, err := ds.Add(n)
	require.NoError(t, err)
	require.True(t, h1.Equal(h2))

	ok, err := ds.Has(h1)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, ds.Remove(h1))
	_, err = ds.Get(h1)
	require.True(t, storage.IsNotFound(err))
	require.True(t, storage.IsNotFound(ds.Remove(h1)))
}

func TestDagService_ConcurrentAdd(t *testing.T) {
	ds, _ := newLocalDag(t)
	shared := NewNode([]byte("shared"))

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ds.Add(shared)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	got, err := ds.Get(shared.Multihash())
	require.NoError(t, err)
	require.Equal(t, []byte("shared"), got.Data())
}

func TestWalk(t *testing.T) {
	ds, _ := newLocalDag(t)

	leaf := NewNode([]byte("leaf"))
	mid1 := NewNode([]byte("m1"), NewLink("leaf", leaf))
	mid2 := NewNode([]byte("m2"), NewLink("leaf", leaf))
	root := NewNode([]byte("root"), NewLink("m1", mid1), NewLink("m2", mid2))
	for _, n := range []*Node{leaf, mid1, mid2, root} {
		_, err := ds.Add(n)
		require.NoError(t, err)
	}

	var order []string
	err := Walk(ds, root.Multihash(), func(h multihash.Multihash, n *Node) error {
		order = append(order, string(n.Data()))
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"root", "m1", "leaf", "m2"}, order)

	order = nil
	err = Walk(ds, root.Multihash(), func(h multihash.Multihash, n *Node) error {
		order = append(order, string(n.Data()))
		if string(n.Data()) == "m1" {
			return ErrSkip
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"root", "m1", "m2", "leaf"}, order)

	all, err := Collect(ds, root.Multihash(), leaf.Multihash())
	require.NoError(t, err)
	require.Len(t, all, 4)

	require.NoError(t, ds.Remove(leaf.Multihash()))
	err = Walk(NewDagService(ds.Blockstore(), -1), root.Multihash(), func(multihash.Multihash, *Node) error { return nil })
	require.True(t, storage.IsNotFound(err))
}

func TestDagService_GetAfterDeleteThroughBlockstore(t *testing.T) {
	ds, bs := newLocalDag(t)
	h, err := ds.Add(NewNode([]byte("x")))
	require.NoError(t, err)

	_, err = ds.Get(h)
	require.NoError(t, err)

	require.NoError(t, bs.Delete(h))
	ok, err := ds.Has(h)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = ds.Get(h)
	require.ErrorIs(t, err, storage.ErrNotFound)

	// Re-adding brings it back.
	_, err = ds.Add(NewNode([]byte("x")))
	require.NoError(t, err)
	got, err := ds.Get(h)
	require.NoError(t, err)
	require.Equal(t, []byte("x"), got.Data())
}

func TestDagService_AddStoresHashOfBytesAfterLinkMutation(t *testing.T) {
	ds, bs := newLocalDag(t)
	child := NewNode([]byte("child"))
	_, err := ds.Add(child)
	require.NoError(t, err)

	l := NewLink("a", child)
	parent := NewNode(nil, l)
	h := parent.Multihash()

	l.Name = "caller"
	parent.Links()[0].Name = "zzz"
	parent.Links()[0].Hash[2] ^= 0xff
	got, err := parent.Link("a")
	require.NoError(t, err)
	got.Size++

	stored, err := ds.Add(parent)
	require.NoError(t, err)
	require.True(t, h.Equal(stored))

	b, err := bs.Get(stored)
	require.NoError(t, err)
	require.NoError(t, block.Verify(b.Data(), stored))

	links := parent.Links()
	require.Len(t, links, 1)
	require.Equal(t, "a", links[0].Name)
	require.True(t, links[0].Hash.Equal(child.Multihash()))
	require.Equal(t, child.Size(), links[0].Size)
}
