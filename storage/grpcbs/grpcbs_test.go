package grpcbs

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/dagstore/block"
	"xdao.co/dagstore/multihash"
	"xdao.co/dagstore/storage"
	"xdao.co/dagstore/storage/leveldb"
	"xdao.co/dagstore/storage/localfs"
	"xdao.co/dagstore/storage/testkit"
)

// serve starts a bufconn server over store and returns a connected client.
func serve(t *testing.T, store storage.Blockstore) *Client {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterBlockstoreServer(srv, &Server{Store: store})
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.Dial() }
	cc, err := grpc.DialContext(
		context.Background(),
		"bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cc.Close() })

	c := NewClient(cc)
	c.Timeout = 5 * time.Second
	return c
}

func TestGRPC_Conformance(t *testing.T) {
	testkit.RunBlockstoreConformance(t, func(t *testing.T) storage.Blockstore {
		s, err := localfs.New(t.TempDir(), localfs.Options{NoSync: true})
		require.NoError(t, err)
		return serve(t, s)
	})
}

func TestGRPC_AllKeys(t *testing.T) {
	s, err := leveldb.OpenMemory(leveldb.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	c := serve(t, s)

	b1 := block.New([]byte("one"))
	h2, err := multihash.Sum([]byte("two"), multihash.BLAKE2B)
	require.NoError(t, err)
	b2, err := block.NewVerified([]byte("two"), h2)
	require.NoError(t, err)
	require.NoError(t, c.Put(b1))
	require.NoError(t, c.Put(b2))

	keys, err := storage.AllKeys(c)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	var got []string
	for _, k := range keys {
		got = append(got, k.HexString())
	}
	require.ElementsMatch(t, []string{b1.Multihash().HexString(), h2.HexString()}, got)
}

// lyingStore returns the wrong bytes for every key.
type lyingStore struct{ storage.Blockstore }

func (l lyingStore) Get(h multihash.Multihash) (*block.Block, error) {
	return block.NewWithHash([]byte("not what you asked for"), h), nil
}

func TestGRPC_ClientVerifiesReads(t *testing.T) {
	s, err := leveldb.OpenMemory(leveldb.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	c := serve(t, lyingStore{s})

	_, err = c.Get(multihash.Hash([]byte("anything")))
	require.ErrorIs(t, err, storage.ErrIntegrity)
}

func TestGRPC_ErrorMapping(t *testing.T) {
	s, err := leveldb.OpenMemory(leveldb.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	c := serve(t, s)

	h := multihash.Hash([]byte("missing"))
	_, err = c.Get(h)
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.Equal(t, storage.KindNotFound, storage.KindOf(err))

	err = c.Delete(h)
	require.True(t, storage.IsNotFound(err))

	_, err = c.client.Get(context.Background(), wrapperspb.String("not a cid"))
	require.Error(t, err)
	require.ErrorIs(t, mapRPC("get", nil, err), multihash.ErrInvalidMultihash)
}
