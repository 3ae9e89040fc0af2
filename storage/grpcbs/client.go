// Package grpcbs serves and consumes a storage.Blockstore over gRPC.
package grpcbs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/dagstore/block"
	"xdao.co/dagstore/cidutil"
	"xdao.co/dagstore/multihash"
	"xdao.co/dagstore/storage"
)

// Client implements storage.Blockstore over a Blockstore gRPC service.
// Every block read back is verified against the requested hash.
type Client struct {
	cc     *grpc.ClientConn
	client BlockstoreClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

var (
	_ storage.Blockstore = (*Client)(nil)
	_ storage.KeyLister  = (*Client)(nil)
)

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int
}

func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
		dialOpts = append(dialOpts, grpc.WithBlock())
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("grpcbs: dial %s: %w", target, err)
	}
	return NewClient(cc), nil
}

// NewClient wraps an existing connection.
func NewClient(cc *grpc.ClientConn) *Client {
	return &Client{cc: cc, client: NewBlockstoreClient(cc)}
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) Put(b *block.Block) error {
	h := b.Multihash()
	id, err := cidutil.FromMultihash(h)
	if err != nil {
		return err
	}

	ctx, cancel := c.ctx()
	defer cancel()
	ctx = metadata.AppendToOutgoingContext(ctx, cidHeader, id.String())

	reply, err := c.client.Put(ctx, wrapperspb.Bytes(b.Data()))
	if err != nil {
		return mapRPC("put", h, err)
	}
	got, err := cidutil.Parse(reply.GetValue())
	if err != nil {
		return storage.Integrity("put", h, err)
	}
	if !got.Equal(h) {
		return storage.Integrity("put", h, fmt.Errorf("server stored block as %s", got))
	}
	return nil
}

func (c *Client) Get(h multihash.Multihash) (*block.Block, error) {
	id, err := cidutil.FromMultihash(h)
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.Get(ctx, wrapperspb.String(id.String()))
	if err != nil {
		return nil, mapRPC("get", h, err)
	}
	b, err := block.NewVerified(reply.GetValue(), h)
	if err != nil {
		return nil, storage.Integrity("get", h, err)
	}
	return b, nil
}

func (c *Client) Has(h multihash.Multihash) (bool, error) {
	id, err := cidutil.FromMultihash(h)
	if err != nil {
		return false, err
	}
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.Has(ctx, wrapperspb.String(id.String()))
	if err != nil {
		return false, mapRPC("has", h, err)
	}
	return reply.GetValue(), nil
}

func (c *Client) Delete(h multihash.Multihash) error {
	id, err := cidutil.FromMultihash(h)
	if err != nil {
		return err
	}
	ctx, cancel := c.ctx()
	defer cancel()

	if _, err := c.client.Delete(ctx, wrapperspb.String(id.String())); err != nil {
		return mapRPC("delete", h, err)
	}
	return nil
}

// AllKeys drains the server's Keys stream.
func (c *Client) AllKeys() ([]multihash.Multihash, error) {
	ctx, cancel := c.ctx()
	defer cancel()

	stream, err := c.client.Keys(ctx, &emptypb.Empty{})
	if err != nil {
		return nil, mapRPC("list", nil, err)
	}
	var keys []multihash.Multihash
	for {
		m, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return keys, nil
		}
		if err != nil {
			return nil, mapRPC("list", nil, err)
		}
		h, err := cidutil.Parse(m.GetValue())
		if err != nil {
			return nil, storage.IOError("list", nil, err)
		}
		keys = append(keys, h)
	}
}

func (c *Client) ctx() (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), c.Timeout)
}
