package grpcbs

import (
	"context"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/dagstore/block"
	"xdao.co/dagstore/cidutil"
	"xdao.co/dagstore/multihash"
	"xdao.co/dagstore/storage"
)

// cidHeader is the metadata key naming the block sent to Put. Without it
// the server hashes the payload with the default function.
const cidHeader = "x-block-cid"

// Server exposes a storage.Blockstore over the Blockstore gRPC service.
type Server struct {
	UnimplementedBlockstoreServer
	Store storage.Blockstore
}

func (s *Server) Put(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing blockstore")
	}
	data := in.GetValue()

	var b *block.Block
	md, _ := metadata.FromIncomingContext(ctx)
	if v := md.Get(cidHeader); len(v) > 0 {
		h, err := cidutil.Parse(v[0])
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		// Reject payloads that do not hash to the claimed CID.
		b, err = block.NewVerified(data, h)
		if err != nil {
			return nil, mapErr(storage.Integrity("put", h, err))
		}
	} else {
		b = block.New(data)
	}

	if err := s.Store.Put(b); err != nil {
		return nil, mapErr(err)
	}
	logrus.WithFields(logrus.Fields{
		"hash": b.Multihash().B58String(),
		"size": b.Size(),
	}).Debug("Served put")
	return wrapperspb.String(b.Cid().String()), nil
}

func (s *Server) Get(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing blockstore")
	}
	h, err := cidutil.Parse(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	b, err := s.Store.Get(h)
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bytes(b.Data()), nil
}

func (s *Server) Has(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing blockstore")
	}
	h, err := cidutil.Parse(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	ok, err := s.Store.Has(h)
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bool(ok), nil
}

func (s *Server) Delete(ctx context.Context, in *wrapperspb.StringValue) (*emptypb.Empty, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing blockstore")
	}
	h, err := cidutil.Parse(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.Store.Delete(h); err != nil {
		return nil, mapErr(err)
	}
	logrus.WithField("hash", h.B58String()).Debug("Served delete")
	return &emptypb.Empty{}, nil
}

func (s *Server) Keys(_ *emptypb.Empty, stream Blockstore_KeysServer) error {
	if s == nil || s.Store == nil {
		return status.Error(codes.FailedPrecondition, "missing blockstore")
	}
	keys, err := storage.AllKeys(s.Store)
	if err != nil {
		return mapErr(err)
	}
	for _, h := range keys {
		if err := stream.Context().Err(); err != nil {
			return status.FromContextError(err).Err()
		}
		if err := stream.Send(wrapperspb.String(cidString(h))); err != nil {
			return err
		}
	}
	return nil
}

func cidString(h multihash.Multihash) string {
	c, err := cidutil.FromMultihash(h)
	if err != nil {
		return h.B58String()
	}
	return c.String()
}
