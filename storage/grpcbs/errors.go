package grpcbs

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"xdao.co/dagstore/multihash"
	"xdao.co/dagstore/storage"
)

// mapErr converts a blockstore error into a gRPC status.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case storage.IsNotFound(err):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, storage.ErrIntegrity), errors.Is(err, storage.ErrCorrupt):
		return status.Error(codes.DataLoss, err.Error())
	case errors.Is(err, multihash.ErrInvalidMultihash),
		errors.Is(err, multihash.ErrUnsupportedFunction),
		errors.Is(err, multihash.ErrDigestTooLong):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, storage.ErrUnsupported):
		return status.Error(codes.Unimplemented, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// mapRPC converts a gRPC status back into the storage error taxonomy.
func mapRPC(op string, h multihash.Multihash, err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return storage.IOError(op, h, err)
	}

	switch st.Code() {
	case codes.NotFound:
		return storage.NotFound(op, h)
	case codes.DataLoss:
		return storage.Integrity(op, h, errors.New(st.Message()))
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", multihash.ErrInvalidMultihash, st.Message())
	case codes.Unimplemented:
		return fmt.Errorf("%w: %s", storage.ErrUnsupported, st.Message())
	default:
		return storage.IOError(op, h, err)
	}
}
