package grpcbs

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// BlockstoreServer is the server API for the Blockstore gRPC service.
//
// Messages are protobuf well-known wrapper types so this package does not
// require a protoc/codegen toolchain. Blocks are named by CID strings.
// Put carries the block's CID in the cidHeader metadata key.
type BlockstoreServer interface {
	Put(context.Context, *wrapperspb.BytesValue) (*wrapperspb.StringValue, error)
	Get(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error)
	Has(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error)
	Delete(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	Keys(*emptypb.Empty, Blockstore_KeysServer) error
}

// UnimplementedBlockstoreServer can be embedded to have forward compatible implementations.
type UnimplementedBlockstoreServer struct{}

func (UnimplementedBlockstoreServer) Put(context.Context, *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Put not implemented")
}
func (UnimplementedBlockstoreServer) Get(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Get not implemented")
}
func (UnimplementedBlockstoreServer) Has(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Has not implemented")
}
func (UnimplementedBlockstoreServer) Delete(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method Delete not implemented")
}
func (UnimplementedBlockstoreServer) Keys(*emptypb.Empty, Blockstore_KeysServer) error {
	return status.Error(codes.Unimplemented, "method Keys not implemented")
}

// RegisterBlockstoreServer registers the Blockstore service on a gRPC server.
func RegisterBlockstoreServer(s grpc.ServiceRegistrar, srv BlockstoreServer) {
	s.RegisterService(&Blockstore_ServiceDesc, srv)
}

const (
	methodPut    = "/dagstore.storage.v1.Blockstore/Put"
	methodGet    = "/dagstore.storage.v1.Blockstore/Get"
	methodHas    = "/dagstore.storage.v1.Blockstore/Has"
	methodDelete = "/dagstore.storage.v1.Blockstore/Delete"
	methodKeys   = "/dagstore.storage.v1.Blockstore/Keys"
)

// BlockstoreClient is the client API for the Blockstore gRPC service.
type BlockstoreClient interface {
	Put(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	Get(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	Has(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error)
	Delete(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*emptypb.Empty, error)
	Keys(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (Blockstore_KeysClient, error)
}

type blockstoreClient struct{ cc grpc.ClientConnInterface }

func NewBlockstoreClient(cc grpc.ClientConnInterface) BlockstoreClient {
	return &blockstoreClient{cc: cc}
}

func (c *blockstoreClient) Put(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, methodPut, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *blockstoreClient) Get(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, methodGet, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *blockstoreClient) Has(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, methodHas, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *blockstoreClient) Delete(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, methodDelete, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *blockstoreClient) Keys(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (Blockstore_KeysClient, error) {
	stream, err := c.cc.NewStream(ctx, &Blockstore_ServiceDesc.Streams[0], methodKeys, opts...)
	if err != nil {
		return nil, err
	}
	x := &blockstoreKeysClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// Blockstore_KeysClient receives the CID of every stored block.
type Blockstore_KeysClient interface {
	Recv() (*wrapperspb.StringValue, error)
	grpc.ClientStream
}

type blockstoreKeysClient struct{ grpc.ClientStream }

func (x *blockstoreKeysClient) Recv() (*wrapperspb.StringValue, error) {
	m := new(wrapperspb.StringValue)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Blockstore_KeysServer sends the CID of every stored block.
type Blockstore_KeysServer interface {
	Send(*wrapperspb.StringValue) error
	grpc.ServerStream
}

type blockstoreKeysServer struct{ grpc.ServerStream }

func (x *blockstoreKeysServer) Send(m *wrapperspb.StringValue) error {
	return x.ServerStream.SendMsg(m)
}

func _Blockstore_Put_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BlockstoreServer).Put(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodPut}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BlockstoreServer).Put(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _Blockstore_Get_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BlockstoreServer).Get(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGet}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BlockstoreServer).Get(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _Blockstore_Has_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BlockstoreServer).Has(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodHas}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BlockstoreServer).Has(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _Blockstore_Delete_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BlockstoreServer).Delete(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodDelete}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BlockstoreServer).Delete(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _Blockstore_Keys_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(emptypb.Empty)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(BlockstoreServer).Keys(m, &blockstoreKeysServer{stream})
}

// Blockstore_ServiceDesc is the grpc.ServiceDesc for the Blockstore service.
var Blockstore_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "dagstore.storage.v1.Blockstore",
	HandlerType: (*BlockstoreServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Put", Handler: _Blockstore_Put_Handler},
		{MethodName: "Get", Handler: _Blockstore_Get_Handler},
		{MethodName: "Has", Handler: _Blockstore_Has_Handler},
		{MethodName: "Delete", Handler: _Blockstore_Delete_Handler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Keys", Handler: _Blockstore_Keys_Handler, ServerStreams: true},
	},
	Metadata: "blockstore.proto",
}
