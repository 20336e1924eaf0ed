package admin

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const serviceName = "chatible.admin.v1.Admin"

// AdminServer is the server API for the admin service.
//
// Requests and responses use the protobuf well-known types so the service
// needs no generated code: Stats, Sweep and ListWaiting answer with a
// Struct and ListWaiting reads "page_token" and "limit" from its request.
type AdminServer interface {
	ResetAll(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	Stats(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Sweep(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListWaiting(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// AdminServiceDesc is the grpc.ServiceDesc for the admin service.
var AdminServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*AdminServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ResetAll", AdminServer.ResetAll),
		unary("Stats", AdminServer.Stats),
		unary("Sweep", AdminServer.Sweep),
		unary("ListWaiting", AdminServer.ListWaiting),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "chatible/admin/v1/admin.proto",
}

// RegisterAdminServer attaches srv to s.
func RegisterAdminServer(s grpc.ServiceRegistrar, srv AdminServer) {
	s.RegisterService(&AdminServiceDesc, srv)
}

func fullMethod(name string) string {
	return "/" + serviceName + "/" + name
}

// unary builds the method handler for one RPC.
func unary[Req any, Resp proto.Message, PReq interface {
	*Req
	proto.Message
}](name string, call func(AdminServer, context.Context, PReq) (Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := PReq(new(Req))
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(AdminServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(AdminServer), ctx, req.(PReq))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// Client calls the admin service over an existing connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) ResetAll(ctx context.Context, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, fullMethod("ResetAll"), &emptypb.Empty{}, &emptypb.Empty{}, opts...)
}

func (c *Client) Stats(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("Stats"), &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Sweep(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("Sweep"), &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ListWaiting fetches one page of the waiting pool. An empty pageToken
// starts from the front of the queue; limit 0 uses the server default.
func (c *Client) ListWaiting(ctx context.Context, pageToken string, limit int, opts ...grpc.CallOption) (*structpb.Struct, error) {
	req := &structpb.Struct{Fields: map[string]*structpb.Value{}}
	if pageToken != "" {
		req.Fields["page_token"] = structpb.NewStringValue(pageToken)
	}
	if limit > 0 {
		req.Fields["limit"] = structpb.NewNumberValue(float64(limit))
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("ListWaiting"), req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
