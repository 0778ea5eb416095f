package proto

import (
	"context"

	"google.golang.org/grpc"
)

// Handler serves the Simulation service on top of schema messages. It is
// the server-side counterpart of NewRequest/NewReply and backs the
// in-memory simulator used in tests.
type Handler interface {
	Handle(ctx context.Context, method string, req *Message) (*Message, error)
}

// ServiceDesc describes the Simulation service for grpc.Server. The server
// implementation passed to RegisterService must implement Handler.
func ServiceDesc() *grpc.ServiceDesc {
	desc := &grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*Handler)(nil),
		Streams:     []grpc.StreamDesc{},
		Metadata:    FileName,
	}
	for _, method := range Methods {
		desc.Methods = append(desc.Methods, grpc.MethodDesc{
			MethodName: method,
			Handler:    unaryHandler(method),
		})
	}
	return desc
}

func unaryHandler(method string) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := NewRequest(method)
		if err := dec(req.Proto()); err != nil {
			return nil, err
		}

		call := func(ctx context.Context, _ any) (any, error) {
			reply, err := srv.(Handler).Handle(ctx, method, req)
			if err != nil {
				return nil, err
			}
			return reply.Proto(), nil
		}
		if interceptor == nil {
			return call(ctx, req.Proto())
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: FullMethod(method),
		}
		return interceptor(ctx, req.Proto(), info, call)
	}
}
