package simtest

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"github.com/nexosim/nexosim-go/internal/proto"
)

const bufSize = 1 << 20

// Address is a placeholder target for clients using Dialer.
const Address = "passthrough:///bufnet"

// Listener is a running in-memory gRPC server.
type Listener struct {
	*Server
	lis  *bufconn.Listener
	gs   *grpc.Server
}

// Start serves srv on a new in-memory listener until Stop is called.
func Start(srv *Server, opts ...grpc.ServerOption) *Listener {
	lis := bufconn.Listen(bufSize)
	gs := grpc.NewServer(opts...)
	gs.RegisterService(proto.ServiceDesc(), srv)

	go func() {
		_ = gs.Serve(lis)
	}()

	return &Listener{Server: srv, lis: lis, gs: gs}
}

// Dialer connects to the listener; pass it to client.WithDialer.
func (l *Listener) Dialer() func(context.Context, string) (net.Conn, error) {
	return func(ctx context.Context, _ string) (net.Conn, error) {
		return l.lis.DialContext(ctx)
	}
}

// Stop shuts the server down, abandoning in-flight calls.
func (l *Listener) Stop() {
	l.gs.Stop()
	_ = l.lis.Close()
}
