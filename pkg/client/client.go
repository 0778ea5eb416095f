// Package client connects to a NeXosim simulation server over gRPC and
// drives it: initialization, stepping, event injection, queries and sink
// reads. Payloads travel as CBOR, see package serialization.
package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"math"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/nexosim/nexosim-go/internal/proto"
	"github.com/nexosim/nexosim-go/pkg/config"
	simerrors "github.com/nexosim/nexosim-go/pkg/errors"
	"github.com/nexosim/nexosim-go/pkg/logger"
)

// Simulation is a handle on a remote simulation. It is safe for concurrent
// use; ordering of concurrent calls is left to the server.
type Simulation struct {
	conn        *grpc.ClientConn
	address     string
	log         *logger.Logger
	callTimeout time.Duration

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

type options struct {
	log            *logger.Logger
	tlsConfig      *tls.Config
	callTimeout    time.Duration
	rateLimit      float64
	burst          int
	maxMessageSize int
	waitForReady   bool
	dialer         func(context.Context, string) (net.Conn, error)
	dialOptions    []grpc.DialOption
}

// Option configures NewSimulation.
type Option func(*options)

// WithLogger sets the logger used for call logging. Calls are not logged
// by default.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithTLS enables TLS. A nil config keeps the plaintext transport.
func WithTLS(cfg *tls.Config) Option {
	return func(o *options) { o.tlsConfig = cfg }
}

// WithCallTimeout bounds each call that has no earlier context deadline.
// Zero leaves calls unbounded.
func WithCallTimeout(d time.Duration) Option {
	return func(o *options) { o.callTimeout = d }
}

// WithRateLimit limits outgoing calls to r per second with the given burst.
func WithRateLimit(r float64, burst int) Option {
	return func(o *options) {
		o.rateLimit = r
		o.burst = burst
	}
}

// WithMaxMessageSize raises the send and receive message size limits.
func WithMaxMessageSize(n int) Option {
	return func(o *options) { o.maxMessageSize = n }
}

// WithWaitForReady makes calls wait for the connection instead of failing
// fast while the server is unreachable.
func WithWaitForReady(wait bool) Option {
	return func(o *options) { o.waitForReady = wait }
}

// WithDialer replaces the network dialer, e.g. with an in-memory listener.
func WithDialer(dialer func(context.Context, string) (net.Conn, error)) Option {
	return func(o *options) { o.dialer = dialer }
}

// WithDialOptions appends raw gRPC dial options.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(o *options) { o.dialOptions = append(o.dialOptions, opts...) }
}

// OptionsFromConfig translates a configured server into options.
func OptionsFromConfig(server *config.Server) ([]Option, error) {
	if server == nil {
		return nil, fmt.Errorf("server configuration cannot be nil")
	}

	tlsConfig, err := server.ClientTLSConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create TLS config: %w", err)
	}

	opts := []Option{
		WithTLS(tlsConfig),
		WithCallTimeout(server.CallTimeout),
		WithWaitForReady(server.WaitForReady),
	}
	if server.MaxMessageSize > 0 {
		opts = append(opts, WithMaxMessageSize(server.MaxMessageSize))
	}
	if server.RateLimit > 0 {
		opts = append(opts, WithRateLimit(server.RateLimit, server.Burst))
	}
	return opts, nil
}

// NewSimulationFromConfig connects to a configured server. Extra options are
// applied after the configured ones.
func NewSimulationFromConfig(server *config.Server, opts ...Option) (*Simulation, error) {
	base, err := OptionsFromConfig(server)
	if err != nil {
		return nil, err
	}
	return NewSimulation(server.Address, append(base, opts...)...)
}

// NewSimulation creates a handle for the server at address, which is either
// host:port or a Unix socket ("unix:path", "unix:///abs/path" or a bare
// absolute path). The connection is established lazily.
func NewSimulation(address string, opts ...Option) (*Simulation, error) {
	o := options{log: logger.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Discard()
	}
	log := o.log.WithComponent("client")

	target, err := parseAddress(address)
	if err != nil {
		return nil, err
	}

	creds := insecure.NewCredentials()
	if o.tlsConfig != nil {
		creds = credentials.NewTLS(o.tlsConfig)
	}

	callOpts := []grpc.CallOption{grpc.WaitForReady(o.waitForReady)}
	if o.maxMessageSize > 0 {
		callOpts = append(callOpts,
			grpc.MaxCallRecvMsgSize(o.maxMessageSize),
			grpc.MaxCallSendMsgSize(o.maxMessageSize),
		)
	}

	interceptors := []grpc.UnaryClientInterceptor{loggingInterceptor(log)}
	if o.rateLimit > 0 {
		interceptors = append(interceptors, rateLimitInterceptor(o.rateLimit, o.burst))
	}

	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(callOpts...),
		grpc.WithChainUnaryInterceptor(interceptors...),
	}
	dialOpts = append(dialOpts, target.dialOptions()...)
	if o.dialer != nil {
		dialOpts = append(dialOpts, grpc.WithContextDialer(o.dialer))
	}
	dialOpts = append(dialOpts, o.dialOptions...)

	conn, err := grpc.NewClient(target.target, dialOpts...)
	if err != nil {
		return nil, simerrors.WrapTransportError("connect", fmt.Errorf("failed to connect to server %s: %w", address, err))
	}

	log.Debug("simulation client created", "address", address, "target", target.target)

	return &Simulation{
		conn:        conn,
		address:     address,
		log:         log,
		callTimeout: o.callTimeout,
	}, nil
}

// Close releases the connection. It is idempotent; every call made after
// Close fails with ErrClosed.
func (s *Simulation) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

// Address returns the address the handle was created with.
func (s *Simulation) Address() string {
	return s.address
}

// Conn exposes the underlying connection.
func (s *Simulation) Conn() *grpc.ClientConn {
	return s.conn
}

// invoke performs one unary call and converts the reply's error member, if
// any, into a *SimulationError.
func (s *Simulation) invoke(ctx context.Context, method string, req *proto.Message, extra time.Duration) (*proto.Message, error) {
	if s.closed.Load() {
		return nil, simerrors.ErrClosed
	}

	if s.callTimeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, addTimeout(s.callTimeout, extra))
			defer cancel()
		}
	}

	reply := proto.NewReply(method)
	if err := s.conn.Invoke(ctx, proto.FullMethod(method), req.Proto(), reply.Proto()); err != nil {
		if s.closed.Load() {
			return nil, simerrors.ErrClosed
		}
		return nil, simerrors.WrapTransportError(method, err)
	}

	if err := reply.Err(method); err != nil {
		return nil, err
	}
	return reply, nil
}

// addTimeout adds two non-negative timeouts, saturating at the largest
// time.Duration.
func addTimeout(a, b time.Duration) time.Duration {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}
