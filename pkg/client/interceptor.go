package client

import (
	"context"
	"time"

	"github.com/rs/xid"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/nexosim/nexosim-go/pkg/logger"
)

// CallIDHeader carries the per-call identifier to the server.
const CallIDHeader = "x-call-id"

// loggingInterceptor tags each call with an id and logs its outcome.
func loggingInterceptor(log *logger.Logger) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		callID := xid.New().String()
		ctx = metadata.AppendToOutgoingContext(ctx, CallIDHeader, callID)

		start := time.Now()
		err := invoker(ctx, method, req, reply, cc, opts...)
		took := time.Since(start)

		if err != nil {
			log.Warn("call failed", "method", method, "call_id", callID, "took", took, "error", err)
			return err
		}
		log.Debug("call completed", "method", method, "call_id", callID, "took", took)
		return nil
	}
}

// rateLimitInterceptor delays calls to at most r per second. A call whose
// wait cannot fit in its deadline fails with ResourceExhausted.
func rateLimitInterceptor(r float64, burst int) grpc.UnaryClientInterceptor {
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		if err := limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return status.FromContextError(ctx.Err()).Err()
			}
			return status.Error(codes.ResourceExhausted, err.Error())
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}
