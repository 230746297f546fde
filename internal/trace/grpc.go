package trace

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// UnaryClientInterceptor injects trace context into outgoing gRPC calls.
func UnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = injectMetadata(ctx)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// UnaryServerInterceptor continues the caller's trace and logs each call at
// debug level.
func UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		tc := extractMetadata(ctx)
		ctx = WithContext(ctx, tc)
		start := time.Now()
		resp, err := handler(ctx, req)
		Logger(ctx).Debug("grpc call",
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"duration", time.Since(start))
		return resp, err
	}
}

// injectMetadata adds trace context to outgoing gRPC metadata.
func injectMetadata(ctx context.Context) context.Context {
	tc, ok := FromContext(ctx)
	if !ok {
		tc = New()
		ctx = WithContext(ctx, tc)
	}

	md, ok := metadata.FromOutgoingContext(ctx)
	if !ok {
		md = metadata.New(nil)
	} else {
		md = md.Copy()
	}
	for k, v := range tc.ToMap() {
		md.Set(k, v)
	}
	return metadata.NewOutgoingContext(ctx, md)
}

// extractMetadata reads trace context from incoming gRPC metadata.
func extractMetadata(ctx context.Context) Context {
	m := make(map[string]string, 2)
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		for _, k := range []string{TraceIDKey, SpanIDKey} {
			if v := md.Get(k); len(v) > 0 {
				m[k] = v[0]
			}
		}
	}
	return FromMap(m)
}
