package trace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

func TestMiddlewareContinuesTrace(t *testing.T) {
	var got Context
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/position", nil)
	req.Header.Set(TraceIDKey, "abc123")
	req.Header.Set(SpanIDKey, "span1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got.TraceID != "abc123" {
		t.Errorf("TraceID = %q, want abc123", got.TraceID)
	}
	if got.ParentSpanID != "span1" {
		t.Errorf("ParentSpanID = %q, want span1", got.ParentSpanID)
	}
	if rec.Header().Get(TraceIDKey) != "abc123" {
		t.Errorf("response header = %q", rec.Header().Get(TraceIDKey))
	}
}

func TestMiddlewareStartsTrace(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if len(rec.Header().Get(TraceIDKey)) != 32 {
		t.Errorf("expected generated trace id, got %q", rec.Header().Get(TraceIDKey))
	}
}

func TestExtractFromJSON(t *testing.T) {
	tc, ok := ExtractFromJSON([]byte(`{"type":"tracking","enabled":true,"trace_id":"t1"}`))
	if !ok || tc.TraceID != "t1" {
		t.Errorf("got (%+v, %v)", tc, ok)
	}
	if _, ok := ExtractFromJSON([]byte(`{"type":"tracking"}`)); ok {
		t.Error("message without trace_id should report false")
	}
	if _, ok := ExtractFromJSON([]byte(`not json`)); ok {
		t.Error("invalid JSON should report false")
	}
}

func TestUnaryServerInterceptor(t *testing.T) {
	md := metadata.Pairs(TraceIDKey, "trace-1", SpanIDKey, "caller")
	ctx := metadata.NewIncomingContext(context.Background(), md)

	var got Context
	handler := func(ctx context.Context, req any) (any, error) {
		got, _ = FromContext(ctx)
		return "ok", nil
	}
	resp, err := UnaryServerInterceptor()(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/svc/M"}, handler)
	if err != nil || resp != "ok" {
		t.Fatalf("got (%v, %v)", resp, err)
	}
	if got.TraceID != "trace-1" || got.ParentSpanID != "caller" {
		t.Errorf("context = %+v", got)
	}
}

func TestInjectMetadata(t *testing.T) {
	tc := New()
	ctx := injectMetadata(WithContext(context.Background(), tc))
	md, ok := metadata.FromOutgoingContext(ctx)
	if !ok {
		t.Fatal("no outgoing metadata")
	}
	if v := md.Get(TraceIDKey); len(v) != 1 || v[0] != tc.TraceID {
		t.Errorf("trace id metadata = %v", v)
	}
}
