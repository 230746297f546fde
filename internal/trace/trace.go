// Package trace carries W3C-style trace and span IDs through capture cycles,
// HTTP requests and OCR calls so log lines from one cycle can be correlated.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"time"
)

// Propagation keys, shared by gRPC metadata, HTTP headers and JSON messages.
const (
	TraceIDKey      = "x-trace-id"
	SpanIDKey       = "x-span-id"
	ParentSpanIDKey = "x-parent-span-id"
)

// ID lengths in bytes; hex encoding doubles them.
const (
	traceIDBytes = 16
	spanIDBytes  = 8
)

type ctxKey struct{}

// Context identifies one span within a trace.
type Context struct {
	TraceID      string
	SpanID       string
	ParentSpanID string
}

// New starts a trace.
func New() Context {
	return Context{TraceID: randomID(traceIDBytes), SpanID: randomID(spanIDBytes)}
}

// Child returns a new span in the same trace with c as its parent. A zero
// Context has no trace to continue, so Child starts one.
func (c Context) Child() Context {
	if c.TraceID == "" {
		return New()
	}
	return Context{TraceID: c.TraceID, SpanID: randomID(spanIDBytes), ParentSpanID: c.SpanID}
}

func randomID(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// FromContext returns the trace stored in ctx.
func FromContext(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(ctxKey{}).(Context)
	return tc, ok
}

// WithContext stores tc in ctx.
func WithContext(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

// ToMap exports c for propagation.
func (c Context) ToMap() map[string]string {
	m := map[string]string{TraceIDKey: c.TraceID, SpanIDKey: c.SpanID}
	if c.ParentSpanID != "" {
		m[ParentSpanIDKey] = c.ParentSpanID
	}
	return m
}

// FromMap continues a propagated trace: the caller's span becomes the parent
// of a fresh local span. Missing IDs start a new trace.
func FromMap(m map[string]string) Context {
	return Context{TraceID: m[TraceIDKey], SpanID: m[SpanIDKey]}.Child()
}

func (c Context) logArgs() []any {
	args := []any{"trace_id", c.TraceID, "span_id", c.SpanID}
	if c.ParentSpanID != "" {
		args = append(args, "parent_span_id", c.ParentSpanID)
	}
	return args
}

// Logger returns the default logger annotated with the trace in ctx.
func Logger(ctx context.Context) *slog.Logger {
	tc, ok := FromContext(ctx)
	if !ok {
		return slog.Default()
	}
	return slog.Default().With(tc.logArgs()...)
}

// Span times one operation. Attributes keep insertion order so log output
// is stable across runs.
type Span struct {
	Name    string
	Context Context

	start time.Time
	end   time.Time
	attrs []slog.Attr
	err   error
}

// StartSpan opens a child span of the trace in ctx (or a new trace) and
// returns a context carrying it.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	parent, _ := FromContext(ctx)
	s := &Span{Name: name, Context: parent.Child(), start: time.Now()}
	return WithContext(ctx, s.Context), s
}

// SetAttr records key, replacing an earlier value for the same key.
func (s *Span) SetAttr(key string, val any) {
	for i := range s.attrs {
		if s.attrs[i].Key == key {
			s.attrs[i].Value = slog.AnyValue(val)
			return
		}
	}
	s.attrs = append(s.attrs, slog.Any(key, val))
}

// Attr returns the value recorded for key.
func (s *Span) Attr(key string) (any, bool) {
	for _, a := range s.attrs {
		if a.Key == key {
			return a.Value.Any(), true
		}
	}
	return nil, false
}

// Fail marks the span as failed. A nil err is ignored.
func (s *Span) Fail(err error) {
	if err != nil {
		s.err = err
	}
}

// Err returns the error passed to Fail.
func (s *Span) Err() error { return s.err }

// End stops the clock. Only the first call counts.
func (s *Span) End() {
	if s.end.IsZero() {
		s.end = time.Now()
	}
}

// EndAndLog ends the span and logs it: warn when failed, debug otherwise.
func (s *Span) EndAndLog(ctx context.Context) {
	s.End()
	level := slog.LevelDebug
	if s.err != nil {
		level = slog.LevelWarn
	}
	Logger(ctx).Log(ctx, level, "span", "span", s)
}

// Duration is zero until End is called.
func (s *Span) Duration() time.Duration {
	if s.end.IsZero() {
		return 0
	}
	return s.end.Sub(s.start)
}

// LogValue implements slog.LogValuer.
func (s *Span) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(s.attrs)+3)
	attrs = append(attrs,
		slog.String("name", s.Name),
		slog.String("span_id", s.Context.SpanID),
		slog.Duration("duration", s.Duration()),
	)
	if s.err != nil {
		attrs = append(attrs, slog.String("error", s.err.Error()))
	}
	attrs = append(attrs, s.attrs...)
	return slog.GroupValue(attrs...)
}
