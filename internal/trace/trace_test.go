package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
)

// captureLogs routes the default logger into a buffer for the test.
func captureLogs(t *testing.T, level slog.Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: level})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	return m
}

func TestNew(t *testing.T) {
	tc := New()
	if len(tc.TraceID) != 2*traceIDBytes {
		t.Errorf("trace id length = %d, want %d", len(tc.TraceID), 2*traceIDBytes)
	}
	if len(tc.SpanID) != 2*spanIDBytes {
		t.Errorf("span id length = %d, want %d", len(tc.SpanID), 2*spanIDBytes)
	}
	if tc.ParentSpanID != "" {
		t.Errorf("parent = %q, want empty", tc.ParentSpanID)
	}
}

func TestIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := New().TraceID
		if seen[id] {
			t.Fatalf("duplicate trace id %s", id)
		}
		seen[id] = true
	}
}

func TestChild(t *testing.T) {
	parent := New()
	child := parent.Child()

	if child.TraceID != parent.TraceID {
		t.Error("child must keep the trace id")
	}
	if child.SpanID == parent.SpanID {
		t.Error("child must get a new span id")
	}
	if child.ParentSpanID != parent.SpanID {
		t.Errorf("parent span = %q, want %q", child.ParentSpanID, parent.SpanID)
	}

	root := Context{}.Child()
	if root.TraceID == "" || root.ParentSpanID != "" {
		t.Errorf("child of zero context = %+v, want a fresh trace", root)
	}
}

func TestContextRoundTrip(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Error("empty context should carry no trace")
	}
	tc := New()
	got, ok := FromContext(WithContext(context.Background(), tc))
	if !ok || got != tc {
		t.Errorf("FromContext = %+v, %v", got, ok)
	}
}

func TestToMapFromMap(t *testing.T) {
	tests := []struct {
		name       string
		in         map[string]string
		wantTrace  string
		wantParent string
	}{
		{"continues caller", map[string]string{TraceIDKey: "trace123", SpanIDKey: "span456"}, "trace123", "span456"},
		{"starts trace", map[string]string{}, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := FromMap(tt.in)
			if tt.wantTrace != "" && tc.TraceID != tt.wantTrace {
				t.Errorf("trace = %q, want %q", tc.TraceID, tt.wantTrace)
			}
			if len(tc.TraceID) == 0 {
				t.Error("trace id missing")
			}
			if tc.ParentSpanID != tt.wantParent {
				t.Errorf("parent = %q, want %q", tc.ParentSpanID, tt.wantParent)
			}
			if len(tc.SpanID) != 2*spanIDBytes {
				t.Errorf("span id = %q", tc.SpanID)
			}
		})
	}

	m := Context{TraceID: "t", SpanID: "s", ParentSpanID: "p"}.ToMap()
	if m[TraceIDKey] != "t" || m[SpanIDKey] != "s" || m[ParentSpanIDKey] != "p" {
		t.Errorf("ToMap = %v", m)
	}
	if _, ok := (Context{TraceID: "t", SpanID: "s"}).ToMap()[ParentSpanIDKey]; ok {
		t.Error("root span must not export a parent")
	}
}

func TestStartSpan(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "capture_cycle")
	if span.Name != "capture_cycle" {
		t.Errorf("name = %q", span.Name)
	}
	if tc, _ := FromContext(ctx); tc != span.Context {
		t.Error("returned context must carry the span")
	}
	if span.Duration() != 0 {
		t.Error("open span should report zero duration")
	}

	span.SetAttr("tier", "original")
	span.SetAttr("tier", "range")
	span.End()
	first := span.Duration()
	span.End()

	if first <= 0 || span.Duration() != first {
		t.Errorf("duration = %v then %v, want stable positive", first, span.Duration())
	}
	if v, ok := span.Attr("tier"); !ok || v != "range" {
		t.Errorf("tier = %v, want range", v)
	}
	if _, ok := span.Attr("missing"); ok {
		t.Error("unexpected attribute")
	}
}

func TestSpanNested(t *testing.T) {
	ctx, parent := StartSpan(context.Background(), "cycle")
	_, child := StartSpan(ctx, "ocr")

	if child.Context.TraceID != parent.Context.TraceID {
		t.Error("child should inherit trace id")
	}
	if child.Context.ParentSpanID != parent.Context.SpanID {
		t.Error("child's parent should be the enclosing span")
	}
}

func TestEndAndLog(t *testing.T) {
	buf := captureLogs(t, slog.LevelDebug)

	ctx, span := StartSpan(context.Background(), "store_flush")
	span.SetAttr("count", 3)
	span.EndAndLog(ctx)

	line := decodeLine(t, buf)
	if line["level"] != "DEBUG" {
		t.Errorf("level = %v, want DEBUG", line["level"])
	}
	group, _ := line["span"].(map[string]any)
	if group["name"] != "store_flush" || group["count"] != float64(3) {
		t.Errorf("span group = %v", group)
	}
	if line["trace_id"] != span.Context.TraceID {
		t.Errorf("trace_id = %v, want %s", line["trace_id"], span.Context.TraceID)
	}
}

func TestEndAndLogFailed(t *testing.T) {
	buf := captureLogs(t, slog.LevelInfo)

	ctx, span := StartSpan(context.Background(), "store_flush")
	span.Fail(nil)
	if span.Err() != nil {
		t.Fatal("nil error must not mark the span failed")
	}
	span.Fail(errors.New("connection refused"))
	span.EndAndLog(ctx)

	line := decodeLine(t, buf)
	if line["level"] != "WARN" {
		t.Errorf("level = %v, want WARN", line["level"])
	}
	group, _ := line["span"].(map[string]any)
	if group["error"] != "connection refused" {
		t.Errorf("error = %v", group["error"])
	}
}

func TestLogger(t *testing.T) {
	buf := captureLogs(t, slog.LevelInfo)

	tc := Context{TraceID: "trace123", SpanID: "span456", ParentSpanID: "parent789"}
	Logger(WithContext(context.Background(), tc)).Info("hello")

	line := decodeLine(t, buf)
	if line["trace_id"] != "trace123" || line["span_id"] != "span456" || line["parent_span_id"] != "parent789" {
		t.Errorf("log line = %v", line)
	}

	buf.Reset()
	Logger(context.Background()).Info("plain")
	if _, ok := decodeLine(t, buf)["trace_id"]; ok {
		t.Error("logger without trace must not add ids")
	}
}
