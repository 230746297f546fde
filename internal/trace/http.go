package trace

import (
	"encoding/json"
	"net/http"
)

// Middleware extracts or creates trace context for HTTP requests and echoes
// the trace ID back in the response headers.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc := FromMap(map[string]string{
			TraceIDKey: r.Header.Get(TraceIDKey),
			SpanIDKey:  r.Header.Get(SpanIDKey),
		})
		w.Header().Set(TraceIDKey, tc.TraceID)
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), tc)))
	})
}

// ExtractFromJSON reads an optional trace_id from a websocket message.
// Returns a fresh context and false when none is present.
func ExtractFromJSON(data []byte) (Context, bool) {
	var msg struct {
		TraceID string `json:"trace_id"`
	}
	if err := json.Unmarshal(data, &msg); err != nil || msg.TraceID == "" {
		return New(), false
	}
	return Context{
		TraceID: msg.TraceID,
		SpanID:  randomID(spanIDBytes),
	}, true
}
