package trace

import (
	"context"
	"net/http"
)

// Middleware extracts or creates trace context for HTTP requests and echoes
// the trace id back so clients can correlate logs.
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

// Continue returns ctx carrying a child of traceID when one is given, or a
// child of the trace already in ctx otherwise. WebSocket commands use it to
// honour client-supplied ids.
func Continue(ctx context.Context, traceID string) context.Context {
	switch tc, ok := FromContext(ctx); {
	case traceID != "":
		return WithContext(ctx, NewChild(Context{TraceID: traceID}))
	case ok:
		return WithContext(ctx, NewChild(tc))
	default:
		return WithContext(ctx, New())
	}
}
