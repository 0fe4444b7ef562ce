package trace

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

func TestIDLengths(t *testing.T) {
	tc := New()
	if len(tc.TraceID) != 32 {
		t.Errorf("trace ID should be 32 chars, got %d", len(tc.TraceID))
	}
	if len(tc.SpanID) != 16 {
		t.Errorf("span ID should be 16 chars, got %d", len(tc.SpanID))
	}
	if tc.ParentSpanID != "" {
		t.Error("new context should not have parent span ID")
	}
}

func TestIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := generateTraceID()
		if seen[id] {
			t.Fatal("generated duplicate trace ID")
		}
		seen[id] = true
	}
}

func TestNewChild(t *testing.T) {
	parent := New()
	child := NewChild(parent)

	if child.TraceID != parent.TraceID {
		t.Error("child should inherit trace ID")
	}
	if child.ParentSpanID != parent.SpanID {
		t.Error("child's parent should be parent's span ID")
	}
}

func TestEnsureContext(t *testing.T) {
	ctx, tc := EnsureContext(context.Background())
	if len(tc.TraceID) != 32 {
		t.Error("should create trace ID")
	}

	_, again := EnsureContext(ctx)
	if again.TraceID != tc.TraceID {
		t.Error("should return existing trace")
	}
}

func TestFromMap(t *testing.T) {
	tc := FromMap(map[string]string{TraceIDKey: "trace123", SpanIDKey: "span456"})

	if tc.TraceID != "trace123" {
		t.Error("trace ID mismatch")
	}
	if tc.ParentSpanID != "span456" {
		t.Error("parent span should be caller's span")
	}
	if len(tc.SpanID) != 16 {
		t.Error("should generate new span ID")
	}

	if fresh := FromMap(nil); len(fresh.TraceID) != 32 {
		t.Error("should generate trace ID if missing")
	}
}

func TestSpanNested(t *testing.T) {
	ctx, parent := StartSpan(context.Background(), "dispatch")
	_, child := StartSpan(ctx, "upload")

	if child.Ctx.TraceID != parent.Ctx.TraceID {
		t.Error("child should inherit trace ID")
	}
	if child.Ctx.ParentSpanID != parent.Ctx.SpanID {
		t.Error("child's parent should be parent's span")
	}

	child.SetAttr("bytes", 32044)
	child.End()
	if child.Duration() < 0 || child.EndTime.IsZero() {
		t.Error("ended span should have an end time")
	}
	if parent.Duration() != 0 {
		t.Error("open span should report zero duration")
	}
}

func TestLoggerCarriesSession(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	ctx := WithContext(context.Background(), New())
	ctx = WithSession(ctx, "sess-1", 3)
	Logger(ctx).Info("chunk transcribed")

	out := buf.String()
	for _, want := range []string{"trace_id=", "session_id=sess-1", "epoch=3"} {
		if !strings.Contains(out, want) {
			t.Errorf("log line %q missing %q", out, want)
		}
	}

	if id, epoch, ok := SessionFromContext(ctx); !ok || id != "sess-1" || epoch != 3 {
		t.Errorf("SessionFromContext = %q, %d, %v", id, epoch, ok)
	}
}

func TestMiddleware(t *testing.T) {
	var got Context
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/session", http.NoBody)
	req.Header.Set(TraceIDKey, "abc")
	req.Header.Set(SpanIDKey, "def")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got.TraceID != "abc" || got.ParentSpanID != "def" {
		t.Errorf("middleware context = %+v", got)
	}
	if rec.Header().Get(TraceIDKey) != "abc" {
		t.Error("trace id should be echoed on the response")
	}
}

func TestContinue(t *testing.T) {
	base := WithContext(context.Background(), Context{TraceID: "outer", SpanID: "s1"})

	tc, _ := FromContext(Continue(base, "client"))
	if tc.TraceID != "client" {
		t.Errorf("client trace id should win, got %q", tc.TraceID)
	}

	tc, _ = FromContext(Continue(base, ""))
	if tc.TraceID != "outer" || tc.ParentSpanID != "s1" {
		t.Errorf("should continue outer trace, got %+v", tc)
	}

	if _, ok := FromContext(Continue(context.Background(), "")); !ok {
		t.Error("should create a trace when none exists")
	}
}

func TestUnaryClientInterceptor(t *testing.T) {
	ctx := WithContext(context.Background(), Context{TraceID: "t1", SpanID: "s1"})

	var md metadata.MD
	invoker := func(ctx context.Context, _ string, _, _ any, _ *grpc.ClientConn, _ ...grpc.CallOption) error {
		md, _ = metadata.FromOutgoingContext(ctx)
		return nil
	}
	if err := UnaryClientInterceptor()(ctx, "/x/Y", nil, nil, nil, invoker); err != nil {
		t.Fatal(err)
	}

	if v := md.Get(TraceIDKey); len(v) != 1 || v[0] != "t1" {
		t.Errorf("trace id metadata = %v", v)
	}
	if v := md.Get(SpanIDKey); len(v) != 1 || v[0] != "s1" {
		t.Errorf("span id metadata = %v", v)
	}
}

func TestUnaryServerInterceptor(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(TraceIDKey, "t9", SpanIDKey, "s9"))

	var got Context
	handler := func(ctx context.Context, _ any) (any, error) {
		got, _ = FromContext(ctx)
		return nil, nil
	}
	if _, err := UnaryServerInterceptor()(ctx, nil, &grpc.UnaryServerInfo{}, handler); err != nil {
		t.Fatal(err)
	}
	if got.TraceID != "t9" || got.ParentSpanID != "s9" {
		t.Errorf("server context = %+v", got)
	}
}
