package tracex

import (
	"context"
	"testing"
)

func TestTraceID_RoundTrip(t *testing.T) {
	ctx := WithTraceID(context.Background(), "t-1")
	if got, ok := TraceIDFrom(ctx); !ok || got != "t-1" {
		t.Fatalf("期望 TraceIDFrom round-trip 成功，got=%q ok=%v", got, ok)
	}
}

func TestEnsure_已有trace不覆盖(t *testing.T) {
	ctx := Ensure(WithTraceID(context.Background(), "keep"), "sync")
	if got, _ := TraceIDFrom(ctx); got != "keep" {
		t.Fatalf("期望保留已有 trace_id, got=%q", got)
	}
	if got, _ := SpanIDFrom(ctx); got != "sync" {
		t.Fatalf("期望 span=sync, got=%q", got)
	}
	if got, ok := TraceIDFrom(Ensure(context.Background(), "")); !ok || got == "" {
		t.Fatalf("期望生成新的 trace_id")
	}
}
