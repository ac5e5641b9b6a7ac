package observability

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func TestTraceFields(t *testing.T) {
	t.Parallel()

	if got := TraceFields(context.Background()); got != nil {
		t.Fatalf("expected no fields without a span, got %v", got)
	}

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{1, 2, 3},
		SpanID:  trace.SpanID{4, 5, 6},
	})
	got := TraceFields(trace.ContextWithSpanContext(context.Background(), sc))
	if len(got) != 2 {
		t.Fatalf("fields = %v", got)
	}
	if got[0].Key != "trace_id" || got[0].Value != sc.TraceID().String() {
		t.Fatalf("trace field = %+v", got[0])
	}
	if got[1].Key != "span_id" || got[1].Value != sc.SpanID().String() {
		t.Fatalf("span field = %+v", got[1])
	}
}
