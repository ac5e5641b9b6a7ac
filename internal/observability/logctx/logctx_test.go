package logctx

import (
	"context"
	"testing"

	"github.com/Zhima-Mochi/colleshop/internal/observability"
)

type recordingLogger struct {
	observability.Logger
	fields []observability.Field
}

func (l *recordingLogger) With(fields ...observability.Field) observability.Logger {
	return &recordingLogger{Logger: l.Logger, fields: append(append([]observability.Field(nil), l.fields...), fields...)}
}

func TestFromOrFallsBack(t *testing.T) {
	t.Parallel()

	if FromOr(context.Background(), nil) == nil {
		t.Fatal("expected a no-op logger, got nil")
	}
	base := &recordingLogger{Logger: observability.NopLogger()}
	if got := FromOr(context.Background(), base); got != base {
		t.Fatal("expected fallback logger")
	}
	ctx := With(context.Background(), base)
	if got := FromOr(ctx, observability.NopLogger()); got != base {
		t.Fatal("expected context logger to win over fallback")
	}
}

func TestEnrichStacksFields(t *testing.T) {
	t.Parallel()

	base := &recordingLogger{Logger: observability.NopLogger()}
	ctx, _ := Enrich(context.Background(), base, observability.F("request_id", "r1"))
	ctx, logger := Enrich(ctx, nil, observability.F("order_id", "o1"))

	got := logger.(*recordingLogger).fields
	if len(got) != 2 || got[0].Key != "request_id" || got[1].Key != "order_id" {
		t.Fatalf("fields = %+v", got)
	}
	if From(ctx) != logger {
		t.Fatal("enriched logger not stored on context")
	}
}
