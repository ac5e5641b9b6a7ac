package oteltrace

import (
	"context"

	"github.com/Zhima-Mochi/colleshop/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type tracer struct{ t trace.Tracer }

// New returns a tracer from the global provider. telemetry.Setup installs the exporting
// provider; without it spans are no-ops.
func New(name string) observability.Tracer {
	if name == "" {
		name = "colleshop"
	}
	return &tracer{t: otel.Tracer(name)}
}

func (t *tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.t.Start(ctx, name, trace.WithAttributes(attrs...))
}
