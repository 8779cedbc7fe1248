package exporters

import (
	"context"

	"go.opentelemetry.io/otel/sdk/trace"
)

// NoopExporter discards spans. Used when no collector endpoint is
// configured so Init stays wired the same way in every environment.
type NoopExporter struct{}

func (c *NoopExporter) ExportSpans(ctx context.Context, spans []trace.ReadOnlySpan) error {
	return nil
}

func (c *NoopExporter) Shutdown(ctx context.Context) error {
	return nil
}
