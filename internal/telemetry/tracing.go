// Package telemetry wires the ambient observability stack: a real
// go.opentelemetry.io/otel/sdk/trace TracerProvider backing
// internal/pipeline's spans, the go.opentelemetry.io/otel/metric
// counters C6/C7/C8 record into, and a github.com/prometheus/client_golang
// exposition surface for a run's summary stats. Grounded on
// cmd/aleutian/internal/diagnostics/tracer.go's NewOTelDiagnosticsTracer
// (SDK TracerProvider + resource construction) and
// services/trace/graph/metrics.go (package-level meter, sync.Once-guarded
// instrument init).
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Configure installs a real SDK TracerProvider as the global provider so
// internal/pipeline's spans run through actual sampling/span-processing
// logic rather than the no-op default. It carries no exporter: single-shot
// CLI runs have nowhere standing to ship spans to, so this is the same
// "always sample, never export" shape the teacher's diagnostics tracer
// falls back to outside its Enterprise/OTLP path. The returned shutdown
// func releases the provider; callers should defer it.
func Configure(ctx context.Context, serviceName, serviceVersion string) (shutdown func(context.Context) error, err error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("building otel resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}
