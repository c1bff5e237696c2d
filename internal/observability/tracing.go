package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/addy-wilson/bentley-ave-transfer-risk-test/internal/platform/logging"
)

// InitTracing installs the global OpenTelemetry tracer provider. Without it
// every span in the process is a noop: the usecase spans, the otelhttp
// transport, and the otelsqlx archive instrumentation would all record
// nothing and the logger would never see a trace id. No exporter is
// attached; spans exist to give the run a trace context that flows into
// the JSON logs.
func InitTracing(serviceName string, logger *logging.Logger) (func(context.Context) error, error) {
	if logger == nil {
		logger = logging.Default()
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("build tracing resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(sdktrace.WithResource(res))
	otel.SetTracerProvider(provider)

	logger.Info("tracing enabled", "service_name", serviceName)
	return provider.Shutdown, nil
}
