package trace

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/your-org/llm-orchestrator/internal/version"
)

// OTelRuntime stores initialized tracer and shutdown hook.
type OTelRuntime struct {
	Tracer   oteltrace.Tracer
	Shutdown func(context.Context) error
}

// SetupOTel installs a global tracer provider. With enabled=false it returns
// the global (no-op unless already installed) tracer. An empty endpoint
// exports to stdout; otherwise spans go to an OTLP gRPC collector.
func SetupOTel(serviceName string, enabled bool, endpoint string) (OTelRuntime, error) {
	noop := OTelRuntime{
		Tracer:   otel.Tracer(serviceName),
		Shutdown: func(context.Context) error { return nil },
	}

	if !enabled {
		return noop, nil
	}

	ctx := context.Background()
	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", version.Version),
		),
	)
	if err != nil {
		return OTelRuntime{}, fmt.Errorf("otel resource: %w", err)
	}

	var exp sdktrace.SpanExporter
	endpoint = strings.TrimSpace(endpoint)
	if endpoint != "" {
		exp, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return OTelRuntime{}, fmt.Errorf("otel otlp exporter: %w", err)
		}
	} else {
		exp, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return OTelRuntime{}, fmt.Errorf("otel stdout exporter: %w", err)
		}
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return OTelRuntime{
		Tracer:   tp.Tracer(serviceName),
		Shutdown: tp.Shutdown,
	}, nil
}
