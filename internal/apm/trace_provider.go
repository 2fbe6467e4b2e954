// Package apm configures OpenTelemetry tracing.
package apm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"

	"github.com/fd1az/launchpad-wallet/internal/logger"
)

type Exporter string

const (
	OTLPExporter    Exporter = "otlp"
	ZipkinExporter  Exporter = "zipkin"
	ConsoleExporter Exporter = "console"
)

// Options selects and configures the span exporter.
type Options struct {
	Enabled     bool
	ServiceName string
	Exporter    Exporter
	Endpoint    string
	Headers     string // comma separated key=value pairs
	Protocol    string // "http/protobuf" or "grpc"
}

type TraceProvider interface {
	Stop() error
}

type traceProvider struct {
	tp *sdktrace.TracerProvider
}

type noopProvider struct{}

func (noopProvider) Stop() error { return nil }

// NewTraceProvider installs the global tracer provider described by opts.
// When tracing is disabled the global no-op provider is left in place.
func NewTraceProvider(ctx context.Context, opts Options, log logger.LoggerInterface) (TraceProvider, error) {
	if !opts.Enabled {
		return noopProvider{}, nil
	}

	exp, err := newExporter(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("trace exporter %s: %w", opts.Exporter, err)
	}

	rsrc, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceNameKey.String(opts.ServiceName),
			attribute.String("otel.exporter", string(opts.Exporter)),
		))
	if err != nil {
		log.Warn(ctx, "trace resource merge failed, using default", "error", err)
		rsrc = resource.Default()
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(rsrc),
	)

	// Set global trace provider
	otel.SetTracerProvider(tp)

	// Set trace propagator
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))

	log.Info(ctx, "tracing enabled", "exporter", opts.Exporter, "endpoint", opts.Endpoint)

	return &traceProvider{tp}, nil
}

func newExporter(ctx context.Context, opts Options) (sdktrace.SpanExporter, error) {
	switch opts.Exporter {
	case ConsoleExporter:
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	case ZipkinExporter:
		return zipkin.New(opts.Endpoint)
	case OTLPExporter, "":
		headers, err := ParseHeaders(opts.Headers)
		if err != nil {
			return nil, err
		}
		if opts.Protocol == "grpc" {
			return otlptracegrpc.New(ctx,
				otlptracegrpc.WithEndpointURL(opts.Endpoint),
				otlptracegrpc.WithHeaders(headers),
			)
		}
		return otlptracehttp.New(ctx,
			otlptracehttp.WithEndpointURL(opts.Endpoint),
			otlptracehttp.WithHeaders(headers),
		)
	default:
		return nil, fmt.Errorf("unknown exporter %q", opts.Exporter)
	}
}

// ParseHeaders parses "k1=v1,k2=v2" as used by OTEL_EXPORTER_OTLP_HEADERS.
func ParseHeaders(s string) (map[string]string, error) {
	headers := make(map[string]string)
	if strings.TrimSpace(s) == "" {
		return headers, nil
	}

	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid header %q, expected key=value", pair)
		}
		headers[k] = strings.TrimSpace(v)
	}
	return headers, nil
}

func (o *traceProvider) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5) //nolint:gomnd
	defer cancel()

	return o.tp.Shutdown(ctx)
}
