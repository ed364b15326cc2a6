package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-xray-sdk-go/instrumentation/awsv2"
	"github.com/aws/aws-xray-sdk-go/xray"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Tracing backends
const (
	TracingNone = "none"
	TracingOTLP = "otlp"
	TracingXRay = "xray"
)

// TracingConfig selects and configures the trace exporter
type TracingConfig struct {
	Backend        string
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
	OTLPInsecure   bool
	SampleRatio    float64
}

// Tracing owns the tracer provider lifecycle
type Tracing struct {
	cfg      TracingConfig
	shutdown []func(context.Context) error
}

// SetupTracing bootstraps the configured backend. When it returns without
// error, Shutdown must be called to flush pending spans.
func SetupTracing(ctx context.Context, cfg TracingConfig) (*Tracing, error) {
	t := &Tracing{cfg: cfg}

	switch cfg.Backend {
	case "", TracingNone, TracingXRay:
		// X-Ray segments come from the Lambda runtime or the HTTP handler
		return t, nil
	case TracingOTLP:
	default:
		return nil, fmt.Errorf("unknown tracing backend %q", cfg.Backend)
	}

	opts := []otlptracegrpc.Option{}
	if cfg.OTLPEndpoint != "" {
		opts = append(opts, otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint))
	}
	if cfg.OTLPInsecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}
	t.shutdown = append(t.shutdown, exporter.Shutdown)

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			attribute.String("environment", cfg.Environment),
		))
	if err != nil {
		return nil, errors.Join(err, t.Shutdown(ctx))
	}

	ratio := cfg.SampleRatio
	if ratio <= 0 {
		ratio = 1
	}
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	)
	// Provider shutdown flushes the batcher, so it runs before the exporter
	t.shutdown = append([]func(context.Context) error{provider.Shutdown}, t.shutdown...)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return t, nil
}

// Shutdown flushes and releases every registered component once
func (t *Tracing) Shutdown(ctx context.Context) error {
	var err error
	for _, fn := range t.shutdown {
		err = errors.Join(err, fn(ctx))
	}
	t.shutdown = nil
	return err
}

// InstrumentAWS adds X-Ray subsegments to every AWS SDK call made with cfg
func (t *Tracing) InstrumentAWS(cfg *aws.Config) {
	if t.cfg.Backend == TracingXRay {
		awsv2.AWSV2Instrumentor(&cfg.APIOptions)
	}
}

// HTTPMiddleware opens an X-Ray segment per request when X-Ray is selected
func (t *Tracing) HTTPMiddleware(next http.Handler) http.Handler {
	if t.cfg.Backend != TracingXRay {
		return next
	}
	return xray.Handler(xray.NewFixedSegmentNamer(t.cfg.ServiceName), next)
}
