// Package otelx installs the process tracer provider and propagators.
package otelx

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/keithlinneman/healthili/internal/xerrors"
)

type Options struct {
	Enabled  bool
	Endpoint string
	Insecure bool
	Sample   float64
	Service  string
	Version  string
}

// Tracing is an installed provider and its shutdown.
type Tracing struct {
	Provider trace.TracerProvider
	Shutdown func(context.Context) error
}

func setPropagator() {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
}

// Init sets the global tracer provider. Disabled tracing installs an
// sdk provider with no exporter, so spans still carry valid ids for logs.
func Init(ctx context.Context, o Options) (Tracing, error) {
	setPropagator()

	if !o.Enabled {
		tp := sdktrace.NewTracerProvider()
		otel.SetTracerProvider(tp)
		return Tracing{Provider: tp, Shutdown: func(context.Context) error { return nil }}, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(o.Endpoint)}
	if o.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	// New does not block on the connection, bound it anyway
	dialCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	exp, err := otlptracegrpc.New(dialCtx, opts...)
	if err != nil {
		return Tracing{}, xerrors.Wrapf(err, "create otlp exporter for %s", o.Endpoint)
	}

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(o.Service),
			semconv.ServiceVersionKey.String(o.Version),
		),
	)
	if err != nil && res == nil {
		res = resource.Default()
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(o.Sample))),
		sdktrace.WithBatcher(exp,
			sdktrace.WithMaxQueueSize(2048),
			sdktrace.WithBatchTimeout(5*time.Second),
		),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return Tracing{Provider: tp, Shutdown: tp.Shutdown}, nil
}
