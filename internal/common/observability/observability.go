package observability

import (
	"context"
	"time"

	"botforge/internal/common/config"
	"botforge/internal/common/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Observability owns the OpenTelemetry meter and tracer providers for the process.
type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer
	stageCounter   otelmetric.Int64Counter
	stageDuration  otelmetric.Float64Histogram
}

// New wires the Prometheus metric reader and, when an endpoint is configured, a Jaeger span exporter.
// Failures degrade to no-op instruments rather than aborting startup.
func New(cfg config.ObservabilityConfig, log logger.Logger) *Observability {
	o := &Observability{tracer: noop.NewTracerProvider().Tracer(cfg.ServiceName)}

	res := resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName))

	exporter, err := prometheus.New()
	if err != nil {
		log.Warn("Failed to create Prometheus exporter", map[string]interface{}{"error": err.Error()})
	} else {
		o.meterProvider = metric.NewMeterProvider(metric.WithReader(exporter), metric.WithResource(res))
		otel.SetMeterProvider(o.meterProvider)

		meter := o.meterProvider.Meter(cfg.ServiceName)
		o.stageCounter, _ = meter.Int64Counter(
			"pipeline.stage.calls",
			otelmetric.WithDescription("Number of pipeline stage executions"),
		)
		o.stageDuration, _ = meter.Float64Histogram(
			"pipeline.stage.duration",
			otelmetric.WithDescription("Pipeline stage duration"),
			otelmetric.WithUnit("ms"),
		)
	}

	if cfg.JaegerEndpoint == "" {
		return o
	}

	spanExporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.JaegerEndpoint)))
	if err != nil {
		log.Warn("Failed to create Jaeger exporter", map[string]interface{}{"error": err.Error()})
		return o
	}

	o.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(spanExporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	)
	otel.SetTracerProvider(o.tracerProvider)
	o.tracer = o.tracerProvider.Tracer(cfg.ServiceName)

	return o
}

// NewNoop returns instruments that record nothing. Used in tests.
func NewNoop() *Observability {
	return &Observability{tracer: noop.NewTracerProvider().Tracer("noop")}
}

// StartStage opens a span for one pipeline stage. The returned func ends the span and records duration.
func (o *Observability) StartStage(ctx context.Context, stage string, attrs ...attribute.KeyValue) (context.Context, func(err error)) {
	start := time.Now()
	ctx, span := o.tracer.Start(ctx, stage, trace.WithAttributes(attrs...))

	return ctx, func(err error) {
		status := "ok"
		if err != nil {
			status = "error"
			span.RecordError(err)
		}
		span.End()

		stageAttrs := otelmetric.WithAttributes(
			attribute.String("stage", stage),
			attribute.String("status", status),
		)
		if o.stageCounter != nil {
			o.stageCounter.Add(ctx, 1, stageAttrs)
		}
		if o.stageDuration != nil {
			o.stageDuration.Record(ctx, float64(time.Since(start).Microseconds())/1000.0, stageAttrs)
		}
	}
}

func (o *Observability) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
}
