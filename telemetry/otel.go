package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lattice-run/retrieval-orchestrator/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

// Provider owns the OpenTelemetry SDK pipeline for this process: one
// TracerProvider and one MeterProvider, both registered globally so that
// otelhttp-instrumented lane adapters pick them up automatically.
//
// When cfg.Enabled is false (no collector configured), traces are written
// to stdout instead of dropped, so a local run without a collector still
// shows request spans. Metrics have no stdout fallback: metricReader is
// nil and instruments simply accumulate unread until a collector endpoint
// is configured, same degrade-without-blocking-retrieval posture as a
// tripped breaker degrades a lane.
type Provider struct {
	tracer        trace.Tracer
	Metrics       *MetricInstruments
	traceProvider *sdktrace.TracerProvider
	metricReader  *sdkmetric.PeriodicReader // nil when no OTLP endpoint is configured

	shutdownOnce sync.Once
}

// NewProvider builds and registers the OpenTelemetry SDK pipeline.
func NewProvider(ctx context.Context, cfg core.TelemetryConfig, serviceName string, logger core.Logger) (*Provider, error) {
	if serviceName == "" {
		return nil, fmt.Errorf("telemetry: service name cannot be empty")
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: failed to build resource: %w", err)
	}

	var traceExporter sdktrace.SpanExporter
	if cfg.Enabled && cfg.OTLPEndpoint != "" {
		traceExporter, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("telemetry: failed to create OTLP trace exporter for %s: %w", cfg.OTLPEndpoint, err)
		}
		logger.Info("telemetry exporting via OTLP/gRPC", map[string]interface{}{"endpoint": cfg.OTLPEndpoint})
	} else {
		traceExporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("telemetry: failed to create stdout trace exporter: %w", err)
		}
		logger.Info("telemetry exporting to stdout (no OTLP endpoint configured)", nil)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	mpOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	var metricReader *sdkmetric.PeriodicReader
	if cfg.Enabled && cfg.OTLPEndpoint != "" {
		metricExporter, err := otlpmetrichttp.New(ctx,
			otlpmetrichttp.WithEndpoint(cfg.OTLPEndpoint),
			otlpmetrichttp.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("telemetry: failed to create OTLP metric exporter for %s: %w", cfg.OTLPEndpoint, err)
		}
		metricReader = sdkmetric.NewPeriodicReader(metricExporter)
		mpOpts = append(mpOpts, sdkmetric.WithReader(metricReader))
	} else {
		logger.Info("telemetry metrics not exported (no OTLP endpoint configured)", nil)
	}

	mp := sdkmetric.NewMeterProvider(mpOpts...)
	otel.SetMeterProvider(mp)

	return &Provider{
		tracer:        tp.Tracer("retrieval-orchestrator"),
		Metrics:       NewMetricInstruments("retrieval-orchestrator"),
		traceProvider: tp,
		metricReader:  metricReader,
	}, nil
}

// Tracer returns the request/lane span tracer.
func (p *Provider) Tracer() trace.Tracer { return p.tracer }

// Shutdown flushes and tears down the SDK pipeline. Idempotent.
func (p *Provider) Shutdown(ctx context.Context) error {
	var shutdownErr error
	p.shutdownOnce.Do(func() {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		var errs []error
		if err := p.Metrics.Shutdown(); err != nil {
			errs = append(errs, err)
		}
		if p.traceProvider != nil {
			if err := p.traceProvider.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
		}
		if p.metricReader != nil {
			if err := p.metricReader.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
		}
		if len(errs) > 0 {
			shutdownErr = fmt.Errorf("telemetry shutdown errors: %v", errs)
		}
	})
	return shutdownErr
}
