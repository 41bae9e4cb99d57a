package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"gfrcli/internal/config"
)

const (
	// InstrumentationName is the tracer and meter scope used across gfrcli
	InstrumentationName = "gfrcli"
)

// Telemetry holds the tracing and metrics providers for one process
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider // nil when tracing is off
	MeterProvider  *sdkmetric.MeterProvider // nil when metrics are off
	Registry       *prometheus.Registry
	Tracer         trace.Tracer
	Meter          metric.Meter
	Metrics        *PassMetrics
	logger         *slog.Logger
}

// InitializeOTel wires tracing and metrics according to cfg. Metrics flow
// from the OpenTelemetry meter into a private Prometheus registry, which is
// served over HTTP or written to a textfile.
func InitializeOTel(cfg config.TelemetryConfig, logger *slog.Logger) (*Telemetry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ctx := context.Background()

	res := createResource(cfg)
	t := &Telemetry{
		Registry: prometheus.NewRegistry(),
		logger:   logger.With(slog.String("component", "telemetry")),
	}

	if err := t.initializeTracing(cfg, res); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if err := t.initializeMetrics(cfg, res); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	metrics, err := NewPassMetrics(t.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}
	t.Metrics = metrics

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t.logger.DebugContext(ctx, "telemetry initialized",
		slog.String("service", cfg.ServiceName),
		slog.String("trace_exporter", cfg.TraceExporter),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	return t, nil
}

func createResource(cfg config.TelemetryConfig) *resource.Resource {
	hostname, _ := os.Hostname()
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(config.AppVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", fmt.Sprintf("%s-%d", hostname, os.Getpid())),
	)
}

func (t *Telemetry) initializeTracing(cfg config.TelemetryConfig, res *resource.Resource) error {
	switch cfg.TraceExporter {
	case "", "none":
		t.Tracer = otel.Tracer(InstrumentationName)
		return nil
	case "stdout":
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr))
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	)
	otel.SetTracerProvider(tp)

	t.TracerProvider = tp
	t.Tracer = tp.Tracer(InstrumentationName, trace.WithInstrumentationVersion(config.AppVersion))
	return nil
}

func (t *Telemetry) initializeMetrics(cfg config.TelemetryConfig, res *resource.Resource) error {
	if !cfg.EnableMetrics {
		t.Meter = noop.NewMeterProvider().Meter(InstrumentationName)
		return nil
	}

	exporter, err := otelprom.New(otelprom.WithRegisterer(t.Registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(mp)

	t.MeterProvider = mp
	t.Meter = mp.Meter(InstrumentationName, metric.WithInstrumentationVersion(config.AppVersion))
	return nil
}

// RegisterRuntimeCollectors adds Go runtime and process collectors to the
// registry. Long-running servers call this; batch passes do not.
func (t *Telemetry) RegisterRuntimeCollectors() error {
	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := t.Registry.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return err
			}
		}
	}
	return nil
}

// Handler serves the registry in the Prometheus exposition format
func (t *Telemetry) Handler() http.Handler {
	return promhttp.HandlerFor(t.Registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the registry to path for the node exporter textfile
// collector. The file is replaced atomically.
func (t *Telemetry) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, t.Registry); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}

// Shutdown flushes and stops the providers
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error

	if t.TracerProvider != nil {
		if err := t.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if t.MeterProvider != nil {
		if err := t.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	return errors.Join(errs...)
}

// PassMetrics holds the instruments recorded by passes and HTTP requests
type PassMetrics struct {
	Passes              metric.Int64Counter
	RowsProcessed       metric.Int64Counter
	InvalidDerivations  metric.Int64Counter
	PassDuration        metric.Float64Histogram
	Estimates           metric.Int64Counter
	HTTPRequests        metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
}

// NewPassMetrics creates the gfrcli instruments on meter
func NewPassMetrics(meter metric.Meter) (*PassMetrics, error) {
	var (
		m   PassMetrics
		err error
	)

	if m.Passes, err = meter.Int64Counter("gfr_passes",
		metric.WithDescription("Completed load, apply and save passes")); err != nil {
		return nil, err
	}
	if m.RowsProcessed, err = meter.Int64Counter("gfr_rows_processed",
		metric.WithDescription("Rows run through the estimator")); err != nil {
		return nil, err
	}
	if m.InvalidDerivations, err = meter.Int64Counter("gfr_invalid_derivations",
		metric.WithDescription("Derived cells left undefined because of invalid inputs")); err != nil {
		return nil, err
	}
	if m.PassDuration, err = meter.Float64Histogram("gfr_pass_duration",
		metric.WithDescription("Wall time of a pass"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.Estimates, err = meter.Int64Counter("gfr_estimates",
		metric.WithDescription("Single estimates served")); err != nil {
		return nil, err
	}
	if m.HTTPRequests, err = meter.Int64Counter("gfr_http_requests",
		metric.WithDescription("HTTP requests handled")); err != nil {
		return nil, err
	}
	if m.HTTPRequestDuration, err = meter.Float64Histogram("gfr_http_request_duration",
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}

	return &m, nil
}

// RecordPass records the outcome of one pass. invalid maps derived column
// names to the number of undefined cells in that column.
func (m *PassMetrics) RecordPass(ctx context.Context, source string, rows int, invalid map[string]int, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	src := attribute.String("source", source)

	m.Passes.Add(ctx, 1, metric.WithAttributes(src, attribute.String("outcome", outcome)))
	m.PassDuration.Record(ctx, d.Seconds(), metric.WithAttributes(src, attribute.String("outcome", outcome)))
	if err != nil {
		return
	}
	m.RowsProcessed.Add(ctx, int64(rows), metric.WithAttributes(src))
	for column, n := range invalid {
		if n > 0 {
			m.InvalidDerivations.Add(ctx, int64(n), metric.WithAttributes(src, attribute.String("column", column)))
		}
	}
}

// RecordEstimate records a single estimate request
func (m *PassMetrics) RecordEstimate(ctx context.Context, valid bool) {
	if m == nil {
		return
	}
	m.Estimates.Add(ctx, 1, metric.WithAttributes(attribute.Bool("valid", valid)))
}

// RecordHTTPRequest records a finished HTTP request
func (m *PassMetrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status", strconv.Itoa(status)),
	)
	m.HTTPRequests.Add(ctx, 1, attrs)
	m.HTTPRequestDuration.Record(ctx, d.Seconds(), attrs)
}

// TraceIDFromContext returns the OpenTelemetry trace ID of the active span
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// RecordError records err on the active span and marks it failed
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if err == nil || !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
