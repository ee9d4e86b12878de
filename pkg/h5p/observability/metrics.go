package observability

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records runtime metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordDispatch records one Trigger call and how many handlers it reached.
	RecordDispatch(ctx context.Context, eventType string, handlers int)

	// RecordInstance records a NewRunnable call with its duration and error status.
	RecordInstance(ctx context.Context, library string, duration time.Duration, err error)

	// RecordCompletion records a finished content result.
	RecordCompletion(ctx context.Context, scaled float64)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	dispatches      metric.Int64Counter
	handlerCalls    metric.Int64Counter
	instances       metric.Int64Counter
	instanceLatency metric.Float64Histogram
	instanceErrors  metric.Int64Counter
	completions     metric.Float64Histogram
}

// newOtelMetrics creates a new OTel metrics instance from the global meter provider.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("h5pruntime")

	dispatches, err := meter.Int64Counter("h5p.event.dispatches",
		metric.WithDescription("Number of event dispatches"),
	)
	if err != nil {
		return nil, err
	}

	handlerCalls, err := meter.Int64Counter("h5p.event.handler_calls",
		metric.WithDescription("Number of handler invocations"),
	)
	if err != nil {
		return nil, err
	}

	instances, err := meter.Int64Counter("h5p.content.instances",
		metric.WithDescription("Number of content instantiations"),
	)
	if err != nil {
		return nil, err
	}

	instanceLatency, err := meter.Float64Histogram("h5p.content.instantiate_ms",
		metric.WithDescription("Content instantiation latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	instanceErrors, err := meter.Int64Counter("h5p.content.errors",
		metric.WithDescription("Number of failed content instantiations"),
	)
	if err != nil {
		return nil, err
	}

	completions, err := meter.Float64Histogram("h5p.content.completion_scaled",
		metric.WithDescription("Scaled score of finished content"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		dispatches:      dispatches,
		handlerCalls:    handlerCalls,
		instances:       instances,
		instanceLatency: instanceLatency,
		instanceErrors:  instanceErrors,
		completions:     completions,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := newOtelMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordDispatch records an event dispatch.
func (m *otelMetrics) RecordDispatch(ctx context.Context, eventType string, handlers int) {
	attrs := metric.WithAttributes(attribute.String("event_type", eventType))
	m.dispatches.Add(ctx, 1, attrs)
	if handlers > 0 {
		m.handlerCalls.Add(ctx, int64(handlers), attrs)
	}
}

// RecordInstance records a content instantiation.
func (m *otelMetrics) RecordInstance(ctx context.Context, library string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("library", library))

	m.instances.Add(ctx, 1, attrs)
	m.instanceLatency.Record(ctx, float64(duration.Microseconds())/1000, attrs)

	if err != nil {
		m.instanceErrors.Add(ctx, 1, attrs)
	}
}

// RecordCompletion records a finished result.
func (m *otelMetrics) RecordCompletion(ctx context.Context, scaled float64) {
	m.completions.Record(ctx, scaled)
}
