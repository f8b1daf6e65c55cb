package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/inflight/logger"
)

// InitMeter installs an OTLP/HTTP meter provider as the global provider.
// The returned provider should be shut down on exit.
func InitMeter(ctx context.Context, cfg Config) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.MetricInterval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.MetricInterval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		logger.FieldService, cfg.ServiceName,
		"endpoint", cfg.Endpoint,
		"interval", cfg.MetricInterval.String(),
	))

	return mp, nil
}

// Meter returns the inflight meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(InstrumentationName)
}

// Outcome labels recorded on flight.calls.
const (
	OutcomeSuccess   = "success"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
)

// Metrics holds the instruments for coalesced calls and the HTTP transport.
// All methods are safe on a nil receiver.
type Metrics struct {
	calls        metric.Int64Counter
	coalesced    metric.Int64Counter
	inflight     metric.Int64UpDownCounter
	cancelled    metric.Int64Counter
	duration     metric.Float64Histogram
	rejected     metric.Int64Counter
	breakerState metric.Int64Counter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	calls, err := meter.Int64Counter("flight.calls",
		metric.WithDescription("Network calls started, by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating flight.calls counter: %w", err)
	}

	coalesced, err := meter.Int64Counter("flight.coalesced",
		metric.WithDescription("Requests that joined a call already in flight"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating flight.coalesced counter: %w", err)
	}

	inflight, err := meter.Int64UpDownCounter("flight.inflight",
		metric.WithDescription("Network calls currently outstanding"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating flight.inflight gauge: %w", err)
	}

	cancelled, err := meter.Int64Counter("flight.cancelled",
		metric.WithDescription("Calls torn down because every subscriber cancelled"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating flight.cancelled counter: %w", err)
	}

	duration, err := meter.Float64Histogram("flight.duration",
		metric.WithDescription("Duration of network calls in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating flight.duration histogram: %w", err)
	}

	rejected, err := meter.Int64Counter("transport.rejected",
		metric.WithDescription("Calls refused by a resilience guard before reaching the network"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transport.rejected counter: %w", err)
	}

	breakerState, err := meter.Int64Counter("transport.breaker.transitions",
		metric.WithDescription("Circuit breaker state transitions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transport.breaker.transitions counter: %w", err)
	}

	return &Metrics{
		calls:        calls,
		coalesced:    coalesced,
		inflight:     inflight,
		cancelled:    cancelled,
		duration:     duration,
		rejected:     rejected,
		breakerState: breakerState,
	}, nil
}

// RecordCallStart counts a new outstanding call.
func (m *Metrics) RecordCallStart(ctx context.Context, method string) {
	if m == nil {
		return
	}
	m.inflight.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
}

// RecordCallEnd records a finished call and its duration.
func (m *Metrics) RecordCallEnd(ctx context.Context, method, outcome string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.inflight.Add(ctx, -1, metric.WithAttributes(attribute.String("method", method)))
	m.calls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("outcome", outcome),
		attribute.Int("status", status),
	))
	m.duration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("outcome", outcome),
	))
}

// RecordCoalesced counts a request that joined an outstanding call.
func (m *Metrics) RecordCoalesced(ctx context.Context, method string) {
	if m == nil {
		return
	}
	m.coalesced.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
}

// RecordCancelled counts a call torn down by its last subscriber and
// removes it from the outstanding count.
func (m *Metrics) RecordCancelled(ctx context.Context, method string, d time.Duration) {
	if m == nil {
		return
	}
	m.inflight.Add(ctx, -1, metric.WithAttributes(attribute.String("method", method)))
	m.cancelled.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
	m.calls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("outcome", OutcomeCancelled),
		attribute.Int("status", 0),
	))
	m.duration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("outcome", OutcomeCancelled),
	))
}

// RecordRejected counts a call refused by a guard ("breaker", "bulkhead", "rate_limit").
func (m *Metrics) RecordRejected(ctx context.Context, host, guard string) {
	if m == nil {
		return
	}
	m.rejected.Add(ctx, 1, metric.WithAttributes(
		attribute.String("host", host),
		attribute.String("guard", guard),
	))
}

// RecordBreakerTransition counts a circuit breaker state change.
func (m *Metrics) RecordBreakerTransition(ctx context.Context, host, from, to string) {
	if m == nil {
		return
	}
	m.breakerState.Add(ctx, 1, metric.WithAttributes(
		attribute.String("host", host),
		attribute.String("from", from),
		attribute.String("to", to),
	))
}
