package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{ServiceName: "svc"}
	cfg.ApplyDefaults()

	if cfg.Endpoint != "localhost:4318" {
		t.Errorf("expected default endpoint, got %q", cfg.Endpoint)
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("expected SampleRate 1.0, got %f", cfg.SampleRate)
	}
	if cfg.MetricInterval != 15*time.Second {
		t.Errorf("expected 15s interval, got %v", cfg.MetricInterval)
	}
	if cfg.Environment != "development" {
		t.Errorf("expected development environment, got %q", cfg.Environment)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	// must not panic
	m.RecordCallStart(ctx, "GET")
	m.RecordCallEnd(ctx, "GET", OutcomeSuccess, 200, time.Millisecond)
	m.RecordCoalesced(ctx, "GET")
	m.RecordCancelled(ctx, "GET", time.Millisecond)
	m.RecordRejected(ctx, "api.example.com", "breaker")
	m.RecordBreakerTransition(ctx, "api.example.com", "closed", "open")
}

func TestNewMetrics_Noop(t *testing.T) {
	m, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error creating metrics: %v", err)
	}
	m.RecordCallStart(context.Background(), "GET")
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumOf(t *testing.T, data metricdata.Aggregation) int64 {
	t.Helper()
	s, ok := data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected int64 sum, got %T", data)
	}
	var total int64
	for _, dp := range s.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics_RecordsCallLifecycle(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(provider.Meter("test"))
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	m.RecordCallStart(ctx, "GET")
	m.RecordCallStart(ctx, "GET")
	m.RecordCoalesced(ctx, "GET")
	m.RecordCallEnd(ctx, "GET", OutcomeSuccess, 200, 20*time.Millisecond)
	m.RecordCancelled(ctx, "GET", 5*time.Millisecond)

	data := collect(t, reader)
	if got := sumOf(t, data["flight.inflight"]); got != 0 {
		t.Errorf("expected no calls outstanding, got %d", got)
	}
	if got := sumOf(t, data["flight.calls"]); got != 2 {
		t.Errorf("expected 2 finished calls, got %d", got)
	}
	if got := sumOf(t, data["flight.coalesced"]); got != 1 {
		t.Errorf("expected 1 coalesced request, got %d", got)
	}
	if got := sumOf(t, data["flight.cancelled"]); got != 1 {
		t.Errorf("expected 1 cancelled call, got %d", got)
	}
	hist, ok := data["flight.duration"].(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected float64 histogram, got %T", data["flight.duration"])
	}
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	if count != 2 {
		t.Errorf("expected 2 duration samples, got %d", count)
	}
}

func TestSetSpanError(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())

	_, span := tp.Tracer("test").Start(context.Background(), SpanPerform)
	SetSpanError(span, errors.New("connection refused"))
	SetSpanError(span, nil)
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("expected error status, got %v", spans[0].Status.Code)
	}
	if len(spans[0].Events) != 1 {
		t.Errorf("expected a single error event, got %d", len(spans[0].Events))
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{2.0, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
	}
	for _, tc := range tests {
		if got := sampler(tc.rate).Description(); got != tc.want {
			t.Errorf("sampler(%v) = %q, want %q", tc.rate, got, tc.want)
		}
	}
	if got := sampler(0.5).Description(); got == "AlwaysOnSampler" || got == "AlwaysOffSampler" {
		t.Errorf("expected ratio sampler for 0.5, got %q", got)
	}
}

func TestNewResource(t *testing.T) {
	res, err := newResource(Config{ServiceName: "inflight", ServiceVersion: "1.0.0", Environment: "test"})
	if err != nil {
		t.Fatalf("newResource: %v", err)
	}
	found := map[attribute.Key]string{}
	for _, kv := range res.Attributes() {
		found[kv.Key] = kv.Value.Emit()
	}
	if found["service.name"] != "inflight" || found["environment"] != "test" {
		t.Errorf("unexpected resource attributes: %v", found)
	}
}

func shutdownQuickly(t *testing.T, shutdown func(context.Context) error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = shutdown(ctx)
}

func TestInitTracer(t *testing.T) {
	cfg := Config{ServiceName: "test-service", Endpoint: "localhost:4318", Insecure: true, SampleRate: 1.0}
	tp, err := InitTracer(context.Background(), cfg)
	if err != nil {
		t.Fatalf("InitTracer: %v", err)
	}
	shutdownQuickly(t, tp.Shutdown)
}

func TestInitMeter(t *testing.T) {
	cfg := Config{ServiceName: "test-service", Endpoint: "localhost:4318", Insecure: true, MetricInterval: time.Hour}
	mp, err := InitMeter(context.Background(), cfg)
	if err != nil {
		t.Fatalf("InitMeter: %v", err)
	}
	shutdownQuickly(t, mp.Shutdown)
}
