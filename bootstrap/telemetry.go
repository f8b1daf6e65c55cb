package bootstrap

import (
	"context"
	stderrors "errors"
	"fmt"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/inflight/component"
	"github.com/kbukum/inflight/observability"
)

// telemetry installs the OTLP providers on Start and flushes them on Stop.
// Instruments created before Start forward to the providers once installed.
type telemetry struct {
	cfg observability.Config

	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider
}

func (t *telemetry) Name() string { return "telemetry" }

func (t *telemetry) Start(ctx context.Context) error {
	if t.cfg.TracingEnabled {
		tp, err := observability.InitTracer(ctx, t.cfg)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		t.tp = tp
	}
	if t.cfg.MetricsEnabled {
		mp, err := observability.InitMeter(ctx, t.cfg)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		t.mp = mp
	}
	return nil
}

func (t *telemetry) Stop(ctx context.Context) error {
	var errs []error
	if t.tp != nil {
		errs = append(errs, t.tp.Shutdown(ctx))
	}
	if t.mp != nil {
		errs = append(errs, t.mp.Shutdown(ctx))
	}
	return stderrors.Join(errs...)
}

func (t *telemetry) Health(context.Context) component.Health {
	return component.Health{Name: t.Name(), Status: component.StatusHealthy}
}

func (t *telemetry) Describe() component.Description {
	return component.Description{
		Type: "telemetry",
		Details: fmt.Sprintf("endpoint=%s tracing=%t metrics=%t",
			t.cfg.Endpoint, t.cfg.TracingEnabled, t.cfg.MetricsEnabled),
	}
}
