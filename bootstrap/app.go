package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kbukum/inflight/component"
	"github.com/kbukum/inflight/config"
	"github.com/kbukum/inflight/flight"
	"github.com/kbukum/inflight/httptransport"
	"github.com/kbukum/inflight/logger"
	"github.com/kbukum/inflight/observability"
)

// App is an inflight client process: a multiplexer over an HTTP transport,
// with telemetry, under one component lifecycle.
type App struct {
	Name       string
	Version    string
	Cfg        *config.Config
	Components *component.Registry
	Logger     *logger.Logger
	Summary    *Summary

	// Transport is nil when a custom transport was supplied with WithTransport.
	Transport *httptransport.Component
	Mux       *flight.Multiplexer[flight.Endpoint]

	gracefulTimeout time.Duration
	summaryOut      io.Writer

	onStart []Hook
	onReady []Hook
	onStop  []Hook
}

// NewApp applies defaults to cfg, validates it and wires the components.
// Nothing is started until Run or RunTask.
func NewApp(cfg *config.Config, opts ...Option) (*App, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	app := &App{
		Name:            cfg.Name,
		Version:         cfg.Version,
		Cfg:             cfg,
		Components:      component.NewRegistry(),
		gracefulTimeout: 15 * time.Second,
		summaryOut:      os.Stdout,
	}

	o := resolveOptions(opts)
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}
	if o.summaryOut != nil {
		app.summaryOut = o.summaryOut
	}
	if o.logger != nil {
		app.Logger = o.logger
	} else {
		logger.Init(&cfg.Logging)
		app.Logger = logger.GetGlobalLogger()
	}

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		m, err := observability.NewMetrics(observability.Meter())
		if err != nil {
			return nil, err
		}
		metrics = m
	}
	tracer := observability.Tracer()

	if err := app.Components.Register(&telemetry{cfg: cfg.Observability}); err != nil {
		return nil, err
	}

	transport := o.transport
	if transport == nil {
		app.Transport = httptransport.NewComponent(cfg.Transport,
			httptransport.WithLogger(app.Logger),
			httptransport.WithMetrics(metrics),
			httptransport.WithTracer(tracer),
		)
		if err := app.Components.Register(app.Transport); err != nil {
			return nil, err
		}
		transport = app.Transport
	}

	mux, err := flight.NewEndpointMultiplexer(transport,
		flight.WithConfig(cfg.Multiplexer),
		flight.WithLogger(app.Logger),
		flight.WithMetrics(metrics),
		flight.WithTracer(tracer),
	)
	if err != nil {
		return nil, err
	}
	if err := app.Components.Register(mux); err != nil {
		return nil, err
	}
	app.Mux = mux

	app.Summary = NewSummary(cfg.Name, cfg.Version)
	return app, nil
}

// Endpoint builds an endpoint for path, joined onto the transport's base URL
// when path is relative.
func (a *App) Endpoint(method, path string, opts ...flight.EndpointOption) flight.Endpoint {
	if a.Transport != nil {
		return a.Transport.Endpoint(method, path, opts...)
	}
	return flight.NewEndpoint(method, path, opts...)
}

// ReadyCheck verifies that all registered components are healthy.
func (a *App) ReadyCheck(ctx context.Context) error {
	results := a.Components.HealthAll(ctx)
	var unhealthy []string
	for _, h := range results {
		if h.Status != component.StatusHealthy {
			detail := h.Name + "=" + string(h.Status)
			if h.Message != "" {
				detail += "(" + h.Message + ")"
			}
			unhealthy = append(unhealthy, detail)
		}
	}
	if len(unhealthy) > 0 {
		return fmt.Errorf("unhealthy components: %v", unhealthy)
	}
	return nil
}

// Run starts the components, blocks until a shutdown signal or ctx is done,
// then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	if err := a.startup(ctx); err != nil {
		return err
	}

	a.Logger.Info("Client ready, waiting for shutdown signal")
	a.WaitForSignal(ctx)

	return a.stop()
}

// RunTask starts the components, runs task and shuts down when it returns.
// SIGINT and SIGTERM cancel the task's context.
func (a *App) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.startup(ctx); err != nil {
		return err
	}

	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			a.Logger.Info("Received signal, canceling task", logger.Fields("signal", sig.String()))
			cancel()
		case <-taskCtx.Done():
		}
	}()

	taskErr := task(taskCtx)

	if stopErr := a.stop(); stopErr != nil {
		if taskErr != nil {
			return taskErr
		}
		return stopErr
	}
	return taskErr
}

func (a *App) startup(ctx context.Context) error {
	start := time.Now()

	a.Logger.Info("Starting client", logger.Fields(
		"name", a.Name,
		"version", a.Version,
	))

	if err := a.Components.StartAll(ctx); err != nil {
		a.abort()
		return fmt.Errorf("initialization failed: %w", err)
	}

	if err := runHooks(ctx, a.onStart); err != nil {
		a.abort()
		return fmt.Errorf("onStart hook failed: %w", err)
	}

	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("Ready check reported issues", logger.Fields(logger.FieldError, err.Error()))
	}

	if err := runHooks(ctx, a.onReady); err != nil {
		a.abort()
		return fmt.Errorf("onReady hook failed: %w", err)
	}

	a.Summary.SetStartupDuration(time.Since(start))
	a.Summary.Display(a.summaryOut, a.Components)
	return nil
}

// abort stops whatever started before a startup failure.
func (a *App) abort() {
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()
	if err := a.Components.StopAll(ctx); err != nil {
		a.Logger.Error("Cleanup after failed startup", logger.Fields(logger.FieldError, err.Error()))
	}
}

// WaitForSignal blocks until an interrupt or term signal, or until ctx is done.
func (a *App) WaitForSignal(ctx context.Context) os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.Logger.Info("Received shutdown signal", logger.Fields("signal", sig.String()))
		return sig
	case <-ctx.Done():
		a.Logger.Info("Context canceled, shutting down")
		return nil
	}
}

// Shutdown stops the application. Use it when managing the lifecycle directly.
func (a *App) Shutdown(context.Context) error {
	return a.stop()
}

// stop runs the OnStop hooks, then stops the components in reverse order:
// the multiplexer cancels outstanding calls before the transport closes and
// telemetry flushes last.
func (a *App) stop() error {
	a.Logger.Info("Shutting down client", logger.Fields("timeout", a.gracefulTimeout.String()))

	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	var shutdownErr error
	if err := runHooks(ctx, a.onStop); err != nil {
		a.Logger.Error("OnStop hook error", logger.Fields(logger.FieldError, err.Error()))
		shutdownErr = err
	}

	if err := a.Components.StopAll(ctx); err != nil {
		a.Logger.Error("Shutdown completed with errors", logger.Fields(logger.FieldError, err.Error()))
		if shutdownErr == nil {
			shutdownErr = err
		}
	}

	a.Logger.Info("Client shutdown complete")
	return shutdownErr
}
