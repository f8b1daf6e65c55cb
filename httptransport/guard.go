package httptransport

import (
	"context"
	stderrors "errors"

	"github.com/kbukum/inflight/flight"
	"github.com/kbukum/inflight/logger"
	"github.com/kbukum/inflight/resilience"
)

// guard holds the resilience primitives for one upstream host. Nil members
// are disabled.
type guard struct {
	host     string
	breaker  *resilience.CircuitBreaker
	limiter  *resilience.RateLimiter
	bulkhead *resilience.Bulkhead
	reject   func(ctx context.Context, host, guard string)
}

func (a *Adapter) newGuard(host string) *guard {
	g := &guard{
		host: host,
		reject: func(ctx context.Context, host, name string) {
			a.metrics.RecordRejected(ctx, host, name)
			a.log.Warn("call rejected", logger.Fields(logger.FieldHost, host, "guard", name))
		},
	}
	if c := a.config.CircuitBreaker; c != nil {
		cfg := *c
		cfg.Name = host
		cfg.OnStateChange = func(name string, from, to resilience.State) {
			a.metrics.RecordBreakerTransition(context.Background(), name, from.String(), to.String())
			a.log.Info("circuit breaker state changed", logger.Fields(
				logger.FieldHost, name, "from", from.String(), "to", to.String(),
			))
		}
		g.breaker = resilience.NewCircuitBreaker(cfg)
	}
	if c := a.config.RateLimiter; c != nil {
		cfg := *c
		cfg.Name = host
		g.limiter = resilience.NewRateLimiter(cfg)
	}
	if c := a.config.Bulkhead; c != nil {
		cfg := *c
		cfg.Name = host
		g.bulkhead = resilience.NewBulkhead(cfg)
	}
	return g
}

// run admits fn through the rate limiter, bulkhead and breaker in that
// order. fn reports whether the call counts as a success for the breaker.
func (g *guard) run(ctx context.Context, fn func() (bool, error)) error {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			g.reject(ctx, g.host, DomainRateLimit)
			return flight.TransportError(DomainRateLimit, 0, err)
		}
	}

	call := func() error {
		if g.breaker == nil {
			_, err := fn()
			return err
		}
		if err := g.breaker.Allow(); err != nil {
			g.reject(ctx, g.host, DomainCircuitBreaker)
			return flight.TransportError(DomainCircuitBreaker, 0, err)
		}
		ok, err := fn()
		g.breaker.Record(ok)
		return err
	}

	if g.bulkhead == nil {
		return call()
	}
	var callErr error
	err := g.bulkhead.Execute(ctx, func() error {
		callErr = call()
		return callErr
	})
	if err != nil && callErr == nil {
		if stderrors.Is(err, resilience.ErrBulkheadFull) || stderrors.Is(err, resilience.ErrBulkheadTimeout) {
			g.reject(ctx, g.host, DomainBulkhead)
			return flight.TransportError(DomainBulkhead, 0, err)
		}
		return err
	}
	return callErr
}
