// Package resilience guards outbound calls with a circuit breaker, a
// rate limiter and a bulkhead, plus a Group that keeps one guard per key
// (typically per upstream host).
//
// The three guards compose around a single call:
//
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("api"))
//	bh := resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 8})
//	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{Rate: 50, Burst: 10})
//
//	err := cb.Execute(func() error {
//	    return bh.Execute(ctx, func() error {
//	        return rl.ExecuteWait(ctx, func() error { return call(ctx) })
//	    })
//	})
package resilience
