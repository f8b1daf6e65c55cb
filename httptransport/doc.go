// Package httptransport performs flight calls over net/http.
//
// An Adapter implements flight.Transport. It joins relative URLs onto a base
// URL, applies default headers and the inflight User-Agent, tags every wire
// request with the id of the multiplexer call it serves, and guards each
// upstream host with an optional circuit breaker, rate limiter and bulkhead.
//
// # Basic Usage
//
//	adapter, err := httptransport.New(httptransport.Config{
//	    BaseURL: "https://api.example.com",
//	    Timeout: 10 * time.Second,
//	})
//	mux, err := flight.NewEndpointMultiplexer(adapter)
//	users := mux.RequestJSONArray(adapter.Endpoint(http.MethodGet, "/users"))
//
// # With Resilience
//
//	adapter, err := httptransport.New(httptransport.Config{
//	    BaseURL:        "https://api.example.com",
//	    CircuitBreaker: httptransport.DefaultCircuitBreakerConfig(),
//	    Bulkhead:       &resilience.BulkheadConfig{MaxConcurrent: 8},
//	})
//
// Guards are created per host on first use. A call refused by a guard fails
// with a flight transport error whose Domain names the guard.
package httptransport
