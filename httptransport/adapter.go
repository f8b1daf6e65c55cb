package httptransport

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/kbukum/inflight/flight"
	"github.com/kbukum/inflight/logger"
	"github.com/kbukum/inflight/observability"
	"github.com/kbukum/inflight/resilience"
)

// HeaderRequestID carries the multiplexer entry id on every wire request.
const HeaderRequestID = "X-Request-ID"

// Transport error domains reported by the adapter.
const (
	DomainRequest        = "request"
	DomainNet            = "net"
	DomainTimeout        = "timeout"
	DomainHTTP           = "http"
	DomainCircuitBreaker = "circuit_breaker"
	DomainRateLimit      = "rate_limit"
	DomainBulkhead       = "bulkhead"
)

// ErrBodyTooLarge is returned when a response payload exceeds MaxBodyBytes.
var ErrBodyTooLarge = stderrors.New("response body exceeds the configured limit")

// Adapter performs flight calls over net/http.
type Adapter struct {
	httpClient *http.Client
	config     Config
	log        *logger.Logger
	metrics    *observability.Metrics
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
	guards     *resilience.Group[*guard]
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the adapter logger.
func WithLogger(l *logger.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.log = l
		}
	}
}

// WithMetrics records guard rejections and breaker transitions on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(a *Adapter) { a.metrics = m }
}

// WithTracer starts a client span per wire request on t.
func WithTracer(t trace.Tracer) Option {
	return func(a *Adapter) {
		if t != nil {
			a.tracer = t
		}
	}
}

// WithPropagator injects trace context into request headers with p instead
// of the global propagator.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(a *Adapter) {
		if p != nil {
			a.propagator = p
		}
	}
}

// WithHTTPClient replaces the underlying client, e.g. to use a test transport.
// The configured timeout still applies per call.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) {
		if c != nil {
			a.httpClient = c
		}
	}
}

// New creates a new HTTP adapter with the given configuration.
func New(cfg Config, opts ...Option) (*Adapter, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	tlsCfg, err := cfg.TLS.Build()
	if err != nil {
		return nil, err
	}
	if tlsCfg != nil {
		transport.TLSClientConfig = tlsCfg
	}

	a := &Adapter{
		httpClient: &http.Client{Transport: transport},
		config:     cfg,
		log:        logger.Nop(),
		tracer:     noop.NewTracerProvider().Tracer(observability.InstrumentationName),
		propagator: otel.GetTextMapPropagator(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.WithComponent(cfg.Name)
	a.guards = resilience.NewGroup(a.newGuard)

	return a, nil
}

// Endpoint builds a flight endpoint for path, joined onto the base URL when
// path is relative.
func (a *Adapter) Endpoint(method, path string, opts ...flight.EndpointOption) flight.Endpoint {
	return flight.NewEndpoint(method, joinURL(a.config.BaseURL, path), opts...)
}

// Perform sends ep and reads the whole response. Non-2xx responses are not
// errors here; status filtering is left to the caller's pipeline. When the
// body fails after the status line arrived, both the partial response and a
// transport error are returned.
func (a *Adapter) Perform(ctx context.Context, ep flight.Endpoint) (*flight.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	req, err := a.buildRequest(ctx, ep)
	if err != nil {
		return nil, flight.TransportError(DomainRequest, 0, err)
	}
	host := req.URL.Host

	ctx, span := a.tracer.Start(ctx, observability.SpanHTTP,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.HTTPRequestMethodKey.String(req.Method),
			semconv.URLFull(req.URL.String()),
			semconv.ServerAddress(req.URL.Hostname()),
		),
	)
	defer span.End()
	req = req.WithContext(ctx)
	a.propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))

	var resp *flight.Response
	err = a.guards.Get(host).run(ctx, func() (bool, error) {
		var callErr error
		resp, callErr = a.do(req)
		// server errors and wire failures count against the breaker; a
		// cancelled call says nothing about the upstream
		switch {
		case callErr != nil && ctx.Err() != nil && stderrors.Is(ctx.Err(), context.Canceled):
			return true, callErr
		case callErr != nil:
			return false, callErr
		default:
			return resp.StatusCode < http.StatusInternalServerError, nil
		}
	})

	if resp != nil {
		span.SetAttributes(semconv.HTTPResponseStatusCode(resp.StatusCode))
	}
	if err != nil {
		observability.SetSpanError(span, err)
		fields := logger.Fields(
			logger.FieldMethod, req.Method,
			logger.FieldHost, host,
			logger.FieldError, err.Error(),
		)
		if id, ok := flight.EntryIDFromContext(ctx); ok {
			fields[logger.FieldEntryID] = id.String()
		}
		a.log.WithContext(ctx).Debug("http call failed", fields)
	}
	return resp, err
}

func (a *Adapter) do(req *http.Request) (*flight.Response, error) {
	httpResp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, classify(req.Context(), err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	resp := &flight.Response{
		StatusCode: httpResp.StatusCode,
		Metadata: flight.Metadata{
			URL:           httpResp.Request.URL.String(),
			Header:        flattenHeaders(httpResp.Header),
			Proto:         httpResp.Proto,
			ContentLength: httpResp.ContentLength,
		},
	}

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, a.config.MaxBodyBytes+1))
	resp.Data = body
	if err != nil {
		return resp, classify(req.Context(), fmt.Errorf("read response body: %w", err))
	}
	if int64(len(body)) > a.config.MaxBodyBytes {
		resp.Data = body[:a.config.MaxBodyBytes]
		return resp, flight.TransportError(DomainHTTP, 0, ErrBodyTooLarge)
	}
	return resp, nil
}

// classify maps a client error onto a transport error. Cancellation is
// returned as is so the multiplexer reports it as such.
func classify(ctx context.Context, err error) error {
	if stderrors.Is(ctx.Err(), context.Canceled) {
		return err
	}
	var urlErr *url.Error
	switch {
	case stderrors.Is(err, context.DeadlineExceeded),
		stderrors.As(err, &urlErr) && urlErr.Timeout():
		return flight.TransportError(DomainTimeout, 0, err)
	case stderrors.As(err, &urlErr):
		return flight.TransportError(DomainNet, 0, err)
	default:
		return flight.TransportError(DomainHTTP, 0, err)
	}
}

func joinURL(base, path string) string {
	if base == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

func (a *Adapter) buildRequest(ctx context.Context, ep flight.Endpoint) (*http.Request, error) {
	var body io.Reader
	if len(ep.Body) > 0 {
		body = bytes.NewReader(ep.Body)
	}

	req, err := http.NewRequestWithContext(ctx, ep.Method, joinURL(a.config.BaseURL, ep.URL), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if len(ep.Query) > 0 {
		q := req.URL.Query()
		for k, v := range ep.Query {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}

	req.Header.Set("User-Agent", a.config.UserAgent)
	for k, v := range a.config.Headers {
		req.Header.Set(k, v)
	}
	for k, v := range ep.Header {
		req.Header.Set(k, v)
	}
	if id, ok := flight.EntryIDFromContext(ctx); ok && req.Header.Get(HeaderRequestID) == "" {
		req.Header.Set(HeaderRequestID, id.String())
	}

	return req, nil
}

// flattenHeaders converts multi-value headers to single-value.
func flattenHeaders(h http.Header) map[string]string {
	result := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			result[k] = v[0]
		}
	}
	return result
}

// Hosts returns the upstream hosts contacted so far.
func (a *Adapter) Hosts() []string {
	return a.guards.Keys()
}

// BreakerState returns the circuit breaker state for host, or false when
// breakers are disabled or the host has not been contacted.
func (a *Adapter) BreakerState(host string) (resilience.State, bool) {
	if a.config.CircuitBreaker == nil || !a.hasHost(host) {
		return resilience.StateClosed, false
	}
	return a.guards.Get(host).breaker.State(), true
}

func (a *Adapter) hasHost(host string) bool {
	for _, h := range a.guards.Keys() {
		if h == host {
			return true
		}
	}
	return false
}

// IsAvailable reports false when any contacted host has an open breaker.
func (a *Adapter) IsAvailable(context.Context) bool {
	for _, host := range a.guards.Keys() {
		if state, ok := a.BreakerState(host); ok && state == resilience.StateOpen {
			return false
		}
	}
	return true
}

// Close releases idle connections.
func (a *Adapter) Close(context.Context) error {
	a.httpClient.CloseIdleConnections()
	return nil
}

var _ flight.Transport = (*Adapter)(nil)
