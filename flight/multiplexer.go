package flight

import (
	"context"
	stderrors "errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/inflight/component"
	"github.com/kbukum/inflight/errors"
	"github.com/kbukum/inflight/logger"
	"github.com/kbukum/inflight/observability"
	"github.com/kbukum/inflight/stream"
)

var errNoResponse = stderrors.New("transport returned neither a response nor an error")

// Multiplexer coalesces concurrent requests for the same endpoint into one
// network call. Callers that overlap in time share the call and all observe
// its single outcome; once the outcome is published the next request for the
// endpoint starts a fresh call.
type Multiplexer[T any] struct {
	resolver  Resolver[T]
	transport Transport
	cfg       Config
	log       *logger.Logger
	metrics   *observability.Metrics
	tracer    trace.Tracer

	mu       sync.Mutex
	inflight map[RequestKey]*entry
	closed   bool
}

// entry is one outstanding network call and the callers waiting for it.
type entry struct {
	key     RequestKey
	id      uuid.UUID
	ep      Endpoint
	ctx     context.Context
	cancel  context.CancelFunc
	started time.Time

	// guarded by Multiplexer.mu
	waiters    map[uint64]func(stream.Outcome[*Response])
	nextWaiter uint64
	done       bool
}

// New creates a Multiplexer that resolves targets with resolver and performs
// calls on transport.
func New[T any](resolver Resolver[T], transport Transport, opts ...Option) (*Multiplexer[T], error) {
	if resolver == nil {
		return nil, errors.MissingField("resolver")
	}
	if transport == nil {
		return nil, errors.MissingField("transport")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.config.ApplyDefaults()
	if err := o.config.Validate(); err != nil {
		return nil, err
	}

	return &Multiplexer[T]{
		resolver:  resolver,
		transport: transport,
		cfg:       o.config,
		log:       o.log.WithComponent(o.config.Name),
		metrics:   o.metrics,
		tracer:    o.tracer,
		inflight:  make(map[RequestKey]*entry),
	}, nil
}

// NewEndpointMultiplexer creates a Multiplexer whose targets are Endpoints.
func NewEndpointMultiplexer(transport Transport, opts ...Option) (*Multiplexer[Endpoint], error) {
	return New[Endpoint](EndpointResolver{}, transport, opts...)
}

// Request returns the caller's stream for target. Nothing happens until the
// stream is subscribed: the first subscription resolves target and either
// joins the call already in flight for its endpoint or starts one.
// Cancelling the stream's last subscription withdraws the caller; when no
// caller is left the call is cancelled.
//
// A target that cannot be resolved, or resolves to an invalid endpoint,
// fails the stream with an invalid input error and starts nothing.
func (m *Multiplexer[T]) Request(target T) *stream.Stream[*Response] {
	return stream.New(func(emit func(stream.Outcome[*Response])) func() {
		ep, err := m.resolver.Resolve(target)
		if err == nil {
			err = ep.Validate()
		}
		if err != nil {
			emit(stream.Failure[*Response](invalidInputError(err)))
			return nil
		}
		return m.attach(ep, emit)
	})
}

// Key resolves target and returns the RequestKey its calls are coalesced under.
func (m *Multiplexer[T]) Key(target T) (RequestKey, error) {
	ep, err := m.resolver.Resolve(target)
	if err == nil {
		err = ep.Validate()
	}
	if err != nil {
		return "", invalidInputError(err)
	}
	return ep.Key(), nil
}

func (m *Multiplexer[T]) attach(ep Endpoint, emit func(stream.Outcome[*Response])) func() {
	key := ep.Key()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		emit(stream.Failure[*Response](cancelledError("multiplexer is closed")))
		return nil
	}

	e, joined := m.inflight[key]
	if !joined {
		e = m.newEntry(key, ep)
		m.inflight[key] = e
	}
	wid := e.nextWaiter
	e.nextWaiter++
	e.waiters[wid] = emit
	subscribers := len(e.waiters)
	m.mu.Unlock()

	if joined {
		m.metrics.RecordCoalesced(e.ctx, e.ep.Method)
		m.debug(e, "joined call in flight", logger.FieldSubscribers, subscribers)
	} else {
		m.metrics.RecordCallStart(e.ctx, e.ep.Method)
		m.debug(e, "starting call")
		go m.perform(e)
	}

	return func() { m.detach(e, wid) }
}

func (m *Multiplexer[T]) newEntry(key RequestKey, ep Endpoint) *entry {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if m.cfg.CallTimeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), m.cfg.CallTimeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	return &entry{
		key:     key,
		id:      uuid.New(),
		ep:      ep,
		ctx:     ctx,
		cancel:  cancel,
		started: time.Now(),
		waiters: make(map[uint64]func(stream.Outcome[*Response])),
	}
}

func (m *Multiplexer[T]) perform(e *entry) {
	ctx, span := m.tracer.Start(e.ctx, observability.SpanPerform,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(observability.AttrRequestKey, string(e.key)),
			attribute.String(observability.AttrEntryID, e.id.String()),
			attribute.String("http.request.method", e.ep.Method),
		),
	)
	defer span.End()
	ctx = ContextWithEntryID(ctx, e.id)

	out := outcomeOf(m.transport.Perform(ctx, e.ep))

	subscribers, delivered := m.finish(e, out)
	span.SetAttributes(attribute.Int(observability.AttrSubscribers, subscribers))

	if !delivered {
		span.SetAttributes(attribute.String(observability.AttrOutcome, observability.OutcomeCancelled))
		return
	}

	elapsed := time.Since(e.started)
	outcome := observability.OutcomeSuccess
	status := 0
	if out.Err != nil {
		outcome = observability.OutcomeError
		if IsCancelled(out.Err) {
			outcome = observability.OutcomeCancelled
		}
		if fe, ok := AsError(out.Err); ok {
			status = fe.StatusCode
			span.SetAttributes(attribute.String(observability.AttrErrorCode, string(fe.Code)))
		}
		observability.SetSpanError(span, out.Err)
		m.log.WithContext(ctx).Warn("call failed", m.fields(e,
			logger.FieldError, out.Err.Error(),
			logger.FieldDuration, elapsed.Milliseconds(),
		))
	} else {
		status = out.Value.StatusCode
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		m.debug(e, "call completed",
			logger.FieldStatus, status,
			logger.FieldSubscribers, subscribers,
			logger.FieldDuration, elapsed.Milliseconds(),
		)
	}
	span.SetAttributes(attribute.String(observability.AttrOutcome, outcome))
	m.metrics.RecordCallEnd(ctx, e.ep.Method, outcome, status, elapsed)
}

// outcomeOf builds the published outcome from what the transport returned.
// A transport error that arrived with a response takes the response's status
// as its domain code.
func outcomeOf(resp *Response, err error) stream.Outcome[*Response] {
	if err == nil {
		if resp == nil {
			return stream.Failure[*Response](TransportError("transport", 0, errNoResponse))
		}
		return stream.Success(resp)
	}

	fe := asTransportError(err)
	if resp != nil && fe.Code == errors.ErrCodeTransport {
		fe.DomainCode = resp.StatusCode
		fe.StatusCode = resp.StatusCode
		fe.Response = resp
	}
	return stream.Failure[*Response](fe)
}

// finish removes e from the registry and then publishes out to its waiters.
// It reports false when the call was already torn down.
func (m *Multiplexer[T]) finish(e *entry, out stream.Outcome[*Response]) (int, bool) {
	m.mu.Lock()
	if m.inflight[e.key] == e {
		delete(m.inflight, e.key)
	}
	if e.done {
		m.mu.Unlock()
		return 0, false
	}
	e.done = true
	waiters := slices.Collect(maps.Values(e.waiters))
	e.waiters = nil
	m.mu.Unlock()

	e.cancel()
	for _, w := range waiters {
		w(out)
	}
	return len(waiters), true
}

// detach withdraws one waiter. The last waiter to leave before the outcome
// cancels the call and drops the entry, under the same lock attach joins
// under, so a concurrent request either joins before or starts fresh after.
func (m *Multiplexer[T]) detach(e *entry, wid uint64) {
	m.mu.Lock()
	if _, ok := e.waiters[wid]; !ok {
		m.mu.Unlock()
		return
	}
	delete(e.waiters, wid)
	if len(e.waiters) > 0 || e.done {
		m.mu.Unlock()
		return
	}
	e.done = true
	if m.inflight[e.key] == e {
		delete(m.inflight, e.key)
	}
	e.cancel()
	m.mu.Unlock()

	elapsed := time.Since(e.started)
	m.metrics.RecordCancelled(context.Background(), e.ep.Method, elapsed)
	m.debug(e, "call cancelled by its last subscriber", logger.FieldDuration, elapsed.Milliseconds())
}

// Inflight returns the number of outstanding calls.
func (m *Multiplexer[T]) Inflight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inflight)
}

// IsInflight reports whether a call for key is outstanding.
func (m *Multiplexer[T]) IsInflight(key RequestKey) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.inflight[key]
	return ok
}

// Close cancels every outstanding call and fails its waiters with a
// cancellation error. Requests subscribed after Close fail the same way.
func (m *Multiplexer[T]) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	var torn []*entry
	for key, e := range m.inflight {
		delete(m.inflight, key)
		if e.done {
			continue
		}
		e.done = true
		torn = append(torn, e)
	}
	waiters := make([][]func(stream.Outcome[*Response]), len(torn))
	for i, e := range torn {
		waiters[i] = slices.Collect(maps.Values(e.waiters))
		e.waiters = nil
	}
	m.mu.Unlock()

	out := stream.Failure[*Response](cancelledError("multiplexer closed"))
	for i, e := range torn {
		e.cancel()
		m.metrics.RecordCancelled(context.Background(), e.ep.Method, time.Since(e.started))
		for _, w := range waiters[i] {
			w(out)
		}
	}
	m.log.Info("multiplexer closed", logger.Fields("cancelled", len(torn)))
}

func (m *Multiplexer[T]) fields(e *entry, kvs ...any) map[string]any {
	f := logger.Fields(kvs...)
	f[logger.FieldRequestKey] = string(e.key)
	f[logger.FieldEntryID] = e.id.String()
	f[logger.FieldMethod] = e.ep.Method
	f[logger.FieldURL] = e.ep.URL
	return f
}

func (m *Multiplexer[T]) debug(e *entry, msg string, kvs ...any) {
	if !m.cfg.LogEntries {
		return
	}
	m.log.Debug(msg, m.fields(e, kvs...))
}

// Name returns the configured multiplexer name.
func (m *Multiplexer[T]) Name() string { return m.cfg.Name }

// Start is a no-op; a Multiplexer is ready once created.
func (m *Multiplexer[T]) Start(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("multiplexer %q is closed", m.cfg.Name)
	}
	return nil
}

// Stop closes the multiplexer.
func (m *Multiplexer[T]) Stop(context.Context) error {
	m.Close()
	return nil
}

// Health reports the number of outstanding calls, or unhealthy once closed.
func (m *Multiplexer[T]) Health(context.Context) component.Health {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return component.Health{Name: m.cfg.Name, Status: component.StatusUnhealthy, Message: "closed"}
	}
	return component.Health{
		Name:    m.cfg.Name,
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("%d calls in flight", len(m.inflight)),
	}
}

// Describe returns a summary of the multiplexer configuration.
func (m *Multiplexer[T]) Describe() component.Description {
	timeout := "none"
	if m.cfg.CallTimeout > 0 {
		timeout = m.cfg.CallTimeout.String()
	}
	return component.Description{
		Name:    m.cfg.Name,
		Type:    "multiplexer",
		Details: "call_timeout=" + timeout,
	}
}

var (
	_ component.Component   = (*Multiplexer[Endpoint])(nil)
	_ component.Describable = (*Multiplexer[Endpoint])(nil)
)
