package stream

import (
	"context"
	"sync"
)

// Outcome is the terminal result of a stream: a value or an error.
type Outcome[T any] struct {
	Value T
	Err   error
}

// Success wraps v in a successful outcome.
func Success[T any](v T) Outcome[T] { return Outcome[T]{Value: v} }

// Failure wraps err in a failed outcome.
func Failure[T any](err error) Outcome[T] { return Outcome[T]{Err: err} }

// Observer receives a stream's outcome. Exactly one of OnValue or OnError is
// called, then OnComplete. Nil callbacks are skipped.
type Observer[T any] struct {
	OnValue    func(T)
	OnError    func(error)
	OnComplete func()
}

// Producer starts the work behind a stream. It must not block: it arranges
// for emit to be called at most once, possibly from another goroutine or
// before it returns, and returns a dispose function that abandons the work.
// Dispose may be nil and may run after emit.
type Producer[T any] func(emit func(Outcome[T])) (dispose func())

type state int

const (
	idle state = iota
	running
	completed
)

// Stream is a lazy, multicast, single-outcome value. The zero value is not
// usable; create streams with New or one of the constructors.
type Stream[T any] struct {
	produce Producer[T]

	mu        sync.Mutex
	state     state
	gen       uint64
	observers map[uint64]Observer[T]
	nextID    uint64
	dispose   func()
	outcome   Outcome[T]
}

// New creates a stream backed by produce.
func New[T any](produce Producer[T]) *Stream[T] {
	return &Stream[T]{
		produce:   produce,
		observers: make(map[uint64]Observer[T]),
	}
}

// Just returns a stream that is already completed with v.
func Just[T any](v T) *Stream[T] {
	return completedWith(Success(v))
}

// Fail returns a stream that is already completed with err.
func Fail[T any](err error) *Stream[T] {
	return completedWith(Failure[T](err))
}

func completedWith[T any](out Outcome[T]) *Stream[T] {
	return &Stream[T]{state: completed, outcome: out}
}

// Subscribe registers o. If the stream has completed, o receives the stored
// outcome before Subscribe returns. If this is the first observer, the
// producer is started.
func (s *Stream[T]) Subscribe(o Observer[T]) *Subscription {
	s.mu.Lock()
	if s.state == completed {
		out := s.outcome
		s.mu.Unlock()
		deliver(o, out)
		return &Subscription{}
	}

	id := s.nextID
	s.nextID++
	s.observers[id] = o
	sub := &Subscription{cancel: func() { s.unsubscribe(id) }}

	if s.state == running {
		s.mu.Unlock()
		return sub
	}
	s.state = running
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	dispose := s.produce(func(out Outcome[T]) { s.complete(gen, out) })

	s.mu.Lock()
	if s.state == running && s.gen == gen {
		s.dispose = dispose
		dispose = nil
	}
	s.mu.Unlock()

	// the run already completed, or every observer left while produce ran
	if dispose != nil {
		dispose()
	}
	return sub
}

func (s *Stream[T]) complete(gen uint64, out Outcome[T]) {
	s.mu.Lock()
	if s.state != running || s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.state = completed
	s.outcome = out
	s.dispose = nil
	observers := make([]Observer[T], 0, len(s.observers))
	for _, o := range s.observers {
		observers = append(observers, o)
	}
	s.observers = nil
	s.mu.Unlock()

	for _, o := range observers {
		deliver(o, out)
	}
}

func (s *Stream[T]) unsubscribe(id uint64) {
	s.mu.Lock()
	if _, ok := s.observers[id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.observers, id)

	var dispose func()
	if len(s.observers) == 0 && s.state == running {
		s.state = idle
		s.gen++
		dispose = s.dispose
		s.dispose = nil
	}
	s.mu.Unlock()

	if dispose != nil {
		dispose()
	}
}

// Completed reports whether the stream holds its outcome.
func (s *Stream[T]) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == completed
}

// Subscribers returns the number of observers waiting for the outcome.
func (s *Stream[T]) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.observers)
}

// Result returns the stored outcome and true once the stream has completed.
func (s *Stream[T]) Result() (Outcome[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome, s.state == completed
}

// Await subscribes and blocks until the outcome arrives or ctx is done, in
// which case the subscription is cancelled and ctx.Err() is returned.
func (s *Stream[T]) Await(ctx context.Context) (T, error) {
	ch := make(chan Outcome[T], 1)
	sub := s.Subscribe(Observer[T]{
		OnValue: func(v T) { ch <- Success(v) },
		OnError: func(err error) { ch <- Failure[T](err) },
	})

	select {
	case out := <-ch:
		return out.Value, out.Err
	case <-ctx.Done():
		sub.Cancel()
		var zero T
		return zero, ctx.Err()
	}
}

func deliver[T any](o Observer[T], out Outcome[T]) {
	if out.Err != nil {
		if o.OnError != nil {
			o.OnError(out.Err)
		}
	} else if o.OnValue != nil {
		o.OnValue(out.Value)
	}
	if o.OnComplete != nil {
		o.OnComplete()
	}
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Cancel removes the observer. It is safe to call more than once and after
// the outcome has been delivered.
func (sub *Subscription) Cancel() {
	if sub.cancel == nil {
		return
	}
	sub.once.Do(sub.cancel)
}
