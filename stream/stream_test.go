package stream

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// manual is a producer whose emit and dispose are driven by the test.
type manual[T any] struct {
	mu       sync.Mutex
	starts   int
	disposes int
	emit     func(Outcome[T])
}

func (m *manual[T]) produce(emit func(Outcome[T])) func() {
	m.mu.Lock()
	m.starts++
	m.emit = emit
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.disposes++
		m.mu.Unlock()
	}
}

func (m *manual[T]) send(out Outcome[T]) {
	m.mu.Lock()
	emit := m.emit
	m.mu.Unlock()
	emit(out)
}

func (m *manual[T]) counts() (starts, disposes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts, m.disposes
}

type recorder[T any] struct {
	mu        sync.Mutex
	values    []T
	errs      []error
	completes int
}

func (r *recorder[T]) observer() Observer[T] {
	return Observer[T]{
		OnValue: func(v T) {
			r.mu.Lock()
			r.values = append(r.values, v)
			r.mu.Unlock()
		},
		OnError: func(err error) {
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
		},
		OnComplete: func() {
			r.mu.Lock()
			r.completes++
			r.mu.Unlock()
		},
	}
}

func (r *recorder[T]) snapshot() (values []T, errs []error, completes int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.values...), append([]error(nil), r.errs...), r.completes
}

func TestStream_LazyStart(t *testing.T) {
	m := &manual[int]{}
	s := New(m.produce)

	if starts, _ := m.counts(); starts != 0 {
		t.Fatalf("producer should not run before Subscribe, ran %d times", starts)
	}
	s.Subscribe(Observer[int]{})
	if starts, _ := m.counts(); starts != 1 {
		t.Fatalf("expected producer to run once, ran %d times", starts)
	}
}

func TestStream_MulticastDeliversOncePerObserver(t *testing.T) {
	m := &manual[string]{}
	s := New(m.produce)

	recs := make([]*recorder[string], 3)
	for i := range recs {
		recs[i] = &recorder[string]{}
		s.Subscribe(recs[i].observer())
	}
	if s.Subscribers() != 3 {
		t.Fatalf("expected 3 subscribers, got %d", s.Subscribers())
	}

	m.send(Success("ok"))

	if starts, _ := m.counts(); starts != 1 {
		t.Errorf("expected a single producer run, got %d", starts)
	}
	for i, r := range recs {
		values, errs, completes := r.snapshot()
		if len(values) != 1 || values[0] != "ok" || len(errs) != 0 || completes != 1 {
			t.Errorf("observer %d: values=%v errs=%v completes=%d", i, values, errs, completes)
		}
	}
	if !s.Completed() || s.Subscribers() != 0 {
		t.Errorf("expected completed stream with no waiting subscribers")
	}
}

func TestStream_ReplayToLateSubscriber(t *testing.T) {
	m := &manual[int]{}
	s := New(m.produce)
	s.Subscribe(Observer[int]{})
	m.send(Failure[int](errors.New("boom")))

	late := &recorder[int]{}
	s.Subscribe(late.observer())

	values, errs, completes := late.snapshot()
	if len(values) != 0 || len(errs) != 1 || errs[0].Error() != "boom" || completes != 1 {
		t.Errorf("late subscriber: values=%v errs=%v completes=%d", values, errs, completes)
	}
	if starts, _ := m.counts(); starts != 1 {
		t.Errorf("late subscriber must not restart the producer, starts=%d", starts)
	}
	if out, ok := s.Result(); !ok || out.Err == nil {
		t.Errorf("expected stored failure, got %+v (completed=%v)", out, ok)
	}
}

func TestStream_EmitIsIgnoredAfterFirst(t *testing.T) {
	m := &manual[int]{}
	s := New(m.produce)
	r := &recorder[int]{}
	s.Subscribe(r.observer())

	m.send(Success(1))
	m.send(Success(2))

	values, _, completes := r.snapshot()
	if len(values) != 1 || values[0] != 1 || completes != 1 {
		t.Errorf("expected only the first outcome, got values=%v completes=%d", values, completes)
	}
}

func TestStream_CancelOneOfMany(t *testing.T) {
	m := &manual[int]{}
	s := New(m.produce)
	a, b := &recorder[int]{}, &recorder[int]{}
	subA := s.Subscribe(a.observer())
	s.Subscribe(b.observer())

	subA.Cancel()
	subA.Cancel()
	if _, disposes := m.counts(); disposes != 0 {
		t.Fatalf("producer disposed while an observer remains")
	}

	m.send(Success(7))
	if values, _, _ := a.snapshot(); len(values) != 0 {
		t.Errorf("cancelled observer received %v", values)
	}
	if values, _, _ := b.snapshot(); len(values) != 1 {
		t.Errorf("remaining observer should receive the value, got %v", values)
	}
}

func TestStream_LastCancelDisposesAndRestarts(t *testing.T) {
	m := &manual[int]{}
	s := New(m.produce)
	sub := s.Subscribe(Observer[int]{})
	sub.Cancel()

	if starts, disposes := m.counts(); starts != 1 || disposes != 1 {
		t.Fatalf("expected 1 start and 1 dispose, got %d/%d", starts, disposes)
	}
	if s.Completed() {
		t.Fatal("cancelled stream must not be completed")
	}

	r := &recorder[int]{}
	s.Subscribe(r.observer())
	if starts, _ := m.counts(); starts != 2 {
		t.Fatalf("expected a fresh producer run, got %d starts", starts)
	}
	m.send(Success(3))
	if values, _, _ := r.snapshot(); len(values) != 1 || values[0] != 3 {
		t.Errorf("expected value from the second run, got %v", values)
	}
}

func TestStream_SynchronousEmit(t *testing.T) {
	disposed := false
	s := New(func(emit func(Outcome[int])) func() {
		emit(Success(9))
		return func() { disposed = true }
	})

	r := &recorder[int]{}
	s.Subscribe(r.observer())

	if values, _, completes := r.snapshot(); len(values) != 1 || values[0] != 9 || completes != 1 {
		t.Errorf("expected synchronous delivery, got values=%v completes=%d", values, completes)
	}
	if !disposed {
		t.Error("dispose returned after a synchronous emit should still run")
	}
}

func TestStream_StaleEmitAfterRestartIsIgnored(t *testing.T) {
	var emits []func(Outcome[int])
	s := New(func(emit func(Outcome[int])) func() {
		emits = append(emits, emit)
		return nil
	})

	s.Subscribe(Observer[int]{}).Cancel()
	r := &recorder[int]{}
	s.Subscribe(r.observer())

	emits[0](Success(1))
	if values, _, _ := r.snapshot(); len(values) != 0 {
		t.Fatalf("emit from an abandoned run was delivered: %v", values)
	}
	emits[1](Success(2))
	if values, _, _ := r.snapshot(); len(values) != 1 || values[0] != 2 {
		t.Errorf("expected value from the live run, got %v", values)
	}
}

func TestJustAndFail(t *testing.T) {
	v, err := Just(5).Await(context.Background())
	if err != nil || v != 5 {
		t.Errorf("Just: got %d, %v", v, err)
	}
	want := errors.New("nope")
	if _, err := Fail[int](want).Await(context.Background()); !errors.Is(err, want) {
		t.Errorf("Fail: got %v", err)
	}
}

func TestAwait_ContextCancelReleasesSubscription(t *testing.T) {
	m := &manual[int]{}
	s := New(m.produce)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := s.Await(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if _, disposes := m.counts(); disposes != 1 {
		t.Errorf("expected the producer to be disposed, got %d", disposes)
	}
}

func TestAwait_ConcurrentCompletion(t *testing.T) {
	m := &manual[int]{}
	s := New(m.produce)

	var wg sync.WaitGroup
	var got atomic.Int64
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := s.Await(context.Background())
			if err == nil {
				got.Add(int64(v))
			}
		}()
	}
	for s.Subscribers() < 20 {
		time.Sleep(time.Millisecond)
	}
	m.send(Success(1))
	wg.Wait()

	if got.Load() != 20 {
		t.Errorf("expected every waiter to receive the value, got %d", got.Load())
	}
}

func TestStream_PropertyMulticastAndReplay(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := &manual[int]{}
		s := New(m.produce)

		early := rapid.IntRange(1, 20).Draw(t, "early")
		late := rapid.IntRange(0, 5).Draw(t, "late")
		fail := rapid.Bool().Draw(t, "fail")
		value := rapid.Int().Draw(t, "value")

		var delivered atomic.Int32
		obs := Observer[int]{
			OnValue: func(v int) {
				if fail || v != value {
					t.Errorf("unexpected value %d", v)
				}
				delivered.Add(1)
			},
			OnError: func(error) {
				if !fail {
					t.Error("unexpected error")
				}
				delivered.Add(1)
			},
		}
		for i := 0; i < early; i++ {
			s.Subscribe(obs)
		}
		if fail {
			m.send(Failure[int](errors.New("x")))
		} else {
			m.send(Success(value))
		}
		for i := 0; i < late; i++ {
			s.Subscribe(obs)
		}

		if starts, _ := m.counts(); starts != 1 {
			t.Fatalf("producer ran %d times", starts)
		}
		if got := int(delivered.Load()); got != early+late {
			t.Fatalf("delivered %d outcomes, want %d", got, early+late)
		}
	})
}
