package stream

import "sync"

// Map transforms the success value with fn. Errors pass through unchanged.
func Map[I, O any](src *Stream[I], fn func(I) O) *Stream[O] {
	return TryMap(src, func(v I) (O, error) { return fn(v), nil })
}

// TryMap transforms the success value with fn, turning a non-nil error from
// fn into the stream's error. Errors from src pass through and fn is not called.
//
// The derived stream holds one subscription on src while it has observers,
// so cancelling its last observer cancels that subscription.
func TryMap[I, O any](src *Stream[I], fn func(I) (O, error)) *Stream[O] {
	return New(func(emit func(Outcome[O])) func() {
		sub := src.Subscribe(Observer[I]{
			OnValue: func(v I) {
				o, err := fn(v)
				if err != nil {
					emit(Failure[O](err))
					return
				}
				emit(Success(o))
			},
			OnError: func(err error) { emit(Failure[O](err)) },
		})
		return sub.Cancel
	})
}

// Tap calls fn with the outcome as a side effect and passes it through.
func Tap[T any](src *Stream[T], fn func(Outcome[T])) *Stream[T] {
	return New(func(emit func(Outcome[T])) func() {
		sub := src.Subscribe(Observer[T]{
			OnValue: func(v T) {
				out := Success(v)
				fn(out)
				emit(out)
			},
			OnError: func(err error) {
				out := Failure[T](err)
				fn(out)
				emit(out)
			},
		})
		return sub.Cancel
	})
}

// Then feeds the success value of src into fn and follows the stream it
// returns. Errors from src pass through and fn is not called.
func Then[I, O any](src *Stream[I], fn func(I) *Stream[O]) *Stream[O] {
	return New(func(emit func(Outcome[O])) func() {
		var (
			mu       sync.Mutex
			inner    *Subscription
			disposed bool
		)
		forward := Observer[O]{
			OnValue: func(v O) { emit(Success(v)) },
			OnError: func(err error) { emit(Failure[O](err)) },
		}
		outer := src.Subscribe(Observer[I]{
			OnValue: func(v I) {
				sub := fn(v).Subscribe(forward)
				mu.Lock()
				if disposed {
					mu.Unlock()
					sub.Cancel()
					return
				}
				inner = sub
				mu.Unlock()
			},
			OnError: func(err error) { emit(Failure[O](err)) },
		})
		return func() {
			outer.Cancel()
			mu.Lock()
			disposed = true
			sub := inner
			mu.Unlock()
			if sub != nil {
				sub.Cancel()
			}
		}
	})
}
