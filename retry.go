package rxfn

import (
	"sync"

	"github.com/cenkalti/backoff/v4"
)

// trampoline runs resubscriptions iteratively. A request made while fn is on
// the stack is recorded and performed once fn returns, so a source that fails
// synchronously does not grow the stack with every attempt.
type trampoline struct {
	mu      sync.Mutex
	running bool
	pending bool
}

func (t *trampoline) run(fn func()) {
	t.mu.Lock()
	if t.running {
		t.pending = true
		t.mu.Unlock()
		return
	}
	t.running = true
	t.mu.Unlock()

	for {
		fn()

		t.mu.Lock()
		if !t.pending {
			t.running = false
			t.mu.Unlock()
			return
		}
		t.pending = false
		t.mu.Unlock()
	}
}

func recordRetry(operator string, attempt int, err error) {
	cfg := settings()
	cfg.stats().RecordRetry(operator)
	cfg.log().Debug("resubscribing after error", "operator", operator, "attempt", attempt, "error", err)
}

// CatchError replaces an error of src by the Observable returned by handler.
// A panic in handler terminates the result with a *PanicError.
func CatchError[T any](src Observable[T], handler func(err error) Observable[T]) Observable[T] {
	return Create(func(dst *Subscriber[T]) Teardown {
		subscribeChild(dst.Subscription, src, ObserverFuncs[T]{
			OnNext: dst.Next,
			OnError: func(err error) {
				var fallback Observable[T]
				if perr := protect(func() { fallback = handler(err) }); perr != nil {
					dst.Error(perr)
					return
				}
				subscribeChild(dst.Subscription, fallback, Observer[T](dst))
			},
			OnComplete: dst.Complete,
		})

		return nil
	})
}

// Retry resubscribes to src from scratch when it errors, at most n times. The
// error of the last attempt is forwarded. A negative n retries forever.
func Retry[T any](src Observable[T], n int) Observable[T] {
	return Create(func(dst *Subscriber[T]) Teardown {
		var (
			tramp    trampoline
			attempts int
			attempt  func()
		)

		attempt = func() {
			if dst.Closed() {
				return
			}
			subscribeChild(dst.Subscription, src, ObserverFuncs[T]{
				OnNext: dst.Next,
				OnError: func(err error) {
					if n >= 0 && attempts >= n {
						dst.Error(err)
						return
					}
					attempts++
					recordRetry("retry", attempts, err)
					tramp.run(attempt)
				},
				OnComplete: dst.Complete,
			})
		}
		tramp.run(attempt)

		return nil
	})
}

// RetryWhen hands the errors of src to notifier as an Observable. Every value
// emitted by the Observable notifier returns resubscribes to src; its error
// terminates the result with that error and its completion completes the
// result.
func RetryWhen[T, X any](src Observable[T], notifier func(errs Observable[error]) Observable[X]) Observable[T] {
	return Create(func(dst *Subscriber[T]) Teardown {
		var (
			tramp    trampoline
			attempts int
			attempt  func()
			errs     = NewSubject[error]()
		)

		var signals Observable[X]
		if perr := protect(func() { signals = notifier(errs.AsObservable()) }); perr != nil {
			dst.Error(perr)
			return nil
		}

		attempt = func() {
			if dst.Closed() {
				return
			}
			subscribeChild(dst.Subscription, src, ObserverFuncs[T]{
				OnNext:     dst.Next,
				OnError:    errs.Next,
				OnComplete: dst.Complete,
			})
		}

		observe(dst, signals, func(X) {
			attempts++
			recordRetry("retry_when", attempts, nil)
			tramp.run(attempt)
		}, nil)
		if dst.Closed() {
			return nil
		}
		tramp.run(attempt)

		return nil
	})
}

// RetryBackoff resubscribes to src after each error, waiting on sched for the
// delay given by the BackOff newBackOff returns. Each subscription gets its
// own BackOff, which is reset whenever src delivers a value. When the BackOff
// returns backoff.Stop the last error is forwarded. A nil sched means
// DefaultScheduler().
func RetryBackoff[T any](src Observable[T], newBackOff func() backoff.BackOff, sched Scheduler) Observable[T] {
	return Create(func(dst *Subscriber[T]) Teardown {
		var (
			mu       sync.Mutex
			attempts int
			attempt  func()
		)
		b := newBackOff()
		b.Reset()

		attempt = func() {
			if dst.Closed() {
				return
			}
			subscribeChild(dst.Subscription, src, ObserverFuncs[T]{
				OnNext: func(v T) {
					mu.Lock()
					b.Reset()
					mu.Unlock()
					dst.Next(v)
				},
				OnError: func(err error) {
					mu.Lock()
					wait := b.NextBackOff()
					mu.Unlock()
					if wait == backoff.Stop {
						dst.Error(err)
						return
					}
					attempts++
					recordRetry("retry_backoff", attempts, err)
					observe(dst, Timer(wait, sched), func(int) { attempt() }, func() {})
				},
				OnComplete: dst.Complete,
			})
		}
		attempt()

		return nil
	})
}
