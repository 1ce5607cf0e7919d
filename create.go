package rxfn

import (
	"context"
	"iter"
	"sync"
	"time"

	"github.com/KasperOmsK/rxfn/internal/iterx"
)

// From returns an Observable emitting the values of seq synchronously, then
// completing. The sequence is iterated again for every subscription and
// iteration stops as soon as the subscriber is closed.
func From[T any](seq iter.Seq[T]) Observable[T] {
	return Create(func(s *Subscriber[T]) Teardown {
		for v := range seq {
			if s.Closed() {
				break
			}
			s.Next(v)
		}
		s.Complete()

		return nil
	})
}

// FromSlice emits the elements of values in order, then completes.
func FromSlice[T any](values []T) Observable[T] {
	return From(iterx.FromSlice(values))
}

// Of emits its arguments in order, then completes.
func Of[T any](values ...T) Observable[T] {
	return FromSlice(values)
}

// Range emits count consecutive integers starting at start, then completes.
func Range(start, count int) Observable[int] {
	return From(iterx.Count(start, count))
}

// FromChan emits the values received from ch and completes when ch is
// closed. Reading happens on a dedicated goroutine which stops on
// unsubscribe; a value received concurrently with the unsubscription is
// dropped.
func FromChan[T any](ch <-chan T) Observable[T] {
	return Create(func(s *Subscriber[T]) Teardown {
		done := make(chan struct{})
		go func() {
			for v := range iterx.FromChan(ch, done) {
				s.Next(v)
			}
			select {
			case <-done:
			default:
				s.Complete()
			}
		}()

		return func() { close(done) }
	})
}

// FromFunc bridges an asynchronous computation: fn runs on its own goroutine
// for every subscription; its result is emitted followed by completion, or
// its error is delivered. ctx is cancelled when the subscription is torn down.
func FromFunc[T any](fn func(ctx context.Context) (T, error)) Observable[T] {
	return Create(func(s *Subscriber[T]) Teardown {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			var (
				v   T
				err error
			)
			if perr := protect(func() { v, err = fn(ctx) }); perr != nil {
				err = perr
			}
			if err != nil {
				s.Error(err)
				return
			}
			s.Next(v)
			s.Complete()
		}()

		return Teardown(cancel)
	})
}

// BindCallback turns a callback-style API into a function returning an
// Observable. fn is invoked on each subscription with arg; the first value
// passed to the callback is emitted, then the Observable completes.
// Subsequent callback invocations are ignored.
func BindCallback[A, T any](fn func(arg A, callback func(T))) func(A) Observable[T] {
	return func(arg A) Observable[T] {
		return Create(func(s *Subscriber[T]) Teardown {
			var once sync.Once
			fn(arg, func(v T) {
				once.Do(func() {
					s.Next(v)
					s.Complete()
				})
			})

			return nil
		})
	}
}

// BindErrCallback is BindCallback for callbacks that report failure through
// a trailing error argument.
func BindErrCallback[A, T any](fn func(arg A, callback func(T, error))) func(A) Observable[T] {
	return func(arg A) Observable[T] {
		return Create(func(s *Subscriber[T]) Teardown {
			var once sync.Once
			fn(arg, func(v T, err error) {
				once.Do(func() {
					if err != nil {
						s.Error(err)
						return
					}
					s.Next(v)
					s.Complete()
				})
			})

			return nil
		})
	}
}

// Timer emits 0 after delay on sched, then completes. A nil sched means
// DefaultScheduler().
func Timer(delay time.Duration, sched Scheduler) Observable[int] {
	return Create(func(s *Subscriber[int]) Teardown {
		h := resolveScheduler(sched).Schedule(delay, func() {
			s.Next(0)
			s.Complete()
		})

		return h.Unsubscribe
	})
}

// TimerEvery emits 0 after delay and then increasing integers every period,
// forever. TimerEvery panics if period is not positive.
func TimerEvery(delay, period time.Duration, sched Scheduler) Observable[int] {
	if period <= 0 {
		panic("rxfn.TimerEvery: period must be positive")
	}

	return Create(func(s *Subscriber[int]) Teardown {
		i := 0
		h := schedulePeriodic(resolveScheduler(sched), delay, period, func() {
			s.Next(i)
			i++
		})

		return h.Unsubscribe
	})
}

// Interval emits increasing integers starting at 0, one every period,
// forever. Interval panics if period is not positive.
func Interval(period time.Duration, sched Scheduler) Observable[int] {
	if period <= 0 {
		panic("rxfn.Interval: period must be positive")
	}

	return TimerEvery(period, period, sched)
}

// Empty completes immediately.
func Empty[T any]() Observable[T] {
	return Create(func(s *Subscriber[T]) Teardown {
		s.Complete()
		return nil
	})
}

// Never emits nothing and never terminates.
func Never[T any]() Observable[T] {
	return Create(func(*Subscriber[T]) Teardown {
		return nil
	})
}

// Throw delivers err immediately.
func Throw[T any](err error) Observable[T] {
	return Create(func(s *Subscriber[T]) Teardown {
		s.Error(err)
		return nil
	})
}

// Defer calls factory on every subscription and subscribes to the result.
func Defer[T any](factory func() Observable[T]) Observable[T] {
	return Create(func(s *Subscriber[T]) Teardown {
		subscribeChild(s.Subscription, factory(), Observer[T](s))
		return nil
	})
}
