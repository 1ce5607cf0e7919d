package rxfn

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Tap calls the given callbacks, each optional, as side effects and mirrors
// src unchanged.
func Tap[T any](src Observable[T], onNext func(T), onError func(error), onComplete func()) Observable[T] {
	return Create(func(dst *Subscriber[T]) Teardown {
		subscribeChild(dst.Subscription, src, ObserverFuncs[T]{
			OnNext: func(v T) {
				if onNext != nil {
					onNext(v)
				}
				dst.Next(v)
			},
			OnError: func(err error) {
				if onError != nil {
					onError(err)
				}
				dst.Error(err)
			},
			OnComplete: func() {
				if onComplete != nil {
					onComplete()
				}
				dst.Complete()
			},
		})

		return nil
	})
}

// Finalize calls fn once the subscription to the result is torn down, whether
// by completion, error or unsubscription.
func Finalize[T any](src Observable[T], fn func()) Observable[T] {
	return Create(func(dst *Subscriber[T]) Teardown {
		observe(dst, src, dst.Next, nil)
		return fn
	})
}

// Delay shifts every value and the completion of src by d on sched. Errors
// are forwarded immediately.
func Delay[T any](src Observable[T], d time.Duration, sched Scheduler) Observable[T] {
	return Create(func(dst *Subscriber[T]) Teardown {
		var (
			mu      sync.Mutex
			pending int
			done    bool
		)

		observe(dst, src, func(v T) {
			mu.Lock()
			pending++
			mu.Unlock()

			observe(dst, Timer(d, sched), func(int) {
				dst.Next(v)

				mu.Lock()
				pending--
				finish := done && pending == 0
				mu.Unlock()
				if finish {
					dst.Complete()
				}
			}, func() {})
		}, func() {
			mu.Lock()
			done = true
			finish := pending == 0
			mu.Unlock()
			if finish {
				observe(dst, Timer(d, sched), func(int) { dst.Complete() }, func() {})
			}
		})

		return nil
	})
}

// DelayWhen delays each value until the Observable returned by selector for
// it emits. A value whose selector completes without emitting is dropped. The
// result completes once the source and every pending delay completed.
func DelayWhen[T, D any](src Observable[T], selector func(T) Observable[D]) Observable[T] {
	return MergeMap(src, func(v T) Observable[T] {
		return Map(Take(selector(v), 1), func(D) T { return v })
	})
}

// Timeout errors with ErrTimeout when src does not deliver a value within d of
// the subscription or of the previous value.
func Timeout[T any](src Observable[T], d time.Duration, sched Scheduler) Observable[T] {
	return Create(func(dst *Subscriber[T]) Teardown {
		var (
			mu    sync.Mutex
			gen   int
			timer *Subscriber[int]
		)

		arm := func() {
			mu.Lock()
			gen++
			g := gen
			prev := timer
			timer = nil
			mu.Unlock()

			if prev != nil {
				prev.Unsubscribe()
			}
			t := observe(dst, Timer(d, sched), func(int) {
				mu.Lock()
				stale := g != gen
				mu.Unlock()
				if !stale {
					dst.Error(fmt.Errorf("no value within %s: %w", d, ErrTimeout))
				}
			}, func() {})

			mu.Lock()
			if g == gen {
				timer = t
			}
			mu.Unlock()
		}

		arm()
		observe(dst, src, func(v T) {
			dst.Next(v)
			arm()
		}, nil)

		return nil
	})
}

// DefaultIfEmpty emits value when src completes without emitting.
func DefaultIfEmpty[T any](src Observable[T], value T) Observable[T] {
	return Create(func(dst *Subscriber[T]) Teardown {
		empty := true
		observe(dst, src, func(v T) {
			empty = false
			dst.Next(v)
		}, func() {
			if empty {
				dst.Next(value)
			}
			dst.Complete()
		})

		return nil
	})
}

// Every emits whether pred holds for every value of src. It emits false and
// completes on the first value failing pred.
func Every[T any](src Observable[T], pred Predicate[T]) Observable[bool] {
	return Create(func(dst *Subscriber[bool]) Teardown {
		observe(dst, src, func(v T) {
			if !pred(v) {
				dst.Next(false)
				dst.Complete()
			}
		}, func() {
			dst.Next(true)
			dst.Complete()
		})

		return nil
	})
}

// IsEmpty emits whether src completes without emitting.
func IsEmpty[T any](src Observable[T]) Observable[bool] {
	return Create(func(dst *Subscriber[bool]) Teardown {
		observe(dst, src, func(T) {
			dst.Next(false)
			dst.Complete()
		}, func() {
			dst.Next(true)
			dst.Complete()
		})

		return nil
	})
}

// Count emits the number of values of src once it completes.
func Count[T any](src Observable[T]) Observable[int] {
	return Reduce(src, 0, func(n int, _ T) int { return n + 1 })
}

// Collect subscribes to src and blocks until it terminates or ctx is done. It
// returns the values received so far along with the terminal error, or
// ctx.Err() after unsubscribing.
func Collect[T any](ctx context.Context, src Observable[T]) ([]T, error) {
	var (
		mu  sync.Mutex
		out []T
	)
	done := make(chan error, 1)

	sub := src.SubscribeFunc(func(v T) {
		mu.Lock()
		out = append(out, v)
		mu.Unlock()
	}, func(err error) {
		done <- err
	}, func() {
		done <- nil
	})
	defer sub.Unsubscribe()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	mu.Lock()
	defer mu.Unlock()

	return slices.Clone(out), err
}

// Wait blocks until src terminates or ctx is done, discarding values.
func Wait[T any](ctx context.Context, src Observable[T]) error {
	done := make(chan error, 1)
	sub := src.SubscribeFunc(nil, func(err error) {
		done <- err
	}, func() {
		done <- nil
	})
	defer sub.Unsubscribe()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
