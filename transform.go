package rxfn

import (
	"sync"
	"time"
)

type (

	// MapFunc is a pure mapping function used by Map that transforms a value
	// of type In into a value of type Out.
	MapFunc[In, Out any] func(in In) Out

	// TryMapFunc is a mapping function that may return an error.
	//
	// A non-nil error terminates the resulting Observable with that error.
	TryMapFunc[In, Out any] func(in In) (Out, error)

	// Predicate represents a filtering function that returns true when the
	// provided value should be included in the output stream.
	Predicate[T any] func(item T) bool

	// AccumulatorFunc folds a value into an accumulator.
	AccumulatorFunc[Acc, T any] func(acc Acc, item T) Acc

	// ProjectFunc maps a value to an inner Observable, for the flattening
	// operators.
	ProjectFunc[In, Out any] func(in In) Observable[Out]
)

// Map transforms each value using fn.
//
// Errors and completion of the source are forwarded unchanged. A panic in fn
// terminates the result with a *PanicError.
func Map[In, Out any](src Observable[In], fn MapFunc[In, Out]) Observable[Out] {
	return Create(func(dst *Subscriber[Out]) Teardown {
		observe(dst, src, func(v In) {
			dst.Next(fn(v))
		}, nil)

		return nil
	})
}

// TryMap transforms each value using fn. The first error returned by fn
// terminates the result with that error and tears the source down.
func TryMap[In, Out any](src Observable[In], fn TryMapFunc[In, Out]) Observable[Out] {
	return Create(func(dst *Subscriber[Out]) Teardown {
		observe(dst, src, func(v In) {
			out, err := fn(v)
			if err != nil {
				dst.Error(err)
				return
			}
			dst.Next(out)
		}, nil)

		return nil
	})
}

// Scan applies fn to each value and emits every intermediate accumulator,
// starting from seed.
func Scan[T, Acc any](src Observable[T], seed Acc, fn AccumulatorFunc[Acc, T]) Observable[Acc] {
	return Create(func(dst *Subscriber[Acc]) Teardown {
		acc := seed
		observe(dst, src, func(v T) {
			acc = fn(acc, v)
			dst.Next(acc)
		}, nil)

		return nil
	})
}

// Reduce is Scan that emits only the final accumulator, on completion. An
// empty source emits seed.
func Reduce[T, Acc any](src Observable[T], seed Acc, fn AccumulatorFunc[Acc, T]) Observable[Acc] {
	return Create(func(dst *Subscriber[Acc]) Teardown {
		acc := seed
		observe(dst, src, func(v T) {
			acc = fn(acc, v)
		}, func() {
			dst.Next(acc)
			dst.Complete()
		})

		return nil
	})
}

// Pairwise emits each value together with its predecessor, starting with
// the second value.
func Pairwise[T any](src Observable[T]) Observable[[2]T] {
	return Create(func(dst *Subscriber[[2]T]) Teardown {
		var (
			prev T
			has  bool
		)
		observe(dst, src, func(v T) {
			if has {
				dst.Next([2]T{prev, v})
			}
			prev, has = v, true
		}, nil)

		return nil
	})
}

// ToSlice emits every value as one slice when the source completes. An empty
// source emits an empty, non-nil slice.
func ToSlice[T any](src Observable[T]) Observable[[]T] {
	return Create(func(dst *Subscriber[[]T]) Teardown {
		out := make([]T, 0)
		observe(dst, src, func(v T) {
			out = append(out, v)
		}, func() {
			dst.Next(out)
			dst.Complete()
		})

		return nil
	})
}

// BufferCount groups values into slices of the given size. The final slice
// may be smaller and is emitted when the source completes.
//
// BufferCount panics if size is not positive.
func BufferCount[T any](src Observable[T], size int) Observable[[]T] {
	if size <= 0 {
		panic("rxfn.BufferCount: size must be positive")
	}

	return Create(func(dst *Subscriber[[]T]) Teardown {
		// Each emitted slice owns its backing array; observers may keep them.
		accum := make([]T, 0, size)
		observe(dst, src, func(v T) {
			accum = append(accum, v)
			if len(accum) == size {
				full := accum
				accum = make([]T, 0, size)
				dst.Next(full)
			}
		}, func() {
			if len(accum) > 0 {
				dst.Next(accum)
			}
			dst.Complete()
		})

		return nil
	})
}

// Buffer collects values and emits them as a slice every time notifier
// emits, possibly empty. Values still buffered when the source completes are
// emitted before completion.
func Buffer[T, N any](src Observable[T], notifier Observable[N]) Observable[[]T] {
	return Create(func(dst *Subscriber[[]T]) Teardown {
		var (
			serial = serializer{fail: dst.Error}
			accum  = make([]T, 0)
		)

		observe(dst, notifier, func(N) {
			serial.do(func() {
				out := accum
				accum = make([]T, 0)
				dst.Next(out)
			})
		}, func() {})
		if dst.Closed() {
			return nil
		}
		observe(dst, src, func(v T) {
			serial.do(func() { accum = append(accum, v) })
		}, func() {
			serial.do(func() {
				if len(accum) > 0 {
					dst.Next(accum)
					accum = nil
				}
				dst.Complete()
			})
		})

		return nil
	})
}

// BufferTime emits the values collected during each period, possibly none.
// A nil sched means DefaultScheduler().
func BufferTime[T any](src Observable[T], period time.Duration, sched Scheduler) Observable[[]T] {
	return Buffer(src, Interval(period, sched))
}

// Group is one keyed sub-stream produced by GroupBy.
type Group[K comparable, T any] struct {
	Key K
	Observable[T]
}

// GroupBy splits the source into one Group per key, emitted when its first
// value arrives. Values reach a group's subscribers only while they are
// subscribed; subscribe from inside the outer observer to see every value.
// Source completion or error is propagated to every group.
func GroupBy[T any, K comparable](src Observable[T], keyFunc func(T) K) Observable[Group[K, T]] {
	return Create(func(dst *Subscriber[Group[K, T]]) Teardown {
		groups := make(map[K]*Subject[T])
		var order []*Subject[T]

		subscribeChild(dst.Subscription, src, ObserverFuncs[T]{
			OnNext: func(v T) {
				k := keyFunc(v)
				g, ok := groups[k]
				if !ok {
					g = NewSubject[T]()
					groups[k] = g
					order = append(order, g)
					dst.Next(Group[K, T]{Key: k, Observable: g.AsObservable()})
				}
				g.Next(v)
			},
			OnError: func(err error) {
				for _, g := range order {
					g.Error(err)
				}
				dst.Error(err)
			},
			OnComplete: func() {
				for _, g := range order {
					g.Complete()
				}
				dst.Complete()
			},
		})

		return nil
	})
}

// MergeMap projects each value to an inner Observable and merges all inner
// Observables concurrently. The result completes once the source and every
// inner Observable completed.
func MergeMap[In, Out any](src Observable[In], project ProjectFunc[In, Out]) Observable[Out] {
	return mergeMap(src, project, 0)
}

// MergeMapLimit is MergeMap with at most limit inner subscriptions active at
// once; further source values wait in a queue. A limit <= 0 means unbounded.
func MergeMapLimit[In, Out any](src Observable[In], project ProjectFunc[In, Out], limit int) Observable[Out] {
	return mergeMap(src, project, limit)
}

// ConcatMap is MergeMap subscribing to one inner Observable at a time, in
// source order.
func ConcatMap[In, Out any](src Observable[In], project ProjectFunc[In, Out]) Observable[Out] {
	return mergeMap(src, project, 1)
}

func mergeMap[In, Out any](src Observable[In], project ProjectFunc[In, Out], limit int) Observable[Out] {
	return Create(func(dst *Subscriber[Out]) Teardown {
		var (
			mu        sync.Mutex
			active    int
			queued    []In
			outerDone bool
			runInner  func(v In)
		)

		// runInner also runs from a completing inner, outside any source
		// delivery, so project panics are routed to dst here.
		runInner = func(v In) {
			var inner Observable[Out]
			if err := protect(func() { inner = project(v) }); err != nil {
				dst.Error(err)
				return
			}
			observe(dst, inner, dst.Next, func() {
				mu.Lock()
				if len(queued) > 0 {
					next := queued[0]
					queued = queued[1:]
					mu.Unlock()
					runInner(next)
					return
				}
				active--
				done := outerDone && active == 0
				mu.Unlock()
				if done {
					dst.Complete()
				}
			})
		}

		observe(dst, src, func(v In) {
			mu.Lock()
			if limit > 0 && active >= limit {
				queued = append(queued, v)
				mu.Unlock()
				return
			}
			active++
			mu.Unlock()
			runInner(v)
		}, func() {
			mu.Lock()
			outerDone = true
			done := active == 0 && len(queued) == 0
			mu.Unlock()
			if done {
				dst.Complete()
			}
		})

		return nil
	})
}

// SwitchMap projects each value to an inner Observable, unsubscribing from
// the previous inner Observable first. The result completes once the source
// and the current inner Observable completed.
func SwitchMap[In, Out any](src Observable[In], project ProjectFunc[In, Out]) Observable[Out] {
	return Create(func(dst *Subscriber[Out]) Teardown {
		var (
			mu          sync.Mutex
			gen         int
			current     *Subscriber[Out]
			innerActive bool
			outerDone   bool
		)

		observe(dst, src, func(v In) {
			mu.Lock()
			gen++
			mine := gen
			prev := current
			current = nil
			innerActive = true
			mu.Unlock()

			if prev != nil {
				prev.Unsubscribe()
			}

			inner := observe(dst, project(v), dst.Next, func() {
				mu.Lock()
				if mine != gen {
					mu.Unlock()
					return
				}
				innerActive = false
				done := outerDone
				mu.Unlock()
				if done {
					dst.Complete()
				}
			})

			mu.Lock()
			if mine == gen {
				current = inner
			}
			mu.Unlock()
		}, func() {
			mu.Lock()
			outerDone = true
			done := !innerActive
			mu.Unlock()
			if done {
				dst.Complete()
			}
		})

		return nil
	})
}

// ExhaustMap projects a value to an inner Observable only when no inner
// Observable is active; source values arriving meanwhile are dropped.
func ExhaustMap[In, Out any](src Observable[In], project ProjectFunc[In, Out]) Observable[Out] {
	return Create(func(dst *Subscriber[Out]) Teardown {
		var (
			mu          sync.Mutex
			innerActive bool
			outerDone   bool
		)

		observe(dst, src, func(v In) {
			mu.Lock()
			if innerActive {
				mu.Unlock()
				return
			}
			innerActive = true
			mu.Unlock()

			observe(dst, project(v), dst.Next, func() {
				mu.Lock()
				innerActive = false
				done := outerDone
				mu.Unlock()
				if done {
					dst.Complete()
				}
			})
		}, func() {
			mu.Lock()
			outerDone = true
			done := !innerActive
			mu.Unlock()
			if done {
				dst.Complete()
			}
		})

		return nil
	})
}

// Materialize turns every notification of the source into a value, then
// completes after the terminal one.
func Materialize[T any](src Observable[T]) Observable[Notification[T]] {
	return Create(func(dst *Subscriber[Notification[T]]) Teardown {
		subscribeChild(dst.Subscription, src, ObserverFuncs[T]{
			OnNext: func(v T) {
				dst.Next(nextNotification(v))
			},
			OnError: func(err error) {
				dst.Next(terminalNotification[T](err))
				dst.Complete()
			},
			OnComplete: func() {
				dst.Next(terminalNotification[T](nil))
				dst.Complete()
			},
		})

		return nil
	})
}

// Dematerialize is the inverse of Materialize.
func Dematerialize[T any](src Observable[Notification[T]]) Observable[T] {
	return Create(func(dst *Subscriber[T]) Teardown {
		observe(dst, src, func(n Notification[T]) {
			n.Accept(dst)
		}, nil)

		return nil
	})
}

// Expand emits every source value and recursively projects each emitted
// value, including those produced by projections, to an inner Observable
// whose values are expanded in turn. The result completes once the source and
// every inner Observable completed.
func Expand[T any](src Observable[T], project ProjectFunc[T, T]) Observable[T] {
	return Create(func(dst *Subscriber[T]) Teardown {
		var (
			mu     sync.Mutex
			active = 1
			expand func(v T)
		)

		finish := func() {
			mu.Lock()
			active--
			done := active == 0
			mu.Unlock()

			if done {
				dst.Complete()
			}
		}

		expand = func(v T) {
			dst.Next(v)
			if dst.Closed() {
				return
			}

			var inner Observable[T]
			if err := protect(func() { inner = project(v) }); err != nil {
				dst.Error(err)
				return
			}
			mu.Lock()
			active++
			mu.Unlock()
			observe(dst, inner, expand, finish)
		}

		observe(dst, src, expand, finish)

		return nil
	})
}

// Window splits the source into consecutive windows, emitted as Observables.
// The first window opens on subscription and every emission of boundary
// closes the current window and opens the next one. Like GroupBy, a window
// delivers values only to observers subscribed at the time, so subscribe from
// inside the outer observer. Completion of either the source or boundary
// completes the current window and the result.
func Window[T, B any](src Observable[T], boundary Observable[B]) Observable[Observable[T]] {
	return Create(func(dst *Subscriber[Observable[T]]) Teardown {
		var (
			serial  = serializer{fail: dst.Error}
			current = NewSubject[T]()
		)

		stop := func(err error) {
			serial.do(func() {
				if err != nil {
					current.Error(err)
					dst.Error(err)
					return
				}
				current.Complete()
				dst.Complete()
			})
		}
		complete := func() { stop(nil) }

		dst.Next(current.AsObservable())

		subscribeChild(dst.Subscription, boundary, ObserverFuncs[B]{
			OnNext: func(B) {
				serial.do(func() {
					current.Complete()
					current = NewSubject[T]()
					dst.Next(current.AsObservable())
				})
			},
			OnError:    stop,
			OnComplete: complete,
		})
		if dst.Closed() {
			return nil
		}
		subscribeChild(dst.Subscription, src, ObserverFuncs[T]{
			OnNext: func(v T) {
				serial.do(func() { current.Next(v) })
			},
			OnError:    stop,
			OnComplete: complete,
		})

		return nil
	})
}

// WindowCount splits the source into windows of size values each. A new window
// opens as soon as the previous one is full, so the last window may be empty.
//
// WindowCount panics if size is not positive.
func WindowCount[T any](src Observable[T], size int) Observable[Observable[T]] {
	if size <= 0 {
		panic("rxfn.WindowCount: size must be positive")
	}

	return Create(func(dst *Subscriber[Observable[T]]) Teardown {
		current := NewSubject[T]()
		count := 0
		dst.Next(current.AsObservable())

		subscribeChild(dst.Subscription, src, ObserverFuncs[T]{
			OnNext: func(v T) {
				current.Next(v)
				count++
				if count < size {
					return
				}
				current.Complete()
				current = NewSubject[T]()
				count = 0
				dst.Next(current.AsObservable())
			},
			OnError: func(err error) {
				current.Error(err)
				dst.Error(err)
			},
			OnComplete: func() {
				current.Complete()
				dst.Complete()
			},
		})

		return nil
	})
}

// WindowTime opens a new window every period. A nil sched means
// DefaultScheduler().
func WindowTime[T any](src Observable[T], period time.Duration, sched Scheduler) Observable[Observable[T]] {
	return Window(src, Interval(period, sched))
}
