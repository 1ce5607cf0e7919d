package rxfn

import (
	"sync"
	"sync/atomic"
	"time"
)

// Filter emits only the values for which pred returns true.
func Filter[T any](src Observable[T], pred Predicate[T]) Observable[T] {
	return Create(func(dst *Subscriber[T]) Teardown {
		observe(dst, src, func(v T) {
			if pred(v) {
				dst.Next(v)
			}
		}, nil)

		return nil
	})
}

// Take emits the first n values, then completes and unsubscribes from the
// source. Take with n <= 0 completes without subscribing to src.
func Take[T any](src Observable[T], n int) Observable[T] {
	if n <= 0 {
		return Empty[T]()
	}

	return Create(func(dst *Subscriber[T]) Teardown {
		seen := 0
		observe(dst, src, func(v T) {
			seen++
			if seen > n {
				return
			}
			dst.Next(v)
			if seen == n {
				dst.Complete()
			}
		}, nil)

		return nil
	})
}

// TakeLast emits the last n values once the source completes.
func TakeLast[T any](src Observable[T], n int) Observable[T] {
	if n <= 0 {
		return Empty[T]()
	}

	return Create(func(dst *Subscriber[T]) Teardown {
		ring := make([]T, 0, n)
		observe(dst, src, func(v T) {
			if len(ring) == n {
				copy(ring, ring[1:])
				ring = ring[:n-1]
			}
			ring = append(ring, v)
		}, func() {
			for _, v := range ring {
				dst.Next(v)
			}
			dst.Complete()
		})

		return nil
	})
}

// TakeWhile emits values while pred holds and completes on the first value
// for which it does not. That value is not emitted.
func TakeWhile[T any](src Observable[T], pred Predicate[T]) Observable[T] {
	return Create(func(dst *Subscriber[T]) Teardown {
		observe(dst, src, func(v T) {
			if !pred(v) {
				dst.Complete()
				return
			}
			dst.Next(v)
		}, nil)

		return nil
	})
}

// TakeUntil mirrors src until notifier emits its first value, then completes.
// Completion of notifier on its own has no effect.
func TakeUntil[T, N any](src Observable[T], notifier Observable[N]) Observable[T] {
	return Create(func(dst *Subscriber[T]) Teardown {
		observe(dst, notifier, func(N) {
			dst.Complete()
		}, func() {})
		if dst.Closed() {
			return nil
		}
		observe(dst, src, dst.Next, nil)

		return nil
	})
}

// Skip drops the first n values.
func Skip[T any](src Observable[T], n int) Observable[T] {
	return Create(func(dst *Subscriber[T]) Teardown {
		seen := 0
		observe(dst, src, func(v T) {
			if seen < n {
				seen++
				return
			}
			dst.Next(v)
		}, nil)

		return nil
	})
}

// SkipWhile drops values while pred holds, then mirrors src.
func SkipWhile[T any](src Observable[T], pred Predicate[T]) Observable[T] {
	return Create(func(dst *Subscriber[T]) Teardown {
		skipping := true
		observe(dst, src, func(v T) {
			if skipping && pred(v) {
				return
			}
			skipping = false
			dst.Next(v)
		}, nil)

		return nil
	})
}

// SkipUntil drops values until notifier emits its first value.
func SkipUntil[T, N any](src Observable[T], notifier Observable[N]) Observable[T] {
	return Create(func(dst *Subscriber[T]) Teardown {
		var open atomic.Bool

		var gate windowRef[N]
		gate.set(observe(dst, notifier, func(N) {
			open.Store(true)
			gate.release()
		}, func() {}))
		if dst.Closed() {
			return nil
		}

		observe(dst, src, func(v T) {
			if open.Load() {
				dst.Next(v)
			}
		}, nil)

		return nil
	})
}

// Partition splits src into the values satisfying pred and those that do
// not. Each half subscribes to src on its own.
func Partition[T any](src Observable[T], pred Predicate[T]) (matched, rest Observable[T]) {
	matched = Filter(src, pred)
	rest = Filter(src, func(v T) bool { return !pred(v) })

	return matched, rest
}

// First emits the first value and completes. An empty source errors with
// ErrEmpty.
func First[T any](src Observable[T]) Observable[T] {
	return Create(func(dst *Subscriber[T]) Teardown {
		observe(dst, src, func(v T) {
			dst.Next(v)
			dst.Complete()
		}, func() {
			dst.Error(ErrEmpty)
		})

		return nil
	})
}

// Last emits the final value on completion. An empty source errors with
// ErrEmpty.
func Last[T any](src Observable[T]) Observable[T] {
	return Create(func(dst *Subscriber[T]) Teardown {
		var (
			last T
			has  bool
		)
		observe(dst, src, func(v T) {
			last, has = v, true
		}, func() {
			if !has {
				dst.Error(ErrEmpty)
				return
			}
			dst.Next(last)
			dst.Complete()
		})

		return nil
	})
}

// ElementAt emits the value at index and completes. It errors with
// ErrOutOfRange when the source completes first or when index is negative.
func ElementAt[T any](src Observable[T], index int) Observable[T] {
	if index < 0 {
		return Throw[T](ErrOutOfRange)
	}

	return Create(func(dst *Subscriber[T]) Teardown {
		i := 0
		observe(dst, src, func(v T) {
			if i == index {
				dst.Next(v)
				dst.Complete()
			}
			i++
		}, func() {
			dst.Error(ErrOutOfRange)
		})

		return nil
	})
}

// Distinct drops values equal to any value seen before.
func Distinct[T comparable](src Observable[T]) Observable[T] {
	return DistinctBy(src, func(v T) T { return v })
}

// DistinctBy drops values whose key was seen before.
func DistinctBy[T any, K comparable](src Observable[T], key func(T) K) Observable[T] {
	return Create(func(dst *Subscriber[T]) Teardown {
		seen := make(map[K]struct{})
		observe(dst, src, func(v T) {
			k := key(v)
			if _, dup := seen[k]; dup {
				return
			}
			seen[k] = struct{}{}
			dst.Next(v)
		}, nil)

		return nil
	})
}

// DistinctUntilChanged drops values equal to their predecessor.
func DistinctUntilChanged[T comparable](src Observable[T]) Observable[T] {
	return DistinctUntilChangedFunc(src, func(a, b T) bool { return a == b })
}

// DistinctUntilChangedFunc drops values for which equal reports true against
// the last emitted value.
func DistinctUntilChangedFunc[T any](src Observable[T], equal func(prev, next T) bool) Observable[T] {
	return Create(func(dst *Subscriber[T]) Teardown {
		var (
			prev T
			has  bool
		)
		observe(dst, src, func(v T) {
			if has && equal(prev, v) {
				return
			}
			prev, has = v, true
			dst.Next(v)
		}, nil)

		return nil
	})
}

// Debounce emits a value only once the Observable returned by selector for it
// emitted without a newer source value arriving in between. On completion of
// the source the pending value, if any, is emitted before completing.
func Debounce[T, D any](src Observable[T], selector func(T) Observable[D]) Observable[T] {
	return Create(func(dst *Subscriber[T]) Teardown {
		// State is only touched from actions run by serial.
		var (
			serial  = serializer{fail: dst.Error}
			gen     int
			pending T
			has     bool
			window  *Subscriber[D]
		)

		closeWindow := func() {
			if window != nil {
				window.Unsubscribe()
				window = nil
			}
		}

		fire := func(g int) {
			serial.do(func() {
				if g != gen || !has {
					return
				}
				has = false
				closeWindow()
				dst.Next(pending)
			})
		}

		observe(dst, src, func(v T) {
			serial.do(func() {
				gen++
				g := gen
				pending, has = v, true
				closeWindow()

				w := observe(dst, selector(v), func(D) { fire(g) }, func() {})
				if g == gen && !w.Closed() {
					window = w
				}
			})
		}, func() {
			serial.do(func() {
				gen++
				closeWindow()
				if has {
					has = false
					dst.Next(pending)
				}
				dst.Complete()
			})
		})

		return nil
	})
}

// DebounceTime is Debounce with a fixed quiet period d measured on sched.
func DebounceTime[T any](src Observable[T], d time.Duration, sched Scheduler) Observable[T] {
	return Debounce(src, func(T) Observable[int] {
		return Timer(d, sched)
	})
}

// windowRef holds an inner subscription that its own callbacks may release,
// possibly from another goroutine and before observe has returned it.
type windowRef[T any] struct {
	mu       sync.Mutex
	sub      *Subscriber[T]
	released bool
}

func (w *windowRef[T]) set(s *Subscriber[T]) {
	w.mu.Lock()
	if w.released {
		w.mu.Unlock()
		s.Unsubscribe()
		return
	}
	w.sub = s
	w.mu.Unlock()
}

// release unsubscribes the held subscription, now or once it is set. It
// reports whether this call was the first release.
func (w *windowRef[T]) release() bool {
	w.mu.Lock()
	if w.released {
		w.mu.Unlock()
		return false
	}
	w.released = true
	s := w.sub
	w.sub = nil
	w.mu.Unlock()

	if s != nil {
		s.Unsubscribe()
	}
	return true
}

// Throttle emits a value, then ignores the source until the Observable
// returned by selector for that value emits or completes.
func Throttle[T, D any](src Observable[T], selector func(T) Observable[D]) Observable[T] {
	return Create(func(dst *Subscriber[T]) Teardown {
		var throttled atomic.Bool

		observe(dst, src, func(v T) {
			if !throttled.CompareAndSwap(false, true) {
				return
			}
			dst.Next(v)

			window := &windowRef[D]{}
			release := func() {
				if window.release() {
					throttled.Store(false)
				}
			}
			window.set(observe(dst, selector(v), func(D) { release() }, release))
		}, nil)

		return nil
	})
}

// ThrottleTime is Throttle with a fixed window d measured on sched.
func ThrottleTime[T any](src Observable[T], d time.Duration, sched Scheduler) Observable[T] {
	return Throttle(src, func(T) Observable[int] {
		return Timer(d, sched)
	})
}

// Audit starts a window on the first value after a quiet period and emits the
// most recent value when the window produced by selector emits. Completion of
// the source waits for the running window.
func Audit[T, D any](src Observable[T], selector func(T) Observable[D]) Observable[T] {
	return Create(func(dst *Subscriber[T]) Teardown {
		// State is only touched from actions run by serial.
		var (
			serial  = serializer{fail: dst.Error}
			latest  T
			running bool
			window  *Subscriber[D]
			gen     int
			done    bool
		)

		end := func(g int) {
			serial.do(func() {
				if g != gen || !running {
					return
				}
				running = false
				if window != nil {
					window.Unsubscribe()
					window = nil
				}
				dst.Next(latest)
				if done {
					dst.Complete()
				}
			})
		}

		observe(dst, src, func(v T) {
			serial.do(func() {
				latest = v
				if running {
					return
				}
				running = true
				gen++
				g := gen
				window = observe(dst, selector(v), func(D) { end(g) }, func() { end(g) })
			})
		}, func() {
			serial.do(func() {
				done = true
				if !running {
					dst.Complete()
				}
			})
		})

		return nil
	})
}

// AuditTime is Audit with a fixed window d measured on sched.
func AuditTime[T any](src Observable[T], d time.Duration, sched Scheduler) Observable[T] {
	return Audit(src, func(T) Observable[int] {
		return Timer(d, sched)
	})
}

// Sample emits the most recent source value, if not emitted yet, every time
// notifier emits. The result completes with the source.
func Sample[T, N any](src Observable[T], notifier Observable[N]) Observable[T] {
	return Create(func(dst *Subscriber[T]) Teardown {
		var (
			mu     sync.Mutex
			latest T
			has    bool
		)

		observe(dst, src, func(v T) {
			mu.Lock()
			latest, has = v, true
			mu.Unlock()
		}, nil)
		if dst.Closed() {
			return nil
		}

		observe(dst, notifier, func(N) {
			mu.Lock()
			v, ok := latest, has
			has = false
			mu.Unlock()

			if ok {
				dst.Next(v)
			}
		}, func() {})

		return nil
	})
}

// SampleTime is Sample driven by an Interval of period on sched.
func SampleTime[T any](src Observable[T], period time.Duration, sched Scheduler) Observable[T] {
	return Sample(src, Interval(period, sched))
}
