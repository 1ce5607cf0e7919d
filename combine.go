package rxfn

import (
	"slices"
	"sync"
	"sync/atomic"
)

func identity[T any](v T) T { return v }

// Merge subscribes to every source at once and interleaves their values. It
// completes once all sources completed and errors on the first error, tearing
// every other source down.
func Merge[T any](sources ...Observable[T]) Observable[T] {
	return MergeAll(FromSlice(sources), 0)
}

// MergeAll flattens an Observable of Observables, keeping at most limit inner
// subscriptions active. Inner Observables beyond limit wait in arrival order.
// A limit <= 0 means unbounded.
func MergeAll[T any](src Observable[Observable[T]], limit int) Observable[T] {
	return mergeMap[Observable[T], T](src, identity[Observable[T]], limit)
}

// Concat subscribes to the sources one after another, each after the
// previous one completed. A source that never completes blocks the rest.
func Concat[T any](sources ...Observable[T]) Observable[T] {
	return ConcatAll(FromSlice(sources))
}

// ConcatAll is MergeAll with a limit of 1.
func ConcatAll[T any](src Observable[Observable[T]]) Observable[T] {
	return MergeAll(src, 1)
}

// SwitchAll flattens an Observable of Observables, following only the most
// recent inner Observable.
func SwitchAll[T any](src Observable[Observable[T]]) Observable[T] {
	return SwitchMap[Observable[T], T](src, identity[Observable[T]])
}

// StartWith emits values before mirroring src.
func StartWith[T any](src Observable[T], values ...T) Observable[T] {
	return Concat(FromSlice(values), src)
}

// CombineLatest emits a snapshot of the latest value of every source each time
// any source emits, once all of them emitted at least once. It completes when
// all sources completed, or as soon as a source completes without ever
// emitting. Each emitted slice is a fresh copy.
func CombineLatest[T any](sources ...Observable[T]) Observable[[]T] {
	n := len(sources)
	if n == 0 {
		return Empty[[]T]()
	}

	return Create(func(dst *Subscriber[[]T]) Teardown {
		var (
			mu        sync.Mutex
			values    = make([]T, n)
			has       = make([]bool, n)
			ready     int
			completed int
		)

		for i, src := range sources {
			if dst.Closed() {
				break
			}
			observe(dst, src, func(v T) {
				mu.Lock()
				if !has[i] {
					has[i] = true
					ready++
				}
				values[i] = v
				var out []T
				if ready == n {
					out = slices.Clone(values)
				}
				mu.Unlock()

				if out != nil {
					dst.Next(out)
				}
			}, func() {
				mu.Lock()
				completed++
				done := completed == n || !has[i]
				mu.Unlock()

				if done {
					dst.Complete()
				}
			})
		}

		return nil
	})
}

// CombineAll waits for src to complete, then combines the latest values of
// every Observable it emitted, like CombineLatest.
func CombineAll[T any](src Observable[Observable[T]]) Observable[[]T] {
	return MergeMap(ToSlice(src), func(sources []Observable[T]) Observable[[]T] {
		return CombineLatest(sources...)
	})
}

// CombineLatestWith is CombineLatest for two sources of different types,
// combined by project.
func CombineLatestWith[A, B, R any](a Observable[A], b Observable[B], project func(A, B) R) Observable[R] {
	return Map(CombineLatest(boxed(a), boxed(b)), func(vs []any) R {
		return project(unbox[A](vs[0]), unbox[B](vs[1]))
	})
}

// Zip pairs the n-th values of every source. It completes once a completed
// source has no buffered value left.
func Zip[T any](sources ...Observable[T]) Observable[[]T] {
	n := len(sources)
	if n == 0 {
		return Empty[[]T]()
	}

	return Create(func(dst *Subscriber[[]T]) Teardown {
		var (
			mu        sync.Mutex
			buffers   = make([][]T, n)
			completed = make([]bool, n)
		)

		// exhausted reports whether no further tuple can be formed; callers
		// hold mu.
		exhausted := func() bool {
			for i := range n {
				if completed[i] && len(buffers[i]) == 0 {
					return true
				}
			}

			return false
		}

		for i, src := range sources {
			if dst.Closed() {
				break
			}
			observe(dst, src, func(v T) {
				mu.Lock()
				buffers[i] = append(buffers[i], v)
				var out []T
				if !slices.ContainsFunc(buffers, func(b []T) bool { return len(b) == 0 }) {
					out = make([]T, n)
					for j := range buffers {
						out[j] = buffers[j][0]
						buffers[j] = buffers[j][1:]
					}
				}
				finish := exhausted()
				mu.Unlock()

				if out != nil {
					dst.Next(out)
				}
				if finish {
					dst.Complete()
				}
			}, func() {
				mu.Lock()
				completed[i] = true
				finish := exhausted()
				mu.Unlock()

				if finish {
					dst.Complete()
				}
			})
		}

		return nil
	})
}

// ZipWith is Zip for two sources of different types, combined by project.
func ZipWith[A, B, R any](a Observable[A], b Observable[B], project func(A, B) R) Observable[R] {
	return Map(Zip(boxed(a), boxed(b)), func(vs []any) R {
		return project(unbox[A](vs[0]), unbox[B](vs[1]))
	})
}

// Race mirrors the first source to deliver any notification and unsubscribes
// from the others.
func Race[T any](sources ...Observable[T]) Observable[T] {
	n := len(sources)
	if n == 0 {
		return Empty[T]()
	}

	return Create(func(dst *Subscriber[T]) Teardown {
		var (
			mu     sync.Mutex
			subs   = make([]*Subscriber[T], n)
			winner atomic.Int64
		)
		winner.Store(-1)

		claim := func(i int) bool {
			if winner.CompareAndSwap(-1, int64(i)) {
				mu.Lock()
				losers := slices.Clone(subs)
				mu.Unlock()
				for j, s := range losers {
					if j != i && s != nil {
						s.Unsubscribe()
					}
				}

				return true
			}

			return winner.Load() == int64(i)
		}

		for i, src := range sources {
			if winner.Load() >= 0 || dst.Closed() {
				break
			}
			s := subscribeChild(dst.Subscription, src, ObserverFuncs[T]{
				OnNext: func(v T) {
					if claim(i) {
						dst.Next(v)
					}
				},
				OnError: func(err error) {
					if claim(i) {
						dst.Error(err)
					}
				},
				OnComplete: func() {
					if claim(i) {
						dst.Complete()
					}
				},
			})

			mu.Lock()
			subs[i] = s
			mu.Unlock()
			if w := winner.Load(); w >= 0 && w != int64(i) {
				s.Unsubscribe()
			}
		}

		return nil
	})
}

// WithLatestFrom combines each value of src with the latest value of other.
// Values of src are dropped until other emitted. Completion of other is
// ignored; its error terminates the result.
func WithLatestFrom[T, S, R any](src Observable[T], other Observable[S], project func(T, S) R) Observable[R] {
	return WithLatestFromAll(src, func(v T, latest []S) R {
		return project(v, latest[0])
	}, other)
}

// WithLatestFromAll combines each value of src with the latest value of every
// one of others, in argument order. Values of src are dropped until each of
// others emitted at least once. The slice passed to project is a fresh copy.
func WithLatestFromAll[T, S, R any](src Observable[T], project func(T, []S) R, others ...Observable[S]) Observable[R] {
	n := len(others)

	return Create(func(dst *Subscriber[R]) Teardown {
		var (
			mu     sync.Mutex
			latest = make([]S, n)
			has    = make([]bool, n)
			ready  int
		)

		for i, other := range others {
			if dst.Closed() {
				return nil
			}
			observe(dst, other, func(v S) {
				mu.Lock()
				if !has[i] {
					has[i] = true
					ready++
				}
				latest[i] = v
				mu.Unlock()
			}, func() {})
		}
		if dst.Closed() {
			return nil
		}

		observe(dst, src, func(v T) {
			mu.Lock()
			var snapshot []S
			ok := ready == n
			if ok {
				snapshot = slices.Clone(latest)
			}
			mu.Unlock()

			if ok {
				dst.Next(project(v, snapshot))
			}
		}, nil)

		return nil
	})
}

// ForkJoin waits for every source to complete and emits their last values
// once. A source completing without a value completes the result without
// emission.
func ForkJoin[T any](sources ...Observable[T]) Observable[[]T] {
	n := len(sources)
	if n == 0 {
		return Empty[[]T]()
	}

	return Create(func(dst *Subscriber[[]T]) Teardown {
		var (
			mu        sync.Mutex
			values    = make([]T, n)
			has       = make([]bool, n)
			completed int
		)

		for i, src := range sources {
			if dst.Closed() {
				break
			}
			observe(dst, src, func(v T) {
				mu.Lock()
				values[i], has[i] = v, true
				mu.Unlock()
			}, func() {
				mu.Lock()
				if !has[i] {
					mu.Unlock()
					dst.Complete()
					return
				}
				completed++
				var out []T
				if completed == n {
					out = slices.Clone(values)
				}
				mu.Unlock()

				if out != nil {
					dst.Next(out)
					dst.Complete()
				}
			})
		}

		return nil
	})
}

func boxed[T any](o Observable[T]) Observable[any] {
	return Map(o, func(v T) any { return v })
}

// unbox tolerates nil interface values for interface-typed T.
func unbox[T any](v any) T {
	t, _ := v.(T)
	return t
}
