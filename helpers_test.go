package rxfn_test

import (
	"context"
	"errors"
	"iter"
	"sync"
	"testing"
	"time"

	"github.com/KasperOmsK/rxfn"
)

var errBoom = errors.New("boom")

// epoch is the start of every virtual clock used in tests.
var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func seqOf[T any](values ...T) iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, v := range values {
			if !yield(v) {
				return
			}
		}
	}
}

// recorder is an Observer keeping everything it receives.
type recorder[T any] struct {
	mu        sync.Mutex
	values    []T
	err       error
	completed bool
	terminals int
}

func (r *recorder[T]) Next(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *recorder[T]) Error(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
	r.terminals++
}

func (r *recorder[T]) Complete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = true
	r.terminals++
}

func (r *recorder[T]) Values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, len(r.values))
	copy(out, r.values)

	return out
}

func (r *recorder[T]) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.err
}

func (r *recorder[T]) Completed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.completed
}

func (r *recorder[T]) Terminals() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.terminals
}

func record[T any](o rxfn.Observable[T]) (*recorder[T], *rxfn.Subscription) {
	r := &recorder[T]{}
	sub := o.Subscribe(r)

	return r, sub
}

// collect subscribes to a synchronous Observable and returns what it emitted.
func collect[T any](o rxfn.Observable[T]) ([]T, error) {
	r, _ := record(o)
	return r.Values(), r.Err()
}

// stamped is a value together with the virtual time it was received at.
type stamped[T any] struct {
	At    time.Duration
	Value T
}

func recordTimed[T any](sched *rxfn.VirtualScheduler, o rxfn.Observable[T]) (*recorder[stamped[T]], *rxfn.Subscription) {
	r := &recorder[stamped[T]]{}
	start := sched.Now()
	sub := o.SubscribeFunc(func(v T) {
		r.Next(stamped[T]{At: sched.Now().Sub(start), Value: v})
	}, r.Error, r.Complete)

	return r, sub
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// countingMetrics is a MetricsCollector counting retries and connects.
type countingMetrics struct {
	mu       sync.Mutex
	connects int
	byOp     map[string]int
}

func (c *countingMetrics) RecordSubscribe()          {}
func (c *countingMetrics) RecordUnsubscribe()        {}
func (c *countingMetrics) RecordNotification(string) {}
func (c *countingMetrics) RecordUnhandledError()     {}

func (c *countingMetrics) RecordConnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connects++
}

func (c *countingMetrics) RecordRetry(operator string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.byOp == nil {
		c.byOp = map[string]int{}
	}
	c.byOp[operator]++
}

func (c *countingMetrics) retries(operator string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.byOp[operator]
}

func (c *countingMetrics) connectCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.connects
}

var _ rxfn.MetricsCollector = (*countingMetrics)(nil)

// feed sends 0..n-1 to the returned channel from its own goroutine, then
// closes it.
func feed(n int) <-chan int {
	ch := make(chan int)
	go func() {
		defer close(ch)
		for i := range n {
			ch <- i
		}
	}()

	return ch
}

// soon emits one value from another goroutine, then completes.
func soon[T any](T) rxfn.Observable[struct{}] {
	return rxfn.FromFunc(func(context.Context) (struct{}, error) {
		return struct{}{}, nil
	})
}

// immediately emits one value synchronously, then completes.
func immediately[T any](T) rxfn.Observable[struct{}] {
	return rxfn.Of(struct{}{})
}

func testContext(t testing.TB) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	return ctx
}
