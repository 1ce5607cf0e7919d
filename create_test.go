package rxfn_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/KasperOmsK/rxfn"
)

func TestRange(t *testing.T) {
	vals, err := collect(rxfn.Range(3, 4))
	require.NoError(t, err)
	require.Equal(t, []int{3, 4, 5, 6}, vals)

	r, _ := record(rxfn.Range(0, 0))
	require.Empty(t, r.Values())
	require.True(t, r.Completed())
}

func TestFromSlice(t *testing.T) {
	vals, err := collect(rxfn.FromSlice([]string{"a", "b"}))

	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, vals)
}

func TestEmptyNeverThrow(t *testing.T) {
	r, _ := record(rxfn.Empty[int]())
	require.True(t, r.Completed())
	require.Empty(t, r.Values())

	r, sub := record(rxfn.Never[int]())
	require.Zero(t, r.Terminals())
	require.False(t, sub.Closed())
	sub.Unsubscribe()

	_, err := collect(rxfn.Throw[int](errBoom))
	require.ErrorIs(t, err, errBoom)
}

func TestDefer_CallsFactoryPerSubscription(t *testing.T) {
	calls := 0
	o := rxfn.Defer(func() rxfn.Observable[int] {
		calls++
		return rxfn.Of(calls)
	})
	require.Zero(t, calls)

	first, _ := collect(o)
	second, _ := collect(o)

	require.Equal(t, []int{1}, first)
	require.Equal(t, []int{2}, second)
}

func TestFromChan(t *testing.T) {
	ch := make(chan int, 3)
	ch <- 1
	ch <- 2
	ch <- 3
	close(ch)

	vals, err := rxfn.Collect(context.Background(), rxfn.FromChan(ch))

	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, vals)
}

func TestFromChan_UnsubscribeStopsReading(t *testing.T) {
	ch := make(chan int)
	r, sub := record(rxfn.FromChan(ch))

	ch <- 1
	require.Eventually(t, func() bool {
		return len(r.Values()) == 1
	}, time.Second, time.Millisecond)

	sub.Unsubscribe()
	select {
	case ch <- 2:
		// The reader may still pick one value up before seeing done.
	case <-time.After(20 * time.Millisecond):
	}

	require.Equal(t, []int{1}, r.Values())
	require.False(t, r.Completed())
}

func TestFromFunc(t *testing.T) {
	ok := rxfn.FromFunc(func(context.Context) (string, error) {
		return "done", nil
	})
	vals, err := rxfn.Collect(context.Background(), ok)
	require.NoError(t, err)
	require.Equal(t, []string{"done"}, vals)

	failing := rxfn.FromFunc(func(context.Context) (string, error) {
		return "", errBoom
	})
	_, err = rxfn.Collect(context.Background(), failing)
	require.ErrorIs(t, err, errBoom)
}

func TestFromFunc_CancelledOnUnsubscribe(t *testing.T) {
	cancelled := make(chan struct{})
	o := rxfn.FromFunc(func(ctx context.Context) (int, error) {
		<-ctx.Done()
		close(cancelled)
		return 0, ctx.Err()
	})

	r, sub := record(o)
	sub.Unsubscribe()

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("context was not cancelled")
	}
	require.Zero(t, r.Terminals())
}

func TestBindCallback(t *testing.T) {
	calls := 0
	square := rxfn.BindCallback(func(n int, cb func(int)) {
		calls++
		cb(n * n)
		cb(-1)
	})

	o := square(4)
	require.Zero(t, calls)

	r, _ := record(o)
	require.Equal(t, []int{16}, r.Values())
	require.True(t, r.Completed())

	_, _ = collect(o)
	require.Equal(t, 2, calls)
}

func TestBindErrCallback(t *testing.T) {
	read := rxfn.BindErrCallback(func(name string, cb func(string, error)) {
		if name == "" {
			cb("", errBoom)
			return
		}
		cb("content of "+name, nil)
	})

	vals, err := collect(read("a.txt"))
	require.NoError(t, err)
	require.Equal(t, []string{"content of a.txt"}, vals)

	_, err = collect(read(""))
	require.ErrorIs(t, err, errBoom)
}
