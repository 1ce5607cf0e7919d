package rxfn_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KasperOmsK/rxfn"
)

func TestMerge(t *testing.T) {
	vals, err := collect(rxfn.Merge(rxfn.Of(1, 2), rxfn.Of(3)))

	require.NoError(t, err)
	require.ElementsMatch(t, []int{1, 2, 3}, vals)
}

func TestMerge_InterleavesAndWaitsForAll(t *testing.T) {
	sched := rxfn.NewVirtualScheduler(epoch)
	a := rxfn.Map(rxfn.Take(rxfn.Interval(ms(10), sched), 3), func(i int) string { return fmt.Sprint("a", i) })
	b := rxfn.Map(rxfn.Take(rxfn.Interval(ms(15), sched), 2), func(i int) string { return fmt.Sprint("b", i) })

	r, _ := record(rxfn.Merge(a, b))
	sched.AdvanceBy(ms(20))
	require.False(t, r.Completed())

	sched.Flush()

	// At 30ms b1 was scheduled before a2.
	require.Equal(t, []string{"a0", "b0", "a1", "b1", "a2"}, r.Values())
	require.True(t, r.Completed())
}

func TestMerge_ForwardsErrors(t *testing.T) {
	other := rxfn.NewSubject[int]()

	r, _ := record(rxfn.Merge(other.AsObservable(), rxfn.Throw[int](errBoom)))

	require.ErrorIs(t, r.Err(), errBoom)
	require.Zero(t, other.ObserverCount())
}

func TestMergeAll_Limit(t *testing.T) {
	a := rxfn.NewSubject[int]()
	b := rxfn.NewSubject[int]()
	c := rxfn.NewSubject[int]()
	sources := rxfn.Of(a.AsObservable(), b.AsObservable(), c.AsObservable())

	r, _ := record(rxfn.MergeAll(sources, 2))

	require.Equal(t, 1, a.ObserverCount())
	require.Equal(t, 1, b.ObserverCount())
	require.Zero(t, c.ObserverCount())

	a.Next(1)
	c.Next(99)
	a.Complete()
	require.Equal(t, 1, c.ObserverCount())

	c.Next(3)
	b.Next(2)
	b.Complete()
	c.Complete()

	require.Equal(t, []int{1, 3, 2}, r.Values())
	require.True(t, r.Completed())
}

func TestConcat_OrdersSources(t *testing.T) {
	vals, err := collect(rxfn.Concat(rxfn.Of(1, 2), rxfn.Of(3)))

	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, vals)
}

func TestConcat_NeverBlocksTheRest(t *testing.T) {
	subscribed := false
	next := rxfn.Defer(func() rxfn.Observable[int] {
		subscribed = true
		return rxfn.Of(2)
	})

	r, _ := record(rxfn.Concat(rxfn.Of(1), rxfn.Never[int](), next))

	require.Equal(t, []int{1}, r.Values())
	require.False(t, subscribed)
	require.False(t, r.Completed())
}

func TestStartWith(t *testing.T) {
	vals, err := collect(rxfn.StartWith(rxfn.Of(3), 1, 2))

	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, vals)
}

func TestSwitchAll(t *testing.T) {
	a := rxfn.NewSubject[string]()
	b := rxfn.NewSubject[string]()
	outer := rxfn.NewSubject[rxfn.Observable[string]]()

	r, _ := record(rxfn.SwitchAll(outer.AsObservable()))

	outer.Next(a.AsObservable())
	a.Next("a1")
	outer.Next(b.AsObservable())
	a.Next("a2")
	b.Next("b1")

	require.Equal(t, []string{"a1", "b1"}, r.Values())
	require.Zero(t, a.ObserverCount())
}

func TestCombineLatest(t *testing.T) {
	a := rxfn.NewSubject[int]()
	b := rxfn.NewSubject[int]()

	r, _ := record(rxfn.CombineLatest(a.AsObservable(), b.AsObservable()))

	a.Next(1)
	require.Empty(t, r.Values())

	b.Next(10)
	a.Next(2)
	b.Next(20)
	a.Complete()
	require.False(t, r.Completed())

	b.Next(30)
	b.Complete()

	require.Equal(t, [][]int{{1, 10}, {2, 10}, {2, 20}, {2, 30}}, r.Values())
	require.True(t, r.Completed())
}

func TestCombineLatest_CompletesWhenSourceEndsEmpty(t *testing.T) {
	a := rxfn.NewSubject[int]()

	r, _ := record(rxfn.CombineLatest(a.AsObservable(), rxfn.Empty[int]()))

	require.True(t, r.Completed())
	require.Empty(t, r.Values())
	require.Zero(t, a.ObserverCount())
}

func TestCombineLatestWith(t *testing.T) {
	names := rxfn.NewSubject[string]()
	ages := rxfn.NewSubject[int]()

	o := rxfn.CombineLatestWith(names.AsObservable(), ages.AsObservable(), func(n string, a int) string {
		return fmt.Sprintf("%s:%d", n, a)
	})
	r, _ := record(o)

	names.Next("ann")
	ages.Next(30)
	ages.Next(31)
	names.Next("bob")

	require.Equal(t, []string{"ann:30", "ann:31", "bob:31"}, r.Values())
}

func TestZip(t *testing.T) {
	a := rxfn.NewSubject[int]()
	b := rxfn.NewSubject[int]()

	r, _ := record(rxfn.Zip(a.AsObservable(), b.AsObservable()))

	a.Next(1)
	a.Next(2)
	a.Next(3)
	b.Next(10)
	a.Complete()
	require.False(t, r.Completed())

	b.Next(20)
	require.False(t, r.Completed())

	b.Next(30)

	require.Equal(t, [][]int{{1, 10}, {2, 20}, {3, 30}}, r.Values())
	require.True(t, r.Completed())
	require.Zero(t, b.ObserverCount())
}

func TestZipWith(t *testing.T) {
	o := rxfn.ZipWith(rxfn.Of("a", "b", "c"), rxfn.Range(1, 2), func(s string, n int) string {
		return fmt.Sprint(s, n)
	})

	vals, err := collect(o)

	require.NoError(t, err)
	require.Equal(t, []string{"a1", "b2"}, vals)
}

func TestRace_FirstToNotifyWins(t *testing.T) {
	sched := rxfn.NewVirtualScheduler(epoch)
	slow := rxfn.Map(rxfn.Timer(ms(20), sched), func(int) string { return "slow" })
	fast := rxfn.Map(rxfn.Timer(ms(10), sched), func(int) string { return "fast" })

	r, _ := record(rxfn.Race(slow, fast))
	sched.Flush()

	require.Equal(t, []string{"fast"}, r.Values())
	require.True(t, r.Completed())
}

func TestRace_SynchronousWinnerSkipsOthers(t *testing.T) {
	later := rxfn.NewSubject[int]()

	r, _ := record(rxfn.Race(rxfn.Of(1), later.AsObservable()))

	require.Equal(t, []int{1}, r.Values())
	require.Zero(t, later.ObserverCount())
}

func TestWithLatestFrom(t *testing.T) {
	clicks := rxfn.NewSubject[string]()
	state := rxfn.NewSubject[int]()

	o := rxfn.WithLatestFrom(clicks.AsObservable(), state.AsObservable(), func(c string, s int) string {
		return fmt.Sprintf("%s@%d", c, s)
	})
	r, _ := record(o)

	clicks.Next("x")
	state.Next(1)
	clicks.Next("y")
	state.Next(2)
	state.Complete()
	clicks.Next("z")
	clicks.Complete()

	require.Equal(t, []string{"y@1", "z@2"}, r.Values())
	require.True(t, r.Completed())
}

func TestWithLatestFrom_SecondaryErrorTerminates(t *testing.T) {
	clicks := rxfn.NewSubject[string]()
	state := rxfn.NewSubject[int]()

	o := rxfn.WithLatestFrom(clicks.AsObservable(), state.AsObservable(), func(c string, _ int) string {
		return c
	})
	r, _ := record(o)

	state.Error(errBoom)

	require.ErrorIs(t, r.Err(), errBoom)
	require.Zero(t, clicks.ObserverCount())
}

func TestWithLatestFromAll_WaitsForEverySecondary(t *testing.T) {
	clicks := rxfn.NewSubject[string]()
	a := rxfn.NewSubject[int]()
	b := rxfn.NewSubject[int]()

	o := rxfn.WithLatestFromAll(clicks.AsObservable(), func(c string, latest []int) string {
		return fmt.Sprint(c, latest)
	}, a.AsObservable(), b.AsObservable())
	r, _ := record(o)

	clicks.Next("x")
	a.Next(1)
	clicks.Next("y")
	b.Next(2)
	clicks.Next("z")
	a.Next(3)
	clicks.Next("w")
	clicks.Complete()

	require.Equal(t, []string{"z[1 2]", "w[3 2]"}, r.Values())
	require.True(t, r.Completed())
	require.Zero(t, a.ObserverCount())
	require.Zero(t, b.ObserverCount())
}

func TestWithLatestFromAll_NoSecondaries(t *testing.T) {
	o := rxfn.WithLatestFromAll(rxfn.Of(1, 2), func(v int, latest []string) int {
		return v + len(latest)
	})

	vals, err := collect(o)

	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, vals)
}

func TestForkJoin(t *testing.T) {
	sched := rxfn.NewVirtualScheduler(epoch)
	a := rxfn.Take(rxfn.Interval(ms(10), sched), 3)
	b := rxfn.Of(7, 8)

	r, _ := record(rxfn.ForkJoin(a, b))
	require.Empty(t, r.Values())

	sched.Flush()

	require.Equal(t, [][]int{{2, 8}}, r.Values())
	require.True(t, r.Completed())
}

func TestForkJoin_EmptySourceCompletesWithoutValue(t *testing.T) {
	r, _ := record(rxfn.ForkJoin(rxfn.Of(1), rxfn.Empty[int]()))

	require.Empty(t, r.Values())
	require.True(t, r.Completed())
}

func TestCombineAll(t *testing.T) {
	vals, err := collect(rxfn.CombineAll(rxfn.Of(rxfn.Of(1), rxfn.Of(2, 3))))

	require.NoError(t, err)
	require.Equal(t, [][]int{{1, 2}, {1, 3}}, vals)
}
