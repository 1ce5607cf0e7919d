package rxfn_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KasperOmsK/rxfn"
)

func TestMap_TransformsValues(t *testing.T) {
	src := rxfn.From(seqOf(1, 2, 3))

	o := rxfn.Map(src, func(v int) int {
		return v * 2
	})

	r, _ := record(o)

	require.Equal(t, []int{2, 4, 6}, r.Values())
	require.True(t, r.Completed())
	require.NoError(t, r.Err())
}

func TestMap_PanicBecomesError(t *testing.T) {
	o := rxfn.Map(rxfn.Of(1, 2, 3), func(v int) int {
		if v == 2 {
			panic("two")
		}
		return v * 10
	})

	vals, err := collect(o)

	require.Equal(t, []int{10}, vals)
	var perr *rxfn.PanicError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "two", perr.Value)
}

func TestTryMap_StopsOnFirstError(t *testing.T) {
	src := rxfn.From(seqOf(1, 2, 3, 4))

	o := rxfn.TryMap(src, func(v int) (int, error) {
		if v%2 == 0 {
			return 0, fmt.Errorf("even number: %d", v)
		}
		return v * 10, nil
	})

	vals, err := collect(o)

	require.Equal(t, []int{10}, vals)
	require.EqualError(t, err, "even number: 2")
}

func TestScan_EmitsEveryAccumulator(t *testing.T) {
	o := rxfn.Scan(rxfn.Of(1, 2, 3), 0, func(acc, v int) int {
		return acc + v
	})

	vals, err := collect(o)

	require.NoError(t, err)
	require.Equal(t, []int{1, 3, 6}, vals)
}

func TestReduce(t *testing.T) {
	sum := func(acc, v int) int { return acc + v }

	vals, err := collect(rxfn.Reduce(rxfn.Range(1, 4), 0, sum))
	require.NoError(t, err)
	require.Equal(t, []int{10}, vals)

	vals, err = collect(rxfn.Reduce(rxfn.Empty[int](), 42, sum))
	require.NoError(t, err)
	require.Equal(t, []int{42}, vals)
}

func TestPairwise(t *testing.T) {
	vals, err := collect(rxfn.Pairwise(rxfn.Of("a", "b", "c")))

	require.NoError(t, err)
	require.Equal(t, [][2]string{{"a", "b"}, {"b", "c"}}, vals)
}

func TestToSlice(t *testing.T) {
	vals, err := collect(rxfn.ToSlice(rxfn.Of(1, 2, 3)))
	require.NoError(t, err)
	require.Equal(t, [][]int{{1, 2, 3}}, vals)

	vals, err = collect(rxfn.ToSlice(rxfn.Empty[int]()))
	require.NoError(t, err)
	require.Equal(t, [][]int{{}}, vals)
}

func TestBufferCount_PanicInvalidSize(t *testing.T) {
	require.Panics(t, func() {
		rxfn.BufferCount(rxfn.Of(1), 0)
	})
	require.Panics(t, func() {
		rxfn.BufferCount(rxfn.Of(1), -1)
	})
}

func TestBufferCount_GroupsCorrectly(t *testing.T) {
	vals, err := collect(rxfn.BufferCount(rxfn.Range(1, 5), 2))

	require.NoError(t, err)
	require.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, vals)
}

func TestBuffer_FlushesOnNotifier(t *testing.T) {
	src := rxfn.NewSubject[int]()
	notifier := rxfn.NewSubject[struct{}]()

	r, _ := record(rxfn.Buffer(src.AsObservable(), notifier.AsObservable()))

	src.Next(1)
	src.Next(2)
	notifier.Next(struct{}{})
	notifier.Next(struct{}{})
	src.Next(3)
	src.Complete()

	require.Equal(t, [][]int{{1, 2}, {}, {3}}, r.Values())
	require.True(t, r.Completed())
}

func TestBufferTime(t *testing.T) {
	sched := rxfn.NewVirtualScheduler(epoch)
	src := rxfn.NewSubject[int]()

	r, _ := record(rxfn.BufferTime(src.AsObservable(), ms(10), sched))

	src.Next(1)
	sched.AdvanceBy(ms(10))
	src.Next(2)
	src.Next(3)
	sched.AdvanceBy(ms(10))
	sched.AdvanceBy(ms(10))
	src.Complete()

	require.Equal(t, [][]int{{1}, {2, 3}, {}}, r.Values())
	require.True(t, r.Completed())
}

func TestGroupBy(t *testing.T) {
	groups := map[string][]int{}

	o := rxfn.GroupBy(rxfn.Range(1, 6), func(v int) string {
		if v%2 == 0 {
			return "even"
		}
		return "odd"
	})

	var keys []string
	r := &recorder[int]{}
	o.SubscribeFunc(func(g rxfn.Group[string, int]) {
		keys = append(keys, g.Key)
		g.SubscribeFunc(func(v int) {
			groups[g.Key] = append(groups[g.Key], v)
		}, nil, r.Complete)
	}, nil, nil)

	require.Equal(t, []string{"odd", "even"}, keys)
	require.Equal(t, []int{1, 3, 5}, groups["odd"])
	require.Equal(t, []int{2, 4, 6}, groups["even"])
	require.Equal(t, 2, r.Terminals())
}

func TestGroupBy_ForwardsErrors(t *testing.T) {
	src := rxfn.Concat(rxfn.Of(1, 2), rxfn.Throw[int](errBoom))

	var groupErrs []error
	outer := &recorder[rxfn.Group[int, int]]{}
	o := rxfn.GroupBy(src, func(v int) int { return v })
	o.SubscribeFunc(func(g rxfn.Group[int, int]) {
		outer.Next(g)
		g.SubscribeFunc(nil, func(err error) {
			groupErrs = append(groupErrs, err)
		}, nil)
	}, outer.Error, outer.Complete)

	require.Len(t, outer.Values(), 2)
	require.ErrorIs(t, outer.Err(), errBoom)
	require.Len(t, groupErrs, 2)
}

func TestMergeMap_FlattensInOrder(t *testing.T) {
	o := rxfn.MergeMap(rxfn.Of(1, 2, 3), func(v int) rxfn.Observable[int] {
		return rxfn.Of(v, v*10)
	})

	vals, err := collect(o)

	require.NoError(t, err)
	require.Equal(t, []int{1, 10, 2, 20, 3, 30}, vals)
}

// delayedBy emits v after (4-v)*10ms, so larger values arrive first when
// subscribed together.
func delayedBy(sched rxfn.Scheduler) rxfn.ProjectFunc[int, int] {
	return func(v int) rxfn.Observable[int] {
		return rxfn.Map(rxfn.Timer(ms((4-v)*10), sched), func(int) int { return v })
	}
}

func TestMergeMap_InterleavesByTime(t *testing.T) {
	sched := rxfn.NewVirtualScheduler(epoch)

	r, _ := recordTimed(sched, rxfn.MergeMap(rxfn.Of(1, 2, 3), delayedBy(sched)))
	sched.Flush()

	require.Equal(t, []stamped[int]{
		{ms(10), 3},
		{ms(20), 2},
		{ms(30), 1},
	}, r.Values())
	require.True(t, r.Completed())
}

func TestMergeMapLimit_QueuesBeyondLimit(t *testing.T) {
	sched := rxfn.NewVirtualScheduler(epoch)

	r, _ := recordTimed(sched, rxfn.MergeMapLimit(rxfn.Of(1, 2, 3), delayedBy(sched), 2))
	sched.Flush()

	// 1 and 2 start at once; 3 starts when 2 completes at 20ms.
	require.Equal(t, []stamped[int]{
		{ms(20), 2},
		{ms(30), 1},
		{ms(30), 3},
	}, r.Values())
	require.True(t, r.Completed())
}

func TestConcatMap_PreservesSourceOrder(t *testing.T) {
	sched := rxfn.NewVirtualScheduler(epoch)

	r, _ := recordTimed(sched, rxfn.ConcatMap(rxfn.Of(1, 2, 3), delayedBy(sched)))
	sched.Flush()

	require.Equal(t, []stamped[int]{
		{ms(30), 1},
		{ms(50), 2},
		{ms(60), 3},
	}, r.Values())
	require.True(t, r.Completed())
}

func TestConcatMap_PanicInQueuedProjectionErrors(t *testing.T) {
	var unhandled []error
	rxfn.Configure(rxfn.WithUnhandledErrorHandler(func(err error) {
		unhandled = append(unhandled, err)
	}))
	t.Cleanup(rxfn.ResetConfiguration)

	sched := rxfn.NewVirtualScheduler(epoch)
	project := func(v int) rxfn.Observable[int] {
		if v == 2 {
			panic("bad projection")
		}
		return rxfn.Map(rxfn.Timer(ms(10), sched), func(int) int { return v })
	}

	tests := []struct {
		name string
		o    rxfn.Observable[int]
	}{
		{"concat map", rxfn.ConcatMap(rxfn.Of(1, 2, 3), project)},
		{"merge map limit", rxfn.MergeMapLimit(rxfn.Of(1, 2, 3), project, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := record(tt.o)
			sched.Flush()

			require.Equal(t, []int{1}, r.Values())
			var perr *rxfn.PanicError
			require.ErrorAs(t, r.Err(), &perr)
			require.Equal(t, "bad projection", perr.Value)
			require.Equal(t, 1, r.Terminals())
		})
	}
	require.Empty(t, unhandled)
	require.Zero(t, sched.Pending())
}

func TestSwitchMap_DropsPreviousInner(t *testing.T) {
	sched := rxfn.NewVirtualScheduler(epoch)
	src := rxfn.NewSubject[int]()

	o := rxfn.SwitchMap(src.AsObservable(), func(v int) rxfn.Observable[int] {
		return rxfn.Map(rxfn.Timer(ms(10), sched), func(int) int { return v })
	})
	r, _ := record(o)

	src.Next(1)
	sched.AdvanceBy(ms(5))
	src.Next(2)
	sched.AdvanceBy(ms(10))

	require.Equal(t, []int{2}, r.Values())
	require.False(t, r.Completed())

	src.Complete()
	require.True(t, r.Completed())
	require.Zero(t, sched.Pending())
}

func TestSwitchMap_WaitsForActiveInner(t *testing.T) {
	sched := rxfn.NewVirtualScheduler(epoch)

	o := rxfn.SwitchMap(rxfn.Of(1), func(v int) rxfn.Observable[int] {
		return rxfn.Map(rxfn.Timer(ms(10), sched), func(int) int { return v })
	})
	r, _ := record(o)
	require.False(t, r.Completed())

	sched.Flush()
	require.Equal(t, []int{1}, r.Values())
	require.True(t, r.Completed())
}

func TestExhaustMap_IgnoresWhileBusy(t *testing.T) {
	sched := rxfn.NewVirtualScheduler(epoch)
	src := rxfn.NewSubject[int]()

	o := rxfn.ExhaustMap(src.AsObservable(), func(v int) rxfn.Observable[int] {
		return rxfn.Map(rxfn.Timer(ms(10), sched), func(int) int { return v })
	})
	r, _ := record(o)

	src.Next(1)
	sched.AdvanceBy(ms(5))
	src.Next(2)
	sched.AdvanceBy(ms(10))
	src.Next(3)
	sched.AdvanceBy(ms(10))

	require.Equal(t, []int{1, 3}, r.Values())
}

func TestMaterialize(t *testing.T) {
	src := rxfn.Concat(rxfn.Of(1), rxfn.Throw[int](errBoom))

	vals, err := collect(rxfn.Materialize(src))

	require.NoError(t, err)
	require.Len(t, vals, 2)
	require.Equal(t, rxfn.KindNext, vals[0].Kind)
	require.Equal(t, 1, vals[0].Value)
	require.Equal(t, rxfn.KindError, vals[1].Kind)
	require.ErrorIs(t, vals[1].Err, errBoom)
}

func TestDematerialize(t *testing.T) {
	src := rxfn.Of(
		rxfn.Notification[string]{Kind: rxfn.KindNext, Value: "a"},
		rxfn.Notification[string]{Kind: rxfn.KindComplete},
		rxfn.Notification[string]{Kind: rxfn.KindNext, Value: "ignored"},
	)

	r, _ := record(rxfn.Dematerialize(src))

	require.Equal(t, []string{"a"}, r.Values())
	require.True(t, r.Completed())
	require.Equal(t, 1, r.Terminals())
}

func TestMapFilter_Composition(t *testing.T) {
	// of(1,2,3) |> map(x*2) |> filter(x>4) |> map(x*2)
	doubled := rxfn.Map(rxfn.Of(1, 2, 3), func(v int) int { return v * 2 })
	big := rxfn.Filter(doubled, func(v int) bool { return v > 4 })
	out := rxfn.Map(big, func(v int) int { return v * 2 })

	vals, err := collect(out)

	require.NoError(t, err)
	require.Equal(t, []int{12}, vals)
}

func TestTryMap_ErrorIsNotWrapped(t *testing.T) {
	o := rxfn.TryMap(rxfn.Of("x"), func(string) (int, error) {
		return 0, errBoom
	})

	_, err := collect(o)

	require.True(t, errors.Is(err, errBoom))
	require.Equal(t, errBoom, err)
}


func TestExpand(t *testing.T) {
	o := rxfn.Expand(rxfn.Of(1), func(v int) rxfn.Observable[int] {
		if v >= 8 {
			return rxfn.Empty[int]()
		}
		return rxfn.Of(v * 2)
	})

	r, _ := record(o)

	require.Equal(t, []int{1, 2, 4, 8}, r.Values())
	require.True(t, r.Completed())
}

func TestExpand_TakeStopsEndlessExpansion(t *testing.T) {
	o := rxfn.Expand(rxfn.Of(1), func(v int) rxfn.Observable[int] {
		return rxfn.Of(v + 1)
	})

	vals, err := collect(rxfn.Take(o, 5))

	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3, 4, 5}, vals)
}

// windows subscribes to o and records every window it opens.
func windows[T any](o rxfn.Observable[rxfn.Observable[T]]) (*[]*recorder[T], *recorder[rxfn.Observable[T]]) {
	var opened []*recorder[T]
	outer := &recorder[rxfn.Observable[T]]{}
	o.SubscribeFunc(func(w rxfn.Observable[T]) {
		r := &recorder[T]{}
		w.Subscribe(r)
		opened = append(opened, r)
		outer.Next(w)
	}, outer.Error, outer.Complete)

	return &opened, outer
}

func TestWindow(t *testing.T) {
	src := rxfn.NewSubject[int]()
	boundary := rxfn.NewSubject[struct{}]()

	opened, outer := windows(rxfn.Window(src.AsObservable(), boundary.AsObservable()))

	src.Next(1)
	src.Next(2)
	boundary.Next(struct{}{})
	src.Next(3)
	src.Complete()

	require.Len(t, *opened, 2)
	require.Equal(t, []int{1, 2}, (*opened)[0].Values())
	require.True(t, (*opened)[0].Completed())
	require.Equal(t, []int{3}, (*opened)[1].Values())
	require.True(t, (*opened)[1].Completed())
	require.True(t, outer.Completed())
	require.Zero(t, boundary.ObserverCount())
}

func TestWindow_ErrorReachesCurrentWindow(t *testing.T) {
	opened, outer := windows(rxfn.Window(rxfn.Concat(rxfn.Of(1), rxfn.Throw[int](errBoom)), rxfn.Never[int]()))

	require.Len(t, *opened, 1)
	require.Equal(t, []int{1}, (*opened)[0].Values())
	require.ErrorIs(t, (*opened)[0].Err(), errBoom)
	require.ErrorIs(t, outer.Err(), errBoom)
}

func TestWindowCount(t *testing.T) {
	opened, outer := windows(rxfn.WindowCount(rxfn.Range(1, 5), 2))

	var got [][]int
	for _, w := range *opened {
		require.True(t, w.Completed())
		got = append(got, w.Values())
	}

	require.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, got)
	require.True(t, outer.Completed())

	opened, _ = windows(rxfn.WindowCount(rxfn.Range(1, 4), 2))
	require.Len(t, *opened, 3)
	require.Empty(t, (*opened)[2].Values())

	require.Panics(t, func() { rxfn.WindowCount(rxfn.Of(1), 0) })
}

func TestWindowTime(t *testing.T) {
	sched := rxfn.NewVirtualScheduler(epoch)
	src := rxfn.NewSubject[int]()

	opened, outer := windows(rxfn.WindowTime(src.AsObservable(), ms(10), sched))

	src.Next(1)
	sched.AdvanceBy(ms(10))
	src.Next(2)
	src.Next(3)
	sched.AdvanceBy(ms(10))
	src.Complete()

	require.Len(t, *opened, 3)
	require.Equal(t, []int{1}, (*opened)[0].Values())
	require.Equal(t, []int{2, 3}, (*opened)[1].Values())
	require.Empty(t, (*opened)[2].Values())
	require.True(t, outer.Completed())
	require.Zero(t, sched.Pending())
}
