package scenario

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cenkalti/backoff/v4"

	"github.com/KasperOmsK/rxfn"
)

var errBoom = errors.New("boom")

var catalog = []Scenario{
	// creation
	{
		Name:        "of",
		Group:       GroupCreation,
		Description: "emit a fixed list of values, then complete",
		Build: func(Env) rxfn.Observable[string] {
			return format(rxfn.Of(1, 2, 3, 4, 5))
		},
	},
	{
		Name:        "range-even",
		Group:       GroupCreation,
		Description: "emit 1..10 and keep the even numbers",
		Build: func(Env) rxfn.Observable[string] {
			return format(rxfn.Filter(rxfn.Range(1, 10), func(v int) bool { return v%2 == 0 }))
		},
	},
	{
		Name:        "from-iter",
		Group:       GroupCreation,
		Description: "emit the items of an iterator",
		Build: func(Env) rxfn.Observable[string] {
			return rxfn.From(strings.SplitSeq("red,green,blue", ","))
		},
	},
	{
		Name:        "timer-every",
		Group:       GroupCreation,
		Description: "first value after one tick, then every two ticks",
		Build: func(env Env) rxfn.Observable[string] {
			return format(rxfn.Take(rxfn.TimerEvery(env.Tick, env.ticks(2), env.Scheduler), 3))
		},
	},
	{
		Name:        "bind-callback",
		Group:       GroupCreation,
		Description: "turn a callback API into an observable",
		Build: func(Env) rxfn.Observable[string] {
			greet := func(name string, cb func(string)) { cb("hello " + name) }
			return rxfn.BindCallback(greet)("rxfn")
		},
	},

	// combination
	{
		Name:        "merge-intervals",
		Group:       GroupCombination,
		Description: "interleave two intervals",
		Build: func(env Env) rxfn.Observable[string] {
			a := formatf(rxfn.Take(rxfn.Interval(env.ticks(2), env.Scheduler), 2), "a%d")
			b := formatf(rxfn.Take(rxfn.Interval(env.ticks(3), env.Scheduler), 2), "b%d")
			return rxfn.Merge(a, b)
		},
	},
	{
		Name:        "concat",
		Group:       GroupCombination,
		Description: "subscribe to the second source once the first completes",
		Build: func(env Env) rxfn.Observable[string] {
			late := rxfn.Map(rxfn.Timer(env.Tick, env.Scheduler), func(int) string { return "late" })
			return rxfn.Concat(rxfn.Of("a", "b"), late)
		},
	},
	{
		Name:        "combine-latest",
		Group:       GroupCombination,
		Description: "combine the latest values of two intervals",
		Build: func(env Env) rxfn.Observable[string] {
			a := rxfn.Take(rxfn.Interval(env.ticks(2), env.Scheduler), 3)
			b := rxfn.Take(rxfn.Interval(env.ticks(5), env.Scheduler), 2)
			return rxfn.CombineLatestWith(a, b, func(x, y int) string { return fmt.Sprintf("%d/%d", x, y) })
		},
	},
	{
		Name:        "zip",
		Group:       GroupCombination,
		Description: "pair letters with interval ticks",
		Build: func(env Env) rxfn.Observable[string] {
			return rxfn.ZipWith(rxfn.Of("a", "b", "c"), rxfn.Interval(env.Tick, env.Scheduler), func(s string, i int) string {
				return fmt.Sprint(s, i)
			})
		},
	},
	{
		Name:        "race",
		Group:       GroupCombination,
		Description: "mirror whichever timer fires first",
		Build: func(env Env) rxfn.Observable[string] {
			slow := rxfn.Map(rxfn.Timer(env.ticks(3), env.Scheduler), func(int) string { return "slow" })
			fast := rxfn.Map(rxfn.Timer(env.Tick, env.Scheduler), func(int) string { return "fast" })
			return rxfn.Race(slow, fast)
		},
	},
	{
		Name:        "start-with",
		Group:       GroupCombination,
		Description: "prepend values to a sequence",
		Build: func(Env) rxfn.Observable[string] {
			return rxfn.StartWith(rxfn.Of("b", "c"), "a")
		},
	},
	{
		Name:        "with-latest-from",
		Group:       GroupCombination,
		Description: "sample a fast interval on every tick of a slow one",
		Build: func(env Env) rxfn.Observable[string] {
			slow := rxfn.Take(rxfn.Interval(env.ticks(5), env.Scheduler), 2)
			fast := rxfn.Interval(env.ticks(3), env.Scheduler)
			return rxfn.WithLatestFrom(slow, fast, func(s, f int) string { return fmt.Sprintf("%d@%d", s, f) })
		},
	},
	{
		Name:        "fork-join",
		Group:       GroupCombination,
		Description: "emit the last values of all sources once they all completed",
		Build: func(env Env) rxfn.Observable[string] {
			return format(rxfn.ForkJoin(rxfn.Take(rxfn.Interval(env.Tick, env.Scheduler), 3), rxfn.Of(7, 8)))
		},
	},

	// filtering
	{
		Name:        "debounce",
		Group:       GroupFiltering,
		Description: "emit a value once no other arrived for a tick and a half",
		Build: func(env Env) rxfn.Observable[string] {
			src := rxfn.MergeMap(rxfn.Of(1, 2, 6, 7, 9), func(v int) rxfn.Observable[int] {
				return rxfn.Map(rxfn.Timer(env.ticks(v), env.Scheduler), func(int) int { return v })
			})
			return format(rxfn.DebounceTime(src, env.ticks(3)/2, env.Scheduler))
		},
	},
	{
		Name:        "throttle",
		Group:       GroupFiltering,
		Description: "emit a value, then ignore the source for two ticks and a half",
		Build: func(env Env) rxfn.Observable[string] {
			src := rxfn.Take(rxfn.Interval(env.Tick, env.Scheduler), 6)
			return format(rxfn.ThrottleTime(src, env.ticks(5)/2, env.Scheduler))
		},
	},
	{
		Name:        "sample",
		Group:       GroupFiltering,
		Description: "emit the latest interval value at every sampling tick",
		Build: func(env Env) rxfn.Observable[string] {
			src := rxfn.Interval(env.ticks(2), env.Scheduler)
			sampler := rxfn.TimerEvery(env.ticks(3), env.ticks(4), env.Scheduler)
			return format(rxfn.Take(rxfn.Sample(src, sampler), 3))
		},
	},
	{
		Name:        "take-until",
		Group:       GroupFiltering,
		Description: "mirror an interval until a timer fires",
		Build: func(env Env) rxfn.Observable[string] {
			stop := rxfn.Timer(env.ticks(7)/2, env.Scheduler)
			return format(rxfn.TakeUntil(rxfn.Interval(env.Tick, env.Scheduler), stop))
		},
	},
	{
		Name:        "distinct-until-changed",
		Group:       GroupFiltering,
		Description: "drop values equal to their predecessor",
		Build: func(Env) rxfn.Observable[string] {
			return format(rxfn.DistinctUntilChanged(rxfn.Of(1, 1, 2, 2, 3, 1)))
		},
	},
	{
		Name:        "distinct",
		Group:       GroupFiltering,
		Description: "drop values already seen",
		Build: func(Env) rxfn.Observable[string] {
			return format(rxfn.Distinct(rxfn.Of(1, 2, 1, 3, 2, 4)))
		},
	},

	// transformation
	{
		Name:        "scan",
		Group:       GroupTransformation,
		Description: "running sum",
		Build: func(Env) rxfn.Observable[string] {
			return format(rxfn.Scan(rxfn.Of(1, 2, 3, 4), 0, func(acc, v int) int { return acc + v }))
		},
	},
	{
		Name:        "buffer-count",
		Group:       GroupTransformation,
		Description: "emit values in slices of three",
		Build: func(Env) rxfn.Observable[string] {
			return format(rxfn.BufferCount(rxfn.Range(1, 7), 3))
		},
	},
	{
		Name:        "buffer-time",
		Group:       GroupTransformation,
		Description: "emit what arrived during each window of two ticks and a half",
		Build: func(env Env) rxfn.Observable[string] {
			src := rxfn.Take(rxfn.Interval(env.Tick, env.Scheduler), 4)
			return format(rxfn.BufferTime(src, env.ticks(5)/2, env.Scheduler))
		},
	},
	{
		Name:        "pairwise",
		Group:       GroupTransformation,
		Description: "emit each value with its predecessor",
		Build: func(Env) rxfn.Observable[string] {
			return format(rxfn.Pairwise(rxfn.Of(1, 2, 3, 4)))
		},
	},
	{
		Name:        "group-by",
		Group:       GroupTransformation,
		Description: "split words by first letter",
		Build: func(Env) rxfn.Observable[string] {
			words := rxfn.Of("apple", "banana", "avocado", "blueberry", "cherry")
			groups := rxfn.GroupBy(words, func(w string) byte { return w[0] })
			return rxfn.MergeMap(groups, func(g rxfn.Group[byte, string]) rxfn.Observable[string] {
				return rxfn.Map(rxfn.ToSlice(g.Observable), func(ws []string) string {
					return fmt.Sprintf("%c: %s", g.Key, strings.Join(ws, ","))
				})
			})
		},
	},
	{
		Name:        "merge-map",
		Group:       GroupTransformation,
		Description: "run all delayed lookups at once",
		Build: func(env Env) rxfn.Observable[string] {
			return format(rxfn.MergeMap(rxfn.Of(3, 1, 2), delayed(env)))
		},
	},
	{
		Name:        "concat-map",
		Group:       GroupTransformation,
		Description: "run delayed lookups one after the other",
		Build: func(env Env) rxfn.Observable[string] {
			return format(rxfn.ConcatMap(rxfn.Of(3, 1, 2), delayed(env)))
		},
	},
	{
		Name:        "switch-map",
		Group:       GroupTransformation,
		Description: "restart an inner interval on every outer value",
		Build: func(env Env) rxfn.Observable[string] {
			outer := rxfn.Take(rxfn.Interval(env.ticks(5)/2, env.Scheduler), 2)
			return rxfn.SwitchMap(outer, func(o int) rxfn.Observable[string] {
				inner := rxfn.Take(rxfn.Interval(env.Tick, env.Scheduler), 3)
				return rxfn.Map(inner, func(i int) string { return fmt.Sprintf("%d-%d", o, i) })
			})
		},
	},

	// multicasting
	{
		Name:        "share",
		Group:       GroupMulticasting,
		Description: "two subscribers share one interval",
		Build: func(env Env) rxfn.Observable[string] {
			src := rxfn.Share(rxfn.Take(rxfn.Interval(env.Tick, env.Scheduler), 3))
			return rxfn.Merge(formatf(src, "a%d"), formatf(src, "b%d"))
		},
	},
	{
		Name:        "publish-replay",
		Group:       GroupMulticasting,
		Description: "late subscriber replays the last two values",
		Build: func(Env) rxfn.Observable[string] {
			return rxfn.Defer(func() rxfn.Observable[string] {
				c := rxfn.PublishReplay(rxfn.Of(1, 2, 3), 2)
				c.Connect()
				return format(c.AsObservable())
			})
		},
	},
	{
		Name:        "behavior-subject",
		Group:       GroupMulticasting,
		Description: "subscriber sees the current state, then every change",
		Build: func(Env) rxfn.Observable[string] {
			return rxfn.Defer(func() rxfn.Observable[string] {
				state := rxfn.NewBehaviorSubject("idle")
				updates := rxfn.Defer(func() rxfn.Observable[string] {
					state.Next("loading")
					state.Next("ready")
					return rxfn.Empty[string]()
				})
				return rxfn.Merge(rxfn.Take(state.AsObservable(), 3), updates)
			})
		},
	},
	{
		Name:        "async-subject",
		Group:       GroupMulticasting,
		Description: "emit only the last value, on completion",
		Build: func(Env) rxfn.Observable[string] {
			return rxfn.Defer(func() rxfn.Observable[string] {
				subj := rxfn.NewAsyncSubject[int]()
				for i := 1; i <= 3; i++ {
					subj.Next(i)
				}
				subj.Complete()
				return format(subj.AsObservable())
			})
		},
	},

	// error handling
	{
		Name:        "catch-error",
		Group:       GroupErrorHandling,
		Description: "replace an error by a fallback sequence",
		Build: func(Env) rxfn.Observable[string] {
			src := rxfn.Concat(rxfn.Of("a"), rxfn.Throw[string](errBoom))
			return rxfn.CatchError(src, func(err error) rxfn.Observable[string] {
				return rxfn.Of("caught: " + err.Error())
			})
		},
	},
	{
		Name:        "retry",
		Group:       GroupErrorHandling,
		Description: "resubscribe twice to a source failing twice",
		Build: func(Env) rxfn.Observable[string] {
			return rxfn.Defer(func() rxfn.Observable[string] {
				return rxfn.Retry(failing(2), 2)
			})
		},
	},
	{
		Name:        "retry-when",
		Group:       GroupErrorHandling,
		Description: "resubscribe one tick after each error",
		Build: func(env Env) rxfn.Observable[string] {
			return rxfn.Defer(func() rxfn.Observable[string] {
				return rxfn.RetryWhen(failing(2), func(errs rxfn.Observable[error]) rxfn.Observable[int] {
					return rxfn.MergeMap(errs, func(error) rxfn.Observable[int] {
						return rxfn.Timer(env.Tick, env.Scheduler)
					})
				})
			})
		},
	},
	{
		Name:        "retry-backoff",
		Group:       GroupErrorHandling,
		Description: "give up after two delayed retries",
		Build: func(env Env) rxfn.Observable[string] {
			return rxfn.Defer(func() rxfn.Observable[string] {
				attempts := 0
				src := rxfn.Defer(func() rxfn.Observable[string] {
					attempts++
					return rxfn.Throw[string](errBoom)
				})
				retried := rxfn.RetryBackoff(src, func() backoff.BackOff {
					return backoff.WithMaxRetries(backoff.NewConstantBackOff(env.Tick), 2)
				}, env.Scheduler)
				return rxfn.CatchError(retried, func(err error) rxfn.Observable[string] {
					return rxfn.Of(fmt.Sprintf("gave up after %d attempts: %v", attempts, err))
				})
			})
		},
	},

	// utility
	{
		Name:        "delay",
		Group:       GroupUtility,
		Description: "shift every value by two ticks",
		Build: func(env Env) rxfn.Observable[string] {
			return rxfn.Delay(rxfn.Of("a", "b"), env.ticks(2), env.Scheduler)
		},
	},
	{
		Name:        "timeout",
		Group:       GroupUtility,
		Description: "fail when the next value takes longer than two ticks",
		Build: func(env Env) rxfn.Observable[string] {
			slow := rxfn.Map(rxfn.Timer(env.ticks(3), env.Scheduler), func(int) string { return "slow" })
			src := rxfn.Timeout(rxfn.Concat(rxfn.Of("fast"), slow), env.ticks(2), env.Scheduler)
			return rxfn.CatchError(src, func(err error) rxfn.Observable[string] {
				if errors.Is(err, rxfn.ErrTimeout) {
					return rxfn.Of("timed out")
				}
				return rxfn.Throw[string](err)
			})
		},
	},
	{
		Name:        "materialize",
		Group:       GroupUtility,
		Description: "turn notifications into values",
		Build: func(Env) rxfn.Observable[string] {
			src := rxfn.Concat(rxfn.Of(1), rxfn.Throw[int](errBoom))
			return rxfn.Map(rxfn.Materialize(src), func(n rxfn.Notification[int]) string {
				switch n.Kind {
				case rxfn.KindNext:
					return fmt.Sprintf("%s(%d)", n.Kind, n.Value)
				case rxfn.KindError:
					return fmt.Sprintf("%s(%v)", n.Kind, n.Err)
				default:
					return n.Kind.String()
				}
			})
		},
	},
	{
		Name:        "count",
		Group:       GroupUtility,
		Description: "count the odd numbers of 1..10",
		Build: func(Env) rxfn.Observable[string] {
			return format(rxfn.Count(rxfn.Filter(rxfn.Range(1, 10), func(v int) bool { return v%2 == 1 })))
		},
	},

	// conditional
	{
		Name:        "default-if-empty",
		Group:       GroupConditional,
		Description: "emit a default when the source is empty",
		Build: func(Env) rxfn.Observable[string] {
			return rxfn.DefaultIfEmpty(rxfn.Empty[string](), "default")
		},
	},
	{
		Name:        "every",
		Group:       GroupConditional,
		Description: "check that every value is even",
		Build: func(Env) rxfn.Observable[string] {
			return format(rxfn.Every(rxfn.Of(2, 4, 5, 6), func(v int) bool { return v%2 == 0 }))
		},
	},
	{
		Name:        "is-empty",
		Group:       GroupConditional,
		Description: "check whether any of 1..5 exceeds ten",
		Build: func(Env) rxfn.Observable[string] {
			none := rxfn.Filter(rxfn.Range(1, 5), func(v int) bool { return v > 10 })
			return format(rxfn.IsEmpty(none))
		},
	},
}

// delayed maps v to a lookup answering after v ticks.
func delayed(env Env) rxfn.ProjectFunc[int, int] {
	return func(v int) rxfn.Observable[int] {
		return rxfn.Map(rxfn.Timer(env.ticks(v), env.Scheduler), func(int) int { return v })
	}
}

// failing returns a source that emits the attempt number and errors on its
// first failures subscriptions, then emits "ok".
func failing(failures int) rxfn.Observable[string] {
	attempts := 0
	return rxfn.Defer(func() rxfn.Observable[string] {
		attempts++
		if attempts <= failures {
			return rxfn.Concat(rxfn.Of(fmt.Sprintf("attempt %d", attempts)), rxfn.Throw[string](errBoom))
		}
		return rxfn.Of("ok")
	})
}
