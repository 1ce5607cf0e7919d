/*
Package rxfn provides push-based, composable streams of values for Go:
Observables, Observers, Subscriptions, Subjects and Schedulers.

An Observable[T] is a lazy description of a sequence of values delivered
over time. Nothing happens until Subscribe is called, and every subscription
runs the producer again. A subscription ends with exactly one terminal
notification, Error or Complete, or when it is unsubscribed.

All operators (Map, Filter, MergeMap, CombineLatest, Retry, and more) are
provided as package-level functions taking their source as first argument.
Each operator returns a new Observable, so pipelines are composed by nesting
calls. Operators that keep the value type can also be chained with Pipe.

Example of a simple pipeline:

	sched := rxfn.DefaultScheduler()

	// Two sources of the same type are merged.
	ticks := rxfn.Map(rxfn.Interval(time.Second, sched), func(i int) string {
	    return fmt.Sprintf("tick %d", i)
	})
	events := rxfn.Merge(ticks, rxfn.FromChan(incoming))

	// TryMap applies transformations that may fail.
	// The first error terminates the stream and reaches the observer.
	parsed := rxfn.TryMap(events, ParseEvent)

	// Time-based operators take the Scheduler they run on.
	quiet := rxfn.DebounceTime(parsed, 200*time.Millisecond, sched)

	sub := quiet.SubscribeFunc(
	    func(e Event) { log.Println("event:", e) },
	    func(err error) { log.Println("stream failed:", err) },
	    nil,
	)
	defer sub.Unsubscribe() // Unsubscribing tears the whole pipeline down.

Observers are never called concurrently: a Subscriber serializes the
notifications of its producer, even when they come from several goroutines.
Time-based functions run their callbacks on the Scheduler they are given; a
nil Scheduler means DefaultScheduler(). Tests use a VirtualScheduler to drive
time by hand.

Runtime-wide behaviour such as logging, metrics and the handling of errors
that reach no error callback is set with Configure.
*/
package rxfn
