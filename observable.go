package rxfn

import "sync"

// Kind identifies the channel a Notification travels on.
type Kind int

const (
	KindNext Kind = iota
	KindError
	KindComplete
)

func (k Kind) String() string {
	switch k {
	case KindNext:
		return "next"
	case KindError:
		return "error"
	case KindComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Notification is a reified observer call.
type Notification[T any] struct {
	Kind  Kind
	Value T
	Err   error
}

// Accept replays n on o.
func (n Notification[T]) Accept(o Observer[T]) {
	switch n.Kind {
	case KindNext:
		o.Next(n.Value)
	case KindError:
		o.Error(n.Err)
	case KindComplete:
		o.Complete()
	}
}

func nextNotification[T any](v T) Notification[T] {
	return Notification[T]{Kind: KindNext, Value: v}
}

func terminalNotification[T any](err error) Notification[T] {
	if err != nil {
		return Notification[T]{Kind: KindError, Err: err}
	}

	return Notification[T]{Kind: KindComplete}
}

// Observer is a three-channel sink a producer pushes into.
//
// Producers never call an Observer concurrently, and never call it again
// after Error or Complete.
type Observer[T any] interface {
	Next(value T)
	Error(err error)
	Complete()
}

// ObserverFuncs adapts optional callbacks to Observer.
//
// A nil OnError does not swallow errors: they are handed to the configured
// unhandled error handler, which logs them by default.
type ObserverFuncs[T any] struct {
	OnNext     func(value T)
	OnError    func(err error)
	OnComplete func()
}

func (o ObserverFuncs[T]) Next(value T) {
	if o.OnNext != nil {
		o.OnNext(value)
	}
}

func (o ObserverFuncs[T]) Error(err error) {
	if o.OnError != nil {
		o.OnError(err)
		return
	}
	reportUnhandled(err)
}

func (o ObserverFuncs[T]) Complete() {
	if o.OnComplete != nil {
		o.OnComplete()
	}
}

// Subscriber is the Observer handed to a Producer. It is also the
// Subscription of that execution.
//
// Subscriber enforces the observer contract on behalf of the producer:
// notifications are delivered one at a time (a notification arriving while
// another is being delivered, from another goroutine or reentrantly, is
// queued and delivered by the active emitter), nothing is delivered after a
// terminal notification or after Unsubscribe, and the subscription is torn
// down right after Error or Complete reached the observer.
//
// A panic raised by the observer's Next is recovered and delivered to the
// same observer as a *PanicError.
type Subscriber[T any] struct {
	*Subscription

	dest Observer[T]

	mu       sync.Mutex
	stopped  bool
	emitting bool
	queue    []Notification[T]
}

func newSubscriber[T any](dest Observer[T]) *Subscriber[T] {
	s := &Subscriber[T]{Subscription: NewSubscription(), dest: dest}
	stats := settings().stats()
	stats.RecordSubscribe()
	s.Add(func() {
		s.mu.Lock()
		s.stopped = true
		s.queue = nil
		s.mu.Unlock()
		stats.RecordUnsubscribe()
	})

	return s
}

// Next delivers value unless the subscriber is stopped.
func (s *Subscriber[T]) Next(value T) {
	s.emit(nextNotification(value))
}

// Error delivers err and tears the subscription down.
func (s *Subscriber[T]) Error(err error) {
	s.emit(Notification[T]{Kind: KindError, Err: err})
}

// Complete delivers completion and tears the subscription down.
func (s *Subscriber[T]) Complete() {
	s.emit(Notification[T]{Kind: KindComplete})
}

func (s *Subscriber[T]) emit(n Notification[T]) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	if n.Kind != KindNext {
		s.stopped = true
	}
	if s.emitting {
		s.queue = append(s.queue, n)
		s.mu.Unlock()
		return
	}
	s.emitting = true
	s.mu.Unlock()

	s.deliver(n)
	s.drain()
}

// preload queues ns ahead of any concurrent notification and claims the
// emitter role. The caller must call drain afterwards.
func (s *Subscriber[T]) preload(ns []Notification[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range ns {
		if s.stopped {
			break
		}
		if n.Kind != KindNext {
			s.stopped = true
		}
		s.queue = append(s.queue, n)
	}
	s.emitting = true
}

func (s *Subscriber[T]) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.emitting = false
			s.queue = nil
			s.mu.Unlock()
			return
		}
		n := s.queue[0]
		s.queue[0] = Notification[T]{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.deliver(n)
	}
}

func (s *Subscriber[T]) deliver(n Notification[T]) {
	if s.Closed() {
		return
	}
	settings().stats().RecordNotification(n.Kind.String())

	switch n.Kind {
	case KindNext:
		if err := protect(func() { s.dest.Next(n.Value) }); err != nil {
			s.fail(err)
		}
	case KindError:
		if err := protect(func() { s.dest.Error(n.Err) }); err != nil {
			reportUnhandled(err)
		}
		s.Unsubscribe()
	case KindComplete:
		if err := protect(func() { s.dest.Complete() }); err != nil {
			reportUnhandled(err)
		}
		s.Unsubscribe()
	}
}

// fail terminates the subscriber with err from inside the emit loop.
func (s *Subscriber[T]) fail(err error) {
	s.mu.Lock()
	s.stopped = true
	s.queue = nil
	s.mu.Unlock()

	if perr := protect(func() { s.dest.Error(err) }); perr != nil {
		reportUnhandled(perr)
	}
	s.Unsubscribe()
}

// Producer pushes values into a Subscriber and returns the Teardown that
// releases what it acquired. Synchronous producers should check Closed
// between values so that downstream cancellation stops them.
type Producer[T any] func(subscriber *Subscriber[T]) Teardown

// Observable is a lazy, re-runnable description of a push-based sequence.
//
// Observable values are immutable and safe to share. Nothing runs until
// Subscribe is called; every call runs the producer again (cold). The zero
// Observable completes immediately.
type Observable[T any] struct {
	producer Producer[T]
}

// Operator transforms an Observable into another of the same type.
type Operator[T any] func(Observable[T]) Observable[T]

// Create returns an Observable running producer on each subscription.
//
// A panic raised by producer is delivered to the subscriber as a
// *PanicError; it never escapes Subscribe.
func Create[T any](producer Producer[T]) Observable[T] {
	return Observable[T]{producer: producer}
}

// Subscribe runs the producer for observer and returns the subscription.
func (o Observable[T]) Subscribe(observer Observer[T]) *Subscription {
	s := newSubscriber(observer)
	o.run(s)

	return s.Subscription
}

// SubscribeFunc subscribes with optional callbacks. See ObserverFuncs for the
// handling of a nil onError.
func (o Observable[T]) SubscribeFunc(onNext func(T), onError func(error), onComplete func()) *Subscription {
	return o.Subscribe(ObserverFuncs[T]{OnNext: onNext, OnError: onError, OnComplete: onComplete})
}

// Pipe applies ops from left to right.
func (o Observable[T]) Pipe(ops ...Operator[T]) Observable[T] {
	for _, op := range ops {
		o = op(o)
	}

	return o
}

func (o Observable[T]) run(s *Subscriber[T]) {
	if o.producer == nil {
		s.Complete()
		return
	}

	var td Teardown
	if err := protect(func() { td = o.producer(s) }); err != nil {
		s.Error(err)
	}
	s.Add(td)
}

// subscribeChild subscribes observer to o as a child of parent. The child is
// attached before the producer runs, so tearing parent down from inside a
// synchronous emission stops the producer. A terminated child detaches itself.
func subscribeChild[T any](parent *Subscription, o Observable[T], observer Observer[T]) *Subscriber[T] {
	s := newSubscriber(observer)
	parent.AddChild(s.Subscription)
	s.Add(func() { parent.Remove(s.Subscription) })
	o.run(s)

	return s
}

// observe subscribes to src on behalf of dst. Errors are forwarded to dst;
// completion is forwarded unless onComplete is given.
func observe[In, Out any](dst *Subscriber[Out], src Observable[In], onNext func(In), onComplete func()) *Subscriber[In] {
	if onComplete == nil {
		onComplete = dst.Complete
	}

	return subscribeChild(dst.Subscription, src, ObserverFuncs[In]{
		OnNext:     onNext,
		OnError:    dst.Error,
		OnComplete: onComplete,
	})
}

// serializer runs actions one at a time in submission order. An action
// submitted while another one runs, from any goroutine, is queued and run by
// the goroutine already draining. A panicking action is reported to fail.
type serializer struct {
	mu       sync.Mutex
	queue    []func()
	draining bool
	fail     func(error)
}

func (s *serializer) do(action func()) {
	s.mu.Lock()
	s.queue = append(s.queue, action)
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true

	for len(s.queue) > 0 {
		next := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.mu.Unlock()

		if err := protect(next); err != nil {
			s.fail(err)
		}

		s.mu.Lock()
	}
	s.draining = false
	s.mu.Unlock()
}
