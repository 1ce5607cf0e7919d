package rxfn

import (
	"cmp"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"
)

type subjectMode int

const (
	modePublish subjectMode = iota
	modeReplay
	modeBehavior
	modeAsync
)

// Subject is both an Observer and a hot Observable: every notification it
// receives is multicast to the observers subscribed at that moment.
//
// The constructor decides what a late subscriber sees. NewSubject forwards
// only future notifications, NewReplaySubject replays buffered values,
// NewBehaviorSubject replays the current value, NewAsyncSubject emits only the
// last value, on completion. Every kind replays the terminal notification to
// subscribers arriving after it.
//
// Subject methods are safe for concurrent use. Delivery to the observers
// happens outside the internal lock, in subscription order.
type Subject[T any] struct {
	mode  subjectMode
	limit int

	observers *xsync.Map[uint64, *Subscriber[T]]
	stopped   atomic.Bool

	mu     sync.Mutex
	nextID uint64
	err    error
	values []T
}

// Compile-time assertion that Subject implements Observer.
var _ Observer[int] = (*Subject[int])(nil)

func newSubject[T any](mode subjectMode, limit int) *Subject[T] {
	return &Subject[T]{
		mode:      mode,
		limit:     limit,
		observers: xsync.NewMap[uint64, *Subscriber[T]](),
	}
}

// NewSubject returns a Subject forwarding only the notifications that happen
// while an observer is subscribed.
func NewSubject[T any]() *Subject[T] {
	return newSubject[T](modePublish, 0)
}

// NewReplaySubject returns a Subject that replays the last size values to
// every new subscriber. A size <= 0 buffers every value.
func NewReplaySubject[T any](size int) *Subject[T] {
	return newSubject[T](modeReplay, size)
}

// NewBehaviorSubject returns a Subject holding a current value, initially
// initial, which every new subscriber receives first.
func NewBehaviorSubject[T any](initial T) *Subject[T] {
	s := newSubject[T](modeBehavior, 1)
	s.values = []T{initial}

	return s
}

// NewAsyncSubject returns a Subject that emits only its last value, and only
// once it completes. An error discards the value.
func NewAsyncSubject[T any]() *Subject[T] {
	return newSubject[T](modeAsync, 1)
}

// Next records value according to the kind of s and multicasts it. Calls after
// Error or Complete are ignored.
func (s *Subject[T]) Next(value T) {
	s.mu.Lock()
	if s.stopped.Load() {
		s.mu.Unlock()
		return
	}
	if s.mode != modePublish {
		s.values = append(s.values, value)
		if s.limit > 0 && len(s.values) > s.limit {
			s.values = slices.Delete(s.values, 0, len(s.values)-s.limit)
		}
	}
	if s.mode == modeAsync {
		s.mu.Unlock()
		return
	}
	targets := s.snapshot()
	s.mu.Unlock()

	for _, sub := range targets {
		sub.Next(value)
	}
}

// Error multicasts err and stops s.
func (s *Subject[T]) Error(err error) {
	s.terminate(err)
}

// Complete multicasts completion and stops s.
func (s *Subject[T]) Complete() {
	s.terminate(nil)
}

func (s *Subject[T]) terminate(err error) {
	s.mu.Lock()
	if s.stopped.Load() {
		s.mu.Unlock()
		return
	}
	s.stopped.Store(true)
	s.err = err
	targets := s.snapshot()
	s.observers.Clear()
	var last []T
	if s.mode == modeAsync && err == nil {
		last = s.values
	}
	s.mu.Unlock()

	for _, sub := range targets {
		for _, v := range last {
			sub.Next(v)
		}
		if err != nil {
			sub.Error(err)
		} else {
			sub.Complete()
		}
	}
}

// snapshot returns the registered subscribers in subscription order. Callers
// hold s.mu.
func (s *Subject[T]) snapshot() []*Subscriber[T] {
	type entry struct {
		id  uint64
		sub *Subscriber[T]
	}
	entries := make([]entry, 0, s.observers.Size())
	s.observers.Range(func(id uint64, sub *Subscriber[T]) bool {
		entries = append(entries, entry{id, sub})
		return true
	})
	slices.SortFunc(entries, func(a, b entry) int { return cmp.Compare(a.id, b.id) })

	out := make([]*Subscriber[T], len(entries))
	for i, e := range entries {
		out[i] = e.sub
	}

	return out
}

// attach registers sub and replays what its kind of Subject owes a newcomer.
// The replay is queued on sub while s.mu is held, so no live notification can
// overtake it.
func (s *Subject[T]) attach(sub *Subscriber[T]) {
	s.mu.Lock()
	var replay []Notification[T]
	stopped := s.stopped.Load()

	switch s.mode {
	case modeReplay:
		for _, v := range s.values {
			replay = append(replay, nextNotification(v))
		}
	case modeBehavior:
		if !stopped {
			replay = append(replay, nextNotification(s.values[len(s.values)-1]))
		}
	case modeAsync:
		if stopped && s.err == nil {
			for _, v := range s.values {
				replay = append(replay, nextNotification(v))
			}
		}
	}

	if stopped {
		replay = append(replay, terminalNotification[T](s.err))
	} else {
		s.nextID++
		id := s.nextID
		s.observers.Store(id, sub)
		sub.Add(func() { s.observers.Delete(id) })
	}
	sub.preload(replay)
	s.mu.Unlock()

	sub.drain()
}

// Subscribe attaches observer to s.
func (s *Subject[T]) Subscribe(observer Observer[T]) *Subscription {
	sub := newSubscriber(observer)
	s.attach(sub)

	return sub.Subscription
}

// SubscribeFunc attaches optional callbacks to s.
func (s *Subject[T]) SubscribeFunc(onNext func(T), onError func(error), onComplete func()) *Subscription {
	return s.Subscribe(ObserverFuncs[T]{OnNext: onNext, OnError: onError, OnComplete: onComplete})
}

// AsObservable returns an Observable subscribing to s, hiding its Observer
// side.
func (s *Subject[T]) AsObservable() Observable[T] {
	return Create(func(sub *Subscriber[T]) Teardown {
		s.attach(sub)
		return nil
	})
}

// ObserverCount returns the number of currently subscribed observers.
func (s *Subject[T]) ObserverCount() int {
	return s.observers.Size()
}

// IsStopped reports whether s received Error or Complete.
func (s *Subject[T]) IsStopped() bool {
	return s.stopped.Load()
}

// Err returns the error s was stopped with, if any.
func (s *Subject[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.err
}

// Value returns the most recent value held by s: the current value of a
// behavior subject, the newest buffered value of a replay subject, or the
// last value received by an async subject. It reports false when there is
// none, which is always the case for a plain Subject.
func (s *Subject[T]) Value() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.values) == 0 {
		var zero T
		return zero, false
	}

	return s.values[len(s.values)-1], true
}
