package rxfn

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Teardown releases the resources of one execution. A nil Teardown means
// there is nothing to release.
type Teardown func()

// Subscription is a cancellable handle to an active execution.
//
// A Subscription owns an ordered list of finalizers: Teardown functions and
// child subscriptions. The first call to Unsubscribe marks it closed and runs
// every finalizer exactly once, in the order they were added. Later calls are
// no-ops. Unsubscribe may be called from any goroutine, including from inside
// the callbacks of the observer it feeds.
type Subscription struct {
	mu         sync.Mutex
	closed     bool
	finalizers []finalizer
}

type finalizer struct {
	fn    Teardown
	child *Subscription
}

// NewSubscription returns an open Subscription that runs teardowns, in order,
// when unsubscribed.
func NewSubscription(teardowns ...Teardown) *Subscription {
	s := &Subscription{}
	for _, td := range teardowns {
		s.Add(td)
	}

	return s
}

// Closed reports whether Unsubscribe has been called.
func (s *Subscription) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}

// Add registers td to run on Unsubscribe. If s is already closed, td runs
// immediately on the calling goroutine.
func (s *Subscription) Add(td Teardown) {
	if td == nil {
		return
	}
	s.push(finalizer{fn: td})
}

// AddChild makes child part of s: unsubscribing s unsubscribes child. If s is
// already closed, child is unsubscribed immediately.
func (s *Subscription) AddChild(child *Subscription) {
	if child == nil || child == s {
		return
	}
	s.push(finalizer{child: child})
}

// Remove detaches child from s without unsubscribing it.
func (s *Subscription) Remove(child *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.finalizers = slices.DeleteFunc(s.finalizers, func(f finalizer) bool {
		return f.child == child
	})
}

// Unsubscribe closes s and runs its finalizers. It is idempotent.
//
// Panics raised by finalizers are recovered; every finalizer still runs, and
// the collected failures are reported once as an unhandled error.
func (s *Subscription) Unsubscribe() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	fs := s.finalizers
	s.finalizers = nil
	s.mu.Unlock()

	runFinalizers(fs)
}

func (s *Subscription) push(f finalizer) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		runFinalizers([]finalizer{f})
		return
	}
	s.finalizers = append(s.finalizers, f)
	s.mu.Unlock()
}

func runFinalizers(fs []finalizer) {
	var errs []error
	for _, f := range fs {
		if err := f.run(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		reportUnhandled(fmt.Errorf("teardown failed: %w", errors.Join(errs...)))
	}
}

func (f finalizer) run() error {
	return protect(func() {
		if f.child != nil {
			f.child.Unsubscribe()
			return
		}
		f.fn()
	})
}
