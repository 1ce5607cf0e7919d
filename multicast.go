package rxfn

import (
	"sync"
)

// Multicaster is the Subject side of a Connectable: it receives the source's
// notifications and fans them out.
type Multicaster[T any] interface {
	Observer[T]
	AsObservable() Observable[T]
	IsStopped() bool
}

// Connectable shares one execution of a source among many observers. The
// source runs only once Connect is called.
type Connectable[T any] struct {
	src     Observable[T]
	factory func() Multicaster[T]

	mu      sync.Mutex
	subject Multicaster[T]
	conn    *Subscription
}

// Multicast returns a Connectable multicasting src through the Multicaster
// built by factory. A new Multicaster is built on Connect when the previous
// one has stopped.
func Multicast[T any](src Observable[T], factory func() Multicaster[T]) *Connectable[T] {
	return &Connectable[T]{src: src, factory: factory}
}

// Publish is Multicast through a plain Subject.
func Publish[T any](src Observable[T]) *Connectable[T] {
	return Multicast(src, func() Multicaster[T] { return NewSubject[T]() })
}

// PublishReplay is Multicast through a replay Subject of the given size.
func PublishReplay[T any](src Observable[T], size int) *Connectable[T] {
	return Multicast(src, func() Multicaster[T] { return NewReplaySubject[T](size) })
}

// PublishBehavior is Multicast through a behavior Subject starting at initial.
func PublishBehavior[T any](src Observable[T], initial T) *Connectable[T] {
	return Multicast(src, func() Multicaster[T] { return NewBehaviorSubject(initial) })
}

func (c *Connectable[T]) subjectLocked(fresh bool) Multicaster[T] {
	if c.subject == nil || (fresh && c.subject.IsStopped()) {
		c.subject = c.factory()
	}

	return c.subject
}

// Connect subscribes the Multicaster to the source and returns the
// connection. While a connection is open, Connect returns it unchanged. The
// connection closes when the source terminates or when it is unsubscribed.
func (c *Connectable[T]) Connect() *Subscription {
	c.mu.Lock()
	if c.conn != nil && !c.conn.Closed() {
		conn := c.conn
		c.mu.Unlock()

		return conn
	}
	subj := c.subjectLocked(true)
	conn := NewSubscription()
	c.conn = conn
	c.mu.Unlock()

	cfg := settings()
	cfg.stats().RecordConnect()
	cfg.log().Debug("connectable connected")

	conn.Add(func() {
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
		settings().log().Debug("connectable disconnected")
	})

	subscribeChild(conn, c.src, ObserverFuncs[T]{
		OnNext: subj.Next,
		OnError: func(err error) {
			conn.Unsubscribe()
			subj.Error(err)
		},
		OnComplete: func() {
			conn.Unsubscribe()
			subj.Complete()
		},
	})

	return conn
}

// AsObservable returns an Observable subscribing to the current Multicaster.
func (c *Connectable[T]) AsObservable() Observable[T] {
	return Create(func(s *Subscriber[T]) Teardown {
		c.mu.Lock()
		subj := c.subjectLocked(false)
		c.mu.Unlock()

		subj.AsObservable().run(s)

		return nil
	})
}

// Subscribe attaches observer to the current Multicaster without connecting.
func (c *Connectable[T]) Subscribe(observer Observer[T]) *Subscription {
	return c.AsObservable().Subscribe(observer)
}

// RefCount returns an Observable that connects c when its first observer
// subscribes and disconnects it when the last one unsubscribes.
func (c *Connectable[T]) RefCount() Observable[T] {
	var (
		mu   sync.Mutex
		refs int
	)

	return Create(func(s *Subscriber[T]) Teardown {
		c.AsObservable().run(s)
		if s.Closed() {
			return nil
		}

		mu.Lock()
		refs++
		first := refs == 1
		mu.Unlock()

		s.Add(func() {
			mu.Lock()
			refs--
			last := refs == 0
			mu.Unlock()
			if !last {
				return
			}

			c.mu.Lock()
			conn := c.conn
			c.mu.Unlock()
			if conn != nil {
				conn.Unsubscribe()
			}
		})

		if first {
			c.Connect()
		}

		return nil
	})
}

type shareState int

const (
	shareIdle shareState = iota
	shareConnecting
	shareConnected
)

func (s shareState) String() string {
	switch s {
	case shareIdle:
		return "idle"
	case shareConnecting:
		return "connecting"
	case shareConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Share returns an Observable sharing one execution of src among all its
// concurrent subscribers.
//
// The first subscriber starts the execution, the last one to unsubscribe
// stops it. Once src terminates, the next subscriber starts a fresh execution.
func Share[T any](src Observable[T]) Observable[T] {
	var (
		mu      sync.Mutex
		state   shareState
		subject *Subject[T]
		conn    *Subscription
		refs    int
	)

	// reset returns to idle if subj is still the active execution. Callers
	// hold mu.
	reset := func(subj *Subject[T]) *Subscription {
		if subject != subj {
			return nil
		}
		old := conn
		state, subject, conn, refs = shareIdle, nil, nil, 0

		return old
	}

	return Create(func(s *Subscriber[T]) Teardown {
		mu.Lock()
		start := state == shareIdle
		if start {
			subject = NewSubject[T]()
			conn = NewSubscription()
			state = shareConnecting
		}
		subj, c := subject, conn
		refs++
		mu.Unlock()

		subj.attach(s)

		s.Add(func() {
			mu.Lock()
			if subject != subj {
				mu.Unlock()
				return
			}
			refs--
			var drop *Subscription
			if refs == 0 {
				drop = reset(subj)
			}
			mu.Unlock()

			if drop != nil {
				settings().log().Debug("share disconnected", "state", shareIdle.String(), "reason", "no subscribers")
				drop.Unsubscribe()
			}
		})

		if !start {
			return nil
		}

		cfg := settings()
		cfg.stats().RecordConnect()
		cfg.log().Debug("share connected", "state", shareConnecting.String())

		terminate := func() {
			mu.Lock()
			reset(subj)
			mu.Unlock()
			c.Unsubscribe()
		}
		subscribeChild(c, src, ObserverFuncs[T]{
			OnNext: subj.Next,
			OnError: func(err error) {
				terminate()
				subj.Error(err)
			},
			OnComplete: func() {
				terminate()
				subj.Complete()
			},
		})

		mu.Lock()
		if subject == subj && state == shareConnecting {
			state = shareConnected
		}
		mu.Unlock()

		return nil
	})
}
