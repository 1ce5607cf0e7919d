// Package natsrx bridges NATS core subjects and rxfn Observables.
//
// Subscribing to the Observable returned by Subscribe creates a NATS
// subscription; unsubscribing removes it. Publish is an operator: it sends
// every value of its source to a subject and forwards it downstream.
package natsrx

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/KasperOmsK/rxfn"
)

// Subscribe returns an Observable of the messages published on subject.
//
// Each subscription to the Observable owns its own NATS subscription, so two
// observers both receive every message. The Observable never completes on its
// own; it errors if the NATS subscription cannot be created.
func Subscribe(nc *nats.Conn, subject string) rxfn.Observable[*nats.Msg] {
	return QueueSubscribe(nc, subject, "")
}

// QueueSubscribe is like Subscribe, but the NATS subscriptions join queue
// group queue: each message is delivered to one member of the group. An empty
// queue means a plain subscription.
func QueueSubscribe(nc *nats.Conn, subject, queue string) rxfn.Observable[*nats.Msg] {
	return rxfn.Create(func(s *rxfn.Subscriber[*nats.Msg]) rxfn.Teardown {
		handler := func(m *nats.Msg) { s.Next(m) }

		var (
			sub *nats.Subscription
			err error
		)
		if queue == "" {
			sub, err = nc.Subscribe(subject, handler)
		} else {
			sub, err = nc.QueueSubscribe(subject, queue, handler)
		}
		if err != nil {
			s.Error(fmt.Errorf("subscribe to %q: %w", subject, err))
			return nil
		}

		return func() {
			_ = sub.Unsubscribe()
		}
	})
}

// Publish sends every value of src to subject and forwards it once sent. A
// publish failure terminates the result with the error.
func Publish(nc *nats.Conn, subject string, src rxfn.Observable[[]byte]) rxfn.Observable[[]byte] {
	return rxfn.TryMap(src, func(data []byte) ([]byte, error) {
		if err := nc.Publish(subject, data); err != nil {
			return nil, fmt.Errorf("publish to %q: %w", subject, err)
		}

		return data, nil
	})
}

// Request sends data to subject and emits the reply, then completes.
//
// The request runs on its own goroutine when subscribed and is cancelled on
// unsubscribe. It errors with nats.ErrNoResponders when nobody listens on
// subject and with context.DeadlineExceeded when no reply arrives within
// timeout.
func Request(nc *nats.Conn, subject string, data []byte, timeout time.Duration) rxfn.Observable[*nats.Msg] {
	return rxfn.FromFunc(func(ctx context.Context) (*nats.Msg, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		msg, err := nc.RequestWithContext(ctx, subject, data)
		if err != nil {
			return nil, fmt.Errorf("request to %q: %w", subject, err)
		}

		return msg, nil
	})
}
