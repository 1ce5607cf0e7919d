package types

// MetricsCollector defines methods for recording runtime metrics.
//
// Implementations must be non-blocking and safe for concurrent use: they are
// called from producer goroutines, scheduler loops and user goroutines alike.
type MetricsCollector interface {
	SubscriptionMetrics
	MulticastMetrics
}

// SubscriptionMetrics defines metrics for the subscription lifecycle.
type SubscriptionMetrics interface {
	// RecordSubscribe records a new subscriber being attached to a producer.
	RecordSubscribe()

	// RecordUnsubscribe records a subscription being torn down.
	RecordUnsubscribe()

	// RecordNotification records a notification delivered to an observer.
	//
	// Parameters:
	//   - kind: "next", "error" or "complete"
	RecordNotification(kind string)

	// RecordUnhandledError records an error that reached a subscriber with
	// no error callback.
	RecordUnhandledError()
}

// MulticastMetrics defines metrics for shared executions and recovery.
type MulticastMetrics interface {
	// RecordConnect records a connectable observable connecting to its source.
	RecordConnect()

	// RecordRetry records a resubscription performed by a retry operator.
	//
	// Parameters:
	//   - operator: name of the operator that resubscribed ("retry", "retry_when", "retry_backoff")
	RecordRetry(operator string)
}
