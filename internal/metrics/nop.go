// Package metrics provides types.MetricsCollector implementations.
package metrics

import "github.com/KasperOmsK/rxfn/types"

// NopMetrics implements a no-op metrics collector.
//
// All metrics are discarded. This is the runtime default.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// RecordSubscribe discards the metric.
func (n *NopMetrics) RecordSubscribe() {}

// RecordUnsubscribe discards the metric.
func (n *NopMetrics) RecordUnsubscribe() {}

// RecordNotification discards the metric.
func (n *NopMetrics) RecordNotification(_ /* kind */ string) {}

// RecordUnhandledError discards the metric.
func (n *NopMetrics) RecordUnhandledError() {}

// RecordConnect discards the metric.
func (n *NopMetrics) RecordConnect() {}

// RecordRetry discards the metric.
func (n *NopMetrics) RecordRetry(_ /* operator */ string) {}
