// Package metrics provides MetricsCollector implementations.
package metrics

import "github.com/davidjurgens/potato-sub003/types"

// NopMetrics implements a no-op metrics collector.
//
// All metrics are discarded. Useful for testing or when external metrics
// collection is used.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
//
// Returns:
//   - *NopMetrics: A new no-op metrics collector instance
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// CoordinatorMetrics implementation

// RecordAssignment discards the assignment metric.
func (n *NopMetrics) RecordAssignment(_ /* strategy */ string, _ /* duration */ float64) {
	// No-op
}

// RecordNoWork discards the no-work metric.
func (n *NopMetrics) RecordNoWork(_ /* reason */ string) {
	// No-op
}

// RecordReservationRetry discards the reservation retry metric.
func (n *NopMetrics) RecordReservationRetry() {
	// No-op
}

// RecordStrategyFault discards the strategy fault metric.
func (n *NopMetrics) RecordStrategyFault(_ /* strategy */ string) {
	// No-op
}

// RecordRandomFallback discards the random fallback metric.
func (n *NopMetrics) RecordRandomFallback(_ /* strategy */ string) {
	// No-op
}

// RecordOutcome discards the outcome metric.
func (n *NopMetrics) RecordOutcome(_ /* outcome */ string) {
	// No-op
}

// StoreMetrics implementation

// SetItemsInFlight discards the in-flight gauge.
func (n *NopMetrics) SetItemsInFlight(_ /* count */ int) {
	// No-op
}

// RecordSweep discards the sweep metric.
func (n *NopMetrics) RecordSweep(_ /* reclaimed */ int) {
	// No-op
}

// RecordInvariantViolation discards the invariant violation metric.
func (n *NopMetrics) RecordInvariantViolation(_ /* itemID */ string) {
	// No-op
}

// SignalMetrics implementation

// RecordSignalApplied discards the signal applied metric.
func (n *NopMetrics) RecordSignalApplied(_ /* kind */ string, _ /* count */ int) {
	// No-op
}

// RecordStaleSignal discards the stale signal metric.
func (n *NopMetrics) RecordStaleSignal(_ /* kind */ string) {
	// No-op
}

// RecordSignalDropped discards the dropped signal metric.
func (n *NopMetrics) RecordSignalDropped(_ /* kind */ string, _ /* count */ int) {
	// No-op
}
