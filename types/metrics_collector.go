package types

// MetricsCollector defines methods for recording operational metrics.
//
// Implementations must be non-blocking and thread-safe; every method is
// called from the request path or from ingestor goroutines.
//
// The interface composes smaller, domain-focused interfaces so components can
// depend on just the slice they record to.
type MetricsCollector interface {
	CoordinatorMetrics
	StoreMetrics
	SignalMetrics
}

// CoordinatorMetrics covers the assignment hot path.
type CoordinatorMetrics interface {
	// RecordAssignment records a completed assignment.
	//
	// Parameters:
	//   - strategy: active strategy name
	//   - duration: time spent in NextInstance, in seconds
	RecordAssignment(strategy string, duration float64)

	// RecordNoWork records a NextInstance call that returned no work.
	//
	// Parameters:
	//   - reason: "user_quota", "exhausted", or "no_eligible"
	RecordNoWork(reason string)

	// RecordReservationRetry records a Reserve that lost a capacity race and
	// triggered reselection.
	RecordReservationRetry()

	// RecordStrategyFault records a strategy panic or malformed result that
	// degraded the call to a random pick.
	RecordStrategyFault(strategy string)

	// RecordRandomFallback records a signal-driven strategy falling back to
	// a random pick because no eligible item carried its signal.
	RecordRandomFallback(strategy string)

	// RecordOutcome records a resolved reservation ("annotated" or
	// "abandoned").
	RecordOutcome(outcome string)
}

// StoreMetrics covers Item Store capacity accounting.
type StoreMetrics interface {
	// SetItemsInFlight sets the current total of outstanding reservations.
	SetItemsInFlight(count int)

	// RecordSweep records one sweeper pass reclaiming expired reservations.
	RecordSweep(reclaimed int)

	// RecordInvariantViolation records a detected capacity invariant breach.
	// This indicates a concurrency bug and must alert.
	RecordInvariantViolation(itemID string)
}

// SignalMetrics covers the ingestor write path.
type SignalMetrics interface {
	// RecordSignalApplied records applied updates for a signal kind.
	RecordSignalApplied(kind string, count int)

	// RecordStaleSignal records a batch discarded by the generation guard.
	RecordStaleSignal(kind string)

	// RecordSignalDropped records updates dropped because the ingestor
	// channel was full.
	RecordSignalDropped(kind string, count int)
}
