package types

import "context"

// Hooks defines callbacks for engine lifecycle events.
//
// All hooks are optional and invoked asynchronously in background goroutines
// so they never block the assignment path. The context passed to hooks is the
// engine's lifecycle context and is cancelled during shutdown.
//
// Hook execution behavior:
//   - Hooks run concurrently and may not complete before Stop() returns
//   - Hook errors are logged but never fail engine operations
//
// Implementations should complete quickly, respect context cancellation, and
// be idempotent.
type Hooks struct {
	// OnAssigned is called after an item is reserved and appended to the
	// user's ledger.
	OnAssigned func(ctx context.Context, userID, itemID string) error

	// OnNoWork is called when NextInstance finds nothing for a user.
	OnNoWork func(ctx context.Context, userID string) error

	// OnReclusterRequested is called when a user has drawn from enough
	// cluster buckets that a fresh clustering pass should run. The caller is
	// expected to run the (external) clustering job and feed the result back
	// through OnClusterAssignmentsUpdated with the given generation.
	OnReclusterRequested func(ctx context.Context, generation int64) error

	// OnStrategyFault is called when a strategy panics or returns malformed
	// data and the call degrades to a random pick.
	OnStrategyFault func(ctx context.Context, strategy string, cause error) error

	// OnError is called when a recoverable error occurs off the hot path
	// (sweeper failures, profile persistence errors).
	OnError func(ctx context.Context, err error) error
}
