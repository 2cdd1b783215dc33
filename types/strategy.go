package types

// SelectionStrategy picks the next item to assign for a user.
//
// The Coordinator calls SelectNext once per new assignment, after the
// idempotent pending-work path and the user quota check. The eligible slice
// already excludes items at annotation capacity; category restriction is the
// strategy's own concern (the category strategy filters by the UserView's
// qualification data, every other strategy treats all eligible items alike).
//
// Strategy implementations must:
//   - Be stateless selectors over the snapshot (all adaptive state lives in
//     the signal ingestors, never in the strategy object)
//   - Be side-effect-free and safe for concurrent calls
//   - Run quickly; O(len(eligible)) scans are the expected shape
//   - Return ErrNoEligibleItems when nothing fits, never an empty ID with a
//     nil error
type SelectionStrategy interface {
	// SelectNext returns the ID of the chosen item.
	//
	// Parameters:
	//   - user: snapshot of the requesting user
	//   - eligible: capacity-filtered item snapshot
	//
	// Returns:
	//   - string: chosen item ID
	//   - error: ErrNoEligibleItems when no item qualifies
	SelectNext(user UserView, eligible []ItemView) (string, error)
}

// FallbackObserver is invoked by signal-driven strategies (active_learning,
// llm_confidence) when they degrade to a random pick because no eligible item
// carries their signal yet. The fallback is a documented behavior, not a
// fault, but it must be visible: the engine wires this to its metrics.
type FallbackObserver func(strategyName string)
