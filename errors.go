package assign

import "github.com/davidjurgens/potato-sub003/types"

// Sentinel errors returned by the Engine, re-exported from the types package
// so callers can errors.Is against the root package.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = types.ErrInvalidConfig

	// ErrAlreadyStarted is returned when Start is called on a running engine.
	ErrAlreadyStarted = types.ErrAlreadyStarted

	// ErrNotStarted is returned when Stop is called before Start.
	ErrNotStarted = types.ErrNotStarted

	// ErrStrategyNotFound is returned when the configured assignment
	// strategy is not registered.
	ErrStrategyNotFound = types.ErrStrategyNotFound

	// ErrUnknownItem is returned by read and outcome surfaces for an item
	// that was never loaded.
	ErrUnknownItem = types.ErrUnknownItem

	// ErrUnknownUser is returned by read surfaces for a user the engine has
	// never seen.
	ErrUnknownUser = types.ErrUnknownUser

	// ErrCommitWithoutReserve is returned by RecordOutcome when the item has
	// no outstanding reservation for the user.
	ErrCommitWithoutReserve = types.ErrCommitWithoutReserve
)
