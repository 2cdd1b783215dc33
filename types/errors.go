package types

import "errors"

// Sentinel errors for the assignment engine.
//
// These errors provide type-safe checking via errors.Is() and errors.As().
// Components wrap external errors with context using
// fmt.Errorf("...: %w", err) and reserve the sentinels for known conditions.

// Engine errors - public API errors returned by the Engine.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrAlreadyStarted is returned when Start is called on a running engine.
	ErrAlreadyStarted = errors.New("engine already started")

	// ErrNotStarted is returned when Stop is called before Start.
	ErrNotStarted = errors.New("engine not started")

	// ErrStrategyNotFound is returned when the configured assignment
	// strategy name is not present in the registry.
	ErrStrategyNotFound = errors.New("assignment strategy not found")

	// ErrUnknownUser is returned by read surfaces for a user the engine has
	// never assigned work to.
	ErrUnknownUser = errors.New("unknown user")
)

// Store errors - Item Store capacity accounting.
var (
	// ErrUnknownItem is returned when an operation names an item that was
	// never loaded. A Reserve on an unknown item is a programming error:
	// fatal in tests, logged and rejected in production.
	ErrUnknownItem = errors.New("unknown item")

	// ErrAtCapacity is returned by Reserve when the item has no annotation
	// slots left. Expected under racing coordinators and handled by retry.
	ErrAtCapacity = errors.New("item at annotation capacity")

	// ErrCommitWithoutReserve is returned by Commit when the item has no
	// outstanding reservation. Defends against double-processing.
	ErrCommitWithoutReserve = errors.New("commit without prior reserve")
)

// Strategy errors.
var (
	// ErrNoEligibleItems is returned by SelectNext when no eligible item
	// satisfies the strategy. The Coordinator surfaces it as NoWork, not as
	// a failure.
	ErrNoEligibleItems = errors.New("no eligible items")
)
