package assign

import "github.com/davidjurgens/potato-sub003/types"

// Re-export types from the types package.
//
// This file provides a stable public API for the engine's core types and
// interfaces via type aliases. Internal packages depend on `types` directly,
// which avoids import cycles with this root package, while users get the
// convenient assign.Item, assign.Logger, etc.
type (
	Item     = types.Item
	ItemView = types.ItemView
	UserView = types.UserView
	Outcome  = types.Outcome
	Progress = types.Progress
)

// Re-export interfaces from the types package for convenience.
type (
	SelectionStrategy = types.SelectionStrategy
	MetricsCollector  = types.MetricsCollector
	Logger            = types.Logger
	Hooks             = types.Hooks
)

// Re-export Outcome constants from the types package.
const (
	OutcomeAnnotated = types.OutcomeAnnotated
	OutcomeAbandoned = types.OutcomeAbandoned
)
