// Package hooks provides the default no-op hook set.
package hooks

import (
	"context"

	"github.com/davidjurgens/potato-sub003/types"
)

// NopHooks implements Hooks with no-op callbacks.
//
// This is the default implementation used when no custom hooks are provided,
// eliminating the need for nil checks throughout the codebase.
type NopHooks struct{}

// Compile-time assertions that NopHooks implements hook callbacks.
var (
	_ func(context.Context, string, string) error = (*NopHooks)(nil).OnAssigned
	_ func(context.Context, string) error         = (*NopHooks)(nil).OnNoWork
	_ func(context.Context, int64) error          = (*NopHooks)(nil).OnReclusterRequested
	_ func(context.Context, string, error) error  = (*NopHooks)(nil).OnStrategyFault
	_ func(context.Context, error) error          = (*NopHooks)(nil).OnError
)

// NewNop creates a new no-op hooks implementation.
//
// Returns:
//   - types.Hooks: Hooks with no-op implementations
func NewNop() types.Hooks {
	h := &NopHooks{}
	return types.Hooks{
		OnAssigned:           h.OnAssigned,
		OnNoWork:             h.OnNoWork,
		OnReclusterRequested: h.OnReclusterRequested,
		OnStrategyFault:      h.OnStrategyFault,
		OnError:              h.OnError,
	}
}

// OnAssigned is a no-op implementation.
func (h *NopHooks) OnAssigned(_ context.Context, _, _ string) error {
	return nil
}

// OnNoWork is a no-op implementation.
func (h *NopHooks) OnNoWork(_ context.Context, _ string) error {
	return nil
}

// OnReclusterRequested is a no-op implementation.
func (h *NopHooks) OnReclusterRequested(_ context.Context, _ int64) error {
	return nil
}

// OnStrategyFault is a no-op implementation.
func (h *NopHooks) OnStrategyFault(_ context.Context, _ string, _ error) error {
	return nil
}

// OnError is a no-op implementation.
func (h *NopHooks) OnError(_ context.Context, _ error) error {
	return nil
}
