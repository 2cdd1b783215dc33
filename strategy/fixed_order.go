package strategy

import "github.com/davidjurgens/potato-sub003/types"

// FixedOrder walks the dataset in load order, deprioritizing items that
// already have annotations or outstanding reservations. Concurrent users
// sweep forward through the dataset together instead of piling onto the
// first open item; once every item carries the same load the walk wraps to
// the front.
type FixedOrder struct{}

// Compile-time assertion that FixedOrder implements SelectionStrategy.
var _ types.SelectionStrategy = (*FixedOrder)(nil)

// NewFixedOrder creates a fixed-order strategy.
func NewFixedOrder() *FixedOrder {
	return &FixedOrder{}
}

// SelectNext returns the least-loaded eligible item earliest in dataset
// order. Load counts committed annotations and in-flight reservations both,
// so an item someone is working on is not handed out again while an
// untouched item remains.
func (f *FixedOrder) SelectNext(_ types.UserView, eligible []types.ItemView) (string, error) {
	if len(eligible) == 0 {
		return "", types.ErrNoEligibleItems
	}

	best := eligible[0]
	bestLoad := best.AnnotationCount + best.InFlight
	for _, v := range eligible[1:] {
		load := v.AnnotationCount + v.InFlight
		if load < bestLoad || (load == bestLoad && v.OrderIndex < best.OrderIndex) {
			best = v
			bestLoad = load
		}
	}

	return best.ID, nil
}
