package strategy

import "github.com/davidjurgens/potato-sub003/types"

// LeastAnnotated picks the eligible item with the fewest committed
// annotations, breaking ties by dataset order. It spreads coverage evenly
// before any item accumulates redundant annotations.
type LeastAnnotated struct{}

// Compile-time assertion that LeastAnnotated implements SelectionStrategy.
var _ types.SelectionStrategy = (*LeastAnnotated)(nil)

// NewLeastAnnotated creates a least-annotated strategy.
func NewLeastAnnotated() *LeastAnnotated {
	return &LeastAnnotated{}
}

// SelectNext returns the eligible item with the lowest annotation count,
// ties broken by the lowest order index.
func (l *LeastAnnotated) SelectNext(_ types.UserView, eligible []types.ItemView) (string, error) {
	if len(eligible) == 0 {
		return "", types.ErrNoEligibleItems
	}

	return leastAnnotatedOf(eligible).ID, nil
}

// leastAnnotatedOf returns the view with the fewest annotations, ties broken
// by dataset order. Callers guarantee a non-empty slice.
func leastAnnotatedOf(views []types.ItemView) types.ItemView {
	best := views[0]
	for _, v := range views[1:] {
		if v.AnnotationCount < best.AnnotationCount ||
			(v.AnnotationCount == best.AnnotationCount && v.OrderIndex < best.OrderIndex) {
			best = v
		}
	}

	return best
}
