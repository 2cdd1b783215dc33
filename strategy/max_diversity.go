package strategy

import "github.com/davidjurgens/potato-sub003/types"

// MaxDiversity picks the eligible item with the highest disagreement score
// (unique labels over total labels among committed annotations).
//
// Ordering at the edges is deliberate and easy to get backwards:
//   - Items with zero annotations carry a disagreement score of 0, so they
//     rank below any item that already has labels.
//   - At equal disagreement the tie-break is LeastAnnotated, which ranks a
//     never-annotated item above one whose unanimous score has decayed to
//     the same value (a unanimous item scores 1/N, falling toward 0 as
//     annotations accumulate).
//
// The net effect: contested items first, then lightly-annotated ones, with
// untouched items ahead of heavily-annotated unanimous ones at the bottom of
// the score range.
type MaxDiversity struct{}

// Compile-time assertion that MaxDiversity implements SelectionStrategy.
var _ types.SelectionStrategy = (*MaxDiversity)(nil)

// NewMaxDiversity creates a max-diversity strategy.
func NewMaxDiversity() *MaxDiversity {
	return &MaxDiversity{}
}

// SelectNext returns the eligible item with the highest disagreement score,
// ties broken by fewest annotations, then dataset order.
func (m *MaxDiversity) SelectNext(_ types.UserView, eligible []types.ItemView) (string, error) {
	if len(eligible) == 0 {
		return "", types.ErrNoEligibleItems
	}

	best := eligible[0]
	for _, v := range eligible[1:] {
		if diversityLess(best, v) {
			best = v
		}
	}

	return best.ID, nil
}

// diversityLess reports whether b should be preferred over a.
func diversityLess(a, b types.ItemView) bool {
	if b.DisagreementScore != a.DisagreementScore {
		return b.DisagreementScore > a.DisagreementScore
	}
	if b.AnnotationCount != a.AnnotationCount {
		return b.AnnotationCount < a.AnnotationCount
	}

	return b.OrderIndex < a.OrderIndex
}
