package strategy

import "github.com/davidjurgens/potato-sub003/types"

// ActiveLearning picks the eligible item with the highest classifier
// uncertainty. Until the first retraining batch lands no item carries the
// signal; the strategy then falls back to a seeded random pick and reports
// the fallback through the observer so it is visible in metrics rather than
// silent.
type ActiveLearning struct {
	rng        *lockedRand
	onFallback types.FallbackObserver
}

// Compile-time assertion that ActiveLearning implements SelectionStrategy.
var _ types.SelectionStrategy = (*ActiveLearning)(nil)

// NewActiveLearning creates an active-learning strategy.
//
// Parameters:
//   - seed: run seed
//   - onFallback: invoked when no eligible item carries an uncertainty
//     score; may be nil
func NewActiveLearning(seed uint64, onFallback types.FallbackObserver) *ActiveLearning {
	return &ActiveLearning{
		rng:        newLockedRand(seed, NameActiveLearning),
		onFallback: onFallback,
	}
}

// SelectNext returns the item with the highest uncertainty, ties broken by
// dataset order, or a random pick when the signal is absent everywhere.
func (a *ActiveLearning) SelectNext(_ types.UserView, eligible []types.ItemView) (string, error) {
	if len(eligible) == 0 {
		return "", types.ErrNoEligibleItems
	}

	var best types.ItemView
	found := false
	for _, v := range eligible {
		if !v.HasUncertainty {
			continue
		}
		if !found || v.Uncertainty > best.Uncertainty ||
			(v.Uncertainty == best.Uncertainty && v.OrderIndex < best.OrderIndex) {
			best = v
			found = true
		}
	}
	if found {
		return best.ID, nil
	}

	if a.onFallback != nil {
		a.onFallback(NameActiveLearning)
	}

	return eligible[a.rng.IntN(len(eligible))].ID, nil
}
