package strategy

import "github.com/davidjurgens/potato-sub003/types"

// LLMConfidence picks the eligible item the LLM batch job was least
// confident about, routing human attention to where the model is weakest.
// Like ActiveLearning, it falls back to a seeded random pick (reported via
// the observer) until confidence scores arrive.
type LLMConfidence struct {
	rng        *lockedRand
	onFallback types.FallbackObserver
}

// Compile-time assertion that LLMConfidence implements SelectionStrategy.
var _ types.SelectionStrategy = (*LLMConfidence)(nil)

// NewLLMConfidence creates an LLM-confidence strategy.
//
// Parameters:
//   - seed: run seed
//   - onFallback: invoked when no eligible item carries a confidence score;
//     may be nil
func NewLLMConfidence(seed uint64, onFallback types.FallbackObserver) *LLMConfidence {
	return &LLMConfidence{
		rng:        newLockedRand(seed, NameLLMConfidence),
		onFallback: onFallback,
	}
}

// SelectNext returns the item with the lowest LLM confidence, ties broken by
// dataset order, or a random pick when the signal is absent everywhere.
func (l *LLMConfidence) SelectNext(_ types.UserView, eligible []types.ItemView) (string, error) {
	if len(eligible) == 0 {
		return "", types.ErrNoEligibleItems
	}

	var best types.ItemView
	found := false
	for _, v := range eligible {
		if !v.HasLLMConfidence {
			continue
		}
		if !found || v.LLMConfidence < best.LLMConfidence ||
			(v.LLMConfidence == best.LLMConfidence && v.OrderIndex < best.OrderIndex) {
			best = v
			found = true
		}
	}
	if found {
		return best.ID, nil
	}

	if l.onFallback != nil {
		l.onFallback(NameLLMConfidence)
	}

	return eligible[l.rng.IntN(len(eligible))].ID, nil
}
