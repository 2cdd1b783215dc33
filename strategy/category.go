package strategy

import (
	"fmt"
	"math"
	"sort"

	"github.com/davidjurgens/potato-sub003/types"
)

// Category strategy modes.
const (
	ModeStatic  = "static"
	ModeDynamic = "dynamic"
)

// Category strategy fallback policies, applied when the user qualifies for
// no category at all.
const (
	FallbackUncategorized = "uncategorized"
	FallbackRandom        = "random"
	FallbackNone          = "none"
)

// Category restricts selection to the user's qualified categories.
//
// In static mode the eligible set is filtered to categories the user holds
// qualification for and the pick within them is uniform. In dynamic mode a
// category is drawn first, weighted by the user's expertise scores: every
// category present in the snapshot gets a BaseProbability floor so none is
// ever fully excluded, and the remaining probability mass is split across
// the qualified categories by a softmax over their expertise.
type Category struct {
	mode     string
	fallback string
	baseProb float64
	rng      *lockedRand
}

// Compile-time assertion that Category implements SelectionStrategy.
var _ types.SelectionStrategy = (*Category)(nil)

// NewCategory creates a category strategy.
//
// Parameters:
//   - seed: run seed
//   - mode: "static" or "dynamic"
//   - fallback: "uncategorized", "random", or "none"
//   - baseProb: dynamic-mode probability floor per unqualified category,
//     must satisfy 0 <= baseProb < 1
//
// Returns:
//   - *Category: initialized strategy
//   - error: invalid mode, fallback, or floor
func NewCategory(seed uint64, mode, fallback string, baseProb float64) (*Category, error) {
	if mode == "" {
		mode = ModeStatic
	}
	if mode != ModeStatic && mode != ModeDynamic {
		return nil, fmt.Errorf("category mode %q: %w", mode, types.ErrInvalidConfig)
	}
	if fallback == "" {
		fallback = FallbackNone
	}
	if fallback != FallbackUncategorized && fallback != FallbackRandom && fallback != FallbackNone {
		return nil, fmt.Errorf("category fallback %q: %w", fallback, types.ErrInvalidConfig)
	}
	if baseProb < 0 || baseProb >= 1 {
		return nil, fmt.Errorf("category base probability %v out of [0,1): %w", baseProb, types.ErrInvalidConfig)
	}

	return &Category{
		mode:     mode,
		fallback: fallback,
		baseProb: baseProb,
		rng:      newLockedRand(seed, NameCategory),
	}, nil
}

// SelectNext picks within the user's permitted categories, or applies the
// configured fallback policy when the user qualifies for none.
func (c *Category) SelectNext(user types.UserView, eligible []types.ItemView) (string, error) {
	if len(eligible) == 0 {
		return "", types.ErrNoEligibleItems
	}

	buckets := bucketByCategory(eligible)
	qualified := presentQualified(user, buckets)
	if len(qualified) == 0 {
		return c.fallbackPick(eligible)
	}

	if c.mode == ModeStatic {
		var pool []types.ItemView
		for _, cat := range qualified {
			pool = append(pool, buckets[cat]...)
		}
		pool = dedupeViews(pool)

		return pool[c.rng.IntN(len(pool))].ID, nil
	}

	cat := c.drawCategory(user, buckets, qualified)
	pool := buckets[cat]

	return pool[c.rng.IntN(len(pool))].ID, nil
}

// drawCategory samples a category: each unqualified category present in the
// snapshot gets the baseProb floor, and the qualified categories share the
// remaining mass proportionally to a softmax over their expertise scores.
func (c *Category) drawCategory(user types.UserView, buckets map[string][]types.ItemView, qualified []string) string {
	present := make([]string, 0, len(buckets))
	for cat := range buckets {
		present = append(present, cat)
	}
	sort.Strings(present)

	isQualified := make(map[string]bool, len(qualified))
	for _, cat := range qualified {
		isQualified[cat] = true
	}

	unqualifiedMass := 0.0
	for _, cat := range present {
		if !isQualified[cat] {
			unqualifiedMass += c.baseProb
		}
	}
	// Never let floors starve the qualified categories entirely.
	if unqualifiedMass > 0.9 {
		unqualifiedMass = 0.9
	}
	qualifiedMass := 1.0 - unqualifiedMass

	// Softmax over qualified expertise.
	expSum := 0.0
	exps := make(map[string]float64, len(qualified))
	for _, cat := range qualified {
		e := math.Exp(user.Expertise[cat])
		exps[cat] = e
		expSum += e
	}

	weights := make([]float64, len(present))
	total := 0.0
	for i, cat := range present {
		var w float64
		if isQualified[cat] {
			w = qualifiedMass * exps[cat] / expSum
		} else if len(present) > len(qualified) {
			w = unqualifiedMass / float64(len(present)-len(qualified))
		}
		weights[i] = w
		total += w
	}

	draw := c.rng.Float64() * total
	for i, cat := range present {
		draw -= weights[i]
		if draw < 0 {
			return cat
		}
	}

	return present[len(present)-1]
}

func (c *Category) fallbackPick(eligible []types.ItemView) (string, error) {
	switch c.fallback {
	case FallbackUncategorized:
		var pool []types.ItemView
		for _, v := range eligible {
			if len(v.Categories) == 0 {
				pool = append(pool, v)
			}
		}
		if len(pool) == 0 {
			return "", types.ErrNoEligibleItems
		}

		return pool[c.rng.IntN(len(pool))].ID, nil
	case FallbackRandom:
		return eligible[c.rng.IntN(len(eligible))].ID, nil
	default:
		return "", types.ErrNoEligibleItems
	}
}

// bucketByCategory groups views under each category label they carry. An
// item with several categories appears in several buckets.
func bucketByCategory(views []types.ItemView) map[string][]types.ItemView {
	buckets := make(map[string][]types.ItemView)
	for _, v := range views {
		for _, cat := range v.Categories {
			buckets[cat] = append(buckets[cat], v)
		}
	}

	return buckets
}

// presentQualified returns the user's qualified categories that actually
// have eligible items, sorted for deterministic iteration.
func presentQualified(user types.UserView, buckets map[string][]types.ItemView) []string {
	var out []string
	for _, cat := range user.QualifiedCategories {
		if len(buckets[cat]) > 0 {
			out = append(out, cat)
		}
	}
	sort.Strings(out)

	return out
}

// dedupeViews removes duplicate item IDs introduced by multi-category items
// joining several buckets, preserving first occurrence.
func dedupeViews(views []types.ItemView) []types.ItemView {
	seen := make(map[string]bool, len(views))
	out := views[:0]
	for _, v := range views {
		if seen[v.ID] {
			continue
		}
		seen[v.ID] = true
		out = append(out, v)
	}

	return out
}
