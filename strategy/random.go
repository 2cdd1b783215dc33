package strategy

import (
	"math/rand/v2"
	"sync"

	"github.com/zeebo/xxh3"

	"github.com/davidjurgens/potato-sub003/types"
)

// Random picks uniformly among eligible items.
//
// The random stream is seeded per run, so two runs with the same seed and the
// same request sequence produce the same assignments.
type Random struct {
	rng *lockedRand
}

// Compile-time assertion that Random implements SelectionStrategy.
var _ types.SelectionStrategy = (*Random)(nil)

// NewRandom creates a random strategy seeded from the run seed.
//
// Parameters:
//   - seed: run seed; each strategy derives its own stream from it
//
// Returns:
//   - *Random: initialized strategy
func NewRandom(seed uint64) *Random {
	return &Random{rng: newLockedRand(seed, NameRandom)}
}

// SelectNext returns a uniformly chosen eligible item.
func (r *Random) SelectNext(_ types.UserView, eligible []types.ItemView) (string, error) {
	if len(eligible) == 0 {
		return "", types.ErrNoEligibleItems
	}

	return eligible[r.rng.IntN(len(eligible))].ID, nil
}

// lockedRand is a mutex-guarded PCG stream. Strategy objects are shared
// across concurrent NextInstance calls, and rand.Rand itself is not
// goroutine-safe.
type lockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// newLockedRand derives a per-strategy stream from the run seed and the
// strategy name, so strategies sharing a seed do not consume each other's
// sequence.
func newLockedRand(seed uint64, name string) *lockedRand {
	return &lockedRand{rng: rand.New(rand.NewPCG(seed, xxh3.HashString(name)))}
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.rng.IntN(n)
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.rng.Float64()
}
