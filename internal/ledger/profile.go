package ledger

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v4"
)

// neutralScore is the initial expertise for every known category when a
// profile is first created.
const neutralScore = 0.5

// Profiles is the registry of per-user expertise profiles.
//
// A profile is created lazily on first access, initialized to the neutral
// score for all known categories, and lives for the whole run. Scores are
// updated only by the expertise ingestor (never on the request path) and are
// persisted through an optional ProfileDB so they survive restarts.
type Profiles struct {
	categories []string
	db         *ProfileDB

	users *xsync.Map[string, *profile]
}

type profile struct {
	mu      sync.RWMutex
	scores  map[string]float64
	samples map[string]int
}

// NewProfiles creates the registry over the known category set. When db is
// non-nil, persisted scores are loaded and override the neutral defaults.
func NewProfiles(categories []string, db *ProfileDB) (*Profiles, error) {
	p := &Profiles{
		categories: append([]string(nil), categories...),
		db:         db,
		users:      xsync.NewMap[string, *profile](),
	}

	if db != nil {
		rows, err := db.LoadAll()
		if err != nil {
			return nil, err
		}
		for userID, cats := range rows {
			prof := p.profile(userID)
			prof.mu.Lock()
			for cat, row := range cats {
				prof.scores[cat] = row.Score
				prof.samples[cat] = row.Samples
			}
			prof.mu.Unlock()
		}
	}

	return p, nil
}

func (p *Profiles) profile(userID string) *profile {
	prof, ok := p.users.Load(userID)
	if ok {
		return prof
	}

	fresh := &profile{
		scores:  make(map[string]float64, len(p.categories)),
		samples: make(map[string]int, len(p.categories)),
	}
	for _, cat := range p.categories {
		fresh.scores[cat] = neutralScore
	}
	prof, _ = p.users.LoadOrStore(userID, fresh)

	return prof
}

// Scores returns a copy of the user's expertise scores, creating a neutral
// profile on first access.
func (p *Profiles) Scores(userID string) map[string]float64 {
	prof := p.profile(userID)
	prof.mu.RLock()
	defer prof.mu.RUnlock()

	out := make(map[string]float64, len(prof.scores))
	for cat, s := range prof.scores {
		out[cat] = s
	}

	return out
}

// Apply blends recomputed consensus scores into the user's profile:
//
//	scorefinal = old + learningRate*(new - old)
//
// and bumps the per-category sample count used for qualification. Returns
// the number of categories written. Persistence errors are returned after
// the in-memory update; callers treat them as recoverable.
func (p *Profiles) Apply(userID string, scores map[string]float64, learningRate float64) (int, error) {
	prof := p.profile(userID)

	prof.mu.Lock()
	for cat, fresh := range scores {
		old, ok := prof.scores[cat]
		if !ok {
			old = neutralScore
		}
		prof.scores[cat] = old + learningRate*(fresh-old)
		prof.samples[cat]++
	}
	prof.mu.Unlock()

	if p.db == nil {
		return len(scores), nil
	}

	prof.mu.RLock()
	defer prof.mu.RUnlock()
	for cat := range scores {
		if err := p.db.Upsert(userID, cat, prof.scores[cat], prof.samples[cat]); err != nil {
			return len(scores), err
		}
	}

	return len(scores), nil
}

// Qualified returns the categories where the user's score meets threshold
// with at least minQuestions graded samples.
func (p *Profiles) Qualified(userID string, threshold float64, minQuestions int) []string {
	prof := p.profile(userID)
	prof.mu.RLock()
	defer prof.mu.RUnlock()

	var out []string
	for cat, score := range prof.scores {
		if score >= threshold && prof.samples[cat] >= minQuestions {
			out = append(out, cat)
		}
	}

	return out
}
