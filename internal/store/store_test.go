package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/davidjurgens/potato-sub003/internal/logger"
	"github.com/davidjurgens/potato-sub003/internal/metrics"
	"github.com/davidjurgens/potato-sub003/types"
)

func newTestStore(t *testing.T, items []types.Item, maxPerItem int) *Store {
	t.Helper()

	s, err := New(items, Config{
		MaxAnnotationsPerItem: maxPerItem,
		Strict:                true,
		Logger:                logger.NewNop(),
		Metrics:               metrics.NewNop(),
	})
	require.NoError(t, err)

	return s
}

func makeItems(n int) []types.Item {
	items := make([]types.Item, n)
	for i := range items {
		items[i] = types.Item{ID: fmt.Sprintf("item-%d", i)}
	}

	return items
}

func TestNew(t *testing.T) {
	t.Run("rejects duplicate item IDs", func(t *testing.T) {
		_, err := New([]types.Item{{ID: "a"}, {ID: "a"}}, Config{
			MaxAnnotationsPerItem: -1,
			Logger:                logger.NewNop(),
			Metrics:               metrics.NewNop(),
		})
		require.ErrorIs(t, err, types.ErrInvalidConfig)
	})

	t.Run("rejects empty item IDs", func(t *testing.T) {
		_, err := New([]types.Item{{ID: ""}}, Config{
			MaxAnnotationsPerItem: -1,
			Logger:                logger.NewNop(),
			Metrics:               metrics.NewNop(),
		})
		require.ErrorIs(t, err, types.ErrInvalidConfig)
	})

	t.Run("preserves load order as OrderIndex", func(t *testing.T) {
		s := newTestStore(t, []types.Item{{ID: "z"}, {ID: "a"}, {ID: "m"}}, -1)

		views := s.Snapshot(nil, false)
		require.Len(t, views, 3)
		require.Equal(t, "z", views[0].ID)
		require.Equal(t, "a", views[1].ID)
		require.Equal(t, "m", views[2].ID)
	})
}

func TestReserveCommit(t *testing.T) {
	now := time.Now()

	t.Run("reserve then annotated commit increments count", func(t *testing.T) {
		s := newTestStore(t, makeItems(1), 3)

		require.NoError(t, s.Reserve("item-0", "u1", now))
		require.Equal(t, 1, s.InFlight())

		require.NoError(t, s.Commit("item-0", "u1", true))
		require.Equal(t, 0, s.InFlight())

		view, err := s.Summary("item-0")
		require.NoError(t, err)
		require.Equal(t, 1, view.AnnotationCount)
		require.Equal(t, 0, view.InFlight)
	})

	t.Run("abandoned commit releases the slot without counting", func(t *testing.T) {
		s := newTestStore(t, makeItems(1), 1)

		require.NoError(t, s.Reserve("item-0", "u1", now))
		require.NoError(t, s.Commit("item-0", "u1", false))

		view, err := s.Summary("item-0")
		require.NoError(t, err)
		require.Equal(t, 0, view.AnnotationCount)

		// slot reusable after abandon
		require.NoError(t, s.Reserve("item-0", "u2", now))
	})

	t.Run("reserve at capacity returns ErrAtCapacity", func(t *testing.T) {
		s := newTestStore(t, makeItems(1), 2)

		require.NoError(t, s.Reserve("item-0", "u1", now))
		require.NoError(t, s.Reserve("item-0", "u2", now))
		require.ErrorIs(t, s.Reserve("item-0", "u3", now), types.ErrAtCapacity)
	})

	t.Run("annotated items consume capacity permanently", func(t *testing.T) {
		s := newTestStore(t, makeItems(1), 1)

		require.NoError(t, s.Reserve("item-0", "u1", now))
		require.NoError(t, s.Commit("item-0", "u1", true))
		require.ErrorIs(t, s.Reserve("item-0", "u2", now), types.ErrAtCapacity)
	})

	t.Run("unlimited capacity never rejects", func(t *testing.T) {
		s := newTestStore(t, makeItems(1), -1)

		for i := range 100 {
			require.NoError(t, s.Reserve("item-0", fmt.Sprintf("u%d", i), now))
		}
	})

	t.Run("commit without reserve is rejected", func(t *testing.T) {
		s := newTestStore(t, makeItems(1), 3)

		require.ErrorIs(t, s.Commit("item-0", "u1", true), types.ErrCommitWithoutReserve)
	})

	t.Run("double commit of one reservation is rejected", func(t *testing.T) {
		s := newTestStore(t, makeItems(1), 3)

		require.NoError(t, s.Reserve("item-0", "u1", now))
		require.NoError(t, s.Commit("item-0", "u1", true))
		require.ErrorIs(t, s.Commit("item-0", "u1", true), types.ErrCommitWithoutReserve)
	})
}

func TestReserveConcurrent(t *testing.T) {
	t.Run("never exceeds capacity under contention", func(t *testing.T) {
		const (
			maxPerItem = 3
			workers    = 32
		)
		s := newTestStore(t, makeItems(1), maxPerItem)
		now := time.Now()

		var wg sync.WaitGroup
		var mu sync.Mutex
		granted := 0
		for w := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if s.Reserve("item-0", fmt.Sprintf("u%d", w), now) == nil {
					mu.Lock()
					granted++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		require.Equal(t, maxPerItem, granted)
		require.Equal(t, maxPerItem, s.InFlight())
	})

	t.Run("interleaved reserve and commit keeps totals consistent", func(t *testing.T) {
		const rounds = 200
		s := newTestStore(t, makeItems(4), 2)
		now := time.Now()

		var wg sync.WaitGroup
		errs := make(chan error, 8)
		for w := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				userID := fmt.Sprintf("u%d", w)
				for r := range rounds {
					itemID := fmt.Sprintf("item-%d", r%4)
					if s.Reserve(itemID, userID, now) == nil {
						// strict mode panics if accounting ever drifts
						if err := s.Commit(itemID, userID, false); err != nil {
							errs <- err

							return
						}
					}
				}
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}
		require.Equal(t, 0, s.InFlight())
	})
}

func TestSnapshot(t *testing.T) {
	now := time.Now()

	t.Run("excludes items at capacity", func(t *testing.T) {
		s := newTestStore(t, makeItems(3), 1)

		require.NoError(t, s.Reserve("item-1", "u1", now))

		views := s.Snapshot(nil, false)
		require.Len(t, views, 2)
		require.Equal(t, "item-0", views[0].ID)
		require.Equal(t, "item-2", views[1].ID)
	})

	t.Run("filters by category", func(t *testing.T) {
		items := []types.Item{
			{ID: "a", Categories: []string{"science"}},
			{ID: "b", Categories: []string{"economics"}},
			{ID: "c"},
		}
		s := newTestStore(t, items, -1)

		views := s.Snapshot([]string{"science"}, false)
		require.Len(t, views, 1)
		require.Equal(t, "a", views[0].ID)

		views = s.Snapshot([]string{"science"}, true)
		require.Len(t, views, 2)
	})

	t.Run("carries signal fields", func(t *testing.T) {
		s := newTestStore(t, makeItems(1), -1)

		require.True(t, s.SetCluster("item-0", 7))
		require.True(t, s.SetUncertainty("item-0", 0.9))
		require.True(t, s.SetLLMConfidence("item-0", 0.2))

		views := s.Snapshot(nil, false)
		require.Len(t, views, 1)
		require.True(t, views[0].HasCluster)
		require.Equal(t, 7, views[0].ClusterID)
		require.True(t, views[0].HasUncertainty)
		require.InDelta(t, 0.9, views[0].Uncertainty, 1e-9)
		require.True(t, views[0].HasLLMConfidence)
		require.InDelta(t, 0.2, views[0].LLMConfidence, 1e-9)
	})
}

func TestExpiredReservations(t *testing.T) {
	t.Run("returns only reservations older than ttl", func(t *testing.T) {
		s := newTestStore(t, makeItems(2), -1)
		base := time.Now()

		require.NoError(t, s.Reserve("item-0", "u1", base.Add(-time.Hour)))
		require.NoError(t, s.Reserve("item-1", "u2", base))

		expired := s.ExpiredReservations(30*time.Minute, base)
		require.Len(t, expired, 1)
		require.Equal(t, "item-0", expired[0].ItemID)
		require.Equal(t, "u1", expired[0].UserID)
	})

	t.Run("sweeper and late submit resolve exactly once", func(t *testing.T) {
		s := newTestStore(t, makeItems(1), 1)
		base := time.Now()

		require.NoError(t, s.Reserve("item-0", "u1", base.Add(-time.Hour)))
		expired := s.ExpiredReservations(30*time.Minute, base)
		require.Len(t, expired, 1)

		// late submit wins the race
		require.NoError(t, s.Commit("item-0", "u1", true))
		// sweeper's commit is then rejected cleanly
		require.ErrorIs(t, s.Commit("item-0", "u1", false), types.ErrCommitWithoutReserve)

		view, err := s.Summary("item-0")
		require.NoError(t, err)
		require.Equal(t, 1, view.AnnotationCount)
		require.Equal(t, 0, view.InFlight)
	})
}

func TestIngestLabels(t *testing.T) {
	t.Run("disagreement is unique labels over total labels", func(t *testing.T) {
		s := newTestStore(t, makeItems(1), -1)

		require.True(t, s.IngestLabels("item-0", []string{"pos"}))
		require.True(t, s.IngestLabels("item-0", []string{"pos"}))
		require.True(t, s.IngestLabels("item-0", []string{"neg"}))

		view, err := s.Summary("item-0")
		require.NoError(t, err)
		require.InDelta(t, 2.0/3.0, view.DisagreementScore, 1e-9)
	})

	t.Run("unknown item returns false", func(t *testing.T) {
		s := newTestStore(t, makeItems(1), -1)
		require.False(t, s.IngestLabels("nope", []string{"pos"}))
	})
}

func TestSummary(t *testing.T) {
	t.Run("includes items at capacity", func(t *testing.T) {
		s := newTestStore(t, makeItems(1), 1)

		require.NoError(t, s.Reserve("item-0", "u1", time.Now()))
		require.Empty(t, s.Snapshot(nil, false))

		view, err := s.Summary("item-0")
		require.NoError(t, err)
		require.Equal(t, 1, view.InFlight)
	})

	t.Run("unknown item", func(t *testing.T) {
		s := newTestStore(t, makeItems(1), 1)
		_, err := s.Summary("nope")
		require.ErrorIs(t, err, types.ErrUnknownItem)
	})
}
