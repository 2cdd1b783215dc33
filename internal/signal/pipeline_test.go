package signal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/davidjurgens/potato-sub003/internal/logger"
	"github.com/davidjurgens/potato-sub003/test/testutil"
	"github.com/davidjurgens/potato-sub003/types"
)

type fakeItemSink struct {
	mu       sync.Mutex
	labels   map[string][][]string
	clusters map[string]int
	scores   map[string]map[string]float64
	known    map[string]bool
}

func newFakeItemSink(itemIDs ...string) *fakeItemSink {
	known := make(map[string]bool, len(itemIDs))
	for _, id := range itemIDs {
		known[id] = true
	}

	return &fakeItemSink{
		labels:   make(map[string][][]string),
		clusters: make(map[string]int),
		scores:   map[string]map[string]float64{"uncertainty": {}, "confidence": {}},
		known:    known,
	}
}

func (f *fakeItemSink) IngestLabels(itemID string, labels []string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.known[itemID] {
		return false
	}
	f.labels[itemID] = append(f.labels[itemID], labels)

	return true
}

func (f *fakeItemSink) SetCluster(itemID string, clusterID int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.known[itemID] {
		return false
	}
	f.clusters[itemID] = clusterID

	return true
}

func (f *fakeItemSink) SetUncertainty(itemID string, score float64) bool {
	return f.setScore("uncertainty", itemID, score)
}

func (f *fakeItemSink) SetLLMConfidence(itemID string, score float64) bool {
	return f.setScore("confidence", itemID, score)
}

func (f *fakeItemSink) setScore(kind, itemID string, score float64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.known[itemID] {
		return false
	}
	f.scores[kind][itemID] = score

	return true
}

func (f *fakeItemSink) clusterOf(itemID string) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.clusters[itemID]

	return id, ok
}

type fakeExpertiseSink struct {
	mu      sync.Mutex
	applies []types.ExpertiseUpdate
}

func (f *fakeExpertiseSink) Apply(userID string, scores map[string]float64, _ float64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applies = append(f.applies, types.ExpertiseUpdate{UserID: userID, Scores: scores})

	return len(scores), nil
}

func (f *fakeExpertiseSink) applied() []types.ExpertiseUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]types.ExpertiseUpdate(nil), f.applies...)
}

func newTestPipeline(t *testing.T, items *fakeItemSink, profiles *fakeExpertiseSink, cfg Config) (*Pipeline, *testutil.CountingMetrics) {
	t.Helper()

	m := testutil.NewCountingMetrics()
	cfg.Logger = logger.NewNop()
	cfg.Metrics = m
	p := New(items, profiles, cfg)
	require.NoError(t, p.Start(context.Background()))
	t.Cleanup(func() { _ = p.Stop() })

	return p, m
}

func TestPipelineLifecycle(t *testing.T) {
	t.Run("double start and double stop are rejected", func(t *testing.T) {
		p := New(newFakeItemSink(), &fakeExpertiseSink{}, Config{
			Logger:  logger.NewNop(),
			Metrics: testutil.NewCountingMetrics(),
		})

		require.NoError(t, p.Start(context.Background()))
		require.ErrorIs(t, p.Start(context.Background()), types.ErrAlreadyStarted)
		require.NoError(t, p.Stop())
		require.ErrorIs(t, p.Stop(), types.ErrNotStarted)
	})
}

func TestPipelineLabels(t *testing.T) {
	t.Run("applies labels to known items", func(t *testing.T) {
		items := newFakeItemSink("item-0")
		p, m := newTestPipeline(t, items, &fakeExpertiseSink{}, Config{})

		p.PushLabels(types.LabelUpdate{ItemID: "item-0", UserID: "u1", Labels: []string{"pos"}})

		require.Eventually(t, func() bool {
			applied, _ := m.Snapshot()

			return applied[types.SignalLabels] == 1
		}, time.Second, 5*time.Millisecond)
	})
}

func TestPipelineClusters(t *testing.T) {
	t.Run("stale generation is discarded", func(t *testing.T) {
		items := newFakeItemSink("item-0", "item-1")
		p, m := newTestPipeline(t, items, &fakeExpertiseSink{}, Config{})

		p.PushClusters(types.ClusterUpdate{
			Assignments: map[string]int{"item-0": 1, "item-1": 2},
			Generation:  2,
		})
		require.Eventually(t, func() bool {
			applied, _ := m.Snapshot()

			return applied[types.SignalClusters] == 2
		}, time.Second, 5*time.Millisecond)
		require.Equal(t, int64(2), p.Generation())

		// a slower job finishing late must not roll assignments back
		p.PushClusters(types.ClusterUpdate{
			Assignments: map[string]int{"item-0": 9},
			Generation:  1,
		})
		require.Eventually(t, func() bool {
			_, stale := m.Snapshot()

			return stale[types.SignalClusters] == 1
		}, time.Second, 5*time.Millisecond)

		id, ok := items.clusterOf("item-0")
		require.True(t, ok)
		require.Equal(t, 1, id)
		require.Equal(t, int64(2), p.Generation())
	})

	t.Run("newer generation replaces assignments", func(t *testing.T) {
		items := newFakeItemSink("item-0")
		p, m := newTestPipeline(t, items, &fakeExpertiseSink{}, Config{})

		p.PushClusters(types.ClusterUpdate{Assignments: map[string]int{"item-0": 1}, Generation: 1})
		p.PushClusters(types.ClusterUpdate{Assignments: map[string]int{"item-0": 5}, Generation: 2})

		require.Eventually(t, func() bool {
			applied, _ := m.Snapshot()

			return applied[types.SignalClusters] == 2
		}, time.Second, 5*time.Millisecond)

		id, _ := items.clusterOf("item-0")
		require.Equal(t, 5, id)
	})
}

func TestPipelineExpertise(t *testing.T) {
	t.Run("applies on arrival without a flush interval", func(t *testing.T) {
		profiles := &fakeExpertiseSink{}
		p, _ := newTestPipeline(t, newFakeItemSink(), profiles, Config{})

		p.PushExpertise(types.ExpertiseUpdate{UserID: "u1", Scores: map[string]float64{"science": 0.8}})

		require.Eventually(t, func() bool {
			return len(profiles.applied()) == 1
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("batches per user within the flush window", func(t *testing.T) {
		profiles := &fakeExpertiseSink{}
		p, _ := newTestPipeline(t, newFakeItemSink(), profiles, Config{
			ExpertiseFlushInterval: 20 * time.Millisecond,
		})

		p.PushExpertise(types.ExpertiseUpdate{UserID: "u1", Scores: map[string]float64{"science": 0.6}})
		p.PushExpertise(types.ExpertiseUpdate{UserID: "u1", Scores: map[string]float64{"science": 0.9, "economics": 0.4}})

		require.Eventually(t, func() bool {
			return len(profiles.applied()) > 0
		}, time.Second, 5*time.Millisecond)

		applies := profiles.applied()
		require.Len(t, applies, 1)
		require.Equal(t, "u1", applies[0].UserID)
		// the freshest score per category wins inside a window
		require.InDelta(t, 0.9, applies[0].Scores["science"], 1e-9)
		require.InDelta(t, 0.4, applies[0].Scores["economics"], 1e-9)
	})

	t.Run("stop flushes pending batches", func(t *testing.T) {
		profiles := &fakeExpertiseSink{}
		m := testutil.NewCountingMetrics()
		p := New(newFakeItemSink(), profiles, Config{
			ExpertiseFlushInterval: time.Hour,
			Logger:                 logger.NewNop(),
			Metrics:                m,
		})
		require.NoError(t, p.Start(context.Background()))

		p.PushExpertise(types.ExpertiseUpdate{UserID: "u1", Scores: map[string]float64{"science": 0.8}})

		// wait for the update to be picked up off the channel
		require.Eventually(t, func() bool {
			return len(p.expertiseCh) == 0
		}, time.Second, time.Millisecond)

		require.NoError(t, p.Stop())
		require.Len(t, profiles.applied(), 1)
	})
}

func TestPipelineBackpressure(t *testing.T) {
	t.Run("full queue drops instead of blocking", func(t *testing.T) {
		m := testutil.NewCountingMetrics()
		// never started, so nothing drains the channel
		p := New(newFakeItemSink("item-0"), &fakeExpertiseSink{}, Config{
			QueueSize: 1,
			Logger:    logger.NewNop(),
			Metrics:   m,
		})

		p.PushLabels(types.LabelUpdate{ItemID: "item-0", Labels: []string{"a"}})

		done := make(chan struct{})
		go func() {
			p.PushLabels(types.LabelUpdate{ItemID: "item-0", Labels: []string{"b"}})
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("push blocked on a full queue")
		}
		require.Equal(t, 1, m.SignalsDropped[types.SignalLabels])
	})
}
