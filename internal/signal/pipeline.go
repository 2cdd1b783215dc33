// Package signal implements the ingestors that merge asynchronously produced
// priority signals into the item store and expertise profiles.
//
// Each signal kind has its own buffered channel consumed by a single writer
// goroutine, so background producers never take the store's capacity locks
// and never race each other: there is exactly one writer per signal type.
// Enqueueing never blocks the request path; when a channel is full the
// update is dropped and counted, and the producer's own cadence bounds the
// resulting staleness. Priority signals are advisory, not safety-critical.
package signal

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/davidjurgens/potato-sub003/types"
)

// ItemSink is the slice of the item store the appliers write to: the derived
// signal fields only, never the capacity-critical counters.
type ItemSink interface {
	IngestLabels(itemID string, labels []string) bool
	SetCluster(itemID string, clusterID int) bool
	SetUncertainty(itemID string, score float64) bool
	SetLLMConfidence(itemID string, score float64) bool
}

// ExpertiseSink receives blended expertise scores.
type ExpertiseSink interface {
	Apply(userID string, scores map[string]float64, learningRate float64) (int, error)
}

// Config configures the Pipeline.
type Config struct {
	// QueueSize is each signal channel's buffer. Defaults to 256.
	QueueSize int

	// LearningRate blends recomputed expertise into existing scores.
	LearningRate float64

	// ExpertiseFlushInterval batches expertise updates; <= 0 applies them on
	// arrival.
	ExpertiseFlushInterval time.Duration

	Logger  types.Logger
	Metrics types.SignalMetrics
}

// Pipeline owns the ingestor goroutines.
type Pipeline struct {
	cfg      Config
	items    ItemSink
	profiles ExpertiseSink

	labelCh       chan types.LabelUpdate
	expertiseCh   chan types.ExpertiseUpdate
	clusterCh     chan types.ClusterUpdate
	uncertaintyCh chan types.ScoreUpdate
	confidenceCh  chan types.ScoreUpdate

	// clusterGen is the highest cluster generation applied so far.
	clusterGen atomic.Int64

	started atomic.Bool
	cancel  context.CancelFunc
	group   *errgroup.Group
}

// New creates a Pipeline writing to the given sinks.
func New(items ItemSink, profiles ExpertiseSink, cfg Config) *Pipeline {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}

	return &Pipeline{
		cfg:           cfg,
		items:         items,
		profiles:      profiles,
		labelCh:       make(chan types.LabelUpdate, cfg.QueueSize),
		expertiseCh:   make(chan types.ExpertiseUpdate, cfg.QueueSize),
		clusterCh:     make(chan types.ClusterUpdate, cfg.QueueSize),
		uncertaintyCh: make(chan types.ScoreUpdate, cfg.QueueSize),
		confidenceCh:  make(chan types.ScoreUpdate, cfg.QueueSize),
	}
}

// Start launches one applier goroutine per signal kind.
func (p *Pipeline) Start(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return types.ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	g, ctx := errgroup.WithContext(ctx)
	p.group = g

	g.Go(func() error { return p.runLabels(ctx) })
	g.Go(func() error { return p.runExpertise(ctx) })
	g.Go(func() error { return p.runClusters(ctx) })
	g.Go(func() error { return p.runScores(ctx, types.SignalUncertainty, p.uncertaintyCh, p.items.SetUncertainty) })
	g.Go(func() error { return p.runScores(ctx, types.SignalLLMConfidence, p.confidenceCh, p.items.SetLLMConfidence) })

	return nil
}

// Stop cancels the appliers and waits for them to drain.
func (p *Pipeline) Stop() error {
	if !p.started.CompareAndSwap(true, false) {
		return types.ErrNotStarted
	}
	p.cancel()

	return p.group.Wait()
}

// Generation returns the highest cluster generation applied so far.
func (p *Pipeline) Generation() int64 {
	return p.clusterGen.Load()
}

// PushLabels enqueues one submitted annotation's labels for disagreement
// recomputation. Fire-and-forget.
func (p *Pipeline) PushLabels(u types.LabelUpdate) {
	push(p, types.SignalLabels, p.labelCh, u)
}

// PushExpertise enqueues recomputed consensus scores for one user.
func (p *Pipeline) PushExpertise(u types.ExpertiseUpdate) {
	push(p, types.SignalExpertise, p.expertiseCh, u)
}

// PushClusters enqueues a recluster result.
func (p *Pipeline) PushClusters(u types.ClusterUpdate) {
	push(p, types.SignalClusters, p.clusterCh, u)
}

// PushUncertainty enqueues classifier uncertainty scores.
func (p *Pipeline) PushUncertainty(u types.ScoreUpdate) {
	push(p, types.SignalUncertainty, p.uncertaintyCh, u)
}

// PushLLMConfidence enqueues LLM confidence scores.
func (p *Pipeline) PushLLMConfidence(u types.ScoreUpdate) {
	push(p, types.SignalLLMConfidence, p.confidenceCh, u)
}

func push[T any](p *Pipeline, kind string, ch chan T, u T) {
	select {
	case ch <- u:
	default:
		p.cfg.Metrics.RecordSignalDropped(kind, 1)
		p.cfg.Logger.Warn("signal queue full, update dropped", "kind", kind)
	}
}

func (p *Pipeline) runLabels(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case u := <-p.labelCh:
			if p.items.IngestLabels(u.ItemID, u.Labels) {
				p.cfg.Metrics.RecordSignalApplied(types.SignalLabels, 1)
			} else {
				p.cfg.Logger.Warn("labels for unknown item", "item", u.ItemID)
			}
		}
	}
}

func (p *Pipeline) runExpertise(ctx context.Context) error {
	// With no flush interval, updates apply on arrival. With one, updates
	// coalesce per user until the ticker fires; the freshest score wins
	// inside a window.
	if p.cfg.ExpertiseFlushInterval <= 0 {
		for {
			select {
			case <-ctx.Done():
				return nil
			case u := <-p.expertiseCh:
				p.applyExpertise(u)
			}
		}
	}

	pending := make(map[string]types.ExpertiseUpdate)
	ticker := time.NewTicker(p.cfg.ExpertiseFlushInterval)
	defer ticker.Stop()

	flush := func() {
		for _, u := range pending {
			p.applyExpertise(u)
		}
		clear(pending)
	}

	for {
		select {
		case <-ctx.Done():
			flush()

			return nil
		case u := <-p.expertiseCh:
			pending[u.UserID] = mergeExpertise(pending[u.UserID], u)
		case <-ticker.C:
			flush()
		}
	}
}

func mergeExpertise(old, fresh types.ExpertiseUpdate) types.ExpertiseUpdate {
	if old.Scores == nil {
		return fresh
	}
	for cat, s := range fresh.Scores {
		old.Scores[cat] = s
	}

	return old
}

func (p *Pipeline) applyExpertise(u types.ExpertiseUpdate) {
	applied, err := p.profiles.Apply(u.UserID, u.Scores, p.cfg.LearningRate)
	if err != nil {
		p.cfg.Logger.Error("expertise persistence failed", "user", u.UserID, "error", err)
	}
	p.cfg.Metrics.RecordSignalApplied(types.SignalExpertise, applied)
}

func (p *Pipeline) runClusters(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case u := <-p.clusterCh:
			// A superseded recluster result must be discarded, not applied
			// out of order.
			if u.Generation <= p.clusterGen.Load() {
				p.cfg.Metrics.RecordStaleSignal(types.SignalClusters)
				p.cfg.Logger.Debug("stale cluster generation discarded",
					"generation", u.Generation, "current", p.clusterGen.Load())

				continue
			}
			applied := 0
			for itemID, clusterID := range u.Assignments {
				if p.items.SetCluster(itemID, clusterID) {
					applied++
				}
			}
			p.clusterGen.Store(u.Generation)
			p.cfg.Metrics.RecordSignalApplied(types.SignalClusters, applied)
		}
	}
}

func (p *Pipeline) runScores(ctx context.Context, kind string, ch chan types.ScoreUpdate, set func(string, float64) bool) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case u := <-ch:
			applied := 0
			for itemID, score := range u.Scores {
				if set(itemID, score) {
					applied++
				}
			}
			p.cfg.Metrics.RecordSignalApplied(kind, applied)
		}
	}
}
