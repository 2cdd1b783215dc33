package assign

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/davidjurgens/potato-sub003/internal/hooks"
	"github.com/davidjurgens/potato-sub003/internal/ledger"
	"github.com/davidjurgens/potato-sub003/internal/logging"
	"github.com/davidjurgens/potato-sub003/internal/metrics"
	"github.com/davidjurgens/potato-sub003/internal/signal"
	"github.com/davidjurgens/potato-sub003/internal/store"
	"github.com/davidjurgens/potato-sub003/strategy"
	"github.com/davidjurgens/potato-sub003/types"
)

// reserveRetries bounds reselection after a reservation loses a capacity
// race before the engine falls back to random picks among the remainder.
const reserveRetries = 3

// Engine is the assignment coordinator: the single entry point deciding
// which item an annotator receives next.
//
// The engine owns the concurrency discipline. No lock is held across a
// strategy call plus a reservation: strategies evaluate a copy-on-read
// snapshot, and the store re-validates capacity inside Reserve. The per-item
// capacity invariant is therefore linearizable while every priority signal
// stays eventually consistent.
type Engine struct {
	cfg  Config
	seed uint64

	logger  types.Logger
	metrics types.MetricsCollector
	hooks   types.Hooks

	stratName      string
	strat          types.SelectionStrategy
	fallbackRandom types.SelectionStrategy

	store     *store.Store
	ledger    *ledger.Ledger
	profiles  *ledger.Profiles
	profileDB *ledger.ProfileDB
	pipeline  *signal.Pipeline

	clock func() time.Time

	mu           sync.Mutex
	started      bool
	lifecycleCtx context.Context
	cancel       context.CancelFunc
	group        *errgroup.Group
}

// NewEngine creates an Engine over the given dataset.
//
// The item slice's order becomes the stable dataset order used by
// fixed_order selection and tie-breaks. Category labels found on the items
// seed the expertise profiles' known-category set.
//
// Parameters:
//   - cfg: engine configuration (defaults are applied in place)
//   - items: dataset in load order
//   - opts: optional dependencies (logger, metrics, hooks, registry, clock)
//
// Returns:
//   - *Engine: initialized engine, not yet started
//   - error: invalid configuration, duplicate items, or profile DB failure
func NewEngine(cfg *Config, items []types.Item, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config: %w", ErrInvalidConfig)
	}
	SetDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &engineOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = logging.NewSlogDefault()
	}
	if options.metrics == nil {
		options.metrics = metrics.NewNop()
	}
	if options.hooks == nil {
		nop := hooks.NewNop()
		options.hooks = &nop
	}
	if options.registry == nil {
		options.registry = strategy.DefaultRegistry()
	}
	if options.clock == nil {
		options.clock = time.Now
	}

	seed := cfg.RandomSeed
	if seed == 0 {
		seed = rand.Uint64()
	}

	e := &Engine{
		cfg:     *cfg,
		seed:    seed,
		logger:  options.logger,
		metrics: options.metrics,
		hooks:   *options.hooks,
		clock:   options.clock,
	}

	var err error
	e.store, err = store.New(items, store.Config{
		MaxAnnotationsPerItem: cfg.MaxAnnotationsPerItem,
		Strict:                options.strictStore,
		Logger:                e.logger,
		Metrics:               e.metrics,
	})
	if err != nil {
		return nil, err
	}

	e.ledger = ledger.New(cfg.MaxAnnotationsPerUser)

	if cfg.ProfileDBPath != "" {
		e.profileDB, err = ledger.OpenProfileDB(cfg.ProfileDBPath)
		if err != nil {
			return nil, err
		}
	}
	e.profiles, err = ledger.NewProfiles(collectCategories(items), e.profileDB)
	if err != nil {
		return nil, err
	}

	if options.strategy != nil {
		e.strat = options.strategy
		e.stratName = "custom"
	} else {
		e.strat, err = options.registry.New(cfg.AssignmentStrategy, strategy.Params{
			Seed:            seed,
			Mode:            cfg.CategoryAssignment.Mode,
			Fallback:        cfg.CategoryAssignment.Fallback,
			BaseProbability: cfg.CategoryAssignment.Dynamic.BaseProbability,
			OnFallback:      e.metrics.RecordRandomFallback,
		})
		if err != nil {
			return nil, err
		}
		e.stratName = cfg.AssignmentStrategy
	}
	e.fallbackRandom = strategy.NewRandom(seed)

	e.pipeline = signal.New(e.store, e.profiles, signal.Config{
		QueueSize:              cfg.SignalQueueSize,
		LearningRate:           cfg.CategoryAssignment.Dynamic.LearningRate,
		ExpertiseFlushInterval: cfg.CategoryAssignment.Dynamic.UpdateInterval,
		Logger:                 e.logger,
		Metrics:                e.metrics,
	})

	e.logger.Info("engine created",
		"strategy", e.stratName,
		"items", e.store.Len(),
		"seed", seed,
		"maxPerItem", cfg.MaxAnnotationsPerItem,
		"maxPerUser", cfg.MaxAnnotationsPerUser)

	return e, nil
}

// Start launches the signal ingestors and the reservation sweeper.
//
// Returns ErrAlreadyStarted if the engine is running.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return ErrAlreadyStarted
	}

	lctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if err := e.pipeline.Start(lctx); err != nil {
		cancel()

		return err
	}

	g, gctx := errgroup.WithContext(lctx)
	g.Go(func() error {
		e.runSweeper(gctx)

		return nil
	})

	e.lifecycleCtx = lctx
	e.cancel = cancel
	e.group = g
	e.started = true

	return nil
}

// Stop shuts down background goroutines and closes the profile database.
//
// Returns ErrNotStarted if the engine was never started.
func (e *Engine) Stop(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return ErrNotStarted
	}
	e.started = false
	e.cancel()

	err := e.group.Wait()
	if perr := e.pipeline.Stop(); perr != nil && err == nil {
		err = perr
	}
	if e.profileDB != nil {
		if derr := e.profileDB.Close(); derr != nil && err == nil {
			err = derr
		}
	}

	return err
}

// NextInstance returns the next item for the user, or found=false when no
// eligible work exists (an expected terminal state, not an error).
//
// The call is idempotent while an assignment is pending: refreshing or
// reconnecting returns the same item until the user resolves it through
// RecordOutcome.
func (e *Engine) NextInstance(userID string) (string, bool) {
	start := e.clock()

	// Idempotent path: an unresolved assignment is served as-is, with no
	// strategy call and no lock contention.
	if itemID, ok := e.ledger.GetPending(userID); ok {
		return itemID, true
	}

	if e.ledger.QuotaReached(userID) {
		return e.noWork(userID, "user_quota")
	}

	views := e.store.Snapshot(nil, false)
	if len(views) == 0 {
		return e.noWork(userID, "exhausted")
	}
	user := e.userView(userID)

	// A user never annotates the same item twice. Previously abandoned items
	// may come back; annotated ones are out for good.
	excluded := e.ledger.AnnotatedItems(userID)
	for attempt := 0; attempt <= reserveRetries; attempt++ {
		eligible := filterExcluded(views, excluded)
		if len(eligible) == 0 {
			return e.noWork(userID, "exhausted")
		}

		itemID, err := e.selectNext(user, eligible)
		if err != nil {
			return e.noWork(userID, "no_eligible")
		}

		if err := e.store.Reserve(itemID, userID, e.clock()); err != nil {
			if errors.Is(err, types.ErrAtCapacity) {
				// Lost the last slot to a racing request. Expected; retry
				// selection without this item.
				e.metrics.RecordReservationRetry()
				excluded[itemID] = true

				continue
			}

			e.logger.Error("reserve failed", "item", itemID, "user", userID, "error", err)

			return e.noWork(userID, "exhausted")
		}

		e.finishAssignment(userID, itemID, views, start)

		return itemID, true
	}

	// Bounded retries spent: random picks among whatever remains.
	for {
		eligible := filterExcluded(views, excluded)
		if len(eligible) == 0 {
			return e.noWork(userID, "exhausted")
		}
		itemID, err := e.fallbackRandom.SelectNext(user, eligible)
		if err != nil {
			return e.noWork(userID, "exhausted")
		}
		if err := e.store.Reserve(itemID, userID, e.clock()); err != nil {
			e.metrics.RecordReservationRetry()
			excluded[itemID] = true

			continue
		}

		e.finishAssignment(userID, itemID, views, start)

		return itemID, true
	}
}

// selectNext invokes the active strategy, recovering panics and rejecting
// malformed results. A faulting strategy degrades this call to a random pick
// and never crashes the request path.
func (e *Engine) selectNext(user types.UserView, eligible []types.ItemView) (string, error) {
	itemID, err := func() (id string, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("strategy panic: %v", r)
			}
		}()

		return e.strat.SelectNext(user, eligible)
	}()

	if err == nil && !containsItem(eligible, itemID) {
		err = fmt.Errorf("strategy returned item %q outside the eligible set", itemID)
	}
	if err == nil || errors.Is(err, types.ErrNoEligibleItems) {
		return itemID, err
	}

	e.logger.Error("strategy fault, degrading to random",
		"strategy", e.stratName, "user", user.UserID, "eligible", len(eligible), "error", err)
	e.metrics.RecordStrategyFault(e.stratName)
	e.fireHook("OnStrategyFault", func(ctx context.Context) error {
		if e.hooks.OnStrategyFault == nil {
			return nil
		}

		return e.hooks.OnStrategyFault(ctx, e.stratName, err)
	})

	return e.fallbackRandom.SelectNext(user, eligible)
}

func (e *Engine) finishAssignment(userID, itemID string, views []types.ItemView, start time.Time) {
	e.ledger.Append(userID, itemID)

	if e.stratName == strategy.NameCluster {
		e.recordClusterDraw(userID, itemID, views)
	}

	e.metrics.RecordAssignment(e.stratName, e.clock().Sub(start).Seconds())
	e.fireHook("OnAssigned", func(ctx context.Context) error {
		if e.hooks.OnAssigned == nil {
			return nil
		}

		return e.hooks.OnAssigned(ctx, userID, itemID)
	})
}

// recordClusterDraw tracks the user's diversity pass and fires a recluster
// request when the drawn fraction crosses the configured threshold.
func (e *Engine) recordClusterDraw(userID, itemID string, views []types.ItemView) {
	present := make(map[int]bool)
	var assigned *types.ItemView
	for i := range views {
		if views[i].HasCluster {
			present[views[i].ClusterID] = true
		}
		if views[i].ID == itemID {
			assigned = &views[i]
		}
	}
	if assigned == nil || !assigned.HasCluster || len(present) == 0 {
		return
	}

	e.ledger.RecordClusterDraw(userID, assigned.ClusterID)

	drawn := e.ledger.DrawnClusters(userID)
	covered := 0
	for id := range present {
		if drawn[id] {
			covered++
		}
	}
	if float64(covered)/float64(len(present)) < e.cfg.DiversityOrdering.ReclusterThreshold {
		return
	}

	e.ledger.ResetClusterPass(userID)
	generation := e.pipeline.Generation() + 1
	e.logger.Info("recluster requested", "user", userID, "generation", generation)
	e.fireHook("OnReclusterRequested", func(ctx context.Context) error {
		if e.hooks.OnReclusterRequested == nil {
			return nil
		}

		return e.hooks.OnReclusterRequested(ctx, generation)
	})
}

func (e *Engine) noWork(userID, reason string) (string, bool) {
	e.metrics.RecordNoWork(reason)
	e.fireHook("OnNoWork", func(ctx context.Context) error {
		if e.hooks.OnNoWork == nil {
			return nil
		}

		return e.hooks.OnNoWork(ctx, userID)
	})

	return "", false
}

// RecordOutcome resolves the user's reservation on the item.
//
// OutcomeAnnotated advances the user's cursor and increments the item's
// annotation count; OutcomeAbandoned releases the slot back to the pool. A
// second resolution of the same reservation is rejected with
// ErrCommitWithoutReserve.
func (e *Engine) RecordOutcome(userID, itemID string, outcome Outcome) error {
	var annotated bool
	switch outcome {
	case OutcomeAnnotated:
		annotated = true
	case OutcomeAbandoned:
	default:
		return fmt.Errorf("unknown outcome %d: %w", outcome, ErrInvalidConfig)
	}

	// The store commit consumes the reservation record exactly once, so it
	// decides a submit racing the sweeper. The ledger is mutated only after
	// the slot is resolved; a losing submit leaves no partial state.
	if err := e.store.Commit(itemID, userID, annotated); err != nil {
		return fmt.Errorf("item %q for user %q: %w", itemID, userID, err)
	}

	if annotated {
		if !e.ledger.MarkAnnotated(userID, itemID) {
			e.logger.Warn("committed annotation not pending in ledger", "item", itemID, "user", userID)
		}
	} else {
		if !e.ledger.MarkAbandoned(userID, itemID) {
			e.logger.Warn("committed abandon not pending in ledger", "item", itemID, "user", userID)
		}
	}

	e.metrics.RecordOutcome(outcome.String())

	return nil
}

// OnAnnotationSubmitted records an annotated outcome and feeds the submitted
// labels to the disagreement ingestor. Fire-and-forget: failures are logged,
// never returned, so the web layer can treat it as a notification.
func (e *Engine) OnAnnotationSubmitted(itemID, userID string, labels []string) {
	if err := e.RecordOutcome(userID, itemID, OutcomeAnnotated); err != nil {
		e.logger.Warn("annotation submit rejected", "item", itemID, "user", userID, "error", err)

		return
	}
	e.pipeline.PushLabels(types.LabelUpdate{ItemID: itemID, UserID: userID, Labels: labels})
}

// OnExpertiseRecomputed ingests recomputed per-category consensus scores for
// a user. Fire-and-forget.
func (e *Engine) OnExpertiseRecomputed(userID string, categoryScores map[string]float64) {
	e.pipeline.PushExpertise(types.ExpertiseUpdate{UserID: userID, Scores: categoryScores})
}

// OnClusterAssignmentsUpdated ingests a recluster result. Batches with a
// generation at or below the last applied one are discarded, so a slow job
// finishing late cannot apply out of order. Fire-and-forget.
func (e *Engine) OnClusterAssignmentsUpdated(assignments map[string]int, generation int64) {
	e.pipeline.PushClusters(types.ClusterUpdate{Assignments: assignments, Generation: generation})
}

// OnUncertaintyScoresUpdated ingests classifier uncertainty scores from the
// retraining job. Fire-and-forget.
func (e *Engine) OnUncertaintyScoresUpdated(scores map[string]float64) {
	e.pipeline.PushUncertainty(types.ScoreUpdate{Scores: scores})
}

// OnLLMConfidenceUpdated ingests LLM confidence scores from the batch job.
// Fire-and-forget.
func (e *Engine) OnLLMConfidenceUpdated(scores map[string]float64) {
	e.pipeline.PushLLMConfidence(types.ScoreUpdate{Scores: scores})
}

// GetItemSummary returns a read-only view of one item for admin and
// monitoring surfaces.
func (e *Engine) GetItemSummary(itemID string) (ItemView, error) {
	return e.store.Summary(itemID)
}

// GetItemPayload returns the opaque payload registered with the item so the
// serving layer can render it to the assigned user.
func (e *Engine) GetItemPayload(itemID string) (any, error) {
	return e.store.Payload(itemID)
}

// GetUserProgress summarizes the user's assignment stream.
func (e *Engine) GetUserProgress(userID string) (Progress, error) {
	if !e.ledger.Known(userID) {
		return Progress{}, fmt.Errorf("%q: %w", userID, ErrUnknownUser)
	}

	return e.ledger.Progress(userID), nil
}

// runSweeper reclaims reservations older than ReservationTTL so an abandoned
// session cannot hold an item's capacity forever.
func (e *Engine) runSweeper(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.SweepExpired()
		}
	}
}

// SweepExpired reclaims every reservation older than ReservationTTL and
// returns how many were reclaimed. The background sweeper calls this on its
// own cadence; it is exported for operational tooling that wants an
// immediate pass.
func (e *Engine) SweepExpired() int {
	expired := e.store.ExpiredReservations(e.cfg.ReservationTTL, e.clock())
	reclaimed := 0
	for _, r := range expired {
		// Commit first: it atomically consumes the reservation record, so a
		// racing submit either beat us (and this fails cleanly) or loses.
		if err := e.store.Commit(r.ItemID, r.UserID, false); err != nil {
			if !errors.Is(err, types.ErrCommitWithoutReserve) {
				e.fireHook("OnError", func(ctx context.Context) error {
					if e.hooks.OnError == nil {
						return nil
					}

					return e.hooks.OnError(ctx, err)
				})
			}

			continue
		}
		e.ledger.MarkAbandoned(r.UserID, r.ItemID)
		e.metrics.RecordOutcome(types.OutcomeAbandoned.String())
		reclaimed++
		e.logger.Info("reservation reclaimed",
			"item", r.ItemID, "user", r.UserID, "reservedAt", r.ReservedAt)
	}
	e.metrics.RecordSweep(reclaimed)

	return reclaimed
}

func (e *Engine) fireHook(name string, run func(ctx context.Context) error) {
	ctx := e.hookCtx()
	go func() {
		if err := run(ctx); err != nil {
			e.logger.Warn("hook failed", "hook", name, "error", err)
		}
	}()
}

func (e *Engine) hookCtx() context.Context {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return e.lifecycleCtx
	}

	return context.Background()
}

func (e *Engine) userView(userID string) types.UserView {
	q := e.cfg.CategoryAssignment.Qualification

	return types.UserView{
		UserID:              userID,
		AnnotatedCount:      e.ledger.AnnotatedCount(userID),
		QualifiedCategories: e.profiles.Qualified(userID, q.Threshold, q.MinQuestions),
		Expertise:           e.profiles.Scores(userID),
		DrawnClusters:       e.ledger.DrawnClusters(userID),
	}
}

func filterExcluded(views []types.ItemView, excluded map[string]bool) []types.ItemView {
	if len(excluded) == 0 {
		return views
	}
	out := make([]types.ItemView, 0, len(views))
	for _, v := range views {
		if !excluded[v.ID] {
			out = append(out, v)
		}
	}

	return out
}

func containsItem(views []types.ItemView, itemID string) bool {
	for _, v := range views {
		if v.ID == itemID {
			return true
		}
	}

	return false
}

func collectCategories(items []types.Item) []string {
	seen := make(map[string]bool)
	var out []string
	for _, it := range items {
		for _, cat := range it.Categories {
			if !seen[cat] {
				seen[cat] = true
				out = append(out, cat)
			}
		}
	}

	return out
}
