// Package store implements the in-memory item table with linearizable
// capacity accounting.
//
// The store is the single owner of the safety-critical fields
// (annotationCount, inFlight); the capacity invariant
//
//	annotationCount + inFlight <= maxAnnotationsPerItem
//
// must hold at every instant visible to any caller. Derived priority signals
// (disagreement, cluster, uncertainty, LLM confidence) live behind a
// separate per-item lock so strategy snapshot reads never wait on capacity
// churn and slow signal recomputation never delays Reserve/Commit.
package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/zeebo/xxh3"

	"github.com/davidjurgens/potato-sub003/types"
)

// reservation shard count; must be a power of two.
const resShardCount = 32

// Config configures a Store.
type Config struct {
	// MaxAnnotationsPerItem is the per-item completion target. -1 means
	// unlimited.
	MaxAnnotationsPerItem int

	// Strict makes invariant breaches and unknown-item reservations panic
	// instead of being logged and rejected. Tests opt in; production keeps
	// serving and alerts through metrics.
	Strict bool

	Logger  types.Logger
	Metrics types.StoreMetrics
}

// Store is the in-memory item table.
type Store struct {
	cfg Config

	items *xsync.Map[string, *item]

	// count of outstanding reservations across all items, for the gauge
	inFlightMu    sync.Mutex
	inFlightTotal int

	resShards [resShardCount]resShard
}

type item struct {
	id         string
	categories []string
	orderIndex int
	payload    any

	// capMu guards the capacity-critical fields. Held for microseconds.
	capMu           sync.Mutex
	annotationCount int
	inFlight        int

	// sigMu guards the derived signal fields, written only by the signal
	// appliers.
	sigMu         sync.RWMutex
	labelCounts   map[string]int
	totalLabels   int
	disagreement  float64
	clusterID     int
	hasCluster    bool
	uncertainty   float64
	hasUncertain  bool
	llmConfidence float64
	hasLLM        bool
}

type resShard struct {
	mu       sync.Mutex
	reserved map[resKey]time.Time
}

type resKey struct {
	itemID string
	userID string
}

// Reservation identifies one outstanding reservation for the sweeper.
type Reservation struct {
	ItemID     string
	UserID     string
	ReservedAt time.Time
}

// New creates a Store over the given items. Item IDs must be unique; order
// in the slice becomes the stable OrderIndex used by fixed-order selection.
//
// Parameters:
//   - items: dataset in load order
//   - cfg: store configuration
//
// Returns:
//   - *Store: initialized store
//   - error: duplicate or empty item IDs
func New(items []types.Item, cfg Config) (*Store, error) {
	s := &Store{
		cfg:   cfg,
		items: xsync.NewMap[string, *item](),
	}
	for i := range s.resShards {
		s.resShards[i].reserved = make(map[resKey]time.Time)
	}

	for i, it := range items {
		if it.ID == "" {
			return nil, fmt.Errorf("item at index %d has empty ID: %w", i, types.ErrInvalidConfig)
		}
		if _, loaded := s.items.LoadOrStore(it.ID, &item{
			id:          it.ID,
			categories:  append([]string(nil), it.Categories...),
			orderIndex:  i,
			payload:     it.Payload,
			labelCounts: make(map[string]int),
		}); loaded {
			return nil, fmt.Errorf("duplicate item ID %q: %w", it.ID, types.ErrInvalidConfig)
		}
	}

	return s, nil
}

// Len returns the number of items in the store.
func (s *Store) Len() int {
	return s.items.Size()
}

// InFlight returns the current total of outstanding reservations.
func (s *Store) InFlight() int {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()

	return s.inFlightTotal
}

// Reserve atomically claims one annotation slot on the item for the user.
//
// Returns nil on success, types.ErrAtCapacity when the item has no slots
// left (expected under racing coordinators), or types.ErrUnknownItem for an
// item that was never loaded. The unknown-item case is a programming error:
// it panics in strict mode and is logged and rejected otherwise.
func (s *Store) Reserve(itemID, userID string, now time.Time) error {
	it, ok := s.items.Load(itemID)
	if !ok {
		if s.cfg.Strict {
			panic(fmt.Sprintf("store: Reserve on unknown item %q", itemID))
		}
		s.cfg.Logger.Error("reserve on unknown item", "item", itemID, "user", userID)

		return types.ErrUnknownItem
	}

	it.capMu.Lock()
	if s.atCapacityLocked(it) {
		it.capMu.Unlock()

		return types.ErrAtCapacity
	}
	it.inFlight++
	s.checkInvariantLocked(it)
	it.capMu.Unlock()

	shard := s.resShardFor(itemID, userID)
	shard.mu.Lock()
	shard.reserved[resKey{itemID: itemID, userID: userID}] = now
	shard.mu.Unlock()

	s.addInFlight(1)

	return nil
}

// Commit resolves one reservation on the item. When wasAnnotated is true the
// annotation count increases and the caller is expected to feed the labels
// through the disagreement ingestor separately.
//
// A Commit with no outstanding reservation is rejected with
// types.ErrCommitWithoutReserve; this defends against double-processing of a
// submit or a sweeper racing a late submit.
func (s *Store) Commit(itemID, userID string, wasAnnotated bool) error {
	it, ok := s.items.Load(itemID)
	if !ok {
		if s.cfg.Strict {
			panic(fmt.Sprintf("store: Commit on unknown item %q", itemID))
		}
		s.cfg.Logger.Error("commit on unknown item", "item", itemID, "user", userID)

		return types.ErrUnknownItem
	}

	shard := s.resShardFor(itemID, userID)
	key := resKey{itemID: itemID, userID: userID}
	shard.mu.Lock()
	_, held := shard.reserved[key]
	if held {
		delete(shard.reserved, key)
	}
	shard.mu.Unlock()

	if !held {
		s.cfg.Logger.Error("commit without prior reserve",
			"item", itemID, "user", userID, "annotated", wasAnnotated)

		return types.ErrCommitWithoutReserve
	}

	it.capMu.Lock()
	it.inFlight--
	if wasAnnotated {
		it.annotationCount++
	}
	s.checkInvariantLocked(it)
	it.capMu.Unlock()

	s.addInFlight(-1)

	return nil
}

// atCapacityLocked reports whether the item has no free annotation slots.
// Caller holds capMu.
func (s *Store) atCapacityLocked(it *item) bool {
	if s.cfg.MaxAnnotationsPerItem < 0 {
		return false
	}

	return it.annotationCount+it.inFlight >= s.cfg.MaxAnnotationsPerItem
}

// checkInvariantLocked asserts the capacity invariant after a mutation.
// Caller holds capMu.
func (s *Store) checkInvariantLocked(it *item) {
	if it.inFlight < 0 {
		s.violation(it, "negative in-flight count")

		return
	}
	if s.cfg.MaxAnnotationsPerItem >= 0 && it.annotationCount+it.inFlight > s.cfg.MaxAnnotationsPerItem {
		s.violation(it, "capacity exceeded")
	}
}

func (s *Store) violation(it *item, what string) {
	s.cfg.Metrics.RecordInvariantViolation(it.id)
	if s.cfg.Strict {
		panic(fmt.Sprintf("store: invariant violation on item %q: %s (annotations=%d inFlight=%d max=%d)",
			it.id, what, it.annotationCount, it.inFlight, s.cfg.MaxAnnotationsPerItem))
	}
	s.cfg.Logger.Error("capacity invariant violation",
		"item", it.id, "what", what,
		"annotations", it.annotationCount, "inFlight", it.inFlight,
		"max", s.cfg.MaxAnnotationsPerItem)
}

func (s *Store) addInFlight(delta int) {
	s.inFlightMu.Lock()
	s.inFlightTotal += delta
	total := s.inFlightTotal
	s.inFlightMu.Unlock()

	s.cfg.Metrics.SetItemsInFlight(total)
}

func (s *Store) resShardFor(itemID, userID string) *resShard {
	h := xxh3.HashString(itemID + "\x00" + userID)

	return &s.resShards[h&(resShardCount-1)]
}

// ExpiredReservations returns reservations older than ttl at the given
// instant. The sweeper resolves each with Commit(..., false).
func (s *Store) ExpiredReservations(ttl time.Duration, now time.Time) []Reservation {
	var expired []Reservation
	cutoff := now.Add(-ttl)
	for i := range s.resShards {
		shard := &s.resShards[i]
		shard.mu.Lock()
		for key, at := range shard.reserved {
			if at.Before(cutoff) {
				expired = append(expired, Reservation{ItemID: key.itemID, UserID: key.userID, ReservedAt: at})
			}
		}
		shard.mu.Unlock()
	}

	return expired
}

// Snapshot returns read-only views of every item with a free annotation
// slot, sorted by OrderIndex. When categories is non-nil, only items
// carrying at least one of the given categories (or, with
// includeUncategorized, no categories at all) are returned.
//
// Each view is copied under the item's locks individually; no lock is held
// across the whole scan, so a snapshot observes each item atomically but the
// set as a whole is a moving picture. That is acceptable: the Coordinator
// re-validates capacity via Reserve before handing an item out.
func (s *Store) Snapshot(categories []string, includeUncategorized bool) []types.ItemView {
	views := make([]types.ItemView, 0, s.items.Size())
	s.items.Range(func(_ string, it *item) bool {
		it.capMu.Lock()
		atCap := s.atCapacityLocked(it)
		annotations, inFlight := it.annotationCount, it.inFlight
		it.capMu.Unlock()
		if atCap {
			return true
		}
		if categories != nil && !matchesCategories(it.categories, categories, includeUncategorized) {
			return true
		}

		views = append(views, s.viewOf(it, annotations, inFlight))

		return true
	})

	sort.Slice(views, func(i, j int) bool { return views[i].OrderIndex < views[j].OrderIndex })

	return views
}

// Summary returns the view of a single item regardless of capacity, for
// admin and monitoring surfaces.
func (s *Store) Summary(itemID string) (types.ItemView, error) {
	it, ok := s.items.Load(itemID)
	if !ok {
		return types.ItemView{}, types.ErrUnknownItem
	}

	it.capMu.Lock()
	annotations, inFlight := it.annotationCount, it.inFlight
	it.capMu.Unlock()

	return s.viewOf(it, annotations, inFlight), nil
}

// Payload returns the opaque caller handle stored with the item.
func (s *Store) Payload(itemID string) (any, error) {
	it, ok := s.items.Load(itemID)
	if !ok {
		return nil, types.ErrUnknownItem
	}

	return it.payload, nil
}

func (s *Store) viewOf(it *item, annotations, inFlight int) types.ItemView {
	it.sigMu.RLock()
	defer it.sigMu.RUnlock()

	return types.ItemView{
		ID:                it.id,
		Categories:        it.categories,
		OrderIndex:        it.orderIndex,
		AnnotationCount:   annotations,
		InFlight:          inFlight,
		DisagreementScore: it.disagreement,
		ClusterID:         it.clusterID,
		HasCluster:        it.hasCluster,
		Uncertainty:       it.uncertainty,
		HasUncertainty:    it.hasUncertain,
		LLMConfidence:     it.llmConfidence,
		HasLLMConfidence:  it.hasLLM,
	}
}

func matchesCategories(have, want []string, includeUncategorized bool) bool {
	if len(have) == 0 {
		return includeUncategorized
	}
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}

	return false
}

// IngestLabels folds one submitted annotation's labels into the item's label
// tally and recomputes the disagreement score (unique labels over total
// labels). Returns false for an unknown item.
func (s *Store) IngestLabels(itemID string, labels []string) bool {
	it, ok := s.items.Load(itemID)
	if !ok {
		return false
	}

	it.sigMu.Lock()
	for _, l := range labels {
		it.labelCounts[l]++
	}
	it.totalLabels += len(labels)
	if it.totalLabels > 0 {
		it.disagreement = float64(len(it.labelCounts)) / float64(it.totalLabels)
	}
	it.sigMu.Unlock()

	return true
}

// SetCluster sets the item's diversity cluster. Returns false for an unknown
// item.
func (s *Store) SetCluster(itemID string, clusterID int) bool {
	it, ok := s.items.Load(itemID)
	if !ok {
		return false
	}

	it.sigMu.Lock()
	it.clusterID = clusterID
	it.hasCluster = true
	it.sigMu.Unlock()

	return true
}

// SetUncertainty sets the item's active-learning score. Returns false for an
// unknown item.
func (s *Store) SetUncertainty(itemID string, score float64) bool {
	it, ok := s.items.Load(itemID)
	if !ok {
		return false
	}

	it.sigMu.Lock()
	it.uncertainty = score
	it.hasUncertain = true
	it.sigMu.Unlock()

	return true
}

// SetLLMConfidence sets the item's LLM confidence score. Returns false for an
// unknown item.
func (s *Store) SetLLMConfidence(itemID string, score float64) bool {
	it, ok := s.items.Load(itemID)
	if !ok {
		return false
	}

	it.sigMu.Lock()
	it.llmConfidence = score
	it.hasLLM = true
	it.sigMu.Unlock()

	return true
}
