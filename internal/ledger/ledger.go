// Package ledger implements the per-user assignment ledger and the expertise
// profile registry.
//
// Each user's ledger is an append-only log of assigned item IDs plus a
// cursor; history is never rewritten, so a session can replay its exact
// assignment order after a disconnect. Contention is naturally partitioned
// by user: every ledger carries its own mutex.
package ledger

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/davidjurgens/potato-sub003/types"
)

// Ledger holds all user assignment logs.
type Ledger struct {
	// maxPerUser is the per-user annotation cap. -1 means unlimited.
	maxPerUser int

	users *xsync.Map[string, *userLedger]
}

type userLedger struct {
	mu sync.Mutex

	// assigned is the append-only assignment history.
	assigned []string

	// cursor indexes the next unresolved assignment in assigned.
	cursor int

	annotated map[string]bool
	abandoned map[string]bool

	// drawnClusters tracks cluster IDs sampled in the current diversity
	// pass.
	drawnClusters map[int]bool
}

// New creates an empty Ledger.
//
// Parameters:
//   - maxPerUser: per-user annotation cap, -1 for unlimited
func New(maxPerUser int) *Ledger {
	return &Ledger{
		maxPerUser: maxPerUser,
		users:      xsync.NewMap[string, *userLedger](),
	}
}

func (l *Ledger) user(userID string) *userLedger {
	u, ok := l.users.Load(userID)
	if ok {
		return u
	}
	u, _ = l.users.LoadOrStore(userID, &userLedger{
		annotated:     make(map[string]bool),
		abandoned:     make(map[string]bool),
		drawnClusters: make(map[int]bool),
	})

	return u
}

// Known reports whether the user has ever touched the ledger.
func (l *Ledger) Known(userID string) bool {
	_, ok := l.users.Load(userID)

	return ok
}

// GetPending returns the user's current unresolved assignment without
// advancing the cursor. Repeated calls return the same item: this is the
// idempotent path that makes page refreshes and reconnects safe.
func (l *Ledger) GetPending(userID string) (string, bool) {
	u := l.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.cursor < len(u.assigned) {
		return u.assigned[u.cursor], true
	}

	return "", false
}

// Append records a new assignment at the end of the user's history. The
// cursor does not move; it advances only when the entry is resolved.
//
// Re-assigning an item the user previously abandoned clears its abandoned
// mark so the new entry is served rather than skipped.
func (l *Ledger) Append(userID, itemID string) {
	u := l.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	delete(u.abandoned, itemID)
	u.assigned = append(u.assigned, itemID)
}

// MarkAnnotated records a submitted annotation and advances the cursor past
// every resolved entry. Returns false if the item was never assigned to the
// user or is already resolved; a reassignment clears the abandoned mark, so
// only the current assignment can be annotated.
func (l *Ledger) MarkAnnotated(userID, itemID string) bool {
	u := l.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.hasAssigned(itemID) || u.annotated[itemID] || u.abandoned[itemID] {
		return false
	}
	u.annotated[itemID] = true
	u.advance()

	return true
}

// MarkAbandoned records a skipped or reclaimed assignment. The item does not
// join the annotated set; the caller releases the in-flight slot via the
// store. Returns false if the item was never assigned or is already
// resolved.
func (l *Ledger) MarkAbandoned(userID, itemID string) bool {
	u := l.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.hasAssigned(itemID) || u.annotated[itemID] || u.abandoned[itemID] {
		return false
	}
	u.abandoned[itemID] = true
	u.advance()

	return true
}

func (u *userLedger) hasAssigned(itemID string) bool {
	for _, id := range u.assigned {
		if id == itemID {
			return true
		}
	}

	return false
}

// advance moves the cursor past resolved entries. Caller holds the mutex.
func (u *userLedger) advance() {
	for u.cursor < len(u.assigned) {
		id := u.assigned[u.cursor]
		if !u.annotated[id] && !u.abandoned[id] {
			return
		}
		u.cursor++
	}
}

// AnnotatedCount returns the number of annotations the user has submitted.
func (l *Ledger) AnnotatedCount(userID string) int {
	u := l.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	return len(u.annotated)
}

// AnnotatedItems returns a copy of the set of items the user has annotated.
// The coordinator excludes these from selection so a user never annotates
// the same item twice.
func (l *Ledger) AnnotatedItems(userID string) map[string]bool {
	u := l.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	out := make(map[string]bool, len(u.annotated))
	for id := range u.annotated {
		out[id] = true
	}

	return out
}

// HasAnnotated reports whether the user already annotated the item.
func (l *Ledger) HasAnnotated(userID, itemID string) bool {
	u := l.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.annotated[itemID]
}

// HasAssigned reports whether the item appears anywhere in the user's
// history.
func (l *Ledger) HasAssigned(userID, itemID string) bool {
	u := l.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.hasAssigned(itemID)
}

// QuotaReached reports whether the user has hit the per-user annotation cap.
func (l *Ledger) QuotaReached(userID string) bool {
	if l.maxPerUser < 0 {
		return false
	}

	return l.AnnotatedCount(userID) >= l.maxPerUser
}

// Progress summarizes the user's position.
func (l *Ledger) Progress(userID string) types.Progress {
	u := l.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	remaining := -1
	if l.maxPerUser >= 0 {
		remaining = l.maxPerUser - len(u.annotated)
		if remaining < 0 {
			remaining = 0
		}
	}

	return types.Progress{
		Assigned:  len(u.assigned),
		Annotated: len(u.annotated),
		Remaining: remaining,
	}
}

// History returns a copy of the user's append-only assignment order.
func (l *Ledger) History(userID string) []string {
	u := l.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	return append([]string(nil), u.assigned...)
}

// RecordClusterDraw marks a cluster as sampled in the user's current
// diversity pass.
func (l *Ledger) RecordClusterDraw(userID string, clusterID int) {
	u := l.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	u.drawnClusters[clusterID] = true
}

// DrawnClusters returns a copy of the cluster IDs sampled in the user's
// current diversity pass.
func (l *Ledger) DrawnClusters(userID string) map[int]bool {
	u := l.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	drawn := make(map[int]bool, len(u.drawnClusters))
	for id := range u.drawnClusters {
		drawn[id] = true
	}

	return drawn
}

// ResetClusterPass clears the user's diversity pass, typically right before
// a recluster request.
func (l *Ledger) ResetClusterPass(userID string) {
	u := l.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	u.drawnClusters = make(map[int]bool)
}
