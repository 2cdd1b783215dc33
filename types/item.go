package types

// Item is an annotatable unit of work supplied to the engine at load time.
//
// The engine treats Payload as opaque; it exists so callers can round-trip
// their own handle (row index, document pointer) through assignment without a
// secondary lookup table.
type Item struct {
	// ID uniquely identifies the item. Immutable after load.
	ID string `json:"id"`

	// Categories holds zero or more labels. An empty slice means the item is
	// uncategorized and only reachable through the "uncategorized" fallback
	// of the category strategy (or any non-category strategy).
	Categories []string `json:"categories,omitempty"`

	// Payload is an opaque caller-owned handle carried through unchanged.
	Payload any `json:"-"`
}

// ItemView is a read-only snapshot of one item handed to strategies.
//
// Views are value copies taken under the store's locks and released before
// strategy evaluation, so a strategy can scan them at leisure without
// blocking Reserve/Commit on other items.
type ItemView struct {
	// ID uniquely identifies the item.
	ID string

	// Categories mirrors Item.Categories.
	Categories []string

	// OrderIndex is the item's position in dataset load order. It is the
	// stable total order used by the fixed_order strategy and by tie-breaks.
	OrderIndex int

	// AnnotationCount is the number of committed annotations.
	AnnotationCount int

	// InFlight is the number of outstanding reservations.
	InFlight int

	// DisagreementScore is the unique-label ratio among committed
	// annotations: uniqueLabels / totalLabels. Zero for items with no
	// annotations.
	DisagreementScore float64

	// ClusterID is the diversity cluster assignment. Valid only when
	// HasCluster is true.
	ClusterID  int
	HasCluster bool

	// Uncertainty is the active-learning ranking signal. Valid only when
	// HasUncertainty is true.
	Uncertainty    float64
	HasUncertainty bool

	// LLMConfidence is the LLM batch-job confidence signal. Valid only when
	// HasLLMConfidence is true.
	LLMConfidence    float64
	HasLLMConfidence bool
}

// HasCategory reports whether the view carries the given category label.
func (v ItemView) HasCategory(category string) bool {
	for _, c := range v.Categories {
		if c == category {
			return true
		}
	}

	return false
}
