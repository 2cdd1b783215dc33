package types

// UserView is a read-only snapshot of the requesting user handed to
// strategies alongside the eligible item views.
type UserView struct {
	// UserID identifies the requesting annotator.
	UserID string

	// AnnotatedCount is the number of annotations the user has submitted.
	AnnotatedCount int

	// QualifiedCategories lists the categories the user has static
	// qualification for (training accuracy at or above the configured
	// threshold with enough graded questions). Nil when qualification is not
	// in effect.
	QualifiedCategories []string

	// Expertise maps category to the user's dynamic expertise score in
	// [0,1]. Nil when the category strategy runs in static mode.
	Expertise map[string]float64

	// DrawnClusters is the set of cluster IDs the user has already drawn
	// from in the current diversity pass.
	DrawnClusters map[int]bool
}

// QualifiedFor reports whether the user holds static qualification for the
// given category.
func (u UserView) QualifiedFor(category string) bool {
	for _, c := range u.QualifiedCategories {
		if c == category {
			return true
		}
	}

	return false
}

// Outcome describes how an assignment was resolved.
type Outcome int

const (
	// OutcomeAnnotated marks a reservation resolved by a submitted
	// annotation. The item's annotation count increases.
	OutcomeAnnotated Outcome = iota

	// OutcomeAbandoned marks a reservation released without an annotation
	// (skip, disconnect, or sweeper reclaim). Capacity returns to the pool.
	OutcomeAbandoned
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeAnnotated:
		return "annotated"
	case OutcomeAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Progress summarizes one user's position in the assignment stream.
type Progress struct {
	// Assigned is the total number of items ever assigned to the user.
	Assigned int `json:"assigned"`

	// Annotated is the number of items the user has submitted.
	Annotated int `json:"annotated"`

	// Remaining is the user's quota headroom, or -1 when the per-user cap is
	// unlimited.
	Remaining int `json:"remaining"`
}
