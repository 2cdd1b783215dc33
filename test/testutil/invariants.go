package testutil

import (
	"fmt"
	"testing"

	"github.com/davidjurgens/potato-sub003/types"
)

// AssertCapacityInvariant verifies that no item's annotation count plus
// in-flight count exceeds the per-item cap. A cap of -1 means unlimited and
// always passes.
//
// Parameters:
//   - t: testing handle
//   - views: item views under test (typically a store snapshot)
//   - maxPerItem: configured per-item cap, -1 for unlimited
func AssertCapacityInvariant(t *testing.T, views []types.ItemView, maxPerItem int) {
	t.Helper()

	if maxPerItem < 0 {
		return
	}
	for _, v := range views {
		if v.AnnotationCount+v.InFlight > maxPerItem {
			t.Fatalf("item %s violates capacity: annotations=%d inFlight=%d max=%d",
				v.ID, v.AnnotationCount, v.InFlight, maxPerItem)
		}
	}
}

// AssertNoDuplicateAssignments verifies that no user holds the same item
// twice in their assignment history.
//
// Parameters:
//   - t: testing handle
//   - histories: map of userID -> assigned item IDs in order
func AssertNoDuplicateAssignments(t *testing.T, histories map[string][]string) {
	t.Helper()

	for userID, items := range histories {
		seen := make(map[string]struct{}, len(items))
		for _, itemID := range items {
			if _, ok := seen[itemID]; ok {
				t.Fatalf("user %s assigned item %s twice", userID, itemID)
			}
			seen[itemID] = struct{}{}
		}
	}
}

// AssertDistributionNear verifies that an observed category-draw
// distribution is within tolerance of the expected probabilities.
//
// Parameters:
//   - t: testing handle
//   - draws: observed draw counts per category
//   - want: expected probability per category
//   - tolerance: allowed absolute deviation per category
func AssertDistributionNear(t *testing.T, draws map[string]int, want map[string]float64, tolerance float64) {
	t.Helper()

	total := 0
	for _, n := range draws {
		total += n
	}
	if total == 0 {
		t.Fatal("no draws observed")
	}
	for category, p := range want {
		got := float64(draws[category]) / float64(total)
		if diff := got - p; diff > tolerance || diff < -tolerance {
			t.Fatalf("category %s: observed frequency %.3f, want %.3f ± %.3f (%d/%d draws)",
				category, got, p, tolerance, draws[category], total)
		}
	}
}

// MakeItems generates n items with IDs item-0..item-n-1 in load order.
func MakeItems(n int) []types.Item {
	items := make([]types.Item, n)
	for i := range items {
		items[i] = types.Item{
			ID:      fmt.Sprintf("item-%d", i),
			Payload: map[string]any{"text": fmt.Sprintf("instance %d", i)},
		}
	}

	return items
}

// MakeCategorizedItems generates n items cycling through the given
// categories, one category per item.
func MakeCategorizedItems(n int, categories ...string) []types.Item {
	items := MakeItems(n)
	for i := range items {
		items[i].Categories = []string{categories[i%len(categories)]}
	}

	return items
}
