package strategy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidjurgens/potato-sub003/types"
)

func categorizedViews() []types.ItemView {
	return []types.ItemView{
		{ID: "sci-0", OrderIndex: 0, Categories: []string{"science"}},
		{ID: "sci-1", OrderIndex: 1, Categories: []string{"science"}},
		{ID: "eco-0", OrderIndex: 2, Categories: []string{"economics"}},
		{ID: "eco-1", OrderIndex: 3, Categories: []string{"economics"}},
		{ID: "plain-0", OrderIndex: 4},
	}
}

func categoryOf(itemID string, views []types.ItemView) string {
	for _, v := range views {
		if v.ID == itemID {
			if len(v.Categories) == 0 {
				return ""
			}

			return v.Categories[0]
		}
	}

	return ""
}

func TestNewCategory(t *testing.T) {
	t.Run("defaults to static mode with no fallback", func(t *testing.T) {
		c, err := NewCategory(1, "", "", 0.1)
		require.NoError(t, err)
		require.Equal(t, ModeStatic, c.mode)
		require.Equal(t, FallbackNone, c.fallback)
	})

	t.Run("rejects unknown mode", func(t *testing.T) {
		_, err := NewCategory(1, "bogus", "", 0.1)
		require.ErrorIs(t, err, types.ErrInvalidConfig)
	})

	t.Run("rejects unknown fallback", func(t *testing.T) {
		_, err := NewCategory(1, ModeStatic, "bogus", 0.1)
		require.ErrorIs(t, err, types.ErrInvalidConfig)
	})

	t.Run("rejects base probability outside [0,1)", func(t *testing.T) {
		_, err := NewCategory(1, ModeDynamic, "", 1.0)
		require.ErrorIs(t, err, types.ErrInvalidConfig)
		_, err = NewCategory(1, ModeDynamic, "", -0.1)
		require.ErrorIs(t, err, types.ErrInvalidConfig)
	})
}

func TestCategoryStatic(t *testing.T) {
	t.Run("only qualified categories are served", func(t *testing.T) {
		c, err := NewCategory(1, ModeStatic, FallbackNone, 0)
		require.NoError(t, err)
		user := types.UserView{UserID: "u1", QualifiedCategories: []string{"economics"}}

		for range 50 {
			itemID, err := c.SelectNext(user, categorizedViews())
			require.NoError(t, err)
			require.Equal(t, "economics", categoryOf(itemID, categorizedViews()))
		}
	})

	t.Run("uniform across multiple qualified categories", func(t *testing.T) {
		c, err := NewCategory(1, ModeStatic, FallbackNone, 0)
		require.NoError(t, err)
		user := types.UserView{QualifiedCategories: []string{"economics", "science"}}

		seen := make(map[string]bool)
		for range 200 {
			itemID, err := c.SelectNext(user, categorizedViews())
			require.NoError(t, err)
			seen[itemID] = true
		}
		// all four categorized items reachable, plain item never
		require.Len(t, seen, 4)
		require.False(t, seen["plain-0"])
	})

	t.Run("multi-category items are not double counted", func(t *testing.T) {
		c, err := NewCategory(1, ModeStatic, FallbackNone, 0)
		require.NoError(t, err)
		user := types.UserView{QualifiedCategories: []string{"science", "economics"}}
		views := []types.ItemView{
			{ID: "both", Categories: []string{"science", "economics"}},
			{ID: "sci", Categories: []string{"science"}},
		}

		draws := map[string]int{}
		for range 2000 {
			itemID, err := c.SelectNext(user, views)
			require.NoError(t, err)
			draws[itemID]++
		}
		// roughly uniform over two items, not weighted 2:1 toward "both"
		require.InDelta(t, 1000, draws["both"], 150)
	})
}

func TestCategoryDynamic(t *testing.T) {
	t.Run("unqualified category draws at the base probability", func(t *testing.T) {
		c, err := NewCategory(42, ModeDynamic, FallbackNone, 0.1)
		require.NoError(t, err)
		user := types.UserView{
			QualifiedCategories: []string{"economics"},
			Expertise:           map[string]float64{"economics": 0.9, "science": 0.2},
		}
		views := categorizedViews()[:4] // two science, two economics

		draws := map[string]int{}
		const n = 5000
		for range n {
			itemID, err := c.SelectNext(user, views)
			require.NoError(t, err)
			draws[categoryOf(itemID, views)]++
		}

		science := float64(draws["science"]) / n
		require.InDelta(t, 0.1, science, 0.02)
		require.InDelta(t, 0.9, float64(draws["economics"])/n, 0.02)
	})

	t.Run("expertise skews the split between qualified categories", func(t *testing.T) {
		c, err := NewCategory(42, ModeDynamic, FallbackNone, 0)
		require.NoError(t, err)
		user := types.UserView{
			QualifiedCategories: []string{"economics", "science"},
			Expertise:           map[string]float64{"economics": 1.0, "science": 0.0},
		}
		views := categorizedViews()[:4]

		draws := map[string]int{}
		const n = 5000
		for range n {
			itemID, err := c.SelectNext(user, views)
			require.NoError(t, err)
			draws[categoryOf(itemID, views)]++
		}

		// softmax(1,0) = (e/(e+1), 1/(e+1)) = (0.731, 0.269)
		require.InDelta(t, 0.731, float64(draws["economics"])/n, 0.03)
	})
}

func TestCategoryFallback(t *testing.T) {
	unqualified := types.UserView{UserID: "u1"}

	t.Run("none rejects when no category qualifies", func(t *testing.T) {
		c, err := NewCategory(1, ModeStatic, FallbackNone, 0)
		require.NoError(t, err)

		_, err = c.SelectNext(unqualified, categorizedViews())
		require.ErrorIs(t, err, types.ErrNoEligibleItems)
	})

	t.Run("uncategorized serves only unlabeled items", func(t *testing.T) {
		c, err := NewCategory(1, ModeStatic, FallbackUncategorized, 0)
		require.NoError(t, err)

		for range 20 {
			itemID, err := c.SelectNext(unqualified, categorizedViews())
			require.NoError(t, err)
			require.Equal(t, "plain-0", itemID)
		}
	})

	t.Run("uncategorized with no unlabeled items rejects", func(t *testing.T) {
		c, err := NewCategory(1, ModeStatic, FallbackUncategorized, 0)
		require.NoError(t, err)

		_, err = c.SelectNext(unqualified, categorizedViews()[:4])
		require.ErrorIs(t, err, types.ErrNoEligibleItems)
	})

	t.Run("random serves anything", func(t *testing.T) {
		c, err := NewCategory(1, ModeStatic, FallbackRandom, 0)
		require.NoError(t, err)

		seen := make(map[string]bool)
		for range 500 {
			itemID, err := c.SelectNext(unqualified, categorizedViews())
			require.NoError(t, err)
			seen[itemID] = true
		}
		require.Len(t, seen, 5)
	})
}
