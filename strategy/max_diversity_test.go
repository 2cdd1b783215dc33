package strategy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidjurgens/potato-sub003/types"
)

func TestMaxDiversity(t *testing.T) {
	t.Run("empty eligible set", func(t *testing.T) {
		m := NewMaxDiversity()
		_, err := m.SelectNext(types.UserView{}, nil)
		require.ErrorIs(t, err, types.ErrNoEligibleItems)
	})

	t.Run("contested items outrank unanimous ones", func(t *testing.T) {
		m := NewMaxDiversity()
		views := []types.ItemView{
			// 4 annotations, all the same label: 1/4
			{ID: "unanimous", OrderIndex: 0, AnnotationCount: 4, DisagreementScore: 0.25},
			// 4 annotations, two labels split evenly: 2/4
			{ID: "contested", OrderIndex: 1, AnnotationCount: 4, DisagreementScore: 0.5},
			// untouched: 0
			{ID: "fresh", OrderIndex: 2, AnnotationCount: 0, DisagreementScore: 0},
		}

		itemID, err := m.SelectNext(types.UserView{}, views)
		require.NoError(t, err)
		require.Equal(t, "contested", itemID)
	})

	t.Run("equal disagreement prefers fewer annotations", func(t *testing.T) {
		m := NewMaxDiversity()
		views := []types.ItemView{
			{ID: "heavy", OrderIndex: 0, AnnotationCount: 8, DisagreementScore: 0.5},
			{ID: "light", OrderIndex: 1, AnnotationCount: 2, DisagreementScore: 0.5},
		}

		itemID, err := m.SelectNext(types.UserView{}, views)
		require.NoError(t, err)
		require.Equal(t, "light", itemID)
	})

	t.Run("full tie breaks by dataset order", func(t *testing.T) {
		m := NewMaxDiversity()
		views := []types.ItemView{
			{ID: "later", OrderIndex: 5},
			{ID: "earlier", OrderIndex: 1},
		}

		itemID, err := m.SelectNext(types.UserView{}, views)
		require.NoError(t, err)
		require.Equal(t, "earlier", itemID)
	})
}
