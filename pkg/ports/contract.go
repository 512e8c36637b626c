package ports

import (
	"context"
	"testing"

	"github.com/aretw0/simgym/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunExperienceStoreContract runs a suite of tests to verify that an ExperienceStore
// implementation adheres to the defined interface contract.
// The store must start empty.
func RunExperienceStoreContract(t *testing.T, store ExperienceStore) {
	ctx := context.Background()

	t.Run("Save and Load", func(t *testing.T) {
		records := []domain.Experience{
			{State: map[string]any{"bg": 110.0}, Action: 0.5, Reward: 1.5, NextState: map[string]any{"bg": 112.0}},
			{State: nil, Action: 0, Reward: 0, NextState: nil},
		}

		require.NoError(t, store.Save(ctx, 7, records), "Save should not return error")

		loaded, err := store.Load(ctx, 7)
		require.NoError(t, err, "Load should not return error")
		require.Len(t, loaded, 2)
		assert.Equal(t, 0.5, loaded[0].Action)
		assert.Equal(t, 1.5, loaded[0].Reward)
		// JSON persistence turns nested numbers into float64, which is acceptable here.
		assert.NotNil(t, loaded[0].State)
		assert.Nil(t, loaded[1].NextState)
	})

	t.Run("Save Empty Episode", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, 8, nil))

		loaded, err := store.Load(ctx, 8)
		require.NoError(t, err)
		assert.NotNil(t, loaded, "an empty episode loads as an empty list, not nil")
		assert.Empty(t, loaded)
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, 9, []domain.Experience{{Action: 1}, {Action: 2}}))
		require.NoError(t, store.Save(ctx, 9, []domain.Experience{{Action: 3}}))

		loaded, err := store.Load(ctx, 9)
		require.NoError(t, err)
		require.Len(t, loaded, 1)
		assert.Equal(t, 3.0, loaded[0].Action)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, 999)
		assert.ErrorIs(t, err, domain.ErrEpisodeNotFound)
	})

	t.Run("List", func(t *testing.T) {
		episodes, err := store.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int{7, 8, 9}, episodes)
	})
}
