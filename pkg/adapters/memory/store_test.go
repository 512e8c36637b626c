package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/simgym/pkg/adapters/memory"
	"github.com/aretw0/simgym/pkg/domain"
	"github.com/aretw0/simgym/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	ports.RunExperienceStoreContract(t, memory.NewStore())
}

func TestMemoryStore_Isolation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	records := []domain.Experience{{Action: 1}}
	require.NoError(t, store.Save(ctx, 1, records))
	records[0].Action = 99

	loaded, err := store.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, loaded[0].Action)

	loaded[0].Action = 42
	again, err := store.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, again[0].Action)
}
