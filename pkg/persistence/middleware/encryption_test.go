package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"io"
	"testing"

	"github.com/aretw0/simgym/pkg/adapters/file"
	"github.com/aretw0/simgym/pkg/adapters/memory"
	"github.com/aretw0/simgym/pkg/domain"
	"github.com/aretw0/simgym/pkg/persistence/middleware"
	"github.com/aretw0/simgym/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func encrypted(t *testing.T, cfg middleware.EncryptionConfig, next ports.ExperienceStore) ports.ExperienceStore {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	require.NoError(t, err)
	return mw(next)
}

var secretEpisode = []domain.Experience{
	{State: []any{1.0, 2.0}, Action: 0.5, Reward: 1, NextState: "secret-sauce"},
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	ports.RunExperienceStoreContract(t, encrypted(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)}, memory.NewStore()))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	dir := t.TempDir()
	underlying := file.New(dir)
	secure := encrypted(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)}, underlying)
	ctx := context.Background()

	require.NoError(t, secure.Save(ctx, 1, secretEpisode))

	// The file on disk holds only the envelope.
	raw, err := underlying.Load(ctx, 1)
	require.NoError(t, err)
	require.Len(t, raw, 1)
	data, err := json.Marshal(raw)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret-sauce")
	assert.Contains(t, string(data), "__encrypted__")

	loaded, err := secure.Load(ctx, 1)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "secret-sauce", loaded[0].NextState)
	assert.Equal(t, 0.5, loaded[0].Action)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)
	ctx := context.Background()

	require.NoError(t, encrypted(t, middleware.EncryptionConfig{ActiveKey: oldKey}, underlying).Save(ctx, 1, secretEpisode))

	rotated := encrypted(t, middleware.EncryptionConfig{ActiveKey: newKey, FallbackKeys: [][]byte{oldKey}}, underlying)
	loaded, err := rotated.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "secret-sauce", loaded[0].NextState)

	withoutFallback := encrypted(t, middleware.EncryptionConfig{ActiveKey: newKey}, underlying)
	_, err = withoutFallback.Load(ctx, 1)
	assert.Error(t, err)
}

func TestEncryptionMiddleware_RejectsPlainEpisodes(t *testing.T) {
	underlying := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, underlying.Save(ctx, 1, secretEpisode))

	secure := encrypted(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)}, underlying)
	_, err := secure.Load(ctx, 1)
	assert.ErrorIs(t, err, middleware.ErrNotEncrypted)

	_, err = secure.Load(ctx, 2)
	assert.ErrorIs(t, err, domain.ErrEpisodeNotFound)
}

func TestNewEncryptionMiddleware_InvalidKey(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short")})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestChain_Order(t *testing.T) {
	var order []string
	tag := func(name string) middleware.Middleware {
		return func(next ports.ExperienceStore) ports.ExperienceStore {
			order = append(order, name)
			return next
		}
	}
	middleware.Chain(memory.NewStore(), tag("outer"), tag("inner"))
	assert.Equal(t, []string{"inner", "outer"}, order)
}
