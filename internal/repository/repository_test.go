package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"storemirror/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisRepo(t *testing.T) (*RedisCursorRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := NewRedisClient(config.RedisConfig{Address: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCursorRepository(client, time.Hour), mr
}

func TestRedisCursorRoundTrip(t *testing.T) {
	repo, _ := setupRedisRepo(t)
	ctx := context.Background()

	got, err := repo.GetCursor(ctx, "orders")
	require.NoError(t, err)
	assert.Nil(t, got)

	cursor := &Cursor{Collection: "orders", NextPage: 6, UpdatedAt: time.Now().UTC()}
	require.NoError(t, repo.SetCursor(ctx, cursor))

	got, err = repo.GetCursor(ctx, "orders")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "orders", got.Collection)
	assert.Equal(t, 6, got.NextPage)

	require.NoError(t, repo.ClearCursor(ctx, "orders"))
	got, err = repo.GetCursor(ctx, "orders")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisCursorsAreIndependent(t *testing.T) {
	repo, _ := setupRedisRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SetCursor(ctx, &Cursor{Collection: "orders", NextPage: 2}))
	require.NoError(t, repo.SetCursor(ctx, &Cursor{Collection: "products", NextPage: 9}))

	got, err := repo.GetCursor(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, 2, got.NextPage)

	require.NoError(t, repo.ClearCursor(ctx, "orders"))
	got, err = repo.GetCursor(ctx, "products")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 9, got.NextPage)
}

func TestPushDeadLetter(t *testing.T) {
	repo, mr := setupRedisRepo(t)
	ctx := context.Background()

	payload, err := json.Marshal(map[string]any{"id": 42, "sync_type": "orders"})
	require.NoError(t, err)
	require.NoError(t, repo.PushDeadLetter(ctx, payload))

	entries, err := mr.List(deadLetterKey)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.JSONEq(t, string(payload), entries[0])
}

func TestMemoryCursorRepository(t *testing.T) {
	repo := NewMemoryCursorRepository()
	ctx := context.Background()

	got, err := repo.GetCursor(ctx, "customers")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, repo.SetCursor(ctx, &Cursor{Collection: "customers", NextPage: 3}))
	got, err = repo.GetCursor(ctx, "customers")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 3, got.NextPage)

	require.NoError(t, repo.ClearCursor(ctx, "customers"))
	got, err = repo.GetCursor(ctx, "customers")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFailover_FallsBackWhenPrimaryDies(t *testing.T) {
	mr := miniredis.RunT(t)
	client := NewRedisClient(config.RedisConfig{Address: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := zerolog.Nop()
	primary := NewRedisCursorRepository(client, time.Hour)
	fallback := NewMemoryCursorRepository()
	repo := NewFailoverCursorRepository(primary, fallback, &logger)
	ctx := context.Background()

	require.NoError(t, repo.SetCursor(ctx, &Cursor{Collection: "orders", NextPage: 2}))

	mr.Close()

	// Writes keep working through the memory fallback.
	require.NoError(t, repo.SetCursor(ctx, &Cursor{Collection: "orders", NextPage: 5}))

	got, err := repo.GetCursor(ctx, "orders")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 5, got.NextPage)
}

func TestFailover_HealthyPrimaryWins(t *testing.T) {
	mr := miniredis.RunT(t)
	client := NewRedisClient(config.RedisConfig{Address: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := zerolog.Nop()
	repo := NewFailoverCursorRepository(
		NewRedisCursorRepository(client, time.Hour),
		NewMemoryCursorRepository(),
		&logger,
	)
	ctx := context.Background()

	require.NoError(t, repo.SetCursor(ctx, &Cursor{Collection: "products", NextPage: 4}))

	// The cursor landed in redis, not just in memory.
	raw := mr.Exists(cursorKey("products"))
	assert.True(t, raw)
}
