package repository

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailoverSnapshotCache(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	logger := zerolog.New(io.Discard)
	primary := NewRedisSnapshotCache(client, time.Hour)
	fallback := NewMemorySnapshotCache(time.Hour)
	cache := NewFailoverSnapshotCache(primary, fallback, &logger)

	ctx := context.Background()

	t.Run("PrimaryHealthy", func(t *testing.T) {
		require.NoError(t, cache.SetSnapshot(ctx, 1, testSnapshot("primary")))

		got, err := cache.GetSnapshot(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "primary", got.Title)
	})

	t.Run("FallbackOnRedisDown", func(t *testing.T) {
		s.Close()

		// Запись уходит в memory-фолбэк, чтение оттуда же работает
		require.NoError(t, cache.SetSnapshot(ctx, 2, testSnapshot("fallback")))

		got, err := cache.GetSnapshot(ctx, 2)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "fallback", got.Title)
	})

	t.Run("InvalidateWhileDegraded", func(t *testing.T) {
		require.NoError(t, cache.SetSnapshot(ctx, 3, testSnapshot("gone")))
		require.NoError(t, cache.InvalidateSnapshot(ctx, 3))

		got, err := cache.GetSnapshot(ctx, 3)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestMemorySnapshotCacheTTL(t *testing.T) {
	cache := NewMemorySnapshotCache(time.Millisecond)
	ctx := context.Background()

	require.NoError(t, cache.SetSnapshot(ctx, 1, testSnapshot("ephemeral")))
	time.Sleep(5 * time.Millisecond)

	got, err := cache.GetSnapshot(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemorySnapshotCacheBasics(t *testing.T) {
	cache := NewMemorySnapshotCache(time.Hour)
	ctx := context.Background()

	got, err := cache.GetSnapshot(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, cache.SetSnapshot(ctx, 1, testSnapshot("kept")))

	got, err = cache.GetSnapshot(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "kept", got.Title)

	require.NoError(t, cache.InvalidateSnapshot(ctx, 1))
	got, err = cache.GetSnapshot(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)
}
