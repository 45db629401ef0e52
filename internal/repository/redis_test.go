package repository

import (
	"context"
	"testing"
	"time"

	"bookwise/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot(title string) *models.CalendarSnapshot {
	return &models.CalendarSnapshot{
		ScheduleGUID: "guid-1",
		DisplayID:    "BK-1::01",
		Title:        title,
		Status:       models.ScheduleStatusActive,
		IsEditable:   true,
		GeneratedAt:  time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
	}
}

func TestRedisSnapshotCache(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	defer client.Close()

	cache := NewRedisSnapshotCache(client, time.Hour)
	ctx := context.Background()

	t.Run("SetAndGetSnapshot", func(t *testing.T) {
		err := cache.SetSnapshot(ctx, 123, testSnapshot("Massage"))
		require.NoError(t, err)

		got, err := cache.GetSnapshot(ctx, 123)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Massage", got.Title)
		assert.True(t, got.IsEditable)
	})

	t.Run("GetNonExistentSnapshot", func(t *testing.T) {
		got, err := cache.GetSnapshot(ctx, 999)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("InvalidateSnapshot", func(t *testing.T) {
		require.NoError(t, cache.SetSnapshot(ctx, 456, testSnapshot("Old")))
		require.NoError(t, cache.InvalidateSnapshot(ctx, 456))

		got, err := cache.GetSnapshot(ctx, 456)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("TTLExpiry", func(t *testing.T) {
		require.NoError(t, cache.SetSnapshot(ctx, 789, testSnapshot("Short")))
		s.FastForward(2 * time.Hour)

		got, err := cache.GetSnapshot(ctx, 789)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestRedisSnapshotCacheNilClient(t *testing.T) {
	cache := NewRedisSnapshotCache(nil, time.Hour)
	ctx := context.Background()

	_, err := cache.GetSnapshot(ctx, 1)
	assert.Error(t, err)
	assert.Error(t, cache.SetSnapshot(ctx, 1, testSnapshot("x")))
	assert.Error(t, cache.InvalidateSnapshot(ctx, 1))
}
