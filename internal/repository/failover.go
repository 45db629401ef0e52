package repository

import (
	"context"
	"sync/atomic"
	"time"

	"bookwise/internal/domain"
	"bookwise/internal/models"

	"github.com/rs/zerolog"
)

// FailoverSnapshotCache деградирует на in-memory кэш при сбое Redis
// и пробует вернуться на основной раз в минуту.
type FailoverSnapshotCache struct {
	primary   domain.SnapshotCache
	fallback  domain.SnapshotCache
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck time.Time
}

func NewFailoverSnapshotCache(primary, fallback domain.SnapshotCache, logger *zerolog.Logger) *FailoverSnapshotCache {
	return &FailoverSnapshotCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverSnapshotCache) GetSnapshot(ctx context.Context, scheduleID int64) (*models.CalendarSnapshot, error) {
	if !r.isDown.Load() {
		snapshot, err := r.primary.GetSnapshot(ctx, scheduleID)
		if err == nil {
			return snapshot, nil
		}
		r.logger.Error().Err(err).Msg("Primary snapshot cache failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	// Попытка восстановления через минуту
	if r.isDown.Load() && time.Since(r.lastCheck) > time.Minute {
		snapshot, err := r.primary.GetSnapshot(ctx, scheduleID)
		if err == nil {
			r.isDown.Store(false)
			return snapshot, nil
		}
		r.lastCheck = time.Now()
	}

	return r.fallback.GetSnapshot(ctx, scheduleID)
}

func (r *FailoverSnapshotCache) SetSnapshot(ctx context.Context, scheduleID int64, snapshot *models.CalendarSnapshot) error {
	if !r.isDown.Load() {
		err := r.primary.SetSnapshot(ctx, scheduleID, snapshot)
		if err == nil {
			return nil
		}
		r.logger.Error().Err(err).Msg("Primary snapshot cache failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	return r.fallback.SetSnapshot(ctx, scheduleID, snapshot)
}

func (r *FailoverSnapshotCache) InvalidateSnapshot(ctx context.Context, scheduleID int64) error {
	if !r.isDown.Load() {
		err := r.primary.InvalidateSnapshot(ctx, scheduleID)
		if err == nil {
			return nil
		}
		r.logger.Error().Err(err).Msg("Primary snapshot cache failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	return r.fallback.InvalidateSnapshot(ctx, scheduleID)
}
