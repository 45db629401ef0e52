package repository

import (
	"context"
	"sync"
	"time"

	"bookwise/internal/models"
)

type snapshotEntry struct {
	snapshot  *models.CalendarSnapshot
	expiresAt time.Time
}

// MemorySnapshotCache - in-process запасной кэш на случай недоступности Redis.
type MemorySnapshotCache struct {
	snapshots sync.Map
	ttl       time.Duration
}

func NewMemorySnapshotCache(ttl time.Duration) *MemorySnapshotCache {
	return &MemorySnapshotCache{
		ttl: ttl,
	}
}

func (r *MemorySnapshotCache) GetSnapshot(ctx context.Context, scheduleID int64) (*models.CalendarSnapshot, error) {
	val, ok := r.snapshots.Load(scheduleID)
	if !ok {
		return nil, nil
	}
	entry := val.(*snapshotEntry)
	if time.Now().After(entry.expiresAt) {
		r.snapshots.Delete(scheduleID)
		return nil, nil
	}
	return entry.snapshot, nil
}

func (r *MemorySnapshotCache) SetSnapshot(ctx context.Context, scheduleID int64, snapshot *models.CalendarSnapshot) error {
	r.snapshots.Store(scheduleID, &snapshotEntry{
		snapshot:  snapshot,
		expiresAt: time.Now().Add(r.ttl),
	})
	return nil
}

func (r *MemorySnapshotCache) InvalidateSnapshot(ctx context.Context, scheduleID int64) error {
	r.snapshots.Delete(scheduleID)
	return nil
}
