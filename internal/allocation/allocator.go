package allocation

import (
	"context"
	"fmt"
	"time"

	"bookwise/internal/domain"
	"bookwise/internal/metrics"
	"bookwise/internal/models"

	"github.com/rs/zerolog"
)

// Result - итог аллокации одного расписания. Degraded означает, что
// связки записаны, но снимок календаря обновить не удалось.
type Result struct {
	Bindings []models.ScheduleResourceBinding
	Snapshot *models.CalendarSnapshot
	Degraded bool
}

// Allocator материализует связки ресурсов для расписания.
// Ёмкость он не перепроверяет: вызывающий либо прогнал проверку
// доступности, либо сознательно идёт на переаллокацию.
type Allocator struct {
	repo      domain.Repository
	snapshots domain.SnapshotBuilder
	cache     domain.SnapshotCache
	locks     scheduleLocks
	logger    *zerolog.Logger
}

func NewAllocator(repo domain.Repository, snapshots domain.SnapshotBuilder, cache domain.SnapshotCache, logger *zerolog.Logger) *Allocator {
	return &Allocator{
		repo:      repo,
		snapshots: snapshots,
		cache:     cache,
		logger:    logger,
	}
}

// Allocate собирает полный набор связок по требованиям услуги, атомарно
// заменяет им предыдущий набор и перегенерирует снимок календаря.
// Две конкурентные аллокации одного расписания сериализуются по ключу.
func (a *Allocator) Allocate(ctx context.Context, schedule *models.Schedule) (*Result, error) {
	start := time.Now()
	release := a.locks.acquire(schedule.ID)
	defer release()

	requirements, err := a.repo.GetServiceRequirements(ctx, schedule.ServiceID)
	if err != nil {
		metrics.IncAllocation("error")
		return nil, fmt.Errorf("failed to load requirements for service %d: %w", schedule.ServiceID, err)
	}

	bindings := a.buildBindings(schedule, requirements)

	// Полная замена: частичные наборы связок не персистятся никогда.
	if err := a.repo.ReplaceScheduleBindings(ctx, schedule.ID, bindings); err != nil {
		metrics.IncAllocation("error")
		return nil, fmt.Errorf("failed to replace bindings for schedule %d: %w", schedule.ID, err)
	}

	result := &Result{Bindings: bindings}

	// Снимок обновляется последним. Его сбой не откатывает связки:
	// устаревший снимок лучше потери зафиксированной аллокации.
	snapshot, err := a.snapshots.Materialize(ctx, schedule, bindings)
	if err != nil {
		metrics.IncSnapshotRegen("error")
		metrics.IncAllocation("degraded")
		a.logger.Error().Err(err).
			Int64("schedule_id", schedule.ID).
			Msg("Не удалось перегенерировать снимок календаря")
		result.Degraded = true
		metrics.ObserveAllocationDuration(time.Since(start))
		return result, nil
	}

	if err := a.repo.UpdateScheduleSnapshot(ctx, schedule.ID, snapshot); err != nil {
		metrics.IncSnapshotRegen("error")
		metrics.IncAllocation("degraded")
		a.logger.Error().Err(err).
			Int64("schedule_id", schedule.ID).
			Msg("Не удалось сохранить снимок календаря")
		result.Degraded = true
		metrics.ObserveAllocationDuration(time.Since(start))
		return result, nil
	}

	schedule.Snapshot = snapshot
	result.Snapshot = snapshot
	metrics.IncSnapshotRegen("ok")

	if a.cache != nil {
		if err := a.cache.SetSnapshot(ctx, schedule.ID, snapshot); err != nil {
			// кэш не источник истины
			a.logger.Warn().Err(err).Int64("schedule_id", schedule.ID).Msg("Снимок не закэширован")
		}
	}

	metrics.IncAllocation("ok")
	metrics.ObserveAllocationDuration(time.Since(start))

	a.logger.Info().
		Int64("schedule_id", schedule.ID).
		Int("bindings", len(bindings)).
		Msg("Ресурсы расписания аллоцированы")

	return result, nil
}

// buildBindings переводит требования услуги в связки. Буферы копируются
// из требования в момент аллокации; последующие правки требования не
// меняют живые брони.
func (a *Allocator) buildBindings(schedule *models.Schedule, requirements []models.ServiceResourceRequirement) []models.ScheduleResourceBinding {
	var bindings []models.ScheduleResourceBinding

	for _, req := range requirements {
		switch req.Type {
		case models.ResourcePersonnel:
			pool := ExpandPersonnelPool(req.PersonnelIDs, req.RequiredQuantity)
			if int64(len(req.PersonnelIDs)) < req.RequiredQuantity && len(req.PersonnelIDs) > 0 {
				metrics.IncOverallocation(string(req.Type))
				a.logger.Warn().
					Int64("schedule_id", schedule.ID).
					Int64("requirement_id", req.ID).
					Int("pool", len(req.PersonnelIDs)).
					Int64("required", req.RequiredQuantity).
					Msg("Пул персонала меньше требуемого, дублируем последнего")
			}
			limit := req.RequiredQuantity
			if limit > int64(len(pool)) {
				limit = int64(len(pool))
			}
			for _, personnelID := range pool[:limit] {
				bindings = append(bindings, models.ScheduleResourceBinding{
					ScheduleID:          schedule.ID,
					Type:                models.ResourcePersonnel,
					ResourceID:          personnelID,
					AllocatedQuantity:   1,
					PreparationMinutes:  req.PreparationMinutes,
					FinalizationMinutes: req.FinalizationMinutes,
					CompanyID:           schedule.CompanyID,
				})
			}

		case models.ResourceTool, models.ResourceConsumable:
			quantity := QuantityFloor(req.RequiredQuantity, len(bindings))
			if quantity > req.RequiredQuantity {
				metrics.IncOverallocation(string(req.Type))
			}
			bindings = append(bindings, models.ScheduleResourceBinding{
				ScheduleID:          schedule.ID,
				Type:                req.Type,
				ResourceID:          req.ResourceID,
				AllocatedQuantity:   quantity,
				PreparationMinutes:  req.PreparationMinutes,
				FinalizationMinutes: req.FinalizationMinutes,
				CompanyID:           schedule.CompanyID,
			})
		}
	}

	return bindings
}
