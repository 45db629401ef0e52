package availability

import (
	"context"
	"errors"
	"fmt"

	"bookwise/internal/database"
	"bookwise/internal/domain"
	"bookwise/internal/metrics"
	"bookwise/internal/models"

	"github.com/rs/zerolog"
)

// Checker отвечает на вопрос "хватит ли ресурсов в этом окне".
// Все проверки read-only; результат совещательный, а не резервирование:
// между проверкой и аллокацией другая бронь может занять ёмкость.
type Checker struct {
	repo   domain.Repository
	logger *zerolog.Logger
}

func NewChecker(repo domain.Repository, logger *zerolog.Logger) *Checker {
	return &Checker{repo: repo, logger: logger}
}

type requirementResult struct {
	conflict *models.ResourceConflict
	err      error
}

// CheckAvailability проверяет все требования услуги для окна window.
// excludedScheduleIDs исключают собственные расписания при редактировании.
func (c *Checker) CheckAvailability(ctx context.Context, serviceID int64, window models.Window, excludedScheduleIDs []int64) (*models.AvailabilityResult, error) {
	if !window.Valid() {
		metrics.IncAvailabilityCheck("error")
		return nil, database.ErrInvalidWindow
	}

	svc, err := c.repo.GetService(ctx, serviceID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) || errors.Is(err, database.ErrServiceNotFound) {
			// Отсутствие услуги - явный конфликт, а не тихий пропуск.
			metrics.IncAvailabilityCheck("conflict")
			return &models.AvailabilityResult{
				Available: false,
				Conflicts: []models.ResourceConflict{{
					ResourceName: fmt.Sprintf("service %d", serviceID),
					Reason:       models.ConflictReasonNotFound,
				}},
			}, nil
		}
		metrics.IncAvailabilityCheck("error")
		return nil, fmt.Errorf("failed to load service %d: %w", serviceID, err)
	}

	requirements := svc.Requirements
	if len(requirements) == 0 {
		metrics.IncAvailabilityCheck("available")
		return &models.AvailabilityResult{Available: true}, nil
	}

	// Требования независимы: проверяем их параллельно и
	// собираем результаты только после завершения всех.
	results := make(chan requirementResult, len(requirements))
	for _, req := range requirements {
		go func(req models.ServiceResourceRequirement) {
			conflict, err := c.checkRequirement(ctx, svc.CompanyID, req, window, excludedScheduleIDs)
			results <- requirementResult{conflict: conflict, err: err}
		}(req)
	}

	var conflicts []models.ResourceConflict
	var firstErr error
	for range requirements {
		res := <-results
		if res.err != nil && firstErr == nil {
			firstErr = res.err
		}
		if res.conflict != nil {
			conflicts = append(conflicts, *res.conflict)
		}
	}

	if firstErr != nil {
		metrics.IncAvailabilityCheck("error")
		return nil, firstErr
	}

	if len(conflicts) > 0 {
		metrics.IncAvailabilityCheck("conflict")
		c.logger.Debug().
			Int64("service_id", serviceID).
			Time("start", window.Start).
			Time("end", window.End).
			Int("conflicts", len(conflicts)).
			Msg("Окно недоступно")
		return &models.AvailabilityResult{Available: false, Conflicts: conflicts}, nil
	}

	metrics.IncAvailabilityCheck("available")
	return &models.AvailabilityResult{Available: true}, nil
}

// checkRequirement проверяет одно требование. Окно запроса расширяется на
// буферы требования; существующие расписания сравниваются по сырым границам
// строгим предикатом - соприкасающиеся границы не конфликтуют.
func (c *Checker) checkRequirement(ctx context.Context, companyID int64, req models.ServiceResourceRequirement, window models.Window, excludedScheduleIDs []int64) (*models.ResourceConflict, error) {
	capacity, resourceName, notFound, err := c.requirementCapacity(ctx, req)
	if err != nil {
		return nil, err
	}
	if notFound != nil {
		metrics.IncResourceConflict(string(req.Type))
		return notFound, nil
	}

	query := window.Expand(req.PreparationMinutes, req.FinalizationMinutes)

	schedules, bindings, err := c.repo.GetOverlappingSchedules(
		ctx, companyID, req.Type, req.PoolResourceID(), query.Start, query.End, excludedScheduleIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load overlapping schedules: %w", err)
	}

	// Расписание может держать привязки нескольких типов; в занятую ёмкость
	// входят только привязки типа требования (и его ресурса для TOOL/CONSUMABLE).
	poolResourceID := req.PoolResourceID()
	var alreadyAllocated int64
	var holders []int64
	for _, schedule := range schedules {
		for _, b := range bindings[schedule.ID] {
			if b.Type != req.Type {
				continue
			}
			if poolResourceID != 0 && b.ResourceID != poolResourceID {
				continue
			}
			alreadyAllocated += b.AllocatedQuantity
			holders = append(holders, b.ResourceID)
		}
	}

	available := capacity - alreadyAllocated
	if available >= req.RequiredQuantity {
		return nil, nil
	}

	metrics.IncResourceConflict(string(req.Type))
	return &models.ResourceConflict{
		RequirementID:        req.ID,
		Type:                 req.Type,
		ResourceID:           req.PoolResourceID(),
		ResourceName:         resourceName,
		RequiredQuantity:     req.RequiredQuantity,
		AlreadyAllocated:     alreadyAllocated,
		AvailableQuantity:    available,
		AllocatedResourceIDs: holders,
		Reason:               models.ConflictReasonCapacity,
	}, nil
}

// requirementCapacity возвращает ёмкость пула требования.
// Для PERSONNEL это размер пула сотрудников, для TOOL/CONSUMABLE -
// поле quantity конкретного ресурса.
func (c *Checker) requirementCapacity(ctx context.Context, req models.ServiceResourceRequirement) (int64, string, *models.ResourceConflict, error) {
	if req.Type == models.ResourcePersonnel {
		return int64(len(req.PersonnelIDs)), req.Name, nil, nil
	}

	resource, err := c.repo.GetResourceByID(ctx, req.ResourceID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) || errors.Is(err, database.ErrResourceNotFound) {
			return 0, "", &models.ResourceConflict{
				RequirementID:    req.ID,
				Type:             req.Type,
				ResourceID:       req.ResourceID,
				ResourceName:     req.Name,
				RequiredQuantity: req.RequiredQuantity,
				Reason:           models.ConflictReasonNotFound,
			}, nil
		}
		return 0, "", nil, fmt.Errorf("failed to load resource %d: %w", req.ResourceID, err)
	}

	return resource.Quantity, resource.Name, nil, nil
}
