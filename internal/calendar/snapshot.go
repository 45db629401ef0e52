package calendar

import (
	"context"
	"fmt"
	"time"

	"bookwise/internal/domain"
	"bookwise/internal/models"

	"github.com/rs/zerolog"
)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Builder материализует снимки календаря. Чистая функция от расписания,
// его привязок и связанных сущностей; побочных эффектов нет - результат
// персистит вызывающий.
type Builder struct {
	repo   domain.Repository
	clock  domain.Clock
	logger *zerolog.Logger
}

func NewBuilder(repo domain.Repository, clock domain.Clock, logger *zerolog.Logger) *Builder {
	if clock == nil {
		clock = systemClock{}
	}
	return &Builder{repo: repo, clock: clock, logger: logger}
}

// Materialize собирает денормализованный снимок расписания.
// В сводку персонала попадают только привязки типа PERSONNEL, остальные
// типы - внутренняя кухня аллокатора и наружу не выдаются.
func (b *Builder) Materialize(ctx context.Context, schedule *models.Schedule, bindings []models.ScheduleResourceBinding) (*models.CalendarSnapshot, error) {
	booking, err := b.repo.GetBooking(ctx, schedule.BookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking %d: %w", schedule.BookingID, err)
	}

	service, err := b.repo.GetService(ctx, schedule.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load service %d: %w", schedule.ServiceID, err)
	}

	customer, err := b.repo.GetCustomer(ctx, booking.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load customer %d: %w", booking.CustomerID, err)
	}

	personnel, err := b.assignedPersonnel(ctx, bindings)
	if err != nil {
		return nil, err
	}

	title := service.Name
	if schedule.DisplayID != "" {
		title = fmt.Sprintf("%s - %s", schedule.DisplayID, service.Name)
	}

	return &models.CalendarSnapshot{
		ScheduleGUID:      schedule.GUID,
		DisplayID:         schedule.DisplayID,
		BookingRef:        booking.Ref,
		ServiceID:         service.ID,
		Title:             title,
		Window:            schedule.Window(),
		EventType:         models.EventTypeService,
		IsEditable:        models.IsEditableStatus(schedule.Status),
		AssignedPersonnel: personnel,
		Customer: models.CustomerSummary{
			ID:        customer.ID,
			FirstName: customer.FirstName,
			LastName:  customer.LastName,
			Status:    customer.Status,
		},
		IsPaid:        schedule.IsPaid,
		Status:        schedule.Status,
		PaymentMethod: schedule.PaymentMethod,
		Notes:         schedule.Notes,
		GeneratedAt:   b.clock.Now(),
	}, nil
}

// assignedPersonnel собирает карточки сотрудников из PERSONNEL-привязок:
// одна карточка на привязку в порядке привязок. Дубли политики
// переаллокации не сворачиваются - повтор карточки в сводке
// единственный видимый след переаллокации.
func (b *Builder) assignedPersonnel(ctx context.Context, bindings []models.ScheduleResourceBinding) ([]models.PersonnelSummary, error) {
	var ids []int64
	seen := make(map[int64]bool)
	for _, binding := range bindings {
		if binding.Type != models.ResourcePersonnel || seen[binding.ResourceID] {
			continue
		}
		seen[binding.ResourceID] = true
		ids = append(ids, binding.ResourceID)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	people, err := b.repo.GetPersonnelByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load personnel: %w", err)
	}
	byID := make(map[int64]models.PersonnelSummary, len(people))
	for _, p := range people {
		byID[p.ID] = models.PersonnelSummary{
			ID:        p.ID,
			FirstName: p.FirstName,
			LastName:  p.LastName,
			Email:     p.Email,
		}
	}

	var summaries []models.PersonnelSummary
	for _, binding := range bindings {
		if binding.Type != models.ResourcePersonnel {
			continue
		}
		if summary, ok := byID[binding.ResourceID]; ok {
			summaries = append(summaries, summary)
		}
	}
	return summaries, nil
}
