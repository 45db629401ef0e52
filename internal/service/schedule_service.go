package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookwise/internal/allocation"
	"bookwise/internal/database"
	"bookwise/internal/domain"
	"bookwise/internal/events"
	"bookwise/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Allocator - аллокатор связок; в тестах подменяется.
type Allocator interface {
	Allocate(ctx context.Context, schedule *models.Schedule) (*allocation.Result, error)
}

// ScheduleInput - одно окно в пакетном upsert расписаний брони.
// Пустой GUID означает создание, заполненный - обновление существующего.
type ScheduleInput struct {
	GUID          string
	Name          string
	Start         time.Time
	End           time.Time
	Status        string
	Notes         string
	PaymentMethod string
}

// ScheduleResult - расписание вместе с итогом его аллокации.
type ScheduleResult struct {
	Schedule *models.Schedule
	Degraded bool
}

// ScheduleService оркестрирует жизненный цикл расписаний: upsert окон
// брони, аллокацию ресурсов, распределение платежей и чтение календаря.
type ScheduleService struct {
	repo       domain.Repository
	checker    domain.AvailabilityChecker
	allocator  Allocator
	snapshots  domain.SnapshotBuilder
	cache      domain.SnapshotCache
	eventBus   domain.EventPublisher
	notifier   domain.Notifier
	syncWorker domain.SyncWorker
	logger     *zerolog.Logger
}

func NewScheduleService(
	repo domain.Repository,
	checker domain.AvailabilityChecker,
	allocator Allocator,
	snapshots domain.SnapshotBuilder,
	cache domain.SnapshotCache,
	eventBus domain.EventPublisher,
	notifier domain.Notifier,
	syncWorker domain.SyncWorker,
	logger *zerolog.Logger,
) *ScheduleService {
	return &ScheduleService{
		repo:       repo,
		checker:    checker,
		allocator:  allocator,
		snapshots:  snapshots,
		cache:      cache,
		eventBus:   eventBus,
		notifier:   notifier,
		syncWorker: syncWorker,
		logger:     logger,
	}
}

// CheckAvailability - read-only предварительная проверка окна.
// Результат совещательный: ёмкость между проверкой и аллокацией
// может занять конкурирующая бронь.
func (s *ScheduleService) CheckAvailability(ctx context.Context, serviceID int64, window models.Window, excludedScheduleIDs []int64) (*models.AvailabilityResult, error) {
	return s.checker.CheckAvailability(ctx, serviceID, window, excludedScheduleIDs)
}

// CreateOrUpdateSchedules создаёт и/или обновляет окна брони по порядку,
// аллоцируя каждое. Ошибка на одном окне прерывает пакет: уже
// обработанные окна остаются, состояние не откатывается.
func (s *ScheduleService) CreateOrUpdateSchedules(ctx context.Context, bookingID int64, inputs []ScheduleInput) ([]ScheduleResult, error) {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	ordinal, err := s.repo.CountBookingSchedules(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	results := make([]ScheduleResult, 0, len(inputs))
	for _, input := range inputs {
		var schedule *models.Schedule
		if input.GUID == "" {
			ordinal++
			schedule, err = s.createSchedule(ctx, booking, input, ordinal)
		} else {
			schedule, err = s.updateSchedule(ctx, input)
		}
		if err != nil {
			return results, err
		}

		allocated, err := s.allocator.Allocate(ctx, schedule)
		if err != nil {
			return results, fmt.Errorf("failed to allocate schedule %d: %w", schedule.ID, err)
		}

		s.publishScheduleEvent(events.EventScheduleAllocated, schedule, len(allocated.Bindings), allocated.Degraded)
		s.enqueueSync(ctx, schedule)

		results = append(results, ScheduleResult{Schedule: schedule, Degraded: allocated.Degraded})
	}
	return results, nil
}

func (s *ScheduleService) createSchedule(ctx context.Context, booking *models.Booking, input ScheduleInput, ordinal int) (*models.Schedule, error) {
	window := models.NewWindow(input.Start, input.End)
	if !window.Valid() {
		return nil, database.ErrInvalidWindow
	}

	name := input.Name
	if name == "" {
		name = fmt.Sprintf("%s - Session", input.Start.Format(models.DefaultScheduleNameLayout))
	}

	schedule := &models.Schedule{
		GUID:          uuid.NewString(),
		DisplayID:     fmt.Sprintf("%s::%02d", booking.Ref, ordinal),
		BookingID:     booking.ID,
		ServiceID:     booking.ServiceID,
		CompanyID:     booking.CompanyID,
		Name:          name,
		Start:         input.Start,
		End:           input.End,
		Status:        input.Status,
		PaymentMethod: input.PaymentMethod,
		Notes:         input.Notes,
	}
	if err := s.repo.CreateSchedule(ctx, schedule); err != nil {
		return nil, err
	}
	return schedule, nil
}

func (s *ScheduleService) updateSchedule(ctx context.Context, input ScheduleInput) (*models.Schedule, error) {
	schedule, err := s.repo.GetScheduleByGUID(ctx, input.GUID)
	if err != nil {
		return nil, err
	}

	// Терминальные статусы замораживают окно и его привязки
	if models.IsTerminalStatus(schedule.Status) {
		return nil, fmt.Errorf("schedule %s is in terminal status %s", schedule.GUID, schedule.Status)
	}

	window := models.NewWindow(input.Start, input.End)
	if !window.Valid() {
		return nil, database.ErrInvalidWindow
	}

	schedule.Start = input.Start
	schedule.End = input.End
	if input.Name != "" {
		schedule.Name = input.Name
	}
	if input.Status != "" {
		schedule.Status = input.Status
	}
	if input.PaymentMethod != "" {
		schedule.PaymentMethod = input.PaymentMethod
	}
	schedule.Notes = input.Notes

	if err := s.repo.UpdateSchedule(ctx, schedule); err != nil {
		return nil, err
	}
	return schedule, nil
}

// ApplyPayment распределяет подтверждённый пакетный платёж по расписаниям
// брони: хронологически, не больше SessionCount сеансов, только DRAFT и
// PENDING без платёжной привязки. Уже привязанные окна пропускаются,
// не расходуя слот, поэтому повторное применение того же платежа
// ничего не перезаписывает. Возвращает привязанные расписания; Degraded
// означает, что привязка записана, а снимок календаря обновить не удалось.
func (s *ScheduleService) ApplyPayment(ctx context.Context, paymentID int64) ([]ScheduleResult, error) {
	payment, err := s.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	schedules, err := s.repo.GetBookingSchedules(ctx, payment.BookingID)
	if err != nil {
		return nil, err
	}

	var linked []ScheduleResult
	remaining := payment.SessionCount
	for _, schedule := range schedules {
		if remaining <= 0 {
			break
		}
		if schedule.Status != models.ScheduleStatusDraft && schedule.Status != models.ScheduleStatusPending {
			continue
		}
		if schedule.HasPaymentData() {
			continue
		}

		schedule.Status = models.ScheduleStatusPending
		schedule.IsPaid = payment.Paid
		schedule.PaymentID = payment.ID
		schedule.PaymentMethod = payment.PaymentMethod
		schedule.PaymentData = &models.PaymentData{
			PaymentLink:   payment.PaymentLink,
			InvoicePDFURL: payment.InvoicePDFURL,
			IsPaid:        payment.Paid,
			PaidAt:        payment.PaidAt,
		}

		if err := s.repo.UpdateSchedule(ctx, schedule); err != nil {
			return linked, fmt.Errorf("failed to link payment to schedule %d: %w", schedule.ID, err)
		}
		remaining--

		degraded := !s.regenerateSnapshot(ctx, schedule)
		if degraded {
			s.publishScheduleEvent(events.EventSnapshotDegraded, schedule, 0, true)
		}
		s.publishScheduleEvent(events.EventSchedulePaymentLinked, schedule, 0, degraded)
		s.enqueueSync(ctx, schedule)

		// Уведомление вне критического пути: его сбой не откатывает привязку
		if s.notifier != nil {
			if err := s.notifier.NotifySchedulePaymentLinked(ctx, schedule); err != nil {
				s.logger.Warn().Err(err).Int64("schedule_id", schedule.ID).Msg("Уведомление о платеже не отправлено")
			}
		}

		linked = append(linked, ScheduleResult{Schedule: schedule, Degraded: degraded})
	}
	return linked, nil
}

// GetCalendar возвращает снимки расписаний компании за период.
// Сначала кэш, затем сохранённый снимок, в крайнем случае материализация.
func (s *ScheduleService) GetCalendar(ctx context.Context, companyID int64, from, to time.Time) ([]*models.CalendarSnapshot, error) {
	schedules, err := s.repo.GetSchedulesByDateRange(ctx, companyID, from, to)
	if err != nil {
		return nil, err
	}

	snapshots := make([]*models.CalendarSnapshot, 0, len(schedules))
	for _, schedule := range schedules {
		if s.cache != nil {
			if cached, err := s.cache.GetSnapshot(ctx, schedule.ID); err == nil && cached != nil {
				snapshots = append(snapshots, cached)
				continue
			}
		}
		if schedule.Snapshot != nil {
			snapshots = append(snapshots, schedule.Snapshot)
			continue
		}

		bindings, err := s.repo.GetScheduleBindings(ctx, schedule.ID)
		if err != nil {
			return nil, err
		}
		snapshot, err := s.snapshots.Materialize(ctx, schedule, bindings)
		if err != nil {
			return nil, fmt.Errorf("failed to materialize snapshot for schedule %d: %w", schedule.ID, err)
		}
		if err := s.repo.UpdateScheduleSnapshot(ctx, schedule.ID, snapshot); err != nil && !errors.Is(err, database.ErrScheduleNotFound) {
			s.logger.Warn().Err(err).Int64("schedule_id", schedule.ID).Msg("Снимок не сохранён")
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}

// regenerateSnapshot перегенерирует снимок после изменения расписания.
// Сбой логируется и не прерывает операцию; false означает, что снимок
// остался устаревшим.
func (s *ScheduleService) regenerateSnapshot(ctx context.Context, schedule *models.Schedule) bool {
	bindings, err := s.repo.GetScheduleBindings(ctx, schedule.ID)
	if err != nil {
		s.logger.Error().Err(err).Int64("schedule_id", schedule.ID).Msg("Привязки для снимка не загрузились")
		return false
	}

	snapshot, err := s.snapshots.Materialize(ctx, schedule, bindings)
	if err != nil {
		s.logger.Error().Err(err).Int64("schedule_id", schedule.ID).Msg("Снимок не перегенерировался")
		return false
	}

	if err := s.repo.UpdateScheduleSnapshot(ctx, schedule.ID, snapshot); err != nil {
		s.logger.Error().Err(err).Int64("schedule_id", schedule.ID).Msg("Снимок не сохранился")
		return false
	}
	schedule.Snapshot = snapshot

	if s.cache != nil {
		if err := s.cache.SetSnapshot(ctx, schedule.ID, snapshot); err != nil {
			// кэш не источник истины, снимок уже сохранён
			s.logger.Warn().Err(err).Int64("schedule_id", schedule.ID).Msg("Снимок не закэширован")
		}
	}
	return true
}

func (s *ScheduleService) publishScheduleEvent(eventType string, schedule *models.Schedule, bindingCount int, degraded bool) {
	if s.eventBus == nil {
		return
	}
	payload := events.ScheduleEventPayload{
		ScheduleID:   schedule.ID,
		ScheduleGUID: schedule.GUID,
		BookingID:    schedule.BookingID,
		ServiceID:    schedule.ServiceID,
		CompanyID:    schedule.CompanyID,
		Status:       schedule.Status,
		Start:        schedule.Start,
		End:          schedule.End,
		IsPaid:       schedule.IsPaid,
		PaymentID:    schedule.PaymentID,
		BindingCount: bindingCount,
		Degraded:     degraded,
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("Событие не опубликовано")
	}
}

func (s *ScheduleService) enqueueSync(ctx context.Context, schedule *models.Schedule) {
	if s.syncWorker == nil {
		return
	}
	if err := s.syncWorker.EnqueueTask(ctx, "upsert", schedule.ID, schedule.Snapshot); err != nil {
		s.logger.Warn().Err(err).Int64("schedule_id", schedule.ID).Msg("Задача синхронизации не поставлена")
	}
}
