package domain

import (
	"context"
	"time"

	"bookwise/internal/models"
)

type Repository interface {
	GetService(ctx context.Context, id int64) (*models.Service, error)
	GetServiceRequirements(ctx context.Context, serviceID int64) ([]models.ServiceResourceRequirement, error)
	GetResourceByID(ctx context.Context, id int64) (*models.Resource, error)
	GetActiveResources(ctx context.Context, companyID int64) ([]models.Resource, error)
	GetPersonnelByIDs(ctx context.Context, ids []int64) ([]models.Personnel, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	GetCustomer(ctx context.Context, id int64) (*models.Customer, error)
	GetPayment(ctx context.Context, id int64) (*models.Payment, error)
	CreateSchedule(ctx context.Context, schedule *models.Schedule) error
	UpdateSchedule(ctx context.Context, schedule *models.Schedule) error
	GetSchedule(ctx context.Context, id int64) (*models.Schedule, error)
	GetScheduleByGUID(ctx context.Context, guid string) (*models.Schedule, error)
	GetBookingSchedules(ctx context.Context, bookingID int64) ([]*models.Schedule, error)
	GetSchedulesByDateRange(ctx context.Context, companyID int64, from, to time.Time) ([]*models.Schedule, error)
	CountBookingSchedules(ctx context.Context, bookingID int64) (int, error)
	GetOverlappingSchedules(
		ctx context.Context,
		companyID int64,
		resourceType models.ResourceType,
		resourceID int64,
		from, to time.Time,
		excludedScheduleIDs []int64,
	) ([]*models.Schedule, map[int64][]models.ScheduleResourceBinding, error)
	ReplaceScheduleBindings(ctx context.Context, scheduleID int64, bindings []models.ScheduleResourceBinding) error
	GetScheduleBindings(ctx context.Context, scheduleID int64) ([]models.ScheduleResourceBinding, error)
	UpdateScheduleSnapshot(ctx context.Context, scheduleID int64, snapshot *models.CalendarSnapshot) error
}

// SnapshotCache - быстрый read-model для календарных снимков.
// Источник истины всегда в БД; кэш можно терять без последствий.
type SnapshotCache interface {
	GetSnapshot(ctx context.Context, scheduleID int64) (*models.CalendarSnapshot, error)
	SetSnapshot(ctx context.Context, scheduleID int64, snapshot *models.CalendarSnapshot) error
	InvalidateSnapshot(ctx context.Context, scheduleID int64) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Notifier - внешний коллаборатор уведомлений. Вызывается fire-and-forget:
// его ошибки никогда не откатывают аллокацию.
type Notifier interface {
	NotifySchedulePaymentLinked(ctx context.Context, schedule *models.Schedule) error
}

type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType string, scheduleID int64, snapshot *models.CalendarSnapshot) error
	EnqueueSyncCalendar(ctx context.Context, startDate, endDate time.Time) error
}

// CalendarWriter публикует снимки во внешнюю таблицу (Google Sheets).
type CalendarWriter interface {
	UpsertScheduleRow(ctx context.Context, snapshot *models.CalendarSnapshot) error
	ReplaceCalendar(ctx context.Context, snapshots []*models.CalendarSnapshot) error
}

// Clock - источник времени движка; в тестах подменяется фиксированным.
type Clock interface {
	Now() time.Time
}

type AvailabilityChecker interface {
	CheckAvailability(ctx context.Context, serviceID int64, window models.Window, excludedScheduleIDs []int64) (*models.AvailabilityResult, error)
}

type SnapshotBuilder interface {
	Materialize(ctx context.Context, schedule *models.Schedule, bindings []models.ScheduleResourceBinding) (*models.CalendarSnapshot, error)
}
