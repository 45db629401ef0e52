package service

import (
	"context"
	"time"

	"bookwise/internal/allocation"
	"bookwise/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) GetService(ctx context.Context, id int64) (*models.Service, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Service), args.Error(1)
}
func (m *mockRepo) GetServiceRequirements(ctx context.Context, serviceID int64) ([]models.ServiceResourceRequirement, error) {
	args := m.Called(ctx, serviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ServiceResourceRequirement), args.Error(1)
}
func (m *mockRepo) GetResourceByID(ctx context.Context, id int64) (*models.Resource, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Resource), args.Error(1)
}
func (m *mockRepo) GetActiveResources(ctx context.Context, companyID int64) ([]models.Resource, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Resource), args.Error(1)
}
func (m *mockRepo) GetPersonnelByIDs(ctx context.Context, ids []int64) ([]models.Personnel, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Personnel), args.Error(1)
}
func (m *mockRepo) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}
func (m *mockRepo) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Customer), args.Error(1)
}
func (m *mockRepo) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}
func (m *mockRepo) CreateSchedule(ctx context.Context, schedule *models.Schedule) error {
	return m.Called(ctx, schedule).Error(0)
}
func (m *mockRepo) UpdateSchedule(ctx context.Context, schedule *models.Schedule) error {
	return m.Called(ctx, schedule).Error(0)
}
func (m *mockRepo) GetSchedule(ctx context.Context, id int64) (*models.Schedule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Schedule), args.Error(1)
}
func (m *mockRepo) GetScheduleByGUID(ctx context.Context, guid string) (*models.Schedule, error) {
	args := m.Called(ctx, guid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Schedule), args.Error(1)
}
func (m *mockRepo) GetBookingSchedules(ctx context.Context, bookingID int64) ([]*models.Schedule, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Schedule), args.Error(1)
}
func (m *mockRepo) GetSchedulesByDateRange(ctx context.Context, companyID int64, from, to time.Time) ([]*models.Schedule, error) {
	args := m.Called(ctx, companyID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Schedule), args.Error(1)
}
func (m *mockRepo) CountBookingSchedules(ctx context.Context, bookingID int64) (int, error) {
	args := m.Called(ctx, bookingID)
	return args.Int(0), args.Error(1)
}
func (m *mockRepo) GetOverlappingSchedules(ctx context.Context, companyID int64, resourceType models.ResourceType, resourceID int64, from, to time.Time, excludedScheduleIDs []int64) ([]*models.Schedule, map[int64][]models.ScheduleResourceBinding, error) {
	args := m.Called(ctx, companyID, resourceType, resourceID, from, to, excludedScheduleIDs)
	var schedules []*models.Schedule
	if args.Get(0) != nil {
		schedules = args.Get(0).([]*models.Schedule)
	}
	var bindings map[int64][]models.ScheduleResourceBinding
	if args.Get(1) != nil {
		bindings = args.Get(1).(map[int64][]models.ScheduleResourceBinding)
	}
	return schedules, bindings, args.Error(2)
}
func (m *mockRepo) ReplaceScheduleBindings(ctx context.Context, scheduleID int64, bindings []models.ScheduleResourceBinding) error {
	return m.Called(ctx, scheduleID, bindings).Error(0)
}
func (m *mockRepo) GetScheduleBindings(ctx context.Context, scheduleID int64) ([]models.ScheduleResourceBinding, error) {
	args := m.Called(ctx, scheduleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ScheduleResourceBinding), args.Error(1)
}
func (m *mockRepo) UpdateScheduleSnapshot(ctx context.Context, scheduleID int64, snapshot *models.CalendarSnapshot) error {
	return m.Called(ctx, scheduleID, snapshot).Error(0)
}

type mockAllocator struct {
	mock.Mock
}

func (m *mockAllocator) Allocate(ctx context.Context, schedule *models.Schedule) (*allocation.Result, error) {
	args := m.Called(ctx, schedule)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*allocation.Result), args.Error(1)
}

type mockSnapshots struct {
	mock.Mock
}

func (m *mockSnapshots) Materialize(ctx context.Context, schedule *models.Schedule, bindings []models.ScheduleResourceBinding) (*models.CalendarSnapshot, error) {
	args := m.Called(ctx, schedule, bindings)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CalendarSnapshot), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifySchedulePaymentLinked(ctx context.Context, schedule *models.Schedule) error {
	return m.Called(ctx, schedule).Error(0)
}

type mockSyncWorker struct {
	mock.Mock
}

func (m *mockSyncWorker) EnqueueTask(ctx context.Context, taskType string, scheduleID int64, snapshot *models.CalendarSnapshot) error {
	return m.Called(ctx, taskType, scheduleID, snapshot).Error(0)
}
func (m *mockSyncWorker) EnqueueSyncCalendar(ctx context.Context, startDate, endDate time.Time) error {
	return m.Called(ctx, startDate, endDate).Error(0)
}
