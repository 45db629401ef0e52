package allocation

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"bookwise/internal/database"
	"bookwise/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSnapshots struct {
	fail  bool
	calls int
}

func (s *stubSnapshots) Materialize(ctx context.Context, schedule *models.Schedule, bindings []models.ScheduleResourceBinding) (*models.CalendarSnapshot, error) {
	s.calls++
	if s.fail {
		return nil, errors.New("materialize failed")
	}
	return &models.CalendarSnapshot{
		ScheduleGUID: schedule.GUID,
		Status:       schedule.Status,
		Window:       schedule.Window(),
		GeneratedAt:  time.Now(),
	}, nil
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func createSchedule(t *testing.T, db *database.DB, serviceID int64) *models.Schedule {
	t.Helper()
	schedule := &models.Schedule{
		BookingID: 1,
		ServiceID: serviceID,
		CompanyID: 1,
		Start:     time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
		End:       time.Date(2025, 6, 2, 11, 0, 0, 0, time.UTC),
		Status:    models.ScheduleStatusDraft,
	}
	require.NoError(t, db.CreateSchedule(context.Background(), schedule))
	return schedule
}

func TestAllocatePersonnelOverallocation(t *testing.T) {
	// Требуются трое, в пуле один: политика дублирует последнего,
	// бронь не блокируется.
	db := newTestDB(t)
	ctx := context.Background()
	logger := zerolog.New(io.Discard)

	person := &models.Personnel{CompanyID: 1, FirstName: "Solo", IsActive: true}
	require.NoError(t, db.CreatePersonnel(ctx, person))

	service := &models.Service{
		CompanyID: 1,
		Name:      "Group session",
		Requirements: []models.ServiceResourceRequirement{
			{Type: models.ResourcePersonnel, Name: "Trainer", RequiredQuantity: 3, PersonnelIDs: []int64{person.ID}},
		},
	}
	require.NoError(t, db.CreateService(ctx, service))

	schedule := createSchedule(t, db, service.ID)
	allocator := NewAllocator(db, &stubSnapshots{}, nil, &logger)

	result, err := allocator.Allocate(ctx, schedule)
	require.NoError(t, err)
	assert.False(t, result.Degraded)
	require.Len(t, result.Bindings, 3)
	for _, b := range result.Bindings {
		assert.Equal(t, person.ID, b.ResourceID)
		assert.Equal(t, int64(1), b.AllocatedQuantity)
	}

	stored, err := db.GetScheduleBindings(ctx, schedule.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestAllocateToolQuantityFloor(t *testing.T) {
	// Два персональных требования создают две связки до инструмента:
	// его количество поднимается до их числа.
	db := newTestDB(t)
	ctx := context.Background()
	logger := zerolog.New(io.Discard)

	a := &models.Personnel{CompanyID: 1, FirstName: "A", IsActive: true}
	b := &models.Personnel{CompanyID: 1, FirstName: "B", IsActive: true}
	require.NoError(t, db.CreatePersonnel(ctx, a))
	require.NoError(t, db.CreatePersonnel(ctx, b))

	tool := &models.Resource{CompanyID: 1, Name: "Projector", Type: models.ResourceTool, Quantity: 5, IsActive: true}
	require.NoError(t, db.CreateResource(ctx, tool))

	service := &models.Service{
		CompanyID: 1,
		Name:      "Duo",
		Requirements: []models.ServiceResourceRequirement{
			{Type: models.ResourcePersonnel, Name: "Duo staff", RequiredQuantity: 2, PersonnelIDs: []int64{a.ID, b.ID}},
			{Type: models.ResourceTool, Name: "Projector", RequiredQuantity: 1, ResourceID: tool.ID},
		},
	}
	require.NoError(t, db.CreateService(ctx, service))

	schedule := createSchedule(t, db, service.ID)
	allocator := NewAllocator(db, &stubSnapshots{}, nil, &logger)

	result, err := allocator.Allocate(ctx, schedule)
	require.NoError(t, err)
	require.Len(t, result.Bindings, 3)

	toolBinding := result.Bindings[2]
	assert.Equal(t, models.ResourceTool, toolBinding.Type)
	assert.Equal(t, int64(2), toolBinding.AllocatedQuantity)
}

func TestAllocateCopiesBuffers(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	logger := zerolog.New(io.Discard)

	person := &models.Personnel{CompanyID: 1, FirstName: "Buffered", IsActive: true}
	require.NoError(t, db.CreatePersonnel(ctx, person))

	service := &models.Service{
		CompanyID: 1,
		Name:      "Buffered service",
		Requirements: []models.ServiceResourceRequirement{
			{
				Type: models.ResourcePersonnel, Name: "Staff", RequiredQuantity: 1,
				PreparationMinutes: 15, FinalizationMinutes: 20,
				PersonnelIDs: []int64{person.ID},
			},
		},
	}
	require.NoError(t, db.CreateService(ctx, service))

	schedule := createSchedule(t, db, service.ID)
	allocator := NewAllocator(db, &stubSnapshots{}, nil, &logger)

	result, err := allocator.Allocate(ctx, schedule)
	require.NoError(t, err)
	require.Len(t, result.Bindings, 1)
	assert.Equal(t, int64(15), result.Bindings[0].PreparationMinutes)
	assert.Equal(t, int64(20), result.Bindings[0].FinalizationMinutes)
}

func TestAllocateReplacesWholeBindingSet(t *testing.T) {
	// Повторная аллокация после смены требований услуги
	// полностью заменяет набор связок, старые не остаются.
	db := newTestDB(t)
	ctx := context.Background()
	logger := zerolog.New(io.Discard)

	person := &models.Personnel{CompanyID: 1, FirstName: "Old", IsActive: true}
	require.NoError(t, db.CreatePersonnel(ctx, person))

	service := &models.Service{
		CompanyID: 1,
		Name:      "Mutable",
		Requirements: []models.ServiceResourceRequirement{
			{Type: models.ResourcePersonnel, Name: "Staff", RequiredQuantity: 2, PersonnelIDs: []int64{person.ID}},
		},
	}
	require.NoError(t, db.CreateService(ctx, service))

	schedule := createSchedule(t, db, service.ID)
	allocator := NewAllocator(db, &stubSnapshots{}, nil, &logger)

	_, err := allocator.Allocate(ctx, schedule)
	require.NoError(t, err)

	before, err := db.GetScheduleBindings(ctx, schedule.ID)
	require.NoError(t, err)
	require.Len(t, before, 2)

	// Требование ужимается до одного сотрудника
	tool := &models.Resource{CompanyID: 1, Name: "Mat", Type: models.ResourceConsumable, Quantity: 10, IsActive: true}
	require.NoError(t, db.CreateResource(ctx, tool))
	newReq := &models.ServiceResourceRequirement{
		ServiceID: service.ID, CompanyID: 1,
		Type: models.ResourceConsumable, Name: "Mat", RequiredQuantity: 4, ResourceID: tool.ID,
	}
	require.NoError(t, db.CreateRequirement(ctx, newReq))

	result, err := allocator.Allocate(ctx, schedule)
	require.NoError(t, err)

	after, err := db.GetScheduleBindings(ctx, schedule.ID)
	require.NoError(t, err)
	assert.Len(t, after, len(result.Bindings))

	// Ни одной связки из старого набора
	oldIDs := make(map[int64]bool)
	for _, b := range before {
		oldIDs[b.ID] = true
	}
	for _, b := range after {
		assert.False(t, oldIDs[b.ID], "старая связка пережила переаллокацию")
	}
}

func TestAllocateSnapshotFailureDegrades(t *testing.T) {
	// Сбой снимка не откатывает связки: результат деградированный,
	// но аллокация зафиксирована.
	db := newTestDB(t)
	ctx := context.Background()
	logger := zerolog.New(io.Discard)

	person := &models.Personnel{CompanyID: 1, FirstName: "P", IsActive: true}
	require.NoError(t, db.CreatePersonnel(ctx, person))

	service := &models.Service{
		CompanyID: 1,
		Name:      "S",
		Requirements: []models.ServiceResourceRequirement{
			{Type: models.ResourcePersonnel, Name: "Staff", RequiredQuantity: 1, PersonnelIDs: []int64{person.ID}},
		},
	}
	require.NoError(t, db.CreateService(ctx, service))

	schedule := createSchedule(t, db, service.ID)
	allocator := NewAllocator(db, &stubSnapshots{fail: true}, nil, &logger)

	result, err := allocator.Allocate(ctx, schedule)
	require.NoError(t, err)
	assert.True(t, result.Degraded)
	assert.Nil(t, result.Snapshot)

	stored, err := db.GetScheduleBindings(ctx, schedule.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestAllocateServiceWithoutRequirements(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	logger := zerolog.New(io.Discard)

	schedule := createSchedule(t, db, 777)
	allocator := NewAllocator(db, &stubSnapshots{}, nil, &logger)

	result, err := allocator.Allocate(ctx, schedule)
	require.NoError(t, err)
	// Услуга без требований даёт пустой набор, это не ошибка
	assert.Empty(t, result.Bindings)
}

func TestAllocatePersistsSnapshot(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	logger := zerolog.New(io.Discard)

	person := &models.Personnel{CompanyID: 1, FirstName: "P", IsActive: true}
	require.NoError(t, db.CreatePersonnel(ctx, person))

	service := &models.Service{
		CompanyID: 1,
		Name:      "S",
		Requirements: []models.ServiceResourceRequirement{
			{Type: models.ResourcePersonnel, Name: "Staff", RequiredQuantity: 1, PersonnelIDs: []int64{person.ID}},
		},
	}
	require.NoError(t, db.CreateService(ctx, service))

	schedule := createSchedule(t, db, service.ID)
	stub := &stubSnapshots{}
	allocator := NewAllocator(db, stub, nil, &logger)

	result, err := allocator.Allocate(ctx, schedule)
	require.NoError(t, err)
	require.NotNil(t, result.Snapshot)
	assert.Equal(t, 1, stub.calls)

	stored, err := db.GetSchedule(ctx, schedule.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Snapshot)
	assert.Equal(t, schedule.Status, stored.Snapshot.Status)
}
