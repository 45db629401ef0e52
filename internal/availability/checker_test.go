package availability

import (
	"context"
	"io"
	"testing"
	"time"

	"bookwise/internal/database"
	"bookwise/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	db      *database.DB
	checker *Checker
	service *models.Service
	toolID  int64
}

// newFixture поднимает in-memory БД с услугой:
// 1 PERSONNEL (пул из двух сотрудников) и 1 TOOL ёмкостью 1,
// у обоих требований буферы 10/10 минут.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()

	alice := &models.Personnel{CompanyID: 1, FirstName: "Alice", IsActive: true}
	bob := &models.Personnel{CompanyID: 1, FirstName: "Bob", IsActive: true}
	require.NoError(t, db.CreatePersonnel(ctx, alice))
	require.NoError(t, db.CreatePersonnel(ctx, bob))

	tool := &models.Resource{CompanyID: 1, Name: "Массажный стол", Type: models.ResourceTool, Quantity: 1, IsActive: true}
	require.NoError(t, db.CreateResource(ctx, tool))

	service := &models.Service{
		CompanyID: 1,
		Name:      "Massage",
		Requirements: []models.ServiceResourceRequirement{
			{
				Type:                models.ResourcePersonnel,
				Name:                "Therapist",
				RequiredQuantity:    1,
				PreparationMinutes:  10,
				FinalizationMinutes: 10,
				PersonnelIDs:        []int64{alice.ID, bob.ID},
			},
			{
				Type:                models.ResourceTool,
				Name:                "Массажный стол",
				RequiredQuantity:    1,
				PreparationMinutes:  10,
				FinalizationMinutes: 10,
				ResourceID:          tool.ID,
			},
		},
	}
	require.NoError(t, db.CreateService(ctx, service))

	return &fixture{
		db:      db,
		checker: NewChecker(db, &logger),
		service: service,
		toolID:  tool.ID,
	}
}

// addSchedule создаёт расписание со связками по всем требованиям услуги.
func (f *fixture) addSchedule(t *testing.T, start, end time.Time, status string) *models.Schedule {
	t.Helper()
	ctx := context.Background()

	schedule := &models.Schedule{
		BookingID: 1,
		ServiceID: f.service.ID,
		CompanyID: 1,
		Start:     start,
		End:       end,
		Status:    status,
	}
	require.NoError(t, f.db.CreateSchedule(ctx, schedule))

	bindings := []models.ScheduleResourceBinding{
		{
			ScheduleID:          schedule.ID,
			Type:                models.ResourcePersonnel,
			ResourceID:          f.service.Requirements[0].PersonnelIDs[0],
			AllocatedQuantity:   1,
			PreparationMinutes:  10,
			FinalizationMinutes: 10,
			CompanyID:           1,
		},
		{
			ScheduleID:          schedule.ID,
			Type:                models.ResourceTool,
			ResourceID:          f.toolID,
			AllocatedQuantity:   1,
			PreparationMinutes:  10,
			FinalizationMinutes: 10,
			CompanyID:           1,
		},
	}
	require.NoError(t, f.db.ReplaceScheduleBindings(ctx, schedule.ID, bindings))
	return schedule
}

func day(hour, min int) time.Time {
	return time.Date(2025, 6, 2, hour, min, 0, 0, time.UTC)
}

func TestCheckAvailabilityEmptyCalendar(t *testing.T) {
	f := newFixture(t)

	result, err := f.checker.CheckAvailability(context.Background(), f.service.ID,
		models.NewWindow(day(10, 0), day(11, 0)), nil)
	require.NoError(t, err)
	assert.True(t, result.Available)
	assert.Empty(t, result.Conflicts)
}

func TestCheckAvailabilityBufferedConflict(t *testing.T) {
	// Сценарий из практики: занято 10:00-11:00 с буферами 10/10.
	// Запрос 11:05-12:00 расширяется до 10:55-12:10 и цепляет занятое окно;
	// запрос 11:15-12:00 расширяется до 11:05-12:10 и проходит.
	f := newFixture(t)
	f.addSchedule(t, day(10, 0), day(11, 0), models.ScheduleStatusActive)

	result, err := f.checker.CheckAvailability(context.Background(), f.service.ID,
		models.NewWindow(day(11, 5), day(12, 0)), nil)
	require.NoError(t, err)
	assert.False(t, result.Available)
	require.NotEmpty(t, result.Conflicts)

	var toolConflict *models.ResourceConflict
	for i := range result.Conflicts {
		if result.Conflicts[i].Type == models.ResourceTool {
			toolConflict = &result.Conflicts[i]
		}
	}
	require.NotNil(t, toolConflict, "ожидали конфликт по инструменту")
	assert.Equal(t, models.ConflictReasonCapacity, toolConflict.Reason)
	assert.Equal(t, int64(1), toolConflict.RequiredQuantity)
	assert.Equal(t, int64(1), toolConflict.AlreadyAllocated)
	assert.Equal(t, int64(0), toolConflict.AvailableQuantity)
	assert.Contains(t, toolConflict.AllocatedResourceIDs, f.toolID)

	result, err = f.checker.CheckAvailability(context.Background(), f.service.ID,
		models.NewWindow(day(11, 15), day(12, 0)), nil)
	require.NoError(t, err)
	assert.True(t, result.Available)
}

func TestCheckAvailabilityStrictBoundaries(t *testing.T) {
	f := newFixture(t)
	f.addSchedule(t, day(10, 0), day(11, 0), models.ScheduleStatusActive)

	tests := []struct {
		name      string
		start     time.Time
		end       time.Time
		available bool
	}{
		// С буферами 10/10 запрос 11:10 начинает ровно на границе 11:00
		{"touching after buffers", day(11, 10), day(12, 0), true},
		{"one minute into buffer", day(11, 9), day(12, 0), false},
		{"touching before buffers", day(8, 0), day(9, 50), true},
		{"one minute into preparation", day(8, 0), day(9, 51), false},
		{"fully inside", day(10, 15), day(10, 45), false},
		{"far away", day(14, 0), day(15, 0), true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, err := f.checker.CheckAvailability(context.Background(), f.service.ID,
				models.NewWindow(tc.start, tc.end), nil)
			require.NoError(t, err)
			assert.Equal(t, tc.available, result.Available)
		})
	}
}

func TestCheckAvailabilityPersonnelPoolWide(t *testing.T) {
	// Пул из двух сотрудников: одна занятая запись оставляет ёмкость,
	// две перекрывающие записи исчерпывают пул целиком.
	f := newFixture(t)
	f.addSchedule(t, day(10, 0), day(11, 0), models.ScheduleStatusActive)

	result, err := f.checker.CheckAvailability(context.Background(), f.service.ID,
		models.NewWindow(day(10, 0), day(11, 0)), nil)
	require.NoError(t, err)
	// Инструмент занят, но персонал ещё доступен
	require.False(t, result.Available)
	for _, c := range result.Conflicts {
		assert.NotEqual(t, models.ResourcePersonnel, c.Type)
	}

	f.addSchedule(t, day(10, 30), day(11, 30), models.ScheduleStatusPending)

	result, err = f.checker.CheckAvailability(context.Background(), f.service.ID,
		models.NewWindow(day(10, 0), day(11, 0)), nil)
	require.NoError(t, err)
	require.False(t, result.Available)

	found := false
	for _, c := range result.Conflicts {
		if c.Type == models.ResourcePersonnel {
			found = true
			assert.Equal(t, int64(2), c.AlreadyAllocated)
			assert.Equal(t, int64(0), c.AvailableQuantity)
		}
	}
	assert.True(t, found, "ожидали конфликт по персоналу")
}

func TestCheckAvailabilityCountsOnlyMatchingBindings(t *testing.T) {
	// Расписание держит привязки разных типов и чужой инструмент.
	// В занятую ёмкость требования входят только привязки его типа
	// и его ресурса, остальные не считаются.
	f := newFixture(t)
	ctx := context.Background()

	otherTool := &models.Resource{CompanyID: 1, Name: "Кушетка", Type: models.ResourceTool, Quantity: 1, IsActive: true}
	require.NoError(t, f.db.CreateResource(ctx, otherTool))

	schedule := &models.Schedule{
		BookingID: 1,
		ServiceID: f.service.ID,
		CompanyID: 1,
		Start:     day(10, 0),
		End:       day(11, 0),
		Status:    models.ScheduleStatusActive,
	}
	require.NoError(t, f.db.CreateSchedule(ctx, schedule))
	require.NoError(t, f.db.ReplaceScheduleBindings(ctx, schedule.ID, []models.ScheduleResourceBinding{
		{ScheduleID: schedule.ID, Type: models.ResourcePersonnel, ResourceID: f.service.Requirements[0].PersonnelIDs[0], AllocatedQuantity: 1, CompanyID: 1},
		{ScheduleID: schedule.ID, Type: models.ResourceTool, ResourceID: f.toolID, AllocatedQuantity: 1, CompanyID: 1},
		{ScheduleID: schedule.ID, Type: models.ResourceTool, ResourceID: otherTool.ID, AllocatedQuantity: 1, CompanyID: 1},
	}))

	result, err := f.checker.CheckAvailability(ctx, f.service.ID,
		models.NewWindow(day(10, 0), day(11, 0)), nil)
	require.NoError(t, err)
	require.False(t, result.Available)

	// Персонал не конфликтует: занят один из двух, чужие привязки не в счёт.
	require.Len(t, result.Conflicts, 1)
	conflict := result.Conflicts[0]
	assert.Equal(t, models.ResourceTool, conflict.Type)
	assert.Equal(t, int64(1), conflict.AlreadyAllocated)
	assert.Equal(t, []int64{f.toolID}, conflict.AllocatedResourceIDs)
}

func TestCheckAvailabilityTerminalStatusesIgnored(t *testing.T) {
	f := newFixture(t)
	f.addSchedule(t, day(10, 0), day(11, 0), models.ScheduleStatusCancelled)
	f.addSchedule(t, day(10, 0), day(11, 0), models.ScheduleStatusCompleted)
	f.addSchedule(t, day(10, 0), day(11, 0), models.ScheduleStatusNoShow)

	result, err := f.checker.CheckAvailability(context.Background(), f.service.ID,
		models.NewWindow(day(10, 0), day(11, 0)), nil)
	require.NoError(t, err)
	assert.True(t, result.Available)
}

func TestCheckAvailabilityExcludesOwnSchedule(t *testing.T) {
	// При редактировании запись не должна конфликтовать сама с собой.
	f := newFixture(t)
	existing := f.addSchedule(t, day(10, 0), day(11, 0), models.ScheduleStatusActive)

	result, err := f.checker.CheckAvailability(context.Background(), f.service.ID,
		models.NewWindow(day(10, 0), day(11, 0)), []int64{existing.ID})
	require.NoError(t, err)
	assert.True(t, result.Available)
}

func TestCheckAvailabilityServiceNotFound(t *testing.T) {
	f := newFixture(t)

	result, err := f.checker.CheckAvailability(context.Background(), 9999,
		models.NewWindow(day(10, 0), day(11, 0)), nil)
	require.NoError(t, err)
	assert.False(t, result.Available)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, models.ConflictReasonNotFound, result.Conflicts[0].Reason)
}

func TestCheckAvailabilityResourceNotFound(t *testing.T) {
	f := newFixture(t)

	ctx := context.Background()
	broken := &models.Service{
		CompanyID: 1,
		Name:      "Broken",
		Requirements: []models.ServiceResourceRequirement{
			{Type: models.ResourceTool, Name: "Ghost", RequiredQuantity: 1, ResourceID: 4242},
		},
	}
	require.NoError(t, f.db.CreateService(ctx, broken))

	result, err := f.checker.CheckAvailability(ctx, broken.ID,
		models.NewWindow(day(10, 0), day(11, 0)), nil)
	require.NoError(t, err)
	assert.False(t, result.Available)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, models.ConflictReasonNotFound, result.Conflicts[0].Reason)
	assert.Equal(t, int64(4242), result.Conflicts[0].ResourceID)
}

func TestCheckAvailabilityInvalidWindow(t *testing.T) {
	f := newFixture(t)

	_, err := f.checker.CheckAvailability(context.Background(), f.service.ID,
		models.NewWindow(day(12, 0), day(11, 0)), nil)
	assert.ErrorIs(t, err, database.ErrInvalidWindow)

	_, err = f.checker.CheckAvailability(context.Background(), f.service.ID,
		models.Window{}, nil)
	assert.ErrorIs(t, err, database.ErrInvalidWindow)
}
