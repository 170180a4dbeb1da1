package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/uslugi-backend/internal/models"
	"github.com/ignatzorin/uslugi-backend/internal/pkg/apperror"
)

type mockAvailabilityRepo struct {
	mock.Mock
}

func (m *mockAvailabilityRepo) GetForDay(ctx context.Context, workerID uuid.UUID, dayOfWeek int) (*models.WorkerAvailability, error) {
	args := m.Called(ctx, workerID, dayOfWeek)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WorkerAvailability), args.Error(1)
}

func (m *mockAvailabilityRepo) ListForWorker(ctx context.Context, workerID uuid.UUID) ([]models.WorkerAvailability, error) {
	args := m.Called(ctx, workerID)
	return args.Get(0).([]models.WorkerAvailability), args.Error(1)
}

func (m *mockAvailabilityRepo) ReplaceWeek(ctx context.Context, workerID uuid.UUID, items []models.WorkerAvailability) error {
	args := m.Called(ctx, workerID, items)
	return args.Error(0)
}

type mockOccupancyReader struct {
	mock.Mock
}

func (m *mockOccupancyReader) ListOccupyingByDate(ctx context.Context, workerID uuid.UUID, date time.Time, excludeID *uuid.UUID) ([]models.Booking, error) {
	args := m.Called(ctx, workerID, date, excludeID)
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *mockOccupancyReader) ListOccupyingByRange(ctx context.Context, workerID uuid.UUID, from, to time.Time) ([]models.Booking, error) {
	args := m.Called(ctx, workerID, from, to)
	return args.Get(0).([]models.Booking), args.Error(1)
}

func newAvailabilityServiceForTest() (*AvailabilityService, *mockAvailabilityRepo, *mockOccupancyReader) {
	availability := new(mockAvailabilityRepo)
	occupancy := new(mockOccupancyReader)
	svc := NewAvailabilityService(availability, occupancy, nil, 0)
	return svc, availability, occupancy
}

// Понедельник.
var testDate = time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

func workday(workerID uuid.UUID, dow int) *models.WorkerAvailability {
	return &models.WorkerAvailability{
		WorkerID:  workerID,
		DayOfWeek: dow,
		StartTime: "09:00",
		EndTime:   "18:00",
	}
}

func occupying(start string, hours float64) models.Booking {
	return models.Booking{
		ID:            uuid.New(),
		StartTime:     start,
		DurationHours: hours,
	}
}

func TestAvailabilityService_CheckSlot_Free(t *testing.T) {
	svc, availability, occupancy := newAvailabilityServiceForTest()
	ctx := context.Background()

	workerID := uuid.New()
	dow := int(testDate.Weekday())

	availability.On("GetForDay", ctx, workerID, dow).Return(workday(workerID, dow), nil)
	occupancy.On("ListOccupyingByDate", ctx, workerID, testDate, (*uuid.UUID)(nil)).
		Return([]models.Booking{}, nil)

	err := svc.CheckSlot(ctx, workerID, testDate, "10:00", 2, nil)
	assert.NoError(t, err)
}

func TestAvailabilityService_CheckSlot_ClosedDay(t *testing.T) {
	svc, availability, _ := newAvailabilityServiceForTest()
	ctx := context.Background()

	workerID := uuid.New()
	dow := int(testDate.Weekday())
	availability.On("GetForDay", ctx, workerID, dow).Return(nil, nil)

	err := svc.CheckSlot(ctx, workerID, testDate, "10:00", 2, nil)

	var appErr *apperror.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodeOutsideAvailability, appErr.Code)
}

func TestAvailabilityService_CheckSlot_PartiallyOutsideWindow(t *testing.T) {
	svc, availability, _ := newAvailabilityServiceForTest()
	ctx := context.Background()

	workerID := uuid.New()
	dow := int(testDate.Weekday())
	availability.On("GetForDay", ctx, workerID, dow).Return(workday(workerID, dow), nil)

	// 17:00 + 3 часа выходит за окно 09:00-18:00.
	err := svc.CheckSlot(ctx, workerID, testDate, "17:00", 3, nil)

	var appErr *apperror.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodeOutsideAvailability, appErr.Code)
	assert.Equal(t, "09:00-18:00", appErr.Details["availability_window"])
}

func TestAvailabilityService_CheckSlot_Conflict(t *testing.T) {
	svc, availability, occupancy := newAvailabilityServiceForTest()
	ctx := context.Background()

	workerID := uuid.New()
	dow := int(testDate.Weekday())
	busy := occupying("10:00", 3) // 10:00-13:00

	availability.On("GetForDay", ctx, workerID, dow).Return(workday(workerID, dow), nil)
	occupancy.On("ListOccupyingByDate", ctx, workerID, testDate, (*uuid.UUID)(nil)).
		Return([]models.Booking{busy}, nil)

	err := svc.CheckSlot(ctx, workerID, testDate, "12:00", 2, nil)

	assert.True(t, apperror.IsSlotConflict(err))
	var appErr *apperror.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, busy.ID.String(), appErr.Details["conflicting_booking_id"])
}

func TestAvailabilityService_CheckSlot_BackToBackAllowed(t *testing.T) {
	svc, availability, occupancy := newAvailabilityServiceForTest()
	ctx := context.Background()

	workerID := uuid.New()
	dow := int(testDate.Weekday())

	availability.On("GetForDay", ctx, workerID, dow).Return(workday(workerID, dow), nil)
	occupancy.On("ListOccupyingByDate", ctx, workerID, testDate, (*uuid.UUID)(nil)).
		Return([]models.Booking{occupying("10:00", 2)}, nil)

	// [12:00,14:00) начинается ровно в конце [10:00,12:00) — конфликта нет.
	err := svc.CheckSlot(ctx, workerID, testDate, "12:00", 2, nil)
	assert.NoError(t, err)
}

func TestAvailabilityService_CheckSlot_ExcludesOwnBooking(t *testing.T) {
	svc, availability, occupancy := newAvailabilityServiceForTest()
	ctx := context.Background()

	workerID := uuid.New()
	ownID := uuid.New()
	dow := int(testDate.Weekday())

	availability.On("GetForDay", ctx, workerID, dow).Return(workday(workerID, dow), nil)
	// Репозиторий уже исключил собственное бронирование из выборки.
	occupancy.On("ListOccupyingByDate", ctx, workerID, testDate, &ownID).
		Return([]models.Booking{}, nil)

	err := svc.CheckSlot(ctx, workerID, testDate, "10:30", 2, &ownID)
	assert.NoError(t, err)
}

func TestAvailabilityService_GetCalendar_DayStatuses(t *testing.T) {
	svc, availability, occupancy := newAvailabilityServiceForTest()
	ctx := context.Background()

	workerID := uuid.New()
	from := testDate               // понедельник
	to := testDate.AddDate(0, 0, 3) // по четверг

	week := []models.WorkerAvailability{
		// Вторник — выходной.
		*workday(workerID, int(from.Weekday())),
		*workday(workerID, int(from.AddDate(0, 0, 2).Weekday())),
		*workday(workerID, int(from.AddDate(0, 0, 3).Weekday())),
	}
	availability.On("ListForWorker", ctx, workerID).Return(week, nil)

	fullDay := occupying("09:00", 9) // всё окно 09:00-18:00
	fullDay.BookingDate = from.AddDate(0, 0, 2)
	partial := occupying("10:00", 2)
	partial.BookingDate = from.AddDate(0, 0, 3)

	occupancy.On("ListOccupyingByRange", ctx, workerID, from, to).
		Return([]models.Booking{fullDay, partial}, nil)

	calendar, err := svc.GetCalendar(ctx, workerID, from, to)

	assert.NoError(t, err)
	assert.Len(t, calendar, 4)
	assert.Equal(t, models.DayStatusAvailable, calendar[0].Status)
	assert.Equal(t, models.DayStatusUnavailable, calendar[1].Status)
	assert.Equal(t, models.DayStatusFullyBooked, calendar[2].Status)
	assert.Equal(t, models.DayStatusPartiallyBooked, calendar[3].Status)
	assert.Equal(t, "2026-09-07", calendar[0].Date)
}

func TestAvailabilityService_GetCalendar_RangeValidation(t *testing.T) {
	svc, _, _ := newAvailabilityServiceForTest()
	ctx := context.Background()

	_, err := svc.GetCalendar(ctx, uuid.New(), testDate, testDate.AddDate(0, 0, -1))
	assert.Error(t, err)

	_, err = svc.GetCalendar(ctx, uuid.New(), testDate, testDate.AddDate(0, 0, 90))
	assert.Error(t, err)
}

func TestAvailabilityService_GetCalendar_UsesCache(t *testing.T) {
	availability := new(mockAvailabilityRepo)
	occupancy := new(mockOccupancyReader)
	svc := NewAvailabilityService(availability, occupancy, NewCacheService(), time.Minute)
	ctx := context.Background()

	workerID := uuid.New()
	from := testDate
	to := testDate.AddDate(0, 0, 1)

	availability.On("ListForWorker", ctx, workerID).
		Return([]models.WorkerAvailability{*workday(workerID, int(from.Weekday()))}, nil).Once()
	occupancy.On("ListOccupyingByRange", ctx, workerID, from, to).
		Return([]models.Booking{}, nil).Once()

	first, err := svc.GetCalendar(ctx, workerID, from, to)
	assert.NoError(t, err)

	// Повторный запрос обслуживается из кэша, к хранилищу не ходим.
	second, err := svc.GetCalendar(ctx, workerID, from, to)
	assert.NoError(t, err)
	assert.Equal(t, first, second)

	availability.AssertNumberOfCalls(t, "ListForWorker", 1)
	occupancy.AssertNumberOfCalls(t, "ListOccupyingByRange", 1)
}

func TestAvailabilityService_GetCalendar_InvalidateWorkerDropsCache(t *testing.T) {
	availability := new(mockAvailabilityRepo)
	occupancy := new(mockOccupancyReader)
	svc := NewAvailabilityService(availability, occupancy, NewCacheService(), time.Minute)
	ctx := context.Background()

	workerID := uuid.New()
	from := testDate
	to := testDate.AddDate(0, 0, 1)

	availability.On("ListForWorker", ctx, workerID).
		Return([]models.WorkerAvailability{*workday(workerID, int(from.Weekday()))}, nil)
	occupancy.On("ListOccupyingByRange", ctx, workerID, from, to).
		Return([]models.Booking{}, nil)

	_, err := svc.GetCalendar(ctx, workerID, from, to)
	assert.NoError(t, err)

	svc.InvalidateWorker(workerID)

	_, err = svc.GetCalendar(ctx, workerID, from, to)
	assert.NoError(t, err)

	occupancy.AssertNumberOfCalls(t, "ListOccupyingByRange", 2)
}

func TestAvailabilityService_SetWeek_Success(t *testing.T) {
	svc, availability, _ := newAvailabilityServiceForTest()
	ctx := context.Background()

	workerID := uuid.New()
	expected := []models.WorkerAvailability{
		{WorkerID: workerID, DayOfWeek: 1, StartTime: "09:00", EndTime: "18:00"},
	}
	availability.On("ReplaceWeek", ctx, workerID, expected).Return(nil)

	// Время нормализуется к формату ЧЧ:ММ.
	err := svc.SetWeek(ctx, workerID, []models.WorkerAvailability{
		{DayOfWeek: 1, StartTime: "9:00", EndTime: "18:00"},
	})

	assert.NoError(t, err)
	availability.AssertExpectations(t)
}

func TestAvailabilityService_SetWeek_DuplicateDay(t *testing.T) {
	svc, _, _ := newAvailabilityServiceForTest()
	ctx := context.Background()

	err := svc.SetWeek(ctx, uuid.New(), []models.WorkerAvailability{
		{DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00"},
		{DayOfWeek: 1, StartTime: "14:00", EndTime: "18:00"},
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "не более одного интервала")
}

func TestAvailabilityService_SetWeek_InvalidWindow(t *testing.T) {
	svc, _, _ := newAvailabilityServiceForTest()
	ctx := context.Background()

	err := svc.SetWeek(ctx, uuid.New(), []models.WorkerAvailability{
		{DayOfWeek: 2, StartTime: "18:00", EndTime: "09:00"},
	})
	assert.Error(t, err)

	err = svc.SetWeek(ctx, uuid.New(), []models.WorkerAvailability{
		{DayOfWeek: 9, StartTime: "09:00", EndTime: "18:00"},
	})
	assert.Error(t, err)
}
