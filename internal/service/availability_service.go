package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/uslugi-backend/internal/domain/valueobject"
	"github.com/ignatzorin/uslugi-backend/internal/models"
	"github.com/ignatzorin/uslugi-backend/internal/pkg/apperror"
	"github.com/ignatzorin/uslugi-backend/internal/validation"
)

// MaxCalendarRangeDays ограничивает размер запрашиваемого календаря.
const MaxCalendarRangeDays = 62

type AvailabilityRepository interface {
	GetForDay(ctx context.Context, workerID uuid.UUID, dayOfWeek int) (*models.WorkerAvailability, error)
	ListForWorker(ctx context.Context, workerID uuid.UUID) ([]models.WorkerAvailability, error)
	ReplaceWeek(ctx context.Context, workerID uuid.UUID, items []models.WorkerAvailability) error
}

type OccupancyReader interface {
	ListOccupyingByDate(ctx context.Context, workerID uuid.UUID, date time.Time, excludeID *uuid.UUID) ([]models.Booking, error)
	ListOccupyingByRange(ctx context.Context, workerID uuid.UUID, from, to time.Time) ([]models.Booking, error)
}

// AvailabilityService отвечает на вопрос "свободен ли слот" и строит календарь
// занятости. Сам по себе ничего не блокирует: это чистая проверка по снимку
// данных, атомарность резервирования обеспечивает репозиторий бронирований.
type AvailabilityService struct {
	availability AvailabilityRepository
	bookings     OccupancyReader
	cache        *CacheService
	cacheTTL     time.Duration
}

func NewAvailabilityService(availability AvailabilityRepository, bookings OccupancyReader, cache *CacheService, cacheTTL time.Duration) *AvailabilityService {
	return &AvailabilityService{
		availability: availability,
		bookings:     bookings,
		cache:        cache,
		cacheTTL:     cacheTTL,
	}
}

func outsideAvailability() *apperror.AppError {
	return apperror.New(apperror.ErrCodeOutsideAvailability, "запрошенное время вне окна доступности исполнителя")
}

func slotConflict(conflictingID uuid.UUID) *apperror.AppError {
	return apperror.New(apperror.ErrCodeSlotConflict, "слот уже занят другим бронированием").
		WithDetail("conflicting_booking_id", conflictingID.String())
}

// CheckSlot проверяет, что запрошенный интервал целиком лежит в окне
// доступности исполнителя и не пересекается ни с одним занимающим
// бронированием. Для переноса собственное бронирование исключается
// через excludeBookingID.
func (s *AvailabilityService) CheckSlot(ctx context.Context, workerID uuid.UUID, date time.Time, startTime string, durationHours float64, excludeBookingID *uuid.UUID) error {
	start, err := valueobject.ParseTimeOfDay(startTime)
	if err != nil {
		return err
	}
	requested, err := valueobject.NewTimeRange(start, durationHours)
	if err != nil {
		return err
	}

	availability, err := s.availability.GetForDay(ctx, workerID, int(date.Weekday()))
	if err != nil {
		return err
	}
	if availability == nil {
		return outsideAvailability().WithDetail("day_of_week", int(date.Weekday()))
	}

	window, err := availability.Window()
	if err != nil {
		return err
	}
	if !window.Contains(requested) {
		return outsideAvailability().WithDetail("availability_window", window.String())
	}

	occupying, err := s.bookings.ListOccupyingByDate(ctx, workerID, date, excludeBookingID)
	if err != nil {
		return err
	}
	for i := range occupying {
		occupied, err := occupying[i].TimeRange()
		if err != nil {
			return err
		}
		if requested.Overlaps(occupied) {
			return slotConflict(occupying[i].ID)
		}
	}

	return nil
}

func calendarCachePrefix(workerID uuid.UUID) string {
	return "calendar:" + workerID.String() + ":"
}

// InvalidateWorker сбрасывает кэш календаря исполнителя.
// Вызывается при любой записи, меняющей его занятость или сетку доступности.
func (s *AvailabilityService) InvalidateWorker(workerID uuid.UUID) {
	if s.cache != nil {
		s.cache.InvalidatePrefix(calendarCachePrefix(workerID))
	}
}

// GetCalendar возвращает статус каждого дня диапазона: выходной, свободен,
// частично или полностью занят. Чистая проекция тех же двух источников,
// что и проверка конфликтов.
func (s *AvailabilityService) GetCalendar(ctx context.Context, workerID uuid.UUID, from, to time.Time) ([]models.CalendarDay, error) {
	if to.Before(from) {
		return nil, apperror.New(apperror.ErrCodeValidation, "конец диапазона раньше начала")
	}
	days := int(to.Sub(from).Hours()/24) + 1
	if days > MaxCalendarRangeDays {
		return nil, apperror.New(apperror.ErrCodeValidation,
			fmt.Sprintf("диапазон календаря не может превышать %d дней", MaxCalendarRangeDays))
	}

	cacheKey := calendarCachePrefix(workerID) + from.Format(validation.DateFormat) + ":" + to.Format(validation.DateFormat)
	if s.cache != nil {
		if cached, ok := s.cache.Get(cacheKey); ok {
			if calendar, ok := cached.([]models.CalendarDay); ok {
				return calendar, nil
			}
		}
	}

	week, err := s.availability.ListForWorker(ctx, workerID)
	if err != nil {
		return nil, err
	}
	windows := make(map[int]valueobject.TimeRange, len(week))
	for i := range week {
		window, err := week[i].Window()
		if err != nil {
			return nil, err
		}
		windows[week[i].DayOfWeek] = window
	}

	occupying, err := s.bookings.ListOccupyingByRange(ctx, workerID, from, to)
	if err != nil {
		return nil, err
	}
	byDate := make(map[string][]models.Booking)
	for i := range occupying {
		key := occupying[i].BookingDate.Format(validation.DateFormat)
		byDate[key] = append(byDate[key], occupying[i])
	}

	calendar := make([]models.CalendarDay, 0, days)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dateKey := d.Format(validation.DateFormat)
		window, open := windows[int(d.Weekday())]
		if !open {
			calendar = append(calendar, models.CalendarDay{Date: dateKey, Status: models.DayStatusUnavailable})
			continue
		}

		status, err := dayStatus(window, byDate[dateKey])
		if err != nil {
			return nil, err
		}
		calendar = append(calendar, models.CalendarDay{Date: dateKey, Status: status})
	}

	if s.cache != nil {
		s.cache.Set(cacheKey, calendar, s.cacheTTL)
	}
	return calendar, nil
}

// dayStatus вычисляет статус дня по окну доступности и занимающим бронированиям.
func dayStatus(window valueobject.TimeRange, occupying []models.Booking) (string, error) {
	occupiedMinutes := 0
	for i := range occupying {
		occupied, err := occupying[i].TimeRange()
		if err != nil {
			return "", err
		}
		occupiedMinutes += clippedMinutes(occupied, window)
	}

	switch {
	case occupiedMinutes == 0:
		return models.DayStatusAvailable, nil
	case occupiedMinutes >= window.Minutes():
		return models.DayStatusFullyBooked, nil
	default:
		return models.DayStatusPartiallyBooked, nil
	}
}

// clippedMinutes возвращает длину пересечения интервала с окном.
// Занимающие бронирования не пересекаются между собой, поэтому
// сумма обрезанных длин равна суммарной занятости окна.
func clippedMinutes(r, window valueobject.TimeRange) int {
	start := r.Start
	if window.Start > start {
		start = window.Start
	}
	end := r.End
	if window.End < end {
		end = window.End
	}
	if end <= start {
		return 0
	}
	return int(end - start)
}

// GetWeek возвращает недельную сетку доступности исполнителя.
func (s *AvailabilityService) GetWeek(ctx context.Context, workerID uuid.UUID) ([]models.WorkerAvailability, error) {
	return s.availability.ListForWorker(ctx, workerID)
}

// SetWeek заменяет недельную сетку исполнителя.
// На день допускается не более одного интервала; день без интервала — выходной.
func (s *AvailabilityService) SetWeek(ctx context.Context, workerID uuid.UUID, items []models.WorkerAvailability) error {
	seen := make(map[int]bool, len(items))
	normalized := make([]models.WorkerAvailability, 0, len(items))

	for _, item := range items {
		if err := validation.ValidateDayOfWeek(item.DayOfWeek); err != nil {
			return apperror.New(apperror.ErrCodeValidation, err.Error())
		}
		if seen[item.DayOfWeek] {
			return apperror.New(apperror.ErrCodeValidation, "на день недели допускается не более одного интервала").
				WithDetail("day_of_week", item.DayOfWeek)
		}
		seen[item.DayOfWeek] = true

		start, err := valueobject.ParseTimeOfDay(item.StartTime)
		if err != nil {
			return err
		}
		end, err := valueobject.ParseTimeOfDay(item.EndTime)
		if err != nil {
			return err
		}
		if end <= start {
			return apperror.New(apperror.ErrCodeValidation, "конец окна доступности должен быть позже начала").
				WithDetail("day_of_week", item.DayOfWeek)
		}

		normalized = append(normalized, models.WorkerAvailability{
			WorkerID:  workerID,
			DayOfWeek: item.DayOfWeek,
			StartTime: start.String(),
			EndTime:   end.String(),
		})
	}

	if err := s.availability.ReplaceWeek(ctx, workerID, normalized); err != nil {
		return err
	}
	s.InvalidateWorker(workerID)
	return nil
}
