package models

import (
	"github.com/google/uuid"

	"github.com/ignatzorin/uslugi-backend/internal/domain/valueobject"
)

// WorkerAvailability — еженедельное окно доступности исполнителя.
// На пару (worker_id, day_of_week) приходится не более одного интервала;
// отсутствие строки означает выходной день.
type WorkerAvailability struct {
	WorkerID  uuid.UUID `db:"worker_id" json:"worker_id"`
	DayOfWeek int       `db:"day_of_week" json:"day_of_week"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
}

// Window возвращает окно доступности как интервал времени суток.
func (a *WorkerAvailability) Window() (valueobject.TimeRange, error) {
	start, err := valueobject.ParseTimeOfDay(a.StartTime)
	if err != nil {
		return valueobject.TimeRange{}, err
	}
	end, err := valueobject.ParseTimeOfDay(a.EndTime)
	if err != nil {
		return valueobject.TimeRange{}, err
	}
	return valueobject.TimeRange{Start: start, End: end}, nil
}

// Статусы дня в календаре занятости.
const (
	DayStatusUnavailable     = "unavailable"
	DayStatusAvailable       = "available"
	DayStatusPartiallyBooked = "partially_booked"
	DayStatusFullyBooked     = "fully_booked"
)

// CalendarDay — статус одного дня в календаре исполнителя.
type CalendarDay struct {
	Date   string `json:"date"`
	Status string `json:"status"`
}
