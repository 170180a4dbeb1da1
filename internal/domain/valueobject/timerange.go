package valueobject

import (
	"fmt"
	"math"

	"github.com/ignatzorin/uslugi-backend/internal/pkg/apperror"
)

// TimeOfDay — время в пределах суток в минутах от полуночи.
type TimeOfDay int

const minutesPerDay = 24 * 60

// ParseTimeOfDay разбирает строку формата "ЧЧ:ММ" (допускается "ЧЧ:ММ:СС" из базы).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m, sec int
	if _, err := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec); err != nil {
		if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
			return 0, apperror.New(apperror.ErrCodeValidation, "время должно быть в формате ЧЧ:ММ")
		}
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, apperror.New(apperror.ErrCodeValidation, "время должно быть в пределах 00:00-23:59")
	}
	return TimeOfDay(h*60 + m), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// AddHours возвращает время спустя заданное дробное число часов.
// Результат обрезается концом суток: бронирование не переходит через полночь.
func (t TimeOfDay) AddHours(hours float64) TimeOfDay {
	end := int(t) + int(math.Round(hours*60))
	if end > minutesPerDay {
		end = minutesPerDay
	}
	return TimeOfDay(end)
}

// TimeRange — полуоткрытый интервал [Start, End) в пределах одного дня.
type TimeRange struct {
	Start TimeOfDay
	End   TimeOfDay
}

func NewTimeRange(start TimeOfDay, durationHours float64) (TimeRange, error) {
	if durationHours <= 0 {
		return TimeRange{}, apperror.New(apperror.ErrCodeValidation, "длительность должна быть положительной")
	}
	end := start.AddHours(durationHours)
	if end <= start {
		return TimeRange{}, apperror.New(apperror.ErrCodeValidation, "интервал выходит за пределы суток")
	}
	return TimeRange{Start: start, End: end}, nil
}

// Overlaps проверяет пересечение полуоткрытых интервалов:
// встык идущие интервалы (конец одного равен началу другого) не пересекаются.
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Start < other.End && other.Start < r.End
}

// Contains проверяет, что other целиком лежит внутри r.
func (r TimeRange) Contains(other TimeRange) bool {
	return other.Start >= r.Start && other.End <= r.End
}

// Minutes возвращает длину интервала в минутах.
func (r TimeRange) Minutes() int {
	return int(r.End - r.Start)
}

func (r TimeRange) String() string {
	return r.Start.String() + "-" + r.End.String()
}
