package valueobject

import "github.com/ignatzorin/uslugi-backend/internal/pkg/apperror"

type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusAccepted   BookingStatus = "accepted"
	BookingStatusRejected   BookingStatus = "rejected"
	BookingStatusInProgress BookingStatus = "in_progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
)

func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingStatusPending, BookingStatusAccepted, BookingStatusRejected,
		BookingStatusInProgress, BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

// IsTerminal сообщает, что из статуса больше нет переходов.
// Терминальные статусы окончательны, в том числе для админа.
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case BookingStatusRejected, BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

// IsOccupying сообщает, занимает ли бронирование в этом статусе слот в
// расписании исполнителя. Единственное место, где определён этот набор:
// им пользуются и проверка конфликтов, и календарь занятости.
func (s BookingStatus) IsOccupying() bool {
	switch s {
	case BookingStatusPending, BookingStatusAccepted, BookingStatusInProgress:
		return true
	}
	return false
}

// OccupyingStatuses возвращает занимающие статусы для SQL фильтров.
func OccupyingStatuses() []string {
	return []string{
		string(BookingStatusPending),
		string(BookingStatusAccepted),
		string(BookingStatusInProgress),
	}
}

func NewBookingStatus(status string) (BookingStatus, error) {
	s := BookingStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус бронирования")
	}
	return s, nil
}

type PaymentStatus string

// Статус оплаты живёт независимо от статуса бронирования: его ведёт
// платёжный сервис, движок бронирований его не меняет.
const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusRefunded:
		return true
	}
	return false
}

func NewPaymentStatus(status string) (PaymentStatus, error) {
	s := PaymentStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус оплаты")
	}
	return s, nil
}
