package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/uslugi-backend/internal/domain/valueobject"
)

// Booking описывает заявку клиента на услугу исполнителя в конкретный слот.
// Бронирования никогда не удаляются физически: отмена — терминальный статус.
type Booking struct {
	ID                  uuid.UUID                   `db:"id" json:"id"`
	ClientID            uuid.UUID                   `db:"client_id" json:"client_id"`
	WorkerID            uuid.UUID                   `db:"worker_id" json:"worker_id"`
	ServiceID           *uuid.UUID                  `db:"service_id" json:"service_id,omitempty"`
	BookingDate         time.Time                   `db:"booking_date" json:"booking_date"`
	StartTime           string                      `db:"start_time" json:"start_time"`
	DurationHours       float64                     `db:"duration_hours" json:"duration_hours"`
	HourlyRateSnapshot  float64                     `db:"hourly_rate_snapshot" json:"hourly_rate_snapshot"`
	TotalPrice          float64                     `db:"total_price" json:"total_price"`
	Status              valueobject.BookingStatus   `db:"status" json:"status"`
	PaymentStatus       valueobject.PaymentStatus   `db:"payment_status" json:"payment_status"`
	CancelledBy         *valueobject.ActorRole      `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CancellationReason  *string                     `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	CancelledAt         *time.Time                  `db:"cancelled_at" json:"cancelled_at,omitempty"`
	Address             string                      `db:"address" json:"address"`
	SpecialInstructions *string                     `db:"special_instructions" json:"special_instructions,omitempty"`
	CreatedAt           time.Time                   `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time                   `db:"updated_at" json:"updated_at"`
}

// TimeRange возвращает интервал [start, end) бронирования.
func (b *Booking) TimeRange() (valueobject.TimeRange, error) {
	start, err := valueobject.ParseTimeOfDay(b.StartTime)
	if err != nil {
		return valueobject.TimeRange{}, err
	}
	return valueobject.NewTimeRange(start, b.DurationHours)
}

// EndTime возвращает вычисленное время окончания в формате ЧЧ:ММ.
func (b *Booking) EndTime() string {
	r, err := b.TimeRange()
	if err != nil {
		return ""
	}
	return r.End.String()
}

// IsParty сообщает, является ли пользователь стороной бронирования.
func (b *Booking) IsParty(userID uuid.UUID) bool {
	return b.ClientID == userID || b.WorkerID == userID
}
