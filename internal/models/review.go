package models

import (
	"time"

	"github.com/google/uuid"
)

// Review — отзыв клиента по завершённому бронированию.
// Не более одного отзыва на бронирование; после создания не меняется.
type Review struct {
	ID        uuid.UUID `db:"id" json:"id"`
	BookingID uuid.UUID `db:"booking_id" json:"booking_id"`
	WorkerID  uuid.UUID `db:"worker_id" json:"worker_id"`
	ClientID  uuid.UUID `db:"client_id" json:"client_id"`
	Rating    int       `db:"rating" json:"rating"`
	Comment   *string   `db:"comment" json:"comment,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
