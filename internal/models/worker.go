package models

import (
	"time"

	"github.com/google/uuid"
)

// Worker — профиль исполнителя в объёме, который нужен движку бронирований:
// почасовая ставка для снапшота цены и агрегат рейтинга.
// Остальными полями профиля владеет профильный сервис.
type Worker struct {
	ID           uuid.UUID `db:"id" json:"id"`
	DisplayName  string    `db:"display_name" json:"display_name"`
	HourlyRate   float64   `db:"hourly_rate" json:"hourly_rate"`
	Rating       float64   `db:"rating" json:"rating"`
	ReviewsCount int       `db:"reviews_count" json:"reviews_count"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
