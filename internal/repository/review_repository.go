package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/uslugi-backend/internal/models"
	"github.com/ignatzorin/uslugi-backend/internal/repository/common"
)

var (
	ErrReviewNotFound = errors.New("review not found")
	// ErrReviewExists возвращается при нарушении уникальности по booking_id:
	// вторая линия защиты от двойного отзыва после проверки в сервисе.
	ErrReviewExists = errors.New("review already exists for booking")
)

// uniqueViolation — код ошибки unique_violation в PostgreSQL.
const uniqueViolation = "23505"

type ReviewRepository struct {
	db *sqlx.DB
}

func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create создаёт отзыв. Уникальность booking_id обеспечивает база.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	query := `
		INSERT INTO reviews (booking_id, worker_id, client_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		review.BookingID, review.WorkerID, review.ClientID, review.Rating, review.Comment,
	).Scan(&review.ID, &review.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return ErrReviewExists
		}
		return fmt.Errorf("review repository: insert: %w", err)
	}
	return nil
}

// GetByID возвращает отзыв по ID.
func (r *ReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	return common.GetByID[models.Review](ctx, r.db, "reviews", id, ErrReviewNotFound)
}

// GetByBookingID проверяет, есть ли уже отзыв на бронирование.
// nil без ошибки означает, что отзыва нет.
func (r *ReviewRepository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.Review, error) {
	var review models.Review
	err := r.db.GetContext(ctx, &review, `SELECT * FROM reviews WHERE booking_id = $1`, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("review repository: get by booking: %w", err)
	}
	return &review, nil
}

// ListByWorker возвращает отзывы об исполнителе.
func (r *ReviewRepository) ListByWorker(ctx context.Context, workerID uuid.UUID, limit, offset int) ([]models.Review, error) {
	var reviews []models.Review
	err := r.db.SelectContext(ctx, &reviews, `
		SELECT * FROM reviews WHERE worker_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, workerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("review repository: list by worker: %w", err)
	}
	return reviews, nil
}

// GetAverageRating возвращает средний рейтинг исполнителя и число отзывов.
func (r *ReviewRepository) GetAverageRating(ctx context.Context, workerID uuid.UUID) (float64, int, error) {
	var result struct {
		Avg   sql.NullFloat64 `db:"avg"`
		Count int             `db:"count"`
	}
	err := r.db.GetContext(ctx, &result, `
		SELECT COALESCE(AVG(rating), 0) as avg, COUNT(*) as count FROM reviews WHERE worker_id = $1
	`, workerID)
	if err != nil {
		return 0, 0, fmt.Errorf("review repository: get average rating: %w", err)
	}
	return result.Avg.Float64, result.Count, nil
}
