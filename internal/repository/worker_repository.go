package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/uslugi-backend/internal/models"
	"github.com/ignatzorin/uslugi-backend/internal/repository/common"
)

var ErrWorkerNotFound = errors.New("worker not found")

// WorkerRepository читает профили исполнителей в объёме, который нужен движку:
// ставка для снапшота цены и агрегат рейтинга. Остальным владеет профильный сервис.
type WorkerRepository struct {
	db *sqlx.DB
}

func NewWorkerRepository(db *sqlx.DB) *WorkerRepository {
	return &WorkerRepository{db: db}
}

// GetByID возвращает исполнителя по идентификатору.
func (r *WorkerRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Worker, error) {
	return common.GetByID[models.Worker](ctx, r.db, "workers", id, ErrWorkerNotFound)
}

// RecalculateRating пересчитывает агрегат рейтинга исполнителя по отзывам.
// Производная проекция: вызывается после создания отзыва.
func (r *WorkerRepository) RecalculateRating(ctx context.Context, workerID uuid.UUID) error {
	query := `
		UPDATE workers
		SET rating = COALESCE((SELECT AVG(rating) FROM reviews WHERE worker_id = $1), 0),
		    reviews_count = (SELECT COUNT(*) FROM reviews WHERE worker_id = $1),
		    updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, workerID); err != nil {
		return fmt.Errorf("worker repository: recalculate rating: %w", err)
	}
	return nil
}
