package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/uslugi-backend/internal/models"
	"github.com/ignatzorin/uslugi-backend/internal/repository/common"
)

// AvailabilityRepository хранит еженедельные окна доступности исполнителей.
type AvailabilityRepository struct {
	db *sqlx.DB
}

func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// GetForDay возвращает окно доступности на день недели.
// nil без ошибки означает выходной день.
func (r *AvailabilityRepository) GetForDay(ctx context.Context, workerID uuid.UUID, dayOfWeek int) (*models.WorkerAvailability, error) {
	var availability models.WorkerAvailability
	query := `
		SELECT worker_id, day_of_week, start_time, end_time
		FROM worker_availability
		WHERE worker_id = $1 AND day_of_week = $2
	`
	if err := r.db.GetContext(ctx, &availability, query, workerID, dayOfWeek); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("availability repository: get for day: %w", err)
	}
	return &availability, nil
}

// ListForWorker возвращает всю недельную сетку исполнителя.
func (r *AvailabilityRepository) ListForWorker(ctx context.Context, workerID uuid.UUID) ([]models.WorkerAvailability, error) {
	var items []models.WorkerAvailability
	query := `
		SELECT worker_id, day_of_week, start_time, end_time
		FROM worker_availability
		WHERE worker_id = $1
		ORDER BY day_of_week
	`
	if err := r.db.SelectContext(ctx, &items, query, workerID); err != nil {
		return nil, fmt.Errorf("availability repository: list for worker: %w", err)
	}
	return items, nil
}

// ReplaceWeek атомарно заменяет недельную сетку исполнителя.
// Дни без интервала просто отсутствуют в списке.
func (r *AvailabilityRepository) ReplaceWeek(ctx context.Context, workerID uuid.UUID, items []models.WorkerAvailability) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM worker_availability WHERE worker_id = $1`, workerID); err != nil {
			return fmt.Errorf("availability repository: clear week: %w", err)
		}

		query := `
			INSERT INTO worker_availability (worker_id, day_of_week, start_time, end_time)
			VALUES ($1, $2, $3, $4)
		`
		for _, item := range items {
			if _, err := tx.ExecContext(ctx, query, workerID, item.DayOfWeek, item.StartTime, item.EndTime); err != nil {
				return fmt.Errorf("availability repository: insert day %d: %w", item.DayOfWeek, err)
			}
		}
		return nil
	})
}
