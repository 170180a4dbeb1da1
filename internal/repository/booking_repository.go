package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/uslugi-backend/internal/domain/valueobject"
	"github.com/ignatzorin/uslugi-backend/internal/models"
	"github.com/ignatzorin/uslugi-backend/internal/repository/common"
)

// Ошибки уровня репозитория.
var (
	ErrBookingNotFound = errors.New("booking not found")
	// ErrStaleBooking возвращается, когда CAS по (status, updated_at) не прошёл:
	// бронирование успело измениться после чтения.
	ErrStaleBooking = errors.New("booking was modified concurrently")
)

// SlotBusyError сигнализирует, что слот занят другим бронированием.
type SlotBusyError struct {
	ConflictingID uuid.UUID
}

func (e *SlotBusyError) Error() string {
	return fmt.Sprintf("slot is occupied by booking %s", e.ConflictingID)
}

// BookingRepository отвечает за хранение бронирований.
// Резервирование слота выполняется транзакционно под advisory-блокировкой,
// скоупленной на пару (исполнитель, дата): проверка занятости повторяется
// непосредственно перед записью, поэтому два конкурентных запроса на
// пересекающиеся интервалы не могут зафиксироваться оба.
type BookingRepository struct {
	db *sqlx.DB
}

func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `
	id, client_id, worker_id, service_id, booking_date, start_time,
	duration_hours, hourly_rate_snapshot, total_price, status, payment_status,
	cancelled_by, cancellation_reason, cancelled_at, address,
	special_instructions, created_at, updated_at
`

// slotLockKey строит ключ advisory-блокировки для пары (исполнитель, дата).
func slotLockKey(workerID uuid.UUID, date time.Time) int64 {
	h := fnv.New64a()
	h.Write(workerID[:])
	h.Write([]byte(date.Format("2006-01-02")))
	return int64(h.Sum64())
}

func acquireSlotLock(ctx context.Context, tx *sqlx.Tx, workerID uuid.UUID, date time.Time) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, slotLockKey(workerID, date)); err != nil {
		return fmt.Errorf("booking repository: acquire slot lock: %w", err)
	}
	return nil
}

// findOverlap ищет занимающее бронирование, пересекающееся с requested.
// Возвращает id первого конфликтующего бронирования или nil.
func findOverlap(ctx context.Context, q sqlx.QueryerContext, workerID uuid.UUID, date time.Time, requested valueobject.TimeRange, excludeID *uuid.UUID) (*uuid.UUID, error) {
	query := `
		SELECT id, start_time, duration_hours
		FROM bookings
		WHERE worker_id = $1 AND booking_date = $2 AND status = ANY($3)
	`
	args := []interface{}{workerID, date, pq.Array(valueobject.OccupyingStatuses())}
	if excludeID != nil {
		query += ` AND id <> $4`
		args = append(args, *excludeID)
	}

	rows, err := q.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("booking repository: find overlap: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id            uuid.UUID
			startTime     string
			durationHours float64
		)
		if err := rows.Scan(&id, &startTime, &durationHours); err != nil {
			return nil, fmt.Errorf("booking repository: scan overlap row: %w", err)
		}

		start, err := valueobject.ParseTimeOfDay(startTime)
		if err != nil {
			return nil, fmt.Errorf("booking repository: booking %s has malformed start_time: %w", id, err)
		}
		occupied, err := valueobject.NewTimeRange(start, durationHours)
		if err != nil {
			return nil, fmt.Errorf("booking repository: booking %s has malformed interval: %w", id, err)
		}

		if requested.Overlaps(occupied) {
			return &id, nil
		}
	}

	return nil, rows.Err()
}

// Create резервирует слот и сохраняет бронирование.
// Проверка занятости повторяется внутри транзакции под блокировкой слота:
// проигравший гонку запрос получает *SlotBusyError так же, как если бы
// конфликт был виден ещё на предварительной проверке.
func (r *BookingRepository) Create(ctx context.Context, b *models.Booking) error {
	requested, err := b.TimeRange()
	if err != nil {
		return err
	}

	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := acquireSlotLock(ctx, tx, b.WorkerID, b.BookingDate); err != nil {
			return err
		}

		conflict, err := findOverlap(ctx, tx, b.WorkerID, b.BookingDate, requested, nil)
		if err != nil {
			return err
		}
		if conflict != nil {
			return &SlotBusyError{ConflictingID: *conflict}
		}

		query := `
			INSERT INTO bookings (
				client_id, worker_id, service_id, booking_date, start_time,
				duration_hours, hourly_rate_snapshot, total_price, status,
				payment_status, address, special_instructions
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING id, created_at, updated_at
		`
		if err := tx.QueryRowxContext(ctx, query,
			b.ClientID, b.WorkerID, b.ServiceID, b.BookingDate, b.StartTime,
			b.DurationHours, b.HourlyRateSnapshot, b.TotalPrice, b.Status,
			b.PaymentStatus, b.Address, b.SpecialInstructions,
		).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return fmt.Errorf("booking repository: insert booking: %w", err)
		}
		return nil
	})
}

// GetByID возвращает бронирование по идентификатору.
func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	return common.GetByID[models.Booking](ctx, r.db, "bookings", id, ErrBookingNotFound)
}

// UpdateStatus меняет статус по принципу check-and-set: запись проходит только
// если статус и updated_at не изменились с момента чтения.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, expected *models.Booking, to valueobject.BookingStatus) (*models.Booking, error) {
	var updated models.Booking
	query := `
		UPDATE bookings
		SET status = $4, updated_at = NOW()
		WHERE id = $1 AND status = $2 AND updated_at = $3
		RETURNING ` + bookingColumns
	err := r.db.QueryRowxContext(ctx, query, id, expected.Status, expected.UpdatedAt, to).StructScan(&updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStaleBooking
		}
		return nil, fmt.Errorf("booking repository: update status: %w", err)
	}
	return &updated, nil
}

// Cancel переводит бронирование в cancelled и одним оператором записывает
// cancelled_by, cancellation_reason и cancelled_at: поля отмены заполняются
// атомарно со сменой статуса либо не заполняются вовсе.
func (r *BookingRepository) Cancel(ctx context.Context, id uuid.UUID, expected *models.Booking, by valueobject.ActorRole, reason *string) (*models.Booking, error) {
	var updated models.Booking
	query := `
		UPDATE bookings
		SET status = $4, cancelled_by = $5, cancellation_reason = $6,
		    cancelled_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $2 AND updated_at = $3
		RETURNING ` + bookingColumns
	err := r.db.QueryRowxContext(ctx, query,
		id, expected.Status, expected.UpdatedAt,
		valueobject.BookingStatusCancelled, by, reason,
	).StructScan(&updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStaleBooking
		}
		return nil, fmt.Errorf("booking repository: cancel: %w", err)
	}
	return &updated, nil
}

// Reschedule переносит бронирование на новые дату и время.
// Занятость нового слота перепроверяется под блокировкой, собственное
// бронирование из набора занятых исключается. Статус не меняется.
func (r *BookingRepository) Reschedule(ctx context.Context, expected *models.Booking, newDate time.Time, newStartTime string) (*models.Booking, error) {
	start, err := valueobject.ParseTimeOfDay(newStartTime)
	if err != nil {
		return nil, err
	}
	requested, err := valueobject.NewTimeRange(start, expected.DurationHours)
	if err != nil {
		return nil, err
	}

	var updated models.Booking
	txErr := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := acquireSlotLock(ctx, tx, expected.WorkerID, newDate); err != nil {
			return err
		}

		conflict, err := findOverlap(ctx, tx, expected.WorkerID, newDate, requested, &expected.ID)
		if err != nil {
			return err
		}
		if conflict != nil {
			return &SlotBusyError{ConflictingID: *conflict}
		}

		query := `
			UPDATE bookings
			SET booking_date = $4, start_time = $5, updated_at = NOW()
			WHERE id = $1 AND status = $2 AND updated_at = $3
			RETURNING ` + bookingColumns
		err = tx.QueryRowxContext(ctx, query,
			expected.ID, expected.Status, expected.UpdatedAt, newDate, start.String(),
		).StructScan(&updated)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrStaleBooking
			}
			return fmt.Errorf("booking repository: reschedule: %w", err)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return &updated, nil
}

// UpdatePaymentStatus записывает статус оплаты. Статус бронирования не трогает:
// оплатой владеет платёжный сервис.
func (r *BookingRepository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status valueobject.PaymentStatus) (*models.Booking, error) {
	var updated models.Booking
	query := `
		UPDATE bookings
		SET payment_status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + bookingColumns
	err := r.db.QueryRowxContext(ctx, query, id, status).StructScan(&updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("booking repository: update payment status: %w", err)
	}
	return &updated, nil
}

// ListOccupyingByDate возвращает занимающие слот бронирования исполнителя на дату.
func (r *BookingRepository) ListOccupyingByDate(ctx context.Context, workerID uuid.UUID, date time.Time, excludeID *uuid.UUID) ([]models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE worker_id = $1 AND booking_date = $2 AND status = ANY($3)
	`
	args := []interface{}{workerID, date, pq.Array(valueobject.OccupyingStatuses())}
	if excludeID != nil {
		query += ` AND id <> $4`
		args = append(args, *excludeID)
	}
	query += ` ORDER BY start_time`

	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("booking repository: list occupying: %w", err)
	}
	return bookings, nil
}

// ListOccupyingByRange возвращает занимающие бронирования исполнителя за период дат.
func (r *BookingRepository) ListOccupyingByRange(ctx context.Context, workerID uuid.UUID, from, to time.Time) ([]models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE worker_id = $1 AND booking_date BETWEEN $2 AND $3 AND status = ANY($4)
		ORDER BY booking_date, start_time
	`
	var bookings []models.Booking
	err := r.db.SelectContext(ctx, &bookings, query,
		workerID, from, to, pq.Array(valueobject.OccupyingStatuses()))
	if err != nil {
		return nil, fmt.Errorf("booking repository: list occupying by range: %w", err)
	}
	return bookings, nil
}

// ListByClient возвращает бронирования клиента, опционально по статусу.
// Единственный источник выборок "по вкладкам" — отдельного кэша по статусам нет.
func (r *BookingRepository) ListByClient(ctx context.Context, clientID uuid.UUID, status *valueobject.BookingStatus, limit, offset int) ([]models.Booking, error) {
	return r.listByParty(ctx, "client_id", clientID, status, limit, offset)
}

// ListByWorker возвращает бронирования исполнителя, опционально по статусу.
func (r *BookingRepository) ListByWorker(ctx context.Context, workerID uuid.UUID, status *valueobject.BookingStatus, limit, offset int) ([]models.Booking, error) {
	return r.listByParty(ctx, "worker_id", workerID, status, limit, offset)
}

func (r *BookingRepository) listByParty(ctx context.Context, column string, partyID uuid.UUID, status *valueobject.BookingStatus, limit, offset int) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE ` + column + ` = $1`
	args := []interface{}{partyID}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}
	query += fmt.Sprintf(` ORDER BY booking_date DESC, start_time DESC LIMIT %d OFFSET %d`, limit, offset)

	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("booking repository: list by %s: %w", column, err)
	}
	return bookings, nil
}
