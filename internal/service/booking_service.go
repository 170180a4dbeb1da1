package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/uslugi-backend/internal/domain/valueobject"
	"github.com/ignatzorin/uslugi-backend/internal/logger"
	"github.com/ignatzorin/uslugi-backend/internal/models"
	"github.com/ignatzorin/uslugi-backend/internal/pkg/apperror"
	"github.com/ignatzorin/uslugi-backend/internal/repository"
	"github.com/ignatzorin/uslugi-backend/internal/validation"
)

// transitionRetries — число повторов CAS при конкурентном изменении бронирования.
const transitionRetries = 3

type BookingRepository interface {
	Create(ctx context.Context, b *models.Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, expected *models.Booking, to valueobject.BookingStatus) (*models.Booking, error)
	Cancel(ctx context.Context, id uuid.UUID, expected *models.Booking, by valueobject.ActorRole, reason *string) (*models.Booking, error)
	Reschedule(ctx context.Context, expected *models.Booking, newDate time.Time, newStartTime string) (*models.Booking, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status valueobject.PaymentStatus) (*models.Booking, error)
	ListByClient(ctx context.Context, clientID uuid.UUID, status *valueobject.BookingStatus, limit, offset int) ([]models.Booking, error)
	ListByWorker(ctx context.Context, workerID uuid.UUID, status *valueobject.BookingStatus, limit, offset int) ([]models.Booking, error)
}

type WorkerReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Worker, error)
}

// SlotChecker — чистая проверка доступности слота плюс сброс кэша календаря.
type SlotChecker interface {
	CheckSlot(ctx context.Context, workerID uuid.UUID, date time.Time, startTime string, durationHours float64, excludeBookingID *uuid.UUID) error
	InvalidateWorker(workerID uuid.UUID)
}

// BookingService владеет жизненным циклом бронирования: создание через
// проверку конфликтов, переходы статусов по таблице переходов и перенос.
type BookingService struct {
	repo    BookingRepository
	workers WorkerReader
	slots   SlotChecker
}

func NewBookingService(repo BookingRepository, workers WorkerReader, slots SlotChecker) *BookingService {
	return &BookingService{repo: repo, workers: workers, slots: slots}
}

// CreateBookingInput — данные запроса на создание бронирования.
type CreateBookingInput struct {
	ClientID            uuid.UUID
	WorkerID            uuid.UUID
	ServiceID           *uuid.UUID
	Date                time.Time
	StartTime           string
	DurationHours       float64
	Address             string
	SpecialInstructions *string
}

// CreateBooking проверяет слот и создаёт бронирование в статусе pending.
// Ставка исполнителя снимается в снапшот на момент создания: последующие
// изменения ставки на цену бронирования не влияют.
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*models.Booking, error) {
	if err := validation.ValidateDurationHours(input.DurationHours); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateBookingDate(input.Date); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateAddress(input.Address); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateOptionalText("особые указания", input.SpecialInstructions, validation.MaxInstructionsLength); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	start, err := valueobject.ParseTimeOfDay(input.StartTime)
	if err != nil {
		return nil, err
	}

	worker, err := s.workers.GetByID(ctx, input.WorkerID)
	if err != nil {
		if errors.Is(err, repository.ErrWorkerNotFound) {
			return nil, apperror.ErrWorkerNotFound
		}
		return nil, err
	}

	if err := s.slots.CheckSlot(ctx, input.WorkerID, input.Date, start.String(), input.DurationHours, nil); err != nil {
		return nil, err
	}

	booking := &models.Booking{
		ClientID:            input.ClientID,
		WorkerID:            input.WorkerID,
		ServiceID:           input.ServiceID,
		BookingDate:         input.Date,
		StartTime:           start.String(),
		DurationHours:       input.DurationHours,
		HourlyRateSnapshot:  worker.HourlyRate,
		TotalPrice:          roundMoney(worker.HourlyRate * input.DurationHours),
		Status:              valueobject.BookingStatusPending,
		PaymentStatus:       valueobject.PaymentStatusPending,
		Address:             input.Address,
		SpecialInstructions: input.SpecialInstructions,
	}

	// Репозиторий повторяет проверку занятости под блокировкой слота.
	// Проигранная гонка выглядит для клиента так же, как конфликт,
	// найденный предварительной проверкой.
	if err := s.repo.Create(ctx, booking); err != nil {
		return nil, mapBookingRepoError(err)
	}

	s.slots.InvalidateWorker(booking.WorkerID)

	logger.WithComponent("booking").WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"worker_id":  booking.WorkerID,
		"date":       booking.BookingDate.Format(validation.DateFormat),
	}).Info("booking created")

	return booking, nil
}

// Transition применяет переход из таблицы переходов к бронированию.
// Конкурентные переходы по одному бронированию сериализуются через CAS по
// (status, updated_at): после неудачной записи состояние перечитывается и
// предусловие проверяется заново по последнему зафиксированному статусу.
func (s *BookingService) Transition(ctx context.Context, bookingID uuid.UUID, role valueobject.ActorRole, actorID uuid.UUID, transition valueobject.Transition, reason *string) (*models.Booking, error) {
	if !transition.IsValid() {
		return nil, apperror.New(apperror.ErrCodeValidation, "неизвестный переход")
	}
	if err := validation.ValidateOptionalText("причина отмены", reason, validation.MaxCancellationReasonLength); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	for attempt := 0; attempt < transitionRetries; attempt++ {
		booking, err := s.repo.GetByID(ctx, bookingID)
		if err != nil {
			return nil, mapBookingRepoError(err)
		}

		if err := authorizeActor(booking, role, actorID); err != nil {
			return nil, err
		}
		if !transition.AllowedFor(role) {
			return nil, apperror.New(apperror.ErrCodeForbidden, "переход недоступен для вашей роли").
				WithDetail("transition", string(transition))
		}
		if !transition.AllowedFrom(booking.Status) {
			return nil, invalidTransition(transition, booking.Status)
		}

		var updated *models.Booking
		if transition.IsCancellation() {
			updated, err = s.repo.Cancel(ctx, bookingID, booking, role, reason)
		} else {
			updated, err = s.repo.UpdateStatus(ctx, bookingID, booking, transition.Target())
		}
		if errors.Is(err, repository.ErrStaleBooking) {
			continue
		}
		if err != nil {
			return nil, err
		}

		if booking.Status.IsOccupying() != updated.Status.IsOccupying() {
			s.slots.InvalidateWorker(booking.WorkerID)
		}

		logger.WithComponent("booking").WithFields(logrus.Fields{
			"booking_id": bookingID,
			"transition": transition,
			"from":       booking.Status,
			"to":         updated.Status,
			"actor_role": role,
		}).Info("booking transition applied")

		return updated, nil
	}

	return nil, apperror.New(apperror.ErrCodeInvalidTransition,
		"бронирование изменяется конкурентно, повторите запрос")
}

// Reschedule переносит бронирование на новые дату и время без смены статуса.
// Новый слот проверяется с исключением собственного бронирования из набора
// занятых; при конфликте исходные дата и время остаются нетронутыми.
func (s *BookingService) Reschedule(ctx context.Context, bookingID uuid.UUID, role valueobject.ActorRole, actorID uuid.UUID, newDate time.Time, newStartTime string) (*models.Booking, error) {
	if role != valueobject.RoleClient && role != valueobject.RoleWorker {
		return nil, apperror.ErrForbidden
	}
	if err := validation.ValidateBookingDate(newDate); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	start, err := valueobject.ParseTimeOfDay(newStartTime)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < transitionRetries; attempt++ {
		booking, err := s.repo.GetByID(ctx, bookingID)
		if err != nil {
			return nil, mapBookingRepoError(err)
		}

		if err := authorizeActor(booking, role, actorID); err != nil {
			return nil, err
		}
		if booking.Status != valueobject.BookingStatusPending && booking.Status != valueobject.BookingStatusAccepted {
			return nil, apperror.New(apperror.ErrCodeInvalidTransition, "перенос доступен только до начала работ").
				WithDetail("current_status", string(booking.Status))
		}

		if err := s.slots.CheckSlot(ctx, booking.WorkerID, newDate, start.String(), booking.DurationHours, &booking.ID); err != nil {
			return nil, err
		}

		updated, err := s.repo.Reschedule(ctx, booking, newDate, start.String())
		if errors.Is(err, repository.ErrStaleBooking) {
			continue
		}
		if err != nil {
			return nil, mapBookingRepoError(err)
		}

		s.slots.InvalidateWorker(booking.WorkerID)

		logger.WithComponent("booking").WithFields(logrus.Fields{
			"booking_id": bookingID,
			"new_date":   newDate.Format(validation.DateFormat),
			"new_start":  start.String(),
		}).Info("booking rescheduled")

		return updated, nil
	}

	return nil, apperror.New(apperror.ErrCodeInvalidTransition,
		"бронирование изменяется конкурентно, повторите запрос")
}

// GetBooking возвращает бронирование стороне сделки или админу.
func (s *BookingService) GetBooking(ctx context.Context, bookingID uuid.UUID, role valueobject.ActorRole, actorID uuid.UUID) (*models.Booking, error) {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, mapBookingRepoError(err)
	}
	if err := authorizeActor(booking, role, actorID); err != nil {
		return nil, err
	}
	return booking, nil
}

// ListForClient возвращает бронирования клиента, опционально отфильтрованные
// по статусу. Выборка всегда идёт из хранилища: никакого отдельного
// состояния по "вкладкам" нет.
func (s *BookingService) ListForClient(ctx context.Context, clientID uuid.UUID, status *string, limit, offset int) ([]models.Booking, error) {
	parsed, err := parseStatusFilter(status)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByClient(ctx, clientID, parsed, normalizeLimit(limit), offset)
}

// ListForWorker возвращает бронирования исполнителя.
func (s *BookingService) ListForWorker(ctx context.Context, workerID uuid.UUID, status *string, limit, offset int) ([]models.Booking, error) {
	parsed, err := parseStatusFilter(status)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByWorker(ctx, workerID, parsed, normalizeLimit(limit), offset)
}

// SetPaymentStatus записывает статус оплаты от платёжного сервиса.
// Никак не связан с переходами статуса бронирования.
func (s *BookingService) SetPaymentStatus(ctx context.Context, bookingID uuid.UUID, status string) (*models.Booking, error) {
	parsed, err := valueobject.NewPaymentStatus(status)
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.UpdatePaymentStatus(ctx, bookingID, parsed)
	if err != nil {
		return nil, mapBookingRepoError(err)
	}
	return updated, nil
}

// authorizeActor проверяет, что актор — сторона бронирования либо админ,
// и что его id соответствует заявленной роли.
func authorizeActor(booking *models.Booking, role valueobject.ActorRole, actorID uuid.UUID) error {
	switch role {
	case valueobject.RoleAdmin:
		return nil
	case valueobject.RoleClient:
		if booking.ClientID == actorID {
			return nil
		}
	case valueobject.RoleWorker:
		if booking.WorkerID == actorID {
			return nil
		}
	}
	return apperror.New(apperror.ErrCodeForbidden, "вы не сторона этого бронирования")
}

func invalidTransition(transition valueobject.Transition, current valueobject.BookingStatus) error {
	return apperror.New(apperror.ErrCodeInvalidTransition, "переход недопустим из текущего статуса").
		WithDetail("current_status", string(current)).
		WithDetail("allowed_from", transition.AllowedFromStatuses())
}

func mapBookingRepoError(err error) error {
	var busy *repository.SlotBusyError
	switch {
	case errors.Is(err, repository.ErrBookingNotFound):
		return apperror.ErrBookingNotFound
	case errors.As(err, &busy):
		return slotConflict(busy.ConflictingID)
	default:
		return err
	}
}

func parseStatusFilter(status *string) (*valueobject.BookingStatus, error) {
	if status == nil || *status == "" {
		return nil, nil
	}
	parsed, err := valueobject.NewBookingStatus(*status)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 20
	}
	return limit
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
