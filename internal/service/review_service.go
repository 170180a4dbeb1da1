package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/uslugi-backend/internal/domain/valueobject"
	"github.com/ignatzorin/uslugi-backend/internal/logger"
	"github.com/ignatzorin/uslugi-backend/internal/models"
	"github.com/ignatzorin/uslugi-backend/internal/pkg/apperror"
	"github.com/ignatzorin/uslugi-backend/internal/repository"
	"github.com/ignatzorin/uslugi-backend/internal/validation"
)

type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.Review, error)
	ListByWorker(ctx context.Context, workerID uuid.UUID, limit, offset int) ([]models.Review, error)
	GetAverageRating(ctx context.Context, workerID uuid.UUID) (float64, int, error)
}

type BookingReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
}

type RatingUpdater interface {
	RecalculateRating(ctx context.Context, workerID uuid.UUID) error
}

// ReviewService создаёт отзывы по завершённым бронированиям.
// Отзыв разовый и после создания не меняется.
type ReviewService struct {
	repo     ReviewRepository
	bookings BookingReader
	workers  RatingUpdater
}

func NewReviewService(repo ReviewRepository, bookings BookingReader, workers RatingUpdater) *ReviewService {
	return &ReviewService{repo: repo, bookings: bookings, workers: workers}
}

// AddReview создаёт отзыв клиента по завершённому бронированию.
// Ровно один отзыв на бронирование; попытка второго — AlreadyReviewed.
func (s *ReviewService) AddReview(ctx context.Context, bookingID, actorID uuid.UUID, rating int, comment *string) (*models.Review, error) {
	if err := validation.ValidateRating(rating); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateOptionalText("комментарий", comment, validation.MaxReviewCommentLength); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, apperror.ErrBookingNotFound
		}
		return nil, err
	}

	if booking.ClientID != actorID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "отзыв может оставить только клиент бронирования")
	}
	if booking.Status != valueobject.BookingStatusCompleted {
		return nil, apperror.New(apperror.ErrCodeNotEligible, "отзыв можно оставить только по завершённому бронированию").
			WithDetail("current_status", string(booking.Status))
	}

	existing, err := s.repo.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, alreadyReviewed(existing.ID)
	}

	review := &models.Review{
		BookingID: bookingID,
		WorkerID:  booking.WorkerID,
		ClientID:  booking.ClientID,
		Rating:    rating,
		Comment:   comment,
	}

	if err := s.repo.Create(ctx, review); err != nil {
		// Уникальный индекс по booking_id ловит гонку двух одновременных отзывов.
		if errors.Is(err, repository.ErrReviewExists) {
			return nil, alreadyReviewed(uuid.Nil)
		}
		return nil, err
	}

	// Агрегат рейтинга — производная проекция профиля, его пересчёт
	// не должен отменять уже созданный отзыв.
	if err := s.workers.RecalculateRating(ctx, booking.WorkerID); err != nil {
		logger.WithComponent("review").WithFields(logrus.Fields{
			"worker_id": booking.WorkerID,
			"error":     err.Error(),
		}).Warn("failed to recalculate worker rating")
	}

	return review, nil
}

// ListWorkerReviews возвращает отзывы об исполнителе вместе с агрегатом рейтинга.
func (s *ReviewService) ListWorkerReviews(ctx context.Context, workerID uuid.UUID, limit, offset int) ([]models.Review, float64, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	reviews, err := s.repo.ListByWorker(ctx, workerID, limit, offset)
	if err != nil {
		return nil, 0, 0, err
	}
	avg, count, err := s.repo.GetAverageRating(ctx, workerID)
	if err != nil {
		return nil, 0, 0, err
	}
	return reviews, avg, count, nil
}

func alreadyReviewed(existingID uuid.UUID) error {
	appErr := apperror.New(apperror.ErrCodeAlreadyReviewed, "отзыв на это бронирование уже оставлен")
	if existingID != uuid.Nil {
		return appErr.WithDetail("review_id", existingID.String())
	}
	return appErr
}
