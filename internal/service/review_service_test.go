package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/uslugi-backend/internal/domain/valueobject"
	"github.com/ignatzorin/uslugi-backend/internal/models"
	"github.com/ignatzorin/uslugi-backend/internal/pkg/apperror"
	"github.com/ignatzorin/uslugi-backend/internal/repository"
)

type mockReviewRepo struct {
	mock.Mock
}

func (m *mockReviewRepo) Create(ctx context.Context, review *models.Review) error {
	args := m.Called(ctx, review)
	if args.Error(0) == nil {
		review.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockReviewRepo) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.Review, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Review), args.Error(1)
}

func (m *mockReviewRepo) ListByWorker(ctx context.Context, workerID uuid.UUID, limit, offset int) ([]models.Review, error) {
	args := m.Called(ctx, workerID, limit, offset)
	return args.Get(0).([]models.Review), args.Error(1)
}

func (m *mockReviewRepo) GetAverageRating(ctx context.Context, workerID uuid.UUID) (float64, int, error) {
	args := m.Called(ctx, workerID)
	return args.Get(0).(float64), args.Int(1), args.Error(2)
}

type mockBookingReader struct {
	mock.Mock
}

func (m *mockBookingReader) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

type mockRatingUpdater struct {
	mock.Mock
}

func (m *mockRatingUpdater) RecalculateRating(ctx context.Context, workerID uuid.UUID) error {
	args := m.Called(ctx, workerID)
	return args.Error(0)
}

func newReviewServiceForTest() (*ReviewService, *mockReviewRepo, *mockBookingReader, *mockRatingUpdater) {
	repo := new(mockReviewRepo)
	bookings := new(mockBookingReader)
	workers := new(mockRatingUpdater)
	return NewReviewService(repo, bookings, workers), repo, bookings, workers
}

func completedBooking(clientID, workerID uuid.UUID) *models.Booking {
	return &models.Booking{
		ID:       uuid.New(),
		ClientID: clientID,
		WorkerID: workerID,
		Status:   valueobject.BookingStatusCompleted,
	}
}

func TestReviewService_AddReview_Success(t *testing.T) {
	svc, repo, bookings, workers := newReviewServiceForTest()
	ctx := context.Background()

	clientID := uuid.New()
	workerID := uuid.New()
	booking := completedBooking(clientID, workerID)

	bookings.On("GetByID", ctx, booking.ID).Return(booking, nil)
	repo.On("GetByBookingID", ctx, booking.ID).Return(nil, nil)
	repo.On("Create", ctx, mock.AnythingOfType("*models.Review")).Return(nil)
	workers.On("RecalculateRating", ctx, workerID).Return(nil)

	comment := "Отличная работа!"
	review, err := svc.AddReview(ctx, booking.ID, clientID, 5, &comment)

	assert.NoError(t, err)
	assert.NotNil(t, review)
	assert.Equal(t, workerID, review.WorkerID)
	assert.Equal(t, clientID, review.ClientID)
	assert.Equal(t, 5, review.Rating)
	workers.AssertCalled(t, "RecalculateRating", ctx, workerID)
}

func TestReviewService_AddReview_RatingBounds(t *testing.T) {
	svc, _, _, _ := newReviewServiceForTest()
	ctx := context.Background()

	_, err := svc.AddReview(ctx, uuid.New(), uuid.New(), 0, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "от 1 до 5")

	_, err = svc.AddReview(ctx, uuid.New(), uuid.New(), 6, nil)
	assert.Error(t, err)
}

func TestReviewService_AddReview_NotCompleted(t *testing.T) {
	svc, _, bookings, _ := newReviewServiceForTest()
	ctx := context.Background()

	clientID := uuid.New()
	booking := completedBooking(clientID, uuid.New())
	booking.Status = valueobject.BookingStatusInProgress

	bookings.On("GetByID", ctx, booking.ID).Return(booking, nil)

	_, err := svc.AddReview(ctx, booking.ID, clientID, 5, nil)

	var appErr *apperror.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodeNotEligible, appErr.Code)
	assert.Equal(t, "in_progress", appErr.Details["current_status"])
}

func TestReviewService_AddReview_CancelledNotEligible(t *testing.T) {
	svc, _, bookings, _ := newReviewServiceForTest()
	ctx := context.Background()

	clientID := uuid.New()
	booking := completedBooking(clientID, uuid.New())
	booking.Status = valueobject.BookingStatusCancelled

	bookings.On("GetByID", ctx, booking.ID).Return(booking, nil)

	_, err := svc.AddReview(ctx, booking.ID, clientID, 4, nil)

	var appErr *apperror.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodeNotEligible, appErr.Code)
}

func TestReviewService_AddReview_OnlyClient(t *testing.T) {
	svc, _, bookings, _ := newReviewServiceForTest()
	ctx := context.Background()

	workerID := uuid.New()
	booking := completedBooking(uuid.New(), workerID)
	bookings.On("GetByID", ctx, booking.ID).Return(booking, nil)

	// Ни исполнитель, ни посторонний не могут оставить отзыв.
	_, err := svc.AddReview(ctx, booking.ID, workerID, 5, nil)
	assert.True(t, apperror.IsForbidden(err))

	_, err = svc.AddReview(ctx, booking.ID, uuid.New(), 5, nil)
	assert.True(t, apperror.IsForbidden(err))
}

func TestReviewService_AddReview_AlreadyReviewed(t *testing.T) {
	svc, repo, bookings, _ := newReviewServiceForTest()
	ctx := context.Background()

	clientID := uuid.New()
	booking := completedBooking(clientID, uuid.New())
	existing := &models.Review{ID: uuid.New(), BookingID: booking.ID}

	bookings.On("GetByID", ctx, booking.ID).Return(booking, nil)
	repo.On("GetByBookingID", ctx, booking.ID).Return(existing, nil)

	_, err := svc.AddReview(ctx, booking.ID, clientID, 5, nil)

	var appErr *apperror.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodeAlreadyReviewed, appErr.Code)
	assert.Equal(t, existing.ID.String(), appErr.Details["review_id"])
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestReviewService_AddReview_RaceOnUniqueIndex(t *testing.T) {
	svc, repo, bookings, _ := newReviewServiceForTest()
	ctx := context.Background()

	clientID := uuid.New()
	booking := completedBooking(clientID, uuid.New())

	bookings.On("GetByID", ctx, booking.ID).Return(booking, nil)
	repo.On("GetByBookingID", ctx, booking.ID).Return(nil, nil)
	// Конкурентный отзыв успел вставиться между проверкой и записью.
	repo.On("Create", ctx, mock.AnythingOfType("*models.Review")).Return(repository.ErrReviewExists)

	_, err := svc.AddReview(ctx, booking.ID, clientID, 5, nil)

	var appErr *apperror.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodeAlreadyReviewed, appErr.Code)
}

func TestReviewService_AddReview_BookingNotFound(t *testing.T) {
	svc, _, bookings, _ := newReviewServiceForTest()
	ctx := context.Background()

	bookingID := uuid.New()
	bookings.On("GetByID", ctx, bookingID).Return(nil, repository.ErrBookingNotFound)

	_, err := svc.AddReview(ctx, bookingID, uuid.New(), 5, nil)
	assert.True(t, apperror.IsNotFound(err))
}

func TestReviewService_AddReview_RatingRecalcFailureIsNotFatal(t *testing.T) {
	svc, repo, bookings, workers := newReviewServiceForTest()
	ctx := context.Background()

	clientID := uuid.New()
	workerID := uuid.New()
	booking := completedBooking(clientID, workerID)

	bookings.On("GetByID", ctx, booking.ID).Return(booking, nil)
	repo.On("GetByBookingID", ctx, booking.ID).Return(nil, nil)
	repo.On("Create", ctx, mock.AnythingOfType("*models.Review")).Return(nil)
	workers.On("RecalculateRating", ctx, workerID).Return(errors.New("db down"))

	review, err := svc.AddReview(ctx, booking.ID, clientID, 4, nil)

	// Отзыв создан, сбой пересчёта агрегата не откатывает его.
	assert.NoError(t, err)
	assert.NotNil(t, review)
}

func TestReviewService_ListWorkerReviews(t *testing.T) {
	svc, repo, _, _ := newReviewServiceForTest()
	ctx := context.Background()

	workerID := uuid.New()
	expected := []models.Review{{ID: uuid.New()}, {ID: uuid.New()}}

	repo.On("ListByWorker", ctx, workerID, 20, 0).Return(expected, nil)
	repo.On("GetAverageRating", ctx, workerID).Return(4.5, 2, nil)

	reviews, avg, count, err := svc.ListWorkerReviews(ctx, workerID, 20, 0)

	assert.NoError(t, err)
	assert.Len(t, reviews, 2)
	assert.Equal(t, 4.5, avg)
	assert.Equal(t, 2, count)
}
