package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/uslugi-backend/internal/service"
)

type ReviewHandler struct {
	reviews *service.ReviewService
}

func NewReviewHandler(reviews *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// CreateReview POST /bookings/:id/reviews
func (h *ReviewHandler) CreateReview(c *gin.Context) {
	actorID, _, err := currentActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var req struct {
		Rating  int     `json:"rating" binding:"required"`
		Comment *string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректное тело запроса"})
		return
	}

	bookingID, _ := uuid.Parse(c.Param("id"))
	review, err := h.reviews.AddReview(c.Request.Context(), bookingID, actorID, req.Rating, req.Comment)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, review)
}

// ListWorkerReviews GET /workers/:id/reviews?limit=&offset=
func (h *ReviewHandler) ListWorkerReviews(c *gin.Context) {
	workerID, _ := uuid.Parse(c.Param("id"))
	limit := parseIntQuery(c, "limit", 20)
	offset := parseIntQuery(c, "offset", 0)

	reviews, avg, count, err := h.reviews.ListWorkerReviews(c.Request.Context(), workerID, limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reviews":        reviews,
		"average_rating": avg,
		"reviews_count":  count,
	})
}
