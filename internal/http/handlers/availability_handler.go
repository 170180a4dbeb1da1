package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/uslugi-backend/internal/domain/valueobject"
	"github.com/ignatzorin/uslugi-backend/internal/models"
	"github.com/ignatzorin/uslugi-backend/internal/service"
	"github.com/ignatzorin/uslugi-backend/internal/validation"
)

type AvailabilityHandler struct {
	availability *service.AvailabilityService
}

func NewAvailabilityHandler(availability *service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability}
}

// GetWeek GET /workers/:id/availability — публичная недельная сетка исполнителя.
func (h *AvailabilityHandler) GetWeek(c *gin.Context) {
	workerID, _ := uuid.Parse(c.Param("id"))

	week, err := h.availability.GetWeek(c.Request.Context(), workerID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"availability": week})
}

// SetWeek PUT /workers/me/availability — исполнитель заменяет свою сетку целиком.
func (h *AvailabilityHandler) SetWeek(c *gin.Context) {
	actorID, role, err := currentActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if role != valueobject.RoleWorker {
		c.JSON(http.StatusForbidden, gin.H{"error": "сетку доступности меняет исполнитель"})
		return
	}

	var req struct {
		Availability []struct {
			DayOfWeek int    `json:"day_of_week"`
			StartTime string `json:"start_time" binding:"required"`
			EndTime   string `json:"end_time" binding:"required"`
		} `json:"availability"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректное тело запроса"})
		return
	}

	items := make([]models.WorkerAvailability, 0, len(req.Availability))
	for _, item := range req.Availability {
		items = append(items, models.WorkerAvailability{
			DayOfWeek: item.DayOfWeek,
			StartTime: item.StartTime,
			EndTime:   item.EndTime,
		})
	}

	if err := h.availability.SetWeek(c.Request.Context(), actorID, items); err != nil {
		_ = c.Error(err)
		return
	}

	week, err := h.availability.GetWeek(c.Request.Context(), actorID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"availability": week})
}

// GetCalendar GET /workers/:id/calendar?from=&to=
// Без параметров возвращает две недели начиная с сегодняшнего дня.
func (h *AvailabilityHandler) GetCalendar(c *gin.Context) {
	workerID, _ := uuid.Parse(c.Param("id"))

	from := time.Now().UTC().Truncate(24 * time.Hour)
	if raw := c.Query("from"); raw != "" {
		parsed, err := validation.ParseDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		from = parsed
	}

	to := from.AddDate(0, 0, 13)
	if raw := c.Query("to"); raw != "" {
		parsed, err := validation.ParseDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		to = parsed
	}

	calendar, err := h.availability.GetCalendar(c.Request.Context(), workerID, from, to)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"calendar": calendar})
}
