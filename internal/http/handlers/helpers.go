package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/uslugi-backend/internal/domain/valueobject"
	"github.com/ignatzorin/uslugi-backend/internal/http/middleware"
	"github.com/ignatzorin/uslugi-backend/internal/models"
)

var errActorNotFound = errors.New("пользователь не найден в контексте")

// currentActor извлекает userID и роль из контекста запроса.
func currentActor(c *gin.Context) (uuid.UUID, valueobject.ActorRole, error) {
	rawID, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return uuid.Nil, "", errActorNotFound
	}
	userID, ok := rawID.(uuid.UUID)
	if !ok {
		return uuid.Nil, "", errActorNotFound
	}

	rawRole, exists := c.Get(middleware.ContextRoleKey)
	if !exists {
		return uuid.Nil, "", errActorNotFound
	}
	role, ok := rawRole.(valueobject.ActorRole)
	if !ok {
		return uuid.Nil, "", errActorNotFound
	}

	return userID, role, nil
}

// bookingView добавляет к бронированию вычисленное время окончания.
type bookingView struct {
	*models.Booking
	EndTime string `json:"end_time"`
}

func bookingJSON(b *models.Booking) bookingView {
	return bookingView{Booking: b, EndTime: b.EndTime()}
}

func bookingsJSON(items []models.Booking) []bookingView {
	views := make([]bookingView, 0, len(items))
	for i := range items {
		views = append(views, bookingJSON(&items[i]))
	}
	return views
}
