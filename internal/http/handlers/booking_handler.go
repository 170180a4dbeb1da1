package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/uslugi-backend/internal/domain/valueobject"
	"github.com/ignatzorin/uslugi-backend/internal/service"
	"github.com/ignatzorin/uslugi-backend/internal/validation"
)

type BookingHandler struct {
	bookings *service.BookingService
}

func NewBookingHandler(bookings *service.BookingService) *BookingHandler {
	return &BookingHandler{bookings: bookings}
}

// CreateBooking POST /bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	actorID, role, err := currentActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if role != valueobject.RoleClient {
		c.JSON(http.StatusForbidden, gin.H{"error": "бронирование создаёт клиент"})
		return
	}

	var req struct {
		WorkerID            uuid.UUID  `json:"worker_id" binding:"required"`
		ServiceID           *uuid.UUID `json:"service_id"`
		Date                string     `json:"date" binding:"required"`
		StartTime           string     `json:"start_time" binding:"required"`
		DurationHours       float64    `json:"duration_hours" binding:"required"`
		Address             string     `json:"address" binding:"required"`
		SpecialInstructions *string    `json:"special_instructions"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректное тело запроса"})
		return
	}

	date, err := validation.ParseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	booking, err := h.bookings.CreateBooking(c.Request.Context(), service.CreateBookingInput{
		ClientID:            actorID,
		WorkerID:            req.WorkerID,
		ServiceID:           req.ServiceID,
		Date:                date,
		StartTime:           req.StartTime,
		DurationHours:       req.DurationHours,
		Address:             req.Address,
		SpecialInstructions: req.SpecialInstructions,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, bookingJSON(booking))
}

// GetBooking GET /bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	actorID, role, err := currentActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	bookingID, _ := uuid.Parse(c.Param("id"))
	booking, err := h.bookings.GetBooking(c.Request.Context(), bookingID, role, actorID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, bookingJSON(booking))
}

// ListMyBookings GET /bookings/my?status=&limit=&offset=
// Клиент видит свои заказы, исполнитель — назначенные на него.
// Фильтр по статусу — обычная выборка из хранилища.
func (h *BookingHandler) ListMyBookings(c *gin.Context) {
	actorID, role, err := currentActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var status *string
	if raw := c.Query("status"); raw != "" {
		status = &raw
	}
	limit := parseIntQuery(c, "limit", 20)
	offset := parseIntQuery(c, "offset", 0)

	var bookings interface{}
	switch role {
	case valueobject.RoleWorker:
		items, err := h.bookings.ListForWorker(c.Request.Context(), actorID, status, limit, offset)
		if err != nil {
			_ = c.Error(err)
			return
		}
		bookings = bookingsJSON(items)
	default:
		items, err := h.bookings.ListForClient(c.Request.Context(), actorID, status, limit, offset)
		if err != nil {
			_ = c.Error(err)
			return
		}
		bookings = bookingsJSON(items)
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// Accept POST /bookings/:id/accept
func (h *BookingHandler) Accept(c *gin.Context) {
	h.applyTransition(c, valueobject.TransitionAccept, nil)
}

// Reject POST /bookings/:id/reject
func (h *BookingHandler) Reject(c *gin.Context) {
	h.applyTransition(c, valueobject.TransitionReject, nil)
}

// Start POST /bookings/:id/start
func (h *BookingHandler) Start(c *gin.Context) {
	h.applyTransition(c, valueobject.TransitionStart, nil)
}

// Complete POST /bookings/:id/complete
func (h *BookingHandler) Complete(c *gin.Context) {
	h.applyTransition(c, valueobject.TransitionComplete, nil)
}

// Withdraw POST /bookings/:id/withdraw — клиент отзывает неподтверждённую заявку.
func (h *BookingHandler) Withdraw(c *gin.Context) {
	reason, ok := h.bindReason(c)
	if !ok {
		return
	}
	h.applyTransition(c, valueobject.TransitionWithdraw, reason)
}

// Cancel POST /bookings/:id/cancel
// Для админа это переход с расширенным набором исходных статусов.
func (h *BookingHandler) Cancel(c *gin.Context) {
	reason, ok := h.bindReason(c)
	if !ok {
		return
	}

	transition := valueobject.TransitionCancel
	if _, role, err := currentActor(c); err == nil && role == valueobject.RoleAdmin {
		transition = valueobject.TransitionAdminCancel
	}
	h.applyTransition(c, transition, reason)
}

// Reschedule POST /bookings/:id/reschedule
func (h *BookingHandler) Reschedule(c *gin.Context) {
	actorID, role, err := currentActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var req struct {
		Date      string `json:"date" binding:"required"`
		StartTime string `json:"start_time" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректное тело запроса"})
		return
	}

	date, err := validation.ParseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bookingID, _ := uuid.Parse(c.Param("id"))
	booking, err := h.bookings.Reschedule(c.Request.Context(), bookingID, role, actorID, date, req.StartTime)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, bookingJSON(booking))
}

// UpdatePaymentStatus PATCH /bookings/:id/payment-status
// Внутренняя ручка платёжного сервиса: статус оплаты не связан
// с переходами статуса бронирования.
func (h *BookingHandler) UpdatePaymentStatus(c *gin.Context) {
	var req struct {
		PaymentStatus string `json:"payment_status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректное тело запроса"})
		return
	}

	bookingID, _ := uuid.Parse(c.Param("id"))
	booking, err := h.bookings.SetPaymentStatus(c.Request.Context(), bookingID, req.PaymentStatus)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, bookingJSON(booking))
}

func (h *BookingHandler) bindReason(c *gin.Context) (*string, bool) {
	var req struct {
		Reason *string `json:"reason"`
	}
	// Тело необязательно: отмена без причины допустима.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "некорректное тело запроса"})
			return nil, false
		}
	}
	return req.Reason, true
}

func (h *BookingHandler) applyTransition(c *gin.Context, transition valueobject.Transition, reason *string) {
	actorID, role, err := currentActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	bookingID, _ := uuid.Parse(c.Param("id"))
	booking, err := h.bookings.Transition(c.Request.Context(), bookingID, role, actorID, transition, reason)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, bookingJSON(booking))
}

func parseIntQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value := 0
	for _, r := range raw {
		if r < '0' || r > '9' {
			return fallback
		}
		value = value*10 + int(r-'0')
	}
	return value
}
