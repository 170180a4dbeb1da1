package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/uslugi-backend/internal/domain/valueobject"
	"github.com/ignatzorin/uslugi-backend/internal/http/middleware"
)

func withActor(role valueobject.ActorRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserIDKey, uuid.New())
		c.Set(middleware.ContextRoleKey, role)
		c.Next()
	}
}

func TestBookingHandler_CreateBooking_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &BookingHandler{bookings: nil}
	r.POST("/bookings", handler.CreateBooking)

	req, _ := http.NewRequest("POST", "/bookings", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBookingHandler_CreateBooking_WorkerForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(withActor(valueobject.RoleWorker))
	handler := &BookingHandler{bookings: nil}
	r.POST("/bookings", handler.CreateBooking)

	req, _ := http.NewRequest("POST", "/bookings", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestBookingHandler_CreateBooking_InvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(withActor(valueobject.RoleClient))
	handler := &BookingHandler{bookings: nil}
	r.POST("/bookings", handler.CreateBooking)

	req, _ := http.NewRequest("POST", "/bookings", strings.NewReader(`{"date": 42}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookingHandler_CreateBooking_BadDateFormat(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(withActor(valueobject.RoleClient))
	handler := &BookingHandler{bookings: nil}
	r.POST("/bookings", handler.CreateBooking)

	body := `{"worker_id":"` + uuid.New().String() + `","date":"07.09.2026","start_time":"10:00","duration_hours":2,"address":"ул. Ленина, 1"}`
	req, _ := http.NewRequest("POST", "/bookings", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookingHandler_GetBooking_InvalidID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(withActor(valueobject.RoleClient))
	handler := &BookingHandler{bookings: nil}
	r.GET("/bookings/:id", middleware.UUIDValidator("id"), handler.GetBooking)

	req, _ := http.NewRequest("GET", "/bookings/invalid-uuid", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookingHandler_Reschedule_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &BookingHandler{bookings: nil}
	r.POST("/bookings/:id/reschedule", middleware.UUIDValidator("id"), handler.Reschedule)

	req, _ := http.NewRequest("POST", "/bookings/"+uuid.New().String()+"/reschedule", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
