package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/uslugi-backend/internal/config"
	"github.com/ignatzorin/uslugi-backend/internal/domain/valueobject"
	"github.com/ignatzorin/uslugi-backend/internal/http/handlers"
	"github.com/ignatzorin/uslugi-backend/internal/http/middleware"
	"github.com/ignatzorin/uslugi-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	bookingHandler *handlers.BookingHandler,
	availabilityHandler *handlers.AvailabilityHandler,
	reviewHandler *handlers.ReviewHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")

	// Публичные маршруты
	api.GET("/workers/:id/availability", middleware.UUIDValidator("id"), availabilityHandler.GetWeek)
	api.GET("/workers/:id/calendar", middleware.UUIDValidator("id"), availabilityHandler.GetCalendar)
	api.GET("/workers/:id/reviews", middleware.UUIDValidator("id"), reviewHandler.ListWorkerReviews)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.POST("/bookings", bookingHandler.CreateBooking)
		protected.GET("/bookings/my", bookingHandler.ListMyBookings)
		protected.GET("/bookings/:id", middleware.UUIDValidator("id"), bookingHandler.GetBooking)

		// Переходы жизненного цикла
		protected.POST("/bookings/:id/accept", middleware.UUIDValidator("id"), bookingHandler.Accept)
		protected.POST("/bookings/:id/reject", middleware.UUIDValidator("id"), bookingHandler.Reject)
		protected.POST("/bookings/:id/start", middleware.UUIDValidator("id"), bookingHandler.Start)
		protected.POST("/bookings/:id/complete", middleware.UUIDValidator("id"), bookingHandler.Complete)
		protected.POST("/bookings/:id/withdraw", middleware.UUIDValidator("id"), bookingHandler.Withdraw)
		protected.POST("/bookings/:id/cancel", middleware.UUIDValidator("id"), bookingHandler.Cancel)
		protected.POST("/bookings/:id/reschedule", middleware.UUIDValidator("id"), bookingHandler.Reschedule)

		protected.POST("/bookings/:id/reviews", middleware.UUIDValidator("id"), reviewHandler.CreateReview)

		protected.PUT("/workers/me/availability", availabilityHandler.SetWeek)

		protected.PATCH("/bookings/:id/payment-status",
			middleware.UUIDValidator("id"),
			middleware.RequireRole(valueobject.RoleAdmin),
			bookingHandler.UpdatePaymentStatus)
	}

	return r
}
