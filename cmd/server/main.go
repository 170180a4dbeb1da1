package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/uslugi-backend/internal/config"
	"github.com/ignatzorin/uslugi-backend/internal/db"
	httpHandlers "github.com/ignatzorin/uslugi-backend/internal/http/handlers"
	httpRouter "github.com/ignatzorin/uslugi-backend/internal/http/router"
	"github.com/ignatzorin/uslugi-backend/internal/logger"
	"github.com/ignatzorin/uslugi-backend/internal/repository"
	"github.com/ignatzorin/uslugi-backend/internal/service"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	logLevel := "info"
	if cfg.Env == "development" {
		logLevel = "debug"
		logger.Init(logLevel)
		logger.SetTextFormatter()
	} else {
		logger.Init(logLevel)
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Токены выпускает внешний сервис авторизации, здесь только проверка.
	tokenManager := service.NewTokenManager(cfg.JWTSecret)

	// Репозитории.
	bookingRepo := repository.NewBookingRepository(dbConn)
	availabilityRepo := repository.NewAvailabilityRepository(dbConn)
	reviewRepo := repository.NewReviewRepository(dbConn)
	workerRepo := repository.NewWorkerRepository(dbConn)

	// Сервисы.
	cache := service.NewCacheService()
	availabilityService := service.NewAvailabilityService(availabilityRepo, bookingRepo, cache, cfg.CalendarCacheTTL)
	bookingService := service.NewBookingService(bookingRepo, workerRepo, availabilityService)
	reviewService := service.NewReviewService(reviewRepo, bookingRepo, workerRepo)

	// HTTP хэндлеры.
	bookingHandler := httpHandlers.NewBookingHandler(bookingService)
	availabilityHandler := httpHandlers.NewAvailabilityHandler(availabilityService)
	reviewHandler := httpHandlers.NewReviewHandler(reviewService)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, bookingHandler, availabilityHandler, reviewHandler, healthHandler, tokenManager)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
