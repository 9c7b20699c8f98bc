package main

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/sportfield/reservation/internal/config"
	"github.com/sportfield/reservation/internal/database"
	"github.com/sportfield/reservation/internal/handler"
	"github.com/sportfield/reservation/internal/middleware"
	"github.com/sportfield/reservation/internal/model"
	"github.com/sportfield/reservation/internal/queue"
	"github.com/sportfield/reservation/internal/repository"
	"github.com/sportfield/reservation/internal/router"
	"github.com/sportfield/reservation/internal/service"
)

func main() {
	// .env is optional; real deployments set env vars directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer func() { _ = db.Close() }()

	// Redis is optional: a nil client disables caching and rate limiting.
	rdb := config.NewRedisClient()

	rentRepo := repository.NewRentRepo(db)
	scheduleRepo := repository.NewScheduleRepo(db)
	fieldRepo := repository.NewFieldRepo(db)
	paymentRepo := repository.NewPaymentRepo(db)
	userRepo := repository.NewUserRepo(db)

	excluded := []string{model.RentStatusCancelled}
	occupancy := service.NewOccupancyService(fieldRepo, excluded)
	scheduler := service.NewRecheckScheduler(occupancy, time.Duration(cfg.RecheckTimeoutSec)*time.Second)

	rentSvc := service.NewRentService(
		rentRepo, scheduleRepo, fieldRepo, paymentRepo, fieldRepo,
		occupancy, scheduler, queue.PublishRentBooked,
	)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	cacheCfg := config.LoadCacheConfig()
	router.RegisterRoutes(e)
	router.RegisterRents(e, handler.NewRentHandler(rentSvc, userRepo), cfg.JWTSecret, cacheCfg, rdb)
	router.RegisterSchedules(e, handler.NewScheduleHandler(scheduleRepo), cfg.JWTSecret, cacheCfg, rdb)

	// Consume rent notifications in the background; reconnects on failure.
	go func() {
		if err := queue.StartRentConsumer(); err != nil {
			log.Printf("rabbitmq: consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
