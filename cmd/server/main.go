package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-recommender/internal/config"
	"github.com/iliyamo/cinema-recommender/internal/database"
	"github.com/iliyamo/cinema-recommender/internal/handler"
	"github.com/iliyamo/cinema-recommender/internal/logging"
	"github.com/iliyamo/cinema-recommender/internal/middleware"
	"github.com/iliyamo/cinema-recommender/internal/queue"
	"github.com/iliyamo/cinema-recommender/internal/recommend"
	"github.com/iliyamo/cinema-recommender/internal/repository"
	"github.com/iliyamo/cinema-recommender/internal/router"
	"github.com/iliyamo/cinema-recommender/internal/seed"
	"github.com/iliyamo/cinema-recommender/internal/service"
)

const reservationLog = "logs/reservation.log"

func main() {
	if err := config.LoadDotEnv(); err != nil {
		logging.Fatal().Err(err).Msg("Failed to read .env")
	}
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Caller: cfg.Log.Caller})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	var rdb *redis.Client
	if cfg.Cache.Enabled || cfg.RateLimit.Enabled {
		rdb, err = config.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logging.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable; cache and rate limit disabled")
		} else {
			defer rdb.Close()
		}
	}

	var events service.Publisher = service.NopPublisher{}
	if cfg.RabbitURL != "" {
		events = &service.AMQPPublisher{URL: cfg.RabbitURL}
		consumer := &queue.Consumer{URL: cfg.RabbitURL, LogPath: reservationLog}
		go func() { _ = consumer.Run(ctx) }()
		logging.Info().Str("log", reservationLog).Msg("Reservation event consumer started")
	}

	movies := repository.NewMovieRepo(db)
	users := repository.NewUserRepo(db)
	reservations := repository.NewReservationRepo(db)
	schema := repository.NewSchemaRepo(db)
	cache := middleware.NewResponseCache(cfg.Cache, rdb)
	initializer := &seed.Initializer{Schema: seed.RepoSchema(schema), Path: cfg.DataCSV}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover(), middleware.RequestID(), middleware.RequestLogger())

	router.Register(e, router.Handlers{
		Health:          &handler.HealthHandler{DB: db},
		Auth:            handler.NewAuthHandler(cfg),
		Movies:          handler.NewMovieHandler(movies, cache),
		Users:           handler.NewUserHandler(users, cache),
		Reservations:    handler.NewReservationHandler(reservations, movies, users, events, cache),
		Recommendations: handler.NewRecommendationHandler(recommend.New(repository.NewRecommendRepo(db))),
		Admin:           handler.NewAdminHandler(initializer, cache),
	}, router.Deps{
		JWTSecret: cfg.JWTSecret,
		Schema:    schema,
		Cache:     cache.Middleware(),
		RateLimit: middleware.NewTokenBucket(cfg.RateLimit, rdb),
	})

	go func() {
		addr := ":" + cfg.Port
		logging.Info().Str("addr", addr).Str("env", cfg.Env).Msg("HTTP server listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	logging.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("HTTP server shutdown")
	}
}
