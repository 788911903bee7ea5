package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/studiokit/community-api/internal/config"
	"github.com/studiokit/community-api/internal/handler"
	messageHandler "github.com/studiokit/community-api/internal/handler/message"
	notificationHandler "github.com/studiokit/community-api/internal/handler/notification"
	threadHandler "github.com/studiokit/community-api/internal/handler/thread"
	"github.com/studiokit/community-api/internal/middleware"
	"github.com/studiokit/community-api/internal/repository/postgres"
	"github.com/studiokit/community-api/internal/router"
	eventService "github.com/studiokit/community-api/internal/service/event"
	messageService "github.com/studiokit/community-api/internal/service/message"
	notificationService "github.com/studiokit/community-api/internal/service/notification"
	readstateService "github.com/studiokit/community-api/internal/service/readstate"
	threadService "github.com/studiokit/community-api/internal/service/thread"
	"github.com/studiokit/community-api/pkg/logger"
	"github.com/studiokit/community-api/pkg/messaging/redis"
	"github.com/studiokit/community-api/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	appLogger := logger.NewLogger(&logger.Config{
		Level:      level,
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
	})

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	m := metrics.NewMetrics("community", "api")

	// Repositories
	threadRepo := postgres.NewThreadRepository(db)
	messageRepo := postgres.NewMessageRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)
	preferenceRepo := postgres.NewPreferenceRepository(db)

	// Services
	threadSvc := threadService.NewService(threadRepo)
	notificationSvc := notificationService.NewService(notificationRepo, preferenceRepo, broker, appLogger, m)
	messageSvc := messageService.NewService(threadRepo, messageRepo, notificationSvc, appLogger, m)
	readstateSvc := readstateService.NewService(threadRepo, messageRepo)

	// External scheduling events: auto thread creation and class reminders.
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	consumer := eventService.NewConsumer(threadSvc, notificationSvc, broker, appLogger)
	if err := consumer.Start(consumerCtx); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduling event consumer")
	}

	// Handlers
	identity := middleware.NewIdentityMiddleware(cfg.JWT.Secret)
	threadH := threadHandler.NewHandler(threadSvc, readstateSvc)
	messageH := messageHandler.NewHandler(messageSvc)
	notificationH := notificationHandler.NewHandler(notificationSvc)
	h := handler.NewHandler()

	r := router.NewRouter(identity, threadH, messageH, notificationH, h, router.Config{
		RateLimit:      rate.Limit(cfg.Server.RateLimit),
		RateBurst:      cfg.Server.RateBurst,
		RequestTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		CORSConfig:     middleware.DefaultCORSConfig(),
		MetricsPrefix:  "community_api",
	})
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Server.Port).Msg("community api listening")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
}
