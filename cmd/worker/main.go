package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/studiokit/community-api/internal/email"
	notificationService "github.com/studiokit/community-api/internal/service/notification"
	"github.com/studiokit/community-api/pkg/logger"
	"github.com/studiokit/community-api/pkg/messaging/redis"
	"github.com/studiokit/community-api/pkg/metrics"
	"github.com/studiokit/community-api/pkg/worker"
)

// WorkerConfig is read from the environment; the dispatcher runs in
// containers where a config file is not mounted.
type WorkerConfig struct {
	RedisURL          string        `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	RedisMaxRetries   int           `envconfig:"REDIS_MAX_RETRIES" default:"3"`
	RedisRetryBackoff time.Duration `envconfig:"REDIS_RETRY_BACKOFF" default:"100ms"`
	RedisPoolSize     int           `envconfig:"REDIS_POOL_SIZE" default:"10"`
	RedisMinIdleConns int           `envconfig:"REDIS_MIN_IDLE_CONNS" default:"2"`

	SMTPHost     string `envconfig:"SMTP_HOST" default:"localhost"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom     string `envconfig:"SMTP_FROM" default:"noreply@studiokit.io"`

	DirectoryURL string        `envconfig:"DIRECTORY_URL" default:"http://localhost:8090"`
	HealthAddr   string        `envconfig:"HEALTH_ADDR" default:":8081"`
	HTTPTimeout  time.Duration `envconfig:"HTTP_TIMEOUT" default:"5s"`
	LogLevel     string        `envconfig:"LOG_LEVEL" default:"info"`
}

// httpDirectory resolves user email addresses from the identity service.
type httpDirectory struct {
	baseURL string
	client  *http.Client
}

func (d *httpDirectory) EmailAddress(ctx context.Context, userID uuid.UUID) (string, error) {
	url := fmt.Sprintf("%s/internal/users/%s/contact", d.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("directory lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("directory returned status %d for user %s", resp.StatusCode, userID)
	}

	var contact struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&contact); err != nil {
		return "", fmt.Errorf("failed to decode directory response: %w", err)
	}
	if contact.Email == "" {
		return "", fmt.Errorf("no email on file for user %s", userID)
	}
	return contact.Email, nil
}

// logPush stands in until a push provider is integrated. Jobs are logged
// rather than dropped silently so staging environments show the traffic.
type logPush struct {
	logger *logger.Logger
}

func (p *logPush) Send(ctx context.Context, userID uuid.UUID, title, body string) error {
	p.logger.Info("push delivery", "user_id", userID.String(), "title", title)
	return nil
}

func setupHealthCheck(addr string, appLogger *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			appLogger.Error(err, "health check server failed")
			os.Exit(1)
		}
	}()
}

func main() {
	var cfg WorkerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to load worker configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	appLogger := logger.NewLogger(&logger.Config{
		Level:      level,
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
	})

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.RedisURL,
		MaxRetries:   cfg.RedisMaxRetries,
		RetryBackoff: cfg.RedisRetryBackoff,
		PoolSize:     cfg.RedisPoolSize,
		MinIdleConns: cfg.RedisMinIdleConns,
	}, &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	emailSvc := email.NewGomailService(email.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})

	directory := &httpDirectory{
		baseURL: cfg.DirectoryURL,
		client:  &http.Client{Timeout: cfg.HTTPTimeout},
	}

	dispatcher := worker.NewDispatcher(
		broker,
		notificationService.DeliveryTopic,
		emailSvc,
		&logPush{logger: appLogger},
		directory,
		appLogger,
		metrics.NewMetrics("community", "dispatcher"),
	)

	setupHealthCheck(cfg.HealthAddr, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("shutting down dispatcher...")
		cancel()
	}()

	if err := dispatcher.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("dispatcher failed to start")
	}
}
