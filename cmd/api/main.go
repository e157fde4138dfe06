package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/AchilleasB/kinderopvang/incident-service/internal/adapters/cache"
	"github.com/AchilleasB/kinderopvang/incident-service/internal/adapters/handler"
	"github.com/AchilleasB/kinderopvang/incident-service/internal/adapters/messaging"
	"github.com/AchilleasB/kinderopvang/incident-service/internal/adapters/middleware"
	"github.com/AchilleasB/kinderopvang/incident-service/internal/adapters/repository"
	"github.com/AchilleasB/kinderopvang/incident-service/internal/config"
	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/ports"
	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/services"
	"github.com/AchilleasB/kinderopvang/incident-service/internal/observability"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	logger := observability.NewLogger(os.Stdout, cfg.LogLevel)

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := repository.NewSQLRepository(db)

	// Optional collaborators stay nil interfaces when not configured.
	var (
		revocations ports.RevocationStore
		redisProbe  *redis.Client
	)
	if cfg.RedisAddress != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis not reachable at startup, revocation checks fail closed until it is", "error", err)
		} else {
			logger.Info("connected to redis")
		}
		cancel()

		revocations = cache.NewRedisRevocationStore(redisClient)
		redisProbe = redisClient
	} else {
		logger.Warn("REDIS_ADDRESS not set, credential revocation is not checked")
	}

	var (
		publisher messaging.Publisher
		broker    *messaging.RabbitMQBroker
	)
	if cfg.RabbitMQURL != "" {
		broker, err = messaging.NewRabbitMQBroker(cfg.RabbitMQURL, cfg.GuardianMailQueue)
		if err != nil {
			logger.Warn("failed to connect to RabbitMQ, guardian mail will be degraded", "error", err)
		} else {
			defer broker.Close()
			publisher = broker
			logger.Info("connected to RabbitMQ", "queue", cfg.GuardianMailQueue)
		}
	} else {
		logger.Warn("RABBITMQ_URL not set, guardian mail will be degraded")
	}

	var validator *services.JWTValidator
	if cfg.JWTPublicKey != nil {
		validator = services.NewRS256Validator(cfg.JWTPublicKey)
	} else {
		validator = services.NewHS256Validator(cfg.JWTSecret)
	}

	incidentService := services.NewIncidentService(
		repo,
		repo,
		messaging.NewGuardianMailer(publisher, cfg.GuardianMailQueue),
		services.WithNotifyTimeout(cfg.NotifyTimeout),
		services.WithLogger(logger),
	)
	notificationService := services.NewNotificationService(repo, logger)

	authMiddleware := middleware.NewAuthMiddleware(validator, revocations, services.NewIdentityResolver(repo), logger)

	health := newHealthHandler(db, redisProbe, broker)

	router := handler.NewRouter(handler.RouterDeps{
		Auth:           authMiddleware,
		Incidents:      handler.NewIncidentHandler(incidentService, logger),
		Notifications:  handler.NewNotificationHandler(notificationService, logger),
		Health:         health,
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("starting server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("received signal, initiating shutdown", "signal", sig.String())
	case err := <-errChan:
		logger.Error("server error, shutting down", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down server", "error", err)
	}
	logger.Info("shutdown complete")
}

// newHealthHandler keeps absent dependencies as untyped nils so their checks report SKIPPED.
func newHealthHandler(db *sql.DB, redisClient *redis.Client, broker *messaging.RabbitMQBroker) *handler.HealthHandler {
	switch {
	case redisClient != nil && broker != nil:
		return handler.NewHealthHandler(db, redisClient, broker)
	case redisClient != nil:
		return handler.NewHealthHandler(db, redisClient, nil)
	case broker != nil:
		return handler.NewHealthHandler(db, nil, broker)
	default:
		return handler.NewHealthHandler(db, nil, nil)
	}
}
