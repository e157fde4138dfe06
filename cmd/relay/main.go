package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/AchilleasB/kinderopvang/incident-service/internal/adapters/messaging"
	"github.com/AchilleasB/kinderopvang/incident-service/internal/adapters/outbox"
	"github.com/AchilleasB/kinderopvang/incident-service/internal/config"
	"github.com/AchilleasB/kinderopvang/incident-service/internal/observability"
)

func main() {
	cfg := config.LoadRelayConfig()
	logger := observability.NewLogger(os.Stdout, cfg.LogLevel).With("service", "outbox-relay")
	logger.Info("starting outbox relay service")

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("database connection initialized, circuit breaker will validate on first operation")

	// A nil publisher leaves events in the outbox until the relay is restarted with a broker.
	var publisher messaging.Publisher
	broker, err := messaging.NewRabbitMQBroker(cfg.RabbitMQURL, cfg.IncidentEventQueue)
	if err != nil {
		logger.Warn("failed to connect to RabbitMQ, events stay queued in the outbox", "error", err)
	} else {
		defer broker.Close()
		publisher = broker
		logger.Info("connected to RabbitMQ", "queue", cfg.IncidentEventQueue)
	}

	relayWorker := outbox.NewRelay(db, cfg.DatabaseURL, messaging.NewIncidentEventPublisher(publisher, cfg.IncidentEventQueue), logger)

	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/health", probe(relayWorker.IsHealthy))
	healthMux.HandleFunc("/health/live", probe(relayWorker.IsHealthy))
	healthMux.HandleFunc("/health/ready", probe(relayWorker.IsReady))

	healthServer := &http.Server{
		Addr:              ":" + cfg.HealthPort,
		Handler:           healthMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting health check server", "port", cfg.HealthPort)
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server error", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		logger.Info("starting event processing worker")
		if err := relayWorker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("received signal, initiating shutdown", "signal", sig.String())
	case err := <-errChan:
		logger.Error("fatal worker error, shutting down", "error", err)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down health server", "error", err)
	}

	logger.Info("shutdown complete")
}

func probe(check func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, httpStatus := "UP", http.StatusOK
		if !check() {
			status, httpStatus = "DOWN", http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(httpStatus)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":    status,
			"component": "outbox-relay",
		})
	}
}
