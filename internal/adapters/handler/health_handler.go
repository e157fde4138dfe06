package handler

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	statusUp      = "UP"
	statusDown    = "DOWN"
	statusSkipped = "SKIPPED"

	healthCheckTimeout = 5 * time.Second
)

type dbPinger interface {
	PingContext(ctx context.Context) error
}

type redisPinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

type brokerState interface {
	IsOpen() bool
}

type HealthHandler struct {
	db        dbPinger
	redis     redisPinger
	broker    brokerState
	startTime time.Time
	version   string
}

// NewHealthHandler builds the probes. redisClient and broker may be nil when not configured;
// their checks then report SKIPPED.
func NewHealthHandler(db dbPinger, redisClient redisPinger, broker brokerState) *HealthHandler {
	version := os.Getenv("APP_VERSION")
	if version == "" {
		version = "unknown"
	}
	return &HealthHandler{
		db:        db,
		redis:     redisClient,
		broker:    broker,
		startTime: time.Now(),
		version:   version,
	}
}

// HealthResponse follows Kubernetes/OpenShift health check conventions
type HealthResponse struct {
	Status    string           `json:"status"`
	Timestamp string           `json:"timestamp"`
	Uptime    string           `json:"uptime,omitempty"`
	Version   string           `json:"version,omitempty"`
	Checks    map[string]Check `json:"checks"`
}

type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Health is a simple liveness check - just confirms the Go process is running
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    statusUp,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   h.version,
		Checks:    map[string]Check{"process": {Status: statusUp}},
	})
}

// Live is an alias for Health
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	h.Health(w, r)
}

// Ready fails when Postgres or a configured Redis is unreachable. The broker is reported
// but does not gate readiness: reports are still stored while mail is degraded.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	checks := map[string]Check{
		"database": h.checkDatabase(ctx),
		"redis":    h.checkRedis(ctx),
		"broker":   h.checkBroker(),
	}

	status, httpStatus := statusUp, http.StatusOK
	if checks["database"].Status == statusDown || checks["redis"].Status == statusDown {
		status, httpStatus = statusDown, http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	})
}

func (h *HealthHandler) checkDatabase(ctx context.Context) Check {
	if h.db == nil {
		return Check{Status: statusDown, Message: "Database connection is not initialized"}
	}
	if err := h.db.PingContext(ctx); err != nil {
		return Check{Status: statusDown, Message: "Cannot connect to database"}
	}
	return Check{Status: statusUp}
}

func (h *HealthHandler) checkRedis(ctx context.Context) Check {
	if h.redis == nil {
		return Check{Status: statusSkipped, Message: "Revocation store not configured"}
	}
	if err := h.redis.Ping(ctx).Err(); err != nil {
		return Check{Status: statusDown, Message: "Cannot connect to Redis"}
	}
	return Check{Status: statusUp}
}

func (h *HealthHandler) checkBroker() Check {
	if h.broker == nil {
		return Check{Status: statusSkipped, Message: "Message broker not configured"}
	}
	if !h.broker.IsOpen() {
		return Check{Status: statusDown, Message: "Broker connection closed"}
	}
	return Check{Status: statusUp}
}
