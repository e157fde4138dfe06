package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/lib/pq"
	"github.com/sony/gobreaker"

	"github.com/AchilleasB/kinderopvang/incident-service/internal/config"
	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/domain"
	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/ports"
	"github.com/AchilleasB/kinderopvang/incident-service/internal/observability"
)

const (
	// PostgreSQL NOTIFY/LISTEN configuration
	listenerMinReconnectInterval = 10 * time.Second
	listenerMaxReconnectInterval = time.Minute
	outboxChannelName            = "outbox_channel"

	// Event processing timeouts
	eventProcessTimeout     = 30 * time.Second
	batchProcessTimeout     = 60 * time.Second
	periodicProcessInterval = 90 * time.Second

	// Health check configuration
	healthCheckStaleThreshold = 5 * time.Minute

	// Batch processing limits
	maxEventsPerBatch = 100
)

// Relay listens for PostgreSQL NOTIFY signals on the outbox_channel
// and publishes incident events to RabbitMQ.
type Relay struct {
	db            *sql.DB
	publisher     ports.IncidentEventPublisher
	listener      *pq.Listener
	dbURL         string
	dbCB          *gobreaker.CircuitBreaker
	logger        *slog.Logger
	lastProcessed atomic.Int64
	healthy       atomic.Bool
}

type outboxRecord struct {
	ID        string
	EventType string
	Payload   []byte
}

// NewRelay creates a new outbox relay that listens for PostgreSQL notifications.
func NewRelay(db *sql.DB, dbURL string, publisher ports.IncidentEventPublisher, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Relay{
		db:        db,
		dbURL:     dbURL,
		publisher: publisher,
		dbCB:      config.NewCircuitBreaker(config.BreakerRelayPostgres),
		logger:    logger.With("component", "outbox_relay"),
	}
	r.lastProcessed.Store(time.Now().UnixNano())
	r.healthy.Store(true)
	return r
}

// IsHealthy is the liveness signal: the process is alive and its listener is connected.
// An open breaker is degraded but recoverable and does not fail liveness.
func (r *Relay) IsHealthy() bool {
	return r.healthy.Load()
}

// IsReady returns true if the relay can process events (for readiness probes).
func (r *Relay) IsReady() bool {
	if r.dbCB.State() == gobreaker.StateOpen {
		return false
	}

	// Check if we've processed something recently (not stuck)
	if time.Since(time.Unix(0, r.lastProcessed.Load())) > healthCheckStaleThreshold {
		return false
	}

	return r.healthy.Load()
}

// Start begins listening for outbox notifications and processing events.
// This is a blocking call that runs until the context is cancelled.
func (r *Relay) Start(ctx context.Context) error {
	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			r.logger.Error("listener error", "event", ev, "error", err)
		}
	}

	r.listener = pq.NewListener(r.dbURL, listenerMinReconnectInterval, listenerMaxReconnectInterval, reportProblem)
	defer r.listener.Close()

	if err := r.listener.Listen(outboxChannelName); err != nil {
		return err
	}

	r.logger.Info("listening for notifications", "channel", outboxChannelName)

	// Catch up on events written while the relay was down
	if err := r.processUnprocessedEvents(ctx); err != nil {
		r.logger.Error("error processing startup backlog", "error", err)
	}

	ticker := time.NewTicker(periodicProcessInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("shutting down")
			return ctx.Err()

		case notification := <-r.listener.Notify:
			if notification == nil {
				r.logger.Warn("received nil notification, listener reconnecting")
				r.healthy.Store(false)
				continue
			}

			if err := r.processEventByID(ctx, notification.Extra); err != nil {
				r.logger.Error("error processing event", "event_id", notification.Extra, "error", err)
			} else {
				r.markProcessed()
			}

		case <-ticker.C:
			// Keep the connection alive and pick up anything a missed NOTIFY left behind
			go r.listener.Ping()

			if err := r.processUnprocessedEvents(ctx); err != nil {
				r.logger.Error("error in periodic processing", "error", err)
			} else {
				r.markProcessed()
			}
		}
	}
}

func (r *Relay) markProcessed() {
	r.lastProcessed.Store(time.Now().UnixNano())
	r.healthy.Store(true)
}

// processEventByID processes a single event by its ID.
func (r *Relay) processEventByID(ctx context.Context, eventID string) error {
	ctx, cancel := context.WithTimeout(ctx, eventProcessTimeout)
	defer cancel()

	_, err := r.dbCB.Execute(func() (interface{}, error) {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}
		defer tx.Rollback()

		var rec outboxRecord
		err = tx.QueryRowContext(ctx, `
			SELECT id, event_type, payload
			FROM outbox_events
			WHERE id = $1 AND processed_at IS NULL
			FOR UPDATE SKIP LOCKED`, eventID).Scan(&rec.ID, &rec.EventType, &rec.Payload)

		// Already processed or locked by another relay instance
		if err == sql.ErrNoRows {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		if err := r.publish(ctx, rec); err != nil {
			return nil, err
		}

		if err := markEventProcessed(ctx, tx, rec.ID); err != nil {
			return nil, err
		}
		return nil, tx.Commit()
	})
	return err
}

// processUnprocessedEvents processes all unprocessed events (catch-up/recovery).
func (r *Relay) processUnprocessedEvents(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, batchProcessTimeout)
	defer cancel()

	_, err := r.dbCB.Execute(func() (interface{}, error) {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}
		defer tx.Rollback()

		rows, err := tx.QueryContext(ctx, `
			SELECT id, event_type, payload
			FROM outbox_events
			WHERE processed_at IS NULL
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED`, maxEventsPerBatch)
		if err != nil {
			return nil, err
		}

		var records []outboxRecord
		for rows.Next() {
			var rec outboxRecord
			if err := rows.Scan(&rec.ID, &rec.EventType, &rec.Payload); err != nil {
				rows.Close()
				return nil, err
			}
			records = append(records, rec)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}

		for _, rec := range records {
			if err := r.publish(ctx, rec); err != nil {
				r.logger.Error("failed to publish event", "event_id", rec.ID, "error", err)
				continue
			}
			if err := markEventProcessed(ctx, tx, rec.ID); err != nil {
				return nil, err
			}
			r.logger.Info("processed event", "event_id", rec.ID, "event_type", rec.EventType)
		}

		return nil, tx.Commit()
	})
	return err
}

// publish relays one outbox record. Undecodable payloads and unknown event types are
// logged and reported as handled so they do not block the queue forever.
func (r *Relay) publish(ctx context.Context, rec outboxRecord) error {
	if rec.EventType != domain.IncidentCreatedEventType {
		r.logger.Warn("skipping unknown event type", "event_id", rec.ID, "event_type", rec.EventType)
		observability.OutboxPublished.WithLabelValues("skipped").Inc()
		return nil
	}

	evt, err := decodeIncidentCreated(rec.Payload)
	if err != nil {
		r.logger.Error("invalid payload", "event_id", rec.ID, "error", err)
		observability.OutboxPublished.WithLabelValues("invalid").Inc()
		return nil
	}

	if err := r.publisher.PublishIncidentCreated(ctx, evt); err != nil {
		observability.OutboxPublished.WithLabelValues("failed").Inc()
		return err
	}
	observability.OutboxPublished.WithLabelValues("published").Inc()
	return nil
}

func decodeIncidentCreated(payload []byte) (domain.IncidentCreatedEvent, error) {
	var evt domain.IncidentCreatedEvent
	err := json.Unmarshal(payload, &evt)
	return evt, err
}

func markEventProcessed(ctx context.Context, tx *sql.Tx, id string) error {
	_, err := tx.ExecContext(ctx, `UPDATE outbox_events SET processed_at = NOW() WHERE id = $1`, id)
	return err
}
