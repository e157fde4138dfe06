package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/sony/gobreaker"

	"github.com/AchilleasB/kinderopvang/incident-service/internal/config"
	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/domain"
	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/ports"
)

// PostgreSQL error code for foreign_key_violation.
const pqForeignKeyViolation = "23503"

type SQLRepository struct {
	db *sql.DB
	cb *gobreaker.CircuitBreaker
}

// Ensure SQLRepository implements every repository port
var (
	_ ports.PrincipalRepository    = (*SQLRepository)(nil)
	_ ports.ChildRepository        = (*SQLRepository)(nil)
	_ ports.IncidentRepository     = (*SQLRepository)(nil)
	_ ports.NotificationRepository = (*SQLRepository)(nil)
)

func NewSQLRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{
		db: db,
		cb: config.NewCircuitBreaker(config.BreakerPostgres),
	}
}

// run executes fn behind the circuit breaker. Not-found style outcomes are
// handed back to the caller without counting as breaker failures.
func (r *SQLRepository) run(fn func() error) error {
	var outcome error
	_, err := r.cb.Execute(func() (interface{}, error) {
		err := fn()
		if isExpected(err) {
			outcome = err
			return nil, nil
		}
		return nil, err
	})
	if outcome != nil {
		return outcome
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", domain.ErrDatastoreUnavailable, err)
	}
	return err
}

func isExpected(err error) bool {
	if err == nil {
		return false
	}
	var verr *domain.ValidationError
	return errors.Is(err, sql.ErrNoRows) || domain.IsNotFound(err) || errors.As(err, &verr)
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation
}

// withTx runs fn in a transaction that is committed only when fn succeeds.
func (r *SQLRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
