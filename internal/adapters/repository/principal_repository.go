package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/domain"
)

func (r *SQLRepository) FindActiveManager(ctx context.Context, id int64) (*domain.Manager, error) {
	var m domain.Manager
	err := r.run(func() error {
		return r.db.QueryRowContext(
			ctx,
			"SELECT id, first_name, last_name, email FROM managers WHERE id = $1 AND is_active = TRUE",
			id,
		).Scan(&m.UserID, &m.FirstName, &m.LastName, &m.Email)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find manager: %w", err)
	}
	return &m, nil
}

func (r *SQLRepository) FindActiveBabysitter(ctx context.Context, id int64) (*domain.Babysitter, error) {
	var b domain.Babysitter
	err := r.run(func() error {
		return r.db.QueryRowContext(
			ctx,
			"SELECT id, first_name, last_name, email, phone FROM babysitters WHERE id = $1 AND is_active = TRUE",
			id,
		).Scan(&b.UserID, &b.FirstName, &b.LastName, &b.Email, &b.Phone)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find babysitter: %w", err)
	}
	return &b, nil
}

func (r *SQLRepository) FindChild(ctx context.Context, id int64) (*domain.Child, error) {
	var c domain.Child
	err := r.run(func() error {
		return r.db.QueryRowContext(
			ctx,
			"SELECT id, full_name, COALESCE(parent_name, ''), COALESCE(parent_email, '') FROM children WHERE id = $1",
			id,
		).Scan(&c.ID, &c.FullName, &c.ParentName, &c.ParentEmail)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrChildNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find child: %w", err)
	}
	return &c, nil
}
