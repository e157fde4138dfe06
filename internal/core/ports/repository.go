package ports

import (
	"context"

	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/domain"
)

// PrincipalRepository reads the two principal tables. Only active rows are returned;
// a missing or inactive row yields (nil, nil).
type PrincipalRepository interface {
	FindActiveManager(ctx context.Context, id int64) (*domain.Manager, error)
	FindActiveBabysitter(ctx context.Context, id int64) (*domain.Babysitter, error)
}

type ChildRepository interface {
	// FindChild returns domain.ErrChildNotFound when the id does not resolve.
	FindChild(ctx context.Context, id int64) (*domain.Child, error)
}

type IncidentRepository interface {
	// Create stores the report and its outbox event in one transaction and returns the new id.
	Create(ctx context.Context, report domain.IncidentReport) (int64, error)
	FindByID(ctx context.Context, id int64) (*domain.IncidentView, error)
	List(ctx context.Context, filter domain.IncidentFilter) ([]domain.IncidentView, error)
	// Update applies the non-nil fields of upd in a single statement.
	Update(ctx context.Context, id int64, upd domain.IncidentUpdate) (*domain.IncidentView, error)
}

type NotificationRepository interface {
	ListNotifications(ctx context.Context, filter domain.NotificationFilter) ([]domain.IncidentView, error)
	CountUnread(ctx context.Context) (int, error)
	// MarkRead returns domain.ErrNotificationNotFound unless id is a manager-targeted report.
	MarkRead(ctx context.Context, id int64) error
	Summary(ctx context.Context, filter domain.IncidentFilter) (*domain.Summary, error)
}
