package ports

import (
	"context"

	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/domain"
)

type TokenValidator interface {
	Validate(raw string) (*domain.Claim, error)
}

type IdentityResolver interface {
	Resolve(ctx context.Context, claim domain.Claim) (domain.Principal, error)
}

type IncidentService interface {
	Create(ctx context.Context, principal domain.Principal, in domain.NewIncident) (*domain.CreateResult, error)
	Update(ctx context.Context, id int64, upd domain.IncidentUpdate) (*domain.IncidentView, error)
	Get(ctx context.Context, id int64) (*domain.IncidentView, error)
	List(ctx context.Context, filter domain.IncidentFilter) ([]domain.IncidentView, error)
	ListByChild(ctx context.Context, childID int64) ([]domain.IncidentView, error)
}

type NotificationService interface {
	List(ctx context.Context, filter domain.NotificationFilter) ([]domain.IncidentView, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, id int64) error
	Summary(ctx context.Context, filter domain.IncidentFilter) (*domain.Summary, error)
}
