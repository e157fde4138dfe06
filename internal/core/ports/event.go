package ports

import (
	"context"

	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/domain"
)

// GuardianNotifier hands a mail request to the outbound mail collaborator.
type GuardianNotifier interface {
	NotifyGuardian(ctx context.Context, mail domain.GuardianMail) error
}

type IncidentEventPublisher interface {
	PublishIncidentCreated(ctx context.Context, evt domain.IncidentCreatedEvent) error
}

// RevocationStore answers whether a credential was revoked by the login service.
type RevocationStore interface {
	IsRevoked(ctx context.Context, rawToken string) (bool, error)
}
