package messaging

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/domain"
	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/ports"
)

var ErrBrokerUnavailable = errors.New("message broker unavailable")

// GuardianMailer queues guardian mail for the external mail sender.
type GuardianMailer struct {
	publisher Publisher
	queue     string
}

var _ ports.GuardianNotifier = (*GuardianMailer)(nil)

// NewGuardianMailer accepts a nil publisher; every notification then fails,
// which the incident service reports as a degraded notification.
func NewGuardianMailer(publisher Publisher, queue string) *GuardianMailer {
	return &GuardianMailer{publisher: publisher, queue: queue}
}

func (g *GuardianMailer) NotifyGuardian(ctx context.Context, mail domain.GuardianMail) error {
	if g.publisher == nil {
		return ErrBrokerUnavailable
	}
	body, err := json.Marshal(mail)
	if err != nil {
		return err
	}
	return g.publisher.Publish(ctx, g.queue, body)
}
