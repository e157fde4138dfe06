package messaging

import (
	"context"
	"encoding/json"

	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/domain"
	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/ports"
)

type IncidentEventPublisher struct {
	publisher Publisher
	queue     string
}

var _ ports.IncidentEventPublisher = (*IncidentEventPublisher)(nil)

func NewIncidentEventPublisher(publisher Publisher, queue string) *IncidentEventPublisher {
	return &IncidentEventPublisher{publisher: publisher, queue: queue}
}

func (p *IncidentEventPublisher) PublishIncidentCreated(ctx context.Context, evt domain.IncidentCreatedEvent) error {
	if p.publisher == nil {
		return ErrBrokerUnavailable
	}
	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return p.publisher.Publish(ctx, p.queue, body)
}
