package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/domain"
	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/ports"
)

// MockGuardianNotifier captures guardian mail instead of queueing it.
type MockGuardianNotifier struct {
	mu sync.RWMutex

	Sent []domain.GuardianMail

	// NotifyError is returned from every call when set.
	NotifyError error
	// Delay blocks each call until it elapses or the context ends, to exercise timeouts.
	Delay time.Duration
}

var _ ports.GuardianNotifier = (*MockGuardianNotifier)(nil)

func NewMockGuardianNotifier() *MockGuardianNotifier {
	return &MockGuardianNotifier{}
}

func (m *MockGuardianNotifier) NotifyGuardian(ctx context.Context, mail domain.GuardianMail) error {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.NotifyError != nil {
		return m.NotifyError
	}
	m.Sent = append(m.Sent, mail)
	return nil
}

func (m *MockGuardianNotifier) SentMail() []domain.GuardianMail {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.GuardianMail, len(m.Sent))
	copy(out, m.Sent)
	return out
}

// MockIncidentEventPublisher records relayed events.
type MockIncidentEventPublisher struct {
	mu sync.RWMutex

	PublishedEvents  []domain.IncidentCreatedEvent
	PublishError     error
	PublishCallCount int
}

var _ ports.IncidentEventPublisher = (*MockIncidentEventPublisher)(nil)

func NewMockIncidentEventPublisher() *MockIncidentEventPublisher {
	return &MockIncidentEventPublisher{PublishedEvents: make([]domain.IncidentCreatedEvent, 0)}
}

func (m *MockIncidentEventPublisher) PublishIncidentCreated(ctx context.Context, evt domain.IncidentCreatedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PublishCallCount++
	if m.PublishError != nil {
		return m.PublishError
	}
	m.PublishedEvents = append(m.PublishedEvents, evt)
	return nil
}

func (m *MockIncidentEventPublisher) GetPublishedEvents() []domain.IncidentCreatedEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.IncidentCreatedEvent, len(m.PublishedEvents))
	copy(out, m.PublishedEvents)
	return out
}

// MockRevocationStore answers from a fixed set of revoked raw credentials.
type MockRevocationStore struct {
	mu sync.RWMutex

	revoked map[string]struct{}
	Err     error
	Calls   int
}

var _ ports.RevocationStore = (*MockRevocationStore)(nil)

func NewMockRevocationStore() *MockRevocationStore {
	return &MockRevocationStore{revoked: make(map[string]struct{})}
}

func (m *MockRevocationStore) Revoke(rawToken string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[rawToken] = struct{}{}
}

func (m *MockRevocationStore) IsRevoked(ctx context.Context, rawToken string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return false, m.Err
	}
	_, ok := m.revoked[rawToken]
	return ok, nil
}
