package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/domain"
	"github.com/AchilleasB/kinderopvang/incident-service/internal/mocks"
)

func incidentRecord(t *testing.T, id string) outboxRecord {
	t.Helper()
	payload, err := json.Marshal(domain.IncidentCreatedEvent{
		IncidentID:   42,
		ChildID:      10,
		IncidentType: domain.IncidentHealth,
		Target:       domain.TargetParent,
		ReportedBy:   1,
		ReporterRole: domain.RoleManager,
		CreatedAt:    time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return outboxRecord{ID: id, EventType: domain.IncidentCreatedEventType, Payload: payload}
}

func TestPublish_IncidentCreated(t *testing.T) {
	pub := mocks.NewMockIncidentEventPublisher()
	r := NewRelay(nil, "", pub, nil)

	require.NoError(t, r.publish(context.Background(), incidentRecord(t, "evt-1")))

	events := pub.GetPublishedEvents()
	require.Len(t, events, 1)
	assert.Equal(t, int64(42), events[0].IncidentID)
	assert.Equal(t, domain.TargetParent, events[0].Target)
}

func TestPublish_BrokerFailureKeepsEventPending(t *testing.T) {
	pub := mocks.NewMockIncidentEventPublisher()
	pub.PublishError = errors.New("broker down")
	r := NewRelay(nil, "", pub, nil)

	err := r.publish(context.Background(), incidentRecord(t, "evt-1"))
	assert.Error(t, err, "an error leaves processed_at unset so the event is retried")
	assert.Equal(t, 1, pub.PublishCallCount)
}

func TestPublish_PoisonRecordsAreSkipped(t *testing.T) {
	pub := mocks.NewMockIncidentEventPublisher()
	r := NewRelay(nil, "", pub, nil)

	assert.NoError(t, r.publish(context.Background(), outboxRecord{ID: "a", EventType: "baby.created", Payload: []byte(`{}`)}))
	assert.NoError(t, r.publish(context.Background(), outboxRecord{ID: "b", EventType: domain.IncidentCreatedEventType, Payload: []byte(`{not json`)}))
	assert.Zero(t, pub.PublishCallCount)
}

func TestHealthSignals(t *testing.T) {
	r := NewRelay(nil, "", mocks.NewMockIncidentEventPublisher(), nil)
	assert.True(t, r.IsHealthy())
	assert.True(t, r.IsReady())

	r.lastProcessed.Store(time.Now().Add(-healthCheckStaleThreshold - time.Minute).UnixNano())
	assert.True(t, r.IsHealthy())
	assert.False(t, r.IsReady(), "a stuck relay is not ready")

	r.markProcessed()
	assert.True(t, r.IsReady())
}
