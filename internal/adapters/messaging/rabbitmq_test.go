package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	mu        sync.Mutex
	declared  []string
	published []string
	notify    chan *amqp.Error
}

func (c *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.declared = append(c.declared, name)
	return amqp.Queue{Name: name}, nil
}

func (c *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, key)
	return nil
}

func (c *fakeChannel) NotifyClose(ch chan *amqp.Error) chan *amqp.Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notify = ch
	return ch
}

func (c *fakeChannel) Close() error { return nil }

func (c *fakeChannel) publishedKeys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.published...)
}

type fakeConnection struct {
	mu     sync.Mutex
	ch     *fakeChannel
	notify chan *amqp.Error
	closed bool
}

func (c *fakeConnection) openChannel() (amqpChannel, error) { return c.ch, nil }

func (c *fakeConnection) NotifyClose(ch chan *amqp.Error) chan *amqp.Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notify = ch
	return ch
}

func (c *fakeConnection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConnection) watched() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notify != nil
}

// drop simulates the server closing the connection.
func (c *fakeConnection) drop() {
	c.mu.Lock()
	c.closed = true
	notify := c.notify
	c.mu.Unlock()
	notify <- &amqp.Error{Code: amqp.ConnectionForced, Reason: "CONNECTION_FORCED"}
}

type fakeDialer struct {
	mu       sync.Mutex
	conns    []*fakeConnection
	failures int
}

func (d *fakeDialer) dial(string) (amqpConnection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failures > 0 {
		d.failures--
		return nil, errors.New("connection refused")
	}
	c := &fakeConnection{ch: &fakeChannel{}}
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) setFailures(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures = n
}

func (d *fakeDialer) dialed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

func (d *fakeDialer) conn(i int) *fakeConnection {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[i]
}

func TestRabbitMQBroker_RedialsAfterConnectionLoss(t *testing.T) {
	d := &fakeDialer{}
	broker, err := newBroker("amqp://test", []string{"guardian-mail"}, d.dial, time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { broker.Close() })

	ctx := context.Background()
	require.NoError(t, broker.Publish(ctx, "guardian-mail", []byte(`{}`)))
	assert.True(t, broker.IsOpen())

	first := d.conn(0)
	require.Eventually(t, first.watched, time.Second, time.Millisecond)
	d.setFailures(1000)
	first.drop()

	require.Eventually(t, func() bool {
		return errors.Is(broker.Publish(ctx, "guardian-mail", []byte(`{}`)), ErrBrokerUnavailable)
	}, time.Second, time.Millisecond)
	assert.False(t, broker.IsOpen())

	d.setFailures(0)
	require.Eventually(t, broker.IsOpen, 5*time.Second, time.Millisecond)
	require.Equal(t, 2, d.dialed())

	second := d.conn(1)
	require.NoError(t, broker.Publish(ctx, "guardian-mail", []byte(`{}`)))
	assert.Equal(t, []string{"guardian-mail"}, second.ch.publishedKeys())
	assert.Equal(t, []string{"guardian-mail"}, second.ch.declared)
}

func TestRabbitMQBroker_CloseStopsRedial(t *testing.T) {
	d := &fakeDialer{}
	broker, err := newBroker("amqp://test", []string{"incident-events"}, d.dial, time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, broker.Close())
	assert.False(t, broker.IsOpen())
	assert.True(t, d.conn(0).IsClosed())
	assert.NoError(t, broker.Close())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, d.dialed())
}

func TestRabbitMQBroker_InitialDialFailure(t *testing.T) {
	d := &fakeDialer{failures: 1}
	_, err := newBroker("amqp://test", nil, d.dial, time.Millisecond)
	assert.Error(t, err)
}
