package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"

	"github.com/AchilleasB/kinderopvang/incident-service/internal/config"
)

const (
	reconnectMinBackoff = time.Second
	reconnectMaxBackoff = 30 * time.Second
)

// Publisher sends a JSON body to a named queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, body []byte) error
}

type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	NotifyClose(c chan *amqp.Error) chan *amqp.Error
	Close() error
}

type amqpConnection interface {
	openChannel() (amqpChannel, error)
	NotifyClose(c chan *amqp.Error) chan *amqp.Error
	IsClosed() bool
	Close() error
}

type dialFunc func(url string) (amqpConnection, error)

type liveConnection struct {
	*amqp.Connection
}

func (c liveConnection) openChannel() (amqpChannel, error) {
	ch, err := c.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func dialAMQP(url string) (amqpConnection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return liveConnection{conn}, nil
}

// RabbitMQBroker publishes persistent messages to durable queues on the default exchange.
// A lost connection or channel is redialed in the background with exponential backoff;
// publishes fail with ErrBrokerUnavailable until it is back.
type RabbitMQBroker struct {
	url        string
	queues     []string
	dial       dialFunc
	minBackoff time.Duration
	cb         *gobreaker.CircuitBreaker
	logger     *slog.Logger

	mu   sync.RWMutex
	conn amqpConnection
	ch   amqpChannel

	done      chan struct{}
	closeOnce sync.Once
}

var _ Publisher = (*RabbitMQBroker)(nil)

// NewRabbitMQBroker dials amqpURL and declares every queue the caller will publish to.
func NewRabbitMQBroker(amqpURL string, queues ...string) (*RabbitMQBroker, error) {
	return newBroker(amqpURL, queues, dialAMQP, reconnectMinBackoff)
}

func newBroker(url string, queues []string, dial dialFunc, minBackoff time.Duration) (*RabbitMQBroker, error) {
	b := &RabbitMQBroker{
		url:        url,
		queues:     queues,
		dial:       dial,
		minBackoff: minBackoff,
		cb:         config.NewCircuitBreaker(config.BreakerRabbitMQ),
		logger:     slog.Default().With("component", "rabbitmq"),
		done:       make(chan struct{}),
	}

	conn, ch, err := b.connect()
	if err != nil {
		return nil, err
	}
	b.conn, b.ch = conn, ch

	go b.watch(conn, ch)
	return b, nil
}

func (b *RabbitMQBroker) connect() (amqpConnection, amqpChannel, error) {
	conn, err := b.dial(b.url)
	if err != nil {
		return nil, nil, err
	}

	ch, err := conn.openChannel()
	if err != nil {
		conn.Close()
		return nil, nil, err
	}

	for _, queue := range b.queues {
		// Declare the queue (idempotent)
		_, err = ch.QueueDeclare(
			queue,
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			nil,   // args
		)
		if err != nil {
			ch.Close()
			conn.Close()
			return nil, nil, err
		}
	}
	return conn, ch, nil
}

// watch waits for the current connection or channel to close and redials until it
// succeeds or the broker is closed.
func (b *RabbitMQBroker) watch(conn amqpConnection, ch amqpChannel) {
	for {
		connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
		chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))

		var reason *amqp.Error
		select {
		case <-b.done:
			return
		case reason = <-connClosed:
		case reason = <-chClosed:
		}
		if b.isClosed() {
			return
		}

		if reason != nil {
			b.logger.Warn("rabbitmq connection lost, reconnecting", "error", reason.Error())
		} else {
			b.logger.Warn("rabbitmq connection lost, reconnecting")
		}
		b.mu.Lock()
		b.ch = nil
		b.mu.Unlock()
		conn.Close()

		var ok bool
		conn, ch, ok = b.redial()
		if !ok {
			return
		}
	}
}

func (b *RabbitMQBroker) redial() (amqpConnection, amqpChannel, bool) {
	backoff := b.minBackoff
	for {
		select {
		case <-b.done:
			return nil, nil, false
		case <-time.After(backoff):
		}

		conn, ch, err := b.connect()
		if err != nil {
			b.logger.Warn("rabbitmq reconnect failed", "error", err, "retry_in", backoff)
			backoff = min(backoff*2, reconnectMaxBackoff)
			continue
		}

		b.mu.Lock()
		if b.isClosed() {
			b.mu.Unlock()
			ch.Close()
			conn.Close()
			return nil, nil, false
		}
		b.conn, b.ch = conn, ch
		b.mu.Unlock()

		b.logger.Info("rabbitmq connection restored")
		return conn, ch, true
	}
}

func (b *RabbitMQBroker) isClosed() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

func (b *RabbitMQBroker) Publish(ctx context.Context, queue string, body []byte) error {
	// Respect context deadline
	if deadline, ok := ctx.Deadline(); ok {
		if time.Until(deadline) <= 0 {
			return ctx.Err()
		}
	}

	b.mu.RLock()
	ch := b.ch
	b.mu.RUnlock()
	if ch == nil {
		return fmt.Errorf("%w: reconnecting", ErrBrokerUnavailable)
	}

	_, err := b.cb.Execute(func() (interface{}, error) {
		err := ch.PublishWithContext(
			ctx,
			"",    // exchange (default)
			queue, // routing key == queue name
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				Timestamp:    time.Now().UTC(),
				Body:         body,
			},
		)
		return nil, err
	})
	return err
}

// IsOpen reports whether a usable connection and channel are in place.
func (b *RabbitMQBroker) IsOpen() bool {
	if b == nil {
		return false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.conn != nil && b.ch != nil && !b.conn.IsClosed()
}

func (b *RabbitMQBroker) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.done)

		b.mu.Lock()
		defer b.mu.Unlock()
		if b.ch != nil {
			err = b.ch.Close()
			b.ch = nil
		}
		if b.conn != nil {
			if cerr := b.conn.Close(); err == nil {
				err = cerr
			}
		}
	})
	return err
}
