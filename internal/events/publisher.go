package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/taskbridge/todoist-mcp/pkg/logging"
)

// Routing keys for account lifecycle events.
const (
	UserLinked          = "user.linked"
	UserDeleted         = "user.deleted"
	SubscriptionUpdated = "subscription.updated"
)

const exchangeName = "todoist-mcp.events"

// Publisher emits fire-and-forget lifecycle notifications. Publishing is
// best-effort: a broker outage must never fail the operation that triggered
// the event.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{})
	Close() error
}

// NewPublisher connects to RabbitMQ when amqpURL is set and returns a no-op
// publisher otherwise.
func NewPublisher(amqpURL string) (Publisher, error) {
	if amqpURL == "" {
		return noopPublisher{}, nil
	}

	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to AMQP broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening AMQP channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchangeName, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declaring exchange: %w", err)
	}

	logging.Info("Events", "publishing lifecycle events to %s", exchangeName)
	return &amqpPublisher{conn: conn, ch: ch}, nil
}

type amqpPublisher struct {
	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func (p *amqpPublisher) Publish(ctx context.Context, routingKey string, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Events", err, "marshaling %s event", routingKey)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx, exchangeName, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   time.Now(),
		Body:        body,
	})
	if err != nil {
		logging.Error("Events", err, "publishing %s event", routingKey)
	}
}

func (p *amqpPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.ch.Close()
	return p.conn.Close()
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, interface{}) {}
func (noopPublisher) Close() error                                 { return nil }
