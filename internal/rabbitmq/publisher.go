package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"chat-core/internal/logger"
	"chat-core/internal/observability"
	"chat-core/internal/telemetry"
)

// Publisher publishes domain and audit events to a topic exchange.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error
	Close() error
}

// NewPublisher dials amqpURL and declares exchange. When AMQP is disabled or the
// broker cannot be reached it returns a noop publisher; events are best-effort and
// never block message writes.
func NewPublisher(amqpURL, exchange string) Publisher {
	if amqpURL == "" {
		return fallback("empty amqp url")
	}
	p, err := dial(amqpURL, exchange)
	if err != nil {
		return fallback(err.Error())
	}
	logger.Info("rabbitmq connected", zap.String("exchange", exchange))
	return p
}

func fallback(reason string) Publisher {
	logger.Warn("rabbitmq disabled, using noop", zap.String("reason", reason))
	return noopPublisher{reason: reason}
}

func dial(amqpURL, exchange string) (p *amqpPublisher, err error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	defer func() {
		if err != nil {
			_ = conn.Close()
		}
	}()

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	// durable topic exchange; routing keys are chat.*, ws_events.* and audit.*
	if err = ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &amqpPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

type amqpPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func (p *amqpPublisher) Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s: %w", routingKey, err)
	}

	err = p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Type:         eventType(event),
		AppId:        appID,
		Timestamp:    time.Now(),
		Headers:      headerTable(headers),
		Body:         body,
	})
	if err != nil {
		logger.Warn("rabbitmq publish failed", zap.String("routing_key", routingKey), zap.Error(err))
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

func headerTable(headers map[string]string) amqp.Table {
	if len(headers) == 0 {
		return nil
	}
	table := make(amqp.Table, len(headers))
	for key, value := range headers {
		if value != "" {
			table[key] = value
		}
	}
	return table
}

func (p *amqpPublisher) Close() error {
	_ = p.ch.Close()
	return p.conn.Close()
}

const appID = "chat-core"

// eventType names the envelope kinds this service emits; other payloads are untyped.
func eventType(event any) string {
	switch e := event.(type) {
	case telemetry.AuditEnvelope:
		return e.EventType
	case observability.EventEnvelope:
		return e.EventType + "." + e.EventName
	default:
		return ""
	}
}

type noopPublisher struct {
	reason string
}

func (noopPublisher) Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error {
	logger.Debug("rabbitmq noop publish",
		zap.String("routing_key", routingKey),
		zap.String("type", eventType(event)),
		zap.String("request_id", headers["x-request-id"]))
	return nil
}

func (noopPublisher) Close() error {
	return nil
}

// PublisherMode reports the publisher mode for logging.
func PublisherMode(p Publisher) string {
	switch p.(type) {
	case *amqpPublisher:
		return "amqp"
	case noopPublisher:
		return "noop"
	default:
		return "unknown"
	}
}

// PublisherNoopReason explains why events are being dropped, if they are.
func PublisherNoopReason(p Publisher) string {
	if noop, ok := p.(noopPublisher); ok {
		return noop.reason
	}
	return ""
}
