package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// EventPublisher publishes events to a RabbitMQ topic exchange, using the
// event type as routing key. With an empty URI it only logs.
type EventPublisher struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	enabled      bool
	logger       *zap.Logger
	mu           sync.Mutex
}

var _ Publisher = (*EventPublisher)(nil)

func NewEventPublisher(rabbitURI, exchangeName string, logger *zap.Logger) (*EventPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rabbitURI == "" {
		logger.Info("AMQP URL is empty, event publishing is disabled")
		return &EventPublisher{enabled: false, logger: logger}, nil
	}

	conn, err := amqp091.Dial(rabbitURI)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchangeName, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &EventPublisher{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		enabled:      true,
		logger:       logger,
	}, nil
}

func (p *EventPublisher) Publish(ctx context.Context, event Event) error {
	if !p.enabled {
		p.logger.Debug("event publishing disabled, skipping",
			zap.String("type", string(event.Type)),
			zap.String("session", event.SessionID),
		)
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// amqp channels are not safe for concurrent publishing
	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.PublishWithContext(
		pubCtx,
		p.exchangeName,     // exchange
		string(event.Type), // routing key
		false,              // mandatory
		false,              // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    event.ID,
			Timestamp:    event.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("published event", zap.String("type", string(event.Type)), zap.String("session", event.SessionID))
	return nil
}

func (p *EventPublisher) Close() error {
	if !p.enabled {
		return nil
	}
	if err := p.channel.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}
