package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Flowline/internal/domain"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeRunStarted  MessageType = "run.started"
	MessageTypeRunFinished MessageType = "run.finished"
	MessageTypeLogEntry    MessageType = "log.entry"
)

// Publisher зеркалирует события выполнения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// RunStartedPayload — payload события о начале запуска.
type RunStartedPayload struct {
	RunID uuid.UUID `json:"run_id"`
	Flow  string    `json:"flow"`
	Nodes int       `json:"nodes"`
}

// RunFinishedPayload — payload события о завершении запуска.
type RunFinishedPayload struct {
	RunID      uuid.UUID `json:"run_id"`
	Flow       string    `json:"flow"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Halted     bool      `json:"halted"`
	DurationMs int64     `json:"duration_ms"`
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishRunStarted публикует событие о начале запуска флоу.
func (p *Publisher) PublishRunStarted(ctx context.Context, payload RunStartedPayload) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeRunStarted,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeRuns, RoutingKeyStarted, msg)
}

// PublishRunFinished публикует событие о завершении запуска флоу.
func (p *Publisher) PublishRunFinished(ctx context.Context, payload RunFinishedPayload) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeRunFinished,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeRuns, RoutingKeyFinished, msg)
}

// PublishLogEntry зеркалирует лог-запись выполнения в поток logs.stream.
// Потребитель: flowline tail.
func (p *Publisher) PublishLogEntry(ctx context.Context, entry *domain.LogEntry) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeLogEntry,
		Payload:   entry,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeLogs, RoutingKeyEntry, msg)
}
