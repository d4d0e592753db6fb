package events

import (
	"context"
	"encoding/json"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"log/slog"
	"strings"
	"time"
)

const (
	defaultBatchSize    = 100
	defaultBatchTimeout = 100 * time.Millisecond
)

// PaymentEvent is published after the billing system accepts a payment.
type PaymentEvent struct {
	ID            uuid.UUID `json:"id"`
	CheckoutID    string    `json:"checkoutId"`
	TransactionID string    `json:"transactionId"`
	ServiceID     int       `json:"serviceId"`
	CategoryID    int       `json:"categoryId"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency"`
	OccurredAt    time.Time `json:"occurredAt"`
}

type Publisher interface {
	Publish(ctx context.Context, event PaymentEvent) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter builds a synchronous writer for a comma-separated broker list.
func NewWriter(brokers, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(strings.Split(brokers, ",")...),
		Topic:                  topic,
		Balancer:               &kafka.ReferenceHash{},
		BatchSize:              defaultBatchSize,
		BatchTimeout:           defaultBatchTimeout,
		RequiredAcks:           kafka.RequireAll,
		Async:                  false,
		AllowAutoTopicCreation: false,
	}
}

func NewKafkaPublisher(writer messageWriter, logger *slog.Logger) *KafkaPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaPublisher{writer: writer, logger: logger}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event PaymentEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	// transaction id as key keeps events of one payment on one partition
	msg := kafka.Message{
		Key:   []byte(event.TransactionID),
		Value: value,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.ErrorContext(ctx, "Error writing payment event to Kafka", "transactionId", event.TransactionID, "error", err)
		return err
	}

	p.logger.DebugContext(ctx, "Payment event published", "transactionId", event.TransactionID)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops every event. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, PaymentEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
