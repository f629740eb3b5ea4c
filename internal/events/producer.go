package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"admin-dashboard/internal/models"
)

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Event records one successful mutation made through the dashboard.
type Event struct {
	Resource string        `json:"resource"`
	Action   string        `json:"action"`
	ID       string        `json:"id,omitempty"`
	Fields   models.Fields `json:"fields,omitempty"`
	At       time.Time     `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// Producer publishes events to Kafka, one topic per resource and action,
// e.g. "dashboard.users.created".
type Producer struct {
	producer sarama.SyncProducer
	prefix   string
	logger   *slog.Logger
}

func NewConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.ClientID = "admin-dashboard"
	return config
}

func NewProducer(brokers []string, prefix string, logger *slog.Logger) (*Producer, error) {
	producer, err := sarama.NewSyncProducer(brokers, NewConfig())
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return NewProducerFrom(producer, prefix, logger), nil
}

func NewProducerFrom(producer sarama.SyncProducer, prefix string, logger *slog.Logger) *Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Producer{producer: producer, prefix: prefix, logger: logger}
}

func (p *Producer) Topic(ev Event) string {
	if p.prefix == "" {
		return ev.Resource + "." + ev.Action
	}
	return p.prefix + "." + ev.Resource + "." + ev.Action
}

func (p *Producer) Publish(ctx context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     p.Topic(ev),
		Value:     sarama.ByteEncoder(data),
		Timestamp: ev.At,
	}
	if ev.ID != "" {
		msg.Key = sarama.StringEncoder(ev.ID)
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("publish %s: %w", msg.Topic, err)
	}
	p.logger.DebugContext(ctx, "Published event", "topic", msg.Topic, "partition", partition, "offset", offset)
	return nil
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
