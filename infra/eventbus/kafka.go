package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/amirasaad/btcvest/pkg/eventbus"
	"github.com/segmentio/kafka-go"
)

// DefaultKafkaTopic carries every ledger event.
const DefaultKafkaTopic = "btcvest.ledger.events"

// KafkaConfig holds configuration for the Kafka event bus.
type KafkaConfig struct {
	Brokers string
	Topic   string
	GroupID string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaEventBus publishes envelopes to a single topic keyed by account, so
// one account's events stay ordered within a partition.
type KafkaEventBus struct {
	brokers []string
	topic   string
	groupID string
	writer  messageWriter
	logger  *slog.Logger
	now     func() time.Time
}

// NewWithKafka creates a new Kafka-backed event bus.
// cfg.Brokers is a comma-separated list (e.g. "localhost:9092,localhost:9093").
func NewWithKafka(cfg KafkaConfig, logger *slog.Logger) (*KafkaEventBus, error) {
	brokers := parseBrokers(cfg.Brokers)
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka event bus: brokers are required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		cfg.Topic = DefaultKafkaTopic
	}
	if cfg.GroupID == "" {
		cfg.GroupID = "btcvest"
	}
	if logger == nil {
		logger = slog.Default()
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  cfg.Topic,
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
		Balancer:               &kafka.Hash{},
	}
	logger.Info("Kafka event bus initialized", "brokers", brokers, "topic", cfg.Topic)
	return newKafkaEventBus(brokers, cfg.Topic, cfg.GroupID, writer, logger), nil
}

func newKafkaEventBus(brokers []string, topic, groupID string, w messageWriter, logger *slog.Logger) *KafkaEventBus {
	return &KafkaEventBus{
		brokers: brokers,
		topic:   topic,
		groupID: groupID,
		writer:  w,
		logger:  logger.With("bus", "kafka"),
		now:     time.Now,
	}
}

// Publish writes the event to Kafka.
func (b *KafkaEventBus) Publish(ctx context.Context, event eventbus.Event) error {
	value, err := buildEnvelope(event, b.now().UTC())
	if err != nil {
		return fmt.Errorf("kafka event bus: encode %s: %w", event.Type(), err)
	}
	msg := kafka.Message{
		Key:   []byte(event.Key()),
		Value: value,
		Time:  b.now(),
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type())},
		},
	}
	if err := b.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka event bus: publish failed: %w", err)
	}
	b.logger.Debug("Event published", "event_type", event.Type(), "key", event.Key())
	return nil
}

// Consume reads envelopes from the topic until ctx is done, committing each
// message after handler returns. Malformed messages are logged and skipped.
func (b *KafkaEventBus) Consume(ctx context.Context, handler func(context.Context, Envelope) error) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  b.brokers,
		GroupID:  b.groupID,
		Topic:    b.topic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})
	defer reader.Close() //nolint:errcheck

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("kafka event bus: fetch: %w", err)
		}
		var env Envelope
		if err := json.Unmarshal(msg.Value, &env); err != nil {
			b.logger.Error("failed to unmarshal envelope", "error", err, "offset", msg.Offset)
		} else if err := handler(ctx, env); err != nil {
			b.logger.Error("handler error", "error", err, "event_type", env.Type, "offset", msg.Offset)
		}
		if err := reader.CommitMessages(ctx, msg); err != nil {
			b.logger.Error("kafka commit error", "error", err, "offset", msg.Offset)
		}
	}
}

// Close flushes and closes the writer.
func (b *KafkaEventBus) Close() error {
	if b == nil || b.writer == nil {
		return nil
	}
	return b.writer.Close()
}

func parseBrokers(brokers string) []string {
	parts := strings.Split(brokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

var _ eventbus.Bus = (*KafkaEventBus)(nil)
