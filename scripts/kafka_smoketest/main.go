package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	infra_eventbus "github.com/amirasaad/btcvest/infra/eventbus"
	"github.com/amirasaad/btcvest/pkg/domain/events"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

// RunSmokeTest publishes a ledger event through the Kafka event bus and
// waits until the same envelope is consumed back from the topic.
func RunSmokeTest() error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	brokers := strings.TrimSpace(os.Getenv("BROKERS"))
	if brokers == "" {
		brokers = "localhost:9093,localhost:9092"
	}
	topic := strings.TrimSpace(os.Getenv("TOPIC"))
	if topic == "" {
		topic = infra_eventbus.DefaultKafkaTopic
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := ensureTopic(ctx, strings.Split(brokers, ",")[0], topic); err != nil {
		logger.Error("create topic failed", "topic", topic, "error", err)
		return err
	}

	bus, err := infra_eventbus.NewWithKafka(infra_eventbus.KafkaConfig{
		Brokers: brokers,
		Topic:   topic,
		// A fresh group starts from the first offset.
		GroupID: "btcvest-smoketest-" + uuid.NewString(),
	}, logger)
	if err != nil {
		return err
	}
	defer func() { _ = bus.Close() }()

	probe := events.TransactionRecorded{
		TransactionID: uuid.New(),
		AccountID:     uuid.New(),
		Kind:          "deposit",
		CashDelta:     decimal.NewFromInt(1),
		Actor:         "smoketest",
		OccurredAt:    time.Now().UTC(),
	}
	if err := bus.Publish(ctx, probe); err != nil {
		logger.Error("publish failed", "error", err)
		return err
	}
	logger.Info("produced", "transaction_id", probe.TransactionID)

	readCtx, stop := context.WithCancel(ctx)
	defer stop()
	found := false
	err = bus.Consume(readCtx, func(_ context.Context, env infra_eventbus.Envelope) error {
		if env.Type != events.TypeTransactionRecorded {
			return nil
		}
		var got events.TransactionRecorded
		if err := json.Unmarshal(env.Payload, &got); err != nil {
			return err
		}
		if got.TransactionID == probe.TransactionID {
			logger.Info("consumed", "transaction_id", got.TransactionID)
			found = true
			stop()
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !found {
		return errors.New("probe event was not consumed before the deadline")
	}

	logger.Info("kafka smoke test passed")
	return nil
}

func ensureTopic(ctx context.Context, broker, topic string) error {
	dialer := &kafka.Dialer{Timeout: 5 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", broker)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()
	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil && !strings.Contains(strings.ToLower(err.Error()), "already exists") {
		return err
	}
	return nil
}

// main runs the smoke test and exits non-zero on failure.
func main() {
	if err := RunSmokeTest(); err != nil {
		os.Exit(1)
	}
}
