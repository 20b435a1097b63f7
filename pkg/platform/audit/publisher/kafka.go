package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"medtrace/pkg/platform/audit"
)

// ErrBufferFull is returned when a non-blocking publisher has to drop an
// event instead of stalling a custody action.
var ErrBufferFull = errors.New("audit buffer full")

// Kafka publishes custody events to a Kafka topic. Records are keyed by
// transfer id so all events for one transfer land on one partition in order.
type Kafka struct {
	client *kgo.Client
	topic  string
}

// NewKafka connects to the brokers and ensures the audit topic exists.
func NewKafka(ctx context.Context, brokers []string, topic string) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	admin := kadm.NewClient(client)
	resp, err := admin.CreateTopics(ctx, 3, 1, nil, topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ensure audit topic: %w", err)
	}
	for _, res := range resp {
		// Topic already existing is the normal path on restart.
		if res.Err != nil && !errors.Is(res.Err, kerr.TopicAlreadyExists) {
			client.Close()
			return nil, fmt.Errorf("create audit topic %s: %w", res.Topic, res.Err)
		}
	}

	return &Kafka{client: client, topic: topic}, nil
}

// Publish produces one JSON-encoded event and waits for the broker ack so
// callers can log delivery failures.
func (k *Kafka) Publish(ctx context.Context, event audit.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(event.TransferID),
		Value: value,
	}
	if err := k.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Close flushes buffered records and tears down the client.
func (k *Kafka) Close() {
	k.client.Close()
}
