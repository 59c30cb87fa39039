// Package events publishes analysis lifecycle events to Kafka.
//
// Events are notifications for downstream consumers (progress tracking,
// usage accounting). Delivery is at-least-once and publishing failures never
// fail the request that produced the event.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/algoprep/algoprep-api/internal/domain"
)

// TopicAnalysisCompleted carries one record per successful analysis write.
const TopicAnalysisCompleted = "analysis.completed"

// KafkaPublisher implements domain.EventPublisher on franz-go.
type KafkaPublisher struct {
	client *kgo.Client
}

// NewKafkaPublisher connects to the given brokers.
func NewKafkaPublisher(brokers []string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no seed brokers provided")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.RequestRetries(5),
		kgo.ProducerBatchMaxBytes(1_000_000),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	slog.Info("kafka publisher created", slog.Any("brokers", brokers))
	return &KafkaPublisher{client: client}, nil
}

// PublishAnalysisCompleted produces one record keyed by owner so a consumer
// sees each user's events in order.
func (p *KafkaPublisher) PublishAnalysisCompleted(ctx domain.Context, evt domain.AnalysisCompletedEvent) error {
	b, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	record := &kgo.Record{
		Topic: TopicAnalysisCompleted,
		Key:   []byte(evt.OwnerID),
		Value: b,
		Headers: []kgo.RecordHeader{
			{Key: "task", Value: []byte(evt.Task)},
		},
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce %s: %w", TopicAnalysisCompleted, err)
	}
	return nil
}

// Close flushes buffered records and releases the connection.
func (p *KafkaPublisher) Close() error {
	p.client.Close()
	return nil
}

// NoopPublisher drops events. Used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishAnalysisCompleted(domain.Context, domain.AnalysisCompletedEvent) error {
	return nil
}
