package repository

import (
	"context"
	"time"

	"SPPredict/internal/domain/models"
	pkgkafka "SPPredict/pkg/kafka"
)

// EventPredictionCreated is the envelope type of every published prediction.
const EventPredictionCreated = "prediction.created"

type predictionEnvelope struct {
	Type       string                  `json:"type"`
	OccurredAt time.Time               `json:"occurred_at"`
	Data       *models.PredictionEvent `json:"data"`
}

// KafkaPredictionPublisher implements PredictionPublisher for Kafka. Messages are keyed by
// symbol so one index always lands on one partition.
type KafkaPredictionPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaPredictionPublisher(producer *pkgkafka.Producer, topic string) *KafkaPredictionPublisher {
	return &KafkaPredictionPublisher{producer: producer, topic: topic}
}

func (p *KafkaPredictionPublisher) Publish(ctx context.Context, ev *models.PredictionEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.Symbol), predictionEnvelope{
		Type:       EventPredictionCreated,
		OccurredAt: ev.CreatedAt,
		Data:       ev,
	})
}

// Close is a no-op: the producer is shared with the log collector and closed by its owner.
func (p *KafkaPredictionPublisher) Close() error { return nil }

// NoopPublisher is used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, *models.PredictionEvent) error { return nil }
func (NoopPublisher) Close() error                                           { return nil }
