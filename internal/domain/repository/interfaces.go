package repository

import (
	"context"
	"time"

	"SPPredict/internal/domain/models"
)

// MarketDataProvider returns daily bars for a symbol in [start, end].
type MarketDataProvider interface {
	Name() string
	Bars(ctx context.Context, symbol string, start, end time.Time) ([]models.Bar, error)
}

// ObjectStore reads whole objects, e.g. a serialized model.
type ObjectStore interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
}

// PredictionPublisher ships prediction events to downstream consumers.
type PredictionPublisher interface {
	Publish(ctx context.Context, ev *models.PredictionEvent) error
	Close() error
}

// PredictionHistory persists served predictions.
type PredictionHistory interface {
	Record(ctx context.Context, ev *models.PredictionEvent) error
	Recent(ctx context.Context, symbol string, limit int) ([]models.PredictionEvent, error)
	Close() error
}

type Metrics interface {
	RecordFetch(kind, result string, seconds float64)
	RecordCache(kind string, hit bool)
	RecordModelLoad(result string, seconds float64)
	RecordPrediction(result string, seconds float64)
	RecordScoring(result string, seconds float64)
	RecordLastPrediction(symbol string, value float64)
	RecordError(kind string)
}
