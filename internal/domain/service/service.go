package service

import (
	"context"

	"SPPredict/internal/domain/models"
)

// IndicatorCalculator attaches technical indicators to a run of bars.
type IndicatorCalculator interface {
	Calculate(bars []models.Bar) models.Series
}

// FeatureBuilder turns a series into the fixed-order model feature vector.
type FeatureBuilder interface {
	Build(s models.Series) ([]float64, error)
	Names() []string
	Summary(s models.Series) (models.TechnicalSummary, error)
}

// Predictor scores a feature vector with the trained model.
type Predictor interface {
	Predict(ctx context.Context, features []float64) (models.PredictionResult, error)
	Status() models.ModelStatus
}

// MarketData is the cached view of the upstream provider.
type MarketData interface {
	CurrentQuote(ctx context.Context) (models.Quote, error)
	HistoricalSeries(ctx context.Context, period string) (models.Series, error)
}
