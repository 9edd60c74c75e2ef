package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"SPPredict/internal/domain/models"
	domrepo "SPPredict/internal/domain/repository"
	domsvc "SPPredict/internal/domain/service"
	applogger "SPPredict/pkg/logger"
	"SPPredict/pkg/metrics"

	"github.com/google/uuid"
)

const (
	bullishAbove = 0.6
	bearishBelow = 0.4
	timeframe    = "5 days"
	emitTimeout  = 5 * time.Second
)

type PredictionConfig struct {
	Symbol        string
	Timeout       time.Duration
	FeaturePeriod string
	SummaryPeriod string
}

// PredictionUseCase fetches market data, scores it and decorates the result for the frontend.
type PredictionUseCase struct {
	market    domsvc.MarketData
	features  domsvc.FeatureBuilder
	predictor domsvc.Predictor
	publisher domrepo.PredictionPublisher
	history   domrepo.PredictionHistory
	cfg       PredictionConfig

	metrics domrepo.Metrics
	logger  *applogger.Logger
	now     func() time.Time
	newID   func() string
}

type PredictionOption func(*PredictionUseCase)

func WithPredictionMetrics(m domrepo.Metrics) PredictionOption {
	return func(uc *PredictionUseCase) {
		if m != nil {
			uc.metrics = m
		}
	}
}

func WithPredictionLogger(l *applogger.Logger) PredictionOption {
	return func(uc *PredictionUseCase) {
		if l != nil {
			uc.logger = l
		}
	}
}

func WithPredictionClock(now func() time.Time) PredictionOption {
	return func(uc *PredictionUseCase) { uc.now = now }
}

func WithIDGenerator(f func() string) PredictionOption {
	return func(uc *PredictionUseCase) { uc.newID = f }
}

func NewPredictionUseCase(
	market domsvc.MarketData,
	features domsvc.FeatureBuilder,
	predictor domsvc.Predictor,
	publisher domrepo.PredictionPublisher,
	history domrepo.PredictionHistory,
	cfg PredictionConfig,
	opts ...PredictionOption,
) *PredictionUseCase {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.FeaturePeriod == "" {
		cfg.FeaturePeriod = "6mo"
	}
	if cfg.SummaryPeriod == "" {
		cfg.SummaryPeriod = "3mo"
	}
	uc := &PredictionUseCase{
		market:    market,
		features:  features,
		predictor: predictor,
		publisher: publisher,
		history:   history,
		cfg:       cfg,
		metrics:   metrics.Nop{},
		logger:    applogger.NewNop(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(uc)
	}
	uc.logger = uc.logger.With(applogger.String("component", "prediction"))
	return uc
}

// Direction maps a model score to the direction and trend labels shown to users.
func Direction(p float64) (direction, trend string) {
	switch {
	case p > bullishAbove:
		return "up", "bullish"
	case p < bearishBelow:
		return "down", "bearish"
	default:
		return "neutral", "neutral"
	}
}

// TargetPrice treats the score as a centered percentage move: 0.5 is flat, each 0.1 is 1%.
func TargetPrice(price, p float64) float64 {
	return price * (1 + (p-0.5)*10/100)
}

// Predict runs the whole prediction pipeline.
func (uc *PredictionUseCase) Predict(ctx context.Context) (*models.PredictionResponse, error) {
	started := time.Now()
	ctx, cancel := context.WithTimeout(ctx, uc.cfg.Timeout)
	defer cancel()

	type item struct {
		name string
		val  interface{}
		err  error
	}
	ch := make(chan item, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		v, err := uc.market.CurrentQuote(ctx)
		ch <- item{"quote", v, err}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		v, err := uc.Features(ctx)
		ch <- item{"features", v, err}
	}()

	go func() { wg.Wait(); close(ch) }()

	var (
		quote    models.Quote
		features []float64
		errs     []error
	)
	for it := range ch {
		if it.err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", it.name, it.err))
			continue
		}
		switch it.name {
		case "quote":
			quote = it.val.(models.Quote)
		case "features":
			features = it.val.([]float64)
		}
	}
	if len(errs) > 0 {
		err := errors.Join(errs...)
		uc.metrics.RecordPrediction("error", time.Since(started).Seconds())
		uc.logger.Error("prediction inputs unavailable", applogger.Error(err))
		return nil, err
	}

	res, err := uc.predictor.Predict(ctx, features)
	if err != nil {
		uc.metrics.RecordPrediction("error", time.Since(started).Seconds())
		return nil, err
	}

	var technical interface{}
	summary, err := uc.MarketSummary(ctx)
	if err != nil {
		uc.logger.Warn("technical summary unavailable, using fallback", applogger.Error(err))
		technical = models.FallbackSummary{
			RSI:       res.Prediction * 100,
			MACD:      "neutral",
			Bollinger: "normal",
			Trend:     "sideways",
		}
	} else {
		technical = summary
	}

	direction, trend := Direction(res.Prediction)
	target := TargetPrice(quote.Price, res.Prediction)
	now := uc.now()
	resp := &models.PredictionResponse{
		ID:                  uc.newID(),
		Prediction:          res.Prediction,
		Value:               target,
		Confidence:          res.Confidence,
		Direction:           direction,
		Trend:               trend,
		Probability:         res.Prediction,
		TargetPrice:         target,
		Timeframe:           timeframe,
		Factors:             models.DefaultFactors,
		TechnicalIndicators: technical,
		LastUpdated:         now.Format(time.RFC3339),
	}

	uc.metrics.RecordPrediction("ok", time.Since(started).Seconds())
	uc.metrics.RecordLastPrediction(uc.cfg.Symbol, res.Prediction)
	uc.logger.Info("prediction served",
		applogger.String("id", resp.ID),
		applogger.Float64("price", quote.Price),
		applogger.Float64("prediction", res.Prediction),
		applogger.Float64("confidence", res.Confidence),
		applogger.String("direction", direction),
	)

	uc.emit(ctx, &models.PredictionEvent{
		ID:          resp.ID,
		Symbol:      uc.cfg.Symbol,
		CreatedAt:   now.UTC(),
		Price:       quote.Price,
		Prediction:  res.Prediction,
		Confidence:  res.Confidence,
		Direction:   direction,
		TargetPrice: target,
		Model:       uc.predictor.Status().ModelType,
	})
	return resp, nil
}

// emit publishes and records the event. Neither step can fail the request.
func (uc *PredictionUseCase) emit(ctx context.Context, ev *models.PredictionEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), emitTimeout)
	defer cancel()

	if uc.publisher != nil {
		if err := uc.publisher.Publish(ctx, ev); err != nil {
			uc.metrics.RecordError("publish")
			uc.logger.Warn("publish prediction failed", applogger.String("id", ev.ID), applogger.Error(err))
		}
	}
	if uc.history != nil {
		if err := uc.history.Record(ctx, ev); err != nil && !errors.Is(err, models.ErrDisabled) {
			uc.metrics.RecordError("history")
			uc.logger.Warn("record prediction failed", applogger.String("id", ev.ID), applogger.Error(err))
		}
	}
}

// Features returns the model input vector for the latest session.
func (uc *PredictionUseCase) Features(ctx context.Context) ([]float64, error) {
	s, err := uc.market.HistoricalSeries(ctx, uc.cfg.FeaturePeriod)
	if err != nil {
		return nil, err
	}
	return uc.features.Build(s)
}

// FeatureNames lists the model inputs in vector order.
func (uc *PredictionUseCase) FeatureNames() []string { return uc.features.Names() }

// CurrentQuote is the cached quote the prediction is priced against.
func (uc *PredictionUseCase) CurrentQuote(ctx context.Context) (models.Quote, error) {
	return uc.market.CurrentQuote(ctx)
}

func (uc *PredictionUseCase) ModelStatus() models.ModelStatus { return uc.predictor.Status() }

// MarketSummary returns the latest indicator snapshot.
func (uc *PredictionUseCase) MarketSummary(ctx context.Context) (models.TechnicalSummary, error) {
	s, err := uc.market.HistoricalSeries(ctx, uc.cfg.SummaryPeriod)
	if err != nil {
		return models.TechnicalSummary{}, err
	}
	return uc.features.Summary(s)
}

// ModelCheck reports the model state and, when loaded, scores a fixed probe vector.
func (uc *PredictionUseCase) ModelCheck(ctx context.Context) models.ModelCheck {
	st := uc.predictor.Status()
	out := models.ModelCheck{ModelStatus: st}
	if !st.Loaded {
		return out
	}

	probe := make([]float64, 0, 23)
	probe = append(probe, 6200)
	for i := 0; i < 22; i++ {
		probe = append(probe, 50)
	}
	res, err := uc.predictor.Predict(ctx, probe)
	ok := err == nil
	out.PredictionSuccess = &ok
	if err != nil {
		out.PredictionError = err.Error()
		return out
	}
	out.DummyPrediction = &res
	return out
}

// History lists the most recent recorded predictions.
func (uc *PredictionUseCase) History(ctx context.Context, limit int) ([]models.PredictionEvent, error) {
	if uc.history == nil {
		return nil, models.ErrDisabled
	}
	return uc.history.Recent(ctx, uc.cfg.Symbol, limit)
}
