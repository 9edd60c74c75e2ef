package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SPPredict/internal/domain/models"
	domrepo "SPPredict/internal/domain/repository"
	domsvc "SPPredict/internal/domain/service"
	"SPPredict/pkg/cache"
	xhttp "SPPredict/pkg/http"
	applogger "SPPredict/pkg/logger"
	"SPPredict/pkg/metrics"
	"SPPredict/pkg/util"

	"github.com/cenkalti/backoff/v4"
)

const (
	currentKey = "current"
	// quoteWindow is how many weekdays back the quote request reaches, so that at
	// least two sessions come back across weekends and holidays.
	quoteWindow = 7
	// MinSeriesBars is the shortest history indicators are computed on.
	MinSeriesBars = 50
)

// Waiter throttles upstream calls per key.
type Waiter interface {
	Wait(ctx context.Context, key string) error
}

type MarketDataConfig struct {
	Symbol         string
	CacheTTL       time.Duration
	RequestTimeout time.Duration
	RetryMax       int
}

// cachedBars is what goes into the cache. Indicators are recomputed on read because
// their warm-up NaNs do not survive JSON.
type cachedBars struct {
	Bars      []models.Bar `json:"bars"`
	FetchedAt time.Time    `json:"fetched_at"`
}

// MarketDataUseCase is the cached view of the upstream market data provider.
type MarketDataUseCase struct {
	provider domrepo.MarketDataProvider
	cache    cache.Service
	calc     domsvc.IndicatorCalculator
	cfg      MarketDataConfig

	limiter Waiter
	metrics domrepo.Metrics
	logger  *applogger.Logger
	now     func() time.Time
	backoff func() backoff.BackOff
}

type MarketDataOption func(*MarketDataUseCase)

func WithLimiter(w Waiter) MarketDataOption {
	return func(uc *MarketDataUseCase) { uc.limiter = w }
}

func WithMarketMetrics(m domrepo.Metrics) MarketDataOption {
	return func(uc *MarketDataUseCase) {
		if m != nil {
			uc.metrics = m
		}
	}
}

func WithMarketLogger(l *applogger.Logger) MarketDataOption {
	return func(uc *MarketDataUseCase) {
		if l != nil {
			uc.logger = l
		}
	}
}

func WithMarketClock(now func() time.Time) MarketDataOption {
	return func(uc *MarketDataUseCase) { uc.now = now }
}

// WithBackoff replaces the retry schedule. Retries are still capped at RetryMax.
func WithBackoff(b func() backoff.BackOff) MarketDataOption {
	return func(uc *MarketDataUseCase) { uc.backoff = b }
}

func NewMarketDataUseCase(provider domrepo.MarketDataProvider, store cache.Service, calc domsvc.IndicatorCalculator, cfg MarketDataConfig, opts ...MarketDataOption) *MarketDataUseCase {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	uc := &MarketDataUseCase{
		provider: provider,
		cache:    store,
		calc:     calc,
		cfg:      cfg,
		metrics:  metrics.Nop{},
		logger:   applogger.NewNop(),
		now:      time.Now,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 250 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			b.MaxElapsedTime = 0
			return b
		},
	}
	for _, opt := range opts {
		opt(uc)
	}
	uc.logger = uc.logger.With(applogger.String("component", "market_data"))
	return uc
}

// Symbol is the tracked index.
func (uc *MarketDataUseCase) Symbol() string { return uc.cfg.Symbol }

// CurrentQuote compares the latest session with the one before it.
func (uc *MarketDataUseCase) CurrentQuote(ctx context.Context) (models.Quote, error) {
	bars, err := uc.bars(ctx, "current", currentKey, func(now time.Time) (time.Time, error) {
		return util.TradingDaysAgo(now, quoteWindow), nil
	})
	if err != nil {
		return models.Quote{}, err
	}
	if len(bars) < 2 {
		return models.Quote{}, fmt.Errorf("%w: %d sessions for quote", models.ErrDataUnavailable, len(bars))
	}
	return models.NewQuote(bars[len(bars)-2], bars[len(bars)-1]), nil
}

// HistoricalSeries returns the bars for period with indicators attached.
func (uc *MarketDataUseCase) HistoricalSeries(ctx context.Context, period string) (models.Series, error) {
	bars, err := uc.HistoricalBars(ctx, period)
	if err != nil {
		return models.Series{}, err
	}
	if len(bars) < MinSeriesBars {
		return models.Series{}, fmt.Errorf("%w: %d bars for %s, need %d", models.ErrDataUnavailable, len(bars), period, MinSeriesBars)
	}
	s := uc.calc.Calculate(bars)
	if !s.Indicators {
		uc.metrics.RecordError("indicators")
	}
	return s, nil
}

// HistoricalBars returns the raw bars for period.
func (uc *MarketDataUseCase) HistoricalBars(ctx context.Context, period string) ([]models.Bar, error) {
	return uc.bars(ctx, "historical", cache.GenerateKey("historical", period), func(now time.Time) (time.Time, error) {
		return util.PeriodStart(period, now)
	})
}

func (uc *MarketDataUseCase) bars(ctx context.Context, kind, key string, window func(now time.Time) (time.Time, error)) ([]models.Bar, error) {
	now := uc.now()

	var entry cachedBars
	err := uc.cache.Get(ctx, key, &entry)
	switch {
	case err == nil && now.Sub(entry.FetchedAt) < uc.cfg.CacheTTL:
		uc.metrics.RecordCache(kind, true)
		return entry.Bars, nil
	case err != nil && !errors.Is(err, cache.ErrCacheMiss):
		uc.logger.Warn("cache read failed", applogger.String("key", key), applogger.Error(err))
	}
	uc.metrics.RecordCache(kind, false)

	start, err := window(now)
	if err != nil {
		return nil, err
	}
	bars, err := uc.fetch(ctx, kind, start, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDataUnavailable, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no bars returned for %s", models.ErrDataUnavailable, key)
	}

	entry = cachedBars{Bars: bars, FetchedAt: now}
	if err := uc.cache.Set(ctx, key, entry, uc.cfg.CacheTTL); err != nil {
		uc.logger.Warn("cache write failed", applogger.String("key", key), applogger.Error(err))
	}
	return bars, nil
}

func (uc *MarketDataUseCase) fetch(ctx context.Context, kind string, start, end time.Time) ([]models.Bar, error) {
	started := time.Now()
	attempts := 0

	var bars []models.Bar
	operation := func() error {
		attempts++
		if uc.limiter != nil {
			if err := uc.limiter.Wait(ctx, uc.provider.Name()); err != nil {
				return backoff.Permanent(err)
			}
		}
		cctx, cancel := context.WithTimeout(ctx, uc.cfg.RequestTimeout)
		defer cancel()

		var err error
		bars, err = uc.provider.Bars(cctx, uc.cfg.Symbol, start, end)
		if err != nil {
			if ctx.Err() != nil || !xhttp.IsRetryable(err) {
				return backoff.Permanent(err)
			}
			uc.logger.Warn("upstream fetch failed",
				applogger.String("provider", uc.provider.Name()),
				applogger.String("kind", kind),
				applogger.Int("attempt", attempts),
				applogger.Error(err),
			)
		}
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(uc.backoff(), uint64(uc.cfg.RetryMax)), ctx)
	err := backoff.Retry(operation, b)
	elapsed := time.Since(started)
	if err != nil {
		uc.metrics.RecordFetch(kind, "error", elapsed.Seconds())
		uc.logger.Error("upstream fetch gave up",
			applogger.String("provider", uc.provider.Name()),
			applogger.String("kind", kind),
			applogger.Int("attempts", attempts),
			applogger.Error(err),
		)
		return nil, err
	}
	uc.metrics.RecordFetch(kind, "ok", elapsed.Seconds())
	uc.logger.Debug("upstream fetch",
		applogger.String("kind", kind),
		applogger.Int("bars", len(bars)),
		applogger.Duration("elapsed", elapsed),
	)
	return bars, nil
}
