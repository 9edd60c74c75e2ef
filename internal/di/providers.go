package di

import (
	"context"
	"fmt"
	"time"

	"SPPredict/internal/domain/repository"
	domsvc "SPPredict/internal/domain/service"
	"SPPredict/internal/handler/api"
	internalrepo "SPPredict/internal/repository"
	"SPPredict/internal/service/polygon"
	"SPPredict/internal/service/ratelimit"
	"SPPredict/internal/service/yahoo"
	"SPPredict/internal/services/features"
	"SPPredict/internal/services/indicators"
	"SPPredict/internal/services/inference"
	"SPPredict/internal/usecase"
	"SPPredict/pkg/cache"
	pkgch "SPPredict/pkg/clickhouse"
	"SPPredict/pkg/config"
	xhttp "SPPredict/pkg/http"
	"SPPredict/pkg/http/middleware"
	pkgkafka "SPPredict/pkg/kafka"
	applogger "SPPredict/pkg/logger"
	"SPPredict/pkg/metrics"
	"SPPredict/pkg/objectstore"
	"SPPredict/pkg/server"
)

// Version is stamped at build time with -ldflags "-X SPPredict/internal/di.Version=...".
var Version = "dev"

// APILimiter throttles inbound requests per client IP. It is a distinct type so the
// injector does not confuse it with the upstream limiter.
type APILimiter struct{ *ratelimit.Limiter }

// UpstreamLimiter throttles calls to the market data provider.
type UpstreamLimiter struct{ *ratelimit.Limiter }

// ProvideKafkaProducer creates a Kafka producer. It returns nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideLogger builds the application logger. With Kafka enabled, repeated errors are
// aggregated and shipped to the log topic.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	level := cfg.Log.Level
	if cfg.Debug {
		level = "debug"
	}
	l, err := applogger.New(&applogger.Config{
		Level:      level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogTopic,
			Publisher:      producer,
		})
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache builds the cache backend selected in config.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if cfg.Cache.Backend == "memory" {
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize)), nil
	}

	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Cache.Redis.Host, cfg.Cache.Redis.Port),
		cache.WithRedisPassword(cfg.Cache.Redis.Password),
		cache.WithRedisDB(cfg.Cache.Redis.DB),
		cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	if cfg.Cache.Backend == "layered" {
		return cache.NewLayeredCache(rc, cache.WithLayeredMemorySize(cfg.Cache.MemoryMaxSize)), nil
	}
	return rc, nil
}

// ProvideMarketDataProvider selects the upstream market data source.
func ProvideMarketDataProvider(cfg *config.Config, l *applogger.Logger) repository.MarketDataProvider {
	if cfg.Market.Provider == "polygon" {
		return polygon.New(
			xhttp.NewClient(xhttp.WithTimeout(cfg.Market.RequestTimeout)),
			cfg.Market.Polygon.BaseURL,
			cfg.Market.Polygon.APIKey,
			cfg.Market.Polygon.Ticker,
			l,
		)
	}
	return yahoo.New(l)
}

func ProvideUpstreamLimiter(cfg *config.Config) *UpstreamLimiter {
	return &UpstreamLimiter{ratelimit.New(cfg.Market.UpstreamRPS, 1)}
}

func ProvideAPILimiter(cfg *config.Config) *APILimiter {
	return &APILimiter{ratelimit.New(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst)}
}

func ProvideIndicatorCalculator(l *applogger.Logger) domsvc.IndicatorCalculator {
	return indicators.NewCalculator(l)
}

func ProvideFeatureBuilder(l *applogger.Logger) domsvc.FeatureBuilder {
	return features.NewBuilder(l)
}

// ProvideMarketData creates the cached market data use case.
func ProvideMarketData(
	provider repository.MarketDataProvider,
	store cache.Service,
	calc domsvc.IndicatorCalculator,
	limiter *UpstreamLimiter,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.MarketDataUseCase {
	return usecase.NewMarketDataUseCase(provider, store, calc, usecase.MarketDataConfig{
		Symbol:         cfg.Market.Symbol,
		CacheTTL:       cfg.Market.CacheDuration,
		RequestTimeout: cfg.Market.RequestTimeout,
		RetryMax:       cfg.Market.RetryMax,
	},
		usecase.WithLimiter(limiter),
		usecase.WithMarketMetrics(m),
		usecase.WithMarketLogger(l),
	)
}

// ProvideObjectStore opens the store the model artifact is read from.
func ProvideObjectStore(cfg *config.Config) (repository.ObjectStore, error) {
	if cfg.Model.Source == "file" {
		return objectstore.NewFileStore(cfg.Model.Path, cfg.Model.MaxBytes), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	store, err := objectstore.NewS3Store(ctx, objectstore.S3Config{
		Region:          cfg.AWS.Region,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
		Endpoint:        cfg.AWS.Endpoint,
		PathStyle:       cfg.AWS.PathStyle,
		MaxBytes:        cfg.Model.MaxBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("object store: %w", err)
	}
	return store, nil
}

// ProvideInference creates the model inference service. The file store ignores the bucket.
func ProvideInference(store repository.ObjectStore, m repository.Metrics, l *applogger.Logger, cfg *config.Config) *inference.Service {
	key := cfg.Model.Key
	if cfg.Model.Source == "file" {
		key = ""
	}
	return inference.NewService(store, cfg.Model.Bucket, key,
		inference.WithLoadTimeout(cfg.Model.LoadTimeout),
		inference.WithMetrics(m),
		inference.WithLogger(l),
	)
}

// ProvideClickHouseClient creates a ClickHouse client. It returns nil when history is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	if err := client.InitSchema(ctx, internalrepo.PredictionSchema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

func ProvidePredictionPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.PredictionPublisher {
	if producer == nil {
		return internalrepo.NoopPublisher{}
	}
	return internalrepo.NewKafkaPredictionPublisher(producer, cfg.Kafka.Topic)
}

func ProvidePredictionHistory(ch *pkgch.Client, l *applogger.Logger, cfg *config.Config) repository.PredictionHistory {
	if ch == nil {
		return internalrepo.DisabledHistory{}
	}
	return internalrepo.NewCHPredictionHistory(ch, cfg.ClickHouse.Database, l)
}

// ProvidePrediction creates the prediction use case.
func ProvidePrediction(
	market *usecase.MarketDataUseCase,
	fb domsvc.FeatureBuilder,
	model *inference.Service,
	pub repository.PredictionPublisher,
	history repository.PredictionHistory,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.PredictionUseCase {
	return usecase.NewPredictionUseCase(market, fb, model, pub, history, usecase.PredictionConfig{
		Symbol:        cfg.Market.Symbol,
		Timeout:       cfg.Prediction.Timeout,
		FeaturePeriod: cfg.Prediction.FeaturePeriod,
		SummaryPeriod: cfg.Prediction.SummaryPeriod,
	},
		usecase.WithPredictionMetrics(m),
		usecase.WithPredictionLogger(l),
	)
}

// ProvideHTTPHandler assembles every route handler.
func ProvideHTTPHandler(
	market *usecase.MarketDataUseCase,
	prediction *usecase.PredictionUseCase,
	l *applogger.Logger,
	cfg *config.Config,
) xhttp.Handler {
	return api.NewRouter(
		api.NewSystemHandler(l, prediction, api.ServiceInfo{
			Name:        "SP500 Prediction API",
			Version:     Version,
			Environment: cfg.Environment,
			Host:        cfg.Server.Host,
			Port:        cfg.Server.Port,
			Debug:       cfg.Debug,
		}),
		api.NewMarketHandler(l, market, cfg.Prediction.HistoricalLimit),
		api.NewPredictionHandler(l, prediction),
		api.NewStreamHandler(l, market, cfg.Stream.Interval, cfg.Server.CORSOrigins),
	)
}

// ProvideHTTPServer creates the Echo server with the shared middleware stack.
func ProvideHTTPServer(h xhttp.Handler, limiter *APILimiter, l *applogger.Logger, cfg *config.Config) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(l),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		opts = append(opts, xhttp.WithCORSOrigins(cfg.Server.CORSOrigins))
	}
	metricsPath := cfg.Metrics.Path
	if !cfg.Metrics.Enabled {
		metricsPath = ""
	}
	opts = append(opts, xhttp.WithMetricsPath(metricsPath))
	if cfg.Server.RateLimit.Enabled {
		opts = append(opts, xhttp.WithMiddleware(middleware.RateLimit(limiter, "/health", cfg.Metrics.Path, "/ws/market")))
	}
	return xhttp.NewServer(h, opts...)
}

// ProvideApp creates the application. Closers are ordered so the log collector
// flushes through the producer before the producer goes away.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	model *inference.Service,
	store cache.Service,
	limiter *APILimiter,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
) *server.App {
	closers := []server.Closer{{Name: "log collector", Close: func() error {
		l.RemoveCollector()
		return nil
	}}}
	if producer != nil {
		closers = append(closers, server.Closer{Name: "kafka producer", Close: producer.Close})
	}
	if ch != nil {
		closers = append(closers, server.Closer{Name: "clickhouse", Close: ch.Close})
	}
	closers = append(closers, server.Closer{Name: "cache", Close: store.Close})

	var pruner server.Pruner
	if cfg.Server.RateLimit.Enabled {
		pruner = limiter
	}
	return server.New(cfg, l, srv, model, pruner, closers...)
}
