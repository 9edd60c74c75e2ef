package di

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"SPPredict/internal/domain/models"
	internalrepo "SPPredict/internal/repository"
	"SPPredict/pkg/cache"
	"SPPredict/pkg/config"
	applogger "SPPredict/pkg/logger"
	"SPPredict/pkg/metrics"
	"SPPredict/pkg/objectstore"
)

type staticProvider struct{}

func (staticProvider) Name() string { return "static" }

func (staticProvider) Bars(_ context.Context, _ string, _, end time.Time) ([]models.Bar, error) {
	return []models.Bar{
		{Timestamp: end.AddDate(0, 0, -1), Open: 5000, High: 5010, Low: 4990, Close: 5000, Volume: 1},
		{Timestamp: end, Open: 5000, High: 5060, Low: 4995, Close: 5050, Volume: 1},
	}, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return cfg
}

func TestOptionalInfrastructureDisabledByDefault(t *testing.T) {
	cfg := testConfig(t)

	producer, err := ProvideKafkaProducer(cfg)
	if err != nil || producer != nil {
		t.Fatalf("expected no producer, got %v %v", producer, err)
	}
	ch, err := ProvideClickHouseClient(cfg)
	if err != nil || ch != nil {
		t.Fatalf("expected no clickhouse client, got %v %v", ch, err)
	}
	if _, ok := ProvidePredictionPublisher(nil, cfg).(internalrepo.NoopPublisher); !ok {
		t.Fatalf("expected noop publisher")
	}
	if _, ok := ProvidePredictionHistory(nil, applogger.NewNop(), cfg).(internalrepo.DisabledHistory); !ok {
		t.Fatalf("expected disabled history")
	}
}

func TestProvideCacheMemory(t *testing.T) {
	cfg := testConfig(t)
	store, err := ProvideCache(cfg)
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	defer store.Close()
	if _, ok := store.(*cache.MemoryCache); !ok {
		t.Fatalf("expected memory cache, got %T", store)
	}
}

func TestProvideObjectStoreFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Model.Source = "file"
	cfg.Model.Path = t.TempDir()

	store, err := ProvideObjectStore(cfg)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if _, ok := store.(*objectstore.FileStore); !ok {
		t.Fatalf("expected file store, got %T", store)
	}
}

func TestHTTPServerRoutesAndRateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.Model.Source = "file"
	cfg.Model.Path = t.TempDir()
	cfg.Server.RateLimit.Enabled = true
	cfg.Server.RateLimit.RPS = 0.001
	cfg.Server.RateLimit.Burst = 1

	l := applogger.NewNop()
	m := metrics.Nop{}
	store := cache.NewMemoryCache(cache.WithMemoryCleanup(0))
	defer store.Close()

	market := ProvideMarketData(staticProvider{}, store, ProvideIndicatorCalculator(l), ProvideUpstreamLimiter(cfg), m, l, cfg)
	objects, err := ProvideObjectStore(cfg)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	prediction := ProvidePrediction(market, ProvideFeatureBuilder(l), ProvideInference(objects, m, l, cfg),
		ProvidePredictionPublisher(nil, cfg), ProvidePredictionHistory(nil, l, cfg), m, l, cfg)

	srv := ProvideHTTPServer(ProvideHTTPHandler(market, prediction, l, cfg), ProvideAPILimiter(cfg), l, cfg)

	routes := map[string]bool{}
	for _, r := range srv.Echo().Routes() {
		routes[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /",
		"GET /health",
		"GET /api/market/current",
		"GET /api/market/historical",
		"GET /api/prediction",
		"GET /api/prediction/history",
		"GET /debug/market-data",
		"GET /debug/features",
		"GET /debug/model",
		"GET /ws/market",
		"GET /metrics",
	} {
		if !routes[want] {
			t.Errorf("missing route %s", want)
		}
	}

	get := func(path string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		srv.Echo().ServeHTTP(rec, req)
		return rec.Code
	}

	if code := get("/api/market/current"); code != http.StatusOK {
		t.Fatalf("current quote: %d", code)
	}
	if code := get("/api/market/current"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", code)
	}
	if code := get("/health"); code != http.StatusOK {
		t.Fatalf("health must bypass the limiter, got %d", code)
	}
}
