package inference

import (
	"context"
	"fmt"
	"math"
	"runtime/debug"
	"sync"
	"time"

	"SPPredict/internal/domain/models"
	"SPPredict/internal/domain/repository"
	applogger "SPPredict/pkg/logger"
	"SPPredict/pkg/metrics"
)

type State int

const (
	StateNotLoaded State = iota
	StateLoading
	StateLoaded
	StateLoadFailed
)

func (s State) String() string {
	switch s {
	case StateNotLoaded:
		return "not_loaded"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateLoadFailed:
		return "load_failed"
	}
	return "unknown"
}

// Service lazily loads the model from the object store and scores feature vectors.
// A successful load is kept for the life of the process; a failed one is retried on
// the next Predict.
type Service struct {
	store       repository.ObjectStore
	bucket      string
	key         string
	loadTimeout time.Duration
	decoders    []Decoder
	metrics     repository.Metrics
	logger      *applogger.Logger
	now         func() time.Time

	loadMu sync.Mutex // one download at a time

	mu       sync.RWMutex
	state    State
	model    Model
	decoder  string
	loadedAt time.Time
	lastErr  error
}

type Option func(*Service)

func WithDecoders(d ...Decoder) Option {
	return func(s *Service) { s.decoders = d }
}

func WithLoadTimeout(d time.Duration) Option {
	return func(s *Service) { s.loadTimeout = d }
}

func WithMetrics(m repository.Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

func WithLogger(l *applogger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store repository.ObjectStore, bucket, key string, opts ...Option) *Service {
	s := &Service{
		store:       store,
		bucket:      bucket,
		key:         key,
		loadTimeout: 60 * time.Second,
		decoders:    DefaultDecoders(),
		metrics:     metrics.Nop{},
		logger:      applogger.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(applogger.String("component", "inference"))
	return s
}

// Load fetches and decodes the model unless it is already loaded.
func (s *Service) Load(ctx context.Context) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	s.mu.Lock()
	if s.state == StateLoaded {
		s.mu.Unlock()
		return nil
	}
	s.state = StateLoading
	s.mu.Unlock()

	start := s.now()
	s.logger.Info("loading model",
		applogger.String("bucket", s.bucket),
		applogger.String("key", s.key),
	)

	m, name, err := s.fetchAndDecode(ctx)
	elapsed := s.now().Sub(start)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateLoadFailed
		s.lastErr = err
		s.metrics.RecordModelLoad("error", elapsed.Seconds())
		s.logger.Error("model load failed", applogger.Error(err), applogger.Duration("elapsed", elapsed))
		return fmt.Errorf("%w: %v", models.ErrModelUnavailable, err)
	}

	s.state = StateLoaded
	s.model = m
	s.decoder = name
	s.loadedAt = s.now()
	s.lastErr = nil
	s.metrics.RecordModelLoad("ok", elapsed.Seconds())
	s.logger.Info("model loaded",
		applogger.String("decoder", name),
		applogger.String("feature_order", trainingFeatureOrderVersion),
		applogger.Duration("elapsed", elapsed),
	)
	return nil
}

func (s *Service) fetchAndDecode(ctx context.Context) (Model, string, error) {
	if s.loadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.loadTimeout)
		defer cancel()
	}
	data, err := s.store.Get(ctx, s.bucket, s.key)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s/%s: %w", s.bucket, s.key, err)
	}
	m, name, err := decode(s.decoders, data)
	if err != nil {
		return nil, "", fmt.Errorf("decode %d bytes: %w", len(data), err)
	}
	return m, name, nil
}

func (s *Service) loaded() Model {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateLoaded {
		return nil
	}
	return s.model
}

// Predict scores the feature vector, loading the model first if needed.
func (s *Service) Predict(ctx context.Context, features []float64) (models.PredictionResult, error) {
	m := s.loaded()
	if m == nil {
		if err := s.Load(ctx); err != nil {
			return models.PredictionResult{}, err
		}
		m = s.loaded()
	}

	start := s.now()
	s.logger.Debug("scoring", applogger.Int("features", len(features)))
	row, cols := Reorder(features)

	res, err := score(m, row, cols)
	elapsed := s.now().Sub(start).Seconds()
	if err != nil {
		s.metrics.RecordScoring("error", elapsed)
		s.logger.Error("prediction failed", applogger.Error(err))
		return models.PredictionResult{}, err
	}
	s.metrics.RecordScoring("ok", elapsed)
	return res, nil
}

func score(m Model, row []float64, cols []string) (res models.PredictionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v\n%s", models.ErrPredictionFailed, r, debug.Stack())
		}
	}()

	value, probs, err := m.Predict(row, cols)
	if err != nil {
		return res, fmt.Errorf("%w: %v", models.ErrPredictionFailed, err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return res, fmt.Errorf("%w: non-finite output %v", models.ErrPredictionFailed, value)
	}
	return models.PredictionResult{Prediction: value, Confidence: Confidence(value, probs)}, nil
}

// Confidence is the top class probability when the model has one, otherwise a
// magnitude heuristic clamped to [0.1, 0.95].
func Confidence(prediction float64, probs []float64) float64 {
	if len(probs) > 0 {
		best := probs[0]
		for _, p := range probs[1:] {
			best = math.Max(best, p)
		}
		if !math.IsNaN(best) {
			return best
		}
	}
	return math.Min(0.95, math.Max(0.1, math.Abs(prediction)/10))
}

// Status reports the load state for diagnostics.
func (s *Service) Status() models.ModelStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := models.ModelStatus{
		State:  s.state.String(),
		Loaded: s.state == StateLoaded,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	if s.state == StateLoaded {
		at := s.loadedAt
		st.LoadedAt = &at
		st.ModelType = s.decoder
		st.NumFeatures = NumColumns
		st.Meta = map[string]string{"feature_order": trainingFeatureOrderVersion}
		for k, v := range s.model.Meta() {
			st.Meta[k] = v
		}
	}
	return st
}
