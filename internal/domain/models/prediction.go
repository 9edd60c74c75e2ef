package models

import "time"

// PredictionResult is the raw output of the model.
type PredictionResult struct {
	Prediction float64 `json:"prediction"`
	Confidence float64 `json:"confidence"`
}

type Factors struct {
	Technical float64 `json:"technical"`
	Sentiment float64 `json:"sentiment"`
	Momentum  float64 `json:"momentum"`
}

// DefaultFactors are the fixed weights reported alongside every prediction.
var DefaultFactors = Factors{Technical: 0.7, Sentiment: 0.2, Momentum: 0.1}

type MACDSummary struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

type MovingAverages struct {
	SMA10  float64 `json:"sma10"`
	SMA20  float64 `json:"sma20"`
	SMA50  float64 `json:"sma50"`
	SMA100 float64 `json:"sma100"`
	SMA200 float64 `json:"sma200"`
}

type BollingerSummary struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// TechnicalSummary is the latest indicator snapshot with defaults for undefined values.
type TechnicalSummary struct {
	RSI            float64          `json:"rsi"`
	MACD           MACDSummary      `json:"macd"`
	MovingAverages MovingAverages   `json:"movingAverages"`
	Bollinger      BollingerSummary `json:"bollinger"`
	BollWidth      float64          `json:"bollWidth"`
	ADX            float64          `json:"adx"`
	OBV            float64          `json:"obv"`
	Ret1D          float64          `json:"ret1d"`
	Ret5D          float64          `json:"ret5d"`
	Vol20          float64          `json:"vol20"`
	Support        []float64        `json:"support"`
	Resistance     []float64        `json:"resistance"`
}

// FallbackSummary is served when the technical summary cannot be built.
type FallbackSummary struct {
	RSI       float64 `json:"rsi"`
	MACD      string  `json:"macd"`
	Bollinger string  `json:"bollinger"`
	Trend     string  `json:"trend"`
}

type PredictionResponse struct {
	ID                  string      `json:"id"`
	Prediction          float64     `json:"prediction"`
	Value               float64     `json:"value"`
	Confidence          float64     `json:"confidence"`
	Direction           string      `json:"direction"`
	Trend               string      `json:"trend"`
	Probability         float64     `json:"probability"`
	TargetPrice         float64     `json:"targetPrice"`
	Timeframe           string      `json:"timeframe"`
	Factors             Factors     `json:"factors"`
	TechnicalIndicators interface{} `json:"technicalIndicators"`
	LastUpdated         string      `json:"lastUpdated"`
}

// PredictionEvent is published for every served prediction.
type PredictionEvent struct {
	ID          string    `json:"id"`
	Symbol      string    `json:"symbol"`
	CreatedAt   time.Time `json:"created_at"`
	Price       float64   `json:"price"`
	Prediction  float64   `json:"prediction"`
	Confidence  float64   `json:"confidence"`
	Direction   string    `json:"direction"`
	TargetPrice float64   `json:"target_price"`
	Model       string    `json:"model"`
}

// ModelStatus describes the inference service for diagnostics.
type ModelStatus struct {
	State       string            `json:"state"`
	Loaded      bool              `json:"model_loaded"`
	ModelType   string            `json:"model_type,omitempty"`
	LoadedAt    *time.Time        `json:"loaded_at,omitempty"`
	LastError   string            `json:"last_error,omitempty"`
	NumFeatures int               `json:"num_features,omitempty"`
	Meta        map[string]string `json:"meta,omitempty"`
}

// ModelCheck is the model status plus the outcome of a probe prediction.
type ModelCheck struct {
	ModelStatus
	DummyPrediction   *PredictionResult `json:"dummy_prediction,omitempty"`
	PredictionSuccess *bool             `json:"prediction_success,omitempty"`
	PredictionError   string            `json:"prediction_error,omitempty"`
}
