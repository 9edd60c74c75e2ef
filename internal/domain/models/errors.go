package models

import "errors"

var (
	// ErrDataUnavailable means the upstream provider failed or returned too little data.
	ErrDataUnavailable = errors.New("market data unavailable")
	// ErrInsufficientData means the series is shorter than the feature builder needs.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrModelUnavailable means the model could not be fetched or decoded.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrPredictionFailed means the model was loaded but scoring failed.
	ErrPredictionFailed = errors.New("prediction failed")
	// ErrDisabled is returned by optional components that are switched off in config.
	ErrDisabled = errors.New("component disabled")
)
