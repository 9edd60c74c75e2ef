package api

import (
	"context"
	"errors"
	"time"

	"SPPredict/internal/domain/models"
	"SPPredict/internal/service/metrics"
	xhttp "SPPredict/pkg/http"
	xlogger "SPPredict/pkg/logger"

	"github.com/labstack/echo/v4"
)

// toAppError maps domain failures onto HTTP errors. kind labels the error metric.
func toAppError(err error) (appErr *xhttp.AppError, kind string) {
	switch {
	case errors.Is(err, models.ErrInsufficientData):
		return xhttp.ServiceUnavailableError("Not enough market history to build features").WithError(err), "insufficient_data"
	case errors.Is(err, models.ErrDataUnavailable):
		return xhttp.ServiceUnavailableError("Market data unavailable").WithError(err), "data_unavailable"
	case errors.Is(err, models.ErrModelUnavailable):
		return xhttp.ServiceUnavailableError("Model unavailable").WithError(err), "model_unavailable"
	case errors.Is(err, models.ErrDisabled):
		return xhttp.ServiceUnavailableError("Feature disabled").WithError(err), "disabled"
	case errors.Is(err, models.ErrPredictionFailed):
		return xhttp.InternalError("Prediction failed").WithError(err), "prediction_failed"
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.ServiceUnavailableError("Upstream timed out").WithError(err), "timeout"
	default:
		return xhttp.InternalError("Something went wrong").WithError(err), "internal"
	}
}

func failure(c echo.Context, l *xlogger.Logger, endpoint string, err error) error {
	appErr, kind := toAppError(err)
	metrics.APIErrors.WithLabelValues(endpoint, kind).Inc()
	l.Error(endpoint+" failed", xlogger.String("kind", kind), xlogger.Error(err))
	return xhttp.AppErrorResponse(c, appErr)
}

func observe(endpoint string, start time.Time) {
	metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
