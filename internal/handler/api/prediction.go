package api

import (
	"context"
	"net/http"
	"time"

	"SPPredict/internal/domain/models"
	"SPPredict/internal/service/metrics"
	xhttp "SPPredict/pkg/http"
	xlogger "SPPredict/pkg/logger"

	"github.com/labstack/echo/v4"
)

type PredictionService interface {
	Predict(ctx context.Context) (*models.PredictionResponse, error)
	History(ctx context.Context, limit int) ([]models.PredictionEvent, error)
}

type PredictionHandler struct {
	logger *xlogger.Logger
	svc    PredictionService
}

func NewPredictionHandler(logger *xlogger.Logger, svc PredictionService) *PredictionHandler {
	metrics.Register()
	return &PredictionHandler{logger: logger, svc: svc}
}

func (h *PredictionHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/prediction")
	g.GET("", h.Predict)
	g.GET("/history", h.History)
}

func (h *PredictionHandler) Predict(c echo.Context) error {
	defer observe("prediction", time.Now())

	res, err := h.svc.Predict(c.Request().Context())
	if err != nil {
		return failure(c, h.logger, "prediction", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.JSONResponse(c, http.StatusOK, res)
}

func (h *PredictionHandler) History(c echo.Context) error {
	defer observe("prediction_history", time.Now())

	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows, err := h.svc.History(c.Request().Context(), req.Limit)
	if err != nil {
		return failure(c, h.logger, "prediction_history", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}
