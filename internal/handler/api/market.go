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

type MarketService interface {
	CurrentQuote(ctx context.Context) (models.Quote, error)
	HistoricalBars(ctx context.Context, period string) ([]models.Bar, error)
}

// MarketHandler serves quotes and recent history.
type MarketHandler struct {
	logger *xlogger.Logger
	market MarketService
	limit  int
}

func NewMarketHandler(logger *xlogger.Logger, market MarketService, historicalLimit int) *MarketHandler {
	metrics.Register()
	if historicalLimit <= 0 {
		historicalLimit = 30
	}
	return &MarketHandler{logger: logger, market: market, limit: historicalLimit}
}

func (h *MarketHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/market")
	g.GET("/current", h.Current)
	g.GET("/historical", h.Historical)
}

func (h *MarketHandler) Current(c echo.Context) error {
	defer observe("market_current", time.Now())

	q, err := h.market.CurrentQuote(c.Request().Context())
	if err != nil {
		return failure(c, h.logger, "market_current", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=60")
	return xhttp.JSONResponse(c, http.StatusOK, q)
}

func (h *MarketHandler) Historical(c echo.Context) error {
	defer observe("market_historical", time.Now())

	req := &models.HistoricalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	bars, err := h.market.HistoricalBars(c.Request().Context(), req.Period)
	if err != nil {
		return failure(c, h.logger, "market_historical", err)
	}
	if len(bars) > h.limit {
		bars = bars[len(bars)-h.limit:]
	}
	out := models.HistoricalResponse{Data: make([]models.HistoricalPoint, len(bars))}
	for i, b := range bars {
		out.Data[i] = models.NewHistoricalPoint(b)
	}
	return xhttp.JSONResponse(c, http.StatusOK, out)
}
