package api

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"time"

	"SPPredict/internal/domain/models"
	"SPPredict/internal/service/metrics"
	xhttp "SPPredict/pkg/http"
	xlogger "SPPredict/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Diagnostics is what the debug routes need from the rest of the service.
type Diagnostics interface {
	CurrentQuote(ctx context.Context) (models.Quote, error)
	Features(ctx context.Context) ([]float64, error)
	FeatureNames() []string
	ModelCheck(ctx context.Context) models.ModelCheck
	ModelStatus() models.ModelStatus
}

type ServiceInfo struct {
	Name        string
	Version     string
	Environment string
	Host        string
	Port        int
	Debug       bool
}

// SystemHandler serves service info, health and the debug routes.
type SystemHandler struct {
	logger *xlogger.Logger
	diag   Diagnostics
	info   ServiceInfo
	now    func() time.Time
}

func NewSystemHandler(logger *xlogger.Logger, diag Diagnostics, info ServiceInfo) *SystemHandler {
	metrics.Register()
	return &SystemHandler{logger: logger, diag: diag, info: info, now: time.Now}
}

func (h *SystemHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Root)
	e.GET("/health", h.Health)

	g := e.Group("/debug")
	g.GET("/market-data", h.DebugMarketData)
	g.GET("/features", h.DebugFeatures)
	g.GET("/model", h.DebugModel)
}

func (h *SystemHandler) Root(c echo.Context) error {
	hostname, _ := os.Hostname()
	return xhttp.JSONResponse(c, http.StatusOK, map[string]interface{}{
		"message":     h.info.Name,
		"status":      "online",
		"version":     h.info.Version,
		"timestamp":   h.now().Format(time.RFC3339),
		"host":        h.info.Host,
		"port":        strconv.Itoa(h.info.Port),
		"hostname":    hostname,
		"go_version":  runtime.Version(),
		"environment": h.info.Environment,
		"endpoints": map[string]string{
			"health":             "/health",
			"market_current":     "/api/market/current",
			"market_historical":  "/api/market/historical",
			"prediction":         "/api/prediction",
			"prediction_history": "/api/prediction/history",
			"stream":             "/ws/market",
			"metrics":            "/metrics",
		},
	})
}

// Health never touches upstreams; it only reports local state.
func (h *SystemHandler) Health(c echo.Context) error {
	st := h.diag.ModelStatus()
	return xhttp.JSONResponse(c, http.StatusOK, map[string]interface{}{
		"status":       "healthy",
		"timestamp":    h.now().Format(time.RFC3339),
		"environment":  h.info.Environment,
		"version":      h.info.Version,
		"model":        st.State,
		"model_loaded": st.Loaded,
	})
}

func (h *SystemHandler) DebugMarketData(c echo.Context) error {
	q, err := h.diag.CurrentQuote(c.Request().Context())
	if err != nil {
		h.logger.Warn("debug market data failed", xlogger.Error(err))
		return xhttp.JSONResponse(c, http.StatusOK, map[string]interface{}{"success": false, "error": err.Error()})
	}
	return xhttp.JSONResponse(c, http.StatusOK, map[string]interface{}{"success": true, "data": q})
}

func (h *SystemHandler) DebugFeatures(c echo.Context) error {
	f, err := h.diag.Features(c.Request().Context())
	if err != nil {
		h.logger.Warn("debug features failed", xlogger.Error(err))
		return xhttp.JSONResponse(c, http.StatusOK, map[string]interface{}{"success": false, "error": err.Error()})
	}
	return xhttp.JSONResponse(c, http.StatusOK, map[string]interface{}{
		"success":  true,
		"features": f,
		"names":    h.diag.FeatureNames(),
		"count":    len(f),
	})
}

func (h *SystemHandler) DebugModel(c echo.Context) error {
	return xhttp.JSONResponse(c, http.StatusOK, map[string]interface{}{
		"success":      true,
		"model_status": h.diag.ModelCheck(c.Request().Context()),
	})
}
