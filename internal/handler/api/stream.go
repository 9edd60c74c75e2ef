package api

import (
	"context"
	"net/http"
	"time"

	"SPPredict/internal/domain/models"
	"SPPredict/internal/service/metrics"
	xlogger "SPPredict/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxInboundSize = 512
)

type QuoteSource interface {
	CurrentQuote(ctx context.Context) (models.Quote, error)
}

type streamMessage struct {
	Type  string        `json:"type"`
	Data  *models.Quote `json:"data,omitempty"`
	Error string        `json:"error,omitempty"`
}

// StreamHandler pushes the current quote to websocket clients on a fixed interval.
// Quotes come from the cache, so the number of clients does not change upstream load.
type StreamHandler struct {
	logger   *xlogger.Logger
	quotes   QuoteSource
	interval time.Duration
	upgrader websocket.Upgrader
}

func NewStreamHandler(logger *xlogger.Logger, quotes QuoteSource, interval time.Duration, allowedOrigins []string) *StreamHandler {
	metrics.Register()
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &StreamHandler{
		logger:   logger,
		quotes:   quotes,
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(set) == 0 {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

func (h *StreamHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/market", h.Market)
}

func (h *StreamHandler) Market(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already replied
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	metrics.StreamClients.Inc()
	defer metrics.StreamClients.Dec()

	remote := c.RealIP()
	h.logger.Info("stream client connected", xlogger.String("remote", remote))
	defer h.logger.Info("stream client disconnected", xlogger.String("remote", remote))

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	// Inbound frames are only read to service pongs and the close handshake.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(maxInboundSize)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	push := time.NewTicker(h.interval)
	defer push.Stop()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	if err := h.pushQuote(ctx, conn); err != nil {
		return nil
	}
	for {
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
			return nil
		case <-push.C:
			if err := h.pushQuote(ctx, conn); err != nil {
				return nil
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return nil
			}
		}
	}
}

// pushQuote writes one frame. A failed fetch is reported to the client and keeps the
// connection; only a failed write ends it.
func (h *StreamHandler) pushQuote(ctx context.Context, conn *websocket.Conn) error {
	msg := streamMessage{Type: "quote"}
	q, err := h.quotes.CurrentQuote(ctx)
	if err != nil {
		appErr, kind := toAppError(err)
		metrics.APIErrors.WithLabelValues("stream", kind).Inc()
		msg = streamMessage{Type: "error", Error: appErr.Message}
	} else {
		msg.Data = &q
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Debug("stream write failed", xlogger.Error(err))
		return err
	}
	return nil
}
