package middleware

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applogger "SPPredict/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestCORSAllowedOrigin(t *testing.T) {
	e := echo.New()
	e.Use(CORS(CORSConfig{
		AllowOrigins: []string{"http://localhost:3000"},
		AllowMethods: []string{http.MethodGet},
		MaxAge:       600,
	}))
	e.GET("/x", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:3000")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status %d", rec.Code)
	}
	if rec.Header().Get(echo.HeaderAccessControlAllowOrigin) != "http://localhost:3000" {
		t.Fatalf("missing allow origin: %v", rec.Header())
	}
	if rec.Header().Get(echo.HeaderAccessControlMaxAge) != "600" {
		t.Fatalf("missing max age")
	}

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(echo.HeaderOrigin, "http://evil.example")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Header().Get(echo.HeaderAccessControlAllowOrigin) != "" {
		t.Fatalf("disallowed origin got CORS headers")
	}
}

type denyAfter struct{ n int }

func (d *denyAfter) Allow(string) bool {
	d.n--
	return d.n >= 0
}

func TestRateLimitSkipsHealth(t *testing.T) {
	e := echo.New()
	e.Use(RateLimit(&denyAfter{n: 1}, "/health"))
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	e.GET("/api/prediction", ok)
	e.GET("/health", ok)

	codes := []int{}
	for _, p := range []string{"/api/prediction", "/api/prediction", "/health"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, p, nil))
		codes = append(codes, rec.Code)
	}
	if codes[0] != 200 || codes[1] != 429 || codes[2] != 200 {
		t.Fatalf("unexpected codes %v", codes)
	}
}

func TestRecoverAndLogging(t *testing.T) {
	var buf bytes.Buffer
	l := applogger.NewWriter(&buf, zerolog.InfoLevel)

	e := echo.New()
	e.Use(Recover(l), RequestLogging(l))
	e.GET("/panic", func(c echo.Context) error { panic("boom") })
	e.GET("/fail", func(c echo.Context) error { return echo.NewHTTPError(http.StatusBadGateway, errors.New("upstream")) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(buf.String(), "panic in handler") {
		t.Fatalf("panic not logged: %s", buf.String())
	}

	buf.Reset()
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fail", nil))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if !strings.Contains(buf.String(), `"status":502`) {
		t.Fatalf("final status not logged: %s", buf.String())
	}

	buf.Reset()
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/fail", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-42")
	e.ServeHTTP(rec, req)
	if rec.Header().Get(echo.HeaderXRequestID) != "req-42" {
		t.Fatalf("request id not echoed: %q", rec.Header().Get(echo.HeaderXRequestID))
	}
	if !strings.Contains(buf.String(), `"request_id":"req-42"`) {
		t.Fatalf("request id not logged: %s", buf.String())
	}
}
