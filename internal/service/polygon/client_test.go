package polygon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	xhttp "SPPredict/pkg/http"
)

func TestBarsRequestAndDecode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/aggs/ticker/I:SPX/range/1/day/2025-01-02/2025-01-10" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("apiKey") != "secret" || q.Get("sort") != "asc" || q.Get("adjusted") != "true" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"OK","resultsCount":2,"results":[
			{"o":5900,"h":5950,"l":5880,"c":5942.47,"t":1736139600000},
			{"o":5880,"h":5900,"l":5850,"c":5868.55,"v":0,"t":1736053200000}]}`))
	}))
	defer srv.Close()

	c := New(xhttp.NewClient(xhttp.WithTimeout(time.Second)), srv.URL, "secret", "I:SPX", nil)
	start := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	bars, err := c.Bars(context.Background(), "^GSPC", start, start.AddDate(0, 0, 8))
	if err != nil {
		t.Fatalf("bars: %v", err)
	}
	if len(bars) != 2 || bars[0].Close != 5868.55 || bars[1].Close != 5942.47 {
		t.Fatalf("unexpected bars %+v", bars)
	}
	if !bars[1].Timestamp.Equal(time.UnixMilli(1736139600000)) {
		t.Fatalf("unexpected timestamp %v", bars[1].Timestamp)
	}
}

func TestBarsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ERROR","error":"Unknown API Key"}`))
	}))
	defer srv.Close()

	c := New(xhttp.NewClient(), srv.URL, "bad", "", nil)
	if _, err := c.Bars(context.Background(), "I:SPX", time.Now(), time.Now()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestBarsHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(xhttp.NewClient(), srv.URL, "k", "", nil)
	if _, err := c.Bars(context.Background(), "I:SPX", time.Now(), time.Now()); err == nil {
		t.Fatalf("expected error")
	}
}
