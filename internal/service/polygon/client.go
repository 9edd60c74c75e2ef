package polygon

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"SPPredict/internal/domain/models"
	xhttp "SPPredict/pkg/http"
	applogger "SPPredict/pkg/logger"
)

const dateLayout = "2006-01-02"

// Client fetches daily aggregates from the Polygon REST API.
type Client struct {
	http    *xhttp.Client
	baseURL string
	apiKey  string
	ticker  string
	logger  *applogger.Logger
}

// New creates a client. When ticker is set it replaces the requested symbol, since
// Polygon names indices differently (I:SPX for ^GSPC).
func New(http *xhttp.Client, baseURL, apiKey, ticker string, logger *applogger.Logger) *Client {
	if logger == nil {
		logger = applogger.NewNop()
	}
	return &Client{http: http, baseURL: baseURL, apiKey: apiKey, ticker: ticker, logger: logger}
}

func (c *Client) Name() string { return "polygon" }

type aggsResponse struct {
	Status       string `json:"status"`
	Error        string `json:"error"`
	ResultsCount int    `json:"resultsCount"`
	Results      []struct {
		O float64 `json:"o"`
		H float64 `json:"h"`
		L float64 `json:"l"`
		C float64 `json:"c"`
		V float64 `json:"v"`
		T int64   `json:"t"` // ms
	} `json:"results"`
}

func (c *Client) Bars(ctx context.Context, symbol string, start, end time.Time) ([]models.Bar, error) {
	ticker := c.ticker
	if ticker == "" {
		ticker = symbol
	}
	u := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/1/day/%s/%s",
		c.baseURL, url.PathEscape(ticker), start.Format(dateLayout), end.Format(dateLayout))

	var resp aggsResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    u,
		QueryParams: map[string][]string{
			"adjusted": {"true"},
			"sort":     {"asc"},
			"limit":    {"50000"},
			"apiKey":   {c.apiKey},
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("polygon aggs %s: %w", ticker, err)
	}
	if resp.Status == "ERROR" || resp.Error != "" {
		return nil, fmt.Errorf("polygon aggs %s: %s", ticker, resp.Error)
	}

	out := make([]models.Bar, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, models.Bar{
			Timestamp: time.UnixMilli(r.T).UTC(),
			Open:      r.O,
			High:      r.H,
			Low:       r.L,
			Close:     r.C,
			Volume:    r.V,
		})
	}
	c.logger.Debug("polygon bars fetched",
		applogger.String("ticker", ticker),
		applogger.Int("bars", len(out)),
	)
	return models.NormalizeBars(out), nil
}
