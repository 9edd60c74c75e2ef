package yahoo

import (
	"context"
	"fmt"
	"time"

	"SPPredict/internal/domain/models"
	applogger "SPPredict/pkg/logger"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
)

// Client fetches daily bars from Yahoo Finance.
type Client struct {
	logger *applogger.Logger
	fetch  func(p *chart.Params) ([]*finance.ChartBar, error)
}

func New(logger *applogger.Logger) *Client {
	if logger == nil {
		logger = applogger.NewNop()
	}
	return &Client{logger: logger, fetch: fetchChart}
}

func (c *Client) Name() string { return "yahoo" }

// Bars returns daily bars in [start, end]. The chart library has no context support,
// so the call runs in its own goroutine and is abandoned when ctx ends.
func (c *Client) Bars(ctx context.Context, symbol string, start, end time.Time) ([]models.Bar, error) {
	params := &chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}

	type result struct {
		bars []*finance.ChartBar
		err  error
	}
	done := make(chan result, 1)
	go func() {
		bars, err := c.fetch(params)
		done <- result{bars, err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, ctx.Err())
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("yahoo chart %s: %w", symbol, r.err)
		}
		out := make([]models.Bar, 0, len(r.bars))
		for _, b := range r.bars {
			out = append(out, toBar(b))
		}
		c.logger.Debug("yahoo bars fetched",
			applogger.String("symbol", symbol),
			applogger.Int("bars", len(out)),
		)
		return models.NormalizeBars(out), nil
	}
}

func fetchChart(p *chart.Params) ([]*finance.ChartBar, error) {
	iter := chart.Get(p)
	var bars []*finance.ChartBar
	for iter.Next() {
		bars = append(bars, iter.Bar())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return bars, nil
}

func toBar(b *finance.ChartBar) models.Bar {
	return models.Bar{
		Timestamp: time.Unix(int64(b.Timestamp), 0).UTC(),
		Open:      b.Open.InexactFloat64(),
		High:      b.High.InexactFloat64(),
		Low:       b.Low.InexactFloat64(),
		Close:     b.Close.InexactFloat64(),
		Volume:    float64(b.Volume),
	}
}
