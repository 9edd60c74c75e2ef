package models

// HistoricalRequest is bound from query params of GET /api/market/historical.
type HistoricalRequest struct {
	Period string `query:"period" default:"1mo" validate:"oneof=1d 5d 1mo 3mo 6mo 1y 2y 5y 10y ytd max"`
}

// HistoryRequest is bound from query params of GET /api/prediction/history.
type HistoryRequest struct {
	Limit int `query:"limit" default:"20" validate:"gte=1,lte=500"`
}
