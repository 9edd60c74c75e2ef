package repository

import (
	"context"
	"database/sql"
	"fmt"

	"SPPredict/internal/domain/models"
	pkgch "SPPredict/pkg/clickhouse"
	applogger "SPPredict/pkg/logger"
)

const predictionsTable = "predictions"

type sqlDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// PredictionSchema returns the idempotent DDL for the history table.
func PredictionSchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
            id           String,
            symbol       LowCardinality(String),
            created_at   DateTime64(3, 'UTC'),
            price        Float64,
            prediction   Float64,
            confidence   Float64,
            direction    LowCardinality(String),
            target_price Float64,
            model        LowCardinality(String)
        ) ENGINE = MergeTree
        ORDER BY (symbol, created_at)`, database, predictionsTable),
	}
}

// CHPredictionHistory implements PredictionHistory backed by ClickHouse.
type CHPredictionHistory struct {
	db    sqlDB
	table string
	l     *applogger.Logger
}

func NewCHPredictionHistory(ch *pkgch.Client, database string, l *applogger.Logger) *CHPredictionHistory {
	return newCHPredictionHistory(ch.DB(), database, l)
}

func newCHPredictionHistory(db sqlDB, database string, l *applogger.Logger) *CHPredictionHistory {
	if l == nil {
		l = applogger.NewNop()
	}
	return &CHPredictionHistory{db: db, table: database + "." + predictionsTable, l: l}
}

func (h *CHPredictionHistory) Record(ctx context.Context, ev *models.PredictionEvent) error {
	q := fmt.Sprintf(`INSERT INTO %s (id, symbol, created_at, price, prediction, confidence, direction, target_price, model)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, h.table)
	_, err := h.db.ExecContext(ctx, q,
		ev.ID,
		ev.Symbol,
		ev.CreatedAt,
		ev.Price,
		ev.Prediction,
		ev.Confidence,
		ev.Direction,
		ev.TargetPrice,
		ev.Model,
	)
	if err != nil {
		h.l.Error("clickhouse record_prediction error", applogger.String("id", ev.ID), applogger.Error(err))
		return fmt.Errorf("record prediction: %w", err)
	}
	return nil
}

// Recent returns the newest predictions first.
func (h *CHPredictionHistory) Recent(ctx context.Context, symbol string, limit int) ([]models.PredictionEvent, error) {
	q := fmt.Sprintf(`SELECT id, symbol, created_at, price, prediction, confidence, direction, target_price, model
        FROM %s
        WHERE symbol = ?
        ORDER BY created_at DESC
        LIMIT ?`, h.table)
	rows, err := h.db.QueryContext(ctx, q, symbol, limit)
	if err != nil {
		h.l.Error("clickhouse recent_predictions query error", applogger.String("symbol", symbol), applogger.Error(err))
		return nil, fmt.Errorf("recent predictions: %w", err)
	}
	defer rows.Close()

	out := make([]models.PredictionEvent, 0, limit)
	for rows.Next() {
		var ev models.PredictionEvent
		if err := rows.Scan(&ev.ID, &ev.Symbol, &ev.CreatedAt, &ev.Price, &ev.Prediction, &ev.Confidence, &ev.Direction, &ev.TargetPrice, &ev.Model); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

// Close is a no-op; the pool is owned by pkg/clickhouse.Client.
func (h *CHPredictionHistory) Close() error { return nil }

// DisabledHistory is used when ClickHouse is switched off.
type DisabledHistory struct{}

func (DisabledHistory) Record(context.Context, *models.PredictionEvent) error {
	return models.ErrDisabled
}

func (DisabledHistory) Recent(context.Context, string, int) ([]models.PredictionEvent, error) {
	return nil, models.ErrDisabled
}

func (DisabledHistory) Close() error { return nil }
