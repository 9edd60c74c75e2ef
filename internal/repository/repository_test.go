package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"SPPredict/internal/domain/models"
	pkgkafka "SPPredict/pkg/kafka"

	"github.com/segmentio/kafka-go"
)

type captureWriter struct {
	msgs []kafka.Message
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *captureWriter) Close() error { return nil }

func sampleEvent() *models.PredictionEvent {
	return &models.PredictionEvent{
		ID:          "3f1c",
		Symbol:      "^GSPC",
		CreatedAt:   time.Date(2025, 3, 14, 16, 0, 0, 0, time.UTC),
		Price:       5000,
		Prediction:  0.7,
		Confidence:  0.8,
		Direction:   "up",
		TargetPrice: 5100,
		Model:       "xgboost-json",
	}
}

func TestKafkaPublisherWrapsEventInEnvelope(t *testing.T) {
	w := &captureWriter{}
	pub := NewKafkaPredictionPublisher(pkgkafka.NewProducerWithWriter(w, "gzip"), "predictions")

	if err := pub.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(w.msgs) != 1 || string(w.msgs[0].Key) != "^GSPC" || w.msgs[0].Topic != "predictions" {
		t.Fatalf("unexpected messages %+v", w.msgs)
	}
	var env struct {
		Type string                 `json:"type"`
		Data models.PredictionEvent `json:"data"`
	}
	if err := json.Unmarshal(w.msgs[0].Value, &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Type != EventPredictionCreated || env.Data.ID != "3f1c" || env.Data.TargetPrice != 5100 {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

type execCall struct {
	query string
	args  []any
}

type fakeDB struct {
	execs []execCall
	err   error
}

func (f *fakeDB) ExecContext(_ context.Context, query string, args ...any) (sql.Result, error) {
	f.execs = append(f.execs, execCall{query, args})
	return nil, f.err
}

func (f *fakeDB) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errors.New("not supported")
}

func TestCHHistoryRecordInsertsAllColumns(t *testing.T) {
	db := &fakeDB{}
	h := newCHPredictionHistory(db, "sppredict", nil)

	if err := h.Record(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(db.execs) != 1 {
		t.Fatalf("expected one insert, got %d", len(db.execs))
	}
	call := db.execs[0]
	if !strings.Contains(call.query, "INSERT INTO sppredict.predictions") {
		t.Fatalf("unexpected query %s", call.query)
	}
	if len(call.args) != 9 || call.args[0] != "3f1c" || call.args[8] != "xgboost-json" {
		t.Fatalf("unexpected args %v", call.args)
	}
}

func TestCHHistoryWrapsErrors(t *testing.T) {
	h := newCHPredictionHistory(&fakeDB{err: errors.New("timeout")}, "sppredict", nil)
	if err := h.Record(context.Background(), sampleEvent()); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := h.Recent(context.Background(), "^GSPC", 5); err == nil {
		t.Fatalf("expected query error")
	}
}

func TestPredictionSchemaIsIdempotent(t *testing.T) {
	stmts := PredictionSchema("sppredict")
	if len(stmts) != 2 {
		t.Fatalf("expected database and table statements, got %d", len(stmts))
	}
	for _, s := range stmts {
		if !strings.Contains(s, "IF NOT EXISTS") {
			t.Fatalf("statement is not idempotent: %s", s)
		}
	}
}

func TestDisabledHistory(t *testing.T) {
	var h DisabledHistory
	if err := h.Record(context.Background(), sampleEvent()); !errors.Is(err, models.ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
	if _, err := h.Recent(context.Background(), "^GSPC", 1); !errors.Is(err, models.ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}
