package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
)

type captureWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *captureWriter) Close() error {
	w.closed = true
	return nil
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	if _, err := NewProducer(); err == nil {
		t.Fatalf("expected error without brokers")
	}
}

func TestPublishEncodesJSONWithKey(t *testing.T) {
	w := &captureWriter{}
	p := NewProducerWithWriter(w, "gzip")

	err := p.Publish(context.Background(), "predictions", []byte("^GSPC"), map[string]float64{"prediction": 0.7})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}
	m := w.msgs[0]
	if m.Topic != "predictions" || string(m.Key) != "^GSPC" {
		t.Fatalf("unexpected topic/key %s/%s", m.Topic, m.Key)
	}
	var body map[string]float64
	if err := json.Unmarshal(m.Value, &body); err != nil || body["prediction"] != 0.7 {
		t.Fatalf("unexpected body %s (%v)", m.Value, err)
	}
}

func TestPublishPassesRawBytesThrough(t *testing.T) {
	w := &captureWriter{}
	p := NewProducerWithWriter(w, "gzip")
	_ = p.PublishMessage(context.Background(), "logs", "plain")
	if string(w.msgs[0].Value) != "plain" || w.msgs[0].Key != nil {
		t.Fatalf("unexpected message %+v", w.msgs[0])
	}
}

func TestPublishWrapsWriterError(t *testing.T) {
	w := &captureWriter{err: errors.New("leader not available")}
	p := NewProducerWithWriter(w, "gzip")
	err := p.Publish(context.Background(), "predictions", nil, "x")
	if err == nil || !errors.Is(err, w.err) {
		t.Fatalf("expected wrapped writer error, got %v", err)
	}
	_ = p.Close()
	if !w.closed {
		t.Fatalf("close not forwarded")
	}
}

func TestParseCompression(t *testing.T) {
	cases := map[string]kafka.Compression{
		"gzip":   kafka.Gzip,
		"snappy": kafka.Snappy,
		"lz4":    kafka.Lz4,
		"zstd":   kafka.Zstd,
		"":       kafka.Gzip,
	}
	for in, want := range cases {
		if got := parseCompression(in); got != want {
			t.Errorf("parseCompression(%q) = %v, want %v", in, got, want)
		}
	}
}
