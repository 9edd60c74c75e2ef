package objectstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileStoreGet(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "model.json"), []byte(`{"learner":{}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewFileStore(dir, 0)

	data, err := s.Get(context.Background(), "ignored", "model.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(data) != `{"learner":{}}` {
		t.Fatalf("unexpected body %q", data)
	}

	if _, err := s.Get(context.Background(), "", "missing.json"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Get(context.Background(), "", "../etc/passwd"); err == nil {
		t.Fatalf("expected traversal to be rejected")
	}
}

func TestFileStoreSizeCap(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "big"), []byte(strings.Repeat("x", 64)), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(dir, 63).Get(context.Background(), "", "big"); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if _, err := NewFileStore(dir, 64).Get(context.Background(), "", "big"); err != nil {
		t.Fatalf("exact size should pass: %v", err)
	}
}

func TestFileStoreHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewFileStore(t.TempDir(), 0).Get(ctx, "", "x"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
