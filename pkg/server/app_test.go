package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"SPPredict/pkg/config"
)

type fakeServer struct {
	mu      sync.Mutex
	events  *[]string
	errCh   chan error
	started bool
}

func (s *fakeServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
	*s.events = append(*s.events, "start")
	return nil
}

func (s *fakeServer) Errors() <-chan error { return s.errCh }

func (s *fakeServer) Stop(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.events = append(*s.events, "stop")
	return nil
}

type fakeModel struct {
	calls int
	err   error
}

func (m *fakeModel) Load(context.Context) error {
	m.calls++
	return m.err
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(t.TempDir() + "/missing.yaml")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.Server.ShutdownTimeout = time.Second
	return cfg
}

func closer(events *[]string, name string, err error) Closer {
	return Closer{Name: name, Close: func() error {
		*events = append(*events, name)
		return err
	}}
}

func TestRunContextShutsDownInOrder(t *testing.T) {
	var events []string
	srv := &fakeServer{events: &events, errCh: make(chan error, 1)}
	model := &fakeModel{err: errors.New("s3 down")}

	app := New(testConfig(t), nil, srv, model, nil,
		closer(&events, "collector", nil),
		closer(&events, "producer", errors.New("already closed")),
		closer(&events, "cache", nil),
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := app.RunContext(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	if model.calls != 1 {
		t.Fatalf("expected one preload attempt, got %d", model.calls)
	}
	want := []string{"start", "stop", "collector", "producer", "cache"}
	if len(events) != len(want) {
		t.Fatalf("events = %v", events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("events = %v, want %v", events, want)
		}
	}
}

func TestRunContextReturnsListenError(t *testing.T) {
	var events []string
	srv := &fakeServer{events: &events, errCh: make(chan error, 1)}
	srv.errCh <- errors.New("address in use")

	cfg := testConfig(t)
	cfg.Model.Preload = false
	model := &fakeModel{}

	err := New(cfg, nil, srv, model, nil).RunContext(context.Background())
	if err == nil {
		t.Fatalf("expected listen error")
	}
	if model.calls != 0 {
		t.Fatalf("preload disabled but model loaded %d times", model.calls)
	}
	if events[len(events)-1] != "stop" {
		t.Fatalf("server not stopped: %v", events)
	}
}

type countingPruner struct {
	mu    sync.Mutex
	calls int
}

func (p *countingPruner) Prune(time.Duration) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return 1
}

func (p *countingPruner) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func TestPruneRunsUntilCancelled(t *testing.T) {
	p := &countingPruner{}
	app := New(testConfig(t), nil, nil, nil, p)
	app.pruneEvery = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.prune(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for p.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
	if p.count() < 2 {
		t.Fatalf("expected periodic prunes, got %d", p.count())
	}
}
