package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phacogen-next/internal/config"
)

type fakeService struct {
	name     string
	startErr error
	exitNow  bool
	stopped  atomic.Int32
	done     chan struct{}
}

func newFakeService(name string) *fakeService {
	return &fakeService{name: name, done: make(chan struct{})}
}

func (s *fakeService) Name() string { return s.name }

func (s *fakeService) Start(ctx context.Context) error {
	if s.startErr != nil || s.exitNow {
		return s.startErr
	}
	select {
	case <-ctx.Done():
	case <-s.done:
	}
	return nil
}

func (s *fakeService) Stop(context.Context) error {
	if s.stopped.Add(1) == 1 {
		close(s.done)
	}
	return nil
}

func runWithDeadline(t *testing.T, fn func() error) error {
	t.Helper()
	result := make(chan error, 1)
	go func() { result <- fn() }()
	select {
	case err := <-result:
		return err
	case <-time.After(3 * time.Second):
		t.Fatalf("runner did not return in time")
		return nil
	}
}

func TestRunnerStopsAllOnCancel(t *testing.T) {
	api := newFakeService("http")
	sweeps := newFakeService("sweep")
	runner := NewRunner(api, sweeps)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	err := runWithDeadline(t, func() error { return runner.Run(ctx, time.Second, nil) })
	if err != nil {
		t.Fatalf("cancel should end cleanly, got %v", err)
	}
	if api.stopped.Load() != 1 || sweeps.stopped.Load() != 1 {
		t.Fatalf("every service should be stopped once: http=%d sweep=%d", api.stopped.Load(), sweeps.stopped.Load())
	}
}

func TestRunnerReturnsStartFailure(t *testing.T) {
	broken := newFakeService("worker")
	broken.startErr = errors.New("redis unreachable")
	healthy := newFakeService("http")
	runner := NewRunner(healthy, broken)

	err := runWithDeadline(t, func() error { return runner.Run(context.Background(), time.Second, nil) })
	if err == nil || !errors.Is(err, broken.startErr) {
		t.Fatalf("start failure should be returned, got %v", err)
	}
	if healthy.stopped.Load() != 1 {
		t.Fatalf("healthy service should be stopped after peer failure")
	}
}

func TestRunnerTreatsEarlyExitAsShutdown(t *testing.T) {
	quitter := newFakeService("sweep")
	quitter.exitNow = true
	api := newFakeService("http")
	runner := NewRunner(api, quitter)

	if err := runWithDeadline(t, func() error { return runner.Run(context.Background(), time.Second, nil) }); err != nil {
		t.Fatalf("clean early exit should not be an error, got %v", err)
	}
	if api.stopped.Load() != 1 {
		t.Fatalf("peers should be stopped after a service exits")
	}
}

func TestRunnerRejectsEmptyOrNil(t *testing.T) {
	if err := NewRunner().Run(context.Background(), time.Second, nil); err == nil {
		t.Fatalf("empty runner should fail")
	}
	if err := NewRunner(nil).Run(context.Background(), time.Second, nil); err == nil {
		t.Fatalf("nil service should fail")
	}
	if err := RunWithOptions(nil, Options{}); err == nil {
		t.Fatalf("nil runner should fail")
	}
}

func TestNormalizeOptionsDefaults(t *testing.T) {
	opts := normalizeOptions(Options{Config: &config.Config{}})
	if opts.Mode != ModeAll || opts.ShutdownTimeout != 10*time.Second || opts.Logger == nil {
		t.Fatalf("unexpected defaults: %+v", opts)
	}
}

func TestHTTPServiceLifecycle(t *testing.T) {
	svc := NewHTTPService(config.ServerConfig{Host: "127.0.0.1", Port: "0"}, http.NotFoundHandler())
	if svc.Name() != "http" {
		t.Fatalf("unexpected name %q", svc.Name())
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner := NewRunner(svc)
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	if err := runWithDeadline(t, func() error { return runner.Run(ctx, time.Second, nil) }); err != nil {
		t.Fatalf("http service should shut down cleanly, got %v", err)
	}
}

func TestHTTPServiceListenFailure(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port failed: %v", err)
	}
	defer busy.Close()
	_, port, _ := net.SplitHostPort(busy.Addr().String())

	svc := NewHTTPService(config.ServerConfig{Host: "127.0.0.1", Port: port}, http.NotFoundHandler())
	if err := svc.Start(context.Background()); err == nil {
		t.Fatalf("start on a busy port should fail")
	}
}

func TestParseMode(t *testing.T) {
	cases := map[string]string{"": ModeAll, " API ": ModeAPI, "worker": ModeWorker, "all": ModeAll}
	for raw, want := range cases {
		got, err := ParseMode(raw)
		if err != nil || got != want {
			t.Fatalf("ParseMode(%q) = %q, %v; want %q", raw, got, err, want)
		}
	}
	if _, err := ParseMode("scheduler"); err == nil {
		t.Fatalf("unknown mode should be rejected")
	}
}
