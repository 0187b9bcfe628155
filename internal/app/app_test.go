package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/polkiloo/bitlend/internal/config"
	testhelpers "github.com/polkiloo/bitlend/internal/test"
	"github.com/polkiloo/bitlend/internal/worker"
)

func newTestJanitor(t *testing.T, purger worker.SessionPurger) *worker.SessionJanitor {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	janitor, err := worker.NewSessionJanitor(purger, "@every 1h", logger)
	if err != nil {
		t.Fatalf("new janitor: %v", err)
	}
	return janitor
}

func TestNewHTTPServer(t *testing.T) {
	cfg := &config.Config{RunAddress: ":9999"}
	router := gin.New()
	server := newHTTPServer(serverParams{Config: cfg, Router: router})
	if server.Addr != ":9999" {
		t.Fatalf("expected address :9999, got %q", server.Addr)
	}
	if server.Handler != router {
		t.Fatalf("expected handler to be router")
	}
	if server.ReadHeaderTimeout <= 0 {
		t.Fatal("expected read header timeout to be set")
	}
}

func TestNewSessionJanitorUsesConfig(t *testing.T) {
	facade, _ := newFacade()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	janitor, err := newSessionJanitor(janitorParams{
		Facade: facade,
		Config: &config.Config{SessionSweepSchedule: "@every 5m"},
		Logger: logger,
	})
	if err != nil || janitor == nil {
		t.Fatalf("expected janitor instance, got %v", err)
	}

	if _, err := newSessionJanitor(janitorParams{
		Facade: facade,
		Config: &config.Config{SessionSweepSchedule: "sometimes"},
		Logger: logger,
	}); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestRegisterLifecycleStartStop(t *testing.T) {
	recorder := &testhelpers.LifecycleRecorder{}
	shutdowner := &testhelpers.ShutdownerStub{Called: make(chan struct{}, 1)}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	server := &http.Server{Addr: "127.0.0.1:0", Handler: http.NewServeMux()}
	cfg := &config.Config{ShutdownTimeout: 100 * time.Millisecond}

	registerLifecycle(lifecycleParams{
		Lifecycle:  recorder,
		Shutdowner: shutdowner,
		Logger:     logger,
		Server:     server,
		Janitor:    newTestJanitor(t, &testhelpers.JanitorFacadeStub{}),
		Config:     cfg,
	})

	if len(recorder.Hooks) != 1 {
		t.Fatalf("expected one hook registered, got %d", len(recorder.Hooks))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := recorder.Start(ctx); err != nil {
		t.Fatalf("on start failed: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- recorder.Stop(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("on stop failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("expected on stop to finish")
	}

	if shutdowner.Count() != 0 {
		t.Fatal("clean stop must not request shutdown")
	}
}

func TestRegisterLifecycleShutdownOnServerError(t *testing.T) {
	recorder := &testhelpers.LifecycleRecorder{}
	shutdowner := &testhelpers.ShutdownerStub{Called: make(chan struct{}, 1)}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	server := &http.Server{Addr: "bad addr"}

	registerLifecycle(lifecycleParams{
		Lifecycle:  recorder,
		Shutdowner: shutdowner,
		Logger:     logger,
		Server:     server,
		Janitor:    newTestJanitor(t, &testhelpers.JanitorFacadeStub{}),
		Config:     &config.Config{ShutdownTimeout: time.Second},
	})

	if err := recorder.Start(context.Background()); err != nil {
		t.Fatalf("on start returned error: %v", err)
	}

	select {
	case <-shutdowner.Called:
	case <-time.After(time.Second):
		t.Fatal("expected shutdown to be triggered on server error")
	}

	_ = recorder.Stop(context.Background())
}

func TestLifecycleRecorderOrdersHooks(t *testing.T) {
	recorder := &testhelpers.LifecycleRecorder{}
	var calls []string
	for _, name := range []string{"first", "second"} {
		recorder.Append(fx.Hook{
			OnStart: func(context.Context) error { calls = append(calls, "start "+name); return nil },
			OnStop:  func(context.Context) error { calls = append(calls, "stop "+name); return nil },
		})
	}
	recorder.Append(fx.Hook{})

	if err := recorder.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := recorder.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
	want := []string{"start first", "start second", "stop second", "stop first"}
	if len(calls) != len(want) {
		t.Fatalf("expected %v, got %v", want, calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, calls)
		}
	}
}

func TestShutdownerStub(t *testing.T) {
	shutdowner := &testhelpers.ShutdownerStub{Called: make(chan struct{}, 1)}
	if err := shutdowner.Shutdown(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = shutdowner.Shutdown()
	select {
	case <-shutdowner.Called:
	default:
		t.Fatal("expected shutdown notification")
	}
	if shutdowner.Count() != 2 {
		t.Fatalf("expected 2 shutdown requests, got %d", shutdowner.Count())
	}
}
