package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"crystalgive/internal/platform/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNormalizeAddr(t *testing.T) {
	cases := map[string]string{"": ":8080", "9000": ":9000", ":7000": ":7000", " 81 ": ":81"}
	for in, want := range cases {
		if got := normalizeAddr(in); got != want {
			t.Fatalf("normalizeAddr(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildWorkerRequiresSQLDriver(t *testing.T) {
	cfg := config.Defaults()
	if _, err := BuildWorker(context.Background(), cfg, testLogger()); err == nil {
		t.Fatalf("expected memory driver to be rejected for the worker")
	}
}

func TestMigrateRequiresSQLDriver(t *testing.T) {
	if err := Migrate(context.Background(), config.Defaults(), testLogger()); err == nil {
		t.Fatalf("expected memory driver to have nothing to migrate")
	}
}

func TestInMemoryAPIRunsInlineRelayAndStops(t *testing.T) {
	cfg := config.Defaults()
	cfg.HTTPPort = "0"
	cfg.OutboxPollInterval = 10 * time.Millisecond
	cfg.ShutdownTimeout = time.Second

	app, err := BuildAPI(context.Background(), cfg, testLogger())
	if err != nil {
		t.Fatalf("build api: %v", err)
	}
	defer func() {
		_ = app.Close()
	}()
	if app.relay == nil || app.storage.memory == nil {
		t.Fatalf("expected memory build to carry an inline relay")
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/campaigns", strings.NewReader(`{"title":"roof","target":"10"}`))
	req.Header.Set("X-User-Id", "0x1000000000000000000000000000000000000001")
	rr := httptest.NewRecorder()
	app.server.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- app.Run(ctx)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		pending, err := app.storage.outbox.ListUnpublishedEvents(context.Background(), 10)
		if err != nil {
			t.Fatalf("list unpublished: %v", err)
		}
		if len(pending) == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("relay did not publish the campaign event")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("api did not stop after cancel")
	}
}

func TestSQLiteWorkerRelaysCommittedEvents(t *testing.T) {
	cfg := config.Defaults()
	cfg.DatabaseDriver = config.DriverSQLite
	cfg.SQLitePath = filepath.Join(t.TempDir(), "escrow.db")
	cfg.MetricsEnabled = false

	api, err := BuildAPI(context.Background(), cfg, testLogger())
	if err != nil {
		t.Fatalf("build api: %v", err)
	}
	defer func() {
		_ = api.Close()
	}()
	if api.relay != nil {
		t.Fatalf("sql builds relay from the worker process")
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/campaigns", strings.NewReader(`{"title":"roof","target":"10"}`))
	req.Header.Set("X-User-Id", "0x1000000000000000000000000000000000000001")
	rr := httptest.NewRecorder()
	api.server.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}

	worker, err := BuildWorker(context.Background(), cfg, testLogger())
	if err != nil {
		t.Fatalf("build worker: %v", err)
	}
	defer func() {
		_ = worker.Close()
	}()

	sent, err := worker.outboxRelay.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("relay: %v", err)
	}
	if sent != 1 {
		t.Fatalf("expected 1 relayed event, got %d", sent)
	}
	sent, err = worker.outboxRelay.RunOnce(context.Background())
	if err != nil || sent != 0 {
		t.Fatalf("expected nothing left to relay, sent=%d err=%v", sent, err)
	}
}
