package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	escrowservice "crystalgive/contexts/crowdfunding/escrow-service"
	metricsadapter "crystalgive/contexts/crowdfunding/escrow-service/adapters/metrics"
	"crystalgive/contexts/crowdfunding/escrow-service/application/workers"
	contractsv1 "crystalgive/contracts/gen/events/v1"
	"crystalgive/internal/platform/config"
	"crystalgive/internal/platform/httpserver"
	"crystalgive/internal/platform/messaging"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server          *httpserver.Server
	storage         storage
	relay           *workers.OutboxRelay
	pollInterval    time.Duration
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

type WorkerApp struct {
	storage      storage
	bus          *messaging.Bus
	outboxRelay  workers.OutboxRelay
	pollInterval time.Duration
	logger       *slog.Logger
}

func BuildAPI(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*APIApp, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("service", cfg.ServiceName, "process", "api")

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var gatherer prometheus.Gatherer
	deps := escrowservice.Dependencies{
		Units:          store.units,
		Reader:         store.reader,
		Clock:          store.clock,
		IDGenerator:    store.ids,
		IdempotencyTTL: cfg.IdempotencyTTL,
		Logger:         logger,
	}
	if cfg.MetricsEnabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		deps.Metrics = metricsadapter.NewPrometheus(registry)
		gatherer = registry
	}
	module := escrowservice.NewModule(deps)
	module.Store = store.memory

	app := &APIApp{
		server:          httpserver.New(module, gatherer, logger, normalizeAddr(cfg.HTTPPort)),
		storage:         store,
		pollInterval:    cfg.OutboxPollInterval,
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          logger,
	}

	// The in-memory event log is private to this process, so the relay runs here.
	if store.memory != nil {
		bus, err := messaging.NewBus(cfg.KafkaBrokers, logger)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		app.relay = &workers.OutboxRelay{
			Outbox:    store.outbox,
			Publisher: bus,
			Clock:     store.clock,
			Topic:     outboxTopic(cfg),
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		}
	}
	return app, nil
}

func BuildWorker(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*WorkerApp, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("service", cfg.ServiceName, "process", "worker")
	if !cfg.UsesSQL() {
		return nil, errors.New("worker requires the postgres or sqlite driver; the memory driver relays inside the api process")
	}

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	bus, err := messaging.NewBus(cfg.KafkaBrokers, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &WorkerApp{
		storage: store,
		bus:     bus,
		outboxRelay: workers.OutboxRelay{
			Outbox:    store.outbox,
			Publisher: bus,
			Clock:     store.clock,
			Topic:     outboxTopic(cfg),
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		},
		pollInterval: cfg.OutboxPollInterval,
		logger:       logger,
	}, nil
}

func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"inline_relay", a.relay != nil,
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return a.server.Run(groupCtx, a.shutdownTimeout)
	})
	if a.relay != nil {
		relay := *a.relay
		group.Go(func() error {
			return relay.Run(groupCtx, a.pollInterval)
		})
	}
	return group.Wait()
}

func (a *APIApp) Close() error {
	return a.storage.Close()
}

func (w *WorkerApp) Run(ctx context.Context) error {
	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
		"brokers", strings.Join(w.bus.Brokers(), ","),
	)

	err := w.bus.Subscribe(ctx, w.outboxRelay.Topic, "escrow-relay-audit", func(_ context.Context, event contractsv1.Envelope) error {
		w.logger.Debug("escrow event relayed",
			"event", "bootstrap_event_relayed",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"event_id", event.EventID,
			"event_type", event.EventType,
			"partition_key", event.PartitionKey,
		)
		return nil
	})
	if err != nil {
		return err
	}
	return w.outboxRelay.Run(ctx, w.pollInterval)
}

func (w *WorkerApp) Close() error {
	return w.storage.Close()
}

func outboxTopic(cfg *config.Config) string {
	if topic := strings.TrimSpace(cfg.OutboxTopic); topic != "" {
		return topic
	}
	return workers.DefaultTopic
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
