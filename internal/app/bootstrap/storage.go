package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"crystalgive/contexts/crowdfunding/escrow-service/adapters/memory"
	postgresadapter "crystalgive/contexts/crowdfunding/escrow-service/adapters/postgres"
	"crystalgive/contexts/crowdfunding/escrow-service/ports"
	"crystalgive/internal/platform/config"
	"crystalgive/internal/platform/db"
)

// storage is the driver-specific port set shared by the API and worker.
type storage struct {
	units    ports.UnitOfWork
	reader   ports.SnapshotReader
	outbox   ports.OutboxRepository
	clock    ports.Clock
	ids      ports.IDGenerator
	database *db.Database
	memory   *memory.Store
}

func (s storage) Close() error {
	return s.database.Close()
}

func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage, error) {
	if cfg.DatabaseDriver == config.DriverMemory {
		store := memory.NewStore(logger)
		return storage{
			units:  store,
			reader: store,
			outbox: store,
			clock:  store,
			ids:    store,
			memory: store,
		}, nil
	}

	database, err := openDatabase(cfg)
	if err != nil {
		return storage{}, err
	}
	repo := postgresadapter.NewRepository(database.DB, logger)
	if cfg.DatabaseDriver == config.DriverSQLite {
		if err := repo.Migrate(ctx); err != nil {
			_ = database.Close()
			return storage{}, fmt.Errorf("migrate sqlite schema: %w", err)
		}
	}
	return storage{
		units:    repo,
		reader:   repo,
		outbox:   repo,
		clock:    postgresadapter.SystemClock{},
		ids:      postgresadapter.UUIDGenerator{},
		database: database,
	}, nil
}

func openDatabase(cfg *config.Config) (*db.Database, error) {
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		return db.Connect(cfg.PostgresDSN)
	case config.DriverSQLite:
		return db.OpenSQLite(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("driver %q has no database", cfg.DatabaseDriver)
	}
}

// Migrate creates or updates the escrow schema for the configured SQL driver.
func Migrate(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if !cfg.UsesSQL() {
		return fmt.Errorf("driver %q has no schema to migrate", cfg.DatabaseDriver)
	}
	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = database.Close()
	}()

	if err := postgresadapter.NewRepository(database.DB, logger).Migrate(ctx); err != nil {
		return fmt.Errorf("migrate %s schema: %w", cfg.DatabaseDriver, err)
	}
	logger.Info("escrow schema migrated",
		"event", "bootstrap_schema_migrated",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"driver", cfg.DatabaseDriver,
	)
	return nil
}
