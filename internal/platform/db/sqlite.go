package db

import (
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// WAL journal mode with a 5s busy timeout.
const sqliteConnOpts = "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

// OpenSQLite opens a single-file database for local runs. SQLite serializes
// writers, so the pool is pinned to one connection.
func OpenSQLite(path string) (*Database, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := gorm.Open(
		sqlite.Open(fmt.Sprintf("file:%s?%s", path, sqliteConnOpts)),
		&gorm.Config{Logger: gormlogger.Discard},
	)
	if err != nil {
		return nil, fmt.Errorf("open gorm sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("resolve sqlite sql db handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("install gorm tracing: %w", err)
	}
	return &Database{DB: db, Driver: "sqlite"}, nil
}
