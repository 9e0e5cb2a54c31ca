package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "crystalgive.config"

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName        string        `yaml:"serviceName"        envconfig:"SERVICE_NAME"`
	HTTPPort           string        `yaml:"httpPort"           envconfig:"HTTP_PORT"`
	DatabaseDriver     string        `yaml:"databaseDriver"     envconfig:"DATABASE_DRIVER"`
	PostgresDSN        string        `yaml:"postgresDsn"        envconfig:"POSTGRES_DSN"`
	SQLitePath         string        `yaml:"sqlitePath"         envconfig:"SQLITE_PATH"`
	KafkaBrokers       []string      `yaml:"kafkaBrokers"       envconfig:"KAFKA_BROKERS"`
	OutboxTopic        string        `yaml:"outboxTopic"        envconfig:"OUTBOX_TOPIC"`
	OutboxPollInterval time.Duration `yaml:"outboxPollInterval" envconfig:"OUTBOX_POLL_INTERVAL"`
	OutboxBatchSize    int           `yaml:"outboxBatchSize"    envconfig:"OUTBOX_BATCH_SIZE"`
	IdempotencyTTL     time.Duration `yaml:"idempotencyTtl"     envconfig:"IDEMPOTENCY_TTL"`
	MetricsEnabled     bool          `yaml:"metricsEnabled"     envconfig:"METRICS_ENABLED"`
	ShutdownTimeout    time.Duration `yaml:"shutdownTimeout"    envconfig:"SHUTDOWN_TIMEOUT"`

	// Tracing exports spans over OTLP/HTTP, configured with the standard
	// OTEL_EXPORTER_OTLP_* variables. TracingStdout writes them to stdout instead.
	Tracing       bool `yaml:"tracing"       envconfig:"TRACING"`
	TracingStdout bool `yaml:"tracingStdout" envconfig:"TRACING_STDOUT"`
}

func Defaults() *Config {
	return &Config{
		ServiceName:        "crystalgive",
		HTTPPort:           "8080",
		DatabaseDriver:     DriverMemory,
		SQLitePath:         "crystalgive.db",
		KafkaBrokers:       []string{"localhost:9092"},
		OutboxTopic:        "crowdfunding.events",
		OutboxPollInterval: 2 * time.Second,
		OutboxBatchSize:    100,
		IdempotencyTTL:     7 * 24 * time.Hour,
		MetricsEnabled:     true,
		ShutdownTimeout:    30 * time.Second,
	}
}

// Load reads the optional YAML file and then applies CRYSTALGIVE_* (or bare)
// environment overrides. An empty configFile searches the user and system
// locations.
func Load(configFile string) (*Config, error) {
	cfg := Defaults()
	if configFile == "" {
		configFile = searchConfigFile()
	}

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	if err := envconfig.Process("crystalgive", cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	cfg.DatabaseDriver = strings.ToLower(strings.TrimSpace(cfg.DatabaseDriver))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return errors.New("POSTGRES_DSN is required for the postgres driver")
		}
	default:
		return fmt.Errorf("invalid databaseDriver: %q (must be 'memory', 'postgres', or 'sqlite')", c.DatabaseDriver)
	}
	if c.DatabaseDriver == DriverSQLite && strings.TrimSpace(c.SQLitePath) == "" {
		return errors.New("SQLITE_PATH is required for the sqlite driver")
	}
	if c.OutboxBatchSize <= 0 {
		return fmt.Errorf("outboxBatchSize must be positive, got %d", c.OutboxBatchSize)
	}
	if c.OutboxPollInterval <= 0 {
		return fmt.Errorf("outboxPollInterval must be positive, got %s", c.OutboxPollInterval)
	}
	if c.IdempotencyTTL < 0 {
		return fmt.Errorf("idempotencyTtl must not be negative, got %s", c.IdempotencyTTL)
	}
	return nil
}

// UsesSQL reports whether the configured driver persists through gorm.
func (c *Config) UsesSQL() bool {
	return c.DatabaseDriver == DriverPostgres || c.DatabaseDriver == DriverSQLite
}

func searchConfigFile() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		userPath := filepath.Join(homeDir, ".crystalgive", "crystalgive.yaml")
		if _, err := os.Stat(userPath); err == nil {
			return userPath
		}
	}
	systemPath := "/etc/crystalgive/crystalgive.yaml"
	if _, err := os.Stat(systemPath); err == nil {
		return systemPath
	}
	return ""
}
