package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crystalgive.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesFileThenEnvironment(t *testing.T) {
	path := writeConfig(t, `
serviceName: escrow-east
httpPort: "9000"
databaseDriver: sqlite
sqlitePath: /var/lib/crystalgive/escrow.db
outboxPollInterval: 5s
outboxBatchSize: 25
`)
	t.Setenv("CRYSTALGIVE_HTTP_PORT", "9100")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092,broker-2:9092")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ServiceName != "escrow-east" || cfg.DatabaseDriver != DriverSQLite {
		t.Fatalf("expected file values, got %+v", cfg)
	}
	if cfg.HTTPPort != "9100" {
		t.Fatalf("expected env override for port, got %q", cfg.HTTPPort)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "broker-2:9092" {
		t.Fatalf("expected bare env name to set brokers, got %v", cfg.KafkaBrokers)
	}
	if cfg.OutboxPollInterval != 5*time.Second || cfg.OutboxBatchSize != 25 {
		t.Fatalf("unexpected outbox settings: %s %d", cfg.OutboxPollInterval, cfg.OutboxBatchSize)
	}
	if cfg.IdempotencyTTL != 7*24*time.Hour {
		t.Fatalf("expected default idempotency ttl, got %s", cfg.IdempotencyTTL)
	}
	if !cfg.UsesSQL() {
		t.Fatalf("sqlite driver should use SQL")
	}
}

func TestLoadRejectsPostgresWithoutDSN(t *testing.T) {
	path := writeConfig(t, "databaseDriver: postgres\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected missing dsn to fail")
	}
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	cfg := Defaults()
	cfg.DatabaseDriver = "mongo"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected unknown driver to fail")
	}
	cfg = Defaults()
	cfg.OutboxBatchSize = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected zero batch size to fail")
	}
}

func TestConfigRoundTripsThroughContext(t *testing.T) {
	if FromContext(context.Background()) != nil {
		t.Fatalf("expected no config in empty context")
	}
	cfg := Defaults()
	if got := FromContext(WithContext(context.Background(), cfg)); got != cfg {
		t.Fatalf("expected stored config back")
	}
}
