package db

import (
	"path/filepath"
	"testing"
)

func TestOpenSQLite(t *testing.T) {
	database, err := OpenSQLite(filepath.Join(t.TempDir(), "escrow.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			t.Fatalf("close sqlite: %v", err)
		}
	}()

	var one int
	if err := database.DB.Raw("SELECT 1").Scan(&one).Error; err != nil || one != 1 {
		t.Fatalf("expected SELECT 1 to return 1, got %d err=%v", one, err)
	}
	if database.Driver != "sqlite" {
		t.Fatalf("unexpected driver %q", database.Driver)
	}
}

func TestOpenRequiresLocation(t *testing.T) {
	if _, err := OpenSQLite(""); err == nil {
		t.Fatalf("expected empty sqlite path to fail")
	}
	if _, err := Connect(""); err == nil {
		t.Fatalf("expected empty dsn to fail")
	}
}

func TestCloseNilDatabase(t *testing.T) {
	var database *Database
	if err := database.Close(); err != nil {
		t.Fatalf("nil close: %v", err)
	}
}
