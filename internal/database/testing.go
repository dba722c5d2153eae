package database

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/yourusername/signal-backtest/internal/config"
)

// TestDatabaseEnv names the variables that point integration tests at a database
const (
	TestDatabaseHostEnv = "SIGNAL_BACKTEST_TEST_DB_HOST"
	TestDatabasePortEnv = "SIGNAL_BACKTEST_TEST_DB_PORT"
	TestDatabaseNameEnv = "SIGNAL_BACKTEST_TEST_DB_NAME"
	TestDatabaseUserEnv = "SIGNAL_BACKTEST_TEST_DB_USER"
	TestDatabasePassEnv = "SIGNAL_BACKTEST_TEST_DB_PASSWORD"
)

// SetupTestDB connects to the test database with the schema applied. The test is
// skipped when no test database is configured.
func SetupTestDB(t *testing.T) *DB {
	t.Helper()

	host := os.Getenv(TestDatabaseHostEnv)
	if host == "" {
		t.Skipf("integration test: set %s to run", TestDatabaseHostEnv)
	}
	port, err := strconv.Atoi(os.Getenv(TestDatabasePortEnv))
	if err != nil || port == 0 {
		port = 5432
	}

	cfg := &config.DatabaseConfig{
		Enabled:        true,
		Host:           host,
		Port:           port,
		Name:           os.Getenv(TestDatabaseNameEnv),
		User:           os.Getenv(TestDatabaseUserEnv),
		Password:       os.Getenv(TestDatabasePassEnv),
		SSLMode:        "disable",
		MaxConnections: 4,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := NewDB(ctx, cfg)
	if err != nil {
		t.Fatalf("failed to create test database connection: %v", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		t.Fatalf("failed to apply schema: %v", err)
	}

	t.Cleanup(db.Close)
	return db
}
