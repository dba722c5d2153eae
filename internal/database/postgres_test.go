package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/signal-backtest/internal/config"
)

func TestNewPoolConfig(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Enabled:        true,
		Host:           "db.internal",
		Port:           6543,
		Name:           "backtests",
		User:           "runner",
		Password:       "secret",
		MaxConnections: 12,
		MinConnections: 3,
	}

	poolConfig, err := NewPoolConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", poolConfig.ConnConfig.Host)
	assert.Equal(t, uint16(6543), poolConfig.ConnConfig.Port)
	assert.Equal(t, "backtests", poolConfig.ConnConfig.Database)
	assert.Equal(t, "runner", poolConfig.ConnConfig.User)
	assert.Equal(t, int32(12), poolConfig.MaxConns)
	assert.Equal(t, int32(3), poolConfig.MinConns)
	assert.Equal(t, 5*time.Minute, poolConfig.MaxConnLifetime)
}

func TestNewDB_Disabled(t *testing.T) {
	_, err := NewDB(context.Background(), &config.DatabaseConfig{Enabled: false})
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = NewDB(context.Background(), nil)
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestSchemaStatementsAreIdempotent(t *testing.T) {
	for _, stmt := range schema {
		assert.Contains(t, stmt, "IF NOT EXISTS")
	}
}
