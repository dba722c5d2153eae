package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() (*logrus.Logger, *bytes.Buffer) {
	log := logrus.New()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.DebugLevel)
	return log, buf
}

func parseLogOutput(buf *bytes.Buffer) map[string]interface{} {
	var logEntry map[string]interface{}
	line := strings.SplitN(strings.TrimSpace(buf.String()), "\n", 2)[0]
	if err := json.Unmarshal([]byte(line), &logEntry); err != nil {
		return nil
	}
	return logEntry
}

func TestNewLogger(t *testing.T) {
	log := NewLogger("debug")
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())

	log = NewLogger("not-a-level")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestOrDefault(t *testing.T) {
	assert.NotNil(t, OrDefault(nil))

	log, _ := setupTestLogger()
	assert.Same(t, log, OrDefault(log))
}

func TestBacktestLoggerRunStarted(t *testing.T) {
	log, buf := setupTestLogger()
	backtestLogger := NewBacktestLogger(log)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	backtestLogger.LogRunStarted("run-1", "rsi_macd", []string{"BTCUSDT"}, "1h", start, start.AddDate(0, 1, 0), 10000)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "backtest", logEntry["component"])
	assert.Equal(t, "rsi_macd", logEntry["strategy_id"])
	assert.Equal(t, "2024-01-01T00:00:00Z", logEntry["start_date"])
}

func TestBacktestLoggerRunFinishedWarnsOnDrawdown(t *testing.T) {
	log, buf := setupTestLogger()
	backtestLogger := NewBacktestLogger(log)

	backtestLogger.LogRunFinished("run-1", "breakout", 12, 8000, -20, 35, 2*time.Second)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], `"level":"warning"`)
}

func TestBacktestLoggerPositions(t *testing.T) {
	log, buf := setupTestLogger()
	backtestLogger := NewBacktestLogger(log)
	at := time.Date(2024, 1, 1, 5, 0, 0, 0, time.UTC)

	backtestLogger.LogPositionOpened("ETHUSDT", "long", at, 100, 5, 98, 104)
	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "ETHUSDT", logEntry["symbol"])
	assert.Equal(t, "debug", logEntry["level"])

	buf.Reset()
	backtestLogger.LogPositionClosed("ETHUSDT", "long", "take_profit", at, 104, 20, 10020)
	logEntry = parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "take_profit", logEntry["exit_reason"])
}

func TestBacktestLoggerCoverage(t *testing.T) {
	log, buf := setupTestLogger()
	backtestLogger := NewBacktestLogger(log)

	backtestLogger.LogSymbolCoverage("SOLUSDT", "no_data", 0, 0)
	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "warning", logEntry["level"])
}

func TestAuditLogger(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	auditLogger.LogJobFailed("nightly", "rsi_macd", errors.New("source unavailable"))
	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "audit", logEntry["component"])
	assert.Equal(t, "source unavailable", logEntry["error"])

	buf.Reset()
	auditLogger.LogRunPersisted("run-1", "rsi_macd", 4)
	logEntry = parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, float64(4), logEntry["trades"])
}
