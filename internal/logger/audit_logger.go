// Package logger provides audit logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// AuditLogger provides dedicated audit trail logging for persisted and scheduled runs.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: OrDefault(baseLogger).WithField("component", "audit"),
	}
}

// LogRunPersisted logs that a run and its trades were stored.
func (al *AuditLogger) LogRunPersisted(runID, strategyID string, trades int) {
	al.WithFields(logrus.Fields{
		"run_id":      runID,
		"strategy_id": strategyID,
		"trades":      trades,
	}).Info("Backtest run persisted")
}

// LogJobTriggered logs a scheduled job firing.
func (al *AuditLogger) LogJobTriggered(job, strategyID string, at time.Time) {
	al.WithFields(logrus.Fields{
		"job":         job,
		"strategy_id": strategyID,
		"timestamp":   at.Unix(),
	}).Info("Scheduled backtest triggered")
}

// LogJobFailed logs a scheduled job error.
func (al *AuditLogger) LogJobFailed(job, strategyID string, err error) {
	al.WithFields(logrus.Fields{
		"job":         job,
		"strategy_id": strategyID,
	}).WithError(err).Error("Scheduled backtest failed")
}

// LogExport logs a report written to disk.
func (al *AuditLogger) LogExport(runID, format, path string, rows int) {
	al.WithFields(logrus.Fields{
		"run_id": runID,
		"format": format,
		"path":   path,
		"rows":   rows,
	}).Info("Backtest report exported")
}
