/*
This file records the tool invocation audit trail. Records are written
asynchronously and best-effort: a failed or slow write must never block or
fail the turn loop.
*/
package core

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
)

// auditWriteTimeout bounds each background audit insert.
const auditWriteTimeout = 5 * time.Second

// AuditLog writes tool invocation records to the tool_audit table.
type AuditLog struct {
	db     *sql.DB
	logger *logrus.Logger
}

// NewAuditLog wraps an opened database.
func NewAuditLog(db *sql.DB, logger *logrus.Logger) *AuditLog {
	return &AuditLog{db: db, logger: logger}
}

// Record persists one audit entry in the background. A negative durationMs
// stores NULL (pre-dispatch records have no duration yet).
func (a *AuditLog) Record(userID, sessionID, toolName string, input map[string]any, durationMs int64) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
		defer cancel()

		inputJSON, err := json.Marshal(input)
		if err != nil {
			inputJSON = []byte("{}")
		}

		var duration any
		if durationMs >= 0 {
			duration = durationMs
		}

		_, err = a.db.ExecContext(ctx, `
			INSERT INTO tool_audit (user_id, session_id, tool_name, tool_input, duration_ms)
			VALUES (?, ?, ?, ?, ?)`,
			userID, sessionID, toolName, string(inputJSON), duration)
		if err != nil {
			a.logger.WithError(err).WithField("tool", toolName).Warn("Failed to record tool audit entry")
		}
	}()
}

var _ Auditor = (*AuditLog)(nil)
