package database

import (
	"context"
	"errors"

	"intelfeed/internal/domain"
)

const auditInsertBatchSize = 500

// InsertAuditLogs writes a batch of audit events. The audit trail is
// append-only; this is the only write path the pipeline uses.
func InsertAuditLogs(ctx context.Context, entries []domain.AuditLog) error {
	if DB == nil {
		return errors.New("database not initialised")
	}
	if len(entries) == 0 {
		return nil
	}
	return withCtx(ctx).CreateInBatches(&entries, auditInsertBatchSize).Error
}
