package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/noah-isme/hms-api/internal/models"
)

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// emitAudit writes an administrative audit log. Failures are logged, never returned.
func emitAudit(ctx context.Context, writer auditWriter, logger *zap.Logger, entry *models.AuditLog, values interface{}) {
	if writer == nil || entry == nil {
		return
	}
	if values != nil && entry.NewValues == nil {
		if payload, err := json.Marshal(values); err == nil {
			entry.NewValues = payload
		}
	}
	if err := writer.CreateAuditLog(ctx, entry); err != nil {
		logger.Warn("failed to write audit log",
			zap.String("action", entry.Action),
			zap.String("resource", entry.Resource),
			zap.Error(err),
		)
	}
}

func strRef(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
