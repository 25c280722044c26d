package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/charlesng35/estatehub/pkg/logger"
)

// recordAudit writes an audit entry; failures are logged and never fail the caller.
func recordAudit(audit *AuditService, ctx context.Context, entry AuditEntry) {
	if audit == nil {
		return
	}
	if err := audit.Log(ctx, entry); err != nil {
		logger.WithModule("audit").Warn("failed to record audit entry",
			zap.String("action", entry.Action),
			zap.Error(err),
		)
	}
}

func auditFor(auth AuthContext, action, resource, result string, metadata map[string]any) AuditEntry {
	return AuditEntry{
		UserID:   strPtr(auth.UserID),
		Username: auth.UserEmail,
		Action:   action,
		Resource: resource,
		Result:   result,
		Metadata: metadata,
	}
}
