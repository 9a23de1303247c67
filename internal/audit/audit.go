// Package audit is the fire-and-forget audit-log collaborator. Entries
// reference the source event of an alert; write failures are logged
// and never surfaced to the caller.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"sentryguard/internal/model"
	"sentryguard/internal/storage"
)

type Log struct {
	db     storage.Store
	logger *slog.Logger
}

func NewLog(db storage.Store, logger *slog.Logger) *Log {
	return &Log{db: db, logger: logger}
}

func (l *Log) AddEntry(ctx context.Context, eventID, action, actor string, details map[string]string) {
	if l == nil || l.db == nil {
		return
	}
	entry := model.AuditEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		EventID:   eventID,
		Action:    action,
		Actor:     actor,
		Details:   details,
	}
	if err := l.db.SaveAuditEntry(ctx, entry); err != nil && l.logger != nil {
		l.logger.Warn("audit entry write failed", "event_id", eventID, "action", action, "err", err)
	}
}

func (l *Log) Entries(ctx context.Context, eventID string, limit int) []model.AuditEntry {
	if l == nil || l.db == nil {
		return nil
	}
	entries, err := l.db.ListAuditEntries(ctx, eventID, limit)
	if err != nil {
		if l.logger != nil {
			l.logger.Warn("audit entry read failed", "err", err)
		}
		return nil
	}
	return entries
}
