// Package storage provides the local key-value store backing settings
// and alert history, plus the audit log table. Both sqlite and postgres
// drivers serve the same interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"sentryguard/internal/config"
	"sentryguard/internal/model"
)

// Logical keys for persisted core state.
const (
	KeySettings = "sentry_mode_settings"
	KeyAlerts   = "sentry_mode_notifications"
)

// ErrNotFound is returned by Get for a key that was never written.
var ErrNotFound = errors.New("storage: key not found")

type Store interface {
	Init(ctx context.Context) error
	Close() error
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	SaveAuditEntry(ctx context.Context, entry model.AuditEntry) error
	ListAuditEntries(ctx context.Context, eventID string, limit int) ([]model.AuditEntry, error)
}

func NewStore(cfg config.StorageConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "memory":
		return NewMemory(), nil
	case "", "sqlite":
		return NewSQLite(cfg.DSN)
	case "postgres", "postgresql":
		return NewPostgres(cfg.DSN)
	default:
		return nil, errors.New("unsupported storage driver")
	}
}

type baseStore struct {
	db *sql.DB
}

func (b *baseStore) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

func encodeJSON(value any) string {
	data, _ := json.Marshal(value)
	return string(data)
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
