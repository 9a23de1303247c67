package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"sentryguard/internal/model"
)

type postgresStore struct {
	baseStore
}

func NewPostgres(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "postgres://localhost:5432/sentryguard?sslmode=disable"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &postgresStore{baseStore{db: db}}, nil
}

func (s *postgresStore) Init(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			id TEXT PRIMARY KEY,
			ts TIMESTAMPTZ NOT NULL,
			event_id TEXT NOT NULL,
			action TEXT NOT NULL,
			actor TEXT NOT NULL,
			details_json JSONB
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_event ON audit_log(event_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *postgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s.db == nil {
		return nil, ErrNotFound
	}
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = $1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(value), nil
}

func (s *postgresStore) Set(ctx context.Context, key string, value []byte) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, string(value), nowUTC(),
	)
	return err
}

func (s *postgresStore) Delete(ctx context.Context, key string) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = $1`, key)
	return err
}

func (s *postgresStore) SaveAuditEntry(ctx context.Context, entry model.AuditEntry) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, ts, event_id, action, actor, details_json)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID,
		entry.Timestamp.UTC(),
		entry.EventID,
		entry.Action,
		entry.Actor,
		encodeJSON(entry.Details),
	)
	return err
}

func (s *postgresStore) ListAuditEntries(ctx context.Context, eventID string, limit int) ([]model.AuditEntry, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ts, event_id, action, actor, details_json FROM audit_log
		WHERE ($1 = '' OR event_id = $1) ORDER BY ts DESC LIMIT $2`,
		eventID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.AuditEntry, 0)
	for rows.Next() {
		var entry model.AuditEntry
		var details sql.NullString
		if err := rows.Scan(&entry.ID, &entry.Timestamp, &entry.EventID, &entry.Action, &entry.Actor, &details); err != nil {
			return nil, err
		}
		if details.Valid && details.String != "" {
			_ = json.Unmarshal([]byte(details.String), &entry.Details)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}
