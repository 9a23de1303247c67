// Package history holds the durable alert log: newest-first, capped,
// persisted as one JSON document under the sentry_mode_notifications
// key. All mutation is a mutex-serialized read-modify-write, and the
// full-list write to storage happens under the same lock so snapshots
// can never commit out of order.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"sentryguard/internal/model"
	"sentryguard/internal/storage"
)

const DefaultLimit = 50

type Store struct {
	mu     sync.Mutex
	buf    []model.SentryAlert
	limit  int
	db     storage.Store
	logger *slog.Logger
}

func NewStore(limit int, db storage.Store, logger *slog.Logger) *Store {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Store{limit: limit, db: db, logger: logger}
}

// Load replaces the in-memory list with the persisted one. A missing
// key or a read/decode failure degrades to an empty list.
func (s *Store) Load(ctx context.Context) {
	if s.db == nil {
		return
	}
	data, err := s.db.Get(ctx, storage.KeyAlerts)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) && s.logger != nil {
			s.logger.Warn("alert history load failed, starting empty", "err", err)
		}
		return
	}
	var list []model.SentryAlert
	if err := json.Unmarshal(data, &list); err != nil {
		if s.logger != nil {
			s.logger.Warn("alert history decode failed, starting empty", "err", err)
		}
		return
	}
	if len(list) > s.limit {
		list = list[:s.limit]
	}
	s.mu.Lock()
	s.buf = list
	s.mu.Unlock()
}

// Append inserts at the head and evicts from the tail past the cap,
// then persists the whole list before releasing the lock.
func (s *Store) Append(ctx context.Context, alert model.SentryAlert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = append([]model.SentryAlert{alert}, s.buf...)
	if len(s.buf) > s.limit {
		s.buf = s.buf[:s.limit]
	}
	s.persistLocked(ctx)
}

// Update applies fn to the alert with the given id under the store
// lock and persists the result. fn returning false leaves the record
// untouched. ok reports whether the alert exists and fn accepted it.
func (s *Store) Update(ctx context.Context, id string, fn func(*model.SentryAlert) bool) (model.SentryAlert, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var updated model.SentryAlert
	ok := false
	for i := range s.buf {
		if s.buf[i].ID != id {
			continue
		}
		if fn(&s.buf[i]) {
			updated = s.buf[i]
			ok = true
		}
		break
	}
	if ok {
		s.persistLocked(ctx)
	}
	return updated, ok
}

// List returns up to limit alerts, newest first. limit <= 0 means all.
func (s *Store) List(limit int) []model.SentryAlert {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.buf) {
		limit = len(s.buf)
	}
	out := make([]model.SentryAlert, limit)
	copy(out, s.buf[:limit])
	return out
}

// Latest returns the most recent alert, if any.
func (s *Store) Latest() (model.SentryAlert, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.buf) == 0 {
		return model.SentryAlert{}, false
	}
	return s.buf[0], true
}

func (s *Store) Get(id string) (model.SentryAlert, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.buf {
		if a.ID == id {
			return a, true
		}
	}
	return model.SentryAlert{}, false
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf)
}

func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = nil
	if s.db != nil {
		if err := s.db.Delete(ctx, storage.KeyAlerts); err != nil && s.logger != nil {
			s.logger.Warn("alert history clear failed", "err", err)
		}
	}
}

// persistLocked writes the full list under the held mutex, keeping the
// order of db.Set calls identical to the order of in-memory mutations.
func (s *Store) persistLocked(ctx context.Context) {
	if s.db == nil {
		return
	}
	data, err := json.Marshal(s.buf)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("alert history encode failed", "err", err)
		}
		return
	}
	if err := s.db.Set(ctx, storage.KeyAlerts, data); err != nil && s.logger != nil {
		s.logger.Warn("alert history persist failed", "err", err)
	}
}
