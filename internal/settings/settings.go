// Package settings owns the process-wide sentry-mode settings
// singleton. All mutation goes through Update/Reset; writes are
// persisted synchronously so a reload in the same process never
// observes stale data.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"sentryguard/internal/model"
	"sentryguard/internal/storage"
)

// Patch is a partial settings update; nil fields keep their current
// value. ClearContact removes the trusted contact explicitly since a
// nil TrustedContact means "unchanged".
type Patch struct {
	Enabled        *bool                 `json:"is_enabled,omitempty"`
	ThreatLevel    *model.ThreatLevel    `json:"threat_level,omitempty"`
	TrustedContact *model.TrustedContact `json:"trusted_contact,omitempty"`
	ClearContact   bool                  `json:"clear_contact,omitempty"`
}

type Store struct {
	mu       sync.RWMutex
	current  model.AlertSettings
	defaults model.AlertSettings
	db       storage.Store
	logger   *slog.Logger
}

func NewStore(defaults model.AlertSettings, db storage.Store, logger *slog.Logger) *Store {
	if defaults.ThreatLevel == "" {
		defaults.ThreatLevel = model.LevelHigh
	}
	return &Store{current: defaults, defaults: defaults, db: db, logger: logger}
}

// Load reads the persisted settings. A missing key or a read/decode
// failure falls back to the defaults.
func (s *Store) Load(ctx context.Context) {
	if s.db == nil {
		return
	}
	data, err := s.db.Get(ctx, storage.KeySettings)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) && s.logger != nil {
			s.logger.Warn("settings load failed, using defaults", "err", err)
		}
		return
	}
	var loaded model.AlertSettings
	if err := json.Unmarshal(data, &loaded); err != nil {
		if s.logger != nil {
			s.logger.Warn("settings decode failed, using defaults", "err", err)
		}
		return
	}
	if _, ok := model.ParseLevel(string(loaded.ThreatLevel)); !ok {
		loaded.ThreatLevel = s.defaults.ThreatLevel
	}
	s.mu.Lock()
	s.current = loaded
	s.mu.Unlock()
}

// Get returns a snapshot of the current settings.
func (s *Store) Get() model.AlertSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Update merges the patch into the current settings and persists the
// result before returning. The merged snapshot is visible to callers
// of Get immediately.
func (s *Store) Update(ctx context.Context, patch Patch) model.AlertSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	if patch.Enabled != nil {
		s.current.Enabled = *patch.Enabled
	}
	if patch.ThreatLevel != nil {
		if lvl, ok := model.ParseLevel(string(*patch.ThreatLevel)); ok {
			s.current.ThreatLevel = lvl
		} else if s.logger != nil {
			s.logger.Warn("ignoring unknown threat level in settings update", "value", string(*patch.ThreatLevel))
		}
	}
	if patch.ClearContact {
		s.current.TrustedContact = nil
	} else if patch.TrustedContact != nil {
		contact := *patch.TrustedContact
		s.current.TrustedContact = &contact
	}
	merged := s.snapshotLocked()
	s.persistLocked(ctx, merged)
	return merged
}

// Reset restores the defaults and persists them.
func (s *Store) Reset(ctx context.Context) model.AlertSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = s.defaults
	restored := s.snapshotLocked()
	s.persistLocked(ctx, restored)
	return restored
}

func (s *Store) snapshotLocked() model.AlertSettings {
	out := s.current
	if s.current.TrustedContact != nil {
		contact := *s.current.TrustedContact
		out.TrustedContact = &contact
	}
	return out
}

// persistLocked runs under the held mutex so the order of db.Set calls
// matches the order of in-memory mutations; a racing Update and Reset
// cannot leave the persisted value staler than the snapshot.
func (s *Store) persistLocked(ctx context.Context, value model.AlertSettings) {
	if s.db == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("settings encode failed", "err", err)
		}
		return
	}
	if err := s.db.Set(ctx, storage.KeySettings, data); err != nil && s.logger != nil {
		s.logger.Warn("settings persist failed", "err", err)
	}
}
