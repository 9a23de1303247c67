package storage

import (
	"context"
	"sync"

	"sentryguard/internal/model"
)

// memoryStore keeps everything in process memory. Used when the
// storage driver is "memory" and by tests.
type memoryStore struct {
	mu    sync.RWMutex
	kv    map[string][]byte
	audit []model.AuditEntry
}

func NewMemory() Store {
	return &memoryStore{kv: make(map[string][]byte)}
}

func (m *memoryStore) Init(ctx context.Context) error { return nil }
func (m *memoryStore) Close() error                   { return nil }

func (m *memoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.kv[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (m *memoryStore) Set(ctx context.Context, key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	m.mu.Lock()
	m.kv[key] = stored
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.kv, key)
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) SaveAuditEntry(ctx context.Context, entry model.AuditEntry) error {
	m.mu.Lock()
	m.audit = append(m.audit, entry)
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) ListAuditEntries(ctx context.Context, eventID string, limit int) ([]model.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.AuditEntry, 0)
	for i := len(m.audit) - 1; i >= 0; i-- {
		if eventID != "" && m.audit[i].EventID != eventID {
			continue
		}
		out = append(out, m.audit[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
