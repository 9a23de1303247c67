// Package stats keeps process-lifetime counters surfaced on /status.
package stats

import (
	"sync"
	"time"

	"sentryguard/internal/model"
)

type Snapshot struct {
	Since             time.Time                  `json:"since"`
	MessagesSeen      uint64                     `json:"messages_seen"`
	Classifications   map[model.ThreatLevel]uint64 `json:"classifications"`
	AlertsSent        uint64                     `json:"alerts_sent"`
	AlertsSuppressed  uint64                     `json:"alerts_suppressed"`
	ResponsesRecorded map[string]uint64          `json:"responses_recorded"`
}

type Store struct {
	mu              sync.Mutex
	since           time.Time
	messages        uint64
	classifications map[model.ThreatLevel]uint64
	sent            uint64
	suppressed      uint64
	responses       map[string]uint64
}

func NewStore() *Store {
	return &Store{
		since:           time.Now().UTC(),
		classifications: make(map[model.ThreatLevel]uint64),
		responses:       make(map[string]uint64),
	}
}

func (s *Store) MessageSeen() {
	s.mu.Lock()
	s.messages++
	s.mu.Unlock()
}

func (s *Store) Classified(level model.ThreatLevel) {
	s.mu.Lock()
	s.classifications[level]++
	s.mu.Unlock()
}

func (s *Store) AlertSent() {
	s.mu.Lock()
	s.sent++
	s.mu.Unlock()
}

func (s *Store) AlertSuppressed() {
	s.mu.Lock()
	s.suppressed++
	s.mu.Unlock()
}

func (s *Store) ResponseRecorded(responseType string) {
	s.mu.Lock()
	s.responses[responseType]++
	s.mu.Unlock()
}

func (s *Store) Get() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	classifications := make(map[model.ThreatLevel]uint64, len(s.classifications))
	for k, v := range s.classifications {
		classifications[k] = v
	}
	responses := make(map[string]uint64, len(s.responses))
	for k, v := range s.responses {
		responses[k] = v
	}
	return Snapshot{
		Since:             s.since,
		MessagesSeen:      s.messages,
		Classifications:   classifications,
		AlertsSent:        s.sent,
		AlertsSuppressed:  s.suppressed,
		ResponsesRecorded: responses,
	}
}

func (s *Store) Clear() {
	s.mu.Lock()
	s.since = time.Now().UTC()
	s.messages = 0
	s.classifications = make(map[model.ThreatLevel]uint64)
	s.sent = 0
	s.suppressed = 0
	s.responses = make(map[string]uint64)
	s.mu.Unlock()
}
