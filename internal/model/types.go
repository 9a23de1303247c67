package model

import "time"

type ThreatLevel string

const (
	LevelLow      ThreatLevel = "low"
	LevelMedium   ThreatLevel = "medium"
	LevelHigh     ThreatLevel = "high"
	LevelCritical ThreatLevel = "critical"
)

// LevelIndex places a level on the ordered scale used by the threshold
// gate. Unknown values rank below low so malformed input never fires.
func LevelIndex(l ThreatLevel) int {
	switch l {
	case LevelLow:
		return 0
	case LevelMedium:
		return 1
	case LevelHigh:
		return 2
	case LevelCritical:
		return 3
	}
	return -1
}

// ParseLevel normalizes free-form level text; ok is false for input
// that matches no known level.
func ParseLevel(s string) (ThreatLevel, bool) {
	switch ThreatLevel(normalizeLevel(s)) {
	case LevelLow:
		return LevelLow, true
	case LevelMedium:
		return LevelMedium, true
	case LevelHigh:
		return LevelHigh, true
	case LevelCritical:
		return LevelCritical, true
	}
	return "", false
}

func normalizeLevel(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c == ' ' || c == '\t' {
			continue
		}
		out = append(out, c)
	}
	return string(out)
}

// ThreatAssessment is the scorer's output. It is derived on demand and
// never persisted on its own.
type ThreatAssessment struct {
	Level      ThreatLevel `json:"level"`
	Score      int         `json:"score"`
	Percentage int         `json:"percentage"`
}

type Classification struct {
	Level           ThreatLevel `json:"threat_level"`
	Type            string      `json:"threat_type"`
	Description     string      `json:"description"`
	Confidence      float64     `json:"confidence"`
	Recommendations []string    `json:"recommendations"`
}

type TrustedContact struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
}

type AlertSettings struct {
	Enabled        bool            `json:"is_enabled"`
	ThreatLevel    ThreatLevel     `json:"threat_level"`
	TrustedContact *TrustedContact `json:"trusted_contact"`
}

// ThreatNotification is the transient dispatch input; it is embedded
// into a SentryAlert when the gate passes and never stored otherwise.
type ThreatNotification struct {
	Level       ThreatLevel `json:"threat_level"`
	Type        string      `json:"threat_type"`
	Description string      `json:"description"`
	Timestamp   time.Time   `json:"timestamp"`
	Location    string      `json:"location,omitempty"`
}

type AlertStatus string

const (
	StatusSent         AlertStatus = "sent"
	StatusAcknowledged AlertStatus = "acknowledged"
	StatusContacted    AlertStatus = "contacted"
	StatusEmergency    AlertStatus = "emergency"
	StatusNoResponse   AlertStatus = "no_response"
)

// TerminalStatus reports whether a status ends the alert lifecycle.
// sent is the only non-terminal state.
func TerminalStatus(s AlertStatus) bool {
	switch s {
	case StatusAcknowledged, StatusContacted, StatusEmergency, StatusNoResponse:
		return true
	}
	return false
}

// SentryAlert is the durable record of one triggered trusted-contact
// notification and its eventual response.
type SentryAlert struct {
	ID             string      `json:"id"`
	EventID        string      `json:"event_id"`
	Timestamp      time.Time   `json:"timestamp"`
	Level          ThreatLevel `json:"threat_level"`
	Type           string      `json:"threat_type"`
	Description    string      `json:"description"`
	Sender         string      `json:"sender,omitempty"`
	MessagePreview string      `json:"message_preview,omitempty"`
	ContactName    string      `json:"contact_name"`
	ContactPhone   string      `json:"contact_phone"`
	Status         AlertStatus `json:"status"`
	ResponseTime   *time.Time  `json:"response_time,omitempty"`
	ResponseType   string      `json:"response_type,omitempty"`
	ResponseMsg    string      `json:"response_message,omitempty"`
}

// MessageEvent is a raw message/call record supplied by collaborators
// (REST ingest, Kafka, file feeds, the log-creation path).
type MessageEvent struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Message   string    `json:"message"`
	Category  string    `json:"category,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source,omitempty"`
}

type AuditEntry struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	EventID   string            `json:"event_id"`
	Action    string            `json:"action"`
	Actor     string            `json:"actor"`
	Details   map[string]string `json:"details,omitempty"`
}
