package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"sentryguard/internal/model"
)

// rawEvent tolerates the field aliases different collaborators use.
type rawEvent struct {
	ID        string `json:"id"`
	EventID   string `json:"event_id"`
	Sender    string `json:"sender"`
	From      string `json:"from"`
	Message   string `json:"message"`
	Text      string `json:"text"`
	Body      string `json:"body"`
	Category  string `json:"category"`
	Timestamp string `json:"timestamp"`
}

// ParseEvent decodes one JSON message event. Missing ids get a
// generated one; a missing timestamp defaults to now.
func ParseEvent(data []byte) (model.MessageEvent, error) {
	var raw rawEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return model.MessageEvent{}, err
	}
	ev := model.MessageEvent{
		ID:       firstNonEmpty(raw.ID, raw.EventID),
		Sender:   firstNonEmpty(raw.Sender, raw.From),
		Message:  firstNonEmpty(raw.Message, raw.Text, raw.Body),
		Category: strings.TrimSpace(raw.Category),
	}
	if ev.Message == "" {
		return model.MessageEvent{}, errors.New("event has no message text")
	}
	if ts := strings.TrimSpace(raw.Timestamp); ts != "" {
		parsed, err := parseTimestamp(ts)
		if err != nil {
			return model.MessageEvent{}, err
		}
		ev.Timestamp = parsed
	}
	return Normalize(ev), nil
}

// Normalize fills the defaults every downstream consumer relies on.
func Normalize(ev model.MessageEvent) model.MessageEvent {
	ev.Sender = strings.TrimSpace(ev.Sender)
	if ev.Sender == "" {
		ev.Sender = "unknown"
	}
	ev.Message = strings.TrimSpace(ev.Message)
	if ev.ID == "" {
		ev.ID = "event-" + uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	} else {
		ev.Timestamp = ev.Timestamp.UTC()
	}
	return ev
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

func parseTimestamp(value string) (time.Time, error) {
	if isNumeric(value) {
		return parseUnix(value)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unsupported timestamp format: " + value)
}

func isNumeric(value string) bool {
	for _, ch := range value {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return len(value) > 0
}

func parseUnix(value string) (time.Time, error) {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid unix timestamp %q: %w", value, err)
	}
	if len(value) >= 13 {
		return time.Unix(0, n*int64(time.Millisecond)).UTC(), nil
	}
	return time.Unix(n, 0).UTC(), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
