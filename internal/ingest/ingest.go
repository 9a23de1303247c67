// Package ingest feeds message events from collaborators (REST, Kafka,
// tailed JSON-lines files) into the classification pipeline.
package ingest

import (
	"context"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"sentryguard/internal/model"
)

func SendNonBlocking(ctx context.Context, out chan<- model.MessageEvent, ev model.MessageEvent, logger *slog.Logger) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	default:
		if logger != nil {
			logger.Warn("event channel full, dropping event", "event_id", ev.ID, "sender", ev.Sender)
		}
		return false
	}
}

func BackoffSleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		d = 200 * time.Millisecond
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Deduper drops repeat deliveries of the same event id (Kafka
// redelivery, overlapping file reads).
type Deduper struct {
	cache *lru.Cache[string, struct{}]
}

func NewDeduper(size int) *Deduper {
	if size <= 0 {
		size = 2048
	}
	cache, err := lru.New[string, struct{}](size)
	if err != nil {
		return &Deduper{}
	}
	return &Deduper{cache: cache}
}

// Seen marks the id and reports whether it was already present. Events
// without ids are never deduplicated.
func (d *Deduper) Seen(id string) bool {
	if d == nil || d.cache == nil || id == "" {
		return false
	}
	if _, ok := d.cache.Get(id); ok {
		return true
	}
	d.cache.Add(id, struct{}{})
	return false
}
