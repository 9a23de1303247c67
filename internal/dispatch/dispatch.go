// Package dispatch gates classified threats against the user's alert
// settings and runs the trusted-contact alert lifecycle: record
// creation, simulated channel fan-out, raised-alert events, and
// response tracking.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"sentryguard/internal/audit"
	"sentryguard/internal/history"
	"sentryguard/internal/model"
	"sentryguard/internal/settings"
	"sentryguard/internal/stats"
)

// Meta carries the source-event context attached to a dispatched alert.
type Meta struct {
	Sender         string
	MessagePreview string
	EventID        string
}

// AlertRaised is the view-model published to subscribers when an alert
// passes the gate. The UI renders it; tests observe it.
type AlertRaised struct {
	Alert           model.SentryAlert
	Message         string
	Channels        []string
	ResponseOptions []string
	Actions         []ResponseAction
}

// ResponseAction is a callable contact action (call / text the trusted
// contact). Invoke runs the simulated action and records the matching
// response on the alert.
type ResponseAction struct {
	Label  string
	URI    string
	Invoke func(ctx context.Context)
}

type Subscriber func(AlertRaised)

type Dispatcher struct {
	settings *settings.Store
	history  *history.Store
	audit    *audit.Log
	stats    *stats.Store
	channels []Channel
	logger   *slog.Logger

	autoAck time.Duration

	subMu sync.RWMutex
	subs  []Subscriber

	deliveries sync.WaitGroup
}

type Option func(*Dispatcher)

// WithAutoAck enables the demo responder that acknowledges every alert
// after the given delay. Zero leaves it disabled, which is the
// production default.
func WithAutoAck(delay time.Duration) Option {
	return func(d *Dispatcher) { d.autoAck = delay }
}

func WithChannels(channels []Channel) Option {
	return func(d *Dispatcher) { d.channels = channels }
}

func NewDispatcher(settingsStore *settings.Store, historyStore *history.Store, auditLog *audit.Log, statsStore *stats.Store, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		settings: settingsStore,
		history:  historyStore,
		audit:    auditLog,
		stats:    statsStore,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.channels == nil {
		d.channels = DefaultChannels(logger)
	}
	return d
}

// Subscribe registers an observer for raised alerts. Subscribers run
// synchronously on the dispatching goroutine and must not block.
func (d *Dispatcher) Subscribe(fn Subscriber) {
	if fn == nil {
		return
	}
	d.subMu.Lock()
	d.subs = append(d.subs, fn)
	d.subMu.Unlock()
}

// EvaluateAndSend applies the threshold gate and, on pass, creates the
// alert record, appends it to history before any delivery work, fans
// out the channels, and publishes the AlertRaised view-model. Gate
// misses are silent no-ops.
func (d *Dispatcher) EvaluateAndSend(ctx context.Context, notification model.ThreatNotification, meta Meta) {
	cfg := d.settings.Get()
	if !cfg.Enabled || cfg.TrustedContact == nil {
		d.suppress("sentry mode disabled or no trusted contact", notification)
		return
	}
	if model.LevelIndex(notification.Level) < model.LevelIndex(cfg.ThreatLevel) {
		d.suppress("below threshold", notification)
		return
	}

	contact := *cfg.TrustedContact
	eventID := meta.EventID
	if eventID == "" {
		eventID = "unknown"
	}
	ts := notification.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	alert := model.SentryAlert{
		ID:             newAlertID(),
		EventID:        eventID,
		Timestamp:      ts,
		Level:          notification.Level,
		Type:           notification.Type,
		Description:    notification.Description,
		Sender:         meta.Sender,
		MessagePreview: preview(meta.MessagePreview),
		ContactName:    contact.Name,
		ContactPhone:   contact.PhoneNumber,
		Status:         model.StatusSent,
	}

	// History append happens before any delivery is scheduled so a
	// read immediately after dispatch sees the new alert.
	d.history.Append(ctx, alert)
	if d.stats != nil {
		d.stats.AlertSent()
	}
	if d.logger != nil {
		d.logger.Info("alert dispatched",
			"alert_id", alert.ID,
			"event_id", alert.EventID,
			"level", string(alert.Level),
			"type", alert.Type,
			"contact", contact.Name,
		)
	}

	for _, ch := range d.channels {
		ch := ch
		d.deliveries.Add(1)
		go func() {
			defer d.deliveries.Done()
			if err := ch.Deliver(context.WithoutCancel(ctx), contact, alert); err != nil && d.logger != nil {
				d.logger.Warn("delivery channel failed", "channel", ch.Name(), "alert_id", alert.ID, "err", err)
			}
		}()
	}

	d.publish(alert, contact)

	if d.autoAck > 0 {
		alertID := alert.ID
		time.AfterFunc(d.autoAck, func() {
			d.RecordResponse(context.Background(), alertID, model.StatusAcknowledged, alert.Type, "")
		})
	}
}

// RecordResponse transitions an alert out of the sent state. An empty
// alertID targets the most recent alert. The transition applies only
// while the current status is still sent; repeat calls are no-ops.
func (d *Dispatcher) RecordResponse(ctx context.Context, alertID string, responseType model.AlertStatus, threatType, customMessage string) bool {
	if !model.TerminalStatus(responseType) {
		if d.logger != nil {
			d.logger.Warn("ignoring unknown response type", "response_type", string(responseType))
		}
		return false
	}
	if alertID == "" {
		latest, ok := d.history.Latest()
		if !ok {
			return false
		}
		alertID = latest.ID
	}

	now := time.Now().UTC()
	msg := customMessage
	updated, ok := d.history.Update(ctx, alertID, func(a *model.SentryAlert) bool {
		if a.Status != model.StatusSent {
			return false
		}
		if msg == "" {
			tt := threatType
			if tt == "" {
				tt = a.Type
			}
			msg = cannedResponse(responseType, tt)
		}
		a.Status = responseType
		a.ResponseTime = &now
		a.ResponseType = string(responseType)
		a.ResponseMsg = msg
		return true
	})
	if !ok {
		return false
	}
	if d.stats != nil {
		d.stats.ResponseRecorded(string(responseType))
	}
	if d.logger != nil {
		d.logger.Info("contact responded", "alert_id", updated.ID, "response", string(responseType))
	}
	if d.audit != nil {
		d.audit.AddEntry(ctx, updated.EventID, "contact responded", updated.ContactName, map[string]string{
			"alert_id":      updated.ID,
			"response_type": string(responseType),
			"message":       updated.ResponseMsg,
		})
	}
	return true
}

// Wait blocks until in-flight channel deliveries finish. Used on
// shutdown; callers of EvaluateAndSend never wait.
func (d *Dispatcher) Wait() {
	d.deliveries.Wait()
}

func (d *Dispatcher) suppress(reason string, notification model.ThreatNotification) {
	if d.stats != nil {
		d.stats.AlertSuppressed()
	}
	if d.logger != nil {
		d.logger.Debug("alert suppressed", "reason", reason, "level", string(notification.Level), "type", notification.Type)
	}
}

func (d *Dispatcher) publish(alert model.SentryAlert, contact model.TrustedContact) {
	names := make([]string, 0, len(d.channels))
	for _, ch := range d.channels {
		names = append(names, ch.Name())
	}
	raised := AlertRaised{
		Alert: alert,
		Message: fmt.Sprintf("%s was alerted about a %s-level threat (%s).",
			contact.Name, alert.Level, alert.Type),
		Channels:        names,
		ResponseOptions: append([]string(nil), ResponseKeywords...),
		Actions: []ResponseAction{
			{
				Label: "Call " + contact.Name,
				URI:   "tel:" + contact.PhoneNumber,
				Invoke: func(ctx context.Context) {
					d.RecordResponse(ctx, alert.ID, model.StatusContacted, alert.Type, "")
				},
			},
			{
				Label: "Text " + contact.Name,
				URI:   "sms:" + contact.PhoneNumber,
				Invoke: func(ctx context.Context) {
					d.RecordResponse(ctx, alert.ID, model.StatusContacted, alert.Type,
						contact.Name+" was sent a follow-up text")
				},
			},
		},
	}
	d.subMu.RLock()
	subs := append([]Subscriber(nil), d.subs...)
	d.subMu.RUnlock()
	for _, fn := range subs {
		fn(raised)
	}
}

func cannedResponse(responseType model.AlertStatus, threatType string) string {
	tt := strings.ToLower(threatType)
	if tt == "" {
		tt = "the reported threat"
	}
	switch responseType {
	case model.StatusAcknowledged:
		return fmt.Sprintf("Your contact saw the alert about %s and will check in with you.", tt)
	case model.StatusContacted:
		return fmt.Sprintf("Your contact reached out to you about %s.", tt)
	case model.StatusEmergency:
		return fmt.Sprintf("Your contact escalated %s to emergency services.", tt)
	case model.StatusNoResponse:
		return fmt.Sprintf("No response was received for the alert about %s.", tt)
	}
	return ""
}

func preview(message string) string {
	const max = 120
	if len(message) <= max {
		return message
	}
	// Back up to a rune boundary so the cut never leaves invalid UTF-8
	// in the preview or the email body.
	cut := max
	for cut > 0 && !utf8.RuneStart(message[cut]) {
		cut--
	}
	return message[:cut] + "..."
}

// newAlertID builds a generation-ordered id: creation-time prefix for
// ordering, uuid suffix for uniqueness under concurrent dispatch.
func newAlertID() string {
	return fmt.Sprintf("alert-%d-%s", time.Now().UTC().UnixNano(), uuid.NewString()[:8])
}
