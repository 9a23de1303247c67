package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"sentryguard/internal/model"
)

// Channel is one delivery mechanism for a trusted-contact alert.
// Deliveries are simulated: each channel formats its payload and logs
// it instead of touching a real SMS/email/push gateway.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, contact model.TrustedContact, alert model.SentryAlert) error
}

// ResponseKeywords are the reply options quoted in every outbound
// message body.
var ResponseKeywords = []string{"OK", "CALL", "TEXT", "IGNORE"}

func DefaultChannels(logger *slog.Logger) []Channel {
	return []Channel{
		&SMSChannel{logger: logger},
		&EmailChannel{logger: logger},
		&PushChannel{logger: logger},
	}
}

type SMSChannel struct {
	logger *slog.Logger
}

func (c *SMSChannel) Name() string { return "sms" }

func (c *SMSChannel) Deliver(ctx context.Context, contact model.TrustedContact, alert model.SentryAlert) error {
	body := FormatSMS(contact, alert)
	if c.logger != nil {
		c.logger.Info("simulated sms delivery", "to", contact.PhoneNumber, "alert_id", alert.ID, "body", body)
	}
	return nil
}

type EmailChannel struct {
	logger *slog.Logger
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Deliver(ctx context.Context, contact model.TrustedContact, alert model.SentryAlert) error {
	subject, body := FormatEmail(contact, alert)
	if c.logger != nil {
		c.logger.Info("simulated email delivery", "to", contact.Name, "alert_id", alert.ID, "subject", subject, "body", body)
	}
	return nil
}

type PushChannel struct {
	logger *slog.Logger
}

func (c *PushChannel) Name() string { return "push" }

func (c *PushChannel) Deliver(ctx context.Context, contact model.TrustedContact, alert model.SentryAlert) error {
	if c.logger != nil {
		c.logger.Info("simulated push delivery", "to", contact.Name, "alert_id", alert.ID,
			"title", "Sentry alert for "+alert.ContactName, "level", string(alert.Level))
	}
	return nil
}

// FormatSMS builds the deterministic SMS template. The field set, not
// the prose, is the contract: contact name, level, type, description,
// timestamp, optional location, reply keywords.
func FormatSMS(contact model.TrustedContact, alert model.SentryAlert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SentryGuard alert for %s\n", contact.Name)
	fmt.Fprintf(&b, "Level: %s\n", strings.ToUpper(string(alert.Level)))
	fmt.Fprintf(&b, "Type: %s\n", alert.Type)
	fmt.Fprintf(&b, "Details: %s\n", alert.Description)
	fmt.Fprintf(&b, "Time: %s\n", alert.Timestamp.Format(time.RFC3339))
	if alert.Sender != "" {
		fmt.Fprintf(&b, "From: %s\n", alert.Sender)
	}
	fmt.Fprintf(&b, "Reply %s", strings.Join(ResponseKeywords, ", "))
	return b.String()
}

func FormatEmail(contact model.TrustedContact, alert model.SentryAlert) (subject, body string) {
	subject = fmt.Sprintf("[SentryGuard] %s threat detected", strings.ToUpper(string(alert.Level)))
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", contact.Name)
	fmt.Fprintf(&b, "A potential threat was detected and you are listed as the trusted contact.\n\n")
	fmt.Fprintf(&b, "Threat level: %s\n", alert.Level)
	fmt.Fprintf(&b, "Threat type: %s\n", alert.Type)
	fmt.Fprintf(&b, "Description: %s\n", alert.Description)
	fmt.Fprintf(&b, "Detected at: %s\n", alert.Timestamp.Format(time.RFC3339))
	if alert.Sender != "" {
		fmt.Fprintf(&b, "Sender: %s\n", alert.Sender)
	}
	if alert.MessagePreview != "" {
		fmt.Fprintf(&b, "Message preview: %s\n", alert.MessagePreview)
	}
	fmt.Fprintf(&b, "\nYou can reply with one of: %s\n", strings.Join(ResponseKeywords, ", "))
	return subject, b.String()
}
