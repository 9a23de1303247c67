// Package classify turns raw message text into a threat classification
// and forwards every result to the alert dispatcher. The dispatcher
// owns the enable/threshold gate; the classifier never duplicates it.
package classify

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"sentryguard/internal/dispatch"
	"sentryguard/internal/model"
	"sentryguard/internal/stats"
)

// AlertSink receives every classification for threshold evaluation.
type AlertSink interface {
	EvaluateAndSend(ctx context.Context, notification model.ThreatNotification, meta dispatch.Meta)
}

// Ordered first-match rule table. Identity-theft indicators outrank
// lure language; keyword order inside a group is irrelevant.
var identityTheftKeywords = []string{
	"social security", "ssn", "bank account", "credit card", "password",
	"login", "irs", "tax", "final warning", "legal action",
}

var lureKeywords = []string{
	"prize", "winner", "claim", "free", "limited time", "act now",
	"https://", "http://",
}

var highRecommendations = []string{
	"Do not provide personal information",
	"Block the sender immediately",
	"Report the message to the relevant authorities",
	"Let your trusted contact know what happened",
}

var mediumRecommendations = []string{
	"Do not click any links in the message",
	"Verify the sender through a channel you trust",
	"Delete the message if you cannot verify it",
}

var lowRecommendations = []string{
	"No immediate action needed",
	"Stay alert for follow-up messages from the same sender",
}

type Input struct {
	Text    string
	Sender  string
	EventID string
}

// Override is the synthetic-classification input used by demo and
// scripted scenarios. It bypasses the rule engine entirely.
type Override struct {
	Level       model.ThreatLevel
	Type        string
	Description string
	Sender      string
	EventID     string
}

type Classifier struct {
	sink     AlertSink
	contacts *ContactSet
	stats    *stats.Store
	logger   *slog.Logger
}

func NewClassifier(sink AlertSink, contacts *ContactSet, statsStore *stats.Store, logger *slog.Logger) *Classifier {
	return &Classifier{sink: sink, contacts: contacts, stats: statsStore, logger: logger}
}

func (c *Classifier) Contacts() *ContactSet {
	return c.contacts
}

// Classify runs the rule engine over the message text and forwards the
// result to the dispatcher unconditionally.
func (c *Classifier) Classify(ctx context.Context, in Input) model.Classification {
	result := Evaluate(in.Text)
	if c.stats != nil {
		c.stats.Classified(result.Level)
	}
	if c.logger != nil {
		c.logger.Debug("message classified",
			"event_id", in.EventID,
			"level", string(result.Level),
			"type", result.Type,
			"confidence", result.Confidence,
		)
	}
	c.forward(ctx, result, in.Sender, in.Text, in.EventID)
	return result
}

// ClassifySynthetic builds a classification verbatim from the override
// with confidence 1.0. A critical override is normalized down to high,
// the ceiling of the classifier's three-value range. Malformed levels
// degrade to low; nothing here panics.
func (c *Classifier) ClassifySynthetic(ctx context.Context, o Override) model.Classification {
	level, ok := model.ParseLevel(string(o.Level))
	if !ok {
		level = model.LevelLow
	}
	if level == model.LevelCritical {
		level = model.LevelHigh
	}
	result := model.Classification{
		Level:           level,
		Type:            o.Type,
		Description:     o.Description,
		Confidence:      1.0,
		Recommendations: recommendationsFor(level),
	}
	if result.Type == "" {
		result.Type = "Suspicious Activity"
	}
	if result.Description == "" {
		result.Description = "Synthetic classification"
	}
	if c.stats != nil {
		c.stats.Classified(result.Level)
	}
	if c.logger != nil {
		c.logger.Info("synthetic classification", "event_id", o.EventID, "level", string(result.Level), "type", result.Type)
	}
	c.forward(ctx, result, o.Sender, "", o.EventID)
	return result
}

// Evaluate is the pure rule engine: first match wins, no accumulation.
func Evaluate(text string) model.Classification {
	lower := strings.ToLower(text)
	if containsAny(lower, identityTheftKeywords) {
		return model.Classification{
			Level:           model.LevelHigh,
			Type:            "Identity Theft Attempt",
			Description:     "Message contains identity-theft indicators",
			Confidence:      0.95,
			Recommendations: highRecommendations,
		}
	}
	if containsAny(lower, lureKeywords) {
		return model.Classification{
			Level:           model.LevelMedium,
			Type:            "Suspicious Activity",
			Description:     "Message contains common scam lure language",
			Confidence:      0.75,
			Recommendations: mediumRecommendations,
		}
	}
	return model.Classification{
		Level:           model.LevelLow,
		Type:            "Suspicious Activity",
		Description:     "No significant threat indicators detected",
		Confidence:      0.5,
		Recommendations: lowRecommendations,
	}
}

func (c *Classifier) forward(ctx context.Context, result model.Classification, sender, text, eventID string) {
	if c.sink == nil {
		return
	}
	c.sink.EvaluateAndSend(ctx, model.ThreatNotification{
		Level:       result.Level,
		Type:        result.Type,
		Description: result.Description,
		Timestamp:   time.Now().UTC(),
	}, dispatch.Meta{
		Sender:         sender,
		MessagePreview: text,
		EventID:        eventID,
	})
}

func recommendationsFor(level model.ThreatLevel) []string {
	switch level {
	case model.LevelHigh:
		return highRecommendations
	case model.LevelMedium:
		return mediumRecommendations
	}
	return lowRecommendations
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
