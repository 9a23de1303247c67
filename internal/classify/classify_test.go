package classify

import (
	"context"
	"testing"

	"sentryguard/internal/dispatch"
	"sentryguard/internal/model"
)

type captureSink struct {
	notifications []model.ThreatNotification
	metas         []dispatch.Meta
}

func (s *captureSink) EvaluateAndSend(ctx context.Context, n model.ThreatNotification, m dispatch.Meta) {
	s.notifications = append(s.notifications, n)
	s.metas = append(s.metas, m)
}

func TestIdentityTheftRule(t *testing.T) {
	got := Evaluate("We need your Social Security number to process the refund")
	if got.Level != model.LevelHigh || got.Type != "Identity Theft Attempt" {
		t.Fatalf("high rule miss: %+v", got)
	}
	if got.Confidence != 0.95 {
		t.Fatalf("confidence = %v", got.Confidence)
	}
	if len(got.Recommendations) == 0 {
		t.Fatalf("recommendations missing")
	}
}

func TestLureRule(t *testing.T) {
	got := Evaluate("You are a WINNER! Claim your prize now")
	if got.Level != model.LevelMedium || got.Confidence != 0.75 {
		t.Fatalf("medium rule miss: %+v", got)
	}
	got = Evaluate("see https://example.com/deal")
	if got.Level != model.LevelMedium {
		t.Fatalf("url should be a lure indicator: %+v", got)
	}
}

func TestFirstMatchWins(t *testing.T) {
	// Identity-theft keyword plus lure keyword stays high, no blend.
	got := Evaluate("act now or we take legal action")
	if got.Level != model.LevelHigh {
		t.Fatalf("ordered rules broken: %+v", got)
	}
}

func TestFallbackRule(t *testing.T) {
	got := Evaluate("lunch at noon?")
	if got.Level != model.LevelLow || got.Confidence != 0.5 {
		t.Fatalf("fallback miss: %+v", got)
	}
	if got.Description != "No significant threat indicators detected" {
		t.Fatalf("description = %q", got.Description)
	}
}

func TestClassifyForwardsUnconditionally(t *testing.T) {
	sink := &captureSink{}
	c := NewClassifier(sink, NewContactSet(nil), nil, nil)

	c.Classify(context.Background(), Input{Text: "lunch at noon?", Sender: "friend@example.com", EventID: "event-7"})
	if len(sink.notifications) != 1 {
		t.Fatalf("low result must still be forwarded")
	}
	if sink.notifications[0].Level != model.LevelLow {
		t.Fatalf("forwarded level = %s", sink.notifications[0].Level)
	}
	if sink.metas[0].EventID != "event-7" || sink.metas[0].Sender != "friend@example.com" {
		t.Fatalf("meta not forwarded: %+v", sink.metas[0])
	}
}

func TestSyntheticOverride(t *testing.T) {
	sink := &captureSink{}
	c := NewClassifier(sink, nil, nil, nil)

	got := c.ClassifySynthetic(context.Background(), Override{
		Level:       model.LevelCritical,
		Type:        "Scripted Demo Threat",
		Description: "forced for a walkthrough",
		EventID:     "demo-1",
	})
	if got.Level != model.LevelHigh {
		t.Fatalf("critical must normalize to high, got %s", got.Level)
	}
	if got.Confidence != 1.0 {
		t.Fatalf("confidence = %v", got.Confidence)
	}
	if got.Type != "Scripted Demo Threat" || got.Description != "forced for a walkthrough" {
		t.Fatalf("override fields not verbatim: %+v", got)
	}
	if len(sink.notifications) != 1 {
		t.Fatalf("synthetic results must be forwarded too")
	}
}

func TestSyntheticMalformedLevel(t *testing.T) {
	c := NewClassifier(nil, nil, nil, nil)
	got := c.ClassifySynthetic(context.Background(), Override{Level: "definitely-bad"})
	if got.Level != model.LevelLow {
		t.Fatalf("malformed level should degrade to low, got %s", got.Level)
	}
}

func TestContactSet(t *testing.T) {
	set := NewContactSet([]string{" Friend@Example.com ", "+1 555 0100", ""})
	if !set.Known("friend@example.com") {
		t.Fatalf("normalized lookup failed")
	}
	if set.Known("stranger@example.com") {
		t.Fatalf("unknown sender reported as known")
	}
	if got := set.BehavioralAnalysis("stranger@example.com"); got != "sender not in contacts" {
		t.Fatalf("behavioral = %q", got)
	}
	if got := set.BehavioralAnalysis("friend@example.com"); got != "sender in contacts" {
		t.Fatalf("behavioral = %q", got)
	}
}
