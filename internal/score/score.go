// Package score implements the deterministic threat-severity scorer
// used for log-level display. Its bucket boundaries are part of the
// product copy ("High: score >= 4") and are independent of the
// classifier's rule engine.
package score

import (
	"math"
	"strings"

	"sentryguard/internal/model"
)

const maxScore = 9

// Score maps an NLP-analysis string, a behavioral-analysis string and a
// sender identifier to a bounded assessment. Checks are case-insensitive
// substring matches; each rule group contributes at most once. Empty
// input yields {low, 0, 0}.
func Score(nlpAnalysis, behavioralAnalysis, sender string) model.ThreatAssessment {
	nlp := strings.ToLower(nlpAnalysis)
	behavioral := strings.ToLower(behavioralAnalysis)
	from := strings.ToLower(sender)

	s := 0
	if containsAny(nlp, "urgent", "suspicious") {
		s += 2
	}
	if containsAny(nlp, "threat", "impersonation", "phishing", "scam") {
		s += 2
	}
	if strings.Contains(behavioral, "not in contacts") {
		s += 1
	}
	if containsAny(behavioral, "matches scam", "matches robocall") {
		s += 2
	}
	if strings.HasSuffix(from, "@fakebank.com") || containsAny(from, "irs", "randomsms") {
		s += 2
	}

	pct := int(math.Round(float64(s) / maxScore * 100))
	if pct > 100 {
		pct = 100
	}
	return model.ThreatAssessment{
		Level:      levelFor(s),
		Score:      s,
		Percentage: pct,
	}
}

func levelFor(s int) model.ThreatLevel {
	switch {
	case s >= 4:
		return model.LevelHigh
	case s >= 2:
		return model.LevelMedium
	}
	return model.LevelLow
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
