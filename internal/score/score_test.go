package score

import (
	"testing"

	"sentryguard/internal/model"
)

func TestEmptyInput(t *testing.T) {
	got := Score("", "", "")
	if got.Score != 0 || got.Level != model.LevelLow || got.Percentage != 0 {
		t.Fatalf("empty input: %+v", got)
	}
}

func TestKeywordGroupCountsOnce(t *testing.T) {
	// "urgent" and "suspicious" share a group (+2 once); "threat" adds
	// the scam-language group's +2. Extra keywords from a group that
	// already fired change nothing.
	got := Score("urgent and suspicious threat", "", "a@b.com")
	if got.Score != 4 {
		t.Fatalf("score = %d, want 4", got.Score)
	}
	if got.Level != model.LevelHigh {
		t.Fatalf("level = %s, want high", got.Level)
	}
	again := Score("urgent suspicious threat phishing scam", "", "a@b.com")
	if again.Score != 4 {
		t.Fatalf("score = %d, want 4", again.Score)
	}
}

func TestSenderRules(t *testing.T) {
	got := Score("", "", "someone@fakebank.com")
	if got.Score != 2 || got.Level != model.LevelMedium {
		t.Fatalf("fakebank sender: %+v", got)
	}
	got = Score("", "", "friend@example.com")
	if got.Score != 0 || got.Level != model.LevelLow || got.Percentage != 0 {
		t.Fatalf("clean sender: %+v", got)
	}
	got = Score("", "", "noreply@irs-refunds.gov")
	if got.Score != 2 {
		t.Fatalf("irs sender score = %d, want 2", got.Score)
	}
}

func TestBehavioralRules(t *testing.T) {
	got := Score("", "sender not in contacts", "friend@example.com")
	if got.Score != 1 || got.Level != model.LevelLow {
		t.Fatalf("not-in-contacts: %+v", got)
	}
	got = Score("", "number matches scam database, not in contacts", "friend@example.com")
	if got.Score != 3 || got.Level != model.LevelMedium {
		t.Fatalf("scam match: %+v", got)
	}
}

func TestMaxScoreAndClamp(t *testing.T) {
	got := Score(
		"URGENT phishing scam threat",
		"not in contacts, matches robocall pattern",
		"refund@fakebank.com",
	)
	if got.Score != 9 {
		t.Fatalf("score = %d, want 9", got.Score)
	}
	if got.Percentage != 100 {
		t.Fatalf("percentage = %d, want 100", got.Percentage)
	}
	if got.Level != model.LevelHigh {
		t.Fatalf("level = %s, want high", got.Level)
	}
}

func TestPercentageRounding(t *testing.T) {
	cases := []struct {
		nlp, behavioral, sender string
		score, pct              int
	}{
		{"urgent", "", "", 2, 22},
		{"urgent", "not in contacts", "", 3, 33},
		{"urgent phishing", "", "", 4, 44},
		{"urgent phishing", "not in contacts", "", 5, 56},
		{"urgent phishing", "matches scam", "irs", 8, 89},
	}
	for _, c := range cases {
		got := Score(c.nlp, c.behavioral, c.sender)
		if got.Score != c.score || got.Percentage != c.pct {
			t.Fatalf("Score(%q,%q,%q) = %+v, want score %d pct %d",
				c.nlp, c.behavioral, c.sender, got, c.score, c.pct)
		}
	}
}
