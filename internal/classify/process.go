package classify

import (
	"context"

	"sentryguard/internal/model"
	"sentryguard/internal/score"
)

// Start consumes message events until the context is cancelled.
func (c *Classifier) Start(ctx context.Context, in <-chan model.MessageEvent) {
	go func() {
		for {
			select {
			case ev := <-in:
				c.Process(ctx, ev)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Process scores an incoming event for log-level display and runs the
// full classification, which forwards into the dispatcher.
func (c *Classifier) Process(ctx context.Context, ev model.MessageEvent) model.Classification {
	if c.stats != nil {
		c.stats.MessageSeen()
	}
	assessment := score.Score(ev.Message, c.contacts.BehavioralAnalysis(ev.Sender), ev.Sender)
	if c.logger != nil {
		c.logger.Info("message event",
			"event_id", ev.ID,
			"sender", ev.Sender,
			"source", ev.Source,
			"severity", string(assessment.Level),
			"severity_score", assessment.Score,
			"severity_pct", assessment.Percentage,
		)
	}
	return c.Classify(ctx, Input{Text: ev.Message, Sender: ev.Sender, EventID: ev.ID})
}
