package app

import (
	"context"

	"github.com/ncecere/feedback_assistant/internal/models"
)

// RecordAnalysis stores a completed outcome when history is enabled.
// Failures are logged and never surfaced to the caller.
func (c *Container) RecordAnalysis(ctx context.Context, outcome models.Outcome) {
	if c == nil || c.History == nil || outcome.Sentiment == nil {
		return
	}
	if _, err := c.History.Record(context.WithoutCancel(ctx), outcome); err != nil {
		c.Logger.Warn("record analysis failed", "request_id", outcome.RequestID, "error", err)
	}
}
