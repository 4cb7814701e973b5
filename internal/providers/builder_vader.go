package providers

import (
	"context"

	"github.com/ncecere/feedback_assistant/internal/adapters/vader"
	"github.com/ncecere/feedback_assistant/internal/config"
)

func init() {
	RegisterDefinition(Definition{
		Capability:  CapabilitySentiment,
		Name:        "vader",
		Description: "Local VADER lexicon scoring",
		Builder: func(ctx context.Context, cfg *config.Config) (Backend, error) {
			adapter := vader.New()
			return Backend{Sentiment: adapter, Health: adapter.HealthCheck}, nil
		},
	})
}
