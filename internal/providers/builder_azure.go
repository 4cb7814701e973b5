package providers

import (
	"context"

	"github.com/ncecere/feedback_assistant/internal/adapters/azurespeech"
	"github.com/ncecere/feedback_assistant/internal/adapters/textanalytics"
	"github.com/ncecere/feedback_assistant/internal/config"
)

func init() {
	RegisterDefinition(Definition{
		Capability:  CapabilitySentiment,
		Name:        "azure",
		Description: "Azure AI Language sentiment (Text Analytics v3.1)",
		Builder:     buildTextAnalytics,
	})
	RegisterDefinition(Definition{
		Capability:  CapabilitySpeech,
		Name:        "azure",
		Description: "Azure Speech neural TTS (SSML)",
		Builder:     buildAzureSpeech,
	})
}

func buildTextAnalytics(ctx context.Context, cfg *config.Config) (Backend, error) {
	cfg = EnsureConfig(cfg)
	adapter, err := textanalytics.New(textanalytics.Options{
		Endpoint: cfg.Sentiment.Endpoint,
		APIKey:   cfg.Sentiment.APIKey,
		Language: cfg.Sentiment.Language,
		Timeout:  cfg.Sentiment.Timeout,
	})
	if err != nil {
		return Backend{}, err
	}
	return Backend{Sentiment: adapter, Health: adapter.HealthCheck}, nil
}

func buildAzureSpeech(ctx context.Context, cfg *config.Config) (Backend, error) {
	cfg = EnsureConfig(cfg)
	adapter, err := azurespeech.New(azurespeech.Options{
		SubscriptionKey: cfg.Speech.SubscriptionKey,
		Region:          cfg.Speech.Region,
		Endpoint:        cfg.Speech.Endpoint,
		OutputFormat:    cfg.Speech.OutputFormat,
		Timeout:         cfg.Speech.Timeout,
	})
	if err != nil {
		return Backend{}, err
	}
	return Backend{Speech: adapter, Voice: cfg.Speech.Voice, Health: adapter.HealthCheck}, nil
}
