package providers

import (
	"context"
	"fmt"
	"strings"

	native "github.com/ncecere/feedback_assistant/internal/adapters/openai"
	"github.com/ncecere/feedback_assistant/internal/config"
)

func init() {
	RegisterDefinition(Definition{
		Capability:  CapabilityGeneration,
		Name:        "openai",
		Description: "OpenAI chat completions",
		Builder:     buildOpenAIChat,
	})
	RegisterDefinition(Definition{
		Capability:  CapabilitySpeech,
		Name:        "openai",
		Description: "OpenAI audio/speech",
		Builder:     buildOpenAISpeech,
	})
}

func newOpenAIAdapter(cfg *config.Config) (*native.Adapter, error) {
	apiKey := strings.TrimSpace(cfg.Generation.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("openai provider requires generation.api_key")
	}
	return native.New(native.Options{
		APIKey:      apiKey,
		BaseURL:     strings.TrimSpace(cfg.Generation.BaseURL),
		SpeechModel: cfg.Speech.Model,
		Voice:       openAIVoice(cfg.Speech.Voice),
	})
}

func buildOpenAIChat(ctx context.Context, cfg *config.Config) (Backend, error) {
	adapter, err := newOpenAIAdapter(EnsureConfig(cfg))
	if err != nil {
		return Backend{}, err
	}
	return Backend{Chat: adapter, Model: cfg.Generation.Deployment, Health: adapter.HealthCheck}, nil
}

func buildOpenAISpeech(ctx context.Context, cfg *config.Config) (Backend, error) {
	adapter, err := newOpenAIAdapter(EnsureConfig(cfg))
	if err != nil {
		return Backend{}, err
	}
	return Backend{Speech: adapter, Voice: firstNonEmpty(openAIVoice(cfg.Speech.Voice), "alloy"), Health: adapter.HealthCheck}, nil
}
