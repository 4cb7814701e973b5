package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/ncecere/feedback_assistant/internal/adapters/azureopenai"
	"github.com/ncecere/feedback_assistant/internal/config"
)

func init() {
	RegisterDefinition(Definition{
		Capability:  CapabilityGeneration,
		Name:        "azure_openai",
		Description: "Azure OpenAI chat deployment",
		Builder:     buildAzureOpenAIChat,
	})
	RegisterDefinition(Definition{
		Capability:  CapabilitySpeech,
		Name:        "azure_openai",
		Description: "Azure OpenAI TTS deployment",
		Builder:     buildAzureOpenAISpeech,
	})
}

func newAzureOpenAIAdapter(cfg *config.Config) (*azureopenai.Adapter, error) {
	endpoint := strings.TrimSpace(cfg.Generation.Endpoint)
	apiKey := strings.TrimSpace(cfg.Generation.APIKey)
	if endpoint == "" || apiKey == "" {
		return nil, fmt.Errorf("azure endpoint/api key must be provided")
	}
	return azureopenai.New(azureopenai.Options{
		Endpoint:         endpoint,
		APIKey:           apiKey,
		APIVersion:       cfg.Generation.APIVersion,
		SpeechDeployment: cfg.Speech.Model,
		Voice:            openAIVoice(cfg.Speech.Voice),
	})
}

func buildAzureOpenAIChat(ctx context.Context, cfg *config.Config) (Backend, error) {
	adapter, err := newAzureOpenAIAdapter(EnsureConfig(cfg))
	if err != nil {
		return Backend{}, err
	}
	return Backend{Chat: adapter, Model: cfg.Generation.Deployment, Health: adapter.HealthCheck}, nil
}

func buildAzureOpenAISpeech(ctx context.Context, cfg *config.Config) (Backend, error) {
	adapter, err := newAzureOpenAIAdapter(EnsureConfig(cfg))
	if err != nil {
		return Backend{}, err
	}
	return Backend{Speech: adapter, Voice: firstNonEmpty(openAIVoice(cfg.Speech.Voice), "alloy"), Health: adapter.HealthCheck}, nil
}
