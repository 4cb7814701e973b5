package providers

import (
	"context"

	"github.com/ncecere/feedback_assistant/internal/adapters/bedrock"
	"github.com/ncecere/feedback_assistant/internal/config"
)

func init() {
	RegisterDefinition(Definition{
		Capability:  CapabilityGeneration,
		Name:        "bedrock",
		Description: "Amazon Bedrock Anthropic messages (InvokeModel)",
		Builder:     buildBedrockChat,
	})
}

func buildBedrockChat(ctx context.Context, cfg *config.Config) (Backend, error) {
	cfg = EnsureConfig(cfg)
	b := cfg.Generation.Bedrock
	adapter, err := bedrock.New(ctx, bedrock.Options{
		Region:           b.Region,
		Profile:          b.Profile,
		AccessKeyID:      b.AccessKeyID,
		SecretAccessKey:  b.SecretAccessKey,
		SessionToken:     b.SessionToken,
		ModelID:          cfg.Generation.Deployment,
		AnthropicVersion: b.AnthropicVersion,
		DefaultMaxTokens: int32(cfg.Generation.MaxTokens),
		Endpoint:         cfg.Generation.BaseURL,
	})
	if err != nil {
		return Backend{}, err
	}
	return Backend{Chat: adapter, Model: cfg.Generation.Deployment, Health: adapter.HealthCheck}, nil
}
