package providers

import "context"

// Capability names one of the external services the pipeline depends on.
type Capability string

const (
	CapabilitySentiment  Capability = "sentiment"
	CapabilityGeneration Capability = "generation"
	CapabilitySpeech     Capability = "speech"
)

// Backend is a configured adapter for one capability. Only the field matching
// Capability is populated.
type Backend struct {
	Capability Capability
	Provider   string
	// Model is the chat deployment for generation backends.
	Model string
	// Voice is the voice name speech backends synthesize with.
	Voice     string
	Sentiment SentimentAnalyzer
	Chat      ChatCompletions
	Speech    TextToSpeech
	Health    func(ctx context.Context) error
}

// Name is the label used in logs and health reports.
func (b Backend) Name() string {
	return string(b.Capability) + "/" + b.Provider
}
