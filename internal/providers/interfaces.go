package providers

import (
	"context"

	"github.com/ncecere/feedback_assistant/internal/models"
)

// SentimentAnalyzer scores a single document.
type SentimentAnalyzer interface {
	Analyze(ctx context.Context, text string) (models.SentimentResult, error)
}

type ChatCompletions interface {
	Chat(ctx context.Context, req models.ChatRequest) (models.ChatResponse, error)
}

type TextToSpeech interface {
	Synthesize(ctx context.Context, req models.SpeechRequest) (models.SpeechAudio, error)
}

// HealthChecker is implemented by backends that can be probed cheaply.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
