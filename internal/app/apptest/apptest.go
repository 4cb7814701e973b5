// Package apptest builds containers backed by in-process fakes.
package apptest

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ncecere/feedback_assistant/internal/app"
	"github.com/ncecere/feedback_assistant/internal/config"
	"github.com/ncecere/feedback_assistant/internal/models"
	"github.com/ncecere/feedback_assistant/internal/providers"
)

// Sentiment is a fake sentiment backend.
type Sentiment struct {
	AnalyzeFn func(ctx context.Context, text string) (models.SentimentResult, error)
	Calls     atomic.Int32
}

func (s *Sentiment) Analyze(ctx context.Context, text string) (models.SentimentResult, error) {
	s.Calls.Add(1)
	if s.AnalyzeFn == nil {
		return models.SentimentResult{Label: models.SentimentPositive, PositiveScore: 0.95, NeutralScore: 0.04, NegativeScore: 0.01}, nil
	}
	return s.AnalyzeFn(ctx, text)
}

// Chat is a fake chat backend.
type Chat struct {
	ChatFn func(ctx context.Context, req models.ChatRequest) (models.ChatResponse, error)
	Calls  atomic.Int32
}

func (c *Chat) Chat(ctx context.Context, req models.ChatRequest) (models.ChatResponse, error) {
	c.Calls.Add(1)
	if c.ChatFn == nil {
		return models.ChatResponse{Choices: []models.ChatChoice{{Message: models.ChatMessage{Role: "assistant", Content: "Thank you for the kind words!"}}}}, nil
	}
	return c.ChatFn(ctx, req)
}

// Speech is a fake TTS backend.
type Speech struct {
	SynthesizeFn func(ctx context.Context, req models.SpeechRequest) (models.SpeechAudio, error)
	Calls        atomic.Int32
}

func (s *Speech) Synthesize(ctx context.Context, req models.SpeechRequest) (models.SpeechAudio, error) {
	s.Calls.Add(1)
	if s.SynthesizeFn == nil {
		return models.SpeechAudio{Audio: []byte("RIFF0000WAVEfmt "), MediaType: models.MediaTypeWAV}, nil
	}
	return s.SynthesizeFn(ctx, req)
}

// Fakes groups the backends a test container is built with.
type Fakes struct {
	Sentiment *Sentiment
	Chat      *Chat
	Speech    *Speech
}

// Options tweak the generated config and infrastructure.
type Options struct {
	Speech    bool
	Redis     *redis.Client
	Configure func(cfg *config.Config)
}

// Config returns a config that selects the fake providers registered by
// NewContainer. It is not passed through Validate.
func Config(t testing.TB, speech bool) *config.Config {
	t.Helper()
	return &config.Config{
		Server:     config.ServerConfig{ListenAddr: ":0", BodyLimitMB: 1, RequestTimeout: 5 * time.Second},
		Logging:    config.LoggingConfig{Level: "info", Format: "text"},
		Sentiment:  config.SentimentConfig{Provider: "fake", Timeout: time.Second},
		Generation: config.GenerationConfig{Provider: "fake", Deployment: config.DefaultDeployment, Timeout: time.Second},
		Speech:     config.SpeechConfig{Enabled: speech, Provider: "fake", Voice: "en-US-JennyNeural", Timeout: time.Second},
		Audio: config.AudioConfig{
			Storage: "local",
			Prefix:  "audio",
			Local:   config.AudioLocalConfig{Directory: t.TempDir()},
		},
		Redis:      config.RedisConfig{IdempotencyTTL: time.Minute},
		RateLimits: config.RateLimitConfig{RequestsPerMinute: 60, ParallelRequests: 4},
		Health:     config.HealthConfig{CheckInterval: time.Minute, Timeout: time.Second},
	}
}

// NewContainer builds a container whose backends are the returned fakes.
func NewContainer(t testing.TB, opts Options) (*app.Container, *Fakes) {
	t.Helper()
	cfg := Config(t, opts.Speech)
	if opts.Configure != nil {
		opts.Configure(cfg)
	}

	fakes := &Fakes{Sentiment: &Sentiment{}, Chat: &Chat{}, Speech: &Speech{}}
	factory := providers.NewFactory(cfg)
	factory.Register(providers.CapabilitySentiment, "fake", func(context.Context, *config.Config) (providers.Backend, error) {
		return providers.Backend{Sentiment: fakes.Sentiment, Health: func(context.Context) error { return nil }}, nil
	})
	factory.Register(providers.CapabilityGeneration, "fake", func(_ context.Context, cfg *config.Config) (providers.Backend, error) {
		return providers.Backend{Chat: fakes.Chat, Model: cfg.Generation.Deployment, Health: func(context.Context) error { return errors.New("unreachable") }}, nil
	})
	factory.Register(providers.CapabilitySpeech, "fake", func(_ context.Context, cfg *config.Config) (providers.Backend, error) {
		return providers.Backend{Speech: fakes.Speech, Voice: cfg.Speech.Voice}, nil
	})

	container, err := app.NewContainer(context.Background(), cfg, app.Options{Redis: opts.Redis, Factory: factory})
	if err != nil {
		t.Fatalf("build container: %v", err)
	}
	return container, fakes
}
