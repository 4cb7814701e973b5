package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/ncecere/feedback_assistant/internal/cache"
	"github.com/ncecere/feedback_assistant/internal/config"
	"github.com/ncecere/feedback_assistant/internal/health"
	"github.com/ncecere/feedback_assistant/internal/history"
	"github.com/ncecere/feedback_assistant/internal/limits"
	"github.com/ncecere/feedback_assistant/internal/observability"
	"github.com/ncecere/feedback_assistant/internal/pipeline"
	"github.com/ncecere/feedback_assistant/internal/providers"
	"github.com/ncecere/feedback_assistant/internal/responder"
	"github.com/ncecere/feedback_assistant/internal/sentiment"
	"github.com/ncecere/feedback_assistant/internal/speech"
	"github.com/ncecere/feedback_assistant/internal/storage/blob"
)

// Container aggregates runtime dependencies for handlers and background loops.
type Container struct {
	Config        *config.Config
	Logger        *slog.Logger
	DBPool        *pgxpool.Pool
	Redis         *redis.Client
	Factory       *providers.Factory
	Backends      []providers.Backend
	Classifier    *sentiment.Classifier
	Generator     *responder.Generator
	Synthesizer   *speech.Synthesizer
	Pipeline      *pipeline.Pipeline
	Audio         blob.Store
	History       *history.Store
	RateLimiter   *limits.RateLimiter
	Idempotency   *cache.IdempotencyCache
	HealthMon     *health.Monitor
	Observability *observability.Provider
}

// Options carries the optional infrastructure handed to NewContainer.
// A nil Redis disables idempotency and rate limiting; a nil DBPool disables
// history.
type Options struct {
	DBPool  *pgxpool.Pool
	Redis   *redis.Client
	Logger  *slog.Logger
	Factory *providers.Factory
}

// NewContainer builds every backend and wires the pipeline.
func NewContainer(ctx context.Context, cfg *config.Config, opts Options) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	factory := opts.Factory
	if factory == nil {
		factory = providers.NewFactory(cfg)
	}

	c := &Container{
		Config:  cfg,
		Logger:  logger,
		DBPool:  opts.DBPool,
		Redis:   opts.Redis,
		Factory: factory,
	}

	obsProvider, err := observability.Setup(ctx, cfg.Observability)
	if err != nil {
		return nil, fmt.Errorf("setup observability: %w", err)
	}
	c.Observability = obsProvider

	sentimentBackend, err := factory.Build(ctx, providers.CapabilitySentiment)
	if err != nil {
		return nil, err
	}
	c.Backends = append(c.Backends, sentimentBackend)
	c.Classifier, err = sentiment.New(sentiment.Options{
		Backend: sentimentBackend.Sentiment,
		Timeout: cfg.Sentiment.Timeout,
		Logger:  logger.With("component", "sentiment"),
	})
	if err != nil {
		return nil, fmt.Errorf("init classifier: %w", err)
	}

	chatBackend, err := factory.Build(ctx, providers.CapabilityGeneration)
	if err != nil {
		return nil, err
	}
	c.Backends = append(c.Backends, chatBackend)
	c.Generator, err = responder.New(responder.Options{
		Backend:   chatBackend.Chat,
		Model:     chatBackend.Model,
		MaxTokens: cfg.Generation.MaxTokens,
		Timeout:   cfg.Generation.Timeout,
		Logger:    logger.With("component", "responder"),
	})
	if err != nil {
		return nil, fmt.Errorf("init generator: %w", err)
	}

	pipeOpts := pipeline.Options{
		Classifier: c.Classifier,
		Generator:  c.Generator,
		Logger:     logger.With("component", "pipeline"),
	}
	if obsProvider != nil {
		pipeOpts.Metrics = obsProvider
	}

	if cfg.SpeechActive() {
		audioStore, err := blob.New(ctx, cfg.Audio)
		if err != nil {
			return nil, fmt.Errorf("init audio store: %w", err)
		}
		c.Audio = audioStore

		speechBackend, err := factory.Build(ctx, providers.CapabilitySpeech)
		if err != nil {
			return nil, err
		}
		c.Backends = append(c.Backends, speechBackend)
		c.Synthesizer, err = speech.New(speech.Options{
			Backend: speechBackend.Speech,
			Store:   audioStore,
			Voice:   speechBackend.Voice,
			Prefix:  cfg.Audio.Prefix,
			Format:  cfg.Speech.OutputFormat,
			Timeout: cfg.Speech.Timeout,
			Logger:  logger.With("component", "speech"),
		})
		if err != nil {
			return nil, fmt.Errorf("init synthesizer: %w", err)
		}
		pipeOpts.Synthesizer = c.Synthesizer
		pipeOpts.SpeakByDefault = true
	}

	c.Pipeline, err = pipeline.New(pipeOpts)
	if err != nil {
		return nil, fmt.Errorf("init pipeline: %w", err)
	}

	if opts.Redis != nil {
		c.RateLimiter = limits.NewRateLimiter(opts.Redis, limits.FromConfig(cfg.RateLimits))
		c.Idempotency = cache.NewIdempotencyCache(opts.Redis, cfg.Redis.IdempotencyTTL)
	}
	if opts.DBPool != nil {
		c.History = history.NewStore(opts.DBPool)
	}

	c.HealthMon = health.NewMonitor(cfg.Health, logger.With("component", "health"), c.healthChecks()...)
	return c, nil
}

func (c *Container) healthChecks() []health.Check {
	checks := make([]health.Check, 0, len(c.Backends))
	for _, b := range c.Backends {
		if b.Health == nil {
			continue
		}
		checks = append(checks, health.Check{Name: b.Name(), Run: b.Health})
	}
	return checks
}

// Start launches the background health loop. It stops when ctx is done.
func (c *Container) Start(ctx context.Context) {
	if c == nil {
		return
	}
	c.HealthMon.Start(ctx)
}

// Shutdown waits for background loops and flushes telemetry.
func (c *Container) Shutdown(ctx context.Context) error {
	if c == nil {
		return nil
	}
	c.HealthMon.Wait()
	var errs []error
	if c.Observability != nil {
		if err := c.Observability.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown observability: %w", err))
		}
	}
	return errors.Join(errs...)
}
