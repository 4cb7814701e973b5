package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ncecere/feedback_assistant/internal/models"
	"github.com/ncecere/feedback_assistant/internal/sentiment"
	"github.com/ncecere/feedback_assistant/internal/speech"
)

// ErrInvalidInput is returned before any external call when the feedback is blank.
var ErrInvalidInput = errors.New("no text provided")

const tracerName = "github.com/ncecere/feedback_assistant/internal/pipeline"

type Classifier interface {
	Classify(ctx context.Context, text string) (models.SentimentResult, error)
}

type Generator interface {
	Generate(ctx context.Context, label models.SentimentLabel, feedback string) models.Reply
}

type Synthesizer interface {
	Synthesize(ctx context.Context, label models.SentimentLabel, text string) (*models.AudioArtifact, error)
}

// Recorder receives per-stage measurements. *observability.Provider satisfies it.
type Recorder interface {
	RecordStage(ctx context.Context, stage, outcome string, duration time.Duration)
	RecordSentiment(label string)
	RecordSpeech(result string)
}

type Options struct {
	Classifier Classifier
	Generator  Generator
	// Synthesizer is nil when speech is not configured.
	Synthesizer Synthesizer
	// SpeakByDefault applies when a request does not say whether it wants audio.
	SpeakByDefault bool
	Metrics        Recorder
	Tracer         trace.Tracer
	Logger         *slog.Logger
}

// Request is one feedback submission.
type Request struct {
	Text      string
	RequestID string
	// Speak overrides SpeakByDefault when set.
	Speak *bool
}

// Pipeline sequences classification, reply generation and optional speech for
// one piece of feedback. Stages run strictly in order and each collaborator is
// called at most once per Run. Replies and audio are not deterministic across
// runs with identical text.
type Pipeline struct {
	classifier     Classifier
	generator      Generator
	synthesizer    Synthesizer
	speakByDefault bool
	metrics        Recorder
	tracer         trace.Tracer
	logger         *slog.Logger
}

func New(opts Options) (*Pipeline, error) {
	if opts.Classifier == nil {
		return nil, errors.New("pipeline: classifier required")
	}
	if opts.Generator == nil {
		return nil, errors.New("pipeline: generator required")
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		classifier:     opts.Classifier,
		generator:      opts.Generator,
		synthesizer:    opts.Synthesizer,
		speakByDefault: opts.SpeakByDefault,
		metrics:        opts.Metrics,
		tracer:         tracer,
		logger:         logger,
	}, nil
}

// SpeechAvailable reports whether a synthesizer is wired at all.
func (p *Pipeline) SpeechAvailable() bool {
	return p != nil && p.synthesizer != nil
}

// Run executes the pipeline. The only errors returned are ErrInvalidInput and
// a classification failure; generation and speech problems are folded into
// the outcome.
func (p *Pipeline) Run(ctx context.Context, req Request) (models.Outcome, error) {
	outcome := models.Outcome{
		RequestID: req.RequestID,
		StartedAt: time.Now(),
	}
	outcome.Advance(models.StageReceived)
	logger := p.logger.With("request_id", req.RequestID)

	ctx, span := p.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(attribute.String("request_id", req.RequestID)))
	defer span.End()

	text := strings.TrimSpace(req.Text)
	if text == "" {
		span.SetStatus(codes.Error, ErrInvalidInput.Error())
		p.record(ctx, models.StageReceived, "invalid", 0)
		return finish(outcome), ErrInvalidInput
	}

	// classified
	result, err := p.classify(ctx, text)
	if err != nil {
		outcome.Advance(models.StageClassificationFailed)
		span.SetStatus(codes.Error, "classification failed")
		logger.Error("sentiment classification failed", "error", err)
		return finish(outcome), err
	}
	outcome.Advance(models.StageClassified)
	outcome.Sentiment = &result
	span.SetAttributes(attribute.String("sentiment", string(result.Label)))
	if p.metrics != nil {
		p.metrics.RecordSentiment(string(result.Label))
	}

	// replied
	reply := p.generate(ctx, result.Label, text)
	outcome.Advance(models.StageReplied)
	outcome.Reply = &reply
	if reply.Degraded {
		logger.Warn("reply generation degraded", "label", result.Label, "error", reply.Cause)
	}

	// synthesized
	outcome.SpeechRequested = p.wantsSpeech(req)
	if outcome.SpeechRequested {
		if reply.Degraded {
			outcome.SpeechError = fmt.Errorf("%w: reply degraded", speech.ErrSynthesisUnavailable)
			p.recordSpeech("skipped")
		} else {
			artifact, err := p.synthesize(ctx, result.Label, reply.Text)
			if err != nil {
				outcome.SpeechError = err
				logger.Warn("speech synthesis unavailable", "label", result.Label, "error", err)
			} else {
				outcome.Audio = artifact
				outcome.Advance(models.StageSynthesized)
			}
		}
	}

	outcome.Advance(models.StageDone)
	return finish(outcome), nil
}

func finish(o models.Outcome) models.Outcome {
	o.Duration = time.Since(o.StartedAt)
	return o
}

func (p *Pipeline) wantsSpeech(req Request) bool {
	if p.synthesizer == nil {
		return false
	}
	if req.Speak != nil {
		return *req.Speak
	}
	return p.speakByDefault
}

func (p *Pipeline) classify(ctx context.Context, text string) (models.SentimentResult, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.classify")
	defer span.End()
	start := time.Now()

	result, err := p.classifier.Classify(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "classification failed")
		p.record(ctx, models.StageClassified, "error", time.Since(start))
		if !errors.Is(err, sentiment.ErrClassification) {
			err = &sentiment.ClassificationError{Cause: err}
		}
		return models.SentimentResult{}, err
	}
	span.SetAttributes(
		attribute.String("sentiment.label", string(result.Label)),
		attribute.Float64("sentiment.positive", result.PositiveScore),
		attribute.Float64("sentiment.neutral", result.NeutralScore),
		attribute.Float64("sentiment.negative", result.NegativeScore),
	)
	p.record(ctx, models.StageClassified, "ok", time.Since(start))
	return result, nil
}

func (p *Pipeline) generate(ctx context.Context, label models.SentimentLabel, text string) models.Reply {
	ctx, span := p.tracer.Start(ctx, "pipeline.reply")
	defer span.End()
	start := time.Now()

	reply := p.generator.Generate(ctx, label, text)
	outcome := "ok"
	if reply.Degraded {
		outcome = "degraded"
		if reply.Cause != nil {
			span.RecordError(reply.Cause)
		}
		span.SetStatus(codes.Error, "reply degraded")
	}
	span.SetAttributes(attribute.Bool("reply.degraded", reply.Degraded))
	p.record(ctx, models.StageReplied, outcome, time.Since(start))
	return reply
}

func (p *Pipeline) synthesize(ctx context.Context, label models.SentimentLabel, text string) (*models.AudioArtifact, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.synthesize")
	defer span.End()
	start := time.Now()

	artifact, err := p.synthesizer.Synthesize(ctx, label, text)
	if err != nil {
		if !errors.Is(err, speech.ErrSynthesisUnavailable) {
			err = &speech.UnavailableError{Reason: "synthesizer", Cause: err}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "speech unavailable")
		p.record(ctx, models.StageSynthesized, "unavailable", time.Since(start))
		p.recordSpeech("unavailable")
		return nil, err
	}
	if artifact == nil {
		err := &speech.UnavailableError{Reason: "no artifact"}
		p.record(ctx, models.StageSynthesized, "unavailable", time.Since(start))
		p.recordSpeech("unavailable")
		return nil, err
	}
	span.SetAttributes(
		attribute.String("audio.filename", artifact.Filename),
		attribute.Bool("audio.cached", artifact.Cached),
	)
	result := "synthesized"
	if artifact.Cached {
		result = "cached"
	}
	p.record(ctx, models.StageSynthesized, "ok", time.Since(start))
	p.recordSpeech(result)
	return artifact, nil
}

func (p *Pipeline) record(ctx context.Context, stage models.Stage, outcome string, d time.Duration) {
	if p.metrics == nil {
		return
	}
	p.metrics.RecordStage(ctx, string(stage), outcome, d)
}

func (p *Pipeline) recordSpeech(result string) {
	if p.metrics == nil {
		return
	}
	p.metrics.RecordSpeech(result)
}
