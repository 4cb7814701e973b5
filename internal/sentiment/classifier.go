package sentiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ncecere/feedback_assistant/internal/models"
	"github.com/ncecere/feedback_assistant/internal/providers"
)

// ErrClassification is matched by every classification failure.
var ErrClassification = errors.New("sentiment classification failed")

// ClassificationError wraps the underlying backend failure.
type ClassificationError struct {
	Cause error
}

func (e *ClassificationError) Error() string {
	if e.Cause == nil {
		return ErrClassification.Error()
	}
	return fmt.Sprintf("%s: %v", ErrClassification.Error(), e.Cause)
}

func (e *ClassificationError) Unwrap() error { return e.Cause }

func (e *ClassificationError) Is(target error) bool { return target == ErrClassification }

// Options configure a Classifier.
type Options struct {
	Backend providers.SentimentAnalyzer
	Timeout time.Duration
	Logger  *slog.Logger
}

// Classifier turns feedback text into a label plus confidence scores.
type Classifier struct {
	backend providers.SentimentAnalyzer
	timeout time.Duration
	logger  *slog.Logger
}

func New(opts Options) (*Classifier, error) {
	if opts.Backend == nil {
		return nil, errors.New("sentiment backend required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{backend: opts.Backend, timeout: opts.Timeout, logger: logger}, nil
}

// Classify makes exactly one backend call. Scores are returned as reported.
func (c *Classifier) Classify(ctx context.Context, text string) (models.SentimentResult, error) {
	if strings.TrimSpace(text) == "" {
		return models.SentimentResult{}, &ClassificationError{Cause: errors.New("empty text")}
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	res, err := c.backend.Analyze(ctx, text)
	if err != nil {
		return models.SentimentResult{}, &ClassificationError{Cause: err}
	}
	if !res.ScoresInRange() {
		return models.SentimentResult{}, &ClassificationError{
			Cause: fmt.Errorf("scores out of range: positive=%g neutral=%g negative=%g", res.PositiveScore, res.NeutralScore, res.NegativeScore),
		}
	}
	res.Label = models.ParseSentimentLabel(string(res.Label))
	c.logger.Debug("sentiment classified", "label", res.Label,
		"positive", res.PositiveScore, "neutral", res.NeutralScore, "negative", res.NegativeScore)
	return res, nil
}
