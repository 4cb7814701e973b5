package sentiment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ncecere/feedback_assistant/internal/models"
)

type stubAnalyzer struct {
	analyzeFn func(ctx context.Context, text string) (models.SentimentResult, error)
	calls     int
}

func (s *stubAnalyzer) Analyze(ctx context.Context, text string) (models.SentimentResult, error) {
	s.calls++
	return s.analyzeFn(ctx, text)
}

func TestClassifyReturnsScoresVerbatim(t *testing.T) {
	want := models.SentimentResult{Label: models.SentimentPositive, PositiveScore: 0.97, NeutralScore: 0.02, NegativeScore: 0.01}
	backend := &stubAnalyzer{analyzeFn: func(context.Context, string) (models.SentimentResult, error) {
		return want, nil
	}}
	c, err := New(Options{Backend: backend})
	require.NoError(t, err)

	got, err := c.Classify(context.Background(), "The product is excellent")
	require.NoError(t, err)
	require.Equal(t, want, got)
	require.Equal(t, 1, backend.calls)
}

func TestClassifyScoresNeedNotSumToOne(t *testing.T) {
	want := models.SentimentResult{Label: models.SentimentMixed, PositiveScore: 0.6, NeutralScore: 0.3, NegativeScore: 0.5}
	c, err := New(Options{Backend: &stubAnalyzer{analyzeFn: func(context.Context, string) (models.SentimentResult, error) {
		return want, nil
	}}})
	require.NoError(t, err)

	got, err := c.Classify(context.Background(), "Good food, rude staff")
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestClassifyFailures(t *testing.T) {
	cause := errors.New("connection refused")
	tests := []struct {
		name      string
		text      string
		result    models.SentimentResult
		err       error
		wantCalls int
	}{
		{name: "empty text", text: "", wantCalls: 0},
		{name: "backend error", text: "hi", err: cause, wantCalls: 1},
		{name: "score above one", text: "hi", result: models.SentimentResult{Label: models.SentimentPositive, PositiveScore: 1.2}, wantCalls: 1},
		{name: "negative score", text: "hi", result: models.SentimentResult{Label: models.SentimentNegative, NegativeScore: -0.1}, wantCalls: 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			backend := &stubAnalyzer{analyzeFn: func(context.Context, string) (models.SentimentResult, error) {
				return tt.result, tt.err
			}}
			c, err := New(Options{Backend: backend})
			require.NoError(t, err)

			_, err = c.Classify(context.Background(), tt.text)
			require.Error(t, err)
			require.ErrorIs(t, err, ErrClassification)
			var classErr *ClassificationError
			require.ErrorAs(t, err, &classErr)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
			}
			require.Equal(t, tt.wantCalls, backend.calls)
		})
	}
}

func TestClassifyAppliesTimeout(t *testing.T) {
	backend := &stubAnalyzer{analyzeFn: func(ctx context.Context, _ string) (models.SentimentResult, error) {
		<-ctx.Done()
		return models.SentimentResult{}, ctx.Err()
	}}
	c, err := New(Options{Backend: backend, Timeout: 10 * time.Millisecond})
	require.NoError(t, err)

	_, err = c.Classify(context.Background(), "slow")
	require.ErrorIs(t, err, ErrClassification)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClassifyNormalizesLabel(t *testing.T) {
	c, err := New(Options{Backend: &stubAnalyzer{analyzeFn: func(context.Context, string) (models.SentimentResult, error) {
		return models.SentimentResult{Label: "Negative", NegativeScore: 0.9}, nil
	}}})
	require.NoError(t, err)
	got, err := c.Classify(context.Background(), "bad")
	require.NoError(t, err)
	require.Equal(t, models.SentimentNegative, got.Label)
}

func TestNewRequiresBackend(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
}
