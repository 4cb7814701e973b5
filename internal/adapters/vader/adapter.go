package vader

import (
	"context"
	"errors"
	"html"
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
	"github.com/russross/blackfriday/v2"

	"github.com/ncecere/feedback_assistant/internal/models"
)

// Compound score cutoffs recommended by the VADER authors.
const (
	PositiveThreshold = 0.05
	NegativeThreshold = -0.05
)

var (
	linkPattern = regexp.MustCompile(`\[(.*?)\]\((https?:\/\/[^\s\)]+)\)`)
	urlPattern  = regexp.MustCompile(`https?://\S+|www\.\S+`)
	tagPattern  = regexp.MustCompile(`<[^>]+>`)
)

// Adapter scores text locally with the VADER lexicon. It needs no network
// access and is meant for development and offline runs.
type Adapter struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

func New() *Adapter {
	return &Adapter{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Analyze strips markdown and links, then labels the text by its compound score.
func (a *Adapter) Analyze(ctx context.Context, text string) (models.SentimentResult, error) {
	if err := ctx.Err(); err != nil {
		return models.SentimentResult{}, err
	}
	plain := PlainText(text)
	if plain == "" {
		return models.SentimentResult{}, errors.New("vader: no scorable text")
	}

	scores := a.analyzer.PolarityScores(plain)
	return models.SentimentResult{
		Label:         labelFor(scores.Compound),
		PositiveScore: scores.Positive,
		NeutralScore:  scores.Neutral,
		NegativeScore: scores.Negative,
	}, nil
}

// HealthCheck always succeeds; the lexicon is in memory.
func (a *Adapter) HealthCheck(context.Context) error { return nil }

// PlainText renders markdown and flattens it to whitespace-normalized text
// without links or markup.
func PlainText(input string) string {
	rendered := blackfriday.Run([]byte(input), blackfriday.WithNoExtensions())
	out := tagPattern.ReplaceAllString(string(rendered), " ")
	out = html.UnescapeString(out)
	out = linkPattern.ReplaceAllString(out, "$1")
	out = urlPattern.ReplaceAllString(out, "")
	return strings.Join(strings.Fields(out), " ")
}

func labelFor(compound float64) models.SentimentLabel {
	switch {
	case compound >= PositiveThreshold:
		return models.SentimentPositive
	case compound <= NegativeThreshold:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}
