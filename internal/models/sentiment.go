package models

import "strings"

// SentimentLabel is the categorical polarity reported for a piece of feedback.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNeutral  SentimentLabel = "neutral"
	SentimentNegative SentimentLabel = "negative"
	SentimentMixed    SentimentLabel = "mixed"
	SentimentUnknown  SentimentLabel = "unknown"
)

// ParseSentimentLabel maps a service supplied label onto the known set.
// Anything unrecognized, including an empty string, becomes SentimentUnknown.
func ParseSentimentLabel(raw string) SentimentLabel {
	switch SentimentLabel(strings.ToLower(strings.TrimSpace(raw))) {
	case SentimentPositive:
		return SentimentPositive
	case SentimentNeutral:
		return SentimentNeutral
	case SentimentNegative:
		return SentimentNegative
	case SentimentMixed:
		return SentimentMixed
	default:
		return SentimentUnknown
	}
}

func (l SentimentLabel) String() string { return string(l) }

// SentimentResult is the classifier output. Scores are independent confidences
// in [0,1] and are not guaranteed to sum to one.
type SentimentResult struct {
	Label         SentimentLabel `json:"sentiment"`
	PositiveScore float64        `json:"positive_score"`
	NeutralScore  float64        `json:"neutral_score"`
	NegativeScore float64        `json:"negative_score"`
}

// ScoresInRange reports whether every confidence lies within [0,1].
func (r SentimentResult) ScoresInRange() bool {
	for _, s := range []float64{r.PositiveScore, r.NeutralScore, r.NegativeScore} {
		if !(s >= 0 && s <= 1) {
			return false
		}
	}
	return true
}
