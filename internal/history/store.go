package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ncecere/feedback_assistant/internal/models"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ErrIncomplete is returned by Record for outcomes without a sentiment.
var ErrIncomplete = errors.New("outcome has no sentiment")

// DBTX is the subset of pgxpool.Pool the store needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Entry is one stored analysis.
type Entry struct {
	ID            uuid.UUID             `json:"id"`
	RequestID     string                `json:"request_id"`
	Label         models.SentimentLabel `json:"sentiment"`
	PositiveScore float64               `json:"positive_score"`
	NeutralScore  float64               `json:"neutral_score"`
	NegativeScore float64               `json:"negative_score"`
	ReplyDegraded bool                  `json:"reply_degraded"`
	AudioKey      string                `json:"audio_key,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
}

type Store struct {
	db    DBTX
	now   func() time.Time
	newID func() uuid.UUID
}

func NewStore(db DBTX) *Store {
	return &Store{db: db, now: time.Now, newID: uuid.New}
}

const insertAnalysis = `INSERT INTO feedback_analyses
    (id, request_id, label, positive_score, neutral_score, negative_score, reply_degraded, audio_key, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// Record stores a completed outcome and returns the new row.
func (s *Store) Record(ctx context.Context, outcome models.Outcome) (Entry, error) {
	if outcome.Sentiment == nil {
		return Entry{}, ErrIncomplete
	}
	entry := Entry{
		ID:            s.newID(),
		RequestID:     outcome.RequestID,
		Label:         outcome.Sentiment.Label,
		PositiveScore: outcome.Sentiment.PositiveScore,
		NeutralScore:  outcome.Sentiment.NeutralScore,
		NegativeScore: outcome.Sentiment.NegativeScore,
		ReplyDegraded: outcome.Reply != nil && outcome.Reply.Degraded,
		CreatedAt:     s.now().UTC(),
	}
	if outcome.Audio != nil {
		entry.AudioKey = outcome.Audio.Key
	}

	var audioKey *string
	if entry.AudioKey != "" {
		audioKey = &entry.AudioKey
	}
	_, err := s.db.Exec(ctx, insertAnalysis,
		entry.ID, entry.RequestID, string(entry.Label),
		entry.PositiveScore, entry.NeutralScore, entry.NegativeScore,
		entry.ReplyDegraded, audioKey, entry.CreatedAt,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("insert analysis: %w", err)
	}
	return entry, nil
}

const listAnalyses = `SELECT id, request_id, label, positive_score, neutral_score, negative_score, reply_degraded, audio_key, created_at
FROM feedback_analyses
WHERE ($2::timestamptz IS NULL OR created_at >= $2)
ORDER BY created_at DESC
LIMIT $1`

// ListOptions filter List. A zero Since means no lower bound.
type ListOptions struct {
	Limit int
	Since time.Time
}

// List returns the most recent analyses, newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	limit := ClampLimit(opts.Limit)
	var since *time.Time
	if !opts.Since.IsZero() {
		t := opts.Since.UTC()
		since = &t
	}
	rows, err := s.db.Query(ctx, listAnalyses, limit, since)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			e        Entry
			label    string
			audioKey *string
		)
		if err := rows.Scan(&e.ID, &e.RequestID, &label, &e.PositiveScore, &e.NeutralScore, &e.NegativeScore, &e.ReplyDegraded, &audioKey, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		e.Label = models.SentimentLabel(label)
		if audioKey != nil {
			e.AudioKey = *audioKey
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	return entries, nil
}

// ClampLimit applies the default and the maximum page size.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}
