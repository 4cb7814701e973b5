package history

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/ncecere/feedback_assistant/internal/models"
)

type stubDB struct {
	execFn  func(sql string, args ...any) error
	queryFn func(sql string, args ...any) (pgx.Rows, error)
}

func (s *stubDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if s.execFn == nil {
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	}
	return pgconn.NewCommandTag("INSERT 0 1"), s.execFn(sql, args...)
}

func (s *stubDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	return s.queryFn(sql, args...)
}

type fakeRows struct {
	data   [][]any
	idx    int
	err    error
	closed bool
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Values() ([]any, error) {
	return r.data[r.idx-1], nil
}

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.idx-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d targets for %d columns", len(dest), len(row))
	}
	for i, d := range dest {
		switch target := d.(type) {
		case *uuid.UUID:
			*target = row[i].(uuid.UUID)
		case *string:
			*target = row[i].(string)
		case *float64:
			*target = row[i].(float64)
		case *bool:
			*target = row[i].(bool)
		case **string:
			*target, _ = row[i].(*string)
		case *time.Time:
			*target = row[i].(time.Time)
		default:
			return fmt.Errorf("scan: unsupported target %T", d)
		}
	}
	return nil
}

func TestRecordInsertsOutcome(t *testing.T) {
	var captured []any
	db := &stubDB{execFn: func(sql string, args ...any) error {
		require.Contains(t, sql, "INSERT INTO feedback_analyses")
		captured = args
		return nil
	}}
	store := NewStore(db)
	id := uuid.MustParse("4b5f0a4e-7d3a-4c52-9b1d-1f5a8a0e6c11")
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.newID = func() uuid.UUID { return id }
	store.now = func() time.Time { return now }

	reply := models.GeneratedReply("Thanks!")
	entry, err := store.Record(context.Background(), models.Outcome{
		RequestID: "req-1",
		Sentiment: &models.SentimentResult{Label: models.SentimentPositive, PositiveScore: 0.95, NeutralScore: 0.04, NegativeScore: 0.01},
		Reply:     &reply,
		Audio:     &models.AudioArtifact{Filename: "positive-abc.wav", Key: "audio/positive-abc.wav"},
	})
	require.NoError(t, err)
	require.Equal(t, id, entry.ID)
	require.Equal(t, "audio/positive-abc.wav", entry.AudioKey)
	require.False(t, entry.ReplyDegraded)

	require.Len(t, captured, 9)
	require.Equal(t, id, captured[0])
	require.Equal(t, "req-1", captured[1])
	require.Equal(t, "positive", captured[2])
	require.Equal(t, 0.95, captured[3])
	require.Equal(t, "audio/positive-abc.wav", *captured[7].(*string))
	require.Equal(t, now, captured[8])
}

func TestRecordDegradedWithoutAudio(t *testing.T) {
	var captured []any
	store := NewStore(&stubDB{execFn: func(_ string, args ...any) error {
		captured = args
		return nil
	}})

	reply := models.DegradedReply(errors.New("timeout"))
	entry, err := store.Record(context.Background(), models.Outcome{
		Sentiment: &models.SentimentResult{Label: models.SentimentNegative, NegativeScore: 1},
		Reply:     &reply,
	})
	require.NoError(t, err)
	require.True(t, entry.ReplyDegraded)
	require.Nil(t, captured[7].(*string))
}

func TestRecordErrors(t *testing.T) {
	store := NewStore(&stubDB{execFn: func(string, ...any) error { return errors.New("connection reset") }})

	_, err := store.Record(context.Background(), models.Outcome{})
	require.ErrorIs(t, err, ErrIncomplete)

	_, err = store.Record(context.Background(), models.Outcome{Sentiment: &models.SentimentResult{Label: models.SentimentNeutral}})
	require.ErrorContains(t, err, "insert analysis")
}

func TestListScansRows(t *testing.T) {
	key := "audio/neutral-1.wav"
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	id1, id2 := uuid.New(), uuid.New()
	rows := &fakeRows{data: [][]any{
		{id1, "req-2", "neutral", 0.1, 0.8, 0.1, false, &key, created},
		{id2, "req-1", "negative", 0.0, 0.1, 0.9, true, (*string)(nil), created.Add(-time.Minute)},
	}}
	var gotArgs []any
	store := NewStore(&stubDB{queryFn: func(sql string, args ...any) (pgx.Rows, error) {
		require.Contains(t, sql, "ORDER BY created_at DESC")
		gotArgs = args
		return rows, nil
	}})

	entries, err := store.List(context.Background(), ListOptions{})
	require.NoError(t, err)
	require.Equal(t, DefaultListLimit, gotArgs[0])
	require.Nil(t, gotArgs[1].(*time.Time))
	require.True(t, rows.closed)
	require.Len(t, entries, 2)
	require.Equal(t, models.SentimentNeutral, entries[0].Label)
	require.Equal(t, key, entries[0].AudioKey)
	require.Empty(t, entries[1].AudioKey)
	require.True(t, entries[1].ReplyDegraded)
}

func TestListPropagatesErrors(t *testing.T) {
	store := NewStore(&stubDB{queryFn: func(string, ...any) (pgx.Rows, error) {
		return &fakeRows{err: errors.New("broken pipe")}, nil
	}})
	_, err := store.List(context.Background(), ListOptions{Limit: 5})
	require.ErrorContains(t, err, "broken pipe")

	store = NewStore(&stubDB{queryFn: func(string, ...any) (pgx.Rows, error) {
		return nil, errors.New("no connection")
	}})
	_, err = store.List(context.Background(), ListOptions{Limit: 5})
	require.ErrorContains(t, err, "no connection")
}

func TestListPassesSince(t *testing.T) {
	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.FixedZone("CET", 3600))
	var gotArgs []any
	store := NewStore(&stubDB{queryFn: func(_ string, args ...any) (pgx.Rows, error) {
		gotArgs = args
		return &fakeRows{}, nil
	}})

	entries, err := store.List(context.Background(), ListOptions{Limit: 500, Since: since})
	require.NoError(t, err)
	require.Empty(t, entries)
	require.Equal(t, MaxListLimit, gotArgs[0])
	got := gotArgs[1].(*time.Time)
	require.True(t, got.Equal(since))
	require.Equal(t, time.UTC, got.Location())
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultListLimit},
		{-3, DefaultListLimit},
		{1, 1},
		{100, 100},
		{101, MaxListLimit},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, ClampLimit(tt.in), "limit %d", tt.in)
	}
}
