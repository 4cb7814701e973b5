package responder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ncecere/feedback_assistant/internal/models"
)

type stubChat struct {
	chatFn   func(ctx context.Context, req models.ChatRequest) (models.ChatResponse, error)
	requests []models.ChatRequest
}

func (s *stubChat) Chat(ctx context.Context, req models.ChatRequest) (models.ChatResponse, error) {
	s.requests = append(s.requests, req)
	return s.chatFn(ctx, req)
}

func replyWith(text string) func(context.Context, models.ChatRequest) (models.ChatResponse, error) {
	return func(context.Context, models.ChatRequest) (models.ChatResponse, error) {
		return models.ChatResponse{Choices: []models.ChatChoice{{Message: models.ChatMessage{Role: "assistant", Content: text}}}}, nil
	}
}

func TestInstructionTable(t *testing.T) {
	tests := []struct {
		label models.SentimentLabel
		want  string
	}{
		{models.SentimentPositive, "Generate a warm and appreciative response."},
		{models.SentimentNeutral, "Generate a professional and informative response."},
		{models.SentimentNegative, "Generate a polite, apologetic response with a constructive solution."},
		{models.SentimentMixed, FallbackInstruction},
		{models.SentimentUnknown, FallbackInstruction},
		{models.SentimentLabel(""), FallbackInstruction},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, Instruction(tt.label), "label %q", tt.label)
	}
}

func TestGenerateSendsPromptAndReturnsTextVerbatim(t *testing.T) {
	chat := &stubChat{chatFn: replyWith("  We're thrilled you enjoyed it!  ")}
	g, err := New(Options{Backend: chat, Model: "gpt-3.5-turbo"})
	require.NoError(t, err)

	reply := g.Generate(context.Background(), models.SentimentPositive, "The product is excellent")
	require.False(t, reply.Degraded)
	require.NoError(t, reply.Cause)
	require.Equal(t, "  We're thrilled you enjoyed it!  ", reply.Display())

	require.Len(t, chat.requests, 1)
	req := chat.requests[0]
	require.Equal(t, "gpt-3.5-turbo", req.Model)
	require.Nil(t, req.MaxTokens)
	require.Equal(t, []models.ChatMessage{
		{Role: "system", Content: "You are a customer support assistant."},
		{Role: "user", Content: "Analyze this customer feedback: 'The product is excellent'\nGenerate a warm and appreciative response."},
	}, req.Messages)
}

func TestGenerateDegradesInsteadOfFailing(t *testing.T) {
	cause := errors.New("rate limited")
	tests := []struct {
		name   string
		chatFn func(context.Context, models.ChatRequest) (models.ChatResponse, error)
	}{
		{name: "error", chatFn: func(context.Context, models.ChatRequest) (models.ChatResponse, error) {
			return models.ChatResponse{}, cause
		}},
		{name: "no choices", chatFn: func(context.Context, models.ChatRequest) (models.ChatResponse, error) {
			return models.ChatResponse{}, nil
		}},
		{name: "blank content", chatFn: replyWith("   ")},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			chat := &stubChat{chatFn: tt.chatFn}
			g, err := New(Options{Backend: chat, Model: "gpt-3.5-turbo"})
			require.NoError(t, err)

			reply := g.Generate(context.Background(), models.SentimentNegative, "Terrible")
			require.True(t, reply.Degraded)
			require.Error(t, reply.Cause)
			require.Equal(t, models.GenerationFailedText, reply.Display())
			require.Len(t, chat.requests, 1)
		})
	}
}

func TestGenerateTimesOut(t *testing.T) {
	chat := &stubChat{chatFn: func(ctx context.Context, _ models.ChatRequest) (models.ChatResponse, error) {
		<-ctx.Done()
		return models.ChatResponse{}, ctx.Err()
	}}
	g, err := New(Options{Backend: chat, Model: "gpt-3.5-turbo", Timeout: 10 * time.Millisecond})
	require.NoError(t, err)

	reply := g.Generate(context.Background(), models.SentimentNeutral, "ok")
	require.True(t, reply.Degraded)
	require.ErrorIs(t, reply.Cause, context.DeadlineExceeded)
}

func TestGenerateSetsMaxTokens(t *testing.T) {
	chat := &stubChat{chatFn: replyWith("ok")}
	g, err := New(Options{Backend: chat, Model: "m", MaxTokens: 150})
	require.NoError(t, err)
	g.Generate(context.Background(), models.SentimentUnknown, "hmm")
	require.NotNil(t, chat.requests[0].MaxTokens)
	require.EqualValues(t, 150, *chat.requests[0].MaxTokens)
	require.Contains(t, chat.requests[0].Messages[1].Content, FallbackInstruction)
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := New(Options{Model: "m"})
	require.Error(t, err)
	_, err = New(Options{Backend: &stubChat{}})
	require.Error(t, err)
}
