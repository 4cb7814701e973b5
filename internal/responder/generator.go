package responder

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

const systemPrompt = "You are a customer support assistant."

// FallbackInstruction is used for any label without a dedicated tone.
const FallbackInstruction = "Generate a general response."

var toneInstructions = map[models.SentimentLabel]string{
	models.SentimentPositive: "Generate a warm and appreciative response.",
	models.SentimentNeutral:  "Generate a professional and informative response.",
	models.SentimentNegative: "Generate a polite, apologetic response with a constructive solution.",
}

var errEmptyReply = errors.New("model returned no reply text")

// Options configure a Generator.
type Options struct {
	Backend   providers.ChatCompletions
	Model     string
	MaxTokens int
	Timeout   time.Duration
	Logger    *slog.Logger
}

// Generator drafts a support reply in the tone matching the feedback sentiment.
type Generator struct {
	backend   providers.ChatCompletions
	model     string
	maxTokens int
	timeout   time.Duration
	logger    *slog.Logger
}

func New(opts Options) (*Generator, error) {
	if opts.Backend == nil {
		return nil, errors.New("chat backend required")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		return nil, errors.New("chat model required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		backend:   opts.Backend,
		model:     model,
		maxTokens: opts.MaxTokens,
		timeout:   opts.Timeout,
		logger:    logger,
	}, nil
}

// Instruction returns the tone instruction for a label.
func Instruction(label models.SentimentLabel) string {
	if instr, ok := toneInstructions[label]; ok {
		return instr
	}
	return FallbackInstruction
}

// Prompt assembles the user message sent to the model.
func Prompt(label models.SentimentLabel, feedback string) string {
	return fmt.Sprintf("Analyze this customer feedback: '%s'\n%s", feedback, Instruction(label))
}

// Generate issues one chat completion. It never fails: any error, timeout or
// empty completion yields a degraded Reply carrying the cause.
func (g *Generator) Generate(ctx context.Context, label models.SentimentLabel, feedback string) models.Reply {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	req := models.ChatRequest{
		Model: g.model,
		Messages: []models.ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: Prompt(label, feedback)},
		},
	}
	if g.maxTokens > 0 {
		limit := int32(g.maxTokens)
		req.MaxTokens = &limit
	}

	resp, err := g.backend.Chat(ctx, req)
	if err != nil {
		g.logger.Warn("reply generation failed", "model", g.model, "label", label, "error", err)
		return models.DegradedReply(fmt.Errorf("chat completion: %w", err))
	}
	text, ok := resp.FirstContent()
	if !ok || strings.TrimSpace(text) == "" {
		g.logger.Warn("reply generation returned no text", "model", g.model, "label", label, "choices", len(resp.Choices))
		return models.DegradedReply(errEmptyReply)
	}
	return models.GeneratedReply(text)
}
