package public

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ncecere/feedback_assistant/internal/app"
	"github.com/ncecere/feedback_assistant/internal/httpserver/httputil"
	"github.com/ncecere/feedback_assistant/internal/limits"
	"github.com/ncecere/feedback_assistant/internal/models"
	"github.com/ncecere/feedback_assistant/internal/pipeline"
	"github.com/ncecere/feedback_assistant/internal/sentiment"
)

const (
	// HeaderIdempotentReplay is set on responses served from the idempotency cache.
	HeaderIdempotentReplay = "Idempotent-Replay"

	msgNoText          = "No text provided"
	msgAnalysisFailed  = "Sentiment analysis failed"
	msgRateLimited     = "rate limit exceeded"
	msgInternalFailure = "internal error"
)

type analyzeHandler struct {
	container *app.Container
}

type analyzeRequest struct {
	Text  string `json:"text"`
	Speak *bool  `json:"speak,omitempty"`
}

type replyDTO struct {
	Response string `json:"response"`
	Degraded bool   `json:"degraded"`
}

type audioDTO struct {
	Filename  string `json:"filename"`
	URL       string `json:"url"`
	MediaType string `json:"media_type"`
	Cached    bool   `json:"cached"`
}

type analyzeResponse struct {
	RequestID string                 `json:"request_id"`
	Azure     models.SentimentResult `json:"azure"`
	GPT       replyDTO               `json:"gpt"`
	Audio     *audioDTO              `json:"audio,omitempty"`
}

func toAnalyzeResponse(outcome models.Outcome) analyzeResponse {
	resp := analyzeResponse{RequestID: outcome.RequestID}
	if outcome.Sentiment != nil {
		resp.Azure = *outcome.Sentiment
	}
	if outcome.Reply != nil {
		resp.GPT = replyDTO{Response: outcome.Reply.Display(), Degraded: outcome.Reply.Degraded}
	}
	if a := outcome.Audio; a != nil {
		resp.Audio = &audioDTO{
			Filename:  a.Filename,
			URL:       "/audio/" + a.Filename,
			MediaType: a.MediaType,
			Cached:    a.Cached,
		}
	}
	return resp
}

func (h *analyzeHandler) analyze(c *fiber.Ctx) error {
	rc := requestCtx(c)
	ctx := userContext(c)
	logger := h.container.Logger.With("request_id", rc.RequestID)

	var req analyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, msgNoText)
	}

	if rc.IdempotencyKey != "" {
		body, ok, err := h.container.Idempotency.Get(ctx, rc.IdempotencyKey)
		if err != nil {
			logger.Warn("idempotency lookup failed", "error", err)
		}
		if ok {
			c.Set(HeaderIdempotentReplay, "true")
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Status(fiber.StatusOK).Send(body)
		}
	}

	release, err := h.container.AcquireRateLimit(ctx, rc.ClientIP)
	if err != nil {
		if errors.Is(err, limits.ErrLimitExceeded) {
			return httputil.WriteTooManyRequests(c, untilNextMinute(time.Now()), msgRateLimited)
		}
		logger.Warn("rate limiter unavailable, admitting request", "error", err)
		release = func() {}
	}
	defer release()

	if timeout := h.container.Config.Server.RequestTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	outcome, err := h.container.Pipeline.Run(ctx, pipeline.Request{
		Text:      req.Text,
		RequestID: rc.RequestID,
		Speak:     req.Speak,
	})
	switch {
	case errors.Is(err, pipeline.ErrInvalidInput):
		return httputil.WriteError(c, fiber.StatusBadRequest, msgNoText)
	case errors.Is(err, sentiment.ErrClassification):
		return httputil.WriteError(c, fiber.StatusInternalServerError, msgAnalysisFailed)
	case err != nil:
		logger.Error("analysis failed", "error", err)
		return httputil.WriteError(c, fiber.StatusInternalServerError, msgInternalFailure)
	}
	if outcome.SpeechError != nil {
		logger.Info("audio omitted", "error", outcome.SpeechError)
	}

	h.container.RecordAnalysis(ctx, outcome)

	body, err := json.Marshal(toAnalyzeResponse(outcome))
	if err != nil {
		return httputil.WriteError(c, fiber.StatusInternalServerError, msgInternalFailure)
	}
	if rc.IdempotencyKey != "" {
		if err := h.container.Idempotency.Set(ctx, rc.IdempotencyKey, body); err != nil {
			logger.Warn("idempotency store failed", "error", err)
		}
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(fiber.StatusOK).Send(body)
}

// untilNextMinute matches the fixed one-minute windows of the rate limiter.
func untilNextMinute(now time.Time) time.Duration {
	return now.Truncate(time.Minute).Add(time.Minute).Sub(now)
}
