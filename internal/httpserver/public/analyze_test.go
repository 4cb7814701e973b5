package public

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/ncecere/feedback_assistant/internal/app"
	"github.com/ncecere/feedback_assistant/internal/app/apptest"
	"github.com/ncecere/feedback_assistant/internal/config"
	"github.com/ncecere/feedback_assistant/internal/models"
)

func newTestApp(container *app.Container) *fiber.App {
	a := fiber.New()
	a.Use(requestid.New())
	Register(a, container)
	return a
}

func postJSON(t *testing.T, a *fiber.App, path, body string, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := a.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(raw, &payload), string(raw))
	return resp, payload
}

func TestAnalyzePositiveFeedback(t *testing.T) {
	container, fakes := apptest.NewContainer(t, apptest.Options{})
	var prompt string
	fakes.Chat.ChatFn = func(_ context.Context, req models.ChatRequest) (models.ChatResponse, error) {
		prompt = req.Messages[len(req.Messages)-1].Content
		return models.ChatResponse{Choices: []models.ChatChoice{{Message: models.ChatMessage{Content: "We're thrilled you love it!"}}}}, nil
	}
	a := newTestApp(container)

	resp, payload := postJSON(t, a, "/analyze", `{"text":"I love this product!"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
	require.Equal(t, resp.Header.Get(fiber.HeaderXRequestID), payload["request_id"])

	azure := payload["azure"].(map[string]any)
	require.Equal(t, "positive", azure["sentiment"])
	require.InDelta(t, 0.95, azure["positive_score"], 1e-9)
	require.InDelta(t, 0.04, azure["neutral_score"], 1e-9)
	require.InDelta(t, 0.01, azure["negative_score"], 1e-9)

	gpt := payload["gpt"].(map[string]any)
	require.Equal(t, "We're thrilled you love it!", gpt["response"])
	require.Equal(t, false, gpt["degraded"])
	require.NotContains(t, payload, "audio")

	require.Contains(t, prompt, "I love this product!")
	require.Contains(t, prompt, "warm and appreciative")
}

func TestAnalyzeRejectsMissingText(t *testing.T) {
	container, fakes := apptest.NewContainer(t, apptest.Options{})
	a := newTestApp(container)

	for _, body := range []string{`{"text":""}`, `{"text":"   "}`, `{}`, `not json`, `{"text": 12}`} {
		resp, payload := postJSON(t, a, "/analyze", body, nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
		require.Equal(t, "No text provided", payload["error"])
	}
	require.Zero(t, fakes.Sentiment.Calls.Load())
	require.Zero(t, fakes.Chat.Calls.Load())
}

func TestAnalyzeClassificationFailure(t *testing.T) {
	container, fakes := apptest.NewContainer(t, apptest.Options{Speech: true})
	fakes.Sentiment.AnalyzeFn = func(context.Context, string) (models.SentimentResult, error) {
		return models.SentimentResult{}, errors.New("dial tcp 10.0.0.5:443: connection refused")
	}
	a := newTestApp(container)

	resp, payload := postJSON(t, a, "/v1/analyze", `{"text":"Where is my order?"}`, nil)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Equal(t, map[string]any{"error": "Sentiment analysis failed"}, payload)
	require.Zero(t, fakes.Chat.Calls.Load())
	require.Zero(t, fakes.Speech.Calls.Load())
}

func TestAnalyzeDegradedReply(t *testing.T) {
	container, fakes := apptest.NewContainer(t, apptest.Options{Speech: true})
	fakes.Sentiment.AnalyzeFn = func(context.Context, string) (models.SentimentResult, error) {
		return models.SentimentResult{Label: models.SentimentNegative, PositiveScore: 0.01, NeutralScore: 0.09, NegativeScore: 0.9}, nil
	}
	fakes.Chat.ChatFn = func(context.Context, models.ChatRequest) (models.ChatResponse, error) {
		return models.ChatResponse{}, context.DeadlineExceeded
	}
	a := newTestApp(container)

	resp, payload := postJSON(t, a, "/analyze", `{"text":"The app keeps crashing"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "negative", payload["azure"].(map[string]any)["sentiment"])
	gpt := payload["gpt"].(map[string]any)
	require.Equal(t, models.GenerationFailedText, gpt["response"])
	require.Equal(t, true, gpt["degraded"])
	require.NotContains(t, payload, "audio")
	require.Zero(t, fakes.Speech.Calls.Load())
}

func TestAnalyzeWithSpeechServesAudio(t *testing.T) {
	container, fakes := apptest.NewContainer(t, apptest.Options{Speech: true})
	a := newTestApp(container)

	resp, payload := postJSON(t, a, "/analyze", `{"text":"I love this product!"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	audio := payload["audio"].(map[string]any)
	filename := audio["filename"].(string)
	require.True(t, strings.HasPrefix(filename, "positive-"))
	require.Equal(t, "/audio/"+filename, audio["url"])
	require.Equal(t, models.MediaTypeWAV, audio["media_type"])
	require.Equal(t, false, audio["cached"])

	get, err := a.Test(httptest.NewRequest(http.MethodGet, "/audio/"+filename, nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, get.StatusCode)
	require.Equal(t, models.MediaTypeWAV, get.Header.Get(fiber.HeaderContentType))
	body, err := io.ReadAll(get.Body)
	require.NoError(t, err)
	require.Equal(t, "RIFF0000WAVEfmt ", string(body))

	_, payload = postJSON(t, a, "/analyze", `{"text":"I love this product!"}`, nil)
	require.Equal(t, true, payload["audio"].(map[string]any)["cached"])
	require.EqualValues(t, 1, fakes.Speech.Calls.Load())

	_, payload = postJSON(t, a, "/analyze", `{"text":"I love this product!","speak":false}`, nil)
	require.NotContains(t, payload, "audio")
}

func TestAnalyzeSpeechFailureOmitsAudio(t *testing.T) {
	container, fakes := apptest.NewContainer(t, apptest.Options{Speech: true})
	fakes.Speech.SynthesizeFn = func(context.Context, models.SpeechRequest) (models.SpeechAudio, error) {
		return models.SpeechAudio{}, errors.New("quota exceeded")
	}
	a := newTestApp(container)

	resp, payload := postJSON(t, a, "/analyze", `{"text":"Pretty good overall"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotContains(t, payload, "audio")
	require.Equal(t, "Thank you for the kind words!", payload["gpt"].(map[string]any)["response"])
}

func TestAudioRoute(t *testing.T) {
	container, _ := apptest.NewContainer(t, apptest.Options{Speech: true})
	a := newTestApp(container)

	resp, payload := postJSON(t, a, "/analyze", `{"text":"I love this product!"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	filename := payload["audio"].(map[string]any)["filename"].(string)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{name: "stored", path: "/audio/" + filename, status: http.StatusOK},
		{name: "missing", path: "/audio/positive-000000000000000000000000.wav", status: http.StatusNotFound},
		{name: "metadata sidecar", path: "/audio/" + filename + ".meta", status: http.StatusBadRequest},
		{name: "upload temp file", path: "/audio/.upload-123.tmp", status: http.StatusBadRequest},
		{name: "metadata temp file", path: "/audio/.meta-123.tmp", status: http.StatusBadRequest},
		{name: "dot dot", path: "/audio/..wav", status: http.StatusBadRequest},
		{name: "encoded separator", path: "/audio/..%5Csecret.wav", status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			resp, err := a.Test(httptest.NewRequest(http.MethodGet, tt.path, nil), -1)
			require.NoError(t, err)
			require.Equal(t, tt.status, resp.StatusCode)
			if tt.status != http.StatusOK {
				require.NotEqual(t, models.MediaTypeWAV, resp.Header.Get(fiber.HeaderContentType))
			}
		})
	}

	disabled, _ := apptest.NewContainer(t, apptest.Options{})
	resp, err := newTestApp(disabled).Test(httptest.NewRequest(http.MethodGet, "/audio/positive-0123456789abcdef01234567.wav", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func newRedisContainer(t *testing.T, configure func(cfg *config.Config)) (*app.Container, *apptest.Fakes) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })
	return apptest.NewContainer(t, apptest.Options{Redis: client, Configure: configure})
}

func TestAnalyzeIdempotentReplay(t *testing.T) {
	container, fakes := newRedisContainer(t, nil)
	a := newTestApp(container)
	headers := map[string]string{HeaderIdempotencyKey: "order-42"}

	first, firstBody := postJSON(t, a, "/analyze", `{"text":"I love this product!"}`, headers)
	require.Equal(t, http.StatusOK, first.StatusCode)
	require.Empty(t, first.Header.Get(HeaderIdempotentReplay))

	second, secondBody := postJSON(t, a, "/analyze", `{"text":"I love this product!"}`, headers)
	require.Equal(t, http.StatusOK, second.StatusCode)
	require.Equal(t, "true", second.Header.Get(HeaderIdempotentReplay))
	require.Equal(t, firstBody, secondBody)
	require.EqualValues(t, 1, fakes.Sentiment.Calls.Load())
	require.EqualValues(t, 1, fakes.Chat.Calls.Load())

	third, _ := postJSON(t, a, "/analyze", `{"text":"I love this product!"}`, nil)
	require.Empty(t, third.Header.Get(HeaderIdempotentReplay))
	require.EqualValues(t, 2, fakes.Sentiment.Calls.Load())
}

func TestAnalyzeFailuresAreNotCached(t *testing.T) {
	container, fakes := newRedisContainer(t, nil)
	calls := 0
	fakes.Sentiment.AnalyzeFn = func(context.Context, string) (models.SentimentResult, error) {
		calls++
		if calls == 1 {
			return models.SentimentResult{}, errors.New("timeout")
		}
		return models.SentimentResult{Label: models.SentimentNeutral, NeutralScore: 1}, nil
	}
	a := newTestApp(container)
	headers := map[string]string{HeaderIdempotencyKey: "retry-me"}

	resp, _ := postJSON(t, a, "/analyze", `{"text":"ok"}`, headers)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	resp, payload := postJSON(t, a, "/analyze", `{"text":"ok"}`, headers)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, resp.Header.Get(HeaderIdempotentReplay))
	require.Equal(t, "neutral", payload["azure"].(map[string]any)["sentiment"])
}

func TestAnalyzeRateLimited(t *testing.T) {
	container, fakes := newRedisContainer(t, func(cfg *config.Config) {
		cfg.RateLimits = config.RateLimitConfig{RequestsPerMinute: 1}
	})
	a := newTestApp(container)

	resp, _ := postJSON(t, a, "/analyze", `{"text":"first"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, payload := postJSON(t, a, "/analyze", `{"text":"second"}`, nil)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.Equal(t, "rate limit exceeded", payload["error"])
	require.NotEmpty(t, resp.Header.Get(fiber.HeaderRetryAfter))
	require.EqualValues(t, 1, fakes.Sentiment.Calls.Load())
}

func TestAnalysesDisabledWithoutHistory(t *testing.T) {
	container, _ := apptest.NewContainer(t, apptest.Options{})
	resp, err := newTestApp(container).Test(httptest.NewRequest(http.MethodGet, "/v1/analyses", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRequestIDHeaderIsNormalized(t *testing.T) {
	container, _ := apptest.NewContainer(t, apptest.Options{})
	a := newTestApp(container)

	resp, payload := postJSON(t, a, "/analyze", `{"text":"hi"}`, map[string]string{fiber.HeaderXRequestID: "client-abc"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "client-abc", payload["request_id"])

	resp, payload = postJSON(t, a, "/analyze", `{"text":"hi"}`, map[string]string{fiber.HeaderXRequestID: "has spaces in it"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEqual(t, "has spaces in it", payload["request_id"])
	require.Equal(t, payload["request_id"], resp.Header.Get(fiber.HeaderXRequestID))
}
