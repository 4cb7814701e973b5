package app_test

import (
	"context"
	"errors"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/ncecere/feedback_assistant/internal/app"
	"github.com/ncecere/feedback_assistant/internal/app/apptest"
	"github.com/ncecere/feedback_assistant/internal/config"
	"github.com/ncecere/feedback_assistant/internal/health"
	"github.com/ncecere/feedback_assistant/internal/limits"
	"github.com/ncecere/feedback_assistant/internal/models"
	"github.com/ncecere/feedback_assistant/internal/pipeline"
)

func TestNewContainerRequiresConfig(t *testing.T) {
	_, err := app.NewContainer(context.Background(), nil, app.Options{})
	require.Error(t, err)
}

func TestNewContainerWithoutSpeech(t *testing.T) {
	container, fakes := apptest.NewContainer(t, apptest.Options{})

	require.Nil(t, container.Synthesizer)
	require.Nil(t, container.Audio)
	require.False(t, container.Pipeline.SpeechAvailable())
	require.Nil(t, container.RateLimiter)
	require.False(t, container.Idempotency.Enabled())
	require.Nil(t, container.History)
	require.Len(t, container.Backends, 2)

	speak := true
	outcome, err := container.Pipeline.Run(context.Background(), pipeline.Request{Text: "I love this product!", Speak: &speak})
	require.NoError(t, err)
	require.Equal(t, models.StageDone, outcome.Stage)
	require.Equal(t, "Thank you for the kind words!", outcome.Reply.Display())
	require.Nil(t, outcome.Audio)
	require.EqualValues(t, 1, fakes.Sentiment.Calls.Load())
	require.EqualValues(t, 1, fakes.Chat.Calls.Load())
	require.Zero(t, fakes.Speech.Calls.Load())

	// no history configured
	container.RecordAnalysis(context.Background(), outcome)
}

func TestNewContainerWithSpeechStoresAudio(t *testing.T) {
	container, fakes := apptest.NewContainer(t, apptest.Options{Speech: true})
	require.NotNil(t, container.Synthesizer)
	require.True(t, container.Pipeline.SpeechAvailable())

	outcome, err := container.Pipeline.Run(context.Background(), pipeline.Request{Text: "I love this product!"})
	require.NoError(t, err)
	require.NotNil(t, outcome.Audio)
	require.Equal(t, models.MediaTypeWAV, outcome.Audio.MediaType)

	info, err := container.Audio.Stat(context.Background(), outcome.Audio.Key)
	require.NoError(t, err)
	require.Positive(t, info.Size)

	again, err := container.Pipeline.Run(context.Background(), pipeline.Request{Text: "I love this product!"})
	require.NoError(t, err)
	require.True(t, again.Audio.Cached)
	require.EqualValues(t, 1, fakes.Speech.Calls.Load())
}

func TestHealthMonitorCoversBackends(t *testing.T) {
	container, _ := apptest.NewContainer(t, apptest.Options{Speech: true})

	container.HealthMon.CheckNow(context.Background())
	report := container.HealthMon.Snapshot()
	require.Equal(t, "degraded", report.Status)
	require.Len(t, report.Checks, 2)
	require.Equal(t, "generation/fake", report.Checks[0].Name)
	require.Equal(t, health.ReasonFailed, report.Checks[0].Error)
	require.Equal(t, "sentiment/fake", report.Checks[1].Name)
}

func TestNewContainerPropagatesBuildErrors(t *testing.T) {
	cfg := apptest.Config(t, false)
	cfg.Sentiment.Provider = "watson"
	_, err := app.NewContainer(context.Background(), cfg, app.Options{})
	require.ErrorContains(t, err, `provider "watson" unsupported`)
}

func TestAcquireRateLimitReleasesOnce(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })

	container, _ := apptest.NewContainer(t, apptest.Options{
		Redis: client,
		Configure: func(cfg *config.Config) {
			cfg.RateLimits = config.RateLimitConfig{ParallelRequests: 1}
		},
	})
	require.True(t, container.Idempotency.Enabled())
	ctx := context.Background()

	release, err := container.AcquireRateLimit(ctx, "10.0.0.1")
	require.NoError(t, err)

	_, err = container.AcquireRateLimit(ctx, "10.0.0.1")
	require.True(t, errors.Is(err, limits.ErrLimitExceeded))

	release()
	release()

	got, err := server.Get("sem:client:10.0.0.1")
	require.NoError(t, err)
	require.Equal(t, "0", got)

	release, err = container.AcquireRateLimit(ctx, "10.0.0.1")
	require.NoError(t, err)
	release()
}

func TestAcquireRateLimitDisabledWithoutRedis(t *testing.T) {
	container, _ := apptest.NewContainer(t, apptest.Options{})
	for i := 0; i < 5; i++ {
		release, err := container.AcquireRateLimit(context.Background(), "ip")
		require.NoError(t, err)
		release()
	}
}
