package azurespeech

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ncecere/feedback_assistant/internal/models"
)

const (
	synthesisPath       = "/cognitiveservices/v1"
	voicesPath          = "/cognitiveservices/voices/list"
	DefaultOutputFormat = "riff-24khz-16bit-mono-pcm"
)

// Options configure the Azure Speech text-to-speech adapter. Endpoint
// overrides the regional host derived from Region.
type Options struct {
	SubscriptionKey string
	Region          string
	Endpoint        string
	OutputFormat    string
	Timeout         time.Duration
}

// Adapter posts SSML documents to the Cognitive Services TTS REST API.
type Adapter struct {
	client       *resty.Client
	outputFormat string
}

func New(opts Options) (*Adapter, error) {
	if strings.TrimSpace(opts.SubscriptionKey) == "" {
		return nil, errors.New("azure speech subscription key required")
	}
	endpoint := strings.TrimRight(strings.TrimSpace(opts.Endpoint), "/")
	if endpoint == "" {
		region := strings.TrimSpace(opts.Region)
		if region == "" {
			return nil, errors.New("azure speech region or endpoint required")
		}
		endpoint = fmt.Sprintf("https://%s.tts.speech.microsoft.com", region)
	}
	format := strings.TrimSpace(opts.OutputFormat)
	if format == "" {
		format = DefaultOutputFormat
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(timeout).
		SetHeader("Ocp-Apim-Subscription-Key", opts.SubscriptionKey).
		SetHeader("User-Agent", "feedback-assistant")

	return &Adapter{client: client, outputFormat: format}, nil
}

// Synthesize renders the request's SSML markup and returns the audio bytes.
func (a *Adapter) Synthesize(ctx context.Context, req models.SpeechRequest) (models.SpeechAudio, error) {
	if strings.TrimSpace(req.Markup) == "" {
		return models.SpeechAudio{}, errors.New("azure speech: ssml markup required")
	}
	format := a.outputFormat
	if req.Format != "" {
		format = req.Format
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/ssml+xml").
		SetHeader("X-Microsoft-OutputFormat", format).
		SetBody(req.Markup).
		Post(synthesisPath)
	if err != nil {
		return models.SpeechAudio{}, fmt.Errorf("azure speech request: %w", err)
	}
	if resp.IsError() {
		detail := strings.TrimSpace(resp.String())
		if detail != "" {
			return models.SpeechAudio{}, fmt.Errorf("azure speech status %d: %s", resp.StatusCode(), detail)
		}
		return models.SpeechAudio{}, fmt.Errorf("azure speech status %d", resp.StatusCode())
	}
	audio := resp.Body()
	if len(audio) == 0 {
		return models.SpeechAudio{}, errors.New("azure speech returned no audio")
	}
	return models.SpeechAudio{Audio: audio, MediaType: models.MediaTypeWAV}, nil
}

// HealthCheck lists voices, which validates both the key and the region.
func (a *Adapter) HealthCheck(ctx context.Context) error {
	resp, err := a.client.R().SetContext(ctx).Get(voicesPath)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("azure speech health check status %d", resp.StatusCode())
	}
	return nil
}
