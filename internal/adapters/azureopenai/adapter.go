package azureopenai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/azure"
	"github.com/openai/openai-go/v3/option"

	oaiadapter "github.com/ncecere/feedback_assistant/internal/adapters/openai"
	"github.com/ncecere/feedback_assistant/internal/models"
)

const (
	defaultAPIVersion  = "2024-07-01-preview"
	defaultSpeechModel = "gpt-4o-mini-tts"
	defaultVoice       = "alloy"
)

// Adapter wraps the official OpenAI Go SDK configured for Azure endpoints.
type Adapter struct {
	client      *openai.Client
	httpClient  *http.Client
	endpoint    string
	apiKey      string
	apiVersion  string
	speechModel string
	voice       string
}

type Options struct {
	Endpoint   string
	APIKey     string
	APIVersion string
	// SpeechDeployment names the TTS deployment used by Synthesize.
	SpeechDeployment string
	Voice            string
	Extra            []option.RequestOption
}

// New creates a new Azure adapter using the provided endpoint, api key, and api version.
func New(opts Options) (*Adapter, error) {
	if opts.Endpoint == "" {
		return nil, errors.New("azure openai endpoint required")
	}
	if opts.APIKey == "" {
		return nil, errors.New("azure openai api key required")
	}
	if opts.APIVersion == "" {
		opts.APIVersion = defaultAPIVersion
	}

	endpoint := strings.TrimSuffix(opts.Endpoint, "/")

	options := []option.RequestOption{
		azure.WithEndpoint(endpoint, opts.APIVersion),
		azure.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	options = append(options, opts.Extra...)

	client := openai.NewClient(options...)

	speechModel := strings.TrimSpace(opts.SpeechDeployment)
	if speechModel == "" {
		speechModel = defaultSpeechModel
	}
	voice := strings.TrimSpace(opts.Voice)
	if voice == "" {
		voice = defaultVoice
	}

	return &Adapter{
		client:      &client,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		endpoint:    endpoint,
		apiKey:      opts.APIKey,
		apiVersion:  opts.APIVersion,
		speechModel: speechModel,
		voice:       voice,
	}, nil
}

// Chat performs a chat completion against the deployment named by req.Model.
func (a *Adapter) Chat(ctx context.Context, req models.ChatRequest) (models.ChatResponse, error) {
	resp, err := a.client.Chat.Completions.New(ctx, oaiadapter.BuildChatParams(req))
	if err != nil {
		return models.ChatResponse{}, err
	}
	return oaiadapter.ConvertChatResponse(*resp), nil
}

// Synthesize renders speech through the TTS deployment.
func (a *Adapter) Synthesize(ctx context.Context, req models.SpeechRequest) (models.SpeechAudio, error) {
	params, err := oaiadapter.BuildSpeechParams(req, a.speechModel, a.voice)
	if err != nil {
		return models.SpeechAudio{}, err
	}
	resp, err := a.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return models.SpeechAudio{}, err
	}
	return oaiadapter.ReadSpeech(resp)
}

// HealthCheck makes a lightweight GET request against the Azure deployments endpoint.
func (a *Adapter) HealthCheck(ctx context.Context) error {
	reqURL := fmt.Sprintf("%s/openai/deployments?api-version=%s", a.endpoint, url.QueryEscape(a.apiVersion))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("api-key", a.apiKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("azure health check status %d", resp.StatusCode)
	}
	return nil
}
