package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"

	"github.com/ncecere/feedback_assistant/internal/models"
)

const (
	defaultSpeechModel = "gpt-4o-mini-tts"
	defaultVoice       = "alloy"
)

// Options configure the native OpenAI adapter.
type Options struct {
	APIKey       string
	BaseURL      string
	Organization string
	SpeechModel  string
	Voice        string
	Extra        []option.RequestOption
}

// Adapter wraps the official OpenAI SDK for chat replies and speech.
type Adapter struct {
	client      *openai.Client
	speechModel string
	voice       string
}

// New creates an OpenAI adapter using the provided API key and optional base URL/organization.
// The SDK's own retry loop is disabled; callers decide whether a failure is retried.
func New(opts Options) (*Adapter, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openai: api key required")
	}

	requestOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if strings.TrimSpace(opts.BaseURL) != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(strings.TrimRight(opts.BaseURL, "/")))
	}
	if strings.TrimSpace(opts.Organization) != "" {
		requestOpts = append(requestOpts, option.WithOrganization(strings.TrimSpace(opts.Organization)))
	}
	requestOpts = append(requestOpts, opts.Extra...)

	client := openai.NewClient(requestOpts...)
	return &Adapter{
		client:      &client,
		speechModel: firstNonEmpty(opts.SpeechModel, defaultSpeechModel),
		voice:       firstNonEmpty(opts.Voice, defaultVoice),
	}, nil
}

// Chat performs a non-streaming chat completion request.
func (a *Adapter) Chat(ctx context.Context, req models.ChatRequest) (models.ChatResponse, error) {
	resp, err := a.client.Chat.Completions.New(ctx, BuildChatParams(req))
	if err != nil {
		return models.ChatResponse{}, err
	}
	return ConvertChatResponse(*resp), nil
}

// Synthesize renders speech through the audio/speech endpoint as wav.
func (a *Adapter) Synthesize(ctx context.Context, req models.SpeechRequest) (models.SpeechAudio, error) {
	params, err := BuildSpeechParams(req, a.speechModel, a.voice)
	if err != nil {
		return models.SpeechAudio{}, err
	}
	resp, err := a.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return models.SpeechAudio{}, err
	}
	return ReadSpeech(resp)
}

// HealthCheck uses the Models API as a lightweight readiness probe.
func (a *Adapter) HealthCheck(ctx context.Context) error {
	_, err := a.client.Models.List(ctx)
	return err
}

// BuildChatParams converts a chat request into SDK params.
func BuildChatParams(req models.ChatRequest) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch strings.ToLower(msg.Role) {
		case "system":
			messages = append(messages, openai.SystemMessage(msg.Content))
		case "assistant":
			messages = append(messages, openai.ChatCompletionMessageParamOfAssistant(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: messages,
	}
	if req.MaxTokens != nil {
		params.MaxTokens = param.NewOpt(int64(*req.MaxTokens))
	}
	return params
}

// ConvertChatResponse maps the SDK completion onto the service model.
func ConvertChatResponse(resp openai.ChatCompletion) models.ChatResponse {
	choices := make([]models.ChatChoice, 0, len(resp.Choices))
	for _, choice := range resp.Choices {
		choices = append(choices, models.ChatChoice{
			Index: int(choice.Index),
			Message: models.ChatMessage{
				Role:    string(choice.Message.Role),
				Content: choice.Message.Content,
			},
			FinishReason: choice.FinishReason,
		})
	}

	return models.ChatResponse{
		ID:      resp.ID,
		Created: time.Unix(resp.Created, 0),
		Model:   resp.Model,
		Choices: choices,
		Usage: models.Usage{
			PromptTokens:     int32(resp.Usage.PromptTokens),
			CompletionTokens: int32(resp.Usage.CompletionTokens),
			TotalTokens:      int32(resp.Usage.TotalTokens),
		},
	}
}

// BuildSpeechParams converts a speech request into SDK params. The markup is
// ignored; the mood travels as spoken-style instructions instead.
func BuildSpeechParams(req models.SpeechRequest, model, fallbackVoice string) (openai.AudioSpeechNewParams, error) {
	input := strings.TrimSpace(req.Text)
	if input == "" {
		return openai.AudioSpeechNewParams{}, errors.New("openai: input is required for speech synthesis")
	}
	voice := strings.TrimSpace(req.Voice)
	if voice == "" {
		voice = fallbackVoice
	}

	params := openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(model),
		Input:          input,
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormat("wav"),
	}
	if instructions := InstructionsForStyle(req.Style); instructions != "" {
		params.Instructions = openai.String(instructions)
	}
	return params, nil
}

// InstructionsForStyle phrases an SSML speaking style as a TTS instruction.
func InstructionsForStyle(style string) string {
	switch strings.ToLower(strings.TrimSpace(style)) {
	case "cheerful":
		return "Speak in a cheerful, upbeat tone."
	case "empathetic":
		return "Speak in a warm, empathetic and apologetic tone."
	case "calm":
		return "Speak in a calm, even tone."
	default:
		return ""
	}
}

// ReadSpeech drains a speech response body.
func ReadSpeech(resp *http.Response) (models.SpeechAudio, error) {
	if resp == nil || resp.Body == nil {
		return models.SpeechAudio{}, errors.New("openai: empty speech response")
	}
	defer resp.Body.Close()
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.SpeechAudio{}, fmt.Errorf("read speech body: %w", err)
	}
	if len(audio) == 0 {
		return models.SpeechAudio{}, errors.New("openai: speech response was empty")
	}
	return models.SpeechAudio{Audio: audio, MediaType: models.MediaTypeWAV}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
