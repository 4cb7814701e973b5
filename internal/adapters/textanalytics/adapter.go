package textanalytics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ncecere/feedback_assistant/internal/models"
)

const sentimentPath = "/text/analytics/v3.1/sentiment"

// Options configure the Azure AI Language sentiment adapter.
type Options struct {
	Endpoint string
	APIKey   string
	Language string
	Timeout  time.Duration
}

// Adapter calls the Text Analytics v3.1 sentiment API for one document at a time.
type Adapter struct {
	client   *resty.Client
	language string
}

type sentimentRequest struct {
	Documents []document `json:"documents"`
}

type document struct {
	ID       string `json:"id"`
	Language string `json:"language,omitempty"`
	Text     string `json:"text"`
}

type sentimentResponse struct {
	Documents []documentSentiment `json:"documents"`
	Errors    []documentError     `json:"errors"`
}

type documentSentiment struct {
	ID               string           `json:"id"`
	Sentiment        string           `json:"sentiment"`
	ConfidenceScores confidenceScores `json:"confidenceScores"`
}

type confidenceScores struct {
	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`
}

type documentError struct {
	ID    string   `json:"id"`
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

// New builds the adapter. The endpoint is the resource root, for example
// https://<resource>.cognitiveservices.azure.com.
func New(opts Options) (*Adapter, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(opts.Endpoint), "/")
	if endpoint == "" {
		return nil, errors.New("text analytics endpoint required")
	}
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("text analytics api key required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(timeout).
		SetHeader("Ocp-Apim-Subscription-Key", opts.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Adapter{client: client, language: strings.TrimSpace(opts.Language)}, nil
}

// Analyze submits text as a single document and returns its label and confidences.
func (a *Adapter) Analyze(ctx context.Context, text string) (models.SentimentResult, error) {
	var out sentimentResponse
	var apiErr errorEnvelope
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(sentimentRequest{Documents: []document{{ID: "1", Language: a.language, Text: text}}}).
		SetResult(&out).
		SetError(&apiErr).
		Post(sentimentPath)
	if err != nil {
		return models.SentimentResult{}, fmt.Errorf("text analytics request: %w", err)
	}
	if resp.IsError() {
		if apiErr.Error.Message != "" {
			return models.SentimentResult{}, fmt.Errorf("text analytics status %d: %s: %s", resp.StatusCode(), apiErr.Error.Code, apiErr.Error.Message)
		}
		return models.SentimentResult{}, fmt.Errorf("text analytics status %d", resp.StatusCode())
	}
	if len(out.Errors) > 0 {
		docErr := out.Errors[0].Error
		return models.SentimentResult{}, fmt.Errorf("text analytics document error %s: %s", docErr.Code, docErr.Message)
	}
	if len(out.Documents) == 0 {
		return models.SentimentResult{}, errors.New("text analytics returned no documents")
	}

	doc := out.Documents[0]
	return models.SentimentResult{
		Label:         models.ParseSentimentLabel(doc.Sentiment),
		PositiveScore: doc.ConfidenceScores.Positive,
		NeutralScore:  doc.ConfidenceScores.Neutral,
		NegativeScore: doc.ConfidenceScores.Negative,
	}, nil
}

// HealthCheck confirms the resource answers; any non-5xx status counts as reachable.
func (a *Adapter) HealthCheck(ctx context.Context) error {
	resp, err := a.client.R().SetContext(ctx).Get("/")
	if err != nil {
		return err
	}
	if resp.StatusCode() >= 500 {
		return fmt.Errorf("text analytics health check status %d", resp.StatusCode())
	}
	return nil
}
