package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/ncecere/feedback_assistant/internal/models"
)

const (
	defaultAnthropicVersion = "bedrock-2023-05-31"
	defaultMaxTokens        = 1024
)

// Options controls how the Bedrock adapter is initialised.
type Options struct {
	Region          string
	Profile         string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// ModelID is an Anthropic messages model, e.g. anthropic.claude-3-haiku-20240307-v1:0.
	ModelID          string
	AnthropicVersion string
	DefaultMaxTokens int32

	// Endpoint overrides the service endpoints for both bedrock-runtime and STS.
	Endpoint string
}

// Adapter generates chat replies through Bedrock InvokeModel.
type Adapter struct {
	client    *bedrockruntime.Client
	stsClient *sts.Client
	opts      Options
}

// New creates a Bedrock adapter using the provided credentials/region.
// The SDK retryer is limited to a single attempt.
func New(ctx context.Context, opts Options) (*Adapter, error) {
	if strings.TrimSpace(opts.Region) == "" {
		return nil, errors.New("bedrock region required")
	}
	if strings.TrimSpace(opts.ModelID) == "" {
		return nil, errors.New("bedrock model id required")
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
		config.WithRetryMaxAttempts(1),
	}
	if opts.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(opts.Profile))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		staticProvider := credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, opts.SessionToken)
		loadOpts = append(loadOpts, config.WithCredentialsProvider(staticProvider))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := strings.TrimRight(strings.TrimSpace(opts.Endpoint), "/")
	client := bedrockruntime.NewFromConfig(awsCfg, func(o *bedrockruntime.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	stsClient := sts.NewFromConfig(awsCfg, func(o *sts.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	if opts.AnthropicVersion == "" {
		opts.AnthropicVersion = defaultAnthropicVersion
	}

	return &Adapter{client: client, stsClient: stsClient, opts: opts}, nil
}

// Chat sends the messages as an Anthropic messages payload.
func (a *Adapter) Chat(ctx context.Context, req models.ChatRequest) (models.ChatResponse, error) {
	if len(req.Messages) == 0 {
		return models.ChatResponse{}, errors.New("at least one message is required")
	}

	body, err := BuildAnthropicBody(req, a.opts.AnthropicVersion, a.opts.DefaultMaxTokens)
	if err != nil {
		return models.ChatResponse{}, err
	}

	out, err := a.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(a.opts.ModelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return models.ChatResponse{}, err
	}

	var parsed invokeResponse
	if err := json.Unmarshal(out.Body, &parsed); err != nil {
		return models.ChatResponse{}, fmt.Errorf("decode bedrock response: %w", err)
	}

	return models.ChatResponse{
		ID:      parsed.ID,
		Created: time.Now().UTC(),
		Model:   a.opts.ModelID,
		Choices: []models.ChatChoice{
			{
				Message: models.ChatMessage{
					Role:    "assistant",
					Content: parsed.Text(),
				},
				FinishReason: mapStopReason(parsed.StopReason),
			},
		},
		Usage: models.Usage{
			PromptTokens:     parsed.Usage.InputTokens,
			CompletionTokens: parsed.Usage.OutputTokens,
			TotalTokens:      parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
		},
	}, nil
}

// HealthCheck verifies the credentials resolve without paying for inference.
func (a *Adapter) HealthCheck(ctx context.Context) error {
	if a.stsClient == nil {
		return errors.New("bedrock sts client not initialised")
	}
	_, err := a.stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	return err
}

// BuildAnthropicBody folds system messages into the top-level system field
// and maps everything else onto user/assistant turns.
func BuildAnthropicBody(req models.ChatRequest, version string, fallbackMaxTokens int32) ([]byte, error) {
	var systemPrompts []string
	messages := make([]turn, 0, len(req.Messages))

	for _, msg := range req.Messages {
		role := "user"
		switch strings.ToLower(msg.Role) {
		case "system":
			systemPrompts = append(systemPrompts, msg.Content)
			continue
		case "assistant":
			role = "assistant"
		}
		messages = append(messages, turn{
			Role:    role,
			Content: []contentBlock{{Type: "text", Text: msg.Content}},
		})
	}
	if len(messages) == 0 {
		return nil, errors.New("bedrock requires at least one user message")
	}

	maxTokens := fallbackMaxTokens
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		maxTokens = *req.MaxTokens
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	body := invokeRequest{
		AnthropicVersion: version,
		Messages:         messages,
		MaxTokens:        maxTokens,
		System:           strings.Join(systemPrompts, "\n"),
	}
	return json.Marshal(body)
}

type invokeRequest struct {
	AnthropicVersion string `json:"anthropic_version"`
	System           string `json:"system,omitempty"`
	Messages         []turn `json:"messages"`
	MaxTokens        int32  `json:"max_tokens"`
}

type turn struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type tokenUsage struct {
	InputTokens  int32 `json:"input_tokens"`
	OutputTokens int32 `json:"output_tokens"`
}

type invokeResponse struct {
	ID         string         `json:"id"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      tokenUsage     `json:"usage"`
}

// Text concatenates the text blocks in order.
func (r invokeResponse) Text() string {
	var b strings.Builder
	for _, c := range r.Content {
		if c.Type == "text" {
			b.WriteString(c.Text)
		}
	}
	return b.String()
}

func mapStopReason(reason string) string {
	switch reason {
	case "", "end_turn", "stop_sequence":
		return "stop"
	case "max_tokens":
		return "length"
	default:
		return reason
	}
}
