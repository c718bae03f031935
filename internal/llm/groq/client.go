package groq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/povarna/generative-ai-agents/api-discovery/internal/llm"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.3-70b-versatile"
)

type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	Retry      llm.RetryPolicy
	HTTPClient *http.Client
}

// Client talks to the Groq OpenAI-compatible chat completions endpoint
type Client struct {
	Client  openai.Client
	ModelID string
	apiKey  string
	retry   llm.RetryPolicy
}

// NewClient never fails on a missing key; calls return
// llm.ErrAuthenticationMissing instead
func NewClient(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = llm.DefaultRetryPolicy()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &Client{
		Client:  openai.NewClient(opts...),
		ModelID: cfg.Model,
		apiKey:  cfg.APIKey,
		retry:   cfg.Retry,
	}
}

func (c *Client) InvokeModel(ctx context.Context, request llm.LLMRequest) (*llm.LLMResponse, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return nil, llm.NewProviderError(llm.ErrAuthenticationMissing, 0, errors.New("GROQ_API_KEY is not set"))
	}

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(request.Prompt),
		},
		Model: openai.ChatModel(c.ModelID),
	}
	if request.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(request.MaxTokens))
	}
	if request.Temperature > 0 {
		params.Temperature = openai.Float(request.Temperature)
	}

	output, err := c.Client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classify(err)
	}

	if len(output.Choices) == 0 {
		return nil, llm.NewProviderError(llm.ErrInvalidResponseShape, 0, errors.New("no choices in response"))
	}

	choice := output.Choices[0]
	if strings.TrimSpace(choice.Message.Content) == "" {
		return nil, llm.NewProviderError(llm.ErrInvalidResponseShape, 0, errors.New("empty message content"))
	}

	return &llm.LLMResponse{
		Content:    choice.Message.Content,
		StopReason: fmt.Sprint(choice.FinishReason),
	}, nil
}

func (c *Client) InvokeModelWithRetry(ctx context.Context, request llm.LLMRequest) (*llm.LLMResponse, error) {
	return llm.InvokeWithRetry(ctx, c.retry, func(ctx context.Context) (*llm.LLMResponse, error) {
		return c.InvokeModel(ctx, request)
	})
}

func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch code := apiErr.StatusCode; {
		case code == http.StatusUnauthorized || code == http.StatusForbidden:
			return llm.NewProviderError(llm.ErrAuthenticationMissing, code, err)
		case code == http.StatusTooManyRequests || code >= 500:
			return llm.NewProviderError(llm.ErrProviderUnavailable, code, err)
		default:
			return fmt.Errorf("groq rejected the request (status %d): %w", code, err)
		}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return llm.NewProviderError(llm.ErrInvalidResponseShape, 0, err)
	}

	return llm.NewProviderError(llm.ErrProviderUnavailable, 0, err)
}
