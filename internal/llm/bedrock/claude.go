package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"
	"github.com/povarna/generative-ai-agents/api-discovery/internal/llm"
)

type InvokeModelAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

type claudeMessageRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	MaxTokens        int             `json:"max_tokens"`
	Temperature      float64         `json:"temperature"`
	Messages         []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeMessageResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

var anthropicVersion = "bedrock-2023-05-31"

// Client invokes Anthropic Claude models hosted on Bedrock
type Client struct {
	Client  InvokeModelAPI
	ModelID string
	retry   llm.RetryPolicy
}

func NewClient(runtime InvokeModelAPI, modelID string, retry llm.RetryPolicy) (*Client, error) {
	if modelID == "" {
		return nil, fmt.Errorf("Claude model ID is required")
	}
	if retry.MaxAttempts == 0 {
		retry = llm.DefaultRetryPolicy()
	}

	return &Client{
		Client:  runtime,
		ModelID: modelID,
		retry:   retry,
	}, nil
}

func (c *Client) InvokeModel(ctx context.Context, request llm.LLMRequest) (*llm.LLMResponse, error) {
	maxTokens := request.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	payload := claudeMessageRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        maxTokens,
		Temperature:      request.Temperature,
		Messages: []claudeMessage{
			{
				Role:    "user",
				Content: request.Prompt,
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("Unable to serialize claude request. Error: %w", err)
	}

	output, err := c.Client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.ModelID),
		Body:        body,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, classify(err)
	}

	var response claudeMessageResponse
	if err := json.Unmarshal(output.Body, &response); err != nil {
		return nil, llm.NewProviderError(llm.ErrInvalidResponseShape, 0, err)
	}

	var content string
	for _, block := range response.Content {
		if block.Type == "text" || block.Type == "" {
			content += block.Text
		}
	}
	if strings.TrimSpace(content) == "" {
		return nil, llm.NewProviderError(llm.ErrInvalidResponseShape, 0, errors.New("no text content in response"))
	}

	return &llm.LLMResponse{
		Content:    content,
		StopReason: response.StopReason,
	}, nil
}

func (c *Client) InvokeModelWithRetry(ctx context.Context, request llm.LLMRequest) (*llm.LLMResponse, error) {
	return llm.InvokeWithRetry(ctx, c.retry, func(ctx context.Context) (*llm.LLMResponse, error) {
		return c.InvokeModel(ctx, request)
	})
}

func classify(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDeniedException", "UnrecognizedClientException", "ExpiredTokenException":
			return llm.NewProviderError(llm.ErrAuthenticationMissing, 0, err)
		case "ThrottlingException", "TooManyRequestsException", "ServiceUnavailableException",
			"InternalServerException", "ModelTimeoutException", "ModelNotReadyException":
			return llm.NewProviderError(llm.ErrProviderUnavailable, 0, err)
		default:
			return fmt.Errorf("Unable to invoke claude model. Error: %w", err)
		}
	}

	return llm.NewProviderError(llm.ErrProviderUnavailable, 0, err)
}
