package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/povarna/generative-ai-agents/api-discovery/internal/llm"
	"github.com/povarna/generative-ai-agents/api-discovery/internal/models"
	"github.com/povarna/generative-ai-agents/api-discovery/internal/prompt"
	"github.com/rs/zerolog"
)

const (
	AnswerTopK  = 3
	DefaultTopK = 3
	MaxTopK     = 50
)

var (
	ErrEmptyQuery  = errors.New("query must not be empty")
	ErrInvalidTopK = fmt.Errorf("top_k must be between 0 and %d", MaxTopK)
)

// Retriever ranks APIs for a query
type Retriever interface {
	TopAPIs(ctx context.Context, query string, topK int) ([]models.QueryResult, error)
}

// Options tunes the answer prompt. A zero OffTopicThreshold only flags
// queries with no results as off topic.
type Options struct {
	OffTopicThreshold float64
	MaxTokens         int
	Temperature       float64
}

// Service answers discovery questions. It is built once at startup and is
// safe for concurrent use.
type Service struct {
	retriever Retriever
	llmClient llm.LLMClient
	options   Options
	logger    *zerolog.Logger
}

func NewService(retriever Retriever, llmClient llm.LLMClient, options Options, logger *zerolog.Logger) *Service {
	if options.MaxTokens == 0 {
		options.MaxTokens = 1024
	}
	return &Service{
		retriever: retriever,
		llmClient: llmClient,
		options:   options,
		logger:    logger,
	}
}

// TopAPIs returns ranked APIs without calling the LLM
func (s *Service) TopAPIs(ctx context.Context, query string, topK int) ([]models.QueryResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if topK < 0 || topK > MaxTopK {
		return nil, ErrInvalidTopK
	}

	return s.retriever.TopAPIs(ctx, query, topK)
}

// Answer retrieves the top APIs and asks the LLM whether one fits the query
func (s *Service) Answer(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrEmptyQuery
	}

	results, err := s.retriever.TopAPIs(ctx, query, AnswerTopK)
	if err != nil {
		return "", fmt.Errorf("Failed to retrieve APIs. Error: %w", err)
	}

	enhancedPrompt := prompt.BuildWithOptions(query, results, prompt.Options{
		OffTopicThreshold: s.options.OffTopicThreshold,
	})

	s.logger.Info().
		Int("results", len(results)).
		Int("prompt_length", len(enhancedPrompt)).
		Msg("Invoking LLM")

	response, err := s.llmClient.InvokeModelWithRetry(ctx, llm.LLMRequest{
		Prompt:      enhancedPrompt,
		MaxTokens:   s.options.MaxTokens,
		Temperature: s.options.Temperature,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to invoke LLM")
		return "", err
	}

	return response.Content, nil
}
