package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultOllamaModel = "all-minilm"

// OllamaConfig points at an Ollama server. all-minilm is all-MiniLM-L6-v2.
type OllamaConfig struct {
	BaseURL string
	Model   string
	Token   string
	Timeout time.Duration
}

// OllamaEmbedder calls the Ollama /api/embed endpoint
type OllamaEmbedder struct {
	config     OllamaConfig
	httpClient *http.Client
}

func NewOllamaEmbedder(config OllamaConfig) *OllamaEmbedder {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	if config.Model == "" {
		config.Model = DefaultOllamaModel
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	return &OllamaEmbedder{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

func (o *OllamaEmbedder) ModelID() string {
	return o.config.Model
}

func (o *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (o *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	payload := map[string]any{
		"model": o.config.Model,
		"input": texts,
	}

	body, err := o.post(ctx, "/api/embed", payload)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}

	var resp struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("ollama embed decode: %w", err)
	}

	if err := checkBatch(texts, resp.Embeddings); err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}

	return resp.Embeddings, nil
}

func (o *OllamaEmbedder) post(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	url := strings.TrimRight(o.config.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if o.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+o.config.Token)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, nil
}
