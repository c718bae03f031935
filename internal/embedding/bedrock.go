package embedding

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

const DefaultTitanModel = "amazon.titan-embed-text-v2:0"

// InvokeModelAPI is the part of the bedrockruntime client the embedder uses
type InvokeModelAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

type titanRequest struct {
	InputText  string `json:"inputText"`
	Dimensions int    `json:"dimensions,omitempty"`
	Normalize  bool   `json:"normalize"`
}

type titanResponse struct {
	Embedding           []float64 `json:"embedding"`
	InputTextTokenCount int       `json:"inputTextTokenCount"`
}

// BedrockEmbedder generates Titan text embeddings, one request per text
type BedrockEmbedder struct {
	client     InvokeModelAPI
	modelID    string
	dimensions int
}

func NewBedrockEmbedder(client InvokeModelAPI, modelID string, dimensions int) *BedrockEmbedder {
	if modelID == "" {
		modelID = DefaultTitanModel
	}
	return &BedrockEmbedder{
		client:     client,
		modelID:    modelID,
		dimensions: dimensions,
	}
}

func (b *BedrockEmbedder) ModelID() string {
	return b.modelID
}

func (b *BedrockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(titanRequest{
		InputText:  text,
		Dimensions: b.dimensions,
		Normalize:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("Unable to serialize titan request. Error: %w", err)
	}

	output, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		Body:        body,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("Unable to invoke titan model. Error: %w", err)
	}

	var response titanResponse
	if err := json.Unmarshal(output.Body, &response); err != nil {
		return nil, fmt.Errorf("Failed to unmarshal titan response. Error: %w", err)
	}
	if len(response.Embedding) == 0 {
		return nil, ErrEmptyEmbedding
	}

	return toFloat32(response.Embedding), nil
}

func (b *BedrockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	vectors := make([][]float32, 0, len(texts))
	for i, text := range texts {
		v, err := b.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		vectors = append(vectors, v)
	}

	return vectors, nil
}
