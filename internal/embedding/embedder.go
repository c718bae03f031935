package embedding

//go:generate mockgen -source=embedder.go -destination=../mocks/embedder.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrEmptyInput     = errors.New("no text to embed")
	ErrEmptyEmbedding = errors.New("provider returned no embedding")
)

// Embedder turns text into vectors. EmbedBatch returns one vector per input,
// in input order.
type Embedder interface {
	ModelID() string
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

func checkBatch(texts []string, vectors [][]float32) error {
	if len(vectors) != len(texts) {
		return fmt.Errorf("embedding count mismatch: got %d want %d", len(vectors), len(texts))
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("%w at position %d", ErrEmptyEmbedding, i)
		}
	}
	return nil
}

func toFloat32(values []float64) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out
}
