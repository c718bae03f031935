package ingestion

import (
	"context"
	"errors"
	"fmt"

	"github.com/povarna/generative-ai-agents/api-discovery/internal/embedding"
	"github.com/povarna/generative-ai-agents/api-discovery/internal/models"
	"github.com/povarna/generative-ai-agents/api-discovery/internal/vectorindex"
	"github.com/rs/zerolog"
)

var ErrNoSpecs = errors.New("no API specs to index")

// DocumentWriter stores indexed documents with their vectors in an external
// vector store
type DocumentWriter interface {
	ReplaceDocuments(ctx context.Context, documents []models.IndexedDocument, vectors [][]float32) error
}

type Pipeline struct {
	embedder embedding.Embedder
	logger   *zerolog.Logger
}

func NewPipeline(embedder embedding.Embedder, logger *zerolog.Logger) *Pipeline {
	return &Pipeline{
		embedder: embedder,
		logger:   logger,
	}
}

// Build embeds every spec in one batch and returns an in-memory store whose
// row i holds specs[i]
func (p *Pipeline) Build(ctx context.Context, specs []models.ApiSpec) (*vectorindex.Store, error) {
	if len(specs) == 0 {
		return nil, ErrNoSpecs
	}

	texts := make([]string, len(specs))
	documents := make([]models.IndexedDocument, len(specs))
	for i, spec := range specs {
		texts[i] = BuildDocument(spec)
		documents[i] = NewIndexedDocument(i, spec)
	}

	p.logger.Info().
		Int("documents", len(texts)).
		Str("model", p.embedder.ModelID()).
		Msg("Generating embeddings")

	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("Failed to generate embeddings. Error: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: %d vectors for %d documents", vectorindex.ErrCountMismatch, len(vectors), len(texts))
	}

	index, err := vectorindex.NewFlatIndex(len(vectors[0]))
	if err != nil {
		return nil, err
	}

	for i, v := range vectors {
		if err := index.Add(vectorindex.NormalizeL2(v)); err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
	}

	store, err := vectorindex.NewStore(index, documents, p.embedder.ModelID())
	if err != nil {
		return nil, err
	}

	p.logger.Info().
		Int("vectors", store.Len()).
		Int("dim", store.Dim()).
		Msg("Index built")

	return store, nil
}

// Sync copies every row of store into writer, replacing what was there
func (p *Pipeline) Sync(ctx context.Context, store *vectorindex.Store, writer DocumentWriter) error {
	if err := writer.ReplaceDocuments(ctx, store.Documents(), store.Vectors()); err != nil {
		return fmt.Errorf("failed to sync documents: %w", err)
	}

	p.logger.Info().Int("documents", store.Len()).Msg("Vector store synced")
	return nil
}
