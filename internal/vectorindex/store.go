package vectorindex

import (
	"context"
	"fmt"
	"time"

	"github.com/povarna/generative-ai-agents/api-discovery/internal/models"
)

const IndexVersion = 1

// Manifest describes a persisted index and how to interpret it
type Manifest struct {
	IndexVersion int    `json:"index_version"`
	CreatedAt    string `json:"created_at"`
	ModelID      string `json:"model_id"`
	Dim          int    `json:"dim"`
	Count        int    `json:"count"`
	Normalized   bool   `json:"normalized"`
}

// Hit is one search result. Row is -1 for padding and Document is nil when
// the row has no metadata.
type Hit struct {
	Row      int64
	Score    float32
	Document *models.IndexedDocument
}

// Store pairs a FlatIndex with the metadata for each of its rows
type Store struct {
	index     *FlatIndex
	documents []models.IndexedDocument
	manifest  Manifest
}

func NewStore(index *FlatIndex, documents []models.IndexedDocument, modelID string) (*Store, error) {
	if index.Len() != len(documents) {
		return nil, fmt.Errorf("%w: %d vectors, %d documents", ErrCountMismatch, index.Len(), len(documents))
	}

	return &Store{
		index:     index,
		documents: documents,
		manifest: Manifest{
			IndexVersion: IndexVersion,
			CreatedAt:    time.Now().UTC().Format(time.RFC3339),
			ModelID:      modelID,
			Dim:          index.Dim(),
			Count:        len(documents),
			Normalized:   true,
		},
	}, nil
}

func (s *Store) Len() int {
	return len(s.documents)
}

func (s *Store) Dim() int {
	return s.index.Dim()
}

func (s *Store) Manifest() Manifest {
	return s.manifest
}

func (s *Store) Documents() []models.IndexedDocument {
	return s.documents
}

// Vectors returns the stored rows in order
func (s *Store) Vectors() [][]float32 {
	out := make([][]float32, s.index.Len())
	for i := range out {
		out[i] = s.index.Row(i)
	}
	return out
}

func (s *Store) Search(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scores, rows, err := s.index.Search(vector, k)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, len(rows))
	for i, row := range rows {
		hits[i] = Hit{Row: row, Score: scores[i]}
		if row >= 0 && int(row) < len(s.documents) {
			hits[i].Document = &s.documents[row]
		}
	}

	return hits, nil
}
