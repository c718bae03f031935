package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"github.com/povarna/generative-ai-agents/api-discovery/internal/models"
	"github.com/povarna/generative-ai-agents/api-discovery/internal/vectorindex"
)

// ReplaceDocuments swaps the whole table contents in one transaction, so
// row ids keep matching the flat index
func (db *DB) ReplaceDocuments(ctx context.Context, documents []models.IndexedDocument, vectors [][]float32) error {
	if len(documents) != len(vectors) {
		return fmt.Errorf("%w: %d vectors, %d documents", vectorindex.ErrCountMismatch, len(vectors), len(documents))
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM api_documents`); err != nil {
		return fmt.Errorf("failed to clear documents: %w", err)
	}

	query := `
        INSERT INTO api_documents (id, title, description, endpoints, raw, embedding, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW())
    `

	for i, doc := range documents {
		endpointsJSON, err := json.Marshal(doc.Endpoints)
		if err != nil {
			return fmt.Errorf("failed to marshal endpoints of document %d: %w", doc.ID, err)
		}
		rawJSON, err := json.Marshal(doc.Raw)
		if err != nil {
			return fmt.Errorf("failed to marshal document %d: %w", doc.ID, err)
		}

		_, err = tx.Exec(ctx, query,
			doc.ID,
			doc.Title,
			doc.Description,
			endpointsJSON,
			rawJSON,
			pgvector.NewVector(vectors[i]),
		)
		if err != nil {
			return fmt.Errorf("failed to insert document %d: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	db.logger.Info().Int("documents", len(documents)).Msg("Documents replaced")
	return nil
}

func (db *DB) CountDocuments(ctx context.Context) (int, error) {
	var count int
	if err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM api_documents`).Scan(&count); err != nil {
		return 0, fmt.Errorf("Unable to count documents: %w", err)
	}
	return count, nil
}

// Search ranks documents by cosine distance. Scores are reported as cosine
// similarity, matching the flat index.
func (db *DB) Search(ctx context.Context, vector []float32, k int) ([]vectorindex.Hit, error) {
	if k <= 0 {
		return []vectorindex.Hit{}, nil
	}

	query := `
	SELECT
	  id,
	  title,
	  description,
	  endpoints,
	  raw,
	  embedding <=> $1 AS distance
	FROM api_documents
	ORDER BY distance ASC, id ASC
	LIMIT $2`

	rows, err := db.Pool.Query(ctx, query, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("Unable to query the database: %w", err)
	}
	defer rows.Close()

	var hits []vectorindex.Hit
	for rows.Next() {
		var (
			doc           models.IndexedDocument
			endpointsJSON []byte
			rawJSON       []byte
			distance      float64
		)

		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Description, &endpointsJSON, &rawJSON, &distance); err != nil {
			return nil, fmt.Errorf("Failed to scan document: %w", err)
		}
		if err := json.Unmarshal(endpointsJSON, &doc.Endpoints); err != nil {
			return nil, fmt.Errorf("invalid endpoints for document %d: %w", doc.ID, err)
		}
		if err := json.Unmarshal(rawJSON, &doc.Raw); err != nil {
			return nil, fmt.Errorf("invalid raw spec for document %d: %w", doc.ID, err)
		}

		hits = append(hits, vectorindex.Hit{
			Row:      int64(doc.ID),
			Score:    float32(1 - distance),
			Document: &doc,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return hits, nil
}
