package retrieval

//go:generate mockgen -source=engine.go -destination=../mocks/searcher.go -package=mocks

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/povarna/generative-ai-agents/api-discovery/internal/embedding"
	"github.com/povarna/generative-ai-agents/api-discovery/internal/models"
	"github.com/povarna/generative-ai-agents/api-discovery/internal/vectorindex"
	"github.com/rs/zerolog"
)

const (
	DefaultMultiplier  = 3
	MaxResultEndpoints = 3
)

// Searcher returns the k nearest rows for a normalized query vector
type Searcher interface {
	Search(ctx context.Context, vector []float32, k int) ([]vectorindex.Hit, error)
}

type Engine struct {
	embedder   embedding.Embedder
	searcher   Searcher
	cache      Cache
	multiplier int
	logger     *zerolog.Logger
}

// NewEngine builds the query engine. cache may be nil.
func NewEngine(embedder embedding.Embedder, searcher Searcher, cache Cache, multiplier int, logger *zerolog.Logger) *Engine {
	if multiplier <= 0 {
		multiplier = DefaultMultiplier
	}
	return &Engine{
		embedder:   embedder,
		searcher:   searcher,
		cache:      cache,
		multiplier: multiplier,
		logger:     logger,
	}
}

// TopAPIs returns at most topK APIs ranked by similarity, one per title
func (e *Engine) TopAPIs(ctx context.Context, query string, topK int) ([]models.QueryResult, error) {
	if topK <= 0 {
		return []models.QueryResult{}, nil
	}

	key := cacheKey(query, topK)
	if e.cache != nil {
		cached, ok, err := e.cache.Get(ctx, key)
		if err != nil {
			e.logger.Warn().Err(err).Msg("Cache lookup failed")
		} else if ok {
			e.logger.Debug().Str("key", key).Msg("Cache hit")
			return cached, nil
		}
	}

	hits, err := e.Hits(ctx, query, topK*e.multiplier)
	if err != nil {
		return nil, err
	}

	results := mergeByTitle(hits)
	if len(results) > topK {
		results = results[:topK]
	}

	e.logger.Info().
		Int("hits", len(hits)).
		Int("results", len(results)).
		Msg("Top APIs retrieved")

	if e.cache != nil {
		if err := e.cache.Set(ctx, key, results); err != nil {
			e.logger.Warn().Err(err).Msg("Cache store failed")
		}
	}

	return results, nil
}

// Hits embeds the query and returns the raw nearest rows, skipping padding
// and rows without metadata
func (e *Engine) Hits(ctx context.Context, query string, k int) ([]vectorindex.Hit, error) {
	if k <= 0 {
		return []vectorindex.Hit{}, nil
	}

	vector, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("Failed to embed query. Error: %w", err)
	}

	raw, err := e.searcher.Search(ctx, vectorindex.NormalizeL2(vector), k)
	if err != nil {
		return nil, fmt.Errorf("Failed to search index. Error: %w", err)
	}

	hits := make([]vectorindex.Hit, 0, len(raw))
	for _, hit := range raw {
		if hit.Row < 0 || hit.Document == nil {
			continue
		}
		hits = append(hits, hit)
	}

	return hits, nil
}

// Score converts a cosine similarity into a percentage with one decimal
func Score(cosine float32) float64 {
	return math.Round(float64(cosine)*1000) / 10
}

type group struct {
	result    models.QueryResult
	endpoints []models.Endpoint
	seen      map[string]struct{}
	baseURLs  map[string]struct{}
}

func mergeByTitle(hits []vectorindex.Hit) []models.QueryResult {
	groups := make(map[string]*group)
	var order []string

	for _, hit := range hits {
		doc := hit.Document
		title := doc.Title
		if title == "" {
			title = models.DefaultTitle
		}
		description := doc.Description
		if description == "" {
			description = models.DefaultDescription
		}
		score := Score(hit.Score)

		g, ok := groups[title]
		if !ok {
			g = &group{
				result: models.QueryResult{
					Title:       title,
					Description: description,
					Score:       score,
					BaseURLs:    []string{},
				},
				seen:     make(map[string]struct{}),
				baseURLs: make(map[string]struct{}),
			}
			groups[title] = g
			order = append(order, title)
		} else if score > g.result.Score {
			g.result.Score = score
			g.result.Description = description
		}

		for _, ep := range doc.Endpoints {
			k := ep.Method + " " + ep.Path
			if _, dup := g.seen[k]; dup {
				continue
			}
			g.seen[k] = struct{}{}
			g.endpoints = append(g.endpoints, ep)
		}

		for _, u := range doc.Raw.BaseURLs {
			if _, dup := g.baseURLs[u]; dup {
				continue
			}
			g.baseURLs[u] = struct{}{}
			g.result.BaseURLs = append(g.result.BaseURLs, u)
		}
	}

	results := make([]models.QueryResult, 0, len(order))
	for _, title := range order {
		g := groups[title]
		n := len(g.endpoints)
		if n > MaxResultEndpoints {
			n = MaxResultEndpoints
		}
		g.result.Endpoints = append([]models.Endpoint{}, g.endpoints[:n]...)
		g.result.TotalEndpoints = len(g.endpoints)
		results = append(results, g.result)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Title < results[j].Title
	})

	return results
}
