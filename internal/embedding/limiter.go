package embedding

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedEmbedder waits on a token bucket before every provider call
type RateLimitedEmbedder struct {
	Embedder
	limiter *rate.Limiter
}

// NewRateLimitedEmbedder allows perSecond calls per second with an equal
// burst. A non positive limit returns the embedder unchanged.
func NewRateLimitedEmbedder(embedder Embedder, perSecond int) Embedder {
	if perSecond <= 0 {
		return embedder
	}
	return &RateLimitedEmbedder{
		Embedder: embedder,
		limiter:  rate.NewLimiter(rate.Limit(perSecond), perSecond),
	}
}

func (r *RateLimitedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embedding rate limit: %w", err)
	}
	return r.Embedder.Embed(ctx, text)
}

func (r *RateLimitedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embedding rate limit: %w", err)
	}
	return r.Embedder.EmbedBatch(ctx, texts)
}
