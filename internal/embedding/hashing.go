package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

const DefaultHashingDim = 384

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"for": {}, "from": {}, "in": {}, "is": {}, "it": {}, "of": {}, "on": {}, "or": {},
	"that": {}, "the": {}, "this": {}, "to": {}, "with": {},
}

// HashingEmbedder is an offline embedder based on signed feature hashing of
// word tokens. Vectors are not normalized.
type HashingEmbedder struct {
	dim int
}

func NewHashingEmbedder(dim int) *HashingEmbedder {
	if dim <= 0 {
		dim = DefaultHashingDim
	}
	return &HashingEmbedder{dim: dim}
}

func (h *HashingEmbedder) ModelID() string {
	return "hashing"
}

func (h *HashingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if _, stop := stopwords[tok]; stop {
			continue
		}
		counts[tok]++
	}

	vector := make([]float32, h.dim)
	for tok, n := range counts {
		hasher := fnv.New32a()
		_, _ = hasher.Write([]byte(tok))
		sum := hasher.Sum32()

		weight := float32(1 + math.Log(float64(n)))
		if sum&(1<<31) != 0 {
			weight = -weight
		}
		vector[int(sum%uint32(h.dim))] += weight
	}

	return vector, nil
}

func (h *HashingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		v, err := h.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, v)
	}

	return vectors, nil
}
