package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// LocalProvider is a deterministic bag-of-words hashing embedder. Tokens
// are hashed into a fixed number of buckets with alternating sign, and the
// result is L2-normalized, so texts sharing tokens score a meaningful
// cosine similarity. It exists for development and tests; ranking quality
// is far below a real embedding model.
type LocalProvider struct {
	dimension int
}

// NewLocalProvider creates a local embedder with the given dimension.
func NewLocalProvider(dimension int) *LocalProvider {
	if dimension <= 0 {
		dimension = 64
	}
	return &LocalProvider{dimension: dimension}
}

// Embed returns the deterministic vector for one text.
func (p *LocalProvider) Embed(_ context.Context, text string) ([]float64, error) {
	vector := make([]float64, p.dimension)
	for _, token := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(token))
		sum := h.Sum32()
		bucket := int(sum) % p.dimension
		if bucket < 0 {
			bucket += p.dimension
		}
		sign := 1.0
		if sum&1 == 1 {
			sign = -1.0
		}
		vector[bucket] += sign
	}

	var norm float64
	for _, v := range vector {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vector {
			vector[i] /= norm
		}
	}
	return vector, nil
}

// EmbedBatch embeds each text independently.
func (p *LocalProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		vector, err := p.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vector
	}
	return vectors, nil
}

// Model returns the local model identifier.
func (p *LocalProvider) Model() string {
	return "local-hash-v1"
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
