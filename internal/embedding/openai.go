package embedding

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIProvider embeds text through an OpenAI-compatible API, with an
// optional redis result cache keyed by model and text hash.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	cache  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// OpenAIConfig configures the OpenAI embedding provider.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string // e.g. "text-embedding-3-small"
}

// NewOpenAIProvider creates an OpenAI embedding provider. cache may be nil.
func NewOpenAIProvider(cfg OpenAIConfig, cache *redis.Client, ttl time.Duration, logger *zap.Logger) *OpenAIProvider {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		// Use the configured BaseURL verbatim; providers disagree on path
		// layout (/v1 vs vendor-specific prefixes).
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

// Embed returns the vector for one text, consulting the cache first.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	if p.cache != nil {
		key := p.cacheKey(text)
		if cached, err := p.cache.Get(ctx, key).Result(); err == nil {
			vector, err := JSONToVector(cached)
			if err == nil && vector != nil {
				p.logger.Debug("embedding cache hit", zap.String("key", key[:16]))
				return vector, nil
			}
		}
	}

	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	result := vectors[0]

	if p.cache != nil {
		if encoded, err := VectorToJSON(result); err == nil {
			if err := p.cache.Set(ctx, p.cacheKey(text), encoded, p.ttl).Err(); err != nil {
				p.logger.Warn("failed to cache embedding", zap.Error(err))
			}
		}
	}

	return result, nil
}

// EmbedBatch returns vectors for several texts in one API call.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(p.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response size mismatch: got %d, want %d", len(resp.Data), len(texts))
	}

	vectors := make([][]float64, len(resp.Data))
	for i, item := range resp.Data {
		vector := make([]float64, len(item.Embedding))
		for j, v := range item.Embedding {
			vector[j] = float64(v)
		}
		vectors[i] = vector
	}
	return vectors, nil
}

// Model returns the model identifier.
func (p *OpenAIProvider) Model() string {
	return p.model
}

func (p *OpenAIProvider) cacheKey(text string) string {
	hash := sha256.Sum256([]byte(p.model + ":" + text))
	return fmt.Sprintf("emb:%x", hash[:16])
}
