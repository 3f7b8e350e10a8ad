// Package embedding turns text into fixed-dimension vectors. The OpenAI
// provider is used in deployments; the local provider is deterministic and
// serves development and tests without network access.
package embedding

import (
	"context"
	"encoding/json"
)

// Provider converts text into a fixed-dimension vector. Implementations
// must be deterministic for identical input within a session.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
	Model() string
}

// VectorToJSON encodes a vector as a JSON string for storage.
func VectorToJSON(vector []float64) (string, error) {
	data, err := json.Marshal(vector)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// JSONToVector decodes a JSON-encoded vector. An empty string yields nil.
func JSONToVector(jsonStr string) ([]float64, error) {
	if jsonStr == "" {
		return nil, nil
	}
	var vector []float64
	if err := json.Unmarshal([]byte(jsonStr), &vector); err != nil {
		return nil, err
	}
	return vector, nil
}
