package ai

import (
	"context"
	"fmt"

	"aura-backend/internal/config"
	"aura-backend/internal/telemetry"
)

// Embedder maps text to fixed-dimension vectors. All vectors produced by one
// Embedder share the same dimensionality for the lifetime of the process.
type Embedder interface {
	// EmbedBatch returns one vector per input text, order-preserving, using a
	// single provider round trip. An empty batch yields an empty result and
	// no provider call.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Embed returns the vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// Name identifies the provider for logs and metrics.
	Name() string
}

// NewEmbedder returns the embedder selected by configuration.
func NewEmbedder(ctx context.Context, cfg *config.Config, metrics *telemetry.Metrics) (Embedder, error) {
	switch cfg.EmbeddingsProvider {
	case "google", "":
		return NewGoogleEmbedder(ctx, cfg, metrics)
	case "openai":
		return NewOpenAIEmbedder(cfg, metrics), nil
	default:
		return nil, fmt.Errorf("unknown embeddings provider: %s", cfg.EmbeddingsProvider)
	}
}
