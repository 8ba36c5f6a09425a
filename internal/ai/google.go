package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"

	"aura-backend/internal/config"
	"aura-backend/internal/logger"
	"aura-backend/internal/telemetry"
)

// GoogleEmbedder produces embeddings via the Google Generative AI API
// (text-embedding-004 by default). Calls are guarded by a circuit breaker
// and a client-side rate limiter.
type GoogleEmbedder struct {
	client  *genai.Client
	model   string
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	metrics *telemetry.Metrics
}

func NewGoogleEmbedder(ctx context.Context, cfg *config.Config, metrics *telemetry.Metrics) (*GoogleEmbedder, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY for embeddings")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, err
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GoogleEmbeddings",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	})

	// Free tier allows 10 RPM; leave a little headroom
	limiter := rate.NewLimiter(rate.Limit(9.0/60.0), 2)

	return &GoogleEmbedder{
		client:  client,
		model:   cfg.GoogleEmbeddingsModel,
		breaker: breaker,
		limiter: limiter,
		metrics: metrics,
	}, nil
}

func (g *GoogleEmbedder) Name() string { return "google" }

// EmbedBatch embeds the whole batch in one BatchEmbedContents round trip.
func (g *GoogleEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	tracer := otel.Tracer("embeddings")
	ctx, span := tracer.Start(ctx, "embeddings.batch")
	defer span.End()
	span.SetAttributes(
		attribute.String("embeddings.provider", "google"),
		attribute.String("embeddings.model", g.model),
		attribute.Int("embeddings.batch_size", len(texts)),
	)

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := g.breaker.Execute(func() (interface{}, error) {
		em := g.client.EmbeddingModel(g.model)
		batch := em.NewBatch()
		for _, text := range texts {
			batch = batch.AddContent(genai.Text(text))
		}
		return em.BatchEmbedContents(ctx, batch)
	})
	if err != nil {
		span.SetAttributes(attribute.Bool("embeddings.error", true))
		return nil, fmt.Errorf("google embeddings failed: %w", err)
	}

	resp := result.(*genai.BatchEmbedContentsResponse)
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d texts, got %d vectors", len(texts), len(resp.Embeddings))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, fmt.Errorf("empty embedding returned for batch item %d", i)
		}
		vectors[i] = e.Values
	}

	if g.metrics != nil {
		g.metrics.RecordEmbedding("google", len(texts), time.Since(start).Seconds())
	}

	return vectors, nil
}

func (g *GoogleEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Close releases the underlying API client.
func (g *GoogleEmbedder) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
