package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"aura-backend/internal/ai"
	"aura-backend/models"
)

// Retrieval defaults, overridable through configuration.
const (
	DefaultTopK               = 3
	DefaultRelevanceThreshold = 0.3
)

// contextSeparator joins the surviving context entries.
const contextSeparator = "\n\n---\n\n"

// cosineEpsilon keeps the denominator away from zero for all-zero vectors.
// Numerical guard only, not a relevance knob.
const cosineEpsilon = 1e-8

// DocumentSource supplies the documents to rank. Keeping the Retriever on
// this interface means the exhaustive scan could later be swapped for a real
// vector index without touching the retrieval contract.
type DocumentSource interface {
	Snapshot() []*models.IndexedDocument
	Len() int
}

// Retriever ranks all indexed chunks against a query embedding and formats
// the most relevant ones into a context block for prompt assembly.
type Retriever struct {
	source    DocumentSource
	embedder  ai.Embedder
	topK      int
	threshold float64
}

func NewRetriever(source DocumentSource, embedder ai.Embedder, topK int, threshold float64) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{
		source:    source,
		embedder:  embedder,
		topK:      topK,
		threshold: threshold,
	}
}

type scoredChunk struct {
	filename   string
	text       string
	similarity float64
}

// Retrieve embeds the query and scans every chunk of every document. The
// flat candidate list is sorted by similarity, cut to topK and then
// quality-gated: rank first, threshold second, so a weak chunk never rides
// in on an empty field. Returns "" when nothing relevant survives.
func (r *Retriever) Retrieve(ctx context.Context, query string) (string, error) {
	// Empty index: skip the embedding round trip entirely
	if r.source.Len() == 0 {
		return "", nil
	}

	tracer := otel.Tracer("retriever")
	ctx, span := tracer.Start(ctx, "retriever.retrieve")
	defer span.End()

	queryEmbedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return "", fmt.Errorf("failed to embed query: %w", err)
	}

	var candidates []scoredChunk
	for _, doc := range r.source.Snapshot() {
		for i, chunk := range doc.Chunks {
			candidates = append(candidates, scoredChunk{
				filename:   doc.Filename,
				text:       chunk,
				similarity: CosineSimilarity(queryEmbedding, doc.Embeddings[i]),
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].similarity > candidates[j].similarity
	})
	if len(candidates) > r.topK {
		candidates = candidates[:r.topK]
	}

	parts := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c.similarity > r.threshold {
			parts = append(parts, fmt.Sprintf("[From: %s]\n%s", c.filename, c.text))
		}
	}

	span.SetAttributes(
		attribute.Int("retriever.candidates", len(candidates)),
		attribute.Int("retriever.selected", len(parts)),
	)

	return strings.Join(parts, contextSeparator), nil
}

// CosineSimilarity computes dot(a,b) / (|a|*|b| + eps) in float64. The
// epsilon prevents division by zero on all-zero vectors; vectors of
// mismatched length score over the shorter prefix.
func CosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	return dot / (math.Sqrt(normA)*math.Sqrt(normB) + cosineEpsilon)
}
