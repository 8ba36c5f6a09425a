package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	RequestCounter    metric.Int64Counter
	RequestDuration   metric.Float64Histogram
	EmbeddingDuration metric.Float64Histogram
	DocumentsIndexed  metric.Int64Counter
	ChunksIndexed     metric.Int64Counter
	LLMFailures       metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("aura-backend")

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	embeddingDuration, err := meter.Float64Histogram(
		"embeddings.request.duration",
		metric.WithDescription("Embedding provider round-trip duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	documentsIndexed, err := meter.Int64Counter(
		"knowledge.documents.indexed",
		metric.WithDescription("Total documents indexed into the knowledge base"),
	)
	if err != nil {
		return nil, err
	}

	chunksIndexed, err := meter.Int64Counter(
		"knowledge.chunks.indexed",
		metric.WithDescription("Total chunks indexed into the knowledge base"),
	)
	if err != nil {
		return nil, err
	}

	llmFailures, err := meter.Int64Counter(
		"llm.requests.failed",
		metric.WithDescription("Failed outbound chat completion calls"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:    requestCounter,
		RequestDuration:   requestDuration,
		EmbeddingDuration: embeddingDuration,
		DocumentsIndexed:  documentsIndexed,
		ChunksIndexed:     chunksIndexed,
		LLMFailures:       llmFailures,
	}, nil
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	}

	m.RequestCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.RequestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordEmbedding records one embedding provider round trip
func (m *Metrics) RecordEmbedding(provider string, batchSize int, duration float64) {
	attrs := []attribute.KeyValue{
		attribute.String("embeddings.provider", provider),
		attribute.Int("embeddings.batch_size", batchSize),
	}

	m.EmbeddingDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordIndexed records a successful document ingestion
func (m *Metrics) RecordIndexed(chunks int) {
	m.DocumentsIndexed.Add(context.Background(), 1)
	m.ChunksIndexed.Add(context.Background(), int64(chunks))
}

// RecordLLMFailure records a failed outbound model call
func (m *Metrics) RecordLLMFailure(kind string) {
	m.LLMFailures.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("llm.failure_kind", kind)))
}
