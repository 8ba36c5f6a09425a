package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"aura-backend/internal/ai"
	"aura-backend/internal/logger"
	"aura-backend/internal/telemetry"
	"aura-backend/models"
	"aura-backend/utils"
)

// ErrEmptyDocument is returned when a document has no indexable text.
var ErrEmptyDocument = errors.New("document contains no indexable text")

// KnowledgeBase is the in-memory document index. It is the only shared
// mutable state in the service: ingestion appends fully-built documents
// under the lock, readers copy the slice header and scan lock-free since
// stored documents are immutable.
//
// There is no persistence; a process restart starts from an empty index.
type KnowledgeBase struct {
	mu        sync.RWMutex
	docs      []*models.IndexedDocument
	chunkSize int
	overlap   int
	metrics   *telemetry.Metrics
}

func NewKnowledgeBase(chunkSize, overlap int, metrics *telemetry.Metrics) *KnowledgeBase {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 0
	}
	return &KnowledgeBase{
		chunkSize: chunkSize,
		overlap:   overlap,
		metrics:   metrics,
	}
}

// Index chunks the extracted text, embeds the whole chunk batch in one
// provider round trip and appends the finished document. Chunking and
// embedding happen outside the lock; the append is a single atomic step, so
// concurrent readers see the document fully formed or not at all.
func (kb *KnowledgeBase) Index(ctx context.Context, filename, text string, embedder ai.Embedder) (*models.IndexedDocument, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyDocument
	}

	chunks, err := ChunkText(text, kb.chunkSize, kb.overlap)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, ErrEmptyDocument
	}

	embeddings, err := embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("failed to embed document chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("embedding count mismatch: %d chunks, %d vectors", len(chunks), len(embeddings))
	}

	compressed, algorithm, err := utils.CompressText(text)
	if err != nil {
		return nil, fmt.Errorf("failed to compress document content: %w", err)
	}

	doc := &models.IndexedDocument{
		ID:                uuid.NewString(),
		Filename:          filename,
		CompressedContent: compressed,
		Compression:       string(algorithm),
		Chunks:            chunks,
		Embeddings:        embeddings,
		IndexedAt:         time.Now(),
	}

	kb.mu.Lock()
	kb.docs = append(kb.docs, doc)
	kb.mu.Unlock()

	if kb.metrics != nil {
		kb.metrics.RecordIndexed(len(chunks))
	}
	logger.Info("Indexed document", "id", doc.ID, "filename", filename, "chunks", len(chunks))

	return doc, nil
}

// Reset clears the index. Always succeeds.
func (kb *KnowledgeBase) Reset() {
	kb.mu.Lock()
	kb.docs = nil
	kb.mu.Unlock()

	logger.Info("Knowledge base cleared")
}

// Len returns the number of indexed documents.
func (kb *KnowledgeBase) Len() int {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return len(kb.docs)
}

// List returns a read-only projection of the index in insertion order.
func (kb *KnowledgeBase) List() []models.DocumentInfo {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	infos := make([]models.DocumentInfo, 0, len(kb.docs))
	for _, doc := range kb.docs {
		infos = append(infos, models.DocumentInfo{
			ID:          doc.ID,
			Filename:    doc.Filename,
			ChunksCount: len(doc.Chunks),
		})
	}
	return infos
}

// Get looks a document up by id.
func (kb *KnowledgeBase) Get(id string) (*models.IndexedDocument, bool) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	for _, doc := range kb.docs {
		if doc.ID == id {
			return doc, true
		}
	}
	return nil, false
}

// Snapshot returns a copy of the current document list for lock-free
// scanning. Documents themselves are shared but immutable.
func (kb *KnowledgeBase) Snapshot() []*models.IndexedDocument {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	snapshot := make([]*models.IndexedDocument, len(kb.docs))
	copy(snapshot, kb.docs)
	return snapshot
}

// DocumentText returns the decompressed full text of a stored document.
func (kb *KnowledgeBase) DocumentText(doc *models.IndexedDocument) (string, error) {
	return utils.DecompressText(doc.CompressedContent, utils.CompressionAlgorithm(doc.Compression))
}
