package services

import (
	"context"
	"strings"
	"sync"
	"testing"
)

func TestIndexBuildsDocument(t *testing.T) {
	kb := NewKnowledgeBase(DefaultChunkSize, DefaultChunkOverlap, nil)
	embedder := &stubEmbedder{fallback: []float32{1, 0, 0}}

	text := strings.Repeat("the quick brown fox jumps over the lazy dog ", 30)
	doc, err := kb.Index(context.Background(), "fox.txt", text, embedder)
	if err != nil {
		t.Fatalf("index error: %v", err)
	}

	if doc.ID == "" {
		t.Fatalf("expected generated document id")
	}
	if doc.Filename != "fox.txt" {
		t.Fatalf("expected filename fox.txt, got %q", doc.Filename)
	}
	if len(doc.Chunks) == 0 {
		t.Fatalf("expected at least one chunk")
	}
	if len(doc.Chunks) != len(doc.Embeddings) {
		t.Fatalf("chunk/embedding count mismatch: %d vs %d", len(doc.Chunks), len(doc.Embeddings))
	}
	if embedder.batchCalls != 1 {
		t.Fatalf("expected a single embedding round trip, got %d", embedder.batchCalls)
	}
	if kb.Len() != 1 {
		t.Fatalf("expected 1 indexed document, got %d", kb.Len())
	}
}

func TestIndexRejectsEmptyText(t *testing.T) {
	kb := NewKnowledgeBase(DefaultChunkSize, DefaultChunkOverlap, nil)
	embedder := &stubEmbedder{}

	if _, err := kb.Index(context.Background(), "empty.txt", "   \n\t  ", embedder); err != ErrEmptyDocument {
		t.Fatalf("expected ErrEmptyDocument, got %v", err)
	}
	if embedder.batchCalls != 0 {
		t.Fatalf("empty document must not reach the provider")
	}
	if kb.Len() != 0 {
		t.Fatalf("rejected document must not be indexed")
	}
}

func TestIndexRoundTripsContent(t *testing.T) {
	kb := NewKnowledgeBase(DefaultChunkSize, DefaultChunkOverlap, nil)
	embedder := &stubEmbedder{fallback: []float32{1, 0, 0}}

	text := strings.Repeat("stored content survives compression. ", 40)
	doc, err := kb.Index(context.Background(), "content.txt", text, embedder)
	if err != nil {
		t.Fatalf("index error: %v", err)
	}

	got, err := kb.DocumentText(doc)
	if err != nil {
		t.Fatalf("decompress error: %v", err)
	}
	if got != text {
		t.Fatalf("stored text does not round-trip")
	}
}

func TestResetClearsIndex(t *testing.T) {
	kb := NewKnowledgeBase(DefaultChunkSize, DefaultChunkOverlap, nil)
	embedder := &stubEmbedder{fallback: []float32{1, 0, 0}}

	if _, err := kb.Index(context.Background(), "a.txt", "some document text", embedder); err != nil {
		t.Fatalf("index error: %v", err)
	}
	if _, err := kb.Index(context.Background(), "b.txt", "another document text", embedder); err != nil {
		t.Fatalf("index error: %v", err)
	}

	kb.Reset()

	if kb.Len() != 0 {
		t.Fatalf("expected empty index after reset, got %d documents", kb.Len())
	}
	if got := kb.List(); len(got) != 0 {
		t.Fatalf("expected empty listing after reset, got %d entries", len(got))
	}

	// Reset on an already-empty index succeeds too
	kb.Reset()
}

func TestListPreservesInsertionOrder(t *testing.T) {
	kb := NewKnowledgeBase(DefaultChunkSize, DefaultChunkOverlap, nil)
	embedder := &stubEmbedder{fallback: []float32{1, 0, 0}}

	names := []string{"first.txt", "second.txt", "third.txt"}
	for _, name := range names {
		if _, err := kb.Index(context.Background(), name, "content of "+name, embedder); err != nil {
			t.Fatalf("index error for %s: %v", name, err)
		}
	}

	infos := kb.List()
	if len(infos) != len(names) {
		t.Fatalf("expected %d documents, got %d", len(names), len(infos))
	}
	for i, name := range names {
		if infos[i].Filename != name {
			t.Fatalf("position %d: expected %s, got %s", i, name, infos[i].Filename)
		}
		if infos[i].ChunksCount != 1 {
			t.Fatalf("position %d: expected 1 chunk, got %d", i, infos[i].ChunksCount)
		}
	}
}

func TestGetByID(t *testing.T) {
	kb := NewKnowledgeBase(DefaultChunkSize, DefaultChunkOverlap, nil)
	embedder := &stubEmbedder{fallback: []float32{1, 0, 0}}

	doc, err := kb.Index(context.Background(), "findme.txt", "document body", embedder)
	if err != nil {
		t.Fatalf("index error: %v", err)
	}

	got, ok := kb.Get(doc.ID)
	if !ok {
		t.Fatalf("expected to find document %s", doc.ID)
	}
	if got.Filename != "findme.txt" {
		t.Fatalf("expected findme.txt, got %s", got.Filename)
	}

	if _, ok := kb.Get("no-such-id"); ok {
		t.Fatalf("expected miss for unknown id")
	}
}

func TestConcurrentIndexAndRead(t *testing.T) {
	kb := NewKnowledgeBase(DefaultChunkSize, DefaultChunkOverlap, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			embedder := &stubEmbedder{fallback: []float32{1, 0, 0}}
			if _, err := kb.Index(context.Background(), "doc.txt", "concurrent document text", embedder); err != nil {
				t.Errorf("index error: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			// Readers must only ever see fully-formed documents
			for _, doc := range kb.Snapshot() {
				if len(doc.Chunks) != len(doc.Embeddings) {
					t.Errorf("reader observed a partially-built document")
				}
			}
			kb.List()
			kb.Len()
		}()
	}
	wg.Wait()

	if kb.Len() != 8 {
		t.Fatalf("expected 8 documents, got %d", kb.Len())
	}
}
