package models

import "time"

// IndexedDocument is one uploaded document held in the in-memory knowledge
// base. Chunks and Embeddings are parallel slices: Embeddings[i] belongs to
// Chunks[i]. Documents are immutable once stored.
type IndexedDocument struct {
	ID                string
	Filename          string
	CompressedContent []byte
	Compression       string
	Chunks            []string
	Embeddings        [][]float32
	IndexedAt         time.Time
}

// DocumentInfo is the read-only projection returned by the list endpoint.
type DocumentInfo struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ChunksCount int    `json:"chunks_count"`
}

// UploadResponse is returned after a successful upload and indexing.
type UploadResponse struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ChunksCount int    `json:"chunks_count"`
	Message     string `json:"message"`
}
