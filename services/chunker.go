package services

import (
	"errors"
	"strings"
)

// Default chunking parameters, matching the knowledge-base defaults exposed
// through configuration.
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

// ErrInvalidChunking is returned when the window parameters cannot produce a
// terminating sweep.
var ErrInvalidChunking = errors.New("chunk overlap must be smaller than chunk size")

// ChunkText splits text into overlapping fixed-size windows for embedding.
// Windows are chunkSize runes wide and consecutive windows share overlap
// runes. Each window is trimmed of surrounding whitespace; windows that trim
// to empty are dropped. Chunking is deterministic: identical inputs always
// produce identical output.
func ChunkText(text string, chunkSize, overlap int) ([]string, error) {
	if chunkSize <= 0 || overlap < 0 || overlap >= chunkSize {
		return nil, ErrInvalidChunking
	}

	runes := []rune(text)
	if len(runes) <= chunkSize {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return []string{}, nil
		}
		return []string{trimmed}, nil
	}

	chunks := make([]string, 0, len(runes)/(chunkSize-overlap)+1)
	for start := 0; start < len(runes); start += chunkSize - overlap {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks, nil
}
