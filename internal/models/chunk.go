// ABOUTME: Chunk is a fragment of an ingested document returned by the retrieval service
// ABOUTME: Chunks are ranked by relevance and budgeted by token count before reaching the model
package models

// Chunk represents a retrievable piece of document text
type Chunk struct {
	ChunkID string  `json:"chunk_id"`
	Source  string  `json:"source"`
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"`
}
