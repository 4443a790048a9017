// Package retriever implements the informational capability: knowledge-base
// vector search blended with optional web search, reranked and summarized
// into a grounded answer.
package retriever

import "crypto/sha256"

// EmbeddingDim is the vector size produced by HashVector and the dimension
// the qdrant collection is created with.
const EmbeddingDim = 32

// HashVector maps text to a deterministic unit-range vector. It is a cheap
// stand-in for a learned embedding: stable across processes, which keeps the
// ingest and query sides consistent without an embedding service.
func HashVector(text string) []float32 {
	digest := sha256.Sum256([]byte(text))
	vector := make([]float32, EmbeddingDim)
	for i, b := range digest {
		vector[i] = float32(b) / 255.0
	}
	return vector
}
