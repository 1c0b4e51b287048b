// Package ai defines the embedding-provider capability the risk engine
// depends on. The engine never loads or manages models itself; providers
// are constructed once by the orchestration layer and passed in by
// reference.
package ai

import "context"

// ModelMetrics contains accumulated usage metrics from embedding operations.
type ModelMetrics struct {
	InputTokens int   `json:"input_tokens"`
	TotalTokens int   `json:"total_tokens"`
	DurationMs  int64 `json:"duration_ms"`
	Requests    int   `json:"requests"`
}

// EmbeddingClient is the external embedding-provider capability.
// GenerateEmbedding must be deterministic for identical input and is the
// only engine operation expected to block on external I/O; implementations
// wrap each request with a timeout and honor context cancellation.
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error)

	ResetMetrics()
	GetMetrics() ModelMetrics
}
