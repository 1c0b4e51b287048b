package ollama

import (
	"context"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/bitshield/procurement/backend/pkg/ai"
)

const defaultDimensions = 384

// GenerateEmbedding creates a vector embedding for the given input text
// using the configured embedding model on Ollama.
//
// The returned vector always has the configured dimensionality: responses
// are truncated or zero-padded as needed, and blank input maps to the zero
// vector without a request.
func (c *EmbeddingOllamaClient) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	if len(strings.TrimSpace(string(input))) == 0 {
		return make([]float32, c.dimensions), nil
	}

	rCtx, cancel := context.WithTimeout(ctx, time.Minute*time.Duration(c.timeoutMin))
	defer cancel()

	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		return nil, err
	}
	defer c.reqLock.Release(1)

	req := &api.EmbedRequest{
		Model: c.embeddingModel,
		Input: string(input),
	}

	res, err := c.Client.Embed(rCtx, req)
	if err != nil {
		return nil, err
	}

	c.modifyMetrics(ai.ModelMetrics{
		InputTokens: res.PromptEvalCount,
		TotalTokens: res.PromptEvalCount,
		DurationMs:  res.TotalDuration.Milliseconds(),
	})

	out := make([]float32, 0, c.dimensions)
	for _, v := range res.Embeddings {
		for _, val := range v {
			if len(out) >= c.dimensions {
				break
			}
			out = append(out, float32(val))
		}
	}
	if len(out) < c.dimensions {
		padded := make([]float32, c.dimensions)
		copy(padded, out)
		out = padded
	}
	return out, nil
}
