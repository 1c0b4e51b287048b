package openai

import (
	"sync"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"

	"github.com/bitshield/procurement/backend/pkg/ai"
)

// EmbeddingOpenAIClient implements ai.EmbeddingClient against any
// OpenAI-compatible embeddings endpoint.
//
// An EmbeddingOpenAIClient should be created using NewEmbeddingClient.
type EmbeddingOpenAIClient struct {
	embeddingModel string
	dimensions     int
	timeoutMin     int

	reqLock *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	Client *openai.Client
}

// NewEmbeddingClientParams defines the configuration for creating a new
// EmbeddingOpenAIClient.
//
// Model specifies the embedding model. BaseURL and APIKey configure the
// endpoint. Dimensions fixes the vector size all documents must share;
// shorter responses are padded, longer ones truncated.
type NewEmbeddingClientParams struct {
	Model      string
	BaseURL    string
	APIKey     string
	Dimensions int

	TimeoutMin            int
	MaxConcurrentRequests int64
}

// NewEmbeddingClient creates a new OpenAI-backed embedding client
// configured with the provided parameters.
func NewEmbeddingClient(params NewEmbeddingClientParams) *EmbeddingOpenAIClient {
	options := []option.RequestOption{
		option.WithAPIKey(params.APIKey),
	}
	if params.BaseURL != "" {
		options = append(options, option.WithBaseURL(params.BaseURL))
	}
	client := openai.NewClient(options...)

	dimensions := params.Dimensions
	if dimensions <= 0 {
		dimensions = defaultDimensions
	}
	timeoutMin := params.TimeoutMin
	if timeoutMin <= 0 {
		timeoutMin = 1
	}
	maxConcurrent := params.MaxConcurrentRequests
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}

	return &EmbeddingOpenAIClient{
		embeddingModel: params.Model,
		dimensions:     dimensions,
		timeoutMin:     timeoutMin,

		reqLock: semaphore.NewWeighted(maxConcurrent),

		metricsLock: sync.Mutex{},
		metrics:     ai.ModelMetrics{},

		Client: &client,
	}
}

func (c *EmbeddingOpenAIClient) modifyMetrics(delta ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	c.metrics.InputTokens += delta.InputTokens
	c.metrics.TotalTokens += delta.TotalTokens
	c.metrics.DurationMs += delta.DurationMs
	c.metrics.Requests++
}

// ResetMetrics clears the accumulated usage metrics.
func (c *EmbeddingOpenAIClient) ResetMetrics() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	c.metrics = ai.ModelMetrics{}
}

// GetMetrics returns a snapshot of the accumulated usage metrics.
func (c *EmbeddingOpenAIClient) GetMetrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	return c.metrics
}
