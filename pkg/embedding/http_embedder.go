package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/c360/sousschef/errors"
)

// defaultDimensions matches text-embedding-3-small, the default model.
const defaultDimensions = 1536

// HTTPEmbedder calls an external OpenAI-compatible embedding service.
//
// This implementation works with OpenAI itself and with any self-hosted
// OpenAI-compatible embedding API, using the standard OpenAI SDK.
type HTTPEmbedder struct {
	client *openai.Client
	model  string
	dims   atomic.Int32
	logger *slog.Logger
}

// HTTPConfig configures the HTTP embedder.
type HTTPConfig struct {
	// BaseURL overrides the embedding service endpoint. Empty uses the
	// provider default (OpenAI cloud).
	BaseURL string

	// Model is the embedding model to use, e.g. "text-embedding-3-small".
	Model string

	// APIKey for authentication. Optional for self-hosted services.
	APIKey string

	// Timeout for HTTP requests (default: 30s).
	Timeout time.Duration

	// Dimensions declares the expected vector dimensionality. Zero means
	// the default model's 1536; the actual value is picked up from the
	// first response either way.
	Dimensions int

	// Logger for warnings (optional, defaults to slog.Default()).
	Logger *slog.Logger
}

// NewHTTPEmbedder creates a new HTTP-based embedder.
func NewHTTPEmbedder(cfg HTTPConfig) (*HTTPEmbedder, error) {
	if cfg.Model == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "embedding", "NewHTTPEmbedder", "model is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "dummy-key" // Self-hosted services don't need a real key
	}

	config := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	config.HTTPClient = &http.Client{
		Timeout: timeout,
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := &HTTPEmbedder{
		client: openai.NewClientWithConfig(config),
		model:  cfg.Model,
		logger: logger,
	}

	dims := cfg.Dimensions
	if dims <= 0 {
		dims = defaultDimensions
	}
	h.dims.Store(int32(dims))

	return h, nil
}

// Generate creates embeddings by calling the external HTTP service.
// Vectors come back in input order, one per text.
func (h *HTTPEmbedder) Generate(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	req := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(h.model),
	}

	resp, err := h.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, errors.WrapTransient(err, "embedding", "Generate", "embedding API call")
	}

	if len(resp.Data) != len(texts) {
		return nil, errors.WrapTransient(
			fmt.Errorf("API returned %d embeddings for %d texts", len(resp.Data), len(texts)),
			"embedding", "Generate", "response validation")
	}

	embeddings := make([][]float32, len(texts))
	for i, data := range resp.Data {
		embeddings[i] = data.Embedding
	}

	// Track the actual dimensionality from the first vector
	if len(embeddings[0]) > 0 {
		h.dims.Store(int32(len(embeddings[0])))
	}

	return embeddings, nil
}

// Dimensions returns the dimensionality of embeddings produced.
func (h *HTTPEmbedder) Dimensions() int {
	return int(h.dims.Load())
}

// Model returns the model identifier.
func (h *HTTPEmbedder) Model() string {
	return h.model
}

// Close releases resources (no-op for HTTP client).
func (h *HTTPEmbedder) Close() error {
	return nil
}
