package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	sousschefErrors "github.com/c360/sousschef/errors"
)

// serverVector derives a small deterministic vector from text content so
// ordering assertions don't depend on fixture bookkeeping.
func serverVector(text string) []float32 {
	if text == "" {
		return []float32{0, 0, 1}
	}
	return []float32{float32(len(text)), float32(text[0]), 1}
}

// newEmbeddingServer emulates an OpenAI-compatible embeddings endpoint.
func newEmbeddingServer(t *testing.T, requests *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)

		if r.URL.Path != "/embeddings" {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want Bearer test-key", got)
		}

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Decode request: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		type embeddingData struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		resp := struct {
			Object string          `json:"object"`
			Data   []embeddingData `json:"data"`
			Model  string          `json:"model"`
		}{
			Object: "list",
			Model:  req.Model,
		}
		for i, text := range req.Input {
			resp.Data = append(resp.Data, embeddingData{
				Object:    "embedding",
				Embedding: serverVector(text),
				Index:     i,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestNewHTTPEmbedder_RequiresModel(t *testing.T) {
	_, err := NewHTTPEmbedder(HTTPConfig{})
	if err == nil {
		t.Fatal("NewHTTPEmbedder without a model should fail")
	}
	if !sousschefErrors.IsInvalid(err) {
		t.Errorf("Missing model should classify as invalid: %v", err)
	}
}

func TestHTTPEmbedder_Generate(t *testing.T) {
	var requests atomic.Int32
	server := newEmbeddingServer(t, &requests)
	defer server.Close()

	embedder, err := NewHTTPEmbedder(HTTPConfig{
		BaseURL: server.URL,
		Model:   "text-embedding-3-small",
		APIKey:  "test-key",
	})
	if err != nil {
		t.Fatalf("NewHTTPEmbedder() error = %v", err)
	}
	defer embedder.Close()

	texts := []string{"roasted chicken", "miso soup", ""}
	vectors, err := embedder.Generate(context.Background(), texts)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(vectors) != len(texts) {
		t.Fatalf("Got %d vectors for %d texts", len(vectors), len(texts))
	}
	for i, text := range texts {
		want := serverVector(text)
		if len(vectors[i]) != len(want) {
			t.Fatalf("Vector %d has %d dims, want %d", i, len(vectors[i]), len(want))
		}
		for j := range want {
			if vectors[i][j] != want[j] {
				t.Errorf("Vector %d[%d] = %v, want %v (order not preserved?)", i, j, vectors[i][j], want[j])
			}
		}
	}
	if requests.Load() != 1 {
		t.Errorf("Expected 1 upstream request, got %d", requests.Load())
	}

	// Dimensionality is picked up from the response
	if embedder.Dimensions() != 3 {
		t.Errorf("Dimensions() = %d, want 3", embedder.Dimensions())
	}
	if embedder.Model() != "text-embedding-3-small" {
		t.Errorf("Model() = %q", embedder.Model())
	}
}

func TestHTTPEmbedder_EmptyInput(t *testing.T) {
	var requests atomic.Int32
	server := newEmbeddingServer(t, &requests)
	defer server.Close()

	embedder, err := NewHTTPEmbedder(HTTPConfig{
		BaseURL: server.URL,
		Model:   "text-embedding-3-small",
		APIKey:  "test-key",
	})
	if err != nil {
		t.Fatalf("NewHTTPEmbedder() error = %v", err)
	}

	vectors, err := embedder.Generate(context.Background(), nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(vectors) != 0 {
		t.Errorf("Empty input should produce an empty result, got %d vectors", len(vectors))
	}
	if requests.Load() != 0 {
		t.Errorf("Empty input should not reach the service, got %d requests", requests.Load())
	}
}

func TestHTTPEmbedder_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": {"message": "model overloaded", "type": "server_error"}}`))
	}))
	defer server.Close()

	embedder, err := NewHTTPEmbedder(HTTPConfig{
		BaseURL: server.URL,
		Model:   "text-embedding-3-small",
		APIKey:  "test-key",
	})
	if err != nil {
		t.Fatalf("NewHTTPEmbedder() error = %v", err)
	}

	_, err = embedder.Generate(context.Background(), []string{"soup"})
	if err == nil {
		t.Fatal("Upstream 500 should surface as an error")
	}
	if !sousschefErrors.IsTransient(err) {
		t.Errorf("API failure should classify as transient: %v", err)
	}
}

func TestHTTPEmbedder_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object": "list", "data": [{"object": "embedding", "embedding": [0.1], "index": 0}]}`))
	}))
	defer server.Close()

	embedder, err := NewHTTPEmbedder(HTTPConfig{
		BaseURL: server.URL,
		Model:   "text-embedding-3-small",
		APIKey:  "test-key",
	})
	if err != nil {
		t.Fatalf("NewHTTPEmbedder() error = %v", err)
	}

	_, err = embedder.Generate(context.Background(), []string{"soup", "salad"})
	if err == nil {
		t.Fatal("Mismatched response count should surface as an error")
	}
}

func TestHTTPEmbedder_DimensionsDefault(t *testing.T) {
	embedder, err := NewHTTPEmbedder(HTTPConfig{Model: "text-embedding-3-small"})
	if err != nil {
		t.Fatalf("NewHTTPEmbedder() error = %v", err)
	}
	if embedder.Dimensions() != 1536 {
		t.Errorf("Default Dimensions() = %d, want 1536", embedder.Dimensions())
	}

	configured, err := NewHTTPEmbedder(HTTPConfig{Model: "custom-model", Dimensions: 768})
	if err != nil {
		t.Fatalf("NewHTTPEmbedder() error = %v", err)
	}
	if configured.Dimensions() != 768 {
		t.Errorf("Configured Dimensions() = %d, want 768", configured.Dimensions())
	}
}
