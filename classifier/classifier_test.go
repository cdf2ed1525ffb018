package classifier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/sousschef/errors"
)

// newInferenceServer fakes a HuggingFace inference endpoint. It verifies
// auth and body transport, counts requests, and replies with the given
// predictions.
func newInferenceServer(t *testing.T, wantImage []byte, predictions []prediction) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, wantImage, body)

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(predictions))
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func newTestClient(t *testing.T, endpoint, token string) *Client {
	t.Helper()
	client, err := NewClient(Config{
		Endpoint: endpoint,
		Token:    token,
		Timeout:  5 * time.Second,
	})
	require.NoError(t, err)
	return client
}

func TestNewClient_RequiresEndpoint(t *testing.T) {
	_, err := NewClient(Config{Token: "test-token"})
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
	assert.ErrorIs(t, err, errors.ErrMissingConfig)
}

func TestClient_Classify(t *testing.T) {
	image := []byte("fake-image-bytes")
	server, requests := newInferenceServer(t, image, []prediction{
		{Label: "french_fries", Score: 0.91},
		{Label: "pizza", Score: 0.05},
		{Label: "hamburger", Score: 0.04},
	})

	client := newTestClient(t, server.URL, "test-token")

	label, err := client.Classify(context.Background(), image)
	require.NoError(t, err)
	assert.Equal(t, "french fries", label, "underscores become spaces")
	assert.Equal(t, int64(1), requests.Load())
}

func TestClient_Classify_PicksHighestScore(t *testing.T) {
	image := []byte("fake-image-bytes")
	server, _ := newInferenceServer(t, image, []prediction{
		{Label: "spring_rolls", Score: 0.10},
		{Label: "ramen", Score: 0.55},
		{Label: "pho", Score: 0.35},
	})

	client := newTestClient(t, server.URL, "test-token")

	label, err := client.Classify(context.Background(), image)
	require.NoError(t, err)
	assert.Equal(t, "ramen", label, "ordering in the response must not matter")
}

func TestClient_Classify_MissingToken(t *testing.T) {
	server, requests := newInferenceServer(t, nil, nil)
	client := newTestClient(t, server.URL, "")

	_, err := client.Classify(context.Background(), []byte("fake-image-bytes"))
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
	assert.ErrorIs(t, err, errors.ErrMissingConfig)
	assert.Equal(t, int64(0), requests.Load(), "no request without a token")
}

func TestClient_Classify_EmptyImage(t *testing.T) {
	server, requests := newInferenceServer(t, nil, nil)
	client := newTestClient(t, server.URL, "test-token")

	_, err := client.Classify(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
	assert.Equal(t, int64(0), requests.Load())
}

func TestClient_Classify_EndpointError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error": "Model nateraw/food is currently loading"}`))
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server.URL, "test-token")

	_, err := client.Classify(context.Background(), []byte("fake-image-bytes"))
	require.Error(t, err)
	assert.True(t, errors.IsProviderUnavailable(err))
	assert.True(t, errors.IsTransient(err))
	assert.Contains(t, err.Error(), "currently loading", "endpoint error message surfaces")
}

func TestClient_Classify_NoPredictions(t *testing.T) {
	image := []byte("fake-image-bytes")
	server, _ := newInferenceServer(t, image, []prediction{})

	client := newTestClient(t, server.URL, "test-token")

	_, err := client.Classify(context.Background(), image)
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
}

func TestClient_Classify_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server.URL, "test-token")

	_, err := client.Classify(context.Background(), []byte("fake-image-bytes"))
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
}

func TestClient_Classify_ContextCancelled(t *testing.T) {
	blocked := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	t.Cleanup(func() {
		close(blocked)
		server.Close()
	})

	client := newTestClient(t, server.URL, "test-token")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Classify(ctx, []byte("fake-image-bytes"))
	require.Error(t, err)
	assert.True(t, errors.IsProviderUnavailable(err))
}
