// Package classifier labels food images through a HuggingFace-style
// inference endpoint. It is the second, independent recognition path next
// to the vision model; the router runs both and degrades each one
// separately.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/c360/sousschef/errors"
	"github.com/c360/sousschef/metric"
)

const defaultTimeout = 15 * time.Second

// Config configures the classifier client.
type Config struct {
	// Endpoint is the inference endpoint URL, e.g.
	// "https://api-inference.huggingface.co/models/nateraw/food".
	Endpoint string

	// Token authenticates requests. Not checked at construction; a
	// missing token fails Classify so the caller can render its inline
	// error note.
	Token string

	// Timeout for HTTP requests (default 15s).
	Timeout time.Duration

	// Logger for warnings (optional, defaults to slog.Default()).
	Logger *slog.Logger

	// Metrics records provider request counts and durations (optional).
	Metrics *metric.Metrics
}

// Client calls a food-image classification endpoint.
type Client struct {
	endpoint string
	token    string
	client   *http.Client
	logger   *slog.Logger
	metrics  *metric.Metrics
}

// prediction is one label candidate in the inference response.
type prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// NewClient creates a classifier client for the configured endpoint.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "classifier", "NewClient", "endpoint is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		endpoint: cfg.Endpoint,
		token:    cfg.Token,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
		metrics:  cfg.Metrics,
	}, nil
}

// Classify posts the image bytes to the inference endpoint and returns
// the highest-scoring label. Underscored labels ("french_fries") come
// back with spaces.
func (c *Client) Classify(ctx context.Context, image []byte) (string, error) {
	if c.token == "" {
		return "", errors.WrapInvalid(errors.ErrMissingConfig, "classifier", "Classify", "API token is not configured")
	}
	if len(image) == 0 {
		return "", errors.WrapInvalid(errors.ErrInvalidData, "classifier", "Classify", "image is empty")
	}

	start := time.Now()
	label, err := c.classify(ctx, image)
	c.record(start, err)
	return label, err
}

func (c *Client) classify(ctx context.Context, image []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(image))
	if err != nil {
		return "", errors.WrapInvalid(err, "classifier", "Classify", "request creation")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", errors.WrapTransient(
			errors.WithKind(errors.ErrProviderUnavailable, err),
			"classifier", "Classify", "inference request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var errorResp struct {
			Error string `json:"error"`
		}
		message := fmt.Sprintf("inference endpoint returned status %d", resp.StatusCode)
		if json.Unmarshal(body, &errorResp) == nil && errorResp.Error != "" {
			message = fmt.Sprintf("%s: %s", message, errorResp.Error)
		}
		return "", errors.WrapTransient(
			errors.WithKind(errors.ErrProviderUnavailable, fmt.Errorf("%s", message)),
			"classifier", "Classify", "inference request")
	}

	var predictions []prediction
	if err := json.NewDecoder(resp.Body).Decode(&predictions); err != nil {
		return "", errors.WrapTransient(err, "classifier", "Classify", "response decoding")
	}
	if len(predictions) == 0 {
		return "", errors.WrapTransient(
			fmt.Errorf("inference endpoint returned no predictions"),
			"classifier", "Classify", "response validation")
	}

	top := predictions[0]
	for _, p := range predictions[1:] {
		if p.Score > top.Score {
			top = p
		}
	}

	// food101 labels use underscores ("french_fries")
	return strings.ReplaceAll(top.Label, "_", " "), nil
}

// record tracks a provider round trip if metrics are attached.
func (c *Client) record(start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordProviderRequest("huggingface", "classify", status)
	c.metrics.RecordProviderDuration("huggingface", "classify", time.Since(start))
}
