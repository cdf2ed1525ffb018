// Package genai provides text, vision, and schema-validated structured
// generation on top of the OpenAI chat completions API. It is the one
// place generation failures pick up the provider-unavailable kind, so
// callers match errors.IsProviderUnavailable and choose their own
// fallback instead of retrying here.
package genai

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/c360/sousschef/errors"
	"github.com/c360/sousschef/metric"
)

const (
	defaultTemperature = 0.7
	defaultTimeout     = 30 * time.Second
)

// Config configures the generator.
type Config struct {
	// BaseURL overrides the chat completions endpoint. Empty uses the
	// provider default (OpenAI cloud).
	BaseURL string

	// APIKey for authentication.
	APIKey string

	// Model is the chat model for text and structured generation.
	Model string

	// VisionModel handles image prompts. Empty falls back to Model.
	VisionModel string

	// Temperature for sampling. Zero means the 0.7 default.
	Temperature float32

	// Timeout for HTTP requests (default 30s).
	Timeout time.Duration

	// Logger for warnings (optional, defaults to slog.Default()).
	Logger *slog.Logger

	// Metrics records provider request counts and durations (optional).
	Metrics *metric.Metrics
}

// Generator issues generation calls against an OpenAI-compatible API.
type Generator struct {
	client      *openai.Client
	model       string
	visionModel string
	temperature float32
	logger      *slog.Logger
	metrics     *metric.Metrics
}

// NewGenerator creates a generator for the configured models.
func NewGenerator(cfg Config) (*Generator, error) {
	if cfg.Model == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "genai", "NewGenerator", "model is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{
		Timeout: timeout,
	}

	visionModel := cfg.VisionModel
	if visionModel == "" {
		visionModel = cfg.Model
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Generator{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		visionModel: visionModel,
		temperature: temperature,
		logger:      logger,
		metrics:     cfg.Metrics,
	}, nil
}

// Generate returns the model's text response to a plain prompt.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: g.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	g.record("chat", start, err)
	if err != nil {
		return "", errors.WrapTransient(
			errors.WithKind(errors.ErrProviderUnavailable, err),
			"genai", "Generate", "chat completion")
	}
	return firstChoice(resp, "Generate")
}

// GenerateVision sends the prompt together with an image, encoded as a
// base64 data URL content part. The image MIME type is sniffed from the
// bytes.
func (g *Generator) GenerateVision(ctx context.Context, prompt string, image []byte) (string, error) {
	if len(image) == 0 {
		return "", errors.WrapInvalid(errors.ErrInvalidData, "genai", "GenerateVision", "image is empty")
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s",
		http.DetectContentType(image), base64.StdEncoding.EncodeToString(image))

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.visionModel,
		Temperature: g.temperature,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: prompt},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
					URL:    dataURL,
					Detail: openai.ImageURLDetailAuto,
				}},
			},
		}},
	})
	g.record("vision", start, err)
	if err != nil {
		return "", errors.WrapTransient(
			errors.WithKind(errors.ErrProviderUnavailable, err),
			"genai", "GenerateVision", "vision completion")
	}
	return firstChoice(resp, "GenerateVision")
}

// GenerateStructured asks for a JSON response and validates it against
// schema before returning it. A schema violation is an error, never a
// partial result. The prompt must describe the JSON shape it expects;
// JSON response mode rejects prompts that don't mention JSON.
func (g *Generator) GenerateStructured(ctx context.Context, prompt string, schema *Schema) (string, error) {
	if schema == nil {
		return "", errors.WrapInvalid(errors.ErrMissingConfig, "genai", "GenerateStructured", "schema is required")
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: g.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	g.record("structured", start, err)
	if err != nil {
		return "", errors.WrapTransient(
			errors.WithKind(errors.ErrProviderUnavailable, err),
			"genai", "GenerateStructured", "structured completion")
	}

	content, err := firstChoice(resp, "GenerateStructured")
	if err != nil {
		return "", err
	}

	payload := extractJSON(content)
	if err := schema.Validate(payload); err != nil {
		g.logger.Warn("structured output failed schema validation", "error", err)
		return "", err
	}
	return payload, nil
}

// GenerateVisionStructured combines an image prompt with JSON response
// mode: the image travels as a base64 data URL part and the reply must
// validate against schema.
func (g *Generator) GenerateVisionStructured(ctx context.Context, prompt string, image []byte, schema *Schema) (string, error) {
	if len(image) == 0 {
		return "", errors.WrapInvalid(errors.ErrInvalidData, "genai", "GenerateVisionStructured", "image is empty")
	}
	if schema == nil {
		return "", errors.WrapInvalid(errors.ErrMissingConfig, "genai", "GenerateVisionStructured", "schema is required")
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s",
		http.DetectContentType(image), base64.StdEncoding.EncodeToString(image))

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.visionModel,
		Temperature: g.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: prompt},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
					URL:    dataURL,
					Detail: openai.ImageURLDetailAuto,
				}},
			},
		}},
	})
	g.record("vision_structured", start, err)
	if err != nil {
		return "", errors.WrapTransient(
			errors.WithKind(errors.ErrProviderUnavailable, err),
			"genai", "GenerateVisionStructured", "vision completion")
	}

	content, err := firstChoice(resp, "GenerateVisionStructured")
	if err != nil {
		return "", err
	}

	payload := extractJSON(content)
	if err := schema.Validate(payload); err != nil {
		g.logger.Warn("structured vision output failed schema validation", "error", err)
		return "", err
	}
	return payload, nil
}

// record tracks a provider round trip if metrics are attached.
func (g *Generator) record(operation string, start time.Time, err error) {
	if g.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	g.metrics.RecordProviderRequest("openai", operation, status)
	g.metrics.RecordProviderDuration("openai", operation, time.Since(start))
}

func firstChoice(resp openai.ChatCompletionResponse, operation string) (string, error) {
	if len(resp.Choices) == 0 {
		return "", errors.WrapTransient(
			errors.WithKind(errors.ErrProviderUnavailable, fmt.Errorf("provider returned no choices")),
			"genai", operation, "response validation")
	}
	return resp.Choices[0].Message.Content, nil
}

// extractJSON strips a markdown code fence if the model wrapped its
// JSON in one.
func extractJSON(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
