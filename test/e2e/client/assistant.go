// Package client provides HTTP clients for SousChef API E2E tests
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/c360/sousschef/test/e2e/config"
)

// AssistantClient interacts with the SousChef HTTP API
type AssistantClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAssistantClient creates a new client for the assistant endpoints
func NewAssistantClient(baseURL string) *AssistantClient {
	return &AssistantClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: config.DefaultTestConfig.Timeout,
		},
	}
}

// ServiceHealth represents overall service health status
// Matches the gateway's /healthz response format
type ServiceHealth struct {
	Component   string          `json:"component"`
	Healthy     bool            `json:"healthy"`
	Status      string          `json:"status"`
	Message     string          `json:"message,omitempty"`
	SubStatuses []ServiceHealth `json:"sub_statuses,omitempty"`
}

// ChatReply represents a conversation turn from /api/chat
type ChatReply struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
	QueryType string `json:"query_type"`
}

// Recipe mirrors the gateway's recipe wire format
type Recipe struct {
	Name         string   `json:"name"`
	Ingredients  []string `json:"ingredients,omitempty"`
	Instructions string   `json:"instructions,omitempty"`
	CookingTime  string   `json:"cooking_time,omitempty"`
	Servings     int      `json:"servings,omitempty"`
	Source       string   `json:"source,omitempty"`
}

// SearchReply represents the /api/search-recipes response
type SearchReply struct {
	Recipes     []Recipe `json:"recipes"`
	Ingredients []string `json:"ingredients_identified,omitempty"`
}

// ShoppingSection is one aisle group in a shopping list
type ShoppingSection struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

// ShoppingReply represents the /api/shopping-list response
type ShoppingReply struct {
	ShoppingList []string          `json:"shopping_list"`
	Sections     []ShoppingSection `json:"sections"`
	RecipeName   string            `json:"recipe_name"`
	TotalItems   int               `json:"total_items"`
}

// GetHealth retrieves overall service health
func (c *AssistantClient) GetHealth(ctx context.Context) (*ServiceHealth, error) {
	url := c.baseURL + config.ServicePaths.Health

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	// Health endpoint may return 503 when unhealthy but still have valid JSON
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var health ServiceHealth
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &health, nil
}

// GetMetrics retrieves the Prometheus exposition text
func (c *AssistantClient) GetMetrics(ctx context.Context) (string, error) {
	url := c.baseURL + config.ServicePaths.Metrics

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	return string(body), nil
}

// Chat sends one conversation turn. An empty sessionID asks the service
// to mint a new session.
func (c *AssistantClient) Chat(ctx context.Context, message, sessionID string) (*ChatReply, error) {
	payload := map[string]string{"message": message}
	if sessionID != "" {
		payload["session_id"] = sessionID
	}

	var reply ChatReply
	if err := c.postJSON(ctx, config.APIPaths.Chat, payload, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// SearchByIngredients asks for recipes matching the given ingredients
func (c *AssistantClient) SearchByIngredients(ctx context.Context, ingredients []string) (*SearchReply, error) {
	payload := map[string]any{"ingredients": ingredients}

	var reply SearchReply
	if err := c.postJSON(ctx, config.APIPaths.Search, payload, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// BuildShoppingList asks for the shopping list of a recipe, minus what
// the caller already has on hand
func (c *AssistantClient) BuildShoppingList(
	ctx context.Context,
	recipe Recipe,
	available []string,
) (*ShoppingReply, error) {
	payload := map[string]any{"recipe": recipe}
	if len(available) > 0 {
		payload["available_ingredients"] = available
	}

	var reply ShoppingReply
	if err := c.postJSON(ctx, config.APIPaths.ShoppingList, payload, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// postJSON posts a JSON payload and decodes a JSON reply. Non-200
// statuses surface the service's error body so scenario logs show what
// the gateway rejected.
func (c *AssistantClient) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error  string `json:"error"`
			Status int    `json:"status"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("unexpected status code: %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}
