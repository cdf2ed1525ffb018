// Package recipeapi searches a Spoonacular-style REST API for recipes.
// An absent API key disables the client: searches return no results and
// no error, and the orchestration layer falls through to generation.
package recipeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/c360/sousschef/errors"
	"github.com/c360/sousschef/metric"
	"github.com/c360/sousschef/pkg/retry"
	"github.com/c360/sousschef/types"
)

const (
	defaultBaseURL = "https://api.spoonacular.com/recipes"
	defaultTimeout = 10 * time.Second

	// defaultResultCount bounds every search request.
	defaultResultCount = 5
)

// Config configures the recipe API client.
type Config struct {
	// BaseURL of the recipe API (default Spoonacular).
	BaseURL string

	// APIKey authenticates requests. Empty disables external search.
	APIKey string

	// Timeout for each HTTP attempt (default 10s).
	Timeout time.Duration

	// Logger for warnings (optional, defaults to slog.Default()).
	Logger *slog.Logger

	// Metrics records provider request counts and durations (optional).
	Metrics *metric.Metrics
}

// Client queries the external recipe API.
type Client struct {
	baseURL  string
	apiKey   string
	client   *http.Client
	logger   *slog.Logger
	metrics  *metric.Metrics
	retryCfg retry.Config
}

// NewClient creates a recipe API client. A client without an API key is
// valid; its searches return empty results.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
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
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
		metrics: cfg.Metrics,
		retryCfg: retry.Config{
			MaxAttempts:  2, // one retry for transient failures
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     time.Second,
			Multiplier:   2.0,
			AddJitter:    true,
		},
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// spoonacularRecipe is the wire shape shared by the information and
// complexSearch endpoints.
type spoonacularRecipe struct {
	ID                   int64                   `json:"id"`
	Title                string                  `json:"title"`
	ReadyInMinutes       int                     `json:"readyInMinutes"`
	Servings             int                     `json:"servings"`
	Instructions         string                  `json:"instructions"`
	ExtendedIngredients  []spoonacularIngredient `json:"extendedIngredients"`
	AnalyzedInstructions []instructionGroup      `json:"analyzedInstructions"`
}

type spoonacularIngredient struct {
	Original string `json:"original"`
	Name     string `json:"name"`
}

type instructionGroup struct {
	Steps []instructionStep `json:"steps"`
}

type instructionStep struct {
	Number int    `json:"number"`
	Step   string `json:"step"`
}

// SearchByIngredients finds recipes that use the given ingredients,
// preferring matches that maximize ingredient usage. Each hit costs a
// second request for the full recipe record; hits whose detail fetch
// fails are skipped rather than failing the batch.
func (c *Client) SearchByIngredients(ctx context.Context, ingredients []string) ([]types.Recipe, error) {
	if !c.Enabled() {
		c.logger.Debug("recipe API key not configured, skipping external search")
		return nil, nil
	}
	if len(ingredients) == 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "recipeapi", "SearchByIngredients", "ingredients are required")
	}

	params := url.Values{}
	params.Set("ingredients", strings.Join(ingredients, ","))
	params.Set("number", strconv.Itoa(defaultResultCount))
	params.Set("ranking", "1") // maximize used ingredients
	params.Set("ignorePantry", "true")

	var summaries []struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
	}
	if err := c.getJSON(ctx, "find_by_ingredients", "findByIngredients", params, &summaries); err != nil {
		return nil, errors.Wrap(err, "recipeapi", "SearchByIngredients", "ingredient search")
	}

	recipes := make([]types.Recipe, 0, len(summaries))
	for _, summary := range summaries {
		if err := ctx.Err(); err != nil {
			return nil, errors.WrapTransient(err, "recipeapi", "SearchByIngredients", "detail fetch cancelled")
		}

		recipe, err := c.recipeInformation(ctx, summary.ID)
		if err != nil {
			c.logger.Warn("skipping recipe with failed detail fetch",
				"recipe_id", summary.ID,
				"title", summary.Title,
				"error", err)
			continue
		}
		recipes = append(recipes, recipe)
	}

	return recipes, nil
}

// SearchByQuery finds recipes matching a free-text query. Results carry
// their full information in one round trip.
func (c *Client) SearchByQuery(ctx context.Context, query string) ([]types.Recipe, error) {
	if !c.Enabled() {
		c.logger.Debug("recipe API key not configured, skipping external search")
		return nil, nil
	}
	if strings.TrimSpace(query) == "" {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "recipeapi", "SearchByQuery", "query is required")
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("number", strconv.Itoa(defaultResultCount))
	params.Set("addRecipeInformation", "true")
	params.Set("fillIngredients", "true")

	var payload struct {
		Results []spoonacularRecipe `json:"results"`
	}
	if err := c.getJSON(ctx, "complex_search", "complexSearch", params, &payload); err != nil {
		return nil, errors.Wrap(err, "recipeapi", "SearchByQuery", "query search")
	}

	recipes := make([]types.Recipe, 0, len(payload.Results))
	for _, result := range payload.Results {
		recipes = append(recipes, transformRecipe(result))
	}

	return recipes, nil
}

// recipeInformation fetches the full record for one recipe.
func (c *Client) recipeInformation(ctx context.Context, id int64) (types.Recipe, error) {
	params := url.Values{}
	params.Set("includeNutrition", "false")

	var data spoonacularRecipe
	path := fmt.Sprintf("%d/information", id)
	if err := c.getJSON(ctx, "information", path, params, &data); err != nil {
		return types.Recipe{}, err
	}

	return transformRecipe(data), nil
}

// getJSON performs one logical GET with a single retry for transient
// failures. Client errors other than 429 fail immediately.
func (c *Client) getJSON(ctx context.Context, operation, path string, params url.Values, out any) error {
	params.Set("apiKey", c.apiKey)
	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, path, params.Encode())

	start := time.Now()
	err := retry.Do(ctx, c.retryCfg, func() error {
		return c.getOnce(ctx, endpoint, out)
	})
	c.record(operation, start, err)
	return err
}

func (c *Client) getOnce(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return retry.NonRetryable(errors.WrapInvalid(err, "recipeapi", "get", "request creation"))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.WrapTransient(
			errors.WithKind(errors.ErrProviderUnavailable, err),
			"recipeapi", "get", "request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		cause := fmt.Errorf("recipe API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		wrapped := errors.WrapTransient(
			errors.WithKind(errors.ErrProviderUnavailable, cause),
			"recipeapi", "get", "request")

		// 4xx (quota exhausted, bad key) will fail the same way again.
		if resp.StatusCode < http.StatusInternalServerError && resp.StatusCode != http.StatusTooManyRequests {
			return retry.NonRetryable(wrapped)
		}
		return wrapped
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return retry.NonRetryable(errors.WrapInvalid(err, "recipeapi", "get", "response decoding"))
	}

	return nil
}

// transformRecipe maps the wire shape onto the internal recipe type.
func transformRecipe(data spoonacularRecipe) types.Recipe {
	ingredients := make([]string, 0, len(data.ExtendedIngredients))
	for _, ingredient := range data.ExtendedIngredients {
		switch {
		case ingredient.Original != "":
			ingredients = append(ingredients, ingredient.Original)
		case ingredient.Name != "":
			ingredients = append(ingredients, ingredient.Name)
		default:
			ingredients = append(ingredients, "Unknown ingredient")
		}
	}

	instructions := strings.TrimSpace(data.Instructions)
	if instructions == "" {
		var steps []string
		for _, group := range data.AnalyzedInstructions {
			for _, step := range group.Steps {
				if step.Step == "" {
					continue
				}
				number := step.Number
				if number == 0 {
					number = len(steps) + 1
				}
				steps = append(steps, fmt.Sprintf("%d. %s", number, step.Step))
			}
		}
		instructions = strings.Join(steps, "\n")
	}
	if instructions == "" {
		instructions = "Instructions not available"
	}

	cookingTime := "Unknown"
	if data.ReadyInMinutes > 0 {
		cookingTime = fmt.Sprintf("%d minutes", data.ReadyInMinutes)
	}

	servings := data.Servings
	if servings <= 0 {
		servings = 4
	}

	name := data.Title
	if name == "" {
		name = "Unknown Recipe"
	}

	return types.Recipe{
		Name:         name,
		Ingredients:  ingredients,
		Instructions: instructions,
		CookingTime:  cookingTime,
		Servings:     servings,
		Source:       types.RecipeSourceAPI,
	}
}

// record tracks a provider round trip if metrics are attached.
func (c *Client) record(operation string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordProviderRequest("spoonacular", operation, status)
	c.metrics.RecordProviderDuration("spoonacular", operation, time.Since(start))
}
