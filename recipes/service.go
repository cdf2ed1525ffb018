// Package recipes orchestrates recipe search across the external API, the
// generative backfill, and the static fallbacks, and derives shopping
// lists from recipes. Degradation is local: a failed source logs and
// yields to the next one, and callers only see an error when the input
// itself is unusable.
package recipes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/c360/sousschef/errors"
	"github.com/c360/sousschef/genai"
	"github.com/c360/sousschef/pkg/clustering"
	"github.com/c360/sousschef/pkg/ranking"
	"github.com/c360/sousschef/types"
)

const (
	// backfillThreshold is the result count below which the generative
	// path supplements the external API.
	backfillThreshold = 3

	// maxResults caps every search response.
	maxResults = 5
)

// SearchAPI is the slice of the external recipe client the service uses.
type SearchAPI interface {
	SearchByIngredients(ctx context.Context, ingredients []string) ([]types.Recipe, error)
	SearchByQuery(ctx context.Context, query string) ([]types.Recipe, error)
}

// Generator produces schema-validated JSON completions.
type Generator interface {
	GenerateStructured(ctx context.Context, prompt string, schema *genai.Schema) (string, error)
}

// Ranker orders candidates by semantic similarity to a query.
type Ranker interface {
	TopN(ctx context.Context, query string, candidates []string, n int) ([]ranking.Result, error)
}

// Clusterer partitions items into k groups by embedding similarity.
type Clusterer interface {
	Cluster(ctx context.Context, items []string, k int) (*clustering.Result, error)
}

// Config wires the service's collaborators. Each may be nil: a nil API or
// Generator removes that search source, a nil Ranker keeps combined
// results in source order, and a nil Clusterer flattens the shopping-list
// fallback.
type Config struct {
	API       SearchAPI
	Generator Generator
	Ranker    Ranker
	Clusterer Clusterer
	Logger    *slog.Logger
}

// Service answers recipe searches and builds shopping lists.
type Service struct {
	api       SearchAPI
	generator Generator
	ranker    Ranker
	clusterer Clusterer
	logger    *slog.Logger
}

// NewService creates the recipes service.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		api:       cfg.API,
		generator: cfg.Generator,
		ranker:    cfg.Ranker,
		clusterer: cfg.Clusterer,
		logger:    logger,
	}
}

// SearchByIngredients finds recipes that use the given ingredients. The
// external API answers first; below three results the generative path
// backfills; with nothing from either, three canned recipes built around
// the ingredients stand in. Combined results are re-ranked against the
// ingredient list and capped at five.
func (s *Service) SearchByIngredients(ctx context.Context, ingredients []string) ([]types.Recipe, error) {
	if len(ingredients) == 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "recipes", "SearchByIngredients", "ingredients are required")
	}

	var external []types.Recipe
	var apiErr error
	if s.api != nil {
		external, apiErr = s.api.SearchByIngredients(ctx, ingredients)
	}

	return s.combine(ctx, external, apiErr, ingredients, strings.Join(ingredients, ", "))
}

// SearchByQuery finds recipes for a free-text query. Same pipeline as
// SearchByIngredients with the query standing in as the single seed for
// the backfill and fallback paths.
func (s *Service) SearchByQuery(ctx context.Context, query string) ([]types.Recipe, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "recipes", "SearchByQuery", "query is required")
	}

	var external []types.Recipe
	var apiErr error
	if s.api != nil {
		external, apiErr = s.api.SearchByQuery(ctx, query)
	}

	return s.combine(ctx, external, apiErr, []string{query}, query)
}

// combine runs the degradation pipeline shared by both search entry
// points: external results, generative backfill below the threshold,
// static fallbacks when empty, then re-rank and cap.
func (s *Service) combine(ctx context.Context, external []types.Recipe, apiErr error, seeds []string, rankQuery string) ([]types.Recipe, error) {
	results := external
	if apiErr != nil {
		s.logger.Warn("external recipe search failed, continuing without it", "error", apiErr)
		results = nil
	}

	if len(results) < backfillThreshold && s.generator != nil {
		suggested, err := s.suggestRecipes(ctx, seeds)
		if err != nil {
			s.logger.Warn("recipe suggestion backfill failed", "error", err)
		} else {
			results = append(results, suggested...)
		}
	}

	if len(results) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, errors.WrapTransient(err, "recipes", "search", "all sources cancelled")
		}
		results = staticFallbacks(seeds)
	}

	results = s.rerank(ctx, rankQuery, results)
	if len(results) > maxResults {
		results = results[:maxResults]
	}

	return results, nil
}

// suggestRecipes asks the generation provider for exactly three recipes
// built around the seed ingredients. Responses are schema-validated; any
// recipe that still fails domain validation is dropped.
func (s *Service) suggestRecipes(ctx context.Context, seeds []string) ([]types.Recipe, error) {
	payload, err := s.generator.GenerateStructured(ctx, suggestionPrompt(seeds), suggestionSchema)
	if err != nil {
		return nil, errors.Wrap(err, "recipes", "suggestRecipes", "structured generation")
	}

	var parsed struct {
		Recipes []struct {
			Name         string   `json:"name"`
			Ingredients  []string `json:"ingredients"`
			Instructions string   `json:"instructions"`
			CookingTime  string   `json:"cooking_time"`
			Servings     int      `json:"servings"`
		} `json:"recipes"`
	}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, errors.WrapInvalid(err, "recipes", "suggestRecipes", "response parsing")
	}

	recipes := make([]types.Recipe, 0, len(parsed.Recipes))
	for _, suggestion := range parsed.Recipes {
		recipe := types.Recipe{
			Name:         suggestion.Name,
			Ingredients:  suggestion.Ingredients,
			Instructions: suggestion.Instructions,
			CookingTime:  suggestion.CookingTime,
			Servings:     suggestion.Servings,
			Source:       types.RecipeSourceGenerated,
		}
		if err := recipe.Validate(); err != nil {
			s.logger.Warn("dropping generated recipe that failed validation", "error", err)
			continue
		}
		recipes = append(recipes, recipe)
	}

	if len(recipes) == 0 {
		return nil, errors.WrapTransient(
			fmt.Errorf("no valid recipes in generation response"),
			"recipes", "suggestRecipes", "response validation")
	}

	return recipes, nil
}

// rerank reorders recipes by name similarity to the query. On any ranker
// failure the original order stands; that is the single fallback.
func (s *Service) rerank(ctx context.Context, query string, recipes []types.Recipe) []types.Recipe {
	if s.ranker == nil || len(recipes) < 2 {
		return recipes
	}

	names := make([]string, len(recipes))
	for i, recipe := range recipes {
		names[i] = recipe.Name
	}

	ranked, err := s.ranker.TopN(ctx, query, names, len(names))
	if err != nil {
		s.logger.Warn("semantic re-rank failed, keeping original order", "error", err)
		return recipes
	}

	byName := make(map[string][]int, len(recipes))
	for i, name := range names {
		byName[name] = append(byName[name], i)
	}

	reordered := make([]types.Recipe, 0, len(recipes))
	for _, result := range ranked {
		indices := byName[result.Item]
		if len(indices) == 0 {
			continue
		}
		reordered = append(reordered, recipes[indices[0]])
		byName[result.Item] = indices[1:]
	}

	// Anything short of a full permutation keeps the original order.
	if len(reordered) != len(recipes) {
		return recipes
	}
	return reordered
}

// Summarize renders search results as the assistant's reply text: a count
// line followed by name, ingredient preview, time, and servings for each
// of the top three.
func Summarize(recipes []types.Recipe) string {
	if len(recipes) == 0 {
		return "I couldn't find any recipes matching your request. Could you provide more details?"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "I found %d recipes for you:\n\n", len(recipes))

	top := recipes
	if len(top) > 3 {
		top = top[:3]
	}
	for _, recipe := range top {
		fmt.Fprintf(&b, "**%s**\n", recipe.Name)
		if preview := recipe.IngredientPreview(5); preview != "" {
			fmt.Fprintf(&b, "Ingredients: %s\n", preview)
		}
		fmt.Fprintf(&b, "Time: %s | Serves: %d\n\n", recipe.CookingTime, recipe.Servings)
	}

	return strings.TrimRight(b.String(), "\n")
}
