package recipes

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/sousschef/errors"
	"github.com/c360/sousschef/genai"
	"github.com/c360/sousschef/pkg/clustering"
	"github.com/c360/sousschef/pkg/ranking"
	"github.com/c360/sousschef/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeAPI serves canned search results.
type fakeAPI struct {
	byIngredients []types.Recipe
	byQuery       []types.Recipe
	err           error

	ingredientCalls int
	queryCalls      int
	gotIngredients  []string
	gotQuery        string
}

func (f *fakeAPI) SearchByIngredients(_ context.Context, ingredients []string) ([]types.Recipe, error) {
	f.ingredientCalls++
	f.gotIngredients = ingredients
	return f.byIngredients, f.err
}

func (f *fakeAPI) SearchByQuery(_ context.Context, query string) ([]types.Recipe, error) {
	f.queryCalls++
	f.gotQuery = query
	return f.byQuery, f.err
}

// fakeGenerator returns one canned payload for every structured call.
type fakeGenerator struct {
	payload string
	err     error

	calls   int
	prompts []string
}

func (f *fakeGenerator) GenerateStructured(_ context.Context, prompt string, _ *genai.Schema) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.payload, nil
}

// fakeRanker reorders candidates to the configured order.
type fakeRanker struct {
	order []string
	err   error

	calls         int
	gotQuery      string
	gotCandidates []string
	gotN          int
}

func (f *fakeRanker) TopN(_ context.Context, query string, candidates []string, n int) ([]ranking.Result, error) {
	f.calls++
	f.gotQuery = query
	f.gotCandidates = candidates
	f.gotN = n
	if f.err != nil {
		return nil, f.err
	}

	results := make([]ranking.Result, len(f.order))
	for i, item := range f.order {
		results[i] = ranking.Result{Item: item, Score: 1.0 - float64(i)*0.1}
	}
	if n < len(results) {
		results = results[:n]
	}
	return results, nil
}

// fakeClusterer returns a canned assignment set.
type fakeClusterer struct {
	result *clustering.Result
	err    error

	calls    int
	gotItems []string
	gotK     int
}

func (f *fakeClusterer) Cluster(_ context.Context, items []string, k int) (*clustering.Result, error) {
	f.calls++
	f.gotItems = items
	f.gotK = k
	return f.result, f.err
}

func namedRecipes(names ...string) []types.Recipe {
	recipes := make([]types.Recipe, len(names))
	for i, name := range names {
		recipes[i] = types.Recipe{
			Name:        name,
			Ingredients: []string{"1 cup " + strings.ToLower(name)},
			Servings:    4,
			Source:      types.RecipeSourceAPI,
		}
	}
	return recipes
}

func recipeNames(recipes []types.Recipe) []string {
	names := make([]string, len(recipes))
	for i, recipe := range recipes {
		names[i] = recipe.Name
	}
	return names
}

const threeRecipesPayload = `{"recipes": [
	{"name": "Garlic Chicken", "ingredients": ["1 lb chicken", "3 cloves garlic"], "instructions": "1. Cook.", "cooking_time": "25 minutes", "servings": 4},
	{"name": "Chicken Rice Bowl", "ingredients": ["1 lb chicken", "2 cups rice"], "instructions": "1. Cook.", "cooking_time": "30 minutes", "servings": 2},
	{"name": "Chicken Soup", "ingredients": ["1 lb chicken", "4 cups broth"], "instructions": "1. Simmer.", "cooking_time": "45 minutes", "servings": 6}
]}`

func TestService_SearchByIngredients_ExternalOnly(t *testing.T) {
	api := &fakeAPI{byIngredients: namedRecipes("A", "B", "C")}
	gen := &fakeGenerator{payload: threeRecipesPayload}
	service := NewService(Config{API: api, Generator: gen, Logger: discardLogger()})

	results, err := service.SearchByIngredients(context.Background(), []string{"chicken", "rice"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, recipeNames(results))
	assert.Equal(t, []string{"chicken", "rice"}, api.gotIngredients)
	assert.Equal(t, 0, gen.calls, "three external results need no backfill")
}

func TestService_SearchByIngredients_BackfillBelowThreshold(t *testing.T) {
	api := &fakeAPI{byIngredients: namedRecipes("A", "B")}
	gen := &fakeGenerator{payload: threeRecipesPayload}
	service := NewService(Config{API: api, Generator: gen, Logger: discardLogger()})

	results, err := service.SearchByIngredients(context.Background(), []string{"chicken", "rice"})
	require.NoError(t, err)
	require.Len(t, results, 5)
	assert.Equal(t, types.RecipeSourceAPI, results[0].Source)
	assert.Equal(t, types.RecipeSourceGenerated, results[2].Source)

	require.Equal(t, 1, gen.calls)
	assert.Contains(t, gen.prompts[0], "Based on these ingredients: chicken, rice")
	assert.Contains(t, gen.prompts[0], "exactly 3 specific recipes")
}

func TestService_SearchByIngredients_CapAtFive(t *testing.T) {
	api := &fakeAPI{byIngredients: namedRecipes("A", "B")}
	gen := &fakeGenerator{payload: `{"recipes": [
		{"name": "G1", "ingredients": ["x"], "instructions": "1.", "cooking_time": "5 minutes", "servings": 2},
		{"name": "G2", "ingredients": ["x"], "instructions": "1.", "cooking_time": "5 minutes", "servings": 2},
		{"name": "G3", "ingredients": ["x"], "instructions": "1.", "cooking_time": "5 minutes", "servings": 2},
		{"name": "G4", "ingredients": ["x"], "instructions": "1.", "cooking_time": "5 minutes", "servings": 2}
	]}`}
	service := NewService(Config{API: api, Generator: gen, Logger: discardLogger()})

	results, err := service.SearchByIngredients(context.Background(), []string{"chicken"})
	require.NoError(t, err)
	assert.Len(t, results, 5)
}

func TestService_SearchByIngredients_APIFailureFallsToGenerated(t *testing.T) {
	api := &fakeAPI{err: errors.WithKind(errors.ErrProviderUnavailable, fmt.Errorf("quota"))}
	gen := &fakeGenerator{payload: threeRecipesPayload}
	service := NewService(Config{API: api, Generator: gen, Logger: discardLogger()})

	results, err := service.SearchByIngredients(context.Background(), []string{"chicken"})
	require.NoError(t, err, "external failure degrades, it does not propagate")
	require.Len(t, results, 3)
	for _, recipe := range results {
		assert.Equal(t, types.RecipeSourceGenerated, recipe.Source)
	}
}

func TestService_SearchByIngredients_StaticFallbacks(t *testing.T) {
	api := &fakeAPI{err: errors.WithKind(errors.ErrProviderUnavailable, fmt.Errorf("down"))}
	gen := &fakeGenerator{err: errors.WithKind(errors.ErrProviderUnavailable, fmt.Errorf("down too"))}
	service := NewService(Config{API: api, Generator: gen, Logger: discardLogger()})

	results, err := service.SearchByIngredients(context.Background(), []string{"chicken", "rice"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Simple Stir-Fry with chicken, rice",
		"Roasted chicken, rice with Herbs",
		"chicken, rice Soup",
	}, recipeNames(results))
	for _, recipe := range results {
		assert.Equal(t, types.RecipeSourceFallback, recipe.Source)
	}
}

func TestService_SearchByIngredients_Rerank(t *testing.T) {
	api := &fakeAPI{byIngredients: namedRecipes("A", "B", "C")}
	ranker := &fakeRanker{order: []string{"C", "A", "B"}}
	service := NewService(Config{API: api, Ranker: ranker, Logger: discardLogger()})

	results, err := service.SearchByIngredients(context.Background(), []string{"chicken", "rice"})
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A", "B"}, recipeNames(results))

	assert.Equal(t, "chicken, rice", ranker.gotQuery)
	assert.Equal(t, []string{"A", "B", "C"}, ranker.gotCandidates)
	assert.Equal(t, 3, ranker.gotN)
}

func TestService_SearchByIngredients_RerankFailureKeepsOrder(t *testing.T) {
	api := &fakeAPI{byIngredients: namedRecipes("A", "B", "C")}
	ranker := &fakeRanker{err: errors.WithKind(errors.ErrProviderUnavailable, fmt.Errorf("embeddings down"))}
	service := NewService(Config{API: api, Ranker: ranker, Logger: discardLogger()})

	results, err := service.SearchByIngredients(context.Background(), []string{"chicken"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, recipeNames(results))
	assert.Equal(t, 1, ranker.calls)
}

func TestService_SearchByIngredients_EmptyInput(t *testing.T) {
	api := &fakeAPI{}
	service := NewService(Config{API: api, Logger: discardLogger()})

	_, err := service.SearchByIngredients(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
	assert.Equal(t, 0, api.ingredientCalls)
}

func TestService_SearchByQuery(t *testing.T) {
	api := &fakeAPI{byQuery: namedRecipes("Stew")}
	gen := &fakeGenerator{payload: threeRecipesPayload}
	service := NewService(Config{API: api, Generator: gen, Logger: discardLogger()})

	results, err := service.SearchByQuery(context.Background(), "hearty winter stew")
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, "hearty winter stew", api.gotQuery)
	require.Equal(t, 1, gen.calls)
	assert.Contains(t, gen.prompts[0], "Based on these ingredients: hearty winter stew",
		"query is the seed for the backfill")
}

func TestService_SearchByQuery_EmptyQuery(t *testing.T) {
	service := NewService(Config{Logger: discardLogger()})

	_, err := service.SearchByQuery(context.Background(), "   ")
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestService_SuggestRecipes_DropsInvalid(t *testing.T) {
	gen := &fakeGenerator{payload: `{"recipes": [
		{"name": "", "ingredients": [], "instructions": "x", "cooking_time": "5 minutes", "servings": 1},
		{"name": "Fried Egg", "ingredients": ["1 egg"], "instructions": "1. Fry.", "cooking_time": "5 minutes", "servings": 1}
	]}`}
	service := NewService(Config{Generator: gen, Logger: discardLogger()})

	recipes, err := service.suggestRecipes(context.Background(), []string{"egg"})
	require.NoError(t, err)
	require.Len(t, recipes, 1)
	assert.Equal(t, "Fried Egg", recipes[0].Name)
	assert.Equal(t, types.RecipeSourceGenerated, recipes[0].Source)
}

func TestService_SuggestRecipes_AllInvalid(t *testing.T) {
	gen := &fakeGenerator{payload: `{"recipes": []}`}
	service := NewService(Config{Generator: gen, Logger: discardLogger()})

	_, err := service.suggestRecipes(context.Background(), []string{"egg"})
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
}

func TestSummarize(t *testing.T) {
	recipes := []types.Recipe{
		{Name: "First", Ingredients: []string{"a", "b", "c", "d", "e", "f"}, CookingTime: "25 minutes", Servings: 2},
		{Name: "Second", Ingredients: []string{"g"}, CookingTime: "10 minutes", Servings: 4},
		{Name: "Third", Ingredients: []string{"h"}, CookingTime: "5 minutes", Servings: 1},
		{Name: "Fourth", Ingredients: []string{"i"}, CookingTime: "1 minute", Servings: 1},
	}

	text := Summarize(recipes)
	assert.Contains(t, text, "I found 4 recipes for you:")
	assert.Contains(t, text, "**First**")
	assert.Contains(t, text, "Ingredients: a, b, c, d, e...", "preview truncates at five")
	assert.Contains(t, text, "Time: 25 minutes | Serves: 2")
	assert.Contains(t, text, "**Third**")
	assert.NotContains(t, text, "Fourth", "summary covers the top three only")
}

func TestSummarize_Empty(t *testing.T) {
	assert.Equal(t,
		"I couldn't find any recipes matching your request. Could you provide more details?",
		Summarize(nil))
}

func TestStaticFallbacks_SingleIngredient(t *testing.T) {
	recipes := staticFallbacks([]string{"tofu"})
	require.Len(t, recipes, 3)

	stirFry := recipes[0]
	assert.Equal(t, "Simple Stir-Fry with tofu", stirFry.Name)
	assert.Contains(t, stirFry.Instructions, "3. Add tofu and cook for 3-4 minutes")
	assert.NotContains(t, stirFry.Instructions, "remaining vegetables",
		"single ingredient has no remaining-vegetables step")
	assert.Contains(t, stirFry.Ingredients, "2 cloves garlic")

	for _, recipe := range recipes {
		require.NoError(t, recipe.Validate())
		assert.Equal(t, types.RecipeSourceFallback, recipe.Source)
	}
}

func TestStaticFallbacks_HeadlineCapsAtThree(t *testing.T) {
	recipes := staticFallbacks([]string{"onion", "carrot", "potato", "leek"})
	require.Len(t, recipes, 3)

	assert.Equal(t, "Simple Stir-Fry with onion, carrot, potato", recipes[0].Name)
	assert.Contains(t, recipes[0].Instructions, "4. Add remaining vegetables: carrot, potato, leek")
	assert.Contains(t, recipes[0].Instructions, "7. Serve immediately while hot")
	assert.Contains(t, recipes[2].Name, "Soup")
	assert.Contains(t, recipes[2].Ingredients, "4 cups vegetable broth")
}

func TestStaticFallbacks_Empty(t *testing.T) {
	assert.Nil(t, staticFallbacks(nil))
}
