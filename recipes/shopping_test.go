package recipes

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/sousschef/errors"
	"github.com/c360/sousschef/pkg/clustering"
	"github.com/c360/sousschef/types"
)

func providerDown() error {
	return errors.WithKind(errors.ErrProviderUnavailable, fmt.Errorf("provider down"))
}

func TestService_BuildShoppingList_Generated(t *testing.T) {
	gen := &fakeGenerator{payload: `{"sections": [
		{"name": "Produce", "items": ["2 large onions", "1 bell pepper"]},
		{"name": "Meat & Seafood", "items": ["1 lb ground beef"]},
		{"name": "Spices", "items": []}
	]}`}
	service := NewService(Config{Generator: gen, Logger: discardLogger()})

	recipe := types.Recipe{
		Name:        "Chili",
		Ingredients: []string{"2 large onions", "1 bell pepper", "1 lb ground beef", "salt"},
	}

	list, err := service.BuildShoppingList(context.Background(), recipe, []string{"salt"})
	require.NoError(t, err)
	assert.Equal(t, "Chili", list.RecipeName)
	require.Len(t, list.Sections, 2, "empty sections are dropped")
	assert.Equal(t, "Produce", list.Sections[0].Name)
	assert.Equal(t, 3, list.TotalItems())
	assert.Equal(t, []string{"2 large onions", "1 bell pepper", "1 lb ground beef"}, list.Items())

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Recipe: Chili")
	assert.Contains(t, gen.prompts[0], "Already available ingredients: salt")
	assert.Contains(t, gen.prompts[0], "Exclude ingredients that are already available")
}

func TestService_BuildShoppingList_NoAvailable(t *testing.T) {
	gen := &fakeGenerator{payload: `{"sections": [{"name": "Pantry", "items": ["1 cup flour"]}]}`}
	service := NewService(Config{Generator: gen, Logger: discardLogger()})

	_, err := service.BuildShoppingList(context.Background(),
		types.Recipe{Name: "Bread", Ingredients: []string{"1 cup flour"}}, nil)
	require.NoError(t, err)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Already available ingredients: none")
}

func TestService_BuildShoppingList_FallbackFilter(t *testing.T) {
	gen := &fakeGenerator{err: providerDown()}
	service := NewService(Config{Generator: gen, Logger: discardLogger()})

	recipe := types.Recipe{Name: "Stir Fry", Ingredients: []string{"2 cups rice", "1 lb chicken", "Salt"}}

	list, err := service.BuildShoppingList(context.Background(), recipe, []string{"salt"})
	require.NoError(t, err, "generation failure degrades to the filter")
	require.Len(t, list.Sections, 1)
	assert.Equal(t, "Shopping List", list.Sections[0].Name)
	assert.Equal(t, []string{"2 cups rice", "1 lb chicken"}, list.Sections[0].Items,
		"availability match is case-insensitive")
}

func TestService_BuildShoppingList_FallbackClusters(t *testing.T) {
	gen := &fakeGenerator{err: providerDown()}
	clusterer := &fakeClusterer{result: &clustering.Result{Assignments: []clustering.Assignment{
		{Item: "onion", Cluster: 0},
		{Item: "carrot", Cluster: 0},
		{Item: "milk", Cluster: 1},
	}}}
	service := NewService(Config{Generator: gen, Clusterer: clusterer, Logger: discardLogger()})

	recipe := types.Recipe{Name: "Bake", Ingredients: []string{"onion", "carrot", "milk"}}

	list, err := service.BuildShoppingList(context.Background(), recipe, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, clusterer.calls)
	assert.Equal(t, []string{"onion", "carrot", "milk"}, clusterer.gotItems)
	assert.Equal(t, 3, clusterer.gotK)

	require.Len(t, list.Sections, 2)
	assert.Equal(t, "Group 1", list.Sections[0].Name)
	assert.Equal(t, []string{"onion", "carrot"}, list.Sections[0].Items)
	assert.Equal(t, "Group 2", list.Sections[1].Name)
	assert.Equal(t, []string{"milk"}, list.Sections[1].Items)
}

func TestService_BuildShoppingList_GroupCountCapped(t *testing.T) {
	gen := &fakeGenerator{err: providerDown()}
	clusterer := &fakeClusterer{result: &clustering.Result{Assignments: []clustering.Assignment{
		{Item: "a", Cluster: 0}, {Item: "b", Cluster: 1},
		{Item: "c", Cluster: 2}, {Item: "d", Cluster: 3},
		{Item: "e", Cluster: 0}, {Item: "f", Cluster: 1},
	}}}
	service := NewService(Config{Generator: gen, Clusterer: clusterer, Logger: discardLogger()})

	recipe := types.Recipe{Name: "Feast", Ingredients: []string{"a", "b", "c", "d", "e", "f"}}

	_, err := service.BuildShoppingList(context.Background(), recipe, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, clusterer.gotK, "sectioning caps at four groups")
}

func TestService_BuildShoppingList_ClusterFailureFlat(t *testing.T) {
	gen := &fakeGenerator{err: providerDown()}
	clusterer := &fakeClusterer{err: providerDown()}
	service := NewService(Config{Generator: gen, Clusterer: clusterer, Logger: discardLogger()})

	recipe := types.Recipe{Name: "Bake", Ingredients: []string{"onion", "milk"}}

	list, err := service.BuildShoppingList(context.Background(), recipe, nil)
	require.NoError(t, err)
	require.Len(t, list.Sections, 1)
	assert.Equal(t, "Shopping List", list.Sections[0].Name)
	assert.Equal(t, []string{"onion", "milk"}, list.Sections[0].Items)
}

func TestService_BuildShoppingList_NothingNeeded(t *testing.T) {
	service := NewService(Config{Logger: discardLogger()})

	recipe := types.Recipe{Name: "Toast", Ingredients: []string{"bread", "butter"}}

	list, err := service.BuildShoppingList(context.Background(), recipe, []string{"Bread", "Butter"})
	require.NoError(t, err)
	assert.Empty(t, list.Sections)
	assert.Equal(t, 0, list.TotalItems())
	assert.Equal(t, "Toast", list.RecipeName)
}

func TestService_BuildShoppingList_EmptyGenerationFallsBack(t *testing.T) {
	gen := &fakeGenerator{payload: `{"sections": []}`}
	service := NewService(Config{Generator: gen, Logger: discardLogger()})

	recipe := types.Recipe{Name: "Soup", Ingredients: []string{"broth"}}

	list, err := service.BuildShoppingList(context.Background(), recipe, nil)
	require.NoError(t, err)
	require.Len(t, list.Sections, 1, "an empty generated list falls back to the filter")
	assert.Equal(t, []string{"broth"}, list.Sections[0].Items)
}

func TestService_BuildShoppingList_InvalidRecipe(t *testing.T) {
	service := NewService(Config{Logger: discardLogger()})

	_, err := service.BuildShoppingList(context.Background(), types.Recipe{}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestShoppingList_Empty(t *testing.T) {
	var list ShoppingList
	assert.Nil(t, list.Items())
	assert.Equal(t, 0, list.TotalItems())
}
