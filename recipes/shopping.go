package recipes

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/c360/sousschef/errors"
	"github.com/c360/sousschef/types"
)

// maxShoppingGroups bounds the fallback sectioning.
const maxShoppingGroups = 4

// ShoppingSection groups purchasable items under one heading.
type ShoppingSection struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

// ShoppingList is a sectioned list of ingredients to buy for one recipe.
type ShoppingList struct {
	RecipeName string            `json:"recipe_name"`
	Sections   []ShoppingSection `json:"sections"`
}

// Items flattens the sections in order.
func (l ShoppingList) Items() []string {
	var items []string
	for _, section := range l.Sections {
		items = append(items, section.Items...)
	}
	return items
}

// TotalItems counts items across all sections.
func (l ShoppingList) TotalItems() int {
	total := 0
	for _, section := range l.Sections {
		total += len(section.Items)
	}
	return total
}

// BuildShoppingList derives what must be bought for the recipe given what
// is already available. The generation provider produces the sectioned
// list; on failure the recipe's own ingredients are filtered by
// availability and clustered into up to four groups.
func (s *Service) BuildShoppingList(ctx context.Context, recipe types.Recipe, available []string) (ShoppingList, error) {
	if err := recipe.Validate(); err != nil {
		return ShoppingList{}, err
	}

	list := ShoppingList{RecipeName: recipe.Name}

	if s.generator != nil {
		sections, err := s.generateShoppingSections(ctx, recipe, available)
		if err != nil {
			s.logger.Warn("shopping list generation failed, falling back to ingredient filter", "error", err)
		} else if len(sections) > 0 {
			list.Sections = sections
			return list, nil
		}
	}

	needed := filterAvailable(recipe.Ingredients, available)
	if len(needed) == 0 {
		return list, nil
	}

	list.Sections = s.fallbackSections(ctx, needed)
	return list, nil
}

func (s *Service) generateShoppingSections(ctx context.Context, recipe types.Recipe, available []string) ([]ShoppingSection, error) {
	payload, err := s.generator.GenerateStructured(ctx, shoppingPrompt(recipe, available), shoppingSchema)
	if err != nil {
		return nil, errors.Wrap(err, "recipes", "BuildShoppingList", "structured generation")
	}

	var parsed struct {
		Sections []ShoppingSection `json:"sections"`
	}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, errors.WrapInvalid(err, "recipes", "BuildShoppingList", "response parsing")
	}

	var sections []ShoppingSection
	for _, section := range parsed.Sections {
		if len(section.Items) == 0 {
			continue
		}
		sections = append(sections, section)
	}
	return sections, nil
}

// fallbackSections groups the needed items by embedding similarity, or
// keeps one flat section when clustering is not available.
func (s *Service) fallbackSections(ctx context.Context, needed []string) []ShoppingSection {
	k := len(needed)
	if k > maxShoppingGroups {
		k = maxShoppingGroups
	}

	if s.clusterer != nil && k > 1 {
		result, err := s.clusterer.Cluster(ctx, needed, k)
		if err != nil {
			s.logger.Warn("shopping list clustering failed, keeping flat list", "error", err)
		} else {
			var sections []ShoppingSection
			for _, group := range result.Groups() {
				if len(group) == 0 {
					continue
				}
				sections = append(sections, ShoppingSection{
					Name:  fmt.Sprintf("Group %d", len(sections)+1),
					Items: group,
				})
			}
			if len(sections) > 0 {
				return sections
			}
		}
	}

	return []ShoppingSection{{Name: "Shopping List", Items: needed}}
}

// filterAvailable drops ingredients already on hand, matched by exact
// case-insensitive name.
func filterAvailable(ingredients, available []string) []string {
	owned := make(map[string]struct{}, len(available))
	for _, item := range available {
		owned[strings.ToLower(strings.TrimSpace(item))] = struct{}{}
	}

	var needed []string
	for _, ingredient := range ingredients {
		if _, ok := owned[strings.ToLower(strings.TrimSpace(ingredient))]; ok {
			continue
		}
		needed = append(needed, ingredient)
	}
	return needed
}
