package recipes

import (
	"fmt"
	"strings"

	"github.com/c360/sousschef/types"
)

// staticFallbacks returns three canned recipes built around the given
// ingredients: a stir-fry, a roast, and a soup. Last resort when both the
// external API and the generative path produced nothing.
func staticFallbacks(ingredients []string) []types.Recipe {
	if len(ingredients) == 0 {
		return nil
	}

	headline := ingredients
	if len(headline) > 3 {
		headline = headline[:3]
	}
	headlineStr := strings.Join(headline, ", ")

	stirFrySteps := []string{
		"Heat olive oil in a large pan over medium-high heat",
		"Add garlic and cook for 1 minute until fragrant",
		fmt.Sprintf("Add %s and cook for 3-4 minutes", ingredients[0]),
	}
	if rest := strings.Join(ingredients[1:], ", "); rest != "" {
		stirFrySteps = append(stirFrySteps, fmt.Sprintf("Add remaining vegetables: %s", rest))
	}
	stirFrySteps = append(stirFrySteps,
		"Stir-fry for 5-7 minutes until vegetables are tender-crisp",
		"Season with salt and pepper to taste",
		"Serve immediately while hot",
	)

	roastSteps := []string{
		"Preheat oven to 425°F (220°C)",
		"Cut vegetables into similar-sized pieces",
		"Toss with olive oil, thyme, rosemary, salt and pepper",
		"Spread on a baking sheet in single layer",
		"Roast for 25-30 minutes until tender and golden",
		"Serve as a side dish or over grains",
	}

	soupSteps := []string{
		"Heat olive oil in a large pot over medium heat",
		"Add diced onion and garlic, cook until fragrant",
		"Add chopped vegetables and cook for 5 minutes",
		"Pour in vegetable broth and bring to a boil",
		"Reduce heat and simmer for 20-25 minutes until vegetables are tender",
		"Season with salt and pepper to taste",
		"Serve hot with crusty bread",
	}

	return []types.Recipe{
		{
			Name:         fmt.Sprintf("Simple Stir-Fry with %s", headlineStr),
			Ingredients:  withExtras(ingredients, "2 tbsp olive oil", "1 tsp salt", "1/2 tsp black pepper", "2 cloves garlic"),
			Instructions: numberSteps(stirFrySteps),
			CookingTime:  "15 minutes",
			Servings:     4,
			Source:       types.RecipeSourceFallback,
		},
		{
			Name:         fmt.Sprintf("Roasted %s with Herbs", headlineStr),
			Ingredients:  withExtras(ingredients, "3 tbsp olive oil", "1 tsp dried thyme", "1 tsp dried rosemary", "Salt and pepper"),
			Instructions: numberSteps(roastSteps),
			CookingTime:  "30 minutes",
			Servings:     4,
			Source:       types.RecipeSourceFallback,
		},
		{
			Name:         fmt.Sprintf("%s Soup", headlineStr),
			Ingredients:  withExtras(ingredients, "4 cups vegetable broth", "1 onion diced", "2 cloves garlic", "1 tbsp olive oil", "Salt and pepper"),
			Instructions: numberSteps(soupSteps),
			CookingTime:  "35 minutes",
			Servings:     4,
			Source:       types.RecipeSourceFallback,
		},
	}
}

// withExtras copies ingredients before appending so callers' slices stay
// untouched.
func withExtras(ingredients []string, extras ...string) []string {
	combined := make([]string, 0, len(ingredients)+len(extras))
	combined = append(combined, ingredients...)
	return append(combined, extras...)
}

func numberSteps(steps []string) string {
	var b strings.Builder
	for i, step := range steps {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, step)
	}
	return b.String()
}
