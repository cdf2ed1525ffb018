package recipes

import (
	"fmt"
	"strings"

	"github.com/c360/sousschef/genai"
	"github.com/c360/sousschef/types"
)

// suggestionSchema accepts only complete recipe objects: all five fields,
// no partials.
var suggestionSchema = genai.MustSchema(`{
	"type": "object",
	"properties": {
		"recipes": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"name": {"type": "string"},
					"ingredients": {"type": "array", "items": {"type": "string"}},
					"instructions": {"type": "string"},
					"cooking_time": {"type": "string"},
					"servings": {"type": "integer"}
				},
				"required": ["name", "ingredients", "instructions", "cooking_time", "servings"]
			}
		}
	},
	"required": ["recipes"]
}`)

// shoppingSchema accepts a sectioned shopping list.
var shoppingSchema = genai.MustSchema(`{
	"type": "object",
	"properties": {
		"sections": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"name": {"type": "string"},
					"items": {"type": "array", "items": {"type": "string"}}
				},
				"required": ["name", "items"]
			}
		}
	},
	"required": ["sections"]
}`)

func suggestionPrompt(ingredients []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Based on these ingredients: %s\n", strings.Join(ingredients, ", "))
	b.WriteString("You must return exactly 3 specific recipes that can be made primarily with these ingredients.\n")
	b.WriteString("Return your answer as a valid JSON object with a single key 'recipes', whose value is an array of 3 recipe objects.\n")
	b.WriteString("Each recipe object must have:\n")
	b.WriteString("- name (string)\n")
	b.WriteString("- ingredients (array of strings, with quantities, e.g., '1 cup onion')\n")
	b.WriteString("- instructions (string, numbered steps separated by newlines)\n")
	b.WriteString("- cooking_time (string)\n")
	b.WriteString("- servings (integer)\n")
	b.WriteString("Example:\n")
	b.WriteString(`{"recipes": [` + "\n")
	b.WriteString(`  {"name": "Recipe 1", "ingredients": ["1 cup onion"], "instructions": "1. ...", "cooking_time": "30 minutes", "servings": 4},` + "\n")
	b.WriteString(`  {"name": "Recipe 2", "ingredients": ["2 cups flour"], "instructions": "1. ...", "cooking_time": "45 minutes", "servings": 6},` + "\n")
	b.WriteString(`  {"name": "Recipe 3", "ingredients": ["1 lb meat"], "instructions": "1. ...", "cooking_time": "60 minutes", "servings": 4}` + "\n")
	b.WriteString("]}\n")
	b.WriteString("Make the recipes practical and achievable with common cooking methods.")
	return b.String()
}

func shoppingPrompt(recipe types.Recipe, available []string) string {
	availableStr := "none"
	if len(available) > 0 {
		availableStr = strings.Join(available, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Recipe: %s\n", recipe.Name)
	fmt.Fprintf(&b, "Recipe ingredients needed: %s\n", strings.Join(recipe.Ingredients, ", "))
	fmt.Fprintf(&b, "Already available ingredients: %s\n", availableStr)
	b.WriteString("Create a shopping list of ingredients that need to be purchased.\n")
	b.WriteString("Rules:\n")
	b.WriteString("1. Exclude ingredients that are already available\n")
	b.WriteString("2. Include quantities where specified in the recipe\n")
	b.WriteString("3. Only include items that actually need to be bought\n")
	b.WriteString(`4. Use clear, specific item names (e.g., "1 lb ground beef", "2 large onions")` + "\n")
	b.WriteString("Group the items into store sections (e.g., Produce, Dairy, Meat & Seafood, Pantry).\n")
	b.WriteString(`Return a valid JSON object: {"sections": [{"name": "Produce", "items": ["2 large onions"]}]}`)
	return b.String()
}
