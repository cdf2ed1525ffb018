// Package vocabulary defines the closed set of query categories the intent
// router dispatches on, together with the fixed keyword vocabularies used
// when classification has to fall back to heuristics.
//
// The category set is deliberately closed: the router dispatches with a
// single switch over QueryCategory, so adding a category is a compile-time
// change, not a runtime registration.
package vocabulary

import "strings"

// QueryCategory is the classification a user query resolves to.
type QueryCategory string

// Query category constants. Unclassified is the entry state of every
// request; Done marks a request whose handler has produced the response.
const (
	CategoryUnclassified          QueryCategory = "unclassified"
	CategoryRecipeSearch          QueryCategory = "recipe_search"
	CategoryCookingQuestion       QueryCategory = "cooking_question"
	CategoryIngredientRecognition QueryCategory = "ingredient_recognition"
	CategoryDone                  QueryCategory = "done"
)

// Handleable categories in classification order. This is the label set the
// classification provider is asked to choose from.
var Categories = []QueryCategory{
	CategoryRecipeSearch,
	CategoryCookingQuestion,
	CategoryIngredientRecognition,
}

// Keyword vocabularies for the classification fallback. Matching is
// whole-word over the lowercased query.
var (
	recipeKeywords = []string{"recipe", "cook", "make", "dish", "meal"}

	questionKeywords = []string{"how", "what", "why", "technique", "substitute"}
)

// Valid reports whether label is one of the handleable categories.
func Valid(label QueryCategory) bool {
	for _, c := range Categories {
		if c == label {
			return true
		}
	}
	return false
}

// Parse normalizes a provider-returned label into a category. The second
// return is false when the label is not one of the handleable categories.
func Parse(label string) (QueryCategory, bool) {
	c := QueryCategory(strings.ToLower(strings.TrimSpace(label)))
	if Valid(c) {
		return c, true
	}
	return CategoryUnclassified, false
}

// ClassifyByKeywords applies the fixed keyword vocabularies to a raw query.
// Recipe keywords win over question keywords; a query matching neither
// defaults to CategoryCookingQuestion, the safest handler for free text.
func ClassifyByKeywords(query string) QueryCategory {
	words := tokenize(query)

	if containsAny(words, recipeKeywords) {
		return CategoryRecipeSearch
	}
	if containsAny(words, questionKeywords) {
		return CategoryCookingQuestion
	}
	return CategoryCookingQuestion
}

// tokenize lowercases and splits a query into bare words, trimming
// punctuation so "substitute?" matches "substitute".
func tokenize(query string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, f := range strings.Fields(strings.ToLower(query)) {
		w := strings.Trim(f, ".,!?;:'\"()")
		if w != "" {
			words[w] = struct{}{}
		}
	}
	return words
}

func containsAny(words map[string]struct{}, vocab []string) bool {
	for _, v := range vocab {
		if _, ok := words[v]; ok {
			return true
		}
	}
	return false
}
