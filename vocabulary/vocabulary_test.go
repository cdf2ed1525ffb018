package vocabulary

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		label string
		want  QueryCategory
		ok    bool
	}{
		{"exact match", "recipe_search", CategoryRecipeSearch, true},
		{"uppercase", "COOKING_QUESTION", CategoryCookingQuestion, true},
		{"padded", "  ingredient_recognition \n", CategoryIngredientRecognition, true},
		{"unknown label", "smalltalk", CategoryUnclassified, false},
		{"empty", "", CategoryUnclassified, false},
		{"unclassified not handleable", "unclassified", CategoryUnclassified, false},
		{"done not handleable", "done", CategoryUnclassified, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.label)
			if got != tt.want || ok != tt.ok {
				t.Errorf("Parse(%q) = (%v, %v), want (%v, %v)", tt.label, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestClassifyByKeywords(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  QueryCategory
	}{
		{"recipe word", "Give me a recipe for dinner", CategoryRecipeSearch},
		{"cook word", "I want to cook something Italian", CategoryRecipeSearch},
		{"make word", "make me pasta", CategoryRecipeSearch},
		{"dish word", "suggest a dish with beans", CategoryRecipeSearch},
		{"meal word", "plan my meal", CategoryRecipeSearch},
		{"how question", "How do I substitute butter?", CategoryCookingQuestion},
		{"what question", "what temperature kills salmonella", CategoryCookingQuestion},
		{"why question", "why did my bread not rise", CategoryCookingQuestion},
		{"technique word", "knife technique for onions", CategoryCookingQuestion},
		{"punctuation trimmed", "any good substitute?", CategoryCookingQuestion},
		{"no match defaults", "tell me about saffron", CategoryCookingQuestion},
		{"empty defaults", "", CategoryCookingQuestion},
		{"recipe beats question words", "how do I make this recipe", CategoryRecipeSearch},
		{"substring does not match", "remake of a cookbook", CategoryCookingQuestion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyByKeywords(tt.query); got != tt.want {
				t.Errorf("ClassifyByKeywords(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestValid(t *testing.T) {
	for _, c := range Categories {
		if !Valid(c) {
			t.Errorf("expected %v to be valid", c)
		}
	}
	if Valid(CategoryUnclassified) || Valid(CategoryDone) {
		t.Error("state-only categories must not be valid classification targets")
	}
}
