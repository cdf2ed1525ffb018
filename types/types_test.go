package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTurn(t *testing.T) {
	turn := NewTurn(RoleUser, "what can I cook tonight?")

	assert.NotEmpty(t, turn.ID)
	assert.Equal(t, RoleUser, turn.Role)
	assert.Equal(t, "what can I cook tonight?", turn.Content)
	assert.False(t, turn.CreatedAt.IsZero())

	other := NewTurn(RoleAssistant, "let's see")
	assert.NotEqual(t, turn.ID, other.ID, "turn IDs must be unique")
}

func TestRecipeValidate(t *testing.T) {
	valid := Recipe{Name: "Vegetable Stir-Fry", Source: RecipeSourceFallback}
	assert.NoError(t, valid.Validate())

	invalid := Recipe{Name: "   "}
	assert.Error(t, invalid.Validate())
}

func TestIngredientPreview(t *testing.T) {
	r := Recipe{Ingredients: []string{"onion", "garlic", "ginger", "soy sauce", "rice", "carrot"}}

	tests := []struct {
		name string
		max  int
		want string
	}{
		{"truncated", 5, "onion, garlic, ginger, soy sauce, rice..."},
		{"exact fit", 6, "onion, garlic, ginger, soy sauce, rice, carrot"},
		{"zero max", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.IngredientPreview(tt.max))
		})
	}

	empty := Recipe{}
	assert.Equal(t, "", empty.IngredientPreview(5))
}
