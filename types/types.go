// Package types contains shared domain types used across the sousschef assistant
package types

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/c360/sousschef/errors"
)

// Role identifies the author of a conversation turn
type Role string

// Turn role constants
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation. Turns are immutable once created;
// the router appends exactly one assistant turn per handled request.
type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTurn creates a turn with a fresh ID and timestamp
func NewTurn(role Role, content string) Turn {
	return Turn{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// Recipe source constants. Source records which path produced a recipe so
// responses can distinguish live API results from generated or canned ones.
const (
	RecipeSourceAPI       = "api"
	RecipeSourceGenerated = "ai_generated"
	RecipeSourceFallback  = "fallback"
)

// Recipe is the normalized recipe shape shared by the external search API
// client, the generative suggestion path, and the static fallbacks.
type Recipe struct {
	Name         string   `json:"name"`
	Ingredients  []string `json:"ingredients"`
	Instructions string   `json:"instructions"`
	CookingTime  string   `json:"cooking_time"`
	Servings     int      `json:"servings"`
	Source       string   `json:"source"`
}

// Validate ensures the recipe carries the fields responses depend on
func (r Recipe) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.WrapInvalid(
			errors.ErrInvalidData,
			"Recipe",
			"Validate",
			"recipe name cannot be empty",
		)
	}
	return nil
}

// IngredientPreview returns up to max ingredients joined for display,
// with an ellipsis when the list was truncated.
func (r Recipe) IngredientPreview(max int) string {
	if max <= 0 || len(r.Ingredients) == 0 {
		return ""
	}
	if len(r.Ingredients) <= max {
		return strings.Join(r.Ingredients, ", ")
	}
	return strings.Join(r.Ingredients[:max], ", ") + "..."
}
