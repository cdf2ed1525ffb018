package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/c360/sousschef/errors"
	"github.com/c360/sousschef/recipes"
	"github.com/c360/sousschef/types"
	"github.com/c360/sousschef/vocabulary"
)

// handleRecipeSearch finds recipes for the request and renders the
// top-three summary. Pre-seeded ingredients take precedence over the
// free-text query.
func (r *Router) handleRecipeSearch(ctx context.Context, st *State, query string) (string, error) {
	if r.recipes == nil {
		r.logger.Warn("recipe search unavailable, no recipe service configured")
		return recipeSearchFailureMessage, nil
	}

	var (
		found []types.Recipe
		err   error
	)
	if len(st.Ingredients) > 0 {
		found, err = r.recipes.SearchByIngredients(ctx, st.Ingredients)
	} else {
		found, err = r.recipes.SearchByQuery(ctx, query)
	}
	if err != nil {
		r.logger.Warn("recipe search failed", "error", err)
		r.recordHandlerFailure(vocabulary.CategoryRecipeSearch, "search_error")
		return recipeSearchFailureMessage, nil
	}

	st.Recipes = found
	return recipes.Summarize(found), nil
}

// handleCookingQuestion answers a free-text question, feeding the
// conversation summary and the last exchange into the prompt.
func (r *Router) handleCookingQuestion(ctx context.Context, query string) (string, error) {
	if r.generator == nil {
		r.logger.Warn("cooking question unavailable, no generator configured")
		return questionFailureMessage, nil
	}

	answer, err := r.generator.Generate(ctx, questionPrompt(query, r.questionContext()))
	if err != nil {
		r.logger.Warn("cooking question failed", "error", err)
		r.recordHandlerFailure(vocabulary.CategoryCookingQuestion, "provider_error")
		return questionFailureMessage, nil
	}
	return strings.TrimSpace(answer), nil
}

// questionContext renders the memory summary and the previous exchange.
// Empty when the conversation has no history.
func (r *Router) questionContext() string {
	if r.memory == nil {
		return ""
	}

	summary := r.memory.LoadSummary()
	recent := r.memory.RecentTurns(2)
	if summary == "" && len(recent) == 0 {
		return ""
	}

	lines := make([]string, 0, len(recent))
	for _, turn := range recent {
		lines = append(lines, turn.Content)
	}
	return fmt.Sprintf("Previous conversation: %s\nRecent messages: %s",
		summary, strings.Join(lines, "\n"))
}

// handleIngredientRecognition runs the vision model and the food-image
// classifier concurrently and merges their results. A failed path
// degrades to an inline note for that path only; when the vision model
// sees no ingredients, the classifier's dish label stands in. Found
// ingredients feed a recipe search so the reply can report both counts.
func (r *Router) handleIngredientRecognition(ctx context.Context, st *State) (string, error) {
	if !st.HasImage {
		return noImageMessage, nil
	}

	var (
		ingredients []string
		visionErr   error
		dishLabel   string
		classifyErr error
	)

	// Both goroutines return nil so one path's failure never cancels
	// the other.
	g, groupCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ingredients, visionErr = r.identifyIngredients(groupCtx, st.Image)
		return nil
	})
	g.Go(func() error {
		dishLabel, classifyErr = r.classifyDish(groupCtx, st.Image)
		return nil
	})
	_ = g.Wait()

	lines := make([]string, 0, 4)
	if visionErr != nil {
		r.logger.Warn("vision ingredient analysis failed", "error", visionErr)
		r.recordHandlerFailure(vocabulary.CategoryIngredientRecognition, "vision_error")
		lines = append(lines, visionErrorNote)
	} else if len(ingredients) == 0 {
		lines = append(lines, "Vision: no ingredients identified")
	} else {
		lines = append(lines, "Vision: identified "+strings.Join(ingredients, ", "))
	}
	if classifyErr != nil {
		r.logger.Warn("dish classification failed", "error", classifyErr)
		r.recordHandlerFailure(vocabulary.CategoryIngredientRecognition, "classifier_error")
		lines = append(lines, classifierErrorNote)
	} else {
		lines = append(lines, "Classifier: "+dishLabel)
	}

	if visionErr != nil && classifyErr != nil {
		lines = append(lines, "", imageFailureMessage)
		return strings.Join(lines, "\n"), nil
	}

	st.Ingredients = ingredients
	if len(st.Ingredients) == 0 && dishLabel != "" {
		st.Ingredients = []string{dishLabel}
	}
	if len(st.Ingredients) == 0 {
		lines = append(lines, "", noIngredientsMessage)
		return strings.Join(lines, "\n"), nil
	}

	if r.recipes != nil {
		found, err := r.recipes.SearchByIngredients(ctx, st.Ingredients)
		if err != nil {
			r.logger.Warn("recipe search for identified ingredients failed", "error", err)
		} else {
			st.Recipes = found
		}
	}

	lines = append(lines, "", fmt.Sprintf(
		"I identified %d ingredients and found %d recipes for you!",
		len(st.Ingredients), len(st.Recipes)))
	return strings.Join(lines, "\n"), nil
}

// identifyIngredients extracts ingredient names from the image via the
// vision model. Names come back trimmed and lowercased.
func (r *Router) identifyIngredients(ctx context.Context, image []byte) ([]string, error) {
	if r.generator == nil {
		return nil, errors.WithKind(errors.ErrProviderUnavailable,
			fmt.Errorf("no generator configured"))
	}

	payload, err := r.generator.GenerateVisionStructured(ctx, visionPrompt, image, ingredientsSchema)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Ingredients []string `json:"ingredients"`
	}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, errors.WrapInvalid(err, "router", "identifyIngredients", "decoding ingredients payload")
	}

	cleaned := make([]string, 0, len(parsed.Ingredients))
	for _, name := range parsed.Ingredients {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			cleaned = append(cleaned, name)
		}
	}
	return cleaned, nil
}

// classifyDish labels the image with its most likely dish.
func (r *Router) classifyDish(ctx context.Context, image []byte) (string, error) {
	if r.classifier == nil {
		return "", errors.WithKind(errors.ErrProviderUnavailable,
			fmt.Errorf("no image classifier configured"))
	}

	label, err := r.classifier.Classify(ctx, image)
	if err != nil {
		return "", err
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return "", errors.WithKind(errors.ErrProviderUnavailable,
			fmt.Errorf("classifier returned an empty label"))
	}
	return label, nil
}
