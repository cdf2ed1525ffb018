package router

import (
	"fmt"
	"strings"

	"github.com/c360/sousschef/genai"
)

// Canned replies. Handler failures surface as these instead of errors;
// the user always gets something actionable.
const (
	// apologyMessage replaces any handler failure that reaches the
	// router boundary.
	apologyMessage = "I'm experiencing some technical difficulties. Please try again later."

	// noResponseMessage covers a handler that produced no text.
	noResponseMessage = "I'm sorry, I couldn't process your request. Could you please try again?"

	recipeSearchFailureMessage = "I'm having trouble finding recipes right now. Could you try rephrasing your request?"

	questionFailureMessage = "I'm having trouble answering that question right now. Please try again."

	imageFailureMessage = "I'm having trouble processing your image. Please try again."

	noIngredientsMessage = "I couldn't identify any ingredients in the image. Please try a clearer photo."

	noImageMessage = "Please upload an image so I can identify the ingredients."

	// imageFallbackQuery stands in for an empty query on an image
	// request.
	imageFallbackQuery = "Please analyze this image for ingredients"

	visionErrorNote     = "Vision: error analyzing the image"
	classifierErrorNote = "Classifier: error classifying the image"
)

// classificationPrompt asks for exactly one category label.
func classificationPrompt(query string) string {
	return fmt.Sprintf(`Analyze this user query and classify it into one of these categories:
1. "recipe_search" - User wants to find recipes or cooking instructions
2. "cooking_question" - User has questions about cooking techniques, ingredients, or food safety
3. "ingredient_recognition" - User wants to identify ingredients from an image or already mentioned an image
User query: %q
Additional context:
- If the query mentions finding, making, or cooking specific dishes, it's recipe_search
- If the query asks how, what, why, or asks for explanations, it's cooking_question
- If the query mentions images or photos, it's ingredient_recognition
Respond with only one word: recipe_search, cooking_question, or ingredient_recognition`, query)
}

// questionPrompt frames a cooking question with optional conversation
// context.
func questionPrompt(question, conversation string) string {
	var b strings.Builder
	b.WriteString("You are a knowledgeable cooking assistant. Please answer this cooking question:\n")
	fmt.Fprintf(&b, "Question: %s\n", question)
	if conversation != "" {
		fmt.Fprintf(&b, "Previous conversation context: %s\n", conversation)
	}
	b.WriteString(`Provide a helpful, clear, and practical answer. If the question is about:
- Cooking techniques: Explain step-by-step
- Ingredient substitutions: Provide alternatives and ratios
- Recipe modifications: Give specific guidance
- Food safety: Prioritize safety information
Keep your response concise but informative.`)
	return b.String()
}

// visionPrompt extracts ingredient names from a photo as JSON.
const visionPrompt = `Analyze this image and identify all the food ingredients you can see.
Focus on identifying:
- Vegetables (onions, tomatoes, peppers, carrots, broccoli, etc.)
- Fruits (apples, bananas, citrus, berries, etc.)
- Proteins (meat, fish, chicken, eggs, tofu, etc.)
- Grains and starches (rice, pasta, bread, potatoes, etc.)
- Herbs and spices (basil, parsley, garlic, ginger, etc.)
- Dairy products (milk, cheese, yogurt, etc.)
- Other cooking ingredients (oils, sauces, etc.)
Return each ingredient as a simple, clear name (e.g., "onion", "carrot", "chicken breast").
Only include ingredients you can clearly identify in the image.
Return a valid JSON object: {"ingredients": ["onion", "carrot"]}`

var ingredientsSchema = genai.MustSchema(`{
	"type": "object",
	"properties": {
		"ingredients": {
			"type": "array",
			"items": {"type": "string"}
		}
	},
	"required": ["ingredients"]
}`)
