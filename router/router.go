// Package router classifies incoming user queries and dispatches them
// to the matching handler. A request enters unclassified, resolves to
// exactly one of the handleable categories, and leaves with exactly one
// assistant response: the router absorbs every handler failure, so the
// caller always gets text to show the user, never an error.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/c360/sousschef/errors"
	"github.com/c360/sousschef/genai"
	"github.com/c360/sousschef/metric"
	"github.com/c360/sousschef/types"
	"github.com/c360/sousschef/vocabulary"
)

// Classification methods, recorded per routed request.
const (
	classifyMethodImage    = "image"
	classifyMethodModel    = "model"
	classifyMethodKeywords = "keywords"
)

// Generator is the slice of the generation provider the router needs:
// plain text for classification and answers, structured vision for
// ingredient extraction.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateVisionStructured(ctx context.Context, prompt string, image []byte, schema *genai.Schema) (string, error)
}

// ImageClassifier labels a food image with its most likely dish.
type ImageClassifier interface {
	Classify(ctx context.Context, image []byte) (string, error)
}

// RecipeFinder searches recipes for the recipe handlers.
type RecipeFinder interface {
	SearchByIngredients(ctx context.Context, ingredients []string) ([]types.Recipe, error)
	SearchByQuery(ctx context.Context, query string) ([]types.Recipe, error)
}

// ConversationMemory persists turn pairs and supplies conversation
// context for question answering.
type ConversationMemory interface {
	SaveTurn(ctx context.Context, input, output string)
	LoadSummary() string
	RecentTurns(n int) []types.Turn
}

// Config wires the router's collaborators. Every collaborator is
// optional: a missing one degrades the paths that need it instead of
// failing construction.
type Config struct {
	Generator  Generator
	Classifier ImageClassifier
	Recipes    RecipeFinder
	Memory     ConversationMemory

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Metrics records classification outcomes and handler failures
	// (optional).
	Metrics *metric.Metrics
}

// Router dispatches user requests to category handlers.
type Router struct {
	generator  Generator
	classifier ImageClassifier
	recipes    RecipeFinder
	memory     ConversationMemory
	logger     *slog.Logger
	metrics    *metric.Metrics
}

// Request is one user utterance entering the router. Image carries the
// raw uploaded bytes when the request includes a photo; Ingredients may
// pre-seed the recipe search instead of a free-text query.
type Request struct {
	Query       string
	Ingredients []string
	Image       []byte
}

// Response is the routed reply. Text is always non-empty. Ingredients
// and Recipes are populated when the handler identified or searched for
// them, so callers can return structured results alongside the text.
type Response struct {
	Text        string
	Category    vocabulary.QueryCategory
	Ingredients []string
	Recipes     []types.Recipe
}

// State is the per-request routing state. It is created for one
// request, mutated by classification and the handler, and discarded
// once the response is emitted; only the turn pair outlives it, in
// conversation memory.
type State struct {
	Turns       []types.Turn
	Category    vocabulary.QueryCategory
	Ingredients []string
	HasImage    bool
	Image       []byte
	Recipes     []types.Recipe
}

// NewRouter builds a router over the configured collaborators.
func NewRouter(cfg Config) *Router {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		generator:  cfg.Generator,
		classifier: cfg.Classifier,
		recipes:    cfg.Recipes,
		memory:     cfg.Memory,
		logger:     logger,
		metrics:    cfg.Metrics,
	}
}

// Route classifies req and runs the matching handler. It never returns
// an error: a handler failure or panic is logged with its cause and
// replaced with a generic apology. After the handler runs, the turn
// pair is saved to conversation memory, best effort.
func (r *Router) Route(ctx context.Context, req Request) (resp Response) {
	query := strings.TrimSpace(req.Query)
	st := &State{
		Category:    vocabulary.CategoryUnclassified,
		Ingredients: req.Ingredients,
		HasImage:    len(req.Image) > 0,
		Image:       req.Image,
	}
	if query == "" && st.HasImage {
		query = imageFallbackQuery
	}
	st.Turns = append(st.Turns, types.NewTurn(types.RoleUser, query))

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("router handler panicked",
				"category", string(st.Category), "panic", rec)
			r.recordHandlerFailure(st.Category, "panic")
			resp = Response{Text: apologyMessage, Category: st.Category}
		}
	}()

	category, method := r.classify(ctx, query, st.HasImage)
	st.Category = category
	r.recordClassification(category, method)
	r.logger.Debug("query classified",
		"category", string(category), "method", method)

	var text string
	var err error
	switch category {
	case vocabulary.CategoryRecipeSearch:
		text, err = r.handleRecipeSearch(ctx, st, query)
	case vocabulary.CategoryCookingQuestion:
		text, err = r.handleCookingQuestion(ctx, query)
	case vocabulary.CategoryIngredientRecognition:
		text, err = r.handleIngredientRecognition(ctx, st)
	default:
		err = errors.WithKind(errors.ErrHandlerFailure,
			fmt.Errorf("no handler for category %q", category))
	}
	if err != nil {
		err = errors.WithKind(errors.ErrHandlerFailure, err)
		r.logger.Error("router handler failed",
			"category", string(category), "error", err)
		r.recordHandlerFailure(category, "error")
		text = apologyMessage
	}
	if strings.TrimSpace(text) == "" {
		text = noResponseMessage
	}

	st.Turns = append(st.Turns, types.NewTurn(types.RoleAssistant, text))
	st.Category = vocabulary.CategoryDone

	r.saveTurns(ctx, st, query, text)

	return Response{
		Text:        text,
		Category:    category,
		Ingredients: st.Ingredients,
		Recipes:     st.Recipes,
	}
}

// classify resolves a query to a handleable category. An image always
// means ingredient recognition and skips the provider entirely. A
// provider failure or an unrecognized label falls back to the keyword
// vocabularies, so classification itself never fails a request.
func (r *Router) classify(ctx context.Context, query string, hasImage bool) (vocabulary.QueryCategory, string) {
	if hasImage {
		return vocabulary.CategoryIngredientRecognition, classifyMethodImage
	}

	if r.generator != nil {
		label, err := r.generator.Generate(ctx, classificationPrompt(query))
		if err == nil {
			if category, ok := vocabulary.Parse(label); ok {
				return category, classifyMethodModel
			}
			err = errors.WithKind(errors.ErrClassificationAmbiguous,
				fmt.Errorf("unrecognized label %q", strings.TrimSpace(label)))
		}
		r.logger.Warn("query classification fell back to keywords", "error", err)
	}

	return vocabulary.ClassifyByKeywords(query), classifyMethodKeywords
}

// saveTurns persists the exchange, best effort. Image requests store
// the identified ingredients as the input line so later summaries carry
// what was in the photo; an image that yielded nothing is not worth
// remembering.
func (r *Router) saveTurns(ctx context.Context, st *State, query, text string) {
	if r.memory == nil {
		return
	}

	input, output := query, text
	if st.HasImage {
		if len(st.Ingredients) == 0 {
			return
		}
		input = "Image uploaded with ingredients: " + strings.Join(st.Ingredients, ", ")
		output = fmt.Sprintf("I identified %d ingredients and found %d recipes.",
			len(st.Ingredients), len(st.Recipes))
	}
	r.memory.SaveTurn(ctx, input, output)
}

func (r *Router) recordClassification(category vocabulary.QueryCategory, method string) {
	if r.metrics == nil {
		return
	}
	r.metrics.RecordClassification(string(category), method)
}

func (r *Router) recordHandlerFailure(category vocabulary.QueryCategory, reason string) {
	if r.metrics == nil {
		return
	}
	r.metrics.RecordHandlerFailure(string(category), reason)
}
