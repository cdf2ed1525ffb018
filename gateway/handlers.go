package gateway

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/c360/sousschef/errors"
	"github.com/c360/sousschef/health"
	"github.com/c360/sousschef/recipes"
	"github.com/c360/sousschef/router"
	"github.com/c360/sousschef/types"
)

const (
	welcomeMessage       = "SousChef API"
	noIngredientsDetail  = "I couldn't identify any ingredients in the image. Please try a clearer photo."
	emptyShoppingDetail  = "Could not generate shopping list"
	defaultRecipeName    = "Unknown Recipe"
	systemName           = "sousschef"
	multipartImageField  = "image"
	multipartParseMemory = 4 << 20
)

// supportedImageTypes mirrors the upload formats the vision provider
// accepts. Content is sniffed, not trusted from headers.
var supportedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type chatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
	QueryType string `json:"query_type"`
}

type imageRequest struct {
	ImageData string `json:"image_data"`
}

type analyzeResponse struct {
	Recipes               []types.Recipe `json:"recipes"`
	IngredientsIdentified []string       `json:"ingredients_identified"`
}

type searchRequest struct {
	Query       string   `json:"query,omitempty"`
	Ingredients []string `json:"ingredients,omitempty"`
}

type searchResponse struct {
	Recipes               []types.Recipe `json:"recipes"`
	IngredientsIdentified []string       `json:"ingredients_identified,omitempty"`
}

type shoppingRequest struct {
	Recipe               types.Recipe `json:"recipe"`
	AvailableIngredients []string     `json:"available_ingredients,omitempty"`
}

type shoppingResponse struct {
	ShoppingList []string                  `json:"shopping_list"`
	Sections     []recipes.ShoppingSection `json:"sections"`
	RecipeName   string                    `json:"recipe_name"`
	TotalItems   int                       `json:"total_items"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": welcomeMessage})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.monitor == nil {
		s.writeJSON(w, http.StatusOK, health.NewHealthy(systemName, "no checks registered"))
		return
	}
	status := s.monitor.RunChecks(r.Context(), systemName)
	code := http.StatusOK
	if status.IsUnhealthy() {
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, status)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	body, ok := s.readBody(w, r, s.maxRequestBytes)
	if !ok {
		return
	}
	var req chatRequest
	if !s.decodeJSON(w, body, &req) {
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		s.writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	resp := s.router.Route(r.Context(), router.Request{Query: message})
	s.writeJSON(w, http.StatusOK, chatResponse{
		Response:  resp.Text,
		SessionID: sessionOrNew(req.SessionID),
		QueryType: string(resp.Category),
	})
}

func (s *Server) handleAnalyzeIngredients(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	image, ok := s.readImage(w, r)
	if !ok {
		return
	}

	resp := s.router.Route(r.Context(), router.Request{Image: image})
	if len(resp.Ingredients) == 0 {
		s.writeError(w, http.StatusBadRequest, noIngredientsDetail)
		return
	}
	s.writeJSON(w, http.StatusOK, analyzeResponse{
		Recipes:               emptyIfNil(resp.Recipes),
		IngredientsIdentified: resp.Ingredients,
	})
}

func (s *Server) handleSearchRecipes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.recipes == nil {
		s.writeError(w, http.StatusServiceUnavailable, "recipe search is unavailable")
		return
	}
	body, ok := s.readBody(w, r, s.maxRequestBytes)
	if !ok {
		return
	}
	var req searchRequest
	if !s.decodeJSON(w, body, &req) {
		return
	}

	ingredients := cleanList(req.Ingredients)
	query := strings.TrimSpace(req.Query)

	var (
		found []types.Recipe
		err   error
	)
	switch {
	case len(ingredients) > 0:
		found, err = s.recipes.SearchByIngredients(r.Context(), ingredients)
	case query != "":
		found, err = s.recipes.SearchByQuery(r.Context(), query)
	default:
		s.writeError(w, http.StatusBadRequest, "query or ingredients required")
		return
	}
	if err != nil {
		s.writeDomainError(w, "search-recipes", err)
		return
	}
	s.writeJSON(w, http.StatusOK, searchResponse{
		Recipes:               emptyIfNil(found),
		IngredientsIdentified: ingredients,
	})
}

func (s *Server) handleShoppingList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.recipes == nil {
		s.writeError(w, http.StatusServiceUnavailable, "shopping lists are unavailable")
		return
	}
	body, ok := s.readBody(w, r, s.maxRequestBytes)
	if !ok {
		return
	}
	var req shoppingRequest
	if !s.decodeJSON(w, body, &req) {
		return
	}

	list, err := s.recipes.BuildShoppingList(r.Context(), req.Recipe, cleanList(req.AvailableIngredients))
	if err != nil {
		s.writeDomainError(w, "shopping-list", err)
		return
	}
	if list.TotalItems() == 0 {
		s.writeError(w, http.StatusBadRequest, emptyShoppingDetail)
		return
	}

	name := list.RecipeName
	if name == "" {
		name = defaultRecipeName
	}
	s.writeJSON(w, http.StatusOK, shoppingResponse{
		ShoppingList: list.Items(),
		Sections:     list.Sections,
		RecipeName:   name,
		TotalItems:   list.TotalItems(),
	})
}

// readImage extracts the upload from either a multipart form file or a
// JSON body carrying base64 (optionally a browser data URL). It writes
// the error response itself on failure.
func (s *Server) readImage(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	var (
		image []byte
		ok    bool
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		image, ok = s.readMultipartImage(w, r)
	} else {
		image, ok = s.readJSONImage(w, r)
	}
	if !ok {
		return nil, false
	}

	if int64(len(image)) > s.maxImageBytes {
		s.writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("image exceeds maximum size of %d bytes", s.maxImageBytes))
		return nil, false
	}
	contentType := http.DetectContentType(image)
	if _, supported := supportedImageTypes[contentType]; !supported {
		s.writeError(w, http.StatusBadRequest, "unsupported image format: expected jpeg, png, or webp")
		return nil, false
	}
	return image, true
}

func (s *Server) readMultipartImage(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	// MaxBytesReader aborts the parse before an oversized body hits
	// the temp-file spill.
	r.Body = http.MaxBytesReader(w, r.Body, s.maxImageBytes+(1<<20))
	if err := r.ParseMultipartForm(multipartParseMemory); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return nil, false
	}
	file, _, err := r.FormFile(multipartImageField)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "image file is required")
		return nil, false
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, s.maxImageBytes+1))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read image file")
		return nil, false
	}
	return data, true
}

func (s *Server) readJSONImage(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	// Base64 inflates the payload by a third, plus the JSON envelope.
	body, ok := s.readBody(w, r, s.maxImageBytes*3/2)
	if !ok {
		return nil, false
	}
	var req imageRequest
	if !s.decodeJSON(w, body, &req) {
		return nil, false
	}
	image, err := decodeImageData(req.ImageData)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid image data: expected base64 or data URL")
		return nil, false
	}
	return image, true
}

// decodeImageData accepts bare base64 or a data URL of the form
// "data:image/png;base64,...".
func decodeImageData(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, "data:") {
		if idx := strings.Index(payload, ","); idx >= 0 {
			payload = payload[idx+1:]
		}
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, errors.WrapInvalid(err, "gateway", "decodeImageData", "decoding image payload")
	}
	if len(data) == 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "gateway", "decodeImageData", "image payload is empty")
	}
	return data, nil
}

func sessionOrNew(sessionID string) string {
	if trimmed := strings.TrimSpace(sessionID); trimmed != "" {
		return trimmed
	}
	return uuid.NewString()
}

func cleanList(values []string) []string {
	var cleaned []string
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}

// emptyIfNil keeps JSON arrays as [] instead of null.
func emptyIfNil(rs []types.Recipe) []types.Recipe {
	if rs == nil {
		return []types.Recipe{}
	}
	return rs
}
