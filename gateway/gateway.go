// Package gateway exposes the assistant over HTTP. It serves the JSON
// endpoints the frontend calls (chat, image analysis, recipe search,
// shopping lists), a websocket chat stream, and the operational
// endpoints (health, metrics). The gateway owns transport concerns
// only: request identity, CORS, rate limiting, and body size caps. All
// domain behavior lives behind the QueryRouter and RecipeService
// interfaces it is wired with.
package gateway

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/c360/sousschef/errors"
	"github.com/c360/sousschef/health"
	"github.com/c360/sousschef/metric"
	"github.com/c360/sousschef/recipes"
	"github.com/c360/sousschef/router"
	"github.com/c360/sousschef/types"
)

const (
	defaultMaxRequestBytes = 1 << 20  // 1MB
	defaultMaxImageBytes   = 10 << 20 // 10MB
)

// QueryRouter dispatches one user request and always returns a
// renderable response.
type QueryRouter interface {
	Route(ctx context.Context, req router.Request) router.Response
}

// RecipeService is the direct recipe surface for the endpoints that
// bypass query routing.
type RecipeService interface {
	SearchByIngredients(ctx context.Context, ingredients []string) ([]types.Recipe, error)
	SearchByQuery(ctx context.Context, query string) ([]types.Recipe, error)
	BuildShoppingList(ctx context.Context, recipe types.Recipe, available []string) (recipes.ShoppingList, error)
}

// Config wires the gateway's collaborators and transport limits.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// CORSOrigins lists allowed origins. "*" allows any. Empty
	// disables CORS headers entirely.
	CORSOrigins []string

	// MaxRequestBytes caps JSON request bodies. Zero means 1MB.
	MaxRequestBytes int64

	// MaxImageBytes caps decoded image uploads. Zero means 10MB.
	MaxImageBytes int64

	// RateLimit is the sustained requests/sec allowed per client
	// address on /api and /ws paths. Zero disables limiting.
	RateLimit float64

	// RateBurst is the per-client burst size when limiting is on.
	RateBurst int

	// Router handles chat and image analysis requests. Required.
	Router QueryRouter

	// Recipes serves direct search and shopping list requests.
	// Optional; the endpoints answer 503 without it.
	Recipes RecipeService

	// Health, Metrics, and Logger are optional.
	Health  *health.Monitor
	Metrics *metric.MetricsRegistry
	Logger  *slog.Logger
}

// Server is the HTTP gateway.
type Server struct {
	addr            string
	corsOrigins     []string
	maxRequestBytes int64
	maxImageBytes   int64

	router   QueryRouter
	recipes  RecipeService
	monitor  *health.Monitor
	registry *metric.MetricsRegistry
	logger   *slog.Logger
	limiter  *clientLimiter
	upgrader websocket.Upgrader

	httpServer *http.Server
}

// NewServer validates the config and builds a gateway ready to Start.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Addr == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "gateway", "NewServer", "listen address is required")
	}
	if cfg.Router == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "gateway", "NewServer", "query router is required")
	}
	if cfg.MaxRequestBytes <= 0 {
		cfg.MaxRequestBytes = defaultMaxRequestBytes
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = defaultMaxImageBytes
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		addr:            cfg.Addr,
		corsOrigins:     cfg.CORSOrigins,
		maxRequestBytes: cfg.MaxRequestBytes,
		maxImageBytes:   cfg.MaxImageBytes,
		router:          cfg.Router,
		recipes:         cfg.Recipes,
		monitor:         cfg.Health,
		registry:        cfg.Metrics,
		logger:          cfg.Logger.With("component", "gateway"),
		limiter:         newClientLimiter(cfg.RateLimit, cfg.RateBurst),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return s.originAllowed(r.Header.Get("Origin"))
		},
	}
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the full route tree wrapped in the gateway
// middleware. Exposed so tests and embedders can mount it themselves.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/healthz", s.handleHealthz)
	if s.registry != nil {
		mux.Handle("/metrics", s.registry.Handler())
	}
	mux.HandleFunc("/api/chat", s.handleChat)
	mux.HandleFunc("/api/analyze-ingredients", s.handleAnalyzeIngredients)
	mux.HandleFunc("/api/search-recipes", s.handleSearchRecipes)
	mux.HandleFunc("/api/shopping-list", s.handleShoppingList)
	mux.HandleFunc("/ws/chat", s.handleChatSocket)
	return s.middleware(mux)
}

// Start serves until Shutdown is called. It blocks.
func (s *Server) Start() error {
	s.logger.Info("gateway listening", "addr", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return errors.WrapFatal(err, "gateway", "Start", "http server")
	}
	return nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("gateway shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.WrapTransient(err, "gateway", "Shutdown", "draining connections")
	}
	return nil
}

// errorBody is the JSON shape of every gateway error response.
type errorBody struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	s.recordError(statusCode)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(errorBody{Error: message, Status: statusCode}); err != nil {
		s.logger.Warn("failed to write error response", "error", err)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("failed to write response", "error", err)
	}
}

func (s *Server) recordError(statusCode int) {
	if s.registry == nil {
		return
	}
	s.registry.CoreMetrics().RecordError("gateway", fmt.Sprintf("http_%d", statusCode))
}

// writeDomainError maps a domain error to an HTTP status and a message
// safe to show callers. Internal detail stays in the log.
func (s *Server) writeDomainError(w http.ResponseWriter, operation string, err error) {
	s.logger.Warn("request failed", "operation", operation, "error", err)
	switch {
	case errors.IsInvalid(err):
		s.writeError(w, http.StatusBadRequest, "invalid request")
	case errors.IsTransient(err):
		if strings.Contains(err.Error(), "timeout") {
			s.writeError(w, http.StatusGatewayTimeout, "request timed out")
			return
		}
		s.writeError(w, http.StatusServiceUnavailable, "service temporarily unavailable")
	default:
		s.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// readBody reads at most limit bytes of the request body, writing the
// error response itself when the read fails or the body is oversized.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, bool) {
	defer func() { _ = r.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read request body")
		return nil, false
	}
	if int64(len(body)) > limit {
		s.writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("request body exceeds maximum size of %d bytes", limit))
		return nil, false
	}
	return body, true
}

// decodeJSON unmarshals a request body, answering 400 on malformed
// input.
func (s *Server) decodeJSON(w http.ResponseWriter, body []byte, dst any) bool {
	if err := json.Unmarshal(body, dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
