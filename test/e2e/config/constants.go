// Package config provides configuration for SousChef API E2E tests
package config

import "time"

// DefaultEndpoints provides default SousChef service endpoints
var DefaultEndpoints = struct {
	HTTP string
	WS   string
}{
	HTTP: "http://localhost:8080",
	WS:   "ws://localhost:8080/ws/chat",
}

// APIPaths defines paths for the assistant endpoints
var APIPaths = struct {
	Chat         string
	Analyze      string
	Search       string
	ShoppingList string
}{
	Chat:         "/api/chat",
	Analyze:      "/api/analyze-ingredients",
	Search:       "/api/search-recipes",
	ShoppingList: "/api/shopping-list",
}

// ServicePaths defines paths for operational endpoints
var ServicePaths = struct {
	Root    string
	Health  string
	Metrics string
}{
	Root:    "/",
	Health:  "/healthz",
	Metrics: "/metrics",
}

// DefaultTestConfig provides default test configuration values
var DefaultTestConfig = struct {
	// Test execution
	Timeout       time.Duration
	RetryInterval time.Duration
	MaxRetries    int

	// Conversation test config
	ChatMessage     string
	FollowUpMessage string

	// Recipe test config
	SearchIngredients []string
}{
	// Test execution. Chat calls fan out to model providers, so the
	// timeout is generous compared to plain health probes.
	Timeout:       60 * time.Second,
	RetryInterval: 1 * time.Second,
	MaxRetries:    30,

	// Conversation testing
	ChatMessage:     "How long should I boil an egg?",
	FollowUpMessage: "What about poaching instead?",

	// Recipe testing
	SearchIngredients: []string{"chicken", "rice", "broccoli"},
}
