// Package main provides the E2E test CLI for the SousChef API
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	// SousChef E2E infrastructure
	"github.com/c360/sousschef/test/e2e/client"
	"github.com/c360/sousschef/test/e2e/config"
	scenarios "github.com/c360/sousschef/test/e2e/scenarios"
)

var (
	// Version information (set by build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	// Parse command-line flags
	flags := parseCommandLineFlags()

	// Handle version and list commands
	if handleVersionCommand(flags.showVersion) {
		return
	}
	if handleListCommand(flags.listScenarios) {
		return
	}

	// Setup logger
	logger := setupLogger(flags.verbose)

	// Create client and setup context
	apiClient, ctx := setupClientAndContext(logger, flags.baseURL)

	// Run scenarios and exit
	exitCode := runScenarios(ctx, logger, apiClient, flags)
	os.Exit(exitCode)
}

// cliFlags holds parsed command-line flags
type cliFlags struct {
	scenarioName  string
	verbose       bool
	baseURL       string
	wsEndpoint    string
	showVersion   bool
	listScenarios bool
}

// parseCommandLineFlags parses and returns command-line flags
func parseCommandLineFlags() *cliFlags {
	flags := &cliFlags{}

	flag.StringVar(&flags.scenarioName, "scenario", "",
		"Run specific scenario (health, chat, recipes, websocket, or 'all')")
	flag.BoolVar(&flags.verbose, "verbose", false, "Enable verbose logging")
	flag.StringVar(&flags.baseURL, "base-url", config.DefaultEndpoints.HTTP, "SousChef HTTP endpoint")
	flag.StringVar(&flags.wsEndpoint, "ws-endpoint", config.DefaultEndpoints.WS,
		"SousChef websocket chat endpoint")
	flag.BoolVar(&flags.showVersion, "version", false, "Show version information")
	flag.BoolVar(&flags.listScenarios, "list", false, "List available scenarios")

	// Support environment variables for Docker Compose
	if envURL := os.Getenv("SOUSCHEF_BASE_URL"); envURL != "" {
		flags.baseURL = envURL
	}
	if envWS := os.Getenv("SOUSCHEF_WS_ENDPOINT"); envWS != "" {
		flags.wsEndpoint = envWS
	}

	flag.Parse()
	return flags
}

// handleVersionCommand shows version information and returns true if version flag is set
func handleVersionCommand(showVersion bool) bool {
	if !showVersion {
		return false
	}

	fmt.Printf("SousChef E2E Test Runner\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Commit:  %s\n", commit)
	fmt.Printf("Date:    %s\n", date)
	return true
}

// handleListCommand shows available scenarios and returns true if list flag is set
func handleListCommand(listScenarios bool) bool {
	if !listScenarios {
		return false
	}

	fmt.Println("Available scenarios:")
	fmt.Println("\nOperational:")
	fmt.Printf("  health     - Validates /healthz subsystem checks (NATS, embedding cache) and /metrics\n")
	fmt.Println("\nAssistant:")
	fmt.Printf("  chat       - Sends conversation turns through /api/chat, checks classification and sessions\n")
	fmt.Printf("  recipes    - Searches recipes by ingredients and builds a shopping list\n")
	fmt.Printf("  websocket  - Dials /ws/chat and checks round trips and session stickiness\n")
	fmt.Println("\nTest Suites:")
	fmt.Printf("  all        - Runs every scenario against one running service\n")
	return true
}

// setupLogger creates and configures the logger
func setupLogger(verbose bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, opts))
	slog.SetDefault(logger)
	return logger
}

// setupClientAndContext creates the API client and sets up signal handling
func setupClientAndContext(logger *slog.Logger, baseURL string) (*client.AssistantClient, context.Context) {
	apiClient := client.NewAssistantClient(baseURL)

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Received interrupt signal, shutting down...")
		cancel()
	}()

	return apiClient, ctx
}

// runScenarios runs the appropriate scenarios based on flags
func runScenarios(
	ctx context.Context,
	logger *slog.Logger,
	apiClient *client.AssistantClient,
	flags *cliFlags,
) int {
	logger.Info("Connecting to SousChef",
		"base_url", flags.baseURL,
		"ws_endpoint", flags.wsEndpoint,
	)

	if flags.scenarioName == "" || flags.scenarioName == "all" {
		logger.Info("Running all scenarios...")
		return runAllScenarios(ctx, logger, apiClient, flags.wsEndpoint)
	}

	// Run specific scenario
	scenario := createScenario(flags.scenarioName, apiClient, flags.wsEndpoint)
	if scenario == nil {
		logger.Error("Unknown scenario", "name", flags.scenarioName)
		fmt.Println("\nAvailable scenarios:")
		fmt.Println("  health     - Validates service health and metrics")
		fmt.Println("  chat       - Tests conversation turns and sessions")
		fmt.Println("  recipes    - Tests recipe search and shopping lists")
		fmt.Println("  websocket  - Tests the streaming chat endpoint")
		return 1
	}

	logger.Info("Running scenario", "name", flags.scenarioName)
	return runScenario(ctx, logger, scenario)
}

// createScenario creates a specific scenario by name
func createScenario(
	name string,
	apiClient *client.AssistantClient,
	wsEndpoint string,
) scenarios.Scenario {
	switch name {
	case "health", "service-health":
		return scenarios.NewHealthScenario(apiClient, nil)
	case "chat", "conversation":
		return scenarios.NewChatScenario(apiClient, nil)
	case "recipes", "recipe-flows":
		return scenarios.NewRecipesScenario(apiClient, nil)
	case "websocket", "ws":
		return scenarios.NewWebsocketScenario(wsEndpoint, nil)
	default:
		return nil
	}
}

// runScenario executes a single scenario
func runScenario(ctx context.Context, logger *slog.Logger, scenario scenarios.Scenario) int {
	logger.Info("Setting up scenario", "name", scenario.Name())

	if err := scenario.Setup(ctx); err != nil {
		logger.Error("Scenario setup failed", "error", err)
		return 1
	}

	logger.Info("Executing scenario", "name", scenario.Name())
	result, err := scenario.Execute(ctx)

	// Always cleanup
	logger.Info("Tearing down scenario", "name", scenario.Name())
	if teardownErr := scenario.Teardown(ctx); teardownErr != nil {
		logger.Warn("Teardown failed", "error", teardownErr)
	}

	if err != nil {
		logger.Error("Scenario failed", "error", err)
		return 1
	}

	if !result.Success {
		logger.Error("Scenario completed with failure",
			"error", result.Error,
			"duration", result.Duration)
		return 1
	}

	logger.Info("Scenario completed successfully",
		"duration", result.Duration,
		"metrics", result.Metrics)

	return 0
}

// runAllScenarios executes every scenario against one running service
func runAllScenarios(
	ctx context.Context,
	logger *slog.Logger,
	apiClient *client.AssistantClient,
	wsEndpoint string,
) int {
	tests := []scenarios.Scenario{
		scenarios.NewHealthScenario(apiClient, nil),
		scenarios.NewChatScenario(apiClient, nil),
		scenarios.NewRecipesScenario(apiClient, nil),
		scenarios.NewWebsocketScenario(wsEndpoint, nil),
	}

	passed := 0
	failed := 0

	for _, scenario := range tests {
		logger.Info("Running scenario", "name", scenario.Name())
		exitCode := runScenario(ctx, logger, scenario)

		if exitCode == 0 {
			passed++
			logger.Info("Scenario PASSED", "name", scenario.Name())
		} else {
			failed++
			logger.Error("Scenario FAILED", "name", scenario.Name())
		}
	}

	logger.Info("Test suite complete",
		"passed", passed,
		"failed", failed,
		"total", len(tests))

	if failed > 0 {
		return 1
	}
	return 0
}
