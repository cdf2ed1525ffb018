// Package main implements the entry point for the SousChef assistant.
// SousChef is a cooking assistant backend that routes chat, image, and
// recipe requests to generative and classification providers behind one
// HTTP gateway.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/sousschef/classifier"
	"github.com/c360/sousschef/config"
	"github.com/c360/sousschef/gateway"
	"github.com/c360/sousschef/genai"
	"github.com/c360/sousschef/health"
	"github.com/c360/sousschef/memory"
	"github.com/c360/sousschef/metric"
	"github.com/c360/sousschef/natsclient"
	"github.com/c360/sousschef/pkg/clustering"
	"github.com/c360/sousschef/pkg/embedding"
	"github.com/c360/sousschef/pkg/ranking"
	"github.com/c360/sousschef/recipeapi"
	"github.com/c360/sousschef/recipes"
	"github.com/c360/sousschef/router"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "sousschef"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg, logger, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	cfg, err := initializeConfiguration(cliCfg)
	if err != nil {
		return err
	}

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	ctx := context.Background()
	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.close(ctx)

	return runWithSignalHandling(ctx, app, cliCfg.ShutdownTimeout)
}

// initializeCLI parses flags and sets up logging
func initializeCLI() (*CLIConfig, *slog.Logger, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, nil, true, nil
	}

	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, nil, true, nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting SousChef (cooking assistant backend)",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	return cliCfg, logger, false, nil
}

// initializeConfiguration loads and validates configuration. An empty
// config path runs on defaults plus environment overrides.
func initializeConfiguration(cliCfg *CLIConfig) (*config.Config, error) {
	loader := config.NewLoader()

	var (
		cfg *config.Config
		err error
	)
	if cliCfg.ConfigPath != "" {
		cfg, err = loader.LoadFile(cliCfg.ConfigPath)
	} else {
		cfg, err = loader.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cliCfg.Addr != "" {
		cfg.Server.Addr = cliCfg.Addr
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// application holds the wired subsystems for startup and shutdown.
type application struct {
	gateway    *gateway.Server
	natsClient *natsclient.Client
	logger     *slog.Logger
}

func (a *application) close(ctx context.Context) {
	if a.natsClient != nil {
		if err := a.natsClient.Close(ctx); err != nil {
			a.logger.Warn("Closing NATS client", "error", err)
		}
	}
}

// buildApplication wires providers, services, and the gateway from the
// configuration. Only misconfiguration fails the build; unreachable
// backends degrade and are reported through the health monitor.
func buildApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	registry := metric.NewMetricsRegistry()
	coreMetrics := registry.CoreMetrics()
	monitor := health.NewMonitor()

	natsClient := connectNATS(ctx, cfg, logger, registry)
	remote := openCacheBucket(ctx, natsClient, cfg, logger)

	embedder, err := embedding.NewHTTPEmbedder(embedding.HTTPConfig{
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.EmbeddingModel,
		APIKey:  cfg.OpenAI.APIKey,
		Timeout: cfg.OpenAI.Timeout,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	tieredCfg := embedding.TieredConfig{
		Provider: embedder,
		Logger:   logger,
		Metrics:  registry,
	}
	if remote != nil {
		tieredCfg.Remote = remote
	}
	embeddingCache, err := embedding.NewTieredCache(tieredCfg)
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}

	ranker, err := ranking.NewRanker(embeddingCache)
	if err != nil {
		return nil, fmt.Errorf("create ranker: %w", err)
	}
	clusterer := clustering.NewKMeans(embeddingCache)

	generator, err := genai.NewGenerator(genai.Config{
		BaseURL:     cfg.OpenAI.BaseURL,
		APIKey:      cfg.OpenAI.APIKey,
		Model:       cfg.OpenAI.ChatModel,
		VisionModel: cfg.OpenAI.VisionModel,
		Timeout:     cfg.OpenAI.Timeout,
		Logger:      logger,
		Metrics:     coreMetrics,
	})
	if err != nil {
		return nil, fmt.Errorf("create generator: %w", err)
	}

	imageClassifier, err := classifier.NewClient(classifier.Config{
		Endpoint: cfg.Classifier.Endpoint,
		Token:    cfg.Classifier.Token,
		Timeout:  cfg.Classifier.Timeout,
		Logger:   logger,
		Metrics:  coreMetrics,
	})
	if err != nil {
		return nil, fmt.Errorf("create classifier: %w", err)
	}

	recipeClient := recipeapi.NewClient(recipeapi.Config{
		BaseURL: cfg.RecipeAPI.BaseURL,
		APIKey:  cfg.RecipeAPI.APIKey,
		Timeout: cfg.RecipeAPI.Timeout,
		Logger:  logger,
		Metrics: coreMetrics,
	})

	recipeService := recipes.NewService(recipes.Config{
		API:       recipeClient,
		Generator: generator,
		Ranker:    ranker,
		Clusterer: clusterer,
		Logger:    logger,
	})

	conversation := memory.NewMemory(memory.Config{
		TokenBudget:  cfg.Memory.TokenBudget,
		RecentWindow: cfg.Memory.RecentWindow,
		Generator:    generator,
		Logger:       logger,
	})

	queryRouter := router.NewRouter(router.Config{
		Generator:  generator,
		Classifier: imageClassifier,
		Recipes:    recipeService,
		Memory:     conversation,
		Logger:     logger,
		Metrics:    coreMetrics,
	})

	registerHealthChecks(monitor, natsClient, embeddingCache)

	gatewayServer, err := gateway.NewServer(gateway.Config{
		Addr:            cfg.Server.Addr,
		CORSOrigins:     cfg.Server.CORSOrigins,
		MaxRequestBytes: cfg.Server.MaxRequestBytes,
		MaxImageBytes:   cfg.Server.MaxImageBytes,
		RateLimit:       cfg.Server.RateLimit,
		RateBurst:       cfg.Server.RateBurst,
		Router:          queryRouter,
		Recipes:         recipeService,
		Health:          monitor,
		Metrics:         registry,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create gateway: %w", err)
	}

	return &application{
		gateway:    gatewayServer,
		natsClient: natsClient,
		logger:     logger,
	}, nil
}

// connectNATS builds and connects the shared-cache NATS client. Failure
// is not fatal: the assistant starts with the embedding cache on its
// local tier only.
func connectNATS(ctx context.Context, cfg *config.Config, logger *slog.Logger, registry *metric.MetricsRegistry) *natsclient.Client {
	natsURL := "nats://localhost:4222"
	if len(cfg.NATS.URLs) > 0 {
		natsURL = cfg.NATS.URLs[0]
	}

	opts := []natsclient.ClientOption{
		natsclient.WithLogger(logger),
		natsclient.WithMetrics(registry),
	}
	if cfg.NATS.MaxReconnects != 0 {
		opts = append(opts, natsclient.WithMaxReconnects(cfg.NATS.MaxReconnects))
	}
	if cfg.NATS.ReconnectWait > 0 {
		opts = append(opts, natsclient.WithReconnectWait(cfg.NATS.ReconnectWait))
	}
	if cfg.NATS.Username != "" {
		opts = append(opts, natsclient.WithCredentials(cfg.NATS.Username, cfg.NATS.Password))
	}
	if cfg.NATS.Token != "" {
		opts = append(opts, natsclient.WithToken(cfg.NATS.Token))
	}

	client, err := natsclient.NewClient(natsURL, opts...)
	if err != nil {
		logger.Warn("NATS client unavailable, embedding cache runs local-only", "error", err)
		return nil
	}

	slog.Info("Connecting to NATS")
	if err := client.Connect(ctx); err != nil {
		logger.Warn("NATS connection failed, embedding cache runs local-only", "error", err)
		return nil
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.WaitForConnection(connCtx); err != nil {
		logger.Warn("NATS connection timeout, embedding cache runs local-only", "error", err)
		_ = client.Close(ctx)
		return nil
	}

	return client
}

// openCacheBucket provisions the shared embedding KV bucket. Any failure
// degrades to nil, which keeps the cache local-only.
func openCacheBucket(ctx context.Context, client *natsclient.Client, cfg *config.Config, logger *slog.Logger) *natsclient.KVStore {
	if client == nil {
		return nil
	}

	bucket, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket:      cfg.Cache.Bucket,
		Description: "shared embedding cache",
		Replicas:    cfg.Cache.Replicas,
	})
	if err != nil {
		logger.Warn("Embedding cache bucket unavailable, running local-only",
			"bucket", cfg.Cache.Bucket, "error", err)
		return nil
	}

	var opts []func(*natsclient.KVOptions)
	if cfg.Cache.KVTimeout > 0 {
		opts = append(opts, func(o *natsclient.KVOptions) { o.Timeout = cfg.Cache.KVTimeout })
	}
	return client.NewKVStore(bucket, opts...)
}

// registerHealthChecks wires the liveness surface. Losing NATS reports
// degraded, not unhealthy: the assistant keeps serving on local tiers.
func registerHealthChecks(monitor *health.Monitor, natsClient *natsclient.Client, cache *embedding.TieredCache) {
	monitor.RegisterCheck("nats", func(ctx context.Context) health.Status {
		if natsClient == nil {
			return health.NewDegraded("nats", "not connected, embedding cache is local-only")
		}
		if !natsClient.IsHealthy() {
			return health.NewDegraded("nats", "connection unhealthy")
		}
		return health.NewHealthy("nats", "connected")
	})

	monitor.RegisterCheck("embedding_cache", func(ctx context.Context) health.Status {
		if cache.Degraded() {
			return health.NewDegraded("embedding_cache", "remote tier down, serving from local tier")
		}
		return health.NewHealthy("embedding_cache", "ok")
	})
}

// runWithSignalHandling starts the gateway and blocks until a signal
// arrives or the server fails, then shuts down within the timeout.
func runWithSignalHandling(ctx context.Context, app *application, shutdownTimeout time.Duration) error {
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- app.gateway.Start()
	}()

	slog.Info("SousChef started successfully", "version", Version)

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("gateway: %w", err)
		}
		return nil
	case <-signalCtx.Done():
		slog.Info("Received shutdown signal")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := app.gateway.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	<-serverErr

	slog.Info("SousChef shutdown complete")
	return nil
}
