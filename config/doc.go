// Package config provides configuration management for the sousschef service.
//
// This package handles loading and validation of application configuration
// from JSON files and environment variables.
//
// # Core Components
//
// Config: Main configuration structure containing the HTTP server settings,
// NATS connection details, AI provider credentials, external recipe API
// settings, the shared embedding cache bucket, and conversation memory limits.
//
// Loader: Loads configuration with layer merging (base + overrides) and
// environment variable substitution for flexible deployment scenarios.
//
// # Basic Usage
//
// Loading configuration from files with layer merging:
//
//	loader := config.NewLoader()
//	loader.AddLayer("config/base.json")
//	loader.AddLayer("config/production.json") // Overrides base
//	loader.EnableValidation(true)
//
//	cfg, err := loader.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Environment Variable Overrides
//
// Configuration values can be overridden using environment variables with
// the SOUSCHEF_ prefix:
//
//	# Override the OpenAI API key
//	export SOUSCHEF_OPENAI_API_KEY="sk-..."
//
//	# Override NATS URLs (comma-separated)
//	export SOUSCHEF_NATS_URLS="nats://server1:4222,nats://server2:4222"
//
// Environment overrides are applied after all file layers, so they always
// win. Secrets (API keys, tokens, passwords) are expected to arrive this
// way rather than being committed to config files.
//
// # Layer Merging
//
// Configuration layers are merged with last-wins semantics:
//
//	base.json:
//	  {"openai": {"chat_model": "gpt-4o-mini", "timeout": "30s"}}
//
//	production.json:
//	  {"openai": {"chat_model": "gpt-4o"}}
//
//	Result:
//	  {"openai": {"chat_model": "gpt-4o", "timeout": "30s"}}
//
// Duration fields accept Go duration strings ("30s", "500ms") in JSON files.
//
// # Safe Logging
//
// Redacted returns a deep copy with all credentials masked, suitable for
// startup logging:
//
//	logger.Info("loaded configuration", "config", cfg.Redacted())
//
// # Security
//
// The package includes security validation:
//   - File size limits (10MB max) to prevent memory exhaustion
//   - JSON depth validation (100 levels max) to prevent DoS attacks
//   - Path validation to prevent directory traversal
//   - Regular file checks (no symlinks or device files)
package config
