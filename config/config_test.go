package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper returning a config that passes validation
func validConfig() *Config {
	return NewLoader().getDefaults()
}

// Test basic config structure
func TestConfig_Structure(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{
			Addr:            ":9090",
			CORSOrigins:     []string{"https://app.example.com"},
			MaxRequestBytes: 1 << 20,
		},
		NATS: NATSConfig{
			URLs:          []string{"nats://localhost:4222"},
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
		},
		Cache: CacheConfig{
			Bucket:   "recipe-embeddings",
			Replicas: 3,
		},
	}

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Contains(t, cfg.Server.CORSOrigins, "https://app.example.com")
	assert.Equal(t, "recipe-embeddings", cfg.Cache.Bucket)
	assert.Equal(t, 3, cfg.Cache.Replicas)
}

// Test loading config from JSON file
func TestLoader_LoadJSON(t *testing.T) {
	// Create test config file
	testConfig := `{
		"server": {
			"addr": ":9090",
			"cors_origins": ["https://app.example.com"],
			"rate_limit": 25
		},
		"nats": {
			"urls": ["nats://localhost:4222", "nats://localhost:4223"],
			"max_reconnects": 10,
			"reconnect_wait": "5s"
		},
		"openai": {
			"api_key": "sk-test",
			"chat_model": "gpt-4o",
			"timeout": "45s"
		},
		"recipe_api": {
			"api_key": "rk-test",
			"timeout": "500ms"
		},
		"cache": {
			"bucket": "recipe-embeddings",
			"replicas": 3,
			"kv_timeout": "2s"
		},
		"memory": {
			"token_budget": 4000
		}
	}`

	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.json")
	err := os.WriteFile(configFile, []byte(testConfig), 0644)
	require.NoError(t, err)

	// Load config
	loader := NewLoader()
	cfg, err := loader.LoadFile(configFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Verify loaded values
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, float64(25), cfg.Server.RateLimit)
	assert.Len(t, cfg.NATS.URLs, 2)
	assert.Equal(t, 10, cfg.NATS.MaxReconnects)
	assert.Equal(t, 5*time.Second, cfg.NATS.ReconnectWait)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.ChatModel)
	assert.Equal(t, 45*time.Second, cfg.OpenAI.Timeout)
	assert.Equal(t, "rk-test", cfg.RecipeAPI.APIKey)
	assert.Equal(t, 500*time.Millisecond, cfg.RecipeAPI.Timeout)
	assert.Equal(t, "recipe-embeddings", cfg.Cache.Bucket)
	assert.Equal(t, 3, cfg.Cache.Replicas)
	assert.Equal(t, 2*time.Second, cfg.Cache.KVTimeout)
	assert.Equal(t, 4000, cfg.Memory.TokenBudget)

	// Fields absent from the file keep their defaults
	assert.Equal(t, int64(1<<20), cfg.Server.MaxRequestBytes)
	assert.Equal(t, "text-embedding-3-small", cfg.OpenAI.EmbeddingModel)
	assert.Equal(t, 4, cfg.Memory.RecentWindow)
}

// Test default values
func TestLoader_Defaults(t *testing.T) {
	// Minimal config with missing fields
	testConfig := `{
		"server": {
			"addr": ":8081"
		}
	}`

	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.json")
	err := os.WriteFile(configFile, []byte(testConfig), 0644)
	require.NoError(t, err)

	loader := NewLoader()
	cfg, err := loader.LoadFile(configFile)
	require.NoError(t, err)

	// File value wins
	assert.Equal(t, ":8081", cfg.Server.Addr)

	// Check defaults were applied
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxRequestBytes)
	assert.Equal(t, int64(10<<20), cfg.Server.MaxImageBytes)
	assert.Equal(t, float64(10), cfg.Server.RateLimit)
	assert.Equal(t, 20, cfg.Server.RateBurst)
	assert.Equal(t, []string{"nats://localhost:4222"}, cfg.NATS.URLs)
	assert.Equal(t, -1, cfg.NATS.MaxReconnects) // default infinite reconnects
	assert.Equal(t, 2*time.Second, cfg.NATS.ReconnectWait)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.ChatModel)
	assert.Equal(t, "text-embedding-3-small", cfg.OpenAI.EmbeddingModel)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.VisionModel)
	assert.Equal(t, 30*time.Second, cfg.OpenAI.Timeout)
	assert.Equal(t, "https://api.spoonacular.com/recipes", cfg.RecipeAPI.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.RecipeAPI.Timeout)
	assert.Contains(t, cfg.Classifier.Endpoint, "huggingface")
	assert.Equal(t, 15*time.Second, cfg.Classifier.Timeout)
	assert.Equal(t, "embeddings", cfg.Cache.Bucket)
	assert.Equal(t, 1, cfg.Cache.Replicas)
	assert.Equal(t, 5*time.Second, cfg.Cache.KVTimeout)
	assert.Equal(t, 2000, cfg.Memory.TokenBudget)
	assert.Equal(t, 4, cfg.Memory.RecentWindow)
}

// Test layer merging with last-wins semantics
func TestLoader_LayerMerge(t *testing.T) {
	baseConfig := `{
		"server": {"addr": ":9000"},
		"openai": {"chat_model": "gpt-4o", "timeout": "60s"}
	}`
	prodConfig := `{
		"server": {"addr": ":9443"},
		"openai": {"api_key": "sk-prod"}
	}`

	tmpDir := t.TempDir()
	baseFile := filepath.Join(tmpDir, "base.json")
	prodFile := filepath.Join(tmpDir, "production.json")
	require.NoError(t, os.WriteFile(baseFile, []byte(baseConfig), 0644))
	require.NoError(t, os.WriteFile(prodFile, []byte(prodConfig), 0644))

	loader := NewLoader()
	loader.AddLayer(baseFile)
	loader.AddLayer(prodFile)

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, ":9443", cfg.Server.Addr)                            // from production
	assert.Equal(t, "gpt-4o", cfg.OpenAI.ChatModel)                      // from base
	assert.Equal(t, 60*time.Second, cfg.OpenAI.Timeout)                  // from base
	assert.Equal(t, "sk-prod", cfg.OpenAI.APIKey)                        // from production
	assert.Equal(t, "text-embedding-3-small", cfg.OpenAI.EmbeddingModel) // default
}

// Test environment variable overrides
func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv("SOUSCHEF_OPENAI_API_KEY", "sk-env")
	t.Setenv("SOUSCHEF_NATS_URLS", "nats://one:4222,nats://two:4222")
	t.Setenv("SOUSCHEF_CACHE_BUCKET", "env-bucket")

	// Base config
	testConfig := `{
		"server": {"addr": ":7070"},
		"openai": {"api_key": "sk-json"}
	}`

	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.json")
	err := os.WriteFile(configFile, []byte(testConfig), 0644)
	require.NoError(t, err)

	loader := NewLoader()
	cfg, err := loader.LoadFile(configFile)
	require.NoError(t, err)

	// Env vars should override JSON
	assert.Equal(t, "sk-env", cfg.OpenAI.APIKey)
	assert.Equal(t, []string{"nats://one:4222", "nats://two:4222"}, cfg.NATS.URLs)
	assert.Equal(t, "env-bucket", cfg.Cache.Bucket)

	// JSON value should remain when no env override
	assert.Equal(t, ":7070", cfg.Server.Addr)
}

// Test that malformed environment variables are rejected
func TestLoader_EnvValidation(t *testing.T) {
	t.Setenv("SOUSCHEF_OPENAI_API_KEY", strings.Repeat("x", maxEnvVarLen+1))

	loader := NewLoader()
	_, err := loader.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too long")
}

func TestValidateEnvVar(t *testing.T) {
	assert.NoError(t, validateEnvVar("KEY", ""))
	assert.NoError(t, validateEnvVar("KEY", "sk-test"))
	assert.Error(t, validateEnvVar("KEY", "bad\x00value"))
	assert.Error(t, validateEnvVar("KEY", strings.Repeat("x", maxEnvVarLen+1)))
}

// Test validation
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantError string
	}{
		{
			name:   "valid defaults",
			mutate: func(*Config) {},
		},
		{
			name:      "missing server addr",
			mutate:    func(c *Config) { c.Server.Addr = "" },
			wantError: "server.addr is required",
		},
		{
			name:      "non-positive request size",
			mutate:    func(c *Config) { c.Server.MaxRequestBytes = 0 },
			wantError: "server.max_request_bytes must be positive",
		},
		{
			name:      "non-positive image size",
			mutate:    func(c *Config) { c.Server.MaxImageBytes = 0 },
			wantError: "server.max_image_bytes must be positive",
		},
		{
			name:      "negative rate limit",
			mutate:    func(c *Config) { c.Server.RateLimit = -1 },
			wantError: "server.rate_limit cannot be negative",
		},
		{
			name:      "missing nats urls",
			mutate:    func(c *Config) { c.NATS.URLs = nil },
			wantError: "nats.urls is required",
		},
		{
			name:      "non-positive openai timeout",
			mutate:    func(c *Config) { c.OpenAI.Timeout = 0 },
			wantError: "openai.timeout must be positive",
		},
		{
			name: "api key without chat model",
			mutate: func(c *Config) {
				c.OpenAI.APIKey = "sk-test"
				c.OpenAI.ChatModel = ""
			},
			wantError: "openai.chat_model is required",
		},
		{
			name: "api key without embedding model",
			mutate: func(c *Config) {
				c.OpenAI.APIKey = "sk-test"
				c.OpenAI.EmbeddingModel = ""
			},
			wantError: "openai.embedding_model is required",
		},
		{
			name:      "missing cache bucket",
			mutate:    func(c *Config) { c.Cache.Bucket = "" },
			wantError: "cache.bucket is required",
		},
		{
			name:      "bucket with dots",
			mutate:    func(c *Config) { c.Cache.Bucket = "embed.cache" },
			wantError: "not a valid KV bucket name",
		},
		{
			name:      "replicas out of range",
			mutate:    func(c *Config) { c.Cache.Replicas = 6 },
			wantError: "cache.replicas must be between 1 and 5",
		},
		{
			name:      "non-positive kv timeout",
			mutate:    func(c *Config) { c.Cache.KVTimeout = 0 },
			wantError: "cache.kv_timeout must be positive",
		},
		{
			name:      "non-positive token budget",
			mutate:    func(c *Config) { c.Memory.TokenBudget = 0 },
			wantError: "memory.token_budget must be positive",
		},
		{
			name:      "negative recent window",
			mutate:    func(c *Config) { c.Memory.RecentWindow = -1 },
			wantError: "memory.recent_window cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantError == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantError)
		})
	}
}

// Test KV bucket name validation
func TestIsValidBucketName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"embeddings", true},
		{"recipe-embeddings", true},
		{"cache_v2", true},
		{"", false},
		{"embed.cache", false},
		{"embed cache", false},
		{"embed/cache", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, isValidBucketName(tt.name))
		})
	}
}

// Test validation failures surface through Load when enabled
func TestLoader_ValidationEnabled(t *testing.T) {
	testConfig := `{
		"cache": {"bucket": "embed.cache"}
	}`

	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.json")
	require.NoError(t, os.WriteFile(configFile, []byte(testConfig), 0644))

	loader := NewLoader()
	loader.EnableValidation(true)

	_, err := loader.LoadFile(configFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a valid KV bucket name")
}

// Test deep copy independence
func TestConfig_Clone(t *testing.T) {
	original := validConfig()
	original.OpenAI.APIKey = "sk-original"

	clone := original.Clone()
	clone.Server.CORSOrigins[0] = "https://mutated.example.com"
	clone.NATS.URLs = append(clone.NATS.URLs, "nats://extra:4222")
	clone.OpenAI.APIKey = "sk-mutated"

	assert.Equal(t, []string{"*"}, original.Server.CORSOrigins)
	assert.Len(t, original.NATS.URLs, 1)
	assert.Equal(t, "sk-original", original.OpenAI.APIKey)

	// Nil receiver returns an empty config rather than panicking
	var nilConfig *Config
	assert.NotNil(t, nilConfig.Clone())
}

// Test credential masking for logging
func TestConfig_Redacted(t *testing.T) {
	cfg := validConfig()
	cfg.NATS.Password = "nats-secret"
	cfg.NATS.Token = "nats-token"
	cfg.OpenAI.APIKey = "sk-secret"
	cfg.RecipeAPI.APIKey = "rk-secret"
	cfg.Classifier.Token = "hf-secret"

	redacted := cfg.Redacted()

	assert.Equal(t, "***", redacted.NATS.Password)
	assert.Equal(t, "***", redacted.NATS.Token)
	assert.Equal(t, "***", redacted.OpenAI.APIKey)
	assert.Equal(t, "***", redacted.RecipeAPI.APIKey)
	assert.Equal(t, "***", redacted.Classifier.Token)

	// Original is untouched
	assert.Equal(t, "sk-secret", cfg.OpenAI.APIKey)

	// Empty credentials stay empty
	empty := validConfig().Redacted()
	assert.Empty(t, empty.OpenAI.APIKey)
	assert.NotContains(t, empty.String(), "***")
}

// Test file loading error paths
func TestLoader_FileErrors(t *testing.T) {
	tmpDir := t.TempDir()
	loader := NewLoader()

	t.Run("missing file", func(t *testing.T) {
		_, err := loader.LoadFile(filepath.Join(tmpDir, "missing.json"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot stat config file")
	})

	t.Run("non-json extension", func(t *testing.T) {
		yamlFile := filepath.Join(tmpDir, "config.yaml")
		require.NoError(t, os.WriteFile(yamlFile, []byte("server:\n  addr: :8080\n"), 0644))

		_, err := loader.LoadFile(yamlFile)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "only JSON config files allowed")
	})

	t.Run("path traversal", func(t *testing.T) {
		_, err := loader.LoadFile("../../outside.json")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "path traversal not allowed")
	})

	t.Run("directory instead of file", func(t *testing.T) {
		dirPath := filepath.Join(tmpDir, "dir.json")
		require.NoError(t, os.Mkdir(dirPath, 0755))

		_, err := loader.LoadFile(dirPath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a regular file")
	})

	t.Run("excessive nesting", func(t *testing.T) {
		deepFile := filepath.Join(tmpDir, "deep.json")
		deep := strings.Repeat("[", 150) + strings.Repeat("]", 150)
		require.NoError(t, os.WriteFile(deepFile, []byte(deep), 0644))

		_, err := loader.LoadFile(deepFile)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nesting too deep")
	})

	t.Run("invalid json", func(t *testing.T) {
		badFile := filepath.Join(tmpDir, "bad.json")
		require.NoError(t, os.WriteFile(badFile, []byte(`{"server": {`), 0644))

		_, err := loader.LoadFile(badFile)
		require.Error(t, err)
	})
}

// Test save and reload round trip
func TestConfig_SaveToFile(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Addr = ":9999"
	cfg.Cache.Bucket = "saved-bucket"

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "saved.json")
	require.NoError(t, cfg.SaveToFile(path))

	// Saved with restrictive permissions
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loader := NewLoader()
	loaded, err := loader.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", loaded.Server.Addr)
	assert.Equal(t, "saved-bucket", loaded.Cache.Bucket)
	assert.Equal(t, cfg.Memory.TokenBudget, loaded.Memory.TokenBudget)
}

func TestConfig_String(t *testing.T) {
	cfg := validConfig()
	out := cfg.String()

	assert.Contains(t, out, `"server"`)
	assert.Contains(t, out, `":8080"`)
	assert.Contains(t, out, `"embeddings"`)
}
