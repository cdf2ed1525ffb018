package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode"
)

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig     `json:"server"`
	NATS       NATSConfig       `json:"nats"`
	OpenAI     OpenAIConfig     `json:"openai"`
	RecipeAPI  RecipeAPIConfig  `json:"recipe_api"`
	Classifier ClassifierConfig `json:"classifier"`
	Cache      CacheConfig      `json:"cache"`
	Memory     MemoryConfig     `json:"memory"`
}

// ServerConfig defines the HTTP gateway settings
type ServerConfig struct {
	Addr            string   `json:"addr"`
	CORSOrigins     []string `json:"cors_origins,omitempty"`
	MaxRequestBytes int64    `json:"max_request_bytes,omitempty"`
	MaxImageBytes   int64    `json:"max_image_bytes,omitempty"` // Upload cap for image endpoints
	RateLimit       float64  `json:"rate_limit,omitempty"`      // Requests per second, 0 = unlimited
	RateBurst       int      `json:"rate_burst,omitempty"`
}

// NATSConfig defines NATS connection settings
type NATSConfig struct {
	URLs          []string      `json:"urls,omitempty"`
	MaxReconnects int           `json:"max_reconnects,omitempty"`
	ReconnectWait time.Duration `json:"reconnect_wait,omitempty"`
	Username      string        `json:"username,omitempty"`
	Password      string        `json:"password,omitempty"`
	Token         string        `json:"token,omitempty"`
}

// OpenAIConfig defines the OpenAI-compatible provider settings
type OpenAIConfig struct {
	BaseURL        string        `json:"base_url,omitempty"` // Empty = provider default
	APIKey         string        `json:"api_key,omitempty"`
	ChatModel      string        `json:"chat_model,omitempty"`
	EmbeddingModel string        `json:"embedding_model,omitempty"`
	VisionModel    string        `json:"vision_model,omitempty"`
	Timeout        time.Duration `json:"timeout,omitempty"`
}

// RecipeAPIConfig defines the external recipe search API settings.
// An empty API key disables external search (searches return no results).
type RecipeAPIConfig struct {
	BaseURL string        `json:"base_url,omitempty"`
	APIKey  string        `json:"api_key,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty"`
}

// ClassifierConfig defines the hosted image classifier settings
type ClassifierConfig struct {
	Endpoint string        `json:"endpoint,omitempty"`
	Token    string        `json:"token,omitempty"`
	Timeout  time.Duration `json:"timeout,omitempty"`
}

// CacheConfig defines the shared embedding cache settings
type CacheConfig struct {
	Bucket    string        `json:"bucket,omitempty"`
	Replicas  int           `json:"replicas,omitempty"`
	KVTimeout time.Duration `json:"kv_timeout,omitempty"`
}

// MemoryConfig defines conversation memory settings
type MemoryConfig struct {
	TokenBudget  int `json:"token_budget,omitempty"`
	RecentWindow int `json:"recent_window,omitempty"` // Raw turns kept out of compaction
}

// Validate checks if the config is valid
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Server.MaxRequestBytes <= 0 {
		return errors.New("server.max_request_bytes must be positive")
	}
	if c.Server.MaxImageBytes <= 0 {
		return errors.New("server.max_image_bytes must be positive")
	}
	if c.Server.RateLimit < 0 {
		return errors.New("server.rate_limit cannot be negative")
	}

	if len(c.NATS.URLs) == 0 {
		return errors.New("nats.urls is required")
	}

	if c.OpenAI.Timeout <= 0 {
		return errors.New("openai.timeout must be positive")
	}
	if c.OpenAI.APIKey != "" {
		if c.OpenAI.ChatModel == "" {
			return errors.New("openai.chat_model is required when an API key is set")
		}
		if c.OpenAI.EmbeddingModel == "" {
			return errors.New("openai.embedding_model is required when an API key is set")
		}
	}

	if c.RecipeAPI.Timeout <= 0 {
		return errors.New("recipe_api.timeout must be positive")
	}
	if c.Classifier.Timeout <= 0 {
		return errors.New("classifier.timeout must be positive")
	}

	if c.Cache.Bucket == "" {
		return errors.New("cache.bucket is required")
	}
	if !isValidBucketName(c.Cache.Bucket) {
		return fmt.Errorf(
			"cache.bucket '%s' is not a valid KV bucket name (must be alphanumeric with dashes, underscores)",
			c.Cache.Bucket,
		)
	}
	if c.Cache.Replicas < 1 || c.Cache.Replicas > 5 {
		return fmt.Errorf("cache.replicas must be between 1 and 5, got %d", c.Cache.Replicas)
	}
	if c.Cache.KVTimeout <= 0 {
		return errors.New("cache.kv_timeout must be positive")
	}

	if c.Memory.TokenBudget <= 0 {
		return errors.New("memory.token_budget must be positive")
	}
	if c.Memory.RecentWindow < 0 {
		return errors.New("memory.recent_window cannot be negative")
	}

	return nil
}

// isValidBucketName checks if a string is a valid JetStream KV bucket name.
// Valid characters are alphanumeric, dashes, and underscores (no dots).
func isValidBucketName(s string) bool {
	if len(s) == 0 {
		return false
	}

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) &&
			r != '-' && r != '_' {
			return false
		}
	}
	return true
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}

	// Use JSON marshaling/unmarshaling for deep copy
	data, err := json.Marshal(c)
	if err != nil {
		copied := *c
		return &copied
	}

	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := *c
		return &copied
	}

	return &clone
}

// Redacted returns a deep copy with credentials masked, safe for logging
func (c *Config) Redacted() *Config {
	clone := c.Clone()
	if clone.NATS.Password != "" {
		clone.NATS.Password = "***"
	}
	if clone.NATS.Token != "" {
		clone.NATS.Token = "***"
	}
	if clone.OpenAI.APIKey != "" {
		clone.OpenAI.APIKey = "***"
	}
	if clone.RecipeAPI.APIKey != "" {
		clone.RecipeAPI.APIKey = "***"
	}
	if clone.Classifier.Token != "" {
		clone.Classifier.Token = "***"
	}
	return clone
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		layers:     []string{},
		validation: false,
		envPrefix:  "SOUSCHEF",
	}
}

// AddLayer adds a configuration file layer
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load loads and merges all configuration layers
func (l *Loader) Load() (*Config, error) {
	// Start with defaults
	cfg := l.getDefaults()

	// Load each layer and merge using map-based approach
	for _, path := range l.layers {
		rawConfig, err := l.loadRawJSON(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		cfg = l.mergeFromMap(cfg, rawConfig)
	}

	// Apply environment overrides
	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	// Validate if enabled
	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// getDefaults returns default configuration
func (l *Loader) getDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			CORSOrigins:     []string{"*"},
			MaxRequestBytes: 1 << 20,  // 1MB
			MaxImageBytes:   10 << 20, // 10MB
			RateLimit:       10,
			RateBurst:       20,
		},
		NATS: NATSConfig{
			URLs:          []string{"nats://localhost:4222"},
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
		},
		OpenAI: OpenAIConfig{
			ChatModel:      "gpt-4o-mini",
			EmbeddingModel: "text-embedding-3-small",
			VisionModel:    "gpt-4o-mini",
			Timeout:        30 * time.Second,
		},
		RecipeAPI: RecipeAPIConfig{
			BaseURL: "https://api.spoonacular.com/recipes",
			Timeout: 10 * time.Second,
		},
		Classifier: ClassifierConfig{
			Endpoint: "https://api-inference.huggingface.co/models/nateraw/food",
			Timeout:  15 * time.Second,
		},
		Cache: CacheConfig{
			Bucket:    "embeddings",
			Replicas:  1,
			KVTimeout: 5 * time.Second,
		},
		Memory: MemoryConfig{
			TokenBudget:  2000,
			RecentWindow: 4,
		},
	}
}

// loadRawJSON loads configuration from a JSON file as a map
func (l *Loader) loadRawJSON(path string) (map[string]any, error) {
	// Use secure file reading with validation
	data, err := safeReadFile(path)
	if err != nil {
		return nil, err
	}

	// Validate JSON depth to prevent DoS
	if err := validateJSONDepth(data); err != nil {
		return nil, fmt.Errorf("invalid JSON structure: %w", err)
	}

	// Unmarshal into map
	var rawConfig map[string]any
	if err := json.Unmarshal(data, &rawConfig); err != nil {
		return nil, err
	}

	// Convert duration strings
	l.parseDurations(rawConfig)

	return rawConfig, nil
}

// mergeFromMap merges configuration from a raw map, only overriding fields present in the map
func (l *Loader) mergeFromMap(base *Config, override map[string]any) *Config {
	if override == nil {
		return base
	}

	// Marshal the base config to JSON then to map
	baseJSON, err := json.Marshal(base)
	if err != nil {
		return base
	}

	var baseMap map[string]any
	if err := json.Unmarshal(baseJSON, &baseMap); err != nil {
		return base
	}

	// Deep merge the maps
	mergedMap := l.deepMergeMaps(baseMap, override)

	// Convert back to Config
	mergedJSON, err := json.Marshal(mergedMap)
	if err != nil {
		return base
	}

	var merged Config
	if err := json.Unmarshal(mergedJSON, &merged); err != nil {
		return base
	}

	return &merged
}

// deepMergeMaps recursively merges two maps, with override taking precedence
func (l *Loader) deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any)

	// Copy base values
	for k, v := range base {
		result[k] = v
	}

	// Override with values from override map
	for k, v := range override {
		if v == nil {
			continue
		}

		// If both base and override have maps at this key, merge them
		if baseMap, baseOk := base[k].(map[string]any); baseOk {
			if overrideMap, overrideOk := v.(map[string]any); overrideOk {
				result[k] = l.deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}

		// Otherwise, override takes precedence
		result[k] = v
	}

	return result
}

// parseDurations converts duration strings to nanoseconds for json unmarshaling
func (l *Loader) parseDurations(data map[string]any) {
	l.parseSectionDuration(data, "nats", "reconnect_wait")
	l.parseSectionDuration(data, "openai", "timeout")
	l.parseSectionDuration(data, "recipe_api", "timeout")
	l.parseSectionDuration(data, "classifier", "timeout")
	l.parseSectionDuration(data, "cache", "kv_timeout")
}

// parseSectionDuration converts one section field from a duration string to nanoseconds
func (l *Loader) parseSectionDuration(data map[string]any, section, field string) {
	sec, ok := data[section].(map[string]any)
	if !ok {
		return
	}
	raw, ok := sec[field].(string)
	if !ok {
		return
	}
	if d, err := time.ParseDuration(raw); err == nil {
		sec[field] = d.Nanoseconds()
	}
}

// applyEnvOverrides applies environment variable overrides
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	overrides := []struct {
		key   string
		apply func(string)
	}{
		{"SERVER_ADDR", func(v string) { cfg.Server.Addr = v }},
		{"CORS_ORIGINS", func(v string) { cfg.Server.CORSOrigins = strings.Split(v, ",") }},
		{"NATS_URLS", func(v string) { cfg.NATS.URLs = strings.Split(v, ",") }},
		{"NATS_USERNAME", func(v string) { cfg.NATS.Username = v }},
		{"NATS_PASSWORD", func(v string) { cfg.NATS.Password = v }},
		{"NATS_TOKEN", func(v string) { cfg.NATS.Token = v }},
		{"OPENAI_API_KEY", func(v string) { cfg.OpenAI.APIKey = v }},
		{"OPENAI_BASE_URL", func(v string) { cfg.OpenAI.BaseURL = v }},
		{"OPENAI_CHAT_MODEL", func(v string) { cfg.OpenAI.ChatModel = v }},
		{"OPENAI_EMBEDDING_MODEL", func(v string) { cfg.OpenAI.EmbeddingModel = v }},
		{"OPENAI_VISION_MODEL", func(v string) { cfg.OpenAI.VisionModel = v }},
		{"RECIPE_API_KEY", func(v string) { cfg.RecipeAPI.APIKey = v }},
		{"RECIPE_API_URL", func(v string) { cfg.RecipeAPI.BaseURL = v }},
		{"CLASSIFIER_ENDPOINT", func(v string) { cfg.Classifier.Endpoint = v }},
		{"CLASSIFIER_TOKEN", func(v string) { cfg.Classifier.Token = v }},
		{"CACHE_BUCKET", func(v string) { cfg.Cache.Bucket = v }},
	}

	for _, o := range overrides {
		key := l.envPrefix + "_" + o.key
		val := os.Getenv(key)
		if val == "" {
			continue
		}
		if err := validateEnvVar(key, val); err != nil {
			return err
		}
		o.apply(val)
	}

	return nil
}

// SaveToFile saves the configuration to a JSON file
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	// Use secure file writing with validation
	return safeWriteFile(path, data)
}
