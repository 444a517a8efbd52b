// Package config loads service settings from an optional YAML file, an
// optional .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
	MaxUploadMB int      `yaml:"max_upload_mb"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LLMConfig configures the OpenAI-compatible chat provider.
type LLMConfig struct {
	Provider string        `yaml:"provider"`
	Model    string        `yaml:"model"`
	APIKey   string        `yaml:"api_key"`
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
}

// ChunkerConfig configures paragraph chunking.
type ChunkerConfig struct {
	MaxTokens int     `yaml:"max_tokens"`
	Overlap   float64 `yaml:"overlap"`
}

// Config is the root configuration.
type Config struct {
	Server         ServerConfig  `yaml:"server"`
	Log            LogConfig     `yaml:"log"`
	RedisURL       string        `yaml:"redis_url"`
	DatabaseURL    string        `yaml:"database_url"`
	Evaluator      string        `yaml:"evaluator"`
	LLM            LLMConfig     `yaml:"llm"`
	Chunker        ChunkerConfig `yaml:"chunker"`
	MaxFeatures    int           `yaml:"index_max_features"`
	TopK           int           `yaml:"top_k"`
	CorpusCapacity int           `yaml:"corpus_capacity"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8000,
			CORSOrigins: []string{"http://localhost:8080", "http://localhost:5173", "http://127.0.0.1:8080"},
			MaxUploadMB: 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Evaluator: "auto",
		LLM: LLMConfig{
			Provider: "openrouter",
			Timeout:  30 * time.Second,
		},
		Chunker: ChunkerConfig{
			MaxTokens: 512,
			Overlap:   0.15,
		},
		MaxFeatures:    1000,
		TopK:           5,
		CorpusCapacity: 16,
	}
}

// Load builds the configuration. envFile may be empty; a missing .env or
// YAML file is not an error.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := Default()
	if path := os.Getenv("PUNDIT_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Host = getEnv("HOST", c.Server.Host)
	c.Server.Port = getEnvInt("PORT", c.Server.Port)
	c.Server.MaxUploadMB = getEnvInt("MAX_UPLOAD_MB", c.Server.MaxUploadMB)
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		c.Server.CORSOrigins = splitList(origins)
	}

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.Evaluator = strings.ToLower(getEnv("EVALUATOR", c.Evaluator))

	c.LLM.Provider = strings.ToLower(getEnv("LLM_PROVIDER", c.LLM.Provider))
	c.LLM.Model = getEnv("LLM_MODEL", c.LLM.Model)
	c.LLM.APIKey = getEnv("LLM_API_KEY", getEnv("OPENROUTER_API_KEY", c.LLM.APIKey))
	c.LLM.BaseURL = getEnv("LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.Timeout = getEnvDuration("LLM_TIMEOUT", c.LLM.Timeout)

	c.Chunker.MaxTokens = getEnvInt("CHUNK_MAX_TOKENS", c.Chunker.MaxTokens)
	c.Chunker.Overlap = getEnvFloat("CHUNK_OVERLAP", c.Chunker.Overlap)
	c.MaxFeatures = getEnvInt("INDEX_MAX_FEATURES", c.MaxFeatures)
	c.TopK = getEnvInt("TOP_K", c.TopK)
	c.CorpusCapacity = getEnvInt("CORPUS_CAPACITY", c.CorpusCapacity)
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	switch c.Evaluator {
	case "rules", "llm", "auto":
	default:
		return fmt.Errorf("evaluator must be rules, llm or auto, got %q", c.Evaluator)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Chunker.MaxTokens <= 0 {
		return fmt.Errorf("chunk max tokens must be positive, got %d", c.Chunker.MaxTokens)
	}
	if c.Chunker.Overlap < 0 || c.Chunker.Overlap >= 1 {
		return fmt.Errorf("chunk overlap must be in [0, 1), got %g", c.Chunker.Overlap)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// MaxUploadBytes is the request body limit for uploads.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}

// Address is the listen address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return result
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("45s") or plain seconds ("45").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
