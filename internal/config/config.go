package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EmbeddingProvider represents the type of embedding provider
type EmbeddingProvider string

const (
	ProviderOpenAI      EmbeddingProvider = "openai"
	ProviderLocal       EmbeddingProvider = "local"
	ProviderHuggingFace EmbeddingProvider = "huggingface"
)

// Local server flavours understood by the local embedder.
const (
	ServerTypeTEI    = "tei"
	ServerTypeOllama = "ollama"
	ServerTypeCustom = "custom"
)

// DefaultModelID is the multilingual sentence-transformers model the
// auto-reply matcher was tuned against.
const DefaultModelID = "sentence-transformers/paraphrase-multilingual-MiniLM-L12-v2"

// Config holds all configuration for the embedding service
type Config struct {
	LogLevel  string          `json:"log_level"`
	Server    ServerConfig    `json:"server"`
	Embedding EmbeddingConfig `json:"embedding"`
	Encoder   EncoderConfig   `json:"encoder"`
	CORS      CORSConfig      `json:"cors"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Metrics   MetricsConfig   `json:"metrics"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Host            string        `json:"host"`
	Port            string        `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

// Addr returns the host:port the server listens on.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// EmbeddingConfig holds configuration for embedding providers
type EmbeddingConfig struct {
	Provider    EmbeddingProvider `json:"provider"`
	OpenAI      OpenAIConfig      `json:"openai"`
	Local       LocalConfig       `json:"local"`
	HuggingFace HuggingFaceConfig `json:"huggingface"`
	Dimensions  int               `json:"dimensions"` // Auto-detected if 0
}

// OpenAIConfig holds OpenAI-specific configuration
type OpenAIConfig struct {
	APIKey  string `json:"api_key"`
	Model   string `json:"model"`
	BaseURL string `json:"base_url"` // empty means api.openai.com
}

// LocalConfig holds local embedding server configuration
type LocalConfig struct {
	ServerURL  string `json:"server_url"`
	ModelName  string `json:"model_name"`
	Timeout    int    `json:"timeout_seconds"`
	ServerType string `json:"server_type"` // "tei", "ollama", "custom"
}

// HuggingFaceConfig holds HuggingFace model configuration
type HuggingFaceConfig struct {
	ModelID   string `json:"model_id"`
	Token     string `json:"-"`
	MaxLength int    `json:"max_length"`
	BatchSize int    `json:"batch_size"`
}

// EncoderConfig controls the wrappers placed around the embedding backend
type EncoderConfig struct {
	CacheSize      int           `json:"cache_size"`      // 0 disables the embedding cache
	MaxConcurrency int           `json:"max_concurrency"` // 0 means unlimited
	Breaker        BreakerConfig `json:"breaker"`
}

// BreakerConfig configures the circuit breaker in front of the backend
type BreakerConfig struct {
	Enabled      bool          `json:"enabled"`
	MaxRequests  uint32        `json:"max_requests"`
	MinRequests  uint32        `json:"min_requests"`
	Interval     time.Duration `json:"interval"`
	Timeout      time.Duration `json:"timeout"`
	FailureRatio float64       `json:"failure_ratio"`
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins []string `json:"allowed_origins"`
	AllowedHeaders []string `json:"allowed_headers"`
	MaxAge         int      `json:"max_age"`
}

// RateLimitConfig holds per-client rate limiting. RequestsPerSecond 0 disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64       `json:"requests_per_second"`
	Burst             int           `json:"burst"`
	IdleTimeout       time.Duration `json:"idle_timeout"` // clients idle this long lose their bucket
}

// MetricsConfig toggles the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// Default returns the configuration used when no environment overrides are set.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "5001",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Embedding: EmbeddingConfig{
			Provider: ProviderHuggingFace,
			OpenAI: OpenAIConfig{
				Model: "text-embedding-3-small",
			},
			Local: LocalConfig{
				ServerURL:  "http://localhost:8080",
				Timeout:    30,
				ServerType: ServerTypeTEI,
			},
			HuggingFace: HuggingFaceConfig{
				ModelID:   DefaultModelID,
				MaxLength: 2048,
				BatchSize: 32,
			},
			Dimensions: 0, // Auto-detect
		},
		Encoder: EncoderConfig{
			CacheSize:      10000,
			MaxConcurrency: 0,
			Breaker: BreakerConfig{
				Enabled:      false,
				MaxRequests:  1,
				MinRequests:  5,
				Interval:     60 * time.Second,
				Timeout:      30 * time.Second,
				FailureRatio: 0.5,
			},
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		RateLimit: RateLimitConfig{
			IdleTimeout: 10 * time.Minute,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// LoadConfig loads configuration from an optional .env file and environment variables
func LoadConfig() (*Config, error) {
	// A missing .env file is normal outside development.
	_ = godotenv.Load()

	config := Default()

	config.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", config.LogLevel))

	// Server
	config.Server.Host = getEnv("SERVER_HOST", config.Server.Host)
	config.Server.Port = getEnv("SERVER_PORT", config.Server.Port)
	config.Server.ReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", config.Server.ReadTimeout)
	config.Server.WriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", config.Server.WriteTimeout)
	config.Server.ShutdownTimeout = getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", config.Server.ShutdownTimeout)

	// Load embedding provider type
	if provider := os.Getenv("EMBEDDING_PROVIDER"); provider != "" {
		switch strings.ToLower(provider) {
		case "openai":
			config.Embedding.Provider = ProviderOpenAI
		case "local":
			config.Embedding.Provider = ProviderLocal
		case "huggingface":
			config.Embedding.Provider = ProviderHuggingFace
		default:
			return nil, fmt.Errorf("invalid embedding provider: %s (must be 'openai', 'local', or 'huggingface')", provider)
		}
	}

	// Load OpenAI configuration
	config.Embedding.OpenAI.APIKey = getEnv("OPENAI_API_KEY", config.Embedding.OpenAI.APIKey)
	config.Embedding.OpenAI.Model = getEnv("OPENAI_EMBEDDING_MODEL", config.Embedding.OpenAI.Model)
	config.Embedding.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", config.Embedding.OpenAI.BaseURL)

	// Load local embedding configuration
	config.Embedding.Local.ServerURL = strings.TrimRight(getEnv("LOCAL_EMBEDDING_URL", config.Embedding.Local.ServerURL), "/")
	config.Embedding.Local.ModelName = getEnv("LOCAL_EMBEDDING_MODEL", config.Embedding.Local.ModelName)
	config.Embedding.Local.ServerType = strings.ToLower(getEnv("LOCAL_EMBEDDING_SERVER_TYPE", config.Embedding.Local.ServerType))
	config.Embedding.Local.Timeout = getEnvPositiveInt("LOCAL_EMBEDDING_TIMEOUT", config.Embedding.Local.Timeout)

	// Load HuggingFace configuration
	config.Embedding.HuggingFace.ModelID = getEnv("HUGGINGFACE_MODEL_ID", config.Embedding.HuggingFace.ModelID)
	config.Embedding.HuggingFace.Token = getEnv("HUGGINGFACEHUB_API_TOKEN", getEnv("HF_TOKEN", ""))
	config.Embedding.HuggingFace.MaxLength = getEnvPositiveInt("HUGGINGFACE_MAX_LENGTH", config.Embedding.HuggingFace.MaxLength)
	config.Embedding.HuggingFace.BatchSize = getEnvPositiveInt("HUGGINGFACE_BATCH_SIZE", config.Embedding.HuggingFace.BatchSize)

	// Load embedding dimensions override
	config.Embedding.Dimensions = getEnvPositiveInt("EMBEDDING_DIMENSIONS", config.Embedding.Dimensions)

	// Encoder wrappers
	config.Encoder.CacheSize = getEnvInt("EMBEDDING_CACHE_SIZE", config.Encoder.CacheSize)
	config.Encoder.MaxConcurrency = getEnvInt("ENCODER_MAX_CONCURRENCY", config.Encoder.MaxConcurrency)
	config.Encoder.Breaker.Enabled = getEnvBool("ENCODER_BREAKER_ENABLED", config.Encoder.Breaker.Enabled)
	config.Encoder.Breaker.MinRequests = uint32(getEnvPositiveInt("ENCODER_BREAKER_MIN_REQUESTS", int(config.Encoder.Breaker.MinRequests)))
	config.Encoder.Breaker.Interval = getEnvDuration("ENCODER_BREAKER_INTERVAL", config.Encoder.Breaker.Interval)
	config.Encoder.Breaker.Timeout = getEnvDuration("ENCODER_BREAKER_TIMEOUT", config.Encoder.Breaker.Timeout)
	config.Encoder.Breaker.FailureRatio = getEnvFloat("ENCODER_BREAKER_FAILURE_RATIO", config.Encoder.Breaker.FailureRatio)

	// HTTP middleware
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		config.CORS.AllowedOrigins = splitList(origins)
	}
	config.RateLimit.RequestsPerSecond = getEnvFloat("RATE_LIMIT_RPS", config.RateLimit.RequestsPerSecond)
	config.RateLimit.Burst = getEnvInt("RATE_LIMIT_BURST", config.RateLimit.Burst)
	config.RateLimit.IdleTimeout = getEnvDuration("RATE_LIMIT_IDLE_TIMEOUT", config.RateLimit.IdleTimeout)
	config.Metrics.Enabled = getEnvBool("METRICS_ENABLED", config.Metrics.Enabled)
	config.Metrics.Path = getEnv("METRICS_PATH", config.Metrics.Path)

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	switch c.Embedding.Provider {
	case ProviderOpenAI:
		if c.Embedding.OpenAI.APIKey == "" {
			return fmt.Errorf("OpenAI API key is required when using OpenAI provider")
		}
		if c.Embedding.OpenAI.Model == "" {
			return fmt.Errorf("OpenAI model is required")
		}
	case ProviderLocal:
		if c.Embedding.Local.ServerURL == "" {
			return fmt.Errorf("local embedding server URL is required when using local provider")
		}
		if c.Embedding.Local.Timeout <= 0 {
			return fmt.Errorf("local embedding timeout must be positive")
		}
		validServerTypes := []string{ServerTypeTEI, ServerTypeOllama, ServerTypeCustom}
		isValidType := false
		for _, validType := range validServerTypes {
			if c.Embedding.Local.ServerType == validType {
				isValidType = true
				break
			}
		}
		if !isValidType {
			return fmt.Errorf("invalid server type: %s (must be one of: %s)",
				c.Embedding.Local.ServerType, strings.Join(validServerTypes, ", "))
		}
		if c.Embedding.Local.ServerType == ServerTypeOllama && c.Embedding.Local.ModelName == "" {
			return fmt.Errorf("local embedding model name is required for ollama servers")
		}
	case ProviderHuggingFace:
		if c.Embedding.HuggingFace.ModelID == "" {
			return fmt.Errorf("HuggingFace model ID is required when using HuggingFace provider")
		}
		if c.Embedding.HuggingFace.MaxLength <= 0 {
			return fmt.Errorf("HuggingFace max length must be positive")
		}
		if c.Embedding.HuggingFace.BatchSize <= 0 {
			return fmt.Errorf("HuggingFace batch size must be positive")
		}
	default:
		return fmt.Errorf("unknown embedding provider: %s", c.Embedding.Provider)
	}

	if c.Embedding.Dimensions < 0 {
		return fmt.Errorf("embedding dimensions must be non-negative")
	}
	if c.Encoder.CacheSize < 0 {
		return fmt.Errorf("embedding cache size must be non-negative")
	}
	if c.Encoder.MaxConcurrency < 0 {
		return fmt.Errorf("encoder max concurrency must be non-negative")
	}
	if c.Encoder.Breaker.Enabled && (c.Encoder.Breaker.FailureRatio <= 0 || c.Encoder.Breaker.FailureRatio > 1) {
		return fmt.Errorf("breaker failure ratio must be in (0, 1]")
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("rate limit must be non-negative")
	}

	return nil
}

// ModelName returns the name of the model the configured provider serves.
func (c *Config) ModelName() string {
	switch c.Embedding.Provider {
	case ProviderOpenAI:
		return c.Embedding.OpenAI.Model
	case ProviderLocal:
		if c.Embedding.Local.ModelName != "" {
			return c.Embedding.Local.ModelName
		}
		return c.Embedding.Local.ServerURL
	default:
		return c.Embedding.HuggingFace.ModelID
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvPositiveInt(key string, defaultValue int) int {
	if v := getEnvInt(key, defaultValue); v > 0 {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
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
