package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/dig"
)

// Config represents the gateway configuration.
type Config struct {
	Server ServerConfig
	CORS   CORSConfig
	Store  StoreConfig
	Cache  CacheConfig
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port                     int `env:"PORT"                         envDefault:"7123"`
	ReadTimeout              int `env:"SERVER_READ_TIMEOUT"          envDefault:"30"`
	WriteTimeout             int `env:"SERVER_WRITE_TIMEOUT"         envDefault:"30"`
	FirstChunkTimeoutSeconds int `env:"FIRST_CHUNK_TIMEOUT_SECONDS"  envDefault:"30"`
}

// CORSConfig contains CORS policy settings.
type CORSConfig struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS"   envSeparator:"," envDefault:"*"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS"   envSeparator:"," envDefault:"GET,POST,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS"   envSeparator:"," envDefault:"Content-Type,Authorization,x-api-key,anthropic-version,anthropic-beta"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS"                  envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE"                            envDefault:"86400"`
}

// StoreConfig locates the gateway's durable, file-backed state.
type StoreConfig struct {
	ModelsConfigPath  string `env:"MODELS_CONFIG_PATH"  envDefault:"./models.json"`
	CredentialsDBPath string `env:"CREDENTIALS_DB_PATH" envDefault:"./gateway.db"`
}

// CacheConfig controls the optional semantic completion cache. It stays
// disabled (RedisURL empty) unless the operator opts in.
type CacheConfig struct {
	RedisURL            string  `env:"REDIS_URL"`
	EmbeddingModel      string  `env:"CACHE_EMBEDDING_MODEL"      envDefault:"text-embedding-ada-002"`
	OpenAIAPIKey        string  `env:"OPENAI_API_KEY"`
	SimilarityThreshold float64 `env:"CACHE_SIMILARITY_THRESHOLD" envDefault:"0.92"`
}

// FirstChunkTimeout returns the configured first-chunk timeout as a
// time.Duration.
func (s ServerConfig) FirstChunkTimeout() time.Duration {
	return time.Duration(s.FirstChunkTimeoutSeconds) * time.Second
}

// Enabled reports whether the operator configured the semantic cache.
func (c CacheConfig) Enabled() bool {
	return c.RedisURL != "" && c.OpenAIAPIKey != ""
}

// DepConfig is used for dependency injection with dig: it fans a loaded
// Config out into its sub-configs so downstream providers can depend on
// only the slice they need.
type DepConfig struct {
	dig.Out
	*ServerConfig
	*CORSConfig
	*StoreConfig
	*CacheConfig
}

// Load loads environment files and parses configuration.
func Load() *Config {
	for _, file := range []string{".env"} {
		_ = godotenv.Load(file)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		panic(err)
	}

	return &cfg
}

// ParseDependenciesConfig returns pointers to sub-configs for dependency injection.
func ParseDependenciesConfig(cfg *Config) DepConfig {
	return DepConfig{
		dig.Out{},
		&cfg.Server,
		&cfg.CORS,
		&cfg.Store,
		&cfg.Cache,
	}
}
