package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Catalog   CatalogConfig
	Session   SessionConfig
	Matching  MatchingConfig
	Semantic  SemanticConfig
	Archive   ArchiveConfig
	Log       LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	OpeningHours   string   `mapstructure:"opening_hours"`
}

// CatalogConfig points at the product catalog and the synonym table
type CatalogConfig struct {
	Path         string `mapstructure:"path"` // .xlsx, .csv or .yaml
	SynonymsPath string `mapstructure:"synonyms_path"`
}

// SessionConfig holds conversation store configuration
type SessionConfig struct {
	Type     string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// MatchingConfig tunes product resolution
type MatchingConfig struct {
	AcceptThreshold     float64 `mapstructure:"accept_threshold"`
	SuggestThreshold    float64 `mapstructure:"suggest_threshold"`
	MaxSuggestions      int     `mapstructure:"max_suggestions"`
	ExtraWordPenalty    float64 `mapstructure:"extra_word_penalty"`
	FirstTokenBonus     float64 `mapstructure:"first_token_bonus"`
	StripPlural         bool    `mapstructure:"strip_plural"`
	SupersetMatching    bool    `mapstructure:"superset_matching"`
	EnableFuzzyMatching bool    `mapstructure:"enable_fuzzy_matching"`
	EnableDebugLogging  bool    `mapstructure:"enable_debug_logging"`

	// Words that separate order lines besides punctuation
	SeparatorWords []string `mapstructure:"separator_words"`
}

// SemanticConfig holds the optional embedding fallback configuration
type SemanticConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	BaseURL          string  `mapstructure:"base_url"`
	Model            string  `mapstructure:"model"`
	AcceptThreshold  float64 `mapstructure:"accept_threshold"`
	SuggestThreshold float64 `mapstructure:"suggest_threshold"`
	Concurrency      int     `mapstructure:"concurrency"`
}

// ArchiveConfig holds the confirmed-order database location
type ArchiveConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP     int     `mapstructure:"per_ip"`    // requests per minute
	Embedding float64 `mapstructure:"embedding"` // requests per second
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/aranda/")

	// ARANDA_SERVER_PORT maps to server.port
	v.SetEnvPrefix("ARANDA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile exports the variables of a .env file in the working
// directory. Variables already present in the environment win.
func loadEnvFile() error {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}

	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, exists := os.LookupEnv(name); exists {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return err
		}
	}
	return nil
}

// setDefaults sets default configuration values. Every key needs a default
// so that AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.opening_hours", "Lunes a Sábado de 9:00 a 14:00 y de 17:00 a 20:00")

	// Catalog defaults
	v.SetDefault("catalog.path", "productos_aranda.xlsx")
	v.SetDefault("catalog.synonyms_path", "")

	// Session defaults
	v.SetDefault("session.type", "memory")
	v.SetDefault("session.redis_url", "")
	v.SetDefault("session.ttl", "2h")

	// Matching defaults
	v.SetDefault("matching.accept_threshold", 0.85)
	v.SetDefault("matching.suggest_threshold", 0.60)
	v.SetDefault("matching.max_suggestions", 3)
	v.SetDefault("matching.extra_word_penalty", 0.15)
	v.SetDefault("matching.first_token_bonus", 0.05)
	v.SetDefault("matching.strip_plural", true)
	v.SetDefault("matching.superset_matching", true)
	v.SetDefault("matching.enable_fuzzy_matching", true)
	v.SetDefault("matching.enable_debug_logging", false)
	v.SetDefault("matching.separator_words", []string{"y", "e", "con"})

	// Semantic defaults
	v.SetDefault("semantic.enabled", false)
	v.SetDefault("semantic.base_url", "http://localhost:11434")
	v.SetDefault("semantic.model", "nomic-embed-text")
	v.SetDefault("semantic.accept_threshold", 0.80)
	v.SetDefault("semantic.suggest_threshold", 0.65)
	v.SetDefault("semantic.concurrency", 4)

	// Archive defaults
	v.SetDefault("archive.path", "pedidos.db")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 60)
	v.SetDefault("ratelimit.embedding", 20)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Catalog.Path == "" {
		return fmt.Errorf("catalog path is required (set ARANDA_CATALOG_PATH)")
	}

	if config.Session.Type != "memory" && config.Session.Type != "redis" {
		return fmt.Errorf("session type must be 'memory' or 'redis', got: %s", config.Session.Type)
	}

	if config.Session.Type == "redis" && config.Session.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when session type is 'redis'")
	}

	m := config.Matching
	if m.AcceptThreshold <= 0 || m.AcceptThreshold > 1 {
		return fmt.Errorf("matching accept threshold must be in (0, 1], got: %v", m.AcceptThreshold)
	}
	if m.SuggestThreshold < 0 || m.SuggestThreshold > m.AcceptThreshold {
		return fmt.Errorf("matching suggest threshold must be in [0, accept threshold], got: %v", m.SuggestThreshold)
	}

	if config.Semantic.Enabled && config.Semantic.BaseURL == "" {
		return fmt.Errorf("semantic base URL is required when semantic matching is enabled")
	}

	return nil
}
