package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Environment  string             `mapstructure:"environment"`
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Log          LogConfig          `mapstructure:"log"`
	Catalog      CatalogConfig      `mapstructure:"catalog"`
	Search       SearchConfig       `mapstructure:"search"`
	Autocomplete AutocompleteConfig `mapstructure:"autocomplete"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port                int    `mapstructure:"port"`
	Host                string `mapstructure:"host"`
	ReadTimeoutSeconds  int    `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds"`
	IdleTimeoutSeconds  int    `mapstructure:"idle_timeout_seconds"`
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// CatalogConfig contains the external parts catalog integration settings
type CatalogConfig struct {
	BaseURL            string `mapstructure:"base_url"`
	TokenURL           string `mapstructure:"token_url"`
	ClientID           string `mapstructure:"client_id"`
	ClientSecret       string `mapstructure:"client_secret"`
	StaticToken        string `mapstructure:"static_token"`
	TimeoutSeconds     int    `mapstructure:"timeout_seconds"`
	RateLimitRequests  int    `mapstructure:"rate_limit_requests"`
	RateLimitWindow    int    `mapstructure:"rate_limit_window"` // in seconds
	RetryCount         int    `mapstructure:"retry_count"`
	TokenMinTTLSeconds int    `mapstructure:"token_min_ttl_seconds"`
}

// Timeout returns the per-request timeout
func (c CatalogConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SearchConfig contains search orchestration configuration
type SearchConfig struct {
	PageSize          int  `mapstructure:"page_size"`
	TermPageSize      int  `mapstructure:"term_page_size"`
	CategoryPageSize  int  `mapstructure:"category_page_size"`
	DetailPageSize    int  `mapstructure:"detail_page_size"`
	CacheTTL          int  `mapstructure:"cache_ttl"`           // in minutes
	ReferenceCacheTTL int  `mapstructure:"reference_cache_ttl"` // in hours
	HistoryEnabled    bool `mapstructure:"history_enabled"`
	HistoryRetention  int  `mapstructure:"history_retention_days"`
}

// AutocompleteConfig contains autocomplete engine tuning
type AutocompleteConfig struct {
	HistorySize    int     `mapstructure:"history_size"`
	Similarity     string  `mapstructure:"similarity"` // distance | ratio
	MaxDistance    int     `mapstructure:"max_distance"`
	MinRatio       float64 `mapstructure:"min_ratio"`
	MaxSuggestions int     `mapstructure:"max_suggestions"`
	LivePageSize   int     `mapstructure:"live_page_size"`
}

// Load loads the configuration from file and environment variables
func Load() (*Config, error) {
	// Set default values
	viper.SetDefault("environment", "development")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout_seconds", 30)
	viper.SetDefault("server.write_timeout_seconds", 30)
	viper.SetDefault("server.idle_timeout_seconds", 120)

	viper.SetDefault("database.path", "./data/partfox.db")

	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("log.level", "info")

	// Catalog defaults
	viper.SetDefault("catalog.base_url", "https://api-stg-catalogo.redeancora.com.br/superbusca/api/integracao")
	viper.SetDefault("catalog.token_url", "")
	viper.SetDefault("catalog.client_id", "")
	viper.SetDefault("catalog.client_secret", "")
	viper.SetDefault("catalog.static_token", "")
	viper.SetDefault("catalog.timeout_seconds", 10)
	viper.SetDefault("catalog.rate_limit_requests", 60)
	viper.SetDefault("catalog.rate_limit_window", 60)
	viper.SetDefault("catalog.retry_count", 2)
	viper.SetDefault("catalog.token_min_ttl_seconds", 30)

	viper.SetDefault("search.page_size", 15)
	viper.SetDefault("search.term_page_size", 500)
	viper.SetDefault("search.category_page_size", 5000)
	viper.SetDefault("search.detail_page_size", 200)
	viper.SetDefault("search.cache_ttl", 10)
	viper.SetDefault("search.reference_cache_ttl", 12)
	viper.SetDefault("search.history_enabled", true)
	viper.SetDefault("search.history_retention_days", 30)

	viper.SetDefault("autocomplete.history_size", 4)
	viper.SetDefault("autocomplete.similarity", "distance")
	viper.SetDefault("autocomplete.max_distance", 2)
	viper.SetDefault("autocomplete.min_ratio", 0.6)
	viper.SetDefault("autocomplete.max_suggestions", 8)
	viper.SetDefault("autocomplete.live_page_size", 20)

	// Configuration file settings
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/partfox")

	// Environment variable settings
	viper.SetEnvPrefix("PARTFOX")
	viper.AutomaticEnv()

	// Set key replacer to handle nested keys
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read configuration file (optional)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// Config file not found, using defaults and env vars
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
