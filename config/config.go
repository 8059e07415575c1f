package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Optimizer OptimizerConfig `mapstructure:"optimizer"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
	Merchants MerchantsConfig `mapstructure:"merchants"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	Environment    string        `mapstructure:"environment"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

// CatalogConfig holds product catalog API configuration
type CatalogConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	APIKey        string        `mapstructure:"api_key"`
	Timeout       time.Duration `mapstructure:"timeout"`
	PageSize      int           `mapstructure:"page_size"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	Burst         int           `mapstructure:"burst"`
	MaxRetries    int           `mapstructure:"max_retries"`
}

// CacheConfig holds offer cache configuration
type CacheConfig struct {
	Type string        `mapstructure:"type"` // "memory" or "none"
	TTL  time.Duration `mapstructure:"ttl"`
}

// StorageConfig selects the shopping list database
type StorageConfig struct {
	Driver      string `mapstructure:"driver"` // "sqlite" or "postgres"
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresURL string `mapstructure:"postgres_url"`
}

// OptimizerConfig tunes the cart optimization pipeline
type OptimizerConfig struct {
	FetchWorkers              int           `mapstructure:"fetch_workers"`
	SearchTimeout             time.Duration `mapstructure:"search_timeout"`
	ConsiderAlternatives      bool          `mapstructure:"consider_alternatives"`
	AlternativeScoreTolerance float64       `mapstructure:"alternative_score_tolerance"`
	DebugLogging              bool          `mapstructure:"debug_logging"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// MerchantsConfig overrides the merchant reference tables
type MerchantsConfig struct {
	Names           map[string]string `mapstructure:"names"`
	NumericNames    map[string]string `mapstructure:"numeric_names"`
	LogoURLTemplate string            `mapstructure:"logo_url_template"`
}

// Load loads configuration from .env, an optional config.yaml and CARTWISE_* environment variables
func Load() (*Config, error) {
	return load("")
}

// LoadFile is like Load but reads the given config file, which must exist
func LoadFile(path string) (*Config, error) {
	return load(path)
}

func load(configFile string) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/cartwise/")
	}

	v.SetEnvPrefix("CARTWISE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
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

// loadEnvFile loads a .env file from the working directory into the process
// environment. A missing file is not an error; variables already set win.
func loadEnvFile() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error reading .env file: %w", err)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*"})
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")

	v.SetDefault("catalog.base_url", "https://catalog.cartwise.app/api")
	v.SetDefault("catalog.api_key", "")
	v.SetDefault("catalog.timeout", "10s")
	v.SetDefault("catalog.page_size", 20)
	v.SetDefault("catalog.rate_per_second", 5.0)
	v.SetDefault("catalog.burst", 10)
	v.SetDefault("catalog.max_retries", 2)

	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", "30m")

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.sqlite_path", "./data/cartwise.db")
	v.SetDefault("storage.postgres_url", "")

	v.SetDefault("optimizer.fetch_workers", 4)
	v.SetDefault("optimizer.search_timeout", "5s")
	v.SetDefault("optimizer.consider_alternatives", false)
	v.SetDefault("optimizer.alternative_score_tolerance", 0.0)
	v.SetDefault("optimizer.debug_logging", false)

	v.SetDefault("ratelimit.per_ip", 120)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("merchants.logo_url_template", "https://cdn.cartwise.app/merchants/{id}.png")
}

// validate validates the configuration
func validate(config *Config) error {
	if strings.TrimSpace(config.Catalog.BaseURL) == "" {
		return fmt.Errorf("catalog base URL is required (set CARTWISE_CATALOG_BASE_URL)")
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "none" {
		return fmt.Errorf("cache type must be 'memory' or 'none', got: %s", config.Cache.Type)
	}

	switch config.Storage.Driver {
	case "sqlite":
		if config.Storage.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required when storage driver is 'sqlite'")
		}
	case "postgres":
		if config.Storage.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required when storage driver is 'postgres'")
		}
	default:
		return fmt.Errorf("storage driver must be 'sqlite' or 'postgres', got: %s", config.Storage.Driver)
	}

	if config.Optimizer.FetchWorkers <= 0 {
		return fmt.Errorf("optimizer fetch workers must be positive, got: %d", config.Optimizer.FetchWorkers)
	}

	if config.Optimizer.AlternativeScoreTolerance < 0 {
		return fmt.Errorf("alternative score tolerance must not be negative, got: %v", config.Optimizer.AlternativeScoreTolerance)
	}

	if !strings.Contains(config.Merchants.LogoURLTemplate, "{id}") {
		return fmt.Errorf("merchant logo URL template must contain {id}, got: %s", config.Merchants.LogoURLTemplate)
	}

	return nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
