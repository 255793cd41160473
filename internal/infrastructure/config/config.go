// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	dsn := cfg.Database.DSN()
//	apiKey := cfg.Warehance.APIKey
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the entire application configuration
type Config struct {
	Warehance     WarehanceConfig     `yaml:"warehance"`
	Database      DatabaseConfig      `yaml:"database"`
	Server        ServerConfig        `yaml:"server"`
	Sync          SyncConfig          `yaml:"sync"`
	Email         EmailConfig         `yaml:"email"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// WarehanceConfig holds Warehance API configuration
type WarehanceConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// DatabaseConfig holds database configuration.
// Driver selects the SQL dialect: "sqlite" or "postgres".
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	// Path is used by the sqlite driver.
	Path string `yaml:"path"`
	// URL is used by the postgres driver (standard connection string).
	URL string `yaml:"url"`
}

// DSN returns the driver-appropriate data source name.
func (d DatabaseConfig) DSN() string {
	if d.Driver == "postgres" {
		return d.URL
	}
	return d.Path
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// SyncConfig holds sync pipeline settings
type SyncConfig struct {
	PageSize          int    `yaml:"page_size"`
	MaxRetries        int    `yaml:"max_retries"`
	RetryDelaySeconds int    `yaml:"retry_delay_seconds"`
	// Schedule is a cron expression; empty disables scheduled syncs.
	Schedule string `yaml:"schedule"`
}

// EmailConfig holds report-share email settings
type EmailConfig struct {
	SendGridAPIKey string `yaml:"sendgrid_api_key"`
	FromAddress    string `yaml:"from_address"`
	FromName       string `yaml:"from_name"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging   LoggingConfig `yaml:"logging"`
	SentryDSN string        `yaml:"sentry_dsn"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${WAREHANCE_API_KEY})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	cfg := &Config{
		Warehance: WarehanceConfig{
			APIKey:  os.Getenv("WAREHANCE_API_KEY"),
			BaseURL: getEnv("WAREHANCE_API_URL", "https://api.warehance.com/v1"),
		},
		Database: DatabaseConfig{
			Driver: getEnv("DATABASE_DRIVER", "sqlite"),
			Path:   getEnv("DATABASE_PATH", "warehance_returns.db"),
			URL:    os.Getenv("DATABASE_URL"),
		},
		Server: ServerConfig{
			Port: getEnvInt("APP_PORT", 8080),
		},
		Sync: SyncConfig{
			PageSize:          getEnvInt("API_PAGE_SIZE", 100),
			MaxRetries:        getEnvInt("MAX_RETRIES", 3),
			RetryDelaySeconds: getEnvInt("RETRY_DELAY_SECONDS", 5),
			Schedule:          os.Getenv("SYNC_SCHEDULE"),
		},
		Email: EmailConfig{
			SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
			FromAddress:    os.Getenv("EMAIL_FROM"),
			FromName:       getEnv("EMAIL_FROM_NAME", "Warehance Returns"),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "text"),
			},
			SentryDSN: os.Getenv("SENTRY_DSN"),
		},
	}
	cfg.applyDefaults()
	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath tries to load from specified path, falls back to environment variables
func LoadOrEnvWithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// applyDefaults fills zero values that have sensible defaults
func (c *Config) applyDefaults() {
	if c.Warehance.BaseURL == "" {
		c.Warehance.BaseURL = "https://api.warehance.com/v1"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "warehance_returns.db"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Sync.PageSize == 0 {
		c.Sync.PageSize = 100
	}
	if c.Sync.MaxRetries == 0 {
		c.Sync.MaxRetries = 3
	}
	if c.Sync.RetryDelaySeconds == 0 {
		c.Sync.RetryDelaySeconds = 5
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
	if c.Observability.Logging.Format == "" {
		c.Observability.Logging.Format = "text"
	}
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}
