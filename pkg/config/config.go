package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the reel scraper
type Config struct {
	// Database connection settings
	Database DatabaseConfig `yaml:"database" json:"database"`

	// Scrape orchestration settings
	Scrape ScrapeConfig `yaml:"scrape" json:"scrape"`

	// Global request-rate ceiling (0 disables)
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Upstream HTTP settings
	Request RequestConfig `yaml:"request" json:"request"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// DatabaseConfig selects and configures the dedup store backend
type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres"
	Driver string `yaml:"driver" json:"driver"`
	// DSN is a file path for sqlite or a connection string for postgres
	DSN string `yaml:"dsn" json:"dsn"`
}

// ScrapeConfig holds orchestrator settings
type ScrapeConfig struct {
	// Concurrency bounds the number of accounts in flight at once
	Concurrency int `yaml:"concurrency" json:"concurrency"`
	// Delay is the minimum spacing between upstream calls per worker
	Delay time.Duration `yaml:"delay" json:"delay"`
	// MaxRetries bounds transient-failure retries per account
	MaxRetries int `yaml:"max_retries" json:"max_retries"`
	// AccountsFile is an optional newline-delimited username list
	AccountsFile string `yaml:"accounts_file" json:"accounts_file"`
}

// RateLimitConfig caps aggregate upstream request rate across workers
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// RequestConfig holds upstream HTTP settings
type RequestConfig struct {
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent string        `yaml:"user_agent" json:"user_agent"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "scraper.db",
		},
		Scrape: ScrapeConfig{
			Concurrency: 3,
			Delay:       2 * time.Second,
			MaxRetries:  3,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 0,
		},
		Request: RequestConfig{
			Timeout:   30 * time.Second,
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if driver := os.Getenv("REELSCRAPER_DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("REELSCRAPER_DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if v := os.Getenv("REELSCRAPER_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Scrape.Concurrency = n
		}
	}
	if v := os.Getenv("REELSCRAPER_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			c.Scrape.Delay = d
		}
	}
	if v := os.Getenv("REELSCRAPER_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Scrape.MaxRetries = n
		}
	}
	if v := os.Getenv("REELSCRAPER_ACCOUNTS_FILE"); v != "" {
		c.Scrape.AccountsFile = v
	}
	if v := os.Getenv("REELSCRAPER_REQUESTS_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.RateLimit.RequestsPerMinute = n
		}
	}
	if v := os.Getenv("REELSCRAPER_USER_AGENT"); v != "" {
		c.Request.UserAgent = v
	}
	if v := os.Getenv("REELSCRAPER_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".reelscraper.yaml",
		".reelscraper.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "reelscraper", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "reelscraper", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".reelscraper.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	// Keep in sync with the drivers storage.Open accepts.
	switch strings.ToLower(c.Database.Driver) {
	case "sqlite", "sqlite3", "postgres", "postgresql", "pgx":
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver %q", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database DSN is required"))
	}

	if c.Scrape.Concurrency < 1 {
		errs = append(errs, errors.New("concurrency must be at least 1"))
	}
	if c.Scrape.Delay < 0 {
		errs = append(errs, errors.New("delay cannot be negative"))
	}
	if c.Scrape.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries cannot be negative"))
	}
	if c.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}
	if c.Request.Timeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// MergeCommandLineFlags merges command line flag overrides into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if driver, ok := flags["db-driver"].(string); ok && driver != "" {
		c.Database.Driver = driver
	}
	if dsn, ok := flags["db-dsn"].(string); ok && dsn != "" {
		c.Database.DSN = dsn
	}
	if concurrency, ok := flags["concurrency"].(int); ok && concurrency > 0 {
		c.Scrape.Concurrency = concurrency
	}
	if delay, ok := flags["delay"].(time.Duration); ok && delay >= 0 {
		c.Scrape.Delay = delay
	}
	if retries, ok := flags["max-retries"].(int); ok && retries >= 0 {
		c.Scrape.MaxRetries = retries
	}
	if accountsFile, ok := flags["accounts-file"].(string); ok && accountsFile != "" {
		c.Scrape.AccountsFile = accountsFile
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".reelscraper.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
