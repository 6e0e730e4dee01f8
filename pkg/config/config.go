package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: every environment variable is read here and nowhere else
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database (feedback storage, optional)
	Database DatabaseConfig

	// Redis (series cache + rate limiting, optional)
	Redis RedisConfig

	// External APIs
	Gemini GeminiConfig
	Yahoo  YahooConfig

	// Pipeline
	Analysis AnalysisConfig

	// Scheduler
	Scheduler SchedulerConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Enabled reports whether a database URL was configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// GeminiConfig holds the generative-text collaborator configuration.
// It is handed to the report composer and chat service at construction.
type GeminiConfig struct {
	APIKey            string
	Model             string
	Timeout           time.Duration
	RequestsPerSecond int
}

// YahooConfig holds Yahoo Finance endpoints and the fetch window
type YahooConfig struct {
	ChartURL string
	QuoteURL string
	Range    string // lookback period, e.g. 1mo
	Interval string // bar interval, e.g. 1d
}

// AnalysisConfig holds pipeline settings
type AnalysisConfig struct {
	VisualizationDir string
	FetchTimeout     time.Duration
	NewsTimeout      time.Duration
	ReportTimeout    time.Duration
	SeriesCacheTTL   time.Duration
}

// SchedulerConfig holds the watchlist refresh settings
type SchedulerConfig struct {
	Watchlist []string
	Cron      string
	File      string // optional YAML watchlist, overrides Watchlist and Cron
}

// Load reads configuration from environment variables
// ⭐ SSOT: the only function that calls os.Getenv()
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8000"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Gemini: GeminiConfig{
			APIKey:            getEnv("GEMINI_API_KEY", ""),
			Model:             getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			Timeout:           getEnvAsDuration("GEMINI_TIMEOUT", "60s"),
			RequestsPerSecond: getEnvAsInt("GEMINI_RPS", 2),
		},

		Yahoo: YahooConfig{
			ChartURL: getEnv("YAHOO_CHART_URL", "https://query1.finance.yahoo.com/v8/finance/chart"),
			QuoteURL: getEnv("YAHOO_QUOTE_URL", "https://finance.yahoo.com/quote"),
			Range:    getEnv("YAHOO_RANGE", "1mo"),
			Interval: getEnv("YAHOO_INTERVAL", "1d"),
		},

		Analysis: AnalysisConfig{
			VisualizationDir: getEnv("VISUALIZATION_DIR", "visualizations"),
			FetchTimeout:     getEnvAsDuration("FETCH_TIMEOUT", "20s"),
			NewsTimeout:      getEnvAsDuration("NEWS_TIMEOUT", "10s"),
			ReportTimeout:    getEnvAsDuration("REPORT_TIMEOUT", "60s"),
			SeriesCacheTTL:   getEnvAsDuration("SERIES_CACHE_TTL", "10m"),
		},

		Scheduler: SchedulerConfig{
			Watchlist: getEnvAsList("WATCHLIST"),
			Cron:      getEnv("WATCHLIST_CRON", "0 0 18 * * 1-5"),
			File:      getEnv("WATCHLIST_FILE", ""),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if configuration values are usable
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Yahoo.Range == "" || c.Yahoo.Interval == "" {
		return fmt.Errorf("YAHOO_RANGE and YAHOO_INTERVAL must not be empty")
	}

	if c.Analysis.VisualizationDir == "" {
		return fmt.Errorf("VISUALIZATION_DIR must not be empty")
	}

	if c.Gemini.RequestsPerSecond <= 0 {
		return fmt.Errorf("GEMINI_RPS must be positive")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// getEnvAsList splits a comma separated value, upper-casing symbols
func getEnvAsList(key string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
