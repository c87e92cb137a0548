package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application. Environment
// variables are read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Rating engine
	Rating RatingConfig

	// Outbound notifications
	Notify NotifyConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	URL string

	// Connection pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration. Redis is optional; with
// Enabled=false the rating cache degrades to always-miss.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// RatingConfig holds rating engine settings that live outside the
// weight configuration document.
type RatingConfig struct {
	// WeightsFile is the YAML document holding component weights, year
	// weights and item point tables.
	WeightsFile string

	// CacheTTL is how long a computed rating is served from cache before
	// a non-forced recomputation runs again.
	CacheTTL time.Duration

	// BatchChunkSize bounds how many persons a batch recalculation
	// aggregates between cancellation checks and progress reports.
	BatchChunkSize int

	// RootInstitutionID is the institution the scheduled nightly
	// recalculation covers (0 disables the job).
	RootInstitutionID int64

	// CurrentPeriod is the academic year scheduled jobs compute for,
	// e.g. "2024-2025".
	CurrentPeriod string
}

// NotifyConfig holds webhook notification settings.
type NotifyConfig struct {
	WebhookURL string
	Timeout    time.Duration

	// RatePerSecond caps outbound webhook posts; Burst allows short
	// spikes. Zero disables throttling.
	RatePerSecond float64
	Burst         int
}

// Load reads configuration from environment variables. Only this
// function calls os.Getenv.
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},

		Rating: RatingConfig{
			WeightsFile:       getEnv("RATING_WEIGHTS_FILE", "config/rating_weights.yaml"),
			CacheTTL:          getEnvAsDuration("RATING_CACHE_TTL", "5m"),
			BatchChunkSize:    getEnvAsInt("RATING_BATCH_CHUNK_SIZE", 100),
			RootInstitutionID: getEnvAsInt64("RATING_ROOT_INSTITUTION_ID", 0),
			CurrentPeriod:     getEnv("RATING_CURRENT_PERIOD", ""),
		},

		Notify: NotifyConfig{
			WebhookURL:    getEnv("NOTIFY_WEBHOOK_URL", ""),
			Timeout:       getEnvAsDuration("NOTIFY_TIMEOUT", "10s"),
			RatePerSecond: getEnvAsFloat("NOTIFY_RATE_LIMIT", 5),
			Burst:         getEnvAsInt("NOTIFY_RATE_BURST", 1),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks required configuration values.
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Rating.BatchChunkSize <= 0 {
		return fmt.Errorf("RATING_BATCH_CHUNK_SIZE must be > 0")
	}

	return nil
}

// loadEnvFile tries to load .env from a few likely locations.
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

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
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
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
