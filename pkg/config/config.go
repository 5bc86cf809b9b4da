package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	// Application
	AppEnv   string
	LogLevel string

	// Durable key/value surface (local backend + address persistence).
	// Empty DatabaseURL selects SQLite at SQLitePath.
	DatabaseURL string
	SQLitePath  string

	// Replicated document store. Empty disables the replicated backend.
	RedisURL string

	// Change relay broker. Empty disables relaying.
	RabbitMQURL string

	// Backend selection race window.
	BootstrapTimeout time.Duration

	// Local backend cross-process change poll interval.
	PollInterval time.Duration
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("TASKMESH_DB_URL", ""),
		SQLitePath:  getEnv("TASKMESH_SQLITE_PATH", ""),
		RedisURL:    getEnv("TASKMESH_REDIS_URL", "redis://localhost:6379/0"),
		RabbitMQURL: getEnv("TASKMESH_RABBITMQ_URL", ""),

		BootstrapTimeout: getDurationEnv("TASKMESH_BOOTSTRAP_TIMEOUT", 5*time.Second),
		PollInterval:     getDurationEnv("TASKMESH_POLL_INTERVAL", 500*time.Millisecond),
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
