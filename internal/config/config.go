package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	apperrors "github.com/kurihiro0119/github-profile-miner/internal/errors"
)

// Config holds the application configuration
type Config struct {
	// GitHub
	GitHubToken string

	// Mining defaults
	Workers      int
	OutputPrefix string

	// Run history storage
	StorageType string // "sqlite" or "postgres"
	SQLitePath  string
	PostgresURL string

	// API Server
	APIPort string
	APIHost string

	// CLI
	APIEndpoint string
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	return &Config{
		GitHubToken:  getEnv("GITHUB_TOKEN", ""),
		Workers:      getEnvInt("MINER_WORKERS", 2),
		OutputPrefix: getEnv("MINER_OUTPUT_PREFIX", "github_mining_results"),
		StorageType:  getEnv("STORAGE_TYPE", "sqlite"),
		SQLitePath:   getEnv("SQLITE_PATH", "./miner_runs.db"),
		PostgresURL:  getEnv("POSTGRES_URL", ""),
		APIPort:      getEnv("API_PORT", "8080"),
		APIHost:      getEnv("API_HOST", "localhost"),
		APIEndpoint:  getEnv("API_ENDPOINT", "http://localhost:8080"),
	}, nil
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.GitHubToken == "" {
		return apperrors.NewConfigurationError("GITHUB_TOKEN: GitHub token is required")
	}
	if c.StorageType != "sqlite" && c.StorageType != "postgres" {
		return apperrors.NewConfigurationError("STORAGE_TYPE: must be 'sqlite' or 'postgres'")
	}
	if c.StorageType == "postgres" && c.PostgresURL == "" {
		return apperrors.NewConfigurationError("POSTGRES_URL: PostgreSQL URL is required when STORAGE_TYPE is 'postgres'")
	}
	return nil
}
