package config

import (
	"os"
	"strconv"
	"time"

	"ideaforge/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	API       APIConfig
	Budget    BudgetConfig
	Database  DatabaseConfig
	Server    ServerConfig
	Workspace WorkspaceConfig
}

// APIConfig holds LLM provider settings. Key presence decides the strategy:
// with a key the live client is used, without one the simulation client.
type APIConfig struct {
	Key       string
	BaseURL   string
	Model     string
	Timeout   time.Duration
	MaxTokens int
}

// BudgetConfig holds the default resource ceilings for a run
type BudgetConfig struct {
	MaxTokens       int
	MaxComputeHours float64
	MaxWallClock    time.Duration
	DriftTolerance  float64
}

// DatabaseConfig holds the optional Postgres ledger mirror settings
type DatabaseConfig struct {
	URL string
}

// ServerConfig holds status API settings
type ServerConfig struct {
	Port string
}

// WorkspaceConfig holds the project directory location
type WorkspaceConfig struct {
	Root string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		API: APIConfig{
			Key:       os.Getenv("DEEPSEEK_API_KEY"),
			BaseURL:   getEnvOrDefault("DEEPSEEK_BASE_URL", "https://api.deepseek.com"),
			Model:     getEnvOrDefault("DEEPSEEK_MODEL", "deepseek-chat"),
			Timeout:   getEnvDurationOrDefault("LLM_TIMEOUT", 120*time.Second),
			MaxTokens: getEnvIntOrDefault("LLM_MAX_TOKENS", 4096),
		},
		Budget: BudgetConfig{
			MaxTokens:       getEnvIntOrDefault("BUDGET_MAX_TOKENS", 200000),
			MaxComputeHours: getEnvFloatOrDefault("BUDGET_MAX_COMPUTE_HOURS", 2.0),
			MaxWallClock:    getEnvDurationOrDefault("BUDGET_MAX_WALL_CLOCK", 1*time.Hour),
			DriftTolerance:  getEnvFloatOrDefault("DRIFT_TOLERANCE", 0.5),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Server: ServerConfig{
			Port: getEnvOrDefault("SERVER_PORT", "8090"),
		},
		Workspace: WorkspaceConfig{
			Root: getEnvOrDefault("PROJECT_ROOT", "projects/default"),
		},
	}

	if err := validate(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func validate(c *Config) error {
	if c.API.Key != "" && c.API.BaseURL == "" {
		return errors.ConfigInvalid("DEEPSEEK_BASE_URL is required when DEEPSEEK_API_KEY is set")
	}
	if c.API.MaxTokens <= 0 {
		return errors.ConfigInvalid("LLM_MAX_TOKENS must be positive")
	}
	if c.Budget.MaxTokens <= 0 {
		return errors.ConfigInvalid("BUDGET_MAX_TOKENS must be positive")
	}
	if c.Budget.MaxComputeHours <= 0 {
		return errors.ConfigInvalid("BUDGET_MAX_COMPUTE_HOURS must be positive")
	}
	if c.Budget.MaxWallClock <= 0 {
		return errors.ConfigInvalid("BUDGET_MAX_WALL_CLOCK must be positive")
	}
	if c.Workspace.Root == "" {
		return errors.ConfigInvalid("PROJECT_ROOT cannot be empty")
	}
	return nil
}

// LiveMode reports whether live API credentials are configured
func (c *Config) LiveMode() bool {
	return c.API.Key != ""
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvIntOrDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloatOrDefault(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDurationOrDefault(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
