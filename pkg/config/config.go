package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for auditlens-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (database password, AI API keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8200"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// MigrationsPath is the directory containing SQL migrations.
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`

	// AI holds generative-text provider settings for the LLM money-loss estimator.
	AI AIConfig `yaml:"ai"`

	// ML holds regression-model settings for the ML money-loss estimator.
	ML MLConfig `yaml:"ml"`

	// Analysis holds pipeline defaults.
	Analysis AnalysisConfig `yaml:"analysis"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"auditlens"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"auditlens_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// AIConfig holds generative-text provider configuration.
// Provider may be empty, in which case the LLM estimation path reports
// itself unavailable and the hybrid engine degrades to ML-only.
type AIConfig struct {
	Provider    string  `yaml:"provider" env:"AI_PROVIDER" env-default:""` // "openai" | "anthropic" | ""
	BaseURL     string  `yaml:"base_url" env:"AI_BASE_URL" env-default:""`
	Model       string  `yaml:"model" env:"AI_MODEL" env-default:""`
	APIKey      string  `yaml:"-" env:"AI_API_KEY"` // Secret - not in YAML
	Temperature float64 `yaml:"temperature" env:"AI_TEMPERATURE" env-default:"0.3"`
	MaxTokens   int     `yaml:"max_tokens" env:"AI_MAX_TOKENS" env-default:"1000"`
	// TimeoutSeconds bounds each generative call; failures degrade, never abort a run.
	TimeoutSeconds int `yaml:"timeout_seconds" env:"AI_TIMEOUT_SECONDS" env-default:"60"`
}

// IsConfigured returns true if a generative-text provider is configured.
func (c *AIConfig) IsConfigured() bool {
	return c.Provider != ""
}

// MLConfig holds regression model configuration.
type MLConfig struct {
	// ModelPath points at the versioned weights file. A missing file means
	// "not trained" and the estimator falls back to severity constants.
	ModelPath string `yaml:"model_path" env:"ML_MODEL_PATH" env-default:"storage/ml_models/money_loss_model.yaml"`
}

// AnalysisConfig holds pipeline defaults for analysis runs.
type AnalysisConfig struct {
	// UseLLM enables the generative money-loss path by default. Disabled
	// out of the box to avoid uncontrolled external calls per row.
	UseLLM bool `yaml:"use_llm" env:"ANALYSIS_USE_LLM" env-default:"false"`
	// UseML enables the regression money-loss path by default.
	UseML bool `yaml:"use_ml" env:"ANALYSIS_USE_ML" env-default:"true"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time and set on the
// returned Config. Missing config.yaml is not an error: env defaults apply.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints that cleanenv cannot express.
func (c *Config) Validate() error {
	switch c.AI.Provider {
	case "", "openai", "anthropic":
	default:
		return fmt.Errorf("unknown AI provider %q (want openai, anthropic, or empty)", c.AI.Provider)
	}
	if c.AI.Provider != "" && c.AI.Model == "" {
		return fmt.Errorf("ai.model is required when ai.provider is set")
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
