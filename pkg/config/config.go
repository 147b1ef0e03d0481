package config

import (
	"fmt"
	"os"
	"strconv"

	// Load environment variables from .env files when present.
	_ "github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig
	Engine    EngineConfig
	Scheduler SchedulerConfig
	Logging   LoggingConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// EngineConfig tunes the pattern detection engine.
type EngineConfig struct {
	SimilarityThreshold float64
	AnomalyMultiplier   float64
}

// SchedulerConfig controls the nightly re-analysis job.
type SchedulerConfig struct {
	Enabled    bool
	Spec       string // cron expression
	BatchLimit int    // max stale opportunities per tick, 0 = unbounded
}

type LoggingConfig struct {
	Level string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			Database: getEnv("POSTGRES_DB", "ontrak-dev"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Engine: EngineConfig{
			SimilarityThreshold: getEnvAsFloat("ENGINE_SIMILARITY_THRESHOLD", 0.6),
			AnomalyMultiplier:   getEnvAsFloat("ENGINE_ANOMALY_MULTIPLIER", 0.1),
		},
		Scheduler: SchedulerConfig{
			Enabled:    getEnvAsBool("SCHEDULER_ENABLED", true),
			Spec:       getEnv("SCHEDULER_CRON", "0 2 * * *"),
			BatchLimit: getEnvAsInt("SCHEDULER_BATCH_LIMIT", 100),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if cfg.Engine.SimilarityThreshold <= 0 || cfg.Engine.SimilarityThreshold > 1 {
		return nil, fmt.Errorf("ENGINE_SIMILARITY_THRESHOLD must be in (0, 1], got %v", cfg.Engine.SimilarityThreshold)
	}
	if cfg.Engine.AnomalyMultiplier <= 0 {
		return nil, fmt.Errorf("ENGINE_ANOMALY_MULTIPLIER must be positive, got %v", cfg.Engine.AnomalyMultiplier)
	}

	return cfg, nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}
