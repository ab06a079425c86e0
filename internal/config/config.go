// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/aristath/fundcore/internal/reliability"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

// Config holds application configuration
type Config struct {
	DataDir        string // Base directory for all databases (always absolute)
	LogLevel       string
	FundConfigFile string
	Port           int `validate:"gte=1,lte=65535"`
	DevMode        bool
	Schedules      Schedules
	Backup         BackupConfig
	Fund           FundConfig
}

// Schedules holds the cron schedules of the maintenance jobs.
type Schedules struct {
	Maintenance  string `validate:"required"`
	WALCheck     string `validate:"required"`
	AlertCleanup string `validate:"required"`
}

// BackupConfig configures ledger backups to an S3-compatible bucket.
type BackupConfig struct {
	Schedule      string
	RetentionDays int `validate:"gte=0"`
	Enabled       bool
	S3            reliability.S3Config
}

// Load reads configuration from environment variables and the fund
// configuration file they point at.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:        absDataDir,
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		FundConfigFile: getEnv("FUND_CONFIG_FILE", ""),
		Port:           getEnvAsInt("PORT", 8001),
		DevMode:        getEnvAsBool("DEV_MODE", false),
		Schedules: Schedules{
			Maintenance:  getEnv("MAINTENANCE_SCHEDULE", "0 0 2 * * *"),
			WALCheck:     getEnv("WAL_CHECK_SCHEDULE", "@every 15m"),
			AlertCleanup: getEnv("ALERT_CLEANUP_SCHEDULE", "@hourly"),
		},
		Backup: BackupConfig{
			Enabled:       getEnvAsBool("BACKUP_ENABLED", false),
			Schedule:      getEnv("BACKUP_SCHEDULE", "0 0 3 * * *"),
			RetentionDays: getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
			S3: reliability.S3Config{
				Endpoint:        getEnv("BACKUP_S3_ENDPOINT", ""),
				Region:          getEnv("BACKUP_S3_REGION", ""),
				Bucket:          getEnv("BACKUP_S3_BUCKET", ""),
				AccessKeyID:     getEnv("BACKUP_S3_ACCESS_KEY_ID", ""),
				SecretAccessKey: getEnv("BACKUP_S3_SECRET_ACCESS_KEY", ""),
				UsePathStyle:    getEnvAsBool("BACKUP_S3_USE_PATH_STYLE", false),
			},
		},
	}

	fundCfg, err := LoadFund(cfg.FundConfigFile, getEnv("FUND_ID", "fund"))
	if err != nil {
		return nil, err
	}
	cfg.Fund = fundCfg

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the whole configuration, fund sections included.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Backup.Enabled {
		if c.Backup.S3.Bucket == "" {
			return fmt.Errorf("invalid config: BACKUP_S3_BUCKET is required when backups are enabled")
		}
		if c.Backup.Schedule == "" {
			return fmt.Errorf("invalid config: BACKUP_SCHEDULE is required when backups are enabled")
		}
	}
	return c.Fund.Validate()
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
