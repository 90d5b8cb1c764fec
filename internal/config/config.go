// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds application configuration
type Config struct {
	DataDir         string // Base directory for all databases (always absolute)
	QuoteAPIBaseURL string // Market data provider base URL
	QuoteAPIKey     string
	JWTSecret       string
	LogLevel        string
	StartingCash    decimal.Decimal // Credited to every new account
	Port            int
	DevMode         bool
	Backup          *BackupConfig
}

// BackupConfig holds the off-site database backup settings. Disabled unless
// an S3 bucket is configured.
type BackupConfig struct {
	Enabled   bool
	S3Bucket  string
	S3Region  string
	S3Prefix  string
	AccessKey string
	SecretKey string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Determine data directory: BROKER_DATA_DIR, defaulting to ./data,
	// always resolved to an absolute path that exists.
	dataDir := getEnv("BROKER_DATA_DIR", "data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	startingCash, err := decimal.NewFromString(getEnv("STARTING_CASH", "10000.00"))
	if err != nil || startingCash.IsNegative() {
		return nil, fmt.Errorf("invalid STARTING_CASH: %q", os.Getenv("STARTING_CASH"))
	}

	cfg := &Config{
		DataDir:         absDataDir,
		Port:            getEnvAsInt("PORT", 8080),
		DevMode:         getEnvAsBool("DEV_MODE", false),
		QuoteAPIBaseURL: getEnv("QUOTE_API_BASE_URL", "https://finnhub.io/api/v1"),
		QuoteAPIKey:     getEnv("QUOTE_API_KEY", ""),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		StartingCash:    startingCash,
		Backup:          loadBackupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.JWTSecret == "" {
		if !c.DevMode {
			return fmt.Errorf("JWT_SECRET is required outside dev mode")
		}
		// Dev mode gets a fixed secret so tokens survive restarts locally
		c.JWTSecret = "dev-secret-do-not-use-in-production"
	}
	return nil
}

// BrokerDBPath returns the path to the broker database
func (c *Config) BrokerDBPath() string {
	return filepath.Join(c.DataDir, "broker.db")
}

// CacheDBPath returns the path to the cache database
func (c *Config) CacheDBPath() string {
	return filepath.Join(c.DataDir, "cache.db")
}

func loadBackupConfig() *BackupConfig {
	bucket := getEnv("BACKUP_S3_BUCKET", "")
	return &BackupConfig{
		Enabled:   bucket != "",
		S3Bucket:  bucket,
		S3Region:  getEnv("BACKUP_S3_REGION", "us-east-1"),
		S3Prefix:  getEnv("BACKUP_S3_PREFIX", "papertrade"),
		AccessKey: getEnv("BACKUP_AWS_ACCESS_KEY_ID", ""),
		SecretKey: getEnv("BACKUP_AWS_SECRET_ACCESS_KEY", ""),
	}
}

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
