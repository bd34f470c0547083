// Package config reads terminal configuration from the environment (optionally
// seeded from a .env file).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// Config holds process-level settings. Operator preferences such as tax rate
// live in the settings module, not here.
type Config struct {
	DatabaseURL     string
	Port            string
	JWTSecret       string
	SettingsPath    string
	ReceiptPrinter  string
	StoreName       string
	StoreAddress    string
	StorePhone      string
	CatalogRefresh  string
	ScanWindow      time.Duration
	IdentityTimeout time.Duration
	NodeID          int64
	LogMode         string
	LogFile         string
}

// LoadEnvFile loads .env into the process environment if present.
func LoadEnvFile(paths ...string) error {
	return godotenv.Load(paths...)
}

// Load builds a Config from the environment.
func Load() (*Config, error) {
	scanWindow, err := cast.ToDurationE(getEnv("SCAN_WINDOW", "200ms"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCAN_WINDOW: %w", err)
	}
	identityTimeout, err := cast.ToDurationE(getEnv("IDENTITY_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid IDENTITY_TIMEOUT: %w", err)
	}
	nodeID, err := cast.ToInt64E(getEnv("NODE_ID", "1"))
	if err != nil {
		return nil, fmt.Errorf("invalid NODE_ID: %w", err)
	}

	cfg := &Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		Port:            getEnv("APP_PORT", "8080"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		SettingsPath:    getEnv("SETTINGS_PATH", "pos-settings.db"),
		ReceiptPrinter:  os.Getenv("RECEIPT_PRINTER"),
		StoreName:       getEnv("STORE_NAME", "NNE Convenient Store"),
		StoreAddress:    os.Getenv("STORE_ADDRESS"),
		StorePhone:      os.Getenv("STORE_PHONE"),
		CatalogRefresh:  getEnv("CATALOG_REFRESH", "@every 2h"),
		ScanWindow:      scanWindow,
		IdentityTimeout: identityTimeout,
		NodeID:          nodeID,
		LogMode:         getEnv("LOG_MODE", "development"),
		LogFile:         os.Getenv("LOG_FILE"),
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
