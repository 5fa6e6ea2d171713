// Package config holds the application configuration, read from environment
// variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/shopspring/decimal"

	// Load environment variables from .env files when present.
	_ "github.com/joho/godotenv/autoload"
)

// DefaultTolerance is the absolute monetary gap accepted between an
// invoice's printed total and the sum of its extracted items.
const DefaultTolerance = "0.1"

// Config holds all application configuration
type Config struct {
	// InputDir is scanned (non-recursively) for invoice PDFs.
	InputDir string
	// OutputDir receives the per-document and aggregate reports.
	OutputDir string
	// Tolerance for the total reconciliation check.
	Tolerance decimal.Decimal
	// WriteXLSX also emits the aggregate report as an XLSX workbook.
	WriteXLSX bool
	// WriteJSON also emits the aggregate report as JSON.
	WriteJSON bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	tolerance, err := decimal.NewFromString(getEnv("OVHBILL_TOLERANCE", DefaultTolerance))
	if err != nil {
		return nil, fmt.Errorf("invalid OVHBILL_TOLERANCE: %w", err)
	}
	if tolerance.IsNegative() {
		return nil, fmt.Errorf("OVHBILL_TOLERANCE must not be negative")
	}

	return &Config{
		InputDir:  getEnv("OVHBILL_INPUT_DIR", "./input"),
		OutputDir: getEnv("OVHBILL_OUTPUT_DIR", "./output"),
		Tolerance: tolerance,
		WriteXLSX: getEnvAsBool("OVHBILL_WRITE_XLSX", false),
		WriteJSON: getEnvAsBool("OVHBILL_WRITE_JSON", false),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
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
