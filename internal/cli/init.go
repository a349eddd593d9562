// Package cli provides the shared initialization steps for cmd
// binaries: env file, logging, configuration and the ledger stack.
package cli

import (
	"os"

	"github.com/joho/godotenv"

	"khata/internal/cache"
	"khata/internal/config"
	"khata/internal/core"
	"khata/internal/log"
	"khata/internal/services"
	"khata/internal/storage"
)

// LoadEnvFile loads the .env file for local development. Errors are
// ignored silently as the file is optional.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the application logger from config and installs
// it as the slog default.
func SetupLogger(cfg *config.Config) *log.Logger {
	handler := log.NewHandler(cfg.LogFormat, log.ParseLevel(cfg.LogLevel))
	logger := log.New(handler, log.ComponentApp)
	log.SetDefault(logger)
	return logger
}

// ValidateConfig exits the process when the configuration is invalid.
// It runs after SetupLogger so the failure is reported through the
// configured handler.
func ValidateConfig(logger *log.Logger, cfg *config.Config) {
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
}

// NewLedger wires the SQLite store, the stats cache and the ledger
// service from config. The store opens lazily on first use.
func NewLedger(cfg *config.Config) *services.LedgerService {
	store := storage.New(cfg.DBPath)
	stats := cache.NewLRUCache[core.PersonStats](cfg.StatsCacheSize, cfg.StatsCacheTTL)
	return services.NewLedgerService(store, stats)
}
