package bootstrap

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/target/mmk-prompt-jobs/config"
)

// InitLogger initializes the structured logger at the given level (debug, info, warn, error).
// Development mode logs text instead of JSON.
func InitLogger(level string, isDev bool) *slog.Logger {
	logger := newLogger(os.Stdout, level, isDev)
	slog.SetDefault(logger)
	return logger
}

func newLogger(w io.Writer, level string, isDev bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(level)}
	if isDev {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLogLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (config.AppConfig, error) {
	// Load .env file if it exists (development)
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return config.AppConfig{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg config.AppConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()
	return cfg, nil
}

// ValidateServiceConfig checks that at least one known service is enabled and that
// the HTTP service has what it needs to run the queue and accept callbacks.
func ValidateServiceConfig(cfg *config.AppConfig) error {
	if cfg == nil {
		return errors.New("service config is required")
	}
	services, err := cfg.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("invalid service configuration: %w", err)
	}

	if len(services) == 0 {
		return errors.New("no services enabled")
	}

	if services[config.ServiceModeHTTP] {
		if cfg.Callback.Secret == "" {
			return errors.New("CALLBACK_SECRET is required when the http service is enabled")
		}
		if cfg.Backend.Kind == config.BackendRemote && cfg.Backend.Remote.URL == "" {
			return errors.New("BACKEND_REMOTE_URL is required for the remote backend")
		}
	}
	if services[config.ServiceModeStatsReporter] && !services[config.ServiceModeHTTP] &&
		cfg.Store.Kind == config.StoreMemory {
		return errors.New("stats-reporter without http cannot observe a memory store")
	}

	return nil
}

// GetEnabledServices returns a sorted list of enabled service names.
func GetEnabledServices(cfg *config.AppConfig) []string {
	if cfg == nil {
		return []string{}
	}
	services, err := cfg.GetEnabledServices()
	if err != nil {
		// Return empty list on error - validation will catch this
		return []string{}
	}

	enabledServices := make([]string, 0, len(services))
	for svc, on := range services {
		if on {
			enabledServices = append(enabledServices, string(svc))
		}
	}
	slices.Sort(enabledServices)
	return enabledServices
}
