package config

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Load reads the first environment file found among envFilePath (searching
// parent directories), falling back to .env, then processes the environment.
func Load(envFilePath ...string) (*App, error) {
	logger := slog.Default()
	logger.Info("Loading environment variables")

	// If no specific paths provided, try default .env
	if len(envFilePath) == 0 {
		logger.Debug("No environment file specified, trying default .env")
		if err := godotenv.Load(); err != nil {
			logger.Warn("No .env file found in current directory")
		}
		return loadFromEnv()
	}

	for _, path := range envFilePath {
		logger.Debug("Looking for environment file", "path", path)
		foundPath, err := FindEnvFile(path)
		if err != nil {
			logger.Debug("Environment file not found", "path", path, "error", err)
			continue
		}

		logger.Info("Loading environment from file", "path", foundPath)
		if err := godotenv.Load(foundPath); err != nil {
			logger.Error("Failed to load environment file", "path", foundPath, "error", err)
			continue
		}
		return loadFromEnv()
	}

	logger.Info("No valid environment files found, using default .env")
	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file found in current directory")
	}
	return loadFromEnv()
}

func loadFromEnv() (*App, error) {
	var cfg App
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.Default().Info("App config loaded",
		"env", cfg.Env,
		"store_driver", cfg.Store.Driver,
		"db", maskValue(cfg.DB.Url),
		"price_providers", cfg.Price.Providers,
		"price_ttl", cfg.Price.TTL,
		"price_store", cfg.Price.Store,
		"coinmarketcap_api_key", maskValue(cfg.Price.CoinMarketCapAPIKey),
		"eventbus_driver", cfg.EventBus.Driver,
		"ledger_max_retries", cfg.Ledger.MaxRetries,
		"rate_limit_max_requests", cfg.RateLimit.MaxRequests,
		"rate_limit_window", cfg.RateLimit.Window,
	)
	return &cfg, nil
}

// Validate checks values envconfig cannot express.
func (a *App) Validate() error {
	if !slices.Contains([]string{DriverPostgres, DriverMemory}, a.Store.Driver) {
		return fmt.Errorf("config: STORE_DRIVER must be %s or %s, got %q", DriverPostgres, DriverMemory, a.Store.Driver)
	}
	if !slices.Contains([]string{DriverMemory, DriverRedis}, a.Price.Store) {
		return fmt.Errorf("config: PRICE_STORE must be %s or %s, got %q", DriverMemory, DriverRedis, a.Price.Store)
	}
	if !slices.Contains([]string{DriverMemory, DriverKafka}, a.EventBus.Driver) {
		return fmt.Errorf("config: EVENTBUS_DRIVER must be %s or %s, got %q", DriverMemory, DriverKafka, a.EventBus.Driver)
	}
	if !a.Price.FallbackMin.IsPositive() || !a.Price.FallbackMin.LessThan(a.Price.FallbackMax) {
		return fmt.Errorf("config: PRICE_FALLBACK_MIN must be positive and below PRICE_FALLBACK_MAX")
	}
	if a.Price.TTL <= 0 || a.Price.StaleTTL < a.Price.TTL || a.Price.ProviderTimeout <= 0 {
		return fmt.Errorf("config: PRICE_TTL and PRICE_PROVIDER_TIMEOUT must be positive and PRICE_STALE_TTL at least PRICE_TTL")
	}
	if a.Ledger.MaxRetries < 0 {
		return fmt.Errorf("config: LEDGER_MAX_RETRIES cannot be negative")
	}
	for i, p := range a.Price.Providers {
		a.Price.Providers[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return nil
}

func maskValue(key string) string {
	if len(key) <= 6 {
		return "****"
	}
	return key[:2] + "****" + key[len(key)-4:]
}
