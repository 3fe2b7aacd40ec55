package initializer

import (
	"fmt"
	"log/slog"

	"github.com/amirasaad/btcvest/infra"
	infra_cache "github.com/amirasaad/btcvest/infra/cache"
	infra_eventbus "github.com/amirasaad/btcvest/infra/eventbus"
	infra_provider "github.com/amirasaad/btcvest/infra/provider"
	infra_repository "github.com/amirasaad/btcvest/infra/repository"
	"github.com/amirasaad/btcvest/infra/repository/memory"
	"github.com/amirasaad/btcvest/pkg/app"
	"github.com/amirasaad/btcvest/pkg/config"
	"github.com/amirasaad/btcvest/pkg/price"
	"gorm.io/gorm"
)

// InitializeDependencies builds the logger, store, price cache and event bus
// selected by cfg. On error anything already opened is closed.
func InitializeDependencies(cfg *config.App) (deps *app.Deps, err error) {
	deps = &app.Deps{}
	logger := setupLogger(cfg.Log)
	deps.Logger = logger
	defer func() {
		if err != nil {
			_ = deps.Close()
			deps = nil
		}
	}()

	if err = initStore(cfg, deps); err != nil {
		return deps, err
	}
	if err = initPrices(cfg, deps); err != nil {
		return deps, err
	}
	if err = initEventBus(cfg, deps); err != nil {
		return deps, err
	}
	return deps, nil
}

func initStore(cfg *config.App, deps *app.Deps) error {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		deps.Logger.Warn("Using in-memory store; balances are lost on restart")
		deps.Uow = memory.NewUoW(memory.NewStore())
		return nil
	default:
		db, err := infra.NewDBConnection(cfg.DB, cfg.Env)
		if err != nil {
			deps.Logger.Error("Failed to initialize database", "error", err)
			return err
		}
		return attachDB(db, deps)
	}
}

// attachDB registers the pool for Close before migrating, so a failed
// migration still releases it.
func attachDB(db *gorm.DB, deps *app.Deps) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	deps.Closers = append(deps.Closers, sqlDB)
	if err := infra_repository.Migrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	deps.Uow = infra_repository.NewUoW(db)
	return nil
}

func initPrices(cfg *config.App, deps *app.Deps) error {
	providers, err := buildProviders(cfg.Price, deps.Logger)
	if err != nil {
		return err
	}

	var store price.Store
	switch cfg.Price.Store {
	case config.DriverRedis:
		slot, err := infra_cache.NewRedisSlotFromURL(cfg.Redis.URL, cfg.Redis.KeyPrefix, cfg.Price.StaleTTL, deps.Logger)
		if err != nil {
			return fmt.Errorf("failed to create Redis price store: %w", err)
		}
		deps.Closers = append(deps.Closers, slot)
		store = slot
	default:
		store = infra_cache.NewMemorySlot()
	}

	deps.Prices = price.NewCache(store, providers, price.Config{
		TTL:             cfg.Price.TTL,
		StaleTTL:        cfg.Price.StaleTTL,
		ProviderTimeout: cfg.Price.ProviderTimeout,
		DisableFallback: cfg.Price.DisableFallback,
		FallbackMin:     cfg.Price.FallbackMin,
		FallbackMax:     cfg.Price.FallbackMax,
	}, deps.Logger)
	return nil
}

func buildProviders(cfg *config.Price, logger *slog.Logger) ([]price.Provider, error) {
	factories := map[string]func() price.Provider{
		"coingecko": func() price.Provider {
			return infra_provider.NewCoinGecko(cfg.CoinGeckoURL, cfg.ProviderTimeout, logger)
		},
		"coinmarketcap": func() price.Provider {
			return infra_provider.NewCoinMarketCap(cfg.CoinMarketCapURL, cfg.CoinMarketCapAPIKey, cfg.ProviderTimeout, logger)
		},
		"static": func() price.Provider {
			return infra_provider.NewStatic(cfg.StaticValue)
		},
	}
	providers := make([]price.Provider, 0, len(cfg.Providers))
	for _, name := range cfg.Providers {
		if name == "" {
			continue
		}
		factory, ok := factories[name]
		if !ok {
			return nil, fmt.Errorf("unknown price provider %q", name)
		}
		providers = append(providers, factory())
	}
	logger.Info("Price providers configured", "providers", cfg.Providers)
	return providers, nil
}

func initEventBus(cfg *config.App, deps *app.Deps) error {
	switch cfg.EventBus.Driver {
	case config.DriverKafka:
		bus, err := infra_eventbus.NewWithKafka(infra_eventbus.KafkaConfig{
			Brokers: cfg.EventBus.KafkaBrokers,
			Topic:   cfg.EventBus.KafkaTopic,
			GroupID: cfg.EventBus.KafkaGroupID,
		}, deps.Logger)
		if err != nil {
			return fmt.Errorf("failed to create Kafka event bus: %w", err)
		}
		deps.Closers = append(deps.Closers, bus)
		deps.EventBus = bus
	default:
		deps.EventBus = infra_eventbus.NewWithMemory(deps.Logger)
	}
	return nil
}
