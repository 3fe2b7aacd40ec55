package initializer

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	infra_eventbus "github.com/amirasaad/btcvest/infra/eventbus"
	"github.com/amirasaad/btcvest/infra/repository/memory"
	"github.com/amirasaad/btcvest/pkg/app"
	"github.com/amirasaad/btcvest/pkg/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func testConfig() *config.App {
	return &config.App{
		Env:   "test",
		Log:   &config.Log{Level: 8, Format: "text"},
		DB:    &config.DB{},
		Store: &config.Store{Driver: config.DriverMemory},
		Redis: &config.Redis{URL: "redis://localhost:6379/0", KeyPrefix: "test:"},
		Price: &config.Price{
			TTL:             30 * time.Second,
			StaleTTL:        time.Hour,
			ProviderTimeout: time.Second,
			DisableFallback: true,
			FallbackMin:     decimal.NewFromInt(45000),
			FallbackMax:     decimal.NewFromInt(55000),
			Providers:       []string{"static"},
			StaticValue:     decimal.NewFromInt(42000),
			Store:           config.DriverMemory,
		},
		Ledger:   &config.Ledger{MaxRetries: 3},
		EventBus: &config.EventBus{Driver: config.DriverMemory},
	}
}

func TestInitializeDependencies_Memory(t *testing.T) {
	deps, err := InitializeDependencies(testConfig())
	require.NoError(t, err)
	defer deps.Close() //nolint:errcheck

	assert.IsType(t, &memory.UoW{}, deps.Uow)
	assert.IsType(t, &infra_eventbus.MemoryEventBus{}, deps.EventBus)

	p, err := deps.Prices.CurrentPrice(context.Background())
	require.NoError(t, err)
	assert.True(t, p.Equal(decimal.NewFromInt(42000)))
}

func TestInitializeDependencies_UnknownProvider(t *testing.T) {
	cfg := testConfig()
	cfg.Price.Providers = []string{"binance"}
	_, err := InitializeDependencies(cfg)
	assert.ErrorContains(t, err, "binance")
}

func TestInitializeDependencies_PostgresRequiresURL(t *testing.T) {
	cfg := testConfig()
	cfg.Store.Driver = config.DriverPostgres
	_, err := InitializeDependencies(cfg)
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestInitializeDependencies_KafkaBus(t *testing.T) {
	cfg := testConfig()
	cfg.EventBus = &config.EventBus{Driver: config.DriverKafka, KafkaBrokers: "localhost:9092"}
	deps, err := InitializeDependencies(cfg)
	require.NoError(t, err)
	assert.IsType(t, &infra_eventbus.KafkaEventBus{}, deps.EventBus)
	assert.NoError(t, deps.Close())
}

func TestNewLogger_WritesThroughSlog(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, &config.Log{Format: "json", Prefix: "[btcvest]"})
	logger.Info("hello", "account_id", "abc")
	assert.Contains(t, buf.String(), `"account_id":"abc"`)
	assert.Contains(t, buf.String(), "hello")
}

func TestAttachDB_FailedMigrationStillReleasesPool(t *testing.T) {
	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"}), &gorm.Config{})
	require.NoError(t, err)

	deps := &app.Deps{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	err = attachDB(db, deps)

	require.Error(t, err)
	assert.Nil(t, deps.Uow)
	require.Len(t, deps.Closers, 1)
	assert.Same(t, mockDB, deps.Closers[0])
}
