package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/amirasaad/btcvest/pkg/price"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the key the price slot is stored under, after the prefix.
const DefaultRedisKey = "price:btc:usd"

// RedisSlot implements price.Store in Redis so replicas share one quote.
type RedisSlot struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisSlot creates a slot stored at prefix+DefaultRedisKey. ttl bounds how
// long Redis keeps the entry; it should be at least the cache's stale window.
func NewRedisSlot(client redis.UniversalClient, prefix string, ttl time.Duration, logger *slog.Logger) *RedisSlot {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisSlot{client: client, key: prefix + DefaultRedisKey, ttl: ttl, logger: logger}
}

// NewRedisSlotFromURL parses a redis:// URL and creates a slot on a new client.
func NewRedisSlotFromURL(url, prefix string, ttl time.Duration, logger *slog.Logger) (*RedisSlot, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return NewRedisSlot(redis.NewClient(opt), prefix, ttl, logger), nil
}

// Load returns the quote stored in Redis. A missing key is a miss, not an error.
func (r *RedisSlot) Load(ctx context.Context) (price.Quote, bool, error) {
	val, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		r.logger.Debug("Redis price slot miss", "key", r.key)
		return price.Quote{}, false, nil
	}
	if err != nil {
		r.logger.Error("Redis price slot get error", "key", r.key, "error", err)
		return price.Quote{}, false, err
	}
	q, err := decodeQuote(val)
	if err != nil {
		r.logger.Error("Redis price slot unmarshal error", "key", r.key, "error", err)
		return price.Quote{}, false, err
	}
	return q, true, nil
}

// Save writes the quote with the configured expiry.
func (r *RedisSlot) Save(ctx context.Context, q price.Quote) error {
	data, err := encodeQuote(q)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key, data, r.ttl).Err(); err != nil {
		r.logger.Error("Redis price slot set error", "key", r.key, "error", err)
		return err
	}
	r.logger.Debug("Redis price slot set", "key", r.key, "price", q.Price, "source", q.Source)
	return nil
}

// Close releases the underlying client.
func (r *RedisSlot) Close() error {
	return r.client.Close()
}

func encodeQuote(q price.Quote) ([]byte, error) {
	return json.Marshal(q)
}

func decodeQuote(data []byte) (price.Quote, error) {
	var q price.Quote
	err := json.Unmarshal(data, &q)
	return q, err
}
