package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/omniwallet/nft-engine/env"
)

// ErrKeyNotFound is returned when a key is not present in the cache
type ErrKeyNotFound struct {
	Key string
}

func (e ErrKeyNotFound) Error() string {
	return fmt.Sprintf("key %s not found", e.Key)
}

type redisDB int

// Every cache is uniquely defined by its database and key prefix.
const (
	tokens redisDB = 0
	misc   redisDB = 1
)

// CacheConfig identifies one logical cache within the redis deployment
type CacheConfig struct {
	database    redisDB
	keyPrefix   string
	displayName string
}

var (
	// TokenCache holds per-chain, per-wallet NFT result sets
	TokenCache = CacheConfig{database: tokens, keyPrefix: "nfts", displayName: "tokens"}
	// MetadataCache holds resolved token metadata documents
	MetadataCache = CacheConfig{database: tokens, keyPrefix: "metadata", displayName: "metadata"}
	// MiscCache holds everything that has no dedicated cache
	MiscCache = CacheConfig{database: misc, keyPrefix: "", displayName: "misc"}
)

// Cache represents an abstraction over a redis client
type Cache struct {
	client    *redis.Client
	keyPrefix string
}

// NewCache creates a new redis cache. It returns an error instead of panicking
// because the engine treats an unreachable cache as a missing fallback source,
// not as a fatal condition.
func NewCache(ctx context.Context, config CacheConfig) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     env.GetString(ctx, "REDIS_URL"),
		Password: env.GetString(ctx, "REDIS_PASS"),
		DB:       int(config.database),
	})

	pingCtx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, errors.Wrapf(err, "pinging %s cache", config.displayName)
	}

	return &Cache{client: client, keyPrefix: config.keyPrefix}, nil
}

// Client returns the underlying redis client
func (c *Cache) Client() *redis.Client {
	return c.client
}

// Set sets a value in the redis cache
func (c *Cache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	return c.client.Set(ctx, c.getPrefixedKey(key), value, expiration).Err()
}

// Get gets a value from the redis cache
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	bs, err := c.client.Get(ctx, c.getPrefixedKey(key)).Bytes()
	if err == redis.Nil {
		return nil, ErrKeyNotFound{Key: key}
	}
	if err != nil {
		return nil, err
	}
	return bs, nil
}

// Delete deletes a value from the redis cache
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.getPrefixedKey(key)).Err()
}

// Close closes the underlying redis client
func (c *Cache) Close() error {
	return c.client.Close()
}

func (c *Cache) getPrefixedKey(key string) string {
	if c.keyPrefix == "" {
		return key
	}
	return c.keyPrefix + ":" + key
}
