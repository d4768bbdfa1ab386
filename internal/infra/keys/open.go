// Package keys selects and opens the configured key store backend.
package keys

import (
	"context"
	"fmt"

	"jsonsig/internal/config"
	"jsonsig/internal/domain"
	"jsonsig/internal/infra/cachemem"
	"jsonsig/internal/infra/db"
	"jsonsig/internal/infra/keys/grpcstore"
	"jsonsig/internal/infra/keys/memory"
	"jsonsig/internal/infra/keys/redisstore"

	"github.com/redis/go-redis/v9"
)

// Backend is an opened key store plus the resources behind it.
type Backend struct {
	Name  string
	Store domain.KeyStore

	// Redis is set for the redis backend so other components can share the
	// connection.
	Redis *redis.Client

	close func() error
}

func (b *Backend) Close() error {
	if b == nil || b.close == nil {
		return nil
	}
	return b.close()
}

// Open builds the key store named by cfg.KeyStoreBackend. Shared backends are
// wrapped in a read-through cache when KEYSTORE_CACHE_TTL_SECONDS is set.
func Open(ctx context.Context, cfg config.Config) (*Backend, error) {
	backend := &Backend{Name: cfg.KeyStoreBackend}
	switch cfg.KeyStoreBackend {
	case "", config.KeyStoreMemory:
		backend.Name = config.KeyStoreMemory
		backend.Store = memory.NewStore()
		return backend, nil
	case config.KeyStoreRedis:
		store, err := redisstore.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisKeyPrefix)
		if err != nil {
			return nil, fmt.Errorf("open redis key store: %w", err)
		}
		backend.Store = store
		backend.Redis = store.Client()
		backend.close = store.Close
	case config.KeyStorePostgres:
		store, err := db.NewStore(cfg)
		if err != nil {
			return nil, fmt.Errorf("open postgres key store: %w", err)
		}
		backend.Store = db.NewKeyPairRepository(store.DB)
		backend.close = store.Close
	case config.KeyStoreGRPC:
		client, err := grpcstore.Dial(cfg.KeyStoreGRPCTarget, grpcstore.DialOptions{
			AdminKey: cfg.AdminAPIKey,
			CAFile:   cfg.KeyStoreGRPCCAFile,
		})
		if err != nil {
			return nil, fmt.Errorf("open grpc key store: %w", err)
		}
		backend.Store = client
		backend.close = client.Close
	default:
		return nil, fmt.Errorf("unknown key store backend %q", cfg.KeyStoreBackend)
	}

	if ttl := cfg.KeyStoreCacheTTL(); ttl > 0 {
		backend.Store = cachemem.New(backend.Store, ttl)
	}
	return backend, nil
}
