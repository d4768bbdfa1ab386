package keys

import (
	"context"
	"testing"

	"jsonsig/internal/config"
	"jsonsig/internal/domain"
	"jsonsig/internal/infra/cachemem"
	"jsonsig/internal/infra/crypto"
	"jsonsig/internal/infra/keys/memory"
	"jsonsig/internal/infra/keys/redisstore"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMemory(t *testing.T) {
	backend, err := Open(context.Background(), config.Config{})
	require.NoError(t, err)
	defer backend.Close()

	assert.Equal(t, config.KeyStoreMemory, backend.Name)
	assert.IsType(t, &memory.Store{}, backend.Store)
	assert.Nil(t, backend.Redis)
}

func TestOpenRedisWithCache(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	backend, err := Open(ctx, config.Config{
		KeyStoreBackend:         config.KeyStoreRedis,
		RedisAddr:               mr.Addr(),
		RedisKeyPrefix:          "t:",
		KeyStoreCacheTTLSeconds: 60,
	})
	require.NoError(t, err)
	defer backend.Close()

	assert.IsType(t, &cachemem.Cache{}, backend.Store)
	require.NotNil(t, backend.Redis)

	pair, err := crypto.GenerateKeyPair(domain.AlgES256)
	require.NoError(t, err)
	require.NoError(t, backend.Store.Set(ctx, "kid", pair))
	assert.True(t, mr.Exists("t:kid"))
}

func TestOpenRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := Open(context.Background(), config.Config{
		KeyStoreBackend: config.KeyStoreRedis,
		RedisAddr:       addr,
	})
	assert.Error(t, err)
}

func TestOpenRedisDefaultsPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	backend, err := Open(ctx, config.Config{KeyStoreBackend: config.KeyStoreRedis, RedisAddr: mr.Addr()})
	require.NoError(t, err)
	defer backend.Close()

	pair, err := crypto.GenerateKeyPair(domain.AlgEdDSA)
	require.NoError(t, err)
	require.NoError(t, backend.Store.Set(ctx, "kid", pair))
	assert.True(t, mr.Exists(redisstore.DefaultKeyPrefix+"kid"))
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), config.Config{KeyStoreBackend: "etcd"})
	assert.Error(t, err)
}

func TestOpenPostgresRequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), config.Config{KeyStoreBackend: config.KeyStorePostgres})
	assert.Error(t, err)
}
