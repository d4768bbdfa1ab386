package cachemem

import (
	"context"
	"errors"
	"testing"
	"time"

	"jsonsig/internal/domain"
	"jsonsig/internal/infra/keys/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStore struct {
	domain.KeyStore
	gets   int
	setErr error
}

func (s *countingStore) Get(ctx context.Context, id string) (*domain.KeyPair, bool, error) {
	s.gets++
	return s.KeyStore.Get(ctx, id)
}

func (s *countingStore) Set(ctx context.Context, id string, pair domain.KeyPair) error {
	if s.setErr != nil {
		return s.setErr
	}
	return s.KeyStore.Set(ctx, id, pair)
}

func TestCacheServesHitsUntilExpiry(t *testing.T) {
	ctx := context.Background()
	backend := &countingStore{KeyStore: memory.NewStore()}
	require.NoError(t, backend.KeyStore.Set(ctx, "k", domain.KeyPair{Algorithm: domain.AlgPS256}))

	now := time.Unix(1_700_000_000, 0)
	cache := New(backend, time.Minute)
	cache.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		pair, ok, err := cache.Get(ctx, "k")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, domain.AlgPS256, pair.Algorithm)
	}
	assert.Equal(t, 1, backend.gets)

	now = now.Add(2 * time.Minute)
	_, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, backend.gets, "expired entry should be re-read")
}

func TestCacheDoesNotCacheMisses(t *testing.T) {
	ctx := context.Background()
	backend := &countingStore{KeyStore: memory.NewStore()}
	cache := New(backend, time.Minute)

	_, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, backend.KeyStore.Set(ctx, "k", domain.KeyPair{Algorithm: domain.AlgES256}))
	_, ok, err = cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok, "expected hit once backend has the key")
}

func TestCacheSetWritesThrough(t *testing.T) {
	ctx := context.Background()
	backend := &countingStore{KeyStore: memory.NewStore()}
	cache := New(backend, 0)

	require.NoError(t, cache.Set(ctx, "k", domain.KeyPair{Algorithm: domain.AlgEdDSA}))

	_, ok, err := backend.KeyStore.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok, "expected backend to hold the key")

	_, ok, err = cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, backend.gets)
}

func TestCacheSetFailureEvicts(t *testing.T) {
	ctx := context.Background()
	backend := &countingStore{KeyStore: memory.NewStore()}
	cache := New(backend, 0)
	require.NoError(t, cache.Set(ctx, "k", domain.KeyPair{Algorithm: domain.AlgPS256}))

	backend.setErr = errors.New("backend down")
	assert.Error(t, cache.Set(ctx, "k", domain.KeyPair{Algorithm: domain.AlgES256}))

	pair, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.AlgPS256, pair.Algorithm, "expected backend record after eviction")
	assert.Equal(t, 1, backend.gets)
}
