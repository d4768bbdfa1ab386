package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"jsonsig/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreGetMissing(t *testing.T) {
	store := NewStore()
	pair, ok, err := store.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, pair)
}

func TestStoreSetReplaces(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	require.NoError(t, store.Set(ctx, "k", domain.KeyPair{Algorithm: domain.AlgPS256}))
	require.NoError(t, store.Set(ctx, "k", domain.KeyPair{Algorithm: domain.AlgES256}))

	pair, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.AlgES256, pair.Algorithm)
	assert.Equal(t, 1, store.Len())
}

func TestStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	require.NoError(t, store.Set(ctx, "k", domain.KeyPair{Algorithm: domain.AlgPS256}))

	pair, _, err := store.Get(ctx, "k")
	require.NoError(t, err)
	pair.Algorithm = domain.AlgRS256

	again, _, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, domain.AlgPS256, again.Algorithm, "stored record was mutated through Get result")
}

func TestStoreNilReceiver(t *testing.T) {
	var store *Store
	ctx := context.Background()

	assert.Equal(t, 0, store.Len())
	_, _, err := store.Get(ctx, "k")
	assert.Error(t, err)
	assert.Error(t, store.Set(ctx, "k", domain.KeyPair{}))
}

func TestStoreZeroValue(t *testing.T) {
	var store Store
	require.NoError(t, store.Set(context.Background(), "k", domain.KeyPair{Algorithm: domain.AlgEdDSA}))
	assert.Equal(t, 1, store.Len())
}

func TestStoreConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("k-%d", i)
			if !assert.NoError(t, store.Set(ctx, id, domain.KeyPair{Algorithm: domain.AlgEdDSA})) {
				return
			}
			_, ok, err := store.Get(ctx, id)
			assert.NoError(t, err)
			assert.True(t, ok, id)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 32, store.Len())
}
