package db

import (
	"context"
	"testing"

	"jsonsig/internal/domain"
	"jsonsig/internal/infra/crypto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyPairModelConversion(t *testing.T) {
	pair, err := crypto.GenerateKeyPair(domain.AlgES256)
	require.NoError(t, err)

	model, err := keyPairToModel("kid-1", pair)
	require.NoError(t, err)
	assert.Equal(t, "kid-1", model.KID)
	assert.Equal(t, "ES256", model.Alg)
	assert.NotEmpty(t, model.PrivateJWK, "signing key keeps its private jwk")

	got, err := keyPairFromModel(model)
	require.NoError(t, err)
	assert.True(t, got.HasPrivate())
	assert.Equal(t, domain.AlgES256, got.Algorithm)
}

func TestKeyPairModelConversionVerifyOnlyUnpinned(t *testing.T) {
	pair, err := crypto.GenerateKeyPair(domain.AlgPS256)
	require.NoError(t, err)

	model, err := keyPairToModel("kid-2", domain.KeyPair{PublicKey: pair.PublicKey})
	require.NoError(t, err)
	assert.Empty(t, model.PrivateJWK)
	assert.Empty(t, model.Alg)

	got, err := keyPairFromModel(model)
	require.NoError(t, err)
	assert.False(t, got.HasPrivate())
	assert.Empty(t, got.Algorithm)
}

func TestKeyPairRepositoryWithoutDB(t *testing.T) {
	repo := NewKeyPairRepository(nil)
	_, _, err := repo.Get(context.Background(), "k")
	assert.ErrorIs(t, err, errDBUnavailable)
	assert.ErrorIs(t, repo.Set(context.Background(), "k", domain.KeyPair{}), errDBUnavailable)
}
