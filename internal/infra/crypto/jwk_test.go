package crypto

import (
	"encoding/json"
	"errors"
	"testing"

	"jsonsig/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalPublicJWKFields(t *testing.T) {
	pair, err := GenerateKeyPair(domain.AlgPS256)
	require.NoError(t, err)

	raw, err := MarshalPublicJWK("kid-1", pair)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, "RSA", fields["kty"])
	assert.Equal(t, "PS256", fields["alg"])
	assert.Equal(t, "kid-1", fields["kid"])
	assert.Equal(t, "sig", fields["use"])
	assert.NotEmpty(t, fields["n"])
	assert.NotEmpty(t, fields["e"])
	assert.NotContains(t, fields, "d")
}

func TestParseJWKRoundTrip(t *testing.T) {
	for _, alg := range []domain.Algorithm{domain.AlgPS256, domain.AlgES256, domain.AlgEdDSA} {
		t.Run(string(alg), func(t *testing.T) {
			pair, err := GenerateKeyPair(alg)
			require.NoError(t, err)

			pubJWK, err := MarshalPublicJWK("k", pair)
			require.NoError(t, err)
			pub, err := ParseJWK(pubJWK)
			require.NoError(t, err)
			assert.False(t, pub.HasPrivate())
			assert.Equal(t, alg, pub.Algorithm)

			privJWK, err := MarshalPrivateJWK("k", pair)
			require.NoError(t, err)
			priv, err := ParseJWK(privJWK)
			require.NoError(t, err)
			assert.True(t, priv.HasPrivate())
			assert.Equal(t, alg, priv.Algorithm)
		})
	}
}

func TestParseJWKRejectsBadInput(t *testing.T) {
	_, err := ParseJWK([]byte(`{"kty":"oct","k":"c2VjcmV0"}`))
	assert.True(t, errors.Is(err, domain.ErrInvalidKey), "symmetric key: %v", err)

	_, err = ParseJWK([]byte(`not json`))
	assert.True(t, errors.Is(err, domain.ErrInvalidKey))

	pair, err := GenerateKeyPair(domain.AlgES256)
	require.NoError(t, err)
	raw, err := MarshalPublicJWK("k", pair)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	fields["alg"] = "PS256"
	mismatched, err := json.Marshal(fields)
	require.NoError(t, err)
	_, err = ParseJWK(mismatched)
	assert.True(t, errors.Is(err, domain.ErrInvalidKey), "alg mismatch: %v", err)

	fields["alg"] = "ES256"
	fields["use"] = "enc"
	encUse, err := json.Marshal(fields)
	require.NoError(t, err)
	_, err = ParseJWK(encUse)
	assert.True(t, errors.Is(err, domain.ErrInvalidKey), "enc use: %v", err)
}

func TestKeyPairRecordRoundTrip(t *testing.T) {
	pair, err := GenerateKeyPair(domain.AlgES384)
	require.NoError(t, err)

	data, err := MarshalKeyPair(pair)
	require.NoError(t, err)
	got, err := UnmarshalKeyPair(data)
	require.NoError(t, err)
	assert.True(t, got.HasPrivate())
	assert.Equal(t, domain.AlgES384, got.Algorithm)

	verifyOnly := domain.KeyPair{PublicKey: pair.PublicKey}
	data, err = MarshalKeyPair(verifyOnly)
	require.NoError(t, err)
	got, err = UnmarshalKeyPair(data)
	require.NoError(t, err)
	assert.False(t, got.HasPrivate())
	assert.Empty(t, got.Algorithm)

	_, err = UnmarshalKeyPair([]byte(`{"alg":"PS256"}`))
	assert.True(t, errors.Is(err, domain.ErrInvalidKey))
}
