package crypto

import (
	"crypto"
	"encoding/json"
	"errors"
	"fmt"

	"jsonsig/internal/domain"

	"github.com/go-jose/go-jose/v4"
)

// MarshalPublicJWK exports the public half of pair as an RFC 7517 JWK.
func MarshalPublicJWK(kid string, pair domain.KeyPair) (json.RawMessage, error) {
	pub := pair.Public()
	if pub == nil {
		return nil, fmt.Errorf("%w: public key is missing", domain.ErrInvalidKey)
	}
	jwk := jose.JSONWebKey{
		Key:       pub,
		KeyID:     kid,
		Algorithm: string(pair.Algorithm),
		Use:       "sig",
	}
	b, err := jwk.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidKey, err)
	}
	return b, nil
}

// MarshalPrivateJWK exports the private key of pair. Only persistent key
// stores call this.
func MarshalPrivateJWK(kid string, pair domain.KeyPair) (json.RawMessage, error) {
	if pair.PrivateKey == nil {
		return nil, fmt.Errorf("%w: private key is missing", domain.ErrInvalidKey)
	}
	jwk := jose.JSONWebKey{
		Key:       pair.PrivateKey,
		KeyID:     kid,
		Algorithm: string(pair.Algorithm),
		Use:       "sig",
	}
	b, err := jwk.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidKey, err)
	}
	return b, nil
}

// ParseJWK decodes a public or private JWK into a key pair. The JWK's alg,
// when present, becomes the pair's algorithm and must fit the key type.
func ParseJWK(data []byte) (domain.KeyPair, error) {
	var jwk jose.JSONWebKey
	if err := jwk.UnmarshalJSON(data); err != nil {
		return domain.KeyPair{}, fmt.Errorf("%w: %v", domain.ErrInvalidKey, err)
	}
	if !jwk.Valid() {
		return domain.KeyPair{}, fmt.Errorf("%w: jwk is not valid", domain.ErrInvalidKey)
	}
	if jwk.Use != "" && jwk.Use != "sig" {
		return domain.KeyPair{}, fmt.Errorf("%w: jwk use %q is not sig", domain.ErrInvalidKey, jwk.Use)
	}

	var pair domain.KeyPair
	if jwk.IsPublic() {
		pair.PublicKey = jwk.Key
	} else {
		signer, ok := jwk.Key.(crypto.Signer)
		if !ok {
			return domain.KeyPair{}, fmt.Errorf("%w: %T is not a signing key", domain.ErrInvalidKey, jwk.Key)
		}
		pair.PrivateKey = signer
		pair.PublicKey = signer.Public()
	}

	if jwk.Algorithm != "" {
		alg, err := ParseAlgorithm(jwk.Algorithm)
		if err != nil {
			return domain.KeyPair{}, err
		}
		if err := CheckKeyAlgorithm(pair.PublicKey, alg); err != nil {
			return domain.KeyPair{}, err
		}
		pair.Algorithm = alg
	}
	return pair, nil
}

type keyPairRecord struct {
	Alg     domain.Algorithm `json:"alg,omitempty"`
	Public  json.RawMessage  `json:"public"`
	Private json.RawMessage  `json:"private,omitempty"`
}

// MarshalKeyPair serializes a record for persistent and remote key stores.
func MarshalKeyPair(pair domain.KeyPair) ([]byte, error) {
	rec := keyPairRecord{Alg: pair.Algorithm}
	pub, err := MarshalPublicJWK("", pair)
	if err != nil {
		return nil, err
	}
	rec.Public = pub
	if pair.PrivateKey != nil {
		priv, err := MarshalPrivateJWK("", pair)
		if err != nil {
			return nil, err
		}
		rec.Private = priv
	}
	return json.Marshal(rec)
}

// UnmarshalKeyPair is the inverse of MarshalKeyPair.
func UnmarshalKeyPair(data []byte) (domain.KeyPair, error) {
	var rec keyPairRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.KeyPair{}, fmt.Errorf("%w: %v", domain.ErrInvalidKey, err)
	}
	source := rec.Private
	if len(source) == 0 {
		source = rec.Public
	}
	if len(source) == 0 {
		return domain.KeyPair{}, fmt.Errorf("%w: record has no key material", domain.ErrInvalidKey)
	}
	pair, err := ParseJWK(source)
	if err != nil {
		return domain.KeyPair{}, err
	}
	if rec.Alg != "" {
		if pair.Algorithm != "" && pair.Algorithm != rec.Alg {
			return domain.KeyPair{}, errors.New("key record algorithm does not match its jwk")
		}
		pair.Algorithm = rec.Alg
	}
	return pair, nil
}
