package domain

import (
	"context"
	"crypto"
	"encoding/json"
)

type Algorithm string

const (
	AlgPS256 Algorithm = "PS256"
	AlgPS384 Algorithm = "PS384"
	AlgPS512 Algorithm = "PS512"
	AlgRS256 Algorithm = "RS256"
	AlgRS384 Algorithm = "RS384"
	AlgRS512 Algorithm = "RS512"
	AlgES256 Algorithm = "ES256"
	AlgES384 Algorithm = "ES384"
	AlgES512 Algorithm = "ES512"
	AlgEdDSA Algorithm = "EdDSA"

	DefaultAlgorithm = AlgPS256
)

// KeyPair is the record held by a KeyStore under one key id.
// PrivateKey is nil for verify-only holders. An empty Algorithm leaves the
// record unpinned; the engine then falls back to its configured allow-list.
type KeyPair struct {
	PublicKey  crypto.PublicKey
	PrivateKey crypto.Signer
	Algorithm  Algorithm
}

func (k *KeyPair) HasPrivate() bool {
	return k != nil && k.PrivateKey != nil
}

func (k *KeyPair) HasPublic() bool {
	if k == nil {
		return false
	}
	return k.PublicKey != nil || k.PrivateKey != nil
}

// Public returns the public half, deriving it from the private key when the
// record was stored without one.
func (k *KeyPair) Public() crypto.PublicKey {
	if k == nil {
		return nil
	}
	if k.PublicKey != nil {
		return k.PublicKey
	}
	if k.PrivateKey != nil {
		return k.PrivateKey.Public()
	}
	return nil
}

// KeyStore maps key ids to key pairs.
// Get reports a missing id with ok == false and a nil error; the error return
// is reserved for backend failures. Set inserts or replaces unconditionally.
type KeyStore interface {
	Get(ctx context.Context, id string) (pair *KeyPair, ok bool, err error)
	Set(ctx context.Context, id string, pair KeyPair) error
}

// GeneratedKey is returned by key generation: the new key id and its public
// JWK, ready to hand to a verifier.
type GeneratedKey struct {
	ID        string          `json:"id"`
	PublicKey json.RawMessage `json:"publicKey"`
}
