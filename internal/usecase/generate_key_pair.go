package usecase

import (
	"context"
	"fmt"

	"jsonsig/internal/domain"
	"jsonsig/internal/infra/crypto"
)

// GenerateKeyPair creates a key pair for alg (the default algorithm when
// empty), stores it under a fresh random kid and returns the kid with the
// public JWK.
func (e *Engine) GenerateKeyPair(ctx context.Context, alg domain.Algorithm) (domain.GeneratedKey, error) {
	if alg == "" {
		alg = e.defaultAlg
	}
	alg, err := crypto.ParseAlgorithm(string(alg))
	if err != nil {
		return domain.GeneratedKey{}, err
	}
	if err := e.checkPolicy(ctx, domain.PolicyOperationGenerate, alg, ""); err != nil {
		return domain.GeneratedKey{}, err
	}

	pair, err := crypto.GenerateKeyPair(alg)
	if err != nil {
		return domain.GeneratedKey{}, err
	}
	id := e.newID()
	if err := e.keys.Set(ctx, id, pair); err != nil {
		return domain.GeneratedKey{}, fmt.Errorf("store key pair: %w", err)
	}
	jwk, err := crypto.MarshalPublicJWK(id, pair)
	if err != nil {
		return domain.GeneratedKey{}, err
	}

	e.logger.Debug().Str("kid", id).Str("alg", string(alg)).Msg("key pair generated")
	return domain.GeneratedKey{ID: id, PublicKey: jwk}, nil
}
