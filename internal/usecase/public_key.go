package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"jsonsig/internal/domain"
	"jsonsig/internal/infra/crypto"
)

// PublicKey returns the public JWK stored under id.
func (e *Engine) PublicKey(ctx context.Context, id string) (json.RawMessage, error) {
	pair, ok, err := e.keys.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load key %s: %w", id, err)
	}
	if !ok || !pair.HasPublic() {
		return nil, fmt.Errorf("%w: %s", domain.ErrKeyNotFound, id)
	}
	return crypto.MarshalPublicJWK(id, *pair)
}

type ImportOption func(*importOptions)

type importOptions struct {
	replace bool
}

// WithReplace lets an import overwrite a record already stored under the
// same kid.
func WithReplace() ImportOption {
	return func(o *importOptions) { o.replace = true }
}

// ImportPublicKey registers a verify-only key under id. The JWK alg, when
// present, pins the record; otherwise it is verified under the unpinned
// allow-list. An existing record is kept and ErrKeyExists returned unless
// WithReplace is given.
func (e *Engine) ImportPublicKey(ctx context.Context, id string, jwk json.RawMessage, opts ...ImportOption) error {
	if id == "" {
		return fmt.Errorf("%w: kid is required", domain.ErrInvalidKey)
	}
	pair, err := crypto.ParseJWK(jwk)
	if err != nil {
		return err
	}
	if pair.HasPrivate() {
		return fmt.Errorf("%w: expected a public key, got private key material", domain.ErrInvalidKey)
	}
	if err := e.checkImportTarget(ctx, id, opts); err != nil {
		return err
	}
	if err := e.keys.Set(ctx, id, pair); err != nil {
		return fmt.Errorf("store public key: %w", err)
	}
	e.logger.Debug().Str("kid", id).Str("alg", string(pair.Algorithm)).Msg("public key imported")
	return nil
}

// ImportPrivateKey registers a signing key under id. The JWK must carry alg.
// Existing records are handled as in ImportPublicKey.
func (e *Engine) ImportPrivateKey(ctx context.Context, id string, jwk json.RawMessage, opts ...ImportOption) error {
	if id == "" {
		return fmt.Errorf("%w: kid is required", domain.ErrInvalidKey)
	}
	pair, err := crypto.ParseJWK(jwk)
	if err != nil {
		return err
	}
	if !pair.HasPrivate() {
		return fmt.Errorf("%w: expected private key material", domain.ErrInvalidKey)
	}
	if pair.Algorithm == "" {
		return fmt.Errorf("%w: alg is required for signing keys", domain.ErrInvalidKey)
	}
	if err := e.checkImportTarget(ctx, id, opts); err != nil {
		return err
	}
	if err := e.keys.Set(ctx, id, pair); err != nil {
		return fmt.Errorf("store private key: %w", err)
	}
	e.logger.Debug().Str("kid", id).Str("alg", string(pair.Algorithm)).Msg("private key imported")
	return nil
}

// checkImportTarget refuses to overwrite an existing record. The store has
// no compare-and-set, so two concurrent imports of a new kid can still race.
func (e *Engine) checkImportTarget(ctx context.Context, id string, opts []ImportOption) error {
	var options importOptions
	for _, opt := range opts {
		opt(&options)
	}
	if options.replace {
		return nil
	}
	_, ok, err := e.keys.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load key %s: %w", id, err)
	}
	if ok {
		return fmt.Errorf("%w: %s", domain.ErrKeyExists, id)
	}
	return nil
}
