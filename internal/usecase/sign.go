package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"jsonsig/internal/domain"
	"jsonsig/internal/infra/crypto"
)

type signOptions struct {
	embedKID bool
	embedJWK bool
}

type SignOption func(*signOptions)

// WithEmbeddedKID copies the kid into the envelope next to the signature.
func WithEmbeddedKID() SignOption {
	return func(o *signOptions) { o.embedKID = true }
}

// WithEmbeddedJWK attaches the public JWK to the envelope. Verify never
// trusts it; it is there for the recipient's convenience only.
func WithEmbeddedJWK() SignOption {
	return func(o *signOptions) { o.embedJWK = true }
}

// Sign produces a detached JWS over the canonical form of payload using the
// private key stored under id. Raw JSON may be passed as json.RawMessage or
// []byte; anything else is marshaled with encoding/json.
func (e *Engine) Sign(ctx context.Context, id string, payload any, opts ...SignOption) (*domain.SignedObject, error) {
	var options signOptions
	for _, opt := range opts {
		opt(&options)
	}

	if id == "" {
		return nil, fmt.Errorf("%w: kid is empty", domain.ErrKeyNotFound)
	}
	pair, ok, err := e.keys.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load key %s: %w", id, err)
	}
	if !ok || !pair.HasPrivate() {
		return nil, fmt.Errorf("%w: %s", domain.ErrKeyNotFound, id)
	}

	raw, err := payloadJSON(payload)
	if err != nil {
		return nil, err
	}
	canonical, err := crypto.CanonicalizeJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}

	signing := *pair
	signing.Algorithm, err = e.signingAlgorithm(signing)
	if err != nil {
		return nil, err
	}
	if err := e.checkPolicy(ctx, domain.PolicyOperationSign, signing.Algorithm, id); err != nil {
		return nil, err
	}

	protected, signature, err := crypto.SignDetached(signing, id, canonical)
	if err != nil {
		return nil, err
	}
	obj := &domain.SignedObject{
		Signature: signature,
		Protected: protected,
		Payload:   raw,
	}
	if options.embedKID {
		obj.KID = id
	}
	if options.embedJWK {
		jwk, err := crypto.MarshalPublicJWK(id, signing)
		if err != nil {
			return nil, err
		}
		obj.JWK = jwk
	}

	e.logger.Debug().Str("kid", id).Str("alg", string(signing.Algorithm)).Msg("payload signed")
	return obj, nil
}

func payloadJSON(payload any) (json.RawMessage, error) {
	var raw []byte
	switch value := payload.(type) {
	case json.RawMessage:
		raw = value
	case []byte:
		raw = value
	default:
		b, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
		}
		raw = b
	}
	compact, err := crypto.CompactJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	return compact, nil
}
