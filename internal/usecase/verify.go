package usecase

import (
	"context"
	"fmt"

	"jsonsig/internal/domain"
	"jsonsig/internal/infra/crypto"
)

// Verify checks obj against the key named by its protected header kid,
// falling back to suppliedID. The envelope kid and jwk are informational
// and never select the key. It never returns an error: every failure is
// reported in VerifyResult.Error. On success the result carries the
// canonical payload.
func (e *Engine) Verify(ctx context.Context, obj domain.SignedObject, suppliedID string) domain.VerifyResult {
	result := e.verify(ctx, obj, suppliedID)
	if result.Error != "" {
		e.logger.Debug().Str("reason", result.Error).Msg("verification failed")
	}
	return result
}

func (e *Engine) verify(ctx context.Context, obj domain.SignedObject, suppliedID string) domain.VerifyResult {
	header, err := crypto.DecodeProtectedHeader(obj.Protected)
	if err != nil {
		return domain.VerifyFailure("invalid protected header: " + err.Error())
	}

	kid := header.KID
	if kid == "" {
		kid = suppliedID
	}
	if kid == "" {
		return domain.VerifyFailure("kid not found")
	}

	pair, ok, err := e.keys.Get(ctx, kid)
	if err != nil {
		return domain.VerifyFailure("key store: " + err.Error())
	}
	if !ok || !pair.HasPublic() {
		return domain.VerifyFailure(fmt.Sprintf("Key %s not found", kid))
	}

	canonical, err := crypto.CanonicalizeJSON(obj.Payload)
	if err != nil {
		return domain.VerifyFailure("invalid payload: " + err.Error())
	}

	if !header.Unencoded() {
		return domain.VerifyFailure("unsupported protected header: b64 must be false and listed in crit")
	}
	if pair.Algorithm != "" {
		if header.Alg != pair.Algorithm {
			return domain.VerifyFailure(fmt.Sprintf("algorithm mismatch: header declares %s, key %s is pinned to %s", header.Alg, kid, pair.Algorithm))
		}
	} else if !e.unpinnedAllows(header.Alg) {
		return domain.VerifyFailure(fmt.Sprintf("algorithm mismatch: %s is not accepted for unpinned key %s", header.Alg, kid))
	}
	pub := pair.Public()
	if err := crypto.CheckKeyAlgorithm(pub, header.Alg); err != nil {
		return domain.VerifyFailure("algorithm mismatch: " + err.Error())
	}

	if obj.Signature == "" {
		return domain.VerifyFailure("signature is missing")
	}
	if err := crypto.VerifyDetached(obj.Protected, obj.Signature, canonical, pub, header.Alg); err != nil {
		return domain.VerifyFailure(err.Error())
	}

	e.logger.Debug().Str("kid", kid).Str("alg", string(header.Alg)).Msg("signature verified")
	return domain.VerifyResult{Payload: canonical}
}
