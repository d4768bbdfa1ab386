package crypto

import (
	"crypto"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"jsonsig/internal/domain"

	"github.com/go-jose/go-jose/v4"
)

// SignDetached signs canonical as an RFC 7797 unencoded payload and returns
// the base64url protected header and signature of the detached JWS. The kid
// header is omitted when kid is empty.
func SignDetached(pair domain.KeyPair, kid string, canonical []byte) (protected, signature string, err error) {
	if pair.PrivateKey == nil {
		return "", "", fmt.Errorf("%w: private key is missing", domain.ErrInvalidKey)
	}
	sa, err := joseAlgorithm(pair.Algorithm)
	if err != nil {
		return "", "", err
	}

	signer, err := jose.NewSigner(jose.SigningKey{
		Algorithm: sa,
		Key:       jose.JSONWebKey{Key: pair.PrivateKey, KeyID: kid},
	}, (&jose.SignerOptions{}).WithBase64(false))
	if err != nil {
		return "", "", fmt.Errorf("create signer: %w", err)
	}
	obj, err := signer.Sign(canonical)
	if err != nil {
		return "", "", fmt.Errorf("sign payload: %w", err)
	}
	compact, err := obj.DetachedCompactSerialize()
	if err != nil {
		return "", "", fmt.Errorf("serialize signature: %w", err)
	}

	parts := strings.Split(compact, ".")
	if len(parts) != 3 || parts[1] != "" {
		return "", "", errors.New("serialize signature: unexpected compact form")
	}
	return parts[0], parts[2], nil
}

// DecodeProtectedHeader decodes the base64url JSON protected header.
func DecodeProtectedHeader(protected string) (domain.ProtectedHeader, error) {
	var header domain.ProtectedHeader
	if protected == "" {
		return header, errors.New("header is empty")
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(protected, "="))
	if err != nil {
		return header, fmt.Errorf("decode base64url: %w", err)
	}
	if err := json.Unmarshal(raw, &header); err != nil {
		return header, fmt.Errorf("decode json: %w", err)
	}
	if header.Alg == "" {
		return header, errors.New("alg is missing")
	}
	return header, nil
}

// VerifyDetached checks a detached unencoded-payload JWS against canonical.
// Only alg is accepted; a header declaring anything else fails to parse.
func VerifyDetached(protected, signature string, canonical []byte, pub crypto.PublicKey, alg domain.Algorithm) error {
	sa, err := joseAlgorithm(alg)
	if err != nil {
		return err
	}
	obj, err := jose.ParseDetached(protected+".."+signature, canonical, []jose.SignatureAlgorithm{sa})
	if err != nil {
		return fmt.Errorf("parse signature: %w", err)
	}
	if _, err := obj.Verify(pub); err != nil {
		return fmt.Errorf("signature verification failed: %w", err)
	}
	return nil
}
