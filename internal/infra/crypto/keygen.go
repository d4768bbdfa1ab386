package crypto

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"fmt"

	"jsonsig/internal/domain"

	"github.com/go-jose/go-jose/v4"
)

// RSAKeyBits is the modulus size used for PS* and RS* keys.
const RSAKeyBits = 2048

var (
	rsaGenerateKey     = rsa.GenerateKey
	ecdsaGenerateKey   = ecdsa.GenerateKey
	ed25519GenerateKey = ed25519.GenerateKey
)

var supportedAlgorithms = map[domain.Algorithm]jose.SignatureAlgorithm{
	domain.AlgPS256: jose.PS256,
	domain.AlgPS384: jose.PS384,
	domain.AlgPS512: jose.PS512,
	domain.AlgRS256: jose.RS256,
	domain.AlgRS384: jose.RS384,
	domain.AlgRS512: jose.RS512,
	domain.AlgES256: jose.ES256,
	domain.AlgES384: jose.ES384,
	domain.AlgES512: jose.ES512,
	domain.AlgEdDSA: jose.EdDSA,
}

// ParseAlgorithm validates a JOSE alg name against the supported set.
func ParseAlgorithm(name string) (domain.Algorithm, error) {
	alg := domain.Algorithm(name)
	if _, ok := supportedAlgorithms[alg]; !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedAlgorithm, name)
	}
	return alg, nil
}

func joseAlgorithm(alg domain.Algorithm) (jose.SignatureAlgorithm, error) {
	sa, ok := supportedAlgorithms[alg]
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedAlgorithm, alg)
	}
	return sa, nil
}

// GenerateKeyPair creates a fresh key pair suitable for alg.
func GenerateKeyPair(alg domain.Algorithm) (domain.KeyPair, error) {
	var (
		signer crypto.Signer
		err    error
	)
	switch alg {
	case domain.AlgPS256, domain.AlgPS384, domain.AlgPS512,
		domain.AlgRS256, domain.AlgRS384, domain.AlgRS512:
		signer, err = rsaGenerateKey(rand.Reader, RSAKeyBits)
	case domain.AlgES256:
		signer, err = ecdsaGenerateKey(elliptic.P256(), rand.Reader)
	case domain.AlgES384:
		signer, err = ecdsaGenerateKey(elliptic.P384(), rand.Reader)
	case domain.AlgES512:
		signer, err = ecdsaGenerateKey(elliptic.P521(), rand.Reader)
	case domain.AlgEdDSA:
		_, priv, genErr := ed25519GenerateKey(rand.Reader)
		signer, err = priv, genErr
	default:
		return domain.KeyPair{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedAlgorithm, alg)
	}
	if err != nil {
		return domain.KeyPair{}, fmt.Errorf("generate %s key: %w", alg, err)
	}
	return domain.KeyPair{
		PublicKey:  signer.Public(),
		PrivateKey: signer,
		Algorithm:  alg,
	}, nil
}

// CheckKeyAlgorithm reports whether key is usable with alg.
func CheckKeyAlgorithm(key crypto.PublicKey, alg domain.Algorithm) error {
	switch k := key.(type) {
	case *rsa.PublicKey:
		switch alg {
		case domain.AlgPS256, domain.AlgPS384, domain.AlgPS512,
			domain.AlgRS256, domain.AlgRS384, domain.AlgRS512:
			return nil
		}
	case *ecdsa.PublicKey:
		want := map[domain.Algorithm]elliptic.Curve{
			domain.AlgES256: elliptic.P256(),
			domain.AlgES384: elliptic.P384(),
			domain.AlgES512: elliptic.P521(),
		}
		if curve, ok := want[alg]; ok && k.Curve == curve {
			return nil
		}
	case ed25519.PublicKey:
		if alg == domain.AlgEdDSA {
			return nil
		}
	default:
		return fmt.Errorf("%w: unsupported key type %T", domain.ErrInvalidKey, key)
	}
	return fmt.Errorf("%w: %T cannot be used with %s", domain.ErrInvalidKey, key, alg)
}
