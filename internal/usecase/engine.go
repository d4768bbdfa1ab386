package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"jsonsig/internal/domain"
	"jsonsig/internal/infra/crypto"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Engine generates key pairs, signs JSON values and verifies detached
// signatures against a single KeyStore. It holds no mutable state and is
// safe for concurrent use.
type Engine struct {
	keys       domain.KeyStore
	policy     PolicyEngine
	logger     zerolog.Logger
	newID      func() string
	defaultAlg domain.Algorithm
	unpinned   []domain.Algorithm
}

type Option func(*Engine)

func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithIDGenerator replaces the random UUID key id generator.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

func WithPolicy(policy PolicyEngine) Option {
	return func(e *Engine) { e.policy = policy }
}

// WithDefaultAlgorithm sets the algorithm used when GenerateKeyPair is
// called without one.
func WithDefaultAlgorithm(alg domain.Algorithm) Option {
	return func(e *Engine) {
		if alg != "" {
			e.defaultAlg = alg
		}
	}
}

// WithUnpinnedAlgorithms lists the algorithms accepted for records stored
// without an algorithm. Order matters when signing with such a record: the
// first algorithm that fits the key is used.
func WithUnpinnedAlgorithms(algs ...domain.Algorithm) Option {
	return func(e *Engine) {
		if len(algs) > 0 {
			e.unpinned = append([]domain.Algorithm(nil), algs...)
		}
	}
}

func NewEngine(keys domain.KeyStore, opts ...Option) (*Engine, error) {
	if keys == nil {
		return nil, errors.New("key store is required")
	}
	e := &Engine{
		keys:       keys,
		logger:     zerolog.Nop(),
		newID:      uuid.NewString,
		defaultAlg: domain.DefaultAlgorithm,
		unpinned:   []domain.Algorithm{domain.DefaultAlgorithm},
	}
	for _, opt := range opts {
		opt(e)
	}
	if _, err := crypto.ParseAlgorithm(string(e.defaultAlg)); err != nil {
		return nil, fmt.Errorf("default algorithm: %w", err)
	}
	for _, alg := range e.unpinned {
		if _, err := crypto.ParseAlgorithm(string(alg)); err != nil {
			return nil, fmt.Errorf("unpinned algorithms: %w", err)
		}
	}
	return e, nil
}

func (e *Engine) checkPolicy(ctx context.Context, op domain.PolicyOperation, alg domain.Algorithm, kid string) error {
	if e.policy == nil {
		return nil
	}
	result, err := e.policy.Evaluate(ctx, domain.PolicyInput{Operation: op, Algorithm: alg, KID: kid})
	if err != nil {
		return fmt.Errorf("evaluate policy: %w", err)
	}
	if result.Allow {
		return nil
	}
	codes := make([]string, 0, len(result.Deny))
	for _, deny := range result.Deny {
		codes = append(codes, deny.Code)
	}
	if len(codes) == 0 {
		return domain.ErrPolicyDenied
	}
	return fmt.Errorf("%w: %s", domain.ErrPolicyDenied, strings.Join(codes, ", "))
}

// signingAlgorithm resolves the algorithm a record signs under.
func (e *Engine) signingAlgorithm(pair domain.KeyPair) (domain.Algorithm, error) {
	if pair.Algorithm != "" {
		return pair.Algorithm, nil
	}
	for _, alg := range e.unpinned {
		if crypto.CheckKeyAlgorithm(pair.Public(), alg) == nil {
			return alg, nil
		}
	}
	return "", fmt.Errorf("%w: no unpinned algorithm fits %T", domain.ErrUnsupportedAlgorithm, pair.Public())
}

func (e *Engine) unpinnedAllows(alg domain.Algorithm) bool {
	for _, allowed := range e.unpinned {
		if allowed == alg {
			return true
		}
	}
	return false
}
