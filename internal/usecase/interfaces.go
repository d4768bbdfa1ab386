package usecase

import (
	"context"

	"jsonsig/internal/domain"
)

// PolicyEngine decides whether key generation and signing may proceed.
type PolicyEngine interface {
	Evaluate(ctx context.Context, input domain.PolicyInput) (domain.PolicyResult, error)
}
