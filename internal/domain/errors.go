package domain

import "errors"

var (
	ErrKeyNotFound          = errors.New("key not found")
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
	ErrInvalidPayload       = errors.New("invalid payload")
	ErrInvalidKey           = errors.New("invalid key")
	ErrKeyExists            = errors.New("key already exists")
	ErrPolicyDenied         = errors.New("policy denied")
)
