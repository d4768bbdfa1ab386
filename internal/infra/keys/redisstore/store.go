package redisstore

import (
	"context"
	"errors"
	"fmt"

	"jsonsig/internal/domain"
	"jsonsig/internal/infra/crypto"

	"github.com/redis/go-redis/v9"
)

const DefaultKeyPrefix = "jsonsig:keys:"

// Store keeps key records as JSON strings under prefix+kid.
type Store struct {
	client *redis.Client
	prefix string
}

func New(client *redis.Client, prefix string) (*Store, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{client: client, prefix: prefix}, nil
}

// Dial connects to addr and pings it before returning the store.
func Dial(ctx context.Context, addr, password string, db int, prefix string) (*Store, error) {
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return New(client, prefix)
}

func (s *Store) Get(ctx context.Context, id string) (*domain.KeyPair, bool, error) {
	data, err := s.client.Get(ctx, s.prefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	pair, err := crypto.UnmarshalKeyPair(data)
	if err != nil {
		return nil, false, fmt.Errorf("decode key record %q: %w", id, err)
	}
	return &pair, true, nil
}

func (s *Store) Set(ctx context.Context, id string, pair domain.KeyPair) error {
	data, err := crypto.MarshalKeyPair(pair)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.prefix+id, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Client exposes the underlying connection so the rate limiter can share it.
func (s *Store) Client() *redis.Client {
	return s.client
}

func (s *Store) Close() error {
	return s.client.Close()
}

var _ domain.KeyStore = (*Store)(nil)
