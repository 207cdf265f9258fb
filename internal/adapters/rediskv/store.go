package rediskv

// Package rediskv backs the settings port with Redis, for deployments that
// already run Redis for sessions.

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/filegate/filegate/internal/ports"
)

// Store is a Redis-backed ports.SettingsStore.
type Store struct {
	client redis.UniversalClient
	prefix string
}

var _ ports.SettingsStore = (*Store)(nil)

// New creates a Store with the default key prefix.
func New(client redis.UniversalClient) *Store {
	return &Store{client: client, prefix: "settings:"}
}

// NewWithPrefix creates a Store with a custom key prefix.
func NewWithPrefix(client redis.UniversalClient, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ports.ErrSettingNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	// Settings never expire; policy invalidation runs on the watermark,
	// not on TTL.
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
