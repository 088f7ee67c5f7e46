// Package redis implements a content store backed by Redis strings.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Lawliet-Chan/offchain-storage/pkg/store/content"
	"github.com/Lawliet-Chan/offchain-storage/pkg/store/metadata"
)

// RedisContentStoreConfig contains configuration for the Redis store.
type RedisContentStoreConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// KeyPrefix is prepended to every key (default: "offchain:content:")
	KeyPrefix string `mapstructure:"key_prefix"`

	// KeyEncoding is raw, hex or base58 (default: raw). Redis keys are
	// binary-safe, so raw accepts any identifier bytes here.
	KeyEncoding string `mapstructure:"key_encoding"`
}

// RedisContentStore implements content.Store with GET/SET/DEL.
//
// Keys never expire: a payload lives exactly as long as its access record,
// so the Redis instance must not run an eviction policy that drops keys.
//
// Thread Safety:
// Safe for concurrent use; *redis.Client is.
type RedisContentStore struct {
	client    *redis.Client
	keyPrefix string
	encoding  content.KeyEncoding
}

// NewRedisContentStore connects to Redis and verifies it with PING.
func NewRedisContentStore(ctx context.Context, cfg RedisContentStoreConfig) (*RedisContentStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis content store: addr is required")
	}

	enc, err := content.ParseKeyEncoding(cfg.KeyEncoding)
	if err != nil {
		return nil, fmt.Errorf("redis content store: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "offchain:content:"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	store := &RedisContentStore{
		client:    client,
		keyPrefix: prefix,
		encoding:  enc,
	}

	if err := store.Healthcheck(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}

	return store, nil
}

func (s *RedisContentStore) key(id metadata.Identifier) (string, error) {
	if len(id) == 0 {
		return "", fmt.Errorf("empty identifier: %w", content.ErrInvalidIdentifier)
	}
	if s.encoding == content.KeyRaw {
		return s.keyPrefix + string(id), nil
	}

	encoded, err := content.EncodeKey(id, s.encoding)
	if err != nil {
		return "", err
	}
	return s.keyPrefix + encoded, nil
}

func (s *RedisContentStore) Get(ctx context.Context, id metadata.Identifier) ([]byte, error) {
	key, err := s.key(id)
	if err != nil {
		return nil, err
	}

	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
	}
	if err != nil {
		return nil, wrapErr(ctx, "get", err)
	}

	return data, nil
}

func (s *RedisContentStore) Set(ctx context.Context, id metadata.Identifier, data []byte) error {
	key, err := s.key(id)
	if err != nil {
		return err
	}

	if data == nil {
		data = []byte{}
	}

	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return wrapErr(ctx, "set", err)
	}
	return nil
}

func (s *RedisContentStore) Delete(ctx context.Context, id metadata.Identifier) error {
	key, err := s.key(id)
	if err != nil {
		return err
	}

	if err := s.client.Del(ctx, key).Err(); err != nil {
		return wrapErr(ctx, "del", err)
	}
	return nil
}

// Healthcheck sends PING.
func (s *RedisContentStore) Healthcheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return wrapErr(ctx, "ping", err)
	}
	return nil
}

func (s *RedisContentStore) Close() error {
	return s.client.Close()
}

func wrapErr(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, redis.ErrClosed) {
		return fmt.Errorf("redis %s: %w", op, content.ErrStoreClosed)
	}
	return fmt.Errorf("redis %s: %w: %v", op, content.ErrUnavailable, err)
}
