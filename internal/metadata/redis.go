package metadata

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "phonesharing:metadata:"

// Store is a second permanent tier shared between processes.
type Store interface {
	Load(ctx context.Context, name string) (Metadata, bool, error)
	Save(ctx context.Context, name string, md Metadata) error
}

// RedisStore keeps metadata as JSON strings without expiry.
type RedisStore struct {
	client redis.Cmdable
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Load(ctx context.Context, name string) (Metadata, bool, error) {
	raw, err := s.client.Get(ctx, storeKey(name)).Result()
	if errors.Is(err, redis.Nil) {
		return Metadata{}, false, nil
	}
	if err != nil {
		return Metadata{}, false, fmt.Errorf("redis get: %w", err)
	}

	var md Metadata
	if err := json.UnmarshalFromString(raw, &md); err != nil {
		return Metadata{}, false, fmt.Errorf("decode stored metadata: %w", err)
	}
	return md, true, nil
}

func (s *RedisStore) Save(ctx context.Context, name string, md Metadata) error {
	raw, err := encodeMetadata(md)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, storeKey(name), raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func storeKey(name string) string {
	return keyPrefix + name
}

func encodeMetadata(md Metadata) (string, error) {
	raw, err := json.MarshalToString(md)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return raw, nil
}
