package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each document as a JSON string and indexes keys per kind in a set.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) docKey(kind Kind, key string) string {
	return fmt.Sprintf("%s:doc:%s:%s", s.prefix, kind, key)
}

func (s *RedisStore) indexKey(kind Kind) string {
	return fmt.Sprintf("%s:index:%s", s.prefix, kind)
}

func (s *RedisStore) counterKey(name string) string {
	return fmt.Sprintf("%s:counter:%s", s.prefix, name)
}

func (s *RedisStore) Get(ctx context.Context, kind Kind, key string, dst any) error {
	data, err := s.client.Get(ctx, s.docKey(kind, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load %s/%s: %w", kind, key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s/%s: %w", kind, key, err)
	}
	return nil
}

func (s *RedisStore) Put(ctx context.Context, kind Kind, key string, doc any) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", kind, key, err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.docKey(kind, key), payload, 0)
		pipe.SAdd(ctx, s.indexKey(kind), key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save %s/%s: %w", kind, key, err)
	}
	return nil
}

func (s *RedisStore) Keys(ctx context.Context, kind Kind) ([]string, error) {
	keys, err := s.client.SMembers(ctx, s.indexKey(kind)).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Next relies on INCR: the key holds the last id issued, so the first call returns 1.
func (s *RedisStore) Next(ctx context.Context, name string) (int64, error) {
	id, err := s.client.Incr(ctx, s.counterKey(name)).Result()
	if err != nil {
		return 0, fmt.Errorf("next %s: %w", name, err)
	}
	return id, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ Backend = (*RedisStore)(nil)
