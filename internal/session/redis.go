// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UEAdmission Contributors

package session

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

// DefaultRedisKey is the hash that holds the session preferences.
const DefaultRedisKey = "ueadmission:session"

// redisTimeout bounds each Redis round trip; Preferences calls carry no
// context of their own.
const redisTimeout = 2 * time.Second

// RedisStore keeps preferences in a single Redis hash. It is meant for
// kiosk installs where the home directory is wiped between users.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore creates a RedisStore. An empty key selects DefaultRedisKey.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

// DialRedis connects to addr and verifies the connection with PING.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close() //nolint:errcheck // returning the ping error
		return nil, oops.Code("PREFS_REDIS_UNREACHABLE").
			With("addr", addr).
			Wrap(err)
	}
	return client, nil
}

// Put stores values as hash fields.
func (s *RedisStore) Put(values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	fields := make(map[string]any, len(values))
	for k, v := range values {
		fields[k] = v
	}
	if err := s.client.HSet(ctx, s.key, fields).Err(); err != nil {
		return oops.Code("PREFS_WRITE_FAILED").
			With("key", s.key).
			Wrap(err)
	}
	return nil
}

// Values returns all hash fields.
func (s *RedisStore) Values() (map[string]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	values, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, oops.Code("PREFS_READ_FAILED").
			With("key", s.key).
			Wrap(err)
	}
	return values, nil
}

// Delete removes hash fields.
func (s *RedisStore) Delete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	if err := s.client.HDel(ctx, s.key, keys...).Err(); err != nil {
		return oops.Code("PREFS_REMOVE_FAILED").
			With("key", s.key).
			Wrap(err)
	}
	return nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
