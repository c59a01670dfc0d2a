/*
 * Copyright 2025 quarrydb.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quarrydb/quarry/database"
)

// KeyValueRepository stores JSON-encoded values of one type under a shared
// key prefix. The prefix namespaces repositories that share a backend.
type KeyValueRepository[T any] struct {
	adapter *database.RedisAdapter
	prefix  string
}

// NewKeyValueRepository builds a repository over a connected key-value
// adapter. An empty prefix stores keys verbatim.
func NewKeyValueRepository[T any](adapter *database.RedisAdapter, prefix string) *KeyValueRepository[T] {
	return &KeyValueRepository[T]{adapter: adapter, prefix: prefix}
}

// NewKeyValueRepositoryFor resolves a named key-value adapter out of the
// registry (empty name means the default).
func NewKeyValueRepositoryFor[T any](registry *database.Registry, adapterName, prefix string) (*KeyValueRepository[T], error) {
	adapter, err := registry.GetKV(adapterName)
	if err != nil {
		return nil, err
	}
	return NewKeyValueRepository[T](adapter, prefix), nil
}

// Prefix returns the key namespace.
func (r *KeyValueRepository[T]) Prefix() string { return r.prefix }

func (r *KeyValueRepository[T]) makeKey(key string) string {
	if r.prefix == "" {
		return key
	}
	return r.prefix + ":" + key
}

func (r *KeyValueRepository[T]) stripPrefix(key string) string {
	if r.prefix == "" {
		return key
	}
	return strings.TrimPrefix(key, r.prefix+":")
}

func (r *KeyValueRepository[T]) client() (*redis.Client, error) {
	return r.adapter.Client()
}

// Get returns the stored value and whether the key exists.
func (r *KeyValueRepository[T]) Get(ctx context.Context, key string) (*T, bool, error) {
	client, err := r.client()
	if err != nil {
		return nil, false, err
	}
	data, err := client.Get(ctx, r.makeKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, false, err
	}
	return &value, true, nil
}

// Set stores the value. A zero ttl means no expiry.
func (r *KeyValueRepository[T]) Set(ctx context.Context, key string, value *T, ttl time.Duration) error {
	client, err := r.client()
	if err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return client.Set(ctx, r.makeKey(key), data, ttl).Err()
}

// Delete removes the key, reporting whether it existed.
func (r *KeyValueRepository[T]) Delete(ctx context.Context, key string) (bool, error) {
	client, err := r.client()
	if err != nil {
		return false, err
	}
	removed, err := client.Del(ctx, r.makeKey(key)).Result()
	return removed > 0, err
}

// Exists reports whether the key is present.
func (r *KeyValueRepository[T]) Exists(ctx context.Context, key string) (bool, error) {
	client, err := r.client()
	if err != nil {
		return false, err
	}
	n, err := client.Exists(ctx, r.makeKey(key)).Result()
	return n > 0, err
}

// GetMany fetches values for keys in one round trip. Missing keys are
// absent from the result map.
func (r *KeyValueRepository[T]) GetMany(ctx context.Context, keys []string) (map[string]*T, error) {
	result := make(map[string]*T, len(keys))
	if len(keys) == 0 {
		return result, nil
	}
	client, err := r.client()
	if err != nil {
		return nil, err
	}
	fullKeys := make([]string, len(keys))
	for i, key := range keys {
		fullKeys[i] = r.makeKey(key)
	}
	values, err := client.MGet(ctx, fullKeys...).Result()
	if err != nil {
		return nil, err
	}
	for i, raw := range values {
		if raw == nil {
			continue
		}
		text, ok := raw.(string)
		if !ok {
			continue
		}
		var value T
		if err := json.Unmarshal([]byte(text), &value); err != nil {
			return nil, err
		}
		result[keys[i]] = &value
	}
	return result, nil
}

// SetMany stores values in one pipelined round trip with a shared ttl.
func (r *KeyValueRepository[T]) SetMany(ctx context.Context, values map[string]*T, ttl time.Duration) error {
	if len(values) == 0 {
		return nil
	}
	client, err := r.client()
	if err != nil {
		return err
	}
	pipe := client.Pipeline()
	for key, value := range values {
		data, err := json.Marshal(value)
		if err != nil {
			return err
		}
		pipe.Set(ctx, r.makeKey(key), data, ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// DeleteMany removes keys in one call, returning the number removed.
func (r *KeyValueRepository[T]) DeleteMany(ctx context.Context, keys []string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	client, err := r.client()
	if err != nil {
		return 0, err
	}
	fullKeys := make([]string, len(keys))
	for i, key := range keys {
		fullKeys[i] = r.makeKey(key)
	}
	removed, err := client.Del(ctx, fullKeys...).Result()
	return int(removed), err
}

// Keys returns all keys in the namespace matching the glob pattern, with
// the prefix stripped.
func (r *KeyValueRepository[T]) Keys(ctx context.Context, pattern string) ([]string, error) {
	client, err := r.client()
	if err != nil {
		return nil, err
	}
	if pattern == "" {
		pattern = "*"
	}
	found, err := client.Keys(ctx, r.makeKey(pattern)).Result()
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(found))
	for i, key := range found {
		keys[i] = r.stripPrefix(key)
	}
	return keys, nil
}

// TTL returns the remaining lifetime of a key. Keys without expiry report
// a negative duration per backend convention.
func (r *KeyValueRepository[T]) TTL(ctx context.Context, key string) (time.Duration, error) {
	client, err := r.client()
	if err != nil {
		return 0, err
	}
	return client.TTL(ctx, r.makeKey(key)).Result()
}

// Expire sets a fresh ttl, reporting whether the key existed.
func (r *KeyValueRepository[T]) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	client, err := r.client()
	if err != nil {
		return false, err
	}
	return client.Expire(ctx, r.makeKey(key), ttl).Result()
}

// HSet stores one field of a hash key.
func (r *KeyValueRepository[T]) HSet(ctx context.Context, key, field string, value *T) error {
	client, err := r.client()
	if err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return client.HSet(ctx, r.makeKey(key), field, data).Err()
}

// HGet returns one field of a hash key and whether it exists.
func (r *KeyValueRepository[T]) HGet(ctx context.Context, key, field string) (*T, bool, error) {
	client, err := r.client()
	if err != nil {
		return nil, false, err
	}
	data, err := client.HGet(ctx, r.makeKey(key), field).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, false, err
	}
	return &value, true, nil
}

// HGetAll returns every field of a hash key.
func (r *KeyValueRepository[T]) HGetAll(ctx context.Context, key string) (map[string]*T, error) {
	client, err := r.client()
	if err != nil {
		return nil, err
	}
	raw, err := client.HGetAll(ctx, r.makeKey(key)).Result()
	if err != nil {
		return nil, err
	}
	result := make(map[string]*T, len(raw))
	for field, text := range raw {
		var value T
		if err := json.Unmarshal([]byte(text), &value); err != nil {
			return nil, err
		}
		result[field] = &value
	}
	return result, nil
}

// HDel removes fields of a hash key, returning the number removed.
func (r *KeyValueRepository[T]) HDel(ctx context.Context, key string, fields ...string) (int, error) {
	if len(fields) == 0 {
		return 0, nil
	}
	client, err := r.client()
	if err != nil {
		return 0, err
	}
	removed, err := client.HDel(ctx, r.makeKey(key), fields...).Result()
	return int(removed), err
}

// HExists reports whether a field of a hash key is present.
func (r *KeyValueRepository[T]) HExists(ctx context.Context, key, field string) (bool, error) {
	client, err := r.client()
	if err != nil {
		return false, err
	}
	return client.HExists(ctx, r.makeKey(key), field).Result()
}
