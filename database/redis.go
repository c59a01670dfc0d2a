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

package database

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisAdapter wraps one Redis client behind the Adapter contract.
type RedisAdapter struct {
	config *RedisConfig
	client *redis.Client
	logger Logger
	mu     sync.RWMutex
}

var _ DisposableAdapter = (*RedisAdapter)(nil)

// NewRedisAdapter returns a key-value adapter for the given configuration.
// If config is nil, a sensible default configuration is used.
func NewRedisAdapter(config *RedisConfig) *RedisAdapter {
	if config == nil {
		config = DefaultRedisConfig()
	}
	return &RedisAdapter{
		config: config,
		logger: NewLogger(),
	}
}

func (a *RedisAdapter) DatabaseType() DatabaseType { return DatabaseTypeKeyValue }

func (a *RedisAdapter) IsConnected() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.client != nil
}

// Config returns the immutable connection configuration.
func (a *RedisAdapter) Config() *RedisConfig { return a.config }

// Connect builds the client from the configured URL. Calling it while
// connected is a no-op.
func (a *RedisAdapter) Connect(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		return nil
	}

	opts, err := redis.ParseURL(a.config.URL)
	if err != nil {
		return &ConnectionError{Type: DatabaseTypeKeyValue, Err: err}
	}
	if a.config.PoolSize > 0 {
		opts.PoolSize = a.config.PoolSize
	}

	a.client = redis.NewClient(opts)

	if a.logger != nil {
		a.logger.Info("Key-value store connected:", "addr", opts.Addr)
	}
	return nil
}

// Disconnect closes the client. Safe to call when not connected.
func (a *RedisAdapter) Disconnect(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client == nil {
		return nil
	}

	err := a.client.Close()
	a.client = nil
	return err
}

// Dispose is a synonym for Disconnect.
func (a *RedisAdapter) Dispose(ctx context.Context) error {
	return a.Disconnect(ctx)
}

// HealthCheck pings the server with a short timeout. Every failure,
// including "not connected", yields false.
func (a *RedisAdapter) HealthCheck(ctx context.Context) bool {
	a.mu.RLock()
	client := a.client
	a.mu.RUnlock()

	if client == nil {
		return false
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()
	return client.Ping(ctxTimeout).Err() == nil
}

// Client returns the native client, or ErrNotConnected before Connect.
func (a *RedisAdapter) Client() (*redis.Client, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.client == nil {
		return nil, ErrNotConnected
	}
	return a.client, nil
}
