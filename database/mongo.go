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

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// MongoAdapter wraps one MongoDB client behind the Adapter contract.
type MongoAdapter struct {
	config   *MongoConfig
	client   *mongo.Client
	database *mongo.Database
	logger   Logger
	mu       sync.RWMutex
}

var _ DisposableAdapter = (*MongoAdapter)(nil)

// NewMongoAdapter returns a document adapter for the given configuration.
// If config is nil, a sensible default configuration is used.
func NewMongoAdapter(config *MongoConfig) *MongoAdapter {
	if config == nil {
		config = DefaultMongoConfig()
	}
	return &MongoAdapter{
		config: config,
		logger: NewLogger(),
	}
}

func (a *MongoAdapter) DatabaseType() DatabaseType { return DatabaseTypeDocument }

func (a *MongoAdapter) IsConnected() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.client != nil
}

// Config returns the immutable connection configuration.
func (a *MongoAdapter) Config() *MongoConfig { return a.config }

// Connect builds the client. Calling it while connected is a no-op. The
// driver connects lazily, so an unreachable backend surfaces at the first
// operation or health check rather than here.
func (a *MongoAdapter) Connect(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		return nil
	}

	opts := options.Client().
		ApplyURI(a.config.URL).
		SetMaxPoolSize(a.config.MaxPoolSize).
		SetMinPoolSize(a.config.MinPoolSize)

	client, err := mongo.Connect(opts)
	if err != nil {
		return &ConnectionError{Type: DatabaseTypeDocument, Err: err}
	}

	a.client = client
	a.database = client.Database(a.config.Database)

	if a.logger != nil {
		a.logger.Info("Document store connected:", "database", a.config.Database)
	}
	return nil
}

// Disconnect releases the client. Safe to call when not connected.
func (a *MongoAdapter) Disconnect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client == nil {
		return nil
	}

	err := a.client.Disconnect(ctx)
	a.client = nil
	a.database = nil
	return err
}

// Dispose is a synonym for Disconnect.
func (a *MongoAdapter) Dispose(ctx context.Context) error {
	return a.Disconnect(ctx)
}

// HealthCheck pings the primary with a short timeout. Every failure,
// including "not connected", yields false.
func (a *MongoAdapter) HealthCheck(ctx context.Context) bool {
	a.mu.RLock()
	client := a.client
	a.mu.RUnlock()

	if client == nil {
		return false
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()
	return client.Ping(ctxTimeout, readpref.Primary()) == nil
}

// Database returns the bound database handle, or ErrNotConnected before
// Connect.
func (a *MongoAdapter) Database() (*mongo.Database, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.database == nil {
		return nil, ErrNotConnected
	}
	return a.database, nil
}

// Collection returns the named collection, or ErrNotConnected before
// Connect.
func (a *MongoAdapter) Collection(name string) (*mongo.Collection, error) {
	db, err := a.Database()
	if err != nil {
		return nil, err
	}
	return db.Collection(name), nil
}
