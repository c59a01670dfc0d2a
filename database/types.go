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
	"time"

	"github.com/uptrace/bun"
)

// DatabaseType identifies the backend kind an adapter wraps.
type DatabaseType string

const (
	DatabaseTypeSQL      DatabaseType = "sql"
	DatabaseTypeDocument DatabaseType = "document"
	DatabaseTypeKeyValue DatabaseType = "kv"
)

func (t DatabaseType) String() string { return string(t) }

// Adapter is the lifecycle contract every backend adapter satisfies.
// Connect and Disconnect are idempotent; HealthCheck converts every
// failure, including "not connected", into false.
type Adapter interface {
	DatabaseType() DatabaseType
	IsConnected() bool
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	HealthCheck(ctx context.Context) bool
}

// TransactionalAdapter is implemented by adapters that can scope work to a
// transaction: commit on nil return, rollback on error, always releasing
// the underlying resource.
type TransactionalAdapter interface {
	Adapter
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error
}

// DisposableAdapter exposes Dispose as a synonym for Disconnect so a
// uniform shutdown routine can treat all adapters identically.
type DisposableAdapter interface {
	Dispose(ctx context.Context) error
}

// HealthStatus holds the result of a rich health probe against a backend.
type HealthStatus struct {
	Healthy       bool          `json:"healthy"`
	Connected     bool          `json:"connected"`
	ResponseTime  time.Duration `json:"response_time"`
	ActiveConns   int           `json:"active_conns"`
	IdleConns     int           `json:"idle_conns"`
	MaxOpenConns  int           `json:"max_open_conns"`
	LastError     string        `json:"last_error,omitempty"`
	LastCheckTime time.Time     `json:"last_check_time"`
}

// DBStats mirrors database/sql pool statistics.
type DBStats struct {
	MaxOpenConns      int           `json:"max_open_conns"`
	OpenConns         int           `json:"open_conns"`
	InUse             int           `json:"in_use"`
	Idle              int           `json:"idle"`
	WaitCount         int64         `json:"wait_count"`
	WaitDuration      time.Duration `json:"wait_duration"`
	MaxIdleClosed     int64         `json:"max_idle_closed"`
	MaxIdleTimeClosed int64         `json:"max_idle_time_closed"`
	MaxLifetimeClosed int64         `json:"max_lifetime_closed"`
}

// SQLConfig describes how to connect to a relational backend and tune its
// pool. The Type field carries the dialect token: postgres, mysql, sqlite.
type SQLConfig struct {
	Type            string        `json:"type" yaml:"type"`
	Host            string        `json:"host" yaml:"host"`
	Port            int           `json:"port" yaml:"port"`
	Username        string        `json:"username" yaml:"username"`
	Password        string        `json:"password" yaml:"password"`
	DBName          string        `json:"dbname" yaml:"dbname"`
	SSLMode         string        `json:"sslmode" yaml:"sslmode"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time" yaml:"conn_max_idle_time"`
	ConnectTimeout  time.Duration `json:"connect_timeout" yaml:"connect_timeout"`
	ReadTimeout     time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout"`
	EnableQueryLog  bool          `json:"enable_query_log" yaml:"enable_query_log"`
	SlowQueryTime   time.Duration `json:"slow_query_time" yaml:"slow_query_time"`
}

// DefaultSQLConfig returns a connection config with sensible defaults.
func DefaultSQLConfig() *SQLConfig {
	return &SQLConfig{
		Type:            "sqlite",
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: time.Minute * 30,
		ConnectTimeout:  time.Second * 10,
		ReadTimeout:     time.Second * 30,
		WriteTimeout:    time.Second * 30,
		SlowQueryTime:   time.Second * 2,
	}
}

// MongoConfig describes a document backend connection.
type MongoConfig struct {
	URL         string `json:"url" yaml:"url"`
	Database    string `json:"database" yaml:"database"`
	MaxPoolSize uint64 `json:"max_pool_size" yaml:"max_pool_size"`
	MinPoolSize uint64 `json:"min_pool_size" yaml:"min_pool_size"`
}

// DefaultMongoConfig returns a document config with sensible defaults.
func DefaultMongoConfig() *MongoConfig {
	return &MongoConfig{
		URL:         "mongodb://localhost:27017",
		MaxPoolSize: 100,
	}
}

// RedisConfig describes a key-value backend connection.
type RedisConfig struct {
	URL      string `json:"url" yaml:"url"`
	PoolSize int    `json:"pool_size" yaml:"pool_size"`
}

// DefaultRedisConfig returns a key-value config with sensible defaults.
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		URL:      "redis://localhost:6379/0",
		PoolSize: 10,
	}
}
