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
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

// SQLAdapter wraps one relational backend connection pool behind the
// Adapter contract, using Bun over database/sql.
type SQLAdapter struct {
	config    *SQLConfig
	db        *bun.DB
	sqlDB     *sql.DB
	logger    Logger
	mu        sync.RWMutex
	connected bool
	lastError error
}

var (
	_ TransactionalAdapter = (*SQLAdapter)(nil)
	_ DisposableAdapter    = (*SQLAdapter)(nil)
)

// NewSQLAdapter returns an SQL adapter for the given configuration.
// If config is nil, a sensible default configuration is used.
func NewSQLAdapter(config *SQLConfig) *SQLAdapter {
	if config == nil {
		config = DefaultSQLConfig()
	}
	return &SQLAdapter{
		config: config,
		logger: NewLogger(),
	}
}

func (a *SQLAdapter) DatabaseType() DatabaseType { return DatabaseTypeSQL }

func (a *SQLAdapter) IsConnected() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.connected
}

// Config returns the immutable connection configuration.
func (a *SQLAdapter) Config() *SQLConfig { return a.config }

// Connect establishes the connection pool. Calling it while connected is a
// no-op.
func (a *SQLAdapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.connected && a.db != nil {
		return nil
	}

	var err error
	a.sqlDB, a.db, err = a.createConnection()
	if err != nil {
		a.lastError = err
		return &ConnectionError{Type: DatabaseTypeSQL, Err: err}
	}

	a.configureConnectionPool()

	ctxTimeout, cancel := context.WithTimeout(ctx, a.config.ConnectTimeout)
	defer cancel()

	if err := a.db.PingContext(ctxTimeout); err != nil {
		a.lastError = err
		_ = a.db.Close()
		a.db = nil
		a.sqlDB = nil
		return &ConnectionError{Type: DatabaseTypeSQL, Err: err}
	}

	a.connected = true
	a.lastError = nil

	if a.logger != nil {
		a.logger.Info("Database connected successfully:", "type", a.config.Type, "host", a.config.Host)
	}
	return nil
}

func (a *SQLAdapter) createConnection() (*sql.DB, *bun.DB, error) {
	var sqlDB *sql.DB
	var db *bun.DB
	var err error

	if a.config.ConnectTimeout.Seconds() <= 0 {
		a.config.ConnectTimeout = 30 * time.Second
	}

	switch a.config.Type {
	case "mysql":
		sqlDB, db, err = a.createMySQLConnection()
	case "postgres", "postgresql":
		sqlDB, db, err = a.createPostgreSQLConnection()
	case "sqlite", "sqlite3":
		sqlDB, db, err = a.createSQLiteConnection()
	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s", a.config.Type)
	}

	if err != nil {
		return nil, nil, err
	}

	if a.config.EnableQueryLog {
		db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
			bundebug.FromEnv("BUNDEBUG"),
		))
		db.AddQueryHook(NewQueryHook("QUARRY_SQL_LOG"))
	}

	if a.config.SlowQueryTime > 0 {
		db.AddQueryHook(&slowQueryHook{
			slowTime: a.config.SlowQueryTime,
			logger:   a.logger,
		})
	}

	return sqlDB, db, nil
}

func (a *SQLAdapter) createMySQLConnection() (*sql.DB, *bun.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%s&readTimeout=%s&writeTimeout=%s",
		a.config.Username,
		a.config.Password,
		a.config.Host,
		a.config.Port,
		a.config.DBName,
		a.config.ConnectTimeout,
		a.config.ReadTimeout,
		a.config.WriteTimeout,
	)

	sqlDB, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, nil, err
	}

	db := bun.NewDB(sqlDB, mysqldialect.New())
	return sqlDB, db, nil
}

func (a *SQLAdapter) createPostgreSQLConnection() (*sql.DB, *bun.DB, error) {
	sslMode := a.config.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&connect_timeout=%d",
		a.config.Username,
		a.config.Password,
		a.config.Host,
		a.config.Port,
		a.config.DBName,
		sslMode,
		int(a.config.ConnectTimeout.Seconds()),
	)

	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, err
	}

	db := bun.NewDB(sqlDB, pgdialect.New())
	return sqlDB, db, nil
}

func (a *SQLAdapter) createSQLiteConnection() (*sql.DB, *bun.DB, error) {
	dsn := fmt.Sprintf("%s.db", a.config.DBName)
	if a.config.DBName == "" || a.config.DBName == ":memory:" {
		dsn = "file::memory:?cache=shared"
	}

	sqlDB, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, nil, err
	}

	db := bun.NewDB(sqlDB, sqlitedialect.New())
	return sqlDB, db, nil
}

func (a *SQLAdapter) configureConnectionPool() {
	if a.sqlDB == nil {
		return
	}

	a.sqlDB.SetMaxIdleConns(a.config.MaxIdleConns)
	a.sqlDB.SetMaxOpenConns(a.config.MaxOpenConns)
	a.sqlDB.SetConnMaxLifetime(a.config.ConnMaxLifetime)
	a.sqlDB.SetConnMaxIdleTime(a.config.ConnMaxIdleTime)
}

// Disconnect closes the pool. Safe to call when not connected.
func (a *SQLAdapter) Disconnect(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.db == nil {
		a.connected = false
		return nil
	}

	err := a.db.Close()
	a.db = nil
	a.sqlDB = nil
	a.connected = false

	if a.logger != nil {
		if err != nil {
			a.logger.Error("Failed to close database connection", "error", err)
		} else {
			a.logger.Info("Database connection closed")
		}
	}
	return err
}

// Dispose is a synonym for Disconnect.
func (a *SQLAdapter) Dispose(ctx context.Context) error {
	return a.Disconnect(ctx)
}

// HealthCheck pings the backend with a short timeout. Every failure,
// including "not connected", yields false.
func (a *SQLAdapter) HealthCheck(ctx context.Context) bool {
	a.mu.RLock()
	db := a.db
	a.mu.RUnlock()

	if db == nil {
		return false
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()
	return db.PingContext(ctxTimeout) == nil
}

// Status returns a rich health report including pool statistics.
func (a *SQLAdapter) Status(ctx context.Context) *HealthStatus {
	a.mu.RLock()
	db := a.db
	sqlDB := a.sqlDB
	connected := a.connected
	a.mu.RUnlock()

	start := time.Now()
	status := &HealthStatus{
		LastCheckTime: start,
		Connected:     connected,
	}

	if db == nil {
		status.LastError = "database not initialized"
		return status
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	err := db.PingContext(ctxTimeout)
	status.ResponseTime = time.Since(start)

	if err != nil {
		status.Connected = false
		status.LastError = err.Error()
	} else {
		status.Healthy = true
		status.Connected = true
	}

	if sqlDB != nil {
		stats := sqlDB.Stats()
		status.ActiveConns = stats.InUse
		status.IdleConns = stats.Idle
		status.MaxOpenConns = stats.MaxOpenConnections
	}
	return status
}

// Stats returns connection pool statistics.
func (a *SQLAdapter) Stats() *DBStats {
	a.mu.RLock()
	sqlDB := a.sqlDB
	a.mu.RUnlock()

	if sqlDB == nil {
		return &DBStats{}
	}

	stats := sqlDB.Stats()
	return &DBStats{
		MaxOpenConns:      stats.MaxOpenConnections,
		OpenConns:         stats.OpenConnections,
		InUse:             stats.InUse,
		Idle:              stats.Idle,
		WaitCount:         stats.WaitCount,
		WaitDuration:      stats.WaitDuration,
		MaxIdleClosed:     stats.MaxIdleClosed,
		MaxIdleTimeClosed: stats.MaxIdleTimeClosed,
		MaxLifetimeClosed: stats.MaxLifetimeClosed,
	}
}

// DB returns the Bun handle, or ErrNotConnected before Connect.
func (a *SQLAdapter) DB() (*bun.DB, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.db == nil {
		return nil, ErrNotConnected
	}
	return a.db, nil
}

// RunInTx runs fn inside a transaction: commit on nil, rollback on error
// or panic.
func (a *SQLAdapter) RunInTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	db, err := a.DB()
	if err != nil {
		return err
	}
	return db.RunInTx(ctx, &sql.TxOptions{}, fn)
}

// CreateTables creates the tables for the given model instances if they do
// not exist yet.
func (a *SQLAdapter) CreateTables(ctx context.Context, models ...interface{}) error {
	db, err := a.DB()
	if err != nil {
		return err
	}
	for _, m := range models {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table for %T: %w", m, err)
		}
	}
	return nil
}

// DropTables drops the tables for the given model instances.
func (a *SQLAdapter) DropTables(ctx context.Context, models ...interface{}) error {
	db, err := a.DB()
	if err != nil {
		return err
	}
	for _, m := range models {
		if _, err := db.NewDropTable().Model(m).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop table for %T: %w", m, err)
		}
	}
	return nil
}

// SetLogger replaces the adapter logger.
func (a *SQLAdapter) SetLogger(logger Logger) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logger = logger
}
