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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func newSQLiteAdapter() *SQLAdapter {
	cfg := DefaultSQLConfig()
	cfg.Type = "sqlite"
	return NewSQLAdapter(cfg)
}

func TestSQLAdapterLifecycle(t *testing.T) {
	ctx := context.Background()
	adapter := newSQLiteAdapter()

	assert.False(t, adapter.IsConnected())
	assert.False(t, adapter.HealthCheck(ctx))
	_, err := adapter.DB()
	assert.ErrorIs(t, err, ErrNotConnected)

	require.NoError(t, adapter.Connect(ctx))
	assert.True(t, adapter.IsConnected())
	assert.True(t, adapter.HealthCheck(ctx))

	db, err := adapter.DB()
	require.NoError(t, err)
	assert.NotNil(t, db)

	require.NoError(t, adapter.Disconnect(ctx))
	assert.False(t, adapter.IsConnected())
	assert.False(t, adapter.HealthCheck(ctx))
	_, err = adapter.DB()
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestSQLAdapterConnectIsIdempotent(t *testing.T) {
	ctx := context.Background()
	adapter := newSQLiteAdapter()

	require.NoError(t, adapter.Connect(ctx))
	db, err := adapter.DB()
	require.NoError(t, err)

	require.NoError(t, adapter.Connect(ctx))
	same, err := adapter.DB()
	require.NoError(t, err)
	assert.Same(t, db, same)

	require.NoError(t, adapter.Disconnect(ctx))
	require.NoError(t, adapter.Disconnect(ctx))
}

func TestSQLAdapterDefaultsWhenConfigNil(t *testing.T) {
	adapter := NewSQLAdapter(nil)
	assert.Equal(t, "sqlite", adapter.Config().Type)
	assert.Equal(t, DatabaseTypeSQL, adapter.DatabaseType())
}

func TestSQLAdapterStatusAndStats(t *testing.T) {
	ctx := context.Background()
	adapter := newSQLiteAdapter()

	status := adapter.Status(ctx)
	assert.False(t, status.Connected)
	assert.NotEmpty(t, status.LastError)
	assert.Equal(t, &DBStats{}, adapter.Stats())

	require.NoError(t, adapter.Connect(ctx))
	defer func() { _ = adapter.Disconnect(ctx) }()

	status = adapter.Status(ctx)
	assert.True(t, status.Connected)
	assert.True(t, status.Healthy)
	assert.WithinDuration(t, time.Now(), status.LastCheckTime, 5*time.Second)
	assert.NotNil(t, adapter.Stats())
}

func TestSQLAdapterRunInTx(t *testing.T) {
	ctx := context.Background()
	adapter := newSQLiteAdapter()
	require.NoError(t, adapter.Connect(ctx))
	defer func() { _ = adapter.Disconnect(ctx) }()

	err := adapter.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.ExecContext(ctx, "SELECT 1")
		return err
	})
	assert.NoError(t, err)
}

func TestSQLAdapterCreateAndDropTables(t *testing.T) {
	ctx := context.Background()
	adapter := newSQLiteAdapter()
	require.NoError(t, adapter.Connect(ctx))
	defer func() { _ = adapter.Disconnect(ctx) }()

	type widget struct {
		bun.BaseModel `bun:"table:widgets"`
		ID            string `bun:"id,pk"`
	}

	require.NoError(t, adapter.CreateTables(ctx, (*widget)(nil)))
	// Creating again must not fail.
	require.NoError(t, adapter.CreateTables(ctx, (*widget)(nil)))
	require.NoError(t, adapter.DropTables(ctx, (*widget)(nil)))
}
