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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/quarrydb/quarry/database"
	"github.com/quarrydb/quarry/model"
	"github.com/quarrydb/quarry/types"
)

type todo struct {
	bun.BaseModel `bun:"table:todos"`
	model.SoftDeleteRecord

	Title     string           `bun:"title,notnull"`
	Completed bool             `bun:"completed,notnull,default:false"`
	Meta      types.Attributes `bun:"meta,type:jsonb"`
}

type apiKey struct {
	bun.BaseModel `bun:"table:api_keys"`
	model.Record

	Name string `bun:"name,notnull,unique"`
	Note string `bun:"note"`
}

func setupAdapter(t *testing.T) *database.SQLAdapter {
	t.Helper()
	ctx := context.Background()

	adapter := database.NewSQLAdapter(nil)
	require.NoError(t, adapter.Connect(ctx))
	require.NoError(t, adapter.CreateTables(ctx, (*todo)(nil), (*apiKey)(nil)))
	t.Cleanup(func() {
		_ = adapter.DropTables(ctx, (*todo)(nil), (*apiKey)(nil))
		_ = adapter.Disconnect(ctx)
	})
	return adapter
}

func todoRepo(t *testing.T) *SQLRepository[todo, *todo] {
	t.Helper()
	repo, err := NewSQLRepository[todo, *todo](setupAdapter(t))
	require.NoError(t, err)
	return repo
}

func seedTodos(t *testing.T, repo *SQLRepository[todo, *todo], titles ...string) []*todo {
	t.Helper()
	ctx := context.Background()
	out := make([]*todo, 0, len(titles))
	for _, title := range titles {
		created, err := repo.Create(ctx, &todo{Title: title})
		require.NoError(t, err)
		out = append(out, created)
	}
	return out
}

func TestSQLRepositoryCreateAssignsIDAndTimestamps(t *testing.T) {
	repo := todoRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, &todo{Title: "write report"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.False(t, created.UpdatedAt.IsZero())

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "write report", found.Title)
}

func TestSQLRepositoryJSONColumnRoundTrip(t *testing.T) {
	repo := todoRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, &todo{
		Title: "tag me",
		Meta:  types.Attributes{"labels": []any{"urgent"}, "weight": float64(2)},
	})
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.Meta, found.Meta)
}

func TestSQLRepositoryFindByIDMissing(t *testing.T) {
	repo := todoRepo(t)

	found, err := repo.FindByID(context.Background(), "no-such-id")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestSQLRepositoryFindByIDsSkipsMissing(t *testing.T) {
	repo := todoRepo(t)
	ctx := context.Background()
	created := seedTodos(t, repo, "a", "b")

	found, err := repo.FindByIDs(ctx, []string{created[0].ID, "ghost", created[1].ID})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	empty, err := repo.FindByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSQLRepositoryFindWhereAndCount(t *testing.T) {
	repo := todoRepo(t)
	ctx := context.Background()
	created := seedTodos(t, repo, "a", "b", "c")

	_, err := repo.Update(ctx, created[0].ID, map[string]any{"completed": true})
	require.NoError(t, err)

	pending, err := repo.FindWhere(ctx, map[string]any{"completed": false})
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	n, err := repo.Count(ctx, map[string]any{"completed": true})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	all, err := repo.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, all)
}

func TestSQLRepositoryUpdate(t *testing.T) {
	repo := todoRepo(t)
	ctx := context.Background()
	created := seedTodos(t, repo, "draft")[0]
	before := created.UpdatedAt

	updated, err := repo.Update(ctx, created.ID, map[string]any{
		"title":     "final",
		"completed": true,
	})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "final", updated.Title)
	assert.True(t, updated.Completed)
	assert.True(t, updated.UpdatedAt.After(before) || updated.UpdatedAt.Equal(before))

	missing, err := repo.Update(ctx, "no-such-id", map[string]any{"title": "x"})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLRepositoryUpdateEmptyValuesReadsBack(t *testing.T) {
	repo := todoRepo(t)
	ctx := context.Background()
	created := seedTodos(t, repo, "keep")[0]

	same, err := repo.Update(ctx, created.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, same)
	assert.Equal(t, "keep", same.Title)
}

func TestSQLRepositorySoftDeleteRoundTrip(t *testing.T) {
	repo := todoRepo(t)
	ctx := context.Background()
	created := seedTodos(t, repo, "to delete")[0]
	require.True(t, repo.SoftDeletes())

	removed, err := repo.Delete(ctx, created.ID, false)
	require.NoError(t, err)
	assert.True(t, removed)

	// Soft-deleted rows are invisible to every read path.
	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
	exists, err := repo.Exists(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	// IncludeDeleted looks through the marker.
	flagged, err := repo.FindByID(ctx, created.ID, IncludeDeleted())
	require.NoError(t, err)
	require.NotNil(t, flagged)
	assert.True(t, flagged.IsDeleted)
	require.NotNil(t, flagged.DeletedAt)
	n, err := repo.Count(ctx, nil, IncludeDeleted())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Deleting again affects nothing.
	removed, err = repo.Delete(ctx, created.ID, false)
	require.NoError(t, err)
	assert.False(t, removed)

	restored, err := repo.Restore(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, restored)
	assert.False(t, restored.IsDeleted)
	assert.Nil(t, restored.DeletedAt)

	// Restoring a live row matches nothing.
	again, err := repo.Restore(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestSQLRepositoryHardDeleteIsFinal(t *testing.T) {
	repo := todoRepo(t)
	ctx := context.Background()
	created := seedTodos(t, repo, "gone")[0]

	removed, err := repo.Delete(ctx, created.ID, true)
	require.NoError(t, err)
	assert.True(t, removed)

	// The row is gone even when deleted rows are included.
	found, err := repo.FindByID(ctx, created.ID, IncludeDeleted())
	require.NoError(t, err)
	assert.Nil(t, found)

	restored, err := repo.Restore(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, restored)
}

func TestSQLRepositoryFindAllWindow(t *testing.T) {
	repo := todoRepo(t)
	ctx := context.Background()
	seedTodos(t, repo, "a", "b", "c", "d", "e")

	window, err := repo.FindAll(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, window, 2)

	all, err := repo.FindAll(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, all[1].ID, window[0].ID)
	assert.Equal(t, all[2].ID, window[1].ID)

	past, err := repo.FindAll(ctx, 10, 2)
	require.NoError(t, err)
	assert.Empty(t, past)
}

func TestSQLRepositoryRestoreRequiresSoftDelete(t *testing.T) {
	adapter := setupAdapter(t)
	repo, err := NewSQLRepository[apiKey, *apiKey](adapter)
	require.NoError(t, err)
	require.False(t, repo.SoftDeletes())

	_, err = repo.Restore(context.Background(), "any")
	assert.ErrorIs(t, err, ErrNotSoftDeletable)
}

func TestSQLRepositoryBulkOperations(t *testing.T) {
	repo := todoRepo(t)
	ctx := context.Background()

	created, err := repo.CreateMany(ctx, []*todo{
		{Title: "one"}, {Title: "two"}, {Title: "three"},
	})
	require.NoError(t, err)
	require.Len(t, created, 3)
	for _, item := range created {
		assert.NotEmpty(t, item.ID)
	}

	ids := []string{created[0].ID, created[1].ID}
	updated, err := repo.UpdateMany(ctx, ids, map[string]any{"completed": true})
	require.NoError(t, err)
	assert.Equal(t, 2, updated)

	removed, err := repo.DeleteMany(ctx, ids, false)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	remaining, err := repo.FindAll(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)

	// Empty inputs never touch the database.
	none, err := repo.CreateMany(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
	n, err := repo.UpdateMany(ctx, nil, map[string]any{"completed": true})
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = repo.DeleteMany(ctx, nil, false)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLRepositoryFindPaginated(t *testing.T) {
	repo := todoRepo(t)
	ctx := context.Background()
	seedTodos(t, repo, "a", "b", "c", "d", "e")

	page, err := repo.FindPaginated(ctx, *types.NewPageRequest(1, 2), nil)
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 3, page.TotalPages())
	assert.True(t, page.HasNext())
	assert.False(t, page.HasPrev())

	last, err := repo.FindPaginated(ctx, *types.NewPageRequest(3, 2), nil)
	require.NoError(t, err)
	assert.Len(t, last.Items, 1)
	assert.False(t, last.HasNext())

	beyond, err := repo.FindPaginated(ctx, *types.NewPageRequest(9, 2), nil)
	require.NoError(t, err)
	assert.Empty(t, beyond.Items)
	assert.Equal(t, 5, beyond.Total)
}

func TestSQLRepositoryFindByCursorWalksAllRows(t *testing.T) {
	repo := todoRepo(t)
	ctx := context.Background()
	seedTodos(t, repo, "a", "b", "c", "d", "e")

	seen := map[string]bool{}
	cursor := ""
	for steps := 0; ; steps++ {
		require.Less(t, steps, 10, "cursor walk must terminate")
		items, next, err := repo.FindByCursor(ctx, cursor, 2, nil)
		require.NoError(t, err)
		for _, item := range items {
			assert.False(t, seen[item.ID], "no id may repeat across windows")
			seen[item.ID] = true
		}
		if next == "" {
			break
		}
		cursor = next
	}
	assert.Len(t, seen, 5)
}

func TestSQLRepositoryUpsert(t *testing.T) {
	adapter := setupAdapter(t)
	repo, err := NewSQLRepository[apiKey, *apiKey](adapter)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := repo.Upsert(ctx, &apiKey{Name: "deploy", Note: "v1"}, []string{"name"}, "note")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "v1", first.Note)

	second, err := repo.Upsert(ctx, &apiKey{Name: "deploy", Note: "v2"}, []string{"name"}, "note")
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, "v2", second.Note)
	assert.Equal(t, first.ID, second.ID, "conflict must update in place")

	n, err := repo.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLRepositoryUpsertDefaultsUpdateFields(t *testing.T) {
	adapter := setupAdapter(t)
	repo, err := NewSQLRepository[apiKey, *apiKey](adapter)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := repo.Upsert(ctx, &apiKey{Name: "deploy", Note: "v1"}, []string{"name"})
	require.NoError(t, err)
	require.NotNil(t, first)

	// Omitting update fields updates every non-conflict column, here note.
	second, err := repo.Upsert(ctx, &apiKey{Name: "deploy", Note: "v2"}, []string{"name"})
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, "v2", second.Note)
	assert.Equal(t, first.ID, second.ID, "identity must survive the implicit update set")

	n, err := repo.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLRepositoryFindOrCreate(t *testing.T) {
	adapter := setupAdapter(t)
	repo, err := NewSQLRepository[apiKey, *apiKey](adapter)
	require.NoError(t, err)
	ctx := context.Background()

	first, created, err := repo.FindOrCreate(ctx, &apiKey{Name: "ci", Note: "first"}, "name")
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, first)

	second, created, err := repo.FindOrCreate(ctx, &apiKey{Name: "ci", Note: "ignored"}, "name")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "first", second.Note)

	_, _, err = repo.FindOrCreate(ctx, &apiKey{Name: "x"})
	assert.Error(t, err)
}

func TestSQLRepositoryWithTxRollsBack(t *testing.T) {
	adapter := setupAdapter(t)
	repo, err := NewSQLRepository[todo, *todo](adapter)
	require.NoError(t, err)
	ctx := context.Background()

	boom := errors.New("boom")
	var insertedID string
	err = adapter.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		created, err := repo.WithTx(tx).Create(ctx, &todo{Title: "never lands"})
		if err != nil {
			return err
		}
		insertedID = created.ID
		return boom
	})
	require.ErrorIs(t, err, boom)

	found, err := repo.FindByID(ctx, insertedID)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestSQLRepositoryNoSessionGuard(t *testing.T) {
	repo := &SQLRepository[todo, *todo]{}

	_, err := repo.FindByID(context.Background(), "x")
	assert.ErrorIs(t, err, database.ErrNoSession)
}
