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

	"github.com/quarrydb/quarry/model"
	"github.com/quarrydb/quarry/types"
)

// Entity constrains a pointer-to-struct type that carries the standard
// record methods. Repositories are instantiated as R[T, *T].
type Entity[T any] interface {
	*T
	model.Entity
}

type queryOptions struct {
	includeDeleted bool
}

// QueryOption tunes a single read operation.
type QueryOption func(*queryOptions)

// IncludeDeleted lifts the soft-delete visibility filter for one read, so
// flagged rows appear alongside live ones.
func IncludeDeleted() QueryOption {
	return func(o *queryOptions) { o.includeDeleted = true }
}

func applyQueryOptions(opts []QueryOption) queryOptions {
	var o queryOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ReadRepository covers lookups that never mutate state.
type ReadRepository[T any] interface {
	FindByID(ctx context.Context, id string, opts ...QueryOption) (*T, error)
	FindAll(ctx context.Context, offset, limit int, opts ...QueryOption) ([]*T, error)
	FindByIDs(ctx context.Context, ids []string, opts ...QueryOption) ([]*T, error)
	FindWhere(ctx context.Context, filters map[string]any, opts ...QueryOption) ([]*T, error)
	Exists(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context, filters map[string]any, opts ...QueryOption) (int, error)
}

// WriteRepository covers single-record mutations.
type WriteRepository[T any] interface {
	Create(ctx context.Context, entity *T) (*T, error)
	Update(ctx context.Context, id string, values map[string]any) (*T, error)
	Delete(ctx context.Context, id string, hard bool) (bool, error)
}

// BulkRepository covers multi-record mutations.
type BulkRepository[T any] interface {
	CreateMany(ctx context.Context, entities []*T) ([]*T, error)
	UpdateMany(ctx context.Context, ids []string, values map[string]any) (int, error)
	DeleteMany(ctx context.Context, ids []string, hard bool) (int, error)
}

// PaginatedRepository covers both pagination styles: offset pages with a
// total count, and forward-only cursor windows.
type PaginatedRepository[T any] interface {
	FindPaginated(ctx context.Context, req types.PageRequest, filters map[string]any) (*types.PageResult[T], error)
	FindByCursor(ctx context.Context, cursor string, limit int, filters map[string]any) ([]*T, string, error)
}

// SoftDeleteRepository covers operations that only make sense for
// soft-deletable record types.
type SoftDeleteRepository[T any] interface {
	Restore(ctx context.Context, id string) (*T, error)
}

// UpsertRepository covers insert-or-update and get-or-create flows.
type UpsertRepository[T any] interface {
	Upsert(ctx context.Context, entity *T, conflictFields []string, updateFields ...string) (*T, error)
	FindOrCreate(ctx context.Context, entity *T, filterFields ...string) (*T, bool, error)
}

// Repository is the full SQL-facing contract.
type Repository[T any] interface {
	ReadRepository[T]
	WriteRepository[T]
	BulkRepository[T]
	PaginatedRepository[T]
	SoftDeleteRepository[T]
	UpsertRepository[T]
}
