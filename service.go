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

// Package quarry exposes the service layer of the persistence toolkit:
// generic business-facing CRUD over the repository package, with absence
// reported as NotFoundError and cursors wrapped into opaque tokens.
package quarry

import (
	"context"

	"github.com/quarrydb/quarry/repository"
	"github.com/quarrydb/quarry/types"
)

// Service is the generic business-facing layer over one record type. It
// differs from the repository in two ways: lookups for missing ids fail
// with NotFoundError instead of returning nil, and cursor pagination
// speaks opaque tokens.
type Service[T any] struct {
	repo     repository.Repository[T]
	resource string
}

// NewService wraps a repository. The resource name appears in not-found
// errors ("todo with id '...' not found").
func NewService[T any](repo repository.Repository[T], resource string) *Service[T] {
	return &Service[T]{repo: repo, resource: resource}
}

// Repository exposes the wrapped repository for callers that need
// lower-level access, such as transactional flows.
func (s *Service[T]) Repository() repository.Repository[T] { return s.repo }

func (s *Service[T]) notFound(id string) error {
	return &NotFoundError{Resource: s.resource, ID: id}
}

// FindByID returns the record or a NotFoundError. Pass
// repository.IncludeDeleted() to look through soft-delete markers.
func (s *Service[T]) FindByID(ctx context.Context, id string, opts ...repository.QueryOption) (*T, error) {
	entity, err := s.repo.FindByID(ctx, id, opts...)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, s.notFound(id)
	}
	return entity, nil
}

// FindAll returns one window of visible records ordered by id.
func (s *Service[T]) FindAll(ctx context.Context, offset, limit int, opts ...repository.QueryOption) ([]*T, error) {
	return s.repo.FindAll(ctx, offset, limit, opts...)
}

// FindWhere returns visible records matching all equality filters.
func (s *Service[T]) FindWhere(ctx context.Context, filters map[string]any, opts ...repository.QueryOption) ([]*T, error) {
	return s.repo.FindWhere(ctx, filters, opts...)
}

// Exists reports whether a visible record with the id exists.
func (s *Service[T]) Exists(ctx context.Context, id string) (bool, error) {
	return s.repo.Exists(ctx, id)
}

// Count returns the number of visible records matching the filters.
func (s *Service[T]) Count(ctx context.Context, filters map[string]any, opts ...repository.QueryOption) (int, error) {
	return s.repo.Count(ctx, filters, opts...)
}

// Create stores a new record and returns it.
func (s *Service[T]) Create(ctx context.Context, entity *T) (*T, error) {
	return s.repo.Create(ctx, entity)
}

// Update applies a partial update and returns the refreshed record, or a
// NotFoundError when the id does not match a visible record. An empty
// value map reads the record back without writing.
func (s *Service[T]) Update(ctx context.Context, id string, values map[string]any) (*T, error) {
	entity, err := s.repo.Update(ctx, id, values)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, s.notFound(id)
	}
	return entity, nil
}

// Delete removes the record or returns a NotFoundError.
func (s *Service[T]) Delete(ctx context.Context, id string, hard bool) error {
	removed, err := s.repo.Delete(ctx, id, hard)
	if err != nil {
		return err
	}
	if !removed {
		return s.notFound(id)
	}
	return nil
}

// Restore revives a soft-deleted record or returns a NotFoundError when no
// flagged record matches.
func (s *Service[T]) Restore(ctx context.Context, id string) (*T, error) {
	entity, err := s.repo.Restore(ctx, id)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, s.notFound(id)
	}
	return entity, nil
}

// CreateMany stores new records in one call.
func (s *Service[T]) CreateMany(ctx context.Context, entities []*T) ([]*T, error) {
	return s.repo.CreateMany(ctx, entities)
}

// UpdateMany applies the same partial update to every id, returning the
// number of records changed.
func (s *Service[T]) UpdateMany(ctx context.Context, ids []string, values map[string]any) (int, error) {
	return s.repo.UpdateMany(ctx, ids, values)
}

// DeleteMany removes records, returning the number affected.
func (s *Service[T]) DeleteMany(ctx context.Context, ids []string, hard bool) (int, error) {
	return s.repo.DeleteMany(ctx, ids, hard)
}

// FindPaginated returns one offset page with totals.
func (s *Service[T]) FindPaginated(ctx context.Context, req types.PageRequest, filters map[string]any) (*types.PageResult[T], error) {
	return s.repo.FindPaginated(ctx, req, filters)
}

// FindByCursor returns one cursor window. The token is opaque; pass an
// empty token for the first page and the returned NextCursor to continue.
// Corrupt tokens restart from the beginning rather than failing.
func (s *Service[T]) FindByCursor(ctx context.Context, token string, limit int, filters map[string]any) (*types.CursorResult[T], error) {
	cursor := types.DecodeCursor(token)
	items, next, err := s.repo.FindByCursor(ctx, cursor, limit, filters)
	if err != nil {
		return nil, err
	}
	result := &types.CursorResult[T]{
		Items:   items,
		HasNext: next != "",
		HasPrev: cursor != "",
	}
	if items == nil {
		result.Items = []*T{}
	}
	if next != "" {
		result.NextCursor = types.EncodeCursor(next)
	}
	if cursor != "" {
		result.PrevCursor = token
	}
	return result, nil
}

// Upsert inserts or updates by the conflict key and returns the stored
// record.
func (s *Service[T]) Upsert(ctx context.Context, entity *T, conflictFields []string, updateFields ...string) (*T, error) {
	return s.repo.Upsert(ctx, entity, conflictFields, updateFields...)
}

// FindOrCreate returns the record matching the entity's filter fields,
// creating it when absent. The bool reports whether an insert happened.
func (s *Service[T]) FindOrCreate(ctx context.Context, entity *T, filterFields ...string) (*T, bool, error) {
	return s.repo.FindOrCreate(ctx, entity, filterFields...)
}
