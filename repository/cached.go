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
	"time"

	"github.com/viccon/sturdyc"
)

// CacheConfig sizes the in-process cache of a CachedRepository.
type CacheConfig struct {
	Capacity           int
	NumShards          int
	TTL                time.Duration
	EvictionPercentage int
}

// DefaultCacheConfig returns a cache sized for a few thousand hot records.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Capacity:           10_000,
		NumShards:          64,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
	}
}

// CachedRepository decorates a repository with an in-process read-through
// cache on id lookups. Writes through this decorator invalidate the
// affected ids; writes that bypass it leave entries stale until the TTL
// expires.
type CachedRepository[T any] struct {
	Repository[T]
	cache *sturdyc.Client[*T]
}

// NewCachedRepository wraps inner with an id-lookup cache.
func NewCachedRepository[T any](inner Repository[T], cfg CacheConfig) *CachedRepository[T] {
	return &CachedRepository[T]{
		Repository: inner,
		cache: sturdyc.New[*T](
			cfg.Capacity,
			cfg.NumShards,
			cfg.TTL,
			cfg.EvictionPercentage,
		),
	}
}

func cacheKey(id string) string { return "id:" + id }

// FindByID serves from the cache, falling back to the wrapped repository
// on a miss. Absent records are cached as nil so repeated misses stay
// cheap. Lookups with query options skip the cache entirely; only the
// default visibility is cached.
func (r *CachedRepository[T]) FindByID(ctx context.Context, id string, opts ...QueryOption) (*T, error) {
	if len(opts) > 0 {
		return r.Repository.FindByID(ctx, id, opts...)
	}
	return r.cache.GetOrFetch(ctx, cacheKey(id), func(ctx context.Context) (*T, error) {
		return r.Repository.FindByID(ctx, id)
	})
}

// Invalidate drops the cached entry for an id.
func (r *CachedRepository[T]) Invalidate(id string) {
	r.cache.Delete(cacheKey(id))
}

// Update writes through and invalidates the id.
func (r *CachedRepository[T]) Update(ctx context.Context, id string, values map[string]any) (*T, error) {
	entity, err := r.Repository.Update(ctx, id, values)
	r.Invalidate(id)
	return entity, err
}

// Delete writes through and invalidates the id.
func (r *CachedRepository[T]) Delete(ctx context.Context, id string, hard bool) (bool, error) {
	removed, err := r.Repository.Delete(ctx, id, hard)
	r.Invalidate(id)
	return removed, err
}

// Restore writes through and invalidates the id.
func (r *CachedRepository[T]) Restore(ctx context.Context, id string) (*T, error) {
	entity, err := r.Repository.Restore(ctx, id)
	r.Invalidate(id)
	return entity, err
}

// UpdateMany writes through and invalidates every id.
func (r *CachedRepository[T]) UpdateMany(ctx context.Context, ids []string, values map[string]any) (int, error) {
	updated, err := r.Repository.UpdateMany(ctx, ids, values)
	for _, id := range ids {
		r.Invalidate(id)
	}
	return updated, err
}

// DeleteMany writes through and invalidates every id.
func (r *CachedRepository[T]) DeleteMany(ctx context.Context, ids []string, hard bool) (int, error) {
	removed, err := r.Repository.DeleteMany(ctx, ids, hard)
	for _, id := range ids {
		r.Invalidate(id)
	}
	return removed, err
}

// Upsert writes through and invalidates the stored record's id. A cached
// miss for a fresh id is also dropped so FindOrCreate-style flows see the
// insert immediately.
func (r *CachedRepository[T]) Upsert(ctx context.Context, entity *T, conflictFields []string, updateFields ...string) (*T, error) {
	stored, err := r.Repository.Upsert(ctx, entity, conflictFields, updateFields...)
	if stored != nil {
		if rec, ok := any(stored).(interface{ GetID() string }); ok {
			r.Invalidate(rec.GetID())
		}
	}
	return stored, err
}
