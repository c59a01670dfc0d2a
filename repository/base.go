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
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/uptrace/bun"

	"github.com/quarrydb/quarry/database"
	"github.com/quarrydb/quarry/model"
	"github.com/quarrydb/quarry/types"
)

// ErrNotSoftDeletable is returned by Restore when the record type has no
// soft-delete fields.
var ErrNotSoftDeletable = errors.New("repository: record type is not soft-deletable")

// SQLRepository is the generic data-access layer over a bun database.
// Instantiate it as SQLRepository[Todo, *Todo]; the pointer parameter
// carries the record methods without reflection on the hot path.
//
// Soft-delete behavior is decided once at construction: record types that
// embed model.SoftDeleteRecord are flagged instead of removed, and every
// read filters flagged rows out.
type SQLRepository[T any, P Entity[T]] struct {
	db       *bun.DB
	session  bun.IDB
	strategy UpsertStrategy

	softDelete bool
}

var _ Repository[noopEntity] = (*SQLRepository[noopEntity, *noopEntity])(nil)

// NewSQLRepository builds a repository over a connected SQL adapter.
func NewSQLRepository[T any, P Entity[T]](adapter *database.SQLAdapter) (*SQLRepository[T, P], error) {
	db, err := adapter.DB()
	if err != nil {
		return nil, err
	}
	return &SQLRepository[T, P]{
		db:         db,
		session:    db,
		strategy:   SelectUpsertStrategy(adapter.Config().Type),
		softDelete: isSoftDeletable[T, P](),
	}, nil
}

// NewSQLRepositoryFor resolves a named SQL adapter out of the registry
// (empty name means the default) and builds a repository over it.
func NewSQLRepositoryFor[T any, P Entity[T]](registry *database.Registry, name string) (*SQLRepository[T, P], error) {
	adapter, err := registry.GetSQL(name)
	if err != nil {
		return nil, err
	}
	return NewSQLRepository[T, P](adapter)
}

func isSoftDeletable[T any, P Entity[T]]() bool {
	var zero T
	_, ok := any(P(&zero)).(model.SoftDeletable)
	return ok
}

// WithTx returns a shallow copy bound to the transaction. The copy shares
// the strategy and capability flags; only the session differs.
func (r *SQLRepository[T, P]) WithTx(tx bun.Tx) *SQLRepository[T, P] {
	cp := *r
	cp.session = tx
	return &cp
}

// SoftDeletes reports whether the record type soft-deletes.
func (r *SQLRepository[T, P]) SoftDeletes() bool { return r.softDelete }

func (r *SQLRepository[T, P]) idb() (bun.IDB, error) {
	if r.session == nil {
		return nil, database.ErrNoSession
	}
	return r.session, nil
}

func (r *SQLRepository[T, P]) visible(q *bun.SelectQuery, opts ...QueryOption) *bun.SelectQuery {
	if r.softDelete && !applyQueryOptions(opts).includeDeleted {
		q = q.Where("is_deleted = ?", false)
	}
	return q
}

// applyFilters adds equality conditions in sorted column order so queries
// are deterministic.
func applyFilters(q *bun.SelectQuery, filters map[string]any) *bun.SelectQuery {
	for _, column := range sortedFilterKeys(filters) {
		q = q.Where("? = ?", bun.Ident(column), filters[column])
	}
	return q
}

func sortedFilterKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FindByID returns the record or nil when it does not exist. Soft-deleted
// rows are treated as absent unless IncludeDeleted is passed.
func (r *SQLRepository[T, P]) FindByID(ctx context.Context, id string, opts ...QueryOption) (*T, error) {
	session, err := r.idb()
	if err != nil {
		return nil, err
	}
	var entity T
	query := r.visible(session.NewSelect().Model(&entity).Where("id = ?", id), opts...)
	if err := query.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &entity, nil
}

// FindAll returns one window of visible records ordered by id. A
// non-positive limit falls back to the default; a non-positive offset
// starts from the beginning.
func (r *SQLRepository[T, P]) FindAll(ctx context.Context, offset, limit int, opts ...QueryOption) ([]*T, error) {
	session, err := r.idb()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = types.DefaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	var entities []*T
	err = r.visible(session.NewSelect().Model(&entities), opts...).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Scan(ctx)
	return entities, err
}

// FindByIDs returns the visible records matching ids, ordered by id.
// Missing ids are skipped; an empty input returns an empty slice without
// touching the database.
func (r *SQLRepository[T, P]) FindByIDs(ctx context.Context, ids []string, opts ...QueryOption) ([]*T, error) {
	if len(ids) == 0 {
		return []*T{}, nil
	}
	session, err := r.idb()
	if err != nil {
		return nil, err
	}
	var entities []*T
	err = r.visible(session.NewSelect().Model(&entities).Where("id IN (?)", bun.In(ids)), opts...).
		Order("id ASC").
		Scan(ctx)
	return entities, err
}

// FindWhere returns visible records matching all equality filters.
func (r *SQLRepository[T, P]) FindWhere(ctx context.Context, filters map[string]any, opts ...QueryOption) ([]*T, error) {
	session, err := r.idb()
	if err != nil {
		return nil, err
	}
	var entities []*T
	query := applyFilters(r.visible(session.NewSelect().Model(&entities), opts...), filters)
	err = query.Order("id ASC").Scan(ctx)
	return entities, err
}

// Exists reports whether a visible record with the id exists.
func (r *SQLRepository[T, P]) Exists(ctx context.Context, id string) (bool, error) {
	session, err := r.idb()
	if err != nil {
		return false, err
	}
	var entity T
	return r.visible(session.NewSelect().Model(&entity).Where("id = ?", id)).Exists(ctx)
}

// Count returns the number of visible records matching the filters.
func (r *SQLRepository[T, P]) Count(ctx context.Context, filters map[string]any, opts ...QueryOption) (int, error) {
	session, err := r.idb()
	if err != nil {
		return 0, err
	}
	var entity T
	return applyFilters(r.visible(session.NewSelect().Model(&entity), opts...), filters).Count(ctx)
}

// Create inserts the record, assigning a fresh id when absent and stamping
// both timestamps. The stored record is returned.
func (r *SQLRepository[T, P]) Create(ctx context.Context, entity *T) (*T, error) {
	session, err := r.idb()
	if err != nil {
		return nil, err
	}
	rec := P(entity)
	if rec.GetID() == "" {
		rec.SetID(model.NewID())
	}
	rec.StampCreated(time.Now().UTC())
	if _, err := session.NewInsert().Model(entity).Exec(ctx); err != nil {
		return nil, err
	}
	return entity, nil
}

// Update applies a partial column update to the visible record and returns
// the refreshed record, or nil when no row matched. Column order is sorted
// so generated SQL is stable; updated_at is always refreshed.
func (r *SQLRepository[T, P]) Update(ctx context.Context, id string, values map[string]any) (*T, error) {
	if len(values) == 0 {
		return r.FindByID(ctx, id)
	}
	session, err := r.idb()
	if err != nil {
		return nil, err
	}
	var entity T
	query := session.NewUpdate().Model(&entity).Where("id = ?", id)
	if r.softDelete {
		query = query.Where("is_deleted = ?", false)
	}
	for _, column := range sortedFilterKeys(values) {
		query = query.Set("? = ?", bun.Ident(column), values[column])
	}
	query = query.Set("updated_at = ?", time.Now().UTC())
	res, err := query.Exec(ctx)
	if err != nil {
		return nil, err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, nil
	}
	return r.FindByID(ctx, id)
}

// Delete removes the record. Soft-deletable types are flagged unless hard
// is set; other types always delete the row. Returns whether a row was
// affected.
func (r *SQLRepository[T, P]) Delete(ctx context.Context, id string, hard bool) (bool, error) {
	session, err := r.idb()
	if err != nil {
		return false, err
	}
	var entity T
	if r.softDelete && !hard {
		now := time.Now().UTC()
		res, err := session.NewUpdate().Model(&entity).
			Set("is_deleted = ?", true).
			Set("deleted_at = ?", now).
			Set("updated_at = ?", now).
			Where("id = ?", id).
			Where("is_deleted = ?", false).
			Exec(ctx)
		if err != nil {
			return false, err
		}
		affected, err := res.RowsAffected()
		return affected > 0, err
	}
	res, err := session.NewDelete().Model(&entity).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	return affected > 0, err
}

// Restore clears the soft-delete flag and returns the revived record, or
// nil when no flagged row matched. Types without soft-delete fields get
// ErrNotSoftDeletable.
func (r *SQLRepository[T, P]) Restore(ctx context.Context, id string) (*T, error) {
	if !r.softDelete {
		return nil, ErrNotSoftDeletable
	}
	session, err := r.idb()
	if err != nil {
		return nil, err
	}
	var entity T
	res, err := session.NewUpdate().Model(&entity).
		Set("is_deleted = ?", false).
		Set("deleted_at = ?", nil).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("is_deleted = ?", true).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, nil
	}
	return r.FindByID(ctx, id)
}

// CreateMany inserts records in one statement, stamping ids and timestamps.
// An empty input is a no-op.
func (r *SQLRepository[T, P]) CreateMany(ctx context.Context, entities []*T) ([]*T, error) {
	if len(entities) == 0 {
		return entities, nil
	}
	session, err := r.idb()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	for _, entity := range entities {
		rec := P(entity)
		if rec.GetID() == "" {
			rec.SetID(model.NewID())
		}
		rec.StampCreated(now)
	}
	if _, err := session.NewInsert().Model(&entities).Exec(ctx); err != nil {
		return nil, err
	}
	return entities, nil
}

// UpdateMany applies the same partial update to every visible record in
// ids, returning the number of rows changed.
func (r *SQLRepository[T, P]) UpdateMany(ctx context.Context, ids []string, values map[string]any) (int, error) {
	if len(ids) == 0 || len(values) == 0 {
		return 0, nil
	}
	session, err := r.idb()
	if err != nil {
		return 0, err
	}
	var entity T
	query := session.NewUpdate().Model(&entity).Where("id IN (?)", bun.In(ids))
	if r.softDelete {
		query = query.Where("is_deleted = ?", false)
	}
	for _, column := range sortedFilterKeys(values) {
		query = query.Set("? = ?", bun.Ident(column), values[column])
	}
	query = query.Set("updated_at = ?", time.Now().UTC())
	res, err := query.Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	return int(affected), err
}

// DeleteMany removes every record in ids with the same semantics as
// Delete, returning the number of rows affected.
func (r *SQLRepository[T, P]) DeleteMany(ctx context.Context, ids []string, hard bool) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	session, err := r.idb()
	if err != nil {
		return 0, err
	}
	var entity T
	if r.softDelete && !hard {
		now := time.Now().UTC()
		res, err := session.NewUpdate().Model(&entity).
			Set("is_deleted = ?", true).
			Set("deleted_at = ?", now).
			Set("updated_at = ?", now).
			Where("id IN (?)", bun.In(ids)).
			Where("is_deleted = ?", false).
			Exec(ctx)
		if err != nil {
			return 0, err
		}
		affected, err := res.RowsAffected()
		return int(affected), err
	}
	res, err := session.NewDelete().Model(&entity).Where("id IN (?)", bun.In(ids)).Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	return int(affected), err
}

// FindPaginated returns one offset page plus the filtered total. A zero
// total short-circuits the page query.
func (r *SQLRepository[T, P]) FindPaginated(ctx context.Context, req types.PageRequest, filters map[string]any) (*types.PageResult[T], error) {
	session, err := r.idb()
	if err != nil {
		return nil, err
	}
	result := &types.PageResult[T]{
		Items:    []*T{},
		Page:     req.GetPage(),
		PageSize: req.GetPageSize(),
	}
	var counter T
	total, err := applyFilters(r.visible(session.NewSelect().Model(&counter)), filters).Count(ctx)
	if err != nil || total == 0 {
		return result, err
	}
	var entities []*T
	err = applyFilters(r.visible(session.NewSelect().Model(&entities)), filters).
		Order("id ASC").
		Offset(req.GetOffset()).
		Limit(req.GetPageSize()).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	result.Total = total
	result.Items = entities
	return result, nil
}

// FindByCursor returns up to limit visible records with id greater than
// cursor, ordered by id, plus the id to resume from. An empty resume id
// means the scan is complete. The cursor here is the raw boundary id;
// opaque token encoding lives a layer up.
func (r *SQLRepository[T, P]) FindByCursor(ctx context.Context, cursor string, limit int, filters map[string]any) ([]*T, string, error) {
	session, err := r.idb()
	if err != nil {
		return nil, "", err
	}
	if limit <= 0 {
		limit = types.DefaultCursorLimit
	}
	var entities []*T
	query := applyFilters(r.visible(session.NewSelect().Model(&entities)), filters)
	if cursor != "" {
		query = query.Where("id > ?", cursor)
	}
	// Fetch one extra row to learn whether another window exists.
	if err := query.Order("id ASC").Limit(limit + 1).Scan(ctx); err != nil {
		return nil, "", err
	}
	if len(entities) <= limit {
		return entities, "", nil
	}
	entities = entities[:limit]
	next := P(entities[len(entities)-1]).GetID()
	return entities, next, nil
}

// Upsert inserts the record or, on a conflict over conflictFields, updates
// updateFields in place. When no update fields are named, every column
// except the conflict keys, the id, and the creation stamp is updated. The
// stored record is returned; dialects without a returning clause are
// re-queried by the conflict key.
func (r *SQLRepository[T, P]) Upsert(ctx context.Context, entity *T, conflictFields []string, updateFields ...string) (*T, error) {
	session, err := r.idb()
	if err != nil {
		return nil, err
	}
	if len(updateFields) == 0 {
		updateFields = r.defaultUpdateFields(conflictFields)
	}
	if len(updateFields) == 0 {
		return nil, fmt.Errorf("repository: upsert has no updatable columns outside the conflict key")
	}
	rec := P(entity)
	if rec.GetID() == "" {
		rec.SetID(model.NewID())
	}
	rec.StampCreated(time.Now().UTC())
	rec.Touch(time.Now().UTC())

	query := r.strategy.Apply(session.NewInsert().Model(entity), conflictFields, updateFields)
	if r.strategy.SupportsReturning() {
		var stored T
		if err := query.Returning("*").Scan(ctx, &stored); err != nil {
			return nil, err
		}
		return &stored, nil
	}
	if _, err := query.Exec(ctx); err != nil {
		return nil, err
	}
	return r.findByColumns(ctx, entity, conflictFields)
}

// FindOrCreate looks up a record by the entity's values in filterFields
// and inserts the entity when none matches. The bool reports whether an
// insert happened.
func (r *SQLRepository[T, P]) FindOrCreate(ctx context.Context, entity *T, filterFields ...string) (*T, bool, error) {
	if len(filterFields) == 0 {
		return nil, false, fmt.Errorf("repository: find-or-create requires at least one filter field")
	}
	existing, err := r.findByColumns(ctx, entity, filterFields)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	created, err := r.Create(ctx, entity)
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

// defaultUpdateFields lists every column of the record type except the
// conflict keys, the id, and created_at, in schema order.
func (r *SQLRepository[T, P]) defaultUpdateFields(conflictFields []string) []string {
	skip := map[string]bool{"id": true, "created_at": true}
	for _, column := range conflictFields {
		skip[column] = true
	}
	table := r.db.Table(reflect.TypeFor[T]())
	fields := make([]string, 0, len(table.Fields))
	for _, field := range table.Fields {
		if skip[field.Name] {
			continue
		}
		fields = append(fields, field.Name)
	}
	return fields
}

// findByColumns selects the first visible record whose columns equal the
// entity's current values, resolved through bun's schema metadata.
func (r *SQLRepository[T, P]) findByColumns(ctx context.Context, entity *T, columns []string) (*T, error) {
	session, err := r.idb()
	if err != nil {
		return nil, err
	}
	table := r.db.Table(reflect.TypeFor[T]())
	strct := reflect.ValueOf(entity).Elem()

	var stored T
	query := r.visible(session.NewSelect().Model(&stored))
	for _, column := range columns {
		field, ok := table.FieldMap[column]
		if !ok {
			return nil, fmt.Errorf("repository: unknown column %q on %s", column, table.TypeName)
		}
		query = query.Where("? = ?", bun.Ident(column), field.Value(strct).Interface())
	}
	if err := query.Order("id ASC").Limit(1).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &stored, nil
}

// noopEntity exists only to let the compiler prove SQLRepository satisfies
// Repository.
type noopEntity struct{}

func (*noopEntity) GetID() string          { return "" }
func (*noopEntity) SetID(string)           {}
func (*noopEntity) StampCreated(time.Time) {}
func (*noopEntity) Touch(time.Time)        {}
