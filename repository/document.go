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
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/quarrydb/quarry/database"
	"github.com/quarrydb/quarry/model"
)

// Doc constrains a pointer-to-struct document type.
type Doc[T any] interface {
	*T
	model.Doc
}

// FindOptions shapes a multi-document query.
type FindOptions struct {
	Skip  int64
	Limit int64
	// Sort maps field names to 1 (ascending) or -1 (descending).
	Sort map[string]int
}

// DocumentRepository is the generic data-access layer over one collection
// of the document backend.
type DocumentRepository[T any, D Doc[T]] struct {
	adapter    *database.MongoAdapter
	collection string
}

// NewDocumentRepository builds a repository over a named collection.
func NewDocumentRepository[T any, D Doc[T]](adapter *database.MongoAdapter, collection string) *DocumentRepository[T, D] {
	return &DocumentRepository[T, D]{adapter: adapter, collection: collection}
}

// NewDocumentRepositoryFor resolves a named document adapter out of the
// registry (empty name means the default).
func NewDocumentRepositoryFor[T any, D Doc[T]](registry *database.Registry, adapterName, collection string) (*DocumentRepository[T, D], error) {
	adapter, err := registry.GetDocument(adapterName)
	if err != nil {
		return nil, err
	}
	return NewDocumentRepository[T, D](adapter, collection), nil
}

// Collection returns the collection name the repository operates on.
func (r *DocumentRepository[T, D]) Collection() string { return r.collection }

func (r *DocumentRepository[T, D]) coll() (*mongo.Collection, error) {
	return r.adapter.Collection(r.collection)
}

// FindByID returns the document or nil when it does not exist.
func (r *DocumentRepository[T, D]) FindByID(ctx context.Context, id string) (*T, error) {
	return r.FindOne(ctx, bson.M{"_id": id})
}

// FindOne returns the first document matching the filter, or nil when none
// does.
func (r *DocumentRepository[T, D]) FindOne(ctx context.Context, filter bson.M) (*T, error) {
	coll, err := r.coll()
	if err != nil {
		return nil, err
	}
	var doc T
	if err := coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

// FindMany returns all documents matching the filter, shaped by opts.
func (r *DocumentRepository[T, D]) FindMany(ctx context.Context, filter bson.M, opts *FindOptions) ([]*T, error) {
	coll, err := r.coll()
	if err != nil {
		return nil, err
	}
	findOpts := options.Find()
	if opts != nil {
		if opts.Skip > 0 {
			findOpts = findOpts.SetSkip(opts.Skip)
		}
		if opts.Limit > 0 {
			findOpts = findOpts.SetLimit(opts.Limit)
		}
		if len(opts.Sort) > 0 {
			sort := bson.D{}
			for _, field := range sortedFilterKeys(opts.Sort) {
				sort = append(sort, bson.E{Key: field, Value: opts.Sort[field]})
			}
			findOpts = findOpts.SetSort(sort)
		}
	}
	cursor, err := coll.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, err
	}
	var docs []*T
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// CountDocuments returns the number of documents matching the filter.
func (r *DocumentRepository[T, D]) CountDocuments(ctx context.Context, filter bson.M) (int64, error) {
	coll, err := r.coll()
	if err != nil {
		return 0, err
	}
	return coll.CountDocuments(ctx, filter)
}

// Distinct returns the distinct values of one field across matching
// documents.
func (r *DocumentRepository[T, D]) Distinct(ctx context.Context, field string, filter bson.M) ([]any, error) {
	coll, err := r.coll()
	if err != nil {
		return nil, err
	}
	var values []any
	if err := coll.Distinct(ctx, field, filter).Decode(&values); err != nil {
		return nil, err
	}
	return values, nil
}

// Aggregate runs a pipeline and decodes the raw result documents.
func (r *DocumentRepository[T, D]) Aggregate(ctx context.Context, pipeline mongo.Pipeline) ([]bson.M, error) {
	coll, err := r.coll()
	if err != nil {
		return nil, err
	}
	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var results []bson.M
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// InsertOne stores a new document, assigning a fresh id when absent.
func (r *DocumentRepository[T, D]) InsertOne(ctx context.Context, doc *T) (*T, error) {
	coll, err := r.coll()
	if err != nil {
		return nil, err
	}
	d := D(doc)
	if d.GetID() == "" {
		d.SetID(model.NewID())
	}
	d.Touch(time.Now().UTC())
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// InsertMany stores new documents in one call. An empty input is a no-op.
func (r *DocumentRepository[T, D]) InsertMany(ctx context.Context, docs []*T) ([]*T, error) {
	if len(docs) == 0 {
		return docs, nil
	}
	coll, err := r.coll()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	payload := make([]any, 0, len(docs))
	for _, doc := range docs {
		d := D(doc)
		if d.GetID() == "" {
			d.SetID(model.NewID())
		}
		d.Touch(now)
		payload = append(payload, doc)
	}
	if _, err := coll.InsertMany(ctx, payload); err != nil {
		return nil, err
	}
	return docs, nil
}

// stamped copies values and adds the update timestamp, leaving the
// caller's map untouched.
func stamped(values bson.M) bson.M {
	set := make(bson.M, len(values)+1)
	for k, v := range values {
		set[k] = v
	}
	set["updated_at"] = time.Now().UTC()
	return set
}

// UpdateOne applies a $set update to the first matching document. When
// upsert is set a missing document is created from the filter plus values.
func (r *DocumentRepository[T, D]) UpdateOne(ctx context.Context, filter bson.M, values bson.M, upsert bool) (int64, error) {
	coll, err := r.coll()
	if err != nil {
		return 0, err
	}
	res, err := coll.UpdateOne(ctx, filter, bson.M{"$set": stamped(values)}, options.UpdateOne().SetUpsert(upsert))
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount + res.UpsertedCount, nil
}

// UpdateMany applies a $set update to every matching document.
func (r *DocumentRepository[T, D]) UpdateMany(ctx context.Context, filter bson.M, values bson.M) (int64, error) {
	coll, err := r.coll()
	if err != nil {
		return 0, err
	}
	res, err := coll.UpdateMany(ctx, filter, bson.M{"$set": stamped(values)})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// DeleteOne removes the first matching document, reporting whether one was
// removed.
func (r *DocumentRepository[T, D]) DeleteOne(ctx context.Context, filter bson.M) (bool, error) {
	coll, err := r.coll()
	if err != nil {
		return false, err
	}
	res, err := coll.DeleteOne(ctx, filter)
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// DeleteMany removes every matching document, returning the count.
func (r *DocumentRepository[T, D]) DeleteMany(ctx context.Context, filter bson.M) (int64, error) {
	coll, err := r.coll()
	if err != nil {
		return 0, err
	}
	res, err := coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ReplaceOne replaces the document matching the filter wholesale, creating
// it when absent.
func (r *DocumentRepository[T, D]) ReplaceOne(ctx context.Context, filter bson.M, doc *T) (*T, error) {
	coll, err := r.coll()
	if err != nil {
		return nil, err
	}
	D(doc).Touch(time.Now().UTC())
	if _, err := coll.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true)); err != nil {
		return nil, err
	}
	return doc, nil
}

// Save inserts the document when it has no id and replaces it otherwise.
func (r *DocumentRepository[T, D]) Save(ctx context.Context, doc *T) (*T, error) {
	d := D(doc)
	if d.GetID() == "" {
		return r.InsertOne(ctx, doc)
	}
	return r.ReplaceOne(ctx, bson.M{"_id": d.GetID()}, doc)
}
