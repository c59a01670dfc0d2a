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

package model

import (
	"time"

	"github.com/google/uuid"
)

// NewID returns a fresh UUID string suitable for record identifiers.
func NewID() string {
	return uuid.NewString()
}

// Entity is implemented by every SQL record type. Concrete models satisfy
// it by embedding Record.
type Entity interface {
	GetID() string
	SetID(id string)
	StampCreated(now time.Time)
	Touch(now time.Time)
}

// SoftDeletable marks a record type as soft-deletable. Concrete models opt
// in by embedding SoftDeleteRecord; repositories check the capability once
// at construction time.
type SoftDeletable interface {
	Entity
	SoftDeleted() bool
	MarkDeleted(now time.Time)
	ClearDeleted()
}

// Record is the base for SQL models: a UUID string primary key plus
// creation and update timestamps.
type Record struct {
	ID        string    `bun:"id,pk,type:varchar(36)" json:"id"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

func (r *Record) GetID() string   { return r.ID }
func (r *Record) SetID(id string) { r.ID = id }

// StampCreated sets both timestamps for a new record. Existing values are
// kept so callers can seed fixed timestamps.
func (r *Record) StampCreated(now time.Time) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = now
	}
}

// Touch refreshes the update timestamp.
func (r *Record) Touch(now time.Time) {
	r.UpdatedAt = now
}

// SoftDeleteRecord is the base for soft-deletable SQL models. Rows are
// flagged rather than removed; repositories translate the flag into
// visibility filters.
type SoftDeleteRecord struct {
	Record
	IsDeleted bool       `bun:"is_deleted,notnull,default:false" json:"is_deleted"`
	DeletedAt *time.Time `bun:"deleted_at,nullzero" json:"deleted_at,omitempty"`
}

func (r *SoftDeleteRecord) SoftDeleted() bool { return r.IsDeleted }

func (r *SoftDeleteRecord) MarkDeleted(now time.Time) {
	r.IsDeleted = true
	r.DeletedAt = &now
}

func (r *SoftDeleteRecord) ClearDeleted() {
	r.IsDeleted = false
	r.DeletedAt = nil
}

// Doc is implemented by document types stored in the document backend.
type Doc interface {
	GetID() string
	SetID(id string)
	Touch(now time.Time)
}

// Document is the base for document models. The identifier aliases the
// backend-native primary key field.
type Document struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

func (d *Document) GetID() string   { return d.ID }
func (d *Document) SetID(id string) { d.ID = id }

func (d *Document) Touch(now time.Time) {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
}

// SoftDeleteDocument adds soft-delete fields to a document model.
type SoftDeleteDocument struct {
	Document
	IsDeleted bool       `bson:"is_deleted" json:"is_deleted"`
	DeletedAt *time.Time `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
}

func (d *SoftDeleteDocument) SoftDeleted() bool { return d.IsDeleted }

func (d *SoftDeleteDocument) MarkDeleted(now time.Time) {
	d.IsDeleted = true
	d.DeletedAt = &now
}

func (d *SoftDeleteDocument) ClearDeleted() {
	d.IsDeleted = false
	d.DeletedAt = nil
}
