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

package types

import "encoding/base64"

// Pagination defaults shared by repositories and services.
const (
	DefaultLimit       = 100
	DefaultPageSize    = 20
	DefaultCursorLimit = 20
)

// PageRequest describes offset pagination input. Zero or negative values
// fall back to defaults.
type PageRequest struct {
	page     int
	pageSize int
}

// NewPageRequest constructs a PageRequest with the given page and size.
func NewPageRequest(page, pageSize int) *PageRequest {
	return &PageRequest{page: page, pageSize: pageSize}
}

func (p *PageRequest) GetPage() int {
	if p.page < 1 {
		p.page = 1
	}
	return p.page
}

func (p *PageRequest) GetPageSize() int {
	if p.pageSize < 1 {
		p.pageSize = DefaultPageSize
	}
	return p.pageSize
}

func (p *PageRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

// PageResult holds one page of items plus offset pagination metadata.
type PageResult[T any] struct {
	Items    []*T `json:"items"`
	Total    int  `json:"total"`
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
}

// NewPageResult constructs a PageResult; a nil item slice becomes empty.
func NewPageResult[T any](items []*T, total, page, pageSize int) *PageResult[T] {
	if items == nil {
		items = make([]*T, 0)
	}
	return &PageResult[T]{Items: items, Total: total, Page: page, PageSize: pageSize}
}

// TotalPages derives the page count; zero when there are no items.
func (p *PageResult[T]) TotalPages() int {
	if p.Total <= 0 {
		return 0
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

func (p *PageResult[T]) HasNext() bool {
	return p.Page < p.TotalPages()
}

func (p *PageResult[T]) HasPrev() bool {
	return p.Page > 1
}

// CursorResult holds one page of items plus opaque cursor tokens. An empty
// NextCursor means no further results; an empty PrevCursor means this is
// the first page.
type CursorResult[T any] struct {
	Items      []*T   `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
	PrevCursor string `json:"prev_cursor,omitempty"`
	HasNext    bool   `json:"has_next"`
	HasPrev    bool   `json:"has_prev"`
}

// EncodeCursor converts a last-seen identifier into an opaque token.
func EncodeCursor(value string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(value))
}

// DecodeCursor reverses EncodeCursor. Invalid or corrupt tokens decode to
// the empty cursor (first page) rather than failing.
func DecodeCursor(token string) string {
	if token == "" {
		return ""
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return ""
	}
	return string(raw)
}
