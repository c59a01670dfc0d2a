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
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrNotConnected is returned when the native handle of an adapter is
	// accessed before Connect. This is a wiring defect, not a recoverable
	// condition.
	ErrNotConnected = errors.New("adapter not connected")

	// ErrNoSession is returned when a repository is asked to run without
	// any bound session or database handle.
	ErrNoSession = errors.New("no database session bound")
)

// AdapterNotFoundError reports a registry lookup for an unknown name.
type AdapterNotFoundError struct {
	Name string
}

func (e *AdapterNotFoundError) Error() string {
	return fmt.Sprintf("adapter %q not found", e.Name)
}

// DuplicateAdapterError reports a Register call reusing a taken name
// without the replace option.
type DuplicateAdapterError struct {
	Name string
}

func (e *DuplicateAdapterError) Error() string {
	return fmt.Sprintf("adapter %q already registered", e.Name)
}

// AdapterTypeError reports a typed registry lookup that found an adapter
// of the wrong concrete type.
type AdapterTypeError struct {
	Name string
	Want string
	Got  string
}

func (e *AdapterTypeError) Error() string {
	return fmt.Sprintf("adapter %q is %s, not %s", e.Name, e.Got, e.Want)
}

// ConnectionError wraps a driver failure during Connect. Retry policy is a
// caller concern; this layer surfaces the failure once.
type ConnectionError struct {
	Type DatabaseType
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s adapter connect failed: %v", e.Type, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// IsDuplicateKey reports whether err is a unique/duplicate key violation
// from any of the supported SQL backends.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "duplicate key value") ||
		strings.Contains(s, "unique constraint failed") ||
		strings.Contains(s, "sqlstate 23505")
}
