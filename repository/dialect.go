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
	"fmt"
	"strings"

	"github.com/uptrace/bun"
)

// UpsertStrategy renders the dialect-specific conflict clause of an
// insert-or-update statement. Strategies are stateless and safe to share.
type UpsertStrategy interface {
	Name() string
	// SupportsReturning reports whether the dialect can return the stored
	// row from the upsert statement itself. When false the repository
	// re-queries by the conflict key after the write.
	SupportsReturning() bool
	Apply(q *bun.InsertQuery, conflictColumns, updateColumns []string) *bun.InsertQuery
}

type postgresUpsert struct{}

func (postgresUpsert) Name() string            { return "postgres" }
func (postgresUpsert) SupportsReturning() bool { return true }

func (postgresUpsert) Apply(q *bun.InsertQuery, conflictColumns, updateColumns []string) *bun.InsertQuery {
	return applyConflictUpdate(q, conflictColumns, updateColumns)
}

type sqliteUpsert struct{}

func (sqliteUpsert) Name() string            { return "sqlite" }
func (sqliteUpsert) SupportsReturning() bool { return true }

func (sqliteUpsert) Apply(q *bun.InsertQuery, conflictColumns, updateColumns []string) *bun.InsertQuery {
	return applyConflictUpdate(q, conflictColumns, updateColumns)
}

func applyConflictUpdate(q *bun.InsertQuery, conflictColumns, updateColumns []string) *bun.InsertQuery {
	if len(conflictColumns) == 0 {
		conflictColumns = []string{"id"}
	}
	keyNames := strings.Join(conflictColumns, ",")
	var queryArgs []string
	for _, column := range updateColumns {
		queryArgs = append(queryArgs, fmt.Sprintf("%s = EXCLUDED.%s", bun.Ident(column), bun.Ident(column)))
	}
	return q.
		On("CONFLICT (" + keyNames + ") DO UPDATE").
		Set(strings.Join(queryArgs, ", "))
}

type mysqlUpsert struct{}

func (mysqlUpsert) Name() string            { return "mysql" }
func (mysqlUpsert) SupportsReturning() bool { return false }

func (mysqlUpsert) Apply(q *bun.InsertQuery, _, updateColumns []string) *bun.InsertQuery {
	var queryArgs []string
	for _, column := range updateColumns {
		queryArgs = append(queryArgs, fmt.Sprintf("%s = VALUES(%s)", bun.Ident(column), bun.Ident(column)))
	}
	return q.On("DUPLICATE KEY UPDATE " + strings.Join(queryArgs, ", "))
}

// SelectUpsertStrategy maps a dialect token ("postgres", "mysql",
// "sqlite", or a DSN fragment containing one) to its strategy. Unknown
// tokens fall back to the SQLite strategy, whose clause is the portable
// standard form.
func SelectUpsertStrategy(dialect string) UpsertStrategy {
	token := strings.ToLower(dialect)
	switch {
	case strings.Contains(token, "postgres"):
		return postgresUpsert{}
	case strings.Contains(token, "mysql"), strings.Contains(token, "maria"):
		return mysqlUpsert{}
	default:
		return sqliteUpsert{}
	}
}
