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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectUpsertStrategy(t *testing.T) {
	cases := []struct {
		dialect   string
		name      string
		returning bool
	}{
		{"postgres", "postgres", true},
		{"postgresql", "postgres", true},
		{"POSTGRES", "postgres", true},
		{"mysql", "mysql", false},
		{"mariadb", "mysql", false},
		{"sqlite", "sqlite", true},
		{"", "sqlite", true},
		{"something-else", "sqlite", true},
	}
	for _, tc := range cases {
		strategy := SelectUpsertStrategy(tc.dialect)
		assert.Equal(t, tc.name, strategy.Name(), "dialect %q", tc.dialect)
		assert.Equal(t, tc.returning, strategy.SupportsReturning(), "dialect %q", tc.dialect)
	}
}
