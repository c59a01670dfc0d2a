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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributesValueScan(t *testing.T) {
	attrs := Attributes{"name": "quarry", "count": float64(3)}

	value, err := attrs.Value()
	require.NoError(t, err)

	var scanned Attributes
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, attrs, scanned)

	// Some drivers hand JSON columns back as strings.
	var fromString Attributes
	require.NoError(t, fromString.Scan(`{"name":"quarry","count":3}`))
	assert.Equal(t, attrs, fromString)

	var nilAttrs Attributes
	value, err = nilAttrs.Value()
	require.NoError(t, err)
	assert.Nil(t, value)

	require.NoError(t, scanned.Scan(nil))
	assert.Empty(t, scanned)

	assert.Error(t, scanned.Scan(42))
}

func TestAttributeListValueScan(t *testing.T) {
	list := AttributeList{{"id": "a"}, {"id": "b"}}

	value, err := list.Value()
	require.NoError(t, err)

	var scanned AttributeList
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, list, scanned)

	require.NoError(t, scanned.Scan(nil))
	assert.Empty(t, scanned)

	assert.Error(t, scanned.Scan(42))
}
