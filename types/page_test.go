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
)

func TestPageRequestClampsInput(t *testing.T) {
	req := NewPageRequest(0, 0)
	assert.Equal(t, 1, req.GetPage())
	assert.Equal(t, DefaultPageSize, req.GetPageSize())
	assert.Equal(t, 0, req.GetOffset())

	req = NewPageRequest(-3, -10)
	assert.Equal(t, 1, req.GetPage())
	assert.Equal(t, DefaultPageSize, req.GetPageSize())

	req = NewPageRequest(3, 25)
	assert.Equal(t, 50, req.GetOffset())
}

func TestPageResultMath(t *testing.T) {
	result := NewPageResult[int](nil, 0, 1, 20)
	assert.NotNil(t, result.Items)
	assert.Equal(t, 0, result.TotalPages())
	assert.False(t, result.HasNext())
	assert.False(t, result.HasPrev())

	result = NewPageResult[int](nil, 45, 2, 20)
	assert.Equal(t, 3, result.TotalPages())
	assert.True(t, result.HasNext())
	assert.True(t, result.HasPrev())

	result = NewPageResult[int](nil, 45, 3, 20)
	assert.False(t, result.HasNext())

	// An exact multiple must not produce a phantom page.
	result = NewPageResult[int](nil, 40, 2, 20)
	assert.Equal(t, 2, result.TotalPages())
	assert.False(t, result.HasNext())
}

func TestCursorCodecRoundTrip(t *testing.T) {
	id := "0c1febc2-8be6-4f14-95b3-8d04b022a1a5"
	token := EncodeCursor(id)
	assert.NotEqual(t, id, token)
	assert.Equal(t, id, DecodeCursor(token))
}

func TestCursorCodecCorruptToken(t *testing.T) {
	assert.Equal(t, "", DecodeCursor(""))
	assert.Equal(t, "", DecodeCursor("%%%not-base64%%%"))
}
