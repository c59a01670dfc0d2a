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
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Attributes is a schemaless JSON object column for per-record metadata
// that has no dedicated columns. A nil map stores as SQL NULL and NULL
// scans back as an empty map.
type Attributes map[string]any

// AttributeList is a JSON array column of Attributes objects.
type AttributeList []Attributes

// Value implements driver.Valuer for Attributes.
func (a Attributes) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner for Attributes. Drivers hand JSON back as
// either []byte or string depending on the column type.
func (a *Attributes) Scan(value any) error {
	if value == nil {
		*a = make(Attributes)
		return nil
	}
	raw, err := jsonBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, a)
}

// Value implements driver.Valuer for AttributeList.
func (a AttributeList) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner for AttributeList.
func (a *AttributeList) Scan(value any) error {
	if value == nil {
		*a = make(AttributeList, 0)
		return nil
	}
	raw, err := jsonBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, a)
}

func jsonBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("types: cannot scan %T into a JSON column", value)
	}
}
