// Copyright © 2025 Kaleido, Inc.
//
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vdtypes

import (
	"bytes"
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/veridict-io/veridict/internal/msgs"
	"sigs.k8s.io/yaml"
)

// RawJSON stores already serialized JSON, and sends it to the DB as a string.
// nil is serialized as the JSON null
type RawJSON []byte

// JSONString returns the supplied value marshalled to a string of JSON, swallowing
// any error (not for use against types that could fail to marshal)
func JSONString(v any) RawJSON {
	b, _ := json.Marshal(v)
	return b
}

func (m RawJSON) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}
	return m, nil
}

func (m *RawJSON) UnmarshalJSON(data []byte) error {
	if m == nil {
		return i18n.NewError(context.Background(), msgs.MsgTypesUnmarshalNil)
	}
	*m = append((*m)[0:0], data...)
	return nil
}

func (m RawJSON) IsNil() bool {
	return m == nil || string(bytes.TrimSpace(m)) == "null"
}

func (m RawJSON) Bytes() []byte {
	return m
}

func (m RawJSON) BytesOrNull() []byte {
	if m == nil {
		return []byte("null")
	}
	return m
}

func (m RawJSON) String() string {
	return string(m.BytesOrNull())
}

// StringValue returns the value of a JSON string, the text of a JSON number
// without losing precision, empty string for null, or the raw JSON otherwise
func (m RawJSON) StringValue() string {
	var iVal any
	decoder := json.NewDecoder(bytes.NewReader(m.BytesOrNull()))
	decoder.UseNumber()
	if err := decoder.Decode(&iVal); err != nil {
		return m.String()
	}
	switch v := iVal.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case nil:
		return ""
	default:
		return m.String()
	}
}

func (m RawJSON) Pretty() string {
	buff := new(bytes.Buffer)
	if err := json.Indent(buff, m.BytesOrNull(), "", "  "); err != nil {
		return fmt.Sprintf("%s (%s)", m.String(), err)
	}
	return buff.String()
}

func (m RawJSON) YAML() string {
	b, err := yaml.JSONToYAML(m.BytesOrNull())
	if err != nil {
		return fmt.Sprintf("%s (%s)", m.String(), err)
	}
	return string(b)
}

// Value is a convenience accessor for the DB layer. RawJSON persists natively
// as its underlying byte slice, so this does not need to implement sql.Valuer
func (m RawJSON) Value() driver.Value {
	if m.IsNil() {
		return nil
	}
	return string(m)
}

func (m *RawJSON) Scan(src interface{}) error {
	switch src := src.(type) {
	case nil:
		*m = nil
		return nil
	case string:
		*m = RawJSON(src)
		return nil
	case []byte:
		*m = RawJSON(src)
		return nil
	default:
		return i18n.NewError(context.Background(), msgs.MsgTypesScanFail, src, m)
	}
}
