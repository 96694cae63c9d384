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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

type TestEnum string

func (te TestEnum) Options() []string {
	return []string{"option1", "option2", "option3"}
}

func (te TestEnum) Default() string {
	return "option2"
}

func TestEnumValue(t *testing.T) {

	var v1 Enum[TestEnum] = "OPTION1"
	sqlV1, err := v1.Value()
	assert.NoError(t, err)
	assert.Equal(t, "option1", sqlV1)

	assert.Equal(t, TestEnum("OPTION1"), v1.V())
	assert.Equal(t, []string{"option1", "option2", "option3"}, v1.Options())

	var v2 Enum[TestEnum] = "option4"
	_, err = v2.Value()
	assert.Regexp(t, "VD010003", err)
}

func TestEnumJSON(t *testing.T) {
	type myStruct struct {
		Field1 Enum[TestEnum]  `json:"field1"`
		Field2 *Enum[TestEnum] `json:"field2"`
	}

	var v1 myStruct
	err := json.Unmarshal(([]byte)(`{}`), &v1)
	assert.NoError(t, err)
	assert.Equal(t, myStruct{
		Field1: "",
		Field2: nil,
	}, v1)
	testVal, err := v1.Field1.Validate()
	assert.NoError(t, err)
	assert.Equal(t, TestEnum("option2"), testVal)
	testStr, err := v1.Field1.MapToString()
	assert.NoError(t, err)
	assert.Equal(t, "option2", testStr)
}

func TestEnumScan(t *testing.T) {
	var v Enum[TestEnum]

	err := (&v).Scan(nil)
	assert.NoError(t, err)
	assert.Equal(t, "option2", string(v))

	err = (&v).Scan("OPTION1")
	assert.NoError(t, err)
	assert.Equal(t, "option1", string(v))

	err = (&v).Scan(([]byte)("Option3"))
	assert.NoError(t, err)
	assert.Equal(t, "option3", string(v))

	err = (&v).Scan(false)
	assert.Regexp(t, "VD010002", err)

	err = (&v).Scan("option4")
	assert.Regexp(t, "VD010003", err)
}

func TestMapEnum(t *testing.T) {

	mapped := map[TestEnum]int{
		"option1": 100,
		"option3": 300,
	}

	v, err := MapEnum(Enum[TestEnum]("Option1"), mapped)
	assert.NoError(t, err)
	assert.Equal(t, 100, v)

	_, err = MapEnum(Enum[TestEnum]("option2"), mapped)
	assert.Regexp(t, "VD010003.*option", err)

	_, err = MapEnum(Enum[TestEnum]("option4"), mapped)
	assert.Regexp(t, "VD010003", err)
}
