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
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampJSONSerialization(t *testing.T) {
	type testStruct struct {
		T1 *Timestamp `json:"t1"`
		T2 *Timestamp `json:"t2,omitempty"`
		T3 *Timestamp `json:"t3"`
		T4 *Timestamp `json:"t4"`
		T5 *Timestamp `json:"t5"`
		T6 *Timestamp `json:"t6"`
		T7 *Timestamp `json:"t7"`
	}

	now := TimestampNow()
	zeroTime := Timestamp(0)

	jsonSerialized := []byte(`{
		"t1": null,
		"t3": "2022-03-22T13:23:44.780Z",
		"t4": "2022-03-22T13:23:44Z",
		"t5": 1647955424780000000,
		"t6": 1647955424780,
		"t7": 1647955424
	}`)

	var ts testStruct
	err := json.Unmarshal(jsonSerialized, &ts)
	require.NoError(t, err)
	assert.Nil(t, ts.T1)
	assert.Nil(t, ts.T2)
	assert.Equal(t, int64(1647955424780000000), ts.T3.UnixNano())
	assert.Equal(t, int64(1647955424000000000), ts.T4.UnixNano())
	assert.Equal(t, int64(1647955424780000000), ts.T5.UnixNano())
	assert.Equal(t, int64(1647955424780000000), ts.T6.UnixNano())
	assert.Equal(t, int64(1647955424000000000), ts.T7.UnixNano())

	ts2 := testStruct{
		T1: &zeroTime,
		T3: &now,
	}
	jsonOut, err := json.Marshal(&ts2)
	require.NoError(t, err)
	var verify map[string]interface{}
	err = json.Unmarshal(jsonOut, &verify)
	require.NoError(t, err)
	assert.Nil(t, verify["t1"])
	assert.Equal(t, now.Time().UTC().Format(time.RFC3339Nano), verify["t3"])
}

func TestTimestampParseFail(t *testing.T) {
	var ts Timestamp
	err := json.Unmarshal([]byte(`"!not a time"`), &ts)
	assert.Regexp(t, "VD010000", err)

	err = json.Unmarshal([]byte(`false`), &ts)
	assert.Regexp(t, "VD010001", err)

	assert.Panics(t, func() {
		MustParseTimeString("!not a time")
	})
}

func TestTimestampScanValue(t *testing.T) {
	var ts Timestamp

	err := ts.Scan(nil)
	assert.NoError(t, err)
	assert.Zero(t, ts)

	err = ts.Scan(int64(1647955424780))
	assert.NoError(t, err)
	assert.Equal(t, int64(1647955424780000000), ts.UnixNano())

	err = ts.Scan("2022-03-22T13:23:44.780Z")
	assert.NoError(t, err)
	assert.Equal(t, int64(1647955424780000000), ts.UnixNano())

	err = ts.Scan(false)
	assert.Regexp(t, "VD010001", err)

	v, err := ts.Value()
	assert.NoError(t, err)
	assert.Equal(t, int64(1647955424780000000), v)

	v, err = Timestamp(0).Value()
	assert.NoError(t, err)
	assert.Equal(t, int64(0), v)
	assert.Equal(t, "", Timestamp(0).String())
}

func TestTimestampEqual(t *testing.T) {
	t1 := MustParseTimeString("2022-03-22T13:23:44.780Z")
	t2 := MustParseTimeString("1647955424780")
	assert.True(t, t1.Equal(&t2))
	assert.True(t, (*Timestamp)(nil).Equal(nil))
	assert.False(t, (*Timestamp)(nil).Equal(&t1))
	assert.False(t, t1.Equal(nil))
}
