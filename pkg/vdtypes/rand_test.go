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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandBytesOK(t *testing.T) {
	b1 := RandBytes(32)
	b2 := RandBytes(32)
	assert.Len(t, b1, 32)
	assert.False(t, bytes.Equal(b1, b2))
	assert.Len(t, RandHex(16), 32)
}

func TestRandBytesFail(t *testing.T) {
	origReader := randReader
	defer func() {
		randReader = origReader
	}()
	randReader = bytes.NewReader([]byte{0x00})
	assert.Panics(t, func() {
		RandBytes(32)
	})
}

func TestShortID(t *testing.T) {
	id1 := ShortID()
	assert.Len(t, id1, 8)
	assert.NotEqual(t, id1, ShortID())
}
