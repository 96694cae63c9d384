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
	"context"
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/veridict-io/veridict/internal/msgs"
	"golang.org/x/crypto/sha3"
)

// Bytes32 is a 32 byte value, with DB storage as a compact hex string, and JSON
// serialization as an 0x prefixed hex string
type Bytes32 [32]byte

func NewBytes32FromSlice(bytes []byte) Bytes32 {
	var b32 Bytes32
	copy(b32[:], bytes)
	return b32
}

func RandBytes32() (b32 Bytes32) {
	copy(b32[:], RandBytes(32))
	return b32
}

// Bytes32Keccak returns the keccak256 hash of the supplied bytes
func Bytes32Keccak(b []byte) Bytes32 {
	var b32 Bytes32
	hash := sha3.NewLegacyKeccak256()
	hash.Write(b)
	copy(b32[:], hash.Sum(nil))
	return b32
}

// Bytes32UUIDFirst16 creates a 32 byte value with a UUID in the first 16 bytes,
// and zeros in the second 16 bytes
func Bytes32UUIDFirst16(id uuid.UUID) (b32 Bytes32) {
	copy(b32[0:16], id[:])
	return b32
}

// UUIDFirst16 returns the first 16 bytes as a UUID
func (id Bytes32) UUIDFirst16() (u uuid.UUID) {
	copy(u[:], id[0:16])
	return u
}

func ParseBytes32(s string) (Bytes32, error) {
	return ParseBytes32Ctx(context.Background(), s)
}

func ParseBytes32Ctx(ctx context.Context, s string) (Bytes32, error) {
	h, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return Bytes32{}, i18n.NewError(ctx, msgs.MsgTypesInvalidHex, err)
	}
	if len(h) != 32 {
		return Bytes32{}, i18n.NewError(ctx, msgs.MsgTypesInvalidBytes32Len, len(h))
	}
	return NewBytes32FromSlice(h), nil
}

func MustParseBytes32(s string) Bytes32 {
	b32, err := ParseBytes32(s)
	if err != nil {
		panic(err)
	}
	return b32
}

func (id Bytes32) IsZero() bool {
	return id == Bytes32{}
}

func (id *Bytes32) Bytes() []byte {
	return id[:]
}

func (id *Bytes32) Equals(id2 *Bytes32) bool {
	switch {
	case id == nil && id2 == nil:
		return true
	case id == nil || id2 == nil:
		return false
	default:
		return *id == *id2
	}
}

// Natural string representation is HexString0xPrefix()
func (id Bytes32) String() string {
	return id.HexString0xPrefix()
}

// JSON representation is lower case hex, with 0x prefix
func (id Bytes32) MarshalText() ([]byte, error) {
	return ([]byte)(id.HexString0xPrefix()), nil
}

// Parses with/without 0x in any case
func (id *Bytes32) UnmarshalText(text []byte) error {
	pID, err := ParseBytes32(string(text))
	if err != nil {
		return err
	}
	*id = pID
	return nil
}

// Get string with 0x prefix
func (id Bytes32) HexString0xPrefix() string {
	return fmt.Sprintf("0x%s", hex.EncodeToString(id[:]))
}

// Get string (without 0x prefix)
func (id Bytes32) HexString() string {
	return hex.EncodeToString(id[:])
}

func (id Bytes32) Value() (driver.Value, error) {
	return id.HexString(), nil // no 0x prefix
}

func (id *Bytes32) Scan(src interface{}) error {
	switch src := src.(type) {
	case string:
		id32, err := ParseBytes32Ctx(context.Background(), src)
		if err != nil {
			return err
		}
		*id = id32
		return nil
	case []byte:
		switch len(src) {
		case 32:
			// Raw 32 bytes is accepted directly
			copy((*id)[:], src)
			return nil
		case 64, 66:
			// Hex text, with or without 0x prefix
			return id.Scan(string(src))
		default:
			return i18n.NewError(context.Background(), msgs.MsgTypesInvalidBytes32Len, len(src))
		}
	default:
		return i18n.NewError(context.Background(), msgs.MsgTypesScanFail, src, id)
	}
}
