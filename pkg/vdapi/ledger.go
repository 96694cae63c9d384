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

package vdapi

import (
	"github.com/google/uuid"

	"github.com/veridict-io/veridict/pkg/vdtypes"
)

type LedgerIntentType string

const (
	IntentLockStake     LedgerIntentType = "lock_stake"
	IntentReleasePayout LedgerIntentType = "release_payout"
	IntentReturnStake   LedgerIntentType = "return_stake"
)

func (it LedgerIntentType) Enum() vdtypes.Enum[LedgerIntentType] {
	return vdtypes.Enum[LedgerIntentType](it)
}

func (it LedgerIntentType) Options() []string {
	return []string{
		string(IntentLockStake),
		string(IntentReleasePayout),
		string(IntentReturnStake),
	}
}

// LedgerIntent is a value-movement instruction handed to a ledger adapter.
// The reference is the caller's idempotency key, carried through to the
// ledger transaction so replays collapse on-chain as well as in our tables.
type LedgerIntent struct {
	Type      vdtypes.Enum[LedgerIntentType] `json:"type"`
	Condition uuid.UUID                      `json:"condition"`
	Ledger    string                         `json:"ledger"`
	Address   string                         `json:"address"`
	Token     string                         `json:"token"`
	Amount    *vdtypes.BigInt                `json:"amount"`
	Ref       string                         `json:"ref,omitempty"`
}

type LedgerInfo struct {
	Ledger        string `json:"ledger"`
	LedgerType    string `json:"ledgerType"`
	BlockHeight   uint64 `json:"blockHeight"`
	FinalityDepth int    `json:"finalityDepth"`
}

type LedgerTxState string

const (
	LedgerTxPending   LedgerTxState = "pending"
	LedgerTxConfirmed LedgerTxState = "confirmed"
	LedgerTxFailed    LedgerTxState = "failed"
)

func (ts LedgerTxState) Enum() vdtypes.Enum[LedgerTxState] {
	return vdtypes.Enum[LedgerTxState](ts)
}

func (ts LedgerTxState) Options() []string {
	return []string{
		string(LedgerTxPending),
		string(LedgerTxConfirmed),
		string(LedgerTxFailed),
	}
}

type LedgerTxStatus struct {
	TxRef         string                      `json:"txRef"`
	State         vdtypes.Enum[LedgerTxState] `json:"state"`
	BlockNumber   uint64                      `json:"blockNumber,omitempty"`
	Confirmations int                         `json:"confirmations"`
	RevertReason  string                      `json:"revertReason,omitempty"`
}

type LedgerEvent struct {
	Sequence uint64          `json:"sequence"`
	Block    uint64          `json:"block"`
	TxRef    string          `json:"txRef"`
	Type     string          `json:"type"`
	Data     vdtypes.RawJSON `json:"data,omitempty"`
}

type SubmissionStatus string

const (
	SubmissionPending   SubmissionStatus = "pending"
	SubmissionSubmitted SubmissionStatus = "submitted"
	SubmissionConfirmed SubmissionStatus = "confirmed"
	SubmissionFailed    SubmissionStatus = "failed"
)

func (ss SubmissionStatus) Enum() vdtypes.Enum[SubmissionStatus] {
	return vdtypes.Enum[SubmissionStatus](ss)
}

func (ss SubmissionStatus) Options() []string {
	return []string{
		string(SubmissionPending),
		string(SubmissionSubmitted),
		string(SubmissionConfirmed),
		string(SubmissionFailed),
	}
}

// LedgerSubmission tracks one intent from submission through finality.
type LedgerSubmission struct {
	ID            uuid.UUID                      `json:"id"              gorm:"column:id;primaryKey"`
	Ledger        string                         `json:"ledger"          gorm:"column:ledger"`
	IntentType    vdtypes.Enum[LedgerIntentType] `json:"intentType"      gorm:"column:intent_type"`
	Intent        *LedgerIntent                  `json:"intent"          gorm:"column:intent;serializer:json"`
	TxRef         string                         `json:"txRef,omitempty" gorm:"column:tx_ref"`
	Status        vdtypes.Enum[SubmissionStatus] `json:"status"          gorm:"column:status"`
	Confirmations int                            `json:"confirmations"   gorm:"column:confirmations"`
	Error         string                         `json:"error,omitempty" gorm:"column:error"`
	Created       vdtypes.Timestamp              `json:"created"         gorm:"column:created;autoCreateTime:false"`
	Updated       vdtypes.Timestamp              `json:"updated"         gorm:"column:updated;autoUpdateTime:false"`
}

func (ls LedgerSubmission) TableName() string {
	return "ledger_submissions"
}

// LedgerStatus is the ledger_status RPC result.
type LedgerStatus struct {
	Ledger        string `json:"ledger"`
	LedgerType    string `json:"ledgerType"`
	BlockHeight   uint64 `json:"blockHeight"`
	FinalityDepth int    `json:"finalityDepth"`
	Paused        bool   `json:"paused"`
	PausedReason  string `json:"pausedReason,omitempty"`
}
