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

type ExecutionDirection string

const (
	DirectionPayout ExecutionDirection = "payout"
	DirectionRefund ExecutionDirection = "refund"
)

func (ed ExecutionDirection) Enum() vdtypes.Enum[ExecutionDirection] {
	return vdtypes.Enum[ExecutionDirection](ed)
}

func (ed ExecutionDirection) Options() []string {
	return []string{
		string(DirectionPayout),
		string(DirectionRefund),
	}
}

type ExecutionStatus string

const (
	ExecutionPending   ExecutionStatus = "pending"
	ExecutionSubmitted ExecutionStatus = "submitted"
	ExecutionConfirmed ExecutionStatus = "confirmed"
	ExecutionStalled   ExecutionStatus = "stalled"
	ExecutionFailed    ExecutionStatus = "failed"
)

func (es ExecutionStatus) Enum() vdtypes.Enum[ExecutionStatus] {
	return vdtypes.Enum[ExecutionStatus](es)
}

func (es ExecutionStatus) Options() []string {
	return []string{
		string(ExecutionPending),
		string(ExecutionSubmitted),
		string(ExecutionConfirmed),
		string(ExecutionStalled),
		string(ExecutionFailed),
	}
}

// ExecutionRecord is one disbursement leg of a settlement plan. The unique
// key (condition, ledger, beneficiary, token, direction, milestone) is the
// at-most-once guard - a replayed instruction lands on the existing row, and
// the pending->submitted transition is an atomic compare-and-set so two
// dispatchers cannot both move the funds.
type ExecutionRecord struct {
	ID          uuid.UUID                        `json:"id"              gorm:"column:id;primaryKey"`
	Condition   uuid.UUID                        `json:"condition"       gorm:"column:condition"`
	Ledger      string                           `json:"ledger"          gorm:"column:ledger"`
	Beneficiary string                           `json:"beneficiary"     gorm:"column:beneficiary"`
	Token       string                           `json:"token"           gorm:"column:token"`
	Direction   vdtypes.Enum[ExecutionDirection] `json:"direction"       gorm:"column:direction"`
	Amount      *vdtypes.BigInt                  `json:"amount"          gorm:"column:amount"`
	Status      vdtypes.Enum[ExecutionStatus]    `json:"status"          gorm:"column:status"`
	Milestone   int                              `json:"milestone"       gorm:"column:milestone"`
	TxRef       string                           `json:"txRef,omitempty" gorm:"column:tx_ref"`
	Error       string                           `json:"error,omitempty" gorm:"column:error"`
	Created     vdtypes.Timestamp                `json:"created"         gorm:"column:created;autoCreateTime:false"`
	Updated     vdtypes.Timestamp                `json:"updated"         gorm:"column:updated;autoUpdateTime:false"`
}

func (er ExecutionRecord) TableName() string {
	return "execution_records"
}

// ExecutionResult summarizes the state of a settlement plan. Complete is true
// once every leg is confirmed (or resolved by ruling), at which point the
// condition transitions Triggered->Executed.
type ExecutionResult struct {
	Condition uuid.UUID          `json:"condition"`
	Legs      []*ExecutionRecord `json:"legs"`
	Complete  bool               `json:"complete"`
}

type StakeLockStatus string

const (
	StakeLocked   StakeLockStatus = "locked"
	StakeReleased StakeLockStatus = "released"
	StakeReturned StakeLockStatus = "returned"
)

func (sl StakeLockStatus) Enum() vdtypes.Enum[StakeLockStatus] {
	return vdtypes.Enum[StakeLockStatus](sl)
}

func (sl StakeLockStatus) Options() []string {
	return []string{
		string(StakeLocked),
		string(StakeReleased),
		string(StakeReturned),
	}
}

// StakeLock is the escrow placed per stakeholder at creation. The
// conservation check reads these totals before any settlement leg moves.
type StakeLock struct {
	Condition   uuid.UUID                     `json:"condition"         gorm:"column:condition;primaryKey"`
	Ledger      string                        `json:"ledger"            gorm:"column:ledger;primaryKey"`
	Stakeholder string                        `json:"stakeholder"       gorm:"column:stakeholder;primaryKey"`
	Token       string                        `json:"token"             gorm:"column:token;primaryKey"`
	Amount      *vdtypes.BigInt               `json:"amount"            gorm:"column:amount"`
	Outcome     string                        `json:"outcome,omitempty" gorm:"column:outcome"`
	Status      vdtypes.Enum[StakeLockStatus] `json:"status"            gorm:"column:status"`
	TxRef       string                        `json:"txRef,omitempty"   gorm:"column:tx_ref"`
	Created     vdtypes.Timestamp             `json:"created"           gorm:"column:created;autoCreateTime:false"`
	Updated     vdtypes.Timestamp             `json:"updated"           gorm:"column:updated;autoUpdateTime:false"`
}

func (sl StakeLock) TableName() string {
	return "stake_locks"
}
