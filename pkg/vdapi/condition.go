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
	"fmt"

	"github.com/google/uuid"

	"github.com/veridict-io/veridict/pkg/vdtypes"
)

// CallerGovernance is the reserved caller identity used when an operation is
// performed through the governance module rather than by the creator.
const CallerGovernance = "governance"

type ConditionType string

const (
	ConditionTypeSingleSided      ConditionType = "single_sided"
	ConditionTypeMultiSided       ConditionType = "multi_sided"
	ConditionTypePooled           ConditionType = "pooled"
	ConditionTypePredictionMarket ConditionType = "prediction_market"
	ConditionTypeMilestoneBased   ConditionType = "milestone_based"
	ConditionTypeTimeLocked       ConditionType = "time_locked"
)

func (ct ConditionType) Enum() vdtypes.Enum[ConditionType] {
	return vdtypes.Enum[ConditionType](ct)
}

func (ct ConditionType) Options() []string {
	return []string{
		string(ConditionTypeSingleSided),
		string(ConditionTypeMultiSided),
		string(ConditionTypePooled),
		string(ConditionTypePredictionMarket),
		string(ConditionTypeMilestoneBased),
		string(ConditionTypeTimeLocked),
	}
}

type ConditionStatus string

const (
	ConditionStatusActive    ConditionStatus = "active"
	ConditionStatusTriggered ConditionStatus = "triggered"
	ConditionStatusExecuted  ConditionStatus = "executed"
	ConditionStatusExpired   ConditionStatus = "expired"
	ConditionStatusDisputed  ConditionStatus = "disputed"
	ConditionStatusCancelled ConditionStatus = "cancelled"
)

func (cs ConditionStatus) Enum() vdtypes.Enum[ConditionStatus] {
	return vdtypes.Enum[ConditionStatus](cs)
}

func (cs ConditionStatus) Options() []string {
	return []string{
		string(ConditionStatusActive),
		string(ConditionStatusTriggered),
		string(ConditionStatusExecuted),
		string(ConditionStatusExpired),
		string(ConditionStatusDisputed),
		string(ConditionStatusCancelled),
	}
}

// Stakeholder is a party whose funds are locked behind a condition at
// creation time. The outcome tag is only meaningful for prediction-market
// conditions, where it names the side the stake is committed to.
type Stakeholder struct {
	Ledger  string          `json:"ledger"`
	Address string          `json:"address"`
	Token   string          `json:"token"`
	Amount  *vdtypes.BigInt `json:"amount"`
	Outcome string          `json:"outcome,omitempty"`
}

// Beneficiary is a party eligible for disbursement when the condition fires.
// MaxAmount caps the payout for the leg; Milestone scopes the leg to a
// tranche for milestone-based conditions.
type Beneficiary struct {
	Ledger    string          `json:"ledger"`
	Address   string          `json:"address"`
	Token     string          `json:"token"`
	MaxAmount *vdtypes.BigInt `json:"maxAmount"`
	Outcome   string          `json:"outcome,omitempty"`
	Milestone int             `json:"milestone,omitempty"`
}

// ConditionBase carries the creation parameters common to input and the
// stored/queried representation.
type ConditionBase struct {
	ConditionType     vdtypes.Enum[ConditionType] `json:"conditionType"               gorm:"column:condition_type"`
	Creator           string                      `json:"creator"                     gorm:"column:creator"`
	ExecutionLedgers  []string                    `json:"executionLedgers"            gorm:"column:execution_ledgers;serializer:json"`
	Stakeholders      []*Stakeholder              `json:"stakeholders"                gorm:"column:stakeholders;serializer:json"`
	Beneficiaries     []*Beneficiary              `json:"beneficiaries"               gorm:"column:beneficiaries;serializer:json"`
	TriggerCriteria   string                      `json:"triggerCriteria"             gorm:"column:trigger_criteria"`
	ExpirationTime    vdtypes.Timestamp           `json:"expirationTime"              gorm:"column:expiration_time"`
	ExecutionDeadline *vdtypes.Timestamp          `json:"executionDeadline,omitempty" gorm:"column:execution_deadline"`
}

// Condition is the full stored representation - the source node's row is
// authoritative, mirror nodes hold an eventually-consistent copy keyed by the
// same ID.
type Condition struct {
	ID         *uuid.UUID       `json:"id"         gorm:"column:id;primaryKey"`
	GlobalHash *vdtypes.Bytes32 `json:"globalHash" gorm:"column:global_hash"`
	ConditionBase
	SourceLedger       string                        `json:"sourceLedger"                 gorm:"column:source_ledger"`
	CriteriaHash       *vdtypes.Bytes32              `json:"triggerCriteriaHash"          gorm:"column:criteria_hash"`
	MinSources         int                           `json:"minSources"                   gorm:"column:min_sources"`
	ConsensusThreshold float64                       `json:"consensusThreshold"           gorm:"column:consensus_threshold"`
	Status             vdtypes.Enum[ConditionStatus] `json:"status"                       gorm:"column:status"`
	Created            vdtypes.Timestamp             `json:"created"                      gorm:"column:created;autoCreateTime:false"`
	Updated            vdtypes.Timestamp             `json:"updated"                      gorm:"column:updated;autoUpdateTime:false"`
	SettlementProof    *vdtypes.Bytes32              `json:"settlementProof,omitempty"    gorm:"column:settlement_proof"`
	MilestonesReleased int                           `json:"milestonesReleased,omitempty" gorm:"column:milestones_released"`
}

func (c Condition) TableName() string {
	return "conditions"
}

// ConditionGlobalHash is the content digest that identifies one condition
// across every ledger it executes on. Mirror nodes recompute it from the
// relayed copy and reject anything that does not match the source.
func ConditionGlobalHash(c *Condition) vdtypes.Bytes32 {
	return vdtypes.Bytes32Keccak([]byte(fmt.Sprintf("veridict/condition/%s/%s/%d/%s/%d/%g/%s",
		c.ID, c.SourceLedger, c.Created.UnixNano(), c.CriteriaHash, c.MinSources, c.ConsensusThreshold,
		vdtypes.JSONString(&c.ConditionBase))))
}

// ConditionInput is the cond_createCondition payload. Consensus parameters
// left unset are defaulted from node configuration (global, then per-type).
type ConditionInput struct {
	ConditionBase
	MinSources         *int     `json:"minSources,omitempty"`
	ConsensusThreshold *float64 `json:"consensusThreshold,omitempty"`
}

// ConditionQuery selects conditions by status/type/creator, newest first.
type ConditionQuery struct {
	Status  []vdtypes.Enum[ConditionStatus] `json:"status,omitempty"`
	Type    *vdtypes.Enum[ConditionType]    `json:"conditionType,omitempty"`
	Creator *string                         `json:"creator,omitempty"`
	Limit   *int                            `json:"limit,omitempty"`
}

// ConditionMirror tracks the replication state of a condition on one
// execution ledger, as observed by the source node.
type ConditionMirror struct {
	Condition uuid.UUID                     `json:"condition" gorm:"column:condition;primaryKey"`
	Ledger    string                        `json:"ledger"    gorm:"column:ledger;primaryKey"`
	Status    vdtypes.Enum[ConditionStatus] `json:"status"    gorm:"column:status"`
	Created   vdtypes.Timestamp             `json:"created"   gorm:"column:created;autoCreateTime:false"`
	Updated   vdtypes.Timestamp             `json:"updated"   gorm:"column:updated;autoUpdateTime:false"`
}

func (cm ConditionMirror) TableName() string {
	return "condition_mirrors"
}
