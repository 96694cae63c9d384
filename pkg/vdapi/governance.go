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

type PausedLedger struct {
	Ledger string            `json:"ledger"           gorm:"column:ledger;primaryKey"`
	Reason string            `json:"reason,omitempty" gorm:"column:reason"`
	Paused vdtypes.Timestamp `json:"paused"           gorm:"column:paused;autoCreateTime:false"`
}

func (pl PausedLedger) TableName() string {
	return "paused_ledgers"
}

type DenylistEntry struct {
	Ledger  string            `json:"ledger"           gorm:"column:ledger;primaryKey"`
	Address string            `json:"address"          gorm:"column:address;primaryKey"`
	Reason  string            `json:"reason,omitempty" gorm:"column:reason"`
	Created vdtypes.Timestamp `json:"created"          gorm:"column:created;autoCreateTime:false"`
}

func (de DenylistEntry) TableName() string {
	return "denylist"
}

// GovParam is one governance parameter value with its effective time. The
// row with the latest effective time not in the future wins; earlier rows are
// retained as history.
type GovParam struct {
	Param     string            `json:"param"     gorm:"column:param;primaryKey"`
	Value     string            `json:"value"     gorm:"column:value"`
	Effective vdtypes.Timestamp `json:"effective" gorm:"column:effective;primaryKey"`
	Created   vdtypes.Timestamp `json:"created"   gorm:"column:created;autoCreateTime:false"`
}

func (gp GovParam) TableName() string {
	return "gov_params"
}

// Governance parameter keys. Per-type overrides append "." and the
// condition type; volume caps append "." and the token.
const (
	ParamMinSources         = "min_sources"
	ParamConsensusThreshold = "consensus_threshold"
	ParamVolumeCap          = "volume_cap"
)

type DisputeRuling string

const (
	RulingUphold DisputeRuling = "uphold" // the trigger stands - back to Triggered for execution
	RulingReject DisputeRuling = "reject" // the trigger is voided - Expired with full stake return
)

func (dr DisputeRuling) Enum() vdtypes.Enum[DisputeRuling] {
	return vdtypes.Enum[DisputeRuling](dr)
}

func (dr DisputeRuling) Options() []string {
	return []string{
		string(RulingUphold),
		string(RulingReject),
	}
}

// GovernanceRuling resolves a disputed condition. Binding and final once its
// effective time passes.
type GovernanceRuling struct {
	Condition uuid.UUID                   `json:"condition"`
	Milestone int                         `json:"milestone,omitempty"`
	Ruling    vdtypes.Enum[DisputeRuling] `json:"ruling"`
	Reason    string                      `json:"reason,omitempty"`
	Effective *vdtypes.Timestamp          `json:"effective,omitempty"`
}

// Dispute is the audit record of a verdict conflict - the digest first
// accepted and the conflicting digest that arrived before execution
// completed.
type Dispute struct {
	ID             uuid.UUID          `json:"id"                   gorm:"column:id;primaryKey"`
	Condition      uuid.UUID          `json:"condition"            gorm:"column:condition"`
	Milestone      int                `json:"milestone,omitempty"  gorm:"column:milestone"`
	FirstDigest    vdtypes.Bytes32    `json:"firstDigest"          gorm:"column:first_digest"`
	ConflictDigest vdtypes.Bytes32    `json:"conflictDigest"       gorm:"column:conflict_digest"`
	Opened         vdtypes.Timestamp  `json:"opened"               gorm:"column:opened;autoCreateTime:false"`
	Resolved       *vdtypes.Timestamp `json:"resolved,omitempty"   gorm:"column:resolved"`
	Resolution     string             `json:"resolution,omitempty" gorm:"column:resolution"`
}

func (d Dispute) TableName() string {
	return "disputes"
}

// NodeInfo is the node_info RPC result.
type NodeInfo struct {
	NodeName      string            `json:"nodeName"`
	Ledger        string            `json:"ledger"`
	SignerAddress string            `json:"signerAddress"`
	Peers         []string          `json:"peers,omitempty"`
	Started       vdtypes.Timestamp `json:"started"`
}
