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

// Canonical outcomes for boolean trigger criteria. Prediction-market criteria
// evaluate to a free-form outcome label instead.
const (
	OutcomeFired    = "fired"
	OutcomeNotFired = "not_fired"
)

// Attestation is a signed claim from a data-source identity about observed
// real-world state, scoped to one condition (and tranche for milestone-based
// conditions). Rows are ephemeral - pruned after the verdict is final, with
// the verdict retaining the supporting attestation digest.
type Attestation struct {
	ID        uuid.UUID         `json:"id"        gorm:"column:id;primaryKey"`
	Condition uuid.UUID         `json:"condition" gorm:"column:condition"`
	Source    string            `json:"source"    gorm:"column:source"`
	Milestone int               `json:"milestone" gorm:"column:milestone"`
	Claim     vdtypes.RawJSON   `json:"claim"     gorm:"column:claim"`
	Signature vdtypes.HexBytes  `json:"signature" gorm:"column:signature"`
	Observed  vdtypes.Timestamp `json:"observed"  gorm:"column:observed"`
	Received  vdtypes.Timestamp `json:"received"  gorm:"column:received;autoCreateTime:false"`
}

func (a Attestation) TableName() string {
	return "attestations"
}

// AttestationInput is the oracle_submitAttestation payload. The signature is
// compact R/S/V over AttestationSigningPayload, and must recover to the
// source identity address.
type AttestationInput struct {
	Condition uuid.UUID         `json:"condition"`
	Source    string            `json:"source"`
	Milestone int               `json:"milestone,omitempty"`
	Claim     vdtypes.RawJSON   `json:"claim"`
	Signature vdtypes.HexBytes  `json:"signature"`
	Observed  vdtypes.Timestamp `json:"observed"`
}

// AttestationReceipt acknowledges acceptance. Duplicate submissions from the
// same source for the same condition/milestone are acknowledged without being
// applied twice.
type AttestationReceipt struct {
	ID        uuid.UUID         `json:"id"`
	Condition uuid.UUID         `json:"condition"`
	Source    string            `json:"source"`
	Received  vdtypes.Timestamp `json:"received"`
	Duplicate bool              `json:"duplicate,omitempty"`
}

// AttestationSigningPayload is the canonical byte sequence a data source
// signs. Both submitters and the verifying aggregator build it the same way,
// with the claim bytes carried verbatim.
func AttestationSigningPayload(condition uuid.UUID, milestone int, observed vdtypes.Timestamp, claim vdtypes.RawJSON) []byte {
	return []byte(fmt.Sprintf("veridict/attestation/%s/%d/%d/%s", condition, milestone, observed.UnixNano(), claim.BytesOrNull()))
}

// Verdict is the consensus result of evaluating a condition's trigger
// criteria over the attestation set. At most one verdict per
// (condition, milestone) is final.
type Verdict struct {
	Condition         uuid.UUID         `json:"condition"           gorm:"column:condition;primaryKey"`
	Milestone         int               `json:"milestone,omitempty" gorm:"column:milestone;primaryKey"`
	Outcome           string            `json:"outcome"             gorm:"column:outcome"`
	Confidence        float64           `json:"confidence"          gorm:"column:confidence"`
	Agreeing          int               `json:"agreeing"            gorm:"column:agreeing"`
	Responding        int               `json:"responding"          gorm:"column:responding"`
	AttestationDigest vdtypes.Bytes32   `json:"attestationDigest"   gorm:"column:attestation_digest"`
	CriteriaHash      vdtypes.Bytes32   `json:"criteriaHash"        gorm:"column:criteria_hash"`
	Evaluated         vdtypes.Timestamp `json:"evaluated"           gorm:"column:evaluated;autoCreateTime:false"`
}

func (v Verdict) TableName() string {
	return "verdicts"
}

// Fired is true when the verdict should drive an Active->Triggered
// transition - anything other than an explicit negative.
func (v *Verdict) Fired() bool {
	return v.Outcome != OutcomeNotFired
}

type OracleSourceStatus string

const (
	OracleSourceActive  OracleSourceStatus = "active"
	OracleSourceRevoked OracleSourceStatus = "revoked"
)

func (os OracleSourceStatus) Enum() vdtypes.Enum[OracleSourceStatus] {
	return vdtypes.Enum[OracleSourceStatus](os)
}

func (os OracleSourceStatus) Options() []string {
	return []string{
		string(OracleSourceActive),
		string(OracleSourceRevoked),
	}
}

// OracleSource is an authorized data-source identity. Only governance mutates
// this registry - the aggregator reads it.
type OracleSource struct {
	Identity    string                           `json:"identity"              gorm:"column:identity;primaryKey"`
	Description string                           `json:"description,omitempty" gorm:"column:description"`
	Status      vdtypes.Enum[OracleSourceStatus] `json:"status"                gorm:"column:status"`
	Created     vdtypes.Timestamp                `json:"created"               gorm:"column:created;autoCreateTime:false"`
	Updated     vdtypes.Timestamp                `json:"updated"               gorm:"column:updated;autoUpdateTime:false"`
}

func (os OracleSource) TableName() string {
	return "oracle_sources"
}
