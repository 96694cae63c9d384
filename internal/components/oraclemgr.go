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

package components

import (
	"context"

	"github.com/google/uuid"

	"github.com/veridict-io/veridict/pkg/persistence"
	"github.com/veridict-io/veridict/pkg/vdapi"
)

type OracleManager interface {
	ManagerLifecycle

	// QuorumDefaults returns the configured global consensus parameters,
	// applied when a condition does not set its own (governance overrides
	// sit between the two).
	QuorumDefaults() (minSources int, consensusThreshold float64)

	// ValidateCriteria compiles the trigger criteria for the condition type,
	// so malformed criteria are rejected at creation rather than discovered
	// when the first attestation arrives.
	ValidateCriteria(ctx context.Context, conditionType vdapi.ConditionType, criteria string) error

	// SubmitAttestation verifies the source signature and records the
	// attestation, triggering re-evaluation of the condition's criteria.
	// Duplicates (same source, condition and milestone) are acknowledged
	// without being applied twice.
	SubmitAttestation(ctx context.Context, att *vdapi.AttestationInput) (*vdapi.AttestationReceipt, error)

	// Evaluate re-runs consensus evaluation for a condition the node is the
	// source of. Returns the standing verdict, or nil when quorum has not
	// been reached (which is not an error). Time-locked conditions evaluate
	// with no attestations at all, so the condition manager's scanner drives
	// them through here as their unlock time passes.
	Evaluate(ctx context.Context, conditionID uuid.UUID, milestone int) (*vdapi.Verdict, error)

	// GetVerdict returns the verdict for a condition/milestone, or nil if
	// evaluation has not reached quorum.
	GetVerdict(ctx context.Context, conditionID uuid.UUID, milestone int) (*vdapi.Verdict, error)

	// ListSources returns the data-source identity registry, including
	// revoked entries.
	ListSources(ctx context.Context) ([]*vdapi.OracleSource, error)

	// HasAttestations reports whether any attestation has been recorded for
	// the condition (cancellation is only allowed before this point).
	HasAttestations(ctx context.Context, dbTX persistence.DBTX, conditionID uuid.UUID) (bool, error)
}
