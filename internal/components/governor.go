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

	"github.com/veridict-io/veridict/pkg/persistence"
	"github.com/veridict-io/veridict/pkg/vdapi"
)

// EffectiveParams are the governance overrides in force for a condition type
// at the time of asking. Nil fields have no override - the caller falls back
// to its configured defaults.
type EffectiveParams struct {
	MinSources         *int
	ConsensusThreshold *float64
}

type Governor interface {
	ManagerLifecycle

	// CheckAdmission enforces the security gates on a new condition - paused
	// ledgers, denylisted parties, and per-token volume caps over the rolling
	// window. It runs in the creation transaction so the volume reservation
	// commits (or rolls back) with the condition itself.
	CheckAdmission(ctx context.Context, dbTX persistence.DBTX, cond *vdapi.Condition) error

	// CheckRelease guards one disbursement leg immediately before dispatch.
	// An error leaves the leg pending - the settlement manager rechecks it
	// on its interval and on RecheckNow.
	CheckRelease(ctx context.Context, rec *vdapi.ExecutionRecord) error

	// EffectiveParams resolves the governance parameter overrides for a
	// condition type - the per-type row wins over the global row, and only
	// rows whose effective time has passed count.
	EffectiveParams(ctx context.Context, conditionType vdapi.ConditionType) (*EffectiveParams, error)

	// PausedLedger returns the pause record for a ledger, or nil if the
	// ledger is not paused.
	PausedLedger(ctx context.Context, ledger string) (*vdapi.PausedLedger, error)
}
