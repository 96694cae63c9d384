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

type SettlementManager interface {
	ManagerLifecycle

	// Execute plans the disbursement legs for a fired verdict, within the
	// supplied transaction. The plan is validated against the locked stakes
	// (value in must equal value out, per token) before any leg is written.
	// Planning is idempotent on the leg unique keys - replayed verdicts land
	// on the existing plan. Dispatch happens after commit.
	Execute(ctx context.Context, dbTX persistence.DBTX, cond *vdapi.Condition, verdict *vdapi.Verdict) error

	// Refund plans full stake-return legs for an expired, cancelled or
	// rejected condition, within the supplied transaction. Same idempotency
	// and dispatch model as Execute.
	Refund(ctx context.Context, dbTX persistence.DBTX, cond *vdapi.Condition) error

	// GetResult returns the current state of a condition's settlement plan,
	// or nil if no plan has been created.
	GetResult(ctx context.Context, conditionID uuid.UUID) (*vdapi.ExecutionResult, error)

	// RecheckNow nudges the dispatcher to rescan pending legs immediately,
	// rather than waiting for the recheck interval - used when a governance
	// action (resume, allowlist) may have unblocked legs.
	RecheckNow()
}
