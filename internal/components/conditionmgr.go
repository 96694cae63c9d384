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

type ConditionManager interface {
	ManagerLifecycle

	// CreateCondition validates the input, locks every stakeholder's funds in
	// escrow, stores the condition Active, and queues replication to each
	// execution ledger. Stake locking is synchronous - if any lock cannot be
	// placed the creation fails and already-placed locks are returned.
	CreateCondition(ctx context.Context, input *vdapi.ConditionInput) (*vdapi.Condition, error)

	GetCondition(ctx context.Context, id uuid.UUID) (*vdapi.Condition, error)

	QueryConditions(ctx context.Context, query *vdapi.ConditionQuery) ([]*vdapi.Condition, error)

	// CancelCondition is only allowed while Active with no attestations
	// received, by the creator or governance. Locked stakes are returned.
	CancelCondition(ctx context.Context, id uuid.UUID, caller, reason string) (*vdapi.Condition, error)

	// HandleVerdict applies a final verdict within the supplied transaction -
	// Active conditions move to Triggered (fired) with a settlement plan, or
	// stay Active (not fired). A verdict conflicting with one already being
	// executed moves the condition to Disputed instead.
	HandleVerdict(ctx context.Context, dbTX persistence.DBTX, verdict *vdapi.Verdict) error

	// ResolveDispute applies a binding governance ruling to a Disputed
	// condition - uphold resumes execution, reject voids the trigger and
	// returns all stakes.
	ResolveDispute(ctx context.Context, ruling *vdapi.GovernanceRuling) (*vdapi.Condition, error)

	// CompleteExecution is called by the settlement manager, in its
	// transaction, when every leg of a plan has reached a terminal state. The
	// condition moves to Executed (or releases the next milestone) with the
	// settlement proof recorded, and the status update is broadcast.
	CompleteExecution(ctx context.Context, dbTX persistence.DBTX, result *vdapi.ExecutionResult) error
}
