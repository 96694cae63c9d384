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

type LedgerManager interface {
	ManagerLifecycle

	// HasAdapter reports whether this node has an adapter configured for the
	// named ledger (including its own).
	HasAdapter(ledger string) bool

	// Ledgers returns the configured ledger names, sorted.
	Ledgers() []string

	// SubmitAndTrack writes the submission record in the supplied transaction,
	// and schedules submission to the target ledger (with retry) after commit.
	// The returned submission is pending - the intent has not touched the
	// ledger when this returns. Use WaitFinal to track it through to finality.
	//
	// The intent reference is the idempotency key: re-submitting the same
	// reference to the same ledger returns the existing submission rather than
	// moving value twice.
	SubmitAndTrack(ctx context.Context, dbTX persistence.DBTX, intent *vdapi.LedgerIntent) (*vdapi.LedgerSubmission, error)

	// WaitFinal blocks until the submission is confirmed at the adapter's
	// configured finality depth, or has failed permanently. The returned
	// submission carries the transaction reference and any failure detail.
	WaitFinal(ctx context.Context, submissionID uuid.UUID) (*vdapi.LedgerSubmission, error)

	// Status reports the adapter view of one ledger (the pause flags are
	// filled in by the RPC layer from the governor, not here).
	Status(ctx context.Context, ledger string) (*vdapi.LedgerStatus, error)
}
