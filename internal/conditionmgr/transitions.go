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

package conditionmgr

import (
	"context"

	"github.com/google/uuid"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"gorm.io/gorm/clause"

	"github.com/veridict-io/veridict/internal/components"
	"github.com/veridict-io/veridict/internal/flushwriter"
	"github.com/veridict-io/veridict/internal/msgs"
	"github.com/veridict-io/veridict/pkg/log"
	"github.com/veridict-io/veridict/pkg/persistence"
	"github.com/veridict-io/veridict/pkg/vdapi"
	"github.com/veridict-io/veridict/pkg/vdtypes"
)

// Legal transitions out of each status. No entry means terminal. Disputed can
// re-enter Triggered (trigger upheld) or Active (trigger voided, or a
// milestone tranche dispute resolved), so legality is decided per pair rather
// than by any ordering of statuses.
var allowedTransitions = map[vdapi.ConditionStatus][]vdapi.ConditionStatus{
	vdapi.ConditionStatusActive: {
		vdapi.ConditionStatusTriggered,
		vdapi.ConditionStatusDisputed,
		vdapi.ConditionStatusExpired,
		vdapi.ConditionStatusCancelled,
	},
	vdapi.ConditionStatusTriggered: {
		vdapi.ConditionStatusExecuted,
		vdapi.ConditionStatusDisputed,
	},
	vdapi.ConditionStatusDisputed: {
		vdapi.ConditionStatusTriggered,
		vdapi.ConditionStatusActive,
		vdapi.ConditionStatusExpired,
	},
}

func transitionAllowed(from, to vdapi.ConditionStatus) bool {
	for _, t := range allowedTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// applyTransition moves the condition to a new status with an optimistic
// guard on the status the caller loaded. A racing writer that got there first
// leaves zero rows affected and the whole transaction aborts, so a transition
// can never half-apply over another. The in-memory condition is updated to
// match, the new status is broadcast to the execution ledgers when this node
// is the source, and cache/subscriber/bookkeeping updates fire on commit.
//
// Callers that change companion columns (settlement_proof,
// milestones_released) pass them in updates AND set them on cond first, so
// the broadcast and the cache see the same row the database holds.
func (cm *conditionManager) applyTransition(ctx context.Context, dbTX persistence.DBTX, cond *vdapi.Condition, to vdapi.ConditionStatus, updates map[string]any) error {
	from := cond.Status.V()
	if !transitionAllowed(from, to) {
		if isTerminal(from) {
			return i18n.NewError(ctx, msgs.MsgConditionTerminal, cond.ID, from)
		}
		return i18n.NewError(ctx, msgs.MsgConditionInvalidTransition, from, to, cond.ID)
	}
	now := vdtypes.TimestampNow()
	if updates == nil {
		updates = map[string]any{}
	}
	updates["status"] = to.Enum()
	updates["updated"] = now
	res := dbTX.DB().WithContext(ctx).
		Model(&vdapi.Condition{}).
		Where("id = ?", cond.ID).
		Where("status = ?", from.Enum()).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return i18n.NewError(ctx, msgs.MsgConditionTransitionConflict, cond.ID, from)
	}
	log.L(ctx).Infof("Condition %s status %s -> %s", cond.ID, from, to)
	cond.Status = to.Enum()
	cond.Updated = now
	if cond.SourceLedger == cm.nodeName {
		if err := cm.broadcastStatus(ctx, dbTX, cond); err != nil {
			return err
		}
	}
	cm.finalizeUpdate(ctx, dbTX, cond)
	return nil
}

// broadcastStatus queues a status_update to every remote execution ledger, in
// the same transaction as the state change it reports.
func (cm *conditionManager) broadcastStatus(ctx context.Context, dbTX persistence.DBTX, cond *vdapi.Condition) error {
	update := &vdapi.StatusUpdateV1{
		Version:            vdapi.RelayPayloadV1,
		Condition:          *cond.ID,
		Status:             cond.Status,
		SettlementProof:    cond.SettlementProof,
		MilestonesReleased: cond.MilestonesReleased,
		Updated:            cond.Updated,
	}
	for _, ledger := range remoteLedgers(cond, cm.nodeName) {
		if _, err := cm.relay.Send(ctx, dbTX, &components.RelaySend{
			Channel:     *cond.ID,
			MessageType: vdapi.RMTStatusUpdate,
			Destination: ledger,
			Payload:     vdtypes.JSONString(update),
		}); err != nil {
			return err
		}
	}
	return nil
}

// finalizeUpdate refreshes the cache, notifies subscribers, and (on the
// source node) queues replication bookkeeping - all once the surrounding
// transaction commits, never before.
func (cm *conditionManager) finalizeUpdate(ctx context.Context, dbTX persistence.DBTX, cond *vdapi.Condition) {
	snapshot := *cond
	afterCommit(ctx, dbTX, func(ctx context.Context) {
		cm.condCache.Set(*snapshot.ID, &snapshot)
		cm.events.publishStatus(&snapshot)
		if snapshot.SourceLedger == cm.nodeName {
			cm.queueMirrorSync(&snapshot)
		}
	})
}

// remoteLedgers is the set of execution ledgers other than this node and the
// source, deduplicated in declaration order.
func remoteLedgers(cond *vdapi.Condition, self string) []string {
	seen := map[string]bool{self: true, cond.SourceLedger: true}
	remote := make([]string, 0, len(cond.ExecutionLedgers))
	for _, ledger := range cond.ExecutionLedgers {
		if !seen[ledger] {
			seen[ledger] = true
			remote = append(remote, ledger)
		}
	}
	return remote
}

// mirrorUpdate records the status most recently broadcast to one execution
// ledger. Keyed by condition so updates for the same condition stay ordered
// through the writer.
type mirrorUpdate struct {
	condition uuid.UUID
	ledger    string
	status    vdtypes.Enum[vdapi.ConditionStatus]
	updated   vdtypes.Timestamp
}

func (mu *mirrorUpdate) WriteKey() string {
	return mu.condition.String()
}

func (cm *conditionManager) writeMirrorStates(ctx context.Context, dbTX persistence.DBTX, values []*mirrorUpdate) ([]flushwriter.Result[*vdapi.ConditionMirror], error) {
	now := vdtypes.TimestampNow()
	rows := make([]*vdapi.ConditionMirror, len(values))
	results := make([]flushwriter.Result[*vdapi.ConditionMirror], len(values))
	for i, mu := range values {
		rows[i] = &vdapi.ConditionMirror{
			Condition: mu.condition,
			Ledger:    mu.ledger,
			Status:    mu.status,
			Created:   now,
			Updated:   mu.updated,
		}
		results[i] = flushwriter.Result[*vdapi.ConditionMirror]{R: rows[i]}
	}
	err := dbTX.DB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "condition"}, {Name: "ledger"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "updated"}),
		}).
		Create(rows).
		Error
	return results, err
}

// queueMirrorSync writes the replication bookkeeping rows in the background.
// Delivery guarantees live in the relay outbox (queued in the same
// transaction as the transition) - these rows are operator-facing state, so
// a write failure only retries, it never blocks or fails the transition.
func (cm *conditionManager) queueMirrorSync(cond *vdapi.Condition) {
	for _, ledger := range remoteLedgers(cond, cm.nodeName) {
		mu := &mirrorUpdate{
			condition: *cond.ID,
			ledger:    ledger,
			status:    cond.Status,
			updated:   cond.Updated,
		}
		go func() {
			err := cm.mirrorRetry.Do(cm.bgCtx, func(_ int) (bool, error) {
				op := cm.mirrorWriter.Queue(cm.bgCtx, mu)
				_, err := op.WaitFlushed(cm.bgCtx)
				return true, err
			})
			if err != nil {
				log.L(cm.bgCtx).Warnf("Mirror bookkeeping abandoned for %s/%s: %s", mu.condition, mu.ledger, err)
			}
		}()
	}
}
