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

package settlemgr

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/veridict-io/veridict/internal/components"
	"github.com/veridict-io/veridict/internal/flushwriter"
	"github.com/veridict-io/veridict/pkg/log"
	"github.com/veridict-io/veridict/pkg/persistence"
	"github.com/veridict-io/veridict/pkg/vdapi"
	"github.com/veridict-io/veridict/pkg/vdtypes"
)

const dispatchPageLimit = 500

// runDispatchPass is one sweep of the dispatcher: surface stalled legs,
// then pick up every pending or stalled leg whose condition allows it to
// move and drive it on its own goroutine. The pass is safe to run at any
// time - restart recovery is just the first pass.
func (sm *settlementManager) runDispatchPass(ctx context.Context) {
	if err := sm.markStalledLegs(ctx); err != nil {
		log.L(ctx).Errorf("Settlement stall sweep failed (next pass retries): %s", err)
	}

	var legs []*vdapi.ExecutionRecord
	err := sm.p.DB().WithContext(ctx).
		Where("status IN (?)", []string{
			string(vdapi.ExecutionPending),
			string(vdapi.ExecutionStalled),
		}).
		Order("created, id").
		Limit(dispatchPageLimit).
		Find(&legs).
		Error
	if err != nil {
		log.L(ctx).Errorf("Settlement dispatch scan failed (next pass retries): %s", err)
		return
	}

	conds := map[uuid.UUID]*vdapi.Condition{}
	for _, leg := range legs {
		cond, loaded := conds[leg.Condition]
		if !loaded {
			if cond, err = sm.getCondition(ctx, sm.p.NOTX(), leg.Condition); err != nil {
				log.L(ctx).Errorf("Settlement dispatch scan failed (next pass retries): %s", err)
				return
			}
			conds[leg.Condition] = cond
		}
		if cond == nil {
			log.L(ctx).Warnf("Settlement leg %s references unknown condition %s", leg.ID, leg.Condition)
			continue
		}
		if dispatchable(cond, leg) {
			sm.driveLeg(ctx, cond, leg)
		}
	}
}

// dispatchable is the release gate tying leg movement to the condition's
// state machine. Disputed conditions freeze everything.
func dispatchable(cond *vdapi.Condition, leg *vdapi.ExecutionRecord) bool {
	switch cond.Status.V() {
	case vdapi.ConditionStatusTriggered:
		return true
	case vdapi.ConditionStatusActive:
		// only released milestone tranches move before the trigger
		return cond.ConditionType.V() == vdapi.ConditionTypeMilestoneBased &&
			leg.Direction.V() == vdapi.DirectionPayout &&
			leg.Milestone < cond.MilestonesReleased
	case vdapi.ConditionStatusExpired, vdapi.ConditionStatusCancelled:
		return leg.Direction.V() == vdapi.DirectionRefund
	}
	return false
}

// markStalledLegs flags submitted legs that have sat beyond the stall
// timeout with nobody locally driving them - the scanner then retries them
// like pending work. Remote legs come back to life the same way when their
// payout_result never arrives.
func (sm *settlementManager) markStalledLegs(ctx context.Context) error {
	cutoff := vdtypes.Timestamp(time.Now().Add(-sm.stallTimeout).UnixNano())
	q := sm.p.DB().WithContext(ctx).
		Model(&vdapi.ExecutionRecord{}).
		Where("status = ?", vdapi.ExecutionSubmitted.Enum()).
		Where("updated <= ?", cutoff)
	if driving := sm.drivingLegs(); len(driving) > 0 {
		q = q.Where("id NOT IN (?)", driving)
	}
	res := q.Updates(map[string]any{
		"status":  vdapi.ExecutionStalled.Enum(),
		"updated": vdtypes.TimestampNow(),
	})
	if res.RowsAffected > 0 {
		log.L(ctx).Warnf("%d settlement legs stalled with no progress for %s - retrying", res.RowsAffected, sm.stallTimeout)
	}
	return res.Error
}

func (sm *settlementManager) drivingLegs() []uuid.UUID {
	sm.drivingMux.Lock()
	defer sm.drivingMux.Unlock()
	ids := make([]uuid.UUID, 0, len(sm.driving))
	for id := range sm.driving {
		ids = append(ids, id)
	}
	return ids
}

// driveLeg claims the leg for this process and walks it to an outcome on
// its own goroutine. The claim is in-memory only - cross-process safety
// comes from the status CAS and the idempotent intent ref underneath it.
func (sm *settlementManager) driveLeg(ctx context.Context, cond *vdapi.Condition, leg *vdapi.ExecutionRecord) {
	sm.drivingMux.Lock()
	if sm.driving[leg.ID] {
		sm.drivingMux.Unlock()
		return
	}
	sm.driving[leg.ID] = true
	sm.drivingMux.Unlock()

	go func() {
		defer func() {
			sm.drivingMux.Lock()
			delete(sm.driving, leg.ID)
			sm.drivingMux.Unlock()
		}()
		sm.dispatchLeg(ctx, cond, leg)
	}()
}

func (sm *settlementManager) dispatchLeg(ctx context.Context, cond *vdapi.Condition, leg *vdapi.ExecutionRecord) {
	// governance gets the last word before any funds move - a pause or
	// denylist hit leaves the leg where it is for a later pass
	if err := sm.governor.CheckRelease(ctx, leg); err != nil {
		log.L(ctx).Infof("Settlement leg %s held by governor: %s", leg.ID, err)
		return
	}

	claimed, err := sm.claimLeg(ctx, leg)
	if err != nil {
		log.L(ctx).Errorf("Settlement leg %s claim failed (next pass retries): %s", leg.ID, err)
		return
	}
	if !claimed {
		return
	}

	if sm.ledgers.HasAdapter(leg.Ledger) {
		sm.executeLocal(ctx, leg)
		return
	}
	sm.instructRemote(ctx, cond, leg)
}

// claimLeg is the compare-and-set that makes dispatch exactly-once: only
// the caller that moves the row pending/stalled -> submitted may move funds
// for it.
func (sm *settlementManager) claimLeg(ctx context.Context, leg *vdapi.ExecutionRecord) (bool, error) {
	res := sm.p.DB().WithContext(ctx).
		Model(&vdapi.ExecutionRecord{}).
		Where("id = ?", leg.ID).
		Where("status IN (?)", []string{
			string(vdapi.ExecutionPending),
			string(vdapi.ExecutionStalled),
		}).
		Updates(map[string]any{
			"status":  vdapi.ExecutionSubmitted.Enum(),
			"updated": vdtypes.TimestampNow(),
		})
	return res.RowsAffected == 1, res.Error
}

// executeLocal drives a leg on a ledger this node operates: submit the
// intent, wait for finality, record the outcome. Submission retries a
// bounded number of times before the leg is parked stalled; the intent ref
// keeps every retry (and every restart) pointing at the same movement.
func (sm *settlementManager) executeLocal(ctx context.Context, leg *vdapi.ExecutionRecord) {
	var sub *vdapi.LedgerSubmission
	err := sm.dispatchRetry.Do(ctx, func(attempt int) (bool, error) {
		s, err := sm.ledgers.SubmitAndTrack(ctx, sm.p.NOTX(), legIntent(leg))
		if err != nil {
			return true, err
		}
		sub = s
		return false, nil
	})
	if err != nil {
		sm.recordOutcome(ctx, leg, vdapi.ExecutionStalled, "", err.Error())
		return
	}

	final, err := sm.ledgers.WaitFinal(ctx, sub.ID)
	if err != nil {
		// shutdown mid-wait - the leg stays submitted and recovery
		// re-drives it through the same intent ref
		log.L(ctx).Warnf("Settlement leg %s finality wait interrupted: %s", leg.ID, err)
		return
	}
	if final.Status.V() == vdapi.SubmissionConfirmed {
		sm.recordOutcome(ctx, leg, vdapi.ExecutionConfirmed, final.TxRef, "")
		return
	}
	sm.recordOutcome(ctx, leg, vdapi.ExecutionFailed, final.TxRef, final.Error)
}

// instructRemote hands a leg to the node operating its ledger. The
// instruction rides the relay outbox with the condition's channel and
// deadline; the leg stays submitted until a payout_result comes back or
// the stall sweep re-queues it.
func (sm *settlementManager) instructRemote(ctx context.Context, cond *vdapi.Condition, leg *vdapi.ExecutionRecord) {
	payload := vdtypes.JSONString(&vdapi.PayoutInstructionV1{
		Version: vdapi.RelayPayloadV1,
		Record:  leg,
	})
	err := sm.dispatchRetry.Do(ctx, func(attempt int) (bool, error) {
		return true, sm.p.Transaction(ctx, func(ctx context.Context, dbTX persistence.DBTX) error {
			_, err := sm.relay.Send(ctx, dbTX, &components.RelaySend{
				Channel:     leg.Condition,
				MessageType: vdapi.RMTPayoutInstruction,
				Destination: leg.Ledger,
				Payload:     payload,
				Expires:     cond.ExecutionDeadline,
			})
			return err
		})
	})
	if err != nil {
		sm.recordOutcome(ctx, leg, vdapi.ExecutionStalled, "", err.Error())
	}
}

func legIntent(leg *vdapi.ExecutionRecord) *vdapi.LedgerIntent {
	intentType := vdapi.IntentReleasePayout
	if leg.Direction.V() == vdapi.DirectionRefund {
		intentType = vdapi.IntentReturnStake
	}
	return &vdapi.LedgerIntent{
		Type:      intentType.Enum(),
		Condition: leg.Condition,
		Ledger:    leg.Ledger,
		Address:   leg.Beneficiary,
		Token:     leg.Token,
		Amount:    leg.Amount,
		Ref:       legIntentRef(intentType, leg),
	}
}

func legIntentRef(intentType vdapi.LedgerIntentType, leg *vdapi.ExecutionRecord) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s/%d",
		intentType, leg.Condition, leg.Ledger, leg.Beneficiary, leg.Token, leg.Milestone)
}

// legOutcome is the batched record of where one dispatch attempt ended up.
// The from-status guard keeps late writers from clobbering a result that
// landed through another path (a relayed payout_result, typically).
type legOutcome struct {
	leg    *vdapi.ExecutionRecord
	to     vdapi.ExecutionStatus
	txRef  string
	errMsg string
}

func (lo *legOutcome) WriteKey() string {
	return lo.leg.Condition.String()
}

// recordOutcome queues the leg's new status through the flush writer and,
// on a confirmation, checks whether the condition is fully settled. A write
// failure only logs: the row keeps its last durable status and the scanner
// converges it.
func (sm *settlementManager) recordOutcome(ctx context.Context, leg *vdapi.ExecutionRecord, to vdapi.ExecutionStatus, txRef, errMsg string) {
	op := sm.outcomeWriter.Queue(ctx, &legOutcome{leg: leg, to: to, txRef: txRef, errMsg: errMsg})
	if _, err := op.WaitFlushed(ctx); err != nil {
		log.L(ctx).Errorf("Settlement leg %s outcome %s not recorded (scanner converges): %s", leg.ID, to, err)
		return
	}
	if to == vdapi.ExecutionConfirmed {
		if err := sm.finalizeIfSettled(ctx, leg.Condition); err != nil {
			log.L(ctx).Errorf("Settlement completion check for condition %s failed (next confirmation retries): %s", leg.Condition, err)
		}
	}
}

// writeLegOutcomes is the flush-writer batch handler for dispatch results.
func (sm *settlementManager) writeLegOutcomes(ctx context.Context, dbTX persistence.DBTX, values []*legOutcome) ([]flushwriter.Result[*vdapi.ExecutionRecord], error) {
	now := vdtypes.TimestampNow()
	results := make([]flushwriter.Result[*vdapi.ExecutionRecord], len(values))
	for i, lo := range values {
		if err := applyLegResult(ctx, dbTX, lo, now); err != nil {
			return nil, err
		}
		results[i] = flushwriter.Result[*vdapi.ExecutionRecord]{R: lo.leg}
	}
	return results, nil
}

// applyLegResult lands one leg outcome: a guarded update from submitted, so
// whichever result arrives first wins and anything after is a no-op. A
// confirmed refund additionally closes the matching stake lock as returned,
// stamped with the return transaction.
func applyLegResult(ctx context.Context, dbTX persistence.DBTX, lo *legOutcome, now vdtypes.Timestamp) error {
	err := dbTX.DB().WithContext(ctx).
		Model(&vdapi.ExecutionRecord{}).
		Where("id = ?", lo.leg.ID).
		Where("status = ?", vdapi.ExecutionSubmitted.Enum()).
		Updates(map[string]any{
			"status":  lo.to.Enum(),
			"tx_ref":  lo.txRef,
			"error":   lo.errMsg,
			"updated": now,
		}).
		Error
	if err != nil {
		return err
	}
	if lo.to == vdapi.ExecutionConfirmed && lo.leg.Direction.V() == vdapi.DirectionRefund {
		err = dbTX.DB().WithContext(ctx).
			Model(&vdapi.StakeLock{}).
			Where("condition = ?", lo.leg.Condition).
			Where("ledger = ?", lo.leg.Ledger).
			Where("stakeholder = ?", lo.leg.Beneficiary).
			Where("token = ?", lo.leg.Token).
			Where("status = ?", vdapi.StakeLocked.Enum()).
			Updates(map[string]any{
				"status":  vdapi.StakeReturned.Enum(),
				"tx_ref":  lo.txRef,
				"updated": now,
			}).
			Error
	}
	return err
}
