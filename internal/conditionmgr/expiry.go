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
	"time"

	"github.com/google/uuid"

	"github.com/veridict-io/veridict/pkg/log"
	"github.com/veridict-io/veridict/pkg/persistence"
	"github.com/veridict-io/veridict/pkg/vdapi"
	"github.com/veridict-io/veridict/pkg/vdtypes"
)

// runScan is one pass of every clock-driven duty this node owns as a source.
// Evaluation runs before expiry so a time lock that both unlocked and expired
// within the same window fires rather than expires.
func (cm *conditionManager) runScan(ctx context.Context) {
	cm.logScanError("evaluation", cm.driveScheduledEvaluation(ctx))
	cm.logScanError("expiry", cm.expireOverdue(ctx))
	cm.logScanError("dispute deadline", cm.expireDisputedDeadlines(ctx))
	cm.logScanError("stake repair", cm.repairStakeLocks(ctx))
}

// driveScheduledEvaluation re-runs consensus evaluation for the condition
// types that can become triggerable without a new attestation arriving:
//   - time_locked criteria run against the clock alone
//   - milestone_based conditions can have a later milestone already at quorum
//     when an earlier release moves the frontier forward
func (cm *conditionManager) driveScheduledEvaluation(ctx context.Context) error {
	var conds []*vdapi.Condition
	err := cm.p.DB().WithContext(ctx).
		Where("status = ?", vdapi.ConditionStatusActive.Enum()).
		Where("source_ledger = ?", cm.nodeName).
		Where("condition_type IN (?)", []string{
			string(vdapi.ConditionTypeTimeLocked),
			string(vdapi.ConditionTypeMilestoneBased),
		}).
		Order("created").
		Limit(cm.scanPageSize).
		Find(&conds).
		Error
	if err != nil {
		return err
	}
	for _, cond := range conds {
		milestone := 0
		if cond.ConditionType.V() == vdapi.ConditionTypeMilestoneBased {
			milestone = cond.MilestonesReleased
		}
		if _, err := cm.oracle.Evaluate(ctx, *cond.ID, milestone); err != nil {
			log.L(ctx).Warnf("Scheduled evaluation of condition %s failed: %s", cond.ID, err)
		}
	}
	return nil
}

func (cm *conditionManager) expireOverdue(ctx context.Context) error {
	var conds []*vdapi.Condition
	err := cm.p.DB().WithContext(ctx).
		Where("status = ?", vdapi.ConditionStatusActive.Enum()).
		Where("source_ledger = ?", cm.nodeName).
		Where("expiration_time <= ?", vdtypes.TimestampNow()).
		Order("expiration_time").
		Limit(cm.scanPageSize).
		Find(&conds).
		Error
	if err != nil {
		return err
	}
	for _, stale := range conds {
		if err := cm.expireOne(ctx, *stale.ID, vdapi.ConditionStatusActive); err != nil {
			log.L(ctx).Warnf("Expiry of condition %s failed: %s", stale.ID, err)
		}
	}
	return nil
}

// expireDisputedDeadlines is the fallback when a dispute is still open at the
// execution deadline - the condition expires and all stakes return, rather
// than holding funds hostage to a dispute nobody resolves.
func (cm *conditionManager) expireDisputedDeadlines(ctx context.Context) error {
	var conds []*vdapi.Condition
	err := cm.p.DB().WithContext(ctx).
		Where("status = ?", vdapi.ConditionStatusDisputed.Enum()).
		Where("source_ledger = ?", cm.nodeName).
		Where("execution_deadline IS NOT NULL").
		Where("execution_deadline <= ?", vdtypes.TimestampNow()).
		Order("execution_deadline").
		Limit(cm.scanPageSize).
		Find(&conds).
		Error
	if err != nil {
		return err
	}
	for _, stale := range conds {
		if err := cm.expireOne(ctx, *stale.ID, vdapi.ConditionStatusDisputed); err != nil {
			log.L(ctx).Warnf("Deadline expiry of condition %s failed: %s", stale.ID, err)
		}
	}
	return nil
}

// expireOne re-loads the row in its own transaction and re-checks the status
// before transitioning - a verdict or ruling landing between the page query
// and here wins, and the scanner just moves on.
func (cm *conditionManager) expireOne(ctx context.Context, id uuid.UUID, expect vdapi.ConditionStatus) error {
	return cm.p.Transaction(ctx, func(ctx context.Context, dbTX persistence.DBTX) error {
		cond, err := cm.getCondition(ctx, dbTX, id)
		if err != nil || cond == nil || cond.Status.V() != expect {
			return err
		}
		if err := cm.applyTransition(ctx, dbTX, cond, vdapi.ConditionStatusExpired, nil); err != nil {
			return err
		}
		if expect == vdapi.ConditionStatusDisputed {
			err = dbTX.DB().WithContext(ctx).
				Model(&vdapi.Dispute{}).
				Where("condition = ?", id).
				Where("resolved IS NULL").
				Updates(map[string]any{
					"resolved":   vdtypes.TimestampNow(),
					"resolution": "deadline_fallback",
				}).
				Error
			if err != nil {
				return err
			}
		}
		return cm.settlement.Refund(ctx, dbTX, cond)
	})
}

// repairStakeLocks re-drives stake placement for locks committed at creation
// whose submission never recorded a transaction reference - the node crashed
// or the ledger hung between commit and confirmation. The intent ref is
// deterministic, so re-submission lands on the original submission if it did
// make it out.
func (cm *conditionManager) repairStakeLocks(ctx context.Context) error {
	cutoff := vdtypes.Timestamp(time.Now().Add(-cm.repairAge).UnixNano())
	var locks []*vdapi.StakeLock
	err := cm.p.DB().WithContext(ctx).
		Where("status = ?", vdapi.StakeLocked.Enum()).
		Where("tx_ref = ?", "").
		Where("created <= ?", cutoff).
		Order("created").
		Limit(cm.scanPageSize).
		Find(&locks).
		Error
	if err != nil {
		return err
	}
	for _, lock := range locks {
		cm.repairOneLock(lock)
	}
	return nil
}

// repairOneLock resolves a single unconfirmed lock in the background. The
// in-flight set stops successive scans stacking submissions behind a slow
// ledger confirmation.
func (cm *conditionManager) repairOneLock(lock *vdapi.StakeLock) {
	key := lockRef(vdapi.IntentLockStake, lock)
	cm.repairMux.Lock()
	if cm.repairing[key] {
		cm.repairMux.Unlock()
		return
	}
	cm.repairing[key] = true
	cm.repairMux.Unlock()

	go func() {
		ctx := cm.bgCtx
		defer func() {
			cm.repairMux.Lock()
			delete(cm.repairing, key)
			cm.repairMux.Unlock()
		}()
		cond, err := cm.getCondition(ctx, cm.p.NOTX(), lock.Condition)
		if err != nil {
			log.L(ctx).Warnf("Stake repair for condition %s deferred: %s", lock.Condition, err)
			return
		}
		if cond == nil || cond.SourceLedger != cm.nodeName {
			return
		}
		if isTerminal(cond.Status.V()) {
			// never reached the ledger and never will - close the bookkeeping
			log.L(ctx).Infof("Closing unplaced stake lock for %s condition %s (ledger=%s stakeholder=%s)",
				cond.Status, lock.Condition, lock.Ledger, lock.Stakeholder)
			cm.recordLockResult(ctx, lock, "", vdapi.StakeReturned)
			return
		}
		log.L(ctx).Infof("Re-placing stake lock for condition %s (ledger=%s stakeholder=%s)",
			lock.Condition, lock.Ledger, lock.Stakeholder)
		txRef, err := cm.submitStakeIntent(ctx, vdapi.IntentLockStake, lock)
		if err != nil {
			log.L(ctx).Errorf("Stake repair for condition %s failed (will retry): %s", lock.Condition, err)
			return
		}
		cm.recordLockResult(ctx, lock, txRef, vdapi.StakeLocked)
	}()
}
