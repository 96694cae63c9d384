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
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hyperledger/firefly-common/pkg/i18n"

	"github.com/veridict-io/veridict/internal/components"
	"github.com/veridict-io/veridict/internal/msgs"
	"github.com/veridict-io/veridict/pkg/log"
	"github.com/veridict-io/veridict/pkg/persistence"
	"github.com/veridict-io/veridict/pkg/vdapi"
	"github.com/veridict-io/veridict/pkg/vdtypes"
)

// See docs in components package
func (cm *conditionManager) CreateCondition(ctx context.Context, input *vdapi.ConditionInput) (*vdapi.Condition, error) {
	condType, err := cm.validateInput(ctx, input)
	if err != nil {
		return nil, err
	}
	minSources, threshold, err := cm.resolveQuorum(ctx, condType, input)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	now := vdtypes.TimestampNow()
	criteriaHash := vdtypes.Bytes32Keccak([]byte(input.TriggerCriteria))
	cond := &vdapi.Condition{
		ID:                 &id,
		ConditionBase:      input.ConditionBase,
		SourceLedger:       cm.nodeName,
		CriteriaHash:       &criteriaHash,
		MinSources:         minSources,
		ConsensusThreshold: threshold,
		Status:             vdapi.ConditionStatusActive.Enum(),
		Created:            now,
		Updated:            now,
	}
	globalHash := vdapi.ConditionGlobalHash(cond)
	cond.GlobalHash = &globalHash
	locks := buildStakeLocks(cond, now)

	// Admission, the condition row, its lock rows and the replication
	// messages commit or roll back as one - there is no window where a
	// condition exists without its volume reservation or its outbox entries.
	err = cm.p.Transaction(ctx, func(ctx context.Context, dbTX persistence.DBTX) error {
		if err := cm.governor.CheckAdmission(ctx, dbTX, cond); err != nil {
			return err
		}
		if err := dbTX.DB().WithContext(ctx).Create(cond).Error; err != nil {
			return err
		}
		if err := dbTX.DB().WithContext(ctx).Create(locks).Error; err != nil {
			return err
		}
		if err := cm.replicateCreate(ctx, dbTX, cond); err != nil {
			return err
		}
		cm.finalizeUpdate(ctx, dbTX, cond)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := cm.placeStakeLocks(ctx, cond, locks); err != nil {
		return nil, err
	}
	log.L(ctx).Infof("Condition %s created by %s (type=%s, ledgers=%v)", id, cond.Creator, condType, cond.ExecutionLedgers)
	return cond, nil
}

func (cm *conditionManager) validateInput(ctx context.Context, input *vdapi.ConditionInput) (vdapi.ConditionType, error) {
	condType, err := input.ConditionType.Validate()
	if err != nil {
		return "", i18n.WrapError(ctx, err, msgs.MsgConditionBadType, input.ConditionType)
	}
	if input.Creator == "" {
		return "", i18n.NewError(ctx, msgs.MsgConditionCreatorMissing)
	}
	if len(input.Stakeholders) == 0 {
		return "", i18n.NewError(ctx, msgs.MsgConditionNoStakeholders)
	}
	if len(input.Beneficiaries) == 0 {
		return "", i18n.NewError(ctx, msgs.MsgConditionNoBeneficiaries)
	}
	now := vdtypes.TimestampNow()
	if input.ExpirationTime <= now {
		return "", i18n.NewError(ctx, msgs.MsgConditionBadExpiration)
	}
	if input.ExecutionDeadline != nil && *input.ExecutionDeadline < input.ExpirationTime {
		return "", i18n.NewError(ctx, msgs.MsgConditionBadDeadline)
	}
	if strings.TrimSpace(input.TriggerCriteria) == "" {
		return "", i18n.NewError(ctx, msgs.MsgConditionBadCriteria)
	}
	if err := cm.oracle.ValidateCriteria(ctx, condType, input.TriggerCriteria); err != nil {
		return "", err
	}

	inExecution := make(map[string]bool, len(input.ExecutionLedgers))
	for _, ledger := range input.ExecutionLedgers {
		inExecution[ledger] = true
		if ledger == cm.nodeName {
			continue
		}
		// a remote execution ledger is reachable through a relay peer, or
		// directly through a locally configured adapter
		if !cm.relay.KnownPeer(ledger) && !cm.ledgers.HasAdapter(ledger) {
			return "", i18n.NewError(ctx, msgs.MsgConditionUnknownLedger, ledger)
		}
	}
	seenStakes := map[string]bool{}
	for _, s := range input.Stakeholders {
		if !inExecution[s.Ledger] {
			return "", i18n.NewError(ctx, msgs.MsgConditionUnknownLedger, s.Ledger)
		}
		// stake locking is synchronous, which needs an adapter on this node
		if !cm.ledgers.HasAdapter(s.Ledger) {
			return "", i18n.NewError(ctx, msgs.MsgConditionUnknownLedger, s.Ledger)
		}
		if s.Amount == nil || s.Amount.Sign() <= 0 {
			return "", i18n.NewError(ctx, msgs.MsgConditionBadAmount)
		}
		key := fmt.Sprintf("%s/%s/%s", s.Ledger, s.Address, s.Token)
		if seenStakes[key] {
			return "", i18n.NewError(ctx, msgs.MsgConditionDuplicateStake, s.Ledger, s.Address, s.Token)
		}
		seenStakes[key] = true
	}
	for _, b := range input.Beneficiaries {
		if !inExecution[b.Ledger] {
			return "", i18n.NewError(ctx, msgs.MsgConditionUnknownLedger, b.Ledger)
		}
		if b.MaxAmount == nil || b.MaxAmount.Sign() <= 0 {
			return "", i18n.NewError(ctx, msgs.MsgConditionBadAmount)
		}
	}

	switch condType {
	case vdapi.ConditionTypePredictionMarket:
		outcomes := map[string]bool{}
		for _, s := range input.Stakeholders {
			if s.Outcome == "" {
				return "", i18n.NewError(ctx, msgs.MsgConditionBadOutcomes)
			}
			outcomes[s.Outcome] = true
		}
		for _, b := range input.Beneficiaries {
			if b.Outcome == "" {
				return "", i18n.NewError(ctx, msgs.MsgConditionBadOutcomes)
			}
		}
		if len(outcomes) < 2 {
			return "", i18n.NewError(ctx, msgs.MsgConditionBadOutcomes)
		}
	case vdapi.ConditionTypeMilestoneBased:
		maxMilestone := 0
		present := map[int]bool{}
		for _, b := range input.Beneficiaries {
			if b.Milestone < 0 {
				return "", i18n.NewError(ctx, msgs.MsgConditionBadMilestones, maxMilestone)
			}
			present[b.Milestone] = true
			if b.Milestone > maxMilestone {
				maxMilestone = b.Milestone
			}
		}
		for m := 0; m <= maxMilestone; m++ {
			if !present[m] {
				return "", i18n.NewError(ctx, msgs.MsgConditionBadMilestones, maxMilestone)
			}
		}
	}
	return condType, nil
}

// resolveQuorum applies the precedence input -> governance (per-type row
// wins over global) -> node defaults. Time-locked conditions take no
// attestations, so min_sources pins to zero whatever was asked for.
func (cm *conditionManager) resolveQuorum(ctx context.Context, condType vdapi.ConditionType, input *vdapi.ConditionInput) (int, float64, error) {
	minSources, threshold := cm.oracle.QuorumDefaults()
	params, err := cm.governor.EffectiveParams(ctx, condType)
	if err != nil {
		return 0, 0, err
	}
	if params != nil {
		if params.MinSources != nil {
			minSources = *params.MinSources
		}
		if params.ConsensusThreshold != nil {
			threshold = *params.ConsensusThreshold
		}
	}
	if input.MinSources != nil {
		minSources = *input.MinSources
	}
	if input.ConsensusThreshold != nil {
		threshold = *input.ConsensusThreshold
	}
	if condType == vdapi.ConditionTypeTimeLocked {
		return 0, threshold, nil
	}
	if minSources < 1 || threshold < 50 || threshold > 100 {
		return 0, 0, i18n.NewError(ctx, msgs.MsgConditionBadQuorum, threshold, minSources)
	}
	return minSources, threshold, nil
}

// replicateCreate queues the condition to every remote execution ledger. The
// relay outbox rides the creation transaction, so replication is queued if
// and only if the condition exists.
func (cm *conditionManager) replicateCreate(ctx context.Context, dbTX persistence.DBTX, cond *vdapi.Condition) error {
	body := vdtypes.JSONString(&vdapi.ConditionCreateV1{Version: vdapi.RelayPayloadV1, Condition: cond})
	for _, ledger := range remoteLedgers(cond, cm.nodeName) {
		if _, err := cm.relay.Send(ctx, dbTX, &components.RelaySend{
			Channel:     *cond.ID,
			MessageType: vdapi.RMTConditionCreate,
			Destination: ledger,
			Payload:     body,
		}); err != nil {
			return err
		}
	}
	return nil
}

// buildStakeLocks makes one lock row per stakeholder. The row key doubles as
// the ledger intent idempotency key, so re-placing after a crash cannot lock
// the same stake twice.
func buildStakeLocks(cond *vdapi.Condition, now vdtypes.Timestamp) []*vdapi.StakeLock {
	locks := make([]*vdapi.StakeLock, len(cond.Stakeholders))
	for i, s := range cond.Stakeholders {
		locks[i] = &vdapi.StakeLock{
			Condition:   *cond.ID,
			Ledger:      s.Ledger,
			Stakeholder: s.Address,
			Token:       s.Token,
			Amount:      s.Amount,
			Outcome:     s.Outcome,
			Status:      vdapi.StakeLocked.Enum(),
			Created:     now,
			Updated:     now,
		}
	}
	return locks
}

func lockRef(intentType vdapi.LedgerIntentType, lock *vdapi.StakeLock) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", intentType, lock.Condition, lock.Ledger, lock.Stakeholder, lock.Token)
}

// placeStakeLocks submits one lock_stake intent per stakeholder and waits for
// finality on each, sequentially. On any failure, the locks already placed
// are returned and the condition is cancelled before the error goes back to
// the caller.
func (cm *conditionManager) placeStakeLocks(ctx context.Context, cond *vdapi.Condition, locks []*vdapi.StakeLock) error {
	for i, lock := range locks {
		txRef, err := cm.submitStakeIntent(ctx, vdapi.IntentLockStake, lock)
		if err != nil {
			err = i18n.WrapError(ctx, err, msgs.MsgConditionStakeLockFailed, cond.ID, lock.Ledger, lock.Stakeholder)
			cm.unwindCreation(ctx, cond, locks[:i])
			return err
		}
		cm.recordLockResult(ctx, lock, txRef, vdapi.StakeLocked)
	}
	return nil
}

// submitStakeIntent drives one stake intent to finality on its ledger.
func (cm *conditionManager) submitStakeIntent(ctx context.Context, intentType vdapi.LedgerIntentType, lock *vdapi.StakeLock) (string, error) {
	sub, err := cm.ledgers.SubmitAndTrack(ctx, cm.p.NOTX(), &vdapi.LedgerIntent{
		Type:      intentType.Enum(),
		Condition: lock.Condition,
		Ledger:    lock.Ledger,
		Address:   lock.Stakeholder,
		Token:     lock.Token,
		Amount:    lock.Amount,
		Ref:       lockRef(intentType, lock),
	})
	if err != nil {
		return "", err
	}
	final, err := cm.ledgers.WaitFinal(ctx, sub.ID)
	if err != nil {
		return "", err
	}
	if final.Status.V() != vdapi.SubmissionConfirmed {
		return "", i18n.NewError(ctx, msgs.MsgLedgerSubmitPermanent, lock.Ledger, final.Error)
	}
	return final.TxRef, nil
}

// recordLockResult stamps the transaction reference on the lock row. The
// funds moved regardless, so a failure here only logs - the repair scan
// re-derives the reference through the idempotent intent ref.
func (cm *conditionManager) recordLockResult(ctx context.Context, lock *vdapi.StakeLock, txRef string, status vdapi.StakeLockStatus) {
	lock.TxRef = txRef
	lock.Status = status.Enum()
	err := cm.p.DB().WithContext(ctx).
		Model(&vdapi.StakeLock{}).
		Where("condition = ?", lock.Condition).
		Where("ledger = ?", lock.Ledger).
		Where("stakeholder = ?", lock.Stakeholder).
		Where("token = ?", lock.Token).
		Updates(map[string]any{
			"tx_ref":  txRef,
			"status":  status.Enum(),
			"updated": vdtypes.TimestampNow(),
		}).
		Error
	if err != nil {
		log.L(ctx).Errorf("Stake lock %s placed but result not recorded (repair scan will recover): %s",
			lockRef(vdapi.IntentLockStake, lock), err)
	}
}

// unwindCreation returns every placed lock and cancels the condition,
// best-effort. A return that cannot be placed right now stays 'locked' with
// its tx_ref recorded, for governance to resolve.
func (cm *conditionManager) unwindCreation(ctx context.Context, cond *vdapi.Condition, placed []*vdapi.StakeLock) {
	for _, lock := range placed {
		txRef, err := cm.submitStakeIntent(ctx, vdapi.IntentReturnStake, lock)
		if err != nil {
			log.L(ctx).Errorf("Stake return failed unwinding condition %s (%s/%s/%s): %s",
				cond.ID, lock.Ledger, lock.Stakeholder, lock.Token, err)
			continue
		}
		cm.recordLockResult(ctx, lock, txRef, vdapi.StakeReturned)
	}
	err := cm.p.Transaction(ctx, func(ctx context.Context, dbTX persistence.DBTX) error {
		latest, err := cm.getCondition(ctx, dbTX, *cond.ID)
		if err != nil || latest == nil {
			return err
		}
		return cm.applyTransition(ctx, dbTX, latest, vdapi.ConditionStatusCancelled, nil)
	})
	if err != nil {
		log.L(ctx).Errorf("Condition %s not cancelled after lock failure (expiry will reap it): %s", cond.ID, err)
	}
}

// See docs in components package
func (cm *conditionManager) CancelCondition(ctx context.Context, id uuid.UUID, caller, reason string) (*vdapi.Condition, error) {
	var cond *vdapi.Condition
	err := cm.p.Transaction(ctx, func(ctx context.Context, dbTX persistence.DBTX) error {
		var err error
		cond, err = cm.requireCondition(ctx, dbTX, id)
		if err != nil {
			return err
		}
		if cond.SourceLedger != cm.nodeName {
			return i18n.NewError(ctx, msgs.MsgConditionNotSource, id, cond.SourceLedger)
		}
		if caller != cond.Creator && caller != vdapi.CallerGovernance {
			return i18n.NewError(ctx, msgs.MsgConditionCancelUnauthorized, id)
		}
		if cond.Status.V() != vdapi.ConditionStatusActive {
			return i18n.NewError(ctx, msgs.MsgConditionNotCancellable, id, cond.Status, false)
		}
		attested, err := cm.oracle.HasAttestations(ctx, dbTX, id)
		if err != nil {
			return err
		}
		if attested {
			return i18n.NewError(ctx, msgs.MsgConditionNotCancellable, id, cond.Status, true)
		}
		if err := cm.applyTransition(ctx, dbTX, cond, vdapi.ConditionStatusCancelled, nil); err != nil {
			return err
		}
		log.L(ctx).Infof("Condition %s cancelled by %s: %s", id, caller, reason)
		return cm.settlement.Refund(ctx, dbTX, cond)
	})
	if err != nil {
		return nil, err
	}
	return cond, nil
}
