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

	"github.com/google/uuid"
	"github.com/hyperledger/firefly-common/pkg/i18n"

	"github.com/veridict-io/veridict/internal/msgs"
	"github.com/veridict-io/veridict/pkg/log"
	"github.com/veridict-io/veridict/pkg/persistence"
	"github.com/veridict-io/veridict/pkg/vdapi"
	"github.com/veridict-io/veridict/pkg/vdtypes"
)

// finalMilestone is the highest tranche any beneficiary is scoped to. Zero
// for every type other than milestone-based.
func finalMilestone(cond *vdapi.Condition) int {
	final := 0
	for _, b := range cond.Beneficiaries {
		if b.Milestone > final {
			final = b.Milestone
		}
	}
	return final
}

// See docs in components package
func (cm *conditionManager) HandleVerdict(ctx context.Context, dbTX persistence.DBTX, verdict *vdapi.Verdict) error {
	cond, err := cm.requireCondition(ctx, dbTX, verdict.Condition)
	if err != nil {
		return err
	}
	if cond.SourceLedger != cm.nodeName {
		return i18n.NewError(ctx, msgs.MsgConditionNotSource, verdict.Condition, cond.SourceLedger)
	}
	if cond.CriteriaHash == nil || !cond.CriteriaHash.Equals(&verdict.CriteriaHash) {
		return i18n.NewError(ctx, msgs.MsgConditionVerdictHashMismatch, verdict.Condition)
	}
	switch cond.Status.V() {
	case vdapi.ConditionStatusActive:
		return cm.verdictWhileActive(ctx, dbTX, cond, verdict)
	case vdapi.ConditionStatusTriggered:
		// an identical digest is a replay of the standing verdict
		if cond.SettlementProof != nil && cond.SettlementProof.Equals(&verdict.AttestationDigest) {
			return nil
		}
		return cm.openDispute(ctx, dbTX, cond, verdict)
	case vdapi.ConditionStatusDisputed:
		return cm.verdictWhileDisputed(ctx, dbTX, cond, verdict)
	default:
		log.L(ctx).Warnf("Verdict for condition %s ignored in terminal status %s", verdict.Condition, cond.Status)
		return nil
	}
}

func (cm *conditionManager) verdictWhileActive(ctx context.Context, dbTX persistence.DBTX, cond *vdapi.Condition, verdict *vdapi.Verdict) error {
	if verdict.Milestone < cond.MilestonesReleased {
		// conflicts with a tranche already released under an earlier digest
		return cm.openDispute(ctx, dbTX, cond, verdict)
	}
	if !verdict.Fired() {
		log.L(ctx).Debugf("Condition %s stays active - verdict not fired (confidence=%.2f)", cond.ID, verdict.Confidence)
		return nil
	}
	if cond.ConditionType.V() == vdapi.ConditionTypeMilestoneBased {
		if verdict.Milestone > cond.MilestonesReleased {
			// tranches release strictly in order - the scan re-evaluates the
			// next pending milestone when its turn comes
			log.L(ctx).Infof("Condition %s holds milestone %d verdict until %d releases",
				cond.ID, verdict.Milestone, cond.MilestonesReleased)
			return nil
		}
		if verdict.Milestone < finalMilestone(cond) {
			return cm.releaseMilestone(ctx, dbTX, cond, verdict)
		}
	}
	return cm.triggerCondition(ctx, dbTX, cond, verdict)
}

// triggerCondition fires the condition - the attestation set digest becomes
// the settlement proof and the full plan is laid down in the same
// transaction. Dispatch happens after commit.
func (cm *conditionManager) triggerCondition(ctx context.Context, dbTX persistence.DBTX, cond *vdapi.Condition, verdict *vdapi.Verdict) error {
	proof := verdict.AttestationDigest
	updates := map[string]any{"settlement_proof": &proof}
	cond.SettlementProof = &proof
	if cond.ConditionType.V() == vdapi.ConditionTypeMilestoneBased {
		updates["milestones_released"] = verdict.Milestone + 1
		cond.MilestonesReleased = verdict.Milestone + 1
	}
	if err := cm.applyTransition(ctx, dbTX, cond, vdapi.ConditionStatusTriggered, updates); err != nil {
		return err
	}
	return cm.settlement.Execute(ctx, dbTX, cond, verdict)
}

// releaseMilestone plans one tranche and advances the released count without
// leaving Active. The update carries its own optimistic guard on the count,
// so two verdicts for the same tranche cannot both release it.
func (cm *conditionManager) releaseMilestone(ctx context.Context, dbTX persistence.DBTX, cond *vdapi.Condition, verdict *vdapi.Verdict) error {
	now := vdtypes.TimestampNow()
	res := dbTX.DB().WithContext(ctx).
		Model(&vdapi.Condition{}).
		Where("id = ?", cond.ID).
		Where("status = ?", vdapi.ConditionStatusActive.Enum()).
		Where("milestones_released = ?", verdict.Milestone).
		Updates(map[string]any{
			"milestones_released": verdict.Milestone + 1,
			"updated":             now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return i18n.NewError(ctx, msgs.MsgConditionTransitionConflict, cond.ID, vdapi.ConditionStatusActive)
	}
	cond.MilestonesReleased = verdict.Milestone + 1
	cond.Updated = now
	log.L(ctx).Infof("Condition %s released milestone %d (%d of %d tranches)",
		cond.ID, verdict.Milestone, cond.MilestonesReleased, finalMilestone(cond)+1)
	if err := cm.settlement.Execute(ctx, dbTX, cond, verdict); err != nil {
		return err
	}
	if err := cm.broadcastStatus(ctx, dbTX, cond); err != nil {
		return err
	}
	cm.finalizeUpdate(ctx, dbTX, cond)
	return nil
}

// openDispute freezes the condition on a conflicting verdict. The digest
// first accepted comes from the settlement proof, or from the standing
// verdict row for a milestone tranche (reconciliation leaves that row
// untouched on a conflict).
func (cm *conditionManager) openDispute(ctx context.Context, dbTX persistence.DBTX, cond *vdapi.Condition, verdict *vdapi.Verdict) error {
	var first vdtypes.Bytes32
	if cond.SettlementProof != nil {
		first = *cond.SettlementProof
	} else {
		var rows []*vdapi.Verdict
		err := dbTX.DB().WithContext(ctx).
			Where("condition = ?", cond.ID).
			Where("milestone = ?", verdict.Milestone).
			Limit(1).
			Find(&rows).
			Error
		if err != nil {
			return err
		}
		if len(rows) > 0 {
			first = rows[0].AttestationDigest
		}
	}
	dispute := &vdapi.Dispute{
		ID:             uuid.New(),
		Condition:      *cond.ID,
		Milestone:      verdict.Milestone,
		FirstDigest:    first,
		ConflictDigest: verdict.AttestationDigest,
		Opened:         vdtypes.TimestampNow(),
	}
	if err := dbTX.DB().WithContext(ctx).Create(dispute).Error; err != nil {
		return err
	}
	log.L(ctx).Warnf("Condition %s disputed - digest %s conflicts with accepted %s (milestone=%d)",
		cond.ID, verdict.AttestationDigest, first, verdict.Milestone)
	return cm.applyTransition(ctx, dbTX, cond, vdapi.ConditionStatusDisputed, nil)
}

// verdictWhileDisputed resolves by re-attestation. The oracle only notifies
// out of Disputed when the standing verdict is re-confirmed, or superseded by
// a strictly larger agreeing set - either way the supplied verdict is the
// corrected truth and the dispute closes on it.
func (cm *conditionManager) verdictWhileDisputed(ctx context.Context, dbTX persistence.DBTX, cond *vdapi.Condition, verdict *vdapi.Verdict) error {
	if verdict.Fired() {
		if cond.SettlementProof != nil {
			// the trigger stands - resume execution under the corrected digest
			proof := verdict.AttestationDigest
			cond.SettlementProof = &proof
			if err := cm.applyTransition(ctx, dbTX, cond, vdapi.ConditionStatusTriggered, map[string]any{
				"settlement_proof": &proof,
			}); err != nil {
				return err
			}
		} else {
			// a milestone tranche dispute - the corrected release stands
			if err := cm.applyTransition(ctx, dbTX, cond, vdapi.ConditionStatusActive, nil); err != nil {
				return err
			}
		}
		// replan - leg keys make this idempotent, and any undispatched legs
		// a corrected outcome dropped are superseded by the executor
		if err := cm.settlement.Execute(ctx, dbTX, cond, verdict); err != nil {
			return err
		}
	} else {
		// the corrected verdict says the trigger never happened - back to
		// Active awaiting further attestations or expiry
		updates := map[string]any{}
		if cond.SettlementProof != nil {
			updates["settlement_proof"] = nil
			cond.SettlementProof = nil
		}
		if cond.ConditionType.V() == vdapi.ConditionTypeMilestoneBased && cond.MilestonesReleased > verdict.Milestone {
			updates["milestones_released"] = verdict.Milestone
			cond.MilestonesReleased = verdict.Milestone
		}
		if err := cm.applyTransition(ctx, dbTX, cond, vdapi.ConditionStatusActive, updates); err != nil {
			return err
		}
	}
	return cm.resolveDisputeRows(ctx, dbTX, cond, verdict.Milestone, "re-attestation")
}

// resolveDisputeRows closes the open dispute audit rows for one milestone.
func (cm *conditionManager) resolveDisputeRows(ctx context.Context, dbTX persistence.DBTX, cond *vdapi.Condition, milestone int, resolution string) error {
	return dbTX.DB().WithContext(ctx).
		Model(&vdapi.Dispute{}).
		Where("condition = ?", cond.ID).
		Where("milestone = ?", milestone).
		Where("resolved IS NULL").
		Updates(map[string]any{
			"resolved":   vdtypes.TimestampNow(),
			"resolution": resolution,
		}).
		Error
}

// See docs in components package
func (cm *conditionManager) CompleteExecution(ctx context.Context, dbTX persistence.DBTX, result *vdapi.ExecutionResult) error {
	if !result.Complete {
		log.L(ctx).Debugf("Execution progress for condition %s (%d legs)", result.Condition, len(result.Legs))
		return nil
	}
	cond, err := cm.requireCondition(ctx, dbTX, result.Condition)
	if err != nil {
		return err
	}
	if cond.Status.V() == vdapi.ConditionStatusExecuted {
		return nil // replay
	}
	return cm.applyTransition(ctx, dbTX, cond, vdapi.ConditionStatusExecuted, nil)
}

// See docs in components package
func (cm *conditionManager) ResolveDispute(ctx context.Context, ruling *vdapi.GovernanceRuling) (*vdapi.Condition, error) {
	rulingV, err := ruling.Ruling.Validate()
	if err != nil {
		return nil, i18n.NewError(ctx, msgs.MsgConditionRulingInvalid, vdapi.DisputeRuling("").Options())
	}
	now := vdtypes.TimestampNow()
	if ruling.Effective != nil && *ruling.Effective > now {
		return nil, i18n.NewError(ctx, msgs.MsgConditionRulingNotEffective, ruling.Condition, ruling.Effective.Time())
	}
	target := vdapi.ConditionStatusTriggered
	if rulingV == vdapi.RulingReject {
		target = vdapi.ConditionStatusExpired
	}
	var cond *vdapi.Condition
	err = cm.p.Transaction(ctx, func(ctx context.Context, dbTX persistence.DBTX) error {
		var err error
		cond, err = cm.requireCondition(ctx, dbTX, ruling.Condition)
		if err != nil {
			return err
		}
		if cond.SourceLedger != cm.nodeName {
			return i18n.NewError(ctx, msgs.MsgConditionNotSource, ruling.Condition, cond.SourceLedger)
		}
		if cond.Status.V() != vdapi.ConditionStatusDisputed {
			return i18n.NewError(ctx, msgs.MsgConditionInvalidTransition, cond.Status.V(), target, cond.ID)
		}
		switch rulingV {
		case vdapi.RulingUphold:
			if cond.SettlementProof != nil {
				if err := cm.applyTransition(ctx, dbTX, cond, vdapi.ConditionStatusTriggered, nil); err != nil {
					return err
				}
			} else {
				// milestone tranche dispute - the release stands, execution
				// of the planned tranche resumes from Active
				if err := cm.applyTransition(ctx, dbTX, cond, vdapi.ConditionStatusActive, nil); err != nil {
					return err
				}
			}
		case vdapi.RulingReject:
			if err := cm.applyTransition(ctx, dbTX, cond, vdapi.ConditionStatusExpired, nil); err != nil {
				return err
			}
			if err := cm.settlement.Refund(ctx, dbTX, cond); err != nil {
				return err
			}
		}
		resolution := fmt.Sprintf("ruling:%s", rulingV)
		if ruling.Reason != "" {
			resolution = fmt.Sprintf("%s (%s)", resolution, ruling.Reason)
		}
		return cm.resolveDisputeRows(ctx, dbTX, cond, ruling.Milestone, resolution)
	})
	if err != nil {
		return nil, err
	}
	// anything the dispute held back resumes on the next executor pass
	cm.settlement.RecheckNow()
	return cond, nil
}
