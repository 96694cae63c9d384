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

package oraclemgr

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/uuid"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"gorm.io/gorm/clause"

	"github.com/veridict-io/veridict/internal/msgs"
	"github.com/veridict-io/veridict/pkg/log"
	"github.com/veridict-io/veridict/pkg/persistence"
	"github.com/veridict-io/veridict/pkg/vdapi"
	"github.com/veridict-io/veridict/pkg/vdtypes"
)

// Evaluate re-runs consensus evaluation in its own transaction (see docs in
// components package).
func (om *oracleManager) Evaluate(ctx context.Context, conditionID uuid.UUID, milestone int) (*vdapi.Verdict, error) {
	var verdict *vdapi.Verdict
	err := om.p.Transaction(ctx, func(ctx context.Context, dbTX persistence.DBTX) (err error) {
		cond, err := om.getCondition(ctx, dbTX, conditionID)
		if err != nil {
			return err
		}
		if cond.SourceLedger != om.nodeName {
			return i18n.NewError(ctx, msgs.MsgConditionNotSource, conditionID, cond.SourceLedger)
		}
		verdict, err = om.evaluateInTX(ctx, dbTX, cond, milestone)
		return err
	})
	if err != nil {
		return nil, err
	}
	return verdict, nil
}

// evaluateInTX evaluates the trigger criteria over the current attestation
// set, and reconciles any quorum verdict against the standing row - notifying
// the condition manager inside the same transaction so the status transition
// and the verdict land together.
func (om *oracleManager) evaluateInTX(ctx context.Context, dbTX persistence.DBTX, cond *vdapi.Condition, milestone int) (*vdapi.Verdict, error) {
	prg, hash, err := om.evaluator.compile(ctx, cond.TriggerCriteria)
	if err != nil {
		return nil, err
	}
	if cond.CriteriaHash == nil || !hash.Equals(cond.CriteriaHash) {
		return nil, i18n.NewError(ctx, msgs.MsgOracleCriteriaHashMismatch, cond.ID)
	}
	candidate, err := om.formVerdict(ctx, dbTX, cond, prg, hash, milestone)
	if err != nil || candidate == nil {
		return nil, err
	}
	return om.reconcileVerdict(ctx, dbTX, cond, candidate)
}

// formVerdict buckets the attestation set by evaluated outcome and forms a
// quorum verdict, or returns nil when quorum is not reached. Attestations the
// criteria cannot evaluate are skipped, not counted as responding - a
// misbehaving source cannot poison the set for everyone else.
func (om *oracleManager) formVerdict(ctx context.Context, dbTX persistence.DBTX, cond *vdapi.Condition, prg cel.Program, criteriaHash vdtypes.Bytes32, milestone int) (*vdapi.Verdict, error) {
	now := time.Now()

	// Time-locked conditions carry no attestations - the criteria runs
	// against the clock alone, and fires with full confidence
	if cond.ConditionType.V() == vdapi.ConditionTypeTimeLocked {
		outcome, err := om.evaluator.evalOutcome(ctx, prg, nil, vdtypes.TimestampNow(), now)
		if err != nil {
			return nil, err
		}
		if outcome != vdapi.OutcomeFired {
			return nil, nil // unlock time not reached yet
		}
		return &vdapi.Verdict{
			Condition:         *cond.ID,
			Milestone:         milestone,
			Outcome:           vdapi.OutcomeFired,
			Confidence:        100,
			AttestationDigest: attestationSetDigest(nil),
			CriteriaHash:      criteriaHash,
			Evaluated:         vdtypes.TimestampNow(),
		}, nil
	}

	var atts []*vdapi.Attestation
	err := dbTX.DB().WithContext(ctx).
		Where("condition = ?", cond.ID).
		Where("milestone = ?", milestone).
		Order("source").
		Find(&atts).
		Error
	if err != nil {
		return nil, err
	}

	buckets := map[string][]*vdapi.Attestation{}
	responding := 0
	for _, att := range atts {
		claim, err := claimMap(ctx, att.Claim)
		if err == nil {
			var outcome string
			outcome, err = om.evaluator.evalOutcome(ctx, prg, claim, att.Observed, now)
			if err == nil {
				responding++
				buckets[outcome] = append(buckets[outcome], att)
				continue
			}
		}
		log.L(ctx).Warnf("Skipping attestation %s from source '%s': %s", att.ID, att.Source, err)
	}
	if responding == 0 || responding < cond.MinSources {
		return nil, nil
	}

	// largest bucket wins - ties break to the lexically smaller outcome so
	// repeated evaluation of the same set is deterministic
	var outcome string
	agreeing := 0
	for o, b := range buckets {
		if len(b) > agreeing || (len(b) == agreeing && (outcome == "" || o < outcome)) {
			outcome, agreeing = o, len(b)
		}
	}
	confidence := float64(agreeing) / float64(responding) * 100
	if confidence < cond.ConsensusThreshold {
		log.L(ctx).Debugf("No quorum for condition %s milestone %d: %d/%d agree on '%s' (%.2f%% < %.2f%%)",
			cond.ID, milestone, agreeing, responding, outcome, confidence, cond.ConsensusThreshold)
		return nil, nil
	}
	return &vdapi.Verdict{
		Condition:         *cond.ID,
		Milestone:         milestone,
		Outcome:           outcome,
		Confidence:        confidence,
		Agreeing:          agreeing,
		Responding:        responding,
		AttestationDigest: attestationSetDigest(buckets[outcome]),
		CriteriaHash:      criteriaHash,
		Evaluated:         vdtypes.TimestampNow(),
	}, nil
}

// reconcileVerdict decides whether the candidate replaces the standing
// verdict row, and whether the condition manager hears about it. A verdict is
// only immutable once something has acted on it - a status transition, or a
// milestone tranche release - and from there only the dispute supersede rule
// can move it.
func (om *oracleManager) reconcileVerdict(ctx context.Context, dbTX persistence.DBTX, cond *vdapi.Condition, candidate *vdapi.Verdict) (*vdapi.Verdict, error) {
	var existing []*vdapi.Verdict
	err := dbTX.DB().WithContext(ctx).
		Where("condition = ?", candidate.Condition).
		Where("milestone = ?", candidate.Milestone).
		Limit(1).
		Find(&existing).
		Error
	if err != nil {
		return nil, err
	}

	if len(existing) == 0 {
		ins := dbTX.DB().WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(candidate)
		if ins.Error != nil {
			return nil, ins.Error
		}
		if ins.RowsAffected == 0 {
			// lost a race to a parallel evaluation - that one notified
			return candidate, nil
		}
		return candidate, om.conditions.HandleVerdict(ctx, dbTX, candidate)
	}

	standing := existing[0]
	identical := standing.AttestationDigest.Equals(&candidate.AttestationDigest) && standing.Outcome == candidate.Outcome
	status := cond.Status.V()
	consumed := status != vdapi.ConditionStatusActive || cond.MilestonesReleased > candidate.Milestone

	switch {
	case identical:
		if status == vdapi.ConditionStatusDisputed {
			// re-attestation re-formed the standing verdict - consensus confirmed
			return standing, om.conditions.HandleVerdict(ctx, dbTX, standing)
		}
		return standing, nil // consensus replay

	case !consumed:
		// nothing has acted on the standing verdict - the fresh evaluation wins
		if err := om.replaceVerdict(ctx, dbTX, candidate); err != nil {
			return nil, err
		}
		return candidate, om.conditions.HandleVerdict(ctx, dbTX, candidate)

	case status == vdapi.ConditionStatusDisputed:
		if candidate.Agreeing > standing.Agreeing {
			// a strictly larger agreeing set supersedes a disputed verdict
			if err := om.replaceVerdict(ctx, dbTX, candidate); err != nil {
				return nil, err
			}
			return candidate, om.conditions.HandleVerdict(ctx, dbTX, candidate)
		}
		log.L(ctx).Debugf("Verdict for disputed condition %s does not supersede (agreeing %d <= %d)",
			candidate.Condition, candidate.Agreeing, standing.Agreeing)
		return standing, nil

	case status == vdapi.ConditionStatusTriggered || status == vdapi.ConditionStatusActive:
		// conflicts with a verdict already acted on, before execution has
		// completed - the condition manager routes this to Disputed
		log.L(ctx).Warnf("Conflicting verdict for condition %s milestone %d ('%s' digest %s, standing '%s' digest %s)",
			candidate.Condition, candidate.Milestone, candidate.Outcome, candidate.AttestationDigest,
			standing.Outcome, standing.AttestationDigest)
		return standing, om.conditions.HandleVerdict(ctx, dbTX, candidate)

	default:
		// execution completed (or the condition is otherwise terminal) - too
		// late for the conflict to change anything
		log.L(ctx).Warnf("Ignoring conflicting verdict for %s condition %s", status, candidate.Condition)
		return standing, nil
	}
}

func (om *oracleManager) replaceVerdict(ctx context.Context, dbTX persistence.DBTX, v *vdapi.Verdict) error {
	return dbTX.DB().WithContext(ctx).
		Model(&vdapi.Verdict{}).
		Where("condition = ?", v.Condition).
		Where("milestone = ?", v.Milestone).
		Updates(map[string]any{
			"outcome":            v.Outcome,
			"confidence":         v.Confidence,
			"agreeing":           v.Agreeing,
			"responding":         v.Responding,
			"attestation_digest": v.AttestationDigest,
			"criteria_hash":      v.CriteriaHash,
			"evaluated":          v.Evaluated,
		}).
		Error
}

// attestationSetDigest canonically identifies an agreeing set - the same
// sources making the same claims always produce the same digest, regardless
// of submission order or row identity.
func attestationSetDigest(atts []*vdapi.Attestation) vdtypes.Bytes32 {
	entries := make([]string, len(atts))
	for i, att := range atts {
		entries[i] = fmt.Sprintf("%s=%s", att.Source, vdtypes.Bytes32Keccak(att.Claim.BytesOrNull()))
	}
	sort.Strings(entries)
	return vdtypes.Bytes32Keccak([]byte(strings.Join(entries, "\n")))
}
