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
	"math/big"

	"github.com/google/uuid"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"gorm.io/gorm/clause"

	"github.com/veridict-io/veridict/internal/msgs"
	"github.com/veridict-io/veridict/pkg/log"
	"github.com/veridict-io/veridict/pkg/persistence"
	"github.com/veridict-io/veridict/pkg/vdapi"
	"github.com/veridict-io/veridict/pkg/vdtypes"
)

// Execute plans the full disbursement for a condition inside the caller's
// transaction. The strategy produces every leg the condition will ever pay
// or return, conservation is enforced over the result, and the rows land
// with conflict-do-nothing on their identity key - so a replayed verdict, a
// crash-recovery re-plan or a dispute ruling that restores the same outcome
// all converge on the same set of legs. No funds move here: dispatch starts
// after the transaction commits.
func (sm *settlementManager) Execute(ctx context.Context, dbTX persistence.DBTX, cond *vdapi.Condition, verdict *vdapi.Verdict) error {
	strategy := strategyFor(cond.ConditionType.V())
	if strategy == nil {
		return i18n.NewError(ctx, msgs.MsgSettleNoStrategy, cond.ConditionType)
	}
	locks, err := sm.lockedStakes(ctx, dbTX, *cond.ID)
	if err != nil {
		return err
	}
	planned, err := strategy(ctx, cond, verdict, locks)
	if err != nil {
		return err
	}
	return sm.applyPlan(ctx, dbTX, cond, planned, stakeTotals(locks))
}

// Refund returns what remains to the stakeholders when a condition dies
// without fully firing. Locks that never reached their ledger close off
// directly - there is nothing to move back for them. For the rest the
// refund is the remainder: escrow minus whatever already went out (or is
// still going out) through dispatched legs, split pro-rata by stake per
// token.
func (sm *settlementManager) Refund(ctx context.Context, dbTX persistence.DBTX, cond *vdapi.Condition) error {
	locks, err := sm.lockedStakes(ctx, dbTX, *cond.ID)
	if err != nil {
		return err
	}
	placed := make([]*vdapi.StakeLock, 0, len(locks))
	for _, lock := range locks {
		if lock.TxRef == "" {
			if err := closeLock(ctx, dbTX, lock, vdapi.StakeReturned); err != nil {
				return err
			}
			continue
		}
		placed = append(placed, lock)
	}

	existing, err := sm.conditionLegs(ctx, dbTX, *cond.ID)
	if err != nil {
		return err
	}
	dispatched := map[string]*big.Int{}
	for _, leg := range existing {
		if leg.Status.V() != vdapi.ExecutionPending {
			addAmount(dispatched, leg.Token, leg.Amount.Int())
		}
	}

	var refunds []*vdapi.ExecutionRecord
	for _, token := range lockTokens(placed) {
		tokenLocks := locksForToken(placed, token)
		remainder := sumLocks(tokenLocks)
		if out := dispatched[token]; out != nil {
			remainder.Sub(remainder, out)
		}
		if remainder.Sign() > 0 {
			refunds = append(refunds, returnLegs(*cond.ID, tokenLocks, remainder)...)
		}
	}
	return sm.applyPlan(ctx, dbTX, cond, refunds, stakeTotals(placed))
}

// applyPlan reconciles the planned legs with what is already recorded and
// enforces conservation before anything lands. The check runs over the
// union: the planned legs plus any previously-dispatched leg the plan no
// longer names - those have moved (or reserved) funds and always stay. Per
// token the union must account for the locked stakes exactly; any mismatch
// aborts the whole transition for audit and nothing is dispatched. Pending
// legs the plan abandons are deleted - a plan is provisional until dispatch
// moves money for it.
func (sm *settlementManager) applyPlan(ctx context.Context, dbTX persistence.DBTX, cond *vdapi.Condition, planned []*vdapi.ExecutionRecord, stakes map[string]*big.Int) error {
	planned = mergeLegs(planned)

	existing, err := sm.conditionLegs(ctx, dbTX, *cond.ID)
	if err != nil {
		return err
	}
	inPlan := make(map[string]bool, len(planned))
	totals := map[string]*big.Int{}
	for _, leg := range planned {
		inPlan[legKey(leg)] = true
		addAmount(totals, leg.Token, leg.Amount.Int())
	}
	var superseded []uuid.UUID
	for _, leg := range existing {
		if inPlan[legKey(leg)] {
			continue
		}
		if leg.Status.V() == vdapi.ExecutionPending {
			superseded = append(superseded, leg.ID)
			continue
		}
		addAmount(totals, leg.Token, leg.Amount.Int())
	}

	for token, staked := range stakes {
		total := totals[token]
		if total == nil {
			total = new(big.Int)
		}
		if total.Cmp(staked) != 0 {
			return sm.conservationViolation(ctx, cond, token, staked, total)
		}
	}
	for token, total := range totals {
		if stakes[token] == nil && total.Sign() != 0 {
			return sm.conservationViolation(ctx, cond, token, new(big.Int), total)
		}
	}

	if len(superseded) > 0 {
		err := dbTX.DB().WithContext(ctx).
			Where("id IN (?)", superseded).
			Where("status = ?", vdapi.ExecutionPending.Enum()).
			Delete(&vdapi.ExecutionRecord{}).
			Error
		if err != nil {
			return err
		}
	}

	if len(planned) > 0 {
		now := vdtypes.TimestampNow()
		for _, leg := range planned {
			leg.ID = uuid.New()
			leg.Status = vdapi.ExecutionPending.Enum()
			leg.Created = now
			leg.Updated = now
		}
		err := dbTX.DB().WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns: []clause.Column{
					{Name: "condition"}, {Name: "ledger"}, {Name: "beneficiary"},
					{Name: "token"}, {Name: "direction"}, {Name: "milestone"},
				},
				DoNothing: true,
			}).
			Create(planned).
			Error
		if err != nil {
			return err
		}
	}

	afterCommit(ctx, dbTX, func(ctx context.Context) {
		sm.RecheckNow()
	})
	return nil
}

func (sm *settlementManager) conservationViolation(ctx context.Context, cond *vdapi.Condition, token string, staked, planned *big.Int) error {
	err := i18n.NewError(ctx, msgs.MsgSettleConservationViolation, cond.ID, token, staked, planned)
	log.L(ctx).Error(err.Error())
	return err
}

// mergeLegs collapses planned legs that share an identity key into one,
// summing the amounts. Strategies can legitimately emit the same key twice
// (two stake entries for one address, say) but the table key is unique.
func mergeLegs(planned []*vdapi.ExecutionRecord) []*vdapi.ExecutionRecord {
	byKey := map[string]*vdapi.ExecutionRecord{}
	var merged []*vdapi.ExecutionRecord
	for _, leg := range planned {
		key := legKey(leg)
		if prior := byKey[key]; prior != nil {
			prior.Amount = vdtypes.WrapBigInt(new(big.Int).Add(prior.Amount.Int(), leg.Amount.Int()))
			continue
		}
		byKey[key] = leg
		merged = append(merged, leg)
	}
	return merged
}

// legKey is the leg's identity within its condition, matching the table's
// unique index.
func legKey(leg *vdapi.ExecutionRecord) string {
	return fmt.Sprintf("%s|%s|%s|%s|%d", leg.Ledger, leg.Beneficiary, leg.Token, leg.Direction, leg.Milestone)
}

func stakeTotals(locks []*vdapi.StakeLock) map[string]*big.Int {
	totals := map[string]*big.Int{}
	for _, lock := range locks {
		addAmount(totals, lock.Token, lock.Amount.Int())
	}
	return totals
}

func addAmount(totals map[string]*big.Int, token string, amount *big.Int) {
	if totals[token] == nil {
		totals[token] = new(big.Int)
	}
	totals[token].Add(totals[token], amount)
}

func (sm *settlementManager) lockedStakes(ctx context.Context, dbTX persistence.DBTX, condID uuid.UUID) ([]*vdapi.StakeLock, error) {
	var locks []*vdapi.StakeLock
	err := dbTX.DB().WithContext(ctx).
		Where("condition = ?", condID).
		Where("status = ?", vdapi.StakeLocked.Enum()).
		Order("stakeholder, token").
		Find(&locks).
		Error
	return locks, err
}

func (sm *settlementManager) conditionLegs(ctx context.Context, dbTX persistence.DBTX, condID uuid.UUID) ([]*vdapi.ExecutionRecord, error) {
	var legs []*vdapi.ExecutionRecord
	err := dbTX.DB().WithContext(ctx).
		Where("condition = ?", condID).
		Order("created, id").
		Find(&legs).
		Error
	return legs, err
}

func (sm *settlementManager) getLeg(ctx context.Context, dbTX persistence.DBTX, id uuid.UUID) (*vdapi.ExecutionRecord, error) {
	var legs []*vdapi.ExecutionRecord
	err := dbTX.DB().WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&legs).
		Error
	if err != nil || len(legs) == 0 {
		return nil, err
	}
	return legs[0], nil
}

// closeLock marks a stake lock with a terminal status without planning any
// leg for it.
func closeLock(ctx context.Context, dbTX persistence.DBTX, lock *vdapi.StakeLock, status vdapi.StakeLockStatus) error {
	return dbTX.DB().WithContext(ctx).
		Model(&vdapi.StakeLock{}).
		Where("condition = ?", lock.Condition).
		Where("ledger = ?", lock.Ledger).
		Where("stakeholder = ?", lock.Stakeholder).
		Where("token = ?", lock.Token).
		Where("status = ?", vdapi.StakeLocked.Enum()).
		Updates(map[string]any{
			"status":  status.Enum(),
			"updated": vdtypes.TimestampNow(),
		}).
		Error
}
