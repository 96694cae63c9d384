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
	"math/big"
	"sort"

	"github.com/google/uuid"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/veridict-io/veridict/internal/msgs"
	"github.com/veridict-io/veridict/pkg/vdapi"
	"github.com/veridict-io/veridict/pkg/vdtypes"
)

// A distribution strategy turns the escrowed stake of a condition into the
// full set of planned legs - every payout and every return - satisfying
// per-token conservation exactly. Strategies are pure functions over the
// condition, the verdict and the locked stakes; they never touch the
// database, which is what makes the conservation check on their output
// meaningful.
type distributionStrategy func(ctx context.Context, cond *vdapi.Condition, verdict *vdapi.Verdict, locks []*vdapi.StakeLock) ([]*vdapi.ExecutionRecord, error)

func strategyFor(conditionType vdapi.ConditionType) distributionStrategy {
	switch conditionType {
	case vdapi.ConditionTypeSingleSided,
		vdapi.ConditionTypeMultiSided,
		vdapi.ConditionTypeTimeLocked,
		vdapi.ConditionTypeMilestoneBased:
		return capWeightedPayout
	case vdapi.ConditionTypePooled:
		return pooledPayout
	case vdapi.ConditionTypePredictionMarket:
		return predictionMarketPayout
	}
	return nil
}

// capWeightedPayout pays each beneficiary its cap in full when the pool
// covers the caps, returning the excess to stakeholders pro-rata by stake.
// When the pool falls short the pool is split pro-rata by cap weight
// instead - a share can never exceed its own cap, so the caps hold in both
// regimes. Milestones carry through from the beneficiary, which makes this
// the planner for milestone conditions too: every tranche is planned up
// front and the dispatch gate releases them as verdicts land.
func capWeightedPayout(ctx context.Context, cond *vdapi.Condition, verdict *vdapi.Verdict, locks []*vdapi.StakeLock) ([]*vdapi.ExecutionRecord, error) {
	var legs []*vdapi.ExecutionRecord
	for _, token := range lockTokens(locks) {
		tokenLocks := locksForToken(locks, token)
		pool := sumLocks(tokenLocks)

		var bens []*vdapi.Beneficiary
		sumCaps := new(big.Int)
		for _, b := range cond.Beneficiaries {
			if b.Token == token && b.MaxAmount != nil && b.MaxAmount.Sign() > 0 {
				bens = append(bens, b)
				sumCaps.Add(sumCaps, b.MaxAmount.Int())
			}
		}
		if len(bens) == 0 {
			// nobody is eligible for this token - all of it goes home
			legs = append(legs, returnLegs(*cond.ID, tokenLocks, pool)...)
			continue
		}

		if pool.Cmp(sumCaps) >= 0 {
			for _, b := range bens {
				legs = append(legs, payoutLeg(*cond.ID, b, b.MaxAmount.Int()))
			}
			excess := new(big.Int).Sub(pool, sumCaps)
			legs = append(legs, returnLegs(*cond.ID, tokenLocks, excess)...)
			continue
		}

		weights := make([]*big.Int, len(bens))
		for i, b := range bens {
			weights[i] = b.MaxAmount.Int()
		}
		for i, share := range apportion(pool, weights) {
			if share.Sign() > 0 {
				legs = append(legs, payoutLeg(*cond.ID, bens[i], share))
			}
		}
	}
	return legs, nil
}

// pooledPayout distributes each token's pool proportional to stake share:
// a beneficiary's weight is the total locked by the same address for the
// same token. A token nobody qualifies for returns to its stakeholders; if
// nothing qualifies anywhere the instrument selects no beneficiaries at
// all, which is an error rather than a quiet refund.
func pooledPayout(ctx context.Context, cond *vdapi.Condition, verdict *vdapi.Verdict, locks []*vdapi.StakeLock) ([]*vdapi.ExecutionRecord, error) {
	var legs []*vdapi.ExecutionRecord
	distributed := false
	for _, token := range lockTokens(locks) {
		tokenLocks := locksForToken(locks, token)
		pool := sumLocks(tokenLocks)

		var bens []*vdapi.Beneficiary
		var weights []*big.Int
		totalWeight := new(big.Int)
		for _, b := range cond.Beneficiaries {
			if b.Token != token {
				continue
			}
			w := stakeOfAddress(tokenLocks, b.Address)
			if w.Sign() > 0 {
				bens = append(bens, b)
				weights = append(weights, w)
				totalWeight.Add(totalWeight, w)
			}
		}
		if totalWeight.Sign() == 0 {
			legs = append(legs, returnLegs(*cond.ID, tokenLocks, pool)...)
			continue
		}

		distributed = true
		for i, share := range apportion(pool, weights) {
			if share.Sign() > 0 {
				legs = append(legs, payoutLeg(*cond.ID, bens[i], share))
			}
		}
	}
	if !distributed {
		return nil, i18n.NewError(ctx, msgs.MsgSettleOutcomeNoWinners, cond.ID)
	}
	return legs, nil
}

// predictionMarketPayout settles the book. Stakes committed to the verdict
// outcome return to their stakeholders, and the losing pot is split between
// the winning beneficiaries pro-rata to the stake each has riding on that
// outcome. A pot with no qualified winner for its token falls back to
// returning the losing stakes rather than stranding them.
func predictionMarketPayout(ctx context.Context, cond *vdapi.Condition, verdict *vdapi.Verdict, locks []*vdapi.StakeLock) ([]*vdapi.ExecutionRecord, error) {
	var winners []*vdapi.Beneficiary
	for _, b := range cond.Beneficiaries {
		if b.Outcome == verdict.Outcome {
			winners = append(winners, b)
		}
	}
	if len(winners) == 0 {
		return nil, i18n.NewError(ctx, msgs.MsgSettleOutcomeNoWinners, cond.ID)
	}

	var legs []*vdapi.ExecutionRecord
	for _, token := range lockTokens(locks) {
		var winLocks, loseLocks []*vdapi.StakeLock
		for _, lock := range locksForToken(locks, token) {
			if lock.Outcome == verdict.Outcome {
				winLocks = append(winLocks, lock)
			} else {
				loseLocks = append(loseLocks, lock)
			}
		}
		for _, lock := range winLocks {
			legs = append(legs, returnLeg(*cond.ID, lock, lock.Amount.Int()))
		}

		pot := sumLocks(loseLocks)
		if pot.Sign() == 0 {
			continue
		}
		var bens []*vdapi.Beneficiary
		var weights []*big.Int
		totalWeight := new(big.Int)
		for _, b := range winners {
			if b.Token != token {
				continue
			}
			w := stakeOfAddress(winLocks, b.Address)
			if w.Sign() > 0 {
				bens = append(bens, b)
				weights = append(weights, w)
				totalWeight.Add(totalWeight, w)
			}
		}
		if totalWeight.Sign() == 0 {
			legs = append(legs, returnLegs(*cond.ID, loseLocks, pot)...)
			continue
		}
		for i, share := range apportion(pot, weights) {
			if share.Sign() > 0 {
				legs = append(legs, payoutLeg(*cond.ID, bens[i], share))
			}
		}
	}
	return legs, nil
}

// apportion splits total across weights by floor division, handing the
// remainder out one unit at a time largest-weight-first (ties broken by
// position). The shares always sum to exactly total.
func apportion(total *big.Int, weights []*big.Int) []*big.Int {
	shares := make([]*big.Int, len(weights))
	sumWeights := new(big.Int)
	for _, w := range weights {
		sumWeights.Add(sumWeights, w)
	}
	if sumWeights.Sign() == 0 {
		for i := range shares {
			shares[i] = new(big.Int)
		}
		return shares
	}
	allocated := new(big.Int)
	for i, w := range weights {
		share := new(big.Int).Mul(total, w)
		share.Div(share, sumWeights)
		shares[i] = share
		allocated.Add(allocated, share)
	}
	remainder := new(big.Int).Sub(total, allocated)
	order := make([]int, len(weights))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return weights[order[a]].Cmp(weights[order[b]]) > 0
	})
	one := big.NewInt(1)
	for i := 0; remainder.Sign() > 0; i = (i + 1) % len(order) {
		shares[order[i]].Add(shares[order[i]], one)
		remainder.Sub(remainder, one)
	}
	return shares
}

func payoutLeg(condID uuid.UUID, b *vdapi.Beneficiary, amount *big.Int) *vdapi.ExecutionRecord {
	return &vdapi.ExecutionRecord{
		Condition:   condID,
		Ledger:      b.Ledger,
		Beneficiary: b.Address,
		Token:       b.Token,
		Direction:   vdapi.DirectionPayout.Enum(),
		Amount:      vdtypes.WrapBigInt(amount),
		Milestone:   b.Milestone,
	}
}

func returnLeg(condID uuid.UUID, lock *vdapi.StakeLock, amount *big.Int) *vdapi.ExecutionRecord {
	return &vdapi.ExecutionRecord{
		Condition:   condID,
		Ledger:      lock.Ledger,
		Beneficiary: lock.Stakeholder,
		Token:       lock.Token,
		Direction:   vdapi.DirectionRefund.Enum(),
		Amount:      vdtypes.WrapBigInt(amount),
	}
}

// returnLegs splits amount back across the locks pro-rata by stake.
func returnLegs(condID uuid.UUID, locks []*vdapi.StakeLock, amount *big.Int) []*vdapi.ExecutionRecord {
	if amount.Sign() <= 0 || len(locks) == 0 {
		return nil
	}
	weights := make([]*big.Int, len(locks))
	for i, lock := range locks {
		weights[i] = lock.Amount.Int()
	}
	var legs []*vdapi.ExecutionRecord
	for i, share := range apportion(amount, weights) {
		if share.Sign() > 0 {
			legs = append(legs, returnLeg(condID, locks[i], share))
		}
	}
	return legs
}

// lockTokens returns the distinct tokens across the locks, sorted so plans
// come out in a stable order.
func lockTokens(locks []*vdapi.StakeLock) []string {
	seen := map[string]bool{}
	var tokens []string
	for _, lock := range locks {
		if !seen[lock.Token] {
			seen[lock.Token] = true
			tokens = append(tokens, lock.Token)
		}
	}
	sort.Strings(tokens)
	return tokens
}

func locksForToken(locks []*vdapi.StakeLock, token string) []*vdapi.StakeLock {
	var out []*vdapi.StakeLock
	for _, lock := range locks {
		if lock.Token == token {
			out = append(out, lock)
		}
	}
	return out
}

func sumLocks(locks []*vdapi.StakeLock) *big.Int {
	total := new(big.Int)
	for _, lock := range locks {
		total.Add(total, lock.Amount.Int())
	}
	return total
}

func stakeOfAddress(locks []*vdapi.StakeLock, address string) *big.Int {
	total := new(big.Int)
	for _, lock := range locks {
		if lock.Stakeholder == address {
			total.Add(total, lock.Amount.Int())
		}
	}
	return total
}
