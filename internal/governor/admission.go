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

package governor

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/hyperledger/firefly-common/pkg/i18n"

	"github.com/veridict-io/veridict/internal/msgs"
	"github.com/veridict-io/veridict/pkg/persistence"
	"github.com/veridict-io/veridict/pkg/vdapi"
	"github.com/veridict-io/veridict/pkg/vdtypes"
)

// See docs in components package
func (g *governor) CheckAdmission(ctx context.Context, dbTX persistence.DBTX, cond *vdapi.Condition) error {
	ledgers := map[string]bool{cond.SourceLedger: true}
	for _, ledger := range cond.ExecutionLedgers {
		ledgers[ledger] = true
	}
	for ledger := range ledgers {
		if err := g.requireUnpaused(ctx, dbTX, ledger); err != nil {
			return err
		}
	}

	denied, err := g.loadDenylist(ctx, dbTX, ledgers)
	if err != nil {
		return err
	}
	if err := denied.check(ctx, cond.SourceLedger, cond.Creator); err != nil {
		return err
	}
	for _, s := range cond.Stakeholders {
		if err := denied.check(ctx, s.Ledger, s.Address); err != nil {
			return err
		}
	}
	for _, b := range cond.Beneficiaries {
		if err := denied.check(ctx, b.Ledger, b.Address); err != nil {
			return err
		}
	}

	return g.checkVolumeCaps(ctx, dbTX, cond)
}

// See docs in components package
func (g *governor) CheckRelease(ctx context.Context, rec *vdapi.ExecutionRecord) error {
	if err := g.requireUnpaused(ctx, g.p.NOTX(), rec.Ledger); err != nil {
		return err
	}
	denied, err := g.loadDenylist(ctx, g.p.NOTX(), map[string]bool{rec.Ledger: true})
	if err != nil {
		return err
	}
	return denied.check(ctx, rec.Ledger, rec.Beneficiary)
}

func (g *governor) requireUnpaused(ctx context.Context, dbTX persistence.DBTX, ledger string) error {
	var paused []*vdapi.PausedLedger
	err := dbTX.DB().WithContext(ctx).
		Where("ledger = ?", ledger).
		Limit(1).
		Find(&paused).
		Error
	if err != nil {
		return err
	}
	if len(paused) > 0 {
		return i18n.NewError(ctx, msgs.MsgGovernorLedgerPaused, ledger, paused[0].Reason)
	}
	return nil
}

type denySet map[string]bool // keyed "ledger/address"

func (ds denySet) check(ctx context.Context, ledger, address string) error {
	if ds[ledger+"/"+strings.ToLower(address)] {
		return i18n.NewError(ctx, msgs.MsgGovernorDenylisted, address, ledger)
	}
	return nil
}

func (g *governor) loadDenylist(ctx context.Context, dbTX persistence.DBTX, ledgers map[string]bool) (denySet, error) {
	names := make([]string, 0, len(ledgers))
	for ledger := range ledgers {
		names = append(names, ledger)
	}
	var entries []*vdapi.DenylistEntry
	err := dbTX.DB().WithContext(ctx).
		Where("ledger IN (?)", names).
		Find(&entries).
		Error
	if err != nil {
		return nil, err
	}
	denied := make(denySet, len(entries))
	for _, e := range entries {
		denied[e.Ledger+"/"+strings.ToLower(e.Address)] = true
	}
	return denied, nil
}

// checkVolumeCaps enforces the per-ledger rolling-window stake cap, per
// token. The window total is the sum of stake lock rows created inside the
// window plus the new condition's own stakes - the lock rows commit in the
// same transaction as this check, so the reservation holds even against
// concurrent creations racing the window.
func (g *governor) checkVolumeCaps(ctx context.Context, dbTX persistence.DBTX, cond *vdapi.Condition) error {
	newStakes := map[string]map[string]*big.Int{} // ledger -> token -> amount
	for _, s := range cond.Stakeholders {
		if g.ledgerCap(ctx, s.Ledger) == nil {
			continue
		}
		byToken := newStakes[s.Ledger]
		if byToken == nil {
			byToken = map[string]*big.Int{}
			newStakes[s.Ledger] = byToken
		}
		total := byToken[s.Token]
		if total == nil {
			total = new(big.Int)
			byToken[s.Token] = total
		}
		total.Add(total, s.Amount.Int())
	}
	if len(newStakes) == 0 {
		return nil
	}

	cutoff := vdtypes.Timestamp(time.Now().Add(-g.volumeWindow).UnixNano())
	for ledger, byToken := range newStakes {
		capVal := g.ledgerCap(ctx, ledger)
		var windowLocks []*vdapi.StakeLock
		err := dbTX.DB().WithContext(ctx).
			Where("ledger = ?", ledger).
			Where("created >= ?", cutoff).
			Find(&windowLocks).
			Error
		if err != nil {
			return err
		}
		for token, attempted := range byToken {
			windowed := new(big.Int).Set(attempted)
			for _, lock := range windowLocks {
				if lock.Token == token {
					windowed.Add(windowed, lock.Amount.Int())
				}
			}
			if windowed.Cmp(capVal) > 0 {
				return i18n.NewError(ctx, msgs.MsgGovernorVolumeCapExceeded,
					token, ledger, capVal.Text(10), windowed.Text(10))
			}
		}
	}
	return nil
}

// ledgerCap resolves the cap for a ledger - a governance parameter row
// ("volume_cap.<ledger>") overrides the configured cap. Nil means uncapped.
func (g *governor) ledgerCap(ctx context.Context, ledger string) *big.Int {
	val, err := g.effectiveValue(ctx, vdapi.ParamVolumeCap+"."+ledger)
	if err == nil && val != nil {
		if capVal, ok := new(big.Int).SetString(*val, 10); ok {
			return capVal
		}
	}
	return g.volumeCaps[ledger]
}
