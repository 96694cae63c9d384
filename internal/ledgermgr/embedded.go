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

package ledgermgr

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hyperledger/firefly-common/pkg/i18n"

	"github.com/veridict-io/veridict/internal/msgs"
	"github.com/veridict-io/veridict/pkg/confutil"
	"github.com/veridict-io/veridict/pkg/log"
	"github.com/veridict-io/veridict/pkg/vdapi"
	"github.com/veridict-io/veridict/pkg/vdconf"
	"github.com/veridict-io/veridict/pkg/vdtypes"
)

// EmbeddedLedger is a deterministic in-process ledger simulation. Submitted
// intents queue until the next block seals, at which point balances move (or
// the transaction reverts), and confirmations accumulate one per block from
// there. Escrow is held in a per-condition account that only release/return
// intents can draw from.
//
// State is in-memory only - a restart is a fresh chain. That is the point:
// scenario tests get real asynchronous finality without any external ledger.
type EmbeddedLedger struct {
	ctx      context.Context
	cancel   context.CancelFunc
	name     string
	interval time.Duration
	running  bool
	done     chan struct{}

	lock     sync.Mutex
	height   uint64
	balances map[string]map[string]*big.Int // token -> account -> balance
	txs      map[string]*embeddedTx
	byRef    map[string]string // idempotency ref -> txRef
	queue    []*embeddedTx
	halted   bool
}

type embeddedTx struct {
	txRef  string
	intent *vdapi.LedgerIntent
	block  uint64 // 0 until sealed
	revert string // non-empty if the seal reverted it
}

func newEmbeddedLedger(bgCtx context.Context, name string, conf *vdconf.EmbeddedLedgerConfig) (*EmbeddedLedger, error) {
	el := &EmbeddedLedger{
		name:     name,
		interval: confutil.DurationMin(conf.BlockInterval, 1*time.Millisecond, *vdconf.LedgerDefaults.Embedded.BlockInterval),
		done:     make(chan struct{}),
		balances: make(map[string]map[string]*big.Int),
		txs:      make(map[string]*embeddedTx),
		byRef:    make(map[string]string),
	}
	el.ctx, el.cancel = context.WithCancel(bgCtx)
	for account, tokens := range conf.InitialBalances {
		for token, balance := range tokens {
			amount, ok := new(big.Int).SetString(balance, 10)
			if !ok || amount.Sign() < 0 {
				return nil, i18n.NewError(bgCtx, msgs.MsgTypesBigIntParseFailed, balance)
			}
			el.creditLocked(token, account, amount)
		}
	}
	return el, nil
}

func (el *EmbeddedLedger) ledgerType() string { return LedgerTypeEmbedded }

func (el *EmbeddedLedger) start() {
	el.running = true
	go el.run()
}

func (el *EmbeddedLedger) stop() {
	el.cancel()
	if el.running {
		<-el.done
	}
}

func (el *EmbeddedLedger) run() {
	defer close(el.done)
	log.L(el.ctx).Debugf("Embedded ledger '%s' sealing blocks every %s", el.name, el.interval)
	ticker := time.NewTicker(el.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			el.sealBlock()
		case <-el.ctx.Done():
			return
		}
	}
}

func (el *EmbeddedLedger) sealBlock() {
	el.lock.Lock()
	defer el.lock.Unlock()
	if el.halted {
		return
	}
	el.height++
	for _, tx := range el.queue {
		tx.block = el.height
		tx.revert = el.applyLocked(tx.intent)
		if tx.revert != "" {
			log.L(el.ctx).Warnf("Ledger '%s' block %d reverted tx %s: %s", el.name, el.height, tx.txRef, tx.revert)
		}
	}
	el.queue = nil
}

// applyLocked moves the balances for one sealed intent, returning a revert
// reason instead of moving anything if the funds are not there.
func (el *EmbeddedLedger) applyLocked(intent *vdapi.LedgerIntent) string {
	if intent.Amount == nil || intent.Amount.Sign() <= 0 {
		return "invalid amount"
	}
	amount := intent.Amount.Int()
	escrow := escrowAccount(intent.Condition)
	switch intent.Type.V() {
	case vdapi.IntentLockStake:
		if !el.debitLocked(intent.Token, intent.Address, amount) {
			return fmt.Sprintf("insufficient %s balance for %s", intent.Token, intent.Address)
		}
		el.creditLocked(intent.Token, escrow, amount)
	case vdapi.IntentReleasePayout, vdapi.IntentReturnStake:
		if !el.debitLocked(intent.Token, escrow, amount) {
			return fmt.Sprintf("insufficient %s escrow for condition %s", intent.Token, intent.Condition)
		}
		el.creditLocked(intent.Token, intent.Address, amount)
	default:
		return fmt.Sprintf("unknown intent type '%s'", intent.Type)
	}
	return ""
}

func (el *EmbeddedLedger) creditLocked(token, account string, amount *big.Int) {
	accounts := el.balances[token]
	if accounts == nil {
		accounts = make(map[string]*big.Int)
		el.balances[token] = accounts
	}
	balance := accounts[account]
	if balance == nil {
		balance = new(big.Int)
		accounts[account] = balance
	}
	balance.Add(balance, amount)
}

func (el *EmbeddedLedger) debitLocked(token, account string, amount *big.Int) bool {
	balance := el.balances[token][account]
	if balance == nil || balance.Cmp(amount) < 0 {
		return false
	}
	balance.Sub(balance, amount)
	return true
}

func (el *EmbeddedLedger) blockHeight(ctx context.Context) (uint64, error) {
	el.lock.Lock()
	defer el.lock.Unlock()
	return el.height, nil
}

func (el *EmbeddedLedger) submit(ctx context.Context, intent *vdapi.LedgerIntent, ref string) (string, error) {
	el.lock.Lock()
	defer el.lock.Unlock()
	if existing, ok := el.byRef[ref]; ok {
		return existing, nil
	}
	if intent.Amount == nil || intent.Amount.Sign() <= 0 {
		return "", permanent(i18n.NewError(ctx, msgs.MsgTypesNegativeAmount))
	}
	txRef := vdtypes.Bytes32Keccak([]byte(el.name + "/" + ref)).String()
	tx := &embeddedTx{txRef: txRef, intent: intent}
	el.txs[txRef] = tx
	el.byRef[ref] = txRef
	el.queue = append(el.queue, tx)
	return txRef, nil
}

func (el *EmbeddedLedger) txStatus(ctx context.Context, txRef string) (*vdapi.LedgerTxStatus, error) {
	el.lock.Lock()
	defer el.lock.Unlock()
	tx := el.txs[txRef]
	if tx == nil {
		return nil, i18n.NewError(ctx, msgs.MsgLedgerTxNotFound, txRef, el.name)
	}
	status := &vdapi.LedgerTxStatus{TxRef: txRef}
	switch {
	case tx.block == 0:
		status.State = vdapi.LedgerTxPending.Enum()
	case tx.revert != "":
		status.State = vdapi.LedgerTxFailed.Enum()
		status.BlockNumber = tx.block
		status.RevertReason = tx.revert
	default:
		status.State = vdapi.LedgerTxConfirmed.Enum()
		status.BlockNumber = tx.block
		status.Confirmations = int(el.height - tx.block)
	}
	return status, nil
}

func escrowAccount(condition uuid.UUID) string {
	return "escrow/" + condition.String()
}

// Balance returns a copy of an account's balance for direct assertion of
// the simulation state.
func (el *EmbeddedLedger) Balance(token, account string) *big.Int {
	el.lock.Lock()
	defer el.lock.Unlock()
	balance := el.balances[token][account]
	if balance == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(balance)
}

// EscrowBalance returns a copy of the escrow held for one condition.
func (el *EmbeddedLedger) EscrowBalance(token string, condition uuid.UUID) *big.Int {
	return el.Balance(token, escrowAccount(condition))
}

// SetHalted stops (or resumes) block production, leaving submitted
// transactions stuck pending - the way settlement stall handling is provoked.
func (el *EmbeddedLedger) SetHalted(halted bool) {
	el.lock.Lock()
	defer el.lock.Unlock()
	el.halted = halted
}
