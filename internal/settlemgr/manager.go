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

// Package settlemgr executes the disbursement plan of a condition: it turns
// verdicts into execution legs, drives each leg to finality on its ledger
// (locally or via a relayed payout instruction), and closes the condition
// out once every leg is confirmed. Funds only ever move for a leg row that
// won its pending->submitted compare-and-set, so replays, crash recovery and
// concurrent dispatchers collapse onto a single movement per leg.
package settlemgr

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/veridict-io/veridict/internal/components"
	"github.com/veridict-io/veridict/internal/flushwriter"
	"github.com/veridict-io/veridict/pkg/confutil"
	"github.com/veridict-io/veridict/pkg/persistence"
	"github.com/veridict-io/veridict/pkg/retry"
	"github.com/veridict-io/veridict/pkg/rpcserver"
	"github.com/veridict-io/veridict/pkg/vdapi"
	"github.com/veridict-io/veridict/pkg/vdconf"
	"github.com/veridict-io/veridict/pkg/vdtypes"
)

type settlementManager struct {
	bgCtx     context.Context
	cancelCtx context.CancelFunc

	conf      *vdconf.SettlementManagerConfig
	rpcModule *rpcserver.RPCModule

	nodeName string
	p        persistence.Persistence

	relay      components.RelayManager
	conditions components.ConditionManager
	governor   components.Governor
	ledgers    components.LedgerManager

	outcomeWriter flushwriter.Writer[*legOutcome, *vdapi.ExecutionRecord]
	dispatchRetry *retry.Retry

	stallTimeout    time.Duration
	recheckInterval time.Duration

	drivingMux sync.Mutex
	driving    map[uuid.UUID]bool

	recheck  chan struct{}
	started  atomic.Bool
	loopDone chan struct{}
}

func NewSettlementManager(bgCtx context.Context, conf *vdconf.SettlementManagerConfig) components.SettlementManager {
	sm := &settlementManager{
		conf:            conf,
		dispatchRetry:   retry.NewRetryLimited(&conf.DispatchRetry, &vdconf.SettlementManagerDefaults.DispatchRetry),
		stallTimeout:    confutil.DurationMin(conf.StallTimeout, time.Second, *vdconf.SettlementManagerDefaults.StallTimeout),
		recheckInterval: confutil.DurationMin(conf.RecheckInterval, 100*time.Millisecond, *vdconf.SettlementManagerDefaults.RecheckInterval),
		driving:         make(map[uuid.UUID]bool),
		recheck:         make(chan struct{}, 1),
		loopDone:        make(chan struct{}),
	}
	sm.bgCtx, sm.cancelCtx = context.WithCancel(bgCtx)
	return sm
}

func (sm *settlementManager) PreInit(pic components.PreInitComponents) (*components.ManagerInitResult, error) {
	sm.nodeName = pic.NodeName()
	sm.p = pic.Persistence()
	sm.outcomeWriter = flushwriter.NewWriter(sm.bgCtx, sm.writeLegOutcomes, sm.p,
		&sm.conf.RecordWriter, &vdconf.SettlementManagerDefaults.RecordWriter)
	sm.initRPC()
	return &components.ManagerInitResult{
		RPCModules: []*rpcserver.RPCModule{sm.rpcModule},
	}, nil
}

func (sm *settlementManager) PostInit(c components.AllComponents) error {
	sm.relay = c.RelayManager()
	sm.conditions = c.ConditionManager()
	sm.governor = c.Governor()
	sm.ledgers = c.LedgerManager()
	if err := sm.relay.RegisterReceiver(vdapi.RMTPayoutInstruction, &payoutInstructionReceiver{sm: sm}); err != nil {
		return err
	}
	return sm.relay.RegisterReceiver(vdapi.RMTPayoutResult, &payoutResultReceiver{sm: sm})
}

func (sm *settlementManager) Start() error {
	sm.outcomeWriter.Start()
	sm.started.Store(true)
	go sm.recheckLoop()
	return nil
}

func (sm *settlementManager) Stop() {
	sm.cancelCtx()
	if sm.started.Load() {
		<-sm.loopDone
		sm.outcomeWriter.Shutdown()
	}
	sm.started.Store(false)
}

// recheckLoop drives dispatch - on a timer for crash recovery and stall
// retry, and immediately when a plan lands or governance lifts a pause.
func (sm *settlementManager) recheckLoop() {
	defer close(sm.loopDone)
	ticker := time.NewTicker(sm.recheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
		case <-sm.recheck:
		case <-sm.bgCtx.Done():
			return
		}
		sm.runDispatchPass(sm.bgCtx)
	}
}

// See docs in components package
func (sm *settlementManager) RecheckNow() {
	select {
	case sm.recheck <- struct{}{}:
	default:
	}
}

// See docs in components package
func (sm *settlementManager) GetResult(ctx context.Context, conditionID uuid.UUID) (*vdapi.ExecutionResult, error) {
	legs, err := sm.conditionLegs(ctx, sm.p.NOTX(), conditionID)
	if err != nil {
		return nil, err
	}
	if len(legs) == 0 {
		return nil, nil
	}
	return &vdapi.ExecutionResult{
		Condition: conditionID,
		Legs:      legs,
		Complete:  allConfirmed(legs),
	}, nil
}

func allConfirmed(legs []*vdapi.ExecutionRecord) bool {
	for _, leg := range legs {
		if leg.Status.V() != vdapi.ExecutionConfirmed {
			return false
		}
	}
	return true
}

// finalizeIfSettled closes out a condition once every planned leg is
// confirmed: remaining locked stakes flip to released (their value went out
// through payouts) and, for a triggered condition, the condition manager
// records the executed state. Replays collapse on the status checks.
func (sm *settlementManager) finalizeIfSettled(ctx context.Context, condID uuid.UUID) error {
	return sm.p.Transaction(ctx, func(ctx context.Context, dbTX persistence.DBTX) error {
		cond, err := sm.getCondition(ctx, dbTX, condID)
		if err != nil || cond == nil {
			return err
		}
		legs, err := sm.conditionLegs(ctx, dbTX, condID)
		if err != nil {
			return err
		}
		if len(legs) == 0 || !allConfirmed(legs) {
			return nil
		}
		err = dbTX.DB().WithContext(ctx).
			Model(&vdapi.StakeLock{}).
			Where("condition = ?", condID).
			Where("status = ?", vdapi.StakeLocked.Enum()).
			Updates(map[string]any{
				"status":  vdapi.StakeReleased.Enum(),
				"updated": vdtypes.TimestampNow(),
			}).
			Error
		if err != nil {
			return err
		}
		if cond.Status.V() != vdapi.ConditionStatusTriggered {
			return nil
		}
		return sm.conditions.CompleteExecution(ctx, dbTX, &vdapi.ExecutionResult{
			Condition: condID,
			Legs:      legs,
			Complete:  true,
		})
	})
}

func (sm *settlementManager) getCondition(ctx context.Context, dbTX persistence.DBTX, id uuid.UUID) (*vdapi.Condition, error) {
	var conds []*vdapi.Condition
	err := dbTX.DB().WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&conds).
		Error
	if err != nil || len(conds) == 0 {
		return nil, err
	}
	return conds[0], nil
}

// afterCommit defers fn to the commit of the supplied transaction, or runs
// it inline when there is no real transaction to wait for.
func afterCommit(ctx context.Context, dbTX persistence.DBTX, fn func(ctx context.Context)) {
	if dbTX.FullTransaction() {
		dbTX.AddPostCommit(fn)
		return
	}
	fn(ctx)
}
