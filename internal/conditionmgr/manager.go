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
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hyperledger/firefly-common/pkg/i18n"

	"github.com/veridict-io/veridict/internal/components"
	"github.com/veridict-io/veridict/internal/flushwriter"
	"github.com/veridict-io/veridict/internal/msgs"
	"github.com/veridict-io/veridict/pkg/cache"
	"github.com/veridict-io/veridict/pkg/confutil"
	"github.com/veridict-io/veridict/pkg/log"
	"github.com/veridict-io/veridict/pkg/persistence"
	"github.com/veridict-io/veridict/pkg/retry"
	"github.com/veridict-io/veridict/pkg/rpcserver"
	"github.com/veridict-io/veridict/pkg/vdapi"
	"github.com/veridict-io/veridict/pkg/vdconf"
)

const defaultQueryLimit = 50

type conditionManager struct {
	bgCtx     context.Context
	cancelCtx context.CancelFunc

	conf      *vdconf.ConditionManagerConfig
	rpcModule *rpcserver.RPCModule

	nodeName string
	p        persistence.Persistence

	relay      components.RelayManager
	oracle     components.OracleManager
	settlement components.SettlementManager
	governor   components.Governor
	ledgers    components.LedgerManager

	condCache    cache.Cache[uuid.UUID, *vdapi.Condition]
	mirrorWriter flushwriter.Writer[*mirrorUpdate, *vdapi.ConditionMirror]
	mirrorRetry  *retry.Retry
	events       *condSubscriptions

	scanInterval time.Duration
	scanPageSize int
	repairAge    time.Duration

	repairMux sync.Mutex
	repairing map[string]bool

	started  atomic.Bool
	scanDone chan struct{}
}

func NewConditionManager(bgCtx context.Context, conf *vdconf.ConditionManagerConfig) components.ConditionManager {
	cm := &conditionManager{
		conf:         conf,
		scanInterval: confutil.DurationMin(conf.ExpiryScanInterval, 100*time.Millisecond, *vdconf.ConditionManagerDefaults.ExpiryScanInterval),
		scanPageSize: confutil.IntMin(conf.ExpiryScanPageSize, 1, *vdconf.ConditionManagerDefaults.ExpiryScanPageSize),
		repairAge:    confutil.DurationMin(conf.StakeRepairAge, time.Second, *vdconf.ConditionManagerDefaults.StakeRepairAge),
		condCache:    cache.NewCache[uuid.UUID, *vdapi.Condition](&conf.ConditionCache, &vdconf.ConditionManagerDefaults.ConditionCache),
		mirrorRetry:  retry.NewRetryIndefinite(&conf.MirrorSyncRetry, &vdconf.ConditionManagerDefaults.MirrorSyncRetry),
		events:       newCondSubscriptions(),
		repairing:    make(map[string]bool),
		scanDone:     make(chan struct{}),
	}
	cm.bgCtx, cm.cancelCtx = context.WithCancel(bgCtx)
	return cm
}

func (cm *conditionManager) PreInit(pic components.PreInitComponents) (*components.ManagerInitResult, error) {
	cm.nodeName = pic.NodeName()
	cm.p = pic.Persistence()
	cm.mirrorWriter = flushwriter.NewWriter(cm.bgCtx, cm.writeMirrorStates, cm.p,
		&cm.conf.MirrorWriter, &vdconf.ConditionManagerDefaults.MirrorWriter)
	cm.initRPC()
	return &components.ManagerInitResult{
		RPCModules: []*rpcserver.RPCModule{cm.rpcModule},
	}, nil
}

func (cm *conditionManager) PostInit(c components.AllComponents) error {
	cm.relay = c.RelayManager()
	cm.oracle = c.OracleManager()
	cm.settlement = c.SettlementManager()
	cm.governor = c.Governor()
	cm.ledgers = c.LedgerManager()
	if err := cm.relay.RegisterReceiver(vdapi.RMTConditionCreate, &conditionCreateReceiver{cm: cm}); err != nil {
		return err
	}
	return cm.relay.RegisterReceiver(vdapi.RMTStatusUpdate, &statusUpdateReceiver{cm: cm})
}

func (cm *conditionManager) Start() error {
	cm.mirrorWriter.Start()
	cm.started.Store(true)
	go cm.scanLoop()
	return nil
}

func (cm *conditionManager) Stop() {
	cm.cancelCtx()
	if cm.started.Load() {
		<-cm.scanDone
		cm.mirrorWriter.Shutdown()
	}
	cm.started.Store(false)
}

// scanLoop drives everything time-based - expiry, dispute deadlines,
// clock-driven evaluation and stake lock repair.
func (cm *conditionManager) scanLoop() {
	defer close(cm.scanDone)
	ticker := time.NewTicker(cm.scanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
		case <-cm.bgCtx.Done():
			return
		}
		cm.runScan(cm.bgCtx)
	}
}

// See docs in components package
func (cm *conditionManager) GetCondition(ctx context.Context, id uuid.UUID) (*vdapi.Condition, error) {
	if cond, ok := cm.condCache.Get(id); ok {
		return cond, nil
	}
	cond, err := cm.getCondition(ctx, cm.p.NOTX(), id)
	if err != nil {
		return nil, err
	}
	if cond == nil {
		return nil, i18n.NewError(ctx, msgs.MsgConditionNotFound, id)
	}
	cm.condCache.Set(id, cond)
	return cond, nil
}

// See docs in components package
func (cm *conditionManager) QueryConditions(ctx context.Context, query *vdapi.ConditionQuery) ([]*vdapi.Condition, error) {
	if query == nil {
		query = &vdapi.ConditionQuery{}
	}
	q := cm.p.DB().WithContext(ctx)
	if len(query.Status) > 0 {
		statuses := make([]string, len(query.Status))
		for i, s := range query.Status {
			statuses[i] = string(s.V())
		}
		q = q.Where("status IN (?)", statuses)
	}
	if query.Type != nil {
		q = q.Where("condition_type = ?", string(query.Type.V()))
	}
	if query.Creator != nil {
		q = q.Where("creator = ?", *query.Creator)
	}
	conds := []*vdapi.Condition{}
	err := q.Order("created DESC").Limit(confutil.IntMin(query.Limit, 1, defaultQueryLimit)).Find(&conds).Error
	return conds, err
}

// getCondition loads the row in the supplied transaction - no cache, callers
// inside a transaction need the current row for their optimistic guards.
func (cm *conditionManager) getCondition(ctx context.Context, dbTX persistence.DBTX, id uuid.UUID) (*vdapi.Condition, error) {
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

func (cm *conditionManager) requireCondition(ctx context.Context, dbTX persistence.DBTX, id uuid.UUID) (*vdapi.Condition, error) {
	cond, err := cm.getCondition(ctx, dbTX, id)
	if err != nil {
		return nil, err
	}
	if cond == nil {
		return nil, i18n.NewError(ctx, msgs.MsgConditionNotFound, id)
	}
	return cond, nil
}

// afterCommit defers fn to the commit of the supplied transaction, or runs it
// inline when the caller is not inside one.
func afterCommit(ctx context.Context, dbTX persistence.DBTX, fn func(ctx context.Context)) {
	if dbTX.FullTransaction() {
		dbTX.AddPostCommit(fn)
		return
	}
	fn(ctx)
}

// isTerminal reports whether no further transition can leave the status.
func isTerminal(status vdapi.ConditionStatus) bool {
	return len(allowedTransitions[status]) == 0
}

func (cm *conditionManager) logScanError(what string, err error) {
	if err != nil {
		log.L(cm.bgCtx).Errorf("%s scan failed (will retry): %s", what, err)
	}
}
