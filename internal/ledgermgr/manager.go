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
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/hyperledger/firefly-common/pkg/i18n"

	"github.com/veridict-io/veridict/internal/components"
	"github.com/veridict-io/veridict/internal/msgs"
	"github.com/veridict-io/veridict/pkg/inflight"
	"github.com/veridict-io/veridict/pkg/persistence"
	"github.com/veridict-io/veridict/pkg/rpcserver"
	"github.com/veridict-io/veridict/pkg/vdapi"
	"github.com/veridict-io/veridict/pkg/vdconf"
)

type ledgerManager struct {
	bgCtx     context.Context
	cancelCtx context.CancelFunc

	conf     map[string]*vdconf.LedgerConfig
	nodeName string

	p        persistence.Persistence
	governor components.Governor

	ledgers   map[string]*ledger
	rpcModule *rpcserver.RPCModule

	finalityWaiters *inflight.InflightManager[uuid.UUID, *vdapi.LedgerSubmission]
	trackers        sync.WaitGroup
	started         atomic.Bool
}

func NewLedgerManager(bgCtx context.Context, conf map[string]*vdconf.LedgerConfig) components.LedgerManager {
	lm := &ledgerManager{
		conf:            conf,
		ledgers:         make(map[string]*ledger),
		finalityWaiters: inflight.NewInflightManager[uuid.UUID, *vdapi.LedgerSubmission](uuid.Parse),
	}
	lm.bgCtx, lm.cancelCtx = context.WithCancel(bgCtx)
	return lm
}

func (lm *ledgerManager) PreInit(pic components.PreInitComponents) (*components.ManagerInitResult, error) {
	lm.nodeName = pic.NodeName()
	lm.p = pic.Persistence()
	for name, conf := range lm.conf {
		l, err := lm.newLedger(name, conf)
		if err != nil {
			return nil, err
		}
		lm.ledgers[name] = l
	}
	lm.initRPC()
	return &components.ManagerInitResult{
		RPCModules: []*rpcserver.RPCModule{lm.rpcModule},
	}, nil
}

func (lm *ledgerManager) PostInit(c components.AllComponents) error {
	lm.governor = c.Governor()
	return nil
}

func (lm *ledgerManager) Start() error {
	for _, l := range lm.ledgers {
		l.adapter.start()
	}
	lm.started.Store(true)
	// anything left in flight by a previous run picks back up here
	return lm.recoverInflightSubmissions(lm.bgCtx)
}

func (lm *ledgerManager) Stop() {
	lm.started.Store(false)
	lm.cancelCtx()
	lm.trackers.Wait()
	for _, l := range lm.ledgers {
		l.adapter.stop()
	}
	lm.finalityWaiters.Close()
}

func (lm *ledgerManager) HasAdapter(ledgerName string) bool {
	return lm.ledgers[ledgerName] != nil
}

func (lm *ledgerManager) Ledgers() []string {
	names := make([]string, 0, len(lm.ledgers))
	for name := range lm.ledgers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (lm *ledgerManager) getLedger(ctx context.Context, name string) (*ledger, error) {
	l := lm.ledgers[name]
	if l == nil {
		return nil, i18n.NewError(ctx, msgs.MsgLedgerUnknown, name)
	}
	return l, nil
}

func (lm *ledgerManager) Status(ctx context.Context, ledgerName string) (*vdapi.LedgerStatus, error) {
	l, err := lm.getLedger(ctx, ledgerName)
	if err != nil {
		return nil, err
	}
	info, err := l.info(ctx)
	if err != nil {
		return nil, err
	}
	return &vdapi.LedgerStatus{
		Ledger:        info.Ledger,
		LedgerType:    info.LedgerType,
		BlockHeight:   info.BlockHeight,
		FinalityDepth: info.FinalityDepth,
	}, nil
}

// Embedded gives tests and the loopback tooling direct access to the
// simulation behind an embedded ledger. Returns nil for remote ledgers.
func (lm *ledgerManager) Embedded(ledgerName string) *EmbeddedLedger {
	l := lm.ledgers[ledgerName]
	if l == nil {
		return nil
	}
	el, _ := l.adapter.(*EmbeddedLedger)
	return el
}
