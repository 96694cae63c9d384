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

// Package governor is the security/rate gate consulted by the rest of the
// engine, and the home of every governance write operation: ledger pause,
// parameter updates, the oracle source registry, the denylist, and dispute
// rulings. It holds no condition state of its own - admission runs inside the
// condition manager's creation transaction, release checks run leg by leg in
// the settlement dispatcher.
package governor

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"gorm.io/gorm/clause"

	"github.com/veridict-io/veridict/internal/components"
	"github.com/veridict-io/veridict/internal/msgs"
	"github.com/veridict-io/veridict/pkg/confutil"
	"github.com/veridict-io/veridict/pkg/persistence"
	"github.com/veridict-io/veridict/pkg/rpcserver"
	"github.com/veridict-io/veridict/pkg/vdapi"
	"github.com/veridict-io/veridict/pkg/vdconf"
	"github.com/veridict-io/veridict/pkg/vdtypes"
)

type governor struct {
	bgCtx     context.Context
	cancelCtx context.CancelFunc

	conf      *vdconf.GovernorConfig
	rpcModule *rpcserver.RPCModule

	nodeName string
	p        persistence.Persistence

	conditions components.ConditionManager
	settlement components.SettlementManager

	volumeWindow time.Duration
	volumeCaps   map[string]*big.Int // ledger -> per-token cap in the window
}

func NewGovernor(bgCtx context.Context, conf *vdconf.GovernorConfig) components.Governor {
	g := &governor{
		conf:         conf,
		volumeWindow: confutil.DurationMin(conf.VolumeWindow, time.Second, *vdconf.GovernorDefaults.VolumeWindow),
	}
	g.bgCtx, g.cancelCtx = context.WithCancel(bgCtx)
	return g
}

func (g *governor) PreInit(pic components.PreInitComponents) (*components.ManagerInitResult, error) {
	g.nodeName = pic.NodeName()
	g.p = pic.Persistence()
	g.volumeCaps = make(map[string]*big.Int, len(g.conf.VolumeCaps))
	for ledger, capStr := range g.conf.VolumeCaps {
		capVal := confutil.BigIntOrNil(&capStr)
		if capVal == nil || capVal.Sign() < 0 {
			return nil, i18n.NewError(g.bgCtx, msgs.MsgGovernorBadConfig, "volumeCaps."+ledger, capStr)
		}
		g.volumeCaps[ledger] = capVal
	}
	for i, de := range g.conf.Denylist {
		if de.Ledger == "" || de.Address == "" {
			return nil, i18n.NewError(g.bgCtx, msgs.MsgGovernorBadConfig, "denylist", i)
		}
	}
	g.initRPC()
	return &components.ManagerInitResult{
		RPCModules: []*rpcserver.RPCModule{g.rpcModule},
	}, nil
}

func (g *governor) PostInit(c components.AllComponents) error {
	g.conditions = c.ConditionManager()
	g.settlement = c.SettlementManager()
	return nil
}

func (g *governor) Start() error {
	return g.bootstrapDenylist(g.bgCtx)
}

func (g *governor) Stop() {
	g.cancelCtx()
}

// bootstrapDenylist seeds the persisted denylist from configuration. Entries
// already present (including ones governance has since allowlisted back in by
// deleting - absent rows are not re-created on restart only if config still
// lists them, which is the operator's call) are left untouched.
func (g *governor) bootstrapDenylist(ctx context.Context) error {
	if len(g.conf.Denylist) == 0 {
		return nil
	}
	now := vdtypes.TimestampNow()
	entries := make([]*vdapi.DenylistEntry, len(g.conf.Denylist))
	for i, de := range g.conf.Denylist {
		entries[i] = &vdapi.DenylistEntry{
			Ledger:  de.Ledger,
			Address: strings.ToLower(de.Address),
			Reason:  de.Reason,
			Created: now,
		}
	}
	return g.p.DB().WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(entries).
		Error
}

// See docs in components package
func (g *governor) PausedLedger(ctx context.Context, ledger string) (*vdapi.PausedLedger, error) {
	var paused []*vdapi.PausedLedger
	err := g.p.DB().WithContext(ctx).
		Where("ledger = ?", ledger).
		Limit(1).
		Find(&paused).
		Error
	if err != nil || len(paused) == 0 {
		return nil, err
	}
	return paused[0], nil
}

// See docs in components package
func (g *governor) EffectiveParams(ctx context.Context, conditionType vdapi.ConditionType) (*components.EffectiveParams, error) {
	minSourcesVal, err := g.effectiveValue(ctx,
		vdapi.ParamMinSources+"."+string(conditionType), vdapi.ParamMinSources)
	if err != nil {
		return nil, err
	}
	thresholdVal, err := g.effectiveValue(ctx,
		vdapi.ParamConsensusThreshold+"."+string(conditionType), vdapi.ParamConsensusThreshold)
	if err != nil {
		return nil, err
	}
	params := &components.EffectiveParams{}
	if minSourcesVal != nil {
		// values were bounds-checked when written, so a bad row is a no-override
		if v, ok := parseIntValue(*minSourcesVal); ok {
			params.MinSources = &v
		}
	}
	if thresholdVal != nil {
		if v, ok := parseFloatValue(*thresholdVal); ok {
			params.ConsensusThreshold = &v
		}
	}
	return params, nil
}

// effectiveValue resolves a governance parameter with key precedence - the
// first key in the list with an in-effect row wins, and within a key the
// latest effective time not in the future wins.
func (g *governor) effectiveValue(ctx context.Context, keys ...string) (*string, error) {
	now := vdtypes.TimestampNow()
	for _, key := range keys {
		var rows []*vdapi.GovParam
		err := g.p.DB().WithContext(ctx).
			Where("param = ?", key).
			Where("effective <= ?", now).
			Order("effective DESC").
			Limit(1).
			Find(&rows).
			Error
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 {
			return &rows[0].Value, nil
		}
	}
	return nil, nil
}
