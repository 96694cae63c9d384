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
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-signer/pkg/ethtypes"
	"gorm.io/gorm/clause"

	"github.com/veridict-io/veridict/internal/components"
	"github.com/veridict-io/veridict/internal/msgs"
	"github.com/veridict-io/veridict/pkg/confutil"
	"github.com/veridict-io/veridict/pkg/log"
	"github.com/veridict-io/veridict/pkg/persistence"
	"github.com/veridict-io/veridict/pkg/rpcserver"
	"github.com/veridict-io/veridict/pkg/vdapi"
	"github.com/veridict-io/veridict/pkg/vdconf"
	"github.com/veridict-io/veridict/pkg/vdtypes"
)

type oracleManager struct {
	bgCtx     context.Context
	cancelCtx context.CancelFunc

	conf      *vdconf.OracleManagerConfig
	rpcModule *rpcserver.RPCModule

	nodeName string
	p        persistence.Persistence

	relay      components.RelayManager
	conditions components.ConditionManager

	evaluator *criteriaEvaluator

	minSources           int
	consensusThreshold   float64
	attestationRetention time.Duration
	pruneInterval        time.Duration

	started   atomic.Bool
	pruneDone chan struct{}
}

func NewOracleManager(bgCtx context.Context, conf *vdconf.OracleManagerConfig) components.OracleManager {
	om := &oracleManager{
		conf:                 conf,
		minSources:           confutil.IntMin(conf.MinSources, 1, *vdconf.OracleManagerDefaults.MinSources),
		consensusThreshold:   confutil.Float64Min(conf.ConsensusThreshold, 0, *vdconf.OracleManagerDefaults.ConsensusThreshold),
		attestationRetention: confutil.DurationMin(conf.AttestationRetention, 0, *vdconf.OracleManagerDefaults.AttestationRetention),
		pruneInterval:        confutil.DurationMin(conf.PruneInterval, 100*time.Millisecond, *vdconf.OracleManagerDefaults.PruneInterval),
		pruneDone:            make(chan struct{}),
	}
	om.bgCtx, om.cancelCtx = context.WithCancel(bgCtx)
	return om
}

func (om *oracleManager) PreInit(pic components.PreInitComponents) (*components.ManagerInitResult, error) {
	om.nodeName = pic.NodeName()
	om.p = pic.Persistence()
	for i, sc := range om.conf.Sources {
		if sc.Name == "" {
			return nil, i18n.NewError(om.bgCtx, msgs.MsgOracleSourceConfigInvalid, i, "name required")
		}
		if _, err := ethtypes.NewAddress(sc.Address); err != nil {
			return nil, i18n.WrapError(om.bgCtx, err, msgs.MsgOracleSourceConfigInvalid, i, "address invalid")
		}
	}
	evaluator, err := newCriteriaEvaluator(om.bgCtx, om.conf)
	if err != nil {
		return nil, err
	}
	om.evaluator = evaluator
	om.initRPC()
	return &components.ManagerInitResult{
		RPCModules: []*rpcserver.RPCModule{om.rpcModule},
	}, nil
}

func (om *oracleManager) PostInit(c components.AllComponents) error {
	om.relay = c.RelayManager()
	om.conditions = c.ConditionManager()
	return om.relay.RegisterReceiver(vdapi.RMTAttestationForward, &attestationReceiver{om: om})
}

func (om *oracleManager) Start() error {
	if err := om.bootstrapSources(om.bgCtx); err != nil {
		return err
	}
	om.started.Store(true)
	go om.pruneLoop()
	return nil
}

func (om *oracleManager) Stop() {
	om.cancelCtx()
	if om.started.Load() {
		<-om.pruneDone
	}
	om.started.Store(false)
}

// See docs in components package
func (om *oracleManager) QuorumDefaults() (int, float64) {
	return om.minSources, om.consensusThreshold
}

// bootstrapSources seeds the authorized source registry from configuration.
// Identities already registered (including ones governance has revoked) are
// left untouched.
func (om *oracleManager) bootstrapSources(ctx context.Context) error {
	if len(om.conf.Sources) == 0 {
		return nil
	}
	now := vdtypes.TimestampNow()
	sources := make([]*vdapi.OracleSource, len(om.conf.Sources))
	for i, sc := range om.conf.Sources {
		sources[i] = &vdapi.OracleSource{
			Identity:    strings.ToLower(sc.Address),
			Description: sc.Name,
			Status:      vdapi.OracleSourceActive.Enum(),
			Created:     now,
			Updated:     now,
		}
	}
	return om.p.DB().WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(sources).
		Error
}

// GetVerdict returns the verdict row for an exact condition/milestone, or nil
// when evaluation has not reached quorum.
func (om *oracleManager) GetVerdict(ctx context.Context, conditionID uuid.UUID, milestone int) (*vdapi.Verdict, error) {
	var verdicts []*vdapi.Verdict
	err := om.p.DB().WithContext(ctx).
		Where("condition = ?", conditionID).
		Where("milestone = ?", milestone).
		Limit(1).
		Find(&verdicts).
		Error
	if err != nil || len(verdicts) == 0 {
		return nil, err
	}
	return verdicts[0], nil
}

// getLatestVerdict serves oracle_queryVerdict - the highest-milestone verdict
// stands for the condition as a whole (milestone zero for every type other
// than milestone-based).
func (om *oracleManager) getLatestVerdict(ctx context.Context, conditionID uuid.UUID) (*vdapi.Verdict, error) {
	var verdicts []*vdapi.Verdict
	err := om.p.DB().WithContext(ctx).
		Where("condition = ?", conditionID).
		Order("milestone DESC").
		Limit(1).
		Find(&verdicts).
		Error
	if err != nil || len(verdicts) == 0 {
		return nil, err
	}
	return verdicts[0], nil
}

func (om *oracleManager) ListSources(ctx context.Context) ([]*vdapi.OracleSource, error) {
	sources := []*vdapi.OracleSource{}
	err := om.p.DB().WithContext(ctx).Order("identity").Find(&sources).Error
	return sources, err
}

// See docs in components package
func (om *oracleManager) HasAttestations(ctx context.Context, dbTX persistence.DBTX, conditionID uuid.UUID) (bool, error) {
	var ids []uuid.UUID
	err := dbTX.DB().WithContext(ctx).
		Model(&vdapi.Attestation{}).
		Where("condition = ?", conditionID).
		Limit(1).
		Pluck("id", &ids).
		Error
	return len(ids) > 0, err
}

func (om *oracleManager) queryAttestations(ctx context.Context, conditionID uuid.UUID) ([]*vdapi.Attestation, error) {
	atts := []*vdapi.Attestation{}
	err := om.p.DB().WithContext(ctx).
		Where("condition = ?", conditionID).
		Order("milestone").
		Order("source").
		Find(&atts).
		Error
	return atts, err
}

func (om *oracleManager) pruneLoop() {
	defer close(om.pruneDone)
	ticker := time.NewTicker(om.pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			pruned, err := om.pruneAttestations(om.bgCtx)
			if err != nil {
				log.L(om.bgCtx).Errorf("Attestation prune failed (will retry): %s", err)
			} else if pruned > 0 {
				log.L(om.bgCtx).Infof("Pruned %d attestations past retention", pruned)
			}
		case <-om.bgCtx.Done():
			return
		}
	}
}

// pruneAttestations removes attestations past retention for conditions in a
// terminal status. Triggered and disputed conditions keep theirs - the
// dispute window is still open and re-attestation needs the history.
func (om *oracleManager) pruneAttestations(ctx context.Context) (int64, error) {
	cutoff := vdtypes.Timestamp(time.Now().Add(-om.attestationRetention).UnixNano())
	settled := om.p.DB().
		Table("conditions").
		Select("id").
		Where("status IN (?)", []string{
			string(vdapi.ConditionStatusExecuted),
			string(vdapi.ConditionStatusExpired),
			string(vdapi.ConditionStatusCancelled),
		})
	res := om.p.DB().WithContext(ctx).
		Where("received < ?", cutoff).
		Where("condition IN (?)", settled).
		Delete(&vdapi.Attestation{})
	return res.RowsAffected, res.Error
}
