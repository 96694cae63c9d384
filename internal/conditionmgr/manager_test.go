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
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/veridict-io/veridict/internal/components"
	"github.com/veridict-io/veridict/mocks/componentsmocks"
	"github.com/veridict-io/veridict/pkg/confutil"
	"github.com/veridict-io/veridict/pkg/persistence"
	"github.com/veridict-io/veridict/pkg/persistence/mockpersistence"
	"github.com/veridict-io/veridict/pkg/vdapi"
	"github.com/veridict-io/veridict/pkg/vdconf"
	"github.com/veridict-io/veridict/pkg/vdtypes"
)

func testCondConf() *vdconf.ConditionManagerConfig {
	return &vdconf.ConditionManagerConfig{
		// park the background loop - tests drive runScan directly
		ExpiryScanInterval: confutil.P("1h"),
	}
}

type mockComponents struct {
	noInit         bool
	db             sqlmock.Sqlmock
	allComponents  *componentsmocks.AllComponents
	relay          *componentsmocks.RelayManager
	oracle         *componentsmocks.OracleManager
	settlement     *componentsmocks.SettlementManager
	governor       *componentsmocks.Governor
	ledgers        *componentsmocks.LedgerManager
	createReceiver components.RelayReceiver
	statusReceiver components.RelayReceiver
	sent           chan *components.RelaySend
}

// expectRelaySends arms the relay mock to accept Send calls, capturing each
// queued message in order on the mc.sent channel.
func (mc *mockComponents) expectRelaySends() {
	mc.relay.On("Send", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			mc.sent <- args[2].(*components.RelaySend)
		}).
		Return(nil, nil).
		Maybe()
}

// expectCreateDefaults arms everything a plain two-ledger creation touches
// before the stake locks go out - criteria validation, quorum defaulting,
// governance admission and reachability checks.
func (mc *mockComponents) expectCreateDefaults() {
	mc.oracle.On("ValidateCriteria", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	mc.oracle.On("QuorumDefaults").Return(2, 67.0).Maybe()
	mc.governor.On("EffectiveParams", mock.Anything, mock.Anything).Return(nil, nil).Maybe()
	mc.governor.On("CheckAdmission", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	mc.relay.On("KnownPeer", "node2").Return(true).Maybe()
	mc.ledgers.On("HasAdapter", "node1").Return(true).Maybe()
}

// expectStakePlacement arms one-shot confirmation of every stake intent with
// the supplied transaction reference.
func (mc *mockComponents) expectStakePlacement(txRef string) {
	subID := uuid.New()
	mc.ledgers.On("SubmitAndTrack", mock.Anything, mock.Anything, mock.Anything).
		Return(&vdapi.LedgerSubmission{ID: subID, Status: vdapi.SubmissionSubmitted.Enum()}, nil).Maybe()
	mc.ledgers.On("WaitFinal", mock.Anything, subID).
		Return(&vdapi.LedgerSubmission{ID: subID, Status: vdapi.SubmissionConfirmed.Enum(), TxRef: txRef}, nil).Maybe()
}

func newTestConditionManager(t *testing.T, realDB bool, conf *vdconf.ConditionManagerConfig, extraSetup ...func(mc *mockComponents)) (context.Context, *conditionManager, *mockComponents, func()) {
	ctx, cancelCtx := context.WithCancel(context.Background())

	mc := &mockComponents{
		allComponents: componentsmocks.NewAllComponents(t),
		relay:         componentsmocks.NewRelayManager(t),
		oracle:        componentsmocks.NewOracleManager(t),
		settlement:    componentsmocks.NewSettlementManager(t),
		governor:      componentsmocks.NewGovernor(t),
		ledgers:       componentsmocks.NewLedgerManager(t),
		sent:          make(chan *components.RelaySend, 16),
	}
	mc.allComponents.On("NodeName").Return("node1").Maybe()
	mc.allComponents.On("RelayManager").Return(mc.relay).Maybe()
	mc.allComponents.On("OracleManager").Return(mc.oracle).Maybe()
	mc.allComponents.On("SettlementManager").Return(mc.settlement).Maybe()
	mc.allComponents.On("Governor").Return(mc.governor).Maybe()
	mc.allComponents.On("LedgerManager").Return(mc.ledgers).Maybe()
	mc.relay.On("RegisterReceiver", vdapi.RMTConditionCreate, mock.Anything).
		Run(func(args mock.Arguments) {
			mc.createReceiver = args[1].(components.RelayReceiver)
		}).
		Return(nil).
		Maybe()
	mc.relay.On("RegisterReceiver", vdapi.RMTStatusUpdate, mock.Anything).
		Run(func(args mock.Arguments) {
			mc.statusReceiver = args[1].(components.RelayReceiver)
		}).
		Return(nil).
		Maybe()

	var p persistence.Persistence
	var err error
	var pDone func()
	if realDB {
		p, pDone, err = persistence.NewUnitTestPersistence(ctx, "conditionmgr")
		require.NoError(t, err)
	} else {
		mp, err := mockpersistence.NewSQLMockProvider()
		require.NoError(t, err)
		p = mp.P
		mc.db = mp.Mock
		pDone = func() {
			require.NoError(t, mp.Mock.ExpectationsWereMet())
		}
	}
	mc.allComponents.On("Persistence").Return(p).Maybe()

	for _, fn := range extraSetup {
		fn(mc)
	}

	cm := NewConditionManager(ctx, conf)

	if !mc.noInit {
		initData, err := cm.PreInit(mc.allComponents)
		require.NoError(t, err)
		assert.NotNil(t, initData)

		err = cm.PostInit(mc.allComponents)
		require.NoError(t, err)
		require.NotNil(t, mc.createReceiver)
		require.NotNil(t, mc.statusReceiver)

		err = cm.Start()
		require.NoError(t, err)
	}

	return ctx, cm.(*conditionManager), mc, func() {
		cm.Stop()
		cancelCtx()
		pDone()
	}
}

// writeTestCondition seeds a condition row directly - Active, sourced on
// node1, two-source quorum at 67%, one stake on node1 paying out on node2.
func writeTestCondition(t *testing.T, ctx context.Context, p persistence.Persistence, mods ...func(c *vdapi.Condition)) *vdapi.Condition {
	id := uuid.New()
	criteria := `claim.temperature >= 30.0`
	hash := vdtypes.Bytes32Keccak([]byte(criteria))
	now := vdtypes.TimestampNow()
	cond := &vdapi.Condition{
		ID: &id,
		ConditionBase: vdapi.ConditionBase{
			ConditionType:    vdapi.ConditionTypeSingleSided.Enum(),
			Creator:          "0x11dd8f04f9ca976b4d4b8ecbbab09d925ef2a02e",
			ExecutionLedgers: []string{"node1", "node2"},
			Stakeholders: []*vdapi.Stakeholder{
				{Ledger: "node1", Address: "0x37b2a2a29d4b2bb19d3c8eb9d700ad73b766a87a", Token: "USDX", Amount: vdtypes.NewBigInt(500)},
			},
			Beneficiaries: []*vdapi.Beneficiary{
				{Ledger: "node2", Address: "0x8a4b6f9d53ca4e9a26f49d74e8f34b26a25ad11", Token: "USDX", MaxAmount: vdtypes.NewBigInt(500)},
			},
			TriggerCriteria: criteria,
			ExpirationTime:  vdtypes.Timestamp(time.Now().Add(time.Hour).UnixNano()),
		},
		SourceLedger:       "node1",
		CriteriaHash:       &hash,
		MinSources:         2,
		ConsensusThreshold: 67,
		Status:             vdapi.ConditionStatusActive.Enum(),
		Created:            now,
		Updated:            now,
	}
	for _, mod := range mods {
		mod(cond)
	}
	gh := vdapi.ConditionGlobalHash(cond)
	cond.GlobalHash = &gh
	require.NoError(t, p.DB().WithContext(ctx).Create(cond).Error)
	return cond
}

// testInput builds a creation payload matching the writeTestCondition shape.
func testInput(mods ...func(in *vdapi.ConditionInput)) *vdapi.ConditionInput {
	in := &vdapi.ConditionInput{
		ConditionBase: vdapi.ConditionBase{
			ConditionType:    vdapi.ConditionTypeSingleSided.Enum(),
			Creator:          "0x11dd8f04f9ca976b4d4b8ecbbab09d925ef2a02e",
			ExecutionLedgers: []string{"node1", "node2"},
			Stakeholders: []*vdapi.Stakeholder{
				{Ledger: "node1", Address: "0x37b2a2a29d4b2bb19d3c8eb9d700ad73b766a87a", Token: "USDX", Amount: vdtypes.NewBigInt(500)},
			},
			Beneficiaries: []*vdapi.Beneficiary{
				{Ledger: "node2", Address: "0x8a4b6f9d53ca4e9a26f49d74e8f34b26a25ad11", Token: "USDX", MaxAmount: vdtypes.NewBigInt(500)},
			},
			TriggerCriteria: `claim.temperature >= 30.0`,
			ExpirationTime:  vdtypes.Timestamp(time.Now().Add(time.Hour).UnixNano()),
		},
	}
	for _, mod := range mods {
		mod(in)
	}
	return in
}

func loadCondition(t *testing.T, ctx context.Context, p persistence.Persistence, id uuid.UUID) *vdapi.Condition {
	var conds []*vdapi.Condition
	require.NoError(t, p.DB().WithContext(ctx).Where("id = ?", id).Find(&conds).Error)
	require.Len(t, conds, 1)
	return conds[0]
}

func loadStakeLocks(t *testing.T, ctx context.Context, p persistence.Persistence, id uuid.UUID) []*vdapi.StakeLock {
	var locks []*vdapi.StakeLock
	require.NoError(t, p.DB().WithContext(ctx).Where("condition = ?", id).Order("stakeholder").Find(&locks).Error)
	return locks
}

func TestGetConditionCachesRow(t *testing.T) {
	ctx, cm, _, done := newTestConditionManager(t, true, testCondConf())
	defer done()

	cond := writeTestCondition(t, ctx, cm.p)

	got, err := cm.GetCondition(ctx, *cond.ID)
	require.NoError(t, err)
	assert.Equal(t, *cond.ID, *got.ID)
	assert.Equal(t, vdapi.ConditionStatusActive, got.Status.V())

	// delete the row underneath - the cached copy still serves
	require.NoError(t, cm.p.DB().WithContext(ctx).Delete(&vdapi.Condition{}, "id = ?", cond.ID).Error)
	cached, err := cm.GetCondition(ctx, *cond.ID)
	require.NoError(t, err)
	assert.Equal(t, *cond.ID, *cached.ID)
}

func TestGetConditionNotFound(t *testing.T) {
	ctx, cm, _, done := newTestConditionManager(t, true, testCondConf())
	defer done()

	_, err := cm.GetCondition(ctx, uuid.New())
	assert.Regexp(t, "VD010900", err)
}

func TestQueryConditionsFilters(t *testing.T) {
	ctx, cm, _, done := newTestConditionManager(t, true, testCondConf())
	defer done()

	active := writeTestCondition(t, ctx, cm.p)
	writeTestCondition(t, ctx, cm.p, func(c *vdapi.Condition) {
		c.Status = vdapi.ConditionStatusExecuted.Enum()
	})
	otherCreator := writeTestCondition(t, ctx, cm.p, func(c *vdapi.Condition) {
		c.Creator = "0x25fca7a3c458b9e6f58543d4f1b17cd15b16849b"
	})

	byStatus, err := cm.QueryConditions(ctx, &vdapi.ConditionQuery{
		Status: []vdtypes.Enum[vdapi.ConditionStatus]{vdapi.ConditionStatusActive.Enum()},
	})
	require.NoError(t, err)
	require.Len(t, byStatus, 2)

	creator := otherCreator.Creator
	byCreator, err := cm.QueryConditions(ctx, &vdapi.ConditionQuery{Creator: &creator})
	require.NoError(t, err)
	require.Len(t, byCreator, 1)
	assert.Equal(t, *otherCreator.ID, *byCreator[0].ID)

	condType := vdapi.ConditionTypeSingleSided.Enum()
	limited, err := cm.QueryConditions(ctx, &vdapi.ConditionQuery{
		Type:  &condType,
		Limit: confutil.P(1),
	})
	require.NoError(t, err)
	require.Len(t, limited, 1)

	all, err := cm.QueryConditions(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	_ = active
}

func TestRemoteLedgersDedups(t *testing.T) {
	id := uuid.New()
	cond := &vdapi.Condition{
		ID:           &id,
		SourceLedger: "node1",
		ConditionBase: vdapi.ConditionBase{
			ExecutionLedgers: []string{"node1", "node2", "node3", "node2"},
		},
	}
	assert.Equal(t, []string{"node2", "node3"}, remoteLedgers(cond, "node1"))
	// on a mirror the source is still excluded - it gets no echo of its own state
	assert.Equal(t, []string{"node3"}, remoteLedgers(cond, "node2"))
}

func TestTransitionTableTerminals(t *testing.T) {
	for _, status := range []vdapi.ConditionStatus{
		vdapi.ConditionStatusExecuted,
		vdapi.ConditionStatusExpired,
		vdapi.ConditionStatusCancelled,
	} {
		assert.True(t, isTerminal(status), string(status))
	}
	assert.False(t, isTerminal(vdapi.ConditionStatusActive))
	assert.True(t, transitionAllowed(vdapi.ConditionStatusDisputed, vdapi.ConditionStatusActive))
	assert.False(t, transitionAllowed(vdapi.ConditionStatusTriggered, vdapi.ConditionStatusActive))
	assert.False(t, transitionAllowed(vdapi.ConditionStatusExecuted, vdapi.ConditionStatusDisputed))
}
