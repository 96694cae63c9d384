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
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/veridict-io/veridict/pkg/persistence"
	"github.com/veridict-io/veridict/pkg/vdapi"
	"github.com/veridict-io/veridict/pkg/vdtypes"
)

// firedVerdict builds a quorum verdict against the condition's stored
// criteria hash, the way the oracle manager hands them over.
func firedVerdict(cond *vdapi.Condition, milestone int) *vdapi.Verdict {
	return &vdapi.Verdict{
		Condition:         *cond.ID,
		Milestone:         milestone,
		Outcome:           vdapi.OutcomeFired,
		Confidence:        100,
		Agreeing:          2,
		Responding:        2,
		AttestationDigest: vdtypes.RandBytes32(),
		CriteriaHash:      *cond.CriteriaHash,
		Evaluated:         vdtypes.TimestampNow(),
	}
}

func handleVerdict(t *testing.T, cm *conditionManager, verdict *vdapi.Verdict) error {
	t.Helper()
	return cm.p.Transaction(context.Background(), func(ctx context.Context, dbTX persistence.DBTX) error {
		return cm.HandleVerdict(ctx, dbTX, verdict)
	})
}

func loadDisputes(t *testing.T, ctx context.Context, cm *conditionManager, condID uuid.UUID) []*vdapi.Dispute {
	var disputes []*vdapi.Dispute
	require.NoError(t, cm.p.DB().WithContext(ctx).Where("condition = ?", condID).Order("opened").Find(&disputes).Error)
	return disputes
}

// milestoneCondition seeds a three-tranche milestone condition.
func milestoneCondition(t *testing.T, ctx context.Context, cm *conditionManager, mods ...func(c *vdapi.Condition)) *vdapi.Condition {
	base := func(c *vdapi.Condition) {
		c.ConditionType = vdapi.ConditionTypeMilestoneBased.Enum()
		c.Beneficiaries = []*vdapi.Beneficiary{
			{Ledger: "node2", Address: "0x8a4b6f9d53ca4e9a26f49d74e8f34b26a25ad11", Token: "USDX", MaxAmount: vdtypes.NewBigInt(200), Milestone: 0},
			{Ledger: "node2", Address: "0x8a4b6f9d53ca4e9a26f49d74e8f34b26a25ad11", Token: "USDX", MaxAmount: vdtypes.NewBigInt(200), Milestone: 1},
			{Ledger: "node2", Address: "0x8a4b6f9d53ca4e9a26f49d74e8f34b26a25ad11", Token: "USDX", MaxAmount: vdtypes.NewBigInt(100), Milestone: 2},
		}
	}
	return writeTestCondition(t, ctx, cm.p, append([]func(c *vdapi.Condition){base}, mods...)...)
}

func TestVerdictTriggersCondition(t *testing.T) {
	ctx, cm, mc, done := newTestConditionManager(t, true, testCondConf(), func(mc *mockComponents) {
		mc.expectRelaySends()
		mc.settlement.On("Execute", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	})
	defer done()

	cond := writeTestCondition(t, ctx, cm.p)
	verdict := firedVerdict(cond, 0)
	require.NoError(t, handleVerdict(t, cm, verdict))

	stored := loadCondition(t, ctx, cm.p, *cond.ID)
	assert.Equal(t, vdapi.ConditionStatusTriggered, stored.Status.V())
	require.NotNil(t, stored.SettlementProof)
	assert.True(t, stored.SettlementProof.Equals(&verdict.AttestationDigest))

	send := <-mc.sent
	assert.Equal(t, vdapi.RMTStatusUpdate, send.MessageType)
	var update vdapi.StatusUpdateV1
	require.NoError(t, json.Unmarshal(send.Payload, &update))
	assert.Equal(t, vdapi.ConditionStatusTriggered, update.Status.V())
	require.NotNil(t, update.SettlementProof)
	assert.True(t, update.SettlementProof.Equals(&verdict.AttestationDigest))

	// the post-commit cache refresh serves the new status
	cached, err := cm.GetCondition(ctx, *cond.ID)
	require.NoError(t, err)
	assert.Equal(t, vdapi.ConditionStatusTriggered, cached.Status.V())
}

func TestVerdictNotFiredStaysActive(t *testing.T) {
	ctx, cm, _, done := newTestConditionManager(t, true, testCondConf())
	defer done()

	cond := writeTestCondition(t, ctx, cm.p)
	verdict := firedVerdict(cond, 0)
	verdict.Outcome = vdapi.OutcomeNotFired
	require.NoError(t, handleVerdict(t, cm, verdict))

	stored := loadCondition(t, ctx, cm.p, *cond.ID)
	assert.Equal(t, vdapi.ConditionStatusActive, stored.Status.V())
	assert.Nil(t, stored.SettlementProof)
}

func TestVerdictGuards(t *testing.T) {
	ctx, cm, _, done := newTestConditionManager(t, true, testCondConf())
	defer done()

	// criteria hash drift between evaluation and the stored condition
	cond := writeTestCondition(t, ctx, cm.p)
	drifted := firedVerdict(cond, 0)
	drifted.CriteriaHash = vdtypes.RandBytes32()
	err := handleVerdict(t, cm, drifted)
	assert.Regexp(t, "VD010915", err)

	// not the source node for the condition
	mirror := writeTestCondition(t, ctx, cm.p, func(c *vdapi.Condition) {
		c.SourceLedger = "node2"
	})
	err = handleVerdict(t, cm, firedVerdict(mirror, 0))
	assert.Regexp(t, "VD010916", err)

	// unknown condition
	orphan := firedVerdict(cond, 0)
	orphan.Condition = uuid.New()
	err = handleVerdict(t, cm, orphan)
	assert.Regexp(t, "VD010900", err)

	// terminal conditions ignore verdicts quietly
	executed := writeTestCondition(t, ctx, cm.p, func(c *vdapi.Condition) {
		c.Status = vdapi.ConditionStatusExecuted.Enum()
	})
	require.NoError(t, handleVerdict(t, cm, firedVerdict(executed, 0)))
}

func TestVerdictReplayWhileTriggered(t *testing.T) {
	ctx, cm, _, done := newTestConditionManager(t, true, testCondConf())
	defer done()

	proof := vdtypes.RandBytes32()
	cond := writeTestCondition(t, ctx, cm.p, func(c *vdapi.Condition) {
		c.Status = vdapi.ConditionStatusTriggered.Enum()
		c.SettlementProof = &proof
	})
	replay := firedVerdict(cond, 0)
	replay.AttestationDigest = proof
	require.NoError(t, handleVerdict(t, cm, replay))

	assert.Empty(t, loadDisputes(t, ctx, cm, *cond.ID))
	stored := loadCondition(t, ctx, cm.p, *cond.ID)
	assert.Equal(t, vdapi.ConditionStatusTriggered, stored.Status.V())
}

func TestVerdictConflictOpensDispute(t *testing.T) {
	ctx, cm, mc, done := newTestConditionManager(t, true, testCondConf(), func(mc *mockComponents) {
		mc.expectRelaySends()
	})
	defer done()

	proof := vdtypes.RandBytes32()
	cond := writeTestCondition(t, ctx, cm.p, func(c *vdapi.Condition) {
		c.Status = vdapi.ConditionStatusTriggered.Enum()
		c.SettlementProof = &proof
	})
	conflicting := firedVerdict(cond, 0)
	require.NoError(t, handleVerdict(t, cm, conflicting))

	stored := loadCondition(t, ctx, cm.p, *cond.ID)
	assert.Equal(t, vdapi.ConditionStatusDisputed, stored.Status.V())

	disputes := loadDisputes(t, ctx, cm, *cond.ID)
	require.Len(t, disputes, 1)
	assert.True(t, disputes[0].FirstDigest.Equals(&proof))
	assert.True(t, disputes[0].ConflictDigest.Equals(&conflicting.AttestationDigest))
	assert.Nil(t, disputes[0].Resolved)

	send := <-mc.sent
	var update vdapi.StatusUpdateV1
	require.NoError(t, json.Unmarshal(send.Payload, &update))
	assert.Equal(t, vdapi.ConditionStatusDisputed, update.Status.V())
}

func TestMilestoneTranchesReleaseInOrder(t *testing.T) {
	ctx, cm, mc, done := newTestConditionManager(t, true, testCondConf(), func(mc *mockComponents) {
		mc.expectRelaySends()
		mc.settlement.On("Execute", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Times(3)
	})
	defer done()

	cond := milestoneCondition(t, ctx, cm)

	// milestone 1 at quorum before milestone 0 - held, nothing changes
	require.NoError(t, handleVerdict(t, cm, firedVerdict(cond, 1)))
	stored := loadCondition(t, ctx, cm.p, *cond.ID)
	assert.Equal(t, 0, stored.MilestonesReleased)
	assert.Len(t, mc.sent, 0)

	// milestone 0 releases the first tranche, status stays active
	require.NoError(t, handleVerdict(t, cm, firedVerdict(cond, 0)))
	stored = loadCondition(t, ctx, cm.p, *cond.ID)
	assert.Equal(t, vdapi.ConditionStatusActive, stored.Status.V())
	assert.Equal(t, 1, stored.MilestonesReleased)
	var update vdapi.StatusUpdateV1
	require.NoError(t, json.Unmarshal((<-mc.sent).Payload, &update))
	assert.Equal(t, vdapi.ConditionStatusActive, update.Status.V())
	assert.Equal(t, 1, update.MilestonesReleased)

	// milestone 1 again, in turn this time
	cond.MilestonesReleased = 1
	require.NoError(t, handleVerdict(t, cm, firedVerdict(cond, 1)))
	stored = loadCondition(t, ctx, cm.p, *cond.ID)
	assert.Equal(t, vdapi.ConditionStatusActive, stored.Status.V())
	assert.Equal(t, 2, stored.MilestonesReleased)
	<-mc.sent

	// the final milestone fires the condition as a whole
	cond.MilestonesReleased = 2
	final := firedVerdict(cond, 2)
	require.NoError(t, handleVerdict(t, cm, final))
	stored = loadCondition(t, ctx, cm.p, *cond.ID)
	assert.Equal(t, vdapi.ConditionStatusTriggered, stored.Status.V())
	assert.Equal(t, 3, stored.MilestonesReleased)
	require.NotNil(t, stored.SettlementProof)
	assert.True(t, stored.SettlementProof.Equals(&final.AttestationDigest))
}

func TestMilestoneStaleVerdictDisputes(t *testing.T) {
	ctx, cm, _, done := newTestConditionManager(t, true, testCondConf(), func(mc *mockComponents) {
		mc.expectRelaySends()
	})
	defer done()

	cond := milestoneCondition(t, ctx, cm, func(c *vdapi.Condition) {
		c.MilestonesReleased = 1
	})
	// the verdict row the released tranche was accepted under
	accepted := firedVerdict(cond, 0)
	require.NoError(t, cm.p.DB().WithContext(ctx).Create(accepted).Error)

	// a conflicting quorum forms for the already-released milestone
	conflicting := firedVerdict(cond, 0)
	require.NoError(t, handleVerdict(t, cm, conflicting))

	stored := loadCondition(t, ctx, cm.p, *cond.ID)
	assert.Equal(t, vdapi.ConditionStatusDisputed, stored.Status.V())
	disputes := loadDisputes(t, ctx, cm, *cond.ID)
	require.Len(t, disputes, 1)
	assert.True(t, disputes[0].FirstDigest.Equals(&accepted.AttestationDigest))
	assert.True(t, disputes[0].ConflictDigest.Equals(&conflicting.AttestationDigest))
}

func TestDisputedVerdictReconfirmsTrigger(t *testing.T) {
	ctx, cm, _, done := newTestConditionManager(t, true, testCondConf(), func(mc *mockComponents) {
		mc.expectRelaySends()
		mc.settlement.On("Execute", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	})
	defer done()

	proof := vdtypes.RandBytes32()
	cond := writeTestCondition(t, ctx, cm.p, func(c *vdapi.Condition) {
		c.Status = vdapi.ConditionStatusDisputed.Enum()
		c.SettlementProof = &proof
	})
	require.NoError(t, cm.p.DB().WithContext(ctx).Create(&vdapi.Dispute{
		ID: uuid.New(), Condition: *cond.ID, Milestone: 0,
		FirstDigest: proof, ConflictDigest: vdtypes.RandBytes32(), Opened: vdtypes.TimestampNow(),
	}).Error)

	corrected := firedVerdict(cond, 0)
	require.NoError(t, handleVerdict(t, cm, corrected))

	stored := loadCondition(t, ctx, cm.p, *cond.ID)
	assert.Equal(t, vdapi.ConditionStatusTriggered, stored.Status.V())
	// the settlement proof follows the corrected digest
	assert.True(t, stored.SettlementProof.Equals(&corrected.AttestationDigest))

	disputes := loadDisputes(t, ctx, cm, *cond.ID)
	require.Len(t, disputes, 1)
	require.NotNil(t, disputes[0].Resolved)
	assert.Equal(t, "re-attestation", disputes[0].Resolution)
}

func TestDisputedVerdictVoidsTrigger(t *testing.T) {
	ctx, cm, _, done := newTestConditionManager(t, true, testCondConf(), func(mc *mockComponents) {
		mc.expectRelaySends()
	})
	defer done()

	proof := vdtypes.RandBytes32()
	cond := writeTestCondition(t, ctx, cm.p, func(c *vdapi.Condition) {
		c.Status = vdapi.ConditionStatusDisputed.Enum()
		c.SettlementProof = &proof
	})

	voided := firedVerdict(cond, 0)
	voided.Outcome = vdapi.OutcomeNotFired
	require.NoError(t, handleVerdict(t, cm, voided))

	stored := loadCondition(t, ctx, cm.p, *cond.ID)
	assert.Equal(t, vdapi.ConditionStatusActive, stored.Status.V())
	assert.Nil(t, stored.SettlementProof)
}

func TestDisputedMilestoneRollsBack(t *testing.T) {
	ctx, cm, _, done := newTestConditionManager(t, true, testCondConf(), func(mc *mockComponents) {
		mc.expectRelaySends()
	})
	defer done()

	// tranche 0 released, then disputed, and re-attestation says not fired
	cond := milestoneCondition(t, ctx, cm, func(c *vdapi.Condition) {
		c.Status = vdapi.ConditionStatusDisputed.Enum()
		c.MilestonesReleased = 1
	})
	voided := firedVerdict(cond, 0)
	voided.Outcome = vdapi.OutcomeNotFired
	require.NoError(t, handleVerdict(t, cm, voided))

	stored := loadCondition(t, ctx, cm.p, *cond.ID)
	assert.Equal(t, vdapi.ConditionStatusActive, stored.Status.V())
	// the tranche count rewinds so a genuine re-fire can release it again
	assert.Equal(t, 0, stored.MilestonesReleased)
}

func TestCompleteExecution(t *testing.T) {
	ctx, cm, _, done := newTestConditionManager(t, true, testCondConf(), func(mc *mockComponents) {
		mc.expectRelaySends()
	})
	defer done()

	cond := writeTestCondition(t, ctx, cm.p, func(c *vdapi.Condition) {
		c.Status = vdapi.ConditionStatusTriggered.Enum()
	})

	// partial progress reports change nothing
	err := cm.p.Transaction(ctx, func(ctx context.Context, dbTX persistence.DBTX) error {
		return cm.CompleteExecution(ctx, dbTX, &vdapi.ExecutionResult{Condition: *cond.ID, Complete: false})
	})
	require.NoError(t, err)
	assert.Equal(t, vdapi.ConditionStatusTriggered, loadCondition(t, ctx, cm.p, *cond.ID).Status.V())

	// completion lands the terminal state
	err = cm.p.Transaction(ctx, func(ctx context.Context, dbTX persistence.DBTX) error {
		return cm.CompleteExecution(ctx, dbTX, &vdapi.ExecutionResult{Condition: *cond.ID, Complete: true})
	})
	require.NoError(t, err)
	assert.Equal(t, vdapi.ConditionStatusExecuted, loadCondition(t, ctx, cm.p, *cond.ID).Status.V())

	// and replays of it are quiet
	err = cm.p.Transaction(ctx, func(ctx context.Context, dbTX persistence.DBTX) error {
		return cm.CompleteExecution(ctx, dbTX, &vdapi.ExecutionResult{Condition: *cond.ID, Complete: true})
	})
	require.NoError(t, err)
}

func TestResolveDisputeUphold(t *testing.T) {
	ctx, cm, _, done := newTestConditionManager(t, true, testCondConf(), func(mc *mockComponents) {
		mc.expectRelaySends()
		mc.settlement.On("RecheckNow").Return().Once()
	})
	defer done()

	proof := vdtypes.RandBytes32()
	cond := writeTestCondition(t, ctx, cm.p, func(c *vdapi.Condition) {
		c.Status = vdapi.ConditionStatusDisputed.Enum()
		c.SettlementProof = &proof
	})
	require.NoError(t, cm.p.DB().WithContext(ctx).Create(&vdapi.Dispute{
		ID: uuid.New(), Condition: *cond.ID, Milestone: 0,
		FirstDigest: proof, ConflictDigest: vdtypes.RandBytes32(), Opened: vdtypes.TimestampNow(),
	}).Error)

	resolved, err := cm.ResolveDispute(ctx, &vdapi.GovernanceRuling{
		Condition: *cond.ID,
		Ruling:    vdapi.RulingUphold.Enum(),
		Reason:    "sources re-verified",
	})
	require.NoError(t, err)
	assert.Equal(t, vdapi.ConditionStatusTriggered, resolved.Status.V())

	disputes := loadDisputes(t, ctx, cm, *cond.ID)
	require.Len(t, disputes, 1)
	require.NotNil(t, disputes[0].Resolved)
	assert.Equal(t, "ruling:uphold (sources re-verified)", disputes[0].Resolution)
}

func TestResolveDisputeUpholdTranche(t *testing.T) {
	ctx, cm, _, done := newTestConditionManager(t, true, testCondConf(), func(mc *mockComponents) {
		mc.expectRelaySends()
		mc.settlement.On("RecheckNow").Return().Once()
	})
	defer done()

	// a milestone tranche dispute has no settlement proof - upholding
	// resumes Active with the release intact
	cond := milestoneCondition(t, ctx, cm, func(c *vdapi.Condition) {
		c.Status = vdapi.ConditionStatusDisputed.Enum()
		c.MilestonesReleased = 1
	})
	resolved, err := cm.ResolveDispute(ctx, &vdapi.GovernanceRuling{
		Condition: *cond.ID,
		Ruling:    vdapi.RulingUphold.Enum(),
	})
	require.NoError(t, err)
	assert.Equal(t, vdapi.ConditionStatusActive, resolved.Status.V())
	assert.Equal(t, 1, loadCondition(t, ctx, cm.p, *cond.ID).MilestonesReleased)
}

func TestResolveDisputeReject(t *testing.T) {
	ctx, cm, _, done := newTestConditionManager(t, true, testCondConf(), func(mc *mockComponents) {
		mc.expectRelaySends()
		mc.settlement.On("Refund", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
		mc.settlement.On("RecheckNow").Return().Once()
	})
	defer done()

	proof := vdtypes.RandBytes32()
	cond := writeTestCondition(t, ctx, cm.p, func(c *vdapi.Condition) {
		c.Status = vdapi.ConditionStatusDisputed.Enum()
		c.SettlementProof = &proof
	})
	require.NoError(t, cm.p.DB().WithContext(ctx).Create(&vdapi.Dispute{
		ID: uuid.New(), Condition: *cond.ID, Milestone: 0,
		FirstDigest: proof, ConflictDigest: vdtypes.RandBytes32(), Opened: vdtypes.TimestampNow(),
	}).Error)

	resolved, err := cm.ResolveDispute(ctx, &vdapi.GovernanceRuling{
		Condition: *cond.ID,
		Ruling:    vdapi.RulingReject.Enum(),
	})
	require.NoError(t, err)
	assert.Equal(t, vdapi.ConditionStatusExpired, resolved.Status.V())

	disputes := loadDisputes(t, ctx, cm, *cond.ID)
	require.Len(t, disputes, 1)
	assert.Equal(t, "ruling:reject", disputes[0].Resolution)
}

func TestResolveDisputeValidation(t *testing.T) {
	ctx, cm, _, done := newTestConditionManager(t, true, testCondConf())
	defer done()

	cond := writeTestCondition(t, ctx, cm.p)

	// unknown ruling value
	_, err := cm.ResolveDispute(ctx, &vdapi.GovernanceRuling{
		Condition: *cond.ID,
		Ruling:    vdapi.DisputeRuling("overturn").Enum(),
	})
	assert.Regexp(t, "VD010918", err)

	// not effective yet
	future := vdtypes.Timestamp(time.Now().Add(time.Hour).UnixNano())
	_, err = cm.ResolveDispute(ctx, &vdapi.GovernanceRuling{
		Condition: *cond.ID,
		Ruling:    vdapi.RulingUphold.Enum(),
		Effective: &future,
	})
	assert.Regexp(t, "VD010924", err)

	// not disputed
	_, err = cm.ResolveDispute(ctx, &vdapi.GovernanceRuling{
		Condition: *cond.ID,
		Ruling:    vdapi.RulingUphold.Enum(),
	})
	assert.Regexp(t, "VD010909", err)

	// not the source node
	mirror := writeTestCondition(t, ctx, cm.p, func(c *vdapi.Condition) {
		c.SourceLedger = "node2"
		c.Status = vdapi.ConditionStatusDisputed.Enum()
	})
	_, err = cm.ResolveDispute(ctx, &vdapi.GovernanceRuling{
		Condition: *mirror.ID,
		Ruling:    vdapi.RulingUphold.Enum(),
	})
	assert.Regexp(t, "VD010916", err)
}
