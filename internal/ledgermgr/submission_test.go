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
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridict-io/veridict/pkg/persistence"
	"github.com/veridict-io/veridict/pkg/vdapi"
	"github.com/veridict-io/veridict/pkg/vdconf"
	"github.com/veridict-io/veridict/pkg/vdtypes"
)

func lockStakeIntent(condition uuid.UUID, amount int64, ref string) *vdapi.LedgerIntent {
	return &vdapi.LedgerIntent{
		Type:      vdapi.IntentLockStake.Enum(),
		Condition: condition,
		Ledger:    "chain1",
		Address:   "staker1",
		Token:     "coin",
		Amount:    vdtypes.NewBigInt(amount),
		Ref:       ref,
	}
}

func TestSubmitAndTrackThroughFinality(t *testing.T) {
	ctx, lm, _, done := newTestLedgerManager(t, true, map[string]*vdconf.LedgerConfig{
		"chain1": embeddedLedgerConf(map[string]map[string]string{
			"staker1": {"coin": "1000"},
		}),
	})
	defer done()

	condition := uuid.New()
	var sub *vdapi.LedgerSubmission
	err := lm.p.Transaction(ctx, func(ctx context.Context, dbTX persistence.DBTX) (err error) {
		sub, err = lm.SubmitAndTrack(ctx, dbTX, lockStakeIntent(condition, 400, "lock1"))
		return err
	})
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, vdapi.SubmissionPending, sub.Status.V())

	final, err := lm.WaitFinal(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, vdapi.SubmissionConfirmed, final.Status.V())
	assert.NotEmpty(t, final.TxRef)
	assert.GreaterOrEqual(t, final.Confirmations, 2)

	el := lm.Embedded("chain1")
	assert.Equal(t, "600", el.Balance("coin", "staker1").String())
	assert.Equal(t, "400", el.EscrowBalance("coin", condition).String())

	// a second wait finds the terminal row without a waiter
	again, err := lm.WaitFinal(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, vdapi.SubmissionConfirmed, again.Status.V())
	assert.Equal(t, final.TxRef, again.TxRef)
}

func TestSubmitRevertFailsAsync(t *testing.T) {
	ctx, lm, _, done := newTestLedgerManager(t, true, map[string]*vdconf.LedgerConfig{
		"chain1": embeddedLedgerConf(map[string]map[string]string{
			"staker1": {"coin": "100"},
		}),
	})
	defer done()

	var sub *vdapi.LedgerSubmission
	err := lm.p.Transaction(ctx, func(ctx context.Context, dbTX persistence.DBTX) (err error) {
		sub, err = lm.SubmitAndTrack(ctx, dbTX, lockStakeIntent(uuid.New(), 400, "lock1"))
		return err
	})
	require.NoError(t, err)

	final, err := lm.WaitFinal(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, vdapi.SubmissionFailed, final.Status.V())
	assert.Regexp(t, "VD010604", final.Error)
	assert.Regexp(t, "insufficient coin balance", final.Error)
}

func TestWaitFinalNotFound(t *testing.T) {
	ctx, lm, _, done := newTestLedgerManager(t, true, map[string]*vdconf.LedgerConfig{
		"chain1": embeddedLedgerConf(nil),
	})
	defer done()

	_, err := lm.WaitFinal(ctx, uuid.New())
	assert.Regexp(t, "VD010610", err)
}

func TestRecoverInflightSubmissions(t *testing.T) {
	ctx, lm, _, done := newTestLedgerManager(t, true, map[string]*vdconf.LedgerConfig{
		"chain1": embeddedLedgerConf(map[string]map[string]string{
			"staker1": {"coin": "1000"},
		}),
	})
	defer done()

	// simulate rows left behind by a previous run - one resubmittable, one
	// referencing a ledger this node no longer has
	now := vdtypes.TimestampNow()
	recoverable := &vdapi.LedgerSubmission{
		ID:         uuid.New(),
		Ledger:     "chain1",
		IntentType: vdapi.IntentLockStake.Enum(),
		Intent:     lockStakeIntent(uuid.New(), 250, "recover1"),
		Status:     vdapi.SubmissionPending.Enum(),
		Created:    now,
		Updated:    now,
	}
	orphaned := &vdapi.LedgerSubmission{
		ID:         uuid.New(),
		Ledger:     "ghostchain",
		IntentType: vdapi.IntentLockStake.Enum(),
		Intent:     lockStakeIntent(uuid.New(), 10, "orphan1"),
		Status:     vdapi.SubmissionSubmitted.Enum(),
		Created:    now,
		Updated:    now,
	}
	require.NoError(t, lm.p.DB().WithContext(ctx).Create(recoverable).Error)
	require.NoError(t, lm.p.DB().WithContext(ctx).Create(orphaned).Error)

	require.NoError(t, lm.recoverInflightSubmissions(ctx))

	final, err := lm.WaitFinal(ctx, recoverable.ID)
	require.NoError(t, err)
	assert.Equal(t, vdapi.SubmissionConfirmed, final.Status.V())
}

func TestSubmitUnknownLedger(t *testing.T) {
	ctx, lm, _, done := newTestLedgerManager(t, false, map[string]*vdconf.LedgerConfig{
		"chain1": embeddedLedgerConf(nil),
	})
	defer done()

	intent := lockStakeIntent(uuid.New(), 10, "")
	intent.Ledger = "ghostchain"
	_, err := lm.SubmitAndTrack(ctx, nil, intent)
	assert.Regexp(t, "VD010600", err)
}

func TestSubmitBadAmount(t *testing.T) {
	ctx, lm, _, done := newTestLedgerManager(t, false, map[string]*vdconf.LedgerConfig{
		"chain1": embeddedLedgerConf(nil),
	})
	defer done()

	intent := lockStakeIntent(uuid.New(), 10, "")
	intent.Amount = nil
	_, err := lm.SubmitAndTrack(ctx, nil, intent)
	assert.Regexp(t, "VD010011", err)
}

func TestSubmitInsertFails(t *testing.T) {
	ctx, lm, mc, done := newTestLedgerManager(t, false, map[string]*vdconf.LedgerConfig{
		"chain1": embeddedLedgerConf(nil),
	}, func(mc *mockComponents) {
		mc.noInit = true
		mc.db.ExpectQuery("SELECT.*ledger_submissions").WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mc.db.ExpectBegin()
		mc.db.ExpectExec("INSERT.*ledger_submissions").WillReturnError(fmt.Errorf("pop"))
		mc.db.ExpectRollback()
	})
	defer done()

	_, err := lm.PreInit(mc.allComponents)
	require.NoError(t, err)
	require.NoError(t, lm.PostInit(mc.allComponents))
	require.NoError(t, lm.Start())

	err = lm.p.Transaction(ctx, func(ctx context.Context, dbTX persistence.DBTX) error {
		_, err := lm.SubmitAndTrack(ctx, dbTX, lockStakeIntent(uuid.New(), 10, "lock1"))
		return err
	})
	assert.Regexp(t, "pop", err)
}
