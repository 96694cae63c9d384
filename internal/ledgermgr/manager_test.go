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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridict-io/veridict/mocks/componentsmocks"
	"github.com/veridict-io/veridict/pkg/confutil"
	"github.com/veridict-io/veridict/pkg/persistence"
	"github.com/veridict-io/veridict/pkg/persistence/mockpersistence"
	"github.com/veridict-io/veridict/pkg/vdapi"
	"github.com/veridict-io/veridict/pkg/vdconf"
)

type mockComponents struct {
	noInit        bool
	db            sqlmock.Sqlmock
	allComponents *componentsmocks.AllComponents
	governor      *componentsmocks.Governor
}

func newTestLedgerManager(t *testing.T, realDB bool, conf map[string]*vdconf.LedgerConfig, extraSetup ...func(mc *mockComponents)) (context.Context, *ledgerManager, *mockComponents, func()) {
	ctx, cancelCtx := context.WithCancel(context.Background())

	mc := &mockComponents{
		allComponents: componentsmocks.NewAllComponents(t),
		governor:      componentsmocks.NewGovernor(t),
	}
	mc.allComponents.On("NodeName").Return("node1").Maybe()
	mc.allComponents.On("Governor").Return(mc.governor).Maybe()

	var p persistence.Persistence
	var err error
	var pDone func()
	if realDB {
		p, pDone, err = persistence.NewUnitTestPersistence(ctx, "ledgermgr")
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
	mc.allComponents.On("Persistence").Return(p)

	for _, fn := range extraSetup {
		fn(mc)
	}

	if !realDB && !mc.noInit {
		// Start always runs the in-flight recovery scan
		mc.db.ExpectQuery("SELECT.*ledger_submissions").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	}

	lm := NewLedgerManager(ctx, conf)

	if !mc.noInit {
		initData, err := lm.PreInit(mc.allComponents)
		require.NoError(t, err)
		assert.NotNil(t, initData)

		err = lm.PostInit(mc.allComponents)
		require.NoError(t, err)

		err = lm.Start()
		require.NoError(t, err)
	}

	return ctx, lm.(*ledgerManager), mc, func() {
		lm.Stop()
		cancelCtx()
		pDone()
	}
}

func embeddedLedgerConf(balances map[string]map[string]string) *vdconf.LedgerConfig {
	return &vdconf.LedgerConfig{
		FinalityDepth:      confutil.P(2),
		StatusPollInterval: confutil.P("1ms"),
		Embedded: vdconf.EmbeddedLedgerConfig{
			BlockInterval:   confutil.P("1ms"),
			InitialBalances: balances,
		},
	}
}

func TestConfiguredLedgers(t *testing.T) {
	ctx, lm, _, done := newTestLedgerManager(t, false, map[string]*vdconf.LedgerConfig{
		"chain.beta":  embeddedLedgerConf(nil),
		"chain.alpha": embeddedLedgerConf(nil),
	})
	defer done()

	assert.Equal(t, []string{"chain.alpha", "chain.beta"}, lm.Ledgers())
	assert.True(t, lm.HasAdapter("chain.alpha"))
	assert.False(t, lm.HasAdapter("chain.gamma"))

	status, err := lm.Status(ctx, "chain.alpha")
	require.NoError(t, err)
	assert.Equal(t, "chain.alpha", status.Ledger)
	assert.Equal(t, LedgerTypeEmbedded, status.LedgerType)
	assert.Equal(t, 2, status.FinalityDepth)

	assert.NotNil(t, lm.Embedded("chain.alpha"))
	assert.Nil(t, lm.Embedded("chain.gamma"))
}

func TestStatusUnknownLedger(t *testing.T) {
	ctx, lm, _, done := newTestLedgerManager(t, false, map[string]*vdconf.LedgerConfig{})
	defer done()

	_, err := lm.Status(ctx, "nope")
	assert.Regexp(t, "VD010600", err)
}

func TestBadAdapterType(t *testing.T) {
	_, lm, mc, done := newTestLedgerManager(t, false, map[string]*vdconf.LedgerConfig{
		"broken": {Type: "carrier-pigeon"},
	}, func(mc *mockComponents) {
		mc.noInit = true
	})
	defer done()

	_, err := lm.PreInit(mc.allComponents)
	assert.Regexp(t, "VD010602", err)
}

func TestBadInitialBalance(t *testing.T) {
	_, lm, mc, done := newTestLedgerManager(t, false, map[string]*vdconf.LedgerConfig{
		"chain1": embeddedLedgerConf(map[string]map[string]string{
			"acct1": {"coin": "not a number"},
		}),
	}, func(mc *mockComponents) {
		mc.noInit = true
	})
	defer done()

	_, err := lm.PreInit(mc.allComponents)
	assert.Regexp(t, "VD010009", err)
}

func TestRemoteRequiresURL(t *testing.T) {
	_, lm, mc, done := newTestLedgerManager(t, false, map[string]*vdconf.LedgerConfig{
		"peer.chain": {Type: LedgerTypeRemote},
	}, func(mc *mockComponents) {
		mc.noInit = true
	})
	defer done()

	_, err := lm.PreInit(mc.allComponents)
	assert.Regexp(t, "VD010609", err)
}

func TestStartRecoveryScanFail(t *testing.T) {
	_, lm, mc, done := newTestLedgerManager(t, false, map[string]*vdconf.LedgerConfig{
		"chain1": embeddedLedgerConf(nil),
	}, func(mc *mockComponents) {
		mc.noInit = true
		mc.db.ExpectQuery("SELECT.*ledger_submissions").WillReturnError(fmt.Errorf("pop"))
	})
	defer done()

	_, err := lm.PreInit(mc.allComponents)
	require.NoError(t, err)
	err = lm.PostInit(mc.allComponents)
	require.NoError(t, err)

	err = lm.Start()
	assert.Regexp(t, "pop", err)
}

func TestSubmitBeforeStart(t *testing.T) {
	ctx, lm, mc, done := newTestLedgerManager(t, false, map[string]*vdconf.LedgerConfig{
		"chain1": embeddedLedgerConf(nil),
	}, func(mc *mockComponents) {
		mc.noInit = true
	})
	defer done()

	_, err := lm.PreInit(mc.allComponents)
	require.NoError(t, err)

	_, err = lm.SubmitAndTrack(ctx, nil, &vdapi.LedgerIntent{Ledger: "chain1"})
	assert.Regexp(t, "VD010608", err)
}
