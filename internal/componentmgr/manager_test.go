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

package componentmgr

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridict-io/veridict/pkg/confutil"
	"github.com/veridict-io/veridict/pkg/rpcclient"
	"github.com/veridict-io/veridict/pkg/vdapi"
	"github.com/veridict-io/veridict/pkg/vdconf"
	"github.com/veridict-io/veridict/pkg/vdtypes"
)

// We build a config that gets all the way through startup against an
// in-memory DB and an embedded ledger, with the RPC server on a random port.
func testConfig(t *testing.T) *vdconf.VeridictConfig {
	conf := &vdconf.VeridictConfig{
		NodeName: "node1",
		DB: vdconf.DBConfig{
			Type: "sqlite",
			SQLite: vdconf.SQLiteConfig{
				SQLDBConfig: vdconf.SQLDBConfig{
					DSN:           ":memory:",
					AutoMigrate:   confutil.P(true),
					MigrationsDir: "../../db/migrations/sqlite",
				},
			},
		},
		NodeKey: vdconf.NodeKeyConfig{
			Seed: confutil.P(vdtypes.RandHex(32)),
		},
		Ledgers: map[string]*vdconf.LedgerConfig{
			"node1": {Type: "embedded"},
		},
	}
	conf.RPCServer.HTTP.Address = confutil.P("127.0.0.1")
	conf.RPCServer.HTTP.Port = confutil.P(0)
	conf.RPCServer.WS.Disabled = true
	return conf
}

func TestStartupAndNodeInfo(t *testing.T) {
	ctx := context.Background()
	conf := testConfig(t)
	conf.Relay.Peers = map[string]*vdconf.PeerConfig{
		"node1": {SignerAddress: "ignored for the local node"},
		"node2": {
			Endpoint:      vdconf.HTTPClientConfig{URL: "http://127.0.0.1:1"},
			SignerAddress: "0x497EEdC4299Dea2f2A364Be10025d0aD0f702De3",
		},
	}

	cm := NewComponentManager(ctx, conf).(*componentManager)
	require.NoError(t, cm.Init())

	assert.Equal(t, "node1", cm.NodeName())
	assert.NotNil(t, cm.NodeKey())
	assert.NotNil(t, cm.Persistence())
	assert.NotNil(t, cm.RPCServer())
	assert.NotNil(t, cm.LedgerManager())
	assert.NotNil(t, cm.RelayManager())
	assert.NotNil(t, cm.OracleManager())
	assert.NotNil(t, cm.ConditionManager())
	assert.NotNil(t, cm.SettlementManager())
	assert.NotNil(t, cm.Governor())

	require.NoError(t, cm.StartManagers())
	require.NoError(t, cm.CompleteStart())
	defer cm.Stop()

	client, err := rpcclient.NewHTTPClient(ctx, &vdconf.HTTPClientConfig{
		URL: fmt.Sprintf("http://%s", cm.RPCServer().HTTPAddr()),
	})
	require.NoError(t, err)

	var nodeInfo *vdapi.NodeInfo
	rpcErr := client.CallRPC(ctx, &nodeInfo, "node_info")
	require.Nil(t, rpcErr)
	assert.Equal(t, "node1", nodeInfo.NodeName)
	assert.Equal(t, "node1", nodeInfo.Ledger)
	assert.Equal(t, cm.NodeKey().Address(), nodeInfo.SignerAddress)
	assert.Equal(t, []string{"node2"}, nodeInfo.Peers)
	assert.NotZero(t, nodeInfo.Started)

	// the manager RPC modules are registered on the same server
	var conditions []*vdapi.Condition
	rpcErr = client.CallRPC(ctx, &conditions, "cond_queryConditions", &vdapi.ConditionQuery{Limit: confutil.P(10)})
	require.Nil(t, rpcErr)
	assert.Empty(t, conditions)
}

func TestInitMissingNodeName(t *testing.T) {
	conf := testConfig(t)
	conf.NodeName = ""
	cm := NewComponentManager(context.Background(), conf)
	assert.Regexp(t, "VD010119", cm.Init())
}

func TestInitMissingOwnLedger(t *testing.T) {
	conf := testConfig(t)
	conf.Ledgers = map[string]*vdconf.LedgerConfig{
		"node2": {Type: "embedded"},
	}
	cm := NewComponentManager(context.Background(), conf)
	assert.Regexp(t, "VD010120.*node1", cm.Init())
}

func TestInitBadNodeKey(t *testing.T) {
	conf := testConfig(t)
	conf.NodeKey.Seed = confutil.P("not hex")
	cm := NewComponentManager(context.Background(), conf)
	assert.Regexp(t, "VD010101", cm.Init())
}

func TestInitBadDBType(t *testing.T) {
	conf := testConfig(t)
	conf.DB.Type = "wrongun"
	cm := NewComponentManager(context.Background(), conf)
	assert.Regexp(t, "VD010100", cm.Init())
	cm.Stop()
}

func TestInitBadLedgerType(t *testing.T) {
	conf := testConfig(t)
	conf.Ledgers["node1"].Type = "wrongun"
	conf.Ledgers["node2"] = &vdconf.LedgerConfig{Type: "embedded"}
	cm := NewComponentManager(context.Background(), conf)
	err := cm.Init()
	assert.Regexp(t, "VD010102", err)
	cm.Stop()
}

func TestInitBadPeerConfig(t *testing.T) {
	conf := testConfig(t)
	conf.Relay.Peers = map[string]*vdconf.PeerConfig{
		"node2": {Endpoint: vdconf.HTTPClientConfig{URL: "http://127.0.0.1:1"}},
	}
	cm := NewComponentManager(context.Background(), conf)
	assert.Regexp(t, "VD010104", cm.Init())
	cm.Stop()
}

func TestInitBadGovernorConfig(t *testing.T) {
	conf := testConfig(t)
	conf.Governor.VolumeCaps = map[string]string{"node1": "banana"}
	cm := NewComponentManager(context.Background(), conf)
	assert.Regexp(t, "VD010112.*VD011107", cm.Init())
	cm.Stop()
}
