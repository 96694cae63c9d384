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

package governor

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/veridict-io/veridict/pkg/confutil"
	"github.com/veridict-io/veridict/pkg/rpcclient"
	"github.com/veridict-io/veridict/pkg/rpcserver"
	"github.com/veridict-io/veridict/pkg/vdapi"
	"github.com/veridict-io/veridict/pkg/vdconf"
)

func hostGovRPC(t *testing.T, ctx context.Context, g *governor) (rpcclient.Client, func()) {
	conf := &vdconf.RPCServerConfig{}
	conf.HTTP.Address = confutil.P("127.0.0.1")
	conf.HTTP.Port = confutil.P(0)
	conf.WS.Disabled = true
	server, err := rpcserver.NewRPCServer(ctx, conf)
	require.NoError(t, err)
	server.Register(g.rpcModule)
	require.NoError(t, server.Start())
	client, err := rpcclient.NewHTTPClient(ctx, &vdconf.HTTPClientConfig{
		URL: fmt.Sprintf("http://%s", server.HTTPAddr()),
	})
	require.NoError(t, err)
	return client, server.Stop
}

func TestGovRPCPauseParameterDenylist(t *testing.T) {
	ctx, g, _, done := newTestGovernor(t, testGovConf())
	defer done()
	client, srvDone := hostGovRPC(t, ctx, g)
	defer srvDone()

	var paused *vdapi.PausedLedger
	rpcErr := client.CallRPC(ctx, &paused, "gov_pauseLedger", "node2", "chain halt")
	require.Nil(t, rpcErr)
	assert.Equal(t, "chain halt", paused.Reason)

	var pausedList []*vdapi.PausedLedger
	rpcErr = client.CallRPC(ctx, &pausedList, "gov_listPausedLedgers")
	require.Nil(t, rpcErr)
	require.Len(t, pausedList, 1)

	rpcErr = client.CallRPC(ctx, &paused, "gov_resumeLedger", "node2")
	require.Nil(t, rpcErr)

	// wire errors carry the catalog code
	rpcErr = client.CallRPC(ctx, &paused, "gov_resumeLedger", "node2")
	require.NotNil(t, rpcErr)
	assert.Regexp(t, "VD011105", rpcErr)

	var param *vdapi.GovParam
	rpcErr = client.CallRPC(ctx, &param, "gov_updateParameter", "min_sources", "3", nil)
	require.Nil(t, rpcErr)
	assert.Equal(t, "3", param.Value)

	var params []*vdapi.GovParam
	rpcErr = client.CallRPC(ctx, &params, "gov_listParameters")
	require.Nil(t, rpcErr)
	require.Len(t, params, 1)

	var entry *vdapi.DenylistEntry
	rpcErr = client.CallRPC(ctx, &entry, "gov_denylistAddress", "node1", creatorAddr, "fraud")
	require.Nil(t, rpcErr)

	var entries []*vdapi.DenylistEntry
	rpcErr = client.CallRPC(ctx, &entries, "gov_listDenylist")
	require.Nil(t, rpcErr)
	require.Len(t, entries, 1)

	var ok bool
	rpcErr = client.CallRPC(ctx, &ok, "gov_allowlistAddress", "node1", creatorAddr)
	require.Nil(t, rpcErr)
	assert.True(t, ok)
}

func TestGovRPCOracleSources(t *testing.T) {
	ctx, g, _, done := newTestGovernor(t, testGovConf())
	defer done()
	client, srvDone := hostGovRPC(t, ctx, g)
	defer srvDone()

	var source *vdapi.OracleSource
	rpcErr := client.CallRPC(ctx, &source, "gov_addOracleSource", sourceAddr, "station")
	require.Nil(t, rpcErr)
	assert.Equal(t, vdapi.OracleSourceActive, source.Status.V())

	rpcErr = client.CallRPC(ctx, &source, "gov_revokeOracleSource", sourceAddr)
	require.Nil(t, rpcErr)
	assert.Equal(t, vdapi.OracleSourceRevoked, source.Status.V())
}

func TestGovRPCResolveDispute(t *testing.T) {
	condID := uuid.New()
	resolved := &vdapi.Condition{ID: &condID, Status: vdapi.ConditionStatusTriggered.Enum()}

	ctx, g, mc, done := newTestGovernor(t, testGovConf())
	defer done()
	mc.conditions.On("ResolveDispute", mock.Anything, mock.MatchedBy(func(r *vdapi.GovernanceRuling) bool {
		return r.Condition == condID && r.Ruling.V() == vdapi.RulingUphold
	})).Return(resolved, nil)

	client, srvDone := hostGovRPC(t, ctx, g)
	defer srvDone()

	var cond *vdapi.Condition
	rpcErr := client.CallRPC(ctx, &cond, "gov_resolveDispute", &vdapi.GovernanceRuling{
		Condition: condID,
		Ruling:    vdapi.RulingUphold.Enum(),
		Reason:    "attestation set audited",
	})
	require.Nil(t, rpcErr)
	require.NotNil(t, cond)
	assert.Equal(t, vdapi.ConditionStatusTriggered, cond.Status.V())
}
