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

	"github.com/veridict-io/veridict/pkg/rpcserver"
	"github.com/veridict-io/veridict/pkg/vdapi"
	"github.com/veridict-io/veridict/pkg/vdtypes"
)

// The gov_ module is the governance collaborator's surface - in production it
// sits behind the operator's own authentication in front of this listener.
func (g *governor) initRPC() {
	g.rpcModule = rpcserver.NewRPCModule("gov").
		Add("gov_pauseLedger", g.rpcPauseLedger()).
		Add("gov_resumeLedger", g.rpcResumeLedger()).
		Add("gov_listPausedLedgers", g.rpcListPausedLedgers()).
		Add("gov_updateParameter", g.rpcUpdateParameter()).
		Add("gov_listParameters", g.rpcListParameters()).
		Add("gov_addOracleSource", g.rpcAddOracleSource()).
		Add("gov_revokeOracleSource", g.rpcRevokeOracleSource()).
		Add("gov_denylistAddress", g.rpcDenylistAddress()).
		Add("gov_allowlistAddress", g.rpcAllowlistAddress()).
		Add("gov_listDenylist", g.rpcListDenylist()).
		Add("gov_resolveDispute", g.rpcResolveDispute())
}

func (g *governor) rpcPauseLedger() rpcserver.RPCHandler {
	return rpcserver.RPCMethod2(func(ctx context.Context,
		ledger string,
		reason string,
	) (*vdapi.PausedLedger, error) {
		return g.pauseLedger(ctx, ledger, reason)
	})
}

func (g *governor) rpcResumeLedger() rpcserver.RPCHandler {
	return rpcserver.RPCMethod1(func(ctx context.Context,
		ledger string,
	) (*vdapi.PausedLedger, error) {
		return g.resumeLedger(ctx, ledger)
	})
}

func (g *governor) rpcListPausedLedgers() rpcserver.RPCHandler {
	return rpcserver.RPCMethod0(func(ctx context.Context) ([]*vdapi.PausedLedger, error) {
		return g.listPaused(ctx)
	})
}

func (g *governor) rpcUpdateParameter() rpcserver.RPCHandler {
	return rpcserver.RPCMethod3(func(ctx context.Context,
		key string,
		value string,
		effective *vdtypes.Timestamp,
	) (*vdapi.GovParam, error) {
		return g.updateParameter(ctx, key, value, effective)
	})
}

func (g *governor) rpcListParameters() rpcserver.RPCHandler {
	return rpcserver.RPCMethod0(func(ctx context.Context) ([]*vdapi.GovParam, error) {
		return g.listParameters(ctx)
	})
}

func (g *governor) rpcAddOracleSource() rpcserver.RPCHandler {
	return rpcserver.RPCMethod2(func(ctx context.Context,
		identity string,
		description string,
	) (*vdapi.OracleSource, error) {
		return g.addOracleSource(ctx, identity, description)
	})
}

func (g *governor) rpcRevokeOracleSource() rpcserver.RPCHandler {
	return rpcserver.RPCMethod1(func(ctx context.Context,
		identity string,
	) (*vdapi.OracleSource, error) {
		return g.revokeOracleSource(ctx, identity)
	})
}

func (g *governor) rpcDenylistAddress() rpcserver.RPCHandler {
	return rpcserver.RPCMethod3(func(ctx context.Context,
		ledger string,
		address string,
		reason string,
	) (*vdapi.DenylistEntry, error) {
		return g.denylistAddress(ctx, ledger, address, reason)
	})
}

func (g *governor) rpcAllowlistAddress() rpcserver.RPCHandler {
	return rpcserver.RPCMethod2(func(ctx context.Context,
		ledger string,
		address string,
	) (bool, error) {
		return g.allowlistAddress(ctx, ledger, address)
	})
}

func (g *governor) rpcListDenylist() rpcserver.RPCHandler {
	return rpcserver.RPCMethod0(func(ctx context.Context) ([]*vdapi.DenylistEntry, error) {
		return g.listDenylist(ctx)
	})
}

// gov_resolveDispute is routed through the governor so the whole governance
// surface lives on one module, but the ruling itself is applied by the
// condition state machine.
func (g *governor) rpcResolveDispute() rpcserver.RPCHandler {
	return rpcserver.RPCMethod1(func(ctx context.Context,
		ruling vdapi.GovernanceRuling,
	) (*vdapi.Condition, error) {
		return g.conditions.ResolveDispute(ctx, &ruling)
	})
}
