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

	"github.com/hyperledger/firefly-common/pkg/i18n"

	"github.com/veridict-io/veridict/internal/msgs"
	"github.com/veridict-io/veridict/pkg/rpcclient"
	"github.com/veridict-io/veridict/pkg/vdapi"
	"github.com/veridict-io/veridict/pkg/vdconf"
)

// remoteAdapter drives a ledger hosted on another node through its ledger_*
// JSON/RPC methods. Idempotency on the ref is the remote node's job - the
// same ledger_submitIntent params always land on the same transaction.
type remoteAdapter struct {
	name   string
	client rpcclient.Client
}

func newRemoteAdapter(ctx context.Context, name string, conf *vdconf.RemoteLedgerConfig) (*remoteAdapter, error) {
	if conf.URL == "" {
		return nil, i18n.NewError(ctx, msgs.MsgLedgerRemoteMissingURL, name)
	}
	client, err := rpcclient.NewHTTPClient(ctx, &conf.HTTPClientConfig)
	if err != nil {
		return nil, err
	}
	return &remoteAdapter{name: name, client: client}, nil
}

func (ra *remoteAdapter) ledgerType() string { return LedgerTypeRemote }

func (ra *remoteAdapter) start() {}

func (ra *remoteAdapter) stop() {}

func (ra *remoteAdapter) blockHeight(ctx context.Context) (uint64, error) {
	var info vdapi.LedgerInfo
	if rpcErr := ra.client.CallRPC(ctx, &info, "ledger_info", ra.name); rpcErr != nil {
		return 0, rpcErr
	}
	return info.BlockHeight, nil
}

func (ra *remoteAdapter) submit(ctx context.Context, intent *vdapi.LedgerIntent, ref string) (string, error) {
	var txRef string
	if rpcErr := ra.client.CallRPC(ctx, &txRef, "ledger_submitIntent", intent, ref); rpcErr != nil {
		return "", rpcErr
	}
	return txRef, nil
}

func (ra *remoteAdapter) txStatus(ctx context.Context, txRef string) (*vdapi.LedgerTxStatus, error) {
	var status vdapi.LedgerTxStatus
	if rpcErr := ra.client.CallRPC(ctx, &status, "ledger_transactionStatus", ra.name, txRef); rpcErr != nil {
		return nil, rpcErr
	}
	return &status, nil
}
