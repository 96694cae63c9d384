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

	"github.com/veridict-io/veridict/pkg/rpcserver"
	"github.com/veridict-io/veridict/pkg/vdapi"
)

// The ledger_submitIntent/ledger_transactionStatus pair is what a 'remote'
// adapter on another node drives - this node fronting its ledger for peers.
func (lm *ledgerManager) initRPC() {
	lm.rpcModule = rpcserver.NewRPCModule("ledger").
		Add("ledger_status", lm.rpcStatus()).
		Add("ledger_info", lm.rpcInfo()).
		Add("ledger_submitIntent", lm.rpcSubmitIntent()).
		Add("ledger_transactionStatus", lm.rpcTransactionStatus())
}

func (lm *ledgerManager) rpcStatus() rpcserver.RPCHandler {
	return rpcserver.RPCMethod1(func(ctx context.Context,
		ledgerName string,
	) (*vdapi.LedgerStatus, error) {
		status, err := lm.Status(ctx, ledgerName)
		if err != nil {
			return nil, err
		}
		if lm.governor != nil {
			paused, err := lm.governor.PausedLedger(ctx, ledgerName)
			if err != nil {
				return nil, err
			}
			if paused != nil {
				status.Paused = true
				status.PausedReason = paused.Reason
			}
		}
		return status, nil
	})
}

func (lm *ledgerManager) rpcInfo() rpcserver.RPCHandler {
	return rpcserver.RPCMethod1(func(ctx context.Context,
		ledgerName string,
	) (*vdapi.LedgerInfo, error) {
		l, err := lm.getLedger(ctx, ledgerName)
		if err != nil {
			return nil, err
		}
		return l.info(ctx)
	})
}

func (lm *ledgerManager) rpcSubmitIntent() rpcserver.RPCHandler {
	return rpcserver.RPCMethod2(func(ctx context.Context,
		intent vdapi.LedgerIntent,
		ref string,
	) (string, error) {
		l, err := lm.getLedger(ctx, intent.Ledger)
		if err != nil {
			return "", err
		}
		return l.adapter.submit(ctx, &intent, ref)
	})
}

func (lm *ledgerManager) rpcTransactionStatus() rpcserver.RPCHandler {
	return rpcserver.RPCMethod2(func(ctx context.Context,
		ledgerName string,
		txRef string,
	) (*vdapi.LedgerTxStatus, error) {
		l, err := lm.getLedger(ctx, ledgerName)
		if err != nil {
			return nil, err
		}
		return l.adapter.txStatus(ctx, txRef)
	})
}
