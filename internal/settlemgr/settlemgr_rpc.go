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

package settlemgr

import (
	"context"

	"github.com/google/uuid"

	"github.com/veridict-io/veridict/pkg/rpcserver"
	"github.com/veridict-io/veridict/pkg/vdapi"
)

func (sm *settlementManager) initRPC() {
	sm.rpcModule = rpcserver.NewRPCModule("settle").
		Add("settle_getResult", sm.rpcGetResult()).
		Add("settle_listStalled", sm.rpcListStalled())
}

func (sm *settlementManager) rpcGetResult() rpcserver.RPCHandler {
	return rpcserver.RPCMethod1(func(ctx context.Context,
		conditionID uuid.UUID,
	) (*vdapi.ExecutionResult, error) {
		return sm.GetResult(ctx, conditionID)
	})
}

// settle_listStalled surfaces the legs waiting on operator or governance
// attention - stalled beyond the timeout, or permanently failed with funds
// still escrowed.
func (sm *settlementManager) rpcListStalled() rpcserver.RPCHandler {
	return rpcserver.RPCMethod0(func(ctx context.Context) ([]*vdapi.ExecutionRecord, error) {
		var legs []*vdapi.ExecutionRecord
		err := sm.p.DB().WithContext(ctx).
			Where("status IN (?)", []string{
				string(vdapi.ExecutionStalled),
				string(vdapi.ExecutionFailed),
			}).
			Order("updated").
			Limit(dispatchPageLimit).
			Find(&legs).
			Error
		return legs, err
	})
}
