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

	"github.com/google/uuid"

	"github.com/veridict-io/veridict/pkg/rpcserver"
	"github.com/veridict-io/veridict/pkg/vdapi"
)

func (cm *conditionManager) initRPC() {
	cm.rpcModule = rpcserver.NewRPCModule("cond").
		Add("cond_createCondition", cm.rpcCreateCondition()).
		Add("cond_getCondition", cm.rpcGetCondition()).
		Add("cond_queryConditions", cm.rpcQueryConditions()).
		Add("cond_cancelCondition", cm.rpcCancelCondition()).
		AddAsync(cm.events)
}

func (cm *conditionManager) rpcCreateCondition() rpcserver.RPCHandler {
	return rpcserver.RPCMethod1(func(ctx context.Context,
		input vdapi.ConditionInput,
	) (*vdapi.Condition, error) {
		return cm.CreateCondition(ctx, &input)
	})
}

func (cm *conditionManager) rpcGetCondition() rpcserver.RPCHandler {
	return rpcserver.RPCMethod1(func(ctx context.Context,
		conditionID uuid.UUID,
	) (*vdapi.Condition, error) {
		return cm.GetCondition(ctx, conditionID)
	})
}

func (cm *conditionManager) rpcQueryConditions() rpcserver.RPCHandler {
	return rpcserver.RPCMethod1(func(ctx context.Context,
		query vdapi.ConditionQuery,
	) ([]*vdapi.Condition, error) {
		return cm.QueryConditions(ctx, &query)
	})
}

func (cm *conditionManager) rpcCancelCondition() rpcserver.RPCHandler {
	return rpcserver.RPCMethod3(func(ctx context.Context,
		conditionID uuid.UUID,
		caller string,
		reason string,
	) (*vdapi.Condition, error) {
		return cm.CancelCondition(ctx, conditionID, caller, reason)
	})
}
