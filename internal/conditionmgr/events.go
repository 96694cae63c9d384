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
	"sync"

	"github.com/google/uuid"
	"github.com/hyperledger/firefly-common/pkg/i18n"

	"github.com/veridict-io/veridict/internal/msgs"
	"github.com/veridict-io/veridict/pkg/rpcclient"
	"github.com/veridict-io/veridict/pkg/rpcserver"
	"github.com/veridict-io/veridict/pkg/vdapi"
	"github.com/veridict-io/veridict/pkg/vdtypes"
)

// condSubscriptions streams condition status changes over WebSocket
// connections. cond_subscribe takes an optional condition ID to narrow the
// stream to one condition; with no params every change on this node is
// delivered. Notifications are fire-and-forget per the node's view - a
// reconnecting client re-reads current state via cond_getCondition.
type condSubscriptions struct {
	subLock sync.Mutex
	subs    map[string]*condSubscription
}

type condSubscription struct {
	es        *condSubscriptions
	ctrl      rpcserver.RPCAsyncControl
	condition *uuid.UUID // nil matches all conditions
}

func newCondSubscriptions() *condSubscriptions {
	return &condSubscriptions{
		subs: make(map[string]*condSubscription),
	}
}

func (es *condSubscriptions) StartMethod() string {
	return "cond_subscribe"
}

func (es *condSubscriptions) LifecycleMethods() []string {
	return []string{"cond_unsubscribe"}
}

func (es *condSubscriptions) HandleStart(ctx context.Context, req *rpcclient.RPCRequest, ctrl rpcserver.RPCAsyncControl) (rpcserver.RPCAsyncInstance, *rpcclient.RPCResponse) {
	es.subLock.Lock()
	defer es.subLock.Unlock()

	sub := &condSubscription{
		es:   es,
		ctrl: ctrl,
	}
	if len(req.Params) >= 1 {
		condID, err := uuid.Parse(req.Params[0].StringValue())
		if err != nil {
			return nil, rpcclient.NewRPCErrorResponse(
				i18n.NewError(ctx, msgs.MsgJSONRPCInvalidParam, req.Method, 0, err),
				req.ID, rpcclient.RPCCodeInvalidRequest)
		}
		sub.condition = &condID
	}
	es.subs[ctrl.ID()] = sub
	return sub, &rpcclient.RPCResponse{
		JSONRpc: "2.0",
		ID:      req.ID,
		Result:  vdtypes.JSONString(ctrl.ID()),
	}
}

func (es *condSubscriptions) HandleLifecycle(ctx context.Context, req *rpcclient.RPCRequest) *rpcclient.RPCResponse {
	if len(req.Params) != 1 {
		return rpcclient.NewRPCErrorResponse(
			i18n.NewError(ctx, msgs.MsgJSONRPCIncorrectParamCount, req.Method, 1, len(req.Params)),
			req.ID, rpcclient.RPCCodeInvalidRequest)
	}
	sub := es.popSub(req.Params[0].StringValue())
	if sub != nil {
		sub.ctrl.Closed()
	}
	return &rpcclient.RPCResponse{
		JSONRpc: "2.0",
		ID:      req.ID,
		Result:  vdtypes.JSONString(sub != nil),
	}
}

func (es *condSubscriptions) publishStatus(cond *vdapi.Condition) {
	es.subLock.Lock()
	defer es.subLock.Unlock()

	for _, sub := range es.subs {
		if sub.condition == nil || *sub.condition == *cond.ID {
			sub.ctrl.Send("cond_subscription", map[string]any{
				"subscription": sub.ctrl.ID(),
				"result":       cond,
			})
		}
	}
}

func (es *condSubscriptions) popSub(subID string) *condSubscription {
	es.subLock.Lock()
	defer es.subLock.Unlock()

	sub := es.subs[subID]
	if sub != nil {
		delete(es.subs, subID)
	}
	return sub
}

func (sub *condSubscription) ConnectionClosed() {
	sub.es.popSub(sub.ctrl.ID())
}
