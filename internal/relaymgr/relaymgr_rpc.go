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

package relaymgr

import (
	"context"

	"github.com/veridict-io/veridict/pkg/rpcserver"
	"github.com/veridict-io/veridict/pkg/vdapi"
)

// relay_deliver is the node-to-node surface - peers push sequenced batches
// at each other and read the acks straight out of the response.
func (rm *relayManager) initRPC() {
	rm.rpcModule = rpcserver.NewRPCModule("relay").
		Add("relay_deliver", rm.rpcDeliver()).
		Add("relay_peerInfo", rm.rpcPeerInfo())
}

func (rm *relayManager) rpcDeliver() rpcserver.RPCHandler {
	return rpcserver.RPCMethod1(func(ctx context.Context,
		batch vdapi.RelayDeliveryBatch,
	) ([]*vdapi.DeliveryResult, error) {
		return rm.DeliverBatch(ctx, &batch)
	})
}

func (rm *relayManager) rpcPeerInfo() rpcserver.RPCHandler {
	return rpcserver.RPCMethod0(func(ctx context.Context) ([]*vdapi.PeerInfo, error) {
		return rm.PeerInfo(ctx), nil
	})
}
