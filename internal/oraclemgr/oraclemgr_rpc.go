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

package oraclemgr

import (
	"context"

	"github.com/google/uuid"

	"github.com/veridict-io/veridict/pkg/rpcserver"
	"github.com/veridict-io/veridict/pkg/vdapi"
)

func (om *oracleManager) initRPC() {
	om.rpcModule = rpcserver.NewRPCModule("oracle").
		Add("oracle_submitAttestation", om.rpcSubmitAttestation()).
		Add("oracle_queryVerdict", om.rpcQueryVerdict()).
		Add("oracle_queryAttestations", om.rpcQueryAttestations()).
		Add("oracle_listSources", om.rpcListSources())
}

func (om *oracleManager) rpcSubmitAttestation() rpcserver.RPCHandler {
	return rpcserver.RPCMethod1(func(ctx context.Context,
		input vdapi.AttestationInput,
	) (*vdapi.AttestationReceipt, error) {
		return om.SubmitAttestation(ctx, &input)
	})
}

// The latest verdict stands for the condition as a whole - a JSON null result
// means evaluation has not reached quorum.
func (om *oracleManager) rpcQueryVerdict() rpcserver.RPCHandler {
	return rpcserver.RPCMethod1(func(ctx context.Context,
		conditionID uuid.UUID,
	) (*vdapi.Verdict, error) {
		return om.getLatestVerdict(ctx, conditionID)
	})
}

func (om *oracleManager) rpcQueryAttestations() rpcserver.RPCHandler {
	return rpcserver.RPCMethod1(func(ctx context.Context,
		conditionID uuid.UUID,
	) ([]*vdapi.Attestation, error) {
		return om.queryAttestations(ctx, conditionID)
	})
}

func (om *oracleManager) rpcListSources() rpcserver.RPCHandler {
	return rpcserver.RPCMethod0(func(ctx context.Context) ([]*vdapi.OracleSource, error) {
		return om.ListSources(ctx)
	})
}
