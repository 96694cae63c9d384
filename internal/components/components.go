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

package components

import (
	"github.com/veridict-io/veridict/pkg/persistence"
	"github.com/veridict-io/veridict/pkg/rpcserver"
	"github.com/veridict-io/veridict/pkg/signkeys"
)

// PreInitComponents are initialized before any manager, and do not depend on
// each other or on managers. They hold their own interfaces in their packages.
type PreInitComponents interface {
	NodeName() string
	NodeKey() *signkeys.NodeKey
	Persistence() persistence.Persistence
	RPCServer() rpcserver.RPCServer
}

// Managers are initialized after the base components with access to them.
//
// So that they can call each other, their externally mockable interfaces are
// all defined in this package, along with the types that cross manager
// boundaries.
type Managers interface {
	LedgerManager() LedgerManager
	RelayManager() RelayManager
	OracleManager() OracleManager
	ConditionManager() ConditionManager
	SettlementManager() SettlementManager
	Governor() Governor
}

// All managers conform to a standard lifecycle
type ManagerLifecycle interface {
	// Init only depends on the configuration and pre-init components - no other managers
	PreInit(PreInitComponents) (*ManagerInitResult, error)
	// Post-init allows the manager to cross-bind to other managers
	PostInit(AllComponents) error
	Start() error
	Stop()
}

// Managers instruct the assembly of the RPC server in a generic way
type ManagerInitResult struct {
	RPCModules []*rpcserver.RPCModule
}

type AllComponents interface {
	PreInitComponents
	Managers
}
