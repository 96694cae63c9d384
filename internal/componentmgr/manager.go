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

// Package componentmgr assembles a node: it builds the pre-init components
// (signing key, database, RPC server), then walks every manager through the
// PreInit/PostInit/Start lifecycle in dependency order. The RPC server is
// started last so no request can arrive before every manager is ready.
package componentmgr

import (
	"context"
	"sort"

	"github.com/hyperledger/firefly-common/pkg/i18n"

	"github.com/veridict-io/veridict/internal/components"
	"github.com/veridict-io/veridict/internal/conditionmgr"
	"github.com/veridict-io/veridict/internal/governor"
	"github.com/veridict-io/veridict/internal/ledgermgr"
	"github.com/veridict-io/veridict/internal/msgs"
	"github.com/veridict-io/veridict/internal/oraclemgr"
	"github.com/veridict-io/veridict/internal/relaymgr"
	"github.com/veridict-io/veridict/internal/settlemgr"
	"github.com/veridict-io/veridict/pkg/log"
	"github.com/veridict-io/veridict/pkg/persistence"
	"github.com/veridict-io/veridict/pkg/rpcserver"
	"github.com/veridict-io/veridict/pkg/signkeys"
	"github.com/veridict-io/veridict/pkg/vdapi"
	"github.com/veridict-io/veridict/pkg/vdconf"
	"github.com/veridict-io/veridict/pkg/vdtypes"
)

type ComponentManager interface {
	components.AllComponents
	Init() error
	StartManagers() error
	CompleteStart() error
	Stop()
}

type componentManager struct {
	bgCtx context.Context
	// config
	conf *vdconf.VeridictConfig
	// pre-init
	nodeKey     *signkeys.NodeKey
	persistence persistence.Persistence
	rpcServer   rpcserver.RPCServer
	// managers
	ledgerManager     components.LedgerManager
	relayManager      components.RelayManager
	oracleManager     components.OracleManager
	conditionManager  components.ConditionManager
	settlementManager components.SettlementManager
	governor          components.Governor
	// init to start tracking
	initResults map[string]*components.ManagerInitResult
	// keep track of everything we started
	started map[string]stoppable
	opened  map[string]closeable
	// recorded when CompleteStart finishes, reported by node_info
	startTime vdtypes.Timestamp
}

// things that have a running component that is active in the background and hence "stops"
type stoppable interface {
	Stop()
}

// things that are services used in various places, but need to cleanly disconnect all connections and hence "close"
type closeable interface {
	Close()
}

func NewComponentManager(bgCtx context.Context, conf *vdconf.VeridictConfig) ComponentManager {
	log.InitConfig(&conf.Log)
	return &componentManager{
		bgCtx:       bgCtx,
		conf:        conf,
		initResults: make(map[string]*components.ManagerInitResult),
		started:     make(map[string]stoppable),
		opened:      make(map[string]closeable),
	}
}

func (cm *componentManager) Init() (err error) {

	// the node name doubles as the name of the ledger this node serves, so
	// both must be present before anything else is constructed
	if cm.conf.NodeName == "" {
		return i18n.NewError(cm.bgCtx, msgs.MsgComponentNodeNameMissing)
	}
	if cm.conf.Ledgers[cm.conf.NodeName] == nil {
		return i18n.NewError(cm.bgCtx, msgs.MsgComponentOwnLedgerMissing, cm.conf.NodeName)
	}

	cm.nodeKey, err = signkeys.NewNodeKey(cm.bgCtx, &cm.conf.NodeKey)
	err = cm.wrapIfErr(err, msgs.MsgComponentKeyLoadError)

	if err == nil {
		cm.persistence, err = persistence.NewPersistence(cm.bgCtx, &cm.conf.DB)
		err = cm.addIfOpened("database", cm.persistence, err, msgs.MsgComponentDBInitError)
	}
	if err == nil {
		cm.rpcServer, err = rpcserver.NewRPCServer(cm.bgCtx, &cm.conf.RPCServer)
		err = cm.wrapIfErr(err, msgs.MsgComponentRPCServerInitError)
	}

	// pre-init the managers
	if err == nil {
		cm.ledgerManager = ledgermgr.NewLedgerManager(cm.bgCtx, cm.conf.Ledgers)
		cm.initResults["ledger_manager"], err = cm.ledgerManager.PreInit(cm)
		err = cm.wrapIfErr(err, msgs.MsgComponentLedgerInitError)
	}
	if err == nil {
		cm.relayManager = relaymgr.NewRelayManager(cm.bgCtx, &cm.conf.Relay)
		cm.initResults["relay_manager"], err = cm.relayManager.PreInit(cm)
		err = cm.wrapIfErr(err, msgs.MsgComponentRelayInitError)
	}
	if err == nil {
		cm.oracleManager = oraclemgr.NewOracleManager(cm.bgCtx, &cm.conf.Oracle)
		cm.initResults["oracle_manager"], err = cm.oracleManager.PreInit(cm)
		err = cm.wrapIfErr(err, msgs.MsgComponentOracleInitError)
	}
	if err == nil {
		cm.conditionManager = conditionmgr.NewConditionManager(cm.bgCtx, &cm.conf.Conditions)
		cm.initResults["condition_manager"], err = cm.conditionManager.PreInit(cm)
		err = cm.wrapIfErr(err, msgs.MsgComponentConditionInitError)
	}
	if err == nil {
		cm.settlementManager = settlemgr.NewSettlementManager(cm.bgCtx, &cm.conf.Settlement)
		cm.initResults["settlement_manager"], err = cm.settlementManager.PreInit(cm)
		err = cm.wrapIfErr(err, msgs.MsgComponentSettlementInitError)
	}
	if err == nil {
		cm.governor = governor.NewGovernor(cm.bgCtx, &cm.conf.Governor)
		cm.initResults["governor"], err = cm.governor.PreInit(cm)
		err = cm.wrapIfErr(err, msgs.MsgComponentGovernorInitError)
	}

	// post-init the managers, so they can bind to each other
	if err == nil {
		err = cm.ledgerManager.PostInit(cm)
		err = cm.wrapIfErr(err, msgs.MsgComponentLedgerInitError)
	}
	if err == nil {
		err = cm.relayManager.PostInit(cm)
		err = cm.wrapIfErr(err, msgs.MsgComponentRelayInitError)
	}
	if err == nil {
		err = cm.oracleManager.PostInit(cm)
		err = cm.wrapIfErr(err, msgs.MsgComponentOracleInitError)
	}
	if err == nil {
		err = cm.conditionManager.PostInit(cm)
		err = cm.wrapIfErr(err, msgs.MsgComponentConditionInitError)
	}
	if err == nil {
		err = cm.settlementManager.PostInit(cm)
		err = cm.wrapIfErr(err, msgs.MsgComponentSettlementInitError)
	}
	if err == nil {
		err = cm.governor.PostInit(cm)
		err = cm.wrapIfErr(err, msgs.MsgComponentGovernorInitError)
	}

	return err
}

func (cm *componentManager) StartManagers() (err error) {

	// the ledger manager starts first - every other manager submits through it
	err = cm.ledgerManager.Start()
	err = cm.addIfStarted("ledger_manager", cm.ledgerManager, err, msgs.MsgComponentLedgerStartError)

	if err == nil {
		err = cm.relayManager.Start()
		err = cm.addIfStarted("relay_manager", cm.relayManager, err, msgs.MsgComponentRelayStartError)
	}
	if err == nil {
		err = cm.oracleManager.Start()
		err = cm.addIfStarted("oracle_manager", cm.oracleManager, err, msgs.MsgComponentOracleStartError)
	}
	if err == nil {
		err = cm.conditionManager.Start()
		err = cm.addIfStarted("condition_manager", cm.conditionManager, err, msgs.MsgComponentConditionStartError)
	}
	if err == nil {
		err = cm.settlementManager.Start()
		err = cm.addIfStarted("settlement_manager", cm.settlementManager, err, msgs.MsgComponentSettlementStartError)
	}
	if err == nil {
		err = cm.governor.Start()
		err = cm.addIfStarted("governor", cm.governor, err, msgs.MsgComponentGovernorStartError)
	}

	return err
}

func (cm *componentManager) CompleteStart() error {

	// start the RPC server last
	cm.registerRPCModules()
	err := cm.rpcServer.Start()
	err = cm.addIfStarted("rpc_server", cm.rpcServer, err, msgs.MsgComponentRPCServerStartError)

	if err == nil {
		cm.startTime = vdtypes.TimestampNow()
		httpEndpoint := "disabled"
		if cm.rpcServer.HTTPAddr() != nil {
			httpEndpoint = cm.rpcServer.HTTPAddr().String()
		}
		wsEndpoint := "disabled"
		if cm.rpcServer.WSAddr() != nil {
			wsEndpoint = cm.rpcServer.WSAddr().String()
		}
		log.L(cm.bgCtx).Infof("RPC endpoints http=%s ws=%s", httpEndpoint, wsEndpoint)
		log.L(cm.bgCtx).Infof("Node '%s' startup complete (signer=%s)", cm.conf.NodeName, cm.nodeKey.Address())
	}

	return err
}

func (cm *componentManager) registerRPCModules() {
	for _, initResult := range cm.initResults {
		for _, rpcMod := range initResult.RPCModules {
			cm.rpcServer.Register(rpcMod)
		}
	}
	// node_info doesn't belong to any one manager, so the assembler owns it
	cm.rpcServer.Register(cm.nodeInfoModule())
}

func (cm *componentManager) nodeInfoModule() *rpcserver.RPCModule {
	return rpcserver.NewRPCModule("node").
		Add("node_info", rpcserver.RPCMethod0(cm.nodeInfo))
}

func (cm *componentManager) nodeInfo(ctx context.Context) (*vdapi.NodeInfo, error) {
	peers := make([]string, 0, len(cm.conf.Relay.Peers))
	for peer := range cm.conf.Relay.Peers {
		if peer != cm.conf.NodeName {
			peers = append(peers, peer)
		}
	}
	sort.Strings(peers)
	return &vdapi.NodeInfo{
		NodeName:      cm.conf.NodeName,
		Ledger:        cm.conf.NodeName,
		SignerAddress: cm.nodeKey.Address(),
		Peers:         peers,
		Started:       cm.startTime,
	}, nil
}

func (cm *componentManager) wrapIfErr(err error, failMsg i18n.ErrorMessageKey, inserts ...any) error {
	if err != nil {
		return i18n.WrapError(cm.bgCtx, err, failMsg, inserts...)
	}
	return nil
}

func (cm *componentManager) addIfStarted(desc string, c stoppable, err error, failMsg i18n.ErrorMessageKey, inserts ...any) error {
	if err != nil {
		return i18n.WrapError(cm.bgCtx, err, failMsg, inserts...)
	}
	cm.started[desc] = c
	return nil
}

func (cm *componentManager) addIfOpened(desc string, c closeable, err error, failMsg i18n.ErrorMessageKey) error {
	if err != nil {
		return i18n.WrapError(cm.bgCtx, err, failMsg)
	}
	cm.opened[desc] = c
	return nil
}

func (cm *componentManager) Stop() {
	log.L(cm.bgCtx).Info("Stopping")
	// stop all the stoppable things we started
	for name, c := range cm.started {
		log.L(cm.bgCtx).Infof("Stopping %s", name)
		c.Stop()
		log.L(cm.bgCtx).Debugf("Stopped %s", name)
	}
	// close all the closeable things we opened
	for name, c := range cm.opened {
		log.L(cm.bgCtx).Infof("Closing %s", name)
		c.Close()
		log.L(cm.bgCtx).Debugf("Closed %s", name)
	}
	log.L(cm.bgCtx).Debug("Stopped")
}

func (cm *componentManager) NodeName() string {
	return cm.conf.NodeName
}

func (cm *componentManager) NodeKey() *signkeys.NodeKey {
	return cm.nodeKey
}

func (cm *componentManager) Persistence() persistence.Persistence {
	return cm.persistence
}

func (cm *componentManager) RPCServer() rpcserver.RPCServer {
	return cm.rpcServer
}

func (cm *componentManager) LedgerManager() components.LedgerManager {
	return cm.ledgerManager
}

func (cm *componentManager) RelayManager() components.RelayManager {
	return cm.relayManager
}

func (cm *componentManager) OracleManager() components.OracleManager {
	return cm.oracleManager
}

func (cm *componentManager) ConditionManager() components.ConditionManager {
	return cm.conditionManager
}

func (cm *componentManager) SettlementManager() components.SettlementManager {
	return cm.settlementManager
}

func (cm *componentManager) Governor() components.Governor {
	return cm.governor
}
