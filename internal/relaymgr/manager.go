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
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hyperledger/firefly-common/pkg/i18n"

	"github.com/veridict-io/veridict/internal/components"
	"github.com/veridict-io/veridict/internal/flushwriter"
	"github.com/veridict-io/veridict/internal/msgs"
	"github.com/veridict-io/veridict/pkg/confutil"
	"github.com/veridict-io/veridict/pkg/log"
	"github.com/veridict-io/veridict/pkg/persistence"
	"github.com/veridict-io/veridict/pkg/retry"
	"github.com/veridict-io/veridict/pkg/rpcclient"
	"github.com/veridict-io/veridict/pkg/rpcserver"
	"github.com/veridict-io/veridict/pkg/signkeys"
	"github.com/veridict-io/veridict/pkg/vdapi"
	"github.com/veridict-io/veridict/pkg/vdconf"
	"github.com/veridict-io/veridict/pkg/vdtypes"
)

type relayManager struct {
	bgCtx     context.Context
	cancelCtx context.CancelFunc

	conf      *vdconf.RelayManagerConfig
	rpcModule *rpcserver.RPCModule

	nodeName string
	nodeKey  *signkeys.NodeKey
	p        persistence.Persistence

	peerClients map[string]rpcclient.Client

	peers     map[string]*peer
	peersLock sync.RWMutex

	receivers      map[vdapi.RelayMessageType]components.RelayReceiver
	receiversFixed bool
	receiversLock  sync.RWMutex

	receiveWriter flushwriter.Writer[*deliveredMsgOp, *deliveredResult]

	sendShortRetry          *retry.Retry
	reliableScanRetry       *retry.Retry
	peerInactivityTimeout   time.Duration
	peerReaperInterval      time.Duration
	reliableMessageResend   time.Duration
	reliableMessagePageSize int

	started        atomic.Bool
	peerReaperDone chan struct{}
}

func NewRelayManager(bgCtx context.Context, conf *vdconf.RelayManagerConfig) components.RelayManager {
	rm := &relayManager{
		conf:                    conf,
		peerClients:             make(map[string]rpcclient.Client),
		peers:                   make(map[string]*peer),
		receivers:               make(map[vdapi.RelayMessageType]components.RelayReceiver),
		sendShortRetry:          retry.NewRetryLimited(&conf.SendRetry, &vdconf.RelayManagerDefaults.SendRetry),
		reliableScanRetry:       retry.NewRetryIndefinite(&conf.ReliableScanRetry, &vdconf.RelayManagerDefaults.ReliableScanRetry),
		peerInactivityTimeout:   confutil.DurationMin(conf.PeerInactivityTimeout, 0, *vdconf.RelayManagerDefaults.PeerInactivityTimeout),
		peerReaperInterval:      confutil.DurationMin(conf.PeerReaperInterval, 100*time.Millisecond, *vdconf.RelayManagerDefaults.PeerReaperInterval),
		reliableMessageResend:   confutil.DurationMin(conf.MessageResend, 100*time.Millisecond, *vdconf.RelayManagerDefaults.MessageResend),
		reliableMessagePageSize: 100, // not a tuning knob currently
		peerReaperDone:          make(chan struct{}),
	}
	rm.bgCtx, rm.cancelCtx = context.WithCancel(bgCtx)
	return rm
}

func (rm *relayManager) PreInit(pic components.PreInitComponents) (*components.ManagerInitResult, error) {
	rm.nodeName = pic.NodeName()
	rm.nodeKey = pic.NodeKey()
	rm.p = pic.Persistence()
	for name, peerConf := range rm.conf.Peers {
		if name == rm.nodeName {
			// symmetric config files list every node - skip ourselves
			log.L(rm.bgCtx).Debugf("ignoring peer config entry for the local node '%s'", name)
			continue
		}
		if peerConf.SignerAddress == "" {
			return nil, i18n.NewError(rm.bgCtx, msgs.MsgRelayPeerConfigInvalid, name, "signerAddress required")
		}
		client, err := rpcclient.NewHTTPClient(rm.bgCtx, &peerConf.Endpoint)
		if err != nil {
			return nil, i18n.WrapError(rm.bgCtx, err, msgs.MsgRelayPeerConfigInvalid, name, "endpoint invalid")
		}
		rm.peerClients[name] = client
	}
	rm.receiveWriter = flushwriter.NewWriter(rm.bgCtx, rm.handleDeliveredBatch, rm.p,
		&rm.conf.MessageWriter, &vdconf.RelayManagerDefaults.MessageWriter)
	rm.initRPC()
	return &components.ManagerInitResult{
		RPCModules: []*rpcserver.RPCModule{rm.rpcModule},
	}, nil
}

func (rm *relayManager) PostInit(c components.AllComponents) error {
	return nil
}

func (rm *relayManager) Start() error {
	rm.receiversLock.Lock()
	// All receivers must be registered as part of the startup sequence
	rm.receiversFixed = true
	rm.receiversLock.Unlock()

	rm.receiveWriter.Start()
	rm.started.Store(true)
	go rm.peerReaper()
	// anything queued by a previous run starts draining again here
	return rm.recoverQueuedMessages(rm.bgCtx)
}

func (rm *relayManager) Stop() {
	rm.cancelCtx()
	if rm.started.Load() {
		<-rm.peerReaperDone
	}
	for _, p := range rm.listActivePeers() {
		rm.reapPeer(p)
	}
	if rm.receiveWriter != nil {
		rm.receiveWriter.Shutdown()
	}
	rm.started.Store(false)
}

func (rm *relayManager) KnownPeer(node string) bool {
	return rm.peerClients[node] != nil
}

func (rm *relayManager) RegisterReceiver(messageType vdapi.RelayMessageType, receiver components.RelayReceiver) error {
	rm.receiversLock.Lock()
	defer rm.receiversLock.Unlock()
	if rm.receiversFixed {
		return i18n.NewError(rm.bgCtx, msgs.MsgRelayReceiverAfterStart, messageType)
	}
	if _, bound := rm.receivers[messageType]; bound {
		log.L(rm.bgCtx).Errorf("Receiver already registered for payload type %s", messageType)
		return i18n.NewError(rm.bgCtx, msgs.MsgRelayReceiverAlreadyBound, messageType)
	}
	rm.receivers[messageType] = receiver
	return nil
}

func (rm *relayManager) getReceiver(messageType vdapi.RelayMessageType) components.RelayReceiver {
	rm.receiversLock.RLock()
	defer rm.receiversLock.RUnlock()
	return rm.receivers[messageType]
}

// See docs in components package
func (rm *relayManager) Send(ctx context.Context, dbTX persistence.DBTX, send *components.RelaySend) (*vdapi.RelayMessage, error) {
	if rm.bgCtx.Err() != nil {
		return nil, i18n.NewError(ctx, msgs.MsgRelaySendQueueClosed)
	}
	if _, err := send.MessageType.Enum().Validate(); err != nil || send.Payload == nil {
		return nil, i18n.NewError(ctx, msgs.MsgRelayInvalidMessage, send.MessageType)
	}
	if send.Destination == rm.nodeName {
		return nil, i18n.NewError(ctx, msgs.MsgRelayPeerSelfSend, rm.nodeName)
	}
	p, err := rm.getPeer(ctx, send.Destination, true)
	if err != nil {
		return nil, err
	}

	msg := &vdapi.RelayMessage{
		ID:          uuid.New(),
		Created:     vdtypes.TimestampNow(),
		Channel:     send.Channel,
		MessageType: send.MessageType.Enum(),
		Source:      rm.nodeName,
		Destination: send.Destination,
		Payload:     send.Payload,
		Expires:     send.Expires,
	}
	msg.Signature, err = rm.nodeKey.Sign(ctx, vdapi.RelaySigningPayload(msg.ID, msg.Channel, msg.Payload))
	if err != nil {
		return nil, err
	}
	// The DB assigns the sequence - the peer's sender drains strictly in that order
	if err := dbTX.DB().WithContext(ctx).Omit("Ack").Create(msg).Error; err != nil {
		return nil, err
	}
	dbTX.AddPostCommit(func(ctx context.Context) {
		p.notifyPersistedMsgAvailable()
	})
	return msg, nil
}

// recoverQueuedMessages wakes the sender for any peer that still has unacked
// rows, so a restart resumes delivery without waiting for new traffic.
func (rm *relayManager) recoverQueuedMessages(ctx context.Context) error {
	var destinations []string
	err := rm.p.DB().
		WithContext(ctx).
		Table("relay_msgs").
		Distinct("destination").
		Joins("LEFT JOIN relay_msg_acks ON relay_msg_acks.id = relay_msgs.id").
		Where("relay_msg_acks.time IS NULL").
		Pluck("destination", &destinations).
		Error
	if err != nil {
		return err
	}
	for _, destination := range destinations {
		p, err := rm.getPeer(ctx, destination, true)
		if err != nil {
			// a peer removed from config leaves its queue stranded - nothing to do but say so
			log.L(ctx).Warnf("Queued messages for unavailable peer '%s': %s", destination, err)
			continue
		}
		p.notifyPersistedMsgAvailable()
	}
	return nil
}
