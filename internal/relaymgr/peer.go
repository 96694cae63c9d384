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
	"cmp"
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"gorm.io/gorm/clause"

	"github.com/veridict-io/veridict/internal/components"
	"github.com/veridict-io/veridict/internal/msgs"
	"github.com/veridict-io/veridict/pkg/log"
	"github.com/veridict-io/veridict/pkg/persistence"
	"github.com/veridict-io/veridict/pkg/rpcclient"
	"github.com/veridict-io/veridict/pkg/vdapi"
	"github.com/veridict-io/veridict/pkg/vdtypes"
)

type peer struct {
	ctx       context.Context
	cancelCtx context.CancelFunc

	rm     *relayManager
	client rpcclient.Client

	vdapi.PeerInfo
	statsLock sync.Mutex

	persistedMsgsAvailable chan struct{}

	// Send loop state (no lock as only used on the loop)
	lastFullScan          time.Time
	lastDrainHWM          *uint64
	persistentMsgsDrained bool

	senderStarted atomic.Bool
	senderDone    chan struct{}
}

// deliveryFault pairs an abandoned message with the reason it will never be
// delivered, for the registered fault handler of its payload type.
type deliveryFault struct {
	msg    *vdapi.RelayMessage
	reason error
}

type nameSortedPeers []*peer

func (p nameSortedPeers) Len() int           { return len(p) }
func (p nameSortedPeers) Swap(i, j int)      { p[i], p[j] = p[j], p[i] }
func (p nameSortedPeers) Less(i, j int) bool { return cmp.Less(p[i].Name, p[j].Name) }

func (rm *relayManager) getPeer(ctx context.Context, nodeName string, sending bool) (*peer, error) {

	if nodeName == rm.nodeName {
		return nil, i18n.NewError(ctx, msgs.MsgRelayPeerSelfSend, rm.nodeName)
	}
	if rm.peerClients[nodeName] == nil {
		return nil, i18n.NewError(ctx, msgs.MsgRelayUnknownPeer, nodeName)
	}

	// Hopefully this is an already active peer
	p := rm.getActivePeer(nodeName)
	if p != nil && (p.senderStarted.Load() || !sending) {
		// Already active and obtained via read-lock
		log.L(ctx).Debugf("peer '%s' already active", nodeName)
		return p, nil
	}

	return rm.connectPeer(ctx, nodeName, sending)
}

// get a list of all active peers
func (rm *relayManager) listActivePeers() nameSortedPeers {
	rm.peersLock.RLock()
	defer rm.peersLock.RUnlock()
	peers := make(nameSortedPeers, 0, len(rm.peers))
	for _, p := range rm.peers {
		peers = append(peers, p)
	}
	sort.Sort(peers)
	return peers
}

func (rm *relayManager) PeerInfo(ctx context.Context) []*vdapi.PeerInfo {
	peers := rm.listActivePeers()
	peerInfo := make([]*vdapi.PeerInfo, len(peers))
	for i, p := range peers {
		peerInfo[i] = &p.PeerInfo
	}
	return peerInfo
}

// efficient read-locked call to get an active peer
func (rm *relayManager) getActivePeer(nodeName string) *peer {
	rm.peersLock.RLock()
	defer rm.peersLock.RUnlock()
	return rm.peers[nodeName]
}

func (rm *relayManager) connectPeer(ctx context.Context, nodeName string, sending bool) (*peer, error) {
	// Race to grab the write-lock and race to connect
	rm.peersLock.Lock()
	defer rm.peersLock.Unlock()
	p := rm.peers[nodeName]
	if p != nil && (p.senderStarted.Load() || !sending) {
		// There was a race to activate this peer, and the other routine won
		log.L(ctx).Debugf("peer '%s' already active (after activation race)", nodeName)
		return p, nil
	}

	if p == nil {
		log.L(ctx).Debugf("activating new peer '%s'", nodeName)
		p = &peer{
			rm:     rm,
			client: rm.peerClients[nodeName],
			PeerInfo: vdapi.PeerInfo{
				Name:      nodeName,
				Endpoint:  rm.conf.Peers[nodeName].Endpoint.URL,
				Activated: vdtypes.TimestampNow(),
			},
			persistedMsgsAvailable: make(chan struct{}, 1),
			senderDone:             make(chan struct{}),
		}
		p.ctx, p.cancelCtx = context.WithCancel(
			log.WithLogField(rm.bgCtx /* go-routine needs bg context */, "peer", nodeName))
	}
	rm.peers[nodeName] = p

	if sending && !p.senderStarted.Load() {
		p.senderStarted.Store(true)
		go p.sender()
	}

	return p, nil
}

func (rm *relayManager) reapPeer(p *peer) {
	rm.peersLock.Lock()
	defer rm.peersLock.Unlock()
	delete(rm.peers, p.Name)

	log.L(p.ctx).Infof("peer %s deactivating", p.Name)
	p.close()
}

func (rm *relayManager) peerReaper() {
	defer close(rm.peerReaperDone)

	for {
		select {
		case <-rm.bgCtx.Done():
			log.L(rm.bgCtx).Debugf("peer reaper exiting")
			return
		case <-time.After(rm.peerReaperInterval):
		}

		candidates := rm.listActivePeers()
		var reaped []*peer
		for _, p := range candidates {
			if p.isInactive() {
				rm.reapPeer(p)
				reaped = append(reaped, p)
			}
		}
		log.L(rm.bgCtx).Debugf("peer reaper before=%d reaped=%d", len(candidates), len(reaped))
	}
}

func (p *peer) notifyPersistedMsgAvailable() {
	select {
	case p.persistedMsgsAvailable <- struct{}{}:
	default:
	}
}

func (p *peer) updateReceivedStats(count int) {
	now := vdtypes.TimestampNow()
	p.statsLock.Lock()
	defer p.statsLock.Unlock()
	p.Stats.LastReceive = &now
	p.Stats.ReceivedMsgs += uint64(count)
}

func (p *peer) reliableMessageScan(checkNew bool) error {

	fullScan := p.lastDrainHWM == nil || time.Since(p.lastFullScan) >= p.rm.reliableMessageResend
	if !fullScan && !checkNew {
		return nil // Nothing to do
	}

	pageSize := p.rm.reliableMessagePageSize
	var total = 0
	var lastPageEnd *uint64
	for {
		query := p.rm.p.DB().
			WithContext(p.ctx).
			Order("sequence ASC").
			Joins("Ack").
			Where(`"Ack"."time" IS NULL`).
			Where("destination", p.Name).
			Limit(pageSize)
		if lastPageEnd != nil {
			query = query.Where("sequence > ?", *lastPageEnd)
		} else if !fullScan {
			query = query.Where("sequence > ?", *p.lastDrainHWM)
		}

		var page []*vdapi.RelayMessage
		err := query.Find(&page).Error
		if err != nil {
			return err
		}

		// Process the page - delivering to the peer and acking the outcome
		if err = p.processReliableMsgPage(page); err != nil {
			// Errors returned are retryable - for data errors the function
			// must record those as acks with an error.
			return err
		}

		if len(page) > 0 {
			p.persistentMsgsDrained = false // we know there's some messages
			total += len(page)
			lastPageEnd = &page[len(page)-1].Sequence
		}

		// If we didn't have a full page, then we're done
		if len(page) < pageSize {
			break
		}

	}

	log.L(p.ctx).Debugf("reliableMessageScan fullScan=%t total=%d lastPageEnd=%v", fullScan, total, lastPageEnd)

	// If we found anything, then mark that as our high water mark for
	// future scans. If an empty full scan - then we store nil
	if lastPageEnd != nil || fullScan {
		p.lastDrainHWM = lastPageEnd
	}

	// Record the last full scan
	if fullScan {
		// We only know we're empty when we do a full re-scan, and that comes back empty
		p.persistentMsgsDrained = (total == 0)

		p.lastFullScan = time.Now()
	}

	return nil
}

func (p *peer) processReliableMsgPage(page []*vdapi.RelayMessage) (err error) {

	// Filter the page down to what's actually due to go to the peer
	now := time.Now()
	msgsToSend := make([]*vdapi.RelayMessage, 0, len(page))
	var faultAcks []*vdapi.RelayMessageAck
	var faults []*deliveryFault
	for _, msg := range page {

		// Check it's either after our HWM, or eligible for re-send
		afterHWM := p.lastDrainHWM == nil || *p.lastDrainHWM < msg.Sequence
		if !afterHWM && time.Since(msg.Created.Time()) < p.rm.reliableMessageResend {
			log.L(p.ctx).Infof("Unacknowledged message %s not yet eligible for re-send", msg.ID)
			continue
		}

		// An envelope past its expiry stops being resent - the fault is
		// recorded against the message, not the whole channel
		if msg.Expires != nil && now.After(msg.Expires.Time()) {
			reason := i18n.NewError(p.ctx, msgs.MsgRelayDeliveryExpired, msg.ID, msg.Channel)
			log.L(p.ctx).Errorf("Abandoning delivery of message %s to %s: %s", msg.ID, p.Name, reason)
			faultAcks = append(faultAcks, &vdapi.RelayMessageAck{
				MessageID: msg.ID,
				Time:      vdtypes.TimestampNow(),
				Error:     reason.Error(),
			})
			faults = append(faults, &deliveryFault{msg: msg, reason: reason})
			continue
		}

		msgsToSend = append(msgsToSend, msg)
	}

	// Persist expiry faults before attempting the send, so they are recorded
	// even when the peer is unreachable
	if len(faultAcks) > 0 {
		if err := p.writeAcks(faultAcks, faults); err != nil {
			return err
		}
	}

	if len(msgsToSend) == 0 {
		return nil
	}

	// Deliver the batch, with short retry.
	// We fail the whole page on error, so we don't thrash (the outer infinite retry
	// gives a much longer maximum back-off).
	results, err := p.deliver(msgsToSend)
	if err != nil {
		return err
	}
	resultsByID := make(map[uuid.UUID]*vdapi.DeliveryResult, len(results))
	for _, dr := range results {
		if dr != nil {
			resultsByID[dr.MessageID] = dr
		}
	}

	// Every result - delivered, duplicate or rejected - acks the row so it is
	// never scanned again. Rejections carry the destination's reason and
	// notify the fault handler for the payload type.
	acks := make([]*vdapi.RelayMessageAck, 0, len(msgsToSend))
	var rejects []*deliveryFault
	var highestSent uint64
	for _, msg := range msgsToSend {
		dr := resultsByID[msg.ID]
		if dr == nil {
			return i18n.NewError(p.ctx, msgs.MsgRelayDeliveryResultMismatch, p.Name, msg.ID)
		}
		ack := &vdapi.RelayMessageAck{MessageID: msg.ID, Time: vdtypes.TimestampNow()}
		if dr.Rejected {
			errString := dr.Error
			if errString == "" {
				errString = i18n.NewError(p.ctx, msgs.MsgRelayNackMissingError).Error()
			}
			log.L(p.ctx).Errorf("Message %s rejected by %s: %s", msg.ID, p.Name, errString)
			ack.Error = errString
			rejects = append(rejects, &deliveryFault{msg: msg, reason: errors.New(errString)})
		}
		acks = append(acks, ack)
		if msg.Sequence > highestSent {
			highestSent = msg.Sequence
		}
	}
	if err := p.writeAcks(acks, rejects); err != nil {
		return err
	}

	sendTime := vdtypes.TimestampNow()
	p.statsLock.Lock()
	p.Stats.LastSend = &sendTime
	p.Stats.SentMsgs += uint64(len(msgsToSend))
	if highestSent > p.Stats.HighestSent {
		p.Stats.HighestSent = highestSent
	}
	if p.lastDrainHWM != nil {
		p.Stats.AckBase = *p.lastDrainHWM
	}
	p.statsLock.Unlock()

	return nil
}

func (p *peer) deliver(msgsToSend []*vdapi.RelayMessage) ([]*vdapi.DeliveryResult, error) {
	batch := &vdapi.RelayDeliveryBatch{Node: p.rm.nodeName, Messages: msgsToSend}
	var results []*vdapi.DeliveryResult
	err := p.rm.sendShortRetry.Do(p.ctx, func(attempt int) (retryable bool, err error) {
		results = nil
		if rpcErr := p.client.CallRPC(p.ctx, &results, "relay_deliver", batch); rpcErr != nil {
			return true, rpcErr
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	log.L(p.ctx).Infof("Delivered %d message(s) to %s", len(msgsToSend), p.Name)
	return results, nil
}

// writeAcks commits the ack rows and runs any registered fault handlers in
// the same transaction, so a leg failure lands exactly once.
func (p *peer) writeAcks(acks []*vdapi.RelayMessageAck, faults []*deliveryFault) error {
	return p.rm.p.Transaction(p.ctx, func(ctx context.Context, dbTX persistence.DBTX) error {
		err := dbTX.DB().
			WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(acks).
			Error
		if err != nil {
			return err
		}
		for _, f := range faults {
			receiver := p.rm.getReceiver(f.msg.MessageType.V())
			handler, ok := receiver.(components.RelayDeliveryFaultHandler)
			if !ok {
				log.L(ctx).Warnf("No fault handler for undeliverable %s message %s: %s", f.msg.MessageType, f.msg.ID, f.reason)
				continue
			}
			if err := handler.HandleDeliveryFault(ctx, dbTX, f.msg, f.reason); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *peer) sender() {
	defer close(p.senderDone)

	log.L(p.ctx).Infof("peer %s active", p.Name)

	checkNew := false
	for {

		// We send/resend any persisted messages queued up first
		err := p.rm.reliableScanRetry.Do(p.ctx, func(attempt int) (retryable bool, err error) {
			return true, p.reliableMessageScan(checkNew)
		})
		if err != nil {
			return // context closed
		}
		checkNew = false

		// Our wait timeout needs to be the shortest of:
		// - The full re-scan timeout for reliable messages
		// - The inactivity timeout
		resendTimer := time.NewTimer(p.rm.reliableMessageResend)
		select {
		case <-resendTimer.C:
			// spin round and check if we have persisted messages to (re)process
		case <-p.persistedMsgsAvailable:
			resendTimer.Stop()
			checkNew = true // spin round and get the messages
		case <-p.ctx.Done():
			resendTimer.Stop()
			return // we're done
		}
	}
}

func (p *peer) isInactive() bool {
	p.statsLock.Lock()
	defer p.statsLock.Unlock()

	now := time.Now()
	return (p.Stats.LastSend == nil || now.Sub(p.Stats.LastSend.Time()) > p.rm.peerInactivityTimeout) &&
		(p.Stats.LastReceive == nil || now.Sub(p.Stats.LastReceive.Time()) > p.rm.peerInactivityTimeout)
}

func (p *peer) close() {
	p.cancelCtx()
	if p.senderStarted.Load() {
		<-p.senderDone
	}
}
