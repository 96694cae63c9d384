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
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"gorm.io/gorm/clause"

	"github.com/veridict-io/veridict/internal/components"
	"github.com/veridict-io/veridict/internal/flushwriter"
	"github.com/veridict-io/veridict/internal/msgs"
	"github.com/veridict-io/veridict/pkg/log"
	"github.com/veridict-io/veridict/pkg/persistence"
	"github.com/veridict-io/veridict/pkg/signkeys"
	"github.com/veridict-io/veridict/pkg/vdapi"
	"github.com/veridict-io/veridict/pkg/vdconf"
	"github.com/veridict-io/veridict/pkg/vdtypes"
)

type deliveredMsgOp struct {
	p   *peer
	msg *vdapi.RelayMessage
}

func (op *deliveredMsgOp) WriteKey() string {
	return op.p.Name
}

// deliveredResult distinguishes the two non-error outcomes the sender needs
// to know about - already applied, or permanently unprocessable. A transient
// failure instead fails the whole batch via the writer.
type deliveredResult struct {
	duplicate bool
	rejectErr error
}

// DeliverBatch is the relay_deliver entrypoint - an in-order page of one
// peer's outbox. Messages are verified against the peer's registered signing
// address before any database work, then applied in sequence order inside a
// receive transaction. The returned results are positional with the batch.
func (rm *relayManager) DeliverBatch(ctx context.Context, batch *vdapi.RelayDeliveryBatch) ([]*vdapi.DeliveryResult, error) {
	if !rm.started.Load() {
		return nil, i18n.NewError(ctx, msgs.MsgRelayNotStarted)
	}
	p, err := rm.getPeer(ctx, batch.Node, false)
	if err != nil {
		return nil, err
	}
	p.updateReceivedStats(len(batch.Messages))
	peerConf := rm.conf.Peers[batch.Node]

	results := make([]*vdapi.DeliveryResult, len(batch.Messages))
	ops := make([]flushwriter.Operation[*deliveredMsgOp, *deliveredResult], len(batch.Messages))
	for i, msg := range batch.Messages {
		dr := &vdapi.DeliveryResult{}
		results[i] = dr
		if msg == nil {
			dr.Rejected = true
			dr.Error = i18n.NewError(ctx, msgs.MsgRelayInvalidMessage, "empty entry in batch").Error()
			continue
		}
		dr.MessageID = msg.ID
		if rejectErr := rm.validateEnvelope(ctx, peerConf, batch.Node, msg); rejectErr != nil {
			log.L(ctx).Errorf("Rejecting message %s from %s: %s", msg.ID, batch.Node, rejectErr)
			dr.Rejected = true
			dr.Error = rejectErr.Error()
			continue
		}
		ops[i] = rm.receiveWriter.Queue(ctx, &deliveredMsgOp{p: p, msg: msg})
	}

	for i, op := range ops {
		if op == nil {
			continue // rejected before dispatch
		}
		res, err := op.WaitFlushed(ctx)
		if err != nil {
			// Transient - fail the whole call so the peer redelivers the batch.
			// Anything already committed re-arrives as a duplicate and acks again.
			return nil, err
		}
		if res.duplicate {
			results[i].Duplicate = true
		}
		if res.rejectErr != nil {
			results[i].Rejected = true
			results[i].Error = res.rejectErr.Error()
		}
	}
	return results, nil
}

// validateEnvelope runs the checks that need no database - identity,
// addressing and the signature against the peer's registered key. Failures
// are permanent rejections.
func (rm *relayManager) validateEnvelope(ctx context.Context, peerConf *vdconf.PeerConfig, fromNode string, msg *vdapi.RelayMessage) error {
	var zeroUUID uuid.UUID
	if msg.ID == zeroUUID || msg.MessageType == "" || msg.Payload == nil {
		return i18n.NewError(ctx, msgs.MsgRelayInvalidMessage, "missing id, type or payload")
	}
	if msg.Source != fromNode {
		return i18n.NewError(ctx, msgs.MsgRelayInvalidMessage,
			"source '"+msg.Source+"' does not match delivering peer '"+fromNode+"'")
	}
	if msg.Destination != rm.nodeName {
		return i18n.NewError(ctx, msgs.MsgRelayWrongDestination, msg.Destination, rm.nodeName)
	}
	signingPayload := vdapi.RelaySigningPayload(msg.ID, msg.Channel, msg.Payload)
	if err := signkeys.Verify(ctx, signingPayload, msg.Signature, peerConf.SignerAddress); err != nil {
		return i18n.WrapError(ctx, err, msgs.MsgRelayBadEnvelopeSignature, fromNode)
	}
	return nil
}

func (rm *relayManager) handleDeliveredBatch(ctx context.Context, dbTX persistence.DBTX, values []*deliveredMsgOp) ([]flushwriter.Result[*deliveredResult], error) {

	results := make([]flushwriter.Result[*deliveredResult], len(values))
	for i, v := range values {
		res := &deliveredResult{}
		results[i] = flushwriter.Result[*deliveredResult]{R: res}

		// The dedup journal insert doubles as the replay check
		received := &vdapi.RelayReceived{ID: v.msg.ID, Peer: v.p.Name, Time: vdtypes.TimestampNow()}
		ins := dbTX.DB().WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(received)
		if ins.Error != nil {
			return nil, ins.Error
		}
		if ins.RowsAffected == 0 {
			log.L(ctx).Debugf("Duplicate delivery of message %s from %s", v.msg.ID, v.p.Name)
			res.duplicate = true
			continue
		}

		receiver := rm.getReceiver(v.msg.MessageType.V())
		if receiver == nil {
			var vp struct {
				Version string `json:"version"`
			}
			_ = json.Unmarshal(v.msg.Payload, &vp)
			res.rejectErr = i18n.NewError(ctx, msgs.MsgRelayUnsupportedPayload, v.msg.MessageType, vp.Version)
			continue
		}

		if err := receiver.HandleMessage(ctx, dbTX, v.msg); err != nil {
			var reject *components.RelayRejectError
			if errors.As(err, &reject) {
				// Permanent - the dedup row stays so replays ack without re-dispatch
				log.L(ctx).Errorf("Message %s from %s rejected by receiver: %s", v.msg.ID, v.p.Name, err)
				res.rejectErr = err
				continue
			}
			// Transient - roll the whole batch back and let the peer redeliver
			return nil, err
		}
	}
	return results, nil
}
