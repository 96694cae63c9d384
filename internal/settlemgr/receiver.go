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
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hyperledger/firefly-common/pkg/i18n"

	"github.com/veridict-io/veridict/internal/components"
	"github.com/veridict-io/veridict/internal/msgs"
	"github.com/veridict-io/veridict/pkg/log"
	"github.com/veridict-io/veridict/pkg/persistence"
	"github.com/veridict-io/veridict/pkg/vdapi"
	"github.com/veridict-io/veridict/pkg/vdtypes"
)

// payoutInstructionReceiver executes relayed legs on the node that operates
// their ledger. The submission lands in the same transaction that consumes
// the message, so redelivery collapses on the intent ref, and the result
// travels back once the ledger transaction is final.
type payoutInstructionReceiver struct {
	sm *settlementManager
}

func (r *payoutInstructionReceiver) HandleMessage(ctx context.Context, dbTX persistence.DBTX, msg *vdapi.RelayMessage) error {
	sm := r.sm
	var body vdapi.PayoutInstructionV1
	if err := json.Unmarshal(msg.Payload, &body); err != nil || body.Version != vdapi.RelayPayloadV1 || body.Record == nil {
		return components.RelayReject(i18n.NewError(ctx, msgs.MsgRelayUnsupportedPayload, msg.MessageType, body.Version))
	}
	rec := body.Record
	if !sm.ledgers.HasAdapter(rec.Ledger) {
		return components.RelayReject(i18n.NewError(ctx, msgs.MsgSettleBadInstruction, "ledger not operated by this node"))
	}
	if rec.Amount == nil || rec.Amount.Sign() <= 0 {
		return components.RelayReject(i18n.NewError(ctx, msgs.MsgSettleBadInstruction, "missing or non-positive amount"))
	}
	// a pause here is transient by design - the channel holds its ordered
	// backlog until governance releases it
	if err := sm.governor.CheckRelease(ctx, rec); err != nil {
		return err
	}
	sub, err := sm.ledgers.SubmitAndTrack(ctx, dbTX, legIntent(rec))
	if err != nil {
		return err
	}
	log.L(ctx).Infof("Executing payout instruction for leg %s (condition=%s, ledger=%s)", rec.ID, rec.Condition, rec.Ledger)
	afterCommit(ctx, dbTX, func(ctx context.Context) {
		go sm.completeRemoteLeg(sm.bgCtx, msg, rec, sub.ID)
	})
	return nil
}

// HandleDeliveryFault runs back on the source node when the executing node
// permanently rejected the instruction, or it expired undelivered. The leg
// parks as stalled with the reason: funds stay escrowed, and the stall
// sweep keeps surfacing it until governance or a ruling moves things.
func (r *payoutInstructionReceiver) HandleDeliveryFault(ctx context.Context, dbTX persistence.DBTX, msg *vdapi.RelayMessage, reason error) error {
	var body vdapi.PayoutInstructionV1
	if err := json.Unmarshal(msg.Payload, &body); err != nil || body.Record == nil {
		return nil
	}
	log.L(ctx).Errorf("Payout instruction for leg %s faulted at %s: %s", body.Record.ID, msg.Destination, reason)
	return applyLegResult(ctx, dbTX, &legOutcome{
		leg:    body.Record,
		to:     vdapi.ExecutionStalled,
		errMsg: reason.Error(),
	}, vdtypes.TimestampNow())
}

// completeRemoteLeg reports an executed instruction back to the source node
// once the ledger transaction is final. A lost or unsendable result
// self-heals: the source's stall sweep re-instructs, the re-execution
// collapses on the intent ref, and the result rides again.
func (sm *settlementManager) completeRemoteLeg(ctx context.Context, msg *vdapi.RelayMessage, rec *vdapi.ExecutionRecord, subID uuid.UUID) {
	final, err := sm.ledgers.WaitFinal(ctx, subID)
	if err != nil {
		log.L(ctx).Warnf("Finality wait for instructed leg %s interrupted: %s", rec.ID, err)
		return
	}
	result := &vdapi.PayoutResultV1{
		Version:   vdapi.RelayPayloadV1,
		RecordID:  rec.ID,
		Condition: rec.Condition,
		TxRef:     final.TxRef,
	}
	if final.Status.V() == vdapi.SubmissionConfirmed {
		result.Status = vdapi.ExecutionConfirmed.Enum()
	} else {
		result.Status = vdapi.ExecutionFailed.Enum()
		result.Error = final.Error
	}
	payload := vdtypes.JSONString(result)
	err = sm.dispatchRetry.Do(ctx, func(attempt int) (bool, error) {
		return true, sm.p.Transaction(ctx, func(ctx context.Context, dbTX persistence.DBTX) error {
			_, err := sm.relay.Send(ctx, dbTX, &components.RelaySend{
				Channel:     msg.Channel,
				MessageType: vdapi.RMTPayoutResult,
				Destination: msg.Source,
				Payload:     payload,
			})
			return err
		})
	})
	if err != nil {
		log.L(ctx).Errorf("Payout result for leg %s not sent (source stall sweep re-instructs): %s", rec.ID, err)
	}
}

// payoutResultReceiver lands the executing node's verdict on a leg back on
// the source node. The submitted-status guard underneath makes replays and
// races with the local dispatcher harmless.
type payoutResultReceiver struct {
	sm *settlementManager
}

func (r *payoutResultReceiver) HandleMessage(ctx context.Context, dbTX persistence.DBTX, msg *vdapi.RelayMessage) error {
	sm := r.sm
	var body vdapi.PayoutResultV1
	if err := json.Unmarshal(msg.Payload, &body); err != nil || body.Version != vdapi.RelayPayloadV1 {
		return components.RelayReject(i18n.NewError(ctx, msgs.MsgRelayUnsupportedPayload, msg.MessageType, body.Version))
	}
	outcome, err := body.Status.Validate()
	if err != nil || (outcome != vdapi.ExecutionConfirmed && outcome != vdapi.ExecutionFailed) {
		return components.RelayReject(i18n.NewError(ctx, msgs.MsgSettleBadInstruction, "result status must be terminal"))
	}
	leg, err := sm.getLeg(ctx, dbTX, body.RecordID)
	if err != nil {
		return err
	}
	if leg == nil {
		return components.RelayReject(i18n.NewError(ctx, msgs.MsgSettleLegNotFound, body.RecordID))
	}
	if leg.Condition != body.Condition || leg.Ledger != msg.Source {
		return components.RelayReject(i18n.NewError(ctx, msgs.MsgSettleBadInstruction, "result does not match the leg"))
	}
	err = applyLegResult(ctx, dbTX, &legOutcome{
		leg:    leg,
		to:     outcome,
		txRef:  body.TxRef,
		errMsg: body.Error,
	}, vdtypes.TimestampNow())
	if err != nil {
		return err
	}
	log.L(ctx).Infof("Settlement leg %s resolved %s by %s (tx=%s)", leg.ID, outcome, msg.Source, body.TxRef)
	if outcome == vdapi.ExecutionConfirmed {
		afterCommit(ctx, dbTX, func(ctx context.Context) {
			if err := sm.finalizeIfSettled(ctx, leg.Condition); err != nil {
				log.L(ctx).Errorf("Settlement completion check for condition %s failed (next confirmation retries): %s", leg.Condition, err)
			}
		})
	}
	return nil
}

// HandleDeliveryFault runs on the executing node when its result cannot be
// delivered. Nothing to repair locally - the source re-instructs through
// its stall sweep and the result rides the retry.
func (r *payoutResultReceiver) HandleDeliveryFault(ctx context.Context, dbTX persistence.DBTX, msg *vdapi.RelayMessage, reason error) error {
	log.L(ctx).Warnf("Payout result delivery failed permanently (channel=%s destination=%s): %s", msg.Channel, msg.Destination, reason)
	return nil
}
