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
	"encoding/json"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"gorm.io/gorm/clause"

	"github.com/veridict-io/veridict/internal/components"
	"github.com/veridict-io/veridict/internal/msgs"
	"github.com/veridict-io/veridict/pkg/log"
	"github.com/veridict-io/veridict/pkg/persistence"
	"github.com/veridict-io/veridict/pkg/vdapi"
)

// conditionCreateReceiver applies condition_create messages on execution
// ledgers. The mirror copy is rejected permanently when it fails content
// verification - the source node records the fault and operators take it
// from there. Database errors roll the delivery batch back for redelivery.
type conditionCreateReceiver struct {
	cm *conditionManager
}

func (r *conditionCreateReceiver) HandleMessage(ctx context.Context, dbTX persistence.DBTX, msg *vdapi.RelayMessage) error {
	cm := r.cm
	var body vdapi.ConditionCreateV1
	if err := json.Unmarshal(msg.Payload, &body); err != nil || body.Version != vdapi.RelayPayloadV1 || body.Condition == nil || body.Condition.ID == nil {
		return components.RelayReject(i18n.NewError(ctx, msgs.MsgRelayUnsupportedPayload, msg.MessageType, body.Version))
	}
	cond := body.Condition
	if cond.SourceLedger != msg.Source {
		return components.RelayReject(i18n.NewError(ctx, msgs.MsgRelayInvalidMessage, "source ledger mismatch"))
	}
	expected := vdapi.ConditionGlobalHash(cond)
	if cond.GlobalHash == nil || !cond.GlobalHash.Equals(&expected) {
		return components.RelayReject(i18n.NewError(ctx, msgs.MsgConditionMirrorHashMismatch, cond.ID))
	}
	// replays land on the primary key and change nothing
	err := dbTX.DB().WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(cond).
		Error
	if err != nil {
		return err
	}
	log.L(ctx).Infof("Mirroring condition %s from %s (type=%s)", cond.ID, msg.Source, cond.ConditionType)
	cm.finalizeUpdate(ctx, dbTX, cond)
	return nil
}

// HandleDeliveryFault runs on the SOURCE node when a mirror permanently
// rejects the condition copy, or it expires undelivered. Every subsequent
// status update for the condition will bounce off that mirror too, so this
// is loud.
func (r *conditionCreateReceiver) HandleDeliveryFault(ctx context.Context, dbTX persistence.DBTX, msg *vdapi.RelayMessage, reason error) error {
	log.L(ctx).Errorf("Condition replication to %s failed permanently (channel=%s): %s", msg.Destination, msg.Channel, reason)
	return nil
}

// statusUpdateReceiver reconciles the mirror copy to the source node's
// decision. The source is authoritative and the relay delivers per-condition
// updates in order, so the update applies without an optimistic guard - even
// one that steps "backwards" such as disputed -> triggered.
type statusUpdateReceiver struct {
	cm *conditionManager
}

func (r *statusUpdateReceiver) HandleMessage(ctx context.Context, dbTX persistence.DBTX, msg *vdapi.RelayMessage) error {
	cm := r.cm
	var body vdapi.StatusUpdateV1
	if err := json.Unmarshal(msg.Payload, &body); err != nil || body.Version != vdapi.RelayPayloadV1 {
		return components.RelayReject(i18n.NewError(ctx, msgs.MsgRelayUnsupportedPayload, msg.MessageType, body.Version))
	}
	if _, err := body.Status.Validate(); err != nil {
		return components.RelayReject(i18n.WrapError(ctx, err, msgs.MsgRelayInvalidMessage, "unknown status"))
	}
	local, err := cm.getCondition(ctx, dbTX, body.Condition)
	if err != nil {
		return err
	}
	if local == nil {
		// ordering means the create preceded this update - it was rejected,
		// so everything after it on the channel is unusable too
		return components.RelayReject(i18n.NewError(ctx, msgs.MsgConditionNotFound, body.Condition))
	}
	if local.SourceLedger != msg.Source || local.SourceLedger == cm.nodeName {
		return components.RelayReject(i18n.NewError(ctx, msgs.MsgRelayInvalidMessage, "source ledger mismatch"))
	}
	err = dbTX.DB().WithContext(ctx).
		Model(&vdapi.Condition{}).
		Where("id = ?", body.Condition).
		Updates(map[string]any{
			"status":              body.Status,
			"settlement_proof":    body.SettlementProof,
			"milestones_released": body.MilestonesReleased,
			"updated":             body.Updated,
		}).
		Error
	if err != nil {
		return err
	}
	log.L(ctx).Infof("Condition %s mirror status -> %s (source=%s)", body.Condition, body.Status, msg.Source)
	local.Status = body.Status
	local.SettlementProof = body.SettlementProof
	local.MilestonesReleased = body.MilestonesReleased
	local.Updated = body.Updated
	cm.finalizeUpdate(ctx, dbTX, local)
	return nil
}

func (r *statusUpdateReceiver) HandleDeliveryFault(ctx context.Context, dbTX persistence.DBTX, msg *vdapi.RelayMessage, reason error) error {
	log.L(ctx).Errorf("Status update to %s failed permanently (channel=%s): %s", msg.Destination, msg.Channel, reason)
	return nil
}
