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
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"gorm.io/gorm/clause"

	"github.com/veridict-io/veridict/internal/components"
	"github.com/veridict-io/veridict/internal/msgs"
	"github.com/veridict-io/veridict/pkg/log"
	"github.com/veridict-io/veridict/pkg/persistence"
	"github.com/veridict-io/veridict/pkg/signkeys"
	"github.com/veridict-io/veridict/pkg/vdapi"
	"github.com/veridict-io/veridict/pkg/vdtypes"
)

// SubmitAttestation verifies and records a signed attestation. On a mirror
// node the attestation is also queued to the source ledger over the relay;
// on the source node recording drives consensus evaluation in the same
// transaction (see docs in components package).
func (om *oracleManager) SubmitAttestation(ctx context.Context, input *vdapi.AttestationInput) (*vdapi.AttestationReceipt, error) {
	att := &vdapi.Attestation{
		ID:        uuid.New(),
		Condition: input.Condition,
		Source:    strings.ToLower(input.Source),
		Milestone: input.Milestone,
		Claim:     input.Claim,
		Signature: input.Signature,
		Observed:  input.Observed,
		Received:  vdtypes.TimestampNow(),
	}
	if err := om.verifyAttestation(ctx, att); err != nil {
		return nil, err
	}
	var receipt *vdapi.AttestationReceipt
	err := om.p.Transaction(ctx, func(ctx context.Context, dbTX persistence.DBTX) (err error) {
		cond, prior, err := om.checkAttestation(ctx, dbTX, att)
		if err != nil {
			return err
		}
		receipt, err = om.applyAttestation(ctx, dbTX, cond, att, prior)
		return err
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// verifyAttestation applies every check that needs no database - claim shape,
// and the signature recovery to the source identity.
func (om *oracleManager) verifyAttestation(ctx context.Context, att *vdapi.Attestation) error {
	if att.Source == "" {
		return i18n.NewError(ctx, msgs.MsgOracleInvalidAttestation, "source required")
	}
	if att.Milestone < 0 {
		return i18n.NewError(ctx, msgs.MsgOracleInvalidAttestation, "milestone must not be negative")
	}
	if _, err := claimMap(ctx, att.Claim); err != nil {
		return err
	}
	payload := vdapi.AttestationSigningPayload(att.Condition, att.Milestone, att.Observed, att.Claim)
	if err := signkeys.Verify(ctx, payload, att.Signature, att.Source); err != nil {
		log.L(ctx).Debugf("attestation signature rejected for condition %s: %s", att.Condition, err)
		return i18n.NewError(ctx, msgs.MsgOracleBadSignature, att.Source)
	}
	return nil
}

// checkAttestation applies the database-backed validations in the caller's
// transaction - source authorization, condition status, and the prior row
// from this source (nil on first submission). A prior row carrying a
// different claim is a conflict, unless the condition is disputed where
// sources are invited to re-attest.
func (om *oracleManager) checkAttestation(ctx context.Context, dbTX persistence.DBTX, att *vdapi.Attestation) (*vdapi.Condition, *vdapi.Attestation, error) {
	if err := om.authorizeSource(ctx, dbTX, att.Source); err != nil {
		return nil, nil, err
	}
	cond, err := om.getCondition(ctx, dbTX, att.Condition)
	if err != nil {
		return nil, nil, err
	}
	switch cond.Status.V() {
	case vdapi.ConditionStatusActive, vdapi.ConditionStatusTriggered, vdapi.ConditionStatusDisputed:
	default:
		return nil, nil, i18n.NewError(ctx, msgs.MsgOracleConditionNotActive, att.Condition, cond.Status)
	}
	if cond.ConditionType.V() != vdapi.ConditionTypeMilestoneBased && att.Milestone != 0 {
		return nil, nil, i18n.NewError(ctx, msgs.MsgOracleInvalidAttestation, "milestone only valid for milestone-based conditions")
	}
	var priors []*vdapi.Attestation
	err = dbTX.DB().WithContext(ctx).
		Where("condition = ?", att.Condition).
		Where("source = ?", att.Source).
		Where("milestone = ?", att.Milestone).
		Limit(1).
		Find(&priors).
		Error
	if err != nil {
		return nil, nil, err
	}
	if len(priors) > 0 {
		prior := priors[0]
		differs := !bytes.Equal(prior.Claim.BytesOrNull(), att.Claim.BytesOrNull())
		if differs && cond.Status.V() != vdapi.ConditionStatusDisputed {
			return nil, nil, i18n.NewError(ctx, msgs.MsgOracleDuplicateAttestation, att.Source, att.Condition)
		}
		return cond, prior, nil
	}
	return cond, nil, nil
}

func (om *oracleManager) authorizeSource(ctx context.Context, dbTX persistence.DBTX, source string) error {
	var sources []*vdapi.OracleSource
	err := dbTX.DB().WithContext(ctx).
		Where("identity = ?", source).
		Limit(1).
		Find(&sources).
		Error
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return i18n.NewError(ctx, msgs.MsgOracleUnauthorizedSource, source)
	}
	if sources[0].Status.V() == vdapi.OracleSourceRevoked {
		return i18n.NewError(ctx, msgs.MsgOracleRevokedSource, source)
	}
	return nil
}

// getCondition reads the condition row in this transaction - the status gate
// has to hold for the row the insert lands against, not a cached copy.
func (om *oracleManager) getCondition(ctx context.Context, dbTX persistence.DBTX, id uuid.UUID) (*vdapi.Condition, error) {
	var conds []*vdapi.Condition
	err := dbTX.DB().WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&conds).
		Error
	if err != nil {
		return nil, err
	}
	if len(conds) == 0 {
		return nil, i18n.NewError(ctx, msgs.MsgOracleConditionUnknown, id)
	}
	return conds[0], nil
}

// applyAttestation records the (already validated) attestation, then either
// forwards it to the source ledger or evaluates consensus locally, all within
// the caller's transaction.
func (om *oracleManager) applyAttestation(ctx context.Context, dbTX persistence.DBTX, cond *vdapi.Condition, att *vdapi.Attestation, prior *vdapi.Attestation) (*vdapi.AttestationReceipt, error) {
	if prior != nil {
		if bytes.Equal(prior.Claim.BytesOrNull(), att.Claim.BytesOrNull()) {
			log.L(ctx).Debugf("duplicate attestation for condition %s from '%s' (milestone %d)", att.Condition, att.Source, att.Milestone)
			return &vdapi.AttestationReceipt{
				ID:        prior.ID,
				Condition: prior.Condition,
				Source:    prior.Source,
				Received:  prior.Received,
				Duplicate: true,
			}, nil
		}
		// disputed - the source is re-attesting with a replacement claim
		att.ID = prior.ID
		err := dbTX.DB().WithContext(ctx).
			Model(&vdapi.Attestation{}).
			Where("id = ?", prior.ID).
			Updates(map[string]any{
				"claim":     att.Claim,
				"signature": att.Signature,
				"observed":  att.Observed,
				"received":  att.Received,
			}).
			Error
		if err != nil {
			return nil, err
		}
	} else {
		ins := dbTX.DB().WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(att)
		if ins.Error != nil {
			return nil, ins.Error
		}
		if ins.RowsAffected == 0 {
			// raced a concurrent submission from the same source
			return nil, i18n.NewError(ctx, msgs.MsgOracleDuplicateAttestation, att.Source, att.Condition)
		}
	}
	if cond.SourceLedger != om.nodeName {
		// we hold a mirror - the source ledger owns evaluation
		fwd := &vdapi.AttestationForwardV1{Version: vdapi.RelayPayloadV1, Attestation: att}
		if _, err := om.relay.Send(ctx, dbTX, &components.RelaySend{
			Channel:     att.Condition,
			MessageType: vdapi.RMTAttestationForward,
			Destination: cond.SourceLedger,
			Payload:     vdtypes.JSONString(fwd),
			Expires:     cond.ExecutionDeadline,
		}); err != nil {
			return nil, err
		}
	} else if _, err := om.evaluateInTX(ctx, dbTX, cond, att.Milestone); err != nil {
		return nil, err
	}
	return &vdapi.AttestationReceipt{
		ID:        att.ID,
		Condition: att.Condition,
		Source:    att.Source,
		Received:  att.Received,
	}, nil
}

// attestationReceiver consumes attestation_forward messages relayed by mirror
// nodes. Validation failures nack permanently so the sending mirror records
// the fault; anything else rolls the delivery batch back for redelivery.
type attestationReceiver struct {
	om *oracleManager
}

func (ar *attestationReceiver) HandleMessage(ctx context.Context, dbTX persistence.DBTX, msg *vdapi.RelayMessage) error {
	om := ar.om
	var fwd vdapi.AttestationForwardV1
	if err := json.Unmarshal(msg.Payload, &fwd); err != nil || fwd.Version != vdapi.RelayPayloadV1 || fwd.Attestation == nil {
		return components.RelayReject(i18n.NewError(ctx, msgs.MsgRelayUnsupportedPayload, msg.MessageType, fwd.Version))
	}
	att := fwd.Attestation
	att.Source = strings.ToLower(att.Source)
	att.Received = vdtypes.TimestampNow()
	if att.ID == (uuid.UUID{}) {
		att.ID = uuid.New()
	}
	if err := om.acceptForwarded(ctx, dbTX, att); err != nil {
		if isSemanticReject(err) {
			return components.RelayReject(err)
		}
		return err // transient - the whole batch redelivers
	}
	return nil
}

func (om *oracleManager) acceptForwarded(ctx context.Context, dbTX persistence.DBTX, att *vdapi.Attestation) error {
	if err := om.verifyAttestation(ctx, att); err != nil {
		return err
	}
	cond, prior, err := om.checkAttestation(ctx, dbTX, att)
	if err != nil {
		return err
	}
	if cond.SourceLedger != om.nodeName {
		return i18n.NewError(ctx, msgs.MsgConditionNotSource, att.Condition, cond.SourceLedger)
	}
	_, err = om.applyAttestation(ctx, dbTX, cond, att, prior)
	return err
}

// rejectCodes are this manager's own validation outcomes - permanent by
// definition, since no redelivery of the same bytes can change them. A raw
// database error deliberately stays retryable.
var rejectCodes = []i18n.ErrorMessageKey{
	msgs.MsgOracleUnauthorizedSource,
	msgs.MsgOracleRevokedSource,
	msgs.MsgOracleBadSignature,
	msgs.MsgOracleConditionUnknown,
	msgs.MsgOracleConditionNotActive,
	msgs.MsgOracleBadCriteria,
	msgs.MsgOracleCriteriaHashMismatch,
	msgs.MsgOracleClaimInvalid,
	msgs.MsgOracleEvalFailed,
	msgs.MsgOracleDuplicateAttestation,
	msgs.MsgOracleInvalidAttestation,
	msgs.MsgConditionNotSource,
}

func isSemanticReject(err error) bool {
	errString := err.Error()
	for _, code := range rejectCodes {
		if strings.HasPrefix(errString, string(code)) {
			return true
		}
	}
	return false
}
