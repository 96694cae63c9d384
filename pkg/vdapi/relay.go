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

package vdapi

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/veridict-io/veridict/pkg/vdtypes"
)

type RelayMessageType string

const (
	RMTConditionCreate    RelayMessageType = "condition_create"
	RMTAttestationForward RelayMessageType = "attestation_forward"
	RMTStatusUpdate       RelayMessageType = "status_update"
	RMTPayoutInstruction  RelayMessageType = "payout_instruction"
	RMTPayoutResult       RelayMessageType = "payout_result"
)

func (t RelayMessageType) Enum() vdtypes.Enum[RelayMessageType] {
	return vdtypes.Enum[RelayMessageType](t)
}

func (t RelayMessageType) Options() []string {
	return []string{
		string(RMTConditionCreate),
		string(RMTAttestationForward),
		string(RMTStatusUpdate),
		string(RMTPayoutInstruction),
		string(RMTPayoutResult),
	}
}

// RelayMessage is the cross-ledger envelope. The sequence is assigned by the
// sending node's database and drives in-order replay per destination; the
// channel is the condition ID, giving per-condition ordering. The signature
// is compact R/S/V by the sending node's key over RelaySigningPayload.
type RelayMessage struct {
	Sequence    uint64                         `json:"sequence"          gorm:"column:sequence;primaryKey"`
	ID          uuid.UUID                      `json:"id"                gorm:"column:id"`
	Created     vdtypes.Timestamp              `json:"created"           gorm:"column:created;autoCreateTime:false"`
	Channel     uuid.UUID                      `json:"channel"           gorm:"column:channel"`
	MessageType vdtypes.Enum[RelayMessageType] `json:"messageType"       gorm:"column:msg_type"`
	Source      string                         `json:"source"            gorm:"column:source"`
	Destination string                         `json:"destination"       gorm:"column:destination"`
	Payload     vdtypes.RawJSON                `json:"payload"           gorm:"column:payload"`
	Expires     *vdtypes.Timestamp             `json:"expires,omitempty" gorm:"column:expires"`
	Signature   vdtypes.HexBytes               `json:"signature"         gorm:"column:signature"`
	Ack         *RelayMessageAckNoMsgID        `json:"ack,omitempty"     gorm:"foreignKey:MessageID;references:ID"`
}

func (rm RelayMessage) TableName() string {
	return "relay_msgs"
}

// RelaySigningPayload is the canonical byte sequence the sending node signs
// for an envelope - message identity, channel, and a keccak digest of the
// payload bytes as transmitted.
func RelaySigningPayload(messageID, channel uuid.UUID, payload vdtypes.RawJSON) []byte {
	digest := vdtypes.Bytes32Keccak(payload.BytesOrNull())
	return []byte(fmt.Sprintf("veridict/relay/%s/%s/%s", messageID, channel, digest))
}

type RelayMessageAckNoMsgID struct {
	MessageID uuid.UUID         `json:"-"               gorm:"column:id;primaryKey"`
	Time      vdtypes.Timestamp `json:"time,omitempty"  gorm:"column:time;autoCreateTime:false"`
	Error     string            `json:"error,omitempty" gorm:"column:error"`
}

func (rma RelayMessageAckNoMsgID) TableName() string {
	return "relay_msg_acks"
}

type RelayMessageAck struct {
	MessageID uuid.UUID         `json:"messageId,omitempty" gorm:"column:id;primaryKey"`
	Time      vdtypes.Timestamp `json:"time,omitempty"      gorm:"column:time;autoCreateTime:false"`
	Error     string            `json:"error,omitempty"     gorm:"column:error"`
}

func (rma RelayMessageAck) TableName() string {
	return "relay_msg_acks"
}

// RelayReceived is the receiving side's dedup journal - inserted with
// conflict-do-nothing before a message is applied, so replays are detected
// and acked without re-application.
type RelayReceived struct {
	ID   uuid.UUID         `json:"id"   gorm:"column:id;primaryKey"`
	Peer string            `json:"peer" gorm:"column:peer"`
	Time vdtypes.Timestamp `json:"time" gorm:"column:time;autoCreateTime:false"`
}

func (rr RelayReceived) TableName() string {
	return "relay_received"
}

// RelayDeliveryBatch is the relay_deliver parameter - an in-order page of a
// peer's outbox.
type RelayDeliveryBatch struct {
	Node     string          `json:"node"`
	Messages []*RelayMessage `json:"messages"`
}

// DeliveryResult carries the per-message ack/nack in the relay_deliver
// response. Rejected=true is a permanent nack - the sender acks the row with
// the error recorded and never resends it.
type DeliveryResult struct {
	MessageID uuid.UUID `json:"messageId"`
	Rejected  bool      `json:"rejected,omitempty"`
	Duplicate bool      `json:"duplicate,omitempty"`
	Error     string    `json:"error,omitempty"`
}

type PeerInfo struct {
	Name      string            `json:"name"`
	Endpoint  string            `json:"endpoint,omitempty"`
	Activated vdtypes.Timestamp `json:"activated"`
	Stats     PeerStats         `json:"stats"`
}

type PeerStats struct {
	SentMsgs     uint64             `json:"sentMsgs"`
	ReceivedMsgs uint64             `json:"receivedMsgs"`
	LastSend     *vdtypes.Timestamp `json:"lastSend,omitempty"`
	LastReceive  *vdtypes.Timestamp `json:"lastReceive,omitempty"`
	HighestSent  uint64             `json:"highestSent"`
	AckBase      uint64             `json:"ackBase"`
}

// Versioned payload bodies for the envelope types. Unknown versions (and
// unknown message types) nack without poisoning the channel.
const RelayPayloadV1 = "v1"

type ConditionCreateV1 struct {
	Version   string     `json:"version"`
	Condition *Condition `json:"condition"`
}

type AttestationForwardV1 struct {
	Version     string       `json:"version"`
	Attestation *Attestation `json:"attestation"`
}

type StatusUpdateV1 struct {
	Version            string                        `json:"version"`
	Condition          uuid.UUID                     `json:"condition"`
	Status             vdtypes.Enum[ConditionStatus] `json:"status"`
	SettlementProof    *vdtypes.Bytes32              `json:"settlementProof,omitempty"`
	MilestonesReleased int                           `json:"milestonesReleased,omitempty"`
	Updated            vdtypes.Timestamp             `json:"updated"`
}

type PayoutInstructionV1 struct {
	Version string           `json:"version"`
	Record  *ExecutionRecord `json:"record"`
}

type PayoutResultV1 struct {
	Version   string                        `json:"version"`
	RecordID  uuid.UUID                     `json:"recordId"`
	Condition uuid.UUID                     `json:"condition"`
	Status    vdtypes.Enum[ExecutionStatus] `json:"status"`
	TxRef     string                        `json:"txRef,omitempty"`
	Error     string                        `json:"error,omitempty"`
}
