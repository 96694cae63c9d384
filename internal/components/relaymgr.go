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
	"context"

	"github.com/google/uuid"

	"github.com/veridict-io/veridict/pkg/persistence"
	"github.com/veridict-io/veridict/pkg/vdapi"
	"github.com/veridict-io/veridict/pkg/vdtypes"
)

// RelaySend is the sending manager's view of a message - the relay assigns
// the ID, sequence and signature when it writes the envelope.
type RelaySend struct {
	Channel     uuid.UUID
	MessageType vdapi.RelayMessageType
	Destination string
	Payload     vdtypes.RawJSON
	Expires     *vdtypes.Timestamp
}

// RelayReceiver is implemented by each manager that consumes a message type.
// HandleMessage runs inside the receive transaction, in sequence order for
// the channel - returning an error rolls the whole delivery batch back and
// the peer redelivers, unless the error is marked with RelayReject in which
// case this one message is permanently nacked and the batch continues.
type RelayReceiver interface {
	HandleMessage(ctx context.Context, dbTX persistence.DBTX, msg *vdapi.RelayMessage) error
}

// RelayDeliveryFaultHandler is optionally implemented by a receiver to be
// told when a message of its type that THIS node sent will never be
// delivered - rejected by the destination, or expired before delivery. The
// handler runs in the transaction that acks the message.
type RelayDeliveryFaultHandler interface {
	HandleDeliveryFault(ctx context.Context, dbTX persistence.DBTX, msg *vdapi.RelayMessage, reason error) error
}

// RelayRejectError wraps a receiver error to mark the message permanently
// unprocessable, so the sender stops redelivering it.
type RelayRejectError struct{ Err error }

func (e *RelayRejectError) Error() string { return e.Err.Error() }

func (e *RelayRejectError) Unwrap() error { return e.Err }

func RelayReject(err error) error { return &RelayRejectError{Err: err} }

type RelayManager interface {
	ManagerLifecycle

	// KnownPeer reports whether the named node is in this node's peer list.
	KnownPeer(node string) bool

	// RegisterReceiver binds the consumer for one message type. All
	// receivers must be registered during PostInit - registration is
	// rejected once the relay has started.
	RegisterReceiver(messageType vdapi.RelayMessageType, receiver RelayReceiver) error

	// Send queues a message for reliable in-order delivery, in the supplied
	// transaction. The envelope is signed and persisted with its sequence
	// before this returns; actual transmission happens after commit, and
	// survives restarts - the message is resent until the destination acks
	// it, rejects it, or it expires.
	Send(ctx context.Context, dbTX persistence.DBTX, send *RelaySend) (*vdapi.RelayMessage, error)

	// PeerInfo snapshots the currently activated peers.
	PeerInfo(ctx context.Context) []*vdapi.PeerInfo
}
