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
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridict-io/veridict/internal/components"
	"github.com/veridict-io/veridict/pkg/persistence"
	"github.com/veridict-io/veridict/pkg/signkeys"
	"github.com/veridict-io/veridict/pkg/vdapi"
	"github.com/veridict-io/veridict/pkg/vdtypes"
)

func signedTestMessage(t *testing.T, fromKey *signkeys.NodeKey, source, destination string, messageType vdapi.RelayMessageType, payload vdtypes.RawJSON) *vdapi.RelayMessage {
	msg := &vdapi.RelayMessage{
		ID:          uuid.New(),
		Created:     vdtypes.TimestampNow(),
		Channel:     uuid.New(),
		MessageType: messageType.Enum(),
		Source:      source,
		Destination: destination,
		Payload:     payload,
	}
	sig, err := fromKey.Sign(context.Background(), vdapi.RelaySigningPayload(msg.ID, msg.Channel, msg.Payload))
	require.NoError(t, err)
	msg.Signature = sig
	return msg
}

func TestDeliverBeforeStart(t *testing.T) {
	_, rm, _, done := newTestRelayManager(t, false, "node1", testRelayConf(t, nil), func(mc *mockComponents) {
		mc.noInit = true
	})
	defer done()

	_, err := rm.DeliverBatch(context.Background(), &vdapi.RelayDeliveryBatch{Node: "node2"})
	assert.Regexp(t, "VD010707", err)
}

func TestDeliverUnknownNode(t *testing.T) {
	ctx, rm, _, done := newTestRelayManager(t, false, "node1", testRelayConf(t, map[string]string{
		"node2": "http://127.0.0.1:1",
	}))
	defer done()

	_, err := rm.DeliverBatch(ctx, &vdapi.RelayDeliveryBatch{Node: "node9"})
	assert.Regexp(t, "VD010700", err)
}

// One batch mixing every envelope outcome, proving a bad message never
// poisons the others.
func TestDeliverBatchMixedOutcomes(t *testing.T) {
	recv := newTestReceiver()
	ctx, rm, _, done := newTestRelayManager(t, true, "node1", testRelayConf(t, map[string]string{
		"node2": "http://127.0.0.1:1",
	}), func(mc *mockComponents) {
		mc.receivers[vdapi.RMTConditionCreate] = recv
	})
	defer done()

	key2 := testNodeKey(t, node2Seed)
	good := signedTestMessage(t, key2, "node2", "node1", vdapi.RMTConditionCreate, vdtypes.RawJSON(`{"version":"v1"}`))

	noID := signedTestMessage(t, key2, "node2", "node1", vdapi.RMTConditionCreate, vdtypes.RawJSON(`{"version":"v1"}`))
	noID.ID = uuid.UUID{}

	badSource := signedTestMessage(t, key2, "node9", "node1", vdapi.RMTConditionCreate, vdtypes.RawJSON(`{"version":"v1"}`))

	wrongDest := signedTestMessage(t, key2, "node2", "node7", vdapi.RMTConditionCreate, vdtypes.RawJSON(`{"version":"v1"}`))

	tampered := signedTestMessage(t, key2, "node2", "node1", vdapi.RMTConditionCreate, vdtypes.RawJSON(`{"version":"v1"}`))
	tampered.Payload = vdtypes.RawJSON(`{"version":"v1","amount":"99999"}`)

	noReceiver := signedTestMessage(t, key2, "node2", "node1", vdapi.RMTStatusUpdate, vdtypes.RawJSON(`{"version":"v9"}`))

	results, err := rm.DeliverBatch(ctx, &vdapi.RelayDeliveryBatch{
		Node:     "node2",
		Messages: []*vdapi.RelayMessage{good, nil, noID, badSource, wrongDest, tampered, noReceiver},
	})
	require.NoError(t, err)
	require.Len(t, results, 7)

	assert.False(t, results[0].Rejected)
	assert.False(t, results[0].Duplicate)
	assert.Equal(t, good.ID, results[0].MessageID)

	assert.True(t, results[1].Rejected)
	assert.Regexp(t, "VD010701", results[1].Error)

	assert.True(t, results[2].Rejected)
	assert.Regexp(t, "VD010701", results[2].Error)

	assert.True(t, results[3].Rejected)
	assert.Regexp(t, "VD010701", results[3].Error)

	assert.True(t, results[4].Rejected)
	assert.Regexp(t, "VD010704", results[4].Error)

	assert.True(t, results[5].Rejected)
	assert.Regexp(t, "VD010703", results[5].Error)

	assert.True(t, results[6].Rejected)
	assert.Regexp(t, "VD010702.*v9", results[6].Error)

	delivered := <-recv.received
	assert.Equal(t, good.ID, delivered.ID)

	// received stats counted the whole batch
	info := rm.PeerInfo(ctx)
	require.Len(t, info, 1)
	assert.Equal(t, uint64(7), info[0].Stats.ReceivedMsgs)
}

func TestDeliverDuplicateSuppressed(t *testing.T) {
	recv := newTestReceiver()
	ctx, rm, _, done := newTestRelayManager(t, true, "node1", testRelayConf(t, map[string]string{
		"node2": "http://127.0.0.1:1",
	}), func(mc *mockComponents) {
		mc.receivers[vdapi.RMTConditionCreate] = recv
	})
	defer done()

	key2 := testNodeKey(t, node2Seed)
	msg := signedTestMessage(t, key2, "node2", "node1", vdapi.RMTConditionCreate, vdtypes.RawJSON(`{"version":"v1"}`))
	batch := &vdapi.RelayDeliveryBatch{Node: "node2", Messages: []*vdapi.RelayMessage{msg}}

	results, err := rm.DeliverBatch(ctx, batch)
	require.NoError(t, err)
	assert.False(t, results[0].Duplicate)
	<-recv.received

	// redelivery acks again, without re-dispatch
	results, err = rm.DeliverBatch(ctx, batch)
	require.NoError(t, err)
	assert.True(t, results[0].Duplicate)
	assert.False(t, results[0].Rejected)
	select {
	case m := <-recv.received:
		require.Failf(t, "unexpected re-dispatch", "message %s dispatched twice", m.ID)
	default:
	}
}

func TestDeliverReceiverRejectIsPermanent(t *testing.T) {
	recv := newTestReceiver()
	recv.handle = func(ctx context.Context, dbTX persistence.DBTX, msg *vdapi.RelayMessage) error {
		return components.RelayReject(errors.New("spurned by policy"))
	}
	ctx, rm, _, done := newTestRelayManager(t, true, "node1", testRelayConf(t, map[string]string{
		"node2": "http://127.0.0.1:1",
	}), func(mc *mockComponents) {
		mc.receivers[vdapi.RMTPayoutInstruction] = recv
	})
	defer done()

	key2 := testNodeKey(t, node2Seed)
	msg := signedTestMessage(t, key2, "node2", "node1", vdapi.RMTPayoutInstruction, vdtypes.RawJSON(`{"version":"v1"}`))
	batch := &vdapi.RelayDeliveryBatch{Node: "node2", Messages: []*vdapi.RelayMessage{msg}}

	results, err := rm.DeliverBatch(ctx, batch)
	require.NoError(t, err)
	assert.True(t, results[0].Rejected)
	assert.Regexp(t, "spurned by policy", results[0].Error)

	// the dedup row survived the reject - replays report duplicate
	results, err = rm.DeliverBatch(ctx, batch)
	require.NoError(t, err)
	assert.True(t, results[0].Duplicate)
}

func TestDeliverReceiverTransientErrorRollsBack(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	recv := newTestReceiver()
	recv.handle = func(ctx context.Context, dbTX persistence.DBTX, msg *vdapi.RelayMessage) error {
		if fail.Load() {
			return fmt.Errorf("synthetic outage")
		}
		return nil
	}
	ctx, rm, _, done := newTestRelayManager(t, true, "node1", testRelayConf(t, map[string]string{
		"node2": "http://127.0.0.1:1",
	}), func(mc *mockComponents) {
		mc.receivers[vdapi.RMTConditionCreate] = recv
	})
	defer done()

	key2 := testNodeKey(t, node2Seed)
	msg := signedTestMessage(t, key2, "node2", "node1", vdapi.RMTConditionCreate, vdtypes.RawJSON(`{"version":"v1"}`))
	batch := &vdapi.RelayDeliveryBatch{Node: "node2", Messages: []*vdapi.RelayMessage{msg}}

	_, err := rm.DeliverBatch(ctx, batch)
	assert.Regexp(t, "synthetic outage", err)

	// the first attempt rolled back completely, so redelivery applies cleanly
	fail.Store(false)
	results, err := rm.DeliverBatch(ctx, batch)
	require.NoError(t, err)
	assert.False(t, results[0].Duplicate)
	assert.False(t, results[0].Rejected)
	delivered := <-recv.received
	assert.Equal(t, msg.ID, delivered.ID)
}
