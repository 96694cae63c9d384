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
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridict-io/veridict/internal/components"
	"github.com/veridict-io/veridict/mocks/componentsmocks"
	"github.com/veridict-io/veridict/pkg/confutil"
	"github.com/veridict-io/veridict/pkg/persistence"
	"github.com/veridict-io/veridict/pkg/persistence/mockpersistence"
	"github.com/veridict-io/veridict/pkg/signkeys"
	"github.com/veridict-io/veridict/pkg/vdapi"
	"github.com/veridict-io/veridict/pkg/vdconf"
	"github.com/veridict-io/veridict/pkg/vdtypes"
)

// Stable test identities - peer configs carry the derived signing addresses
var (
	node1Seed = strings.Repeat("01", 32)
	node2Seed = strings.Repeat("02", 32)
)

func testNodeSeed(nodeName string) string {
	if nodeName == "node2" {
		return node2Seed
	}
	return node1Seed
}

func testNodeKey(t *testing.T, seed string) *signkeys.NodeKey {
	nk, err := signkeys.NewNodeKey(context.Background(), &vdconf.NodeKeyConfig{Seed: confutil.P(seed)})
	require.NoError(t, err)
	return nk
}

// testRelayConf maps peer node name to endpoint URL, filling in the signer
// address from the fixed test key for that name. Retry/resend tuning is
// aggressive so failure paths cycle fast.
func testRelayConf(t *testing.T, peers map[string]string) *vdconf.RelayManagerConfig {
	conf := &vdconf.RelayManagerConfig{
		MessageResend:      confutil.P("100ms"),
		PeerReaperInterval: confutil.P("100ms"),
		SendRetry: vdconf.RetryConfigWithMax{
			RetryConfig: vdconf.RetryConfig{
				InitialDelay: confutil.P("1ms"),
				MaxDelay:     confutil.P("5ms"),
			},
			MaxAttempts: confutil.P(2),
		},
		ReliableScanRetry: vdconf.RetryConfig{
			InitialDelay: confutil.P("1ms"),
			MaxDelay:     confutil.P("10ms"),
		},
		MessageWriter: vdconf.FlushWriterConfig{
			BatchTimeout: confutil.P("10ms"),
		},
		Peers: map[string]*vdconf.PeerConfig{},
	}
	for name, url := range peers {
		pc := &vdconf.PeerConfig{SignerAddress: testNodeKey(t, testNodeSeed(name)).Address()}
		pc.Endpoint.URL = url
		conf.Peers[name] = pc
	}
	return conf
}

type mockComponents struct {
	noInit        bool
	db            sqlmock.Sqlmock
	allComponents *componentsmocks.AllComponents
	receivers     map[vdapi.RelayMessageType]components.RelayReceiver
}

func newTestRelayManager(t *testing.T, realDB bool, nodeName string, conf *vdconf.RelayManagerConfig, extraSetup ...func(mc *mockComponents)) (context.Context, *relayManager, *mockComponents, func()) {
	ctx, cancelCtx := context.WithCancel(context.Background())

	mc := &mockComponents{
		allComponents: componentsmocks.NewAllComponents(t),
		receivers:     make(map[vdapi.RelayMessageType]components.RelayReceiver),
	}
	mc.allComponents.On("NodeName").Return(nodeName).Maybe()
	mc.allComponents.On("NodeKey").Return(testNodeKey(t, testNodeSeed(nodeName))).Maybe()

	var p persistence.Persistence
	var err error
	var pDone func()
	if realDB {
		p, pDone, err = persistence.NewUnitTestPersistence(ctx, "relaymgr")
		require.NoError(t, err)
	} else {
		mp, err := mockpersistence.NewSQLMockProvider()
		require.NoError(t, err)
		p = mp.P
		mc.db = mp.Mock
		pDone = func() {
			require.NoError(t, mp.Mock.ExpectationsWereMet())
		}
	}
	mc.allComponents.On("Persistence").Return(p).Maybe()

	for _, fn := range extraSetup {
		fn(mc)
	}

	if !realDB && !mc.noInit {
		// Start always runs the queued destination recovery scan
		mc.db.ExpectQuery("SELECT.*relay_msgs").WillReturnRows(sqlmock.NewRows([]string{"destination"}))
	}

	rm := NewRelayManager(ctx, conf)

	if !mc.noInit {
		initData, err := rm.PreInit(mc.allComponents)
		require.NoError(t, err)
		assert.NotNil(t, initData)

		err = rm.PostInit(mc.allComponents)
		require.NoError(t, err)

		for messageType, receiver := range mc.receivers {
			require.NoError(t, rm.RegisterReceiver(messageType, receiver))
		}

		err = rm.Start()
		require.NoError(t, err)
	}

	return ctx, rm.(*relayManager), mc, func() {
		rm.Stop()
		cancelCtx()
		pDone()
	}
}

type testReceiver struct {
	received chan *vdapi.RelayMessage
	handle   func(ctx context.Context, dbTX persistence.DBTX, msg *vdapi.RelayMessage) error
}

func newTestReceiver() *testReceiver {
	return &testReceiver{received: make(chan *vdapi.RelayMessage, 16)}
}

func (tr *testReceiver) HandleMessage(ctx context.Context, dbTX persistence.DBTX, msg *vdapi.RelayMessage) error {
	if tr.handle != nil {
		if err := tr.handle(ctx, dbTX, msg); err != nil {
			return err
		}
	}
	tr.received <- msg
	return nil
}

type faultRecord struct {
	msg    *vdapi.RelayMessage
	reason error
}

type testFaultReceiver struct {
	testReceiver
	faults chan *faultRecord
}

func newTestFaultReceiver() *testFaultReceiver {
	return &testFaultReceiver{
		testReceiver: *newTestReceiver(),
		faults:       make(chan *faultRecord, 16),
	}
}

func (tr *testFaultReceiver) HandleDeliveryFault(ctx context.Context, dbTX persistence.DBTX, msg *vdapi.RelayMessage, reason error) error {
	tr.faults <- &faultRecord{msg: msg, reason: reason}
	return nil
}

func collectMessages(t *testing.T, tr *testReceiver, n int) []*vdapi.RelayMessage {
	received := make([]*vdapi.RelayMessage, 0, n)
	for len(received) < n {
		select {
		case m := <-tr.received:
			received = append(received, m)
		case <-time.After(5 * time.Second):
			require.Failf(t, "delivery timeout", "received %d of %d messages", len(received), n)
		}
	}
	return received
}

func waitForAcks(t *testing.T, ctx context.Context, p persistence.Persistence, expected int) []*vdapi.RelayMessageAck {
	var acks []*vdapi.RelayMessageAck
	require.Eventually(t, func() bool {
		acks = nil
		require.NoError(t, p.DB().WithContext(ctx).Find(&acks).Error)
		return len(acks) >= expected
	}, 5*time.Second, 10*time.Millisecond)
	require.Len(t, acks, expected)
	return acks
}

func TestPreInitMissingSignerAddress(t *testing.T) {
	conf := testRelayConf(t, nil)
	pc := &vdconf.PeerConfig{}
	pc.Endpoint.URL = "http://127.0.0.1:1"
	conf.Peers["node2"] = pc

	_, rm, mc, done := newTestRelayManager(t, false, "node1", conf, func(mc *mockComponents) {
		mc.noInit = true
	})
	defer done()

	_, err := rm.PreInit(mc.allComponents)
	assert.Regexp(t, "VD010711.*signerAddress", err)
}

func TestPreInitBadEndpoint(t *testing.T) {
	conf := testRelayConf(t, nil)
	conf.Peers["node2"] = &vdconf.PeerConfig{
		SignerAddress: testNodeKey(t, node2Seed).Address(),
		// no endpoint URL
	}

	_, rm, mc, done := newTestRelayManager(t, false, "node1", conf, func(mc *mockComponents) {
		mc.noInit = true
	})
	defer done()

	_, err := rm.PreInit(mc.allComponents)
	assert.Regexp(t, "VD010711.*endpoint", err)
}

func TestPreInitSkipsLocalNodeEntry(t *testing.T) {
	// symmetric config files list every node including this one
	_, rm, _, done := newTestRelayManager(t, false, "node1", testRelayConf(t, map[string]string{
		"node1": "http://127.0.0.1:1",
		"node2": "http://127.0.0.1:1",
	}))
	defer done()

	assert.False(t, rm.KnownPeer("node1"))
	assert.True(t, rm.KnownPeer("node2"))
}

func TestRegisterReceiverLifecycle(t *testing.T) {
	_, rm, mc, done := newTestRelayManager(t, false, "node1", testRelayConf(t, map[string]string{
		"node2": "http://127.0.0.1:1",
	}), func(mc *mockComponents) {
		mc.noInit = true
	})
	defer done()

	_, err := rm.PreInit(mc.allComponents)
	require.NoError(t, err)
	require.NoError(t, rm.PostInit(mc.allComponents))

	require.NoError(t, rm.RegisterReceiver(vdapi.RMTConditionCreate, newTestReceiver()))
	err = rm.RegisterReceiver(vdapi.RMTConditionCreate, newTestReceiver())
	assert.Regexp(t, "VD010706", err)

	mc.db.ExpectQuery("SELECT.*relay_msgs").WillReturnRows(sqlmock.NewRows([]string{"destination"}))
	require.NoError(t, rm.Start())

	err = rm.RegisterReceiver(vdapi.RMTStatusUpdate, newTestReceiver())
	assert.Regexp(t, "VD010710", err)
}

func TestSendValidation(t *testing.T) {
	ctx, rm, _, done := newTestRelayManager(t, false, "node1", testRelayConf(t, map[string]string{
		"node2": "http://127.0.0.1:1",
	}))
	defer done()

	// the message type must be a known payload type
	_, err := rm.Send(ctx, nil, &components.RelaySend{
		Channel:     uuid.New(),
		MessageType: "carrier-pigeon",
		Destination: "node2",
		Payload:     vdtypes.RawJSON(`{}`),
	})
	assert.Regexp(t, "VD010701", err)

	// a payload is required
	_, err = rm.Send(ctx, nil, &components.RelaySend{
		Channel:     uuid.New(),
		MessageType: vdapi.RMTConditionCreate,
		Destination: "node2",
	})
	assert.Regexp(t, "VD010701", err)

	// no relaying to ourselves
	_, err = rm.Send(ctx, nil, &components.RelaySend{
		Channel:     uuid.New(),
		MessageType: vdapi.RMTConditionCreate,
		Destination: "node1",
		Payload:     vdtypes.RawJSON(`{}`),
	})
	assert.Regexp(t, "VD010709", err)

	// the destination must be in the peer list
	_, err = rm.Send(ctx, nil, &components.RelaySend{
		Channel:     uuid.New(),
		MessageType: vdapi.RMTConditionCreate,
		Destination: "node3",
		Payload:     vdtypes.RawJSON(`{}`),
	})
	assert.Regexp(t, "VD010700", err)
}

func TestSendAfterStopRejected(t *testing.T) {
	ctx, rm, _, done := newTestRelayManager(t, false, "node1", testRelayConf(t, map[string]string{
		"node2": "http://127.0.0.1:1",
	}))
	done() // stopped before the send

	_, err := rm.Send(ctx, nil, &components.RelaySend{
		Channel:     uuid.New(),
		MessageType: vdapi.RMTConditionCreate,
		Destination: "node2",
		Payload:     vdtypes.RawJSON(`{}`),
	})
	assert.Regexp(t, "VD010708", err)
}

func TestKnownPeer(t *testing.T) {
	_, rm, _, done := newTestRelayManager(t, false, "node1", testRelayConf(t, map[string]string{
		"node2": "http://127.0.0.1:1",
	}))
	defer done()

	assert.True(t, rm.KnownPeer("node2"))
	assert.False(t, rm.KnownPeer("node3"))
}

func TestStartRecoveryUnknownDestination(t *testing.T) {
	_, rm, mc, done := newTestRelayManager(t, false, "node1", testRelayConf(t, map[string]string{
		"node2": "http://127.0.0.1:1",
	}), func(mc *mockComponents) {
		mc.noInit = true
	})
	defer done()

	// a peer removed from config leaves queued rows behind - start still succeeds
	mc.db.ExpectQuery("SELECT.*relay_msgs").WillReturnRows(
		sqlmock.NewRows([]string{"destination"}).AddRow("ghost"))

	_, err := rm.PreInit(mc.allComponents)
	require.NoError(t, err)
	require.NoError(t, rm.PostInit(mc.allComponents))
	require.NoError(t, rm.Start())
}

func TestStartRecoveryScanFail(t *testing.T) {
	_, rm, mc, done := newTestRelayManager(t, false, "node1", testRelayConf(t, map[string]string{
		"node2": "http://127.0.0.1:1",
	}), func(mc *mockComponents) {
		mc.noInit = true
		mc.db.ExpectQuery("SELECT.*relay_msgs").WillReturnError(fmt.Errorf("pop"))
	})
	defer done()

	_, err := rm.PreInit(mc.allComponents)
	require.NoError(t, err)
	require.NoError(t, rm.PostInit(mc.allComponents))

	err = rm.Start()
	assert.Regexp(t, "pop", err)
}

func TestGetPeerSelfSend(t *testing.T) {
	ctx, rm, _, done := newTestRelayManager(t, false, "node1", testRelayConf(t, map[string]string{
		"node2": "http://127.0.0.1:1",
	}))
	defer done()

	_, err := rm.getPeer(ctx, "node1", false)
	assert.Regexp(t, "VD010709", err)
}
