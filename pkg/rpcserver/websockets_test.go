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

package rpcserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridict-io/veridict/pkg/rpcclient"
	"github.com/veridict-io/veridict/pkg/vdconf"
	"github.com/veridict-io/veridict/pkg/vdtypes"
)

// Simple test client that dials the server raw, splitting inbound frames into
// responses (with an ID) and server-initiated notifications (with a method)
type wsTestClient struct {
	conn          *websocket.Conn
	responses     chan *rpcclient.RPCResponse
	notifications chan *rpcclient.RPCResponse
}

func newWSTestClient(t *testing.T, url string) *wsTestClient {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	c := &wsTestClient{
		conn:          conn,
		responses:     make(chan *rpcclient.RPCResponse, 10),
		notifications: make(chan *rpcclient.RPCResponse, 10),
	}
	go func() {
		for {
			_, b, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var res rpcclient.RPCResponse
			if err := json.Unmarshal(b, &res); err == nil {
				if res.Method != "" {
					c.notifications <- &res
				} else {
					c.responses <- &res
				}
			}
		}
	}()
	return c
}

func (c *wsTestClient) call(t *testing.T, method string, params ...any) *rpcclient.RPCResponse {
	req := &rpcclient.RPCRequest{
		JSONRpc: "2.0",
		ID:      vdtypes.RawJSON(`"1"`),
		Method:  method,
	}
	for _, p := range params {
		req.Params = append(req.Params, vdtypes.JSONString(p))
	}
	err := c.conn.WriteJSON(req)
	require.NoError(t, err)
	select {
	case res := <-c.responses:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for RPC response")
		return nil
	}
}

func (c *wsTestClient) close() {
	_ = c.conn.Close()
}

// Reference implementation of the async interface for the simple fire-and-forget publication
// interface described in https://geth.ethereum.org/docs/interacting-with-geth/rpc/pubsub
type testSubscriptions struct {
	subLock         sync.Mutex
	subsByEventType map[string]map[string]*testSubscription
}

func newTestSubscriptions() *testSubscriptions {
	return &testSubscriptions{
		subsByEventType: make(map[string]map[string]*testSubscription),
	}
}

func (es *testSubscriptions) publish(eventType string, result any) {
	es.subLock.Lock()
	defer es.subLock.Unlock()

	for _, sub := range es.subsByEventType[eventType] {
		sub.ctrl.Send("evt_subscription", map[string]any{
			"subscription": sub.ctrl.ID(),
			"result":       result,
		})
	}
}

func (es *testSubscriptions) StartMethod() string {
	return "evt_subscribe"
}

func (es *testSubscriptions) LifecycleMethods() []string {
	return []string{"evt_unsubscribe"}
}

type testSubscription struct {
	es        *testSubscriptions
	ctrl      RPCAsyncControl
	eventType string
	params    []vdtypes.RawJSON
}

func (es *testSubscriptions) HandleStart(ctx context.Context, req *rpcclient.RPCRequest, ctrl RPCAsyncControl) (RPCAsyncInstance, *rpcclient.RPCResponse) {
	es.subLock.Lock()
	defer es.subLock.Unlock()

	if len(req.Params) < 1 {
		return nil, rpcclient.NewRPCErrorResponse(fmt.Errorf("evt_subscribe requires a type parameter"), req.ID, rpcclient.RPCCodeInvalidRequest)
	}
	eventType := req.Params[0].StringValue()
	subMap := es.subsByEventType[eventType]
	if subMap == nil {
		subMap = make(map[string]*testSubscription)
		es.subsByEventType[eventType] = subMap
	}
	sub := &testSubscription{
		es:        es,
		ctrl:      ctrl,
		eventType: eventType,
		params:    req.Params[1:],
	}
	subMap[ctrl.ID()] = sub
	return sub, &rpcclient.RPCResponse{
		JSONRpc: "2.0",
		ID:      req.ID,
		Result:  vdtypes.JSONString(ctrl.ID()),
	}
}

func (es *testSubscriptions) popSubForUnsubscribe(subID string) *testSubscription {
	es.subLock.Lock()
	defer es.subLock.Unlock()

	for _, forType := range es.subsByEventType {
		sub := forType[subID]
		if sub != nil {
			delete(forType, subID)
			return sub
		}
	}

	return nil
}

func (es *testSubscriptions) HandleLifecycle(ctx context.Context, req *rpcclient.RPCRequest) *rpcclient.RPCResponse {

	if req.Method != "evt_unsubscribe" {
		return rpcclient.NewRPCErrorResponse(fmt.Errorf("method %s unknown", req.Method), req.ID, rpcclient.RPCCodeInvalidRequest)
	}

	if len(req.Params) != 1 {
		return rpcclient.NewRPCErrorResponse(fmt.Errorf("evt_unsubscribe requires single parameter"), req.ID, rpcclient.RPCCodeInvalidRequest)
	}
	sub := es.popSubForUnsubscribe(req.Params[0].StringValue())
	if sub != nil {
		sub.ctrl.Closed()
	}
	return &rpcclient.RPCResponse{
		JSONRpc: "2.0",
		ID:      req.ID,
		Result:  vdtypes.JSONString(sub != nil),
	}

}

func (sub *testSubscription) ConnectionClosed() {
	sub.es.cleanupSub(sub)
}

func (es *testSubscriptions) cleanupSub(sub *testSubscription) {
	es.subLock.Lock()
	defer es.subLock.Unlock()

	subMap := es.subsByEventType[sub.eventType]
	if subMap != nil {
		delete(subMap, sub.ctrl.ID())
	}
}

func TestWebSocketRPCRequestResponse(t *testing.T) {

	url, s, done := newTestServerWebSockets(t, &vdconf.RPCServerConfig{})
	defer done()

	regTestRPC(s, "stringy_method", RPCMethod2(func(ctx context.Context, p0, p1 string) (string, error) {
		assert.Equal(t, "v0", p0)
		assert.Equal(t, "v1", p1)
		return "result", nil
	}))

	client := newWSTestClient(t, url)
	defer client.close()

	res := client.call(t, "stringy_method", "v0", "v1")
	require.Nil(t, res.Error)
	var result string
	err := json.Unmarshal(res.Result.Bytes(), &result)
	require.NoError(t, err)
	assert.Equal(t, "result", result)

}

func TestWebSocketSubscribeUnsubscribe(t *testing.T) {
	url, s, done := newTestServerWebSockets(t, &vdconf.RPCServerConfig{})
	defer done()

	evtSubs := newTestSubscriptions()
	s.Register(NewRPCModule("evt").AddAsync(evtSubs))

	client := newWSTestClient(t, url)
	defer client.close()

	var wsConn *webSocketConnection
	before := time.Now()
	for wsConn == nil {
		time.Sleep(1 * time.Millisecond)
		for _, wsConn = range s.wsConnections {
		}
		if time.Since(before) > 1*time.Second {
			panic("timed out waiting for connection")
		}
	}

	res := client.call(t, "evt_subscribe")
	assert.Regexp(t, "evt_subscribe requires a type parameter", res.Error.Message)
	res = client.call(t, "evt_unsubscribe")
	assert.Regexp(t, "evt_unsubscribe requires single parameter", res.Error.Message)

	res = client.call(t, "evt_subscribe", "myEvents", map[string]interface{}{"extra": "params"})
	require.Nil(t, res.Error)
	sub1 := res.Result.StringValue()

	res = client.call(t, "evt_subscribe", "otherEvents")
	require.Nil(t, res.Error)

	assert.Len(t, evtSubs.subsByEventType["myEvents"], 1)
	assert.Len(t, evtSubs.subsByEventType["otherEvents"], 1)
	for _, sub := range evtSubs.subsByEventType["myEvents"] {
		assert.JSONEq(t, `{"extra": "params"}`, sub.params[0].String())
	}

	go evtSubs.publish("myEvents", map[string]interface{}{"some": "thing"})

	notification := <-client.notifications
	assert.Equal(t, "evt_subscription", notification.Method)
	var delivered map[string]any
	err := json.Unmarshal(notification.Params.Bytes(), &delivered)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"some": "thing"}, delivered["result"])

	res = client.call(t, "evt_unsubscribe", sub1)
	require.Nil(t, res.Error)

	assert.Len(t, evtSubs.subsByEventType["myEvents"], 0)
	assert.Len(t, evtSubs.subsByEventType["otherEvents"], 1)

	// Close the connection
	client.close()
	<-wsConn.closing
	for !wsConn.closed {
		time.Sleep(1 * time.Microsecond)
	}

}

func TestAsyncMethodNonWSConn(t *testing.T) {
	url, s, done := newTestServerHTTP(t, &vdconf.RPCServerConfig{})
	defer done()

	evtSubs := newTestSubscriptions()
	s.Register(NewRPCModule("evt").AddAsync(evtSubs))

	client := rpcclient.WrapRestyClient(resty.New().SetBaseURL(url))

	var res any
	rpcErr := client.CallRPC(context.Background(), &res, "evt_subscribe")
	assert.Regexp(t, "VD010409", rpcErr)

}

func TestWebSocketConnectionFailureHandling(t *testing.T) {
	url, s, done := newTestServerWebSockets(t, &vdconf.RPCServerConfig{})
	defer done()

	client := newWSTestClient(t, url)
	defer client.close()

	var wsConn *webSocketConnection
	before := time.Now()
	for wsConn == nil {
		time.Sleep(1 * time.Millisecond)
		for _, wsConn = range s.wsConnections {
		}
		if time.Since(before) > 1*time.Second {
			panic("timed out waiting for connection")
		}
	}

	// Close the connection
	client.close()
	<-wsConn.closing
	for !wsConn.closed {
		time.Sleep(1 * time.Microsecond)
	}

	// Run the send directly to give it an error to handle, which will make it return
	wsConn.closing = make(chan struct{})
	wsConn.send = make(chan []byte)
	go func() { wsConn.send <- ([]byte)(`{}`) }()
	wsConn.sender()

	// Give it some bad data to handle
	wsConn.sendMessage(map[bool]bool{false: true})

	// Give it some good data to discard
	wsConn.sendMessage("anything")

}
