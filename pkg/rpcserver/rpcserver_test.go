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
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridict-io/veridict/pkg/confutil"
	"github.com/veridict-io/veridict/pkg/log"
	"github.com/veridict-io/veridict/pkg/vdconf"
)

func setTraceForTest(t *testing.T) {
	log.EnsureInit()
	l := log.GetLevel()
	log.SetLevel("trace")
	t.Cleanup(func() {
		log.SetLevel(l)
	})
}

func newTestServerHTTP(t *testing.T, conf *vdconf.RPCServerConfig) (string, *rpcServer, func()) {
	setTraceForTest(t)

	conf.HTTP.Address = confutil.P("127.0.0.1")
	conf.HTTP.Port = confutil.P(0)
	conf.WS.Disabled = true
	s, err := NewRPCServer(context.Background(), conf)
	require.NoError(t, err)
	err = s.Start()
	require.NoError(t, err)
	return fmt.Sprintf("http://%s", s.HTTPAddr()), s, s.Stop

}

func newTestServerWebSockets(t *testing.T, conf *vdconf.RPCServerConfig) (string, *rpcServer, func()) {

	conf.WS.Address = confutil.P("127.0.0.1")
	conf.WS.Port = confutil.P(0)
	conf.HTTP.Disabled = true
	s, err := NewRPCServer(context.Background(), conf)
	require.NoError(t, err)
	err = s.Start()
	require.NoError(t, err)
	return fmt.Sprintf("ws://%s", s.WSAddr()), s, s.Stop

}

func regTestRPC(s *rpcServer, method string, handler RPCHandler) {
	group := strings.SplitN(method, "_", 2)[0]
	module := s.rpcModules[group]
	if module == nil {
		module = NewRPCModule(group)
		s.Register(module)
	}
	module.Add(method, handler)
}

func TestBadHTTPConfig(t *testing.T) {

	_, err := NewRPCServer(context.Background(), &vdconf.RPCServerConfig{
		HTTP: vdconf.RPCServerConfigHTTP{
			HTTPServerConfig: vdconf.HTTPServerConfig{
				Address: confutil.P("::::::wrong"),
			},
		},
		WS: vdconf.RPCServerConfigWS{Disabled: true},
	})
	assert.Regexp(t, "VD010400", err)

}

func TestBadWSConfig(t *testing.T) {

	_, err := NewRPCServer(context.Background(), &vdconf.RPCServerConfig{
		WS: vdconf.RPCServerConfigWS{
			HTTPServerConfig: vdconf.HTTPServerConfig{
				Address: confutil.P("::::::wrong"),
			},
		},
		HTTP: vdconf.RPCServerConfigHTTP{Disabled: true},
	})
	assert.Regexp(t, "VD010400", err)

}

func TestBadHTTPMethod(t *testing.T) {

	url, _, done := newTestServerHTTP(t, &vdconf.RPCServerConfig{})
	defer done()

	res, err := http.DefaultClient.Get(url)
	require.NoError(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)

}

func TestBadWSUpgrade(t *testing.T) {

	_, s, done := newTestServerWebSockets(t, &vdconf.RPCServerConfig{})
	defer done()

	res, err := http.DefaultClient.Get(fmt.Sprintf("http://%s", s.WSAddr()))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

}

func TestWSHandler(t *testing.T) {
	rpcServer, err := NewRPCServer(context.Background(), &vdconf.RPCServerConfig{
		HTTP: vdconf.RPCServerConfigHTTP{Disabled: true},
		WS: vdconf.RPCServerConfigWS{
			HTTPServerConfig: vdconf.HTTPServerConfig{
				Port: confutil.P(0),
			},
		},
	})
	require.NoError(t, err)
	defer rpcServer.Stop()

	req := httptest.NewRequest("GET", "/test", nil)
	res := httptest.NewRecorder()
	rpcServer.WSHandler(res, req)
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestHTTPHandler(t *testing.T) {
	rpcServer, err := NewRPCServer(context.Background(), &vdconf.RPCServerConfig{
		HTTP: vdconf.RPCServerConfigHTTP{
			Disabled: false,
			HTTPServerConfig: vdconf.HTTPServerConfig{
				Address: confutil.P("127.0.0.1"),
				Port:    confutil.P(0), // Use dynamic port
			},
		},
		WS: vdconf.RPCServerConfigWS{Disabled: true},
	})
	require.NoError(t, err)
	defer rpcServer.Stop()

	req := httptest.NewRequest("POST", "/", nil)
	res := httptest.NewRecorder()
	rpcServer.HTTPHandler(res, req)
	assert.Equal(t, http.StatusInternalServerError, res.Code)
}
