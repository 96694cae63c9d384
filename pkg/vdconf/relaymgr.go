/*
 * Copyright © 2025 Kaleido, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
 * the License. You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
 * an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
 * specific language governing permissions and limitations under the License.
 *
 * SPDX-License-Identifier: Apache-2.0
 */
package vdconf

import "github.com/veridict-io/veridict/pkg/confutil"

type RelayManagerConfig struct {
	PeerInactivityTimeout *string                `json:"peerInactivityTimeout"`
	PeerReaperInterval    *string                `json:"peerReaperInterval"`
	SendRetry             RetryConfigWithMax     `json:"sendRetry"`
	ReliableScanRetry     RetryConfig            `json:"reliableScanRetry"`
	MessageResend         *string                `json:"messageResend"`
	MessageWriter         FlushWriterConfig      `json:"messageWriter"`
	Peers                 map[string]*PeerConfig `json:"peers"`
}

// PeerConfig is the static registration of another node, keyed by the ledger it serves
type PeerConfig struct {
	Endpoint HTTPClientConfig `json:"endpoint"`
	// the address the peer's node key signs envelopes with
	SignerAddress string `json:"signerAddress"`
}

var RelayManagerDefaults = &RelayManagerConfig{
	MessageResend:         confutil.P("30s"),
	PeerInactivityTimeout: confutil.P("1m"),
	PeerReaperInterval:    confutil.P("30s"),
	ReliableScanRetry:     GenericRetryDefaults.RetryConfig,
	// SendRetry defaults are deliberately short
	SendRetry: RetryConfigWithMax{
		RetryConfig: RetryConfig{
			InitialDelay: confutil.P("50ms"),
			MaxDelay:     confutil.P("1s"),
			Factor:       confutil.P(2.0),
		},
		MaxAttempts: confutil.P(3),
	},
	MessageWriter: FlushWriterConfig{
		WorkerCount:  confutil.P(1),
		BatchTimeout: confutil.P("250ms"),
		BatchMaxSize: confutil.P(50),
	},
}
